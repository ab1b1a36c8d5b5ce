package sat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Parses the "v ..." lines of a competition-format solver output into a solution covering the given variables
func parseSolution(solverOutput string, variables uint64) (SATSolution, error) {
	values := lo.Reduce(
		lo.Filter(strings.Split(solverOutput, "\n"), func(line string, _ int) bool {
			return len(line) > 0 && line[0] == 'v'
		}),
		func(values []string, line string, _ int) []string {
			return append(values, strings.Fields(line[1:])...)
		},
		[]string{},
	)

	solution := make(SATSolution, variables)
	for i := range solution {
		solution[i] = -int64(i + 1)
	}
	for _, valueStr := range values {
		value, err := strconv.ParseInt(valueStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid literal in solver output: %w", err)
		}
		variable := lo.Ternary(value < 0, -value, value)
		if value == 0 || uint64(variable) > variables {
			continue
		}
		solution[variable-1] = value
	}
	return solution, nil
}
