package sat

import (
	"fmt"
	"strings"
)

// SATSolution lists every variable of an instance as a signed literal: positive when the variable is true, negative otherwise
type SATSolution []int64

type SAT struct {
	Variables uint64
	Clauses   [][]int64
}

func (s SAT) ToDIMACS() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "p cnf %d %d\n", s.Variables, len(s.Clauses))
	for _, clause := range s.Clauses {
		for _, literal := range clause {
			fmt.Fprintf(&builder, "%d ", literal)
		}
		builder.WriteString("0\n")
	}
	return builder.String()
}

// Value reports whether the literal holds under the solution
func (solution SATSolution) Value(literal int64) bool {
	variable := literal
	if variable < 0 {
		variable = -variable
	}
	if variable == 0 || variable > int64(len(solution)) {
		return literal < 0
	}
	positive := solution[variable-1] > 0
	if literal < 0 {
		return !positive
	}
	return positive
}

// Count returns how many of the literals hold under the solution
func (solution SATSolution) Count(literals []int64) int {
	count := 0
	for _, literal := range literals {
		if solution.Value(literal) {
			count++
		}
	}
	return count
}
