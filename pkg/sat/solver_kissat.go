package sat

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const defaultKissatPath = "kissat"

type kissatSolver struct {
	path string
}

// NewKissatSolver returns a solver running the kissat executable found at path (or in $PATH when empty)
func NewKissatSolver(path string) SATSolver {
	if path == "" {
		path = defaultKissatPath
	}
	return &kissatSolver{path: path}
}

func (solver *kissatSolver) Solve(ctx context.Context, sat *SAT, assumptions []int64) (SATSolution, error) {
	// kissat is not incremental: assumptions become unit clauses of a one-off instance
	instance := *sat
	if len(assumptions) > 0 {
		instance.Clauses = make([][]int64, 0, len(sat.Clauses)+len(assumptions))
		instance.Clauses = append(instance.Clauses, sat.Clauses...)
		for _, assumption := range assumptions {
			instance.Clauses = append(instance.Clauses, []int64{assumption})
		}
	}
	dimacs := instance.ToDIMACS() // Transform SAT into DIMACS-CNF string format

	cmd := exec.CommandContext(ctx, solver.path, "-q", "--relaxed")
	cmd.Stdin = strings.NewReader(dimacs) // Feed dimacs into kissat's standard input

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, ErrInterrupted
	}
	// Exit-code of 10 stands for satisfiable and exit-code 20 stands for unsatisfiable
	if err != nil && cmd.ProcessState == nil {
		return nil, fmt.Errorf("cannot start kissat: %w", err)
	} else if err != nil && cmd.ProcessState.ExitCode() != 10 && cmd.ProcessState.ExitCode() != 20 {
		return nil, fmt.Errorf("an error occurred during kissat execution: %w : %v", err, stderr.String())
	} else if cmd.ProcessState.ExitCode() == 20 {
		return nil, nil
	}

	return parseSolution(stdOut.String(), sat.Variables)
}
