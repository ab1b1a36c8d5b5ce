package sat

import (
	"context"
	"errors"
)

// ErrInterrupted is returned when the search is stopped (e.g. by a context deadline) before a verdict is reached
var ErrInterrupted = errors.New("sat: search interrupted before a verdict was reached")

type SATSolver interface {
	// Returns a solution of the SAT instance under the given assumptions if satisfiable, else returns nil (these are
	// valid outputs where error shall be nil)
	Solve(ctx context.Context, sat *SAT, assumptions []int64) (SATSolution, error)
}

// Backends lists the solvers that can be selected by name
var Backends = []string{"gini", "kissat"}

// NewSolver returns the solver backend with the given name; the executable path is only used by external backends
func NewSolver(backend string, executablePath string) (SATSolver, error) {
	switch backend {
	case "", "gini":
		return NewGiniSolver(), nil
	case "kissat":
		return NewKissatSolver(executablePath), nil
	}
	return nil, errors.New("sat: unknown solver backend \"" + backend + "\"")
}
