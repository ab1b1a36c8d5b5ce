package sat

import (
	"context"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
	"github.com/samber/lo"
)

const giniPollInterval = 20 * time.Millisecond

// giniSolver keeps the last instance loaded in memory. When the same instance is solved again after clauses were
// appended to it, only the new clauses are added, so learnt clauses survive between optimization steps
type giniSolver struct {
	g        *gini.Gini
	instance *SAT
	loaded   int
}

func NewGiniSolver() SATSolver {
	return &giniSolver{}
}

func (solver *giniSolver) Solve(ctx context.Context, sat *SAT, assumptions []int64) (SATSolution, error) {
	if err := ctx.Err(); err != nil {
		return nil, ErrInterrupted
	}

	if solver.instance != sat || solver.loaded > len(sat.Clauses) {
		solver.g = gini.New()
		solver.instance = sat
		solver.loaded = 0
	}
	for _, clause := range sat.Clauses[solver.loaded:] {
		for _, literal := range clause {
			solver.g.Add(toGini(literal))
		}
		solver.g.Add(0)
	}
	solver.loaded = len(sat.Clauses)
	if top := z.Var(sat.Variables); sat.Variables > 0 && solver.g.MaxVar() < top {
		// gini only allocates variables that appear in a clause; a tautology over the highest one makes every variable assumable and readable
		solver.g.Add(top.Pos())
		solver.g.Add(top.Neg())
		solver.g.Add(0)
	}

	if len(assumptions) > 0 {
		solver.g.Assume(lo.Map(assumptions, func(literal int64, _ int) z.Lit { return toGini(literal) })...)
	}

	result, err := solver.wait(ctx)
	if err != nil {
		return nil, err
	} else if result != 1 { // Unsatisfiable
		return nil, nil
	}

	solution := make(SATSolution, sat.Variables)
	maxVariable := solver.g.MaxVar()
	for i := range solution {
		variable := z.Var(i + 1)
		if variable <= maxVariable && solver.g.Value(variable.Pos()) {
			solution[i] = int64(i + 1)
		} else {
			solution[i] = -int64(i + 1)
		}
	}
	return solution, nil
}

// Waits for the search to finish, stopping it once the context is done
func (solver *giniSolver) wait(ctx context.Context) (int, error) {
	if ctx.Done() == nil {
		return solver.g.Solve(), nil
	}

	search := solver.g.GoSolve()
	ticker := time.NewTicker(giniPollInterval)
	defer ticker.Stop()
	for {
		if result, done := search.Test(); done {
			return result, nil
		}
		select {
		case <-ctx.Done():
			if result := search.Stop(); result != 0 {
				return result, nil
			}
			return 0, ErrInterrupted
		case <-ticker.C:
		}
	}
}

func toGini(literal int64) z.Lit {
	if literal < 0 {
		return z.Var(-literal).Neg()
	}
	return z.Var(literal).Pos()
}
