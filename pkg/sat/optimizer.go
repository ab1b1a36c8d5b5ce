package sat

import (
	"context"
	"errors"
	"slices"

	"github.com/samber/lo"
)

// Optimization is the best solution found by an optimization search
type Optimization struct {
	Solution SATSolution
	Value    int
	// Optimal is false when the search was interrupted before the value was proven to be the best one
	Optimal bool
	// Assumptions that keep later searches at least as good as this one
	Keep []int64
}

// Maximize searches for a solution where as many objective literals as possible hold. The search climbs from the first
// solution found, requiring one more objective literal each step; reaching upperBound ends it without an
// unsatisfiability proof. A nil Solution with nil error means the instance is unsatisfiable under the assumptions;
// ErrInterrupted is returned only if no solution at all was found in time
func Maximize(ctx context.Context, solver SATSolver, encoder *Encoder, objective []int64, upperBound int, assumptions []int64) (Optimization, error) {
	sat := encoder.SAT()
	solution, err := solver.Solve(ctx, sat, assumptions)
	if err != nil || solution == nil {
		return Optimization{}, err
	}

	upperBound = min(upperBound, len(objective))
	best := Optimization{Solution: solution, Value: solution.Count(objective), Keep: assumptions}
	if best.Value >= upperBound {
		best.Optimal = true
		return best, nil
	}

	outputs := encoder.Counter(objective, upperBound)
	keep := func() []int64 {
		if best.Value == 0 {
			return assumptions
		}
		return append(slices.Clone(assumptions), outputs[best.Value-1])
	}

	for best.Value < upperBound {
		solution, err := solver.Solve(ctx, sat, append(slices.Clone(assumptions), outputs[best.Value]))
		if errors.Is(err, ErrInterrupted) {
			best.Keep = keep()
			return best, nil
		} else if err != nil {
			return best, err
		} else if solution == nil {
			break
		}
		best.Solution, best.Value = solution, solution.Count(objective)
	}

	best.Optimal = true
	best.Keep = keep()
	return best, nil
}

// MinimizeMax starts from a solution and searches for solutions lowering the largest number of literals holding within
// any group, never going below lowerBound
func MinimizeMax(ctx context.Context, solver SATSolver, encoder *Encoder, groups [][]int64, lowerBound int, start SATSolution, assumptions []int64) (Optimization, error) {
	sat := encoder.SAT()
	largest := func(solution SATSolution) int {
		return lo.Max(lo.Map(groups, func(group []int64, _ int) int { return solution.Count(group) }))
	}

	best := Optimization{Solution: start, Value: largest(start), Keep: assumptions}
	if best.Value <= lowerBound {
		best.Optimal = true
		return best, nil
	}

	counters := lo.Map(groups, func(group []int64, _ int) []int64 { return encoder.Counter(group, best.Value) })
	for best.Value > lowerBound {
		step := slices.Clone(assumptions)
		for _, outputs := range counters {
			// Forbid reaching the current maximum
			if len(outputs) >= best.Value {
				step = append(step, -outputs[best.Value-1])
			}
		}

		solution, err := solver.Solve(ctx, sat, step)
		if errors.Is(err, ErrInterrupted) {
			return best, nil
		} else if err != nil {
			return best, err
		} else if solution == nil {
			break
		}
		best.Solution, best.Value = solution, largest(solution)
	}

	best.Optimal = true
	return best, nil
}
