package sat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaximize(t *testing.T) {
	t.Run("Climbs to the optimum", func(t *testing.T) {
		// At most 3 of 6 variables, at most one of each consecutive pair
		encoder := NewEncoder(6)
		encoder.Add(AtMost(literals(6), 3))
		for i := int64(1); i < 6; i++ {
			encoder.AddClause(-i, -(i + 1))
		}

		result, err := Maximize(context.Background(), NewGiniSolver(), encoder, literals(6), 6, nil)

		require.NoError(t, err)
		require.NotNil(t, result.Solution)
		assert.Equal(t, 3, result.Value)
		assert.True(t, result.Optimal)
		assert.True(t, assertSATSolution(encoder.SAT(), result.Solution))
	})

	t.Run("Stops at the upper bound", func(t *testing.T) {
		encoder := NewEncoder(4)

		result, err := Maximize(context.Background(), NewGiniSolver(), encoder, literals(4), 2, nil)

		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.Value, 2)
		assert.True(t, result.Optimal)
	})

	t.Run("Unsatisfiable instance", func(t *testing.T) {
		encoder := NewEncoder(1)
		encoder.AddClause(1)
		encoder.AddClause(-1)

		result, err := Maximize(context.Background(), NewGiniSolver(), encoder, literals(1), 1, nil)

		require.NoError(t, err)
		assert.Nil(t, result.Solution)
	})

	t.Run("Keep preserves the value", func(t *testing.T) {
		encoder := NewEncoder(4)
		encoder.Add(AtMost(literals(4), 2))
		solver := NewGiniSolver()

		result, err := Maximize(context.Background(), solver, encoder, literals(4), 4, nil)
		require.NoError(t, err)
		require.Equal(t, 2, result.Value)

		solution, err := solver.Solve(context.Background(), encoder.SAT(), result.Keep)
		require.NoError(t, err)
		require.NotNil(t, solution)
		assert.Equal(t, 2, solution.Count(literals(4)))
	})
}

func TestMinimizeMax(t *testing.T) {
	// Four tasks (1..4), each placed in room A (first literal) or room B (second literal)
	encoder := NewEncoder(8)
	groups := [][]int64{{1, 3, 5, 7}, {2, 4, 6, 8}}
	for task := int64(0); task < 4; task++ {
		encoder.Add(Exactly([]int64{2*task + 1, 2*task + 2}, 1))
	}
	solver := NewGiniSolver()
	start, err := solver.Solve(context.Background(), encoder.SAT(), []int64{1, 3, 5, 7})
	require.NoError(t, err)
	require.NotNil(t, start)

	result, err := MinimizeMax(context.Background(), solver, encoder, groups, 2, start, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Value)
	assert.True(t, result.Optimal)
	assert.Equal(t, 2, result.Solution.Count(groups[0]))
	assert.Equal(t, 2, result.Solution.Count(groups[1]))
}

func TestMaximizeInterrupted(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := Maximize(ctx, NewGiniSolver(), NewEncoder(2), literals(2), 2, nil)

	assert.ErrorIs(t, err, ErrInterrupted)
}
