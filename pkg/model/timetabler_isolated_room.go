package model

import (
	"context"
	"errors"
	"time"

	"github.com/limaJavier/schooltimetable/pkg/sat"

	"go.uber.org/zap"
)

const StrategyPostponed = "postponed"

// isolatedRoomTimetabler solves a model without rooms and assigns them afterwards, slot by slot, through maximum
// bipartite matching
type isolatedRoomTimetabler struct {
	solver  sat.SATSolver
	options Options
}

func NewIsolatedRoomTimetabler(solver sat.SATSolver, options Options) Timetabler {
	return &isolatedRoomTimetabler{
		solver:  solver,
		options: options.withDefaults(),
	}
}

func (timetabler *isolatedRoomTimetabler) Build(ctx context.Context, modelInput ModelInput) (Result, error) {
	start := time.Now()
	options := timetabler.options
	if options.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.TimeLimit)
		defer cancel()
	}

	model := buildModel(modelInput, true, options)

	//** Solve SAT instance, then assign rooms; slots whose lessons cannot share the rooms are excluded and the search
	// starts over
	options.Progress(progressSearch, "search")
	for {
		optimization, err := model.solve(ctx, timetabler.solver)
		if err != nil || optimization.Solution == nil {
			result, err := model.unsolved(err)
			observe(options, StrategyPostponed, result, start, err)
			return result, err
		}

		options.Progress(progressBalance, "rooms")
		lessons := model.scheduled(optimization.Solution)
		var unassignable unassignableError
		if err := roomAssignment(lessons, model.problem, model.evaluator); errors.As(err, &unassignable) {
			options.Logger.Debug("slot excluded", zap.String("reason", unassignable.Error()))
			model.encoder.Add(model.exclude(unassignable))
			continue
		} else if err != nil {
			observe(options, StrategyPostponed, Result{}, start, err)
			return Result{}, err
		}

		status := StatusFeasible
		if optimization.Optimal {
			status = StatusOptimal
		}
		result := model.result(status, model.timetable(lessons), nil)
		observe(options, StrategyPostponed, result, start, nil)
		return result, nil
	}
}

func (timetabler *isolatedRoomTimetabler) Verify(timetable []Lesson, modelInput ModelInput) []Conflict {
	return Verify(timetable, modelInput)
}

func (timetabler *isolatedRoomTimetabler) Encode(modelInput ModelInput) *sat.SAT {
	return buildModel(modelInput, true, timetabler.options).encoder.SAT()
}

// NewTimetabler returns the timetabler of the given room strategy
func NewTimetabler(strategy string, solver sat.SATSolver, options Options) (Timetabler, error) {
	switch strategy {
	case "", StrategyEmbedded:
		return NewEmbeddedRoomTimetabler(solver, options), nil
	case StrategyPostponed:
		return NewIsolatedRoomTimetabler(solver, options), nil
	}
	return nil, errors.New("model: unknown room strategy \"" + strategy + "\"")
}
