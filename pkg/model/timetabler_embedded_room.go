package model

import (
	"context"
	"time"

	"github.com/limaJavier/schooltimetable/pkg/sat"

	"go.uber.org/zap"
)

const StrategyEmbedded = "embedded"

// embeddedRoomTimetabler decides rooms inside the model: every lesson variable carries its room
type embeddedRoomTimetabler struct {
	solver  sat.SATSolver
	options Options
}

func NewEmbeddedRoomTimetabler(solver sat.SATSolver, options Options) Timetabler {
	return &embeddedRoomTimetabler{
		solver:  solver,
		options: options.withDefaults(),
	}
}

func (timetabler *embeddedRoomTimetabler) Build(ctx context.Context, modelInput ModelInput) (Result, error) {
	start := time.Now()
	options := timetabler.options
	if options.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.TimeLimit)
		defer cancel()
	}

	model := buildModel(modelInput, false, options)

	//** Solve SAT instance
	options.Progress(progressSearch, "search")
	optimization, err := model.solve(ctx, timetabler.solver)
	if err != nil || optimization.Solution == nil { // No timetable at all
		result, err := model.unsolved(err)
		observe(options, StrategyEmbedded, result, start, err)
		return result, err
	}

	//** Balance room loads
	if modelInput.Config.Mode == ModeRoom {
		options.Progress(progressBalance, "balance")
		if optimization, err = model.balance(ctx, timetabler.solver, optimization); err != nil {
			observe(options, StrategyEmbedded, Result{}, start, err)
			return Result{}, err
		}
	}

	status := StatusFeasible
	if optimization.Optimal {
		status = StatusOptimal
	}
	result := model.result(status, model.timetable(model.scheduled(optimization.Solution)), nil)
	observe(options, StrategyEmbedded, result, start, nil)
	return result, nil
}

func (timetabler *embeddedRoomTimetabler) Verify(timetable []Lesson, modelInput ModelInput) []Conflict {
	return Verify(timetable, modelInput)
}

func (timetabler *embeddedRoomTimetabler) Encode(modelInput ModelInput) *sat.SAT {
	return buildModel(modelInput, false, timetabler.options).encoder.SAT()
}

func observe(options Options, strategy string, result Result, start time.Time, err error) {
	duration := time.Since(start)
	options.Progress(progressDone, "done")
	if err != nil {
		options.Logger.Error("cannot build timetable", zap.String("strategy", strategy), zap.Error(err))
		return
	}

	options.Logger.Info("timetable built",
		zap.String("strategy", strategy),
		zap.String("status", string(result.Status)),
		zap.Int("lessons", len(result.Timetable)),
		zap.Uint64("variables", result.Variables),
		zap.Uint64("clauses", result.Clauses),
		zap.Duration("duration", duration),
	)
	if options.Observer != nil {
		options.Observer.ObserveBuild(strategy, result.Status, duration, result.Variables, result.Clauses)
	}
}
