package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/limaJavier/schooltimetable/internal/apperrors"
	"github.com/limaJavier/schooltimetable/internal/cache"
	"github.com/limaJavier/schooltimetable/internal/metrics"
	"github.com/limaJavier/schooltimetable/pkg/model"
	"github.com/limaJavier/schooltimetable/pkg/sat"
)

// Strategies lists the room strategies a request may choose
var Strategies = []string{model.StrategyEmbedded, model.StrategyPostponed}

// Cache abstracts the storage of solved timetables.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any) error
}

// SolverFactory returns a fresh solver for every build.
type SolverFactory func() (sat.SATSolver, error)

type Config struct {
	Strategy  string
	TimeLimit time.Duration
	Workers   int
}

// SolveOptions override the service configuration for one request.
type SolveOptions struct {
	Strategy  string
	TimeLimit time.Duration
}

// Solution is a build result together with the lessons it could not place.
type Solution struct {
	model.Result
	Strategy   string            `json:"strategy"`
	Shortfalls []model.Shortfall `json:"shortfalls"`
	Cached     bool              `json:"cached"`
}

// Report is the outcome of checking a timetable against an input.
type Report struct {
	Valid      bool              `json:"valid"`
	Conflicts  []model.Conflict  `json:"conflicts"`
	Shortfalls []model.Shortfall `json:"shortfalls"`
	Hints      []string          `json:"hints,omitempty"`
}

// TimetableService builds and verifies timetables from raw school inputs.
type TimetableService struct {
	solvers SolverFactory
	cache   Cache
	metrics *metrics.Metrics
	cfg     Config
	logger  *zap.Logger
}

func NewTimetableService(solvers SolverFactory, cache Cache, metrics *metrics.Metrics, cfg Config, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Strategy == "" {
		cfg.Strategy = model.StrategyEmbedded
	}
	return &TimetableService{solvers: solvers, cache: cache, metrics: metrics, cfg: cfg, logger: logger}
}

// Solve builds the timetable of a raw input. Infeasible inputs are not errors: the solution carries their hints.
func (s *TimetableService) Solve(ctx context.Context, raw map[string]any, opts SolveOptions) (*Solution, error) {
	input, err := decode(raw)
	if err != nil {
		return nil, err
	}

	strategy := opts.Strategy
	if strategy == "" {
		strategy = s.cfg.Strategy
	}
	if !slices.Contains(Strategies, strategy) {
		return nil, apperrors.Clone(apperrors.ErrValidation, fmt.Sprintf("unknown strategy %q", strategy))
	}

	key, err := cache.Key(input, strategy)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, "cannot digest input")
	}
	if solution, ok := s.cached(ctx, key); ok {
		return solution, nil
	}

	solver, err := s.solvers()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrSolver.Code, apperrors.ErrSolver.Status, "cannot start the SAT solver")
	}
	options := model.Options{
		TimeLimit: s.timeLimit(opts.TimeLimit),
		Workers:   s.cfg.Workers,
		Logger:    s.logger,
	}
	if s.metrics != nil {
		options.Observer = s.metrics
	}
	timetabler, err := model.NewTimetabler(strategy, solver, options)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, apperrors.ErrInternal.Message)
	}

	result, err := timetabler.Build(ctx, input)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrSolver.Code, apperrors.ErrSolver.Status, apperrors.ErrSolver.Message)
	}

	solution := &Solution{Result: result, Strategy: strategy, Shortfalls: []model.Shortfall{}}
	if result.Solved() {
		solution.Shortfalls = model.Shortfalls(result.Timetable, input)
	}

	// Only definitive outcomes are cached
	if s.cache != nil && (result.Status == model.StatusOptimal || result.Status == model.StatusInfeasible) {
		if err := s.cache.Set(ctx, key, solution); err != nil {
			s.logger.Warn("cannot cache timetable", zap.String("key", key), zap.Error(err))
		}
	}
	return solution, nil
}

// Verify checks a timetable against every hard rule of the raw input.
func (s *TimetableService) Verify(ctx context.Context, raw map[string]any, timetable []model.Lesson) (*Report, error) {
	input, err := decode(raw)
	if err != nil {
		return nil, err
	}

	conflicts := model.Verify(timetable, input)
	report := &Report{
		Valid:      len(conflicts) == 0,
		Conflicts:  conflicts,
		Shortfalls: model.Shortfalls(timetable, input),
	}
	if !report.Valid {
		report.Hints = model.Diagnose(input)
	}
	return report, nil
}

func (s *TimetableService) cached(ctx context.Context, key string) (*Solution, bool) {
	if s.cache == nil {
		return nil, false
	}

	var solution Solution
	err := s.cache.Get(ctx, key, &solution)
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("cache lookup failed", zap.String("key", key), zap.Error(err))
	}
	s.metrics.RecordCacheLookup(err == nil)
	if err != nil {
		return nil, false
	}

	solution.Cached = true
	return &solution, true
}

// Requests may shorten the configured time limit, never extend it
func (s *TimetableService) timeLimit(requested time.Duration) time.Duration {
	if requested <= 0 {
		return s.cfg.TimeLimit
	}
	if s.cfg.TimeLimit > 0 {
		return min(requested, s.cfg.TimeLimit)
	}
	return requested
}

func decode(raw map[string]any) (model.ModelInput, error) {
	rawInput, err := model.DecodeRawInput(raw)
	if err != nil {
		return model.ModelInput{}, apperrors.Wrap(err, apperrors.ErrValidation.Code, apperrors.ErrValidation.Status, "malformed school input")
	}
	return model.ProcessRawInput(rawInput), nil
}
