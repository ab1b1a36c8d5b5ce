package model

import (
	"context"
	"runtime"
	"time"

	"github.com/limaJavier/schooltimetable/pkg/sat"

	"go.uber.org/zap"
)

type Timetabler interface {
	// Builds and solves the model of the input. Infeasibility is not an error: it is reported through the result's
	// status, message and hints
	Build(ctx context.Context, modelInput ModelInput) (Result, error)

	// Returns the hard-rule violations of the timetable, none when it is valid
	Verify(timetable []Lesson, modelInput ModelInput) []Conflict

	// Returns the SAT instance of the input before any optimization
	Encode(modelInput ModelInput) *sat.SAT
}

type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusFeasible   Status = "feasible"
	StatusInfeasible Status = "infeasible"
	StatusTimeout    Status = "timeout"
)

const (
	MessageSolved   = "Timetable found"
	MessageUnsolved = "No timetable found, relax the constraints"
	MessageTimeout  = "No timetable found within the time limit"
)

// Lesson is a scheduled hour of a class
type Lesson struct {
	Class   string `json:"class"`
	Course  string `json:"course"`
	Teacher string `json:"teacher"`
	Room    string `json:"room"`
	Day     string `json:"day"`
	Hour    int    `json:"hour"`
}

type Result struct {
	Timetable []Lesson `json:"timetable"`
	Status    Status   `json:"status"`
	Message   string   `json:"message"`
	Hints     []string `json:"hints,omitempty"`
	Variables uint64   `json:"variables"`
	Clauses   uint64   `json:"clauses"`
}

// Solved reports whether the result carries a timetable
func (result Result) Solved() bool {
	return result.Status == StatusOptimal || result.Status == StatusFeasible
}

// Observer receives the outcome of every build
type Observer interface {
	ObserveBuild(strategy string, status Status, duration time.Duration, variables, clauses uint64)
}

type Options struct {
	// Wall-clock budget of the search; the best timetable found is returned when it runs out. Zero means no limit
	TimeLimit time.Duration
	// Upper bound on the constraint families built concurrently
	Workers int
	// Called at fixed milestones with a completion percentage
	Progress func(percent int, stage string)
	Logger   *zap.Logger
	Observer Observer
}

func (options Options) withDefaults() Options {
	if options.Workers <= 0 {
		options.Workers = runtime.NumCPU()
	}
	if options.Progress == nil {
		options.Progress = func(int, string) {}
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	return options
}
