package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/limaJavier/schooltimetable/pkg/model"
	"github.com/limaJavier/schooltimetable/pkg/sat"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit codes follow the SAT competition convention
const (
	exitSolved         = 10
	exitVerifyFailed   = 15
	exitUnsolved       = 20
	outputFileMode     = 0666
	defaultTimeLimit   = 2 * time.Minute
	progressLogPercent = 10
)

var validStrategies = []string{model.StrategyEmbedded, model.StrategyPostponed}

type output struct {
	Status     model.Status              `json:"status"`
	Message    string                    `json:"message"`
	Hints      []string                  `json:"hints,omitempty"`
	Classes    map[string][]model.Lesson `json:"classes"`
	Shortfalls []model.Shortfall         `json:"shortfalls,omitempty"`
	Variables  uint64                    `json:"variables"`
	Clauses    uint64                    `json:"clauses"`
}

func main() {
	// Define arguments
	strategyPtr := flag.String("strategy", model.StrategyEmbedded, `Strategy to build the timetable. Allowed values are:
- "embedded" (rooms are decided by the SAT model, so capacities are guaranteed) and
- "postponed" (rooms are matched after the search, slot by slot), where "embedded" is the default`)
	solverPtr := flag.String("solver", "gini", "SAT-Solver to use. Allowed values are: \"gini\" (in-process) and \"kissat\", where \"gini\" is the default")
	kissatPathPtr := flag.String("kissat-path", "", "Path to the kissat executable; if empty, it's looked up in $PATH")
	filePathPtr := flag.String("file", "", "Path to the input file")
	outFilePathPtr := flag.String("out", "", "Path to the file where the output will be written; if empty, it'll be written into the Standard Output")
	dimacsPtr := flag.String("dimacs", "", "Path to the file where the DIMACS-CNF instance will be written instead of solving it")
	timeLimitPtr := flag.Duration("time-limit", defaultTimeLimit, "Wall-clock budget of the search; the best timetable found is kept when it runs out")
	workersPtr := flag.Int("workers", 0, "Constraint families built concurrently; 0 means one per CPU")
	verbosePtr := flag.Bool("v", false, "Log the build milestones")
	flag.Parse()
	strategy := strings.ToLower(*strategyPtr)
	solverName := strings.ToLower(*solverPtr)
	filePath := *filePathPtr

	// Validate arguments
	if !slices.Contains(validStrategies, strategy) {
		log.Fatalf("%v is not a valid strategy", strategy)
	} else if !slices.Contains(sat.Backends, solverName) {
		log.Fatalf("%v is not a valid solver", solverName)
	} else if filePath == "" {
		log.Fatal("an input file must be specified")
	} else if *timeLimitPtr < 0 {
		log.Fatalf("time-limit must not be negative: %v", *timeLimitPtr)
	}

	logger := newLogger(*verbosePtr)
	defer logger.Sync() //nolint:errcheck

	// Extract input
	input, err := model.InputFromJson(filePath)
	if err != nil {
		log.Fatalf("cannot parse input file: %v", err)
	}

	// Initialize engines
	solver, err := sat.NewSolver(solverName, *kissatPathPtr)
	if err != nil {
		log.Fatal(err)
	}
	timetabler, err := model.NewTimetabler(strategy, solver, model.Options{
		TimeLimit: *timeLimitPtr,
		Workers:   *workersPtr,
		Logger:    logger,
		Progress:  progressLogger(logger),
	})
	if err != nil {
		log.Fatal(err)
	}

	if *dimacsPtr != "" {
		instance := timetabler.Encode(input)
		if err := os.WriteFile(*dimacsPtr, []byte(instance.ToDIMACS()), outputFileMode); err != nil {
			log.Fatalf("an error occurred while writing the DIMACS file: %v", err)
		}
		fmt.Printf("Variables: %v\n", instance.Variables)
		fmt.Printf("Clauses: %v\n", len(instance.Clauses))
		return
	}

	// Build timetable
	result, err := timetabler.Build(context.Background(), input)
	if err != nil {
		log.Fatalf("an error occurred during timetable construction: %v", err)
	}

	exitCode := exitSolved
	if !result.Solved() {
		exitCode = exitUnsolved
	} else if conflicts := timetabler.Verify(result.Timetable, input); len(conflicts) > 0 {
		for _, conflict := range conflicts {
			logger.Error("verification failed", zap.String("rule", conflict.Rule), zap.String("conflict", conflict.Message))
		}
		exitCode = exitVerifyFailed
	}

	write(buildOutput(result, input), *outFilePathPtr)
	fmt.Fprintf(os.Stderr, "Variables: %v\n", result.Variables)
	fmt.Fprintf(os.Stderr, "Clauses: %v\n", result.Clauses)
	logger.Sync() //nolint:errcheck
	os.Exit(exitCode)
}

func buildOutput(result model.Result, input model.ModelInput) output {
	out := output{
		Status:    result.Status,
		Message:   result.Message,
		Hints:     result.Hints,
		Classes:   lo.GroupBy(result.Timetable, func(lesson model.Lesson) string { return lesson.Class }),
		Variables: result.Variables,
		Clauses:   result.Clauses,
	}
	for _, lessons := range out.Classes {
		slices.SortFunc(lessons, compareLessons)
	}
	if result.Solved() {
		out.Shortfalls = model.Shortfalls(result.Timetable, input)
	}
	return out
}

// Orders lessons by day, then hour
func compareLessons(a, b model.Lesson) int {
	dayA, _ := model.ParseDay(a.Day)
	dayB, _ := model.ParseDay(b.Day)
	if dayA != dayB {
		return dayA - dayB
	}
	return a.Hour - b.Hour
}

func write(out output, outFile string) {
	// Marshal output into json
	outputJson, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("an error occurred while building output json: %v", err)
	}

	// Verify outfile is empty, if so then write the results to the Standard Output
	if outFile == "" {
		fmt.Println(string(outputJson))
	} else if err := os.WriteFile(outFile, outputJson, outputFileMode); err != nil {
		log.Fatalf("an error occurred while writing to the output file: %v", err)
	}
}

func newLogger(verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		log.Fatalf("cannot build logger: %v", err)
	}
	return logger
}

// Logs every progress step that crosses another ten percent
func progressLogger(logger *zap.Logger) func(percent int, stage string) {
	last := -progressLogPercent
	return func(percent int, stage string) {
		if percent-last < progressLogPercent && percent != 100 {
			return
		}
		last = percent
		logger.Debug("progress", zap.Int("percent", percent), zap.String("stage", stage))
	}
}
