package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/limaJavier/schooltimetable/pkg/model"
	"github.com/limaJavier/schooltimetable/pkg/sat"

	"github.com/samber/lo"
)

const MB float64 = 1024 * 1024

var (
	strategies = []string{model.StrategyEmbedded, model.StrategyPostponed}
	// Weekly hours of every class; teachers are shared by pairs of classes
	curriculum = []curriculumItem{
		{course: "Math", hours: 5},
		{course: "Language", hours: 4},
		{course: "Science", hours: 6, blockSize: 2},
		{course: "History", hours: 3},
		{course: "PE", hours: 2},
	}
)

type curriculumItem struct {
	course    string
	hours     int
	blockSize int
}

type SchoolMetadata struct {
	Classes  int
	Teachers int
	Rooms    int
	Lessons  int
}

type BenchmarkResult struct {
	Solver    string
	Strategy  string
	School    SchoolMetadata
	Variables uint64
	Clauses   uint64
	Duration  int64
	Memory    float64
	Status    model.Status
}

func main() {
	sizesPtr := flag.String("sizes", "2,4,8", "Comma-separated number of classes of every generated school")
	solversPtr := flag.String("solvers", "gini", "Comma-separated SAT-Solvers to benchmark (gini, kissat)")
	kissatPathPtr := flag.String("kissat-path", "", "Path to the kissat executable; if empty, it's looked up in $PATH")
	timeLimitPtr := flag.Duration("time-limit", time.Minute, "Time limit of every build")
	outPtr := flag.String("out", "benchmark_results.csv", "Path of the CSV report")
	flag.Parse()

	sizes, err := parseSizes(*sizesPtr)
	if err != nil {
		log.Fatal(err)
	}
	solvers := lo.Map(strings.Split(*solversPtr, ","), func(name string, _ int) string { return strings.TrimSpace(name) })

	results := make([]BenchmarkResult, 0, len(sizes)*len(strategies)*len(solvers))
	for _, size := range sizes {
		input, metadata := generateSchool(size)
		for _, strategy := range strategies {
			for _, solverName := range solvers {
				fmt.Printf("Benchmarking school of %v classes with strategy \"%v\" and solver \"%v\"\n", size, strategy, solverName)

				result, err := measure(input, strategy, solverName, *kissatPathPtr, *timeLimitPtr)
				if err != nil {
					log.Fatalf("an error occurred during the benchmark of %v classes using strategy \"%v\", solver \"%v\": %v", size, strategy, solverName, err)
				}
				result.School = metadata
				results = append(results, result)
			}
		}
	}

	file, err := os.Create(*outPtr)
	if err != nil {
		log.Fatalf("cannot create CSV file: %v", err)
	}
	defer file.Close()
	if err := toCsv(file, results); err != nil {
		log.Fatalf("cannot write CSV file: %v", err)
	}
}

func parseSizes(sizes string) ([]int, error) {
	parsed := make([]int, 0)
	for _, size := range strings.Split(sizes, ",") {
		classes, err := strconv.Atoi(strings.TrimSpace(size))
		if err != nil || classes <= 0 {
			return nil, fmt.Errorf("invalid school size %q", size)
		}
		parsed = append(parsed, classes)
	}
	return lo.Uniq(parsed), nil
}

// Generates a school with the given number of classes through the same raw decoding path as user inputs
func generateSchool(classes int) (model.ModelInput, SchoolMetadata) {
	raw := map[string]any{
		"mode":             "room",
		"num_hours":        8,
		"lunch_break_hour": 5,
	}

	classNames := make([]any, 0, classes)
	lessons := make(map[string]any)
	assignments := make(map[string]any)
	teachers := make([]any, 0)
	courses := make([]any, 0, len(curriculum))
	rooms := []any{"Lab", "Gym"}
	roomCourses := map[string]any{"Lab": []any{"Science"}, "Gym": []any{"PE"}}
	roomCapacities := map[string]any{"Lab": 2, "Gym": 2}

	for _, item := range curriculum {
		courses = append(courses, map[string]any{"name": item.course, "block_size": max(item.blockSize, 1)})
	}
	for class := range classes {
		name := fmt.Sprintf("Class %d", class+1)
		classNames = append(classNames, name)

		classLessons := make(map[string]any)
		classAssignments := make(map[string]any)
		for _, item := range curriculum {
			teacher := fmt.Sprintf("%s teacher %d", item.course, class/2+1)
			if class%2 == 0 {
				teachers = append(teachers, map[string]any{"name": teacher, "max_hours_per_day": 6})
			}
			classLessons[item.course] = item.hours
			classAssignments[item.course] = teacher
		}
		lessons[name] = classLessons
		assignments[name] = classAssignments

		room := fmt.Sprintf("Room %d", class+1)
		rooms = append(rooms, room)
		roomCapacities[room] = 1
	}

	raw["classes"] = classNames
	raw["class_lessons"] = lessons
	raw["assignments"] = assignments
	raw["teachers"] = teachers
	raw["courses"] = courses
	raw["rooms"] = rooms
	raw["room_courses"] = roomCourses
	raw["room_capacities"] = roomCapacities

	rawInput, err := model.DecodeRawInput(raw)
	if err != nil {
		log.Fatalf("cannot decode generated school: %v", err)
	}
	input := model.ProcessRawInput(rawInput)

	weekly := lo.SumBy(curriculum, func(item curriculumItem) int { return item.hours })
	return input, SchoolMetadata{
		Classes:  len(input.Classes),
		Teachers: len(input.Teachers),
		Rooms:    len(input.Rooms),
		Lessons:  weekly * classes,
	}
}

func measure(input model.ModelInput, strategy, solverName, kissatPath string, timeLimit time.Duration) (BenchmarkResult, error) {
	solver, err := sat.NewSolver(solverName, kissatPath)
	if err != nil {
		return BenchmarkResult{}, err
	}
	timetabler, err := model.NewTimetabler(strategy, solver, model.Options{TimeLimit: timeLimit})
	if err != nil {
		return BenchmarkResult{}, err
	}

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	start := time.Now()

	result, err := timetabler.Build(context.Background(), input)
	if err != nil {
		return BenchmarkResult{}, err
	}

	duration := time.Since(start)
	runtime.ReadMemStats(&after)

	return BenchmarkResult{
		Solver:    solverName,
		Strategy:  strategy,
		Variables: result.Variables,
		Clauses:   result.Clauses,
		Duration:  duration.Milliseconds(),
		Memory:    float64(after.TotalAlloc-before.TotalAlloc) / MB,
		Status:    result.Status,
	}, nil
}

func toCsv(w io.Writer, results []BenchmarkResult) error {
	writer := csv.NewWriter(w)

	header := []string{"Solver", "Strategy", "Classes", "Teachers", "Rooms", "Lessons", "Variables", "Clauses", "Duration(ms)", "Allocated(MB)", "Status"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, result := range results {
		record := []string{
			result.Solver,
			result.Strategy,
			fmt.Sprintf("%d", result.School.Classes),
			fmt.Sprintf("%d", result.School.Teachers),
			fmt.Sprintf("%d", result.School.Rooms),
			fmt.Sprintf("%d", result.School.Lessons),
			fmt.Sprintf("%d", result.Variables),
			fmt.Sprintf("%d", result.Clauses),
			fmt.Sprintf("%d", result.Duration),
			fmt.Sprintf("%.1f", result.Memory),
			string(result.Status),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
