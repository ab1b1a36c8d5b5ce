package model

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/limaJavier/schooltimetable/pkg/sat"

	"github.com/onsi/gomega/matchers/support/goraph/bipartitegraph"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Progress milestones
const (
	progressVariables   = 5
	progressConstraints = 10
	progressSearch      = 60
	progressBalance     = 85
	progressDone        = 100
)

type unassignableError struct {
	day, hour int
	entries   []int
	lessons   []string
}

func (err unassignableError) Error() string {
	return fmt.Sprintf("rooms cannot be assigned on %v at hour %v to: %v", Days[err.day], err.hour+1, strings.Join(err.lessons, ", "))
}

// scheduled is a true lesson variable; room indexes the problem's rooms, -1 until rooms are assigned
type scheduled struct {
	entry, room, day, hour int
}

// satModel is the encoded model of a problem
type satModel struct {
	problem   *problem
	indexer   indexer
	evaluator predicateEvaluator
	encoder   *sat.Encoder
}

func buildModel(modelInput ModelInput, collapsed bool, options Options) satModel {
	//** Initialize dependencies
	problem := preprocessInput(modelInput)
	indexer := newIndexer(problem, collapsed)
	evaluator := newPredicateEvaluator(problem)
	options.Progress(progressVariables, "variables")
	options.Logger.Debug("variables created",
		zap.Int("entries", len(problem.entries)),
		zap.Uint64("lessons", indexer.Lessons()),
		zap.Uint64("variables", indexer.Variables()),
	)

	//** Build SAT instance
	state := constraintState{
		problem:   problem,
		evaluator: evaluator,
		indexer:   indexer,
		collapsed: collapsed,
		days:      len(Days),
		hours:     problem.config.HoursPerDay,
	}
	encoder := buildSat(indexer.Variables(), constraintFamilies, state, options)
	options.Logger.Debug("constraints encoded",
		zap.Uint64("variables", encoder.SAT().Variables),
		zap.Int("clauses", len(encoder.SAT().Clauses)),
	)

	return satModel{
		problem:   problem,
		indexer:   indexer,
		evaluator: evaluator,
		encoder:   encoder,
	}
}

func buildSat(variables uint64, constraints []func(state constraintState) []sat.Constraint, state constraintState, options Options) *sat.Encoder {
	type generated struct {
		family      int
		constraints []sat.Constraint
	}

	families := make([][]sat.Constraint, len(constraints))
	constraintsChannel := make(chan generated) // Channel to collect constraints
	workers := make(chan struct{}, max(1, options.Workers))

	// Execute constraints functions on different goroutines to improve performance
	for i, constraint := range constraints {
		go func() {
			workers <- struct{}{}
			defer func() { <-workers }()
			constraintsChannel <- generated{family: i, constraints: constraint(state)}
		}()
	}

	// Collect generated constraints
	for collected := range len(constraints) {
		generated := <-constraintsChannel
		families[generated.family] = generated.constraints

		percent := progressConstraints + (progressSearch-progressConstraints)*(collected+1)/len(constraints)
		options.Progress(percent, fmt.Sprintf("constraints %v/%v", collected+1, len(constraints)))
	}

	// Encode in a fixed order so that the same input always yields the same instance
	encoder := sat.NewEncoder(variables)
	for _, family := range families {
		for _, constraint := range family {
			encoder.Add(constraint)
		}
	}
	return encoder
}

// Searches for the timetable with the most lessons. Only the lessons of over-subscribed classes can vary, so they form
// the objective
func (model satModel) solve(ctx context.Context, solver sat.SATSolver) (sat.Optimization, error) {
	objective, upperBound := model.objective()
	if len(objective) == 0 {
		solution, err := solver.Solve(ctx, model.encoder.SAT(), nil)
		if err != nil {
			return sat.Optimization{}, err
		}
		return sat.Optimization{Solution: solution, Optimal: true}, nil
	}
	return sat.Maximize(ctx, solver, model.encoder, objective, upperBound, nil)
}

// Lessons of over-subscribed classes and the most of them a timetable can hold
func (model satModel) objective() ([]int64, int) {
	problem := model.problem
	objective := make([]int64, 0)
	firsts, seconds := make([]int, len(problem.classes)), make([]int, len(problem.classes))

	for i, entry := range problem.entries {
		lessons := model.indexer.EntryLessons(i)
		if !problem.relaxed[entry.class] || len(lessons) == 0 {
			continue
		}
		objective = append(objective, lessons...)

		reachable := min(entry.hours, len(Days)*min(entry.dailyLimit(), problem.config.DailySlots()))
		if entry.second {
			seconds[entry.class] += reachable
		} else {
			firsts[entry.class] += reachable
		}
	}

	upperBound := 0
	for class := range problem.classes {
		upperBound += min(firsts[class], problem.config.WeeklySlots()) + seconds[class]
	}
	return objective, upperBound
}

// Lowers the largest weekly room load without losing lessons
func (model satModel) balance(ctx context.Context, solver sat.SATSolver, optimization sat.Optimization) (sat.Optimization, error) {
	groups := make([][]int64, 0, len(model.problem.rooms))
	for room := range model.problem.rooms {
		if lessons := model.indexer.RoomLessons(room); model.evaluator.Capacitated(room) && len(lessons) > 0 {
			groups = append(groups, lessons)
		}
	}
	if len(groups) < 2 {
		return optimization, nil
	}

	total := lo.SumBy(groups, func(group []int64) int { return optimization.Solution.Count(group) })
	lowerBound := (total + len(groups) - 1) / len(groups)

	balanced, err := sat.MinimizeMax(ctx, solver, model.encoder, groups, lowerBound, optimization.Solution, optimization.Keep)
	if err != nil {
		return optimization, err
	}
	balanced.Optimal = balanced.Optimal && optimization.Optimal
	return balanced, nil
}

func (model satModel) scheduled(solution sat.SATSolution) []scheduled {
	lessons := make([]scheduled, 0)
	for variable := int64(1); variable <= int64(model.indexer.Lessons()); variable++ {
		if !solution.Value(variable) {
			continue
		}
		entry, room, day, hour := model.indexer.Attributes(variable)
		if room >= 0 {
			room = model.problem.entries[entry].rooms[room]
		}
		lessons = append(lessons, scheduled{entry: entry, room: room, day: day, hour: hour})
	}
	return lessons
}

func (model satModel) timetable(lessons []scheduled) []Lesson {
	problem := model.problem
	return lo.Map(lessons, func(lesson scheduled, _ int) Lesson {
		entry := problem.entries[lesson.entry]
		return Lesson{
			Class:   problem.classes[entry.class].Name,
			Course:  entry.course,
			Teacher: problem.teachers[entry.teacher].Name,
			Room:    problem.rooms[lesson.room].Name,
			Day:     Days[lesson.day],
			Hour:    lesson.hour + 1,
		}
	})
}

func (model satModel) result(status Status, timetable []Lesson, hints []string) Result {
	result := Result{
		Timetable: timetable,
		Status:    status,
		Hints:     hints,
		Variables: model.encoder.SAT().Variables,
		Clauses:   uint64(len(model.encoder.SAT().Clauses)),
	}
	switch status {
	case StatusOptimal, StatusFeasible:
		result.Message = MessageSolved
	case StatusTimeout:
		result.Message = MessageTimeout
	default:
		result.Message = MessageUnsolved
	}
	if result.Timetable == nil {
		result.Timetable = []Lesson{}
	}
	return result
}

// Result of a search that found no timetable
func (model satModel) unsolved(err error) (Result, error) {
	hints := diagnose(model.problem, model.evaluator)
	if errors.Is(err, sat.ErrInterrupted) {
		return model.result(StatusTimeout, nil, hints), nil
	} else if err != nil {
		return Result{}, err
	}
	return model.result(StatusInfeasible, nil, hints), nil
}

// Clause keeping the lessons of an unassignable slot from being taught together again
func (model satModel) exclude(err unassignableError) sat.Constraint {
	return sat.Clause(lo.Map(err.entries, func(entry int, _ int) int64 {
		return -model.indexer.Index(entry, 0, err.day, err.hour)
	})...)
}

// Assigns a room to every lesson of a collapsed model, slot by slot. Rooms are shared freely unless their capacity is
// enforced, in which case each room hosts at most its capacity in lessons per slot
func roomAssignment(lessons []scheduled, problem *problem, evaluator predicateEvaluator) error {
	slots := lo.GroupBy(lo.Range(len(lessons)), func(i int) [2]int { return [2]int{lessons[i].day, lessons[i].hour} })

	keys := lo.Keys(slots)
	slices.SortFunc(keys, compareSlots)

	for _, key := range keys {
		constrained := make([]int, 0, len(slots[key]))
		for _, lesson := range slots[key] {
			entry := problem.entries[lessons[lesson].entry]
			free := lo.Filter(entry.rooms, func(room int, _ int) bool { return !evaluator.Capacitated(room) })
			if len(free) > 0 {
				lessons[lesson].room = free[0]
			} else {
				constrained = append(constrained, lesson)
			}
		}
		if len(constrained) == 0 {
			continue
		}

		assignments, err := assignRooms(constrained, lessons, problem)
		var unassignable unassignableError
		if errors.As(err, &unassignable) {
			return unassignableError{
				day:     key[0],
				hour:    key[1],
				entries: lo.Map(constrained, func(lesson int, _ int) int { return lessons[lesson].entry }),
				lessons: lo.Map(constrained, func(lesson int, _ int) string {
					entry := problem.entries[lessons[lesson].entry]
					return fmt.Sprintf("%v~%v", problem.classes[entry.class].Name, entry.course)
				}),
			}
		} else if err != nil {
			return err
		}

		for lesson, room := range assignments {
			lessons[lesson].room = room
		}
	}
	return nil
}

func compareSlots(a, b [2]int) int {
	if a[0] != b[0] {
		return a[0] - b[0]
	}
	return a[1] - b[1]
}

// Matches lessons of the same slot with copies of their eligible rooms, one copy per unit of capacity
func assignRooms(constrained []int, lessons []scheduled, problem *problem) (map[int]int, error) {
	copies := make([]int, 0)
	for _, room := range lo.Uniq(lo.FlatMap(constrained, func(lesson int, _ int) []int {
		return problem.entries[lessons[lesson].entry].rooms
	})) {
		for range problem.rooms[room].Capacity {
			copies = append(copies, room)
		}
	}

	// Build neighbors predicate based on eligibility
	neighbors := func(lessonAny any, copyAny any) (bool, error) {
		lesson, room := lessonAny.(int), copies[copyAny.(int)]
		return slices.Contains(problem.entries[lessons[lesson].entry].rooms, room), nil
	}

	// Transform lessons and room copies to slices of any
	lessonsAny := lo.Map(constrained, func(lesson int, _ int) any { return lesson })
	copiesAny := lo.Map(lo.Range(len(copies)), func(i int, _ int) any { return i })

	graph, err := bipartitegraph.NewBipartiteGraph(lessonsAny, copiesAny, neighbors)
	if err != nil {
		return nil, err
	}

	matching := graph.LargestMatching()

	// Check the matching is a maximum one
	if len(matching) < len(constrained) {
		return nil, unassignableError{}
	}

	assignments := make(map[int]int, len(constrained))
	for _, edge := range matching {
		lessonIndex, copyIndex := edge.Node1, edge.Node2-len(constrained)
		assignments[constrained[lessonIndex]] = copies[copyIndex]
	}
	return assignments, nil
}
