package model

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/limaJavier/schooltimetable/pkg/sat"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeLimit = time.Minute

func timetablers() map[string]func() Timetabler {
	options := Options{TimeLimit: testTimeLimit, Workers: 4}
	return map[string]func() Timetabler{
		StrategyEmbedded:  func() Timetabler { return NewEmbeddedRoomTimetabler(sat.NewGiniSolver(), options) },
		StrategyPostponed: func() Timetabler { return NewIsolatedRoomTimetabler(sat.NewGiniSolver(), options) },
	}
}

// Single class school with one teacher per course
func singleClass(config Config, lessons map[string]int, teachers ...Teacher) ModelInput {
	assignments := make(map[string]string)
	courses := make([]Course, 0)
	for i, course := range lo.Keys(lessons) {
		assignments[course] = teachers[i%len(teachers)].Name
		courses = append(courses, Course{Name: course, MaxDailyHours: DefaultCourseDailyMax, BlockSize: 1})
	}
	return ModelInput{
		Teachers: teachers,
		Courses:  courses,
		Classes:  []Class{{Name: "9A", Lessons: lessons, Assignments: assignments}},
		Config:   config,
	}
}

func defaultConfig() Config {
	return Config{Mode: ModeClass, HoursPerDay: 8, DutyDayReduction: DefaultDutyDayReduction, MinDailyHours: DefaultMinDailyHours}
}

func build(t *testing.T, timetabler Timetabler, input ModelInput) Result {
	t.Helper()
	result, err := timetabler.Build(context.Background(), input)
	require.NoError(t, err)
	return result
}

func solvedExecution(t *testing.T, timetabler Timetabler, input ModelInput) Result {
	t.Helper()
	result := build(t, timetabler, input)
	require.True(t, result.Solved(), "status %v, hints %v", result.Status, result.Hints)
	assert.Equal(t, MessageSolved, result.Message)
	assert.Empty(t, timetabler.Verify(result.Timetable, input))
	assertNoDoubleBooking(t, result.Timetable, input)
	return result
}

func assertNoDoubleBooking(t *testing.T, timetable []Lesson, input ModelInput) {
	t.Helper()
	seconds := make(map[[2]string]bool)
	for _, class := range input.Classes {
		for _, pair := range class.Simultaneous {
			seconds[[2]string{class.Name, pair[1]}] = true
		}
	}

	teacherSlots, classSlots := make(map[string]int), make(map[string]int)
	for _, lesson := range timetable {
		slot := lesson.Day + "/" + string(rune('0'+lesson.Hour))
		teacherSlots[lesson.Teacher+"@"+slot]++
		if !seconds[[2]string{lesson.Class, lesson.Course}] {
			classSlots[lesson.Class+"@"+slot]++
		}
	}
	for key, count := range teacherSlots {
		assert.LessOrEqual(t, count, 1, "teacher slot %v", key)
	}
	for key, count := range classSlots {
		assert.LessOrEqual(t, count, 1, "class slot %v", key)
	}
}

func lessonsOf(timetable []Lesson, course string) []Lesson {
	return lo.Filter(timetable, func(lesson Lesson, _ int) bool { return lesson.Course == course })
}

func TestTimetablers(t *testing.T) {
	for strategy, newTimetabler := range timetablers() {
		t.Run(strategy, func(t *testing.T) {
			t.Run("Four hours of Math", func(t *testing.T) {
				input := singleClass(defaultConfig(), map[string]int{"Math": 4}, Teacher{Name: "Ada", MaxHoursPerDay: 8})

				result := solvedExecution(t, newTimetabler(), input)

				assert.Equal(t, StatusOptimal, result.Status)
				require.Len(t, result.Timetable, 4)
				slots := lo.Uniq(lo.Map(result.Timetable, func(lesson Lesson, _ int) [2]any { return [2]any{lesson.Day, lesson.Hour} }))
				assert.Len(t, slots, 4)
				for _, lesson := range result.Timetable {
					assert.Equal(t, Lesson{Class: "9A", Course: "Math", Teacher: "Ada", Room: DefaultRoomName, Day: lesson.Day, Hour: lesson.Hour}, lesson)
				}
			})

			t.Run("Teacher daily limit spreads the week", func(t *testing.T) {
				input := singleClass(defaultConfig(), map[string]int{"Math": 10}, Teacher{Name: "Ada", MaxHoursPerDay: 2})

				result := solvedExecution(t, newTimetabler(), input)

				require.Len(t, result.Timetable, 10)
				perDay := lo.CountValues(lo.Map(result.Timetable, func(lesson Lesson, _ int) string { return lesson.Day }))
				assert.Len(t, perDay, 5)
				for day, count := range perDay {
					assert.Equal(t, 2, count, day)
				}
			})

			t.Run("Lunch break", func(t *testing.T) {
				config := defaultConfig()
				config.LunchHour = 4
				input := singleClass(config, map[string]int{"Math": 8, "Art": 8, "History": 8, "Music": 6},
					Teacher{Name: "Ada", MaxHoursPerDay: 8}, Teacher{Name: "Alan", MaxHoursPerDay: 8},
					Teacher{Name: "Grace", MaxHoursPerDay: 8}, Teacher{Name: "Edsger", MaxHoursPerDay: 8},
				)

				result := solvedExecution(t, newTimetabler(), input)

				assert.Len(t, result.Timetable, 30)
				for _, lesson := range result.Timetable {
					assert.NotEqual(t, 4, lesson.Hour)
				}
			})

			t.Run("Lunch hour outside the day", func(t *testing.T) {
				for _, lunch := range []int{9, -1} {
					config := defaultConfig()
					config.LunchHour = lunch
					input := singleClass(config, map[string]int{"Math": 4}, Teacher{Name: "Ada", MaxHoursPerDay: 8})

					result := solvedExecution(t, newTimetabler(), input)

					assert.Equal(t, StatusOptimal, result.Status, lunch)
					assert.Len(t, result.Timetable, 4, lunch)
				}
			})

			t.Run("Over-subscribed class", func(t *testing.T) {
				input := singleClass(defaultConfig(), map[string]int{"Math": 9, "Art": 9, "History": 9, "Music": 9, "Biology": 9},
					Teacher{Name: "Ada", MaxHoursPerDay: 8}, Teacher{Name: "Alan", MaxHoursPerDay: 8},
					Teacher{Name: "Grace", MaxHoursPerDay: 8}, Teacher{Name: "Edsger", MaxHoursPerDay: 8},
					Teacher{Name: "Barbara", MaxHoursPerDay: 8},
				)

				result := solvedExecution(t, newTimetabler(), input)

				assert.Equal(t, StatusOptimal, result.Status)
				assert.Len(t, result.Timetable, 40)
				shortfalls := Shortfalls(result.Timetable, input)
				assert.Equal(t, 5, lo.SumBy(shortfalls, func(shortfall Shortfall) int { return shortfall.Desired - shortfall.Scheduled }))
			})

			t.Run("Block size", func(t *testing.T) {
				input := singleClass(defaultConfig(), map[string]int{"Lab": 4}, Teacher{Name: "Marie", MaxHoursPerDay: 8})
				input.Courses[0].BlockSize = 2

				result := solvedExecution(t, newTimetabler(), input)

				require.Len(t, result.Timetable, 4)
				byDay := lo.GroupBy(result.Timetable, func(lesson Lesson) string { return lesson.Day })
				assert.Len(t, byDay, 2)
				for day, lessons := range byDay {
					require.Len(t, lessons, 2, day)
					hours := lo.Map(lessons, func(lesson Lesson, _ int) int { return lesson.Hour })
					assert.Equal(t, 1, lo.Max(hours)-lo.Min(hours), day)
				}
			})

			t.Run("Day off and unavailable hours", func(t *testing.T) {
				ada := Teacher{Name: "Ada", MaxHoursPerDay: 8, UnavailableDays: []int{0}, UnavailableSlots: [][2]int{{1, 1}, {1, 2}}}
				input := singleClass(defaultConfig(), map[string]int{"Math": 6}, ada)

				result := solvedExecution(t, newTimetabler(), input)

				require.Len(t, result.Timetable, 6)
				for _, lesson := range result.Timetable {
					assert.NotEqual(t, "Monday", lesson.Day)
					assert.False(t, lesson.Day == "Tuesday" && lesson.Hour <= 2)
				}
			})

			t.Run("Preference and duty day", func(t *testing.T) {
				config := defaultConfig()
				config.LunchHour = 5
				ada := Teacher{Name: "Ada", MaxHoursPerDay: 3, Preference: PreferenceAfternoon, DutyDays: []int{2}}
				input := singleClass(config, map[string]int{"Math": 4, "Art": 4}, ada)
				input.Courses[0].MaxDailyHours, input.Courses[1].MaxDailyHours = 3, 3

				result := solvedExecution(t, newTimetabler(), input)

				require.Len(t, result.Timetable, 8)
				for _, lesson := range result.Timetable {
					assert.Greater(t, lesson.Hour, 5)
				}
				assert.LessOrEqual(t, len(lo.Filter(result.Timetable, func(lesson Lesson, _ int) bool { return lesson.Day == "Wednesday" })), 1)
			})

			t.Run("Simultaneous pair", func(t *testing.T) {
				input := ModelInput{
					Teachers: []Teacher{{Name: "Alan", MaxHoursPerDay: 8}, {Name: "Linus", MaxHoursPerDay: 8}, {Name: "Ada", MaxHoursPerDay: 8}},
					Courses:  []Course{{Name: "PE", MaxDailyHours: 2, BlockSize: 1}, {Name: "Math", MaxDailyHours: 2, BlockSize: 1}},
					Classes: []Class{{
						Name:         "9A",
						Lessons:      map[string]int{"PE (Boys)": 2, "PE (Girls)": 2, "Math": 4},
						Assignments:  map[string]string{"PE (Boys)": "Alan", "PE (Girls)": "Linus", "Math": "Ada"},
						Simultaneous: [][2]string{{"PE (Boys)", "PE (Girls)"}},
					}},
					Config: defaultConfig(),
				}

				result := solvedExecution(t, newTimetabler(), input)

				boys, girls := lessonsOf(result.Timetable, "PE (Boys)"), lessonsOf(result.Timetable, "PE (Girls)")
				require.Len(t, boys, 2)
				slot := func(lesson Lesson, _ int) [2]any { return [2]any{lesson.Day, lesson.Hour} }
				assert.ElementsMatch(t, lo.Map(boys, slot), lo.Map(girls, slot))
				assert.Empty(t, lo.Intersect(lo.Map(boys, slot), lo.Map(lessonsOf(result.Timetable, "Math"), slot)))
			})

			t.Run("Sample school", func(t *testing.T) {
				input, err := InputFromJson(schoolFile)
				require.NoError(t, err)

				result := solvedExecution(t, newTimetabler(), input)

				assert.Len(t, result.Timetable, 4+4+2+2+3+4+3)
				assert.Empty(t, lessonsOf(result.Timetable, "Art"))
				for _, lesson := range lessonsOf(result.Timetable, "Science") {
					assert.Equal(t, "Lab", lesson.Room)
					assert.LessOrEqual(t, lesson.Hour, 3)
				}
				for _, lesson := range result.Timetable {
					assert.Contains(t, AllowedRooms(input, lesson.Course, lesson.Teacher), lesson.Room)
				}
				for _, lesson := range lessonsOf(result.Timetable, "Math") {
					assert.NotEqual(t, "Monday", lesson.Day)
					assert.NotEqual(t, "Gym", lesson.Room)
				}
				assert.Len(t, Shortfalls(result.Timetable, input), 0)
			})

			t.Run("Infeasible teacher", func(t *testing.T) {
				ada := Teacher{Name: "Ada", MaxHoursPerDay: 8, UnavailableDays: []int{0, 1, 2, 3, 4}}
				input := singleClass(defaultConfig(), map[string]int{"Math": 2}, ada)

				result := build(t, newTimetabler(), input)

				assert.Equal(t, StatusInfeasible, result.Status)
				assert.Equal(t, MessageUnsolved, result.Message)
				assert.Empty(t, result.Timetable)
				require.NotEmpty(t, result.Hints)
				assert.Contains(t, result.Hints[0], "Ada")
				assert.Contains(t, result.Hints[0], "remove a day off")
			})

			t.Run("Cancelled search", func(t *testing.T) {
				input := singleClass(defaultConfig(), map[string]int{"Math": 4}, Teacher{Name: "Ada", MaxHoursPerDay: 8})
				ctx, cancel := context.WithCancel(context.Background())
				cancel()

				result, err := newTimetabler().Build(ctx, input)

				require.NoError(t, err)
				assert.Equal(t, StatusTimeout, result.Status)
				assert.Equal(t, MessageTimeout, result.Message)
				assert.Empty(t, result.Timetable)
			})
		})
	}
}

func TestRoomMode(t *testing.T) {
	teachers := []Teacher{{Name: "Ada", MaxHoursPerDay: 8}, {Name: "Alan", MaxHoursPerDay: 8}, {Name: "Grace", MaxHoursPerDay: 8}}
	classes := func(names ...string) []Class {
		return lo.Map(names, func(name string, i int) Class {
			return Class{Name: name, Lessons: map[string]int{"Math": 4}, Assignments: map[string]string{"Math": teachers[i].Name}}
		})
	}
	config := defaultConfig()
	config.Mode = ModeRoom

	t.Run("Capacity", func(t *testing.T) {
		input := ModelInput{
			Teachers: teachers,
			Classes:  classes("9A", "9B", "9C"),
			Rooms:    []Room{{Name: "R1", Capacity: 1}},
			Config:   config,
		}

		result := solvedExecution(t, NewEmbeddedRoomTimetabler(sat.NewGiniSolver(), Options{TimeLimit: testTimeLimit}), input)

		require.Len(t, result.Timetable, 12)
		slots := lo.CountValues(lo.Map(result.Timetable, func(lesson Lesson, _ int) [2]any { return [2]any{lesson.Day, lesson.Hour} }))
		for slot, count := range slots {
			assert.Equal(t, 1, count, slot)
		}
	})

	t.Run("Balanced rooms", func(t *testing.T) {
		input := ModelInput{
			Teachers: teachers,
			Classes:  classes("9A", "9B", "9C"),
			Rooms:    []Room{{Name: "R1", Capacity: 2}, {Name: "R2", Capacity: 2}},
			Config:   config,
		}

		result := solvedExecution(t, NewEmbeddedRoomTimetabler(sat.NewGiniSolver(), Options{TimeLimit: testTimeLimit}), input)

		assert.Equal(t, StatusOptimal, result.Status)
		loads := lo.CountValues(lo.Map(result.Timetable, func(lesson Lesson, _ int) string { return lesson.Room }))
		assert.Equal(t, map[string]int{"R1": 6, "R2": 6}, loads)
	})

	t.Run("Postponed assignment", func(t *testing.T) {
		input := ModelInput{
			Teachers: teachers,
			Classes:  classes("9A", "9B"),
			Rooms:    []Room{{Name: "R1", Capacity: 1}, {Name: "R2", Capacity: 1}},
			Config:   config,
		}

		result := solvedExecution(t, NewIsolatedRoomTimetabler(sat.NewGiniSolver(), Options{TimeLimit: testTimeLimit}), input)

		assert.Len(t, result.Timetable, 8)
	})

	t.Run("Postponed assignment into a single room", func(t *testing.T) {
		input := ModelInput{
			Teachers: teachers,
			Classes:  classes("9A", "9B", "9C"),
			Rooms:    []Room{{Name: "R1", Capacity: 1}},
			Config:   config,
		}

		result := solvedExecution(t, NewIsolatedRoomTimetabler(sat.NewGiniSolver(), Options{TimeLimit: testTimeLimit}), input)

		assert.Equal(t, StatusOptimal, result.Status)
		require.Len(t, result.Timetable, 12)
		slots := lo.CountValues(lo.Map(result.Timetable, func(lesson Lesson, _ int) [2]any { return [2]any{lesson.Day, lesson.Hour} }))
		for slot, count := range slots {
			assert.Equal(t, 1, count, slot)
		}
	})

	t.Run("Postponed assignment into overlapping rooms", func(t *testing.T) {
		input := labSchool(config, 24)

		for strategy, timetabler := range timetablers() {
			t.Run(strategy, func(t *testing.T) {
				result := solvedExecution(t, timetabler(), input)

				assert.Equal(t, StatusOptimal, result.Status)
				assert.Len(t, result.Timetable, 96)
			})
		}
	})

	t.Run("Postponed assignment without enough rooms", func(t *testing.T) {
		input := ModelInput{
			Teachers: teachers,
			Classes: []Class{
				{Name: "9A", Lessons: map[string]int{"Math": 40}, Assignments: map[string]string{"Math": "Ada"}},
				{Name: "9B", Lessons: map[string]int{"Math": 40}, Assignments: map[string]string{"Math": "Alan"}},
			},
			Courses: []Course{{Name: "Math", MaxDailyHours: 8, BlockSize: 1}},
			Rooms:   []Room{{Name: "R1", Capacity: 1}},
			Config:  config,
		}

		postponed := build(t, NewIsolatedRoomTimetabler(sat.NewGiniSolver(), Options{TimeLimit: testTimeLimit}), input)
		embedded := build(t, NewEmbeddedRoomTimetabler(sat.NewGiniSolver(), Options{TimeLimit: testTimeLimit}), input)

		assert.Equal(t, StatusInfeasible, postponed.Status)
		assert.Empty(t, postponed.Timetable)
		assert.Equal(t, embedded.Status, postponed.Status)
		assert.Equal(t, Diagnose(input), postponed.Hints)
	})
}

// Four classes sharing three labs, each pair of courses sharing one of them, so at most three classes fit in a slot
func labSchool(config Config, hours int) ModelInput {
	courses := []string{"Physics", "Physics", "Chemistry", "Biology"}
	input := ModelInput{
		Courses: []Course{
			{Name: "Physics", MaxDailyHours: 8, BlockSize: 1},
			{Name: "Chemistry", MaxDailyHours: 8, BlockSize: 1},
			{Name: "Biology", MaxDailyHours: 8, BlockSize: 1},
		},
		Rooms: []Room{
			{Name: "Lab A", Capacity: 1, Courses: []string{"Physics", "Biology"}},
			{Name: "Lab B", Capacity: 1, Courses: []string{"Physics", "Chemistry"}},
			{Name: "Lab C", Capacity: 1, Courses: []string{"Chemistry", "Biology"}},
		},
		Config: config,
	}
	for i, course := range courses {
		teacher := fmt.Sprintf("Teacher %d", i+1)
		input.Teachers = append(input.Teachers, Teacher{Name: teacher, MaxHoursPerDay: 8})
		input.Classes = append(input.Classes, Class{
			Name:        fmt.Sprintf("10%c", 'A'+i),
			Lessons:     map[string]int{course: hours},
			Assignments: map[string]string{course: teacher},
		})
	}
	return input
}

func TestRoomAssignmentExcludesSlot(t *testing.T) {
	config := defaultConfig()
	config.Mode = ModeRoom
	model := buildModel(labSchool(config, 4), true, Options{}.withDefaults())
	lessons := lo.Map(lo.Range(len(model.problem.entries)), func(entry int, _ int) scheduled {
		return scheduled{entry: entry, room: -1, day: 2, hour: 3}
	})

	err := roomAssignment(lessons, model.problem, model.evaluator)

	var unassignable unassignableError
	require.ErrorAs(t, err, &unassignable)
	assert.Contains(t, unassignable.Error(), "rooms cannot be assigned on Wednesday at hour 4")
	expected := lo.Map(lo.Range(len(model.problem.entries)), func(entry int, _ int) int64 {
		return -model.indexer.Index(entry, 0, 2, 3)
	})
	assert.ElementsMatch(t, expected, model.exclude(unassignable).Literals)
	assert.NotContains(t, expected, int64(0))

	// Any three of the four classes can share the slot
	require.NoError(t, roomAssignment(lessons[1:], model.problem, model.evaluator))
	assert.True(t, lo.EveryBy(lessons[1:], func(lesson scheduled) bool { return lesson.room >= 0 }))
}

func TestBuildReportsProgress(t *testing.T) {
	percents, stages := make([]int, 0), make([]string, 0)
	options := Options{
		Progress: func(percent int, stage string) {
			percents = append(percents, percent)
			stages = append(stages, stage)
		},
	}
	input := singleClass(defaultConfig(), map[string]int{"Math": 4}, Teacher{Name: "Ada", MaxHoursPerDay: 8})

	_, err := NewEmbeddedRoomTimetabler(sat.NewGiniSolver(), options).Build(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, progressVariables, percents[0])
	assert.Equal(t, progressDone, percents[len(percents)-1])
	assert.IsNonDecreasing(t, percents)
	assert.Contains(t, stages, "search")
	assert.Len(t, lo.Filter(stages, func(stage string, _ int) bool { return len(stage) > 11 && stage[:11] == "constraints" }), len(constraintFamilies))
}

type recordingObserver struct {
	strategies []string
	statuses   []Status
}

func (observer *recordingObserver) ObserveBuild(strategy string, status Status, _ time.Duration, _, _ uint64) {
	observer.strategies = append(observer.strategies, strategy)
	observer.statuses = append(observer.statuses, status)
}

func TestBuildNotifiesObserver(t *testing.T) {
	observer := &recordingObserver{}
	input := singleClass(defaultConfig(), map[string]int{"Math": 2}, Teacher{Name: "Ada", MaxHoursPerDay: 8})

	_, err := NewIsolatedRoomTimetabler(sat.NewGiniSolver(), Options{Observer: observer}).Build(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, []string{StrategyPostponed}, observer.strategies)
	assert.Equal(t, []Status{StatusOptimal}, observer.statuses)
}

func TestEncodeIsDeterministic(t *testing.T) {
	input, err := InputFromJson(schoolFile)
	require.NoError(t, err)
	timetabler := NewEmbeddedRoomTimetabler(sat.NewGiniSolver(), Options{Workers: 8})

	first, second := timetabler.Encode(input), timetabler.Encode(input)

	assert.Equal(t, first.Variables, second.Variables)
	assert.Equal(t, first.Clauses, second.Clauses)
}

func TestNewTimetabler(t *testing.T) {
	for _, strategy := range []string{"", StrategyEmbedded, StrategyPostponed} {
		timetabler, err := NewTimetabler(strategy, sat.NewGiniSolver(), Options{})
		assert.NoError(t, err)
		assert.NotNil(t, timetabler)
	}

	_, err := NewTimetabler("eager", sat.NewGiniSolver(), Options{})
	assert.Error(t, err)
}
