package model

import (
	"slices"

	"github.com/samber/lo"
)

// entry is a (class, course) pair with positive weekly hours and an assigned teacher
type entry struct {
	class      int
	course     string
	teacher    int
	hours      int
	properties Course // Properties of the base course, defaults when the course is not declared
	rooms      []int  // Eligible rooms in room-list order
	second     bool   // Second course of a simultaneous pair
}

// pair links the entries of a simultaneous pair, -1 stands for a course without entry
type pair struct {
	first, second int
}

// problem is the preprocessed, read-only view of a model input shared by every stage of a build
type problem struct {
	config      Config
	teachers    []Teacher
	rooms       []Room
	classes     []Class
	defaultRoom bool // The school declares no room

	entries      []entry
	entryIndex   map[[2]string]int // (class, course) -> entry
	pairs        []pair
	classLoads   []int  // Declared weekly hours per class, assigned or not
	relaxed      []bool // Class load exceeds the weekly slots
	teacherLoads []int  // Weekly hours of the schedulable entries per teacher
}

func preprocessInput(modelInput ModelInput) *problem {
	courses := courseMap(modelInput.Courses)
	rooms := modelRooms(modelInput.Rooms)
	resolver := newRoomResolver(rooms, courses, modelInput.Config.Mode)

	problem := &problem{
		config:      modelInput.Config,
		teachers:    slices.Clone(modelInput.Teachers),
		rooms:       rooms,
		classes:     modelInput.Classes,
		defaultRoom: len(modelInput.Rooms) == 0,
		entryIndex:  make(map[[2]string]int),
		classLoads:  make([]int, len(modelInput.Classes)),
		relaxed:     make([]bool, len(modelInput.Classes)),
	}

	teacherIndex := make(map[string]int, len(problem.teachers))
	for i, teacher := range problem.teachers {
		teacherIndex[teacher.Name] = i
	}

	for class, classInput := range modelInput.Classes {
		problem.classLoads[class] = lo.Sum(lo.Values(classInput.Lessons))
		problem.relaxed[class] = problem.classLoads[class] > modelInput.Config.WeeklySlots()

		seconds := lo.Map(classInput.Simultaneous, func(pair [2]string, _ int) string { return pair[1] })

		courseNames := lo.Keys(classInput.Lessons)
		slices.Sort(courseNames)
		for _, course := range courseNames {
			teacherName := classInput.Assignments[course]
			if teacherName == "" {
				continue
			}

			teacher, ok := teacherIndex[teacherName]
			if !ok {
				// Assigned teachers missing from the teacher list are scheduled without personal restrictions
				teacher = len(problem.teachers)
				teacherIndex[teacherName] = teacher
				problem.teachers = append(problem.teachers, Teacher{Name: teacherName, MaxHoursPerDay: DefaultTeacherDailyMax})
			}

			problem.entryIndex[[2]string{classInput.Name, course}] = len(problem.entries)
			problem.entries = append(problem.entries, entry{
				class:      class,
				course:     course,
				teacher:    teacher,
				hours:      classInput.Lessons[course],
				properties: courseProperties(course, courses),
				rooms:      resolver.Allowed(course, teacherName),
				second:     slices.Contains(seconds, course),
			})
		}

		for _, simultaneous := range classInput.Simultaneous {
			problem.pairs = append(problem.pairs, pair{
				first:  problem.entryOf(classInput.Name, simultaneous[0]),
				second: problem.entryOf(classInput.Name, simultaneous[1]),
			})
		}
	}

	problem.teacherLoads = make([]int, len(problem.teachers))
	for _, entry := range problem.entries {
		if len(entry.rooms) > 0 {
			problem.teacherLoads[entry.teacher] += entry.hours
		}
	}

	return problem
}

func (problem *problem) entryOf(class, course string) int {
	if entry, ok := problem.entryIndex[[2]string{class, course}]; ok {
		return entry
	}
	return -1
}

// Properties of the course, resolved through its base course, with defaults for undeclared courses
func courseProperties(course string, courses map[string]Course) Course {
	properties, ok := courses[baseName(course, courses)]
	if !ok {
		properties = Course{MaxDailyHours: DefaultCourseDailyMax, BlockSize: DefaultBlockSize}
	}
	properties.Name = course
	return properties
}

// Daily limit of an entry, never below its block size
func (entry entry) dailyLimit() int {
	return max(entry.properties.MaxDailyHours, entry.properties.BlockSize)
}

// Daily totals an entry with block size B may have: no lesson, whole blocks within the daily limit or the weekly
// remainder
func (entry entry) blockDurations() []int {
	block := entry.properties.BlockSize
	durations := []int{0}
	for duration := block; duration <= entry.dailyLimit() && duration <= entry.hours; duration += block {
		durations = append(durations, duration)
	}
	if remainder := entry.hours % block; remainder > 0 && !slices.Contains(durations, remainder) {
		durations = append(durations, remainder)
	}
	slices.Sort(durations)
	return durations
}
