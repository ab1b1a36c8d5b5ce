package model

import (
	"slices"
)

type predicateEvaluatorStandard struct {
	problem *problem
	days    int
	hours   int

	// Morning and afternoon hours (0-based), split at the lunch break or at the middle of the day
	morning   []int
	afternoon []int

	floors []int // Daily floor of every teacher before day-specific caps
}

func newPredicateEvaluator(problem *problem) predicateEvaluator {
	evaluator := predicateEvaluatorStandard{
		problem: problem,
		days:    len(Days),
		hours:   problem.config.HoursPerDay,
	}

	split, resume := problem.config.HoursPerDay/2, problem.config.HoursPerDay/2
	if problem.config.HasLunch() {
		split, resume = problem.config.LunchHour-1, problem.config.LunchHour
	}
	for hour := range problem.config.HoursPerDay {
		if hour < split {
			evaluator.morning = append(evaluator.morning, hour)
		} else if hour >= resume {
			evaluator.afternoon = append(evaluator.afternoon, hour)
		}
	}

	evaluator.floors = make([]int, len(problem.teachers))
	for teacher := range problem.teachers {
		evaluator.floors[teacher] = evaluator.teacherFloor(teacher)
	}

	return &evaluator
}

func (evaluator *predicateEvaluatorStandard) DayOff(teacher, day int) bool {
	return slices.Contains(evaluator.problem.teachers[teacher].UnavailableDays, day)
}

func (evaluator *predicateEvaluatorStandard) SlotOff(teacher, day, hour int) bool {
	return slices.Contains(evaluator.problem.teachers[teacher].UnavailableSlots, [2]int{day, hour + 1})
}

func (evaluator *predicateEvaluatorStandard) Lunch(hour int) bool {
	return evaluator.problem.config.HasLunch() && evaluator.problem.config.LunchHour == hour+1
}

func (evaluator *predicateEvaluatorStandard) OutsidePreference(teacher, hour int) bool {
	switch evaluator.problem.teachers[teacher].Preference {
	case PreferenceMorning:
		return slices.Contains(evaluator.afternoon, hour)
	case PreferenceAfternoon:
		return slices.Contains(evaluator.morning, hour)
	}
	return false
}

func (evaluator *predicateEvaluatorStandard) TeacherAvailable(teacher, day, hour int) bool {
	return !evaluator.DayOff(teacher, day) &&
		!evaluator.SlotOff(teacher, day, hour) &&
		!evaluator.Lunch(hour) &&
		!evaluator.OutsidePreference(teacher, hour)
}

func (evaluator *predicateEvaluatorStandard) DutyDay(teacher, day int) bool {
	return slices.Contains(evaluator.problem.teachers[teacher].DutyDays, day)
}

func (evaluator *predicateEvaluatorStandard) DailyCap(teacher, day int) int {
	limit := evaluator.problem.teachers[teacher].MaxHoursPerDay
	if evaluator.DutyDay(teacher, day) {
		limit = min(limit, max(0, limit-evaluator.problem.config.DutyDayReduction))
	}
	return limit
}

func (evaluator *predicateEvaluatorStandard) FreeHours(teacher, day int) int {
	free := 0
	for hour := range evaluator.hours {
		if evaluator.TeacherAvailable(teacher, day, hour) {
			free++
		}
	}
	return free
}

func (evaluator *predicateEvaluatorStandard) AvailableDays(teacher int) []int {
	days := make([]int, 0, evaluator.days)
	for day := range evaluator.days {
		if evaluator.DailyCap(teacher, day) > 0 && evaluator.FreeHours(teacher, day) > 0 {
			days = append(days, day)
		}
	}
	return days
}

func (evaluator *predicateEvaluatorStandard) DailyFloor(teacher, day int) int {
	return min(evaluator.floors[teacher], evaluator.DailyCap(teacher, day), evaluator.FreeHours(teacher, day))
}

// The configured minimum, lowered until the teacher's load can be split into days that each reach it
func (evaluator *predicateEvaluatorStandard) teacherFloor(teacher int) int {
	load := evaluator.problem.teacherLoads[teacher]
	available := evaluator.AvailableDays(teacher)
	floor := min(evaluator.problem.config.MinDailyHours, load)

	// When every available day must have a lesson, the floor cannot exceed an even spread of the load
	if len(available) > 0 && load >= len(available) {
		floor = min(floor, load/len(available))
	}

	// Most lessons the teacher can give on a single day
	widest := 0
	for _, day := range available {
		widest = max(widest, min(evaluator.DailyCap(teacher, day), evaluator.FreeHours(teacher, day)))
	}
	reach := 0
	for _, entry := range evaluator.problem.entries {
		if entry.teacher == teacher && len(entry.rooms) > 0 {
			reach += entry.dailyLimit()
		}
	}
	widest = min(widest, reach)

	splittable := func(floor int) bool {
		for days := 1; days <= len(available); days++ {
			if days*floor <= load && load <= days*widest {
				return true
			}
		}
		return false
	}
	for floor > 1 && !splittable(floor) {
		floor--
	}
	return max(0, floor)
}

func (evaluator *predicateEvaluatorStandard) Assigned(room, entry int) bool {
	return slices.Contains(evaluator.problem.entries[entry].rooms, room)
}

func (evaluator *predicateEvaluatorStandard) Capacitated(room int) bool {
	return evaluator.problem.config.Mode == ModeRoom && !evaluator.problem.defaultRoom && room >= 0 && room < len(evaluator.problem.rooms)
}
