package model

import (
	"fmt"
	"strings"
)

// Diagnose explains why the input may have no timetable: teachers whose load exceeds what their restrictions let
// them teach, over-subscribed classes, courses that cannot fit their week and lessons without an eligible room
func Diagnose(modelInput ModelInput) []string {
	problem := preprocessInput(modelInput)
	return diagnose(problem, newPredicateEvaluator(problem))
}

func diagnose(problem *problem, evaluator predicateEvaluator) []string {
	hints := make([]string, 0)
	days := len(Days)

	//** Teachers' capacity against their load
	loads := make([]int, len(problem.teachers))
	for _, entry := range problem.entries {
		loads[entry.teacher] += entry.hours
	}
	for teacher, teacherInput := range problem.teachers {
		if loads[teacher] == 0 {
			continue
		}

		capacity := 0
		for day := range days {
			if !evaluator.DayOff(teacher, day) {
				capacity += min(evaluator.DailyCap(teacher, day), evaluator.FreeHours(teacher, day))
			}
		}
		if loads[teacher] <= capacity {
			continue
		}

		suggestions := make([]string, 0)
		if len(teacherInput.UnavailableDays) > 0 {
			suggestions = append(suggestions, "remove a day off")
		}
		if teacherInput.MaxHoursPerDay < problem.config.DailySlots() {
			suggestions = append(suggestions, fmt.Sprintf("raise the daily limit of %v hours", teacherInput.MaxHoursPerDay))
		}
		if len(teacherInput.DutyDays) > 0 && problem.config.DutyDayReduction > 0 {
			suggestions = append(suggestions, "remove the duty day")
		}
		if len(teacherInput.UnavailableSlots) > 0 {
			suggestions = append(suggestions, "clear unavailable hours")
		}
		if teacherInput.Preference != PreferenceNone {
			suggestions = append(suggestions, fmt.Sprintf("drop the %v preference", teacherInput.Preference))
		}
		if len(suggestions) == 0 {
			suggestions = append(suggestions, "move some lessons to another teacher")
		}

		hints = append(hints, fmt.Sprintf("Teacher %v has %v weekly hours but can teach at most %v: %v",
			teacherInput.Name, loads[teacher], capacity, strings.Join(suggestions, ", ")))
	}

	//** Classes' load against the week
	for class, classInput := range problem.classes {
		if load := problem.classLoads[class]; load > problem.config.WeeklySlots() {
			hints = append(hints, fmt.Sprintf("Class %v has %v weekly hours but the week has %v slots: reduce its lessons or add hours per day",
				classInput.Name, load, problem.config.WeeklySlots()))
		}
	}

	//** Courses against their daily limits
	for _, entry := range problem.entries {
		if reachable := days * min(entry.dailyLimit(), problem.config.DailySlots()); entry.hours > reachable {
			hints = append(hints, fmt.Sprintf("Course %v of class %v has %v weekly hours but at most %v fit in a week: raise its daily limit",
				entry.course, problem.classes[entry.class].Name, entry.hours, reachable))
		}
	}

	//** Lessons without rooms
	for _, entry := range problem.entries {
		if len(entry.rooms) == 0 {
			hints = append(hints, fmt.Sprintf("No room is eligible for %v taught by %v in class %v: review the room rules",
				entry.course, problem.teachers[entry.teacher].Name, problem.classes[entry.class].Name))
		}
	}

	return hints
}
