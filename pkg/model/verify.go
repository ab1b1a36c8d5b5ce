package model

import (
	"fmt"
	"slices"
)

// Conflict is a hard rule broken by a timetable
type Conflict struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

const (
	RuleUnknownLesson   = "unknown-lesson"
	RuleSlot            = "slot"
	RuleRoom            = "room"
	RuleWeeklyHours     = "weekly-hours"
	RuleClassClash      = "class-clash"
	RuleTeacherClash    = "teacher-clash"
	RuleRoomCapacity    = "room-capacity"
	RuleDayOff          = "day-off"
	RuleHourOff         = "hour-off"
	RuleTeacherDaily    = "teacher-daily-max"
	RuleContiguity      = "contiguity"
	RuleCourseDaily     = "course-daily-max"
	RuleLunch           = "lunch"
	RuleBlockSize       = "block-size"
	RuleDutyDay         = "duty-day"
	RulePreference      = "preference"
	RuleSimultaneous    = "simultaneous"
	RuleEmptyDay        = "empty-day"
	RuleDailyFloor      = "daily-floor"
	RuleDuplicateLesson = "duplicate-lesson"
)

// Verify returns the hard-rule violations of a timetable, none when it is valid
func Verify(timetable []Lesson, modelInput ModelInput) []Conflict {
	//** Initialize dependencies
	problem := preprocessInput(modelInput)
	evaluator := newPredicateEvaluator(problem)
	days, hours := len(Days), problem.config.HoursPerDay

	conflicts := make([]Conflict, 0)
	conflict := func(rule string, format string, args ...any) {
		conflicts = append(conflicts, Conflict{Rule: rule, Message: fmt.Sprintf(format, args...)})
	}

	roomIndex := make(map[string]int, len(problem.rooms))
	for i, room := range problem.rooms {
		roomIndex[room.Name] = i
	}

	//** Initialize assistance counters
	teacherSlots, teacherDays := make(map[[3]int]int), make(map[[2]int]int)
	classSlots, roomSlots := make(map[[3]int]int), make(map[[3]int]int)
	entrySlots, entryDays, entryTotals := make(map[[3]int]int), make(map[[2]int]int), make(map[int]int)

	for _, lesson := range timetable {
		day, ok := ParseDay(lesson.Day)
		hour := lesson.Hour - 1
		if !ok || hour < 0 || hour >= hours {
			conflict(RuleSlot, "%v~%v is scheduled outside the week grid (%v, hour %v)", lesson.Class, lesson.Course, lesson.Day, lesson.Hour)
			continue
		}

		entry := problem.entryOf(lesson.Class, lesson.Course)
		if entry < 0 || problem.teachers[problem.entries[entry].teacher].Name != lesson.Teacher {
			conflict(RuleUnknownLesson, "%v~%v taught by %v is not part of the curriculum", lesson.Class, lesson.Course, lesson.Teacher)
			continue
		}
		entryInput := problem.entries[entry]
		teacher := entryInput.teacher

		// Check that:
		// - The room is eligible for the lesson
		// - The teacher is available at the day and hour
		// - The hour is not the lunch break
		// - The hour matches the teacher's preference
		if room, ok := roomIndex[lesson.Room]; !ok || !evaluator.Assigned(room, entry) {
			conflict(RuleRoom, "%v~%v cannot take place in room %q", lesson.Class, lesson.Course, lesson.Room)
		} else {
			roomSlots[[3]int{room, day, hour}]++
		}
		if evaluator.DayOff(teacher, day) {
			conflict(RuleDayOff, "%v teaches on %v, their day off", lesson.Teacher, lesson.Day)
		}
		if evaluator.SlotOff(teacher, day, hour) {
			conflict(RuleHourOff, "%v teaches on %v at hour %v, which they marked unavailable", lesson.Teacher, lesson.Day, lesson.Hour)
		}
		if evaluator.Lunch(hour) {
			conflict(RuleLunch, "%v~%v is scheduled during the lunch break on %v", lesson.Class, lesson.Course, lesson.Day)
		}
		if evaluator.OutsidePreference(teacher, hour) {
			conflict(RulePreference, "%v teaches at hour %v against their %v preference", lesson.Teacher, lesson.Hour, problem.teachers[teacher].Preference)
		}

		teacherSlots[[3]int{teacher, day, hour}]++
		teacherDays[[2]int{teacher, day}]++
		if !entryInput.second {
			classSlots[[3]int{entryInput.class, day, hour}]++
		}
		entrySlots[[3]int{entry, day, hour}]++
		entryDays[[2]int{entry, day}]++
		entryTotals[entry]++
	}

	for teacher, teacherInput := range problem.teachers {
		availableDays := evaluator.AvailableDays(teacher)
		load := problem.teacherLoads[teacher]

		for day := range days {
			for hour := range hours {
				if teacherSlots[[3]int{teacher, day, hour}] > 1 {
					conflict(RuleTeacherClash, "%v teaches more than one lesson on %v at hour %v", teacherInput.Name, Days[day], hour+1)
				}
			}

			count := teacherDays[[2]int{teacher, day}]
			if count > teacherInput.MaxHoursPerDay {
				conflict(RuleTeacherDaily, "%v teaches %v hours on %v, above their limit of %v", teacherInput.Name, count, Days[day], teacherInput.MaxHoursPerDay)
			}
			if evaluator.DutyDay(teacher, day) && count > evaluator.DailyCap(teacher, day) {
				conflict(RuleDutyDay, "%v teaches %v hours on their duty day %v, above %v", teacherInput.Name, count, Days[day], evaluator.DailyCap(teacher, day))
			}
			if load > 0 && load >= len(availableDays) && count == 0 && slices.Contains(availableDays, day) {
				conflict(RuleEmptyDay, "%v has no lesson on %v", teacherInput.Name, Days[day])
			}
			if floor := evaluator.DailyFloor(teacher, day); load > 0 && floor > 1 && count > 0 && count < floor {
				conflict(RuleDailyFloor, "%v teaches only %v hours on %v, below %v", teacherInput.Name, count, Days[day], floor)
			}
		}
	}

	for class, classInput := range problem.classes {
		for day := range days {
			for hour := range hours {
				if classSlots[[3]int{class, day, hour}] > 1 {
					conflict(RuleClassClash, "%v attends more than one lesson on %v at hour %v", classInput.Name, Days[day], hour+1)
				}
			}
		}
	}

	for room, roomInput := range problem.rooms {
		if !evaluator.Capacitated(room) {
			continue
		}
		for day := range days {
			for hour := range hours {
				if count := roomSlots[[3]int{room, day, hour}]; count > roomInput.Capacity {
					conflict(RuleRoomCapacity, "%v hosts %v lessons on %v at hour %v, above its capacity of %v", roomInput.Name, count, Days[day], hour+1, roomInput.Capacity)
				}
			}
		}
	}

	for entry, entryInput := range problem.entries {
		if len(entryInput.rooms) == 0 {
			continue
		}
		name := fmt.Sprintf("%v~%v", problem.classes[entryInput.class].Name, entryInput.course)

		// Check whether the number of lessons taught equals the weekly hours (at most them for over-subscribed classes)
		total := entryTotals[entry]
		if total > entryInput.hours || (!problem.relaxed[entryInput.class] && total != entryInput.hours) {
			conflict(RuleWeeklyHours, "%v is taught %v hours instead of %v", name, total, entryInput.hours)
		}

		durations := entryInput.blockDurations()
		for day := range days {
			count := entryDays[[2]int{entry, day}]
			if count > entryInput.dailyLimit() {
				conflict(RuleCourseDaily, "%v is taught %v hours on %v, above its limit of %v", name, count, Days[day], entryInput.dailyLimit())
			}
			if entryInput.properties.BlockSize > 1 && !slices.Contains(durations, count) {
				conflict(RuleBlockSize, "%v is taught %v hours on %v, which is not one of %v", name, count, Days[day], durations)
			}

			taught := make([]int, 0, count)
			for hour := range hours {
				if slot := entrySlots[[3]int{entry, day, hour}]; slot > 0 {
					taught = append(taught, hour)
				}
				if entrySlots[[3]int{entry, day, hour}] > 1 {
					conflict(RuleDuplicateLesson, "%v is scheduled twice on %v at hour %v", name, Days[day], hour+1)
				}
			}
			if len(taught) > 0 && taught[len(taught)-1]-taught[0]+1 != len(taught) {
				conflict(RuleContiguity, "%v is split into more than one block on %v", name, Days[day])
			}
		}
	}

	for _, pair := range problem.pairs {
		if pair.first < 0 || pair.second < 0 || len(problem.entries[pair.first].rooms) == 0 || len(problem.entries[pair.second].rooms) == 0 {
			continue
		}
		first, second := problem.entries[pair.first], problem.entries[pair.second]
		for day := range days {
			for hour := range hours {
				if entrySlots[[3]int{pair.first, day, hour}] != entrySlots[[3]int{pair.second, day, hour}] {
					conflict(RuleSimultaneous, "%v and %v of %v are not taught together on %v at hour %v",
						first.course, second.course, problem.classes[first.class].Name, Days[day], hour+1)
				}
			}
		}
	}

	return conflicts
}

// Shortfall is a course that misses some of its weekly hours in a timetable
type Shortfall struct {
	Class     string `json:"class"`
	Course    string `json:"course"`
	Teacher   string `json:"teacher"`
	Desired   int    `json:"desired"`
	Scheduled int    `json:"scheduled"`
}

// Shortfalls compares the desired weekly hours of every assigned course with the hours the timetable gives it
func Shortfalls(timetable []Lesson, modelInput ModelInput) []Shortfall {
	problem := preprocessInput(modelInput)

	taught := make(map[int]int)
	for _, lesson := range timetable {
		if entry := problem.entryOf(lesson.Class, lesson.Course); entry >= 0 {
			taught[entry]++
		}
	}

	shortfalls := make([]Shortfall, 0)
	for i, entry := range problem.entries {
		if taught[i] < entry.hours {
			shortfalls = append(shortfalls, Shortfall{
				Class:     problem.classes[entry.class].Name,
				Course:    entry.course,
				Teacher:   problem.teachers[entry.teacher].Name,
				Desired:   entry.hours,
				Scheduled: taught[i],
			})
		}
	}
	return shortfalls
}
