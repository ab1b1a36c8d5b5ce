package model

type predicateEvaluator interface {
	// Checks whether the teacher has the whole day off
	DayOff(teacher, day int) bool

	// Checks whether the teacher blacklisted the given day and hour
	SlotOff(teacher, day, hour int) bool

	// Checks whether the hour is the school-wide lunch break
	Lunch(hour int) bool

	// Checks whether the hour falls outside the teacher's morning/afternoon preference
	OutsidePreference(teacher, hour int) bool

	// Checks whether the teacher can be scheduled at the given day and hour at all
	TeacherAvailable(teacher, day, hour int) bool

	// Checks whether the day is one of the teacher's duty days
	DutyDay(teacher, day int) bool

	// Returns the largest number of lessons the teacher may teach on the day (duty days reduced)
	DailyCap(teacher, day int) int

	// Returns the number of hours of the day the teacher is available at
	FreeHours(teacher, day int) int

	// Returns the days on which the teacher can teach at least one lesson
	AvailableDays(teacher int) []int

	// Returns the least number of lessons the teacher must teach on a day with lessons, 0 or 1 meaning no floor
	DailyFloor(teacher, day int) int

	// Checks whether the room is eligible for the entry
	Assigned(room, entry int) bool

	// Checks whether the room's capacity is enforced
	Capacitated(room int) bool
}
