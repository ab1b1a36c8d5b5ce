package model

// indexer interface is design to give a unique variable to every materialized lesson (and to the auxiliary "entry is
// taught at this hour" indicators) and to look lessons up by the attributes the constraints group them by
type indexer interface {
	// Returns the lesson variable of the entry in its room-th eligible room, 0 if no such lesson is materialized
	Index(entry, room, day, hour int) int64
	// Returns the attributes of a lesson variable; room is a position in the entry's eligible rooms, -1 when rooms are
	// collapsed
	Attributes(variable int64) (entry, room, day, hour int)
	// Returns the indicator of the entry being taught at the given day and hour
	Active(entry, day, hour int) int64

	// Number of lesson variables, which are numbered 1..Lessons()
	Lessons() uint64
	// Number of lesson and indicator variables
	Variables() uint64

	EntryLessons(entry int) []int64
	EntryDayLessons(entry, day int) []int64
	EntrySlotLessons(entry, day, hour int) []int64
	TeacherDayLessons(teacher, day int) []int64
	TeacherSlotLessons(teacher, day, hour int) []int64
	// Lessons of the class at the slot, leaving out the second course of every simultaneous pair
	ClassSlotLessons(class, day, hour int) []int64
	RoomSlotLessons(room, day, hour int) []int64
	RoomLessons(room int) []int64
}

// newIndexer numbers the lessons entry by entry. With collapsed rooms every entry owns a single room-less lesson per
// slot, so rooms can be assigned after solving
func newIndexer(problem *problem, collapsed bool) indexer {
	days, hours := len(Days), problem.config.HoursPerDay
	indexer := &indexerImplementation{
		days:         days,
		hours:        hours,
		collapsed:    collapsed,
		offsets:      make([]int64, len(problem.entries)),
		widths:       make([]int, len(problem.entries)),
		teacherSlots: make(map[[3]int][]int64),
		teacherDays:  make(map[[2]int][]int64),
		classSlots:   make(map[[3]int][]int64),
		roomSlots:    make(map[[3]int][]int64),
		rooms:        make(map[int][]int64),
	}

	offset := int64(0)
	for i, entry := range problem.entries {
		width := len(entry.rooms)
		if collapsed && width > 0 {
			width = 1
		}
		indexer.offsets[i], indexer.widths[i] = offset, width
		offset += int64(width * days * hours)
	}
	indexer.lessons = uint64(offset)

	for i, entry := range problem.entries {
		for room := range indexer.widths[i] {
			for day := range days {
				for hour := range hours {
					variable := indexer.Index(i, room, day, hour)

					teacherSlot, teacherDay := [3]int{entry.teacher, day, hour}, [2]int{entry.teacher, day}
					indexer.teacherSlots[teacherSlot] = append(indexer.teacherSlots[teacherSlot], variable)
					indexer.teacherDays[teacherDay] = append(indexer.teacherDays[teacherDay], variable)

					if !entry.second {
						classSlot := [3]int{entry.class, day, hour}
						indexer.classSlots[classSlot] = append(indexer.classSlots[classSlot], variable)
					}

					if !collapsed {
						roomId := entry.rooms[room]
						roomSlot := [3]int{roomId, day, hour}
						indexer.roomSlots[roomSlot] = append(indexer.roomSlots[roomSlot], variable)
						indexer.rooms[roomId] = append(indexer.rooms[roomId], variable)
					}
				}
			}
		}
	}

	return indexer
}
