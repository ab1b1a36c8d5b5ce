package model

import (
	"slices"
	"sort"
)

type indexerImplementation struct {
	days      int
	hours     int
	collapsed bool

	offsets []int64 // Lessons before each entry
	widths  []int   // Room dimension of each entry
	lessons uint64

	teacherSlots map[[3]int][]int64
	teacherDays  map[[2]int][]int64
	classSlots   map[[3]int][]int64
	roomSlots    map[[3]int][]int64
	rooms        map[int][]int64
}

func (indexer *indexerImplementation) Index(entry, room, day, hour int) int64 {
	if room < 0 || room >= indexer.widths[entry] || day < 0 || day >= indexer.days || hour < 0 || hour >= indexer.hours {
		return 0
	}
	return indexer.offsets[entry] + int64(hour+indexer.hours*day+indexer.hours*indexer.days*room) + 1
}

func (indexer *indexerImplementation) Attributes(variable int64) (entry, room, day, hour int) {
	index := variable - 1
	// Last entry starting at or before the index; entries without lessons share their offset with the following one
	entry = sort.Search(len(indexer.offsets), func(i int) bool { return indexer.offsets[i] > index }) - 1

	local := int(index - indexer.offsets[entry])
	hour = local % indexer.hours
	local = local / indexer.hours

	day = local % indexer.days
	local = local / indexer.days

	room = local
	if indexer.collapsed {
		room = -1
	}
	return entry, room, day, hour
}

func (indexer *indexerImplementation) Active(entry, day, hour int) int64 {
	return int64(indexer.lessons) + int64(hour+indexer.hours*day+indexer.hours*indexer.days*entry) + 1
}

func (indexer *indexerImplementation) Lessons() uint64 {
	return indexer.lessons
}

func (indexer *indexerImplementation) Variables() uint64 {
	return indexer.lessons + uint64(len(indexer.offsets)*indexer.days*indexer.hours)
}

func (indexer *indexerImplementation) EntryLessons(entry int) []int64 {
	count := indexer.widths[entry] * indexer.days * indexer.hours
	variables := make([]int64, count)
	for i := range variables {
		variables[i] = indexer.offsets[entry] + int64(i) + 1
	}
	return variables
}

func (indexer *indexerImplementation) EntryDayLessons(entry, day int) []int64 {
	variables := make([]int64, 0, indexer.widths[entry]*indexer.hours)
	for room := range indexer.widths[entry] {
		for hour := range indexer.hours {
			variables = append(variables, indexer.Index(entry, room, day, hour))
		}
	}
	return variables
}

func (indexer *indexerImplementation) EntrySlotLessons(entry, day, hour int) []int64 {
	variables := make([]int64, 0, indexer.widths[entry])
	for room := range indexer.widths[entry] {
		// Out-of-grid slots have no lessons
		if variable := indexer.Index(entry, room, day, hour); variable != 0 {
			variables = append(variables, variable)
		}
	}
	return variables
}

func (indexer *indexerImplementation) TeacherDayLessons(teacher, day int) []int64 {
	return slices.Clone(indexer.teacherDays[[2]int{teacher, day}])
}

func (indexer *indexerImplementation) TeacherSlotLessons(teacher, day, hour int) []int64 {
	return slices.Clone(indexer.teacherSlots[[3]int{teacher, day, hour}])
}

func (indexer *indexerImplementation) ClassSlotLessons(class, day, hour int) []int64 {
	return slices.Clone(indexer.classSlots[[3]int{class, day, hour}])
}

func (indexer *indexerImplementation) RoomSlotLessons(room, day, hour int) []int64 {
	return slices.Clone(indexer.roomSlots[[3]int{room, day, hour}])
}

func (indexer *indexerImplementation) RoomLessons(room int) []int64 {
	return slices.Clone(indexer.rooms[room])
}
