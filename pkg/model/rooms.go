package model

import (
	"slices"
	"strings"
	"sync"
)

// roomResolver decides which rooms a (course, teacher) pair may use. Results are memoized per pair
type roomResolver struct {
	rooms   []Room
	courses map[string]Course
	mode    Mode

	mutex sync.Mutex
	memo  map[[2]string][]int
}

func newRoomResolver(rooms []Room, courses map[string]Course, mode Mode) *roomResolver {
	return &roomResolver{
		rooms:   rooms,
		courses: courses,
		mode:    mode,
		memo:    make(map[[2]string][]int),
	}
}

// AllowedRooms returns the names of the rooms a lesson of course taught by teacher may use
func AllowedRooms(input ModelInput, course, teacher string) []string {
	rooms := modelRooms(input.Rooms)
	resolver := newRoomResolver(rooms, courseMap(input.Courses), input.Config.Mode)

	allowed := resolver.Allowed(course, teacher)
	names := make([]string, len(allowed))
	for i, room := range allowed {
		names[i] = rooms[room].Name
	}
	return names
}

// Allowed returns the indices of the eligible rooms in room-list order
func (resolver *roomResolver) Allowed(course, teacher string) []int {
	key := [2]string{course, teacher}
	resolver.mutex.Lock()
	defer resolver.mutex.Unlock()
	if rooms, ok := resolver.memo[key]; ok {
		return rooms
	}

	rooms := resolver.resolve(course, teacher)
	resolver.memo[key] = rooms
	return rooms
}

func (resolver *roomResolver) resolve(course, teacher string) []int {
	base := baseName(course, resolver.courses)
	properties := resolver.courses[base]

	// A mandatory room short-circuits every other rule, as long as it still exists
	if properties.SpecificRoom != "" {
		if room := slices.IndexFunc(resolver.rooms, func(room Room) bool { return room.Name == properties.SpecificRoom }); room >= 0 {
			return []int{room}
		}
	}

	candidates := make([]int, 0, len(resolver.rooms))
	for i, room := range resolver.rooms {
		if !slices.Contains(room.ExcludedCourses, course) && !slices.Contains(room.ExcludedCourses, base) {
			candidates = append(candidates, i)
		}
	}
	branch := strings.TrimSpace(properties.Branch)

	//** Strict pass
	allowed := resolver.filter(candidates, func(room Room) bool {
		explicitCourse, ok := courseListed(room, course, base)
		if !ok {
			return false
		}
		if len(room.Teachers) > 0 && !slices.Contains(room.Teachers, teacher) {
			return false
		}
		return branchAllowed(room, branch) || slices.Contains(room.Teachers, teacher) || explicitCourse
	})

	//** Without the teacher whitelist
	if len(allowed) == 0 {
		allowed = resolver.filter(candidates, func(room Room) bool {
			explicitCourse, ok := courseListed(room, course, base)
			return ok && (branchAllowed(room, branch) || explicitCourse)
		})
	}

	//** Any room not reserved for other courses
	if len(allowed) == 0 && resolver.mode == ModeClass {
		allowed = resolver.filter(candidates, func(room Room) bool {
			_, ok := courseListed(room, course, base)
			return ok
		})
	}

	return allowed
}

func (resolver *roomResolver) filter(candidates []int, predicate func(room Room) bool) []int {
	allowed := make([]int, 0, len(candidates))
	for _, candidate := range candidates {
		if predicate(resolver.rooms[candidate]) {
			allowed = append(allowed, candidate)
		}
	}
	return allowed
}

// Reports whether the room lists the course explicitly and whether the room accepts it at all
func courseListed(room Room, course, base string) (explicit bool, ok bool) {
	if len(room.Courses) == 0 {
		return false, true
	}
	explicit = slices.Contains(room.Courses, course) || slices.Contains(room.Courses, base)
	return explicit, explicit
}

func branchAllowed(room Room, branch string) bool {
	return len(room.Branches) == 0 || slices.Contains(room.Branches, branch)
}

// baseName resolves split variants such as "Physics (Lab)" to their base course when the base is declared
func baseName(course string, courses map[string]Course) string {
	if _, ok := courses[course]; ok {
		return course
	}
	if open := strings.LastIndex(course, " ("); open > 0 && strings.HasSuffix(course, ")") {
		if base := course[:open]; courses[base].Name != "" {
			return base
		}
	}
	return course
}

func courseMap(courses []Course) map[string]Course {
	byName := make(map[string]Course, len(courses))
	for _, course := range courses {
		byName[course.Name] = course
	}
	return byName
}

// Schools without rooms get a single room that never constrains capacity
func modelRooms(rooms []Room) []Room {
	if len(rooms) > 0 {
		return rooms
	}
	return []Room{{Name: DefaultRoomName}}
}
