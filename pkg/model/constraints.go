package model

import (
	"fmt"
	"slices"

	"github.com/limaJavier/schooltimetable/pkg/sat"

	"github.com/samber/lo"
)

type constraintState struct {
	problem   *problem
	evaluator predicateEvaluator
	indexer   indexer
	collapsed bool // Lessons carry no room

	days,
	hours int
}

// Constraint families in encoding order
var constraintFamilies = []func(state constraintState) []sat.Constraint{
	fulfillmentConstraints,
	classConstraints,
	teacherConstraints,
	roomConstraints,
	dayOffConstraints,
	hourOffConstraints,
	teacherDailyConstraints,
	contiguityConstraints,
	courseDailyConstraints,
	lunchConstraints,
	blockSizeConstraints,
	dutyDayConstraints,
	preferenceConstraints,
	simultaneityConstraints,
	presenceConstraints,
	dailyFloorConstraints,
}

// Every entry is taught its weekly hours, or at most them when its class is over-subscribed
func fulfillmentConstraints(state constraintState) []sat.Constraint {
	constraints := make([]sat.Constraint, 0, len(state.problem.entries))
	for i, entry := range state.problem.entries {
		lessons := state.indexer.EntryLessons(i)
		if len(lessons) == 0 {
			continue
		}

		if state.problem.relaxed[entry.class] {
			constraints = append(constraints, sat.AtMost(lessons, entry.hours))
		} else {
			constraints = append(constraints, sat.Exactly(lessons, entry.hours))
		}
	}
	return constraints
}

// A class attends at most one lesson per slot; the second course of a simultaneous pair is left out
func classConstraints(state constraintState) []sat.Constraint {
	constraints := make([]sat.Constraint, 0)
	for class := range state.problem.classes {
		for day := range state.days {
			for hour := range state.hours {
				if lessons := state.indexer.ClassSlotLessons(class, day, hour); len(lessons) > 1 {
					constraints = append(constraints, sat.AtMost(lessons, 1))
				}
			}
		}
	}
	return constraints
}

func teacherConstraints(state constraintState) []sat.Constraint {
	constraints := make([]sat.Constraint, 0)
	for teacher := range state.problem.teachers {
		for day := range state.days {
			for hour := range state.hours {
				if lessons := state.indexer.TeacherSlotLessons(teacher, day, hour); len(lessons) > 1 {
					constraints = append(constraints, sat.AtMost(lessons, 1))
				}
			}
		}
	}
	return constraints
}

func roomConstraints(state constraintState) []sat.Constraint {
	if state.collapsed {
		return pooledRoomConstraints(state)
	}

	constraints := make([]sat.Constraint, 0)
	for room, roomInput := range state.problem.rooms {
		if !state.evaluator.Capacitated(room) {
			continue
		}
		for day := range state.days {
			for hour := range state.hours {
				if lessons := state.indexer.RoomSlotLessons(room, day, hour); len(lessons) > roomInput.Capacity {
					constraints = append(constraints, sat.AtMost(lessons, roomInput.Capacity))
				}
			}
		}
	}
	return constraints
}

// Without room variables, the entries whose eligible rooms all lie within the eligible rooms of some entry share their
// total capacity at every slot
func pooledRoomConstraints(state constraintState) []sat.Constraint {
	pools := make(map[string][]int)
	for _, entry := range state.problem.entries {
		if len(entry.rooms) > 0 && lo.EveryBy(entry.rooms, state.evaluator.Capacitated) {
			pools[fmt.Sprint(entry.rooms)] = entry.rooms
		}
	}
	keys := lo.Keys(pools)
	slices.Sort(keys)

	constraints := make([]sat.Constraint, 0)
	for _, key := range keys {
		pool := pools[key]
		capacity := lo.SumBy(pool, func(room int) int { return state.problem.rooms[room].Capacity })
		members := make([]int, 0)
		for i, entry := range state.problem.entries {
			if len(entry.rooms) > 0 && lo.Every(pool, entry.rooms) {
				members = append(members, i)
			}
		}

		for day := range state.days {
			for hour := range state.hours {
				lessons := lo.FlatMap(members, func(entry int, _ int) []int64 { return state.indexer.EntrySlotLessons(entry, day, hour) })
				if len(lessons) > capacity {
					constraints = append(constraints, sat.AtMost(lessons, capacity))
				}
			}
		}
	}
	return constraints
}

func dayOffConstraints(state constraintState) []sat.Constraint {
	constraints := make([]sat.Constraint, 0)
	for teacher := range state.problem.teachers {
		for day := range state.days {
			if state.evaluator.DayOff(teacher, day) {
				constraints = append(constraints, negated(state.indexer.TeacherDayLessons(teacher, day))...)
			}
		}
	}
	return constraints
}

func hourOffConstraints(state constraintState) []sat.Constraint {
	constraints := make([]sat.Constraint, 0)
	for teacher, teacherInput := range state.problem.teachers {
		for _, slot := range teacherInput.UnavailableSlots {
			// Slots outside the grid simply match no lesson
			constraints = append(constraints, negated(state.indexer.TeacherSlotLessons(teacher, slot[0], slot[1]-1))...)
		}
	}
	return constraints
}

func teacherDailyConstraints(state constraintState) []sat.Constraint {
	constraints := make([]sat.Constraint, 0)
	for teacher, teacherInput := range state.problem.teachers {
		for day := range state.days {
			if lessons := state.indexer.TeacherDayLessons(teacher, day); len(lessons) > teacherInput.MaxHoursPerDay {
				constraints = append(constraints, sat.AtMost(lessons, teacherInput.MaxHoursPerDay))
			}
		}
	}
	return constraints
}

// The hours an entry is taught on a day form a single contiguous block. The indicator of hour h holds exactly when a
// lesson of the entry is scheduled at h, and no indicator may hold between two others unless it holds as well
func contiguityConstraints(state constraintState) []sat.Constraint {
	constraints := make([]sat.Constraint, 0)
	for i := range state.problem.entries {
		if len(state.indexer.EntryLessons(i)) == 0 {
			continue
		}

		for day := range state.days {
			for hour := range state.hours {
				active := state.indexer.Active(i, day, hour)
				lessons := state.indexer.EntrySlotLessons(i, day, hour)
				for _, lesson := range lessons {
					constraints = append(constraints, sat.Clause(-lesson, active))
				}
				constraints = append(constraints, sat.Clause(append([]int64{-active}, lessons...)...))
			}

			for first := 0; first < state.hours; first++ {
				for middle := first + 1; middle < state.hours; middle++ {
					for last := middle + 1; last < state.hours; last++ {
						constraints = append(constraints, sat.Clause(
							-state.indexer.Active(i, day, first),
							state.indexer.Active(i, day, middle),
							-state.indexer.Active(i, day, last),
						))
					}
				}
			}
		}
	}
	return constraints
}

func courseDailyConstraints(state constraintState) []sat.Constraint {
	constraints := make([]sat.Constraint, 0)
	for i, entry := range state.problem.entries {
		for day := range state.days {
			if lessons := state.indexer.EntryDayLessons(i, day); len(lessons) > entry.dailyLimit() {
				constraints = append(constraints, sat.AtMost(lessons, entry.dailyLimit()))
			}
		}
	}
	return constraints
}

func lunchConstraints(state constraintState) []sat.Constraint {
	if !state.problem.config.HasLunch() {
		return nil
	}
	lunch := state.problem.config.LunchHour

	constraints := make([]sat.Constraint, 0)
	for i := range state.problem.entries {
		for day := range state.days {
			constraints = append(constraints, negated(state.indexer.EntrySlotLessons(i, day, lunch-1))...)
		}
	}
	return constraints
}

// Entries with a block size B are taught, on every day, nothing, whole blocks or the remainder of their weekly hours
func blockSizeConstraints(state constraintState) []sat.Constraint {
	constraints := make([]sat.Constraint, 0)
	for i, entry := range state.problem.entries {
		if entry.properties.BlockSize <= 1 {
			continue
		}

		durations := entry.blockDurations()
		for day := range state.days {
			if lessons := state.indexer.EntryDayLessons(i, day); len(lessons) > 0 {
				constraints = append(constraints, sat.Domain(lessons, durations))
			}
		}
	}
	return constraints
}

func dutyDayConstraints(state constraintState) []sat.Constraint {
	constraints := make([]sat.Constraint, 0)
	for teacher := range state.problem.teachers {
		for day := range state.days {
			if !state.evaluator.DutyDay(teacher, day) {
				continue
			}
			if lessons := state.indexer.TeacherDayLessons(teacher, day); len(lessons) > state.evaluator.DailyCap(teacher, day) {
				constraints = append(constraints, sat.AtMost(lessons, state.evaluator.DailyCap(teacher, day)))
			}
		}
	}
	return constraints
}

func preferenceConstraints(state constraintState) []sat.Constraint {
	constraints := make([]sat.Constraint, 0)
	for teacher := range state.problem.teachers {
		for hour := range state.hours {
			if !state.evaluator.OutsidePreference(teacher, hour) {
				continue
			}
			for day := range state.days {
				constraints = append(constraints, negated(state.indexer.TeacherSlotLessons(teacher, day, hour))...)
			}
		}
	}
	return constraints
}

// Both courses of a simultaneous pair are taught at exactly the same slots, once per slot
func simultaneityConstraints(state constraintState) []sat.Constraint {
	constraints := make([]sat.Constraint, 0)
	for _, pair := range state.problem.pairs {
		if pair.first < 0 || pair.second < 0 ||
			len(state.indexer.EntryLessons(pair.first)) == 0 || len(state.indexer.EntryLessons(pair.second)) == 0 {
			continue
		}

		for day := range state.days {
			for hour := range state.hours {
				first, second := state.indexer.Active(pair.first, day, hour), state.indexer.Active(pair.second, day, hour)
				constraints = append(constraints,
					sat.Clause(-first, second),
					sat.Clause(first, -second),
					sat.AtMost(state.indexer.EntrySlotLessons(pair.first, day, hour), 1),
					sat.AtMost(state.indexer.EntrySlotLessons(pair.second, day, hour), 1),
				)
			}
		}
	}
	return constraints
}

// A teacher whose load covers all of their available days teaches on every one of them
func presenceConstraints(state constraintState) []sat.Constraint {
	constraints := make([]sat.Constraint, 0)
	for teacher, load := range state.problem.teacherLoads {
		days := state.evaluator.AvailableDays(teacher)
		if load == 0 || load < len(days) {
			continue
		}
		for _, day := range days {
			constraints = append(constraints, sat.AtLeast(state.indexer.TeacherDayLessons(teacher, day), 1))
		}
	}
	return constraints
}

// A teacher present on a day teaches at least their daily floor on it
func dailyFloorConstraints(state constraintState) []sat.Constraint {
	constraints := make([]sat.Constraint, 0)
	for teacher, load := range state.problem.teacherLoads {
		if load == 0 {
			continue
		}
		for day := range state.days {
			floor := state.evaluator.DailyFloor(teacher, day)
			lessons := state.indexer.TeacherDayLessons(teacher, day)
			if floor <= 1 || len(lessons) == 0 {
				continue
			}

			allowed := []int{0}
			for count := floor; count <= len(lessons); count++ {
				allowed = append(allowed, count)
			}
			constraints = append(constraints, sat.Domain(lessons, allowed))
		}
	}
	return constraints
}

func negated(lessons []int64) []sat.Constraint {
	constraints := make([]sat.Constraint, 0, len(lessons))
	for _, lesson := range lessons {
		if lesson != 0 {
			constraints = append(constraints, sat.Unit(-lesson))
		}
	}
	return constraints
}
