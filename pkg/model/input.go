package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

const (
	DefaultHoursPerDay      = 8
	MinHoursPerDay          = 5
	MaxHoursPerDay          = 12
	DefaultTeacherDailyMax  = 8
	DefaultCourseDailyMax   = 2
	DefaultBlockSize        = 1
	DefaultRoomCapacity     = 1
	DefaultDutyDayReduction = 2
	DefaultMinDailyHours    = 2
	// Used when the school declares no room at all; it is never capacity-constrained
	DefaultRoomName = "Default Room"
)

var Days = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

type Mode string

const (
	// Balance by class load only
	ModeClass Mode = "class"
	// Additionally enforce and balance room capacity
	ModeRoom Mode = "room"
)

type Preference string

const (
	PreferenceNone      Preference = ""
	PreferenceMorning   Preference = "morning"
	PreferenceAfternoon Preference = "afternoon"
)

type Teacher struct {
	Name             string
	Branch           string
	UnavailableDays  []int    // Day indices (0 = Monday)
	UnavailableSlots [][2]int // (day index, 1-based hour) pairs
	MaxHoursPerDay   int
	DutyDays         []int
	Preference       Preference
}

type Course struct {
	Name          string
	Branch        string
	MaxDailyHours int
	SpecificRoom  string
	BlockSize     int
}

type Class struct {
	Name         string
	Lessons      map[string]int    // Course name -> desired weekly hours
	Assignments  map[string]string // Course name -> teacher name
	Simultaneous [][2]string       // Course pairs that must share every slot
}

type Room struct {
	Name            string
	Capacity        int
	Branches        []string
	Teachers        []string
	Courses         []string
	ExcludedCourses []string
}

type Config struct {
	Mode             Mode
	LunchHour        int // 1-based hour index, 0 when there is no lunch break
	HoursPerDay      int
	DutyDayReduction int
	MinDailyHours    int
}

type ModelInput struct {
	Teachers []Teacher
	Courses  []Course
	Classes  []Class
	Rooms    []Room
	Config   Config
}

// WeeklySlots returns the number of teachable slots in a week
func (config Config) WeeklySlots() int {
	return len(Days) * config.DailySlots()
}

// DailySlots returns the number of teachable hours in a day
func (config Config) DailySlots() int {
	if config.HasLunch() {
		return config.HoursPerDay - 1
	}
	return config.HoursPerDay
}

// HasLunch reports whether the lunch hour falls within the day
func (config Config) HasLunch() bool {
	return config.LunchHour >= 1 && config.LunchHour <= config.HoursPerDay
}

type RawTeacher struct {
	Name             string   `mapstructure:"name" json:"name"`
	Branch           string   `mapstructure:"branch" json:"branch"`
	UnavailableDays  []string `mapstructure:"unavailable_days" json:"unavailable_days"`
	UnavailableSlots []string `mapstructure:"unavailable_slots" json:"unavailable_slots"`
	MaxHoursPerDay   any      `mapstructure:"max_hours_per_day" json:"max_hours_per_day"`
	DutyDays         []string `mapstructure:"duty_day" json:"duty_day"`
	Preference       string   `mapstructure:"preference" json:"preference"`
}

type RawCourse struct {
	Name          string `mapstructure:"name" json:"name"`
	Branch        string `mapstructure:"branch" json:"branch"`
	MaxDailyHours any    `mapstructure:"max_daily_hours" json:"max_daily_hours"`
	SpecificRoom  string `mapstructure:"specific_room" json:"specific_room"`
	BlockSize     any    `mapstructure:"block_size" json:"block_size"`
}

// RawModelInput mirrors the loosely-typed collections and mappings supplied by the data-entry layer
type RawModelInput struct {
	Teachers            []RawTeacher                 `mapstructure:"teachers" json:"teachers"`
	Courses             []RawCourse                  `mapstructure:"courses" json:"courses"`
	Classes             []string                     `mapstructure:"classes" json:"classes"`
	ClassLessons        map[string]map[string]any    `mapstructure:"class_lessons" json:"class_lessons"`
	Assignments         map[string]map[string]string `mapstructure:"assignments" json:"assignments"`
	Rooms               []string                     `mapstructure:"rooms" json:"rooms"`
	RoomCapacities      map[string]any               `mapstructure:"room_capacities" json:"room_capacities"`
	RoomBranches        map[string][]string          `mapstructure:"room_branches" json:"room_branches"`
	RoomTeachers        map[string][]string          `mapstructure:"room_teachers" json:"room_teachers"`
	RoomCourses         map[string][]string          `mapstructure:"room_courses" json:"room_courses"`
	RoomExcludedCourses map[string][]string          `mapstructure:"room_excluded_courses" json:"room_excluded_courses"`
	SimultaneousLessons map[string][][]string        `mapstructure:"simultaneous_lessons" json:"simultaneous_lessons"`
	Mode                string                       `mapstructure:"mode" json:"mode"`
	LunchBreakHour      any                          `mapstructure:"lunch_break_hour" json:"lunch_break_hour"`
	NumHours            any                          `mapstructure:"num_hours" json:"num_hours"`
	DutyDayReduction    any                          `mapstructure:"duty_day_reduction" json:"duty_day_reduction"`
	MinDailyHours       any                          `mapstructure:"min_daily_hours" json:"min_daily_hours"`
}

func InputFromJson(file string) (ModelInput, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return ModelInput{}, err
	}
	var inputJson map[string]any
	if err := json.Unmarshal(bytes, &inputJson); err != nil {
		return ModelInput{}, err
	}

	rawInput, err := DecodeRawInput(inputJson)
	if err != nil {
		return ModelInput{}, err
	}
	return ProcessRawInput(rawInput), nil
}

// DecodeRawInput decodes generic JSON data with weak typing: single values are lifted into lists, numbers into strings
// and so on, so that hand-edited data does not abort the decoding
func DecodeRawInput(data map[string]any) (RawModelInput, error) {
	var rawInput RawModelInput
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(dropNullsHook, trimSpaceHook),
		Result:           &rawInput,
	})
	if err != nil {
		return RawModelInput{}, err
	}
	if err := decoder.Decode(data); err != nil {
		return RawModelInput{}, fmt.Errorf("cannot decode input: %w", err)
	}
	return rawInput, nil
}

func trimSpaceHook(from reflect.Kind, to reflect.Kind, data any) (any, error) {
	if from == reflect.String && to == reflect.String {
		return strings.TrimSpace(data.(string)), nil
	}
	return data, nil
}

// Null list entries (e.g. empty spreadsheet cells) are dropped instead of failing the whole list
func dropNullsHook(from reflect.Kind, to reflect.Kind, data any) (any, error) {
	if from != reflect.Slice || to != reflect.Slice {
		return data, nil
	}
	values, ok := data.([]any)
	if !ok {
		return data, nil
	}
	return lo.Filter(values, func(value any, _ int) bool { return value != nil }), nil
}

// ProcessRawInput normalizes raw input into the model's entities. Malformed values degrade to their defaults and
// unusable records (e.g. nameless teachers) are dropped; the first record wins when names repeat
func ProcessRawInput(rawInput RawModelInput) ModelInput {
	config := processConfig(rawInput)
	input := ModelInput{Config: config}

	//** Manage teachers
	seenTeachers := make(map[string]bool)
	for _, rawTeacher := range rawInput.Teachers {
		name := strings.TrimSpace(rawTeacher.Name)
		if name == "" || seenTeachers[name] {
			continue
		}
		seenTeachers[name] = true

		slots := make([][2]int, 0, len(rawTeacher.UnavailableSlots))
		for _, slot := range rawTeacher.UnavailableSlots {
			if day, hour, ok := parseSlot(slot); ok {
				slots = append(slots, [2]int{day, hour})
			}
		}

		input.Teachers = append(input.Teachers, Teacher{
			Name:             name,
			Branch:           strings.TrimSpace(rawTeacher.Branch),
			UnavailableDays:  parseDays(rawTeacher.UnavailableDays),
			UnavailableSlots: lo.Uniq(slots),
			MaxHoursPerDay:   max(0, safeInt(rawTeacher.MaxHoursPerDay, DefaultTeacherDailyMax)),
			DutyDays:         parseDays(rawTeacher.DutyDays),
			Preference:       parsePreference(rawTeacher.Preference),
		})
	}

	//** Manage courses
	seenCourses := make(map[string]bool)
	for _, rawCourse := range rawInput.Courses {
		name := strings.TrimSpace(rawCourse.Name)
		if name == "" || seenCourses[name] {
			continue
		}
		seenCourses[name] = true

		input.Courses = append(input.Courses, Course{
			Name:          name,
			Branch:        strings.TrimSpace(rawCourse.Branch),
			MaxDailyHours: max(0, safeInt(rawCourse.MaxDailyHours, DefaultCourseDailyMax)),
			SpecificRoom:  strings.TrimSpace(rawCourse.SpecificRoom),
			BlockSize:     max(1, safeInt(rawCourse.BlockSize, DefaultBlockSize)),
		})
	}

	//** Manage classes
	classNames := rawInput.Classes
	if len(classNames) == 0 {
		classNames = lo.Keys(rawInput.ClassLessons)
		slices.Sort(classNames)
	}
	seenClasses := make(map[string]bool)
	for _, rawName := range classNames {
		name := strings.TrimSpace(rawName)
		if name == "" || seenClasses[name] {
			continue
		}
		seenClasses[name] = true

		class := Class{
			Name:        name,
			Lessons:     make(map[string]int),
			Assignments: make(map[string]string),
		}
		for course, hours := range lookup(rawInput.ClassLessons, rawName, name) {
			if count := safeInt(hours, 0); count > 0 && strings.TrimSpace(course) != "" {
				class.Lessons[strings.TrimSpace(course)] = count
			}
		}
		for course, teacher := range lookup(rawInput.Assignments, rawName, name) {
			if teacher = strings.TrimSpace(teacher); teacher != "" {
				class.Assignments[strings.TrimSpace(course)] = teacher
			}
		}
		for _, pair := range lookup(rawInput.SimultaneousLessons, rawName, name) {
			if len(pair) >= 2 {
				class.Simultaneous = append(class.Simultaneous, [2]string{strings.TrimSpace(pair[0]), strings.TrimSpace(pair[1])})
			}
		}
		input.Classes = append(input.Classes, class)
	}

	//** Manage rooms
	seenRooms := make(map[string]bool)
	for _, rawName := range rawInput.Rooms {
		name := strings.TrimSpace(rawName)
		if name == "" || seenRooms[name] {
			continue
		}
		seenRooms[name] = true

		input.Rooms = append(input.Rooms, Room{
			Name:            name,
			Capacity:        max(0, safeInt(lookup(rawInput.RoomCapacities, rawName, name), DefaultRoomCapacity)),
			Branches:        trimAll(lookup(rawInput.RoomBranches, rawName, name)),
			Teachers:        trimAll(lookup(rawInput.RoomTeachers, rawName, name)),
			Courses:         trimAll(lookup(rawInput.RoomCourses, rawName, name)),
			ExcludedCourses: trimAll(lookup(rawInput.RoomExcludedCourses, rawName, name)),
		})
	}

	return input
}

func processConfig(rawInput RawModelInput) Config {
	config := Config{
		Mode:             ModeClass,
		HoursPerDay:      min(MaxHoursPerDay, max(MinHoursPerDay, safeInt(rawInput.NumHours, DefaultHoursPerDay))),
		DutyDayReduction: max(0, safeInt(rawInput.DutyDayReduction, DefaultDutyDayReduction)),
		MinDailyHours:    max(0, safeInt(rawInput.MinDailyHours, DefaultMinDailyHours)),
	}
	if strings.EqualFold(strings.TrimSpace(rawInput.Mode), string(ModeRoom)) {
		config.Mode = ModeRoom
	}
	if lunch := safeInt(rawInput.LunchBreakHour, 0); lunch >= 1 && lunch <= config.HoursPerDay {
		config.LunchHour = lunch
	}
	return config
}

// Looks a name up by its raw spelling first and by its trimmed one second
func lookup[T any](values map[string]T, rawName, name string) T {
	if value, ok := values[rawName]; ok {
		return value
	}
	return values[name]
}

func trimAll(values []string) []string {
	trimmed := lo.Filter(
		lo.Map(values, func(value string, _ int) string { return strings.TrimSpace(value) }),
		func(value string, _ int) bool { return value != "" },
	)
	if len(trimmed) == 0 {
		return nil
	}
	return trimmed
}

// safeInt converts loosely-typed numbers, returning fallback for missing or unparsable values
func safeInt(value any, fallback int) int {
	switch typed := value.(type) {
	case nil:
		return fallback
	case int:
		return typed
	case int64:
		return int(typed)
	case int32:
		return int(typed)
	case uint64:
		return int(typed)
	case float32:
		return safeInt(float64(typed), fallback)
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return fallback
		}
		return int(typed)
	case json.Number:
		if number, err := typed.Float64(); err == nil {
			return safeInt(number, fallback)
		}
	case string:
		trimmed := strings.TrimSpace(typed)
		if number, err := strconv.Atoi(trimmed); err == nil {
			return number
		}
		if number, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return safeInt(number, fallback)
		}
	}
	return fallback
}

// ParseDay returns the index of a weekday given its full or three-letter English name
func ParseDay(name string) (int, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) < 3 {
		return 0, false
	}
	for i, day := range Days {
		day = strings.ToLower(day)
		if name == day || name == day[:3] {
			return i, true
		}
	}
	return 0, false
}

func parseDays(names []string) []int {
	days := make([]int, 0, len(names))
	for _, name := range names {
		if day, ok := ParseDay(name); ok && !slices.Contains(days, day) {
			days = append(days, day)
		}
	}
	slices.Sort(days)
	return days
}

// Parses a "Day:Hour" slot such as "Monday:3"
func parseSlot(slot string) (day int, hour int, ok bool) {
	dayStr, hourStr, found := strings.Cut(slot, ":")
	if !found {
		return 0, 0, false
	}
	day, ok = ParseDay(dayStr)
	if !ok {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(strings.TrimSpace(hourStr))
	if err != nil || hour < 1 {
		return 0, 0, false
	}
	return day, hour, true
}

func parsePreference(preference string) Preference {
	switch strings.ToLower(strings.TrimSpace(preference)) {
	case string(PreferenceMorning):
		return PreferenceMorning
	case string(PreferenceAfternoon):
		return PreferenceAfternoon
	}
	return PreferenceNone
}
