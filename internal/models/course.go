package models

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx/types"
)

// Weekday codes used by TimeSlot. Course timetables never cross midnight,
// so a slot is fully described by a day plus start/end clock strings.
const (
	DayMonday    = "MONDAY"
	DayTuesday   = "TUESDAY"
	DayWednesday = "WEDNESDAY"
	DayThursday  = "THURSDAY"
	DayFriday    = "FRIDAY"
	DaySaturday  = "SATURDAY"
	DaySunday    = "SUNDAY"
)

var weekdayOrder = map[string]int{
	DayMonday:    1,
	DayTuesday:   2,
	DayWednesday: 3,
	DayThursday:  4,
	DayFriday:    5,
	DaySaturday:  6,
	DaySunday:    7,
}

// KnownWeekday reports whether the code is one of the seven weekday codes.
func KnownWeekday(day string) bool {
	_, ok := weekdayOrder[strings.ToUpper(day)]
	return ok
}

// WeekdayIndex returns a 1-based ordering index for a weekday code, or 0
// for an unknown code.
func WeekdayIndex(day string) int {
	return weekdayOrder[strings.ToUpper(day)]
}

// TimeSlot is one weekly meeting window. Start and End are 24h "HH:MM"
// strings with Start < End; the catalog boundary validates this, the
// overlap math assumes it.
type TimeSlot struct {
	Day   string `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// String renders the slot in the compact "DAY HH:MM-HH:MM" form used in
// prompts and exports.
func (t TimeSlot) String() string {
	return fmt.Sprintf("%s %s-%s", t.Day, t.Start, t.End)
}

// Course is one offered section of a course. ID is unique per section;
// Code groups interchangeable sections of the same course.
type Course struct {
	ID       string `db:"id" json:"id"`
	Code     string `db:"code" json:"code"`
	Name     string `db:"name" json:"name"`
	SKS      int    `db:"sks" json:"sks"`
	Class    string `db:"class" json:"class"`
	Lecturer string `db:"lecturer" json:"lecturer"`
	Room     string `db:"room" json:"room"`
	Prodi    string `db:"prodi" json:"prodi"`
	TermID   string `db:"term_id" json:"term_id"`

	// Schedule is decoded from RawSchedule by the catalog repository.
	Schedule    []TimeSlot     `db:"-" json:"schedule"`
	RawSchedule types.JSONText `db:"schedule" json:"-"`
}

// Label renders "CODE CLASS" for conflict messages and exports.
func (c Course) Label() string {
	if c.Class == "" {
		return c.Code
	}
	return fmt.Sprintf("%s %s", c.Code, c.Class)
}

// CourseFilter describes catalog query parameters.
type CourseFilter struct {
	Codes  []string
	Prodi  string
	TermID string
}
