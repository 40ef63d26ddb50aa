package models

import "fmt"

// DaySet is a bitmask of weekdays, Monday = bit 0 through Sunday = bit 6
type DaySet uint8

// Weekday bits
const (
	Monday DaySet = 1 << iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// SharesDay reports whether two day sets have at least one day in common
func (d DaySet) SharesDay(other DaySet) bool {
	return d&other != 0
}

// TimeSlot is a weekly recurring meeting time. Start and End are minutes
// from midnight; the interval is half-open [Start, End).
type TimeSlot struct {
	Days  DaySet `json:"days" db:"days" example:"5"`            // Bitmask, e.g. Monday|Wednesday = 5
	Start int    `json:"start" db:"start_minute" example:"540"` // 09:00
	End   int    `json:"end" db:"end_minute" example:"630"`     // 10:30
}

// Overlaps reports whether two slots collide: they must share a day and
// their half-open intervals must intersect. A slot ending exactly when the
// other starts does not overlap.
func (t TimeSlot) Overlaps(other TimeSlot) bool {
	if !t.Days.SharesDay(other.Days) {
		return false
	}
	return t.Start < other.End && other.Start < t.End
}

// String renders the slot as HH:MM-HH:MM for logs and reports
func (t TimeSlot) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", t.Start/60, t.Start%60, t.End/60, t.End%60)
}

// ClassSection is one scheduled offering of a course in a term.
// Capacity is fixed; occupancy lives inside the optimizer, never here.
type ClassSection struct {
	ID           int64    `json:"id" db:"id" example:"101"`
	CourseID     int64    `json:"courseId" db:"course_id" example:"1"`
	Term         int      `json:"term" db:"term" example:"20251"`
	Capacity     int      `json:"capacity" db:"capacity" example:"30"`
	Slot         TimeSlot `json:"slot"`
	Room         string   `json:"room" db:"room" example:"B-204"`
	InstructorID int64    `json:"instructorId" db:"instructor_id" example:"7"`
}
