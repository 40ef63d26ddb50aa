// Package timetable detects time collisions between class sections.
package timetable

import (
	"sort"

	"github.com/akyuz/termflow/internal/app/models"
)

// Overlap returns the shared interval of two colliding slots. The day set of
// the result is the intersection of the inputs. Callers must only use it
// when the slots actually overlap.
func Overlap(a, b models.TimeSlot) models.TimeSlot {
	start := a.Start
	if b.Start > start {
		start = b.Start
	}
	end := a.End
	if b.End < end {
		end = b.End
	}
	return models.TimeSlot{Days: a.Days & b.Days, Start: start, End: end}
}

// Conflicts runs a pairwise scan over one student's sections and returns
// every colliding pair. Two sections conflict iff they share at least one
// day and their half-open [start, end) intervals intersect; a section ending
// exactly when another begins is not a conflict.
func Conflicts(studentID int64, sections []*models.ClassSection) []models.ScheduleConflict {
	var out []models.ScheduleConflict
	for i := 0; i < len(sections); i++ {
		for j := i + 1; j < len(sections); j++ {
			a, b := sections[i], sections[j]
			if !a.Slot.Overlaps(b.Slot) {
				continue
			}
			out = append(out, models.ScheduleConflict{
				StudentID: studentID,
				SectionA:  a.ID,
				SectionB:  b.ID,
				Overlap:   Overlap(a.Slot, b.Slot),
			})
		}
	}
	return out
}

// ConflictsWith reports whether a candidate section collides with any
// section already held. This is the hot path of the cohort optimizer, so it
// stops at the first collision.
func ConflictsWith(candidate *models.ClassSection, held []*models.ClassSection) bool {
	for _, s := range held {
		if candidate.Slot.Overlaps(s.Slot) {
			return true
		}
	}
	return false
}

// ValidateSchedules bulk-checks many students' schedules in one pass, for
// post-hoc validation of proposed additions. Results are ordered by student
// ID so repeated validations of the same input compare equal.
func ValidateSchedules(schedules map[int64][]*models.ClassSection) []models.ScheduleConflict {
	students := make([]int64, 0, len(schedules))
	for id := range schedules {
		students = append(students, id)
	}
	sort.Slice(students, func(i, j int) bool { return students[i] < students[j] })

	var out []models.ScheduleConflict
	for _, id := range students {
		out = append(out, Conflicts(id, schedules[id])...)
	}
	return out
}
