package timetable_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akyuz/termflow/internal/app/models"
	"github.com/akyuz/termflow/internal/engine/timetable"
)

func section(id int64, days models.DaySet, start, end int) *models.ClassSection {
	return &models.ClassSection{
		ID:       id,
		CourseID: id * 10,
		Slot:     models.TimeSlot{Days: days, Start: start, End: end},
	}
}

const (
	nine      = 9 * 60
	tenThirty = 10*60 + 30
	twelve    = 12 * 60
)

func TestTouchingEndpointsDoNotConflict(t *testing.T) {
	// [9:00,10:30) and [10:30,12:00) on the same day: not a conflict
	a := section(1, models.Monday, nine, tenThirty)
	b := section(2, models.Monday, tenThirty, twelve)

	assert.Empty(t, timetable.Conflicts(42, []*models.ClassSection{a, b}))
}

func TestOneMinuteOverlapConflicts(t *testing.T) {
	// [9:00,10:31) and [10:30,12:00) overlap by one minute
	a := section(1, models.Monday, nine, tenThirty+1)
	b := section(2, models.Monday, tenThirty, twelve)

	conflicts := timetable.Conflicts(42, []*models.ClassSection{a, b})
	require.Len(t, conflicts, 1)

	c := conflicts[0]
	assert.Equal(t, int64(42), c.StudentID)
	assert.Equal(t, int64(1), c.SectionA)
	assert.Equal(t, int64(2), c.SectionB)
	assert.Equal(t, tenThirty, c.Overlap.Start)
	assert.Equal(t, tenThirty+1, c.Overlap.End)
}

func TestDisjointDaysNeverConflict(t *testing.T) {
	a := section(1, models.Monday, nine, twelve)
	b := section(2, models.Tuesday, nine, twelve)

	assert.Empty(t, timetable.Conflicts(42, []*models.ClassSection{a, b}))
}

func TestSharedDayInDaySets(t *testing.T) {
	// Mon+Wed vs Wed+Fri share Wednesday
	a := section(1, models.Monday|models.Wednesday, nine, twelve)
	b := section(2, models.Wednesday|models.Friday, nine, twelve)

	conflicts := timetable.Conflicts(42, []*models.ClassSection{a, b})
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.Wednesday, conflicts[0].Overlap.Days)
}

func TestContainedInterval(t *testing.T) {
	a := section(1, models.Friday, nine, twelve)
	b := section(2, models.Friday, nine+30, tenThirty)

	conflicts := timetable.Conflicts(7, []*models.ClassSection{a, b})
	require.Len(t, conflicts, 1)
	assert.Equal(t, nine+30, conflicts[0].Overlap.Start)
	assert.Equal(t, tenThirty, conflicts[0].Overlap.End)
}

func TestConflictsWithStopsEarly(t *testing.T) {
	held := []*models.ClassSection{
		section(1, models.Monday, nine, tenThirty),
		section(2, models.Tuesday, nine, tenThirty),
	}

	assert.True(t, timetable.ConflictsWith(section(3, models.Monday, nine+15, nine+45), held))
	assert.False(t, timetable.ConflictsWith(section(4, models.Wednesday, nine, twelve), held))
}

func TestValidateSchedulesIsDeterministic(t *testing.T) {
	schedules := map[int64][]*models.ClassSection{
		2: {section(1, models.Monday, nine, twelve), section(2, models.Monday, nine, twelve)},
		1: {section(3, models.Friday, nine, twelve), section(4, models.Friday, nine, twelve)},
	}

	first := timetable.ValidateSchedules(schedules)
	second := timetable.ValidateSchedules(schedules)
	require.Len(t, first, 2)
	assert.Equal(t, first, second)
	// Ordered by student ID
	assert.Equal(t, int64(1), first[0].StudentID)
	assert.Equal(t, int64(2), first[1].StudentID)
}

func TestThreeWayPileUp(t *testing.T) {
	sections := []*models.ClassSection{
		section(1, models.Monday, nine, twelve),
		section(2, models.Monday, nine, twelve),
		section(3, models.Monday, nine, twelve),
	}
	// Three sections, three colliding pairs
	assert.Len(t, timetable.Conflicts(5, sections), 3)
}
