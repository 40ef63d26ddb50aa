package services

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akyuz/termflow/internal/app/models"
	"github.com/akyuz/termflow/internal/app/models/dto"
)

func scheduleSection(id int64, days models.DaySet, start, end int) models.ClassSection {
	return models.ClassSection{
		ID:       id,
		CourseID: id,
		Term:     20251,
		Capacity: 30,
		Slot:     models.TimeSlot{Days: days, Start: start, End: end},
	}
}

func TestScheduleValidate_NoConflicts(t *testing.T) {
	svc := NewScheduleService(zerolog.Nop())

	resp, err := svc.Validate(&dto.ValidateScheduleRequest{
		Sections: []models.ClassSection{
			scheduleSection(101, models.Monday, 540, 630),
			scheduleSection(102, models.Monday, 630, 720),
		},
		Entries: []dto.ScheduleEntry{
			{StudentID: 1, SectionID: 101},
			{StudentID: 1, SectionID: 102},
		},
	})

	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Empty(t, resp.Conflicts)
	assert.NotNil(t, resp.Conflicts)
}

func TestScheduleValidate_ReportsOverlap(t *testing.T) {
	svc := NewScheduleService(zerolog.Nop())

	resp, err := svc.Validate(&dto.ValidateScheduleRequest{
		Sections: []models.ClassSection{
			scheduleSection(101, models.Monday|models.Wednesday, 540, 630),
			scheduleSection(102, models.Wednesday, 600, 690),
		},
		Entries: []dto.ScheduleEntry{
			{StudentID: 7, SectionID: 101},
			{StudentID: 7, SectionID: 102},
		},
	})

	require.NoError(t, err)
	assert.False(t, resp.Valid)
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, int64(7), resp.Conflicts[0].StudentID)
}

func TestScheduleValidate_ConflictsAreScopedPerStudent(t *testing.T) {
	svc := NewScheduleService(zerolog.Nop())

	// Two students hold overlapping sections, but never within one schedule
	resp, err := svc.Validate(&dto.ValidateScheduleRequest{
		Sections: []models.ClassSection{
			scheduleSection(101, models.Tuesday, 540, 630),
			scheduleSection(102, models.Tuesday, 540, 630),
		},
		Entries: []dto.ScheduleEntry{
			{StudentID: 1, SectionID: 101},
			{StudentID: 2, SectionID: 102},
		},
	})

	require.NoError(t, err)
	assert.True(t, resp.Valid)
}

func TestScheduleValidate_UnknownSection(t *testing.T) {
	svc := NewScheduleService(zerolog.Nop())

	_, err := svc.Validate(&dto.ValidateScheduleRequest{
		Sections: []models.ClassSection{
			scheduleSection(101, models.Monday, 540, 630),
		},
		Entries: []dto.ScheduleEntry{
			{StudentID: 1, SectionID: 999},
		},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown section id 999")
}

func TestScheduleValidate_DuplicateSectionID(t *testing.T) {
	svc := NewScheduleService(zerolog.Nop())

	_, err := svc.Validate(&dto.ValidateScheduleRequest{
		Sections: []models.ClassSection{
			scheduleSection(101, models.Monday, 540, 630),
			scheduleSection(101, models.Friday, 540, 630),
		},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate section id 101")
}
