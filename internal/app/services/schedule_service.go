package services

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/akyuz/termflow/internal/app/models"
	"github.com/akyuz/termflow/internal/app/models/dto"
	"github.com/akyuz/termflow/internal/engine/timetable"
)

// ScheduleService runs standalone conflict detection over posted schedules
type ScheduleService struct {
	logger zerolog.Logger
}

// NewScheduleService creates a new ScheduleService
func NewScheduleService(logger zerolog.Logger) *ScheduleService {
	return &ScheduleService{logger: logger}
}

// Validate detects every pairwise time conflict in the posted schedule.
// Entries referencing unknown section IDs are rejected before detection.
func (s *ScheduleService) Validate(req *dto.ValidateScheduleRequest) (*dto.ValidateScheduleResponse, error) {
	byID := make(map[int64]*models.ClassSection, len(req.Sections))
	for i := range req.Sections {
		section := &req.Sections[i]
		if _, exists := byID[section.ID]; exists {
			return nil, fmt.Errorf("duplicate section id %d", section.ID)
		}
		byID[section.ID] = section
	}

	schedules := make(map[int64][]*models.ClassSection)
	for _, entry := range req.Entries {
		section, ok := byID[entry.SectionID]
		if !ok {
			return nil, fmt.Errorf("entry references unknown section id %d", entry.SectionID)
		}
		schedules[entry.StudentID] = append(schedules[entry.StudentID], section)
	}

	conflicts := timetable.ValidateSchedules(schedules)
	if conflicts == nil {
		conflicts = []models.ScheduleConflict{}
	}

	s.logger.Debug().
		Int("students", len(schedules)).
		Int("conflicts", len(conflicts)).
		Msg("Schedule validation completed")

	return &dto.ValidateScheduleResponse{
		Valid:     len(conflicts) == 0,
		Conflicts: conflicts,
	}, nil
}
