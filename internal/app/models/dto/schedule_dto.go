package dto

import "github.com/akyuz/termflow/internal/app/models"

// ScheduleEntry pairs a student with one section they hold
type ScheduleEntry struct {
	StudentID int64 `json:"studentId" binding:"required,min=1"`
	SectionID int64 `json:"sectionId" binding:"required,min=1"`
}

// ValidateScheduleRequest represents a bulk conflict-detection request.
// Sections may be posted inline; entries referencing unknown section IDs
// are rejected.
type ValidateScheduleRequest struct {
	Sections []models.ClassSection `json:"sections" binding:"required,min=1,dive"`
	Entries  []ScheduleEntry       `json:"entries" binding:"required,min=1,dive"`
}

// ValidateScheduleResponse reports every pairwise conflict found
type ValidateScheduleResponse struct {
	Valid     bool                      `json:"valid"`
	Conflicts []models.ScheduleConflict `json:"conflicts"`
}
