package dto

import (
	"time"

	"github.com/akyuz/termflow/internal/app/models"
)

// StartRunRequest represents options for triggering a term run
type StartRunRequest struct {
	// Force re-runs the engine even when a cached result exists for the
	// same snapshot fingerprint.
	Force bool `json:"force"`
}

// RunResponse represents the persisted summary of one engine run
type RunResponse struct {
	ID                string    `json:"id" example:"7ba7f6f0-9a3e-4c38-9e1a-2f1f1d0be111"`
	Term              int       `json:"term" example:"20251"`
	Status            string    `json:"status" example:"COMPLETED"`
	SnapshotHash      string    `json:"snapshotHash"`
	StartedAt         time.Time `json:"startedAt"`
	FinishedAt        time.Time `json:"finishedAt"`
	StudentsEvaluated int       `json:"studentsEvaluated" example:"1240"`
	StudentsFailed    int       `json:"studentsFailed" example:"2"`
	AssignmentCount   int       `json:"assignmentCount" example:"5120"`
	UnassignedCount   int       `json:"unassignedCount" example:"310"`
	SectionsClosed    int       `json:"sectionsClosed" example:"3"`
	Cached            bool      `json:"cached"`
}

// ToRunResponse maps a run model to its API representation
func ToRunResponse(run *models.Run, cached bool) *RunResponse {
	return &RunResponse{
		ID:                run.ID,
		Term:              run.Term,
		Status:            string(run.Status),
		SnapshotHash:      run.SnapshotHash,
		StartedAt:         run.StartedAt,
		FinishedAt:        run.FinishedAt,
		StudentsEvaluated: run.StudentsEvaluated,
		StudentsFailed:    run.StudentsFailed,
		AssignmentCount:   run.AssignmentCount,
		UnassignedCount:   run.UnassignedCount,
		SectionsClosed:    run.SectionsClosed,
		Cached:            cached,
	}
}

// EligibilityListResponse represents eligibility results for a run
type EligibilityListResponse struct {
	RunID   string                     `json:"runId"`
	Results []models.EligibilityResult `json:"results"`
}

// PriorityListResponse represents ranked retake priorities for a run
type PriorityListResponse struct {
	RunID      string                 `json:"runId"`
	Priorities []models.RetryPriority `json:"priorities"`
}

// AssignmentListResponse represents cohort assignments produced by a run
type AssignmentListResponse struct {
	RunID       string                    `json:"runId"`
	Assignments []models.CohortAssignment `json:"assignments"`
}

// UnassignedListResponse represents demand the optimizer could not seat
type UnassignedListResponse struct {
	RunID      string                   `json:"runId"`
	Unassigned []models.UnassignedEntry `json:"unassigned"`
	Failures   []models.StudentFailure  `json:"failures,omitempty"`
}
