package models

import "time"

// EligibilityResult is the per-(student, course) outcome of progress evaluation
type EligibilityResult struct {
	StudentID int64       `json:"studentId" db:"student_id" example:"42"`
	CourseID  int64       `json:"courseId" db:"course_id" example:"1"`
	Eligible  bool        `json:"eligible" db:"eligible" example:"true"`
	Reason    BlockReason `json:"reason,omitempty" db:"reason"`
	// CoreqGroup links courses that are only eligible together. All members
	// of the group share the same slice, student and eligibility flag.
	CoreqGroup []int64 `json:"coreqGroup,omitempty"`
}

// RetryPriority ranks a failed-and-now-eligible course for retake scheduling
type RetryPriority struct {
	StudentID int64   `json:"studentId" db:"student_id" example:"42"`
	CourseID  int64   `json:"courseId" db:"course_id" example:"4"`
	Score     float64 `json:"score" db:"score" example:"37.5"`
}

// CohortAssignment places one student into one class section
type CohortAssignment struct {
	StudentID int64 `json:"studentId" db:"student_id" example:"42"`
	SectionID int64 `json:"sectionId" db:"section_id" example:"101"`
	CourseID  int64 `json:"courseId" db:"course_id" example:"1"`
}

// UnassignedEntry reports a student the optimizer could not seat for a course
type UnassignedEntry struct {
	StudentID int64  `json:"studentId" db:"student_id" example:"42"`
	CourseID  int64  `json:"courseId" db:"course_id" example:"4"`
	Reason    string `json:"reason" db:"reason" example:"capacity exhausted"`
}

// ScheduleConflict describes two time-overlapping sections held by one student
type ScheduleConflict struct {
	StudentID int64    `json:"studentId" example:"42"`
	SectionA  int64    `json:"sectionA" example:"101"`
	SectionB  int64    `json:"sectionB" example:"104"`
	Overlap   TimeSlot `json:"overlap"`
}

// StudentFailure isolates a per-student evaluation error so one malformed
// record never aborts the whole term run
type StudentFailure struct {
	StudentID int64  `json:"studentId" db:"student_id" example:"42"`
	Message   string `json:"message" db:"message" example:"history entry 3: unknown outcome \"PASS\""`
}

// TermProgression is the derived term-in-program for one student
type TermProgression struct {
	StudentID int64 `json:"studentId" example:"42"`
	Term      int   `json:"term" example:"5"`
}

// Run is the persisted summary of one engine invocation
type Run struct {
	ID           string    `json:"id" db:"id" example:"7ba7f6f0-9a3e-4c38-9e1a-2f1f1d0be111"`
	Term         int       `json:"term" db:"term" example:"20251"`
	Status       RunStatus `json:"status" db:"status" example:"COMPLETED"`
	SnapshotHash string    `json:"snapshotHash" db:"snapshot_hash"`
	StartedAt    time.Time `json:"startedAt" db:"started_at"`
	FinishedAt   time.Time `json:"finishedAt" db:"finished_at"`

	// Statistics for capacity-planning dashboards
	StudentsEvaluated int `json:"studentsEvaluated" db:"students_evaluated" example:"1240"`
	StudentsFailed    int `json:"studentsFailed" db:"students_failed" example:"2"`
	AssignmentCount   int `json:"assignmentCount" db:"assignment_count" example:"5120"`
	UnassignedCount   int `json:"unassignedCount" db:"unassigned_count" example:"310"`
	SectionsClosed    int `json:"sectionsClosed" db:"sections_closed" example:"3"`
}
