package models

// HistoryEntry records a single course attempt in a student's academic history
type HistoryEntry struct {
	CourseID int64         `json:"courseId" db:"course_id" example:"1"`
	Term     int           `json:"term" db:"term" example:"2"` // Term-in-program when the course was taken
	Outcome  CourseOutcome `json:"outcome" db:"outcome" example:"PASSED"`
	Grade    float64       `json:"grade" db:"grade" example:"72.5"`
}

// OverrideGrant waives one prerequisite requirement for one student
type OverrideGrant struct {
	CourseID  int64  `json:"courseId" db:"course_id" example:"4"` // The prerequisite course being waived
	Reason    string `json:"reason" db:"reason" example:"Transfer credit from prior institution"`
	GrantedBy string `json:"grantedBy" db:"granted_by" example:"registrar"`
}

// StudentRecord is the read-only academic snapshot of one student for a run.
// Owned by the upstream records system; the engine never mutates it.
type StudentRecord struct {
	ID        int64           `json:"id" db:"id" example:"42"`
	Number    string          `json:"number" db:"number" example:"20210042"` // Student number
	Major     string          `json:"major" db:"major" example:"CENG"`
	History   []HistoryEntry  `json:"history"`
	Overrides []OverrideGrant `json:"overrides"`
}

// Passed reports whether the student has passed the given course at or above
// the provided grade threshold.
func (s *StudentRecord) Passed(courseID int64, threshold float64) bool {
	for _, h := range s.History {
		if h.CourseID == courseID && h.Outcome == OutcomePassed && h.Grade >= threshold {
			return true
		}
	}
	return false
}

// HasOverride reports whether an override grant covers the given course
func (s *StudentRecord) HasOverride(courseID int64) bool {
	for _, g := range s.Overrides {
		if g.CourseID == courseID {
			return true
		}
	}
	return false
}
