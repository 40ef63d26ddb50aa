package models

// Course represents one catalog entry for an academic program.
// Immutable for the duration of a progression run.
type Course struct {
	ID           int64  `json:"id" db:"id" example:"1"`
	Code         string `json:"code" db:"code" example:"CENG201"`
	Name         string `json:"name" db:"name" example:"Data Structures"`
	DepartmentID int64  `json:"departmentId" db:"department_id" example:"3"`
	Credits      int    `json:"credits" db:"credits" example:"6"`
	Level        int    `json:"level" db:"level" example:"200"`              // Course level (100, 200, ...)
	EarliestTerm int    `json:"earliestTerm" db:"earliest_term" example:"3"` // First term-in-program the course is offered

	// Link tables, loaded with the course
	PrerequisiteIDs []int64 `json:"prerequisiteIds"`
	CorequisiteIDs  []int64 `json:"corequisiteIds"`
}
