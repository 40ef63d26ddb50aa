package dto

import "github.com/akyuz/termflow/internal/app/models"

// CourseResponse represents one catalog course
type CourseResponse struct {
	ID              int64   `json:"id" example:"1"`
	Code            string  `json:"code" example:"CS-201"`
	Name            string  `json:"name" example:"Data Structures"`
	DepartmentID    int64   `json:"departmentId" example:"3"`
	Credits         int     `json:"credits" example:"6"`
	Level           int     `json:"level" example:"200"`
	EarliestTerm    int     `json:"earliestTerm" example:"3"`
	PrerequisiteIDs []int64 `json:"prerequisiteIds"`
	CorequisiteIDs  []int64 `json:"corequisiteIds"`
	// BlockingCount is the number of downstream courses this one gates,
	// directly or transitively.
	BlockingCount int `json:"blockingCount" example:"4"`
}

// ToCourseResponse maps a course model plus its reachability count
func ToCourseResponse(course *models.Course, blockingCount int) *CourseResponse {
	return &CourseResponse{
		ID:              course.ID,
		Code:            course.Code,
		Name:            course.Name,
		DepartmentID:    course.DepartmentID,
		Credits:         course.Credits,
		Level:           course.Level,
		EarliestTerm:    course.EarliestTerm,
		PrerequisiteIDs: course.PrerequisiteIDs,
		CorequisiteIDs:  course.CorequisiteIDs,
		BlockingCount:   blockingCount,
	}
}

// BlockedCoursesResponse lists every course transitively gated by one course
type BlockedCoursesResponse struct {
	CourseID int64   `json:"courseId" example:"4"`
	Blocked  []int64 `json:"blocked"`
}

// ValidateCatalogRequest represents an inline catalog to cycle-check
type ValidateCatalogRequest struct {
	Courses []models.Course `json:"courses" binding:"required,min=1,dive"`
}

// ValidateCatalogResponse reports the result of a catalog cycle check
type ValidateCatalogResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty" example:"prerequisite cycle detected involving course 4"`
}
