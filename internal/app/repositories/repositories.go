package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories holds all the repository instances
type Repositories struct {
	CourseRepository  *CourseRepository
	StudentRepository *StudentRepository
	SectionRepository *SectionRepository
	RunRepository     *RunRepository
	ClientRepository  *ClientRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		CourseRepository:  NewCourseRepository(db),
		StudentRepository: NewStudentRepository(db),
		SectionRepository: NewSectionRepository(db),
		RunRepository:     NewRunRepository(db),
		ClientRepository:  NewClientRepository(db),
	}
}
