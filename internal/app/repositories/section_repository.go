package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akyuz/termflow/internal/app/models"
)

// ErrSectionNotFound is returned when a class section is not found.
var ErrSectionNotFound = ErrNotFound

// SectionRepository handles class section database operations
type SectionRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewSectionRepository creates a new SectionRepository
func NewSectionRepository(db *pgxpool.Pool) *SectionRepository {
	return &SectionRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID retrieves a section by ID
func (r *SectionRepository) GetByID(ctx context.Context, id int64) (*models.ClassSection, error) {
	sql, args, err := r.selectSections().
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get section query: %w", err)
	}

	section := &models.ClassSection{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&section.ID,
		&section.CourseID,
		&section.Term,
		&section.Capacity,
		&section.Slot.Days,
		&section.Slot.Start,
		&section.Slot.End,
		&section.Room,
		&section.InstructorID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSectionNotFound
		}
		return nil, fmt.Errorf("error retrieving section: %w", err)
	}
	return section, nil
}

// GetByTerm retrieves every section offered in a term
func (r *SectionRepository) GetByTerm(ctx context.Context, term int) ([]*models.ClassSection, error) {
	sql, args, err := r.selectSections().
		Where(squirrel.Eq{"term": term}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list sections query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing sections: %w", err)
	}
	defer rows.Close()

	var sections []*models.ClassSection
	for rows.Next() {
		section := &models.ClassSection{}
		if err := rows.Scan(
			&section.ID,
			&section.CourseID,
			&section.Term,
			&section.Capacity,
			&section.Slot.Days,
			&section.Slot.Start,
			&section.Slot.End,
			&section.Room,
			&section.InstructorID,
		); err != nil {
			return nil, err
		}
		sections = append(sections, section)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sections, nil
}

// GetEnrollmentsByTerm retrieves confirmed enrollments already occupying
// seats in the term's sections
func (r *SectionRepository) GetEnrollmentsByTerm(ctx context.Context, term int) ([]models.CohortAssignment, error) {
	sql, args, err := r.sb.Select("e.student_id", "e.section_id", "s.course_id").
		From("enrollments e").
		Join("class_sections s ON s.id = e.section_id").
		Where(squirrel.Eq{"s.term": term}).
		OrderBy("e.student_id", "e.section_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build enrollments query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []models.CohortAssignment
	for rows.Next() {
		var enrollment models.CohortAssignment
		if err := rows.Scan(&enrollment.StudentID, &enrollment.SectionID, &enrollment.CourseID); err != nil {
			return nil, err
		}
		enrollments = append(enrollments, enrollment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return enrollments, nil
}

func (r *SectionRepository) selectSections() squirrel.SelectBuilder {
	return r.sb.Select(
		"id", "course_id", "term", "capacity",
		"days", "start_minute", "end_minute",
		"room", "instructor_id",
	).From("class_sections")
}
