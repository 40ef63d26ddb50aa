package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akyuz/termflow/internal/app/models"
	"github.com/akyuz/termflow/internal/pkg/logger"
)

// Course error types
var (
	// ErrCourseNotFound is returned when a course is not found.
	ErrCourseNotFound = ErrNotFound
	// ErrCourseAlreadyExists is returned when a course with the same code exists.
	ErrCourseAlreadyExists = errors.New("course with this code already exists")
)

// CourseRepository handles catalog database operations
type CourseRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewCourseRepository creates a new CourseRepository
func NewCourseRepository(db *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a course together with its prerequisite and corequisite links
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sql, args, err := r.sb.Insert("courses").
		Columns("code", "name", "department_id", "credits", "level", "earliest_term").
		Values(course.Code, course.Name, course.DepartmentID, course.Credits, course.Level, course.EarliestTerm).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build create course query: %w", err)
	}

	var id int64
	if err := tx.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		if isDuplicateKeyError(err) {
			return 0, ErrCourseAlreadyExists
		}
		logger.Error().Err(err).Msg("Error executing create course query")
		return 0, fmt.Errorf("error creating course: %w", err)
	}

	if err := r.insertLinks(ctx, tx, "course_prerequisites", id, course.PrerequisiteIDs); err != nil {
		return 0, err
	}
	if err := r.insertLinks(ctx, tx, "course_corequisites", id, course.CorequisiteIDs); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit course: %w", err)
	}

	course.ID = id
	return id, nil
}

func (r *CourseRepository) insertLinks(ctx context.Context, tx pgx.Tx, table string, courseID int64, linked []int64) error {
	if len(linked) == 0 {
		return nil
	}

	builder := r.sb.Insert(table).Columns("course_id", "linked_course_id")
	for _, linkedID := range linked {
		builder = builder.Values(courseID, linkedID)
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build %s query: %w", table, err)
	}
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error inserting %s: %w", table, err)
	}
	return nil
}

// GetByID retrieves a course by ID, with prerequisite and corequisite IDs loaded
func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*models.Course, error) {
	sql, args, err := r.sb.Select("id", "code", "name", "department_id", "credits", "level", "earliest_term").
		From("courses").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get course query: %w", err)
	}

	course := &models.Course{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&course.ID,
		&course.Code,
		&course.Name,
		&course.DepartmentID,
		&course.Credits,
		&course.Level,
		&course.EarliestTerm,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("error retrieving course: %w", err)
	}

	links, err := r.loadLinks(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	course.PrerequisiteIDs = links.prereqs[id]
	course.CorequisiteIDs = links.coreqs[id]

	return course, nil
}

// GetAll retrieves the full catalog with prerequisite and corequisite links
func (r *CourseRepository) GetAll(ctx context.Context) ([]*models.Course, error) {
	sql, args, err := r.sb.Select("id", "code", "name", "department_id", "credits", "level", "earliest_term").
		From("courses").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list courses query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing courses: %w", err)
	}
	defer rows.Close()

	var courses []*models.Course
	var ids []int64
	for rows.Next() {
		course := &models.Course{}
		if err := rows.Scan(
			&course.ID,
			&course.Code,
			&course.Name,
			&course.DepartmentID,
			&course.Credits,
			&course.Level,
			&course.EarliestTerm,
		); err != nil {
			return nil, err
		}
		courses = append(courses, course)
		ids = append(ids, course.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	links, err := r.loadLinks(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, course := range courses {
		course.PrerequisiteIDs = links.prereqs[course.ID]
		course.CorequisiteIDs = links.coreqs[course.ID]
	}

	return courses, nil
}

type courseLinks struct {
	prereqs map[int64][]int64
	coreqs  map[int64][]int64
}

func (r *CourseRepository) loadLinks(ctx context.Context, courseIDs []int64) (*courseLinks, error) {
	links := &courseLinks{
		prereqs: make(map[int64][]int64),
		coreqs:  make(map[int64][]int64),
	}
	if len(courseIDs) == 0 {
		return links, nil
	}

	if err := r.loadLinkTable(ctx, "course_prerequisites", courseIDs, links.prereqs); err != nil {
		return nil, err
	}
	if err := r.loadLinkTable(ctx, "course_corequisites", courseIDs, links.coreqs); err != nil {
		return nil, err
	}
	return links, nil
}

func (r *CourseRepository) loadLinkTable(ctx context.Context, table string, courseIDs []int64, dest map[int64][]int64) error {
	sql, args, err := r.sb.Select("course_id", "linked_course_id").
		From(table).
		Where(squirrel.Eq{"course_id": courseIDs}).
		OrderBy("course_id", "linked_course_id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build %s query: %w", table, err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error loading %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var courseID, linkedID int64
		if err := rows.Scan(&courseID, &linkedID); err != nil {
			return err
		}
		dest[courseID] = append(dest[courseID], linkedID)
	}
	return rows.Err()
}

// Delete removes a course and its links
func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("courses").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete course query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error deleting course: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCourseNotFound
	}
	return nil
}
