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

// ErrStudentNotFound is returned when a student record is not found.
var ErrStudentNotFound = ErrNotFound

// StudentRepository handles student record database operations
type StudentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewStudentRepository creates a new StudentRepository
func NewStudentRepository(db *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID retrieves one student with history and overrides loaded
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*models.StudentRecord, error) {
	sql, args, err := r.sb.Select("id", "number", "major").
		From("students").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get student query: %w", err)
	}

	record := &models.StudentRecord{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(&record.ID, &record.Number, &record.Major)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("error retrieving student: %w", err)
	}

	if err := r.attachHistory(ctx, map[int64]*models.StudentRecord{id: record}); err != nil {
		return nil, err
	}
	if err := r.attachOverrides(ctx, map[int64]*models.StudentRecord{id: record}); err != nil {
		return nil, err
	}
	return record, nil
}

// GetAll retrieves every student with history and overrides loaded.
// History entries come back ordered by term so evaluation sees attempts
// in chronological order.
func (r *StudentRepository) GetAll(ctx context.Context) ([]*models.StudentRecord, error) {
	sql, args, err := r.sb.Select("id", "number", "major").
		From("students").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list students query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing students: %w", err)
	}
	defer rows.Close()

	var records []*models.StudentRecord
	byID := make(map[int64]*models.StudentRecord)
	for rows.Next() {
		record := &models.StudentRecord{}
		if err := rows.Scan(&record.ID, &record.Number, &record.Major); err != nil {
			return nil, err
		}
		records = append(records, record)
		byID[record.ID] = record
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachHistory(ctx, byID); err != nil {
		return nil, err
	}
	if err := r.attachOverrides(ctx, byID); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *StudentRepository) attachHistory(ctx context.Context, byID map[int64]*models.StudentRecord) error {
	ids := studentIDs(byID)
	if len(ids) == 0 {
		return nil
	}

	sql, args, err := r.sb.Select("student_id", "course_id", "term", "outcome", "grade").
		From("course_history").
		Where(squirrel.Eq{"student_id": ids}).
		OrderBy("student_id", "term", "course_id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build history query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error loading course history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var studentID int64
		var entry models.HistoryEntry
		if err := rows.Scan(&studentID, &entry.CourseID, &entry.Term, &entry.Outcome, &entry.Grade); err != nil {
			return err
		}
		if record, ok := byID[studentID]; ok {
			record.History = append(record.History, entry)
		}
	}
	return rows.Err()
}

func (r *StudentRepository) attachOverrides(ctx context.Context, byID map[int64]*models.StudentRecord) error {
	ids := studentIDs(byID)
	if len(ids) == 0 {
		return nil
	}

	sql, args, err := r.sb.Select("student_id", "course_id", "reason", "granted_by").
		From("override_grants").
		Where(squirrel.Eq{"student_id": ids}).
		OrderBy("student_id", "course_id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build overrides query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error loading override grants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var studentID int64
		var grant models.OverrideGrant
		if err := rows.Scan(&studentID, &grant.CourseID, &grant.Reason, &grant.GrantedBy); err != nil {
			return err
		}
		if record, ok := byID[studentID]; ok {
			record.Overrides = append(record.Overrides, grant)
		}
	}
	return rows.Err()
}

func studentIDs(byID map[int64]*models.StudentRecord) []int64 {
	ids := make([]int64, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	return ids
}
