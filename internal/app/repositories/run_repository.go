package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akyuz/termflow/internal/app/models"
	"github.com/akyuz/termflow/internal/pkg/dberrors"
	"github.com/akyuz/termflow/internal/pkg/logger"
)

// Run error types
var (
	// ErrRunNotFound is returned when a run is not found.
	ErrRunNotFound = ErrNotFound
	// ErrRunAlreadyActive is returned when a term already has a run in progress.
	ErrRunAlreadyActive = errors.New("a run for this term is already in progress")
)

// RunRepository handles engine run persistence
type RunRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewRunRepository creates a new RunRepository
func NewRunRepository(db *pgxpool.Pool) *RunRepository {
	return &RunRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new run row. The partial unique index on (term) where
// status = 'RUNNING' rejects a second concurrent run for the same term.
func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	sql, args, err := r.sb.Insert("runs").
		Columns("id", "term", "status", "snapshot_hash", "started_at").
		Values(run.ID, run.Term, run.Status, run.SnapshotHash, run.StartedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create run query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "runs_one_active_per_term") {
			return ErrRunAlreadyActive
		}
		logger.Error().Err(err).Str("runId", run.ID).Msg("Error executing create run query")
		return fmt.Errorf("error creating run: %w", err)
	}
	return nil
}

// Finish updates the run's terminal status and statistics
func (r *RunRepository) Finish(ctx context.Context, run *models.Run) error {
	sql, args, err := r.sb.Update("runs").
		Set("status", run.Status).
		Set("finished_at", run.FinishedAt).
		Set("students_evaluated", run.StudentsEvaluated).
		Set("students_failed", run.StudentsFailed).
		Set("assignment_count", run.AssignmentCount).
		Set("unassigned_count", run.UnassignedCount).
		Set("sections_closed", run.SectionsClosed).
		Where(squirrel.Eq{"id": run.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build finish run query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error finishing run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// GetByID retrieves a run by ID
func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.Run, error) {
	sql, args, err := r.sb.Select(
		"id", "term", "status", "snapshot_hash", "started_at",
		"COALESCE(finished_at, started_at)",
		"students_evaluated", "students_failed",
		"assignment_count", "unassigned_count", "sections_closed",
	).
		From("runs").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get run query: %w", err)
	}

	run := &models.Run{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&run.ID,
		&run.Term,
		&run.Status,
		&run.SnapshotHash,
		&run.StartedAt,
		&run.FinishedAt,
		&run.StudentsEvaluated,
		&run.StudentsFailed,
		&run.AssignmentCount,
		&run.UnassignedCount,
		&run.SectionsClosed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("error retrieving run: %w", err)
	}
	return run, nil
}

// GetLatestByTerm retrieves the most recent run for a term
func (r *RunRepository) GetLatestByTerm(ctx context.Context, term int) (*models.Run, error) {
	sql, args, err := r.sb.Select("id").
		From("runs").
		Where(squirrel.Eq{"term": term}).
		OrderBy("started_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build latest run query: %w", err)
	}

	var id string
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("error retrieving latest run: %w", err)
	}
	return r.GetByID(ctx, id)
}

// SaveResults persists every result set of a completed run in one transaction.
// Bulk tables go through CopyFrom; a term rerun replaces nothing, each run
// keeps its own result rows keyed by run_id.
func (r *RunRepository) SaveResults(ctx context.Context, runID string, result *RunResults) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"run_eligibility"},
		[]string{"run_id", "student_id", "course_id", "eligible", "reason"},
		pgx.CopyFromSlice(len(result.Eligibility), func(i int) ([]interface{}, error) {
			e := result.Eligibility[i]
			return []interface{}{runID, e.StudentID, e.CourseID, e.Eligible, string(e.Reason)}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("error saving eligibility results: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"run_priorities"},
		[]string{"run_id", "student_id", "course_id", "score"},
		pgx.CopyFromSlice(len(result.Priorities), func(i int) ([]interface{}, error) {
			p := result.Priorities[i]
			return []interface{}{runID, p.StudentID, p.CourseID, p.Score}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("error saving priorities: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"run_assignments"},
		[]string{"run_id", "student_id", "section_id", "course_id"},
		pgx.CopyFromSlice(len(result.Assignments), func(i int) ([]interface{}, error) {
			a := result.Assignments[i]
			return []interface{}{runID, a.StudentID, a.SectionID, a.CourseID}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("error saving assignments: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"run_unassigned"},
		[]string{"run_id", "student_id", "course_id", "reason"},
		pgx.CopyFromSlice(len(result.Unassigned), func(i int) ([]interface{}, error) {
			u := result.Unassigned[i]
			return []interface{}{runID, u.StudentID, u.CourseID, u.Reason}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("error saving unassigned entries: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"run_failures"},
		[]string{"run_id", "student_id", "message"},
		pgx.CopyFromSlice(len(result.Failures), func(i int) ([]interface{}, error) {
			f := result.Failures[i]
			return []interface{}{runID, f.StudentID, f.Message}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("error saving failures: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit run results: %w", err)
	}
	return nil
}

// RunResults groups the persisted output of one engine run
type RunResults struct {
	Eligibility []models.EligibilityResult
	Priorities  []models.RetryPriority
	Assignments []models.CohortAssignment
	Unassigned  []models.UnassignedEntry
	Failures    []models.StudentFailure
}

// ListEligibility retrieves eligibility results for a run, optionally
// filtered by student
func (r *RunRepository) ListEligibility(ctx context.Context, runID string, studentID *int64) ([]models.EligibilityResult, error) {
	builder := r.sb.Select("student_id", "course_id", "eligible", "reason").
		From("run_eligibility").
		Where(squirrel.Eq{"run_id": runID}).
		OrderBy("student_id", "course_id")
	if studentID != nil {
		builder = builder.Where(squirrel.Eq{"student_id": *studentID})
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build eligibility query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing eligibility: %w", err)
	}
	defer rows.Close()

	var results []models.EligibilityResult
	for rows.Next() {
		var result models.EligibilityResult
		if err := rows.Scan(&result.StudentID, &result.CourseID, &result.Eligible, &result.Reason); err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// ListPriorities retrieves ranked retake priorities for a run
func (r *RunRepository) ListPriorities(ctx context.Context, runID string) ([]models.RetryPriority, error) {
	sql, args, err := r.sb.Select("student_id", "course_id", "score").
		From("run_priorities").
		Where(squirrel.Eq{"run_id": runID}).
		OrderBy("student_id", "score DESC", "course_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build priorities query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing priorities: %w", err)
	}
	defer rows.Close()

	var priorities []models.RetryPriority
	for rows.Next() {
		var priority models.RetryPriority
		if err := rows.Scan(&priority.StudentID, &priority.CourseID, &priority.Score); err != nil {
			return nil, err
		}
		priorities = append(priorities, priority)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return priorities, nil
}

// ListAssignments retrieves cohort assignments for a run
func (r *RunRepository) ListAssignments(ctx context.Context, runID string) ([]models.CohortAssignment, error) {
	sql, args, err := r.sb.Select("student_id", "section_id", "course_id").
		From("run_assignments").
		Where(squirrel.Eq{"run_id": runID}).
		OrderBy("student_id", "section_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build assignments query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing assignments: %w", err)
	}
	defer rows.Close()

	var assignments []models.CohortAssignment
	for rows.Next() {
		var assignment models.CohortAssignment
		if err := rows.Scan(&assignment.StudentID, &assignment.SectionID, &assignment.CourseID); err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}

// ListUnassigned retrieves unassigned demand for a run
func (r *RunRepository) ListUnassigned(ctx context.Context, runID string) ([]models.UnassignedEntry, error) {
	sql, args, err := r.sb.Select("student_id", "course_id", "reason").
		From("run_unassigned").
		Where(squirrel.Eq{"run_id": runID}).
		OrderBy("student_id", "course_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build unassigned query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing unassigned entries: %w", err)
	}
	defer rows.Close()

	var entries []models.UnassignedEntry
	for rows.Next() {
		var entry models.UnassignedEntry
		if err := rows.Scan(&entry.StudentID, &entry.CourseID, &entry.Reason); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListFailures retrieves per-student evaluation failures for a run
func (r *RunRepository) ListFailures(ctx context.Context, runID string) ([]models.StudentFailure, error) {
	sql, args, err := r.sb.Select("student_id", "message").
		From("run_failures").
		Where(squirrel.Eq{"run_id": runID}).
		OrderBy("student_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build failures query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing failures: %w", err)
	}
	defer rows.Close()

	var failures []models.StudentFailure
	for rows.Next() {
		var failure models.StudentFailure
		if err := rows.Scan(&failure.StudentID, &failure.Message); err != nil {
			return nil, err
		}
		failures = append(failures, failure)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return failures, nil
}
