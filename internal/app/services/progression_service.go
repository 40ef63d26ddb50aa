package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/akyuz/termflow/internal/app/models"
	"github.com/akyuz/termflow/internal/app/models/dto"
	"github.com/akyuz/termflow/internal/app/repositories"
	"github.com/akyuz/termflow/internal/engine"
	"github.com/akyuz/termflow/internal/pkg/apperrors"
	"github.com/akyuz/termflow/internal/pkg/cache"
	"github.com/akyuz/termflow/internal/pkg/websocket"
)

// ProgressionService orchestrates term runs: it assembles the snapshot,
// executes the engine, persists every result set and streams progress to
// subscribed dashboards.
type ProgressionService struct {
	repos       *repositories.Repositories
	engineCfg   engine.Config
	resultCache *cache.ResultCache // nil when Redis is disabled
	hub         *websocket.Hub
	logger      zerolog.Logger
}

// NewProgressionService creates a new ProgressionService
func NewProgressionService(
	repos *repositories.Repositories,
	engineCfg engine.Config,
	resultCache *cache.ResultCache,
	hub *websocket.Hub,
	logger zerolog.Logger,
) *ProgressionService {
	return &ProgressionService{
		repos:       repos,
		engineCfg:   engineCfg,
		resultCache: resultCache,
		hub:         hub,
		logger:      logger,
	}
}

// StartRun executes a full term run. Identical snapshots are served from
// the result cache unless force is set; the runs table enforces a single
// active run per term.
func (s *ProgressionService) StartRun(ctx context.Context, term int, force bool) (*dto.RunResponse, error) {
	snapshot, err := s.loadSnapshot(ctx, term)
	if err != nil {
		return nil, err
	}
	fingerprint := snapshot.Fingerprint()

	if s.resultCache != nil && !force {
		var cachedRunID string
		err := s.resultCache.Get(ctx, fingerprint, &cachedRunID)
		switch {
		case err == nil:
			run, err := s.repos.RunRepository.GetByID(ctx, cachedRunID)
			if err == nil {
				s.logger.Info().Str("runId", run.ID).Int("term", term).
					Msg("Serving run from snapshot cache")
				return dto.ToRunResponse(run, true), nil
			}
			// Cached run vanished from the database, fall through and rerun
			s.logger.Warn().Err(err).Str("runId", cachedRunID).
				Msg("Cached run missing, recomputing")
		case !errors.Is(err, cache.ErrMiss):
			s.logger.Warn().Err(err).Msg("Result cache unavailable, recomputing")
		}
	}

	run := &models.Run{
		ID:           uuid.NewString(),
		Term:         term,
		Status:       models.RunStatusRunning,
		SnapshotHash: fingerprint,
		StartedAt:    time.Now(),
	}
	if err := s.repos.RunRepository.Create(ctx, run); err != nil {
		if errors.Is(err, repositories.ErrRunAlreadyActive) {
			return nil, apperrors.ErrRunAlreadyActive
		}
		return nil, err
	}

	cfg := s.engineCfg
	cfg.OnPhase = func(phase, detail string) {
		s.publish(run.ID, term, phase, detail)
	}

	result, err := engine.New(cfg, s.logger).Run(ctx, snapshot)
	if err != nil {
		run.Status = models.RunStatusFailed
		run.FinishedAt = time.Now()
		if finishErr := s.repos.RunRepository.Finish(ctx, run); finishErr != nil {
			s.logger.Error().Err(finishErr).Str("runId", run.ID).Msg("Failed to mark run as failed")
		}
		s.publish(run.ID, term, engine.PhaseFailed, err.Error())
		if engine.IsCycleError(err) {
			return nil, apperrors.NewDataIntegrityError(err.Error())
		}
		return nil, err
	}

	if err := s.repos.RunRepository.SaveResults(ctx, run.ID, &repositories.RunResults{
		Eligibility: result.Eligibility,
		Priorities:  result.Priorities,
		Assignments: result.Assignments,
		Unassigned:  result.Unassigned,
		Failures:    result.Failures,
	}); err != nil {
		run.Status = models.RunStatusFailed
		run.FinishedAt = time.Now()
		if finishErr := s.repos.RunRepository.Finish(ctx, run); finishErr != nil {
			s.logger.Error().Err(finishErr).Str("runId", run.ID).Msg("Failed to mark run as failed")
		}
		s.publish(run.ID, term, engine.PhaseFailed, "persisting results failed")
		return nil, err
	}

	run.Status = models.RunStatusCompleted
	if len(result.Failures) > 0 || result.BudgetExhausted {
		run.Status = models.RunStatusPartial
	}
	run.FinishedAt = time.Now()
	run.StudentsEvaluated = len(snapshot.Students)
	run.StudentsFailed = len(result.Failures)
	run.AssignmentCount = len(result.Assignments)
	run.UnassignedCount = len(result.Unassigned)
	run.SectionsClosed = len(result.ClosedSections)
	if err := s.repos.RunRepository.Finish(ctx, run); err != nil {
		return nil, err
	}

	if s.resultCache != nil {
		if err := s.resultCache.Set(ctx, fingerprint, run.ID); err != nil {
			s.logger.Warn().Err(err).Str("runId", run.ID).Msg("Failed to cache run result")
		}
	}

	s.publish(run.ID, term, engine.PhaseCompleted, "")
	return dto.ToRunResponse(run, false), nil
}

// GetRun retrieves one run's status and statistics
func (s *ProgressionService) GetRun(ctx context.Context, runID string) (*dto.RunResponse, error) {
	run, err := s.repos.RunRepository.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, repositories.ErrRunNotFound) {
			return nil, apperrors.ErrRunNotFound
		}
		return nil, err
	}
	return dto.ToRunResponse(run, false), nil
}

// GetEligibility retrieves a run's eligibility results, optionally for one student
func (s *ProgressionService) GetEligibility(ctx context.Context, runID string, studentID *int64) (*dto.EligibilityListResponse, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	results, err := s.repos.RunRepository.ListEligibility(ctx, runID, studentID)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []models.EligibilityResult{}
	}
	return &dto.EligibilityListResponse{RunID: runID, Results: results}, nil
}

// GetPriorities retrieves a run's ranked retake priorities
func (s *ProgressionService) GetPriorities(ctx context.Context, runID string) (*dto.PriorityListResponse, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	priorities, err := s.repos.RunRepository.ListPriorities(ctx, runID)
	if err != nil {
		return nil, err
	}
	if priorities == nil {
		priorities = []models.RetryPriority{}
	}
	return &dto.PriorityListResponse{RunID: runID, Priorities: priorities}, nil
}

// GetAssignments retrieves a run's cohort assignments
func (s *ProgressionService) GetAssignments(ctx context.Context, runID string) (*dto.AssignmentListResponse, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	assignments, err := s.repos.RunRepository.ListAssignments(ctx, runID)
	if err != nil {
		return nil, err
	}
	if assignments == nil {
		assignments = []models.CohortAssignment{}
	}
	return &dto.AssignmentListResponse{RunID: runID, Assignments: assignments}, nil
}

// GetUnassigned retrieves a run's unseated demand and evaluation failures
func (s *ProgressionService) GetUnassigned(ctx context.Context, runID string) (*dto.UnassignedListResponse, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	unassigned, err := s.repos.RunRepository.ListUnassigned(ctx, runID)
	if err != nil {
		return nil, err
	}
	failures, err := s.repos.RunRepository.ListFailures(ctx, runID)
	if err != nil {
		return nil, err
	}
	if unassigned == nil {
		unassigned = []models.UnassignedEntry{}
	}
	return &dto.UnassignedListResponse{RunID: runID, Unassigned: unassigned, Failures: failures}, nil
}

// loadSnapshot assembles the read-only term input from the database
func (s *ProgressionService) loadSnapshot(ctx context.Context, term int) (*engine.Snapshot, error) {
	catalog, err := s.repos.CourseRepository.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	students, err := s.repos.StudentRepository.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	sections, err := s.repos.SectionRepository.GetByTerm(ctx, term)
	if err != nil {
		return nil, err
	}
	existing, err := s.repos.SectionRepository.GetEnrollmentsByTerm(ctx, term)
	if err != nil {
		return nil, err
	}

	if len(catalog) == 0 || len(sections) == 0 {
		return nil, apperrors.ErrSnapshotIncomplete
	}

	return &engine.Snapshot{
		Term:     term,
		Catalog:  catalog,
		Students: students,
		Sections: sections,
		Existing: existing,
	}, nil
}

func (s *ProgressionService) publish(runID string, term int, phase, detail string) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(&websocket.RunEvent{
		RunID:     runID,
		Term:      term,
		Phase:     phase,
		Detail:    detail,
		Timestamp: time.Now(),
	})
}
