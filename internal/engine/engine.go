// Package engine orchestrates a full term-scoped progression run: graph
// build, parallel per-student evaluation and ranking, then the serialized
// cohort optimization. The engine performs no I/O; callers hand it
// in-memory snapshots and persist the returned result sets.
package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/akyuz/termflow/internal/app/models"
	"github.com/akyuz/termflow/internal/engine/cohort"
	"github.com/akyuz/termflow/internal/engine/prereq"
	"github.com/akyuz/termflow/internal/engine/progress"
	"github.com/akyuz/termflow/internal/engine/ranking"
	"github.com/akyuz/termflow/internal/engine/timetable"
)

// Run phases reported to the optional observer, in order. Terminal phases
// are the caller's to report since only it knows whether persistence worked.
const (
	PhaseGraphBuilt = "GRAPH_BUILT"
	PhaseEvaluated  = "STUDENTS_EVALUATED"
	PhaseOptimizing = "OPTIMIZING"
	PhaseCompleted  = "COMPLETED"
	PhaseFailed     = "FAILED"
)

// PhaseFunc receives progress notifications during a run. Calls are
// synchronous; observers must not block.
type PhaseFunc func(phase, detail string)

// Config aggregates all tunables of one run
type Config struct {
	Rules       progress.Rules
	Weights     ranking.Weights
	Cohort      cohort.Config
	EvalWorkers int // Parallel student evaluations; <=0 means GOMAXPROCS-ish default
	OnPhase     PhaseFunc
}

// DefaultConfig mirrors a conventional 14-term program setup
func DefaultConfig() Config {
	return Config{
		Rules: progress.Rules{
			PassingGrade:      50,
			MaxCoursesPerTerm: 6,
			TotalTermCap:      14,
		},
		Weights: ranking.DefaultWeights(),
		Cohort: cohort.Config{
			MaxCoursesPerTerm:    6,
			MinViableSectionSize: 8,
		},
		EvalWorkers: 8,
	}
}

// Snapshot is the read-only term input assembled by the caller
type Snapshot struct {
	Term     int
	Catalog  []*models.Course
	Students []*models.StudentRecord
	Sections []*models.ClassSection
	// Existing enrollments for the term, already persisted upstream; they
	// pre-consume section capacity during optimization.
	Existing []models.CohortAssignment
}

// Result carries every output set of one run
type Result struct {
	Term            int
	Eligibility     []models.EligibilityResult
	Priorities      []models.RetryPriority
	Progressions    []models.TermProgression
	Assignments     []models.CohortAssignment
	Unassigned      []models.UnassignedEntry
	ClosedSections  []int64
	Conflicts       []models.ScheduleConflict // final verification; empty on a correct run
	Failures        []models.StudentFailure
	BudgetExhausted bool
	Elapsed         time.Duration
}

// Engine runs term-scoped progression computations
type Engine struct {
	cfg Config
	log zerolog.Logger
}

// New creates an engine with the given configuration
func New(cfg Config, log zerolog.Logger) *Engine {
	if cfg.EvalWorkers <= 0 {
		cfg.EvalWorkers = DefaultConfig().EvalWorkers
	}
	return &Engine{cfg: cfg, log: log}
}

// Run executes one complete term run. A prerequisite cycle aborts before
// any student work; per-student evaluation failures are collected into the
// result and never abort the run. The output is deterministic for
// identical snapshots.
func (e *Engine) Run(ctx context.Context, snapshot *Snapshot) (*Result, error) {
	start := time.Now()

	graph, err := prereq.Build(snapshot.Catalog)
	if err != nil {
		return nil, err
	}
	e.log.Info().
		Int("term", snapshot.Term).
		Int("courses", graph.Len()).
		Int("students", len(snapshot.Students)).
		Int("sections", len(snapshot.Sections)).
		Msg("Prerequisite graph built, starting evaluation")
	e.phase(PhaseGraphBuilt, "")

	evaluations, failures := e.evaluateAll(ctx, graph, snapshot.Students)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.phase(PhaseEvaluated, "")

	result := &Result{Term: snapshot.Term, Failures: failures}
	ranker := ranking.NewRanker(graph, e.cfg.Weights)

	for _, ev := range evaluations {
		result.Progressions = append(result.Progressions, ev.eval.Progression)
		result.Eligibility = append(result.Eligibility, ev.eval.Results...)
		result.Priorities = append(result.Priorities,
			ranker.Rank(ev.record, ev.eval.Progression.Term, ev.eval.Results)...)
	}

	e.phase(PhaseOptimizing, "")
	optimized, err := cohort.Run(e.cfg.Cohort, cohort.Input{
		Term:         snapshot.Term,
		Sections:     snapshot.Sections,
		Eligibility:  result.Eligibility,
		Priorities:   result.Priorities,
		Progressions: result.Progressions,
		Existing:     snapshot.Existing,
	})
	if err != nil {
		return nil, err
	}

	result.Assignments = optimized.Assignments
	result.Unassigned = optimized.Unassigned
	result.ClosedSections = optimized.ClosedSections
	result.BudgetExhausted = optimized.BudgetExhausted
	result.Conflicts = e.verify(snapshot, optimized.Assignments)
	result.Elapsed = time.Since(start)

	e.log.Info().
		Int("term", snapshot.Term).
		Int("assignments", len(result.Assignments)).
		Int("unassigned", len(result.Unassigned)).
		Int("closedSections", len(result.ClosedSections)).
		Int("failures", len(result.Failures)).
		Dur("elapsed", result.Elapsed).
		Msg("Term run completed")
	return result, nil
}

func (e *Engine) phase(phase, detail string) {
	if e.cfg.OnPhase != nil {
		e.cfg.OnPhase(phase, detail)
	}
}

// evaluation pairs a student's record with their finished evaluation so
// ranking can reuse the record without a second lookup
type evaluation struct {
	record *models.StudentRecord
	eval   *progress.Evaluation
}

// evaluateAll fans student evaluations out over a bounded worker pool.
// Evaluation is pure per student, so workers share nothing but the
// read-only graph. Failures are isolated per student.
func (e *Engine) evaluateAll(ctx context.Context, graph *prereq.Graph, students []*models.StudentRecord) ([]evaluation, []models.StudentFailure) {
	evaluator := progress.NewEvaluator(graph, e.cfg.Rules, e.log)

	var mu sync.Mutex
	evaluations := make([]evaluation, 0, len(students))
	var failures []models.StudentFailure

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.EvalWorkers)

	for _, student := range students {
		student := student
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			eval, err := evaluator.Evaluate(student)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, models.StudentFailure{
					StudentID: student.ID,
					Message:   err.Error(),
				})
				return nil
			}
			evaluations = append(evaluations, evaluation{record: student, eval: eval})
			return nil
		})
	}
	// Workers only return the context error, which the caller re-checks
	_ = g.Wait()

	// Collection order depends on goroutine scheduling; sort both sets so
	// downstream processing and the final result are deterministic.
	sort.Slice(evaluations, func(i, j int) bool {
		return evaluations[i].record.ID < evaluations[j].record.ID
	})
	sort.Slice(failures, func(i, j int) bool {
		return failures[i].StudentID < failures[j].StudentID
	})
	return evaluations, failures
}

// verify re-checks the no-overlap invariant over the final assignments.
// Any conflict found here is an optimizer defect surfaced to the caller.
func (e *Engine) verify(snapshot *Snapshot, assignments []models.CohortAssignment) []models.ScheduleConflict {
	sections := make(map[int64]*models.ClassSection, len(snapshot.Sections))
	for _, s := range snapshot.Sections {
		sections[s.ID] = s
	}

	schedules := make(map[int64][]*models.ClassSection)
	for _, a := range assignments {
		if s, ok := sections[a.SectionID]; ok {
			schedules[a.StudentID] = append(schedules[a.StudentID], s)
		}
	}
	return timetable.ValidateSchedules(schedules)
}

// ValidateCatalog builds the prerequisite graph purely for cycle checking,
// without running any student work.
func ValidateCatalog(catalog []*models.Course) error {
	_, err := prereq.Build(catalog)
	return err
}

// IsCycleError reports whether an error is the fatal catalog-cycle case
func IsCycleError(err error) bool {
	return errors.Is(err, prereq.ErrCycleDetected)
}
