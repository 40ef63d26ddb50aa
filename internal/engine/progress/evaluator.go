// Package progress evaluates a single student's academic record against the
// prerequisite graph and program sequencing rules. Evaluation is pure: it
// reads only the student's own record and the shared read-only graph, so any
// number of evaluations may run in parallel.
package progress

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/akyuz/termflow/internal/app/models"
	"github.com/akyuz/termflow/internal/engine/prereq"
)

// ErrInvalidOverrideGrant marks a grant referencing a course outside the
// catalog. The grant is skipped and logged; it never aborts a run.
var ErrInvalidOverrideGrant = errors.New("invalid override grant")

// Rules holds the program sequencing configuration for one run
type Rules struct {
	PassingGrade      float64 // Minimum grade for a pass to satisfy a prerequisite
	MaxCoursesPerTerm int     // Per-term course-load limit
	TotalTermCap      int     // Program length, e.g. 14 terms
}

// Evaluation is the full per-student output of one evaluation
type Evaluation struct {
	Progression models.TermProgression
	Results     []models.EligibilityResult
}

// Evaluator computes term-in-program and per-course eligibility
type Evaluator struct {
	graph *prereq.Graph
	rules Rules
	log   zerolog.Logger
}

// NewEvaluator creates an evaluator bound to one graph and rule set
func NewEvaluator(graph *prereq.Graph, rules Rules, log zerolog.Logger) *Evaluator {
	return &Evaluator{graph: graph, rules: rules, log: log}
}

// Evaluate computes the student's term-in-program and one EligibilityResult
// per course not yet passed. A malformed history entry fails only this
// student; the caller isolates the error and continues the run.
func (e *Evaluator) Evaluate(record *models.StudentRecord) (*Evaluation, error) {
	if record == nil {
		return nil, errors.New("nil student record")
	}
	if err := e.validateHistory(record); err != nil {
		return nil, err
	}

	overrides := e.validOverrides(record)
	termInProgram := e.termInProgram(record)

	eval := &Evaluation{
		Progression: models.TermProgression{StudentID: record.ID, Term: termInProgram},
	}

	for _, course := range e.graph.Courses() {
		if record.Passed(course.ID, e.rules.PassingGrade) {
			eval.Results = append(eval.Results, models.EligibilityResult{
				StudentID: record.ID,
				CourseID:  course.ID,
				Eligible:  false,
				Reason:    models.BlockAlreadyPassed,
			})
			continue
		}
		eval.Results = append(eval.Results, e.evaluateCourse(record, course, overrides, termInProgram))
	}

	e.linkCorequisites(record, eval)
	e.applyLoadLimit(record, eval)

	sort.Slice(eval.Results, func(i, j int) bool {
		return eval.Results[i].CourseID < eval.Results[j].CourseID
	})
	return eval, nil
}

// termInProgram is one past the number of distinct terms in which the
// student attempted at least one course: the term they are about to enter.
func (e *Evaluator) termInProgram(record *models.StudentRecord) int {
	terms := make(map[int]bool)
	for _, h := range record.History {
		terms[h.Term] = true
	}
	return len(terms) + 1
}

func (e *Evaluator) validateHistory(record *models.StudentRecord) error {
	for i, h := range record.History {
		if !h.Outcome.Valid() {
			return fmt.Errorf("history entry %d: unknown outcome %q", i, h.Outcome)
		}
		if h.Term <= 0 {
			return fmt.Errorf("history entry %d: non-positive term %d", i, h.Term)
		}
		if !e.graph.Contains(h.CourseID) {
			return fmt.Errorf("history entry %d: unknown course %d", i, h.CourseID)
		}
		if h.Grade < 0 || h.Grade > 100 {
			return fmt.Errorf("history entry %d: grade %.1f out of range", i, h.Grade)
		}
	}
	return nil
}

// validOverrides filters the student's grants down to courses that exist in
// the catalog. Invalid grants are logged and dropped, nothing more.
func (e *Evaluator) validOverrides(record *models.StudentRecord) map[int64]bool {
	out := make(map[int64]bool, len(record.Overrides))
	for _, g := range record.Overrides {
		if !e.graph.Contains(g.CourseID) {
			e.log.Warn().
				Int64("studentId", record.ID).
				Int64("courseId", g.CourseID).
				Str("grantedBy", g.GrantedBy).
				Err(ErrInvalidOverrideGrant).
				Msg("Skipping override grant for unknown course")
			continue
		}
		out[g.CourseID] = true
	}
	return out
}

func (e *Evaluator) evaluateCourse(record *models.StudentRecord, course *models.Course, overrides map[int64]bool, termInProgram int) models.EligibilityResult {
	result := models.EligibilityResult{StudentID: record.ID, CourseID: course.ID}

	// Students past the program cap are out of sequence for everything,
	// as are courses not yet offered at the student's position.
	if e.rules.TotalTermCap > 0 && termInProgram > e.rules.TotalTermCap {
		result.Reason = models.BlockProgramSequenceLimit
		return result
	}
	if termInProgram < course.EarliestTerm {
		result.Reason = models.BlockProgramSequenceLimit
		return result
	}

	for _, p := range course.PrerequisiteIDs {
		if record.Passed(p, e.rules.PassingGrade) || overrides[p] {
			continue
		}
		result.Reason = models.BlockPrereqUnmet
		return result
	}

	result.Eligible = true
	return result
}

// linkCorequisites enforces "eligible together": if any corequisite partner
// is neither already passed nor itself eligible, the course is demoted too.
// Eligible partners carry the same CoreqGroup slice.
func (e *Evaluator) linkCorequisites(record *models.StudentRecord, eval *Evaluation) {
	byCourse := make(map[int64]*models.EligibilityResult, len(eval.Results))
	for i := range eval.Results {
		byCourse[eval.Results[i].CourseID] = &eval.Results[i]
	}

	// Demoting one course can invalidate a partner processed earlier in the
	// same sweep, so demotion repeats until it settles.
	for changed := true; changed; {
		changed = false
		for i := range eval.Results {
			r := &eval.Results[i]
			if !r.Eligible {
				continue
			}
			for _, co := range e.graph.Course(r.CourseID).CorequisiteIDs {
				if record.Passed(co, e.rules.PassingGrade) {
					continue // satisfied corequisite no longer constrains
				}
				partner, ok := byCourse[co]
				if !ok || !partner.Eligible {
					r.Eligible = false
					r.Reason = models.BlockPrereqUnmet
					changed = true
					break
				}
			}
		}
	}

	// Groups are built only after demotion settles, so every member of a
	// returned group is itself eligible.
	for i := range eval.Results {
		r := &eval.Results[i]
		if !r.Eligible {
			continue
		}
		group := []int64{r.CourseID}
		for _, co := range e.graph.Course(r.CourseID).CorequisiteIDs {
			if record.Passed(co, e.rules.PassingGrade) {
				continue
			}
			group = append(group, co)
		}
		if len(group) > 1 {
			sort.Slice(group, func(a, b int) bool { return group[a] < group[b] })
			r.CoreqGroup = group
		}
	}
}

// applyLoadLimit demotes eligible courses beyond the per-term load limit.
// Retakes of failed courses keep their place first, then lower-numbered
// program positions; the demoted remainder is blocked by load capacity
// alone. Corequisite groups stay together: a group that does not fit whole
// is demoted whole.
func (e *Evaluator) applyLoadLimit(record *models.StudentRecord, eval *Evaluation) {
	if e.rules.MaxCoursesPerTerm <= 0 {
		return
	}

	var eligible []*models.EligibilityResult
	for i := range eval.Results {
		if eval.Results[i].Eligible {
			eligible = append(eligible, &eval.Results[i])
		}
	}
	if len(eligible) <= e.rules.MaxCoursesPerTerm {
		return
	}

	retake := make(map[int64]bool)
	for _, h := range record.History {
		if h.Outcome == models.OutcomeFailed {
			retake[h.CourseID] = true
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if retake[a.CourseID] != retake[b.CourseID] {
			return retake[a.CourseID]
		}
		ca, cb := e.graph.Course(a.CourseID), e.graph.Course(b.CourseID)
		if ca.EarliestTerm != cb.EarliestTerm {
			return ca.EarliestTerm < cb.EarliestTerm
		}
		return a.CourseID < b.CourseID
	})

	admitted := 0
	seen := make(map[int64]bool)
	for _, r := range eligible {
		if seen[r.CourseID] {
			continue
		}
		groupSize := 1
		if len(r.CoreqGroup) > 0 {
			groupSize = len(r.CoreqGroup)
		}
		if admitted+groupSize <= e.rules.MaxCoursesPerTerm {
			admitted += groupSize
			seen[r.CourseID] = true
			for _, co := range r.CoreqGroup {
				seen[co] = true
			}
			continue
		}
		// Over the limit: demote this course and its whole group
		e.demote(eval, r.CourseID)
		for _, co := range r.CoreqGroup {
			e.demote(eval, co)
		}
	}
}

func (e *Evaluator) demote(eval *Evaluation, courseID int64) {
	for i := range eval.Results {
		if eval.Results[i].CourseID == courseID && eval.Results[i].Eligible {
			eval.Results[i].Eligible = false
			eval.Results[i].Reason = models.BlockCapacityOnly
			eval.Results[i].CoreqGroup = nil
		}
	}
}
