// Package cohort assigns eligible students to capacity-limited class
// sections. It is the only part of the engine with shared mutable state
// (live section occupancy), so the whole optimization executes as one
// serialized pass with a strict, deterministic processing order.
package cohort

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/akyuz/termflow/internal/app/models"
	"github.com/akyuz/termflow/internal/engine/timetable"
)

// ErrSectionCapacityUnderflow signals occupancy computed negative. This is
// a programming defect, never a data problem: the run aborts and the
// offending section is reported for investigation.
var ErrSectionCapacityUnderflow = errors.New("section occupancy underflow")

// Unassigned report reasons
const (
	ReasonCapacityExhausted = "capacity exhausted"
	ReasonScheduleConflict  = "no conflict-free section"
	ReasonSectionClosed     = "section closed below viable size"
	ReasonTimeBudget        = "time budget exhausted"
	ReasonLoadCeiling       = "per-term course load reached"
)

// Config bounds the optimization pass
type Config struct {
	MaxCoursesPerTerm    int           // Per-student assignment ceiling
	MinViableSectionSize int           // Sections below this may be drained and closed
	SoftTimeBudget       time.Duration // 0 disables the budget check
}

// Input is the aggregated term-wide demand and supply for one optimization
type Input struct {
	Term         int
	Sections     []*models.ClassSection
	Eligibility  []models.EligibilityResult
	Priorities   []models.RetryPriority
	Progressions []models.TermProgression
	// Existing enrollments already persisted upstream. They seed section
	// occupancy and student schedules, are honored by conflict checks and
	// are never reassigned, closed over or re-emitted in the output.
	Existing []models.CohortAssignment
}

// Result is the outcome of one optimization pass
type Result struct {
	Assignments     []models.CohortAssignment
	Unassigned      []models.UnassignedEntry
	ClosedSections  []int64
	BudgetExhausted bool
}

// demand is one (student, eligible course) entry of the ordered work list
type demand struct {
	studentID   int64
	courseID    int64
	priority    float64
	hasPriority bool
	progression int
}

// Optimizer holds the mutable assignment state for a single pass. A fresh
// Optimizer is built per run; it must not be reused.
type Optimizer struct {
	cfg Config

	sections  map[int64]*models.ClassSection
	byCourse  map[int64][]*models.ClassSection
	occupancy map[int64]int
	preloaded map[int64]int // existing occupants per section, immovable
	closed    map[int64]bool

	held        map[int64][]*models.ClassSection // student -> accepted sections this pass
	enrolled    map[int64]map[int64]bool         // student -> courses already assigned
	assignments []models.CohortAssignment
	unassigned  []models.UnassignedEntry
}

// NewOptimizer prepares the section inventory indexes for one pass
func NewOptimizer(cfg Config, sections []*models.ClassSection) *Optimizer {
	o := &Optimizer{
		cfg:       cfg,
		sections:  make(map[int64]*models.ClassSection, len(sections)),
		byCourse:  make(map[int64][]*models.ClassSection),
		occupancy: make(map[int64]int, len(sections)),
		preloaded: make(map[int64]int),
		closed:    make(map[int64]bool),
		held:      make(map[int64][]*models.ClassSection),
		enrolled:  make(map[int64]map[int64]bool),
	}
	for _, s := range sections {
		o.sections[s.ID] = s
		o.byCourse[s.CourseID] = append(o.byCourse[s.CourseID], s)
	}
	return o
}

// Run executes the full optimization: greedy scarcest-first assignment over
// the ordered demand list, then one bounded local-improvement step that
// drains and closes under-filled sections. The pass is deterministic for
// identical inputs.
func Run(cfg Config, input Input) (*Result, error) {
	o := NewOptimizer(cfg, input.Sections)
	o.preload(input.Existing)
	demands := buildDemandList(input)

	start := time.Now()
	budgetLeft := func() bool {
		return cfg.SoftTimeBudget <= 0 || time.Since(start) < cfg.SoftTimeBudget
	}

	result := &Result{}
	for i, d := range demands {
		if !budgetLeft() {
			// Resource protection, not a failure: everything not yet
			// processed is reported unassigned and the result flagged.
			result.BudgetExhausted = true
			for _, rest := range demands[i:] {
				o.unassigned = append(o.unassigned, models.UnassignedEntry{
					StudentID: rest.studentID, CourseID: rest.courseID, Reason: ReasonTimeBudget,
				})
			}
			break
		}
		o.assign(d.studentID, d.courseID)
	}

	if !result.BudgetExhausted {
		if err := o.improve(); err != nil {
			return nil, err
		}
	}

	o.finish(result)
	return result, nil
}

// preload seeds occupancy and student schedules from enrollments already
// persisted upstream. Preloaded seats consume capacity and participate in
// conflict checks but never appear in the output assignment set.
func (o *Optimizer) preload(existing []models.CohortAssignment) {
	for _, a := range existing {
		s, ok := o.sections[a.SectionID]
		if !ok {
			continue
		}
		o.occupancy[s.ID]++
		o.preloaded[s.ID]++
		o.held[a.StudentID] = append(o.held[a.StudentID], s)
		if o.enrolled[a.StudentID] == nil {
			o.enrolled[a.StudentID] = make(map[int64]bool)
		}
		o.enrolled[a.StudentID][s.CourseID] = true
	}
}

// buildDemandList produces the strict processing order: retakes by priority
// descending first, then remaining demand by progression descending (keep
// near-graduation students moving), with student then course ID as the
// stable tiebreak.
func buildDemandList(input Input) []demand {
	progression := make(map[int64]int, len(input.Progressions))
	for _, p := range input.Progressions {
		progression[p.StudentID] = p.Term
	}

	type prioKey struct{ student, course int64 }
	priorities := make(map[prioKey]float64, len(input.Priorities))
	for _, p := range input.Priorities {
		priorities[prioKey{p.StudentID, p.CourseID}] = p.Score
	}

	var demands []demand
	for _, e := range input.Eligibility {
		if !e.Eligible {
			continue
		}
		d := demand{
			studentID:   e.StudentID,
			courseID:    e.CourseID,
			progression: progression[e.StudentID],
		}
		if score, ok := priorities[prioKey{e.StudentID, e.CourseID}]; ok {
			d.priority = score
			d.hasPriority = true
		}
		demands = append(demands, d)
	}

	sort.SliceStable(demands, func(i, j int) bool {
		a, b := demands[i], demands[j]
		if a.hasPriority != b.hasPriority {
			return a.hasPriority
		}
		if a.hasPriority && a.priority != b.priority {
			return a.priority > b.priority
		}
		if a.progression != b.progression {
			return a.progression > b.progression
		}
		if a.studentID != b.studentID {
			return a.studentID < b.studentID
		}
		return a.courseID < b.courseID
	})
	return demands
}

// assign seats one demand entry into the scarcest non-conflicting open
// section, or records it unassigned.
func (o *Optimizer) assign(studentID, courseID int64) {
	o.assignFallback(studentID, courseID, "")
}

// assignFallback is assign with an override for the unassigned reason,
// used when re-seating students displaced by a section closure.
func (o *Optimizer) assignFallback(studentID, courseID int64, reason string) {
	if o.enrolled[studentID][courseID] {
		return // never two sections of the same course
	}
	if o.cfg.MaxCoursesPerTerm > 0 && len(o.held[studentID]) >= o.cfg.MaxCoursesPerTerm {
		// Reachable when preloaded enrollments fill the ceiling before this
		// pass; the demand still belongs in the unassigned report.
		if reason == "" {
			reason = ReasonLoadCeiling
		}
		o.unassigned = append(o.unassigned, models.UnassignedEntry{
			StudentID: studentID, CourseID: courseID, Reason: reason,
		})
		return
	}

	candidates := o.openSections(courseID, 0)
	if len(candidates) == 0 {
		if reason == "" {
			reason = ReasonCapacityExhausted
		}
		o.unassigned = append(o.unassigned, models.UnassignedEntry{
			StudentID: studentID, CourseID: courseID, Reason: reason,
		})
		return
	}

	for _, s := range candidates {
		if timetable.ConflictsWith(s, o.held[studentID]) {
			continue
		}
		o.seat(studentID, s)
		return
	}

	if reason == "" {
		reason = ReasonScheduleConflict
	}
	o.unassigned = append(o.unassigned, models.UnassignedEntry{
		StudentID: studentID, CourseID: courseID, Reason: reason,
	})
}

// openSections returns the course's sections with remaining capacity,
// scarcest first (remaining ascending, section ID tiebreak). exclude skips
// one section ID, used when relocating a student out of it.
func (o *Optimizer) openSections(courseID, exclude int64) []*models.ClassSection {
	var out []*models.ClassSection
	for _, s := range o.byCourse[courseID] {
		if o.closed[s.ID] || s.ID == exclude {
			continue
		}
		if s.Capacity-o.occupancy[s.ID] > 0 {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri := out[i].Capacity - o.occupancy[out[i].ID]
		rj := out[j].Capacity - o.occupancy[out[j].ID]
		if ri != rj {
			return ri < rj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (o *Optimizer) seat(studentID int64, s *models.ClassSection) {
	o.occupancy[s.ID]++
	o.held[studentID] = append(o.held[studentID], s)
	if o.enrolled[studentID] == nil {
		o.enrolled[studentID] = make(map[int64]bool)
	}
	o.enrolled[studentID][s.CourseID] = true
	o.assignments = append(o.assignments, models.CohortAssignment{
		StudentID: studentID, SectionID: s.ID, CourseID: s.CourseID,
	})
}

// unseat removes a student from a section, guarding the occupancy
// invariant. A negative count here is a defect in the optimizer itself.
func (o *Optimizer) unseat(studentID int64, s *models.ClassSection) error {
	o.occupancy[s.ID]--
	if o.occupancy[s.ID] < 0 {
		return fmt.Errorf("%w: section %d", ErrSectionCapacityUnderflow, s.ID)
	}

	held := o.held[studentID]
	for i, h := range held {
		if h.ID == s.ID {
			o.held[studentID] = append(held[:i:i], held[i+1:]...)
			break
		}
	}
	delete(o.enrolled[studentID], s.CourseID)

	for i, a := range o.assignments {
		if a.StudentID == studentID && a.SectionID == s.ID {
			o.assignments = append(o.assignments[:i], o.assignments[i+1:]...)
			break
		}
	}
	return nil
}

// improve is the bounded local-improvement step: sections still below the
// minimum viable size are drained into better-filled alternatives and
// closed. Students the drain cannot relocate directly go back to the pool
// for one more assignment attempt; whoever still cannot be seated lands in
// the unassigned report. One pass, no recursion into newly under-filled
// sections.
func (o *Optimizer) improve() error {
	if o.cfg.MinViableSectionSize <= 0 {
		return nil
	}

	ids := make([]int64, 0, len(o.sections))
	for id := range o.sections {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		s := o.sections[id]
		if o.closed[id] || o.occupancy[id] == 0 || o.occupancy[id] >= o.cfg.MinViableSectionSize {
			continue
		}
		if o.preloaded[id] > 0 {
			continue // existing enrollees cannot be reassigned, section stays
		}

		occupants := o.occupantsOf(id)
		o.closed[id] = true

		var displaced []int64
		for _, studentID := range occupants {
			if err := o.unseat(studentID, s); err != nil {
				return err
			}
			if !o.relocate(studentID, s) {
				displaced = append(displaced, studentID)
			}
		}

		// One more ordinary attempt for students the drain could not
		// place; those who still miss out are reported against the closure.
		for _, studentID := range displaced {
			o.assignFallback(studentID, s.CourseID, ReasonSectionClosed)
		}
	}
	return nil
}

// relocate tries to move a student into the fullest conflict-free
// alternative section of the same course.
func (o *Optimizer) relocate(studentID int64, from *models.ClassSection) bool {
	candidates := o.openSections(from.CourseID, from.ID)

	// Fullest first: draining should consolidate, not spread
	sort.SliceStable(candidates, func(i, j int) bool {
		oi, oj := o.occupancy[candidates[i].ID], o.occupancy[candidates[j].ID]
		if oi != oj {
			return oi > oj
		}
		return candidates[i].ID < candidates[j].ID
	})

	for _, s := range candidates {
		if timetable.ConflictsWith(s, o.held[studentID]) {
			continue
		}
		o.seat(studentID, s)
		return true
	}
	return false
}

// occupantsOf lists a section's students in ascending ID order
func (o *Optimizer) occupantsOf(sectionID int64) []int64 {
	var out []int64
	for _, a := range o.assignments {
		if a.SectionID == sectionID {
			out = append(out, a.StudentID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// finish orders the output sets so identical snapshots compare equal
func (o *Optimizer) finish(result *Result) {
	sort.SliceStable(o.assignments, func(i, j int) bool {
		a, b := o.assignments[i], o.assignments[j]
		if a.StudentID != b.StudentID {
			return a.StudentID < b.StudentID
		}
		return a.SectionID < b.SectionID
	})
	sort.SliceStable(o.unassigned, func(i, j int) bool {
		a, b := o.unassigned[i], o.unassigned[j]
		if a.StudentID != b.StudentID {
			return a.StudentID < b.StudentID
		}
		return a.CourseID < b.CourseID
	})

	result.Assignments = o.assignments
	result.Unassigned = o.unassigned
	for id, closed := range o.closed {
		if closed {
			result.ClosedSections = append(result.ClosedSections, id)
		}
	}
	sort.Slice(result.ClosedSections, func(i, j int) bool {
		return result.ClosedSections[i] < result.ClosedSections[j]
	})
}
