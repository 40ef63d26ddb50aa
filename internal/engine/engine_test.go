package engine_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akyuz/termflow/internal/app/models"
	"github.com/akyuz/termflow/internal/engine"
	"github.com/akyuz/termflow/internal/engine/prereq"
)

func newEngine() *engine.Engine {
	return engine.New(engine.DefaultConfig(), zerolog.Nop())
}

// scenarioSnapshot builds the reference scenario: student 1 passed course A
// (prerequisite of B) and failed course C twice; C gates three downstream
// courses; B has a near-full section, C's only section is full.
func scenarioSnapshot() *engine.Snapshot {
	catalog := []*models.Course{
		{ID: 1, Code: "COURSE-A", Credits: 5, EarliestTerm: 1},
		{ID: 2, Code: "COURSE-B", Credits: 5, EarliestTerm: 1, PrerequisiteIDs: []int64{1}},
		{ID: 3, Code: "COURSE-C", Credits: 5, EarliestTerm: 1},
		{ID: 4, Code: "COURSE-D", Credits: 5, EarliestTerm: 1, PrerequisiteIDs: []int64{3}},
		{ID: 5, Code: "COURSE-E", Credits: 5, EarliestTerm: 1, PrerequisiteIDs: []int64{4}},
		{ID: 6, Code: "COURSE-F", Credits: 5, EarliestTerm: 1, PrerequisiteIDs: []int64{3}},
	}

	students := []*models.StudentRecord{
		{
			ID: 1, Number: "20210001", Major: "CENG",
			History: []models.HistoryEntry{
				{CourseID: 1, Term: 1, Outcome: models.OutcomePassed, Grade: 75},
				{CourseID: 3, Term: 1, Outcome: models.OutcomeFailed, Grade: 30},
				{CourseID: 3, Term: 2, Outcome: models.OutcomeFailed, Grade: 40},
			},
		},
	}

	sections := []*models.ClassSection{
		{ID: 10, CourseID: 2, Term: 20251, Capacity: 20,
			Slot: models.TimeSlot{Days: models.Monday, Start: 540, End: 630}},
		{ID: 11, CourseID: 3, Term: 20251, Capacity: 15,
			Slot: models.TimeSlot{Days: models.Tuesday, Start: 540, End: 630}},
	}

	// COURSE-B's section already has 18 of 20 seats taken and COURSE-C's
	// only section is completely full.
	var existing []models.CohortAssignment
	for i := 0; i < 18; i++ {
		existing = append(existing, models.CohortAssignment{
			StudentID: int64(200 + i), SectionID: 10, CourseID: 2,
		})
	}
	for i := 0; i < 15; i++ {
		existing = append(existing, models.CohortAssignment{
			StudentID: int64(300 + i), SectionID: 11, CourseID: 3,
		})
	}

	return &engine.Snapshot{
		Term: 20251, Catalog: catalog, Students: students,
		Sections: sections, Existing: existing,
	}
}

func findEligibility(results []models.EligibilityResult, studentID, courseID int64) *models.EligibilityResult {
	for i, r := range results {
		if r.StudentID == studentID && r.CourseID == courseID {
			return &results[i]
		}
	}
	return nil
}

func TestReferenceScenario(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.Cohort.MinViableSectionSize = 0 // keep the section inventory as-is
	e := engine.New(cfg, zerolog.Nop())

	result, err := e.Run(context.Background(), scenarioSnapshot())
	require.NoError(t, err)

	// Eligibility: B unlocked by the passed prerequisite, C retakeable
	b := findEligibility(result.Eligibility, 1, 2)
	require.NotNil(t, b)
	assert.True(t, b.Eligible)

	c := findEligibility(result.Eligibility, 1, 3)
	require.NotNil(t, c)
	assert.True(t, c.Eligible)

	// COURSE-C gates D, E and F, so its retry priority dominates
	require.NotEmpty(t, result.Priorities)
	top := result.Priorities[0]
	var cPriority *models.RetryPriority
	for i, p := range result.Priorities {
		if p.StudentID == 1 && p.CourseID == 3 {
			cPriority = &result.Priorities[i]
		}
	}
	require.NotNil(t, cPriority)
	assert.Equal(t, top.Score, cPriority.Score)

	// Student 1 takes one of COURSE-B's two remaining seats; COURSE-C's
	// section is full, so the C demand lands in the unassigned report.
	assignedB := false
	for _, a := range result.Assignments {
		if a.StudentID == 1 && a.CourseID == 2 {
			assignedB = true
		}
		assert.NotEqual(t, int64(3), a.CourseID, "COURSE-C has no free seats")
	}
	assert.True(t, assignedB, "student 1 must be seated for COURSE-B")

	unassignedForC := false
	for _, u := range result.Unassigned {
		if u.StudentID == 1 && u.CourseID == 3 {
			unassignedForC = true
			assert.Equal(t, "capacity exhausted", u.Reason)
		}
	}
	assert.True(t, unassignedForC, "student 1 must appear in the unassigned report for COURSE-C")

	// Core invariants
	assert.Empty(t, result.Conflicts)
	assert.Empty(t, result.Failures)
}

func TestCycleAbortsBeforeStudentWork(t *testing.T) {
	snapshot := scenarioSnapshot()
	snapshot.Catalog[0].PrerequisiteIDs = []int64{2} // A requires B requires A

	_, err := newEngine().Run(context.Background(), snapshot)
	require.Error(t, err)
	assert.ErrorIs(t, err, prereq.ErrCycleDetected)
	assert.True(t, engine.IsCycleError(err))
}

func TestMalformedStudentIsolated(t *testing.T) {
	snapshot := scenarioSnapshot()
	snapshot.Students = append(snapshot.Students, &models.StudentRecord{
		ID: 999,
		History: []models.HistoryEntry{
			{CourseID: 1, Term: 1, Outcome: "BOGUS", Grade: 50},
		},
	})

	result, err := newEngine().Run(context.Background(), snapshot)
	require.NoError(t, err)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, int64(999), result.Failures[0].StudentID)
	assert.Contains(t, result.Failures[0].Message, "unknown outcome")

	// All other students were still evaluated
	assert.NotNil(t, findEligibility(result.Eligibility, 1, 2))
}

func TestRunIsIdempotent(t *testing.T) {
	e := newEngine()

	first, err := e.Run(context.Background(), scenarioSnapshot())
	require.NoError(t, err)
	second, err := e.Run(context.Background(), scenarioSnapshot())
	require.NoError(t, err)

	assert.Equal(t, first.Eligibility, second.Eligibility)
	assert.Equal(t, first.Priorities, second.Priorities)
	assert.Equal(t, first.Assignments, second.Assignments)
	assert.Equal(t, first.Unassigned, second.Unassigned)
}

func TestCapacityAndOverlapInvariants(t *testing.T) {
	snapshot := scenarioSnapshot()
	result, err := newEngine().Run(context.Background(), snapshot)
	require.NoError(t, err)

	capacity := make(map[int64]int)
	for _, s := range snapshot.Sections {
		capacity[s.ID] = s.Capacity
	}

	occupancy := make(map[int64]int)
	for _, a := range result.Assignments {
		occupancy[a.SectionID]++
	}
	for id, n := range occupancy {
		assert.LessOrEqual(t, n, capacity[id], "section %d over capacity", id)
	}

	assert.Empty(t, result.Conflicts)
}

func TestSnapshotFingerprintStableUnderReordering(t *testing.T) {
	a := scenarioSnapshot()
	b := scenarioSnapshot()

	// Reverse student order in one snapshot
	for i, j := 0, len(b.Students)-1; i < j; i, j = i+1, j-1 {
		b.Students[i], b.Students[j] = b.Students[j], b.Students[i]
	}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.Term = 20252
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestValidateCatalog(t *testing.T) {
	assert.NoError(t, engine.ValidateCatalog([]*models.Course{{ID: 1, Code: "A"}}))
	assert.ErrorIs(t, engine.ValidateCatalog([]*models.Course{
		{ID: 1, Code: "A", PrerequisiteIDs: []int64{2}},
		{ID: 2, Code: "B", PrerequisiteIDs: []int64{1}},
	}), prereq.ErrCycleDetected)
}
