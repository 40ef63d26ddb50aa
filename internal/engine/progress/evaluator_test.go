package progress_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akyuz/termflow/internal/app/models"
	"github.com/akyuz/termflow/internal/engine/prereq"
	"github.com/akyuz/termflow/internal/engine/progress"
)

var testRules = progress.Rules{
	PassingGrade:      50,
	MaxCoursesPerTerm: 5,
	TotalTermCap:      14,
}

func buildGraph(t *testing.T, catalog []*models.Course) *prereq.Graph {
	t.Helper()
	g, err := prereq.Build(catalog)
	require.NoError(t, err)
	return g
}

func newEvaluator(t *testing.T, catalog []*models.Course) *progress.Evaluator {
	t.Helper()
	return progress.NewEvaluator(buildGraph(t, catalog), testRules, zerolog.Nop())
}

func resultFor(t *testing.T, eval *progress.Evaluation, courseID int64) models.EligibilityResult {
	t.Helper()
	for _, r := range eval.Results {
		if r.CourseID == courseID {
			return r
		}
	}
	t.Fatalf("no result for course %d", courseID)
	return models.EligibilityResult{}
}

func TestTermInProgramCountsDistinctTerms(t *testing.T) {
	e := newEvaluator(t, []*models.Course{
		{ID: 1, Code: "A", EarliestTerm: 1},
		{ID: 2, Code: "B", EarliestTerm: 1},
	})

	eval, err := e.Evaluate(&models.StudentRecord{
		ID: 42,
		History: []models.HistoryEntry{
			{CourseID: 1, Term: 1, Outcome: models.OutcomeFailed, Grade: 30},
			{CourseID: 2, Term: 1, Outcome: models.OutcomePassed, Grade: 80},
			{CourseID: 1, Term: 2, Outcome: models.OutcomePassed, Grade: 65},
		},
	})
	require.NoError(t, err)

	// Two attempted terms, so the student is entering term 3
	assert.Equal(t, 3, eval.Progression.Term)
}

func TestEligibilitySoundness(t *testing.T) {
	e := newEvaluator(t, []*models.Course{
		{ID: 1, Code: "A", EarliestTerm: 1},
		{ID: 2, Code: "B", EarliestTerm: 1, PrerequisiteIDs: []int64{1}},
		{ID: 3, Code: "C", EarliestTerm: 1, PrerequisiteIDs: []int64{2}},
	})

	eval, err := e.Evaluate(&models.StudentRecord{
		ID: 42,
		History: []models.HistoryEntry{
			{CourseID: 1, Term: 1, Outcome: models.OutcomePassed, Grade: 70},
		},
	})
	require.NoError(t, err)

	a := resultFor(t, eval, 1)
	assert.False(t, a.Eligible)
	assert.Equal(t, models.BlockAlreadyPassed, a.Reason)

	b := resultFor(t, eval, 2)
	assert.True(t, b.Eligible)

	c := resultFor(t, eval, 3)
	assert.False(t, c.Eligible)
	assert.Equal(t, models.BlockPrereqUnmet, c.Reason)
}

func TestPassBelowThresholdDoesNotSatisfyPrerequisite(t *testing.T) {
	e := newEvaluator(t, []*models.Course{
		{ID: 1, Code: "A", EarliestTerm: 1},
		{ID: 2, Code: "B", EarliestTerm: 1, PrerequisiteIDs: []int64{1}},
	})

	eval, err := e.Evaluate(&models.StudentRecord{
		ID: 42,
		History: []models.HistoryEntry{
			{CourseID: 1, Term: 1, Outcome: models.OutcomePassed, Grade: 45},
		},
	})
	require.NoError(t, err)

	// 45 is below the 50 threshold: course A is retakeable and B is blocked
	assert.True(t, resultFor(t, eval, 1).Eligible)
	assert.Equal(t, models.BlockPrereqUnmet, resultFor(t, eval, 2).Reason)
}

func TestOverrideGrantUnblocksPrerequisite(t *testing.T) {
	e := newEvaluator(t, []*models.Course{
		{ID: 1, Code: "A", EarliestTerm: 1},
		{ID: 2, Code: "B", EarliestTerm: 1, PrerequisiteIDs: []int64{1}},
	})

	eval, err := e.Evaluate(&models.StudentRecord{
		ID:        42,
		Overrides: []models.OverrideGrant{{CourseID: 1, Reason: "transfer credit", GrantedBy: "registrar"}},
	})
	require.NoError(t, err)

	assert.True(t, resultFor(t, eval, 2).Eligible)
}

func TestInvalidOverrideGrantIsSkipped(t *testing.T) {
	e := newEvaluator(t, []*models.Course{
		{ID: 1, Code: "A", EarliestTerm: 1},
		{ID: 2, Code: "B", EarliestTerm: 1, PrerequisiteIDs: []int64{1}},
	})

	eval, err := e.Evaluate(&models.StudentRecord{
		ID:        42,
		Overrides: []models.OverrideGrant{{CourseID: 999, GrantedBy: "registrar"}},
	})
	require.NoError(t, err)

	// The bogus grant changes nothing and the run continues
	assert.Equal(t, models.BlockPrereqUnmet, resultFor(t, eval, 2).Reason)
}

func TestEarliestTermGate(t *testing.T) {
	e := newEvaluator(t, []*models.Course{
		{ID: 1, Code: "A", EarliestTerm: 1},
		{ID: 2, Code: "B", EarliestTerm: 5},
	})

	// Fresh student entering term 1
	eval, err := e.Evaluate(&models.StudentRecord{ID: 42})
	require.NoError(t, err)

	assert.True(t, resultFor(t, eval, 1).Eligible)
	late := resultFor(t, eval, 2)
	assert.False(t, late.Eligible)
	assert.Equal(t, models.BlockProgramSequenceLimit, late.Reason)
}

func TestStudentPastProgramCap(t *testing.T) {
	e := newEvaluator(t, []*models.Course{{ID: 1, Code: "A", EarliestTerm: 1}})

	history := make([]models.HistoryEntry, 0, 14)
	for term := 1; term <= 14; term++ {
		history = append(history, models.HistoryEntry{
			CourseID: 1, Term: term, Outcome: models.OutcomeWithdrawn, Grade: 0,
		})
	}

	eval, err := e.Evaluate(&models.StudentRecord{ID: 42, History: history})
	require.NoError(t, err)

	assert.Equal(t, 15, eval.Progression.Term)
	assert.Equal(t, models.BlockProgramSequenceLimit, resultFor(t, eval, 1).Reason)
}

func TestCorequisitesLinkedWhenBothEligible(t *testing.T) {
	e := newEvaluator(t, []*models.Course{
		{ID: 1, Code: "PHYS101", EarliestTerm: 1, CorequisiteIDs: []int64{2}},
		{ID: 2, Code: "PHYS101L", EarliestTerm: 1, CorequisiteIDs: []int64{1}},
	})

	eval, err := e.Evaluate(&models.StudentRecord{ID: 42})
	require.NoError(t, err)

	lecture := resultFor(t, eval, 1)
	lab := resultFor(t, eval, 2)
	require.True(t, lecture.Eligible)
	require.True(t, lab.Eligible)
	assert.Equal(t, []int64{1, 2}, lecture.CoreqGroup)
	assert.Equal(t, []int64{1, 2}, lab.CoreqGroup)
}

func TestCorequisiteBlockedTogether(t *testing.T) {
	e := newEvaluator(t, []*models.Course{
		{ID: 1, Code: "PRE", EarliestTerm: 1},
		{ID: 2, Code: "PHYS101", EarliestTerm: 1, CorequisiteIDs: []int64{3}},
		{ID: 3, Code: "PHYS101L", EarliestTerm: 1, PrerequisiteIDs: []int64{1}, CorequisiteIDs: []int64{2}},
	})

	eval, err := e.Evaluate(&models.StudentRecord{ID: 42})
	require.NoError(t, err)

	// Lab is blocked by its prerequisite, so the lecture is pulled down too
	assert.False(t, resultFor(t, eval, 3).Eligible)
	lecture := resultFor(t, eval, 2)
	assert.False(t, lecture.Eligible)
	assert.Equal(t, models.BlockPrereqUnmet, lecture.Reason)
}

func TestCorequisiteDemotionPropagatesThroughChain(t *testing.T) {
	// 1 requires 2 alongside, 2 requires 1 and 3 alongside, 3 is blocked by
	// an unmet prerequisite. Demoting 2 must pull 1 down as well even though
	// 1 was processed first.
	e := newEvaluator(t, []*models.Course{
		{ID: 1, Code: "PHYS101", EarliestTerm: 1, CorequisiteIDs: []int64{2}},
		{ID: 2, Code: "PHYS101L", EarliestTerm: 1, CorequisiteIDs: []int64{1, 3}},
		{ID: 3, Code: "SAFETY", EarliestTerm: 1, PrerequisiteIDs: []int64{4}},
		{ID: 4, Code: "PRE", EarliestTerm: 1},
	})

	eval, err := e.Evaluate(&models.StudentRecord{ID: 42})
	require.NoError(t, err)

	lecture := resultFor(t, eval, 1)
	lab := resultFor(t, eval, 2)
	assert.Equal(t, lab.Eligible, lecture.Eligible, "corequisite pair must be eligible together")
	assert.False(t, lecture.Eligible)
	assert.Equal(t, models.BlockPrereqUnmet, lecture.Reason)
	assert.Empty(t, lecture.CoreqGroup)
}

func TestCoreqGroupMembersAllEligible(t *testing.T) {
	e := newEvaluator(t, []*models.Course{
		{ID: 1, Code: "PHYS101", EarliestTerm: 1, CorequisiteIDs: []int64{2}},
		{ID: 2, Code: "PHYS101L", EarliestTerm: 1, CorequisiteIDs: []int64{1, 3}},
		{ID: 3, Code: "SAFETY", EarliestTerm: 1, PrerequisiteIDs: []int64{4}},
		{ID: 4, Code: "PRE", EarliestTerm: 1},
	})

	eval, err := e.Evaluate(&models.StudentRecord{ID: 42})
	require.NoError(t, err)

	byCourse := make(map[int64]models.EligibilityResult)
	for _, r := range eval.Results {
		byCourse[r.CourseID] = r
	}
	for _, r := range eval.Results {
		for _, co := range r.CoreqGroup {
			assert.True(t, byCourse[co].Eligible,
				"course %d carries group member %d which is not eligible", r.CourseID, co)
		}
	}
}

func TestPassedCorequisiteNoLongerConstrains(t *testing.T) {
	e := newEvaluator(t, []*models.Course{
		{ID: 1, Code: "PHYS101", EarliestTerm: 1, CorequisiteIDs: []int64{2}},
		{ID: 2, Code: "PHYS101L", EarliestTerm: 1, CorequisiteIDs: []int64{1}},
	})

	eval, err := e.Evaluate(&models.StudentRecord{
		ID: 42,
		History: []models.HistoryEntry{
			{CourseID: 2, Term: 1, Outcome: models.OutcomePassed, Grade: 90},
		},
	})
	require.NoError(t, err)

	lecture := resultFor(t, eval, 1)
	assert.True(t, lecture.Eligible)
	assert.Empty(t, lecture.CoreqGroup)
}

func TestLoadLimitDemotesExcess(t *testing.T) {
	catalog := []*models.Course{
		{ID: 1, Code: "A", EarliestTerm: 1},
		{ID: 2, Code: "B", EarliestTerm: 1},
		{ID: 3, Code: "C", EarliestTerm: 1},
	}
	g := buildGraph(t, catalog)
	e := progress.NewEvaluator(g, progress.Rules{
		PassingGrade: 50, MaxCoursesPerTerm: 2, TotalTermCap: 14,
	}, zerolog.Nop())

	eval, err := e.Evaluate(&models.StudentRecord{ID: 42})
	require.NoError(t, err)

	assert.True(t, resultFor(t, eval, 1).Eligible)
	assert.True(t, resultFor(t, eval, 2).Eligible)
	third := resultFor(t, eval, 3)
	assert.False(t, third.Eligible)
	assert.Equal(t, models.BlockCapacityOnly, third.Reason)
}

func TestLoadLimitKeepsRetakesFirst(t *testing.T) {
	catalog := []*models.Course{
		{ID: 1, Code: "A", EarliestTerm: 1},
		{ID: 2, Code: "B", EarliestTerm: 1},
		{ID: 3, Code: "C", EarliestTerm: 1},
	}
	g := buildGraph(t, catalog)
	e := progress.NewEvaluator(g, progress.Rules{
		PassingGrade: 50, MaxCoursesPerTerm: 1, TotalTermCap: 14,
	}, zerolog.Nop())

	eval, err := e.Evaluate(&models.StudentRecord{
		ID: 42,
		History: []models.HistoryEntry{
			{CourseID: 3, Term: 1, Outcome: models.OutcomeFailed, Grade: 20},
		},
	})
	require.NoError(t, err)

	// The failed course wins the single slot over fresh courses
	assert.True(t, resultFor(t, eval, 3).Eligible)
	assert.False(t, resultFor(t, eval, 1).Eligible)
	assert.False(t, resultFor(t, eval, 2).Eligible)
}

func TestMalformedHistoryFailsOnlyThisStudent(t *testing.T) {
	e := newEvaluator(t, []*models.Course{{ID: 1, Code: "A", EarliestTerm: 1}})

	_, err := e.Evaluate(&models.StudentRecord{
		ID: 42,
		History: []models.HistoryEntry{
			{CourseID: 1, Term: 1, Outcome: "PASS", Grade: 70},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown outcome")
}

func TestHistoryReferencingUnknownCourse(t *testing.T) {
	e := newEvaluator(t, []*models.Course{{ID: 1, Code: "A", EarliestTerm: 1}})

	_, err := e.Evaluate(&models.StudentRecord{
		ID: 42,
		History: []models.HistoryEntry{
			{CourseID: 77, Term: 1, Outcome: models.OutcomePassed, Grade: 70},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown course")
}
