package cohort_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akyuz/termflow/internal/app/models"
	"github.com/akyuz/termflow/internal/engine/cohort"
)

const term = 20251

var defaultConfig = cohort.Config{
	MaxCoursesPerTerm:    6,
	MinViableSectionSize: 0, // improvement step off unless a test opts in
}

func slot(days models.DaySet, start, end int) models.TimeSlot {
	return models.TimeSlot{Days: days, Start: start, End: end}
}

func section(id, courseID int64, capacity int, s models.TimeSlot) *models.ClassSection {
	return &models.ClassSection{ID: id, CourseID: courseID, Term: term, Capacity: capacity, Slot: s}
}

func eligible(studentID, courseID int64) models.EligibilityResult {
	return models.EligibilityResult{StudentID: studentID, CourseID: courseID, Eligible: true}
}

func progression(studentID int64, t int) models.TermProgression {
	return models.TermProgression{StudentID: studentID, Term: t}
}

func assignedSection(t *testing.T, result *cohort.Result, studentID, courseID int64) int64 {
	t.Helper()
	for _, a := range result.Assignments {
		if a.StudentID == studentID && a.CourseID == courseID {
			return a.SectionID
		}
	}
	return 0
}

func TestCapacityNeverExceeded(t *testing.T) {
	sections := []*models.ClassSection{
		section(1, 100, 2, slot(models.Monday, 540, 630)),
	}

	input := cohort.Input{Term: term, Sections: sections}
	for id := int64(1); id <= 5; id++ {
		input.Eligibility = append(input.Eligibility, eligible(id, 100))
		input.Progressions = append(input.Progressions, progression(id, 3))
	}

	result, err := cohort.Run(defaultConfig, input)
	require.NoError(t, err)

	assert.Len(t, result.Assignments, 2)
	assert.Len(t, result.Unassigned, 3)
	for _, u := range result.Unassigned {
		assert.Equal(t, cohort.ReasonCapacityExhausted, u.Reason)
	}
}

func TestScarcestSectionFillsFirst(t *testing.T) {
	// Section 2 has fewer remaining seats; the first student must land there
	sections := []*models.ClassSection{
		section(1, 100, 30, slot(models.Monday, 540, 630)),
		section(2, 100, 5, slot(models.Tuesday, 540, 630)),
	}

	input := cohort.Input{
		Term:         term,
		Sections:     sections,
		Eligibility:  []models.EligibilityResult{eligible(1, 100)},
		Progressions: []models.TermProgression{progression(1, 3)},
	}

	result, err := cohort.Run(defaultConfig, input)
	require.NoError(t, err)
	assert.Equal(t, int64(2), assignedSection(t, result, 1, 100))
}

func TestConflictingSectionRejected(t *testing.T) {
	// Both course 200 sections overlap the student's course 100 seat except one
	sections := []*models.ClassSection{
		section(1, 100, 1, slot(models.Monday, 540, 630)),
		section(2, 200, 1, slot(models.Monday, 560, 650)),  // overlaps section 1
		section(3, 200, 30, slot(models.Monday, 630, 720)), // touches 1, no overlap
	}

	input := cohort.Input{
		Term:     term,
		Sections: sections,
		Eligibility: []models.EligibilityResult{
			eligible(1, 100), eligible(1, 200),
		},
		Progressions: []models.TermProgression{progression(1, 3)},
	}

	result, err := cohort.Run(defaultConfig, input)
	require.NoError(t, err)

	assert.Equal(t, int64(1), assignedSection(t, result, 1, 100))
	// Scarcest-first would prefer section 2 but it conflicts
	assert.Equal(t, int64(3), assignedSection(t, result, 1, 200))
	assert.Empty(t, result.Unassigned)
}

func TestAllSectionsConflictReportsStudent(t *testing.T) {
	sections := []*models.ClassSection{
		section(1, 100, 1, slot(models.Monday, 540, 630)),
		section(2, 200, 1, slot(models.Monday, 540, 630)),
	}

	input := cohort.Input{
		Term:     term,
		Sections: sections,
		Eligibility: []models.EligibilityResult{
			eligible(1, 100), eligible(1, 200),
		},
		Progressions: []models.TermProgression{progression(1, 3)},
	}

	result, err := cohort.Run(defaultConfig, input)
	require.NoError(t, err)

	require.Len(t, result.Unassigned, 1)
	assert.Equal(t, cohort.ReasonScheduleConflict, result.Unassigned[0].Reason)
}

func TestRetryPriorityOrdersDemand(t *testing.T) {
	// One seat, two students; student 2's retake priority must win even
	// though student 1 sorts first by ID.
	sections := []*models.ClassSection{
		section(1, 100, 1, slot(models.Monday, 540, 630)),
	}

	input := cohort.Input{
		Term:     term,
		Sections: sections,
		Eligibility: []models.EligibilityResult{
			eligible(1, 100), eligible(2, 100),
		},
		Priorities: []models.RetryPriority{
			{StudentID: 2, CourseID: 100, Score: 42},
		},
		Progressions: []models.TermProgression{progression(1, 9), progression(2, 2)},
	}

	result, err := cohort.Run(defaultConfig, input)
	require.NoError(t, err)

	assert.Equal(t, int64(1), assignedSection(t, result, 2, 100))
	require.Len(t, result.Unassigned, 1)
	assert.Equal(t, int64(1), result.Unassigned[0].StudentID)
}

func TestFurtherAlongStudentsFirst(t *testing.T) {
	sections := []*models.ClassSection{
		section(1, 100, 1, slot(models.Monday, 540, 630)),
	}

	input := cohort.Input{
		Term:     term,
		Sections: sections,
		Eligibility: []models.EligibilityResult{
			eligible(1, 100), eligible(2, 100),
		},
		Progressions: []models.TermProgression{progression(1, 3), progression(2, 12)},
	}

	result, err := cohort.Run(defaultConfig, input)
	require.NoError(t, err)

	// Student 2 is in term 12, closer to graduation
	assert.Equal(t, int64(1), assignedSection(t, result, 2, 100))
}

func TestNoDoubleAssignmentForSameCourse(t *testing.T) {
	sections := []*models.ClassSection{
		section(1, 100, 10, slot(models.Monday, 540, 630)),
		section(2, 100, 10, slot(models.Tuesday, 540, 630)),
	}

	input := cohort.Input{
		Term:     term,
		Sections: sections,
		Eligibility: []models.EligibilityResult{
			eligible(1, 100), eligible(1, 100), // duplicated demand
		},
		Progressions: []models.TermProgression{progression(1, 3)},
	}

	result, err := cohort.Run(defaultConfig, input)
	require.NoError(t, err)
	assert.Len(t, result.Assignments, 1)
}

func TestPerStudentLoadCeiling(t *testing.T) {
	cfg := cohort.Config{MaxCoursesPerTerm: 2}
	sections := []*models.ClassSection{
		section(1, 100, 10, slot(models.Monday, 540, 630)),
		section(2, 200, 10, slot(models.Tuesday, 540, 630)),
		section(3, 300, 10, slot(models.Wednesday, 540, 630)),
	}

	input := cohort.Input{
		Term:     term,
		Sections: sections,
		Eligibility: []models.EligibilityResult{
			eligible(1, 100), eligible(1, 200), eligible(1, 300),
		},
		Progressions: []models.TermProgression{progression(1, 3)},
	}

	result, err := cohort.Run(cfg, input)
	require.NoError(t, err)
	assert.Len(t, result.Assignments, 2)
}

func TestUnderfilledSectionDrainedAndClosed(t *testing.T) {
	cfg := cohort.Config{MaxCoursesPerTerm: 6, MinViableSectionSize: 3}

	// Capacity 1 scarcest section attracts the single student, leaving it
	// under the viable size; the improvement step must move the student to
	// the bigger section and close the small one.
	sections := []*models.ClassSection{
		section(1, 100, 20, slot(models.Monday, 540, 630)),
		section(2, 100, 1, slot(models.Tuesday, 540, 630)),
	}

	input := cohort.Input{
		Term:         term,
		Sections:     sections,
		Eligibility:  []models.EligibilityResult{eligible(1, 100)},
		Progressions: []models.TermProgression{progression(1, 3)},
	}

	result, err := cohort.Run(cfg, input)
	require.NoError(t, err)

	assert.Equal(t, int64(1), assignedSection(t, result, 1, 100))
	assert.Equal(t, []int64{2}, result.ClosedSections)
	assert.Empty(t, result.Unassigned)
}

func TestDrainedStudentWithNoAlternativeIsReported(t *testing.T) {
	cfg := cohort.Config{MaxCoursesPerTerm: 6, MinViableSectionSize: 5}

	sections := []*models.ClassSection{
		section(1, 100, 10, slot(models.Monday, 540, 630)),
	}

	input := cohort.Input{
		Term:         term,
		Sections:     sections,
		Eligibility:  []models.EligibilityResult{eligible(1, 100)},
		Progressions: []models.TermProgression{progression(1, 3)},
	}

	result, err := cohort.Run(cfg, input)
	require.NoError(t, err)

	assert.Empty(t, result.Assignments)
	assert.Equal(t, []int64{1}, result.ClosedSections)
	require.Len(t, result.Unassigned, 1)
	assert.Equal(t, cohort.ReasonSectionClosed, result.Unassigned[0].Reason)
}

func TestViableSectionSurvivesImprovement(t *testing.T) {
	cfg := cohort.Config{MaxCoursesPerTerm: 6, MinViableSectionSize: 2}

	sections := []*models.ClassSection{
		section(1, 100, 10, slot(models.Monday, 540, 630)),
	}

	input := cohort.Input{
		Term:     term,
		Sections: sections,
		Eligibility: []models.EligibilityResult{
			eligible(1, 100), eligible(2, 100),
		},
		Progressions: []models.TermProgression{progression(1, 3), progression(2, 3)},
	}

	result, err := cohort.Run(cfg, input)
	require.NoError(t, err)

	assert.Len(t, result.Assignments, 2)
	assert.Empty(t, result.ClosedSections)
}

func TestExistingEnrollmentsConsumeCapacity(t *testing.T) {
	sections := []*models.ClassSection{
		section(1, 100, 2, slot(models.Monday, 540, 630)),
	}

	input := cohort.Input{
		Term:         term,
		Sections:     sections,
		Eligibility:  []models.EligibilityResult{eligible(1, 100)},
		Progressions: []models.TermProgression{progression(1, 3)},
		Existing: []models.CohortAssignment{
			{StudentID: 90, SectionID: 1, CourseID: 100},
			{StudentID: 91, SectionID: 1, CourseID: 100},
		},
	}

	result, err := cohort.Run(defaultConfig, input)
	require.NoError(t, err)

	assert.Empty(t, result.Assignments)
	require.Len(t, result.Unassigned, 1)
	assert.Equal(t, cohort.ReasonCapacityExhausted, result.Unassigned[0].Reason)
}

func TestExistingScheduleBlocksConflictingAssignment(t *testing.T) {
	sections := []*models.ClassSection{
		section(1, 100, 10, slot(models.Monday, 540, 630)),
		section(2, 200, 10, slot(models.Monday, 560, 650)),
	}

	input := cohort.Input{
		Term:         term,
		Sections:     sections,
		Eligibility:  []models.EligibilityResult{eligible(1, 200)},
		Progressions: []models.TermProgression{progression(1, 3)},
		Existing: []models.CohortAssignment{
			{StudentID: 1, SectionID: 1, CourseID: 100},
		},
	}

	result, err := cohort.Run(defaultConfig, input)
	require.NoError(t, err)

	assert.Empty(t, result.Assignments)
	require.Len(t, result.Unassigned, 1)
	assert.Equal(t, cohort.ReasonScheduleConflict, result.Unassigned[0].Reason)
}

func TestExistingLoadCeilingDemandStillReported(t *testing.T) {
	// Student 1 already holds their single allowed course, so the demand for
	// course 200 cannot seat; it must surface in the unassigned report, not
	// vanish.
	cfg := cohort.Config{MaxCoursesPerTerm: 1}
	sections := []*models.ClassSection{
		section(1, 100, 10, slot(models.Monday, 540, 630)),
		section(2, 200, 10, slot(models.Tuesday, 540, 630)),
	}

	input := cohort.Input{
		Term:         term,
		Sections:     sections,
		Eligibility:  []models.EligibilityResult{eligible(1, 200)},
		Progressions: []models.TermProgression{progression(1, 3)},
		Existing: []models.CohortAssignment{
			{StudentID: 1, SectionID: 1, CourseID: 100},
		},
	}

	result, err := cohort.Run(cfg, input)
	require.NoError(t, err)

	assert.Empty(t, result.Assignments)
	require.Len(t, result.Unassigned, 1)
	assert.Equal(t, int64(1), result.Unassigned[0].StudentID)
	assert.Equal(t, int64(200), result.Unassigned[0].CourseID)
	assert.Equal(t, cohort.ReasonLoadCeiling, result.Unassigned[0].Reason)
}

func TestPreloadedSectionNeverClosed(t *testing.T) {
	cfg := cohort.Config{MaxCoursesPerTerm: 6, MinViableSectionSize: 5}
	sections := []*models.ClassSection{
		section(1, 100, 10, slot(models.Monday, 540, 630)),
	}

	input := cohort.Input{
		Term:         term,
		Sections:     sections,
		Eligibility:  []models.EligibilityResult{eligible(1, 100)},
		Progressions: []models.TermProgression{progression(1, 3)},
		Existing: []models.CohortAssignment{
			{StudentID: 90, SectionID: 1, CourseID: 100},
		},
	}

	result, err := cohort.Run(cfg, input)
	require.NoError(t, err)

	// Under the viable size, but an existing enrollee pins the section open
	assert.Len(t, result.Assignments, 1)
	assert.Empty(t, result.ClosedSections)
}

func TestDeterministicAcrossRuns(t *testing.T) {
	sections := []*models.ClassSection{
		section(1, 100, 3, slot(models.Monday, 540, 630)),
		section(2, 100, 3, slot(models.Tuesday, 540, 630)),
		section(3, 200, 2, slot(models.Wednesday, 540, 630)),
	}

	input := cohort.Input{Term: term, Sections: sections}
	for id := int64(1); id <= 6; id++ {
		input.Eligibility = append(input.Eligibility, eligible(id, 100), eligible(id, 200))
		input.Progressions = append(input.Progressions, progression(id, int(id%4)+1))
	}

	first, err := cohort.Run(defaultConfig, input)
	require.NoError(t, err)
	second, err := cohort.Run(defaultConfig, input)
	require.NoError(t, err)

	assert.Equal(t, first.Assignments, second.Assignments)
	assert.Equal(t, first.Unassigned, second.Unassigned)
	assert.Equal(t, first.ClosedSections, second.ClosedSections)
}

func TestAssignmentsOrderedForComparison(t *testing.T) {
	sections := []*models.ClassSection{
		section(1, 100, 10, slot(models.Monday, 540, 630)),
	}

	input := cohort.Input{Term: term, Sections: sections}
	for id := int64(5); id >= 1; id-- {
		input.Eligibility = append(input.Eligibility, eligible(id, 100))
		input.Progressions = append(input.Progressions, progression(id, 3))
	}

	result, err := cohort.Run(defaultConfig, input)
	require.NoError(t, err)

	require.Len(t, result.Assignments, 5)
	for i := 1; i < len(result.Assignments); i++ {
		assert.Less(t, result.Assignments[i-1].StudentID, result.Assignments[i].StudentID)
	}
}
