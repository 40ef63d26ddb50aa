package prereq_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akyuz/termflow/internal/app/models"
	"github.com/akyuz/termflow/internal/engine/prereq"
)

func course(id int64, code string, prereqIDs ...int64) *models.Course {
	return &models.Course{ID: id, Code: code, Credits: 5, PrerequisiteIDs: prereqIDs}
}

func TestBuildLinearChain(t *testing.T) {
	g, err := prereq.Build([]*models.Course{
		course(1, "MATH101"),
		course(2, "MATH102", 1),
		course(3, "MATH201", 2),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, g.Len())
	assert.Equal(t, []int64{1}, g.Prerequisites(2))
	assert.Equal(t, []int64{2}, g.Dependents(1))

	// MATH101 transitively gates MATH102 and MATH201
	assert.Equal(t, 2, g.BlockingCount(1))
	assert.Equal(t, 1, g.BlockingCount(2))
	assert.Equal(t, 0, g.BlockingCount(3))
	assert.Equal(t, []int64{2, 3}, g.Blocked(1))
}

func TestBuildDiamond(t *testing.T) {
	// 1 -> 2, 1 -> 3, {2,3} -> 4: course 4 must be counted once behind 1
	g, err := prereq.Build([]*models.Course{
		course(1, "A"),
		course(2, "B", 1),
		course(3, "C", 1),
		course(4, "D", 2, 3),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, g.BlockingCount(1))
}

func TestCycleDetected(t *testing.T) {
	_, err := prereq.Build([]*models.Course{
		course(1, "A", 3),
		course(2, "B", 1),
		course(3, "C", 2),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, prereq.ErrCycleDetected)
	// The offending courses are named for the administrator
	assert.Contains(t, err.Error(), "A")
	assert.Contains(t, err.Error(), "C")
}

func TestSelfLoopIsACycle(t *testing.T) {
	_, err := prereq.Build([]*models.Course{course(1, "A", 1)})
	assert.ErrorIs(t, err, prereq.ErrCycleDetected)
}

func TestUnknownPrerequisite(t *testing.T) {
	_, err := prereq.Build([]*models.Course{course(1, "A", 99)})
	assert.ErrorIs(t, err, prereq.ErrUnknownCourse)
}

func TestDuplicateCourseID(t *testing.T) {
	_, err := prereq.Build([]*models.Course{course(1, "A"), course(1, "B")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate course id")
}

func TestEmptyCatalog(t *testing.T) {
	g, err := prereq.Build(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, g.Len())
}

func TestCoursesOrderedByID(t *testing.T) {
	g, err := prereq.Build([]*models.Course{course(3, "C"), course(1, "A"), course(2, "B")})
	require.NoError(t, err)

	ids := make([]int64, 0, 3)
	for _, c := range g.Courses() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []int64{1, 2, 3}, ids)
}
