// Package prereq builds the prerequisite DAG for a course catalog and
// precomputes the reachability index used by retry ranking.
package prereq

import (
	"errors"
	"fmt"
	"sort"

	"github.com/akyuz/termflow/internal/app/models"
)

// ErrCycleDetected signals a prerequisite cycle in the catalog. It is a
// data-authoring error: the run must abort and the catalog be corrected,
// never silently repaired by dropping an edge.
var ErrCycleDetected = errors.New("prerequisite cycle detected")

// ErrUnknownCourse signals a prerequisite edge pointing outside the catalog
var ErrUnknownCourse = errors.New("prerequisite references unknown course")

// Graph is the immutable prerequisite DAG for one catalog snapshot.
// Adjacency is keyed by course ID, so traversal is plain map lookups with
// no object-to-object links.
type Graph struct {
	courses    map[int64]*models.Course
	prereqs    map[int64][]int64 // course -> its prerequisites
	dependents map[int64][]int64 // course -> courses directly requiring it
	// reachable[c] holds every course transitively gated behind c; its
	// cardinality is the blocking count used by the ranker.
	reachable map[int64]map[int64]bool
}

// Build constructs the graph from a catalog snapshot, validates acyclicity
// with Kahn's algorithm and precomputes the reachability index.
func Build(catalog []*models.Course) (*Graph, error) {
	g := &Graph{
		courses:    make(map[int64]*models.Course, len(catalog)),
		prereqs:    make(map[int64][]int64, len(catalog)),
		dependents: make(map[int64][]int64, len(catalog)),
		reachable:  make(map[int64]map[int64]bool, len(catalog)),
	}

	for _, c := range catalog {
		if _, dup := g.courses[c.ID]; dup {
			return nil, fmt.Errorf("duplicate course id %d (%s)", c.ID, c.Code)
		}
		g.courses[c.ID] = c
	}

	for _, c := range catalog {
		for _, p := range c.PrerequisiteIDs {
			if _, ok := g.courses[p]; !ok {
				return nil, fmt.Errorf("%w: course %s requires %d", ErrUnknownCourse, c.Code, p)
			}
			g.prereqs[c.ID] = append(g.prereqs[c.ID], p)
			g.dependents[p] = append(g.dependents[p], c.ID)
		}
	}

	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}

	g.buildReachability()
	return g, nil
}

// checkAcyclic runs Kahn's algorithm over the prerequisite edges. If the
// peel-off does not consume every node, the remainder contains a cycle.
func (g *Graph) checkAcyclic() error {
	inDeg := make(map[int64]int, len(g.courses))
	for id := range g.courses {
		inDeg[id] = len(g.prereqs[id])
	}

	var queue []int64
	for id, deg := range inDeg {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	processed := 0
	for len(queue) > 0 {
		id := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		processed++

		for _, dep := range g.dependents[id] {
			inDeg[dep]--
			if inDeg[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if processed != len(g.courses) {
		var stuck []string
		for id, deg := range inDeg {
			if deg > 0 {
				stuck = append(stuck, g.courses[id].Code)
			}
		}
		sort.Strings(stuck)
		return fmt.Errorf("%w: involving %v", ErrCycleDetected, stuck)
	}
	return nil
}

// buildReachability computes, for every course, the transitive set of
// courses gated behind it. Catalogs are small (hundreds of courses), so a
// DFS per node is cheap and keeps the code obvious.
func (g *Graph) buildReachability() {
	var visit func(from int64, seen map[int64]bool)
	visit = func(from int64, seen map[int64]bool) {
		for _, dep := range g.dependents[from] {
			if !seen[dep] {
				seen[dep] = true
				visit(dep, seen)
			}
		}
	}

	for id := range g.courses {
		seen := make(map[int64]bool)
		visit(id, seen)
		g.reachable[id] = seen
	}
}

// Course returns the catalog entry for an ID, or nil if unknown
func (g *Graph) Course(id int64) *models.Course {
	return g.courses[id]
}

// Contains reports whether the catalog includes the course
func (g *Graph) Contains(id int64) bool {
	_, ok := g.courses[id]
	return ok
}

// Len returns the number of courses in the graph
func (g *Graph) Len() int {
	return len(g.courses)
}

// Prerequisites returns the direct prerequisite IDs of a course
func (g *Graph) Prerequisites(id int64) []int64 {
	return g.prereqs[id]
}

// Dependents returns the courses directly requiring the given course
func (g *Graph) Dependents(id int64) []int64 {
	return g.dependents[id]
}

// BlockingCount returns how many courses are transitively gated behind the
// given course. Used as the dominant term of the retry priority score.
func (g *Graph) BlockingCount(id int64) int {
	return len(g.reachable[id])
}

// Blocked returns the sorted IDs of every course transitively gated behind
// the given course, for advising displays.
func (g *Graph) Blocked(id int64) []int64 {
	ids := make([]int64, 0, len(g.reachable[id]))
	for c := range g.reachable[id] {
		ids = append(ids, c)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Courses returns all catalog entries ordered by ID for deterministic iteration
func (g *Graph) Courses() []*models.Course {
	out := make([]*models.Course, 0, len(g.courses))
	for _, c := range g.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
