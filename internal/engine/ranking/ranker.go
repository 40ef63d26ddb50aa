// Package ranking scores failed-and-now-eligible courses so the cohort
// optimizer seats the most blocking retakes first.
package ranking

import (
	"sort"

	"github.com/akyuz/termflow/internal/app/models"
	"github.com/akyuz/termflow/internal/engine/prereq"
)

// Recency buckets. Bucketing keeps the ranking stable and explainable to
// advisors, where a continuous decay would reorder on every term tick.
const (
	RecencyOlder    = 0
	RecencyLastTerm = 1
	RecencyThisTerm = 2
)

// Weights configures the score terms. The score is
// blocking*Blocking + cappedAttempts*Attempts + recencyBucket*Recency.
type Weights struct {
	Blocking      float64 // W1, applied to the reachability blocking count
	Attempts      float64 // W2, applied to the capped failed-attempt count
	Recency       float64 // W3, applied to the recency bucket
	MaxAttemptCap int     // Attempts are capped here to avoid runaway scores
}

// DefaultWeights orders primarily by downstream blocking impact
func DefaultWeights() Weights {
	return Weights{Blocking: 10, Attempts: 3, Recency: 2, MaxAttemptCap: 4}
}

// Ranker computes retry priorities against one prerequisite graph
type Ranker struct {
	graph   *prereq.Graph
	weights Weights
}

// NewRanker creates a ranker with the given weights
func NewRanker(graph *prereq.Graph, weights Weights) *Ranker {
	if weights.MaxAttemptCap <= 0 {
		weights.MaxAttemptCap = DefaultWeights().MaxAttemptCap
	}
	return &Ranker{graph: graph, weights: weights}
}

// Rank scores every eligible course the student has previously failed.
// currentTerm is the student's term-in-program; recency is bucketed
// relative to it. Results are sorted by score descending with ties broken
// by credits descending, then course ID, so identical inputs always
// produce identical orderings.
func (r *Ranker) Rank(record *models.StudentRecord, currentTerm int, eligibility []models.EligibilityResult) []models.RetryPriority {
	lastFailedTerm := make(map[int64]int)
	attempts := make(map[int64]int)
	for _, h := range record.History {
		if h.Outcome != models.OutcomeFailed {
			continue
		}
		attempts[h.CourseID]++
		if h.Term > lastFailedTerm[h.CourseID] {
			lastFailedTerm[h.CourseID] = h.Term
		}
	}

	var out []models.RetryPriority
	for _, e := range eligibility {
		if !e.Eligible || attempts[e.CourseID] == 0 {
			continue
		}
		out = append(out, models.RetryPriority{
			StudentID: record.ID,
			CourseID:  e.CourseID,
			Score:     r.score(e.CourseID, attempts[e.CourseID], lastFailedTerm[e.CourseID], currentTerm),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		ci, cj := r.graph.Course(out[i].CourseID), r.graph.Course(out[j].CourseID)
		if ci.Credits != cj.Credits {
			return ci.Credits > cj.Credits
		}
		return out[i].CourseID < out[j].CourseID
	})
	return out
}

func (r *Ranker) score(courseID int64, attemptCount, lastFailed, currentTerm int) float64 {
	if attemptCount > r.weights.MaxAttemptCap {
		attemptCount = r.weights.MaxAttemptCap
	}

	return float64(r.graph.BlockingCount(courseID))*r.weights.Blocking +
		float64(attemptCount)*r.weights.Attempts +
		float64(r.recencyBucket(lastFailed, currentTerm))*r.weights.Recency
}

// recencyBucket maps the last failed term onto {older, last term, this
// term}. currentTerm is the term the student is entering, so a failure in
// currentTerm-1 is the most recent possible.
func (r *Ranker) recencyBucket(lastFailed, currentTerm int) int {
	switch {
	case lastFailed >= currentTerm-1:
		return RecencyThisTerm
	case lastFailed == currentTerm-2:
		return RecencyLastTerm
	default:
		return RecencyOlder
	}
}
