package recommend

import (
	"sort"
	"time"
)

// scoredCandidate pairs a candidate with its computed score for ranking.
type scoredCandidate struct {
	userID     uint64
	score      float64
	reason     string
	lastActive time.Time
}

// Ranker orders scored candidates and truncates to the top N.
type Ranker struct {
	TopN int

	// ScoreFloor discards candidates at or below the threshold when
	// positive. Zero disables the floor (the default).
	ScoreFloor float64
}

// Rank sorts descending by score, breaking ties by most recent activity
// and then by ascending user id so repeated runs over the same inputs
// produce the same order.
func (r *Ranker) Rank(scored []scoredCandidate) []ScoredRecommendation {
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if !a.lastActive.Equal(b.lastActive) {
			return a.lastActive.After(b.lastActive)
		}
		return a.userID < b.userID
	})

	items := make([]ScoredRecommendation, 0, len(scored))
	for _, sc := range scored {
		if r.ScoreFloor > 0 && sc.score <= r.ScoreFloor {
			continue
		}
		items = append(items, ScoredRecommendation{
			UserID: sc.userID,
			Score:  sc.score,
			Reason: sc.reason,
		})
		if r.TopN > 0 && len(items) >= r.TopN {
			break
		}
	}
	return items
}
