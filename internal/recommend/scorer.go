package recommend

import (
	"fmt"
	"math"
)

// Scheme selects one of the two scoring formulas. A deployment picks
// exactly one; the formulas are never mixed within a deployment, so
// scores stay comparable across every code path that produces them.
type Scheme string

const (
	// SchemeAdditive is the weighted additive model (canonical default).
	SchemeAdditive Scheme = "additive"

	// SchemeBlended is the embedding-augmented model: cosine similarity
	// blended with a binary shared-interest signal, rescaled to the
	// additive range. Requires the semantic strategy to be enabled.
	SchemeBlended Scheme = "blended"
)

// Weights are the tunable factors of the additive model.
type Weights struct {
	SocialGraph       float64 // flat, candidate surfaced by the friend-of-friend walk
	PerCommunity      float64 // per shared community
	PerTag            float64 // per shared interest tag
	RelationshipMatch float64 // both statuses set and equal
	PopularityFactor  float64 // multiplied by log10(followersCount)
}

// DefaultWeights reproduces the reference deployment.
func DefaultWeights() Weights {
	return Weights{
		SocialGraph:       40,
		PerCommunity:      25,
		PerTag:            20,
		RelationshipMatch: 10,
		PopularityFactor:  10,
	}
}

// blendedScale maps the blended formula's 0..1 range onto the additive
// score range so ranker thresholds mean the same thing in both schemes.
const blendedScale = 100

// Scorer assigns a relevance score and a display reason to a candidate.
// It is pure: identical inputs always produce an identical result.
type Scorer struct {
	Scheme  Scheme
	Weights Weights
}

// NewScorer builds a scorer for the given scheme with default weights.
func NewScorer(scheme Scheme) *Scorer {
	return &Scorer{Scheme: scheme, Weights: DefaultWeights()}
}

// Score computes the candidate's score for the requester.
//
// The reason is the single highest-weight contributing factor, with
// ties resolved by factor priority: social graph, communities, tags,
// relationship, popularity.
func (s *Scorer) Score(requester *Profile, c *Candidate) (float64, string) {
	if s.Scheme == SchemeBlended {
		return s.scoreBlended(requester, c)
	}
	return s.scoreAdditive(requester, c)
}

func (s *Scorer) scoreAdditive(requester *Profile, c *Candidate) (float64, string) {
	w := s.Weights
	p := c.Profile

	var total, best float64
	reason := "Suggested"

	// Factors in priority order; strict > keeps earlier factors on ties.
	if c.Matched(SourceSocialGraph) {
		total += w.SocialGraph
		if w.SocialGraph > best {
			best, reason = w.SocialGraph, "Mutual/FoF"
		}
	}

	if n := intersectCount(requester.Communities, p.Communities); n > 0 {
		contrib := w.PerCommunity * float64(n)
		total += contrib
		if contrib > best {
			best, reason = contrib, fmt.Sprintf("Communities: %d", n)
		}
	}

	if n := intersectCount(requester.Tags, p.Tags); n > 0 {
		contrib := w.PerTag * float64(n)
		total += contrib
		if contrib > best {
			best, reason = contrib, fmt.Sprintf("Interests: %d", n)
		}
	}

	if requester.RelationshipStatus != "" && requester.RelationshipStatus == p.RelationshipStatus {
		total += w.RelationshipMatch
		if w.RelationshipMatch > best {
			best, reason = w.RelationshipMatch, "Relationship match"
		}
	}

	if p.FollowersCount > 0 {
		contrib := w.PopularityFactor * math.Log10(float64(p.FollowersCount))
		total += contrib
		if contrib > best {
			best, reason = contrib, "Popular"
		}
	}

	return total, reason
}

func (s *Scorer) scoreBlended(requester *Profile, c *Candidate) (float64, string) {
	sim := clamp01(c.Similarity)
	shared := 0.0
	if intersectCount(requester.Tags, c.Profile.Tags) > 0 {
		shared = 1
	}
	score := (0.7*sim + 0.3*shared) * blendedScale

	reason := fmt.Sprintf("Similarity: %d%%", int(math.Round(sim*100)))
	if shared > 0 && sim < 0.5 {
		reason = "Shared interests"
	}
	return score, reason
}

// intersectCount counts values present in both unordered sets.
func intersectCount(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	n := 0
	for _, v := range b {
		if _, ok := set[v]; ok {
			n++
			delete(set, v) // duplicates in b count once
		}
	}
	return n
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
