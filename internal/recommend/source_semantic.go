package recommend

import (
	"context"
	"sort"
	"strings"

	"github.com/amishardev/orbi-sub001/internal/embedding"
)

// SemanticSource ranks a recent-user pool by embedding similarity to
// the requester's profile text. Feature-gated: deployments without an
// embedding provider simply do not register this source.
type SemanticSource struct {
	Profiles ProfileStore
	Embedder embedding.Provider
	Pool     int // recent users considered (default 100)
}

func (s *SemanticSource) Name() string   { return "source.semantic" }
func (s *SemanticSource) Tag() SourceTag { return SourceSemantic }

func (s *SemanticSource) Retrieve(ctx context.Context, requester *Profile) ([]Hit, error) {
	if s.Embedder == nil {
		return nil, nil
	}

	qv, err := s.Embedder.Embed(ctx, ProfileText(requester))
	if err != nil {
		return nil, err
	}

	pool, err := s.Profiles.RecentUsers(ctx, defaultInt(s.Pool, 100))
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(pool))
	for _, p := range pool {
		if p.ID == requester.ID {
			continue
		}
		cv, err := s.Embedder.Embed(ctx, ProfileText(p))
		if err != nil {
			// Per-candidate provider hiccup: skip, keep the rest.
			continue
		}
		hits = append(hits, Hit{Profile: p, Similarity: embedding.Cosine(qv, cv)})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	return hits, nil
}

// ProfileText concatenates the displayed profile fields into the text
// the embedding provider sees.
func ProfileText(p *Profile) string {
	parts := make([]string, 0, 3)
	if p.DisplayName != "" {
		parts = append(parts, p.DisplayName)
	}
	if p.Bio != "" {
		parts = append(parts, p.Bio)
	}
	if len(p.Tags) > 0 {
		parts = append(parts, strings.Join(p.Tags, ", "))
	}
	return strings.Join(parts, "\n")
}
