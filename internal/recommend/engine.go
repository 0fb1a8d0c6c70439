package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/amishardev/orbi-sub001/internal/config"
	"github.com/amishardev/orbi-sub001/internal/embedding"
)

// Options tune one recommendation computation.
type Options struct {
	// TopN truncates the ranked list; zero falls back to the engine
	// default (batch length).
	TopN int

	// FlatBonus is added to every candidate's score before the floor is
	// applied. The batch job sets it for small userbases so that strict
	// relevance scoring still surfaces suggestions.
	FlatBonus float64
}

// Engine is the consolidated recommendation pipeline: retrieval,
// scoring and ranking behind a single entry point. Batch and
// interactive callers are thin adapters over Recommend, differing only
// in Options.
type Engine struct {
	Profiles  ProfileStore
	Retriever *Retriever
	Scorer    *Scorer

	TopN       int
	ScoreFloor float64
	Log        *slog.Logger
}

// NewEngine wires the five retrieval strategies and the configured
// scoring scheme. A nil embedder disables the semantic strategy and
// forces the additive scheme regardless of configuration.
func NewEngine(cfg *config.Config, profiles ProfileStore, graph GraphStore, embedder embedding.Provider, log *slog.Logger) *Engine {
	rc := cfg.Recommend

	sources := []Source{
		&SocialGraphSource{
			Graph:       graph,
			Profiles:    profiles,
			ScanLimit:   rc.FollowScanLimit,
			Sample:      rc.FollowSample,
			FanoutLimit: rc.FanoutLimit,
			Cap:         rc.FanoutCap,
			BatchSize:   rc.LookupBatchSize,
		},
		&SharedTagsSource{Profiles: profiles, Cap: rc.TagQueryCap},
		&SharedCommunitiesSource{Profiles: profiles, Cap: rc.CommunityQueryCap},
		&TrendingSource{Profiles: profiles, Limit: rc.TrendingLimit},
	}

	scheme := Scheme(rc.Scheme)
	if embedder != nil {
		sources = append(sources, &SemanticSource{
			Profiles: profiles,
			Embedder: embedder,
			Pool:     rc.SemanticPool,
		})
	} else if scheme == SchemeBlended {
		log.Warn("no embedding provider configured, falling back to additive scoring")
		scheme = SchemeAdditive
	}

	return &Engine{
		Profiles:   profiles,
		Retriever:  &Retriever{Sources: sources, Graph: graph, Log: log},
		Scorer:     NewScorer(scheme),
		TopN:       rc.TopN,
		ScoreFloor: rc.ScoreFloor,
		Log:        log,
	}
}

// Recommend computes the ranked suggestion list for one user.
//
// Behavior:
//   - Missing requester profile → error (caller logs and moves on).
//   - Total retrieval failure → empty list, not an error; end users see
//     "no suggestions" rather than a failure.
//   - The returned list is complete and self-contained; persisting it
//     is the caller's concern.
func (e *Engine) Recommend(ctx context.Context, userID uint64, opts Options) (*List, error) {
	requester, err := e.Profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load requester %d: %w", userID, err)
	}

	candidates, err := e.Retriever.Retrieve(ctx, requester)
	if err != nil {
		// All strategies down: degrade to an empty list.
		e.log().Warn("retrieval failed, returning empty list", "user_id", userID, "err", err)
		return &List{UpdatedAt: time.Now().UTC(), Items: []ScoredRecommendation{}}, nil
	}

	scored := make([]scoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		score, reason := e.Scorer.Score(requester, c)
		scored = append(scored, scoredCandidate{
			userID:     c.Profile.ID,
			score:      score + opts.FlatBonus,
			reason:     reason,
			lastActive: c.Profile.LastActiveAt,
		})
	}

	topN := opts.TopN
	if topN <= 0 {
		topN = e.TopN
	}
	ranker := &Ranker{TopN: topN, ScoreFloor: e.ScoreFloor}

	return &List{
		UpdatedAt: time.Now().UTC(),
		Items:     ranker.Rank(scored),
	}, nil
}

// WithTrendingCache wraps the trending strategy in a shared Redis
// cache. The trending pool is requester-independent, so one cached copy
// serves an entire batch run.
func (e *Engine) WithTrendingCache(c Cache) *Engine {
	if c == nil {
		return e
	}
	for i, src := range e.Retriever.Sources {
		if ts, ok := src.(*TrendingSource); ok {
			e.Retriever.Sources[i] = &CachedTrendingSource{Inner: ts, Cache: c}
		}
	}
	return e
}

// WithSampleRand overrides the social-graph sampling source of
// randomness. Test hook.
func (e *Engine) WithSampleRand(r *rand.Rand) *Engine {
	for _, src := range e.Retriever.Sources {
		if sg, ok := src.(*SocialGraphSource); ok {
			sg.Rand = r
		}
	}
	return e
}

func (e *Engine) log() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}
