package suggest

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"

	"github.com/amishardev/orbi-sub001/internal/app"
	"github.com/amishardev/orbi-sub001/internal/apperr"
	"github.com/amishardev/orbi-sub001/internal/recommend"
	"github.com/amishardev/orbi-sub001/internal/repository"
)

// cacheTTL bounds staleness of served lists between batch runs.
const cacheTTL = 10 * time.Minute

// Service serves stored recommendation lists and recomputes them on
// demand. It is a thin adapter over the shared recommendation engine:
// it supplies the interactive latency budget (smaller top-N) and leaves
// the pipeline itself untouched.
type Service struct {
	appCtx *app.AppContext
	engine *recommend.Engine
	recs   *repository.RecommendationRepository
}

// NewService creates a new suggestions service with dependencies from
// AppContext. The engine is built from the configured scheme; a missing
// embedding provider disables the semantic strategy.
func NewService(appCtx *app.AppContext) *Service {
	profiles := repository.NewProfileRepository(appCtx.DB)
	graph := repository.NewGraphRepository(appCtx.DB)
	return &Service{
		appCtx: appCtx,
		engine: recommend.NewEngine(appCtx.Config, profiles, graph, appCtx.Embedder, appCtx.Logger).
			WithTrendingCache(appCtx.RedisCache),
		recs:   repository.NewRecommendationRepository(appCtx.DB),
	}
}

// Engine exposes the shared pipeline for other adapters (batch job).
func (s *Service) Engine() *recommend.Engine { return s.engine }

// Get returns the user's current suggestion list.
//
// Cache-first strategy:
//  1. Attempts to read the serialized list from Redis.
//  2. On miss, falls back to the DB and repopulates the cache.
//  3. No stored list → empty list, never an error: users with nothing
//     computed yet simply see no suggestions.
func (s *Service) Get(ctx context.Context, userID uint64) (*recommend.List, error) {
	key := s.appCtx.RedisCache.KeyForSuggestions(userID)

	// try cache first
	if cached, err := s.appCtx.RedisCache.Get(ctx, key); err == nil && cached != "" {
		var list recommend.List
		if json.Unmarshal([]byte(cached), &list) == nil {
			return &list, nil
		}
	}

	list, err := s.recs.Get(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return &recommend.List{Items: []recommend.ScoredRecommendation{}}, nil
	}
	if err != nil {
		return nil, err
	}

	s.cache(ctx, key, list)
	return list, nil
}

// Refresh recomputes the user's list on demand with the interactive
// top-N, persists it wholesale, and updates the cache.
func (s *Service) Refresh(ctx context.Context, userID uint64) (*recommend.List, error) {
	s.appCtx.Logger.Debug("Refresh called", "user_id", userID)

	list, err := s.engine.Recommend(ctx, userID, recommend.Options{
		TopN: s.appCtx.Config.Recommend.InteractiveTopN,
	})
	if err != nil {
		return nil, err
	}

	if err := s.recs.Put(ctx, userID, list); err != nil {
		return nil, err
	}
	s.cache(ctx, s.appCtx.RedisCache.KeyForSuggestions(userID), list)
	return list, nil
}

// Invalidate drops the cached list after an out-of-band rewrite.
func (s *Service) Invalidate(ctx context.Context, userID uint64) {
	_ = s.appCtx.RedisCache.Del(ctx, s.appCtx.RedisCache.KeyForSuggestions(userID))
}

func (s *Service) cache(ctx context.Context, key string, list *recommend.List) {
	blob, err := json.Marshal(list)
	if err != nil {
		return
	}
	_ = s.appCtx.RedisCache.Set(ctx, key, string(blob), cacheTTL)
}
