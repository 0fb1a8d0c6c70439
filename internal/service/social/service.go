package social

import (
	"context"
	"fmt"
	"time"

	"github.com/amishardev/orbi-sub001/internal/app"
	"github.com/amishardev/orbi-sub001/internal/apperr"
	"github.com/amishardev/orbi-sub001/internal/repository"
)

// Service implements the follow-graph operations: the follow toggle and
// follower listings. It contains the business logic on top of the
// repository and cache layers.
type Service struct {
	appCtx    *app.AppContext
	graphRepo *repository.GraphRepository
	limiter   *toggleLimiter
}

// NewService creates a new social service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:    appCtx,
		graphRepo: repository.NewGraphRepository(appCtx.DB),
		limiter:   newToggleLimiter(appCtx.Config.Follow.RatePerSecond, appCtx.Config.Follow.RateBurst),
	}
}

// ToggleResult is the outcome of one follow toggle.
type ToggleResult struct {
	Following bool // the pair's state after the toggle
}

// ToggleFollow flips the follow state of (actor → target).
//
// Behavior:
//   - Self-follow → apperr.ErrInvalidArgument.
//   - Per-actor rate limit exceeded → apperr.ErrRateLimited before any
//     store access.
//   - Delegates atomicity to repository.Toggle (single transaction,
//     bounded conflict retry).
//   - Updates the target's cached follower count (+1/-1, TTL refresh),
//     best effort.
func (s *Service) ToggleFollow(ctx context.Context, actorID, targetID uint64) (*ToggleResult, error) {
	s.appCtx.Logger.Debug("ToggleFollow called", "actor", actorID, "target", targetID)

	if actorID == 0 || targetID == 0 {
		return nil, apperr.InvalidArgument("actor and target ids are required")
	}
	if actorID == targetID {
		return nil, apperr.InvalidArgument("cannot follow yourself")
	}

	if !s.limiter.Allow(actorID) {
		return nil, fmt.Errorf("toggle storm from %d: %w", actorID, apperr.ErrRateLimited)
	}

	following, err := s.graphRepo.Toggle(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}

	// Update the cached counter, best effort. Only adjust an existing
	// entry: seeding from an increment would serve a count of 1 until
	// the TTL expires. A miss is repopulated from the DB on next read.
	if _, ok, err := s.appCtx.RedisCache.GetFollowerCount(ctx, targetID); err == nil && ok {
		key := s.appCtx.RedisCache.KeyForFollowerCount(targetID)
		if following {
			_, _ = s.appCtx.RedisCache.Incr(ctx, key)
		} else {
			_, _ = s.appCtx.RedisCache.Decr(ctx, key)
		}
		_ = s.appCtx.RedisCache.Client.Expire(ctx, key, time.Hour).Err() // refresh TTL
	}

	return &ToggleResult{Following: following}, nil
}

// FollowerPage is one page of followers plus the continuation token.
type FollowerPage struct {
	Followers []repository.FollowerEntry
	Total     int64
	NextToken *string
}

// ListFollowers returns one page of the user's followers with the total
// follower count (cache-aside).
func (s *Service) ListFollowers(ctx context.Context, userID uint64, token *string, limit int) (*FollowerPage, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	followers, next, err := s.graphRepo.GetFollowers(ctx, userID, token, limit)
	if err != nil {
		return nil, err
	}
	total, err := s.FollowerCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &FollowerPage{Followers: followers, Total: total, NextToken: next}, nil
}

// FollowerCount returns the user's follower count.
//
// Cache-first strategy:
//  1. Attempts to read from Redis (TTL refreshed on hit).
//  2. On miss, reads the denormalized counter and repopulates the cache.
func (s *Service) FollowerCount(ctx context.Context, userID uint64) (int64, error) {
	if n, ok, err := s.appCtx.RedisCache.GetFollowerCount(ctx, userID); err == nil && ok {
		return n, nil
	}

	n, err := s.graphRepo.FollowerCount(ctx, userID)
	if err != nil {
		return 0, err
	}
	_ = s.appCtx.RedisCache.UpdateFollowerCount(ctx, userID, n) // best effort
	return n, nil
}
