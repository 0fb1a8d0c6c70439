// Command batch recomputes recommendation lists for the active user
// pool. It has no serving surface of its own: an external scheduler
// (cron, in the reference deployment daily at midnight UTC) invokes it,
// or -every keeps it looping for self-scheduled deployments.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amishardev/orbi-sub001/internal/batch"
	"github.com/amishardev/orbi-sub001/internal/cache"
	"github.com/amishardev/orbi-sub001/internal/config"
	"github.com/amishardev/orbi-sub001/internal/db"
	"github.com/amishardev/orbi-sub001/internal/embedding"
	"github.com/amishardev/orbi-sub001/internal/logger"
	"github.com/amishardev/orbi-sub001/internal/recommend"
	"github.com/amishardev/orbi-sub001/internal/repository"
)

func main() {
	every := flag.Duration("every", 0, "rerun interval; 0 runs once and exits")
	reconcile := flag.Bool("reconcile", false, "recount follow counters instead of computing recommendations")
	flag.Parse()

	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.Named("batch")

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}

	profiles := repository.NewProfileRepository(database)
	graph := repository.NewGraphRepository(database)
	recs := repository.NewRecommendationRepository(database)

	var embedder embedding.Provider
	if c := embedding.NewClient(cfg); c != nil {
		embedder = c
	}

	runner := &batch.Runner{
		Engine:             recommend.NewEngine(cfg, profiles, graph, embedder, log).WithTrendingCache(redisCache),
		Pool:               profiles,
		Recs:               recs,
		Log:                log,
		PoolSize:           cfg.Batch.PoolSize,
		WriteBatchSize:     cfg.Batch.WriteBatchSize,
		TopN:               cfg.Recommend.TopN,
		SmallUserbaseMax:   cfg.Batch.SmallUserbaseMax,
		SmallUserbaseBonus: cfg.Batch.SmallUserbaseBonus,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runOnce := func() {
		if *reconcile {
			if err := reconcileCounters(ctx, profiles, graph, cfg.Batch.PoolSize, log); err != nil {
				log.Error("reconciliation failed", "err", err)
			}
			return
		}
		stats, err := runner.Run(ctx)
		if err != nil {
			log.Error("batch run failed", "err", err)
			return
		}
		if stats.Written > 0 {
			invalidateCachedLists(ctx, profiles, redisCache, cfg.Batch.PoolSize, log)
		}
	}

	runOnce()
	if *every <= 0 {
		return
	}

	ticker := time.NewTicker(*every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// invalidateCachedLists drops the cached suggestion lists of the
// processed pool so freshly written lists serve on the next read
// instead of waiting out the cache TTL.
func invalidateCachedLists(ctx context.Context, profiles *repository.ProfileRepository, redisCache *cache.RedisCache, poolSize int, log *slog.Logger) {
	ids, err := profiles.ActiveUserIDs(ctx, poolSize)
	if err != nil {
		log.Warn("cache invalidation skipped", "err", err)
		return
	}
	for _, id := range ids {
		_ = redisCache.Del(ctx, redisCache.KeyForSuggestions(id))
	}
}

// reconcileCounters recounts follow counters from the edge set for the
// active pool, one transaction per user. Out-of-band maintenance; safe
// to rerun, and brief drift against in-flight toggles is acceptable.
func reconcileCounters(ctx context.Context, profiles *repository.ProfileRepository, graph *repository.GraphRepository, poolSize int, log *slog.Logger) error {
	ids, err := profiles.ActiveUserIDs(ctx, poolSize)
	if err != nil {
		return err
	}
	fixed := 0
	for _, id := range ids {
		if err := graph.RecountCounters(ctx, id); err != nil {
			log.Warn("recount failed", "user_id", id, "err", err)
			continue
		}
		fixed++
	}
	log.Info("reconciliation finished", "users", fixed)
	return nil
}
