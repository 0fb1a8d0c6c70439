package batch

import (
	"context"
	"log/slog"

	"github.com/amishardev/orbi-sub001/internal/recommend"
)

// Recommender computes one user's ranked list. Satisfied by
// *recommend.Engine.
type Recommender interface {
	Recommend(ctx context.Context, userID uint64, opts recommend.Options) (*recommend.List, error)
}

// RecommendationWriter is the subset of the recommendation repository
// the runner needs.
type RecommendationWriter interface {
	PutBatch(ctx context.Context, lists map[uint64]*recommend.List) error
}

// UserPool enumerates the users a run processes.
type UserPool interface {
	ActiveUserIDs(ctx context.Context, limit int) ([]uint64, error)
	CountActive(ctx context.Context) (int64, error)
}

// Stats summarizes one batch run.
type Stats struct {
	Processed int // users whose list was recomputed
	Failed    int // users skipped after an error
	Written   int // lists persisted
	Batches   int // commits issued
}

// Runner recomputes recommendations for the active user pool in one
// pass. It is invoked by an external scheduler; a run is idempotent
// (every write is a wholesale overwrite), so an interrupted run is
// simply rerun on the next tick.
type Runner struct {
	Engine Recommender
	Pool   UserPool
	Recs   RecommendationWriter
	Log    *slog.Logger

	PoolSize       int // users per run (default 200)
	WriteBatchSize int // puts per commit (default 500)
	TopN           int // list length (default 20)

	// SmallUserbaseMax / SmallUserbaseBonus implement the flat score
	// bonus for tiny userbases: with few users, strict relevance
	// scoring would surface nothing at all. Applied before any score
	// floor.
	SmallUserbaseMax   int
	SmallUserbaseBonus float64
}

// Run processes the pool sequentially. Per-user failures are logged and
// skipped; they never abort the run. Pending writes are committed every
// WriteBatchSize lists and once more at the end.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	poolSize := r.PoolSize
	if poolSize <= 0 {
		poolSize = 200
	}
	batchSize := r.WriteBatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	active, err := r.Pool.CountActive(ctx)
	if err != nil {
		return stats, err
	}
	var bonus float64
	if r.SmallUserbaseMax > 0 && active <= int64(r.SmallUserbaseMax) {
		bonus = r.SmallUserbaseBonus
		r.log().Info("small userbase, applying flat score bonus", "active_users", active, "bonus", bonus)
	}

	ids, err := r.Pool.ActiveUserIDs(ctx, poolSize)
	if err != nil {
		return stats, err
	}
	r.log().Info("batch run started", "pool", len(ids))

	pending := make(map[uint64]*recommend.List, batchSize)
	for _, userID := range ids {
		if err := ctx.Err(); err != nil {
			// Interrupted mid-run: committed sub-batches stand, the
			// rest is recomputed on the next schedule tick.
			return stats, err
		}

		list, err := r.Engine.Recommend(ctx, userID, recommend.Options{
			TopN:      r.TopN,
			FlatBonus: bonus,
		})
		if err != nil {
			stats.Failed++
			r.log().Warn("skipping user", "user_id", userID, "err", err)
			continue
		}
		stats.Processed++
		pending[userID] = list

		if len(pending) >= batchSize {
			if err := r.flush(ctx, pending, &stats); err != nil {
				return stats, err
			}
			pending = make(map[uint64]*recommend.List, batchSize)
		}
	}

	if err := r.flush(ctx, pending, &stats); err != nil {
		return stats, err
	}

	r.log().Info("batch run finished",
		"processed", stats.Processed,
		"failed", stats.Failed,
		"written", stats.Written,
		"batches", stats.Batches,
	)
	return stats, nil
}

func (r *Runner) flush(ctx context.Context, pending map[uint64]*recommend.List, stats *Stats) error {
	if len(pending) == 0 {
		return nil
	}
	if err := r.Recs.PutBatch(ctx, pending); err != nil {
		return err
	}
	stats.Written += len(pending)
	stats.Batches++
	return nil
}

func (r *Runner) log() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}
