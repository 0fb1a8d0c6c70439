package recommend

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/amishardev/orbi-sub001/internal/apperr"
)

// Retriever fans out to every registered Source concurrently and merges
// the results into one deduplicated candidate set.
//
// Failure domains are independent: a failing source yields nothing for
// itself and never aborts the others. Only when every source fails does
// retrieval fail as a whole (apperr.ErrRetrievalFailed); an empty merged
// set from healthy sources is a valid, non-error outcome.
type Retriever struct {
	Sources []Source
	Graph   GraphStore
	Log     *slog.Logger
}

// Retrieve produces the deduplicated candidate set for the requester,
// excluding the requester itself, everyone the requester currently
// follows, and banned accounts.
//
// Provenance is cumulative: when two sources surface the same profile,
// the first fetched profile data is kept and the later source only adds
// its tag (and similarity, for the semantic strategy).
func (r *Retriever) Retrieve(ctx context.Context, requester *Profile) (map[uint64]*Candidate, error) {
	if len(r.Sources) == 0 {
		return map[uint64]*Candidate{}, nil
	}

	following, err := r.Graph.FollowingSet(ctx, requester.ID)
	if err != nil {
		return nil, err
	}

	type result struct {
		tag  SourceTag
		hits []Hit
	}

	var (
		mu      sync.Mutex
		results []result
		failed  int
	)

	eg, gctx := errgroup.WithContext(ctx)
	for _, src := range r.Sources {
		s := src
		eg.Go(func() error {
			hits, err := s.Retrieve(gctx, requester)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				r.log().Warn("retrieval source failed", "source", s.Name(), "err", err)
				return nil
			}
			results = append(results, result{tag: s.Tag(), hits: hits})
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if failed == len(r.Sources) {
		return nil, apperr.ErrRetrievalFailed
	}

	merged := make(map[uint64]*Candidate)
	for _, res := range results {
		for _, hit := range res.hits {
			p := hit.Profile
			if p == nil || p.ID == requester.ID || p.Banned {
				continue
			}
			if _, follows := following[p.ID]; follows {
				continue
			}
			c, ok := merged[p.ID]
			if !ok {
				c = &Candidate{Profile: p, Sources: make(map[SourceTag]struct{})}
				merged[p.ID] = c
			}
			c.Sources[res.tag] = struct{}{}
			if hit.Similarity > c.Similarity {
				c.Similarity = hit.Similarity
			}
		}
	}
	return merged, nil
}

func (r *Retriever) log() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}
