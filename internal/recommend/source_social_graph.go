package recommend

import (
	"context"
	"math/rand"
)

// SocialGraphSource walks the follow graph one hop beyond the
// requester's direct follows (friend-of-friend).
//
// Behavior:
//  1. Read up to ScanLimit of the requester's follows.
//  2. Randomly sample up to Sample of them.
//  3. For each sampled user, read up to FanoutLimit of their follows.
//  4. Union the second-hop ids, cap at Cap, and fetch full profiles in
//     lookup batches of BatchSize ids.
type SocialGraphSource struct {
	Graph    GraphStore
	Profiles ProfileStore

	ScanLimit   int // direct follows read (default 50)
	Sample      int // follows sampled for the second hop (default 5)
	FanoutLimit int // follows read per sampled user (default 10)
	Cap         int // friend-of-friend id cap (default 30)
	BatchSize   int // profile ids per lookup batch (default 10)

	// Rand drives the sampling step; nil falls back to the shared
	// global source. Tests inject a seeded Rand for determinism.
	Rand *rand.Rand
}

func (s *SocialGraphSource) Name() string   { return "source.social_graph" }
func (s *SocialGraphSource) Tag() SourceTag { return SourceSocialGraph }

func (s *SocialGraphSource) Retrieve(ctx context.Context, requester *Profile) ([]Hit, error) {
	scanLimit := defaultInt(s.ScanLimit, 50)
	sample := defaultInt(s.Sample, 5)
	fanout := defaultInt(s.FanoutLimit, 10)
	idCap := defaultInt(s.Cap, 30)
	batch := defaultInt(s.BatchSize, 10)

	following, err := s.Graph.GetFollowing(ctx, requester.ID, scanLimit)
	if err != nil {
		return nil, err
	}
	if len(following) == 0 {
		return nil, nil
	}

	sampled := s.sampleIDs(following, sample)

	// Union of second-hop ids, first occurrence wins, capped.
	seen := make(map[uint64]struct{}, idCap)
	ids := make([]uint64, 0, idCap)
	for _, mid := range sampled {
		second, err := s.Graph.GetFollowing(ctx, mid, fanout)
		if err != nil {
			// One bad hop does not sink the walk.
			continue
		}
		for _, id := range second {
			if id == requester.ID {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
			if len(ids) >= idCap {
				break
			}
		}
		if len(ids) >= idCap {
			break
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, len(ids))
	for start := 0; start < len(ids); start += batch {
		end := start + batch
		if end > len(ids) {
			end = len(ids)
		}
		profiles, err := s.Profiles.BatchGetByIDs(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		for _, p := range profiles {
			hits = append(hits, Hit{Profile: p})
		}
	}
	return hits, nil
}

// sampleIDs picks up to n ids uniformly without replacement.
func (s *SocialGraphSource) sampleIDs(ids []uint64, n int) []uint64 {
	if len(ids) <= n {
		return ids
	}
	shuffled := make([]uint64, len(ids))
	copy(shuffled, ids)
	swap := func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] }
	if s.Rand != nil {
		s.Rand.Shuffle(len(shuffled), swap)
	} else {
		rand.Shuffle(len(shuffled), swap)
	}
	return shuffled[:n]
}

func defaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
