package recommend

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// maxFilterValues is the store-side bound on any-of filters.
const maxFilterValues = 10

// SharedTagsSource surfaces profiles sharing at least one interest tag
// with the requester. Only the requester's first ten tags are used, to
// respect the store's any-of filter bound.
type SharedTagsSource struct {
	Profiles ProfileStore
	Cap      int // result cap (default 20)
}

func (s *SharedTagsSource) Name() string   { return "source.shared_tags" }
func (s *SharedTagsSource) Tag() SourceTag { return SourceSharedTag }

func (s *SharedTagsSource) Retrieve(ctx context.Context, requester *Profile) ([]Hit, error) {
	if len(requester.Tags) == 0 {
		return nil, nil
	}
	tags := requester.Tags
	if len(tags) > maxFilterValues {
		tags = tags[:maxFilterValues]
	}
	profiles, err := s.Profiles.QueryByTags(ctx, tags, defaultInt(s.Cap, 20))
	if err != nil {
		return nil, err
	}
	return profileHits(profiles), nil
}

// SharedCommunitiesSource surfaces profiles sharing at least one joined
// community with the requester. Symmetric to SharedTagsSource.
type SharedCommunitiesSource struct {
	Profiles ProfileStore
	Cap      int // result cap (default 20)
}

func (s *SharedCommunitiesSource) Name() string   { return "source.shared_communities" }
func (s *SharedCommunitiesSource) Tag() SourceTag { return SourceSharedCommunity }

func (s *SharedCommunitiesSource) Retrieve(ctx context.Context, requester *Profile) ([]Hit, error) {
	if len(requester.Communities) == 0 {
		return nil, nil
	}
	communities := requester.Communities
	if len(communities) > maxFilterValues {
		communities = communities[:maxFilterValues]
	}
	profiles, err := s.Profiles.QueryByCommunities(ctx, communities, defaultInt(s.Cap, 20))
	if err != nil {
		return nil, err
	}
	return profileHits(profiles), nil
}

// TrendingSource surfaces the globally most-followed profiles. Not
// personalized; it keeps lists populated for users with a sparse graph.
type TrendingSource struct {
	Profiles ProfileStore
	Limit    int // result cap (default 20)
}

func (s *TrendingSource) Name() string   { return "source.trending" }
func (s *TrendingSource) Tag() SourceTag { return SourceTrending }

func (s *TrendingSource) Retrieve(ctx context.Context, _ *Profile) ([]Hit, error) {
	profiles, err := s.Profiles.Trending(ctx, defaultInt(s.Limit, 20))
	if err != nil {
		return nil, err
	}
	return profileHits(profiles), nil
}

// Cache is the minimal cache surface the pipeline consumes. Satisfied
// by cache.RedisCache.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// trendingCacheKey stores the shared trending pool. The pool is global,
// not per requester, so one cached copy serves every computation.
const trendingCacheKey = "trending:candidates"

// CachedTrendingSource caches the trending pool in Redis. Trending is
// the only strategy whose result is requester-independent, which makes
// it the one worth caching across the whole batch run.
type CachedTrendingSource struct {
	Inner *TrendingSource
	Cache Cache
	TTL   time.Duration // default 5m
}

func (s *CachedTrendingSource) Name() string   { return s.Inner.Name() }
func (s *CachedTrendingSource) Tag() SourceTag { return s.Inner.Tag() }

func (s *CachedTrendingSource) Retrieve(ctx context.Context, requester *Profile) ([]Hit, error) {
	if blob, err := s.Cache.Get(ctx, trendingCacheKey); err == nil && blob != "" {
		var profiles []*Profile
		if json.Unmarshal([]byte(blob), &profiles) == nil {
			return profileHits(profiles), nil
		}
	}

	hits, err := s.Inner.Retrieve(ctx, requester)
	if err != nil {
		return nil, err
	}

	profiles := make([]*Profile, 0, len(hits))
	for _, h := range hits {
		profiles = append(profiles, h.Profile)
	}
	if blob, err := json.Marshal(profiles); err == nil {
		ttl := s.TTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		_ = s.Cache.Set(ctx, trendingCacheKey, string(blob), ttl) // best effort
	}
	return hits, nil
}

func profileHits(profiles []*Profile) []Hit {
	hits := make([]Hit, 0, len(profiles))
	for _, p := range profiles {
		hits = append(hits, Hit{Profile: p})
	}
	return hits
}
