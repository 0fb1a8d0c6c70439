package recommend

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queryProfiles extends fakeProfiles with canned answers for the
// filter-style queries the shared/trending/semantic sources issue.
type queryProfiles struct {
	fakeProfiles
	byTags      []*Profile
	byCommunity []*Profile
	trending    []*Profile
	recent      []*Profile

	gotTags        []string
	gotCommunities []string
	trendingCalls  int
}

func (q *queryProfiles) QueryByTags(_ context.Context, tags []string, _ int) ([]*Profile, error) {
	q.gotTags = tags
	return q.byTags, nil
}

func (q *queryProfiles) QueryByCommunities(_ context.Context, communities []string, _ int) ([]*Profile, error) {
	q.gotCommunities = communities
	return q.byCommunity, nil
}

func (q *queryProfiles) Trending(context.Context, int) ([]*Profile, error) {
	q.trendingCalls++
	return q.trending, nil
}

func (q *queryProfiles) RecentUsers(context.Context, int) ([]*Profile, error) {
	return q.recent, nil
}

// fakeEmbedder maps profile text to fixed vectors.
type fakeEmbedder struct {
	vectors map[string][]float32
	failOn  string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, errors.New("provider hiccup")
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0}, nil
}

func TestSocialGraphSource_Walk(t *testing.T) {
	ctx := context.Background()
	graph := &fakeGraph{following: map[uint64][]uint64{
		1: {2, 3},
		2: {4, 5},
		3: {5, 6, 1}, // 5 already seen, 1 is the requester
	}}
	profiles := &fakeProfiles{profiles: map[uint64]*Profile{
		4: {ID: 4}, 5: {ID: 5}, 6: {ID: 6},
	}}
	src := &SocialGraphSource{
		Graph:    graph,
		Profiles: profiles,
		Rand:     rand.New(rand.NewSource(1)),
	}

	hits, err := src.Retrieve(ctx, &Profile{ID: 1})
	require.NoError(t, err)

	ids := make([]uint64, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.Profile.ID)
	}
	assert.ElementsMatch(t, []uint64{4, 5, 6}, ids)
}

func TestSocialGraphSource_NoFollowsNoHits(t *testing.T) {
	src := &SocialGraphSource{
		Graph:    &fakeGraph{following: map[uint64][]uint64{}},
		Profiles: &fakeProfiles{},
	}
	hits, err := src.Retrieve(context.Background(), &Profile{ID: 1})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSocialGraphSource_CapBoundsTheWalk(t *testing.T) {
	// One mid user following 40 others; cap of 30 and lookup batches
	// of 10 mean exactly 30 profiles come back.
	second := make([]uint64, 40)
	all := make(map[uint64]*Profile, 40)
	for i := range second {
		id := uint64(100 + i)
		second[i] = id
		all[id] = &Profile{ID: id}
	}
	src := &SocialGraphSource{
		Graph: &fakeGraph{following: map[uint64][]uint64{
			1: {2},
			2: second,
		}},
		Profiles:    &fakeProfiles{profiles: all},
		FanoutLimit: 40,
	}

	hits, err := src.Retrieve(context.Background(), &Profile{ID: 1})
	require.NoError(t, err)
	assert.Len(t, hits, 30)
}

func TestSharedTagsSource(t *testing.T) {
	ctx := context.Background()
	store := &queryProfiles{byTags: []*Profile{{ID: 7}, {ID: 8}}}
	src := &SharedTagsSource{Profiles: store}

	hits, err := src.Retrieve(ctx, &Profile{ID: 1, Tags: []string{"hiking", "jazz"}})
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Equal(t, []string{"hiking", "jazz"}, store.gotTags)

	// no tags, no query
	store.gotTags = nil
	hits, err = src.Retrieve(ctx, &Profile{ID: 1})
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Nil(t, store.gotTags)
}

func TestSharedTagsSource_TruncatesToFilterBound(t *testing.T) {
	tags := make([]string, 14)
	for i := range tags {
		tags[i] = string(rune('a' + i))
	}
	store := &queryProfiles{}
	src := &SharedTagsSource{Profiles: store}

	_, err := src.Retrieve(context.Background(), &Profile{ID: 1, Tags: tags})
	require.NoError(t, err)
	assert.Len(t, store.gotTags, 10)
	assert.Equal(t, tags[:10], store.gotTags)
}

func TestSharedCommunitiesSource(t *testing.T) {
	store := &queryProfiles{byCommunity: []*Profile{{ID: 9}}}
	src := &SharedCommunitiesSource{Profiles: store}

	hits, err := src.Retrieve(context.Background(), &Profile{ID: 1, Communities: []string{"go-devs"}})
	require.NoError(t, err)
	assert.Len(t, hits, 1)
	assert.Equal(t, []string{"go-devs"}, store.gotCommunities)
}

func TestTrendingSource(t *testing.T) {
	store := &queryProfiles{trending: []*Profile{{ID: 2}, {ID: 3}}}
	src := &TrendingSource{Profiles: store}

	hits, err := src.Retrieve(context.Background(), &Profile{ID: 1})
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

// fakeCache is an in-memory recommend.Cache.
type fakeCache struct {
	entries map[string]string
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.entries[key]; ok {
		return v, nil
	}
	return "", errors.New("miss")
}

func (f *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if f.entries == nil {
		f.entries = map[string]string{}
	}
	f.entries[key] = value.(string)
	return nil
}

func TestCachedTrendingSource(t *testing.T) {
	ctx := context.Background()
	store := &queryProfiles{trending: []*Profile{{ID: 2, DisplayName: "Two"}, {ID: 3}}}
	src := &CachedTrendingSource{
		Inner: &TrendingSource{Profiles: store},
		Cache: &fakeCache{},
	}

	// miss: hits the store and populates the cache
	hits, err := src.Retrieve(ctx, &Profile{ID: 1})
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Equal(t, 1, store.trendingCalls)

	// hit: served from the cache, store untouched
	hits, err = src.Retrieve(ctx, &Profile{ID: 1})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 1, store.trendingCalls)
	assert.Equal(t, uint64(2), hits[0].Profile.ID)
	assert.Equal(t, "Two", hits[0].Profile.DisplayName)
}

func TestSemanticSource_RanksBySimilarity(t *testing.T) {
	requester := &Profile{ID: 1, DisplayName: "Req"}
	near := &Profile{ID: 2, DisplayName: "Near"}
	far := &Profile{ID: 3, DisplayName: "Far"}

	store := &queryProfiles{recent: []*Profile{far, near, requester}}
	src := &SemanticSource{
		Profiles: store,
		Embedder: &fakeEmbedder{vectors: map[string][]float32{
			ProfileText(requester): {1, 0},
			ProfileText(near):      {0.9, 0.1},
			ProfileText(far):       {0, 1},
		}},
	}

	hits, err := src.Retrieve(context.Background(), requester)
	require.NoError(t, err)
	require.Len(t, hits, 2) // requester excluded from its own pool
	assert.Equal(t, uint64(2), hits[0].Profile.ID)
	assert.Greater(t, hits[0].Similarity, hits[1].Similarity)
}

func TestSemanticSource_SkipsFailingCandidates(t *testing.T) {
	requester := &Profile{ID: 1, DisplayName: "Req"}
	good := &Profile{ID: 2, DisplayName: "Good"}
	bad := &Profile{ID: 3, DisplayName: "Flaky"}

	store := &queryProfiles{recent: []*Profile{good, bad}}
	src := &SemanticSource{
		Profiles: store,
		Embedder: &fakeEmbedder{failOn: "Flaky"},
	}

	hits, err := src.Retrieve(context.Background(), requester)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, uint64(2), hits[0].Profile.ID)
}

func TestSemanticSource_NilEmbedderIsInert(t *testing.T) {
	src := &SemanticSource{Profiles: &queryProfiles{}}
	hits, err := src.Retrieve(context.Background(), &Profile{ID: 1})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestProfileText(t *testing.T) {
	p := &Profile{DisplayName: "Ada", Bio: "systems person", Tags: []string{"hiking", "jazz"}}
	assert.Equal(t, "Ada\nsystems person\nhiking, jazz", ProfileText(p))

	assert.Equal(t, "Ada", ProfileText(&Profile{DisplayName: "Ada"}))
	assert.Equal(t, "", ProfileText(&Profile{}))
}
