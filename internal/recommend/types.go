package recommend

import (
	"context"
	"time"
)

// Profile is the read-only user view the pipeline works with. It is
// assembled by the profile store from the user row plus tag and
// community memberships.
type Profile struct {
	ID                 uint64
	Username           string
	DisplayName        string
	Bio                string
	Tags               []string
	Communities        []string
	RelationshipStatus string
	FollowersCount     int64
	FollowingCount     int64
	Banned             bool
	LastActiveAt       time.Time
	JoinedAt           time.Time
}

// SourceTag identifies the retrieval strategy that surfaced a candidate.
type SourceTag string

const (
	SourceSocialGraph     SourceTag = "social_graph"
	SourceSharedTag       SourceTag = "shared_tag"
	SourceSharedCommunity SourceTag = "shared_community"
	SourceTrending        SourceTag = "trending"
	SourceSemantic        SourceTag = "semantic"
)

// Candidate is a profile under consideration for one requester,
// with the provenance of every strategy that surfaced it. A candidate
// may match several strategies; all of them are kept for scoring and
// for the explanation string.
type Candidate struct {
	Profile *Profile
	Sources map[SourceTag]struct{}

	// Similarity is the cosine similarity reported by the semantic
	// strategy. Zero when the candidate was not surfaced semantically.
	Similarity float64
}

// Matched reports whether the candidate was surfaced by the given strategy.
func (c *Candidate) Matched(tag SourceTag) bool {
	_, ok := c.Sources[tag]
	return ok
}

// Hit is one retrieval result from a Source.
type Hit struct {
	Profile    *Profile
	Similarity float64 // set by the semantic strategy only
}

// Source is one pluggable retrieval strategy. Sources run concurrently
// and fail independently: an erroring source contributes nothing but
// never aborts the others.
type Source interface {
	Name() string
	Tag() SourceTag
	Retrieve(ctx context.Context, requester *Profile) ([]Hit, error)
}

// ScoredRecommendation is one ranked suggestion as persisted and served.
type ScoredRecommendation struct {
	UserID uint64  `json:"user_id"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// List is the full recommendation list for one requester. It is written
// and read wholesale, never patched.
type List struct {
	UpdatedAt time.Time              `json:"updated_at"`
	Items     []ScoredRecommendation `json:"items"`
}

// ProfileStore is the read-only profile accessor the pipeline consumes.
// Query methods accept at most ten filter values per call.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID uint64) (*Profile, error)
	QueryByTags(ctx context.Context, tags []string, limit int) ([]*Profile, error)
	QueryByCommunities(ctx context.Context, communityIDs []string, limit int) ([]*Profile, error)
	Trending(ctx context.Context, limit int) ([]*Profile, error)
	RecentUsers(ctx context.Context, limit int) ([]*Profile, error)
	BatchGetByIDs(ctx context.Context, ids []uint64) ([]*Profile, error)
}

// GraphStore is the read-only follow-graph accessor the pipeline consumes.
type GraphStore interface {
	GetFollowing(ctx context.Context, userID uint64, limit int) ([]uint64, error)
	FollowingSet(ctx context.Context, userID uint64) (map[uint64]struct{}, error)
}
