package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/amishardev/orbi-sub001/internal/apperr"
	"github.com/amishardev/orbi-sub001/internal/db"
	"github.com/amishardev/orbi-sub001/internal/recommend"
)

// maxFilterValues bounds every any-of / id-batch filter; larger inputs
// are rejected as malformed rather than silently truncated.
const maxFilterValues = 10

// ProfileRepository provides read access to user profiles, assembled
// from the user row plus tag and community memberships. It implements
// recommend.ProfileStore; the recommendation core never writes through
// it.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new repository bound to the given DB connection.
func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// GetProfile loads one profile with tags and communities attached.
//
// Behavior:
//   - Unknown id → apperr.ErrNotFound.
//
// Example:
//
//	repo.GetProfile(ctx, 42)
func (r *ProfileRepository) GetProfile(ctx context.Context, userID uint64) (*recommend.Profile, error) {
	var user db.User
	if err := r.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("user %d: %w", userID, apperr.ErrNotFound)
		}
		return nil, err
	}
	profiles, err := r.attach(ctx, []db.User{user})
	if err != nil {
		return nil, err
	}
	return profiles[0], nil
}

// QueryByTags returns profiles carrying any of the given tags,
// excluding banned users.
//
// Behavior:
//   - More than ten tags → apperr.ErrInvalidArgument.
//   - Result capped at limit, ordered by most recent activity.
func (r *ProfileRepository) QueryByTags(ctx context.Context, tags []string, limit int) ([]*recommend.Profile, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	if len(tags) > maxFilterValues {
		return nil, apperr.InvalidArgument("at most 10 tag filter values")
	}

	var users []db.User
	err := r.db.WithContext(ctx).
		Where("banned = false").
		Where("id IN (?)", r.db.
			Table("user_tags").
			Select("DISTINCT user_id").
			Where("tag IN ?", tags),
		).
		Order("last_active_at DESC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return r.attach(ctx, users)
}

// QueryByCommunities returns profiles that joined any of the given
// communities, excluding banned users. Symmetric to QueryByTags.
func (r *ProfileRepository) QueryByCommunities(ctx context.Context, communityIDs []string, limit int) ([]*recommend.Profile, error) {
	if len(communityIDs) == 0 {
		return nil, nil
	}
	if len(communityIDs) > maxFilterValues {
		return nil, apperr.InvalidArgument("at most 10 community filter values")
	}

	var users []db.User
	err := r.db.WithContext(ctx).
		Where("banned = false").
		Where("id IN (?)", r.db.
			Table("community_memberships").
			Select("DISTINCT user_id").
			Where("community_id IN ?", communityIDs),
		).
		Order("last_active_at DESC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return r.attach(ctx, users)
}

// Trending returns the globally most-followed non-banned profiles.
func (r *ProfileRepository) Trending(ctx context.Context, limit int) ([]*recommend.Profile, error) {
	var users []db.User
	err := r.db.WithContext(ctx).
		Where("banned = false").
		Order("followers_count DESC, id ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return r.attach(ctx, users)
}

// RecentUsers returns the most recent signups (semantic strategy pool).
func (r *ProfileRepository) RecentUsers(ctx context.Context, limit int) ([]*recommend.Profile, error) {
	var users []db.User
	err := r.db.WithContext(ctx).
		Where("banned = false").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return r.attach(ctx, users)
}

// BatchGetByIDs loads full profiles for up to ten ids per call. Unknown
// ids are skipped, not errors.
func (r *ProfileRepository) BatchGetByIDs(ctx context.Context, ids []uint64) ([]*recommend.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > maxFilterValues {
		return nil, apperr.InvalidArgument("at most 10 ids per batch lookup")
	}

	var users []db.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return r.attach(ctx, users)
}

// ActiveUserIDs returns the ids of non-banned users ordered by most
// recent activity. The batch job uses it to build its processing pool.
func (r *ProfileRepository) ActiveUserIDs(ctx context.Context, limit int) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("banned = false").
		Order("last_active_at DESC, id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// CountActive counts non-banned users (small-userbase accommodation).
func (r *ProfileRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("banned = false").
		Count(&count).Error
	return count, err
}

// attach converts user rows into profiles with tags and communities
// loaded via two IN queries over the row set.
func (r *ProfileRepository) attach(ctx context.Context, users []db.User) ([]*recommend.Profile, error) {
	if len(users) == 0 {
		return nil, nil
	}

	ids := make([]uint64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	var tagRows []db.UserTag
	if err := r.db.WithContext(ctx).Where("user_id IN ?", ids).Find(&tagRows).Error; err != nil {
		return nil, err
	}
	tagsByUser := make(map[uint64][]string, len(users))
	for _, t := range tagRows {
		tagsByUser[t.UserID] = append(tagsByUser[t.UserID], t.Tag)
	}

	var memberRows []db.CommunityMembership
	if err := r.db.WithContext(ctx).Where("user_id IN ?", ids).Find(&memberRows).Error; err != nil {
		return nil, err
	}
	communitiesByUser := make(map[uint64][]string, len(users))
	for _, m := range memberRows {
		communitiesByUser[m.UserID] = append(communitiesByUser[m.UserID], m.CommunityID)
	}

	profiles := make([]*recommend.Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, &recommend.Profile{
			ID:                 u.ID,
			Username:           u.Username,
			DisplayName:        u.DisplayName,
			Bio:                u.Bio,
			Tags:               tagsByUser[u.ID],
			Communities:        communitiesByUser[u.ID],
			RelationshipStatus: u.RelationshipStatus,
			FollowersCount:     u.FollowersCount,
			FollowingCount:     u.FollowingCount,
			Banned:             u.Banned,
			LastActiveAt:       u.LastActiveAt,
			JoinedAt:           u.CreatedAt,
		})
	}
	return profiles, nil
}
