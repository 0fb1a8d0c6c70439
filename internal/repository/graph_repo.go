package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/amishardev/orbi-sub001/internal/apperr"
	"github.com/amishardev/orbi-sub001/internal/db"
	"github.com/amishardev/orbi-sub001/internal/utils/pagination"
)

// maxToggleRetries bounds transparent retry of colliding follow-toggle
// transactions before surfacing apperr.ErrConflict.
const maxToggleRetries = 3

// FollowerEntry is one row of a paginated follower listing.
type FollowerEntry struct {
	FollowerID uint64
	FollowedAt time.Time
}

// GraphRepository provides access to the follow graph. It is the sole
// mutator of follow edges and of both users' denormalized counters; all
// other components read only.
type GraphRepository struct {
	db *gorm.DB
}

// NewGraphRepository creates a new repository bound to the given DB connection.
func NewGraphRepository(database *gorm.DB) *GraphRepository {
	return &GraphRepository{db: database}
}

// GetFollowing returns up to limit ids the user follows, most recent first.
func (r *GraphRepository) GetFollowing(ctx context.Context, userID uint64, limit int) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.FollowEdge{}).
		Where("follower_id = ?", userID).
		Order("followed_at DESC, followee_id DESC").
		Limit(limit).
		Pluck("followee_id", &ids).Error
	return ids, err
}

// FollowingSet returns every id the user currently follows, as a set.
// Used by the retriever's exclusion step.
func (r *GraphRepository) FollowingSet(ctx context.Context, userID uint64) (map[uint64]struct{}, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.FollowEdge{}).
		Where("follower_id = ?", userID).
		Pluck("followee_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// GetFollowers returns one page of the user's followers.
//
// Behavior:
//   - Ordered by followed_at DESC, follower_id DESC.
//   - Cursor-based pagination via paginationToken (limit+1 fetch).
//
// Example:
//
//	repo.GetFollowers(ctx, 42, nil, 20) // first 20 followers of user 42
func (r *GraphRepository) GetFollowers(
	ctx context.Context,
	userID uint64,
	paginationToken *string,
	limit int,
) ([]FollowerEntry, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, apperr.InvalidArgument("invalid pagination token")
	}

	var edges []db.FollowEdge
	query := r.db.WithContext(ctx).
		Where("followee_id = ?", userID).
		Order("followed_at DESC, follower_id DESC").
		Limit(limit + 1)

	// apply cursor
	if cursor.FollowerID > 0 && cursor.FollowedUnix > 0 {
		ts := time.UnixMilli(cursor.FollowedUnix)
		query = query.Where(
			"(followed_at < ? OR (followed_at = ? AND follower_id < ?))",
			ts, ts, cursor.FollowerID,
		)
	}

	if err := query.Find(&edges).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(edges) > limit {
		last := edges[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			FollowerID:   last.FollowerID,
			FollowedUnix: last.FollowedAt.UnixMilli(),
		})
		nextToken = &token
		edges = edges[:limit]
	}

	entries := make([]FollowerEntry, 0, len(edges))
	for _, e := range edges {
		entries = append(entries, FollowerEntry{FollowerID: e.FollowerID, FollowedAt: e.FollowedAt})
	}
	return entries, nextToken, nil
}

// FollowerCount reads the user's denormalized follower counter.
func (r *GraphRepository) FollowerCount(ctx context.Context, userID uint64) (int64, error) {
	var user db.User
	if err := r.db.WithContext(ctx).Select("followers_count").First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, fmt.Errorf("user %d: %w", userID, apperr.ErrNotFound)
		}
		return 0, err
	}
	return user.FollowersCount, nil
}

// IsFollowing reports whether the edge (followerID → followeeID) exists.
func (r *GraphRepository) IsFollowing(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.FollowEdge{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count).Error
	return count > 0, err
}

// Toggle flips the follow state of the (follower, followee) pair.
//
// Behavior:
//   - Edge exists → delete it and decrement both counters, floored at
//     zero. Edge absent → create it and increment both counters.
//   - Runs as one transaction over the edge and both user rows, so a
//     concurrent toggle on the same pair serializes or collides.
//   - Collisions (duplicate insert, deadlock) are retried up to
//     maxToggleRetries, then surfaced as apperr.ErrConflict.
//   - Self-follow → apperr.ErrInvalidArgument.
//
// Returns the resulting state: true when the pair is now Following.
func (r *GraphRepository) Toggle(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	if followerID == followeeID {
		return false, apperr.InvalidArgument("cannot follow yourself")
	}

	var lastErr error
	for attempt := 0; attempt < maxToggleRetries; attempt++ {
		following, err := r.toggleOnce(ctx, followerID, followeeID)
		if err == nil {
			return following, nil
		}
		if !isRetryableTxErr(err) {
			return false, err
		}
		lastErr = err
	}
	return false, fmt.Errorf("toggle %d->%d: %w: %v", followerID, followeeID, apperr.ErrConflict, lastErr)
}

func (r *GraphRepository) toggleOnce(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	var following bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.
			Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
			Delete(&db.FollowEdge{})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected > 0 {
			// Unfollow: decrement both counters, never below zero.
			following = false
			if err := adjustCounter(tx, followeeID, "followers_count", -1); err != nil {
				return err
			}
			return adjustCounter(tx, followerID, "following_count", -1)
		}

		// Follow: the composite PK makes a racing duplicate insert
		// collide here, which the caller retries.
		following = true
		edge := db.FollowEdge{
			FollowerID: followerID,
			FolloweeID: followeeID,
			FollowedAt: time.Now().UTC(),
		}
		if err := tx.Create(&edge).Error; err != nil {
			return err
		}
		if err := adjustCounter(tx, followeeID, "followers_count", +1); err != nil {
			return err
		}
		return adjustCounter(tx, followerID, "following_count", +1)
	})
	return following, err
}

// adjustCounter applies a floored delta to a denormalized counter.
func adjustCounter(tx *gorm.DB, userID uint64, column string, delta int64) error {
	expr := column + " + ?"
	if delta < 0 {
		expr = "CASE WHEN " + column + " >= ? THEN " + column + " - ? ELSE 0 END"
		return tx.Model(&db.User{}).
			Where("id = ?", userID).
			Update(column, gorm.Expr(expr, -delta, -delta)).Error
	}
	return tx.Model(&db.User{}).
		Where("id = ?", userID).
		Update(column, gorm.Expr(expr, delta)).Error
}

// RecountCounters recomputes both counters of one user from the edge
// set and overwrites the denormalized values. Maintenance operation:
// idempotent, one transaction per user.
func (r *GraphRepository) RecountCounters(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var followers, following int64
		if err := tx.Model(&db.FollowEdge{}).
			Where("followee_id = ?", userID).
			Count(&followers).Error; err != nil {
			return err
		}
		if err := tx.Model(&db.FollowEdge{}).
			Where("follower_id = ?", userID).
			Count(&following).Error; err != nil {
			return err
		}
		return tx.Model(&db.User{}).
			Where("id = ?", userID).
			Updates(map[string]any{
				"followers_count": followers,
				"following_count": following,
			}).Error
	})
}

// isRetryableTxErr matches the store's transient conflict signatures:
// duplicate-key collisions from racing inserts, MySQL deadlocks and
// SQLite busy locks.
func isRetryableTxErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Deadlock found") ||
		strings.Contains(msg, "database is locked")
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
