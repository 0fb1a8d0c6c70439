package db

import (
	"time"
)

// User table. The recommendation core is a read-only consumer of this
// table except for the denormalized follow counters, which only the
// follow-toggle transaction mutates.
type User struct {
	ID                 uint64 `gorm:"primaryKey;autoIncrement"`
	Username           string `gorm:"uniqueIndex;size:64;not null"`
	DisplayName        string `gorm:"size:128;not null"`
	Email              string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash       string `gorm:"size:255;not null"`
	Bio                string `gorm:"size:512"`
	RelationshipStatus string `gorm:"size:32"` // optional, empty = unset
	FollowersCount     int64  `gorm:"not null;default:0;index:idx_followers_count,sort:desc"`
	FollowingCount     int64  `gorm:"not null;default:0"`
	Banned             bool   `gorm:"not null;default:false"`
	LastActiveAt       time.Time `gorm:"index:idx_last_active,sort:desc"`
	CreatedAt          time.Time `gorm:"autoCreateTime;index:idx_created,sort:desc"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`
}

// UserTag is one interest tag on a user.
//
// Composite PK: (UserID, Tag)
//   - A user carries each tag at most once.
//
// Index:
//   - idx_tag_user(tag, user_id) serves "who shares any of these tags"
//     lookups for the shared-tag retrieval strategy.
type UserTag struct {
	UserID uint64 `gorm:"primaryKey"`
	Tag    string `gorm:"primaryKey;size:64;index:idx_tag_user"`
}

// CommunityMembership records that a user joined a community.
// Symmetric to UserTag; serves the shared-community strategy.
type CommunityMembership struct {
	UserID      uint64    `gorm:"primaryKey"`
	CommunityID string    `gorm:"primaryKey;size:64;index:idx_community_user"`
	JoinedAt    time.Time `gorm:"autoCreateTime"`
}

// FollowEdge is the directional relation "follower follows followee".
//
// Composite PK: (FollowerID, FolloweeID)
//   - The edge's existence is the sole source of truth for the
//     relation; User.FollowersCount / FollowingCount are derived.
//
// Indexes:
//   - idx_followee_followed_at(followee_id, followed_at DESC, follower_id)
//     serves cursor-paginated follower listings.
type FollowEdge struct {
	FollowerID uint64    `gorm:"primaryKey;index:idx_follower_followed_at,priority:1"`
	FolloweeID uint64    `gorm:"primaryKey;index:idx_followee_followed_at,priority:1"`
	FollowedAt time.Time `gorm:"not null;index:idx_followee_followed_at,priority:2,sort:desc;index:idx_follower_followed_at,priority:2,sort:desc"`
}

// RecommendationList is the last computed ranked suggestion list for a
// user. Items is a JSON blob; the row is overwritten wholesale on each
// recomputation, never patched.
type RecommendationList struct {
	UserID    uint64    `gorm:"primaryKey"`
	Items     []byte    `gorm:"type:json"`
	UpdatedAt time.Time `gorm:"not null"`
}
