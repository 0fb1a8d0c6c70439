package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var seedTags = []string{
	"ai", "music", "photography", "travel", "gaming",
	"cooking", "fitness", "books", "movies", "art",
}

var seedCommunities = []string{
	"tech-talk", "indie-music", "street-photo", "wanderlust", "book-club",
}

var seedStatuses = []string{"", "single", "in a relationship", "complicated"}

// SeedTestData resets the database and populates it with demo users,
// interests, community memberships and follow edges.
//
// Behavior:
//  1. Clears all tables.
//  2. Creates 20 users with hashed passwords, 2-4 tags and 1-2
//     communities each.
//  3. Creates ~5 follow edges per user and recounts both counters from
//     the edge set so the denormalized values start consistent.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(database *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{"recommendation_lists", "follow_edges", "community_memberships", "user_tags", "users"} {
		if err := database.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	// Reset auto-increment sequences
	switch database.Dialector.Name() {
	case "mysql":
		database.Exec("ALTER TABLE users AUTO_INCREMENT = 1")
	case "sqlite":
		database.Exec("DELETE FROM sqlite_sequence WHERE name = 'users'")
	}

	log.Println("Cleared existing data")

	// --- Seed users ---
	for i := 1; i <= 20; i++ {
		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		user := User{
			Username:           fmt.Sprintf("user%d", i),
			DisplayName:        fmt.Sprintf("User %d", i),
			Email:              fmt.Sprintf("user%d@example.com", i),
			PasswordHash:       string(hash),
			Bio:                fmt.Sprintf("Hi, I'm user %d. Here for good conversations.", i),
			RelationshipStatus: seedStatuses[r.Intn(len(seedStatuses))],
			LastActiveAt:       time.Now().Add(-time.Duration(r.Intn(500)) * time.Hour),
		}
		if err := database.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		// 2-4 tags each
		for _, ti := range r.Perm(len(seedTags))[:2+r.Intn(3)] {
			tag := UserTag{UserID: user.ID, Tag: seedTags[ti]}
			database.Clauses(clause.OnConflict{DoNothing: true}).Create(&tag)
		}

		// 1-2 communities each
		for _, ci := range r.Perm(len(seedCommunities))[:1+r.Intn(2)] {
			m := CommunityMembership{UserID: user.ID, CommunityID: seedCommunities[ci]}
			database.Clauses(clause.OnConflict{DoNothing: true}).Create(&m)
		}
	}
	log.Println("Seeded 20 users.")

	// --- Seed follow edges (~5 per user) ---
	var users []User
	if err := database.Find(&users).Error; err != nil {
		return err
	}
	for _, u := range users {
		for j := 0; j < 5; j++ {
			target := users[r.Intn(len(users))]
			if target.ID == u.ID {
				continue
			}
			edge := FollowEdge{
				FollowerID: u.ID,
				FolloweeID: target.ID,
				FollowedAt: time.Now().Add(-time.Duration(r.Intn(1000)) * time.Hour),
			}
			database.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge)
		}
	}

	// --- Recount denormalized counters from the edge set ---
	for _, u := range users {
		var followers, following int64
		database.Model(&FollowEdge{}).Where("followee_id = ?", u.ID).Count(&followers)
		database.Model(&FollowEdge{}).Where("follower_id = ?", u.ID).Count(&following)
		if err := database.Model(&User{}).Where("id = ?", u.ID).Updates(map[string]any{
			"followers_count": followers,
			"following_count": following,
		}).Error; err != nil {
			return err
		}
	}
	log.Println("Seeded follow graph.")

	return nil
}
