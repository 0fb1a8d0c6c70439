package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/amishardev/orbi-sub001/internal/apperr"
	"github.com/amishardev/orbi-sub001/internal/db"
	"github.com/amishardev/orbi-sub001/internal/repository"
)

// setup in-memory DB
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	database, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func createUser(t *testing.T, gdb *gorm.DB, id uint64) {
	t.Helper()
	user := db.User{
		ID:           id,
		Username:     fmt.Sprintf("user%d", id),
		DisplayName:  fmt.Sprintf("User %d", id),
		Email:        fmt.Sprintf("u%d@test.com", id),
		PasswordHash: "x",
		LastActiveAt: time.Now().UTC(),
	}
	require.NoError(t, gdb.Create(&user).Error)
}

func followerCounts(t *testing.T, gdb *gorm.DB, id uint64) (int64, int64) {
	t.Helper()
	var u db.User
	require.NoError(t, gdb.First(&u, id).Error)
	return u.FollowersCount, u.FollowingCount
}

func TestToggle_FollowThenUnfollow(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewGraphRepository(gdb)
	createUser(t, gdb, 1)
	createUser(t, gdb, 2)

	// follow
	following, err := repo.Toggle(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, following)

	followers, _ := followerCounts(t, gdb, 2)
	_, followingCount := followerCounts(t, gdb, 1)
	assert.Equal(t, int64(1), followers)
	assert.Equal(t, int64(1), followingCount)

	ok, err := repo.IsFollowing(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	// toggle again → unfollow
	following, err = repo.Toggle(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, following)

	followers, _ = followerCounts(t, gdb, 2)
	_, followingCount = followerCounts(t, gdb, 1)
	assert.Equal(t, int64(0), followers)
	assert.Equal(t, int64(0), followingCount)

	ok, err = repo.IsFollowing(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestToggle_SelfFollowRejected(t *testing.T) {
	gdb := setupTestDB(t)
	repo := repository.NewGraphRepository(gdb)
	createUser(t, gdb, 1)

	_, err := repo.Toggle(context.Background(), 1, 1)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestToggle_CountersNeverNegative(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewGraphRepository(gdb)
	createUser(t, gdb, 1)
	createUser(t, gdb, 2)

	// Counters drifted low (edge exists but counters read zero, as
	// after a missed increment): unfollow must floor at zero.
	require.NoError(t, gdb.Create(&db.FollowEdge{
		FollowerID: 1, FolloweeID: 2, FollowedAt: time.Now().UTC(),
	}).Error)

	following, err := repo.Toggle(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, following)

	followers, _ := followerCounts(t, gdb, 2)
	_, followingCount := followerCounts(t, gdb, 1)
	assert.Equal(t, int64(0), followers)
	assert.Equal(t, int64(0), followingCount)
}

func TestGetFollowersPagination(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewGraphRepository(gdb)

	createUser(t, gdb, 99)
	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := uint64(1); i <= 5; i++ {
		createUser(t, gdb, i)
		require.NoError(t, gdb.Create(&db.FollowEdge{
			FollowerID: i,
			FolloweeID: 99,
			FollowedAt: base.Add(-time.Duration(i) * time.Minute),
		}).Error)
	}

	// first page: most recent followers first
	entries, next, err := repo.GetFollowers(ctx, 99, nil, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NotNil(t, next)
	assert.Equal(t, uint64(1), entries[0].FollowerID)
	assert.Equal(t, uint64(2), entries[1].FollowerID)

	// second page continues after the cursor
	entries, next, err = repo.GetFollowers(ctx, 99, next, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.NotNil(t, next)
	assert.Equal(t, uint64(3), entries[0].FollowerID)
	assert.Equal(t, uint64(4), entries[1].FollowerID)

	// final page
	entries, next, err = repo.GetFollowers(ctx, 99, next, 2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, next)
	assert.Equal(t, uint64(5), entries[0].FollowerID)
}

func TestGetFollowing_And_FollowingSet(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewGraphRepository(gdb)

	createUser(t, gdb, 1)
	for i := uint64(2); i <= 4; i++ {
		createUser(t, gdb, i)
		_, err := repo.Toggle(ctx, 1, i)
		require.NoError(t, err)
	}

	ids, err := repo.GetFollowing(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	set, err := repo.FollowingSet(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, set, 3)
	assert.Contains(t, set, uint64(3))
}

func TestRecountCounters(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewGraphRepository(gdb)

	createUser(t, gdb, 1)
	createUser(t, gdb, 2)
	createUser(t, gdb, 3)
	require.NoError(t, gdb.Create(&db.FollowEdge{FollowerID: 2, FolloweeID: 1, FollowedAt: time.Now().UTC()}).Error)
	require.NoError(t, gdb.Create(&db.FollowEdge{FollowerID: 3, FolloweeID: 1, FollowedAt: time.Now().UTC()}).Error)
	require.NoError(t, gdb.Create(&db.FollowEdge{FollowerID: 1, FolloweeID: 2, FollowedAt: time.Now().UTC()}).Error)

	// drifted counters
	require.NoError(t, gdb.Model(&db.User{}).Where("id = ?", 1).Updates(map[string]any{
		"followers_count": 7, "following_count": 0,
	}).Error)

	require.NoError(t, repo.RecountCounters(ctx, 1))

	followers, following := followerCounts(t, gdb, 1)
	assert.Equal(t, int64(2), followers)
	assert.Equal(t, int64(1), following)

	// idempotent
	require.NoError(t, repo.RecountCounters(ctx, 1))
	followers, following = followerCounts(t, gdb, 1)
	assert.Equal(t, int64(2), followers)
	assert.Equal(t, int64(1), following)
}
