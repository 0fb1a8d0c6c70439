package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/amishardev/orbi-sub001/internal/config"
)

// NewDB initializes the database connection using DSN from config.
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	database, err := gorm.Open(mysql.Open(cfg.DB.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	// AutoMigrate ensures schema is in sync with models.
	if err := Migrate(database); err != nil {
		return nil, err
	}

	return database, nil
}

// Migrate applies the schema for every model. Shared with the SQLite
// test setup.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&User{},
		&UserTag{},
		&CommunityMembership{},
		&FollowEdge{},
		&RecommendationList{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
