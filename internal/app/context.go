package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/amishardev/orbi-sub001/internal/cache"
	"github.com/amishardev/orbi-sub001/internal/config"
	"github.com/amishardev/orbi-sub001/internal/embedding"
)

// AppContext holds shared dependencies (DB, Redis, Logger, etc.)
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger

	// Embedder is nil when no provider is configured; the semantic
	// retrieval strategy stays disabled in that case.
	Embedder embedding.Provider
}

// New creates a new AppContext
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger, embedder embedding.Provider) *AppContext {
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Embedder:   embedder,
	}
}
