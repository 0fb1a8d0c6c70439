package main

import (
	"context"

	"github.com/amishardev/orbi-sub001/internal/app"
	"github.com/amishardev/orbi-sub001/internal/cache"
	"github.com/amishardev/orbi-sub001/internal/config"
	"github.com/amishardev/orbi-sub001/internal/db"
	"github.com/amishardev/orbi-sub001/internal/embedding"
	"github.com/amishardev/orbi-sub001/internal/logger"
	"github.com/amishardev/orbi-sub001/internal/server"
	"github.com/amishardev/orbi-sub001/internal/service/social"
	"github.com/amishardev/orbi-sub001/internal/service/suggest"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	// Optional embedding provider; nil disables the semantic strategy.
	var embedder embedding.Provider
	if c := embedding.NewClient(cfg); c != nil {
		embedder = c
		log.Info("embedding provider enabled", "model", cfg.Embedding.Model)
	}

	appCtx := app.New(cfg, database, redisCache, log, embedder)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	socialSvc := social.NewService(appCtx)
	suggestSvc := suggest.NewService(appCtx)

	router := server.NewRouter(appCtx, socialSvc, suggestSvc)
	if err := server.Start(appCtx, router); err != nil {
		log.Error("http server failed", "err", err)
	}
}
