// Command seed resets the database and loads the demo dataset.
package main

import (
	"github.com/amishardev/orbi-sub001/internal/config"
	"github.com/amishardev/orbi-sub001/internal/db"
	"github.com/amishardev/orbi-sub001/internal/logger"
)

func main() {
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	if err := db.SeedTestData(database); err != nil {
		log.Error("failed to seed", "err", err)
		return
	}
	log.Info("seed complete")
}
