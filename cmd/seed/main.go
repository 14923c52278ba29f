// Command seed resets the database and loads the demo catalog.
package main

import (
	"os"

	"github.com/swipe4care/opportunity-feed/internal/config"
	"github.com/swipe4care/opportunity-feed/internal/db"
	"github.com/swipe4care/opportunity-feed/internal/logger"
)

func main() {
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L()

	gdb, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to initialize database", "err", err)
		os.Exit(1)
	}

	if err := db.SeedDemoData(gdb); err != nil {
		log.Error("seeding failed", "err", err)
		os.Exit(1)
	}
	log.Info("database seeded", "driver", cfg.DB.Driver)
}
