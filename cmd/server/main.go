package main

import (
	"context"
	"os"

	"github.com/swipe4care/opportunity-feed/internal/app"
	"github.com/swipe4care/opportunity-feed/internal/cache"
	"github.com/swipe4care/opportunity-feed/internal/config"
	"github.com/swipe4care/opportunity-feed/internal/db"
	"github.com/swipe4care/opportunity-feed/internal/ingest"
	"github.com/swipe4care/opportunity-feed/internal/logger"
	"github.com/swipe4care/opportunity-feed/internal/server"
	"github.com/swipe4care/opportunity-feed/internal/service/feed"
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

	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		// the cache is an accelerator, not a dependency; counts fall back to
		// the ledger when Redis is away
		log.Warn("redis unreachable, accepted counts will skip the cache", "addr", cfg.Redis.Addr, "err", err)
	}

	appCtx := app.New(gdb, redisCache, log)
	scraper := ingest.NewScraper(cfg.Scrape.SourceURL, log)
	svc := feed.NewService(appCtx, scraper)

	if cfg.App.ENV == "development" {
		seedIfEmpty(appCtx)
	}

	srv := server.NewHTTPServer(cfg, appCtx, svc)
	if err := srv.Start(); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

// seedIfEmpty populates a fresh development database so there is something
// to swipe on out of the box.
func seedIfEmpty(appCtx *app.AppContext) {
	var count int64
	if err := appCtx.DB.Model(&db.Opportunity{}).Count(&count).Error; err != nil {
		appCtx.Logger.Warn("could not check catalog size", "err", err)
		return
	}
	if count > 0 {
		return
	}
	if err := db.SeedDemoData(appCtx.DB); err != nil {
		appCtx.Logger.Warn("demo seed failed", "err", err)
		return
	}
	appCtx.Logger.Info("seeded empty development database")
}
