package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		ENV string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		Driver string // "sqlite" or "mysql"
		DSN    string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	HTTP struct {
		Host string
		Port string
	}

	Scrape struct {
		SourceURL string
	}
}

// New loads configuration from the environment, applying defaults.
// A .env file in the working directory is read first if present.
func New() *Config {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.App.ENV = getEnvDefault("APP_ENV", "development")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "http_server")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database. SQLite by default (single file, zero setup); MySQL for
	// deployments that need it. The schema is identical either way.
	cfg.DB.Driver = getEnvDefault("DB_DRIVER", "sqlite")
	switch cfg.DB.Driver {
	case "mysql":
		cfg.DB.DSN = getEnvDefault("MYSQL_DSN",
			"root:root@tcp(localhost:3306)/swipe4care?parseTime=true&charset=utf8mb4&loc=UTC")
	default:
		cfg.DB.DSN = getEnvDefault("SQLITE_PATH", "data/swipe4care.db")
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	if dbStr := getEnvDefault("REDIS_DB", "0"); dbStr != "" {
		if dbInt, err := strconv.Atoi(dbStr); err == nil {
			cfg.Redis.DB = dbInt
		}
	}

	// HTTP
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "127.0.0.1")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "3001")

	// Ingestion. Empty URL means the scraper serves its built-in fallback set.
	cfg.Scrape.SourceURL = getEnvDefault("SCRAPE_SOURCE_URL", "")

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
