package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	// Empty path uses the built-in tracked symbol set.
	SymbolsFile string `env:"SYMBOLS_FILE"`

	IngestInterval time.Duration `env:"INGEST_INTERVAL" default:"5m"`
	FetchTimeout   time.Duration `env:"FETCH_TIMEOUT" default:"30s"`
	RetentionDays  int           `env:"RETENTION_DAYS" default:"90"`

	RedditClientID     string `env:"REDDIT_CLIENT_ID"`
	RedditClientSecret string `env:"REDDIT_CLIENT_SECRET"`
	RedditUserAgent    string `env:"REDDIT_USER_AGENT" default:"stockpulse/1.0"`
	RedditSubreddits   string `env:"REDDIT_SUBREDDITS" default:"stocks,wallstreetbets,investing"`
	RedditFetchLimit   int    `env:"REDDIT_FETCH_LIMIT" default:"100"`

	ThreadsAccessToken string `env:"THREADS_ACCESS_TOKEN"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.IngestInterval < time.Minute {
		return fmt.Errorf("INGEST_INTERVAL must be at least 1m, got %s", cfg.IngestInterval)
	}
	if cfg.RetentionDays < 1 {
		return fmt.Errorf("RETENTION_DAYS must be at least 1, got %d", cfg.RetentionDays)
	}
	if cfg.RedditClientID != "" && cfg.RedditClientSecret == "" {
		return fmt.Errorf("REDDIT_CLIENT_SECRET is required when REDDIT_CLIENT_ID is set")
	}
	return nil
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
