package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stockpulse/stockpulse/internal/adapter/httpserver"
	"github.com/stockpulse/stockpulse/internal/adapter/memory"
	"github.com/stockpulse/stockpulse/internal/adapter/postgres"
	"github.com/stockpulse/stockpulse/internal/adapter/redislock"
	"github.com/stockpulse/stockpulse/internal/adapter/source"
	"github.com/stockpulse/stockpulse/internal/aggregate"
	"github.com/stockpulse/stockpulse/internal/app"
	"github.com/stockpulse/stockpulse/internal/domain"
	"github.com/stockpulse/stockpulse/internal/ingest"
	"github.com/stockpulse/stockpulse/internal/platform/config"
	"github.com/stockpulse/stockpulse/internal/platform/logging"
	"github.com/stockpulse/stockpulse/internal/platform/runid"
	"github.com/stockpulse/stockpulse/internal/sentiment"
	"github.com/stockpulse/stockpulse/internal/symbols"
)

const runLockKey = "stockpulse:ingest:lock"

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config) *goredis.Client {
	opts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to parse Redis URL", "error", err)
		os.Exit(1)
	}
	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupSources(cfg *config.Config, clock clockwork.Clock) []app.Source {
	var sources []app.Source

	if cfg.RedditClientID != "" {
		reddit := source.NewRedditAdapter(source.RedditConfig{
			ClientID:     cfg.RedditClientID,
			ClientSecret: cfg.RedditClientSecret,
			UserAgent:    cfg.RedditUserAgent,
			Subreddits:   strings.Split(cfg.RedditSubreddits, ","),
			FetchLimit:   cfg.RedditFetchLimit,
		}, clock)
		sources = append(sources, source.WithBreaker(reddit))
	}

	if cfg.ThreadsAccessToken != "" {
		sources = append(sources, source.WithBreaker(source.NewThreadsAdapter(cfg.ThreadsAccessToken)))
	}

	if len(sources) == 0 {
		slog.Warn("No source credentials configured, ingestion runs will fetch nothing")
	}
	return sources
}

func instanceID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%s", hostname, runid.New())
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	registry, err := symbols.NewRegistry(cfg.SymbolsFile)
	if err != nil {
		slog.Error("Failed to load symbol registry", "error", err)
		os.Exit(1)
	}
	slog.Info("Symbol registry loaded", "symbols", len(registry.Snapshot().Entries()))

	var (
		posts        domain.PostRepository
		aggregates   domain.AggregateStore
		healthChecks []httpserver.HealthCheck
	)
	if cfg.DatabaseURL != "" {
		pool := setupDB(cfg)
		defer pool.Close()
		posts = postgres.NewPostRepo(pool)
		aggregates = postgres.NewAggregateRepo(pool)
		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "database",
			Check: func(ctx context.Context) error { return pool.Ping(ctx) },
		})
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store; data is lost on restart")
		store := memory.NewStore(clock)
		posts = store
		aggregates = store
	}

	engine := aggregate.NewEngine(posts, aggregates, clock)
	pipeline := ingest.NewPipeline(registry, sentiment.NewScorer(), posts, engine, clock)

	service := app.NewService(setupSources(cfg, clock), pipeline, engine, posts, registry, clock,
		cfg.FetchTimeout, time.Duration(cfg.RetentionDays)*24*time.Hour)

	if cfg.RedisURL != "" {
		redisClient := setupRedis(cfg)
		defer func() { _ = redisClient.Close() }()

		lockTTL := 2 * cfg.IngestInterval
		service.WithLease(redislock.NewRunLock(redisClient, instanceID(), runLockKey, lockTTL))
		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	scheduler := app.NewScheduler(service, clock, cfg.IngestInterval)
	go scheduler.Run(schedulerCtx)

	srv := httpserver.NewServer(cfg.Port, service, healthChecks)

	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		stopScheduler()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	if err := srv.Start(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
	slog.Info("Shutdown complete")
}
