// Package httpserver exposes the query API: per-symbol aggregates,
// distributions, recent posts, the cross-symbol summary, and the admin
// endpoints for triggering runs and rebuilds.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stockpulse/stockpulse/internal/domain"
	"github.com/stockpulse/stockpulse/internal/symbols"
)

type appService interface {
	TrackedSymbols() []symbols.Entry
	StocksSummary(ctx context.Context, hours int) ([]domain.SymbolSummary, error)
	AggregatesFor(ctx context.Context, symbol string, hours int) ([]domain.HourlyAggregate, error)
	DistributionFor(ctx context.Context, symbol string, hours int) (domain.Distribution, error)
	RecentPosts(ctx context.Context, symbol string, limit int) ([]domain.Post, error)
	RebuildAggregates(ctx context.Context, symbol string, from, to time.Time) error
	RunIngestion(ctx context.Context) (domain.IngestResult, error)
	ReloadSymbols() (int, error)
}

// HealthCheck is a named health check function.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Server struct {
	echo *echo.Echo
	port string

	app          appService
	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(port string, app appService, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		port:         port,
		app:          app,
		healthChecks: healthChecks,
		startTime:    time.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.port)
	if err := s.echo.Start(":" + s.port); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
