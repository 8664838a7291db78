package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stockpulse/stockpulse/internal/domain"
	apperrors "github.com/stockpulse/stockpulse/internal/platform/errors"
)

// handleTriggerIngestion starts a run on demand. Returns 409 when a run is
// already active, here or on another instance.
func (s *Server) handleTriggerIngestion(c echo.Context) error {
	result, err := s.app.RunIngestion(c.Request().Context())
	if errors.Is(err, domain.ErrRunInProgress) {
		return apperrors.ConflictError("an ingestion run is already in progress")
	}
	if err != nil {
		return apperrors.InternalError("ingestion run failed", err)
	}

	response := map[string]any{
		"accepted":   result.Accepted,
		"duplicates": result.Duplicates,
		"failed":     result.Failed,
		"mentions":   result.MentionsCreated,
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

type rebuildRequest struct {
	Symbol string    `json:"symbol"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
}

func (s *Server) handleRebuild(c echo.Context) error {
	var req rebuildRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Symbol == "" {
		return apperrors.ValidationError("symbol is required")
	}
	if req.To.IsZero() {
		req.To = time.Now().UTC().Add(time.Hour)
	}
	if req.From.IsZero() {
		req.From = req.To.Add(-24 * time.Hour)
	}
	if !req.From.Before(req.To) {
		return apperrors.ValidationError("from must be before to").
			WithField("from", req.From.Format(time.RFC3339)).
			WithField("to", req.To.Format(time.RFC3339))
	}

	err := s.app.RebuildAggregates(c.Request().Context(), req.Symbol, req.From, req.To)
	if errors.Is(err, domain.ErrSymbolNotTracked) {
		return apperrors.NotFoundError("symbol is not tracked").WithField("symbol", req.Symbol)
	}
	if err != nil {
		return apperrors.InternalError("rebuild failed", err).WithField("symbol", req.Symbol)
	}

	if err := c.JSON(http.StatusOK, map[string]string{"status": "rebuilt"}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// handleReloadSymbols swaps in a fresh registry snapshot from the configured
// symbols file. New symbols take effect on the next ingestion run.
func (s *Server) handleReloadSymbols(c echo.Context) error {
	n, err := s.app.ReloadSymbols()
	if err != nil {
		return apperrors.InternalError("symbol reload failed", err)
	}
	if err := c.JSON(http.StatusOK, map[string]any{"status": "reloaded", "symbols": n}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
