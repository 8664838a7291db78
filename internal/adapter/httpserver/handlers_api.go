package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stockpulse/stockpulse/internal/domain"
	apperrors "github.com/stockpulse/stockpulse/internal/platform/errors"
)

const (
	defaultWindowHours = 24
	maxWindowHours     = 24 * 90
	defaultPostLimit   = 50
	maxPostLimit       = 200
)

type symbolResponse struct {
	Symbol  string   `json:"symbol"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
}

type summaryResponse struct {
	Symbol         string    `json:"symbol"`
	TotalPosts     int64     `json:"total_posts"`
	AvgSentiment   float64   `json:"avg_sentiment"`
	MostRecentPost time.Time `json:"most_recent_post"`
}

type aggregateResponse struct {
	Symbol    string                  `json:"symbol"`
	Hour      time.Time               `json:"hour"`
	PostCount int64                   `json:"post_count"`
	AvgScore  float64                 `json:"avg_score"`
	SumScore  float64                 `json:"sum_score"`
	Buckets   map[domain.Bucket]int64 `json:"buckets"`
}

type distributionResponse struct {
	Symbol       string                  `json:"symbol"`
	TotalPosts   int64                   `json:"total_posts"`
	AvgSentiment float64                 `json:"avg_sentiment"`
	Buckets      map[domain.Bucket]int64 `json:"buckets"`
}

type postResponse struct {
	ID        string    `json:"id"`
	Network   string    `json:"network"`
	Author    string    `json:"author"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleListSymbols(c echo.Context) error {
	entries := s.app.TrackedSymbols()
	out := make([]symbolResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, symbolResponse{Symbol: e.Symbol, Name: e.Name, Aliases: e.Aliases})
	}
	if err := c.JSON(http.StatusOK, out); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleStocksSummary(c echo.Context) error {
	hours, err := windowHours(c)
	if err != nil {
		return err
	}

	summaries, err := s.app.StocksSummary(c.Request().Context(), hours)
	if err != nil {
		return apperrors.InternalError("failed to load stock summaries", err)
	}

	out := make([]summaryResponse, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, summaryResponse{
			Symbol:         sum.Symbol,
			TotalPosts:     sum.TotalPosts,
			AvgSentiment:   sum.AvgSentiment,
			MostRecentPost: sum.MostRecentPost,
		})
	}
	if err := c.JSON(http.StatusOK, out); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleAggregates(c echo.Context) error {
	symbol := c.Param("symbol")
	hours, err := windowHours(c)
	if err != nil {
		return err
	}

	rows, err := s.app.AggregatesFor(c.Request().Context(), symbol, hours)
	if errors.Is(err, domain.ErrSymbolNotTracked) {
		return apperrors.NotFoundError("symbol is not tracked").WithField("symbol", symbol)
	}
	if err != nil {
		return apperrors.InternalError("failed to load aggregates", err).WithField("symbol", symbol)
	}

	out := make([]aggregateResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, aggregateResponse{
			Symbol:    row.Symbol,
			Hour:      row.HourBucket,
			PostCount: row.PostCount,
			AvgScore:  row.AvgScore(),
			SumScore:  row.SumScore,
			Buckets:   row.BucketCounts,
		})
	}
	if err := c.JSON(http.StatusOK, out); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleDistribution(c echo.Context) error {
	symbol := c.Param("symbol")
	hours, err := windowHours(c)
	if err != nil {
		return err
	}

	dist, err := s.app.DistributionFor(c.Request().Context(), symbol, hours)
	if errors.Is(err, domain.ErrSymbolNotTracked) {
		return apperrors.NotFoundError("symbol is not tracked").WithField("symbol", symbol)
	}
	if err != nil {
		return apperrors.InternalError("failed to load distribution", err).WithField("symbol", symbol)
	}

	response := distributionResponse{
		Symbol:       dist.Symbol,
		TotalPosts:   dist.TotalPosts,
		AvgSentiment: dist.AvgSentiment,
		Buckets:      dist.BucketCounts,
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleRecentPosts(c echo.Context) error {
	symbol := c.Param("symbol")

	limit := defaultPostLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxPostLimit {
			return apperrors.ValidationError("limit must be an integer between 1 and 200").WithField("limit", raw)
		}
		limit = parsed
	}

	posts, err := s.app.RecentPosts(c.Request().Context(), symbol, limit)
	if errors.Is(err, domain.ErrSymbolNotTracked) {
		return apperrors.NotFoundError("symbol is not tracked").WithField("symbol", symbol)
	}
	if err != nil {
		return apperrors.InternalError("failed to load posts", err).WithField("symbol", symbol)
	}

	out := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, postResponse{
			ID:        p.ID.String(),
			Network:   string(p.Network),
			Author:    p.Author,
			URL:       p.URL,
			Title:     p.Title,
			Text:      p.Text,
			CreatedAt: p.CreatedAt,
		})
	}
	if err := c.JSON(http.StatusOK, out); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func windowHours(c echo.Context) (int, error) {
	raw := c.QueryParam("hours")
	if raw == "" {
		return defaultWindowHours, nil
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours < 1 || hours > maxWindowHours {
		return 0, apperrors.ValidationError("hours must be an integer between 1 and 2160").WithField("hours", raw)
	}
	return hours, nil
}
