package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stockpulse/stockpulse/internal/adapter/memory"
	"github.com/stockpulse/stockpulse/internal/aggregate"
	"github.com/stockpulse/stockpulse/internal/app"
	"github.com/stockpulse/stockpulse/internal/domain"
	"github.com/stockpulse/stockpulse/internal/ingest"
	"github.com/stockpulse/stockpulse/internal/sentiment"
	"github.com/stockpulse/stockpulse/internal/symbols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	posts []domain.RawPost
}

func (s *stubSource) Network() domain.Network { return domain.NetworkReddit }

func (s *stubSource) FetchNew(context.Context) ([]domain.RawPost, error) {
	return s.posts, nil
}

// newTestServer wires a real service over the in-memory store with two
// scored TSLA posts already ingested.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	registry, err := symbols.NewRegistry("")
	require.NoError(t, err)

	now := time.Date(2026, 3, 14, 16, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)
	store := memory.NewStore(clock)
	engine := aggregate.NewEngine(store, store, clock)
	pipeline := ingest.NewPipeline(registry, sentiment.NewScorer(), store, engine, clock)

	source := &stubSource{posts: []domain.RawPost{
		{SourceID: "p1", Network: domain.NetworkReddit, Author: "alice",
			Text: "Tesla is crushing it!", CreatedAt: now.Add(-30 * time.Minute)},
		{SourceID: "p2", Network: domain.NetworkReddit, Author: "bob",
			Text: "TSLA tanking hard, awful", CreatedAt: now.Add(-20 * time.Minute)},
	}}

	service := app.NewService([]app.Source{source}, pipeline, engine, store, registry, clock, 30*time.Second, 90*24*time.Hour)
	_, err = service.RunIngestion(context.Background())
	require.NoError(t, err)

	return NewServer("0", service, nil)
}

func doRequest(t *testing.T, server *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echoHeaderContentType, "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

func TestHandleListSymbols(t *testing.T) {
	server := newTestServer(t)
	rec := doRequest(t, server, http.MethodGet, "/api/symbols", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out []symbolResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.NotEmpty(t, out)

	found := false
	for _, s := range out {
		if s.Symbol == "TSLA" {
			found = true
			assert.Contains(t, s.Aliases, "TESLA")
		}
	}
	assert.True(t, found)
}

func TestHandleStocksSummary(t *testing.T) {
	server := newTestServer(t)
	rec := doRequest(t, server, http.MethodGet, "/api/stocks", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out []summaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "TSLA", out[0].Symbol)
	assert.Equal(t, int64(2), out[0].TotalPosts)
}

func TestHandleAggregates(t *testing.T) {
	server := newTestServer(t)
	rec := doRequest(t, server, http.MethodGet, "/api/stocks/TSLA/aggregates", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out []aggregateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, int64(2), out[0].PostCount)
	assert.Equal(t, int64(1), out[0].Buckets[domain.BucketPositive])
	assert.Equal(t, int64(1), out[0].Buckets[domain.BucketVeryNegative])
}

func TestHandleAggregates_BadHours(t *testing.T) {
	server := newTestServer(t)
	for _, hours := range []string{"abc", "0", "-5", "99999"} {
		rec := doRequest(t, server, http.MethodGet, "/api/stocks/TSLA/aggregates?hours="+hours, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "hours=%s", hours)
	}
}

func TestHandleDistribution(t *testing.T) {
	server := newTestServer(t)
	rec := doRequest(t, server, http.MethodGet, "/api/stocks/TSLA/distribution", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out distributionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, int64(2), out.TotalPosts)
	assert.Len(t, out.Buckets, 5)
}

func TestHandleDistribution_UnknownSymbol(t *testing.T) {
	server := newTestServer(t)
	rec := doRequest(t, server, http.MethodGet, "/api/stocks/ZZZZ/distribution", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRecentPosts(t *testing.T) {
	server := newTestServer(t)
	rec := doRequest(t, server, http.MethodGet, "/api/stocks/TSLA/posts?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out []postResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "bob", out[0].Author)

	rec = doRequest(t, server, http.MethodGet, "/api/stocks/TSLA/posts?limit=500", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRebuild(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(t, server, http.MethodPost, "/api/admin/rebuild", `{"symbol": "TSLA"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server, http.MethodPost, "/api/admin/rebuild", `{"symbol": "ZZZZ"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, server, http.MethodPost, "/api/admin/rebuild", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, server, http.MethodPost, "/api/admin/rebuild",
		`{"symbol": "TSLA", "from": "2026-03-14T16:00:00Z", "to": "2026-03-14T10:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTriggerIngestion(t *testing.T) {
	server := newTestServer(t)
	rec := doRequest(t, server, http.MethodPost, "/api/admin/ingest", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	// The seed run already stored both posts, so this run sees duplicates.
	assert.Equal(t, 2, out["duplicates"])
	assert.Equal(t, 0, out["accepted"])
}

func TestHandleReloadSymbols(t *testing.T) {
	server := newTestServer(t)
	rec := doRequest(t, server, http.MethodPost, "/api/admin/reload-symbols", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "reloaded", out["status"])
	assert.Greater(t, out["symbols"], float64(0))
}

type conflictService struct {
	appService
}

func (conflictService) RunIngestion(context.Context) (domain.IngestResult, error) {
	return domain.IngestResult{}, domain.ErrRunInProgress
}

func TestHandleTriggerIngestion_Conflict(t *testing.T) {
	server := NewServer("0", conflictService{}, nil)
	rec := doRequest(t, server, http.MethodPost, "/api/admin/ingest", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, server, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadiness_FailingCheck(t *testing.T) {
	server := newTestServer(t)
	server.healthChecks = []HealthCheck{{
		Name:  "database",
		Check: func(context.Context) error { return errors.New("connection refused") },
	}}

	rec := doRequest(t, server, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
