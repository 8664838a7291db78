package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion Metrics
var (
	// IngestedPostsTotal tracks processed posts by network and outcome
	IngestedPostsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_posts_total",
			Help: "Total posts processed by network and outcome (accepted/duplicate/failed)",
		},
		[]string{"network", "outcome"},
	)

	// SymbolMentionsTotal tracks symbol mentions created during ingestion
	SymbolMentionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_symbol_mentions_total",
			Help: "Total symbol mentions created during ingestion",
		},
		[]string{"symbol"},
	)

	// ScoringFailuresTotal tracks posts that fell back to a neutral score
	ScoringFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_scoring_failures_total",
			Help: "Posts scored neutral after a scoring failure",
		},
	)

	// IngestionRunDuration tracks end-to-end ingestion run duration
	IngestionRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_run_duration_seconds",
			Help:    "End-to-end ingestion run duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// IngestionRunsSkipped tracks scheduler ticks skipped because a run was active
	IngestionRunsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_runs_skipped_total",
			Help: "Scheduler ticks skipped because a run was already in progress",
		},
	)
)

// Source Fetch Metrics
var (
	// FetchRequestsTotal tracks source fetch attempts by network and status
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fetch_requests_total",
			Help: "Source fetch attempts by network and status (success/error)",
		},
		[]string{"network", "status"},
	)

	// FetchDuration tracks source fetch latency by network
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "source_fetch_duration_seconds",
			Help:    "Source fetch duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"network"},
	)

	// SourceBreakerStateChanges tracks circuit breaker transitions per network
	SourceBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_breaker_state_changes_total",
			Help: "Source circuit breaker state transitions by network and new state",
		},
		[]string{"network", "state"},
	)
)

// Aggregation Metrics
var (
	// AggregateRebuildsTotal tracks rebuilds by trigger (manual/verify)
	AggregateRebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregate_rebuilds_total",
			Help: "Aggregate rebuilds by trigger (manual/verify)",
		},
		[]string{"trigger"},
	)

	// AggregateInconsistenciesTotal tracks detected aggregate drift
	AggregateInconsistenciesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aggregate_inconsistencies_total",
			Help: "Stored aggregate rows that disagreed with recomputation",
		},
	)
)

// Retention Metrics
var (
	// PostsDeletedTotal tracks posts removed by retention cleanup
	PostsDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retention_posts_deleted_total",
			Help: "Posts removed by retention cleanup",
		},
	)
)
