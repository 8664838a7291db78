package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Network identifies the social network a post was fetched from.
type Network string

const (
	NetworkReddit  Network = "reddit"
	NetworkThreads Network = "threads"
)

// RawPost is the canonical item produced by any source adapter. The whole
// pipeline depends only on this shape, never on network-specific detail.
type RawPost struct {
	SourceID  string
	Network   Network
	Author    string
	URL       string
	Title     string
	Text      string
	CreatedAt time.Time
}

// Post is a persisted social-media post. (Network, SourceID) is unique;
// re-ingesting the same pair is a no-op. Immutable once stored.
type Post struct {
	ID         uuid.UUID
	Network    Network
	SourceID   string
	Author     string
	URL        string
	Title      string
	Text       string
	TextClean  string
	CreatedAt  time.Time
	IngestedAt time.Time
}

// HourBucket truncates a timestamp to its containing hour in UTC. It is the
// aggregation key for everything downstream of ingestion.
func HourBucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// SymbolMention links a post to one canonical ticker symbol. Written at
// ingestion time, never mutated.
type SymbolMention struct {
	PostID uuid.UUID
	Symbol string
}

// ScoredPost is a post joined with its score and detected symbols, as needed
// by aggregation rebuilds.
type ScoredPost struct {
	PostID    uuid.UUID
	CreatedAt time.Time
	Score     float64
	Bucket    Bucket
	Symbols   []string
}

// IngestResult reports the outcome of one pipeline batch.
type IngestResult struct {
	Accepted        int
	Duplicates      int
	Failed          int
	MentionsCreated int
}

// HourlyAggregate is the per-(symbol, hour) sentiment rollup. It is derived
// state: rebuildable at any time from posts, scores, and mentions.
type HourlyAggregate struct {
	Symbol       string
	HourBucket   time.Time
	PostCount    int64
	SumScore     float64
	BucketCounts map[Bucket]int64
}

// AvgScore returns sum_score/post_count, or 0 for an empty row.
func (a HourlyAggregate) AvgScore() float64 {
	if a.PostCount == 0 {
		return 0
	}
	return a.SumScore / float64(a.PostCount)
}

// Equal reports whether two aggregate rows carry identical values. Used by
// the consistency check that guards the incremental path.
func (a HourlyAggregate) Equal(b HourlyAggregate) bool {
	if a.Symbol != b.Symbol || !a.HourBucket.Equal(b.HourBucket) {
		return false
	}
	if a.PostCount != b.PostCount || a.SumScore != b.SumScore {
		return false
	}
	for _, bucket := range AllBuckets {
		if a.BucketCounts[bucket] != b.BucketCounts[bucket] {
			return false
		}
	}
	return true
}

// Distribution is the bucket breakdown folded across an hour range.
type Distribution struct {
	Symbol       string
	BucketCounts map[Bucket]int64
	AvgSentiment float64
	TotalPosts   int64
}

// SymbolSummary is one row of the all-symbols overview.
type SymbolSummary struct {
	Symbol         string
	TotalPosts     int64
	AvgSentiment   float64
	MostRecentPost time.Time
}

// PostRepository abstracts post, score, and mention persistence.
type PostRepository interface {
	// Exists reports whether a post with this (network, sourceID) pair is
	// already stored. A cheap pre-check; InsertPostWithScore is the
	// authoritative, race-safe dedup point.
	Exists(ctx context.Context, network Network, sourceID string) (bool, error)

	// InsertPostWithScore atomically persists the post, its sentiment score,
	// and one mention row per symbol. Returns ErrDuplicatePost when the
	// (network, sourceID) pair is already stored; nothing is mutated then.
	InsertPostWithScore(ctx context.Context, post Post, score float64, bucket Bucket, symbols []string) (uuid.UUID, error)

	// RecentPosts returns newest-first posts mentioning the symbol.
	RecentPosts(ctx context.Context, symbol string, limit int) ([]Post, error)

	// ScoredPostsInRange returns scored, symbol-tagged posts with created_at
	// in [from, to), ordered by (created_at, id) so rebuild folds are
	// deterministic. symbol may be empty to scan all tracked symbols.
	ScoredPostsInRange(ctx context.Context, symbol string, from, to time.Time) ([]ScoredPost, error)

	// DeleteOlderThan removes posts (and their scores and mentions) with
	// created_at before the cutoff. Returns the number of posts removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AggregateStore abstracts hourly aggregate persistence. Increments must be
// atomic per (symbol, hour) row: lost updates under concurrent ingestion are
// not acceptable.
type AggregateStore interface {
	// ApplyAggregate increments post_count, sum_score, and the matching
	// bucket counter on the (symbol, hour) row, creating the row if absent.
	ApplyAggregate(ctx context.Context, symbol string, hour time.Time, score float64, bucket Bucket) error

	// ReplaceAggregates transactionally replaces all rows for symbol within
	// [from, to) with the given rows. Used by rebuilds.
	ReplaceAggregates(ctx context.Context, symbol string, from, to time.Time, rows []HourlyAggregate) error

	// ListAggregates returns non-empty rows for symbol within [from, to),
	// ordered by hour ascending.
	ListAggregates(ctx context.Context, symbol string, from, to time.Time) ([]HourlyAggregate, error)

	// Summaries returns one row per symbol with at least one post since from.
	Summaries(ctx context.Context, from time.Time) ([]SymbolSummary, error)
}

// Aggregator is the subset of the aggregation engine the pipeline notifies
// after persisting a scored, symbol-tagged post.
type Aggregator interface {
	Apply(ctx context.Context, symbols []string, createdAt time.Time, score float64, bucket Bucket) error
}

// Detector scans text for mentions of tracked symbols. Pure and
// deterministic; the empty result is a valid, common outcome.
type Detector interface {
	Detect(text string) []string
}

// Scorer computes a sentiment score in [-1, 1] and its bucket for a unit of
// text. Pure, stateless, and deterministic; non-language input scores 0.
type Scorer interface {
	Score(text string) (float64, Bucket)
}
