// Package memory provides an in-process implementation of the post and
// aggregate stores for single-instance development mode and tests. State is
// lost on restart; production runs on the postgres adapter.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stockpulse/stockpulse/internal/domain"
)

type storedPost struct {
	post    domain.Post
	score   float64
	bucket  domain.Bucket
	symbols []string
}

type aggregateKey struct {
	symbol string
	hour   time.Time
}

// Store implements domain.PostRepository and domain.AggregateStore in memory.
// Safe for concurrent use.
type Store struct {
	clock clockwork.Clock

	mu         sync.RWMutex
	posts      map[uuid.UUID]*storedPost
	bySourceID map[string]uuid.UUID
	aggregates map[aggregateKey]*domain.HourlyAggregate
}

func NewStore(clock clockwork.Clock) *Store {
	return &Store{
		clock:      clock,
		posts:      make(map[uuid.UUID]*storedPost),
		bySourceID: make(map[string]uuid.UUID),
		aggregates: make(map[aggregateKey]*domain.HourlyAggregate),
	}
}

func dedupKey(network domain.Network, sourceID string) string {
	return string(network) + "\x00" + sourceID
}

func (s *Store) Exists(_ context.Context, network domain.Network, sourceID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.bySourceID[dedupKey(network, sourceID)]
	return ok, nil
}

func (s *Store) InsertPostWithScore(_ context.Context, post domain.Post, score float64, bucket domain.Bucket, symbols []string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dedupKey(post.Network, post.SourceID)
	if _, exists := s.bySourceID[key]; exists {
		return uuid.Nil, domain.ErrDuplicatePost
	}

	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	if post.IngestedAt.IsZero() {
		post.IngestedAt = s.clock.Now().UTC()
	}

	copied := make([]string, len(symbols))
	copy(copied, symbols)

	s.posts[post.ID] = &storedPost{post: post, score: score, bucket: bucket, symbols: copied}
	s.bySourceID[key] = post.ID
	return post.ID, nil
}

func (s *Store) RecentPosts(_ context.Context, symbol string, limit int) ([]domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Post
	for _, sp := range s.posts {
		if symbol != "" && !mentions(sp, symbol) {
			continue
		}
		out = append(out, sp.post)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return strings.Compare(out[i].ID.String(), out[j].ID.String()) < 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ScoredPostsInRange(_ context.Context, symbol string, from, to time.Time) ([]domain.ScoredPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ScoredPost
	for _, sp := range s.posts {
		if len(sp.symbols) == 0 {
			continue
		}
		if symbol != "" && !mentions(sp, symbol) {
			continue
		}
		created := sp.post.CreatedAt
		if created.Before(from) || !created.Before(to) {
			continue
		}
		out = append(out, domain.ScoredPost{
			PostID:    sp.post.ID,
			CreatedAt: created,
			Score:     sp.score,
			Bucket:    sp.bucket,
			Symbols:   append([]string(nil), sp.symbols...),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return strings.Compare(out[i].PostID.String(), out[j].PostID.String()) < 0
	})
	return out, nil
}

func (s *Store) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, sp := range s.posts {
		if sp.post.CreatedAt.Before(cutoff) {
			delete(s.posts, id)
			delete(s.bySourceID, dedupKey(sp.post.Network, sp.post.SourceID))
			deleted++
		}
	}
	return deleted, nil
}

func (s *Store) ApplyAggregate(_ context.Context, symbol string, hour time.Time, score float64, bucket domain.Bucket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := aggregateKey{symbol: symbol, hour: hour}
	row, ok := s.aggregates[key]
	if !ok {
		row = &domain.HourlyAggregate{
			Symbol:       symbol,
			HourBucket:   hour,
			BucketCounts: make(map[domain.Bucket]int64),
		}
		s.aggregates[key] = row
	}
	row.PostCount++
	row.SumScore += score
	row.BucketCounts[bucket]++
	return nil
}

func (s *Store) ReplaceAggregates(_ context.Context, symbol string, from, to time.Time, rows []domain.HourlyAggregate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.aggregates {
		if key.symbol == symbol && !key.hour.Before(from) && key.hour.Before(to) {
			delete(s.aggregates, key)
		}
	}
	for _, row := range rows {
		copied := row
		copied.BucketCounts = make(map[domain.Bucket]int64, len(row.BucketCounts))
		for b, n := range row.BucketCounts {
			copied.BucketCounts[b] = n
		}
		s.aggregates[aggregateKey{symbol: row.Symbol, hour: row.HourBucket}] = &copied
	}
	return nil
}

func (s *Store) ListAggregates(_ context.Context, symbol string, from, to time.Time) ([]domain.HourlyAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.HourlyAggregate
	for key, row := range s.aggregates {
		if key.symbol != symbol || key.hour.Before(from) || !key.hour.Before(to) {
			continue
		}
		if row.PostCount == 0 {
			continue
		}
		out = append(out, cloneRow(row))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HourBucket.Before(out[j].HourBucket) })
	return out, nil
}

func (s *Store) Summaries(_ context.Context, from time.Time) ([]domain.SymbolSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type acc struct {
		posts  int64
		sum    float64
		recent time.Time
	}
	bySymbol := make(map[string]*acc)

	for _, sp := range s.posts {
		if sp.post.CreatedAt.Before(from) {
			continue
		}
		for _, symbol := range sp.symbols {
			a, ok := bySymbol[symbol]
			if !ok {
				a = &acc{}
				bySymbol[symbol] = a
			}
			a.posts++
			a.sum += sp.score
			if sp.post.CreatedAt.After(a.recent) {
				a.recent = sp.post.CreatedAt
			}
		}
	}

	out := make([]domain.SymbolSummary, 0, len(bySymbol))
	for symbol, a := range bySymbol {
		out = append(out, domain.SymbolSummary{
			Symbol:         symbol,
			TotalPosts:     a.posts,
			AvgSentiment:   a.sum / float64(a.posts),
			MostRecentPost: a.recent,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func mentions(sp *storedPost, symbol string) bool {
	for _, s := range sp.symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

func cloneRow(row *domain.HourlyAggregate) domain.HourlyAggregate {
	out := *row
	out.BucketCounts = make(map[domain.Bucket]int64, len(row.BucketCounts))
	for b, n := range row.BucketCounts {
		out.BucketCounts[b] = n
	}
	return out
}
