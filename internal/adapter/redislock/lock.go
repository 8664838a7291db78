// Package redislock guards the ingestion run across instances. A run holds a
// Redis key with a TTL; if the holder crashes the lease expires and the next
// tick on any instance can acquire it.
package redislock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunLock implements a single-holder lease using Redis SETNX.
type RunLock struct {
	redis      *redis.Client
	instanceID string
	key        string
	ttl        time.Duration
}

// NewRunLock creates a lease on key held for ttl. instanceID identifies this
// process so only the holder can release or renew.
func NewRunLock(client *redis.Client, instanceID, key string, ttl time.Duration) *RunLock {
	return &RunLock{
		redis:      client,
		instanceID: instanceID,
		key:        key,
		ttl:        ttl,
	}
}

// TTL reports how long an acquired lease lives without renewal.
func (l *RunLock) TTL() time.Duration { return l.ttl }

// TryAcquire attempts to take the lease. Returns false when another instance
// holds it.
func (l *RunLock) TryAcquire(ctx context.Context) (bool, error) {
	success, err := l.redis.SetNX(ctx, l.key, l.instanceID, l.ttl).Result()
	return success, err
}

// Renew extends the lease TTL. Returns ErrNotHolder when another instance
// took over after our lease expired.
func (l *RunLock) Renew(ctx context.Context) error {
	// Lua script ensures atomic check-and-renew
	script := `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("EXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
	`

	result, err := l.redis.Eval(ctx, script, []string{l.key}, l.instanceID, int(l.ttl.Seconds())).Result()
	if err != nil {
		return err
	}
	if result == int64(0) {
		return ErrNotHolder
	}
	return nil
}

// Release gives up the lease. Called at the end of every run; a no-op when
// the lease already expired.
func (l *RunLock) Release(ctx context.Context) error {
	// Only delete if we still hold the lease
	script := `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
	`

	return l.redis.Eval(ctx, script, []string{l.key}, l.instanceID).Err()
}

// ErrNotHolder is returned by Renew when this instance no longer holds the lease.
var ErrNotHolder = &notHolderError{}

type notHolderError struct{}

func (e *notHolderError) Error() string {
	return "not lease holder"
}
