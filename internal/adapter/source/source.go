// Package source contains the clients that fetch raw posts from social
// networks. Each client implements Adapter; the app layer fans out over all
// configured adapters once per ingestion run.
package source

import (
	"context"
	"fmt"

	"github.com/stockpulse/stockpulse/internal/domain"
)

// Adapter fetches the newest posts from one network. FetchNew returns posts
// newest-first; dedup downstream makes overlap between runs harmless. A
// failed fetch returns no posts, never a partial sequence.
type Adapter interface {
	Network() domain.Network
	FetchNew(ctx context.Context) ([]domain.RawPost, error)
}

// FetchError wraps a failure while talking to a network API. The run
// continues with the remaining sources when one returns a FetchError.
type FetchError struct {
	Network domain.Network
	Op      string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s fetch failed during %s: %v", e.Network, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func newFetchError(network domain.Network, op string, err error) *FetchError {
	return &FetchError{Network: network, Op: op, Err: err}
}
