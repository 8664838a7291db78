package source

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stockpulse/stockpulse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	network domain.Network
	posts   []domain.RawPost
	err     error
	calls   int
}

func (s *stubAdapter) Network() domain.Network { return s.network }

func (s *stubAdapter) FetchNew(context.Context) ([]domain.RawPost, error) {
	s.calls++
	return s.posts, s.err
}

func TestWithBreaker_PassesThrough(t *testing.T) {
	stub := &stubAdapter{
		network: domain.NetworkReddit,
		posts:   []domain.RawPost{{SourceID: "p1", Network: domain.NetworkReddit}},
	}
	adapter := WithBreaker(stub)

	posts, err := adapter.FetchNew(context.Background())
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, domain.NetworkReddit, adapter.Network())
}

func TestWithBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	stub := &stubAdapter{network: domain.NetworkReddit, err: errors.New("connection refused")}
	adapter := WithBreaker(stub)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := adapter.FetchNew(ctx)
		require.Error(t, err)
		var fetchErr *FetchError
		assert.False(t, errors.As(err, &fetchErr), "upstream error should pass through unwrapped")
	}
	assert.Equal(t, 3, stub.calls)

	// Open circuit rejects without calling upstream.
	_, err := adapter.FetchNew(ctx)
	require.Error(t, err)
	assert.Equal(t, 3, stub.calls)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "circuit", fetchErr.Op)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}
