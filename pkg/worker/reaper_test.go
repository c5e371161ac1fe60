package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gomodule/redigo/redis"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/cachetheory/pkg/cart"
	customerrors "github.com/theory-cloud/cachetheory/pkg/errors"
	"github.com/theory-cloud/cachetheory/pkg/keyspace"
	"github.com/theory-cloud/cachetheory/pkg/login"
	"github.com/theory-cloud/cachetheory/pkg/store"
)

func newTestStore(t *testing.T) (store.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	pool := &redis.Pool{
		Dial: func() (redis.Conn, error) { return redis.Dial("tcp", addr) },
	}
	t.Cleanup(func() { _ = pool.Close() })
	return store.NewRedisStore(pool), mr
}

// seedSessions registers n sessions with strictly increasing last-seen times,
// each with a view and a cart line, and returns the tokens oldest first.
func seedSessions(t *testing.T, s store.Store, n int) []string {
	t.Helper()
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)
	clock := func() time.Time {
		base = base.Add(time.Millisecond)
		return base
	}
	registry := login.NewRegistry(s, login.WithNow(clock))
	carts := cart.NewStore(s)

	tokens := make([]string, n)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("token%04d", i)
		require.NoError(t, registry.UpdateToken(ctx, tokens[i], "user", "itemX"))
		require.NoError(t, carts.Add(ctx, tokens[i], "itemY", 1))
	}
	return tokens
}

func TestReapEvictsOldestFirst(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	tokens := seedSessions(t, s, 10)

	r := NewSessionReaper(s, 7)
	evicted, err := r.reap(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, evicted)

	for _, token := range tokens[:3] {
		_, err := s.HGet(ctx, keyspace.Logins, token)
		require.ErrorIs(t, err, customerrors.ErrNotFound)

		history, err := s.ZRange(ctx, keyspace.Viewed(token), 0, -1)
		require.NoError(t, err)
		require.Empty(t, history)
	}
	for _, token := range tokens[3:] {
		_, err := s.HGet(ctx, keyspace.Logins, token)
		require.NoError(t, err)
	}
}

func TestReapBatchCapped(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	seedSessions(t, s, MaxEvictionsPerPass+50)

	r := NewSessionReaper(s, 0)

	evicted, err := r.reap(ctx)
	require.NoError(t, err)
	require.Equal(t, MaxEvictionsPerPass, evicted)

	// Repeated passes drain the rest.
	evicted, err = r.reap(ctx)
	require.NoError(t, err)
	require.Equal(t, 50, evicted)

	evicted, err = r.reap(ctx)
	require.NoError(t, err)
	require.Zero(t, evicted)
}

func TestPlainReaperKeepsCarts(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	tokens := seedSessions(t, s, 1)

	evicted, err := NewSessionReaper(s, 0).reap(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, evicted)

	items, err := s.HGetAll(ctx, keyspace.Cart(tokens[0]))
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestFullReaperRemovesCarts(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	tokens := seedSessions(t, s, 1)

	evicted, err := NewFullSessionReaper(s, 0).reap(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, evicted)

	items, err := s.HGetAll(ctx, keyspace.Cart(tokens[0]))
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestRunEvictsUntilUnderLimitThenIdles(t *testing.T) {
	s, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	seedSessions(t, s, 250)

	r := NewSessionReaper(s, 20, WithIdleInterval(10*time.Millisecond))
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		n, err := s.ZCard(context.Background(), keyspace.Recent)
		return err == nil && n == 20
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reaper did not observe cancellation")
	}
}

func TestRunStopsOnStoreFailure(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()

	err := NewSessionReaper(s, 0).Run(context.Background())
	require.Error(t, err)
	require.True(t, customerrors.IsUnavailable(err))
}

func TestRunUnderLimitLeavesSessionsAlone(t *testing.T) {
	s, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	tokens := seedSessions(t, s, 5)

	r := NewSessionReaper(s, 10, WithIdleInterval(5*time.Millisecond))
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	for _, token := range tokens {
		_, err := s.HGet(context.Background(), keyspace.Logins, token)
		require.NoError(t, err)
	}
}
