package rowcache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gomodule/redigo/redis"
	"github.com/stretchr/testify/require"

	customerrors "github.com/theory-cloud/cachetheory/pkg/errors"
	"github.com/theory-cloud/cachetheory/pkg/keyspace"
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

// countingProvider returns a payload embedding how often each row was fetched.
type countingProvider struct {
	fetches atomic.Int64
}

func (p *countingProvider) Fetch(_ context.Context, rowID string) (any, error) {
	n := p.fetches.Add(1)
	return map[string]any{"id": rowID, "fetch": n}, nil
}

func startWorker(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("refresh worker did not stop")
		}
	})
}

func TestScheduleCachesRowWithinPollInterval(t *testing.T) {
	st, _ := newTestStore(t)
	provider := &countingProvider{}
	s := NewScheduler(st, provider, WithPollInterval(10*time.Millisecond))
	ctx := context.Background()

	startWorker(t, s)
	require.NoError(t, s.Schedule(ctx, "itemX", 500*time.Millisecond))

	require.Eventually(t, func() bool {
		_, err := s.Row(ctx, "itemX")
		return err == nil
	}, time.Second, 5*time.Millisecond)

	row, err := s.Row(ctx, "itemX")
	require.NoError(t, err)
	require.Equal(t, "itemX", row["id"])
	require.Equal(t, float64(1), row["fetch"])
}

func TestRowRefreshesNoSoonerThanDelay(t *testing.T) {
	st, _ := newTestStore(t)
	provider := &countingProvider{}
	s := NewScheduler(st, provider, WithPollInterval(10*time.Millisecond))
	ctx := context.Background()

	startWorker(t, s)
	require.NoError(t, s.Schedule(ctx, "itemX", 400*time.Millisecond))

	require.Eventually(t, func() bool {
		return provider.fetches.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// Well before the delay elapses the payload is untouched.
	time.Sleep(150 * time.Millisecond)
	require.Equal(t, int64(1), provider.fetches.Load())

	// After the delay it is refreshed.
	require.Eventually(t, func() bool {
		return provider.fetches.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNonPositiveDelayStopsCaching(t *testing.T) {
	st, _ := newTestStore(t)
	provider := &countingProvider{}
	s := NewScheduler(st, provider, WithPollInterval(10*time.Millisecond))
	ctx := context.Background()

	startWorker(t, s)
	require.NoError(t, s.Schedule(ctx, "itemX", 10*time.Second))

	require.Eventually(t, func() bool {
		_, err := s.Row(ctx, "itemX")
		return err == nil
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Schedule(ctx, "itemX", -time.Second))

	require.Eventually(t, func() bool {
		_, err := s.Row(ctx, "itemX")
		return customerrors.IsNotFound(err)
	}, time.Second, 5*time.Millisecond)

	// Both index entries are gone too.
	_, err := st.ZScore(ctx, keyspace.Schedule, "itemX")
	require.ErrorIs(t, err, customerrors.ErrNotFound)
	_, err = st.ZScore(ctx, keyspace.Delay, "itemX")
	require.ErrorIs(t, err, customerrors.ErrNotFound)
}

func TestProviderFailureSkipsRowAndKeepsWorkerAlive(t *testing.T) {
	st, _ := newTestStore(t)
	provider := ProviderFunc(func(_ context.Context, rowID string) (any, error) {
		if rowID == "bad" {
			return nil, errors.New("source of truth is down")
		}
		return map[string]any{"id": rowID}, nil
	})
	s := NewScheduler(st, provider, WithPollInterval(10*time.Millisecond))
	ctx := context.Background()

	startWorker(t, s)
	require.NoError(t, s.Schedule(ctx, "bad", 10*time.Second))
	require.NoError(t, s.Schedule(ctx, "good", 10*time.Second))

	require.Eventually(t, func() bool {
		_, err := s.Row(ctx, "good")
		return err == nil
	}, time.Second, 5*time.Millisecond)

	// The failed row has no payload but stays scheduled for a later retry.
	_, err := s.Row(ctx, "bad")
	require.ErrorIs(t, err, customerrors.ErrNotFound)
	_, err = st.ZScore(ctx, keyspace.Schedule, "bad")
	require.NoError(t, err)
}

func TestRunWithoutProvider(t *testing.T) {
	st, _ := newTestStore(t)
	s := NewScheduler(st, nil)
	require.ErrorIs(t, s.Run(context.Background()), customerrors.ErrProviderNotConfigured)
}

func TestRunStopsOnStoreFailure(t *testing.T) {
	st, mr := newTestStore(t)
	s := NewScheduler(st, &countingProvider{}, WithPollInterval(10*time.Millisecond))
	mr.Close()

	err := s.Run(context.Background())
	require.Error(t, err)
	require.True(t, customerrors.IsUnavailable(err))
}

func TestRunStopsOnCancel(t *testing.T) {
	st, _ := newTestStore(t)
	s := NewScheduler(st, &countingProvider{}, WithPollInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not observe cancellation")
	}
}

func TestRescheduleReplacesDelay(t *testing.T) {
	st, _ := newTestStore(t)
	s := NewScheduler(st, &countingProvider{})
	ctx := context.Background()

	require.NoError(t, s.Schedule(ctx, "itemX", 10*time.Second))
	require.NoError(t, s.Schedule(ctx, "itemX", 2*time.Second))

	delay, err := st.ZScore(ctx, keyspace.Delay, "itemX")
	require.NoError(t, err)
	require.Equal(t, 2.0, delay)

	// Still exactly one schedule entry for the row.
	n, err := st.ZCard(ctx, keyspace.Schedule)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestRowMalformedPayload(t *testing.T) {
	st, _ := newTestStore(t)
	s := NewScheduler(st, nil)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, keyspace.Row("itemX"), "{not json"))
	_, err := s.Row(ctx, "itemX")
	require.ErrorIs(t, err, customerrors.ErrMalformedRecord)
}
