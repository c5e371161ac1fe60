// Package rowcache keeps externally-sourced records cached in the store and
// refreshed on a per-row delay.
//
// Two correlated ordered sets drive the refresh worker: a due-time index
// polled for the earliest row, and a delay table keyed by row id. A
// non-positive delay is the stop-caching sentinel: the worker removes the
// schedule entry, the delay entry, and the cached payload.
package rowcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	customerrors "github.com/theory-cloud/cachetheory/pkg/errors"
	"github.com/theory-cloud/cachetheory/pkg/keyspace"
	"github.com/theory-cloud/cachetheory/pkg/store"
)

// PollInterval bounds how quickly the refresh worker notices newly due rows.
const PollInterval = 50 * time.Millisecond

// Provider fetches the authoritative record for a row. The scheduler only
// serializes and stores its result.
type Provider interface {
	Fetch(ctx context.Context, rowID string) (any, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, rowID string) (any, error)

// Fetch implements Provider.
func (f ProviderFunc) Fetch(ctx context.Context, rowID string) (any, error) {
	return f(ctx, rowID)
}

// Scheduler schedules rows for refresh and runs the refresh worker.
type Scheduler struct {
	store    store.Store
	provider Provider
	now      func() time.Time
	sleep    func(time.Duration)
	poll     time.Duration
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithNow replaces the clock, for deterministic tests.
func WithNow(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPollInterval overrides the worker poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.poll = d
		}
	}
}

// NewScheduler creates a Scheduler. The provider may be nil if Run is never
// called.
func NewScheduler(st store.Store, provider Provider, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:    st,
		provider: provider,
		now:      time.Now,
		sleep:    time.Sleep,
		poll:     PollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule upserts the row's refresh delay and marks it due immediately.
// Scheduling an already-scheduled row re-evaluates it with the new delay on
// the worker's next pass; a non-positive delay makes that pass stop caching
// the row.
func (s *Scheduler) Schedule(ctx context.Context, rowID string, delay time.Duration) error {
	if err := s.store.ZAdd(ctx, keyspace.Delay, rowID, delay.Seconds()); err != nil {
		return err
	}
	return s.store.ZAdd(ctx, keyspace.Schedule, rowID, unixSeconds(s.now()))
}

// Row returns the cached payload for a row, or errors.ErrNotFound while the
// row is not cached.
func (s *Scheduler) Row(ctx context.Context, rowID string) (map[string]any, error) {
	raw, err := s.store.Get(ctx, keyspace.Row(rowID))
	if err != nil {
		return nil, err
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("%w: row %q: %v", customerrors.ErrMalformedRecord, rowID, err)
	}
	return record, nil
}

// Run is the refresh worker loop. Each iteration handles at most one due row:
// stop-caching rows are torn down, live rows are re-scheduled at their delay
// and their payload refreshed from the provider. Cancellation is cooperative,
// checked once per iteration; an in-flight fetch or sleep finishes first.
//
// Store errors terminate the loop. Provider errors do not: the row was
// already re-scheduled, so it is simply retried at its next due time and the
// previous payload stays in place until then.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.provider == nil {
		return customerrors.ErrProviderNotConfigured
	}
	for {
		if ctx.Err() != nil {
			return nil
		}

		due, err := s.store.ZRangeWithScores(ctx, keyspace.Schedule, 0, 0)
		if err != nil {
			return err
		}
		now := unixSeconds(s.now())
		if len(due) == 0 || due[0].Score > now {
			s.sleep(s.poll)
			continue
		}

		rowID := due[0].Name
		delay, err := s.store.ZScore(ctx, keyspace.Delay, rowID)
		if err != nil && !customerrors.IsNotFound(err) {
			return err
		}

		// A missing delay entry counts as the stop sentinel.
		if delay <= 0 {
			if err := s.store.ZRem(ctx, keyspace.Schedule, rowID); err != nil {
				return err
			}
			if err := s.store.ZRem(ctx, keyspace.Delay, rowID); err != nil {
				return err
			}
			if err := s.store.Del(ctx, keyspace.Row(rowID)); err != nil {
				return err
			}
			continue
		}

		if err := s.store.ZAdd(ctx, keyspace.Schedule, rowID, now+delay); err != nil {
			return err
		}

		record, err := s.provider.Fetch(ctx, rowID)
		if err != nil {
			continue
		}
		payload, err := json.Marshal(record)
		if err != nil {
			continue
		}
		if err := s.store.Set(ctx, keyspace.Row(rowID), string(payload)); err != nil {
			return err
		}
	}
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
