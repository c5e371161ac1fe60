// Package worker runs the background maintenance loops that keep the session
// registry size-bounded.
//
// Each reaper is a cooperatively cancellable polling loop: when the registry
// is over its limit it evicts the least-recently-seen sessions in bounded
// batches, otherwise it backs off for a fixed idle interval. Eviction steps
// are independent store operations; a crash mid-batch is repaired by the next
// pass re-deriving everything from store state.
package worker

import (
	"context"
	"time"

	"github.com/theory-cloud/cachetheory/pkg/keyspace"
	"github.com/theory-cloud/cachetheory/pkg/store"
)

const (
	// MaxEvictionsPerPass caps evictions per loop iteration, bounding the cost
	// of a single pass no matter how far over limit the registry drifted.
	MaxEvictionsPerPass = 100

	// IdlePollInterval is how long a reaper sleeps while the registry is
	// within its limit.
	IdlePollInterval = time.Second
)

// Reaper evicts stale sessions once the registry exceeds its limit.
type Reaper struct {
	store store.Store
	limit int
	full  bool
	sleep func(time.Duration)
	idle  time.Duration
}

// Option customizes a Reaper.
type Option func(*Reaper)

// WithIdleInterval overrides the idle backoff, for tests.
func WithIdleInterval(d time.Duration) Option {
	return func(r *Reaper) {
		if d > 0 {
			r.idle = d
		}
	}
}

// NewSessionReaper creates a reaper that removes evicted sessions' view
// history along with the session itself.
func NewSessionReaper(s store.Store, limit int, opts ...Option) *Reaper {
	return newReaper(s, limit, false, opts)
}

// NewFullSessionReaper creates a reaper that also removes evicted sessions'
// carts.
func NewFullSessionReaper(s store.Store, limit int, opts ...Option) *Reaper {
	return newReaper(s, limit, true, opts)
}

func newReaper(s store.Store, limit int, full bool, opts []Option) *Reaper {
	r := &Reaper{
		store: s,
		limit: limit,
		full:  full,
		sleep: time.Sleep,
		idle:  IdlePollInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run loops until ctx is cancelled, evicting whenever the registry exceeds
// the limit and idling otherwise. Store errors terminate the loop; the owner
// decides whether to restart.
func (r *Reaper) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		evicted, err := r.reap(ctx)
		if err != nil {
			return err
		}
		if evicted == 0 {
			r.sleep(r.idle)
		}
	}
}

// reap performs one bounded eviction pass and reports how many sessions were
// removed. Zero means the registry is within its limit.
func (r *Reaper) reap(ctx context.Context) (int, error) {
	size, err := r.store.ZCard(ctx, keyspace.Recent)
	if err != nil {
		return 0, err
	}
	if size <= r.limit {
		return 0, nil
	}

	batch := size - r.limit
	if batch > MaxEvictionsPerPass {
		batch = MaxEvictionsPerPass
	}

	// Oldest first; ties fall back to store order, acceptable because
	// last-seen times are expected to differ.
	tokens, err := r.store.ZRange(ctx, keyspace.Recent, 0, batch-1)
	if err != nil {
		return 0, err
	}
	if len(tokens) == 0 {
		return 0, nil
	}

	ancillary := make([]string, 0, len(tokens)*2)
	for _, token := range tokens {
		ancillary = append(ancillary, keyspace.Viewed(token))
		if r.full {
			ancillary = append(ancillary, keyspace.Cart(token))
		}
	}

	if err := r.store.Del(ctx, ancillary...); err != nil {
		return 0, err
	}
	if err := r.store.HDel(ctx, keyspace.Logins, tokens...); err != nil {
		return 0, err
	}
	if err := r.store.ZRem(ctx, keyspace.Recent, tokens...); err != nil {
		return 0, err
	}
	return len(tokens), nil
}
