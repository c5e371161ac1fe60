// Package login tracks session tokens: who they belong to, how recently they
// were seen, what they viewed, and how popular each viewed item is.
//
// Every mutation is an independent store operation. There is no rollback: a
// crash mid-sequence leaves at worst a slightly stale popularity score, which
// the next view corrects.
package login

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/theory-cloud/cachetheory/pkg/keyspace"
	"github.com/theory-cloud/cachetheory/pkg/store"
)

// ViewHistoryLimit caps the recent-view list kept per session.
const ViewHistoryLimit = 25

// Registry is the session registry.
type Registry struct {
	store store.Store
	now   func() time.Time
}

// Option customizes a Registry.
type Option func(*Registry)

// WithNow replaces the clock, for deterministic tests.
func WithNow(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry creates a Registry on the given store.
func NewRegistry(s store.Store, opts ...Option) *Registry {
	r := &Registry{store: s, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewToken mints a fresh session token.
func NewToken() string {
	return uuid.NewString()
}

// UpdateToken binds token to user and refreshes the token's recency. For each
// viewed item it also appends to the session's view history, trims the history
// to the ViewHistoryLimit most recent entries, and bumps the item's global
// popularity.
func (r *Registry) UpdateToken(ctx context.Context, token, user string, viewed ...string) error {
	now := float64(r.now().UnixMilli())

	if err := r.store.HSet(ctx, keyspace.Logins, token, user); err != nil {
		return err
	}
	if err := r.store.ZAdd(ctx, keyspace.Recent, token, now); err != nil {
		return err
	}

	for _, item := range viewed {
		history := keyspace.Viewed(token)
		if err := r.store.ZAdd(ctx, history, item, now); err != nil {
			return err
		}
		if err := r.store.ZRemRangeByRank(ctx, history, 0, -(ViewHistoryLimit + 1)); err != nil {
			return err
		}
		// Lower score means more popular, so rank 0 stays the most viewed item.
		if _, err := r.store.ZIncrBy(ctx, keyspace.Views, item, -1); err != nil {
			return err
		}
	}
	return nil
}

// CheckToken returns the user bound to token, or errors.ErrNotFound once the
// token has been evicted or was never registered.
func (r *Registry) CheckToken(ctx context.Context, token string) (string, error) {
	return r.store.HGet(ctx, keyspace.Logins, token)
}

// ViewHistory returns the session's retained views, oldest first. At most
// ViewHistoryLimit entries are ever returned.
func (r *Registry) ViewHistory(ctx context.Context, token string) ([]string, error) {
	return r.store.ZRange(ctx, keyspace.Viewed(token), 0, -1)
}

// Rank returns the item's global popularity rank (0 is most popular), or
// errors.ErrNotFound for an item that has never been viewed.
func (r *Registry) Rank(ctx context.Context, item string) (int, error) {
	return r.store.ZRank(ctx, keyspace.Views, item)
}
