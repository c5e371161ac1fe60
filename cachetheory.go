// Package cachetheory maintains short-lived, size-bounded web state in Redis:
// login sessions, per-session carts and view history, a popularity index, an
// admission-gated page cache, and a delay-driven row-cache refresh schedule.
//
// Import path:
//
//	import "github.com/theory-cloud/cachetheory"
//
// Implementation lives in the `pkg/` packages so the repo root stays minimal.
package cachetheory

import (
	"github.com/gomodule/redigo/redis"

	"github.com/theory-cloud/cachetheory/pkg/cart"
	"github.com/theory-cloud/cachetheory/pkg/connection"
	"github.com/theory-cloud/cachetheory/pkg/errors"
	"github.com/theory-cloud/cachetheory/pkg/login"
	"github.com/theory-cloud/cachetheory/pkg/pagecache"
	"github.com/theory-cloud/cachetheory/pkg/rowcache"
	"github.com/theory-cloud/cachetheory/pkg/store"
	"github.com/theory-cloud/cachetheory/pkg/worker"
)

type (
	// Config is the Redis connection configuration.
	Config = connection.Config
	// Store is the ordered key-value surface everything runs against.
	Store = store.Store
	// Renderer produces page content for uncached requests.
	Renderer = pagecache.Renderer
	// Provider fetches authoritative records for the row cache.
	Provider = rowcache.Provider
	// ProviderFunc adapts a function to the Provider interface.
	ProviderFunc = rowcache.ProviderFunc
)

// Re-export the fixed contracts for convenience.
const (
	ViewHistoryLimit    = login.ViewHistoryLimit
	MaxEvictionsPerPass = worker.MaxEvictionsPerPass
	IdlePollInterval    = worker.IdlePollInterval
	RefreshPollInterval = rowcache.PollInterval
	ContentTTL          = pagecache.ContentTTL
	MaxCacheableRank    = pagecache.MaxCacheableRank
)

// Re-export the error predicates callers branch on.
var (
	IsNotFound    = errors.IsNotFound
	IsUnavailable = errors.IsUnavailable
)

// Client bundles the ephemeral-state components over one connection pool.
type Client struct {
	pool *redis.Pool

	Store  store.Store
	Logins *login.Registry
	Carts  *cart.Store
	Pages  *pagecache.Cache
	Rows   *rowcache.Scheduler
}

// Option customizes a Client.
type Option func(*options)

type options struct {
	provider rowcache.Provider
}

// WithRecordProvider sets the authoritative record source the refresh worker
// pulls rows from. Without one, Rows can schedule but not run.
func WithRecordProvider(p rowcache.Provider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// New connects to Redis and assembles a Client. A nil config uses defaults.
func New(cfg *connection.Config, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	pool, err := connection.NewPool(cfg)
	if err != nil {
		return nil, err
	}

	s := store.NewRedisStore(pool)
	return &Client{
		pool:   pool,
		Store:  s,
		Logins: login.NewRegistry(s),
		Carts:  cart.NewStore(s),
		Pages:  pagecache.NewCache(s),
		Rows:   rowcache.NewScheduler(s, o.provider),
	}, nil
}

// SessionReaper returns the background worker that evicts stale sessions and
// their view history once the registry exceeds limit.
func (c *Client) SessionReaper(limit int) *worker.Reaper {
	return worker.NewSessionReaper(c.Store, limit)
}

// FullSessionReaper returns the background worker that also evicts carts.
func (c *Client) FullSessionReaper(limit int) *worker.Reaper {
	return worker.NewFullSessionReaper(c.Store, limit)
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.pool.Close()
}
