// Package pagecache caches rendered pages behind a popularity-gated admission
// check.
//
// Admission is re-evaluated on every call: only requests naming one of the
// most-viewed items are cacheable, and anything carrying the dynamic marker
// parameter "_" never is. Content is keyed by a stable hash of the full
// request string, so two requests differing in any parameter cache separately.
package pagecache

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	customerrors "github.com/theory-cloud/cachetheory/pkg/errors"
	"github.com/theory-cloud/cachetheory/pkg/keyspace"
	"github.com/theory-cloud/cachetheory/pkg/store"
)

const (
	// ContentTTL is how long cached page content lives. Every cacheable call
	// refreshes it.
	ContentTTL = 300 * time.Second

	// MaxCacheableRank is the admission threshold: only items ranked among the
	// most-viewed below this bound are cacheable.
	MaxCacheableRank = 10000

	// itemParam is the query parameter naming the requested item.
	itemParam = "item"
	// dynamicParam marks a request as dynamic and therefore uncacheable.
	dynamicParam = "_"
)

// Renderer produces page content for a request. The cache never knows how
// content is made.
type Renderer func(request string) string

// Cache is the admission-gated page cache.
type Cache struct {
	store store.Store
}

// NewCache creates a page cache on the given store.
func NewCache(s store.Store) *Cache {
	return &Cache{store: s}
}

// CanCache reports whether the request is eligible for caching: it must name
// an item, carry no dynamic marker, and the item must currently rank below
// MaxCacheableRank in the popularity index. A non-nil error is only returned
// for store failures during the rank lookup.
func (c *Cache) CanCache(ctx context.Context, request string) (bool, error) {
	item, ok := itemID(request)
	if !ok || isDynamic(request) {
		return false, nil
	}
	rank, err := c.store.ZRank(ctx, keyspace.Views, item)
	if customerrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rank < MaxCacheableRank, nil
}

// Request returns the page content for request, consulting the cache when the
// request is cacheable. Uncacheable requests are rendered directly with no
// store side effects. For cacheable ones, any read failure counts as a miss
// and falls back to the renderer; the resolved content is then (re)written
// with a fresh TTL either way.
func (c *Cache) Request(ctx context.Context, request string, render Renderer) (string, error) {
	cacheable, err := c.CanCache(ctx, request)
	if err != nil {
		return "", err
	}
	if !cacheable {
		return render(request), nil
	}

	key := keyspace.Page(hashRequest(request))
	content, err := c.store.Get(ctx, key)
	if err != nil {
		content = render(request)
	}
	if err := c.store.SetEx(ctx, key, content, ContentTTL); err != nil {
		return "", err
	}
	return content, nil
}

func itemID(request string) (string, bool) {
	u, err := url.Parse(request)
	if err != nil {
		return "", false
	}
	item := u.Query().Get(itemParam)
	return item, item != ""
}

func isDynamic(request string) bool {
	u, err := url.Parse(request)
	if err != nil {
		return false
	}
	return u.Query().Has(dynamicParam)
}

func hashRequest(request string) string {
	return strconv.FormatUint(xxhash.Sum64String(request), 10)
}
