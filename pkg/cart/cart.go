// Package cart stores per-session shopping carts as item→quantity hashes.
// There is no cart entity: the line collection for a session token is the cart.
package cart

import (
	"context"
	"strconv"

	"github.com/theory-cloud/cachetheory/pkg/keyspace"
	"github.com/theory-cloud/cachetheory/pkg/store"
)

// Store is the cart store.
type Store struct {
	store store.Store
}

// NewStore creates a cart store on the given backing store.
func NewStore(s store.Store) *Store {
	return &Store{store: s}
}

// Add upserts the cart line for item. A quantity of zero or less removes the
// line. Item ids are accepted verbatim; whether they name a real product is
// the caller's concern.
func (s *Store) Add(ctx context.Context, session, item string, quantity int) error {
	key := keyspace.Cart(session)
	if quantity <= 0 {
		return s.store.HDel(ctx, key, item)
	}
	return s.store.HSet(ctx, key, item, strconv.Itoa(quantity))
}

// Items returns the session's cart lines. An empty or missing cart yields an
// empty map.
func (s *Store) Items(ctx context.Context, session string) (map[string]int, error) {
	raw, err := s.store.HGetAll(ctx, keyspace.Cart(session))
	if err != nil {
		return nil, err
	}
	items := make(map[string]int, len(raw))
	for item, qty := range raw {
		n, err := strconv.Atoi(qty)
		if err != nil {
			// A foreign writer put a non-numeric quantity there; surface the
			// line rather than hiding it.
			n = 0
		}
		items[item] = n
	}
	return items, nil
}
