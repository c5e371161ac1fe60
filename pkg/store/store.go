// Package store defines the ordered key-value store the rest of CacheTheory
// runs against, and implements it over Redis.
//
// The store is a collaborator, not something CacheTheory reimplements:
// single-key operations are assumed atomic, multi-key batches are sequences of
// independent atomic steps. Absent keys, fields, and members surface as
// errors.ErrNotFound; connectivity failures surface as a StoreError that
// matches errors.ErrStoreUnavailable.
package store

import (
	"context"
	"time"
)

// Member is an ordered-set member together with its score.
type Member struct {
	Name  string
	Score float64
}

// Store is the ordered key-value surface CacheTheory consumes.
type Store interface {
	// Plain keys.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	SetEx(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Hashes.
	HGet(ctx context.Context, key, field string) (string, error)
	HSet(ctx context.Context, key, field, value string) error
	HDel(ctx context.Context, key string, fields ...string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HLen(ctx context.Context, key string) (int, error)

	// Sets.
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SIsMember(ctx context.Context, key, member string) (bool, error)

	// Ordered sets.
	ZAdd(ctx context.Context, key, member string, score float64) error
	ZIncrBy(ctx context.Context, key, member string, delta float64) (float64, error)
	ZRem(ctx context.Context, key string, members ...string) error
	ZRemRangeByRank(ctx context.Context, key string, start, stop int) error
	ZRange(ctx context.Context, key string, start, stop int) ([]string, error)
	ZRangeWithScores(ctx context.Context, key string, start, stop int) ([]Member, error)
	ZRangeByScoreWithScores(ctx context.Context, key string, min, max float64) ([]Member, error)
	ZScore(ctx context.Context, key, member string) (float64, error)
	ZRank(ctx context.Context, key, member string) (int, error)
	ZCard(ctx context.Context, key string) (int, error)
}
