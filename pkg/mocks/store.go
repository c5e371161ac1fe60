// Package mocks provides mock implementations for CacheTheory interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/theory-cloud/cachetheory/pkg/store"
)

// MockStore provides a mock implementation of store.Store for exercising
// error paths the real store cannot produce on demand.
//
// Example usage:
//
//	ms := new(mocks.MockStore)
//	ms.On("Get", mock.Anything, "cache:1").Return("", customerrors.ErrNotFound)
type MockStore struct {
	mock.Mock
}

var _ store.Store = (*MockStore)(nil)

// Get mocks the plain-key read.
func (m *MockStore) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

// Set mocks the plain-key write.
func (m *MockStore) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

// SetEx mocks the plain-key write with TTL.
func (m *MockStore) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

// Del mocks multi-key deletion.
func (m *MockStore) Del(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

// Exists mocks key existence.
func (m *MockStore) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// Expire mocks setting a key TTL.
func (m *MockStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	args := m.Called(ctx, key, ttl)
	return args.Error(0)
}

// HGet mocks a hash field read.
func (m *MockStore) HGet(ctx context.Context, key, field string) (string, error) {
	args := m.Called(ctx, key, field)
	return args.String(0), args.Error(1)
}

// HSet mocks a hash field write.
func (m *MockStore) HSet(ctx context.Context, key, field, value string) error {
	args := m.Called(ctx, key, field, value)
	return args.Error(0)
}

// HDel mocks hash field deletion.
func (m *MockStore) HDel(ctx context.Context, key string, fields ...string) error {
	args := m.Called(ctx, key, fields)
	return args.Error(0)
}

// HGetAll mocks a full hash read.
func (m *MockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

// HLen mocks a hash length read.
func (m *MockStore) HLen(ctx context.Context, key string) (int, error) {
	args := m.Called(ctx, key)
	return args.Int(0), args.Error(1)
}

// SAdd mocks set insertion.
func (m *MockStore) SAdd(ctx context.Context, key string, members ...string) error {
	args := m.Called(ctx, key, members)
	return args.Error(0)
}

// SRem mocks set removal.
func (m *MockStore) SRem(ctx context.Context, key string, members ...string) error {
	args := m.Called(ctx, key, members)
	return args.Error(0)
}

// SIsMember mocks set membership.
func (m *MockStore) SIsMember(ctx context.Context, key, member string) (bool, error) {
	args := m.Called(ctx, key, member)
	return args.Bool(0), args.Error(1)
}

// ZAdd mocks an ordered-set upsert.
func (m *MockStore) ZAdd(ctx context.Context, key, member string, score float64) error {
	args := m.Called(ctx, key, member, score)
	return args.Error(0)
}

// ZIncrBy mocks an ordered-set score adjustment.
func (m *MockStore) ZIncrBy(ctx context.Context, key, member string, delta float64) (float64, error) {
	args := m.Called(ctx, key, member, delta)
	return toFloat(args.Get(0)), args.Error(1)
}

// ZRem mocks ordered-set removal.
func (m *MockStore) ZRem(ctx context.Context, key string, members ...string) error {
	args := m.Called(ctx, key, members)
	return args.Error(0)
}

// ZRemRangeByRank mocks ordered-set trimming by rank.
func (m *MockStore) ZRemRangeByRank(ctx context.Context, key string, start, stop int) error {
	args := m.Called(ctx, key, start, stop)
	return args.Error(0)
}

// ZRange mocks an ordered-set range read.
func (m *MockStore) ZRange(ctx context.Context, key string, start, stop int) ([]string, error) {
	args := m.Called(ctx, key, start, stop)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// ZRangeWithScores mocks an ordered-set range read with scores.
func (m *MockStore) ZRangeWithScores(ctx context.Context, key string, start, stop int) ([]store.Member, error) {
	args := m.Called(ctx, key, start, stop)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Member), args.Error(1)
}

// ZRangeByScoreWithScores mocks an ordered-set score-range read.
func (m *MockStore) ZRangeByScoreWithScores(ctx context.Context, key string, min, max float64) ([]store.Member, error) {
	args := m.Called(ctx, key, min, max)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.Member), args.Error(1)
}

// ZScore mocks an ordered-set score read.
func (m *MockStore) ZScore(ctx context.Context, key, member string) (float64, error) {
	args := m.Called(ctx, key, member)
	return toFloat(args.Get(0)), args.Error(1)
}

// ZRank mocks an ordered-set rank read.
func (m *MockStore) ZRank(ctx context.Context, key, member string) (int, error) {
	args := m.Called(ctx, key, member)
	return args.Int(0), args.Error(1)
}

// ZCard mocks an ordered-set cardinality read.
func (m *MockStore) ZCard(ctx context.Context, key string) (int, error) {
	args := m.Called(ctx, key)
	return args.Int(0), args.Error(1)
}

// toFloat accepts the int literals tests naturally pass to Return.
func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		panic("unexpected type: expected a numeric score")
	}
}
