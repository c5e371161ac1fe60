package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gomodule/redigo/redis"

	customerrors "github.com/theory-cloud/cachetheory/pkg/errors"
)

// RedisStore implements Store over a redigo connection pool.
type RedisStore struct {
	pool *redis.Pool
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore on top of an existing pool. The pool
// remains owned by the caller.
func NewRedisStore(pool *redis.Pool) *RedisStore {
	return &RedisStore{pool: pool}
}

func (s *RedisStore) do(ctx context.Context, cmd string, args ...interface{}) (interface{}, error) {
	conn, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return conn.Do(cmd, args...)
}

// mapErr classifies a command result: redis nil replies become ErrNotFound,
// everything else becomes a StoreError for the failing op and key.
func mapErr(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.ErrNil) {
		return customerrors.ErrNotFound
	}
	var se *customerrors.StoreError
	if errors.As(err, &se) {
		return err
	}
	return customerrors.NewStoreError(op, key, err)
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// Get returns the string value at key, or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := redis.String(s.do(ctx, "GET", key))
	if err != nil {
		return "", mapErr("GET", key, err)
	}
	return v, nil
}

// Set writes the string value at key without expiry.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	_, err := s.do(ctx, "SET", key, value)
	return mapErr("SET", key, err)
}

// SetEx writes the string value at key with the given TTL.
func (s *RedisStore) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := s.do(ctx, "SET", key, value, "PX", ttl.Milliseconds())
	return mapErr("SET", key, err)
}

// Del removes the given keys. Missing keys are not an error.
func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.do(ctx, "DEL", redis.Args{}.AddFlat(keys)...)
	return mapErr("DEL", keys[0], err)
}

// Exists reports whether key is present.
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := redis.Int(s.do(ctx, "EXISTS", key))
	if err != nil {
		return false, mapErr("EXISTS", key, err)
	}
	return n > 0, nil
}

// Expire sets the TTL on an existing key.
func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	_, err := s.do(ctx, "PEXPIRE", key, ttl.Milliseconds())
	return mapErr("PEXPIRE", key, err)
}

// HGet returns the value of a hash field, or ErrNotFound.
func (s *RedisStore) HGet(ctx context.Context, key, field string) (string, error) {
	v, err := redis.String(s.do(ctx, "HGET", key, field))
	if err != nil {
		return "", mapErr("HGET", key, err)
	}
	return v, nil
}

// HSet upserts a hash field.
func (s *RedisStore) HSet(ctx context.Context, key, field, value string) error {
	_, err := s.do(ctx, "HSET", key, field, value)
	return mapErr("HSET", key, err)
}

// HDel removes hash fields. Missing fields are not an error.
func (s *RedisStore) HDel(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	_, err := s.do(ctx, "HDEL", redis.Args{}.Add(key).AddFlat(fields)...)
	return mapErr("HDEL", key, err)
}

// HGetAll returns all fields of a hash. A missing key yields an empty map.
func (s *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := redis.StringMap(s.do(ctx, "HGETALL", key))
	if err != nil {
		return nil, mapErr("HGETALL", key, err)
	}
	return m, nil
}

// HLen returns the number of fields in a hash.
func (s *RedisStore) HLen(ctx context.Context, key string) (int, error) {
	n, err := redis.Int(s.do(ctx, "HLEN", key))
	if err != nil {
		return 0, mapErr("HLEN", key, err)
	}
	return n, nil
}

// SAdd adds members to a set.
func (s *RedisStore) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	_, err := s.do(ctx, "SADD", redis.Args{}.Add(key).AddFlat(members)...)
	return mapErr("SADD", key, err)
}

// SRem removes members from a set.
func (s *RedisStore) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	_, err := s.do(ctx, "SREM", redis.Args{}.Add(key).AddFlat(members)...)
	return mapErr("SREM", key, err)
}

// SIsMember reports set membership.
func (s *RedisStore) SIsMember(ctx context.Context, key, member string) (bool, error) {
	ok, err := redis.Bool(s.do(ctx, "SISMEMBER", key, member))
	if err != nil {
		return false, mapErr("SISMEMBER", key, err)
	}
	return ok, nil
}

// ZAdd upserts a member with the given score.
func (s *RedisStore) ZAdd(ctx context.Context, key, member string, score float64) error {
	_, err := s.do(ctx, "ZADD", key, formatScore(score), member)
	return mapErr("ZADD", key, err)
}

// ZIncrBy adjusts a member's score by delta, creating it if absent, and
// returns the new score.
func (s *RedisStore) ZIncrBy(ctx context.Context, key, member string, delta float64) (float64, error) {
	v, err := redis.Float64(s.do(ctx, "ZINCRBY", key, formatScore(delta), member))
	if err != nil {
		return 0, mapErr("ZINCRBY", key, err)
	}
	return v, nil
}

// ZRem removes members from an ordered set.
func (s *RedisStore) ZRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	_, err := s.do(ctx, "ZREM", redis.Args{}.Add(key).AddFlat(members)...)
	return mapErr("ZREM", key, err)
}

// ZRemRangeByRank removes the members between the given ranks, inclusive.
// Negative ranks count from the highest score.
func (s *RedisStore) ZRemRangeByRank(ctx context.Context, key string, start, stop int) error {
	_, err := s.do(ctx, "ZREMRANGEBYRANK", key, start, stop)
	return mapErr("ZREMRANGEBYRANK", key, err)
}

// ZRange returns the member names between the given ranks, ascending by score.
func (s *RedisStore) ZRange(ctx context.Context, key string, start, stop int) ([]string, error) {
	v, err := redis.Strings(s.do(ctx, "ZRANGE", key, start, stop))
	if err != nil {
		return nil, mapErr("ZRANGE", key, err)
	}
	return v, nil
}

// ZRangeWithScores returns the members between the given ranks together with
// their scores, ascending by score.
func (s *RedisStore) ZRangeWithScores(ctx context.Context, key string, start, stop int) ([]Member, error) {
	v, err := redis.Strings(s.do(ctx, "ZRANGE", key, start, stop, "WITHSCORES"))
	if err != nil {
		return nil, mapErr("ZRANGE", key, err)
	}
	return pairsToMembers("ZRANGE", key, v)
}

// ZRangeByScoreWithScores returns the members whose scores fall in
// [min, max], together with their scores.
func (s *RedisStore) ZRangeByScoreWithScores(ctx context.Context, key string, min, max float64) ([]Member, error) {
	v, err := redis.Strings(s.do(ctx, "ZRANGEBYSCORE", key, formatScore(min), formatScore(max), "WITHSCORES"))
	if err != nil {
		return nil, mapErr("ZRANGEBYSCORE", key, err)
	}
	return pairsToMembers("ZRANGEBYSCORE", key, v)
}

// ZScore returns a member's score, or ErrNotFound.
func (s *RedisStore) ZScore(ctx context.Context, key, member string) (float64, error) {
	v, err := redis.Float64(s.do(ctx, "ZSCORE", key, member))
	if err != nil {
		return 0, mapErr("ZSCORE", key, err)
	}
	return v, nil
}

// ZRank returns a member's ascending rank, or ErrNotFound.
func (s *RedisStore) ZRank(ctx context.Context, key, member string) (int, error) {
	v, err := redis.Int(s.do(ctx, "ZRANK", key, member))
	if err != nil {
		return 0, mapErr("ZRANK", key, err)
	}
	return v, nil
}

// ZCard returns the cardinality of an ordered set.
func (s *RedisStore) ZCard(ctx context.Context, key string) (int, error) {
	v, err := redis.Int(s.do(ctx, "ZCARD", key))
	if err != nil {
		return 0, mapErr("ZCARD", key, err)
	}
	return v, nil
}

func pairsToMembers(op, key string, pairs []string) ([]Member, error) {
	if len(pairs)%2 != 0 {
		return nil, customerrors.NewStoreError(op, key, errors.New("uneven WITHSCORES reply"))
	}
	members := make([]Member, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		score, err := strconv.ParseFloat(pairs[i+1], 64)
		if err != nil {
			return nil, customerrors.NewStoreError(op, key, err)
		}
		members = append(members, Member{Name: pairs[i], Score: score})
	}
	return members, nil
}
