// Package connection provides Redis connection management and pool
// configuration for CacheTheory.
package connection

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gomodule/redigo/redis"
	"gopkg.in/yaml.v3"

	customerrors "github.com/theory-cloud/cachetheory/pkg/errors"
)

// Config holds the Redis connection settings for CacheTheory.
type Config struct {
	// Addr is the host:port of the Redis server.
	Addr string `yaml:"addr" env:"CACHETHEORY_REDIS_ADDR"`
	// Password is sent with AUTH when non-empty.
	Password string `yaml:"password" env:"CACHETHEORY_REDIS_PASSWORD"`
	// DB selects the logical database.
	DB int `yaml:"db" env:"CACHETHEORY_REDIS_DB"`

	MaxIdle     int           `yaml:"max_idle" env:"CACHETHEORY_REDIS_MAX_IDLE"`
	MaxActive   int           `yaml:"max_active" env:"CACHETHEORY_REDIS_MAX_ACTIVE"`
	IdleTimeout time.Duration `yaml:"-" env:"CACHETHEORY_REDIS_IDLE_TIMEOUT"`
	DialTimeout time.Duration `yaml:"-" env:"CACHETHEORY_REDIS_DIAL_TIMEOUT"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Addr:        "127.0.0.1:6379",
		MaxIdle:     3,
		MaxActive:   16,
		IdleTimeout: 4 * time.Minute,
		DialTimeout: 5 * time.Second,
	}
}

// FromEnv returns the default configuration overridden by CACHETHEORY_REDIS_*
// environment variables.
func FromEnv() (*Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// fileConfig mirrors Config for YAML decoding; durations are strings like
// "4m" or "500ms".
type fileConfig struct {
	Addr        string `yaml:"addr"`
	Password    string `yaml:"password"`
	DB          int    `yaml:"db"`
	MaxIdle     int    `yaml:"max_idle"`
	MaxActive   int    `yaml:"max_active"`
	IdleTimeout string `yaml:"idle_timeout"`
	DialTimeout string `yaml:"dial_timeout"`
}

// LoadFile returns the default configuration overridden by the YAML file at
// path.
func LoadFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := DefaultConfig()
	if fc.Addr != "" {
		cfg.Addr = fc.Addr
	}
	if fc.Password != "" {
		cfg.Password = fc.Password
	}
	if fc.DB != 0 {
		cfg.DB = fc.DB
	}
	if fc.MaxIdle != 0 {
		cfg.MaxIdle = fc.MaxIdle
	}
	if fc.MaxActive != 0 {
		cfg.MaxActive = fc.MaxActive
	}
	if fc.IdleTimeout != "" {
		d, err := time.ParseDuration(fc.IdleTimeout)
		if err != nil {
			return nil, fmt.Errorf("parse idle_timeout: %w", err)
		}
		cfg.IdleTimeout = d
	}
	if fc.DialTimeout != "" {
		d, err := time.ParseDuration(fc.DialTimeout)
		if err != nil {
			return nil, fmt.Errorf("parse dial_timeout: %w", err)
		}
		cfg.DialTimeout = d
	}
	return cfg, nil
}

// Validate checks the configuration for values the pool cannot work with.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", customerrors.ErrInvalidConfig)
	}
	if c.Addr == "" {
		return fmt.Errorf("%w: addr is required", customerrors.ErrInvalidConfig)
	}
	if c.DB < 0 {
		return fmt.Errorf("%w: db must not be negative", customerrors.ErrInvalidConfig)
	}
	return nil
}

// NewPool builds a redigo pool from the configuration. Idle connections are
// health-checked with PING when they have been parked for over a minute.
func NewPool(cfg *Config) (*redis.Pool, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &redis.Pool{
		MaxIdle:     cfg.MaxIdle,
		MaxActive:   cfg.MaxActive,
		IdleTimeout: cfg.IdleTimeout,
		Wait:        true,
		Dial: func() (redis.Conn, error) {
			opts := []redis.DialOption{
				redis.DialConnectTimeout(cfg.DialTimeout),
				redis.DialDatabase(cfg.DB),
			}
			if cfg.Password != "" {
				opts = append(opts, redis.DialPassword(cfg.Password))
			}
			return redis.Dial("tcp", cfg.Addr, opts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}, nil
}
