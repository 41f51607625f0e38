package settings

import (
	"context"
	"crypto/tls"
	"sort"
	"strings"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/pkg/errors"
)

// RedisConfig holds configuration options for a Redis-backed settings store.
type RedisConfig struct {
	Address     string        `yaml:"address"`
	Username    string        `yaml:"username,omitempty"`
	Password    string        `yaml:"password,omitempty"`
	Database    int           `yaml:"database,omitempty"`
	MaxIdle     int           `yaml:"max_idle,omitempty"`
	IdleTimeout time.Duration `yaml:"idle_timeout,omitempty"`
	UseTLS      bool          `yaml:"use_tls,omitempty"`

	// Key is the Redis hash holding all settings, fields keyed by dotted
	// path. Default: "ushadow:settings".
	Key string `yaml:"key,omitempty"`
}

// Validate checks if the RedisConfig has all required fields set.
func (r RedisConfig) Validate() error {
	if r.Address == "" {
		return errors.New("redis address must be set and non-empty")
	}
	if r.MaxIdle < 0 {
		return errors.New("redis max_idle must be non-negative")
	}
	if r.IdleTimeout < 0 {
		return errors.New("redis idle_timeout must be non-negative")
	}
	if r.Database < 0 {
		return errors.New("redis database must be non-negative")
	}
	return nil
}

// CreateClient creates and configures a Redis connection pool from this
// config. Implements the config.ClientFactory[*redis.Pool] interface.
func (r RedisConfig) CreateClient() (*redis.Pool, error) {
	if err := r.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid Redis configuration")
	}

	maxIdle := r.MaxIdle
	if maxIdle == 0 {
		maxIdle = 3
	}

	return &redis.Pool{
		MaxIdle:     maxIdle,
		IdleTimeout: r.IdleTimeout,
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
		Dial: func() (redis.Conn, error) {
			opts := []redis.DialOption{redis.DialDatabase(r.Database)}
			if r.Username != "" {
				opts = append(opts, redis.DialUsername(r.Username))
			}
			if r.Password != "" {
				opts = append(opts, redis.DialPassword(r.Password))
			}
			if r.UseTLS {
				opts = append(opts, redis.DialUseTLS(true), redis.DialTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}))
			}
			return redis.Dial("tcp", r.Address, opts...)
		},
	}, nil
}

// RedisBackend stores settings as fields of a single Redis hash. Labels are
// not stored; candidate labels fall back to the path.
type RedisBackend struct {
	pool *redis.Pool
	key  string
}

// NewRedisBackend creates a Redis-backed settings store.
func NewRedisBackend(pool *redis.Pool, cfg RedisConfig) *RedisBackend {
	key := cfg.Key
	if key == "" {
		key = "ushadow:settings"
	}
	return &RedisBackend{pool: pool, key: key}
}

// List returns entries whose path starts with prefix, in path order.
func (r *RedisBackend) List(ctx context.Context, prefix string) ([]Entry, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get Redis connection")
	}
	defer func() { _ = conn.Close() }()

	values, err := redis.StringMap(conn.Do("HGETALL", r.key))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read settings hash")
	}

	var result []Entry
	for path, value := range values {
		if strings.HasPrefix(path, prefix) {
			result = append(result, Entry{Path: path, Value: value})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })
	return result, nil
}

// Get returns the raw value at path.
func (r *RedisBackend) Get(ctx context.Context, path string) (string, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return "", errors.Wrap(err, "failed to get Redis connection")
	}
	defer func() { _ = conn.Close() }()

	value, err := redis.String(conn.Do("HGET", r.key, path))
	if err == redis.ErrNil {
		return "", errors.Errorf("setting %q not found", path)
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to read setting")
	}
	return value, nil
}

// Set creates or replaces the value at path.
func (r *RedisBackend) Set(ctx context.Context, path, value string) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get Redis connection")
	}
	defer func() { _ = conn.Close() }()

	_, err = conn.Do("HSET", r.key, path, value)
	return errors.Wrap(err, "failed to store setting")
}
