package settings

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// MemcachedConfig holds configuration for the candidate-listing cache.
type MemcachedConfig struct {
	// Servers is a list of Memcached server addresses (host:port).
	Servers []string `yaml:"servers"`

	// Timeout for connecting to Memcached servers. Default: 100ms.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// TTL for cached listings. Default: 30s.
	TTL time.Duration `yaml:"ttl,omitempty"`
}

// Validate checks if the MemcachedConfig has all required fields set.
func (m MemcachedConfig) Validate() error {
	if len(m.Servers) == 0 {
		return errors.New("at least one Memcached server address is required")
	}
	for i, server := range m.Servers {
		if server == "" {
			return errors.Errorf("server address at index %d is empty", i)
		}
	}
	if m.Timeout < 0 {
		return errors.New("timeout cannot be negative")
	}
	return nil
}

// CreateClient creates and configures a Memcached client from this config.
// Implements the config.ClientFactory[*memcache.Client] interface.
func (m MemcachedConfig) CreateClient() (*memcache.Client, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	client := memcache.New(m.Servers...)
	if m.Timeout > 0 {
		client.Timeout = m.Timeout
	} else {
		client.Timeout = 100 * time.Millisecond
	}

	if err := client.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to Memcached")
	}
	return client, nil
}

// CachedBackend wraps a Backend with a Memcached read-through cache on List.
// Only the listing shape is ever cached: it carries raw-looking values no
// further than the backend already exposes them, and Get always goes to the
// backend so raw secret reads are never served from cache.
type CachedBackend struct {
	Backend
	client *memcache.Client
	ttl    time.Duration
}

// NewCachedBackend wraps backend with a listing cache.
func NewCachedBackend(backend Backend, client *memcache.Client, cfg MemcachedConfig) *CachedBackend {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	return &CachedBackend{Backend: backend, client: client, ttl: ttl}
}

// List serves from cache when possible, falling back to the backend. Cache
// failures degrade to direct reads rather than surfacing errors.
func (c *CachedBackend) List(ctx context.Context, prefix string) ([]Entry, error) {
	cacheKey := listingKey(prefix)

	if item, err := c.client.Get(cacheKey); err == nil {
		var entries []Entry
		if err := json.Unmarshal(item.Value, &entries); err == nil {
			return entries, nil
		}
		log.Warn().Str("key", cacheKey).Msg("Discarding undecodable cached listing")
	}

	entries, err := c.Backend.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(entries); err == nil {
		setErr := c.client.Set(&memcache.Item{
			Key:        cacheKey,
			Value:      encoded,
			Expiration: int32(c.ttl.Seconds()),
		})
		if setErr != nil {
			log.Debug().Err(setErr).Str("key", cacheKey).Msg("Failed to cache listing")
		}
	}
	return entries, nil
}

// Set writes through and invalidates the affected listings. Deleting just
// the empty-prefix key and the path's namespace key covers every listing
// the service actually issues.
func (c *CachedBackend) Set(ctx context.Context, path, value string) error {
	if err := c.Backend.Set(ctx, path, value); err != nil {
		return err
	}
	for _, key := range []string{listingKey(""), listingKey(namespaceOf(path) + ".")} {
		if err := c.client.Delete(key); err != nil && err != memcache.ErrCacheMiss {
			log.Debug().Err(err).Str("key", key).Msg("Failed to invalidate cached listing")
		}
	}
	return nil
}

func listingKey(prefix string) string {
	return "envwire:candidates:" + prefix
}

func namespaceOf(path string) string {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i]
		}
	}
	return path
}
