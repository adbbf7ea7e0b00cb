// Package cache stores extraction results in Redis so that re-submitting
// the same file does not call the extraction service again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/rueidis"
)

// ErrMiss is returned when no cached result exists for a key.
var ErrMiss = errors.New("cache miss")

// DefaultTTL applies when Config.TTL is zero.
const DefaultTTL = time.Hour

// Config holds connection parameters for the result cache.
type Config struct {
	URL       string
	KeyPrefix string
	TTL       time.Duration
}

// Cache is a TTL-bounded byte cache backed by rueidis.
type Cache struct {
	client rueidis.Client
	prefix string
	ttl    time.Duration
}

// New connects to the Redis instance named by cfg.URL.
func New(cfg Config) (*Cache, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis url is required")
	}
	opt, err := rueidis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DisableCache = true

	client, err := rueidis.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return NewWithClient(client, cfg.KeyPrefix, cfg.TTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client rueidis.Client, prefix string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, prefix: prefix, ttl: ttl}
}

// Key derives a stable cache key from the document bytes and everything
// else that changes the extraction outcome.
func Key(content []byte, processor string, pages []int) string {
	h := sha256.New()
	h.Write(content)
	h.Write([]byte{0})
	h.Write([]byte(processor))
	for _, p := range pages {
		h.Write([]byte{0})
		h.Write([]byte(strconv.Itoa(p)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached value for key or ErrMiss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := c.client.B().Get().Key(c.prefix + key).Build()
	data, err := c.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}
	return data, nil
}

// Set stores value under key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	cmd := c.client.B().Set().Key(c.prefix + key).Value(rueidis.BinaryString(value)).Ex(c.ttl).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Do(ctx, c.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (c *Cache) Close() {
	c.client.Close()
}
