// Package cache provides a Redis-backed L1 in front of the MongoDB
// search store.
//
// Key strategy:
//   - Search results: influencer:search:v1:{sha256(keyword|limit|scope)} → TTL 24 h
//
// Keys are built from the *normalized* keyword, so differently-cased
// queries map to the same entry.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/lucasfdcampos/influencer-api/internal/domain"
)

const (
	// SearchTTL matches the MongoDB retention window.
	SearchTTL = 24 * time.Hour

	searchPrefix = "influencer:search:v1:"
)

// Client wraps redis.Client with domain-aware helpers.
type Client struct {
	rdb *redis.Client
}

// New creates a new cache Client.
// addr example: "localhost:6379"
func New(addr, password string, db int) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Client{rdb: rdb}
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error { return c.rdb.Close() }

// SearchKey returns the cache key for a normalized search key.
func SearchKey(key domain.SearchKey) string {
	raw := key.Keyword + "|" + strconv.Itoa(key.Limit) + "|" + key.CallerScope
	h := sha256.Sum256([]byte(raw))
	return searchPrefix + fmt.Sprintf("%x", h)
}

// GetSearch returns a cached response or nil on miss.
func (c *Client) GetSearch(ctx context.Context, key string) (*domain.SearchResponse, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil // cache miss
	}
	if err != nil {
		return nil, err
	}
	var resp domain.SearchResponse
	if err := json.Unmarshal(val, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetSearch stores a response with SearchTTL.
func (c *Client) SetSearch(ctx context.Context, key string, resp *domain.SearchResponse) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, SearchTTL).Err()
}

// DeleteSearch removes a search cache entry.
func (c *Client) DeleteSearch(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}
