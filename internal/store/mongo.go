// Package store provides MongoDB persistence for cached search results.
//
// Collection (database "influencer_api"):
//   - searches – one document per normalized cache key (TTL: 24 h)
//
// Expiry is enforced twice: a TTL index on expires_at evicts documents
// in the background, and every read filters on expires_at so an entry
// past its retention window behaves as a miss even before the sweep
// runs.
package store

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lucasfdcampos/influencer-api/internal/domain"
)

const (
	dbName           = "influencer_api"
	searchCollection = "searches"

	// SearchTTL is the retention window for cached result sets.
	SearchTTL = 24 * time.Hour
)

// Client wraps a MongoDB client.
type Client struct {
	mc  *mongo.Client
	mdb *mongo.Database
}

// New connects to MongoDB and returns a store Client.
func New(ctx context.Context, uri string) (*Client, error) {
	clientOpts := options.Client().ApplyURI(uri)
	mc, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("store: mongo connect: %w", err)
	}
	if err := mc.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("store: mongo ping: %w", err)
	}

	c := &Client{mc: mc, mdb: mc.Database(dbName)}
	if err := c.ensureIndices(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Disconnect cleanly closes the MongoDB connection.
func (c *Client) Disconnect(ctx context.Context) error {
	return c.mc.Disconnect(ctx)
}

// ensureIndices creates TTL and lookup indices if missing.
func (c *Client) ensureIndices(ctx context.Context) error {
	sc := c.mdb.Collection(searchCollection)
	if _, err := sc.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{
				{Key: "keyword", Value: 1},
				{Key: "limit", Value: 1},
				{Key: "caller_scope", Value: 1},
			},
		},
	}); err != nil {
		return fmt.Errorf("store: search indices: %w", err)
	}
	return nil
}

// keyFilter builds the exact-match filter for a normalized key.
func keyFilter(key domain.SearchKey) bson.M {
	filter := bson.M{
		"keyword": key.Keyword,
		"limit":   key.Limit,
	}
	if key.CallerScope != "" {
		filter["caller_scope"] = key.CallerScope
	}
	return filter
}

// freshFilter narrows filter to entries whose expires_at is still in
// the future. Every lookup tier goes through it, so an entry past its
// retention window reads as a miss even before the TTL sweep runs.
func freshFilter(filter bson.M, now time.Time) bson.M {
	filter["expires_at"] = bson.M{"$gt": now}
	return filter
}

// findOne runs a single lookup with the read-time expiry guard,
// newest entry first. Returns nil, nil when nothing matches.
func (c *Client) findOne(ctx context.Context, filter bson.M) (*domain.StoredSearch, error) {
	filter = freshFilter(filter, time.Now().UTC())
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var s domain.StoredSearch
	err := c.mdb.Collection(searchCollection).FindOne(ctx, filter, opts).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: find search: %w", err)
	}
	return &s, nil
}

// FindSearch looks up the entry matching the exact normalized key.
func (c *Client) FindSearch(ctx context.Context, key domain.SearchKey) (*domain.StoredSearch, error) {
	return c.findOne(ctx, keyFilter(key))
}

// FindSearchFallback looks up an entry whose stored keyword equals
// rawKeyword case-insensitively, under the same limit. The caller
// scope is deliberately ignored in this tier.
func (c *Client) FindSearchFallback(ctx context.Context, rawKeyword string, limit int) (*domain.StoredSearch, error) {
	return c.findOne(ctx, bson.M{
		"keyword": keywordRegex(rawKeyword),
		"limit":   limit,
	})
}

// FindSearchAnyStale is the broadest fallback tier: case-insensitive
// keyword match ignoring limit and scope entirely. Used only when a
// fresh upstream fetch has failed and no scoped fallback exists.
func (c *Client) FindSearchAnyStale(ctx context.Context, rawKeyword string) (*domain.StoredSearch, error) {
	return c.findOne(ctx, bson.M{"keyword": keywordRegex(rawKeyword)})
}

func keywordRegex(rawKeyword string) bson.M {
	return bson.M{
		"$regex":   "^" + regexp.QuoteMeta(rawKeyword) + "$",
		"$options": "i",
	}
}

// UpsertSearch writes s under its normalized key, replacing any
// existing entry so subsequent exact lookups hit the fresh results.
func (c *Client) UpsertSearch(ctx context.Context, s *domain.StoredSearch) error {
	s.CreatedAt = time.Now().UTC()
	s.ExpiresAt = s.CreatedAt.Add(SearchTTL)

	key := domain.SearchKey{Keyword: s.Keyword, Limit: s.Limit, CallerScope: s.CallerScope}
	opts := options.Replace().SetUpsert(true)
	_, err := c.mdb.Collection(searchCollection).ReplaceOne(ctx, keyFilter(key), s, opts)
	if err != nil {
		return fmt.Errorf("store: upsert search: %w", err)
	}
	return nil
}
