package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jbaylocal/marketplace-api/internal/business/catalog"
	"github.com/jbaylocal/marketplace-api/pkg/model"
	"github.com/jbaylocal/marketplace-api/pkg/util"
	"github.com/redis/go-redis/v9"
)

const listingKeyPrefix = "listings:"

// ListingCache is a read-through cache in front of a catalog.Source.
// Redis failures are logged and the request falls through to the source.
type ListingCache struct {
	source catalog.Source
	client *redis.Client
	ttl    time.Duration
	logFn  func(string)
}

func NewListingCache(source catalog.Source, client *redis.Client, ttl time.Duration, logFn func(string)) *ListingCache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if logFn == nil {
		logFn = func(string) {}
	}
	return &ListingCache{source: source, client: client, ttl: ttl, logFn: logFn}
}

func (c *ListingCache) List(ctx context.Context, q catalog.ListQuery) ([]model.RawListing, error) {
	key := ListKey(q)
	var cached []model.RawListing
	if c.get(ctx, key, &cached) {
		return cached, nil
	}
	raws, err := c.source.List(ctx, q)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, raws)
	return raws, nil
}

func (c *ListingCache) Get(ctx context.Context, id string) (model.RawListing, error) {
	key := listingKeyPrefix + "id:" + id
	var cached model.RawListing
	if c.get(ctx, key, &cached) {
		return cached, nil
	}
	raw, err := c.source.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, raw)
	return raw, nil
}

func (c *ListingCache) ListByAuthor(ctx context.Context, authorID string) ([]model.RawListing, error) {
	key := listingKeyPrefix + "author:" + authorID
	var cached []model.RawListing
	if c.get(ctx, key, &cached) {
		return cached, nil
	}
	raws, err := c.source.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, raws)
	return raws, nil
}

// Invalidate drops every cached listing entry.
func (c *ListingCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, listingKeyPrefix+"*", 200).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan listing keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete listing keys: %w", err)
	}
	return nil
}

// ListKey is the cache key of a list query.
func ListKey(q catalog.ListQuery) string {
	return listingKeyPrefix + "q:" + util.HashQuery(
		q.Search,
		string(q.Category),
		strconv.FormatBool(q.FeaturedOnly),
		strconv.Itoa(q.Limit),
	)
}

func (c *ListingCache) get(ctx context.Context, key string, dst any) bool {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		c.logFn(fmt.Sprintf("cache get %s: %v", key, err))
		return false
	}
	if err := json.Unmarshal(val, dst); err != nil {
		c.logFn(fmt.Sprintf("cache decode %s: %v", key, err))
		return false
	}
	return true
}

func (c *ListingCache) set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logFn(fmt.Sprintf("cache encode %s: %v", key, err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logFn(fmt.Sprintf("cache set %s: %v", key, err))
	}
}
