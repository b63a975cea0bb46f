package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jbaylocal/marketplace-api/internal/business/catalog"
	"github.com/jbaylocal/marketplace-api/pkg/model"
	"github.com/redis/go-redis/v9"
)

type countingSource struct {
	lists int
	gets  int
	err   error
}

func (s *countingSource) List(ctx context.Context, q catalog.ListQuery) ([]model.RawListing, error) {
	s.lists++
	if s.err != nil {
		return nil, s.err
	}
	return []model.RawListing{{"_id": "a", "title": "Surf"}}, nil
}

func (s *countingSource) Get(ctx context.Context, id string) (model.RawListing, error) {
	s.gets++
	if s.err != nil {
		return nil, s.err
	}
	return model.RawListing{"_id": id}, nil
}

func (s *countingSource) ListByAuthor(ctx context.Context, authorID string) ([]model.RawListing, error) {
	return nil, s.err
}

// unreachableClient points at a closed port so every command fails fast.
func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestListingCacheFallsThroughWhenRedisDown(t *testing.T) {
	src := &countingSource{}
	var logged []string
	c := NewListingCache(src, unreachableClient(), time.Minute, func(s string) { logged = append(logged, s) })

	raws, err := c.List(context.Background(), catalog.ListQuery{Search: "surf"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(raws) != 1 || src.lists != 1 {
		t.Fatalf("raws = %v, source calls = %d", raws, src.lists)
	}
	if len(logged) == 0 {
		t.Fatal("redis failure not logged")
	}

	raw, err := c.Get(context.Background(), "a")
	if err != nil || raw["_id"] != "a" {
		t.Fatalf("Get = %v, %v", raw, err)
	}
}

func TestListingCachePropagatesSourceErrors(t *testing.T) {
	src := &countingSource{err: catalog.ErrNotFound}
	c := NewListingCache(src, unreachableClient(), time.Minute, nil)

	if _, err := c.Get(context.Background(), "missing"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListKey(t *testing.T) {
	a := ListKey(catalog.ListQuery{Search: "Surf ", Category: model.CategorySurfing})
	b := ListKey(catalog.ListQuery{Search: "surf", Category: model.CategorySurfing})
	if a != b {
		t.Fatalf("keys differ for equivalent queries: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, listingKeyPrefix) {
		t.Fatalf("key %q missing prefix", a)
	}
	if a == ListKey(catalog.ListQuery{Search: "surf", Category: model.CategorySurfing, FeaturedOnly: true}) {
		t.Fatal("featured flag not part of the key")
	}
}
