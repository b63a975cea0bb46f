package cache

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jbaylocal/marketplace-api/internal/business/catalog"
	"github.com/jbaylocal/marketplace-api/pkg/model"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr(), 0)
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return mr, client
}

type fixtureSource struct {
	listings []model.RawListing
	lists    int
	gets     int
	byAuthor int
}

func (s *fixtureSource) List(ctx context.Context, q catalog.ListQuery) ([]model.RawListing, error) {
	s.lists++
	return s.listings, nil
}

func (s *fixtureSource) Get(ctx context.Context, id string) (model.RawListing, error) {
	s.gets++
	for _, raw := range s.listings {
		if raw["_id"] == id {
			return raw, nil
		}
	}
	return nil, catalog.ErrNotFound
}

func (s *fixtureSource) ListByAuthor(ctx context.Context, authorID string) ([]model.RawListing, error) {
	s.byAuthor++
	return s.listings, nil
}

// storedListings mirrors what ListingRepository returns: native times and
// numbers, geopoints already flattened to maps.
func storedListings() []model.RawListing {
	created := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)
	return []model.RawListing{
		{
			"_id": "surf", "title": "Surf <b>lessons</b>", "category": "surfing", "priceRange": "budget",
			"location":       map[string]any{"lat": -34.05, "lng": 24.91},
			"availability":   []string{"saturday", "sunday"},
			"serviceRadius":  int64(5),
			"views":          int64(42),
			"featured":       true,
			"isActive":       true,
			"contactDetails": "082 555 0101",
			"_createdAt":     created,
			"author":         map[string]any{"_id": "kai", "name": "Kai"},
		},
		{
			"_id": "meridian", "title": "Zero longitude test",
			"location":   map[string]any{"lat": -34.0, "lng": 0.0},
			"_createdAt": created.Add(time.Hour),
		},
	}
}

func TestListingCacheHitNormalizesLikeSource(t *testing.T) {
	_, client := newTestRedis(t)
	src := &fixtureSource{listings: storedListings()}
	c := NewListingCache(src, client, time.Minute, func(s string) { t.Errorf("unexpected log: %s", s) })
	ctx := context.Background()
	q := catalog.ListQuery{Category: model.CategorySurfing}

	direct := catalog.NormalizeAll(src.listings)

	if _, err := c.List(ctx, q); err != nil {
		t.Fatalf("List (miss): %v", err)
	}
	cached, err := c.List(ctx, q)
	if err != nil {
		t.Fatalf("List (hit): %v", err)
	}
	if src.lists != 1 {
		t.Fatalf("source lists = %d, want 1", src.lists)
	}

	got := catalog.NormalizeAll(cached)
	if len(got) != len(direct) {
		t.Fatalf("cached listings = %d, want %d", len(got), len(direct))
	}
	for i := range direct {
		if !got[i].CreatedAt.Equal(direct[i].CreatedAt) {
			t.Errorf("%s createdAt = %v, want %v", direct[i].ID, got[i].CreatedAt, direct[i].CreatedAt)
		}
		got[i].CreatedAt = direct[i].CreatedAt
		if !reflect.DeepEqual(got[i], direct[i]) {
			t.Errorf("cached %s = %+v\nwant %+v", direct[i].ID, got[i], direct[i])
		}
	}
	if loc := got[1].Location; loc == nil || loc.Lng != 0 {
		t.Errorf("zero longitude lost: %+v", loc)
	}
}

func TestListingCacheGetAndInvalidate(t *testing.T) {
	mr, client := newTestRedis(t)
	src := &fixtureSource{listings: storedListings()}
	c := NewListingCache(src, client, time.Minute, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		raw, err := c.Get(ctx, "surf")
		if err != nil || raw["_id"] != "surf" {
			t.Fatalf("Get = %v, %v", raw, err)
		}
		if _, err := c.ListByAuthor(ctx, "kai"); err != nil {
			t.Fatalf("ListByAuthor: %v", err)
		}
	}
	if src.gets != 1 || src.byAuthor != 1 {
		t.Fatalf("source gets = %d, byAuthor = %d, want 1 each", src.gets, src.byAuthor)
	}
	if ttl := mr.TTL(listingKeyPrefix + "id:surf"); ttl != time.Minute {
		t.Errorf("ttl = %v, want 1m", ttl)
	}

	if _, err := c.Get(ctx, "missing"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if mr.Exists(listingKeyPrefix + "id:missing") {
		t.Error("not-found result was cached")
	}

	mr.Set("other:key", "kept")
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	for _, key := range mr.Keys() {
		if key != "other:key" {
			t.Errorf("key %s survived invalidation", key)
		}
	}
	if _, err := c.Get(ctx, "surf"); err != nil {
		t.Fatalf("Get after invalidate: %v", err)
	}
	if src.gets != 3 {
		t.Errorf("source gets = %d, want 3", src.gets)
	}
}

func TestSessionStoreSlots(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	empty, err := store.LoadState(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if empty.Location != nil || len(empty.SavedListings) != 0 {
		t.Fatalf("unknown session = %+v", empty)
	}

	loc := model.Coordinate{Lat: -34.0489, Lng: 24.9087}
	if err := store.SaveLocation(ctx, "s1", loc); err != nil {
		t.Fatalf("SaveLocation: %v", err)
	}
	if err := store.SaveSavedListings(ctx, "s1", []string{"surf", "braai"}); err != nil {
		t.Fatalf("SaveSavedListings: %v", err)
	}

	state, err := store.LoadState(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if state.Location == nil || *state.Location != loc {
		t.Errorf("location = %+v, want %+v", state.Location, loc)
	}
	if !reflect.DeepEqual(state.SavedListings, []string{"surf", "braai"}) {
		t.Errorf("saved = %v", state.SavedListings)
	}
	if state.UpdatedAt.IsZero() {
		t.Error("updatedAt not recorded")
	}
	if ttl := mr.TTL(sessionKeyPrefix + "s1"); ttl != time.Hour {
		t.Errorf("ttl = %v, want 1h", ttl)
	}

	if err := store.ClearLocation(ctx, "s1"); err != nil {
		t.Fatalf("ClearLocation: %v", err)
	}
	if err := store.SaveSavedListings(ctx, "s1", nil); err != nil {
		t.Fatalf("SaveSavedListings(nil): %v", err)
	}
	state, err = store.LoadState(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if state.Location != nil {
		t.Errorf("location not cleared: %+v", state.Location)
	}
	if state.SavedListings == nil || len(state.SavedListings) != 0 {
		t.Errorf("saved = %#v, want empty", state.SavedListings)
	}

	other, err := store.LoadState(ctx, "s2")
	if err != nil || other.Location != nil {
		t.Errorf("sessions share state: %+v, %v", other, err)
	}
}

func TestSessionStoreCorruptSlot(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewSessionStore(client, 0)
	mr.HSet(sessionKeyPrefix+"s1", fieldLocation, "{not json")

	if _, err := store.LoadState(context.Background(), "s1"); err == nil {
		t.Fatal("expected decode error")
	}
}
