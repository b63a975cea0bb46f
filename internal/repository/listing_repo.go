package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/jbaylocal/marketplace-api/internal/business/catalog"
	"github.com/jbaylocal/marketplace-api/pkg/model"
	"google.golang.org/api/iterator"
	"google.golang.org/genproto/googleapis/type/latlng"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	listingsCollection = "services"
	authorsCollection  = "authors"
)

// ListingRepository reads service listings from Firestore. Documents are
// returned raw; the catalog normalizer owns their interpretation.
type ListingRepository struct {
	client *firestore.Client
}

func NewListingRepository(client *firestore.Client) *ListingRepository {
	return &ListingRepository{client: client}
}

// List returns active listings newest first. Category and featured filters
// run in Firestore; the free-text search runs over the fetched page.
func (r *ListingRepository) List(ctx context.Context, q catalog.ListQuery) ([]model.RawListing, error) {
	query := r.client.Collection(listingsCollection).Where("isActive", "==", true)
	if q.Category != "" {
		query = query.Where("category", "==", string(q.Category))
	}
	if q.FeaturedOnly {
		query = query.Where("featured", "==", true)
	}
	query = query.OrderBy("_createdAt", firestore.Desc)
	search := strings.ToLower(strings.TrimSpace(q.Search))
	if q.Limit > 0 && search == "" {
		query = query.Limit(q.Limit)
	}

	raws, err := r.collect(ctx, query.Documents(ctx))
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	if search == "" {
		return raws, nil
	}

	matched := make([]model.RawListing, 0, len(raws))
	for _, raw := range raws {
		if matchesSearch(raw, search) {
			matched = append(matched, raw)
		}
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

// Get returns one listing by document ID, active or not.
func (r *ListingRepository) Get(ctx context.Context, id string) (model.RawListing, error) {
	snap, err := r.client.Collection(listingsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("get listing %s: %w", id, err)
	}
	authors := make(map[string]map[string]any)
	return r.toRaw(ctx, snap, authors), nil
}

// ListByAuthor returns every listing referencing the author, newest first.
func (r *ListingRepository) ListByAuthor(ctx context.Context, authorID string) ([]model.RawListing, error) {
	ref := r.client.Collection(authorsCollection).Doc(authorID)
	query := r.client.Collection(listingsCollection).
		Where("author", "==", ref).
		OrderBy("_createdAt", firestore.Desc)
	raws, err := r.collect(ctx, query.Documents(ctx))
	if err != nil {
		return nil, fmt.Errorf("list listings by author %s: %w", authorID, err)
	}
	return raws, nil
}

// IncrementViews bumps the view counter atomically.
func (r *ListingRepository) IncrementViews(ctx context.Context, id string) error {
	_, err := r.client.Collection(listingsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "views", Value: firestore.Increment(1)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return catalog.ErrNotFound
		}
		return fmt.Errorf("increment views %s: %w", id, err)
	}
	return nil
}

// StoredListing is a listing document as stored, without derived fields.
type StoredListing struct {
	ID         string
	Data       model.RawListing
	CreateTime time.Time
}

// FetchAll loads every listing document regardless of state.
func (r *ListingRepository) FetchAll(ctx context.Context) ([]StoredListing, error) {
	iter := r.client.Collection(listingsCollection).Documents(ctx)
	defer iter.Stop()
	var out []StoredListing
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate listings: %w", err)
		}
		out = append(out, StoredListing{
			ID:         snap.Ref.ID,
			Data:       model.RawListing(snap.Data()),
			CreateTime: snap.CreateTime,
		})
	}
	return out, nil
}

// BatchPatch merges field updates into listing documents, keyed by document ID.
func (r *ListingRepository) BatchPatch(ctx context.Context, patches map[string]map[string]any) error {
	if len(patches) == 0 {
		return nil
	}
	const batchSize = 400

	ids := make([]string, 0, len(patches))
	for id := range patches {
		ids = append(ids, id)
	}
	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := r.client.Batch()
		for _, id := range ids[start:end] {
			ref := r.client.Collection(listingsCollection).Doc(id)
			batch.Set(ref, patches[id], firestore.MergeAll)
		}
		if _, err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("commit batch [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

func (r *ListingRepository) collect(ctx context.Context, iter *firestore.DocumentIterator) ([]model.RawListing, error) {
	defer iter.Stop()
	authors := make(map[string]map[string]any)
	var out []model.RawListing
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r.toRaw(ctx, snap, authors))
	}
	return out, nil
}

// toRaw copies the document data, adds its ID and creation time when the
// fields are missing, and inlines the author reference.
func (r *ListingRepository) toRaw(ctx context.Context, snap *firestore.DocumentSnapshot, authors map[string]map[string]any) model.RawListing {
	raw := model.RawListing(snap.Data())
	if raw == nil {
		raw = model.RawListing{}
	}
	if _, ok := raw["_id"]; !ok {
		raw["_id"] = snap.Ref.ID
	}
	if _, ok := raw["_createdAt"]; !ok && !snap.CreateTime.IsZero() {
		raw["_createdAt"] = snap.CreateTime
	}
	if ref, ok := raw["author"].(*firestore.DocumentRef); ok && ref != nil {
		raw["author"] = r.resolveAuthor(ctx, ref, authors)
	}
	flattenGeoPoints(raw)
	return raw
}

// flattenGeoPoints rewrites Firestore geopoints as {lat, lng} maps. The
// protobuf JSON tags omit zero halves, so geopoints cannot be cached as is.
func flattenGeoPoints(raw model.RawListing) {
	for k, v := range raw {
		if p, ok := v.(*latlng.LatLng); ok && p != nil {
			raw[k] = map[string]any{"lat": p.GetLatitude(), "lng": p.GetLongitude()}
		}
	}
}

func (r *ListingRepository) resolveAuthor(ctx context.Context, ref *firestore.DocumentRef, cache map[string]map[string]any) map[string]any {
	if a, ok := cache[ref.ID]; ok {
		return a
	}
	author := map[string]any{"_id": ref.ID}
	if snap, err := ref.Get(ctx); err == nil {
		for k, v := range snap.Data() {
			author[k] = v
		}
		author["_id"] = ref.ID
	}
	cache[ref.ID] = author
	return author
}

func matchesSearch(raw model.RawListing, search string) bool {
	fields := []any{raw["title"], raw["category"]}
	if a, ok := raw["author"].(map[string]any); ok {
		fields = append(fields, a["name"])
	}
	for _, f := range fields {
		if s, ok := f.(string); ok && strings.Contains(strings.ToLower(s), search) {
			return true
		}
	}
	return false
}
