package catalog

import (
	"context"
	"errors"

	"github.com/jbaylocal/marketplace-api/pkg/model"
)

var (
	// ErrNotFound signals that no listing exists for the requested identifier.
	ErrNotFound = errors.New("listing not found")
	// ErrDataFetch wraps failures of the content store.
	ErrDataFetch = errors.New("listing data source unavailable")
	// ErrNoStats signals that no dashboard snapshot has been saved yet.
	ErrNoStats = errors.New("catalog stats not computed yet")
)

// ListQuery narrows a listing query at the content store.
type ListQuery struct {
	Search       string
	Category     model.Category
	FeaturedOnly bool
	Limit        int
}

// Source abstracts the content store so the catalog can be tested without Firestore.
// List queries return active listings only, newest first.
type Source interface {
	List(ctx context.Context, q ListQuery) ([]model.RawListing, error)
	Get(ctx context.Context, id string) (model.RawListing, error)
	ListByAuthor(ctx context.Context, authorID string) ([]model.RawListing, error)
}

// ViewCounter increments the public view count of a listing.
type ViewCounter interface {
	IncrementViews(ctx context.Context, id string) error
}

// StatsStore persists the dashboard snapshot.
type StatsStore interface {
	SaveCatalogStats(ctx context.Context, stats model.CatalogStats) error
	GetCatalogStats(ctx context.Context) (model.CatalogStats, error)
}
