package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jbaylocal/marketplace-api/pkg/model"
)

const (
	defaultFeaturedLimit = 6
	viewCountTimeout     = 5 * time.Second
)

// Service runs the browse pipeline: fetch, normalize, filter, rank.
type Service struct {
	source Source
	views  ViewCounter
	stats  StatsStore
	logFn  func(string)
}

func NewService(source Source, views ViewCounter, stats StatsStore, logFn func(string)) *Service {
	if logFn == nil {
		logFn = func(string) {}
	}
	return &Service{
		source: source,
		views:  views,
		stats:  stats,
		logFn:  logFn,
	}
}

// BrowseRequest is one filter pass over the catalog.
type BrowseRequest struct {
	Search   string
	Category model.Category
	Filters  model.FilterConfig
	Origin   *model.Coordinate
}

// BrowseResult is the ranked view plus the size of the unfiltered set.
type BrowseResult struct {
	Items  []model.Listing `json:"items"`
	Total  int             `json:"total"`
	SortBy model.SortKey   `json:"sortBy"`
}

// Browse fetches listings matching the server-side query and applies filters and ranking.
// A store failure returns an empty result together with an error wrapping ErrDataFetch.
func (s *Service) Browse(ctx context.Context, req BrowseRequest) (BrowseResult, error) {
	sortBy := EffectiveSort(req.Filters.SortBy, req.Origin)
	result := BrowseResult{Items: []model.Listing{}, SortBy: sortBy}

	raws, err := s.source.List(ctx, ListQuery{Search: req.Search, Category: req.Category})
	if err != nil {
		s.logFn(fmt.Sprintf("browse: list listings: %v", err))
		return result, fmt.Errorf("%w: %v", ErrDataFetch, err)
	}

	listings := NormalizeAll(raws)
	result.Total = len(listings)
	result.Items = Rank(Filter(listings, req.Filters, req.Origin), sortBy)
	return result, nil
}

// MapListings is Browse restricted to listings that can be placed on a map.
func (s *Service) MapListings(ctx context.Context, req BrowseRequest) (BrowseResult, error) {
	result, err := s.Browse(ctx, req)
	if err != nil {
		return result, err
	}
	located := make([]model.Listing, 0, len(result.Items))
	for _, l := range result.Items {
		if l.Location != nil {
			located = append(located, l)
		}
	}
	result.Items = located
	return result, nil
}

// Featured returns up to limit featured listings, newest first.
func (s *Service) Featured(ctx context.Context, limit int, origin *model.Coordinate) ([]model.Listing, error) {
	if limit <= 0 {
		limit = defaultFeaturedLimit
	}
	raws, err := s.source.List(ctx, ListQuery{FeaturedOnly: true, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataFetch, err)
	}
	cfg := model.FilterConfig{FeaturedOnly: true}
	listings := Rank(Filter(NormalizeAll(raws), cfg, origin), model.SortNewest)
	if len(listings) > limit {
		listings = listings[:limit]
	}
	return listings, nil
}

// Get loads a single listing, annotated with its distance from origin when known.
func (s *Service) Get(ctx context.Context, id string, origin *model.Coordinate) (model.Listing, error) {
	raw, err := s.source.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Listing{}, err
		}
		return model.Listing{}, fmt.Errorf("%w: %v", ErrDataFetch, err)
	}
	l := Normalize(raw)
	if l.ID == "" {
		l.ID = id
	}
	return annotateDistance(l, origin), nil
}

// ByAuthor lists every listing of one provider, including inactive ones, newest first.
func (s *Service) ByAuthor(ctx context.Context, authorID string, origin *model.Coordinate) ([]model.Listing, error) {
	raws, err := s.source.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataFetch, err)
	}
	listings := NormalizeAll(raws)
	for i := range listings {
		listings[i] = annotateDistance(listings[i], origin)
	}
	return Rank(listings, model.SortNewest), nil
}

// Resolve loads listings for saved identifiers, keeping the given order and
// skipping identifiers that no longer exist.
func (s *Service) Resolve(ctx context.Context, ids []string, origin *model.Coordinate) ([]model.Listing, error) {
	out := make([]model.Listing, 0, len(ids))
	for _, id := range ids {
		l, err := s.Get(ctx, id, origin)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// RecordView increments the view counter in the background. Failures are logged only.
func (s *Service) RecordView(id string) {
	if s.views == nil || id == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), viewCountTimeout)
		defer cancel()
		if err := s.views.IncrementViews(ctx, id); err != nil {
			s.logFn(fmt.Sprintf("increment views for %s: %v", id, err))
		}
	}()
}

// RefreshStats recomputes the dashboard snapshot over all active listings and
// saves it. The snapshot is shared by every viewer, so it carries no distances.
func (s *Service) RefreshStats(ctx context.Context) (model.CatalogStats, error) {
	raws, err := s.source.List(ctx, ListQuery{})
	if err != nil {
		return model.CatalogStats{}, fmt.Errorf("%w: %v", ErrDataFetch, err)
	}
	stats := AggregateStats(NormalizeAll(raws))
	stats.LastUpdated = time.Now().UTC()
	if s.stats != nil {
		if err := s.stats.SaveCatalogStats(ctx, stats); err != nil {
			return stats, fmt.Errorf("save catalog stats: %w", err)
		}
	}
	return stats, nil
}

// Stats returns the last saved dashboard snapshot. With an origin, the
// average listing distance is computed for that viewer; a failed listing
// fetch only leaves it unset.
func (s *Service) Stats(ctx context.Context, origin *model.Coordinate) (model.CatalogStats, error) {
	if s.stats == nil {
		return model.CatalogStats{}, errors.New("stats store not configured")
	}
	stats, err := s.stats.GetCatalogStats(ctx)
	if err != nil {
		return model.CatalogStats{}, err
	}
	stats.AverageDistanceKm = 0
	if origin == nil {
		return stats, nil
	}
	raws, err := s.source.List(ctx, ListQuery{})
	if err != nil {
		s.logFn(fmt.Sprintf("stats: list listings: %v", err))
		return stats, nil
	}
	stats.AverageDistanceKm = AverageDistanceKm(Filter(NormalizeAll(raws), model.FilterConfig{}, origin))
	return stats, nil
}
