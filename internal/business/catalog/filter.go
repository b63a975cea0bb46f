package catalog

import (
	"github.com/jbaylocal/marketplace-api/pkg/geo"
	"github.com/jbaylocal/marketplace-api/pkg/model"
)

// Filter applies cfg to listings and returns the matching listings as a new slice.
// When origin is set every listing is annotated with its distance first, whether or
// not a distance limit is active. Inputs are not modified.
func Filter(listings []model.Listing, cfg model.FilterConfig, origin *model.Coordinate) []model.Listing {
	categories := toSet(cfg.Categories)
	prices := toSet(cfg.PriceRanges)
	days := toSet(cfg.Availability)

	out := make([]model.Listing, 0, len(listings))
	for _, l := range listings {
		l = annotateDistance(l, origin)
		if !matches(l, cfg, origin, categories, prices, days) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// annotateDistance returns a copy of l with Distance set relative to origin.
func annotateDistance(l model.Listing, origin *model.Coordinate) model.Listing {
	if origin == nil {
		return l
	}
	l.Distance = nil
	if l.Location != nil {
		d := geo.DistanceKm(*origin, *l.Location)
		l.Distance = &d
	}
	return l
}

func matches(
	l model.Listing,
	cfg model.FilterConfig,
	origin *model.Coordinate,
	categories map[model.Category]struct{},
	prices map[model.PriceRange]struct{},
	days map[model.Weekday]struct{},
) bool {
	if len(categories) > 0 {
		if _, ok := categories[l.Category]; !ok || l.Category == "" {
			return false
		}
	}

	if len(prices) > 0 {
		if _, ok := prices[l.PriceRange]; !ok || l.PriceRange == "" {
			return false
		}
	}

	if origin != nil && cfg.MaxDistanceKm != nil {
		if l.Distance == nil || *l.Distance > *cfg.MaxDistanceKm {
			return false
		}
	}

	if len(days) > 0 && !intersects(l.Availability, days) {
		return false
	}

	if cfg.FeaturedOnly && !l.Featured {
		return false
	}

	if cfg.HasContactInfo && !l.HasContactInfo() {
		return false
	}

	return true
}

func intersects(available []model.Weekday, requested map[model.Weekday]struct{}) bool {
	for _, d := range available {
		if _, ok := requested[d]; ok {
			return true
		}
	}
	return false
}

func toSet[T comparable](items []T) map[T]struct{} {
	set := make(map[T]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}
