package catalog

import (
	"math"
	"sort"

	"github.com/jbaylocal/marketplace-api/pkg/model"
)

// Rank returns a stably sorted copy of listings ordered by sortBy.
//
// Missing values never fail the sort: an absent distance sorts last, an absent
// price range ranks as "quote". "popular" has no popularity metric yet and orders
// like "newest". An unknown key keeps input order.
func Rank(listings []model.Listing, sortBy model.SortKey) []model.Listing {
	out := make([]model.Listing, len(listings))
	copy(out, listings)

	var less func(a, b model.Listing) bool
	switch sortBy {
	case model.SortDistance:
		less = func(a, b model.Listing) bool { return distanceOf(a) < distanceOf(b) }
	case model.SortNewest, model.SortPopular:
		less = func(a, b model.Listing) bool { return a.CreatedAt.After(b.CreatedAt) }
	case model.SortPriceLow:
		less = func(a, b model.Listing) bool { return a.PriceRange.Rank() < b.PriceRange.Rank() }
	case model.SortPriceHigh:
		less = func(a, b model.Listing) bool { return a.PriceRange.Rank() > b.PriceRange.Rank() }
	default:
		return out
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func distanceOf(l model.Listing) float64 {
	if l.Distance == nil {
		return math.Inf(1)
	}
	return *l.Distance
}

// EffectiveSort falls back to newest when distance ordering is requested without an origin.
func EffectiveSort(sortBy model.SortKey, origin *model.Coordinate) model.SortKey {
	if sortBy == "" {
		sortBy = model.SortDistance
	}
	if sortBy == model.SortDistance && origin == nil {
		return model.SortNewest
	}
	return sortBy
}
