package catalog

import (
	"sort"

	"github.com/jbaylocal/marketplace-api/pkg/model"
)

const statsTopN = 5

// AggregateStats reduces listings into dashboard metrics. Distances are only
// averaged for listings that already carry a Distance annotation.
func AggregateStats(listings []model.Listing) model.CatalogStats {
	var totalViews int64
	var withLocation int
	byCategory := make(map[model.Category]int)

	for _, l := range listings {
		totalViews += l.Views
		if l.Category != "" {
			byCategory[l.Category]++
		}
		if l.Location != nil {
			withLocation++
		}
	}

	return model.CatalogStats{
		TotalListings:        len(listings),
		TotalViews:           totalViews,
		PopularCategories:    popularCategories(byCategory),
		MostViewed:           mostViewed(listings),
		ListingsWithLocation: withLocation,
		AverageDistanceKm:    AverageDistanceKm(listings),
	}
}

// AverageDistanceKm averages the Distance annotations present on listings.
// It is 0 when none carry one.
func AverageDistanceKm(listings []model.Listing) float64 {
	var sum float64
	var n int
	for _, l := range listings {
		if l.Location != nil && l.Distance != nil {
			sum += *l.Distance
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func popularCategories(byCategory map[model.Category]int) []model.CategoryCount {
	counts := make([]model.CategoryCount, 0, len(byCategory))
	// Iterate in declaration order so ties are deterministic.
	for _, c := range model.Categories {
		if n := byCategory[c]; n > 0 {
			counts = append(counts, model.CategoryCount{Category: c, Count: n})
		}
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	if len(counts) > statsTopN {
		counts = counts[:statsTopN]
	}
	return counts
}

func mostViewed(listings []model.Listing) []model.ViewedListing {
	sorted := make([]model.Listing, len(listings))
	copy(sorted, listings)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Views > sorted[j].Views })
	if len(sorted) > statsTopN {
		sorted = sorted[:statsTopN]
	}
	out := make([]model.ViewedListing, 0, len(sorted))
	for _, l := range sorted {
		title := l.Title
		if title == "" {
			title = "Untitled Service"
		}
		out = append(out, model.ViewedListing{
			ID:        l.ID,
			Title:     title,
			Views:     l.Views,
			CreatedAt: l.CreatedAt,
		})
	}
	return out
}
