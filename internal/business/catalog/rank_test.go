package catalog

import (
	"reflect"
	"testing"
	"time"

	"github.com/jbaylocal/marketplace-api/pkg/model"
)

func TestRankByPrice(t *testing.T) {
	listings := []model.Listing{
		{ID: "a", PriceRange: model.PriceQuote},
		{ID: "b", PriceRange: model.PriceFree},
		{ID: "c", PriceRange: model.PriceLuxury},
		{ID: "d", PriceRange: model.PriceBudget},
	}

	low := ids(Rank(listings, model.SortPriceLow))
	if want := []string{"b", "d", "c", "a"}; !reflect.DeepEqual(low, want) {
		t.Errorf("price-low = %v, want %v", low, want)
	}

	high := ids(Rank(listings, model.SortPriceHigh))
	if want := []string{"a", "c", "d", "b"}; !reflect.DeepEqual(high, want) {
		t.Errorf("price-high = %v, want %v", high, want)
	}
}

func TestRankPriceAbsentRanksAsQuote(t *testing.T) {
	listings := []model.Listing{
		{ID: "none"},
		{ID: "quote", PriceRange: model.PriceQuote},
		{ID: "premium", PriceRange: model.PricePremium},
	}

	got := ids(Rank(listings, model.SortPriceLow))
	if want := []string{"premium", "none", "quote"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("price-low = %v, want %v", got, want)
	}
}

func TestRankByDistanceAbsentLast(t *testing.T) {
	listings := []model.Listing{
		{ID: "unknown"},
		{ID: "far", Distance: ptr(12.5)},
		{ID: "near", Distance: ptr(0.4)},
		{ID: "unknown2"},
		{ID: "mid", Distance: ptr(3)},
	}

	got := ids(Rank(listings, model.SortDistance))
	if want := []string{"near", "mid", "far", "unknown", "unknown2"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("distance = %v, want %v", got, want)
	}
}

func TestRankNewestAndPopular(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	listings := []model.Listing{
		{ID: "old", CreatedAt: base},
		{ID: "new", CreatedAt: base.Add(48 * time.Hour)},
		{ID: "mid", CreatedAt: base.Add(24 * time.Hour)},
	}

	want := []string{"new", "mid", "old"}
	for _, key := range []model.SortKey{model.SortNewest, model.SortPopular} {
		if got := ids(Rank(listings, key)); !reflect.DeepEqual(got, want) {
			t.Errorf("%s = %v, want %v", key, got, want)
		}
	}
}

func TestRankIsStable(t *testing.T) {
	listings := []model.Listing{
		{ID: "1", PriceRange: model.PriceBudget},
		{ID: "2", PriceRange: model.PriceFree},
		{ID: "3", PriceRange: model.PriceBudget},
		{ID: "4", PriceRange: model.PriceFree},
		{ID: "5", PriceRange: model.PriceBudget},
	}

	got := ids(Rank(listings, model.SortPriceLow))
	if want := []string{"2", "4", "1", "3", "5"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("price-low = %v, want %v", got, want)
	}
}

func TestRankLowReversedMatchesHighForDistinctTiers(t *testing.T) {
	listings := []model.Listing{
		{ID: "m", PriceRange: model.PriceModerate},
		{ID: "f", PriceRange: model.PriceFree},
		{ID: "p", PriceRange: model.PricePremium},
		{ID: "q", PriceRange: model.PriceQuote},
	}

	low := ids(Rank(listings, model.SortPriceLow))
	high := ids(Rank(listings, model.SortPriceHigh))
	for i := range low {
		if low[i] != high[len(high)-1-i] {
			t.Fatalf("low %v is not the reverse of high %v", low, high)
		}
	}
}

func TestRankDoesNotModifyInput(t *testing.T) {
	listings := []model.Listing{
		{ID: "b", PriceRange: model.PriceLuxury},
		{ID: "a", PriceRange: model.PriceFree},
	}
	Rank(listings, model.SortPriceLow)
	if listings[0].ID != "b" {
		t.Fatalf("input reordered: %v", ids(listings))
	}
}

func TestRankUnknownKeyKeepsOrder(t *testing.T) {
	listings := []model.Listing{{ID: "z"}, {ID: "a"}}
	if got := ids(Rank(listings, model.SortKey("rating"))); !reflect.DeepEqual(got, []string{"z", "a"}) {
		t.Fatalf("ids = %v", got)
	}
}

func TestEffectiveSort(t *testing.T) {
	origin := &model.Coordinate{Lat: -34, Lng: 24.9}
	tests := []struct {
		sortBy model.SortKey
		origin *model.Coordinate
		want   model.SortKey
	}{
		{"", origin, model.SortDistance},
		{"", nil, model.SortNewest},
		{model.SortDistance, nil, model.SortNewest},
		{model.SortDistance, origin, model.SortDistance},
		{model.SortPriceHigh, nil, model.SortPriceHigh},
	}
	for _, tt := range tests {
		if got := EffectiveSort(tt.sortBy, tt.origin); got != tt.want {
			t.Errorf("EffectiveSort(%q, %v) = %q, want %q", tt.sortBy, tt.origin != nil, got, tt.want)
		}
	}
}
