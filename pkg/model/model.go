package model

import (
	"strings"
	"time"
)

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat" firestore:"lat"`
	Lng float64 `json:"lng" firestore:"lng"`
}

// Author is the provider that listed a service.
type Author struct {
	ID       string `json:"id,omitempty" firestore:"_id,omitempty"`
	Name     string `json:"name,omitempty" firestore:"name,omitempty"`
	Username string `json:"username,omitempty" firestore:"username,omitempty"`
	Image    string `json:"image,omitempty" firestore:"image,omitempty"`
	Bio      string `json:"bio,omitempty" firestore:"bio,omitempty"`
}

// RawListing is a listing document exactly as the content store returns it.
// Only the catalog normalizer reads its fields.
type RawListing map[string]any

// Listing is the canonical, normalized service listing.
type Listing struct {
	ID              string        `json:"id"`
	Title           string        `json:"title,omitempty"`
	Slug            string        `json:"slug,omitempty"`
	Description     string        `json:"description,omitempty"`
	Pitch           string        `json:"pitch,omitempty"`
	Image           string        `json:"image,omitempty"`
	Author          *Author       `json:"author,omitempty"`
	Category        Category      `json:"category,omitempty"`
	PriceRange      PriceRange    `json:"priceRange,omitempty"`
	Location        *Coordinate   `json:"location,omitempty"`
	ServiceRadiusKm *float64      `json:"serviceRadius,omitempty"`
	Availability    []Weekday     `json:"availability,omitempty"`
	ContactMethod   ContactMethod `json:"contactMethod,omitempty"`
	ContactDetails  string        `json:"contactDetails,omitempty"`
	Featured        bool          `json:"featured"`
	IsActive        bool          `json:"isActive"`
	CreatedAt       time.Time     `json:"createdAt"`
	Views           int64         `json:"views"`
	// Distance is derived per request from the caller's origin and never stored.
	Distance *float64 `json:"distance,omitempty"`
}

// HasContactInfo reports whether the listing carries non-blank contact details.
func (l Listing) HasContactInfo() bool {
	return strings.TrimSpace(l.ContactDetails) != ""
}

// FilterConfig is the user-selected set of constraints for one filter pass.
// Empty slices mean "no restriction".
type FilterConfig struct {
	Categories     []Category   `json:"categories,omitempty"`
	PriceRanges    []PriceRange `json:"priceRanges,omitempty"`
	MaxDistanceKm  *float64     `json:"maxDistance,omitempty"`
	Availability   []Weekday    `json:"availability,omitempty"`
	HasContactInfo bool         `json:"hasContactInfo"`
	FeaturedOnly   bool         `json:"featured"`
	SortBy         SortKey      `json:"sortBy"`
}

// DefaultMaxDistanceKm is the radius applied by DefaultFilterConfig.
const DefaultMaxDistanceKm = 5.0

// DefaultFilterConfig returns the near-me defaults: within 5 km, nearest first.
func DefaultFilterConfig() FilterConfig {
	d := DefaultMaxDistanceKm
	return FilterConfig{
		MaxDistanceKm: &d,
		SortBy:        SortDistance,
	}
}

// SessionState mirrors the two persisted client-state slots of a browsing session.
type SessionState struct {
	Location      *Coordinate `json:"location,omitempty" firestore:"location,omitempty"`
	SavedListings []string    `json:"savedListings" firestore:"savedListings"`
	UpdatedAt     time.Time   `json:"updatedAt,omitempty" firestore:"updatedAt,omitempty"`
}

// CategoryCount is one row of the category breakdown in CatalogStats.
type CategoryCount struct {
	Category Category `json:"category" firestore:"category"`
	Count    int      `json:"count" firestore:"count"`
}

// ViewedListing is one row of the most-viewed table in CatalogStats.
type ViewedListing struct {
	ID        string    `json:"id" firestore:"id"`
	Title     string    `json:"title" firestore:"title"`
	Views     int64     `json:"views" firestore:"views"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

// CatalogStats is a singleton document that pre-aggregates dashboard metrics.
type CatalogStats struct {
	LastUpdated          time.Time       `json:"lastUpdated,omitempty" firestore:"lastUpdated,omitempty"`
	TotalListings        int             `json:"totalListings" firestore:"totalListings"`
	TotalViews           int64           `json:"totalViews" firestore:"totalViews"`
	PopularCategories    []CategoryCount `json:"popularCategories" firestore:"popularCategories"`
	MostViewed           []ViewedListing `json:"mostViewed" firestore:"mostViewed"`
	ListingsWithLocation int             `json:"listingsWithLocation" firestore:"listingsWithLocation"`

	// AverageDistanceKm depends on the viewer's location and is never stored.
	AverageDistanceKm float64 `json:"averageDistanceKm,omitempty" firestore:"-"`
}
