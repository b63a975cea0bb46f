package model

import (
	"fmt"
	"strings"
)

// Category is the closed set of service categories. The zero value means absent.
type Category string

const (
	CategoryAccommodation Category = "accommodation"
	CategorySurfing       Category = "surfing"
	CategoryTours         Category = "tours"
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryHome          Category = "home"
	CategoryBeauty        Category = "beauty"
	CategoryEvents        Category = "events"
	CategoryOther         Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryAccommodation,
	CategorySurfing,
	CategoryTours,
	CategoryFood,
	CategoryTransport,
	CategoryHome,
	CategoryBeauty,
	CategoryEvents,
	CategoryOther,
}

// ParseCategory maps a stored or user-supplied token to a Category.
func ParseCategory(s string) (Category, bool) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryAccommodation, CategorySurfing, CategoryTours, CategoryFood,
		CategoryTransport, CategoryHome, CategoryBeauty, CategoryEvents, CategoryOther:
		return c, true
	}
	return "", false
}

// Label returns the human readable category name.
func (c Category) Label() string {
	switch c {
	case CategoryAccommodation:
		return "Accommodation"
	case CategorySurfing:
		return "Surfing Lessons"
	case CategoryTours:
		return "Tours & Activities"
	case CategoryFood:
		return "Food & Catering"
	case CategoryTransport:
		return "Transport"
	case CategoryHome:
		return "Home Services"
	case CategoryBeauty:
		return "Beauty & Wellness"
	case CategoryEvents:
		return "Events"
	case CategoryOther:
		return "Other"
	}
	return ""
}

// PriceRange is the closed, ordered set of price tiers. The zero value means absent.
type PriceRange string

const (
	PriceFree     PriceRange = "free"
	PriceBudget   PriceRange = "budget"
	PriceModerate PriceRange = "moderate"
	PricePremium  PriceRange = "premium"
	PriceLuxury   PriceRange = "luxury"
	PriceQuote    PriceRange = "quote"
)

// PriceRanges lists every tier from cheapest to least certain.
var PriceRanges = []PriceRange{PriceFree, PriceBudget, PriceModerate, PricePremium, PriceLuxury, PriceQuote}

// ParsePriceRange maps a stored or user-supplied token to a PriceRange.
func ParsePriceRange(s string) (PriceRange, bool) {
	switch p := PriceRange(strings.ToLower(strings.TrimSpace(s))); p {
	case PriceFree, PriceBudget, PriceModerate, PricePremium, PriceLuxury, PriceQuote:
		return p, true
	}
	return "", false
}

// Rank is the position of the tier in the price order. An absent tier ranks as quote.
func (p PriceRange) Rank() int {
	switch p {
	case PriceFree:
		return 0
	case PriceBudget:
		return 1
	case PriceModerate:
		return 2
	case PricePremium:
		return 3
	case PriceLuxury:
		return 4
	case PriceQuote:
		return 5
	}
	return PriceQuote.Rank()
}

// Weekday is a lowercase English day name used for availability.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// ParseWeekday maps a day token to a Weekday.
func ParseWeekday(s string) (Weekday, bool) {
	switch d := Weekday(strings.ToLower(strings.TrimSpace(s))); d {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return d, true
	}
	return "", false
}

// ContactMethod is how a provider prefers to be reached.
type ContactMethod string

const (
	ContactPhone    ContactMethod = "phone"
	ContactWhatsApp ContactMethod = "whatsapp"
	ContactEmail    ContactMethod = "email"
	ContactInPerson ContactMethod = "person"
)

// ParseContactMethod maps a stored token to a ContactMethod.
func ParseContactMethod(s string) (ContactMethod, bool) {
	switch m := ContactMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case ContactPhone, ContactWhatsApp, ContactEmail, ContactInPerson:
		return m, true
	}
	return "", false
}

// SortKey selects the ranking criterion applied after filtering.
type SortKey string

const (
	SortDistance  SortKey = "distance"
	SortNewest    SortKey = "newest"
	SortPopular   SortKey = "popular"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
)

// ParseSortKey validates a sort selector.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortDistance, SortNewest, SortPopular, SortPriceLow, SortPriceHigh:
		return k, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}
