package catalog

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jbaylocal/marketplace-api/pkg/model"
	"github.com/jbaylocal/marketplace-api/pkg/util"
	"google.golang.org/genproto/googleapis/type/latlng"
)

// Normalize maps an untyped content-store document to the canonical Listing.
// It never fails: fields that cannot be coerced come back absent.
func Normalize(raw model.RawListing) model.Listing {
	l := model.Listing{
		ID:              firstString(raw, "_id", "id"),
		Title:           util.CleanText(stringField(raw["title"])),
		Slug:            slugField(raw["slug"]),
		Description:     util.CleanText(stringField(raw["description"])),
		Pitch:           pitchText(raw["pitch"]),
		Image:           util.CleanURL(stringField(raw["image"])),
		Author:          authorField(raw["author"]),
		Location:        coordinateField(raw["location"]),
		ServiceRadiusKm: nonNegative(numberField(raw["serviceRadius"])),
		Availability:    availabilityField(raw["availability"]),
		ContactDetails:  strings.TrimSpace(stringField(raw["contactDetails"])),
		Featured:        boolField(raw["featured"], false),
		IsActive:        boolField(raw["isActive"], true),
		CreatedAt:       timeField(firstPresent(raw, "_createdAt", "createdAt")),
		Views:           viewsField(raw["views"]),
	}
	if c, ok := model.ParseCategory(stringField(raw["category"])); ok {
		l.Category = c
	}
	if p, ok := model.ParsePriceRange(stringField(raw["priceRange"])); ok {
		l.PriceRange = p
	}
	if m, ok := model.ParseContactMethod(stringField(raw["contactMethod"])); ok {
		l.ContactMethod = m
	}
	return l
}

// NormalizeAll normalizes a batch, dropping documents without an identifier.
func NormalizeAll(raws []model.RawListing) []model.Listing {
	out := make([]model.Listing, 0, len(raws))
	for _, raw := range raws {
		l := Normalize(raw)
		if l.ID == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}

func firstPresent(raw model.RawListing, keys ...string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(raw model.RawListing, keys ...string) string {
	return strings.TrimSpace(stringField(firstPresent(raw, keys...)))
}

func stringField(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case json.Number:
		return s.String()
	}
	return ""
}

// slugField accepts both the CMS shape {"current": "x"} and a bare string.
func slugField(v any) string {
	if m, ok := v.(map[string]any); ok {
		return strings.TrimSpace(stringField(m["current"]))
	}
	return strings.TrimSpace(stringField(v))
}

func numberField(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func nonNegative(f float64, ok bool) *float64 {
	if !ok || f < 0 {
		return nil
	}
	return &f
}

func boolField(v any, def bool) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(b)); err == nil {
			return parsed
		}
	}
	return def
}

func viewsField(v any) int64 {
	f, ok := numberField(v)
	if !ok || f < 0 {
		return 0
	}
	return int64(f)
}

func timeField(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case *time.Time:
		if t != nil {
			return t.UTC()
		}
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return parsed.UTC()
			}
		}
	}
	return time.Time{}
}

// coordinateField reads a geopoint. Both halves must be present and numeric,
// otherwise the location is absent.
func coordinateField(v any) *model.Coordinate {
	var lat, lng float64
	var latOK, lngOK bool
	switch p := v.(type) {
	case *latlng.LatLng:
		if p == nil {
			return nil
		}
		lat, latOK = p.GetLatitude(), true
		lng, lngOK = p.GetLongitude(), true
	case map[string]any:
		lat, latOK = numberField(firstOf(p, "lat", "latitude"))
		lng, lngOK = numberField(firstOf(p, "lng", "lon", "longitude"))
	case model.Coordinate:
		lat, latOK = p.Lat, true
		lng, lngOK = p.Lng, true
	case *model.Coordinate:
		if p == nil {
			return nil
		}
		lat, latOK = p.Lat, true
		lng, lngOK = p.Lng, true
	default:
		return nil
	}
	if !latOK || !lngOK {
		return nil
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil
	}
	return &model.Coordinate{Lat: lat, Lng: lng}
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func availabilityField(v any) []model.Weekday {
	var tokens []string
	switch a := v.(type) {
	case []any:
		for _, item := range a {
			tokens = append(tokens, stringField(item))
		}
	case []string:
		tokens = a
	default:
		return nil
	}
	seen := make(map[model.Weekday]struct{}, len(tokens))
	var days []model.Weekday
	for _, tok := range tokens {
		d, ok := model.ParseWeekday(tok)
		if !ok {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	return days
}

func authorField(v any) *model.Author {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	a := &model.Author{
		ID:       strings.TrimSpace(stringField(firstOf(m, "_id", "_ref", "id"))),
		Name:     util.CleanText(stringField(m["name"])),
		Username: strings.TrimSpace(stringField(m["username"])),
		Image:    util.CleanURL(stringField(m["image"])),
		Bio:      util.CleanText(stringField(m["bio"])),
	}
	if *a == (model.Author{}) {
		return nil
	}
	return a
}

// pitchText flattens rich-text blocks ([{children: [{text}]}]) or a plain string.
func pitchText(v any) string {
	switch p := v.(type) {
	case string:
		return util.CleanText(p)
	case []any:
		var paragraphs []string
		for _, block := range p {
			b, ok := block.(map[string]any)
			if !ok {
				continue
			}
			children, ok := b["children"].([]any)
			if !ok {
				continue
			}
			var sb strings.Builder
			for _, child := range children {
				if span, ok := child.(map[string]any); ok {
					sb.WriteString(stringField(span["text"]))
				}
			}
			if text := util.CleanText(sb.String()); text != "" {
				paragraphs = append(paragraphs, text)
			}
		}
		return strings.Join(paragraphs, "\n\n")
	}
	return ""
}
