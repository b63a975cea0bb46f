// Package geo holds the distance math used to rank listings around a user.
package geo

import (
	"fmt"
	"math"
	"net/url"

	"github.com/jbaylocal/marketplace-api/pkg/model"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the haversine great-circle distance between a and b in kilometres.
func DistanceKm(a, b model.Coordinate) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// FormatDistance renders a distance for display, e.g. "500m away", "3.2km away", "15km away".
// It panics on negative input: distances are non-negative by construction.
func FormatDistance(km float64) string {
	if km < 0 || math.IsNaN(km) {
		panic(fmt.Sprintf("geo: FormatDistance called with invalid distance %v", km))
	}
	switch {
	case km < 1:
		return fmt.Sprintf("%dm away", int64(math.Round(km*1000)))
	case km < 10:
		return fmt.Sprintf("%.1fkm away", km)
	default:
		return fmt.Sprintf("%dkm away", int64(math.Round(km)))
	}
}

// DirectionsURL builds a Google Maps directions link to dest, starting at origin when known.
func DirectionsURL(dest model.Coordinate, origin *model.Coordinate) string {
	params := url.Values{}
	params.Set("api", "1")
	params.Set("destination", formatPoint(dest))
	if origin != nil {
		params.Set("origin", formatPoint(*origin))
	}
	return "https://www.google.com/maps/dir/?" + params.Encode()
}

func formatPoint(c model.Coordinate) string {
	return fmt.Sprintf("%g,%g", c.Lat, c.Lng)
}
