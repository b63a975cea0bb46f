package geo

import (
	"math"

	"github.com/jbaylocal/marketplace-api/pkg/model"
)

// Bounds is a rectangular latitude/longitude box.
type Bounds struct {
	North float64
	South float64
	East  float64
	West  float64
}

// JeffreysBay is the default operating region.
var JeffreysBay = Bounds{North: -33.9, South: -34.1, East: 25.0, West: 24.8}

// JeffreysBayCenter is the town centre, used as the default manual-entry point.
var JeffreysBayCenter = model.Coordinate{Lat: -34.0489, Lng: 24.9087}

// Contains reports whether c lies inside the box, edges included.
func (b Bounds) Contains(c model.Coordinate) bool {
	return c.Lat >= b.South && c.Lat <= b.North &&
		c.Lng >= b.West && c.Lng <= b.East
}

// ValidCoordinate reports whether c is finite and within physical lat/lng ranges.
func ValidCoordinate(c model.Coordinate) bool {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}
