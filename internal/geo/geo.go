package geo

import (
	"math"

	"github.com/example/ride-pooling/internal/models"
)

// HaversineKm returns the great-circle distance between two coordinates in
// kilometers. Coordinates outside valid lat/lon ranges are undefined input;
// callers validate upstream.
func HaversineKm(a, b models.Coord) float64 {
	const R = 6371.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return R * c
}
