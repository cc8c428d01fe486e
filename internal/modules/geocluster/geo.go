// Package geocluster groups scored deals by proximity, derives map viewport
// parameters and computes simple walking routes between deals.
package geocluster

import (
	"math"

	"github.com/leosinemaxx/jatour-engine/internal/domain"
)

// EarthRadiusKm is the mean Earth radius used by the Haversine formula.
const EarthRadiusKm = 6371.0

// DistanceMeters returns the great-circle distance between two points.
func DistanceMeters(a, b domain.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng

	return EarthRadiusKm * 1000 * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
