package geo

import (
	"math"

	"github.com/example/horse-share/internal/models"
)

// Sentinel is returned when either coordinate is missing or malformed.
// It is large enough to lose every nearest-comparison and lets callers
// compare distances without nil-checking first.
const Sentinel = 99999

const earthRadiusM = 6371000.0

// Distance returns the great-circle distance between a and b in meters
// (haversine). A nil or non-finite coordinate yields Sentinel, never a
// panic.
func Distance(a, b *models.Coord) float64 {
	if a == nil || b == nil || !a.Valid() || !b.Valid() {
		return Sentinel
	}
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// Haversine distance in meters between two lat/lon pairs in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}
