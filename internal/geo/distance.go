package geo

import (
	"math"

	"github.com/Guyuepp/likers-match/domain"
)

// EarthRadiusKm is the mean Earth radius used by DistanceKm
const EarthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between a and b using the haversine formula.
// It returns nil if either point is missing.
func DistanceKm(a, b *domain.Location) *float64 {
	if a == nil || b == nil {
		return nil
	}
	d := Haversine(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	return &d
}

// Haversine returns the distance in km between two lat/lng pairs given in degrees
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	// rounding can push h a hair above 1 for antipodal points
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
