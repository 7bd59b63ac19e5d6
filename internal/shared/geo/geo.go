// Package geo has great-circle helpers for location coordinates.
package geo

import "math"

const earthRadiusKm = 6371.0

// HaversineKm is the great-circle distance between two lat/lng points.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// BoundingBox returns the lat/lng rectangle enclosing a radiusKm circle
// around the point. It is a prefilter; callers confirm with HaversineKm.
func BoundingBox(lat, lng, radiusKm float64) (minLat, maxLat, minLng, maxLng float64) {
	dLat := radiusKm / earthRadiusKm * 180 / math.Pi
	minLat, maxLat = math.Max(lat-dLat, -90), math.Min(lat+dLat, 90)

	cos := math.Cos(radians(lat))
	if cos < 1e-9 || maxLat == 90 || minLat == -90 {
		return minLat, maxLat, -180, 180
	}
	dLng := dLat / cos
	return minLat, maxLat, math.Max(lng-dLng, -180), math.Min(lng+dLng, 180)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
