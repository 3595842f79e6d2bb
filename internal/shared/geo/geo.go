package geo

import "math"

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two coordinates in kilometres.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// WithinRadius reports whether the point is at most radiusM metres from the centre.
func WithinRadius(centerLat, centerLng, lat, lng, radiusM float64) bool {
	return HaversineKm(centerLat, centerLng, lat, lng)*1000 <= radiusM
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
