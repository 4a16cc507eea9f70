// Package location handles GPS fixes and the geographic math on them.
package location

import (
	"math"

	"farebox/internal/types"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees.
func DistanceKm(a, b types.Point) float64 {
	return haversineKm(a.Lat, a.Lng, b.Lat, b.Lng)
}

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// NMEAToDegrees converts a ddmm.mmmm coordinate into decimal degrees.
// The fractional part is divided by 0.6 rather than converting minutes
// exactly; readings stored by existing devices depend on this.
func NMEAToDegrees(raw float64) float64 {
	v := raw / 100.0
	deg := math.Floor(v)
	return deg + (v-deg)/0.6
}
