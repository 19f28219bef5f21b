package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// LatLon is a WGS84 coordinate in degrees.
type LatLon struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Point converts to an orb point (longitude first).
func (c LatLon) Point() orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}

// DistanceKm returns the great-circle distance between a and b.
func DistanceKm(a, b LatLon) float64 {
	return geo.DistanceHaversine(a.Point(), b.Point()) / 1000
}

// DistanceKmCoords is DistanceKm on raw coordinates, used by the SQLite
// geodesic_km function.
func DistanceKmCoords(lat1, lon1, lat2, lon2 float64) float64 {
	return DistanceKm(LatLon{lat1, lon1}, LatLon{lat2, lon2})
}

// Circle approximates the geodesic circle of radiusKm around center.
func Circle(center LatLon, radiusKm float64, segments int) orb.Ring {
	if segments < 3 {
		segments = 3
	}
	ring := make(orb.Ring, 0, segments+1)
	for i := 0; i < segments; i++ {
		bearing := 360 * float64(i) / float64(segments)
		ring = append(ring, geo.PointAtBearingAndDistance(center.Point(), bearing, radiusKm*1000))
	}
	// Close the ring
	ring = append(ring, ring[0])
	return ring
}
