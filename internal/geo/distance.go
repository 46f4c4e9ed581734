// Package geo provides spherical distance and centroid helpers.
package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadius is the mean earth radius in meters.
const EarthRadius = 6371000.0

// Point is a coordinate with an optional weight.
type Point struct {
	Lat    float64
	Lon    float64
	Weight float64
}

// Circle is a coordinate with a radius in meters.
type Circle struct {
	Lat    float64
	Lon    float64
	Radius float64
}

// Distance returns the great circle distance in meters between two points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lon1)
	b := s2.LatLngFromDegrees(lat2, lon2)
	return a.Distance(b).Radians() * EarthRadius
}

// Valid reports whether lat/lon are finite and within range.
func Valid(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// WeightedCentroid returns the weighted mean of the points. Points with a
// non-positive weight count once. An empty input returns ok=false.
func WeightedCentroid(points []Point) (lat, lon float64, ok bool) {
	if len(points) == 0 {
		return 0, 0, false
	}
	var total float64
	for _, p := range points {
		w := p.Weight
		if w <= 0 {
			w = 1
		}
		lat += p.Lat * w
		lon += p.Lon * w
		total += w
	}
	return lat / total, lon / total, true
}

// CircleRadius returns the radius of the smallest circle around (lat, lon)
// enclosing every given circle.
func CircleRadius(lat, lon float64, circles []Circle) float64 {
	var radius float64
	for _, c := range circles {
		r := Distance(lat, lon, c.Lat, c.Lon) + c.Radius
		if r > radius {
			radius = r
		}
	}
	return radius
}
