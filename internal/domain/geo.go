package domain

import (
	"fmt"
	"math"
)

// Waypoint is a WGS-84 latitude/longitude pair.
type Waypoint struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Interpolate returns steps evenly spaced points strictly between origin and
// destination. Step i (1-based) sits at fraction i/(steps+1) along the
// straight line in degree space. Returns an empty slice when steps <= 0.
func Interpolate(origin, destination Waypoint, steps int) []Waypoint {
	if steps <= 0 {
		return []Waypoint{}
	}
	points := make([]Waypoint, 0, steps)
	for i := 1; i <= steps; i++ {
		fraction := float64(i) / float64(steps+1)
		points = append(points, Waypoint{
			Lat: origin.Lat + (destination.Lat-origin.Lat)*fraction,
			Lon: origin.Lon + (destination.Lon-origin.Lon)*fraction,
		})
	}
	return points
}

// DistanceKm returns the great-circle distance between two points using the
// spherical law of cosines. One arc-degree is 60 × 1.1515 statute miles.
func DistanceKm(a, b Waypoint) float64 {
	theta := a.Lon - b.Lon
	cos := math.Sin(deg2rad(a.Lat))*math.Sin(deg2rad(b.Lat)) +
		math.Cos(deg2rad(a.Lat))*math.Cos(deg2rad(b.Lat))*math.Cos(deg2rad(theta))
	// Rounding can push identical points just past 1.
	cos = math.Max(-1, math.Min(1, cos))

	degrees := rad2deg(math.Acos(cos))
	miles := degrees * 60 * 1.1515
	return miles * 1.609344
}

// RoundCoordinate rounds to two decimal places, normalizing -0 to 0.
func RoundCoordinate(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0
	}
	return r
}

// ForecastCacheKey buckets a coordinate for forecast caching. Points within
// the same 0.01° cell share a key.
func ForecastCacheKey(lat, lon float64) string {
	return fmt.Sprintf("marine_forecast:%.2f,%.2f", RoundCoordinate(lat), RoundCoordinate(lon))
}

// ValidCoordinate reports whether lat/lon are finite and in range.
func ValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }
