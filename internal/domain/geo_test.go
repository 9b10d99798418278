package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolate(t *testing.T) {
	t.Run("two steps between origin and 10,10", func(t *testing.T) {
		got := Interpolate(Waypoint{0, 0}, Waypoint{10, 10}, 2)
		require.Len(t, got, 2)
		assert.InDelta(t, 3.33, got[0].Lat, 0.01)
		assert.InDelta(t, 3.33, got[0].Lon, 0.01)
		assert.InDelta(t, 6.67, got[1].Lat, 0.01)
		assert.InDelta(t, 6.67, got[1].Lon, 0.01)
	})

	t.Run("single midpoint", func(t *testing.T) {
		got := Interpolate(Waypoint{5.0, 100.0}, Waypoint{6.0, 102.0}, 1)
		require.Len(t, got, 1)
		assert.InDelta(t, 5.5, got[0].Lat, 1e-9)
		assert.InDelta(t, 101.0, got[0].Lon, 1e-9)
	})

	t.Run("reverse direction", func(t *testing.T) {
		got := Interpolate(Waypoint{10, 10}, Waypoint{0, 0}, 3)
		require.Len(t, got, 3)
		assert.InDelta(t, 7.5, got[0].Lat, 1e-9)
		assert.InDelta(t, 2.5, got[2].Lon, 1e-9)
	})

	t.Run("zero steps", func(t *testing.T) {
		assert.Empty(t, Interpolate(Waypoint{0, 0}, Waypoint{1, 1}, 0))
		assert.NotNil(t, Interpolate(Waypoint{0, 0}, Waypoint{1, 1}, -1))
	})

	t.Run("deterministic", func(t *testing.T) {
		a := Interpolate(Waypoint{1.23, 4.56}, Waypoint{7.89, 0.12}, 5)
		b := Interpolate(Waypoint{1.23, 4.56}, Waypoint{7.89, 0.12}, 5)
		assert.Equal(t, a, b)
	})
}

func TestDistanceKm(t *testing.T) {
	t.Run("same point", func(t *testing.T) {
		d := DistanceKm(Waypoint{1.3521, 103.8198}, Waypoint{1.3521, 103.8198})
		assert.False(t, math.IsNaN(d))
		assert.InDelta(t, 0, d, 0.01)
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		// 60 * 1.1515 * 1.609344 km
		d := DistanceKm(Waypoint{0, 0}, Waypoint{1, 0})
		assert.InDelta(t, 111.19, d, 0.01)
	})

	t.Run("symmetric", func(t *testing.T) {
		a, b := Waypoint{5.9804, 116.0735}, Waypoint{5.3167, 115.2333}
		assert.InDelta(t, DistanceKm(a, b), DistanceKm(b, a), 1e-9)
	})
}

func TestForecastCacheKey(t *testing.T) {
	assert.Equal(t, "marine_forecast:5.98,116.07", ForecastCacheKey(5.9804, 116.0735))
	assert.Equal(t, ForecastCacheKey(5.981, 116.071), ForecastCacheKey(5.979, 116.074))
	assert.NotEqual(t, ForecastCacheKey(5.98, 116.07), ForecastCacheKey(5.99, 116.07))
	assert.Equal(t, "marine_forecast:0.00,-0.01", ForecastCacheKey(-0.001, -0.012))
}

func TestRoundCoordinate(t *testing.T) {
	assert.Equal(t, 1.24, RoundCoordinate(1.236))
	assert.Equal(t, -1.24, RoundCoordinate(-1.236))
	assert.False(t, math.Signbit(RoundCoordinate(-0.004)))
}

func TestValidCoordinate(t *testing.T) {
	assert.True(t, ValidCoordinate(0, 0))
	assert.True(t, ValidCoordinate(-90, 180))
	assert.False(t, ValidCoordinate(91, 0))
	assert.False(t, ValidCoordinate(0, -181))
	assert.False(t, ValidCoordinate(math.NaN(), 0))
}
