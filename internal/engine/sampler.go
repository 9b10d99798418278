package engine

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/ferry-risk/internal/domain"
)

// Sampler produces route checkpoints and fetches their forecasts.
type Sampler struct {
	forecaster domain.Forecaster
	logger     *slog.Logger
}

// NewSampler creates a Sampler. Pass a cached forecaster to bound provider
// call volume.
func NewSampler(forecaster domain.Forecaster, logger *slog.Logger) *Sampler {
	return &Sampler{forecaster: forecaster, logger: logger}
}

// Waypoints returns steps points evenly spaced strictly between origin and
// destination in degree space.
func (s *Sampler) Waypoints(origin, destination domain.Waypoint, steps int) []domain.Waypoint {
	return domain.Interpolate(origin, destination, steps)
}

// Forecast returns current conditions at lat/lon. ok is false when the
// provider could not answer; callers must treat that as unknown, not safe.
func (s *Sampler) Forecast(ctx context.Context, lat, lon float64) (obs domain.Observation, ok bool) {
	obs, err := s.forecaster.Forecast(ctx, lat, lon)
	if err != nil {
		s.logger.Warn("forecast unavailable", "lat", lat, "lon", lon, "error", err)
		return domain.Observation{}, false
	}
	return obs, true
}
