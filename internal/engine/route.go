package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/ferry-risk/internal/domain"
	"github.com/couchcryptid/ferry-risk/internal/observability"
)

// RouteAnalyzer judges open-water conditions between two ports.
type RouteAnalyzer struct {
	sampler     *Sampler
	scorer      *Scorer
	checkpoints int
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewRouteAnalyzer creates a RouteAnalyzer sampling the given number of
// checkpoints per route.
func NewRouteAnalyzer(sampler *Sampler, scorer *Scorer, checkpoints int, metrics *observability.Metrics, logger *slog.Logger) *RouteAnalyzer {
	return &RouteAnalyzer{
		sampler:     sampler,
		scorer:      scorer,
		checkpoints: checkpoints,
		metrics:     metrics,
		logger:      logger,
	}
}

// AnalyzeRoute samples checkpoints between origin and destination, scores
// each one that has a forecast, and aggregates. Checkpoints are evaluated
// sequentially. A route where every forecast failed comes back not risky
// with no checkpoints; check Checkpoints before trusting the verdict.
func (r *RouteAnalyzer) AnalyzeRoute(ctx context.Context, origin, destination domain.Port) (domain.RouteAssessment, error) {
	from, ok := origin.Location()
	if !ok {
		return domain.RouteAssessment{}, fmt.Errorf("origin port %d: %w", origin.ID, domain.ErrMissingCoordinates)
	}
	to, ok := destination.Location()
	if !ok {
		return domain.RouteAssessment{}, fmt.Errorf("destination port %d: %w", destination.ID, domain.ErrMissingCoordinates)
	}

	result := r.AnalyzeLeg(ctx, from, to)
	r.logger.Info("route analyzed",
		"origin_port_id", origin.ID,
		"destination_port_id", destination.ID,
		"verdict", result.Verdict(),
		"checkpoints", len(result.Checkpoints),
	)
	return result, nil
}

// AnalyzeLeg is AnalyzeRoute for bare coordinates.
func (r *RouteAnalyzer) AnalyzeLeg(ctx context.Context, from, to domain.Waypoint) domain.RouteAssessment {
	waypoints := r.sampler.Waypoints(from, to, r.checkpoints)
	checkpoints := make([]domain.Checkpoint, 0, len(waypoints))
	for _, wp := range waypoints {
		obs, ok := r.sampler.Forecast(ctx, wp.Lat, wp.Lon)
		if !ok {
			continue
		}
		checkpoints = append(checkpoints, domain.Checkpoint{
			Waypoint:    wp,
			Observation: obs,
			Assessment:  r.scorer.Score(ctx, obs),
		})
	}

	result := domain.AggregateRoute(checkpoints)
	r.metrics.RouteAnalyses.WithLabelValues(result.Verdict()).Inc()
	if len(waypoints) > 0 && len(checkpoints) == 0 {
		r.logger.Warn("no checkpoint forecasts available, route verdict is not authoritative",
			"from_lat", from.Lat, "from_lon", from.Lon, "to_lat", to.Lat, "to_lon", to.Lon)
	}
	return result
}
