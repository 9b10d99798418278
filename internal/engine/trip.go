package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/ferry-risk/internal/domain"
)

// TripPlanner answers "can I sail from A to B now" for two stored ports.
type TripPlanner struct {
	ports    domain.PortDirectory
	routes   *RouteAnalyzer
	radiusKm float64
	logger   *slog.Logger
}

// NewTripPlanner creates a TripPlanner that suggests alternatives within
// DefaultAlternativeRadiusKm of the origin.
func NewTripPlanner(ports domain.PortDirectory, routes *RouteAnalyzer, logger *slog.Logger) *TripPlanner {
	return &TripPlanner{ports: ports, routes: routes, radiusKm: DefaultAlternativeRadiusKm, logger: logger}
}

// PlanTrip analyzes the open water between two ports and combines it with
// their latest statuses into a RouteReport.
func (t *TripPlanner) PlanTrip(ctx context.Context, originID, destinationID int64) (domain.RouteReport, error) {
	reports, err := t.ports.ListReports(ctx)
	if err != nil {
		return domain.RouteReport{}, fmt.Errorf("list ports: %w", err)
	}
	origin, ok := findReport(reports, originID)
	if !ok {
		return domain.RouteReport{}, fmt.Errorf("origin port %d: %w", originID, domain.ErrPortNotFound)
	}
	dest, ok := findReport(reports, destinationID)
	if !ok {
		return domain.RouteReport{}, fmt.Errorf("destination port %d: %w", destinationID, domain.ErrPortNotFound)
	}

	route, err := t.routes.AnalyzeRoute(ctx, origin.Port, dest.Port)
	if err != nil {
		return domain.RouteReport{}, err
	}

	advice := domain.AdviseRoute(origin, dest, route, reports, t.radiusKm)
	if advice.Type == domain.AdviseNotSafe && advice.Alternative == nil {
		t.logger.Info("no alternative safe port", "port_id", originID, "radius_km", t.radiusKm)
	}
	return domain.RouteReport{
		Origin:          origin,
		Destination:     dest,
		RouteAssessment: route,
		Advice:          advice,
	}, nil
}

func findReport(reports []domain.PortReport, id int64) (domain.PortReport, bool) {
	for _, r := range reports {
		if r.Port.ID == id {
			return r, true
		}
	}
	return domain.PortReport{}, false
}
