package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/ferry-risk/internal/domain"
)

// DefaultAlternativeRadiusKm bounds the alternative safe port search.
const DefaultAlternativeRadiusKm = 50.0

// LocationAnalyzer answers nearest-port questions against the port directory.
type LocationAnalyzer struct {
	ports  domain.PortDirectory
	logger *slog.Logger
}

// NewLocationAnalyzer creates a LocationAnalyzer.
func NewLocationAnalyzer(ports domain.PortDirectory, logger *slog.Logger) *LocationAnalyzer {
	return &LocationAnalyzer{ports: ports, logger: logger}
}

// AnalyzeLocation ranks every geolocated port by distance from lat/lon and
// recommends where to head. Ports with no data count as safe.
func (l *LocationAnalyzer) AnalyzeLocation(ctx context.Context, lat, lon float64) (domain.LocationAnalysis, error) {
	if !domain.ValidCoordinate(lat, lon) {
		return domain.LocationAnalysis{}, fmt.Errorf("%w: %v,%v", domain.ErrInvalidCoordinate, lat, lon)
	}
	reports, err := l.ports.ListReports(ctx)
	if err != nil {
		return domain.LocationAnalysis{}, fmt.Errorf("list ports: %w", err)
	}
	return domain.AnalyzeLocation(domain.Waypoint{Lat: lat, Lon: lon}, reports), nil
}

// FindAlternativeSafePort returns the nearest other port within radiusKm
// whose latest status is known and not High Risk, or nil when none is.
func (l *LocationAnalyzer) FindAlternativeSafePort(ctx context.Context, portID int64, radiusKm float64) (*domain.RankedPort, error) {
	if radiusKm <= 0 {
		radiusKm = DefaultAlternativeRadiusKm
	}
	port, err := l.ports.GetPort(ctx, portID)
	if err != nil {
		return nil, err
	}
	reports, err := l.ports.ListReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ports: %w", err)
	}
	alt, err := domain.AlternativeSafePort(port, reports, radiusKm)
	if err != nil {
		return nil, err
	}
	if alt == nil {
		l.logger.Info("no alternative safe port", "port_id", portID, "radius_km", radiusKm)
	}
	return alt, nil
}
