package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/ferry-risk/internal/domain"
	"github.com/couchcryptid/ferry-risk/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Assessor scores and records an observation against a port.
type Assessor interface {
	Assess(ctx context.Context, port domain.Port, obs domain.Observation, origin string) (domain.AssessedObservation, error)
}

// SubscriptionChecker notifies route subscribers from the latest statuses.
type SubscriptionChecker interface {
	CheckSubscriptions(ctx context.Context) (int, error)
}

// Refresher periodically pulls fresh provider conditions for every
// geolocated port and records them.
type Refresher struct {
	ports      domain.PortDirectory
	forecaster domain.Forecaster
	assessor   Assessor
	subs       SubscriptionChecker
	origin     string
	interval   time.Duration
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewRefresher creates a Refresher. The forecaster should bypass the
// forecast cache so each refresh records current conditions. origin labels
// the recorded observations.
func NewRefresher(ports domain.PortDirectory, forecaster domain.Forecaster, assessor Assessor, origin string, interval time.Duration, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Refresher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Refresher{
		ports:      ports,
		forecaster: forecaster,
		assessor:   assessor,
		origin:     origin,
		interval:   interval,
		clock:      clock,
		metrics:    metrics,
		logger:     logger,
	}
}

// NotifySubscribers makes Run check route subscriptions after each
// successful refresh.
func (r *Refresher) NotifySubscribers(c SubscriptionChecker) {
	r.subs = c
}

// Run refreshes all ports immediately and then on every interval until ctx
// is cancelled. A zero interval disables the loop.
func (r *Refresher) Run(ctx context.Context) error {
	if r.interval <= 0 {
		r.logger.Info("port refresher disabled")
		return nil
	}
	r.logger.Info("port refresher started", "interval", r.interval)

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.RefreshAll(ctx); err != nil {
			r.logger.Error("refresh ports failed", "error", err)
		} else if r.subs != nil {
			if _, err := r.subs.CheckSubscriptions(ctx); err != nil {
				r.logger.Error("check route subscriptions failed", "error", err)
			}
		}
		select {
		case <-ctx.Done():
			r.logger.Info("port refresher stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

// RefreshAll refreshes every port with coordinates. Individual failures are
// logged and skipped; only a directory error is returned.
func (r *Refresher) RefreshAll(ctx context.Context) (int, error) {
	reports, err := r.ports.ListReports(ctx)
	if err != nil {
		return 0, fmt.Errorf("list ports: %w", err)
	}

	refreshed := 0
	for _, report := range reports {
		if ctx.Err() != nil {
			break
		}
		if _, ok := report.Port.Location(); !ok {
			r.logger.Debug("skipping port without coordinates", "port_id", report.Port.ID)
			continue
		}
		if _, err := r.refresh(ctx, report.Port); err != nil {
			r.logger.Warn("port refresh failed", "port_id", report.Port.ID, "port_name", report.Port.Name, "error", err)
			continue
		}
		refreshed++
	}
	r.logger.Info("ports refreshed", "refreshed", refreshed, "total", len(reports))
	return refreshed, nil
}

// RefreshPort refreshes a single port on demand.
func (r *Refresher) RefreshPort(ctx context.Context, id int64) (domain.AssessedObservation, error) {
	port, err := r.ports.GetPort(ctx, id)
	if err != nil {
		return domain.AssessedObservation{}, err
	}
	return r.refresh(ctx, port)
}

func (r *Refresher) refresh(ctx context.Context, port domain.Port) (domain.AssessedObservation, error) {
	loc, ok := port.Location()
	if !ok {
		r.metrics.PortsRefreshed.WithLabelValues("error").Inc()
		return domain.AssessedObservation{}, fmt.Errorf("port %d: %w", port.ID, domain.ErrMissingCoordinates)
	}

	obs, err := r.forecaster.Forecast(ctx, loc.Lat, loc.Lon)
	if err != nil {
		r.metrics.PortsRefreshed.WithLabelValues("error").Inc()
		return domain.AssessedObservation{}, fmt.Errorf("port %d: %w: %w", port.ID, domain.ErrProviderUnavailable, err)
	}

	ao, err := r.assessor.Assess(ctx, port, obs, r.origin)
	if err != nil {
		r.metrics.PortsRefreshed.WithLabelValues("error").Inc()
		return domain.AssessedObservation{}, err
	}
	r.metrics.PortsRefreshed.WithLabelValues("success").Inc()
	return ao, nil
}
