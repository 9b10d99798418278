package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/ferry-risk/internal/domain"
	"github.com/couchcryptid/ferry-risk/internal/observability"
)

// Monitor scores port observations, records them, and raises alerts for
// High Risk conditions. It backs the refresher, manual entry, and the
// streaming pipeline.
type Monitor struct {
	scorer   *Scorer
	ports    domain.PortDirectory
	recorder domain.ObservationRecorder
	alerts   domain.AlertPublisher
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewMonitor creates a Monitor. alerts may be nil, in which case High Risk
// alerts are only logged.
func NewMonitor(scorer *Scorer, ports domain.PortDirectory, recorder domain.ObservationRecorder, alerts domain.AlertPublisher, metrics *observability.Metrics, logger *slog.Logger) *Monitor {
	return &Monitor{
		scorer:   scorer,
		ports:    ports,
		recorder: recorder,
		alerts:   alerts,
		metrics:  metrics,
		logger:   logger,
	}
}

// Assess scores obs and records it against port.
func (m *Monitor) Assess(ctx context.Context, port domain.Port, obs domain.Observation, origin string) (domain.AssessedObservation, error) {
	id := port.ID
	ao := domain.AssessedObservation{
		PortID:      &id,
		Lat:         port.Lat,
		Lon:         port.Lon,
		Origin:      origin,
		Observation: obs,
		Assessment:  m.scorer.Score(ctx, obs),
	}
	if err := m.record(ctx, port, ao); err != nil {
		return domain.AssessedObservation{}, err
	}
	return ao, nil
}

// Record stores an already assessed observation. It is a no-op for
// observations not attached to a port.
func (m *Monitor) Record(ctx context.Context, ao domain.AssessedObservation) error {
	if ao.PortID == nil {
		return nil
	}
	port, err := m.ports.GetPort(ctx, *ao.PortID)
	if err != nil {
		return err
	}
	return m.record(ctx, port, ao)
}

func (m *Monitor) record(ctx context.Context, port domain.Port, ao domain.AssessedObservation) error {
	if err := m.recorder.RecordObservation(ctx, port.ID, ao.Observation, ao.Assessment, ao.Origin); err != nil {
		return fmt.Errorf("record observation for port %d: %w", port.ID, err)
	}
	if ao.Assessment.Status == domain.StatusHighRisk {
		m.alert(ctx, domain.NewRiskAlert(port, ao.Observation, ao.Assessment))
	}
	return nil
}

// alert failures are logged; the observation is already stored.
func (m *Monitor) alert(ctx context.Context, alert domain.RiskAlert) {
	m.logger.Warn("high risk conditions",
		"port_id", alert.PortID,
		"port_name", alert.PortName,
		"risk_score", alert.Assessment.Score,
		"source", alert.Assessment.Source,
	)
	if m.alerts == nil {
		return
	}
	if err := m.alerts.PublishAlert(ctx, alert); err != nil {
		m.logger.Error("publish alert failed", "port_id", alert.PortID, "error", err)
		return
	}
	m.metrics.AlertsPublished.Inc()
}
