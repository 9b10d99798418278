package engine_test

import (
	"context"
	"errors"
	"sync"

	"github.com/couchcryptid/ferry-risk/internal/domain"
	"github.com/couchcryptid/ferry-risk/internal/observability"
)

var errUnavailable = errors.New("connection refused")

type mockPredictor struct {
	mu    sync.Mutex
	calls int
	pred  domain.Prediction
	err   error
	block bool
}

func (m *mockPredictor) Predict(ctx context.Context, _ domain.Observation) (domain.Prediction, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.block {
		<-ctx.Done()
		return domain.Prediction{}, ctx.Err()
	}
	return m.pred, m.err
}

// mockForecaster answers by exact coordinate; unknown points fail.
type mockForecaster struct {
	byPoint map[domain.Waypoint]domain.Observation
	calls   []domain.Waypoint
}

func (m *mockForecaster) Forecast(_ context.Context, lat, lon float64) (domain.Observation, error) {
	wp := domain.Waypoint{Lat: lat, Lon: lon}
	m.calls = append(m.calls, wp)
	obs, ok := m.byPoint[wp]
	if !ok {
		return domain.Observation{}, errUnavailable
	}
	return obs, nil
}

type failingForecaster struct{}

func (failingForecaster) Forecast(context.Context, float64, float64) (domain.Observation, error) {
	return domain.Observation{}, errUnavailable
}

type recorded struct {
	portID     int64
	obs        domain.Observation
	assessment domain.RiskAssessment
	origin     string
}

type mockStore struct {
	reports  []domain.PortReport
	listErr  error
	recorded []recorded
	recErr   error
}

func (m *mockStore) GetPort(_ context.Context, id int64) (domain.Port, error) {
	for _, r := range m.reports {
		if r.Port.ID == id {
			return r.Port, nil
		}
	}
	return domain.Port{}, domain.ErrPortNotFound
}

func (m *mockStore) ListReports(context.Context) ([]domain.PortReport, error) {
	return m.reports, m.listErr
}

func (m *mockStore) RecordObservation(_ context.Context, portID int64, obs domain.Observation, a domain.RiskAssessment, origin string) error {
	if m.recErr != nil {
		return m.recErr
	}
	m.recorded = append(m.recorded, recorded{portID, obs, a, origin})
	return nil
}

type mockAlerts struct {
	alerts []domain.RiskAlert
	err    error
}

func (m *mockAlerts) PublishAlert(_ context.Context, a domain.RiskAlert) error {
	if m.err != nil {
		return m.err
	}
	m.alerts = append(m.alerts, a)
	return nil
}

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func port(id int64, name string, lat, lon float64) domain.Port {
	return domain.Port{ID: id, Name: name, Lat: domain.Float64(lat), Lon: domain.Float64(lon)}
}

func strPtr(s string) *string { return &s }
