package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/ferry-risk/internal/domain"
	"github.com/couchcryptid/ferry-risk/internal/observability"
	"github.com/couchcryptid/ferry-risk/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPorts struct {
	reports []domain.PortReport
	err     error
}

func (s *stubPorts) GetPort(_ context.Context, id int64) (domain.Port, error) {
	for _, r := range s.reports {
		if r.Port.ID == id {
			return r.Port, nil
		}
	}
	return domain.Port{}, domain.ErrPortNotFound
}

func (s *stubPorts) ListReports(context.Context) ([]domain.PortReport, error) {
	return s.reports, s.err
}

type stubForecaster struct {
	failLat float64
}

func (s stubForecaster) Forecast(_ context.Context, lat, _ float64) (domain.Observation, error) {
	if lat == s.failLat {
		return domain.Observation{}, errors.New("provider timeout")
	}
	return domain.Observation{WindSpeed: 20, WaveHeight: 0.6}, nil
}

type recordingAssessor struct {
	mu      sync.Mutex
	ports   []int64
	origins []string
}

func (r *recordingAssessor) Assess(_ context.Context, port domain.Port, obs domain.Observation, origin string) (domain.AssessedObservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ports = append(r.ports, port.ID)
	r.origins = append(r.origins, origin)
	id := port.ID
	return domain.AssessedObservation{PortID: &id, Observation: obs, Origin: origin}, nil
}

func (r *recordingAssessor) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ports)
}

func geoPort(id int64, lat, lon float64) domain.PortReport {
	return domain.PortReport{Port: domain.Port{ID: id, Name: "port", Lat: domain.Float64(lat), Lon: domain.Float64(lon)}}
}

func TestRefresher_RefreshAll_SkipsFailures(t *testing.T) {
	ports := &stubPorts{reports: []domain.PortReport{
		geoPort(1, 5.98, 116.07),
		{Port: domain.Port{ID: 2, Name: "unplotted"}},
		geoPort(3, 6.88, 116.85),
		geoPort(4, 5.84, 118.12),
	}}
	assessor := &recordingAssessor{}
	metrics := newTestMetrics()

	r := pipeline.NewRefresher(ports, stubForecaster{failLat: 6.88}, assessor, "open-meteo", time.Hour, clockwork.NewFakeClock(), metrics, observability.DiscardLogger())

	n, err := r.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1, 4}, assessor.ports)
	assert.Equal(t, []string{"open-meteo", "open-meteo"}, assessor.origins)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.PortsRefreshed.WithLabelValues("success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.PortsRefreshed.WithLabelValues("error")), 0)
}

func TestRefresher_RefreshAll_DirectoryError(t *testing.T) {
	r := pipeline.NewRefresher(&stubPorts{err: errors.New("no such table")}, stubForecaster{}, &recordingAssessor{}, "open-meteo", time.Hour, nil, newTestMetrics(), observability.DiscardLogger())
	_, err := r.RefreshAll(context.Background())
	assert.Error(t, err)
}

func TestRefresher_RefreshPort(t *testing.T) {
	ports := &stubPorts{reports: []domain.PortReport{
		geoPort(1, 5.98, 116.07),
		{Port: domain.Port{ID: 2, Name: "unplotted"}},
	}}
	r := pipeline.NewRefresher(ports, stubForecaster{}, &recordingAssessor{}, "open-meteo", time.Hour, nil, newTestMetrics(), observability.DiscardLogger())

	ao, err := r.RefreshPort(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0.6, ao.Observation.WaveHeight)

	_, err = r.RefreshPort(context.Background(), 2)
	assert.ErrorIs(t, err, domain.ErrMissingCoordinates)

	_, err = r.RefreshPort(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrPortNotFound)
}

func TestRefresher_Run_TicksOnInterval(t *testing.T) {
	ports := &stubPorts{reports: []domain.PortReport{geoPort(1, 5.98, 116.07)}}
	assessor := &recordingAssessor{}
	clock := clockwork.NewFakeClock()

	r := pipeline.NewRefresher(ports, stubForecaster{}, assessor, "open-meteo", time.Hour, clock, newTestMetrics(), observability.DiscardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	require.Eventually(t, func() bool { return assessor.count() == 1 }, time.Second, 10*time.Millisecond)

	clock.Advance(time.Hour)
	require.Eventually(t, func() bool { return assessor.count() == 2 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
}

type countingChecker struct {
	mu     sync.Mutex
	checks int
}

func (c *countingChecker) CheckSubscriptions(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks++
	return 0, nil
}

func (c *countingChecker) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checks
}

func TestRefresher_Run_ChecksSubscriptionsAfterRefresh(t *testing.T) {
	ports := &stubPorts{reports: []domain.PortReport{geoPort(1, 5.98, 116.07)}}
	assessor := &recordingAssessor{}
	checker := &countingChecker{}
	clock := clockwork.NewFakeClock()

	r := pipeline.NewRefresher(ports, stubForecaster{}, assessor, "open-meteo", time.Hour, clock, newTestMetrics(), observability.DiscardLogger())
	r.NotifySubscribers(checker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	require.Eventually(t, func() bool { return checker.count() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, assessor.count())

	clock.Advance(time.Hour)
	require.Eventually(t, func() bool { return checker.count() == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, assessor.count())

	cancel()
	require.NoError(t, <-done)
}

func TestRefresher_Run_DirectoryErrorSkipsSubscriptions(t *testing.T) {
	checker := &countingChecker{}
	r := pipeline.NewRefresher(&stubPorts{err: errors.New("disk I/O error")}, stubForecaster{}, &recordingAssessor{}, "open-meteo", time.Hour, clockwork.NewFakeClock(), newTestMetrics(), observability.DiscardLogger())
	r.NotifySubscribers(checker)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, r.Run(ctx))
	assert.Zero(t, checker.count())
}

func TestRefresher_Run_Disabled(t *testing.T) {
	assessor := &recordingAssessor{}
	r := pipeline.NewRefresher(&stubPorts{}, stubForecaster{}, assessor, "open-meteo", 0, nil, newTestMetrics(), observability.DiscardLogger())
	require.NoError(t, r.Run(context.Background()))
	assert.Zero(t, assessor.count())
}
