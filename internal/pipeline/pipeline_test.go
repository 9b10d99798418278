package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/ferry-risk/internal/domain"
	"github.com/couchcryptid/ferry-risk/internal/observability"
	"github.com/couchcryptid/ferry-risk/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawMessage
	index   atomic.Int64
	err     error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawMessage, error) {
	if m.err != nil {
		return nil, m.err
	}
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	err    error
	poison string // values rejected as unreadable
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawMessage) (domain.AssessedObservation, error) {
	if m.err != nil {
		return domain.AssessedObservation{}, m.err
	}
	if m.poison != "" && string(raw.Value) == m.poison {
		return domain.AssessedObservation{}, errors.New("unreadable reading")
	}
	id := raw.Offset
	return domain.AssessedObservation{PortID: &id, Origin: string(raw.Key)}, nil
}

type mockLoader struct {
	mu       sync.Mutex
	loaded   []domain.AssessedObservation
	err      error
	failures int // leading calls that fail before loads succeed
	calls    int
}

func (m *mockLoader) LoadBatch(_ context.Context, batch []domain.AssessedObservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	if m.calls <= m.failures {
		return errors.New("broker down")
	}
	m.loaded = append(m.loaded, batch...)
	return nil
}

type mockRecorder struct {
	recorded []int64
	err      error
}

func (m *mockRecorder) Record(_ context.Context, ao domain.AssessedObservation) error {
	if m.err != nil {
		return m.err
	}
	m.recorded = append(m.recorded, *ao.PortID)
	return nil
}

type fixedScorer struct{}

func (fixedScorer) Score(_ context.Context, obs domain.Observation) domain.RiskAssessment {
	return domain.HeuristicAssessment(obs)
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func rawMessage(offset int64, value string, commit func(context.Context) error) domain.RawMessage {
	return domain.RawMessage{
		Key:    []byte("buoy"),
		Value:  []byte(value),
		Topic:  "raw-marine-readings",
		Offset: offset,
		Commit: commit,
	}
}

// --- pipeline ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	var commits atomic.Int32
	commit := func(context.Context) error { commits.Add(1); return nil }

	ext := &mockExtractor{batches: [][]domain.RawMessage{{
		rawMessage(1, `{}`, commit),
		rawMessage(2, `{}`, commit),
	}}}
	ldr := &mockLoader{}
	rec := &mockRecorder{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, &mockTransformer{}, ldr, rec, observability.DiscardLogger(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Len(t, ldr.loaded, 2)
	assert.Equal(t, []int64{1, 2}, rec.recorded)
	assert.Equal(t, int32(2), commits.Load())
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.MessagesConsumed), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.MessagesProduced), 0)
	assert.Zero(t, testutil.ToFloat64(metrics.PipelineRunning))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, ldr, nil, observability.DiscardLogger(), newTestMetrics(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
}

func TestPipeline_Run_PoisonMessageSkippedAndCommitted(t *testing.T) {
	committed := false
	ext := &mockExtractor{batches: [][]domain.RawMessage{{
		rawMessage(5, `not json`, func(context.Context) error { committed = true; return nil }),
	}}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, &mockTransformer{err: errors.New("bad data")}, ldr, nil, observability.DiscardLogger(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
	assert.True(t, committed)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TransformErrors), 0)
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	var commits atomic.Int32
	ext := &mockExtractor{batches: [][]domain.RawMessage{{
		rawMessage(1, `{}`, func(context.Context) error { commits.Add(1); return nil }),
	}}}
	rec := &mockRecorder{}

	p := pipeline.New(ext, &mockTransformer{}, &mockLoader{err: errors.New("broker down")}, rec, observability.DiscardLogger(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Zero(t, commits.Load())
	assert.Empty(t, rec.recorded)
}

func TestPipeline_Run_LoadRetriedOnSameBatchBeforeCommit(t *testing.T) {
	var (
		mu        sync.Mutex
		committed []int64
	)
	commitAt := func(offset int64) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			committed = append(committed, offset)
			return nil
		}
	}

	const poison = `not-json{{{`
	ext := &mockExtractor{batches: [][]domain.RawMessage{{
		rawMessage(1, `{}`, commitAt(1)),
		rawMessage(2, poison, commitAt(2)),
	}}}
	ldr := &mockLoader{failures: 2}
	rec := &mockRecorder{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, &mockTransformer{poison: poison}, ldr, rec, observability.DiscardLogger(), metrics, 10)

	// Two failed loads back off 200ms then 400ms before the third succeeds.
	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))

	assert.Equal(t, 3, ldr.calls)
	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, int64(1), *ldr.loaded[0].PortID)
	assert.Equal(t, []int64{1}, rec.recorded)
	// The failed batch was retried in place: one fetch for it, one idle fetch after.
	assert.Equal(t, int64(2), ext.index.Load())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{1, 2}, committed)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TransformErrors), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.MessagesProduced), 0)
}

func TestPipeline_Run_LoadFailureHoldsPoisonCommit(t *testing.T) {
	var commits atomic.Int32
	commit := func(context.Context) error { commits.Add(1); return nil }
	ext := &mockExtractor{batches: [][]domain.RawMessage{{
		rawMessage(1, `{}`, commit),
		rawMessage(2, `bad`, commit),
	}}}

	p := pipeline.New(ext, &mockTransformer{poison: `bad`}, &mockLoader{err: errors.New("broker down")}, nil, observability.DiscardLogger(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Zero(t, commits.Load())
	assert.Equal(t, int64(1), ext.index.Load())
}

func TestPipeline_Run_RecordFailureStillCommits(t *testing.T) {
	committed := false
	ext := &mockExtractor{batches: [][]domain.RawMessage{{
		rawMessage(1, `{}`, func(context.Context) error { committed = true; return nil }),
	}}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, &mockRecorder{err: domain.ErrPortNotFound}, observability.DiscardLogger(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Len(t, ldr.loaded, 1)
	assert.True(t, committed)
}

func TestPipeline_Run_ExtractErrorBacksOff(t *testing.T) {
	p := pipeline.New(&mockExtractor{err: errors.New("leader not available")}, &mockTransformer{}, &mockLoader{}, nil, observability.DiscardLogger(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, p.Run(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)
}

// --- transformer ---

func TestReadingTransformer_Transform(t *testing.T) {
	tfm := pipeline.NewTransformer(fixedScorer{}, observability.DiscardLogger())

	raw := domain.RawMessage{
		Value:   []byte(`{"port_id":3,"wind_speed":10,"wind_unit":"ms","wave_height":1.5,"recorded_at":"2026-01-23T10:45:00+08:00"}`),
		Headers: map[string]string{"source": "buoy-17"},
	}
	out, err := tfm.Transform(context.Background(), raw)
	require.NoError(t, err)

	require.NotNil(t, out.PortID)
	assert.Equal(t, int64(3), *out.PortID)
	assert.Equal(t, "buoy-17", out.Origin)
	assert.InDelta(t, 36.0, out.Observation.WindSpeed, 1e-9)
	assert.Equal(t, time.Date(2026, 1, 23, 2, 45, 0, 0, time.UTC), out.Observation.RecordedAt)

	// wave 1.5 -> 35, wind 36 -> 60*0.3 = 18; round(35 + 18) = 53
	want := domain.RiskAssessment{Score: 53, Status: domain.StatusCaution, Source: domain.SourceHeuristicEngine}
	if diff := cmp.Diff(want, out.Assessment); diff != "" {
		t.Fatalf("assessment mismatch (-want +got):\n%s", diff)
	}
}

func TestReadingTransformer_Rejects(t *testing.T) {
	tfm := pipeline.NewTransformer(fixedScorer{}, observability.DiscardLogger())

	tests := []struct {
		name  string
		value string
		err   error
	}{
		{"not json", `{`, nil},
		{"no location", `{"wind_speed":5,"wave_height":1}`, domain.ErrMissingCoordinates},
		{"bad coordinate", `{"lat":95,"lon":0,"wind_speed":5,"wave_height":1}`, domain.ErrInvalidCoordinate},
		{"missing wave", `{"port_id":1,"wind_speed":5}`, domain.ErrInvalidObservation},
		{"unknown unit", `{"port_id":1,"wind_speed":5,"wind_unit":"bft","wave_height":1}`, domain.ErrUnknownUnit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tfm.Transform(context.Background(), domain.RawMessage{Value: []byte(tt.value)})
			require.Error(t, err)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}
