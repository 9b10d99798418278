package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/ferry-risk/internal/domain"
	"github.com/couchcryptid/ferry-risk/internal/observability"
)

// BatchExtractor reads up to batchSize raw readings from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawMessage, error)
}

// Transformer turns a raw message into an assessed observation.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawMessage) (domain.AssessedObservation, error)
}

// BatchLoader writes assessed observations to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, batch []domain.AssessedObservation) error
}

// Recorder persists port-attached observations after they are loaded.
type Recorder interface {
	Record(ctx context.Context, ao domain.AssessedObservation) error
}

// Pipeline orchestrates the extract-assess-load loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	recorder    Recorder
	logger      *slog.Logger
	metrics     *observability.Metrics
	batchSize   int
}

// New creates a Pipeline with the given stages and observability. recorder
// may be nil to skip persistence.
func New(e BatchExtractor, t Transformer, l BatchLoader, r Recorder, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		recorder:    r,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// Run executes the batch loop until the context is cancelled. Extract and
// load failures are retried with exponential backoff.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	retry := newBackoff(200*time.Millisecond, 5*time.Second)
	for ctx.Err() == nil {
		if !p.step(ctx, retry) {
			break
		}
	}
	p.logger.Info("pipeline stopping", "reason", context.Cause(ctx))
	return nil
}

// step runs one extract-assess-load cycle and reports whether to continue.
// Offsets are committed only once the batch is loaded, so a failed load is
// retried on the same batch rather than skipped.
func (p *Pipeline) step(ctx context.Context, retry *backoff) bool {
	start := time.Now()

	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	switch {
	case ctx.Err() != nil:
		return false
	case err != nil:
		p.logger.Error("extract batch failed", "error", err, "retry_in", retry.current)
		return retry.wait(ctx)
	case len(batch) == 0:
		return true
	}
	retry.reset()

	p.metrics.MessagesConsumed.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))

	assessed, ok := p.assess(ctx, batch)
	if len(assessed) > 0 && !p.load(ctx, assessed, retry) {
		return false
	}

	// Commit in fetch order, poison messages included, so the group offset
	// never passes a reading that was not loaded.
	next := 0
	for i, msg := range batch {
		if ok[i] {
			p.record(ctx, assessed[next])
			next++
		}
		p.commit(ctx, msg)
	}
	if len(assessed) > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	}
	return true
}

// assess transforms each message. Messages that fail are poison: they are
// logged and counted, and ok[i] is false for them.
func (p *Pipeline) assess(ctx context.Context, batch []domain.RawMessage) ([]domain.AssessedObservation, []bool) {
	assessed := make([]domain.AssessedObservation, 0, len(batch))
	ok := make([]bool, len(batch))
	for i, msg := range batch {
		ao, err := p.transformer.Transform(ctx, msg)
		if err != nil {
			p.logger.Warn("skipping unreadable reading",
				"error", err,
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			p.metrics.TransformErrors.Inc()
			continue
		}
		assessed = append(assessed, ao)
		ok[i] = true
	}
	return assessed, ok
}

// load writes the batch, retrying with backoff until it succeeds. Returns
// false if ctx ended first.
func (p *Pipeline) load(ctx context.Context, assessed []domain.AssessedObservation, retry *backoff) bool {
	for {
		err := p.loader.LoadBatch(ctx, assessed)
		if err == nil {
			retry.reset()
			p.metrics.MessagesProduced.Add(float64(len(assessed)))
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("load batch failed", "error", err, "batch_size", len(assessed), "retry_in", retry.current)
		if !retry.wait(ctx) {
			return false
		}
	}
}

// record failures are logged; the assessment is already on the sink topic.
func (p *Pipeline) record(ctx context.Context, ao domain.AssessedObservation) {
	if p.recorder == nil || ao.PortID == nil {
		return
	}
	if err := p.recorder.Record(ctx, ao); err != nil {
		p.logger.Warn("record observation failed", "port_id", *ao.PortID, "error", err)
	}
}

func (p *Pipeline) commit(ctx context.Context, msg domain.RawMessage) {
	if msg.Commit == nil {
		return
	}
	if err := msg.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	}
}

// backoff doubles its delay on every wait, up to max.
type backoff struct {
	initial, max, current time.Duration
}

func newBackoff(initial, maxDelay time.Duration) *backoff {
	return &backoff{initial: initial, max: maxDelay, current: initial}
}

func (b *backoff) reset() { b.current = b.initial }

// wait sleeps for the current delay and advances it. Returns false if ctx
// ended first.
func (b *backoff) wait(ctx context.Context) bool {
	timer := time.NewTimer(b.current)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}
	b.current = min(b.current*2, b.max)
	return true
}
