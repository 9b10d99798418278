package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/ferry-risk/internal/domain"
	"github.com/couchcryptid/ferry-risk/internal/observability"
)

// Scorer assesses observations with the predictive service first and the
// deterministic heuristic when that fails.
type Scorer struct {
	predictor domain.Predictor
	timeout   time.Duration
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewScorer creates a two-tier scorer. A nil predictor disables the primary
// tier so every assessment is heuristic.
func NewScorer(predictor domain.Predictor, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Scorer {
	return &Scorer{
		predictor: predictor,
		timeout:   timeout,
		metrics:   metrics,
		logger:    logger,
	}
}

// Score never fails. One predictor attempt is made, without retries.
func (s *Scorer) Score(ctx context.Context, obs domain.Observation) domain.RiskAssessment {
	if s.predictor != nil {
		a, err := s.predict(ctx, obs)
		if err == nil {
			s.metrics.Assessments.WithLabelValues(string(a.Source)).Inc()
			return a
		}
		s.logger.Warn("predictive service unavailable, using heuristic",
			"error", err,
			"wind_speed", obs.WindSpeed,
			"wave_height", obs.WaveHeight,
		)
	}

	a := domain.HeuristicAssessment(obs)
	s.metrics.Assessments.WithLabelValues(string(a.Source)).Inc()
	return a
}

func (s *Scorer) predict(ctx context.Context, obs domain.Observation) (domain.RiskAssessment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	p, err := s.predictor.Predict(ctx, obs)
	s.metrics.PredictorDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.PredictorRequests.WithLabelValues("error").Inc()
		return domain.RiskAssessment{}, err
	}

	a, err := domain.ParsePrediction(p)
	if err != nil {
		s.metrics.PredictorRequests.WithLabelValues("malformed").Inc()
		return domain.RiskAssessment{}, fmt.Errorf("malformed prediction: %w", err)
	}
	s.metrics.PredictorRequests.WithLabelValues("success").Inc()
	return a, nil
}
