package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/ferry-risk/internal/domain"
)

// Scorer assesses a canonical observation.
type Scorer interface {
	Score(ctx context.Context, obs domain.Observation) domain.RiskAssessment
}

// ReadingTransformer implements Transformer: decode, normalize, score.
type ReadingTransformer struct {
	scorer Scorer
	logger *slog.Logger
}

// NewTransformer creates a ReadingTransformer.
func NewTransformer(scorer Scorer, logger *slog.Logger) *ReadingTransformer {
	return &ReadingTransformer{scorer: scorer, logger: logger}
}

// Transform rejects readings without a port or a complete coordinate.
func (t *ReadingTransformer) Transform(ctx context.Context, raw domain.RawMessage) (domain.AssessedObservation, error) {
	reading, err := domain.ParseRawReading(raw.Value)
	if err != nil {
		return domain.AssessedObservation{}, err
	}

	if reading.PortID == nil {
		if reading.Lat == nil || reading.Lon == nil {
			return domain.AssessedObservation{}, fmt.Errorf("reading has no port_id or lat/lon: %w", domain.ErrMissingCoordinates)
		}
		if !domain.ValidCoordinate(*reading.Lat, *reading.Lon) {
			return domain.AssessedObservation{}, fmt.Errorf("%w: %v,%v", domain.ErrInvalidCoordinate, *reading.Lat, *reading.Lon)
		}
	}

	obs, err := domain.NormalizeReading(reading)
	if err != nil {
		return domain.AssessedObservation{}, err
	}

	origin := reading.Source
	if origin == "" {
		origin = raw.Headers["source"]
	}

	return domain.AssessedObservation{
		PortID:      reading.PortID,
		Lat:         reading.Lat,
		Lon:         reading.Lon,
		Origin:      origin,
		Observation: obs,
		Assessment:  t.scorer.Score(ctx, obs),
	}, nil
}
