package domain

import (
	"fmt"
	"math"
)

// Heuristic thresholds. See the package documentation for the formula.
const (
	waveScaleMeters = 3.0
	windScaleKmh    = 60.0
	waveWeight      = 0.7
	windWeight      = 0.3

	highRiskScore = 70
	cautionScore  = 30

	overrideWaveMeters = 2.0
	overrideWindKmh    = 50.0
	overrideMinScore   = 85
)

// HeuristicAssessment scores an observation with the deterministic fallback
// formula. It is pure: identical observations yield identical assessments.
func HeuristicAssessment(obs Observation) RiskAssessment {
	waveScore := math.Min(obs.WaveHeight/waveScaleMeters*100, 100)
	windScore := math.Min(obs.WindSpeed/windScaleKmh*100, 100)

	score := ClampScore(math.Round(waveScore*waveWeight + windScore*windWeight))
	status := StatusForScore(score)

	if obs.WaveHeight > overrideWaveMeters || obs.WindSpeed > overrideWindKmh {
		status = StatusHighRisk
		score = math.Max(score, overrideMinScore)
	}

	return RiskAssessment{
		Score:  score,
		Status: status,
		Source: SourceHeuristicEngine,
	}
}

// StatusForScore buckets a score without applying any overrides.
func StatusForScore(score float64) RiskStatus {
	switch {
	case score >= highRiskScore:
		return StatusHighRisk
	case score >= cautionScore:
		return StatusCaution
	default:
		return StatusSafe
	}
}

// ClampScore forces a score into [0, 100]. NaN becomes 0.
func ClampScore(score float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// ParsePrediction validates a predictive-service payload. A missing status
// defaults to Safe; a missing or non-finite score, or a status outside the
// known set, is rejected so the caller falls back to the heuristic.
func ParsePrediction(p Prediction) (RiskAssessment, error) {
	if p.Score == nil {
		return RiskAssessment{}, fmt.Errorf("prediction: missing risk_score")
	}
	score := *p.Score
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return RiskAssessment{}, fmt.Errorf("prediction: non-finite risk_score %v", score)
	}

	status := StatusSafe
	if p.Status != nil && *p.Status != "" {
		status = RiskStatus(*p.Status)
		if !status.Valid() {
			return RiskAssessment{}, fmt.Errorf("prediction: unknown risk_status %q", *p.Status)
		}
	}

	return RiskAssessment{
		Score:  ClampScore(score),
		Status: status,
		Source: SourceAIEngine,
	}, nil
}
