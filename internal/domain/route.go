package domain

import "fmt"

// DeepSeaWaveLimit is the checkpoint wave height (m) above which a route is
// flagged deep-sea risky regardless of the assessed status.
const DeepSeaWaveLimit = 2.5

// Checkpoint is one sampled open-water point on a route.
type Checkpoint struct {
	Waypoint    Waypoint       `json:"waypoint"`
	Observation Observation    `json:"observation"`
	Assessment  RiskAssessment `json:"assessment"`
}

// RouteAssessment is the route-level verdict over all checkpoints that had
// a forecast.
type RouteAssessment struct {
	IsDeepSeaRisky bool         `json:"is_deep_sea_risky"`
	MaxWaveHeight  float64      `json:"max_wave_height"`
	RouteRiskScore float64      `json:"route_risk_score"`
	Checkpoints    []Checkpoint `json:"checkpoints"`
}

// AggregateRoute folds checkpoints into a RouteAssessment. With no
// checkpoints the result is not risky with zero maxima.
func AggregateRoute(checkpoints []Checkpoint) RouteAssessment {
	out := RouteAssessment{Checkpoints: make([]Checkpoint, 0, len(checkpoints))}
	for _, cp := range checkpoints {
		wave := cp.Observation.WaveHeight
		if wave > out.MaxWaveHeight {
			out.MaxWaveHeight = wave
		}
		if cp.Assessment.Score > out.RouteRiskScore {
			out.RouteRiskScore = cp.Assessment.Score
		}
		if wave > DeepSeaWaveLimit || cp.Assessment.Status == StatusHighRisk {
			out.IsDeepSeaRisky = true
		}
		out.Checkpoints = append(out.Checkpoints, cp)
	}
	return out
}

// Verdict is a short label for metrics and logs.
func (r RouteAssessment) Verdict() string {
	switch {
	case len(r.Checkpoints) == 0:
		return "no_data"
	case r.IsDeepSeaRisky:
		return "risky"
	default:
		return "clear"
	}
}

// RouteAdviceType tags the trip advice variant.
type RouteAdviceType string

const (
	AdviseNotSafe RouteAdviceType = "not_safe"
	AdviseCaution RouteAdviceType = "caution"
	AdviseClear   RouteAdviceType = "clear"
)

// RouteAdvice is the traveller-facing verdict for a trip between two ports.
type RouteAdvice struct {
	Type    RouteAdviceType `json:"type"`
	Message string          `json:"message"`
	Alerts  []string        `json:"alerts"`
	// Alternative is only searched for when the trip is not safe.
	Alternative *RankedPort `json:"alternative,omitempty"`
}

// RouteReport combines the open-water assessment with the status of both
// ports and the resulting advice.
type RouteReport struct {
	Origin      PortReport `json:"origin"`
	Destination PortReport `json:"destination"`
	RouteAssessment
	Advice RouteAdvice `json:"advice"`
}

// AdviseRoute turns port statuses and a route assessment into advice.
// A High Risk port or a deep-sea risky route makes the trip not safe, and
// the nearest safe port within radiusKm of the origin is suggested. Unknown
// port statuses raise no alert.
func AdviseRoute(origin, destination PortReport, route RouteAssessment, reports []PortReport, radiusKm float64) RouteAdvice {
	advice := RouteAdvice{Alerts: []string{}}
	for _, end := range []struct {
		label  string
		report PortReport
	}{{"Origin", origin}, {"Destination", destination}} {
		if end.report.Status() == StatusHighRisk {
			advice.Alerts = append(advice.Alerts, fmt.Sprintf("%s port %s is High Risk (score %.0f)",
				end.label, end.report.Port.Name, end.report.Latest.Assessment.Score))
		}
	}
	if route.IsDeepSeaRisky {
		advice.Alerts = append(advice.Alerts, fmt.Sprintf("Deep sea conditions are risky (waves up to %.1f m)", route.MaxWaveHeight))
	}

	switch {
	case len(advice.Alerts) > 0:
		advice.Type = AdviseNotSafe
		advice.Message = "NOT SAFE to travel right now"
		// The origin has coordinates whenever the route was analyzed.
		if alt, err := AlternativeSafePort(origin.Port, reports, radiusKm); err == nil {
			advice.Alternative = alt
		}
	case origin.Status() == StatusCaution || destination.Status() == StatusCaution:
		advice.Type = AdviseCaution
		advice.Message = "Travel with caution"
	default:
		advice.Type = AdviseClear
		advice.Message = "Weather and route path look good"
	}
	return advice
}

// RouteCleared reports whether both ports have a known latest status that
// is not High Risk.
func RouteCleared(origin, destination PortReport) bool {
	for _, r := range []PortReport{origin, destination} {
		if s := r.Status(); s == StatusUnknown || s == StatusHighRisk {
			return false
		}
	}
	return true
}
