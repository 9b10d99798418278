package domain

import (
	"errors"
	"time"
)

var (
	// ErrInvalidObservation is returned when a reading cannot be turned into
	// a canonical Observation.
	ErrInvalidObservation = errors.New("invalid observation")

	// ErrMissingCoordinates is returned when a port or point lacks lat/lon.
	ErrMissingCoordinates = errors.New("missing coordinates")

	// ErrInvalidCoordinate is returned for out-of-range or non-finite lat/lon.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrPortNotFound is returned by port directories for unknown ids.
	ErrPortNotFound = errors.New("port not found")

	// ErrUnknownUnit is returned for unsupported wind or visibility units.
	ErrUnknownUnit = errors.New("unknown unit")

	// ErrProviderUnavailable wraps weather provider failures on paths that
	// must report them, such as an explicit port refresh.
	ErrProviderUnavailable = errors.New("weather provider unavailable")
)

// RiskStatus is the categorical bucket derived from a risk score.
type RiskStatus string

const (
	StatusSafe     RiskStatus = "Safe"
	StatusCaution  RiskStatus = "Caution"
	StatusHighRisk RiskStatus = "High Risk"

	// StatusUnknown marks a port with no observation on record. It is never
	// produced by scoring.
	StatusUnknown RiskStatus = "Unknown"
)

// Valid reports whether s is one of the statuses scoring can produce.
func (s RiskStatus) Valid() bool {
	switch s {
	case StatusSafe, StatusCaution, StatusHighRisk:
		return true
	default:
		return false
	}
}

// AssessmentSource identifies which tier produced a RiskAssessment.
type AssessmentSource string

const (
	SourceAIEngine        AssessmentSource = "AI_ENGINE"
	SourceHeuristicEngine AssessmentSource = "HEURISTIC_ENGINE"
)

// Observation is a canonical marine weather reading. Nullable fields are
// pointers; see the package documentation for units.
type Observation struct {
	WindSpeed     float64   `json:"wind_speed"`
	WaveHeight    float64   `json:"wave_height"`
	Visibility    *float64  `json:"visibility,omitempty"`
	TideLevel     *float64  `json:"tide_level,omitempty"`
	Precipitation *float64  `json:"precipitation,omitempty"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// RiskAssessment is derived from an Observation and never stored on its own.
type RiskAssessment struct {
	Score  float64          `json:"risk_score"`
	Status RiskStatus       `json:"risk_status"`
	Source AssessmentSource `json:"source"`
}

// AssessedObservation pairs an observation with its assessment and the
// place it was taken. Exactly one of PortID or Lat/Lon is normally set.
type AssessedObservation struct {
	PortID      *int64         `json:"port_id,omitempty"`
	Lat         *float64       `json:"lat,omitempty"`
	Lon         *float64       `json:"lon,omitempty"`
	Origin      string         `json:"origin,omitempty"` // reading source, e.g. "open-meteo", "manual"
	Observation Observation    `json:"observation"`
	Assessment  RiskAssessment `json:"assessment"`
}

// Prediction is the raw payload returned by the predictive risk service.
// Both fields are optional on the wire; see ParsePrediction.
type Prediction struct {
	Score  *float64 `json:"risk_score"`
	Status *string  `json:"risk_status"`
}

// RiskAlert is raised whenever a port observation is assessed High Risk.
type RiskAlert struct {
	PortID      int64          `json:"port_id"`
	PortName    string         `json:"port_name"`
	Observation Observation    `json:"observation"`
	Assessment  RiskAssessment `json:"assessment"`
	RaisedAt    time.Time      `json:"raised_at"`
}

// NewRiskAlert builds an alert stamped with the package clock.
func NewRiskAlert(port Port, obs Observation, a RiskAssessment) RiskAlert {
	return RiskAlert{
		PortID:      port.ID,
		PortName:    port.Name,
		Observation: obs,
		Assessment:  a,
		RaisedAt:    clock.Now().UTC(),
	}
}

// Float64 returns a pointer to v. Handy for nullable observation fields.
func Float64(v float64) *float64 { return &v }
