package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// RawReading is a reading as delivered by any upstream source: buoys, the
// manual entry form, or a weather provider. Units vary by source.
type RawReading struct {
	Source         string   `json:"source"`
	PortID         *int64   `json:"port_id,omitempty"`
	Lat            *float64 `json:"lat,omitempty"`
	Lon            *float64 `json:"lon,omitempty"`
	WindSpeed      *float64 `json:"wind_speed"`
	WindUnit       string   `json:"wind_unit,omitempty"` // kmh (default), ms, kn, mph
	WaveHeight     *float64 `json:"wave_height"`
	Visibility     *float64 `json:"visibility,omitempty"`
	VisibilityUnit string   `json:"visibility_unit,omitempty"` // km (default), m, mi
	TideLevel      *float64 `json:"tide_level,omitempty"`
	Precipitation  *float64 `json:"precipitation,omitempty"`
	RecordedAt     string   `json:"recorded_at,omitempty"` // RFC 3339
}

var windToKmh = map[string]float64{
	"":    1,
	"kmh": 1,
	"ms":  3.6,
	"kn":  1.852,
	"mph": 1.609344,
}

var visibilityToKm = map[string]float64{
	"":   1,
	"km": 1,
	"m":  0.001,
	"mi": 1.609344,
}

// ParseRawReading decodes a JSON reading without validating it.
func ParseRawReading(data []byte) (RawReading, error) {
	var r RawReading
	if err := json.Unmarshal(data, &r); err != nil {
		return RawReading{}, fmt.Errorf("parse raw reading: %w", err)
	}
	return r, nil
}

// NormalizeReading converts a raw reading into a canonical Observation.
// Wind and wave height are required; the nullable fields stay nil when
// absent. A missing timestamp is filled from the package clock.
func NormalizeReading(r RawReading) (Observation, error) {
	if r.WindSpeed == nil {
		return Observation{}, fmt.Errorf("%w: wind_speed is required", ErrInvalidObservation)
	}
	if r.WaveHeight == nil {
		return Observation{}, fmt.Errorf("%w: wave_height is required", ErrInvalidObservation)
	}

	windFactor, ok := windToKmh[strings.ToLower(strings.TrimSpace(r.WindUnit))]
	if !ok {
		return Observation{}, fmt.Errorf("wind_unit %q: %w", r.WindUnit, ErrUnknownUnit)
	}
	visFactor, ok := visibilityToKm[strings.ToLower(strings.TrimSpace(r.VisibilityUnit))]
	if !ok {
		return Observation{}, fmt.Errorf("visibility_unit %q: %w", r.VisibilityUnit, ErrUnknownUnit)
	}

	obs := Observation{
		WindSpeed:  *r.WindSpeed * windFactor,
		WaveHeight: *r.WaveHeight,
	}
	if r.Visibility != nil {
		obs.Visibility = Float64(*r.Visibility * visFactor)
	}
	if r.TideLevel != nil {
		obs.TideLevel = Float64(*r.TideLevel)
	}
	if r.Precipitation != nil {
		obs.Precipitation = Float64(*r.Precipitation)
	}

	recordedAt, err := parseRecordedAt(r.RecordedAt)
	if err != nil {
		return Observation{}, err
	}
	obs.RecordedAt = recordedAt

	if err := ValidateObservation(obs); err != nil {
		return Observation{}, err
	}
	return obs, nil
}

// ValidateObservation enforces the canonical ranges: wind, wave height,
// visibility and precipitation must be finite and non-negative; tide level
// must be finite.
func ValidateObservation(obs Observation) error {
	if err := nonNegative("wind_speed", obs.WindSpeed); err != nil {
		return err
	}
	if err := nonNegative("wave_height", obs.WaveHeight); err != nil {
		return err
	}
	if obs.Visibility != nil {
		if err := nonNegative("visibility", *obs.Visibility); err != nil {
			return err
		}
	}
	if obs.Precipitation != nil {
		if err := nonNegative("precipitation", *obs.Precipitation); err != nil {
			return err
		}
	}
	if obs.TideLevel != nil && !finite(*obs.TideLevel) {
		return fmt.Errorf("%w: tide_level must be finite", ErrInvalidObservation)
	}
	return nil
}

func parseRecordedAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return clock.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: recorded_at: %v", ErrInvalidObservation, err)
	}
	return t.UTC(), nil
}

func nonNegative(field string, v float64) error {
	if !finite(v) || v < 0 {
		return fmt.Errorf("%w: %s must be a non-negative number, got %v", ErrInvalidObservation, field, v)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
