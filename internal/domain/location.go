package domain

import (
	"fmt"
	"math"
	"sort"
)

// Port is a ferry terminal. Coordinates are nullable because ports can be
// created before they are geolocated.
type Port struct {
	ID   int64    `json:"id"`
	Name string   `json:"name"`
	Lat  *float64 `json:"latitude"`
	Lon  *float64 `json:"longitude"`
}

// Location returns the port's coordinates, or false when either is missing.
func (p Port) Location() (Waypoint, bool) {
	if p.Lat == nil || p.Lon == nil {
		return Waypoint{}, false
	}
	return Waypoint{Lat: *p.Lat, Lon: *p.Lon}, true
}

// PortReport is a port together with its most recent assessed observation,
// if any.
type PortReport struct {
	Port   Port                 `json:"port"`
	Latest *AssessedObservation `json:"latest,omitempty"`
}

// Status returns the latest risk status, or StatusUnknown without data.
func (r PortReport) Status() RiskStatus {
	if r.Latest == nil {
		return StatusUnknown
	}
	return r.Latest.Assessment.Status
}

// RankedPort is a port annotated with its distance from a query point.
type RankedPort struct {
	Port       Port       `json:"port"`
	DistanceKm float64    `json:"distance_km"`
	RiskStatus RiskStatus `json:"risk_status"`
	RiskScore  float64    `json:"risk_score"`
	IsSafe     bool       `json:"is_safe"`
}

// RecommendationType tags the recommendation variant.
type RecommendationType string

const (
	RecommendSuccess RecommendationType = "success"
	RecommendWarning RecommendationType = "warning"
	RecommendDanger  RecommendationType = "danger"
)

// Recommendation tells a traveller which port to head for.
type Recommendation struct {
	Type    RecommendationType `json:"type"`
	Message string             `json:"message"`
	PortID  int64              `json:"port_id"`
	// ExtraDistanceKm is set for warnings: how much further the safe port is.
	ExtraDistanceKm float64 `json:"extra_distance_km,omitempty"`
}

// LocationAnalysis is the nearest-port verdict for a query point.
type LocationAnalysis struct {
	NearestSafePort *RankedPort     `json:"nearest_safe_port"`
	NearestAnyPort  *RankedPort     `json:"nearest_any_port"`
	Recommendation  *Recommendation `json:"recommendation"`
}

// RankPorts returns ports ordered by distance from the query point. Ports
// without coordinates are skipped. Any status other than High Risk counts
// as safe, including Unknown.
func RankPorts(from Waypoint, reports []PortReport) []RankedPort {
	ranked := make([]RankedPort, 0, len(reports))
	for _, r := range reports {
		loc, ok := r.Port.Location()
		if !ok {
			continue
		}
		status := r.Status()
		var score float64
		if r.Latest != nil {
			score = r.Latest.Assessment.Score
		}
		ranked = append(ranked, RankedPort{
			Port:       r.Port,
			DistanceKm: DistanceKm(from, loc),
			RiskStatus: status,
			RiskScore:  score,
			IsSafe:     status != StatusHighRisk,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})
	return ranked
}

// AnalyzeLocation picks the nearest port overall and the nearest safe port
// and derives a recommendation.
func AnalyzeLocation(from Waypoint, reports []PortReport) LocationAnalysis {
	ranked := RankPorts(from, reports)
	if len(ranked) == 0 {
		return LocationAnalysis{}
	}

	nearestAny := ranked[0]
	var nearestSafe *RankedPort
	for i := range ranked {
		if ranked[i].IsSafe {
			p := ranked[i]
			nearestSafe = &p
			break
		}
	}

	out := LocationAnalysis{NearestAnyPort: &nearestAny, NearestSafePort: nearestSafe}
	out.Recommendation = recommend(nearestAny, nearestSafe)
	return out
}

func recommend(nearestAny RankedPort, nearestSafe *RankedPort) *Recommendation {
	switch {
	case nearestSafe == nil:
		return &Recommendation{
			Type:    RecommendDanger,
			Message: "All nearby jetties report high risk conditions right now. Please exercise extreme caution.",
			PortID:  nearestAny.Port.ID,
		}
	case nearestSafe.Port.ID == nearestAny.Port.ID:
		return &Recommendation{
			Type:    RecommendSuccess,
			Message: fmt.Sprintf("The nearest jetty, %s, is currently safe for travel.", nearestSafe.Port.Name),
			PortID:  nearestSafe.Port.ID,
		}
	default:
		extra := math.Round((nearestSafe.DistanceKm-nearestAny.DistanceKm)*10) / 10
		return &Recommendation{
			Type: RecommendWarning,
			Message: fmt.Sprintf("The nearest jetty %s is currently High Risk. We recommend %s instead (extra %.1f km).",
				nearestAny.Port.Name, nearestSafe.Port.Name, extra),
			PortID:          nearestSafe.Port.ID,
			ExtraDistanceKm: extra,
		}
	}
}

// AlternativeSafePort returns the closest other port within radiusKm of the
// given port whose latest status is known and not High Risk.
func AlternativeSafePort(from Port, reports []PortReport, radiusKm float64) (*RankedPort, error) {
	loc, ok := from.Location()
	if !ok {
		return nil, fmt.Errorf("port %d: %w", from.ID, ErrMissingCoordinates)
	}
	for _, rp := range RankPorts(loc, reports) {
		if rp.Port.ID == from.ID {
			continue
		}
		if rp.DistanceKm > radiusKm {
			break
		}
		if rp.RiskStatus != StatusUnknown && rp.IsSafe {
			return &rp, nil
		}
	}
	return nil, nil
}
