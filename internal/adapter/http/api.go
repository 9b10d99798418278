package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/couchcryptid/ferry-risk/internal/domain"
)

const (
	maxBodyBytes = 1 << 20
	maxSteps     = 100
	defaultSteps = 2
	manualOrigin = "manual"
)

// Scorer assesses an observation.
type Scorer interface {
	Score(ctx context.Context, obs domain.Observation) domain.RiskAssessment
}

// Sampler interpolates waypoints and fetches point forecasts.
type Sampler interface {
	Waypoints(origin, destination domain.Waypoint, steps int) []domain.Waypoint
	Forecast(ctx context.Context, lat, lon float64) (domain.Observation, bool)
}

// TripPlanner judges a trip between two stored ports and advises on it.
type TripPlanner interface {
	PlanTrip(ctx context.Context, originID, destinationID int64) (domain.RouteReport, error)
}

// LocationAnalyzer answers nearest-port questions.
type LocationAnalyzer interface {
	AnalyzeLocation(ctx context.Context, lat, lon float64) (domain.LocationAnalysis, error)
	FindAlternativeSafePort(ctx context.Context, portID int64, radiusKm float64) (*domain.RankedPort, error)
}

// Assessor scores and records an observation against a port.
type Assessor interface {
	Assess(ctx context.Context, port domain.Port, obs domain.Observation, origin string) (domain.AssessedObservation, error)
}

// PortRefresher pulls fresh provider conditions for one port.
type PortRefresher interface {
	RefreshPort(ctx context.Context, id int64) (domain.AssessedObservation, error)
}

// SubscriptionService registers and lists route subscriptions.
type SubscriptionService interface {
	Subscribe(ctx context.Context, chatID string, originID, destinationID int64) (domain.RouteSubscription, error)
	Subscriptions(ctx context.Context, chatID string) ([]domain.RouteSubscription, error)
}

// API bundles the engine components the HTTP routes call into.
type API struct {
	Scorer    Scorer
	Sampler   Sampler
	Trips     TripPlanner
	Locations LocationAnalyzer
	Ports     domain.PortDirectory
	Assessor  Assessor
	Refresher PortRefresher

	Subscriptions SubscriptionService
}

type handlers struct {
	api    API
	logger *slog.Logger
}

func (h *handlers) score(w http.ResponseWriter, r *http.Request) {
	obs, err := decodeReading(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.api.Scorer.Score(r.Context(), obs))
}

func (h *handlers) waypoints(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parsePoint(q.Get("from"))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("from: %w", err))
		return
	}
	to, err := parsePoint(q.Get("to"))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("to: %w", err))
		return
	}
	steps := defaultSteps
	if s := q.Get("steps"); s != "" {
		steps, err = strconv.Atoi(s)
		if err != nil || steps < 0 || steps > maxSteps {
			h.writeError(w, r, badRequest("steps must be an integer between 0 and %d", maxSteps))
			return
		}
	}
	writeJSON(w, http.StatusOK, h.api.Sampler.Waypoints(from, to, steps))
}

func (h *handlers) forecast(w http.ResponseWriter, r *http.Request) {
	lat, lon, err := parseLatLon(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	obs, ok := h.api.Sampler.Forecast(r.Context(), lat, lon)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": string(domain.StatusUnknown)})
		return
	}
	writeJSON(w, http.StatusOK, obs)
}

func (h *handlers) route(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	originID, err := parseID(q.Get("origin"))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("origin: %w", err))
		return
	}
	destID, err := parseID(q.Get("destination"))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("destination: %w", err))
		return
	}

	result, err := h.api.Trips.PlanTrip(r.Context(), originID, destID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) location(w http.ResponseWriter, r *http.Request) {
	lat, lon, err := parseLatLon(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	result, err := h.api.Locations.AnalyzeLocation(r.Context(), lat, lon)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) alternative(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var radius float64
	if s := r.URL.Query().Get("radius_km"); s != "" {
		radius, err = strconv.ParseFloat(s, 64)
		if err != nil || radius <= 0 {
			h.writeError(w, r, badRequest("radius_km must be a positive number"))
			return
		}
	}

	alt, err := h.api.Locations.FindAlternativeSafePort(r.Context(), id, radius)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]*domain.RankedPort{"alternative": alt})
}

func (h *handlers) recordObservation(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	port, err := h.api.Ports.GetPort(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	obs, err := decodeReading(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ao, err := h.api.Assessor.Assess(r.Context(), port, obs, manualOrigin)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ao)
}

func (h *handlers) refreshPort(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ao, err := h.api.Refresher.RefreshPort(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ao)
}

type subscribeRequest struct {
	ChatID            string `json:"chat_id"`
	OriginPortID      int64  `json:"origin_port_id"`
	DestinationPortID int64  `json:"destination_port_id"`
}

func (h *handlers) subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, r, badRequest("decode body: %v", err))
		return
	}
	sub, err := h.api.Subscriptions.Subscribe(r.Context(), req.ChatID, req.OriginPortID, req.DestinationPortID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *handlers) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	chatID := r.URL.Query().Get("chat_id")
	if chatID == "" {
		h.writeError(w, r, badRequest("chat_id is required"))
		return
	}
	subs, err := h.api.Subscriptions.Subscriptions(r.Context(), chatID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

// errBadRequest marks malformed query or path parameters.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrPortNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errBadRequest), errors.Is(err, domain.ErrInvalidCoordinate):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidObservation),
		errors.Is(err, domain.ErrInvalidSubscription),
		errors.Is(err, domain.ErrUnknownUnit),
		errors.Is(err, domain.ErrMissingCoordinates):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrProviderUnavailable):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decodeReading accepts a raw reading so callers may send non-default units.
func decodeReading(w http.ResponseWriter, r *http.Request) (domain.Observation, error) {
	var reading domain.RawReading
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&reading); err != nil {
		return domain.Observation{}, badRequest("decode body: %v", err)
	}
	return domain.NormalizeReading(reading)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid port id %q", s)
	}
	return id, nil
}

func parseLatLon(r *http.Request) (float64, float64, error) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return 0, 0, badRequest("invalid lat %q", q.Get("lat"))
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		return 0, 0, badRequest("invalid lon %q", q.Get("lon"))
	}
	if !domain.ValidCoordinate(lat, lon) {
		return 0, 0, fmt.Errorf("%w: %v,%v", domain.ErrInvalidCoordinate, lat, lon)
	}
	return lat, lon, nil
}

// parsePoint reads "lat,lon".
func parsePoint(s string) (domain.Waypoint, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return domain.Waypoint{}, badRequest("expected lat,lon, got %q", s)
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err1 != nil || err2 != nil {
		return domain.Waypoint{}, badRequest("expected lat,lon, got %q", s)
	}
	if !domain.ValidCoordinate(lat, lon) {
		return domain.Waypoint{}, fmt.Errorf("%w: %v,%v", domain.ErrInvalidCoordinate, lat, lon)
	}
	return domain.Waypoint{Lat: lat, Lon: lon}, nil
}
