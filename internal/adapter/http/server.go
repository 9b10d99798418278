package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes health, readiness, metrics, and the risk API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api/v1 routes backed by api.
func NewServer(addr string, api API, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: mux,
			// Route analysis makes several sequential provider calls.
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	h := &handlers{api: api, logger: logger}
	mux.HandleFunc("POST /api/v1/score", h.score)
	mux.HandleFunc("GET /api/v1/waypoints", h.waypoints)
	mux.HandleFunc("GET /api/v1/forecast", h.forecast)
	mux.HandleFunc("GET /api/v1/routes", h.route)
	mux.HandleFunc("GET /api/v1/location", h.location)
	mux.HandleFunc("GET /api/v1/ports/{id}/alternative", h.alternative)
	mux.HandleFunc("POST /api/v1/ports/{id}/observations", h.recordObservation)
	mux.HandleFunc("POST /api/v1/ports/{id}/refresh", h.refreshPort)
	mux.HandleFunc("POST /api/v1/subscriptions", h.subscribe)
	mux.HandleFunc("GET /api/v1/subscriptions", h.listSubscriptions)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// Checks combines readiness checkers; the first failure wins.
type Checks []sharedobs.ReadinessChecker

func (c Checks) CheckReadiness(ctx context.Context) error {
	for _, check := range c {
		if err := check.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
