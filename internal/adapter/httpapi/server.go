// Package httpapi exposes the analytics query interface over HTTP, plus the
// health, readiness, and metrics endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/incident-analytics/internal/analytics"
	"github.com/couchcryptid/incident-analytics/internal/domain"
)

// Analytics is the query surface the API serves.
type Analytics interface {
	YearlyCounts(ctx context.Context, r domain.YearRange) ([]analytics.YearCount, error)
	TopDistricts(ctx context.Context, r domain.YearRange, n int) ([]analytics.DistrictCount, error)
	GeoSample(ctx context.Context, r domain.YearRange, maxPoints int) ([]analytics.GeoPoint, error)
	ArrestRateByPeriod(ctx context.Context, r domain.YearRange) ([]analytics.PeriodRate, error)
	TypePeriodCrosstab(ctx context.Context, r domain.YearRange, topTypes int) (analytics.CountMatrix, error)
	CooccurrenceMatrix(ctx context.Context, r domain.YearRange) (analytics.CorrelationMatrix, error)
	Refresh(ctx context.Context) error
	CheckReadiness(ctx context.Context) error
}

// Server exposes the query API and operational HTTP endpoints.
type Server struct {
	httpServer   *http.Server
	svc          Analytics
	defaultRange domain.YearRange
	logger       *slog.Logger
}

// NewServer creates the HTTP server. defaultRange is applied when a query
// omits min_year/max_year.
func NewServer(addr string, svc Analytics, defaultRange domain.YearRange, logger *slog.Logger) *Server {
	s := &Server{
		svc:          svc,
		defaultRange: defaultRange,
		logger:       logger,
	}

	r := mux.NewRouter()
	r.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Subrouters do not inherit the root's MethodNotAllowedHandler; without
	// it a method mismatch under /api/v1 falls through to a 404.
	api := r.PathPrefix("/api/v1").Subrouter()
	api.MethodNotAllowedHandler = r.MethodNotAllowedHandler
	api.HandleFunc("/incidents/yearly-counts", s.handleYearlyCounts).Methods(http.MethodGet)
	api.HandleFunc("/incidents/top-districts", s.handleTopDistricts).Methods(http.MethodGet)
	api.HandleFunc("/incidents/geo-sample", s.handleGeoSample).Methods(http.MethodGet)
	api.HandleFunc("/incidents/arrest-rates", s.handleArrestRates).Methods(http.MethodGet)
	api.HandleFunc("/incidents/crosstab", s.handleCrosstab).Methods(http.MethodGet)
	api.HandleFunc("/incidents/cooccurrence", s.handleCooccurrence).Methods(http.MethodGet)
	api.HandleFunc("/dataset/refresh", s.handleRefresh).Methods(http.MethodPost)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.svc.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed: " + r.Method})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
