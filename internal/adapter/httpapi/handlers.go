package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/couchcryptid/incident-analytics/internal/dataset"
	"github.com/couchcryptid/incident-analytics/internal/domain"
)

// errorResponse is the JSON body for every non-2xx API response.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleYearlyCounts(w http.ResponseWriter, r *http.Request) {
	yr, ok := s.yearRange(w, r)
	if !ok {
		return
	}
	counts, err := s.svc.YearlyCounts(r.Context(), yr)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleTopDistricts(w http.ResponseWriter, r *http.Request) {
	yr, ok := s.yearRange(w, r)
	if !ok {
		return
	}
	limit, ok := intParam(w, r, "limit")
	if !ok {
		return
	}
	districts, err := s.svc.TopDistricts(r.Context(), yr, limit)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, districts)
}

func (s *Server) handleGeoSample(w http.ResponseWriter, r *http.Request) {
	yr, ok := s.yearRange(w, r)
	if !ok {
		return
	}
	maxPoints, ok := intParam(w, r, "max_points")
	if !ok {
		return
	}
	points, err := s.svc.GeoSample(r.Context(), yr, maxPoints)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleArrestRates(w http.ResponseWriter, r *http.Request) {
	yr, ok := s.yearRange(w, r)
	if !ok {
		return
	}
	rates, err := s.svc.ArrestRateByPeriod(r.Context(), yr)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rates)
}

func (s *Server) handleCrosstab(w http.ResponseWriter, r *http.Request) {
	yr, ok := s.yearRange(w, r)
	if !ok {
		return
	}
	topTypes, ok := intParam(w, r, "top_types")
	if !ok {
		return
	}
	matrix, err := s.svc.TypePeriodCrosstab(r.Context(), yr, topTypes)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matrix)
}

func (s *Server) handleCooccurrence(w http.ResponseWriter, r *http.Request) {
	yr, ok := s.yearRange(w, r)
	if !ok {
		return
	}
	matrix, err := s.svc.CooccurrenceMatrix(r.Context(), yr)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matrix)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Refresh(r.Context()); err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

// yearRange parses min_year/max_year, falling back to the configured default
// range. Writes a 400 and returns ok=false on bad input.
func (s *Server) yearRange(w http.ResponseWriter, r *http.Request) (domain.YearRange, bool) {
	yr := s.defaultRange

	if v := r.URL.Query().Get("min_year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid min_year: %q", v)})
			return domain.YearRange{}, false
		}
		yr.Min = n
	}
	if v := r.URL.Query().Get("max_year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid max_year: %q", v)})
			return domain.YearRange{}, false
		}
		yr.Max = n
	}

	if err := yr.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return domain.YearRange{}, false
	}
	return yr, true
}

// intParam parses an optional positive integer query parameter; 0 means
// "use the service default". Writes a 400 and returns ok=false on bad input.
func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid %s: %q", name, v)})
		return 0, false
	}
	return n, true
}

// writeQueryError maps service errors to HTTP statuses: 400 for an invalid
// range, 503 when the source is unavailable, 500 otherwise.
func (s *Server) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	var invalidRange *domain.InvalidRangeError
	switch {
	case errors.As(err, &invalidRange):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case dataset.IsDataUnavailable(err):
		s.logger.Error("query failed, dataset unavailable", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("query failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
