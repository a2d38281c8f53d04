package http

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/climavida/heatzone-service/internal/domain"
	"github.com/gorilla/mux"
)

const (
	roleHeader = "X-User-Role"
	// reloadRetryAfter is the Retry-After hint, in seconds, after a failed reload.
	reloadRetryAfter = "30"
	reloadTimeout    = 30 * time.Second
)

type healthResponse struct {
	Status      string     `json:"status"`
	ZonesLoaded int        `json:"zones_loaded"`
	LoadedAt    *time.Time `json:"loaded_at"`
	Source      string     `json:"source,omitempty"`
}

type reportResponse struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Title       string             `json:"title"`
	Source      string             `json:"source"`
	Statistics  domain.Statistics  `json:"statistics"`
	Rows        []domain.ReportRow `json:"rows"`
}

type reloadResponse struct {
	Status      string                   `json:"status"`
	ZonesLoaded int                      `json:"zones_loaded"`
	LoadedAt    time.Time                `json:"loaded_at"`
	Warnings    []domain.CoercionWarning `json:"warnings"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.service.Snapshot()
	resp := healthResponse{
		Status:      "healthy",
		ZonesLoaded: snap.Len(),
		Source:      snap.Source(),
	}
	if at := snap.LoadedAt(); !at.IsZero() {
		resp.LoadedAt = &at
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleZones(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Snapshot().All())
}

func (s *Server) handleZone(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "zone id must be an integer")
		return
	}

	detail, err := s.service.Snapshot().Detail(id, audienceOf(r))
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "zone not found")
		return
	}
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// handleZonesByTier answers an unknown tier name with an empty list.
func (s *Server) handleZonesByTier(w http.ResponseWriter, r *http.Request) {
	tier, ok := domain.ParseTier(mux.Vars(r)["tier"])
	if !ok {
		writeJSON(w, http.StatusOK, []domain.Zone{})
		return
	}
	writeJSON(w, http.StatusOK, s.service.Snapshot().ByTier(tier))
}

func (s *Server) handleStatistics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, roundStatistics(s.service.Snapshot().Statistics()))
}

func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	snap := s.service.Snapshot()
	if snap.Len() == 0 {
		writeError(w, http.StatusNotFound, "no zone data available for the report")
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{
		GeneratedAt: domain.Now().UTC(),
		Title:       "Heat risk zone report",
		Source:      snap.Source(),
		Statistics:  roundStatistics(snap.Statistics()),
		Rows:        snap.ReportRows(),
	})
}

// handleReload is restricted to managers. The role header is trusted as-is.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if role, ok := domain.ParseAudience(r.Header.Get(roleHeader)); !ok || role != domain.AudienceManager {
		writeError(w, http.StatusForbidden, "reload requires the manager role")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), reloadTimeout)
	defer cancel()

	set, err := s.service.Reload(ctx)
	if err != nil {
		if domain.IsLoadFailure(err) {
			w.Header().Set("Retry-After", reloadRetryAfter)
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.internalError(w, err)
		return
	}

	warnings := set.Warnings()
	if warnings == nil {
		warnings = []domain.CoercionWarning{}
	}
	writeJSON(w, http.StatusOK, reloadResponse{
		Status:      "reloaded",
		ZonesLoaded: set.Len(),
		LoadedAt:    set.LoadedAt(),
		Warnings:    warnings,
	})
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

// audienceOf reads ?audience= first, then the role header, defaulting to manager.
func audienceOf(r *http.Request) domain.Audience {
	if a, ok := domain.ParseAudience(r.URL.Query().Get("audience")); ok {
		return a
	}
	a, _ := domain.ParseAudience(r.Header.Get(roleHeader))
	return a
}

// roundStatistics rounds means for presentation: temperature to one decimal,
// vegetation and criticality to two.
func roundStatistics(st domain.Statistics) domain.Statistics {
	st.AvgTemperature = round(st.AvgTemperature, 1)
	st.AvgVegetationIndex = round(st.AvgVegetationIndex, 2)
	st.AvgCriticalityIndex = round(st.AvgCriticalityIndex, 2)
	return st
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client disconnects are not actionable
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
