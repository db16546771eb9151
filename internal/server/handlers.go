package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/quandify2mqtt/quandify2mqtt/internal/log"
	"github.com/quandify2mqtt/quandify2mqtt/internal/poller"
)

// handleHealthz reports liveness. Serving stale data is degraded but alive;
// only a coordinator that has never succeeded and is failing returns 503.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	status, message := s.poller.Health()
	if status == poller.HealthError {
		http.Error(w, message, http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type statusResponse struct {
	Status              string   `json:"status"`
	Message             string   `json:"message,omitempty"`
	OrganizationID      string   `json:"organization_id"`
	HasData             bool     `json:"has_data"`
	Stale               bool     `json:"stale"`
	ConsecutiveFailures int      `json:"consecutive_failures"`
	LastAttempt         string   `json:"last_attempt,omitempty"`
	LastSuccess         string   `json:"last_success,omitempty"`
	DailyLiters         *float64 `json:"daily_liters,omitempty"`
	HourlyLiters        *float64 `json:"hourly_liters,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.poller.Snapshot()
	status, message := s.poller.Health()

	resp := statusResponse{
		Status:              string(status),
		Message:             message,
		OrganizationID:      s.organizationID,
		HasData:             snap.HasData(),
		Stale:               snap.Stale,
		ConsecutiveFailures: snap.ConsecutiveFailures,
	}
	if !snap.LastAttempt.IsZero() {
		resp.LastAttempt = snap.LastAttempt.Format(time.RFC3339)
	}
	if snap.HasData() {
		resp.LastSuccess = snap.LastSuccess.Format(time.RFC3339)
		daily := snap.Daily.VolumeLiters
		hourly := snap.Hourly.VolumeLiters
		resp.DailyLiters = &daily
		resp.HourlyLiters = &hourly
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Ctx(r.Context()).WarnContext(r.Context(), "failed to encode status", "error", err)
	}
}

// handleRefresh schedules an out-of-band fetch. The fetch happens on the
// poller goroutine; the request returns immediately.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.poller.Refresh()
	log.Ctx(r.Context()).InfoContext(r.Context(), "manual refresh requested")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte(`{"scheduled":true}`))
}
