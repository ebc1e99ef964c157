package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/mu3/internal/gateway"
	"github.com/okian/mu3/pkg/metrics"
)

// handleHealth serves the Prometheus metrics of the custom registry.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

type readyResponse struct {
	State    string `json:"state"`
	Ready    bool   `json:"ready"`
	Fallback bool   `json:"fallback"`
}

// handleReady reports the gateway state. The service is usable in every
// state; unavailable means answers come from fallback content.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	st := s.deps.Gateway().State()
	resp := readyResponse{
		State:    st.String(),
		Ready:    st == gateway.StateReady,
		Fallback: st == gateway.StateUnavailable,
	}
	status := http.StatusOK
	if !st.Resolved() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
