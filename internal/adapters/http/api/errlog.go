package api

import (
	"net/http"

	"github.com/okian/mu3/internal/errreg"
)

// handleListErrors handles GET /errors?category=&severity=, newest first.
func (s *Server) handleListErrors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	recs := s.registry.Errors(errreg.Filter{
		Category: errreg.Category(q.Get("category")),
		Severity: errreg.Severity(q.Get("severity")),
	})
	writeJSON(w, http.StatusOK, recs)
}

// handleErrorStats handles GET /errors/stats.
func (s *Server) handleErrorStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Stats())
}

// handleClearErrors handles DELETE /errors.
func (s *Server) handleClearErrors(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Clear(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
