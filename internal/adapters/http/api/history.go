package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleHistory handles GET /history/{kind} for battle, chat and image.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.History(r.Context(), chi.URLParam(r, "kind"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// handleEndSession handles DELETE /session.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if !s.deps.EndSession(r.Header.Get(SessionHeader)) {
		writeError(w, http.StatusNotFound, codeNotFound, ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
