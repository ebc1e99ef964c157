package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/mu3/internal/domain/catalog"
)

// handleListModels handles GET /models?provider=&type=. Both filters apply when set.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_models"

	cat := s.deps.Catalog()
	provider := r.URL.Query().Get("provider")
	kind := catalog.Category(r.URL.Query().Get("type"))
	if kind != "" && !kind.Valid() {
		s.fail(w, r, fmt.Errorf("%s: %w: type %q", op, ErrBadRequest, kind))
		return
	}

	var models []catalog.Model
	switch {
	case kind != "":
		models = cat.ByCategory(kind)
	case provider != "":
		models = cat.ByProvider(provider)
	default:
		models = cat.All()
	}
	if kind != "" && provider != "" {
		filtered := make([]catalog.Model, 0, len(models))
		for _, m := range models {
			if m.Provider == provider {
				filtered = append(filtered, m)
			}
		}
		models = filtered
	}
	writeJSON(w, http.StatusOK, models)
}

// handleGetModel handles GET /models/{id}.
func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, ok := s.deps.Catalog().ByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, codeModelNotFound, fmt.Errorf("model %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, m)
}
