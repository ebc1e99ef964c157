package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/mu3/internal/adapters/storage"
	"github.com/okian/mu3/internal/domain/validation"
)

// handleGetPreferences handles GET /preferences.
func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := storage.LoadPreferences(r.Context(), s.deps.Store())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handlePutPreferences handles PUT /preferences. Fields missing from the
// body keep their stored values.
func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := storage.LoadPreferences(ctx, s.deps.Store())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := decode(r, &p); err != nil {
		s.fail(w, r, err)
		return
	}
	if res := s.preferenceRules().Validate(p); !res.Valid {
		err := fmt.Errorf("%w: %s", storage.ErrInvalidPreferences, strings.Join(res.Errors, "; "))
		writeError(w, http.StatusBadRequest, codeInvalidPrefs, err)
		return
	}
	if err := storage.SavePreferences(ctx, s.deps.Store(), p); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// preferenceRules checks what Preferences.Validate cannot see on its own:
// the default model has to exist in the served catalog.
func (s *Server) preferenceRules() *validation.Validator {
	cat := s.deps.Catalog()
	return s.checker.NewValidator().AddRule(validation.Rule{
		Name:    "defaultModel",
		Message: "defaultModel is not in the catalog",
		Check: func(v any) bool {
			id := v.(storage.Preferences).DefaultModel
			if id == "" {
				return true
			}
			_, ok := cat.ByID(id)
			return ok
		},
	})
}
