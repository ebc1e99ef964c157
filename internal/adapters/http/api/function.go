package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/mu3/internal/arena"
	"github.com/okian/mu3/internal/domain/validation"
	"github.com/okian/mu3/internal/gateway"
)

type functionRequest struct {
	Prompt string         `json:"prompt"`
	Tools  []gateway.Tool `json:"tools"`
	Model  string         `json:"model"`
}

// handleCallFunction handles POST /function. The model may answer with tool
// calls instead of text; the caller runs them.
func (s *Server) handleCallFunction(w http.ResponseWriter, r *http.Request) {
	var req functionRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res := s.checker.ChatMessage(req.Prompt)
	prompt := validation.StripMarkup(req.Prompt)
	if res.Valid && strings.TrimSpace(prompt) == "" {
		res = s.checker.ChatMessage(prompt)
	}
	if !res.Valid {
		s.fail(w, r, &arena.ValidationError{Result: res})
		return
	}
	for i, t := range req.Tools {
		if strings.TrimSpace(t.Name) == "" {
			s.fail(w, r, fmt.Errorf("%w: tools[%d] has no name", ErrBadRequest, i))
			return
		}
	}
	if req.Model != "" {
		if _, ok := s.deps.Catalog().ByID(req.Model); !ok {
			s.fail(w, r, fmt.Errorf("%w: %s", arena.ErrUnknownModel, req.Model))
			return
		}
	}
	writeJSON(w, http.StatusOK, s.deps.Gateway().CallFunction(r.Context(), prompt, req.Tools, req.Model))
}
