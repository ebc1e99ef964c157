package api

import (
	"net/http"

	"github.com/okian/mu3/internal/domain/validation"
)

type validateRequest struct {
	RuleSet string `json:"ruleSet"`
	Input   string `json:"input"`
}

// handleValidate handles POST /validate for inline form feedback.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.checker.Validate(validation.RuleSet(req.RuleSet), req.Input)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
