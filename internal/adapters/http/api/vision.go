package api

import "net/http"

type visionRequest struct {
	Prompt   string `json:"prompt"`
	ImageURL string `json:"imageUrl"`
	Model    string `json:"model"`
}

// handleVision handles POST /vision.
func (s *Server) handleVision(w http.ResponseWriter, r *http.Request) {
	var req visionRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	res, err := sess.Vision.Analyze(r.Context(), req.Prompt, req.ImageURL, req.Model)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
