package api

import (
	"net/http"

	"github.com/okian/mu3/internal/arena"
	"github.com/okian/mu3/internal/gateway"
)

type imageRequest struct {
	Prompt  string `json:"prompt"`
	Model   string `json:"model"`
	Size    string `json:"size"`
	Quality string `json:"quality"`
}

type imagesResponse struct {
	Current *arena.GeneratedImage  `json:"current,omitempty"`
	History []arena.GeneratedImage `json:"history"`
}

// handleGetImages handles GET /images.
func (s *Server) handleGetImages(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	resp := imagesResponse{History: sess.Images.History()}
	if cur, ok := sess.Images.Current(); ok {
		resp.Current = &cur
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGenerateImage handles POST /images.
func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	img, err := sess.Images.Generate(r.Context(), req.Prompt, gateway.ImageOptions{
		Model:   req.Model,
		Size:    req.Size,
		Quality: req.Quality,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

// handleClearImages handles DELETE /images.
func (s *Server) handleClearImages(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Images.Clear()
	w.WriteHeader(http.StatusNoContent)
}
