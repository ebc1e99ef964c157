// Package site serves the home view: application info as JSON or as a
// small HTML page.
package site

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

//go:embed static/index.html
var staticFS embed.FS

var indexTmpl = template.Must(template.ParseFS(staticFS, "static/index.html"))

// Info describes the application.
type Info struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Version     string   `json:"version"`
	Language    string   `json:"language"`
	Features    []string `json:"features"`
}

// DefaultInfo returns the built-in application info.
func DefaultInfo() Info {
	return Info{
		Name:        "Mu3",
		Description: "Arena for comparing large language model answers side by side",
		Version:     "1.0.0",
		Language:    "ar",
		Features:    []string{"battle", "chat", "images", "vision", "leaderboard", "stats"},
	}
}

// Register attaches GET / to r.
func Register(r chi.Router, info Info) {
	if r == nil {
		panic("router is nil")
	}
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		if strings.Contains(req.Header.Get("Accept"), "application/json") {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			_ = json.NewEncoder(w).Encode(info)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = indexTmpl.Execute(w, info)
	})
}
