package api

import (
	"embed"
	"net/http"
)

//go:embed static/dashboard.html
var dashboardFS embed.FS

// handleDashboard serves a page that polls /stats, /readyz and /errors/stats.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, dashboardFS, "static/dashboard.html")
}
