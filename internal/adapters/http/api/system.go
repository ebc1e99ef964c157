package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/mu3/internal/probe"
)

// handleSystem handles GET /system?width=&height=&cookies=. The browser
// facts come from the request; the viewport and cookie state are reported
// by the client through the query.
func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	env := probe.Env{
		UserAgent:      r.UserAgent(),
		ViewportWidth:  atoiOr(q.Get("width"), 0),
		ViewportHeight: atoiOr(q.Get("height"), 0),
		Language:       primaryLanguage(r.Header.Get("Accept-Language")),
		CookiesEnabled: q.Get("cookies") != "false",
	}
	writeJSON(w, http.StatusOK, s.deps.Prober().Run(r.Context(), env))
}

func atoiOr(v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// primaryLanguage returns the first tag of an Accept-Language header.
func primaryLanguage(h string) string {
	tag, _, _ := strings.Cut(h, ",")
	tag, _, _ = strings.Cut(tag, ";")
	return strings.TrimSpace(tag)
}
