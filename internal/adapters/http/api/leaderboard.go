package api

import (
	"fmt"
	"net/http"
	"strconv"
)

// Ranking is one leaderboard row.
type Ranking struct {
	Rank       int     `json:"rank"`
	Name       string  `json:"name"`
	Provider   string  `json:"provider"`
	Elo        int     `json:"elo"`
	Battles    int     `json:"battles"`
	WinRate    float64 `json:"winRate"`
	Trend      string  `json:"trend"`
	TrendValue int     `json:"trendValue"`
	Category   string  `json:"category"`
	IsNew      bool    `json:"isNew,omitempty"`
}

// rankings is the published leaderboard. Votes cast in battles are kept in
// the battle history and do not move it.
var rankings = []Ranking{
	{1, "GPT-5", "OpenAI", 1847, 12543, 73.2, "up", 15, "text", true},
	{2, "Claude Opus 4", "Anthropic", 1832, 11234, 71.8, "up", 8, "text", true},
	{3, "o3", "OpenAI", 1798, 8765, 69.4, "up", 22, "reasoning", true},
	{4, "Claude Sonnet 4", "Anthropic", 1776, 10987, 67.9, "stable", 0, "text", true},
	{5, "GPT-4o", "OpenAI", 1743, 15432, 65.3, "down", -5, "multimodal", false},
	{6, "o1-pro", "OpenAI", 1721, 7654, 63.7, "up", 12, "reasoning", false},
	{7, "GPT-5 Nano", "OpenAI", 1698, 9876, 61.2, "up", 18, "text", true},
	{8, "Claude 3.7 Sonnet", "Anthropic", 1675, 13245, 59.8, "stable", 2, "text", false},
}

var (
	leaderboardCategories = map[string]bool{"all": true, "text": true, "multimodal": true, "reasoning": true}
	leaderboardRanges     = map[string]bool{"week": true, "month": true, "all": true}
)

type leaderboardResponse struct {
	Category string    `json:"category"`
	Range    string    `json:"range"`
	Rankings []Ranking `json:"rankings"`
}

// handleLeaderboard handles GET /leaderboard?category=&range=&limit=.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.leaderboard"

	q := r.URL.Query()
	category := orDefault(q.Get("category"), "all")
	period := orDefault(q.Get("range"), "month")
	if !leaderboardCategories[category] {
		s.fail(w, r, fmt.Errorf("%s: %w: category %q", op, ErrBadRequest, category))
		return
	}
	if !leaderboardRanges[period] {
		s.fail(w, r, fmt.Errorf("%s: %w: range %q", op, ErrBadRequest, period))
		return
	}
	limit := len(rankings)
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.fail(w, r, fmt.Errorf("%s: %w: limit %q", op, ErrBadRequest, v))
			return
		}
		limit = n
	}

	out := make([]Ranking, 0, len(rankings))
	for _, row := range rankings {
		if category == "all" || row.Category == category {
			out = append(out, row)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Category: category, Range: period, Rankings: out})
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
