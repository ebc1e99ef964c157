package api

import (
	"fmt"
	"net/http"
)

// StatItem is one figure of a statistics section.
type StatItem struct {
	Label  string `json:"label"`
	Value  string `json:"value"`
	Change string `json:"change"`
}

// StatSection groups related figures.
type StatSection struct {
	Title string     `json:"title"`
	Items []StatItem `json:"stats"`
}

// CategoryShare is the share of battles in one topic.
type CategoryShare struct {
	Name       string  `json:"name"`
	Battles    int     `json:"battles"`
	Percentage float64 `json:"percentage"`
	Icon       string  `json:"icon"`
}

var statSections = []StatSection{
	{Title: "إحصائيات المعارك", Items: []StatItem{
		{"إجمالي المعارك", "127,543", "+2,341 اليوم"},
		{"معارك نشطة", "1,234", "في الوقت الحالي"},
		{"متوسط وقت الاستجابة", "1.8 ثانية", "-0.2s هذا الأسبوع"},
	}},
	{Title: "المستخدمون", Items: []StatItem{
		{"مستخدمون نشطون", "45,678", "+1,234 هذا الشهر"},
		{"تصويتات اليوم", "8,921", "+15% من أمس"},
		{"مستخدمون جدد", "567", "هذا الأسبوع"},
	}},
	{Title: "الأداء", Items: []StatItem{
		{"وقت التشغيل", "99.9%", "آخر 30 يوم"},
		{"طلبات في الثانية", "2,341", "ذروة الاستخدام"},
		{"دقة النتائج", "94.7%", "معدل الرضا"},
	}},
}

var categoryShares = []CategoryShare{
	{"البرمجة", 23456, 28.5, "💻"},
	{"الكتابة الإبداعية", 18234, 22.1, "✍️"},
	{"التحليل", 15678, 19.0, "📊"},
	{"الترجمة", 12345, 15.0, "🌐"},
	{"الرياضيات", 8765, 10.6, "🔢"},
	{"أخرى", 4321, 4.8, "📝"},
}

var statsRanges = map[string]bool{"day": true, "week": true, "month": true}

type statsResponse struct {
	Range      string          `json:"range"`
	Sections   []StatSection   `json:"sections"`
	Categories []CategoryShare `json:"categories"`
	Service    map[string]any  `json:"service"`
}

// handleStats handles GET /stats?range=day|week|month.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.stats"

	period := orDefault(r.URL.Query().Get("range"), "day")
	if !statsRanges[period] {
		s.fail(w, r, fmt.Errorf("%s: %w: range %q", op, ErrBadRequest, period))
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Range:      period,
		Sections:   statSections,
		Categories: categoryShares,
		Service:    s.deps.GetStats(),
	})
}
