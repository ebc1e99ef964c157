package gateway

import (
	"encoding/base64"
	"fmt"
	"hash/fnv"
	"html"
	"strings"
	"unicode/utf8"
)

// Prefixes applied to the prompt before building fallback text.
const (
	VisionFallbackPrefix   = "تحليل الصورة: "
	FunctionFallbackPrefix = "استدعاء دالة: "
)

// Image alt texts.
const (
	PlaceholderAlt = "معاينة - سيتم إنتاج الصورة في الوضع الحقيقي"
	ErrorImageAlt  = "خطأ في إنتاج الصورة"
	generatedAlt   = "Generated image: "
)

const (
	placeholderSize      = 512
	placeholderPromptMax = 50
)

var fallbackTemplates = [...]string{
	"مرحباً! أنا %[1]s. سؤالك: \"%[2]s\"\n\nهذه استجابة تجريبية. في الوضع الحقيقي، ستحصل على إجابة متقدمة من النموذج الفعلي.",
	"%[1]s يجيب: بناءً على سؤالك \"%[2]s\"، يمكنني القول أن هذا موضوع مثير للاهتمام. في الوضع الحقيقي، ستحصل على تحليل مفصل ودقيق.",
	"استجابة من %[1]s: شكراً لسؤالك \"%[2]s\". هذه معاينة للوظائف. عند تفعيل خدمة الذكاء الاصطناعي، ستحصل على إجابات حقيقية ومتطورة.",
}

// FallbackText returns demo text that embeds modelID and prompt.
// The template is picked by hashing both, so equal inputs give equal text.
func FallbackText(prompt, modelID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(modelID))
	tpl := fallbackTemplates[h.Sum32()%uint32(len(fallbackTemplates))]
	return fmt.Sprintf(tpl, modelID, prompt)
}

// Fallback returns a successful demo Result.
func Fallback(prompt, modelID string) Result {
	res := textResult(FallbackText(prompt, modelID), nil)
	res.Fallback = true
	return res
}

// PlaceholderImage returns a preview image rendered locally as an SVG data URL.
func PlaceholderImage(prompt string) Image {
	svg := fmt.Sprintf(`<svg width="%[1]d" height="%[1]d" xmlns="http://www.w3.org/2000/svg">`+
		`<defs><linearGradient id="g" x1="0%%" y1="0%%" x2="100%%" y2="100%%">`+
		`<stop offset="0%%" stop-color="#6366f1"/><stop offset="100%%" stop-color="#8b5cf6"/></linearGradient></defs>`+
		`<rect width="100%%" height="100%%" fill="url(#g)"/>`+
		`<text x="50%%" y="40%%" font-family="Arial, sans-serif" font-size="24" fill="white" text-anchor="middle" dy=".3em">🎨 مولد الصور</text>`+
		`<text x="50%%" y="55%%" font-family="Arial, sans-serif" font-size="16" fill="rgba(255,255,255,0.9)" text-anchor="middle" dy=".3em">%[2]s</text>`+
		`<text x="50%%" y="70%%" font-family="Arial, sans-serif" font-size="14" fill="rgba(255,255,255,0.8)" text-anchor="middle" dy=".3em">%[3]s</text>`+
		`</svg>`, placeholderSize, html.EscapeString(truncate(prompt, placeholderPromptMax)), PlaceholderAlt)
	return Image{
		URL:         svgDataURL(svg),
		Alt:         PlaceholderAlt,
		Width:       placeholderSize,
		Height:      placeholderSize,
		Placeholder: true,
	}
}

// ErrorImage returns the placeholder shown when a real generation failed.
func ErrorImage() Image {
	svg := fmt.Sprintf(`<svg width="%[1]d" height="%[1]d" xmlns="http://www.w3.org/2000/svg">`+
		`<rect width="100%%" height="100%%" fill="#f3f4f6"/>`+
		`<text x="50%%" y="45%%" font-family="Arial, sans-serif" font-size="24" fill="#ef4444" text-anchor="middle" dy=".3em">⚠ خطأ في الإنتاج</text>`+
		`<text x="50%%" y="60%%" font-family="Arial, sans-serif" font-size="16" fill="#6b7280" text-anchor="middle" dy=".3em">يرجى المحاولة مرة أخرى، أو تأكد من الاتصال بالإنترنت</text>`+
		`</svg>`, placeholderSize)
	return Image{
		URL:         svgDataURL(svg),
		Alt:         ErrorImageAlt,
		Width:       placeholderSize,
		Height:      placeholderSize,
		Placeholder: true,
	}
}

func svgDataURL(svg string) string {
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

// parseSize reads "WxH"; anything else yields zeros.
func parseSize(size string) (w, h int) {
	a, b, ok := strings.Cut(size, "x")
	if !ok {
		return 0, 0
	}
	if _, err := fmt.Sscan(a, &w); err != nil {
		return 0, 0
	}
	if _, err := fmt.Sscan(b, &h); err != nil {
		return 0, 0
	}
	return w, h
}
