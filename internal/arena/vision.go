package arena

import (
	"context"
	"net/url"
	"strings"

	"github.com/okian/mu3/internal/gateway"
)

// DefaultVisionPrompt is asked when the caller gives no question.
const DefaultVisionPrompt = "ماذا ترى في هذه الصورة؟"

const visionNoAnswer = "لم يتمكن النموذج من تحليل الصورة."

// Analysis is the answer to a question about an image.
type Analysis struct {
	Prompt   string `json:"prompt"`
	ImageURL string `json:"imageUrl"`
	Model    string `json:"model"`
	Text     string `json:"text"`
	Demo     bool   `json:"demo,omitempty"`
}

// Vision answers questions about images.
type Vision struct {
	ai AI
	settings
}

// NewVision returns a vision flow.
func NewVision(ai AI, opts ...Option) *Vision {
	return &Vision{ai: ai, settings: newSettings("vision", opts)}
}

// Analyze asks modelID about the image at imageURL. imageURL must be an
// http(s) or data URL; an empty prompt asks for a general description.
func (v *Vision) Analyze(ctx context.Context, prompt, imageURL, modelID string) (Analysis, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return Analysis{}, ErrImageURLRequired
	}
	if !validImageURL(imageURL) {
		return Analysis{}, ErrInvalidImageURL
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = DefaultVisionPrompt
	}
	if modelID == "" {
		modelID = gateway.DefaultVisionModel
	}

	res := v.ai.AnalyzeImage(ctx, prompt, imageURL, modelID)
	text := res.Text
	if text == "" {
		text = visionNoAnswer
	}
	return Analysis{Prompt: prompt, ImageURL: imageURL, Model: modelID, Text: text, Demo: res.Fallback}, nil
}

func validImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return u.Host != ""
	case "data":
		return strings.HasPrefix(u.Opaque, "image/")
	}
	return false
}
