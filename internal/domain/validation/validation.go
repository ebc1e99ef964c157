// Package validation checks and cleans user input before it reaches a model.
//
// Each rule set runs its rules in order. Only the "required" rule stops
// evaluation; every other rule adds its message independently, so one input
// can carry several errors. Warnings are advisory and never flip Valid.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/okian/mu3/pkg/metrics"
)

// RuleSet names a group of rules.
type RuleSet string

// Rule sets.
const (
	RuleSetPrompt           RuleSet = "prompt"
	RuleSetImageDescription RuleSet = "image-description"
	RuleSetChatMessage      RuleSet = "chat-message"
	RuleSetModelSelection   RuleSet = "model-selection"
)

// Supported message languages.
const (
	LangArabic  = "ar"
	LangEnglish = "en"
)

// Length bounds, counted in runes.
const (
	PromptMinLength      = 3
	PromptMaxLength      = 2000
	PromptBriefLength    = 10
	PromptVerboseLength  = 1000
	ImageMinLength       = 5
	ImageMaxLength       = 1000
	ImageDetailLength    = 20
	ChatMessageMinLength = 1
	ChatMessageMaxLength = 2000
)

var (
	arabicPattern  = regexp.MustCompile(`[\x{0600}-\x{06FF}\x{0750}-\x{077F}\x{08A0}-\x{08FF}\x{FB50}-\x{FDFF}\x{FE70}-\x{FEFF}]`)
	englishPattern = regexp.MustCompile(`[a-zA-Z]`)
	colorPattern   = regexp.MustCompile(`(?i)لون|أحمر|أزرق|أخضر|أصفر|color|red|blue|green|yellow`)
	stylePattern   = regexp.MustCompile(`(?i)رسم|فن|تصوير|art|painting|photo|style`)
	modelIDPattern = regexp.MustCompile(`^[a-zA-Z0-9\-_./]+$`)

	deniedImageWords = []string{"عنف", "دم", "قتل", "violence", "blood", "kill"}
)

// Result is the outcome of validating one input.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func newResult() Result {
	return Result{Errors: []string{}, Warnings: []string{}}
}

func (r *Result) fail(msg string) { r.Errors = append(r.Errors, msg) }
func (r *Result) warn(msg string) { r.Warnings = append(r.Warnings, msg) }

func (r Result) done() Result {
	r.Valid = len(r.Errors) == 0
	return r
}

// Checker validates inputs with messages in one language.
type Checker struct {
	lang string
	msg  *messages
}

// NewChecker returns a checker for lang; unknown languages fall back to Arabic.
func NewChecker(lang string) *Checker {
	m, ok := catalogs[lang]
	if !ok {
		lang = LangArabic
		m = catalogs[LangArabic]
	}
	return &Checker{lang: lang, msg: m}
}

// Language reports the language messages are written in.
func (c *Checker) Language() string { return c.lang }

// Validate runs the named rule set against input.
func (c *Checker) Validate(set RuleSet, input string) (Result, error) {
	var res Result
	switch set {
	case RuleSetPrompt:
		res = c.prompt(input)
	case RuleSetImageDescription:
		res = c.imageDescription(input)
	case RuleSetChatMessage:
		res = c.chatMessage(input)
	case RuleSetModelSelection:
		res = c.modelSelection(input)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownRuleSet, set)
	}
	if !res.Valid {
		metrics.RecordValidationFailure(string(set))
	}
	return res, nil
}

// Prompt validates a battle prompt.
func (c *Checker) Prompt(s string) Result { return c.mustValidate(RuleSetPrompt, s) }

// ImageDescription validates an image prompt.
func (c *Checker) ImageDescription(s string) Result {
	return c.mustValidate(RuleSetImageDescription, s)
}

// ChatMessage validates a chat message.
func (c *Checker) ChatMessage(s string) Result { return c.mustValidate(RuleSetChatMessage, s) }

// ModelSelection validates a model identifier.
func (c *Checker) ModelSelection(id string) Result {
	return c.mustValidate(RuleSetModelSelection, id)
}

// ValidateAndSanitizePrompt sanitizes s and validates the cleaned text.
func (c *Checker) ValidateAndSanitizePrompt(s string) (string, Result) {
	clean := Sanitize(s)
	return clean, c.Prompt(clean)
}

func (c *Checker) mustValidate(set RuleSet, s string) Result {
	res, _ := c.Validate(set, s) //nolint:errcheck // set is a known constant
	return res
}

func (c *Checker) prompt(s string) Result {
	r := newResult()
	if strings.TrimSpace(s) == "" {
		r.fail(c.msg.promptRequired)
		return r.done()
	}
	n := utf8.RuneCountInString(s)
	if n < PromptMinLength {
		r.fail(c.msg.promptTooShort)
	}
	if n > PromptMaxLength {
		r.fail(c.msg.promptTooLong)
	}
	if tagPattern.MatchString(s) {
		r.fail(c.msg.promptHTML)
	}
	if scriptPattern.MatchString(s) {
		r.fail(c.msg.promptScript)
	}
	if n < PromptBriefLength {
		r.warn(c.msg.promptBrief)
	}
	if n > PromptVerboseLength {
		r.warn(c.msg.promptVerbose)
	}
	if !arabicPattern.MatchString(s) && !englishPattern.MatchString(s) {
		r.warn(c.msg.promptLanguage)
	}
	return r.done()
}

func (c *Checker) imageDescription(s string) Result {
	r := newResult()
	if strings.TrimSpace(s) == "" {
		r.fail(c.msg.imageRequired)
		return r.done()
	}
	n := utf8.RuneCountInString(s)
	if n < ImageMinLength {
		r.fail(c.msg.imageTooShort)
	}
	if n > ImageMaxLength {
		r.fail(c.msg.imageTooLong)
	}
	if tagPattern.MatchString(s) {
		r.fail(c.msg.imageHTML)
	}
	if scriptPattern.MatchString(s) {
		r.fail(c.msg.imageScript)
	}
	lower := strings.ToLower(s)
	for _, w := range deniedImageWords {
		if strings.Contains(lower, w) {
			r.fail(c.msg.imagePolicy)
			break
		}
	}
	if n < ImageDetailLength {
		r.warn(c.msg.imageDetail)
	}
	if !colorPattern.MatchString(s) {
		r.warn(c.msg.imageColor)
	}
	if !stylePattern.MatchString(s) {
		r.warn(c.msg.imageStyle)
	}
	return r.done()
}

func (c *Checker) chatMessage(s string) Result {
	r := newResult()
	if strings.TrimSpace(s) == "" {
		r.fail(c.msg.chatRequired)
		return r.done()
	}
	n := utf8.RuneCountInString(s)
	if n < ChatMessageMinLength {
		r.fail(c.msg.chatEmpty)
	}
	if n > ChatMessageMaxLength {
		r.fail(c.msg.chatTooLong)
	}
	if tagPattern.MatchString(s) {
		r.warn(c.msg.chatHTML)
	}
	if scriptPattern.MatchString(s) {
		r.fail(c.msg.chatScript)
	}
	return r.done()
}

func (c *Checker) modelSelection(id string) Result {
	r := newResult()
	if id == "" {
		r.fail(c.msg.modelRequired)
		return r.done()
	}
	if !modelIDPattern.MatchString(id) {
		r.fail(c.msg.modelInvalid)
	}
	return r.done()
}
