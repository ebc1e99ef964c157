package validation

import (
	"regexp"
	"strings"
)

var (
	tagPattern       = regexp.MustCompile(`<[^>]*>`)
	scriptPattern    = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	dangerousPattern = regexp.MustCompile(`[<>{}\[\]\\]`)
)

// Sanitize removes script blocks, tag-like sequences and the characters
// <>{}[]\, then collapses whitespace runs and trims.
// Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	s = scriptPattern.ReplaceAllString(s, "")
	s = tagPattern.ReplaceAllString(s, "")
	s = dangerousPattern.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// StripMarkup removes script blocks and tag-like sequences and leaves the
// remaining text, including its whitespace, untouched.
func StripMarkup(s string) string {
	s = scriptPattern.ReplaceAllString(s, "")
	return tagPattern.ReplaceAllString(s, "")
}

// HasMarkup reports whether s contains a tag-like sequence.
func HasMarkup(s string) bool { return tagPattern.MatchString(s) }
