package validation

import "errors"

// ErrUnknownRuleSet is returned for rule set names the checker does not know.
var ErrUnknownRuleSet = errors.New("unknown rule set")
