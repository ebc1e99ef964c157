package validation

// Rule is one named check used by a Validator.
type Rule struct {
	Name    string
	Check   func(value any) bool
	Message string
}

// Validator applies an ordered list of ad hoc rules.
// A rule that panics is reported as a warning instead of failing the input.
type Validator struct {
	rules      []Rule
	ruleFailed string
}

// NewValidator returns an empty validator with messages in the checker's language.
func (c *Checker) NewValidator() *Validator {
	return &Validator{ruleFailed: c.msg.ruleFailed}
}

// AddRule appends r and returns v for chaining.
func (v *Validator) AddRule(r Rule) *Validator {
	v.rules = append(v.rules, r)
	return v
}

// Validate runs every rule against value.
func (v *Validator) Validate(value any) Result {
	res := newResult()
	for _, rule := range v.rules {
		ok, panicked := v.run(rule, value)
		switch {
		case panicked:
			res.warn(v.ruleFailed + rule.Name)
		case !ok:
			res.fail(rule.Message)
		}
	}
	return res.done()
}

func (v *Validator) run(rule Rule, value any) (ok, panicked bool) {
	defer func() {
		if recover() != nil {
			ok, panicked = false, true
		}
	}()
	return rule.Check(value), false
}
