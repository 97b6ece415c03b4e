package rules

import "fmt"

// ConfigError reports a malformed rule or exclusion pattern. It is raised at
// load time and blocks scanning from starting.
type ConfigError struct {
	// RuleID is the offending rule id, empty when the rule has none.
	RuleID string
	// Index is the position of the offending entry in its list.
	Index int
	// Pattern is set for exclusion pattern errors.
	Pattern string
	Reason  string
	Err     error
}

func (e *ConfigError) Error() string {
	var subject string
	switch {
	case e.Pattern != "":
		subject = fmt.Sprintf("exclusion %q", e.Pattern)
	case e.RuleID != "":
		subject = fmt.Sprintf("rule %q", e.RuleID)
	case e.Index < 0:
		subject = "configuration"
	default:
		subject = fmt.Sprintf("rule #%d", e.Index)
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", subject, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", subject, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
