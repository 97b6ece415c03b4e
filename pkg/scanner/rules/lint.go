package rules

import (
	"fmt"
	"strings"
)

// Lint returns non-fatal warnings about a set of rule specs. Hard errors such
// as duplicate ids are left to Compile.
func Lint(specs []RuleSpec) []string {
	warnings := []string{}

	if len(specs) == 0 {
		warnings = append(warnings, "No rules defined in configuration")
	}

	for _, spec := range specs {
		keywords, _ := spec.Keywords.Get()
		if spec.MinEntropy.Set || len(keywords) > 0 {
			continue
		}
		if strings.Contains(spec.ID, "generic") || strings.Contains(spec.ID, "password") {
			warnings = append(warnings, fmt.Sprintf("Rule '%s' has no entropy threshold or keywords (may produce many false positives)", spec.ID))
		}
	}

	return warnings
}
