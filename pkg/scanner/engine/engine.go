// Package engine implements the per-line matching pipeline: keyword
// pre-filter, regular expression match, entropy gate.
package engine

import (
	"slices"

	"github.com/CompassSecurity/leekscan/pkg/scanner/entropy"
	"github.com/CompassSecurity/leekscan/pkg/scanner/rules"
	"github.com/CompassSecurity/leekscan/pkg/scanner/types"
)

// MatchLine applies every rule of rs to line, in declaration order, and
// returns one finding per accepted match. File path and line number are left
// for the caller to attach.
func MatchLine(line string, rs *rules.RuleSet) []types.Finding {
	var findings []types.Finding
	candidates := rs.Candidates(line)

	i := -1
	rs.Each(func(rule *rules.Rule) {
		i++
		if !candidates[i] {
			return
		}

		for _, loc := range rule.Pattern.FindAllStringSubmatchIndex(line, -1) {
			start, end := secretBounds(loc)
			secret := line[start:end]
			if secret == "" {
				continue
			}

			finding := types.Finding{
				RuleID:       rule.ID,
				Description:  rule.Description,
				Tags:         slices.Clone(rule.Tags),
				Column:       start + 1,
				EndColumn:    end,
				MatchedValue: secret,
				Charset:      entropy.Charset(secret),
			}

			if rule.HasEntropyGate() {
				score := entropy.Shannon(secret)
				if score < rule.MinEntropy.Value {
					continue
				}
				finding.Entropy = &score
			}

			findings = append(findings, finding)
		}
	})

	return findings
}

// secretBounds picks the first capture group when it participated in the
// match, the whole match otherwise.
func secretBounds(loc []int) (int, int) {
	if len(loc) >= 4 && loc[2] >= 0 {
		return loc[2], loc[3]
	}
	return loc[0], loc[1]
}
