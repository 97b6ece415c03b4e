package rules

import (
	"strings"

	ahocorasick "github.com/BobuSumisu/aho-corasick"
)

// prefilter maps every lowercased keyword of a rule set to the positions of
// the rules that declare it. One trie pass over a line finds all of them.
type prefilter struct {
	trie         *ahocorasick.Trie
	keywordRules map[string][]int
	keywordFree  []int
	ruleCount    int
}

func newPrefilter(rules []*Rule) *prefilter {
	p := &prefilter{
		keywordRules: map[string][]int{},
		ruleCount:    len(rules),
	}
	var keywords []string
	for i, rule := range rules {
		if len(rule.Keywords) == 0 {
			p.keywordFree = append(p.keywordFree, i)
			continue
		}
		for _, kw := range rule.Keywords {
			if _, seen := p.keywordRules[kw]; !seen {
				keywords = append(keywords, kw)
			}
			p.keywordRules[kw] = append(p.keywordRules[kw], i)
		}
	}
	if len(keywords) > 0 {
		p.trie = ahocorasick.NewTrieBuilder().AddStrings(keywords).Build()
	}
	return p
}

// candidates returns, per rule position, whether the rule has to be evaluated
// on line.
func (p *prefilter) candidates(line string) []bool {
	selected := make([]bool, p.ruleCount)
	for _, i := range p.keywordFree {
		selected[i] = true
	}
	if p.trie == nil {
		return selected
	}
	for _, m := range p.trie.Match([]byte(strings.ToLower(line))) {
		for _, i := range p.keywordRules[string(m.Match())] {
			selected[i] = true
		}
	}
	return selected
}
