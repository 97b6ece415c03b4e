package format

import (
	"strings"
	"unicode/utf8"

	"github.com/acarl005/stripansi"
)

// Truncate shortens s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

// DisplayValue prepares untrusted content for terminal output: escape
// sequences are removed, control characters replaced and the result truncated.
func DisplayValue(s string, n int) string {
	s = stripansi.Strip(s)
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
	return Truncate(s, n)
}

// ShortHash returns the abbreviated form of a commit hash.
func ShortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
