package filter

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultEncoding is the text encoding assumed when none is configured.
const DefaultEncoding = "utf-8"

// TextEncoding couples a configured charset name with its decoder.
type TextEncoding struct {
	Name string
	enc  encoding.Encoding
}

// UTF8 is the default text encoding.
var UTF8 = TextEncoding{Name: DefaultEncoding, enc: unicode.UTF8}

// LookupEncoding resolves an IANA charset name such as "utf-8", "latin1" or
// "windows-1252".
func LookupEncoding(name string) (TextEncoding, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || strings.EqualFold(trimmed, DefaultEncoding) || strings.EqualFold(trimmed, "utf8") {
		return UTF8, nil
	}
	enc, err := ianaindex.IANA.Encoding(trimmed)
	if err != nil {
		return TextEncoding{}, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return TextEncoding{}, fmt.Errorf("unsupported encoding %q", name)
	}
	return TextEncoding{Name: strings.ToLower(trimmed), enc: enc}, nil
}

// IsUTF8 reports whether the encoding is plain UTF-8.
func (e TextEncoding) IsUTF8() bool {
	return e.enc == nil || e.enc == unicode.UTF8
}

// NewDecoder returns a transformer producing UTF-8. Malformed sequences become
// U+FFFD.
func (e TextEncoding) NewDecoder() transform.Transformer {
	if e.IsUTF8() {
		return encoding.Replacement.NewEncoder()
	}
	return e.enc.NewDecoder()
}

// DecodeString converts s to UTF-8, replacing undecodable bytes.
func (e TextEncoding) DecodeString(s string) string {
	out, _, err := transform.String(e.NewDecoder(), s)
	if err != nil {
		return strings.ToValidUTF8(s, "\uFFFD")
	}
	return out
}
