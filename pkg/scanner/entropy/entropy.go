// Package entropy scores candidate secrets by the Shannon entropy of their characters.
package entropy

import (
	"math"
	"unicode/utf8"
)

// MinClassifyLength is the shortest string the charset classifiers accept.
// Shorter values are mostly identifiers and would be classified by accident.
const MinClassifyLength = 20

const (
	CharsetHex    = "hex"
	CharsetBase64 = "base64"
)

// Shannon returns the entropy of s in bits per character.
func Shannon(s string) float64 {
	if s == "" {
		return 0
	}

	freq := make(map[rune]int)
	for _, r := range s {
		freq[r]++
	}

	length := float64(utf8.RuneCountInString(s))
	entropy := 0.0
	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}

	return entropy
}

// LooksLikeBase64 reports whether s consists solely of base64 alphabet characters
// and is at least MinClassifyLength long.
func LooksLikeBase64(s string) bool {
	if len(s) < MinClassifyLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isBase64Char(s[i]) {
			return false
		}
	}
	return true
}

// LooksLikeHex reports whether s consists solely of hex digits and is at least
// MinClassifyLength long.
func LooksLikeHex(s string) bool {
	if len(s) < MinClassifyLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isHexChar(s[i]) {
			return false
		}
	}
	return true
}

// Charset classifies s as CharsetHex, CharsetBase64 or "". Hex is checked first
// because its alphabet is a subset of base64.
func Charset(s string) string {
	switch {
	case LooksLikeHex(s):
		return CharsetHex
	case LooksLikeBase64(s):
		return CharsetBase64
	default:
		return ""
	}
}

// Metadata describes a scored candidate.
type Metadata struct {
	Entropy     float64 `json:"entropy"`
	Length      int     `json:"length"`
	UniqueChars int     `json:"unique_chars"`
	IsBase64    bool    `json:"is_base64"`
	IsHex       bool    `json:"is_hex"`
	TooShort    bool    `json:"too_short,omitempty"`
}

// Score computes the entropy of s together with advisory metadata. Strings
// shorter than minLength are flagged TooShort and score 0.
func Score(s string, minLength int) Metadata {
	length := utf8.RuneCountInString(s)
	if length < minLength {
		return Metadata{Length: length, TooShort: true}
	}

	unique := make(map[rune]struct{})
	for _, r := range s {
		unique[r] = struct{}{}
	}

	return Metadata{
		Entropy:     Shannon(s),
		Length:      length,
		UniqueChars: len(unique),
		IsBase64:    LooksLikeBase64(s),
		IsHex:       LooksLikeHex(s),
	}
}

func isBase64Char(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '+' || c == '/' || c == '='
}

func isHexChar(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
