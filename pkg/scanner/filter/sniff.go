package filter

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
	"golang.org/x/text/transform"
)

const (
	// SniffSize is the number of leading bytes inspected for binary content.
	SniffSize = 8192
	// maxUndecodableRatio is the share of undecodable runes in the prefix
	// above which content is treated as binary.
	maxUndecodableRatio = 0.10
)

var binaryExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".bmp": {}, ".ico": {}, ".svg": {}, ".webp": {},
	".tiff": {}, ".psd": {},
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
	".zip": {}, ".tar": {}, ".gz": {}, ".bz2": {}, ".xz": {}, ".7z": {}, ".rar": {}, ".jar": {},
	".war": {}, ".apk": {},
	".exe": {}, ".dll": {}, ".so": {}, ".dylib": {}, ".bin": {}, ".o": {}, ".a": {}, ".lib": {},
	".class": {}, ".pyc": {}, ".pyo": {}, ".wasm": {},
	".mp3": {}, ".mp4": {}, ".avi": {}, ".mov": {}, ".wav": {}, ".flac": {}, ".ogg": {}, ".mkv": {},
	".ttf": {}, ".otf": {}, ".woff": {}, ".woff2": {}, ".eot": {},
	".db": {}, ".sqlite": {}, ".sqlite3": {},
}

// HasBinaryExtension reports whether the path carries an extension that is
// never text.
func HasBinaryExtension(path string) bool {
	_, ok := binaryExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// IsBinary classifies a content prefix. A NUL byte, a recognised binary file
// signature or a prefix that largely fails to decode under enc all count as
// binary.
func IsBinary(prefix []byte, enc TextEncoding) bool {
	if len(prefix) > SniffSize {
		prefix = prefix[:SniffSize]
	}
	if len(prefix) == 0 {
		return false
	}
	if enc.IsUTF8() && bytes.IndexByte(prefix, 0) >= 0 {
		return true
	}
	// Short signatures such as "BM" or "MZ" also start ordinary text, so a
	// signature only counts alongside control bytes.
	if hasControlBytes(prefix) {
		if kind, _ := filetype.Match(prefix); kind != filetype.Unknown {
			return true
		}
	}
	return undecodableRatio(prefix, enc) >= maxUndecodableRatio
}

func undecodableRatio(prefix []byte, enc TextEncoding) float64 {
	if enc.IsUTF8() {
		return invalidUTF8Ratio(prefix)
	}
	decoded, _, err := transform.Bytes(enc.NewDecoder(), prefix)
	if err != nil {
		return 1
	}
	if bytes.IndexByte(decoded, 0) >= 0 {
		return 1
	}
	total := utf8.RuneCount(decoded)
	if total == 0 {
		return 0
	}
	return float64(bytes.Count(decoded, []byte(string(utf8.RuneError)))) / float64(total)
}

func invalidUTF8Ratio(prefix []byte) float64 {
	var invalid, total int
	for i := 0; i < len(prefix); {
		// The prefix may end inside a multi-byte sequence.
		if !utf8.FullRune(prefix[i:]) {
			break
		}
		r, size := utf8.DecodeRune(prefix[i:])
		if r == utf8.RuneError && size == 1 {
			invalid++
		}
		total++
		i += size
	}
	if total == 0 {
		return 0
	}
	return float64(invalid) / float64(total)
}

func hasControlBytes(prefix []byte) bool {
	for _, b := range prefix {
		if b == 0x7f || (b < 0x20 && b != '\t' && b != '\n' && b != '\r' && b != '\f' && b != '\v') {
			return true
		}
	}
	return false
}
