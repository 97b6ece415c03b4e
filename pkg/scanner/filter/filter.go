package filter

import (
	"errors"
	"io"
	"os"
)

// Filter decides whether a path is scanned at all. It is safe for concurrent
// use once built.
type Filter struct {
	policy   *Policy
	encoding TextEncoding
}

// New builds a Filter. A nil policy excludes nothing.
func New(policy *Policy, enc TextEncoding) *Filter {
	if enc.enc == nil {
		enc = UTF8
	}
	return &Filter{policy: policy, encoding: enc}
}

// Policy returns the exclusion policy.
func (f *Filter) Policy() *Policy { return f.policy }

// Encoding returns the configured text encoding.
func (f *Filter) Encoding() TextEncoding { return f.encoding }

// Excluded reports whether relPath is skipped without opening it.
func (f *Filter) Excluded(relPath string) bool {
	return f.policy.Excluded(relPath) || HasBinaryExtension(relPath)
}

// ExcludedDir reports whether a directory is pruned.
func (f *Filter) ExcludedDir(relPath string) bool {
	return f.policy.ExcludedDir(relPath)
}

// IsBinary classifies a content prefix under the configured encoding.
func (f *Filter) IsBinary(prefix []byte) bool {
	return IsBinary(prefix, f.encoding)
}

// ShouldScan reports whether the file at path, known to the policy as
// relPath, is neither excluded nor binary. Only the first SniffSize bytes are
// read.
func (f *Filter) ShouldScan(path, relPath string) (bool, error) {
	if f.Excluded(relPath) {
		return false, nil
	}
	// #nosec G304 - path comes from the caller's scan target
	fh, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer func() { _ = fh.Close() }()

	prefix, err := ReadPrefix(fh)
	if err != nil {
		return false, err
	}
	return !f.IsBinary(prefix), nil
}

// ReadPrefix reads up to SniffSize bytes.
func ReadPrefix(r io.Reader) ([]byte, error) {
	buf := make([]byte, SniffSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return buf[:n], nil
}
