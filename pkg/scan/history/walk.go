package history

import (
	"fmt"
	"io"
	"slices"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// Order selects the commit traversal direction.
type Order string

const (
	// NewestFirst walks from the start revision towards the root commits.
	NewestFirst Order = "newest"
	// OldestFirst replays the selected commits chronologically.
	OldestFirst Order = "oldest"
)

// ParseOrder accepts "newest" or "oldest". The empty string selects NewestFirst.
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case "", NewestFirst:
		return NewestFirst, nil
	case OldestFirst:
		return OldestFirst, nil
	default:
		return "", fmt.Errorf("unknown commit order %q, expected %q or %q", s, NewestFirst, OldestFirst)
	}
}

// Walk lazily yields the commit hashes selected for a history scan.
type Walk struct {
	next  func() (plumbing.Hash, error)
	close func()
	limit int
	count int
}

// Next returns the next commit hash, or io.EOF once the range or the
// configured maximum is exhausted.
func (w *Walk) Next() (plumbing.Hash, error) {
	if w.limit > 0 && w.count >= w.limit {
		return plumbing.ZeroHash, io.EOF
	}
	h, err := w.next()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	w.count++
	return h, nil
}

// Close releases the underlying iterator.
func (w *Walk) Close() {
	if w.close != nil {
		w.close()
	}
}

func emptyWalk() *Walk {
	return &Walk{next: func() (plumbing.Hash, error) { return plumbing.ZeroHash, io.EOF }}
}

// newWalk starts a log iterator from start (or from every ref when all is
// set). Oldest-first collects the newest limit hashes and replays them in
// reverse so that the maximum always selects the most recent commits.
func newWalk(repo *git.Repository, start plumbing.Hash, all bool, order Order, limit int) (*Walk, error) {
	opts := &git.LogOptions{From: start, Order: git.LogOrderCommitterTime}
	if all {
		opts = &git.LogOptions{All: true, Order: git.LogOrderCommitterTime}
	}

	iter, err := repo.Log(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read commit log: %w", err)
	}

	if order != OldestFirst {
		return &Walk{
			next: func() (plumbing.Hash, error) {
				c, err := iter.Next()
				if err != nil {
					return plumbing.ZeroHash, err
				}
				return c.Hash, nil
			},
			close: iter.Close,
			limit: limit,
		}, nil
	}

	defer iter.Close()
	var hashes []plumbing.Hash
	err = iter.ForEach(func(c *object.Commit) error {
		hashes = append(hashes, c.Hash)
		if limit > 0 && len(hashes) >= limit {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read commit log: %w", err)
	}
	slices.Reverse(hashes)

	i := 0
	return &Walk{
		next: func() (plumbing.Hash, error) {
			if i >= len(hashes) {
				return plumbing.ZeroHash, io.EOF
			}
			h := hashes[i]
			i++
			return h, nil
		},
	}, nil
}
