package config

import (
	"fmt"

	"github.com/docker/go-units"
)

// ParseMaxFileSize parses a human-readable size string (e.g., "10MB", "1GB") into bytes.
// "0" disables the limit.
func ParseMaxFileSize(sizeStr string) (int64, error) {
	size, err := units.FromHumanSize(sizeStr)
	if err != nil {
		return 0, fmt.Errorf("failed to parse max file size: %w", err)
	}
	if size < 0 {
		return 0, fmt.Errorf("max file size must not be negative, got %s", sizeStr)
	}
	return size, nil
}

// ValidateThreadCount validates that the thread count is within acceptable bounds.
func ValidateThreadCount(threads int) error {
	if threads < 1 {
		return fmt.Errorf("thread count must be at least 1, got %d", threads)
	}
	if threads > 100 {
		return fmt.Errorf("thread count too high (max 100), got %d", threads)
	}
	return nil
}

// ValidateMaxCommits rejects negative commit limits. Zero means unbounded.
func ValidateMaxCommits(maxCommits int) error {
	if maxCommits < 0 {
		return fmt.Errorf("max commits must not be negative, got %d", maxCommits)
	}
	return nil
}
