package format

import (
	gounits "github.com/docker/go-units"
)

// ParseHumanSize parses a human-readable size string (e.g., "500MB", "2GB") into bytes
func ParseHumanSize(size string) (int64, error) {
	return gounits.FromHumanSize(size)
}

// HumanSize renders a byte count the way ParseHumanSize accepts it.
func HumanSize(size int64) string {
	return gounits.HumanSize(float64(size))
}
