package util

import (
	"errors"
	"strings"
)

var ErrInvalidName = errors.New("invalid file name")

// SanitizeFileName flattens path separators and rejects traversal.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidName
	}
	s := strings.TrimSpace(name)
	s = strings.NewReplacer("/", "_", "\\", "_").Replace(s)
	if s == "" {
		return "", ErrInvalidName
	}
	return s, nil
}
