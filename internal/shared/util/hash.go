package util

import (
	"crypto/sha256"
	"encoding/hex"
)

const folderHashLen = 12

// FolderKey derives a stable, path-safe folder id from a display name such as
// a student id. Distinct names that sanitize to the same text stay distinct.
func FolderKey(name string) (string, error) {
	clean, err := SanitizeFileName(name)
	if err != nil {
		return "", err
	}
	return clean + "-" + hashKey(name)[:folderHashLen], nil
}

func hashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
