// Package pathutil resolves file paths found in pipeline definitions.
package pathutil

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateFilePath rejects empty paths, null bytes and any ".." segment.
// Segments are checked before cleaning: "scripts/../etc/passwd" is rejected
// even though it cleans to "etc/passwd".
func ValidateFilePath(filePath string) error {
	if filePath == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	if strings.Contains(filePath, "\x00") {
		return fmt.Errorf("file path contains invalid characters")
	}
	for _, segment := range strings.Split(filepath.ToSlash(filePath), "/") {
		if segment == ".." {
			return fmt.Errorf("file path contains path traversal: %q", filePath)
		}
	}
	return nil
}

// Resolve returns p relative to baseDir. Absolute paths, empty paths and an
// empty baseDir leave p unchanged.
func Resolve(baseDir, p string) string {
	if p == "" || baseDir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// ResolveContained is Resolve for files that must stay under baseDir, such as
// scripts: p is validated with ValidateFilePath first.
func ResolveContained(baseDir, p string) (string, error) {
	if err := ValidateFilePath(p); err != nil {
		return "", err
	}
	return Resolve(baseDir, p), nil
}
