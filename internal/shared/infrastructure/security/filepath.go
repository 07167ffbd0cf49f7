// Package security validates local file paths taken from flags and the
// environment before the offline layer reads or creates them.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// forbiddenChars are shell metacharacters never found in a sane data path.
const forbiddenChars = ";&|$`(){}<>!\n\r"

// ValidateFilePath cleans path, makes it absolute and, when the file
// exists, resolves symlinks.
func ValidateFilePath(path string) (string, error) {
	if path == "" {
		return "", errors.New("file path cannot be empty")
	}
	if i := strings.IndexAny(path, forbiddenChars); i >= 0 {
		return "", fmt.Errorf("file path contains forbidden character %q", path[i])
	}

	clean, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("resolve file path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(clean)
	switch {
	case err == nil:
		return resolved, nil
	case errors.Is(err, os.ErrNotExist):
		return clean, nil
	default:
		return "", fmt.Errorf("resolve file path: %w", err)
	}
}

// SafeOpen opens a validated path for reading.
func SafeOpen(path string) (*os.File, error) {
	clean, err := ValidateFilePath(path)
	if err != nil {
		return nil, err
	}
	// #nosec G304 - path is validated above
	return os.Open(clean)
}

// PreparePrivateFile validates path and creates its directory, readable by
// the owner only. The queue stores credentials next to the mutations.
func PreparePrivateFile(path string) (string, error) {
	clean, err := ValidateFilePath(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(clean), 0o700); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", clean, err)
	}
	return clean, nil
}
