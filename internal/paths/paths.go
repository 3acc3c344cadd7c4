// Package paths normalizes file paths so coverage-map keys and change-set
// entries compare as exact strings: repo-relative, forward slashes, case
// preserved.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// Canonicalize converts an absolute path to a repo-relative canonical path.
// Symlinks are resolved when the file exists; backslashes become forward
// slashes.
func Canonicalize(absolutePath string, repoRoot string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		// File may not exist yet (e.g. deleted in the working tree)
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	rootResolved, err := filepath.EvalSymlinks(repoRoot)
	if err != nil {
		if os.IsNotExist(err) {
			rootResolved = repoRoot
		} else {
			return "", err
		}
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(rel), nil
}

// Normalize normalizes an already-relative path to forward slashes.
func Normalize(path string) string {
	return filepath.ToSlash(strings.TrimPrefix(path, "./"))
}

// IsWithinRepo checks if a path is within the repository root.
func IsWithinRepo(path string, repoRoot string) bool {
	canonical, err := Canonicalize(path, repoRoot)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// Join joins a repo root with a canonical slash-separated path using the
// OS-specific separator.
func Join(repoRoot string, canonicalPath string) string {
	parts := strings.Split(Normalize(canonicalPath), "/")
	return filepath.Join(append([]string{repoRoot}, parts...)...)
}
