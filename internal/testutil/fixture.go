// Package testutil provides test fixtures for git-backed tests.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// GitRepo is a throwaway git repository rooted in a temp directory.
type GitRepo struct {
	Root string
	t    *testing.T
}

// NewGitRepo creates an initialized git repository in a temp directory.
// Skips the test if git is not available.
func NewGitRepo(t *testing.T) *GitRepo {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	root := t.TempDir()
	repo := &GitRepo{Root: root, t: t}

	repo.Git("init", "-q")
	repo.Git("config", "user.email", "tia-test@example.com")
	repo.Git("config", "user.name", "tia test")
	// Deterministic default branch name across git versions
	repo.Git("checkout", "-q", "-b", "main")

	return repo
}

// Git runs a git command in the repo, failing the test on error.
func (r *GitRepo) Git(args ...string) string {
	r.t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = r.Root
	out, err := cmd.CombinedOutput()
	if err != nil {
		r.t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// WriteFile writes a file under the repo root, creating parent directories.
func (r *GitRepo) WriteFile(relPath, content string) {
	r.t.Helper()

	path := filepath.Join(r.Root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		r.t.Fatalf("mkdir for %s: %v", relPath, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		r.t.Fatalf("write %s: %v", relPath, err)
	}
}

// Commit stages everything and commits.
func (r *GitRepo) Commit(message string) string {
	r.t.Helper()

	r.Git("add", "-A")
	r.Git("commit", "-q", "-m", message, "--allow-empty")
	return r.Git("rev-parse", "HEAD")
}

// Remove deletes a file and stages the deletion.
func (r *GitRepo) Remove(relPath string) {
	r.t.Helper()
	r.Git("rm", "-q", filepath.ToSlash(relPath))
}
