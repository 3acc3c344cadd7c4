// Package repostate computes a composite identifier for the current
// repository state. The coverage map is stamped with this identifier at
// build time; a mismatch at impact time means the map is stale.
package repostate

import (
	"crypto/sha256"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"tia/internal/errors"
)

const (
	// EmptyHash is the SHA256 of the empty string, used for clean diffs/lists
	EmptyHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)

// RepoState represents the current state of the repository
type RepoState struct {
	RepoStateID         string `json:"repoStateId"`
	HeadCommit          string `json:"headCommit"`
	StagedDiffHash      string `json:"stagedDiffHash"`
	WorkingTreeDiffHash string `json:"workingTreeDiffHash"`
	UntrackedListHash   string `json:"untrackedListHash"`
	Dirty               bool   `json:"dirty"`
	ComputedAt          string `json:"computedAt"`
}

// Compute computes the current repository state using git commands
func Compute(repoRoot string) (*RepoState, error) {
	headCommit, err := gitOutput(repoRoot, "rev-parse", "HEAD")
	if err != nil {
		return nil, errors.New(errors.GitUnavailable, "Failed to resolve HEAD commit", err)
	}

	stagedDiff, err := gitOutput(repoRoot, "diff", "--cached")
	if err != nil {
		return nil, errors.New(errors.GitUnavailable, "Failed to get staged diff", err)
	}
	stagedHash := hashString(stagedDiff)

	workingDiff, err := gitOutput(repoRoot, "diff", "HEAD")
	if err != nil {
		return nil, errors.New(errors.GitUnavailable, "Failed to get working tree diff", err)
	}
	workingHash := hashString(workingDiff)

	untracked, err := gitOutput(repoRoot, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, errors.New(errors.GitUnavailable, "Failed to list untracked files", err)
	}
	untrackedHash := hashString(untracked)

	dirty := stagedHash != EmptyHash ||
		workingHash != EmptyHash ||
		untrackedHash != EmptyHash

	composite := fmt.Sprintf("%s:%s:%s:%s", headCommit, stagedHash, workingHash, untrackedHash)

	return &RepoState{
		RepoStateID:         hashString(composite),
		HeadCommit:          headCommit,
		StagedDiffHash:      stagedHash,
		WorkingTreeDiffHash: workingHash,
		UntrackedListHash:   untrackedHash,
		Dirty:               dirty,
		ComputedAt:          time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// IsGitRepository checks if the given path is inside a git repository
func IsGitRepository(repoRoot string) bool {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = repoRoot
	return cmd.Run() == nil
}

// GetRepoRoot finds the git repository root from the given directory
func GetRepoRoot(startPath string) (string, error) {
	out, err := gitOutput(startPath, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", errors.New(errors.GitUnavailable, "Not a git repository", err)
	}
	return out, nil
}

func gitOutput(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir

	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

func hashString(s string) string {
	if s == "" {
		return EmptyHash
	}
	h := sha256.New()
	h.Write([]byte(s))
	return fmt.Sprintf("%x", h.Sum(nil))
}
