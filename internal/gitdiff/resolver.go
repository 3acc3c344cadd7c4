// Package gitdiff resolves the set of files changed between a base
// reference and the working tree. Paths are normalized the same way as
// coverage-map keys so membership tests are exact-string.
package gitdiff

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"tia/internal/errors"
	"tia/internal/logging"
	"tia/internal/paths"
	"tia/internal/repostate"
)

// DefaultTimeout bounds individual git invocations
const DefaultTimeout = 5000 * time.Millisecond

// ChangeKind classifies a change-set entry
type ChangeKind string

const (
	// Added is a file created since the base
	Added ChangeKind = "added"
	// Modified is a file whose content changed
	Modified ChangeKind = "modified"
	// Deleted is a file removed since the base
	Deleted ChangeKind = "deleted"
	// Renamed is a file moved since the base; treated as delete+add for
	// impact purposes, no content-similarity heuristic
	Renamed ChangeKind = "renamed"
)

// Change is one entry in a change set
type Change struct {
	Path    string     `json:"path"`
	OldPath string     `json:"oldPath,omitempty"`
	Kind    ChangeKind `json:"kind"`
}

// ChangeSet is the set of files modified between base and head
type ChangeSet struct {
	BaseRef   string   `json:"baseRef"`
	MergeBase string   `json:"mergeBase"`
	Changes   []Change `json:"changes"`
}

// Paths returns the normalized paths of all changes
func (cs *ChangeSet) Paths() []string {
	out := make([]string, 0, len(cs.Changes))
	for _, c := range cs.Changes {
		out = append(out, c.Path)
	}
	return out
}

// IsEmpty reports whether the change set has no entries
func (cs *ChangeSet) IsEmpty() bool {
	return len(cs.Changes) == 0
}

// Resolver computes change sets via git
type Resolver struct {
	repoRoot string
	timeout  time.Duration
	logger   *logging.Logger
}

// NewResolver creates a change-set resolver for the given repository.
func NewResolver(repoRoot string, logger *logging.Logger) (*Resolver, error) {
	if !repostate.IsGitRepository(repoRoot) {
		return nil, errors.New(errors.GitUnavailable, "Not a git repository", nil)
	}

	return &Resolver{
		repoRoot: repoRoot,
		timeout:  DefaultTimeout,
		logger:   logger,
	}, nil
}

// Resolve computes the change set between the merge-base with baseRef and
// the working tree (committed + uncommitted + untracked changes).
// An empty or unresolvable baseRef is a GitUnavailable error: without a
// comparison base there is no differential build.
func (r *Resolver) Resolve(baseRef string) (*ChangeSet, error) {
	if baseRef == "" {
		return nil, errors.New(errors.GitUnavailable, "No base reference for comparison", nil)
	}

	mergeBase, err := r.git("merge-base", baseRef, "HEAD")
	if err != nil {
		return nil, errors.New(errors.GitUnavailable, "Failed to resolve merge-base", err).
			WithDetails(map[string]interface{}{"baseRef": baseRef})
	}

	lines, err := r.gitLines("diff", "--name-status", mergeBase)
	if err != nil {
		return nil, errors.New(errors.GitUnavailable, "Failed to diff against merge-base", err)
	}

	changes := parseNameStatus(lines)

	// Untracked files are part of the head state but invisible to diff
	untracked, err := r.gitLines("ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, errors.New(errors.GitUnavailable, "Failed to list untracked files", err)
	}
	for _, path := range untracked {
		changes = append(changes, Change{Path: paths.Normalize(path), Kind: Added})
	}

	r.logger.Debug("Resolved change set", map[string]interface{}{
		"baseRef":   baseRef,
		"mergeBase": mergeBase,
		"files":     len(changes),
	})

	return &ChangeSet{
		BaseRef:   baseRef,
		MergeBase: mergeBase,
		Changes:   changes,
	}, nil
}

// parseNameStatus parses `git diff --name-status` output.
// Lines are "<status>\t<path>" or "R<score>\t<old>\t<new>".
func parseNameStatus(lines []string) []Change {
	changes := make([]Change, 0, len(lines))

	for _, line := range lines {
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}

		status := parts[0]
		switch status[0] {
		case 'A':
			changes = append(changes, Change{Path: paths.Normalize(parts[1]), Kind: Added})
		case 'D':
			changes = append(changes, Change{Path: paths.Normalize(parts[1]), Kind: Deleted})
		case 'R', 'C':
			if len(parts) < 3 {
				continue
			}
			// Rename decomposes into delete+add: the old path can still
			// break tests that referenced it, the new path is unmapped
			changes = append(changes,
				Change{Path: paths.Normalize(parts[1]), Kind: Deleted},
				Change{Path: paths.Normalize(parts[2]), OldPath: paths.Normalize(parts[1]), Kind: Renamed},
			)
		default:
			changes = append(changes, Change{Path: paths.Normalize(parts[1]), Kind: Modified})
		}
	}

	return changes
}

func (r *Resolver) git(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.repoRoot

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", errors.New(errors.Timeout, "Git command timed out", err)
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", errors.New(errors.InternalError, "Git command failed", err).
				WithDetails(map[string]interface{}{
					"args":   args,
					"stderr": string(exitErr.Stderr),
				})
		}
		return "", err
	}

	return strings.TrimSpace(string(output)), nil
}

func (r *Resolver) gitLines(args ...string) ([]string, error) {
	output, err := r.git(args...)
	if err != nil {
		return nil, err
	}
	if output == "" {
		return []string{}, nil
	}

	lines := strings.Split(output, "\n")
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimRight(line, "\r"); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result, nil
}
