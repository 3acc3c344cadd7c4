// Package impact intersects a change set with the coverage map to
// produce the set of impacted tests, escalating when selection cannot
// be narrowed safely.
package impact

import (
	"path"
	"sort"
	"strings"

	"tia/internal/covermap"
	"tia/internal/gitdiff"
)

// Result is the outcome of impact analysis for one change set.
type Result struct {
	// Tests is the sorted union of tests covering the changed files.
	Tests []string `json:"tests"`

	// Escalated is set when selection cannot safely narrow the run.
	Escalated        bool   `json:"escalated"`
	EscalationReason string `json:"escalationReason,omitempty"`

	// UnmappedFiles are changed files with zero recorded coverage.
	UnmappedFiles []string `json:"unmappedFiles,omitempty"`

	// StructuralFiles are changed files matching structural patterns.
	StructuralFiles []string `json:"structuralFiles,omitempty"`
}

// Analyze intersects the change set against the coverage map.
//
// Deleted files contribute no tests (no lines left to have covered) and
// never escalate on their own; a deletion-only change set degrades to an
// empty result and the policy layer decides what that means. Structural
// and unmapped files escalate: their blast radius is not representable
// by line coverage.
func Analyze(cs *gitdiff.ChangeSet, m *covermap.CoverageMap, patterns []string) *Result {
	result := &Result{}
	if cs == nil || cs.IsEmpty() {
		return result
	}

	testSet := make(map[string]struct{})

	for _, change := range cs.Changes {
		if MatchesStructural(change.Path, patterns) {
			result.StructuralFiles = append(result.StructuralFiles, change.Path)
			continue
		}

		if change.Kind == gitdiff.Deleted {
			continue
		}

		tests, ok := m.Tests(change.Path)
		if !ok {
			result.UnmappedFiles = append(result.UnmappedFiles, change.Path)
			continue
		}
		for _, id := range tests {
			testSet[id] = struct{}{}
		}
	}

	if len(result.StructuralFiles) > 0 {
		result.Escalated = true
		result.EscalationReason = "structural file changed: " + result.StructuralFiles[0]
	} else if len(result.UnmappedFiles) > 0 {
		result.Escalated = true
		result.EscalationReason = "file has no recorded coverage: " + result.UnmappedFiles[0]
	}

	result.Tests = make([]string, 0, len(testSet))
	for id := range testSet {
		result.Tests = append(result.Tests, id)
	}
	sort.Strings(result.Tests)

	return result
}

// MatchesStructural reports whether a normalized path matches any
// structural-escalation pattern. Patterns ending in "/" match any file
// under a directory of that name; other patterns match the full path or
// the basename, with shell-glob metacharacters honored.
func MatchesStructural(filePath string, patterns []string) bool {
	base := path.Base(filePath)

	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}

		if strings.HasSuffix(pattern, "/") {
			if strings.HasPrefix(filePath, pattern) || strings.Contains(filePath, "/"+pattern) {
				return true
			}
			continue
		}

		if ok, err := path.Match(pattern, filePath); err == nil && ok {
			return true
		}
		if ok, err := path.Match(pattern, base); err == nil && ok {
			return true
		}
	}

	return false
}
