// Package report emits a structured record of each impact-analysis run.
// Reports are a side effect only: a failed write is logged by the
// caller and never fails the pipeline.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"tia/internal/errors"
	"tia/internal/gitdiff"
	"tia/internal/impact"
	"tia/internal/policy"
)

// ReportsDir is the subdirectory of the artifact dir holding run reports.
const ReportsDir = "reports"

// Report records what one impact run decided and why.
type Report struct {
	RunID     string    `json:"runId"`
	CreatedAt time.Time `json:"createdAt"`

	BaseRef      string   `json:"baseRef,omitempty"`
	MergeBase    string   `json:"mergeBase,omitempty"`
	ChangedFiles []string `json:"changedFiles"`

	Decision policy.Decision `json:"decision"`

	ImpactedTests []string `json:"impactedTests"`
	SkippedTests  []string `json:"skippedTests"`
	TotalTests    int      `json:"totalTests"`

	DurationMs       int64 `json:"durationMs"`
	EstimatedSavedMs int64 `json:"estimatedSavedMs"`
}

// Build assembles a report from the run's inputs. allTests is the full
// test universe from the coverage map; durations are the per-test
// timings recorded during analysis, used to estimate time saved by the
// tests that were skipped.
func Build(decision policy.Decision, result *impact.Result, cs *gitdiff.ChangeSet, allTests []string, durations map[string]int64, elapsed time.Duration) *Report {
	r := &Report{
		RunID:         uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		ChangedFiles:  []string{},
		ImpactedTests: []string{},
		SkippedTests:  []string{},
		Decision:      decision,
		TotalTests:    len(allTests),
		DurationMs:    elapsed.Milliseconds(),
	}

	if cs != nil {
		r.BaseRef = cs.BaseRef
		r.MergeBase = cs.MergeBase
		r.ChangedFiles = cs.Paths()
	}

	if decision.Mode != policy.RunImpacted {
		return r
	}

	impacted := make(map[string]struct{}, len(result.Tests))
	for _, id := range result.Tests {
		impacted[id] = struct{}{}
	}
	r.ImpactedTests = result.Tests

	for _, id := range allTests {
		if _, ok := impacted[id]; ok {
			continue
		}
		r.SkippedTests = append(r.SkippedTests, id)
		r.EstimatedSavedMs += durations[id]
	}

	return r
}

// Write persists the report under <artifactDir>/reports/. Returns the
// written path; errors carry the ReportWriteFailed code so callers can
// log and continue.
func (r *Report) Write(artifactDir string) (string, error) {
	dir := filepath.Join(artifactDir, ReportsDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.New(errors.ReportWriteFailed, "Failed to create reports directory", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", errors.New(errors.ReportWriteFailed, "Failed to marshal report", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("report-%s.json", r.RunID))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.New(errors.ReportWriteFailed, "Failed to write report", err)
	}

	return path, nil
}
