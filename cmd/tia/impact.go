package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tia/internal/config"
	"tia/internal/logging"
	"tia/internal/policy"
	"tia/internal/report"
)

var (
	impactBaseBranch string
	impactFormat     string
)

var impactCmd = &cobra.Command{
	Use:   "impact",
	Short: "Compute the impacted test set for the current branch",
	Long: `Resolve the files changed since the merge-base with --base-branch,
intersect them with the coverage map, and decide between a selective and
a full run.

On a RUN_IMPACTED decision the impacted test identifiers are written to
impacted-tests.txt at the repo root, one per line. The file is removed
otherwise: its absence tells the host pipeline to run the full suite.

Examples:
  tia impact --base-branch main                # Human-readable summary
  tia impact --base-branch main --format list  # Test IDs only, for CI
  tia impact --base-branch main --format json  # Full decision as JSON`,
	Run: runImpact,
}

func init() {
	impactCmd.Flags().StringVar(&impactBaseBranch, "base-branch", "",
		"Base branch to diff against (required for a differential build)")
	impactCmd.Flags().StringVar(&impactFormat, "format", "human",
		"Output format (json, human, list)")
	rootCmd.AddCommand(impactCmd)
}

func runImpact(cmd *cobra.Command, args []string) {
	start := time.Now()
	repoRoot := mustGetRepoRoot()
	cfg := mustLoadConfig(repoRoot)
	logger := newLogger(cfg)

	sel, err := computeSelection(cfg, logger, impactBaseBranch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing impact: %v\n", err)
		os.Exit(1)
	}

	if err := writeImpactedTests(repoRoot, sel.Decision); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", ImpactedTestsFile, err)
		os.Exit(1)
	}

	emitReport(cfg, logger, sel, time.Since(start))

	switch OutputFormat(impactFormat) {
	case FormatList:
		for _, id := range sel.Decision.Tests {
			fmt.Println(id)
		}
	case FormatJSON:
		output, err := formatJSON(impactResponse(sel))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(output)
	default:
		fmt.Print(formatImpactHuman(sel))
	}
}

// writeImpactedTests maintains the well-known selection file: present
// with one test ID per line for RUN_IMPACTED, absent for RUN_FULL.
func writeImpactedTests(repoRoot string, decision policy.Decision) error {
	path := filepath.Join(repoRoot, ImpactedTestsFile)

	if decision.Mode != policy.RunImpacted {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	content := strings.Join(decision.Tests, "\n") + "\n"
	return os.WriteFile(path, []byte(content), 0644)
}

// emitReport writes the run report. Reporting is a side effect: a
// failed write is logged and never fails the command.
func emitReport(cfg *config.Config, logger *logging.Logger, sel *selection, elapsed time.Duration) {
	r := report.Build(sel.Decision, sel.Impact, sel.ChangeSet, sel.AllTests, sel.Durations, elapsed)
	path, err := r.Write(cfg.ArtifactPath())
	if err != nil {
		logger.Warn("Failed to write report", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	logger.Info("Report written", map[string]interface{}{"path": path})
}

// impactResponseCLI is the JSON shape of an impact run.
type impactResponseCLI struct {
	Decision      policy.Decision `json:"decision"`
	ChangedFiles  []string        `json:"changedFiles"`
	ImpactedTests []string        `json:"impactedTests"`
	Escalated     bool            `json:"escalated"`
	Reason        string          `json:"reason"`
}

func impactResponse(sel *selection) *impactResponseCLI {
	resp := &impactResponseCLI{
		Decision:      sel.Decision,
		ChangedFiles:  []string{},
		ImpactedTests: sel.Decision.Tests,
		Reason:        sel.Decision.Reason,
	}
	if sel.ChangeSet != nil {
		resp.ChangedFiles = sel.ChangeSet.Paths()
	}
	if sel.Impact != nil {
		resp.Escalated = sel.Impact.Escalated
	}
	return resp
}

func formatImpactHuman(sel *selection) string {
	var b strings.Builder

	changed := 0
	if sel.ChangeSet != nil {
		changed = len(sel.ChangeSet.Changes)
	}
	b.WriteString(fmt.Sprintf("Changed files: %d\n", changed))
	b.WriteString(fmt.Sprintf("Decision:      %s\n", sel.Decision.Mode))
	b.WriteString(fmt.Sprintf("Reason:        %s\n", sel.Decision.Reason))

	if sel.Decision.Mode == policy.RunImpacted {
		b.WriteString(fmt.Sprintf("Impacted tests (%d):\n", len(sel.Decision.Tests)))
		for _, id := range sel.Decision.Tests {
			b.WriteString("  " + id + "\n")
		}
		b.WriteString(fmt.Sprintf("Selection written to %s\n", ImpactedTestsFile))
	}

	return b.String()
}
