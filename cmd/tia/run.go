package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tia/internal/errors"
	"tia/internal/policy"
	"tia/internal/runner"
)

var (
	runBaseBranch string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the selected test set",
	Long: `Derive the run decision the same way 'impact' does and execute it:
exactly the impacted tests for RUN_IMPACTED, the whole suite for
RUN_FULL. Toolchain output streams through unchanged so the host CI's
result parser sees ordinary test output.

The exit code is the test runner's: a failing test fails this command
regardless of how the selection was made.

Examples:
  tia run --base-branch main     # Selective run for a PR build
  tia run                        # Mainline build, always the full suite`,
	Run: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runBaseBranch, "base-branch", "",
		"Base branch to diff against (empty means a full mainline build)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) {
	start := time.Now()
	repoRoot := mustGetRepoRoot()
	cfg := mustLoadConfig(repoRoot)
	logger := newLogger(cfg)
	ctx := newContext()

	sel, err := computeSelection(cfg, logger, runBaseBranch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing selection: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Decision: %s (%s)\n", sel.Decision.Mode, sel.Decision.Reason)

	r, err := runner.New(repoRoot, cfg.Runner, logger, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var result *runner.Result
	if sel.Decision.Mode == policy.RunImpacted {
		result, err = r.RunImpacted(ctx, sel.Decision.Tests)
	} else {
		result, err = r.RunFull(ctx)
	}

	emitReport(cfg, logger, sel, time.Since(start))

	if err != nil {
		if errors.CodeOf(err) == errors.TestFailed {
			fmt.Fprintf(os.Stderr, "Tests failed in %d package(s)\n", len(result.Failed))
			if result.ExitCode > 0 {
				os.Exit(result.ExitCode)
			}
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error running tests: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Tests passed (%d package invocation(s), %dms)\n",
		result.PackagesRun, result.DurationMs)
}
