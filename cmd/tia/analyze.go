package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"tia/internal/coverage"
	"tia/internal/covermap"
	"tia/internal/repostate"
)

var (
	analyzeOutputDir string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Build the coverage map from a full-suite run",
	Long: `Run every discoverable test under line-coverage instrumentation and
build the file-to-tests coverage map used by 'impact' and 'run'.

Intended to run on the base branch (the future merge-base of pull
requests). A non-zero exit leaves no coverage map behind: a partial map
would silently skip tests later.

Examples:
  tia analyze                               # Write artifacts under .tia-coverage/
  tia analyze --output-dir build/coverage   # Custom artifact location`,
	Run: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeOutputDir, "output-dir", "",
		"Artifact directory, relative to the repo root (default: .tia-coverage)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) {
	start := time.Now()
	repoRoot := mustGetRepoRoot()
	cfg := mustLoadConfig(repoRoot)
	if analyzeOutputDir != "" {
		cfg.ArtifactDir = analyzeOutputDir
	}
	logger := newLogger(cfg)
	ctx := newContext()

	state, err := repostate.Compute(repoRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading repository state: %v\n", err)
		os.Exit(1)
	}
	if state.Dirty {
		logger.Warn("Working tree is dirty; the map will be stamped with HEAD anyway", map[string]interface{}{
			"head": state.HeadCommit,
		})
	}

	tests, err := coverage.DiscoverTests(repoRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error discovering tests: %v\n", err)
		os.Exit(1)
	}
	logger.Info("Discovered tests", map[string]interface{}{"count": len(tests)})

	artifactDir := cfg.ArtifactPath()
	scratchDir := filepath.Join(artifactDir, "traces")
	recorder, err := coverage.NewRecorder(repoRoot, scratchDir, cfg.Runner, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	traces, err := recorder.Record(ctx, tests)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error recording coverage: %v\n", err)
		os.Exit(1)
	}

	// Zero traces exits non-zero with no map written: an empty map would
	// read as "nothing is covered" downstream
	m, err := covermap.Build(traces)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	durations := make(map[string]int64, len(traces))
	for _, tr := range traces {
		durations[tr.TestID] = tr.DurationMs
	}

	store, err := covermap.Open(artifactDir, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening coverage store: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	if err := store.Save(m, durations); err != nil {
		fmt.Fprintf(os.Stderr, "Error persisting coverage map: %v\n", err)
		os.Exit(1)
	}

	elapsed := time.Since(start)
	meta := &covermap.Meta{
		CreatedAt:   time.Now().UTC(),
		CommitHash:  state.HeadCommit,
		RepoStateID: state.RepoStateID,
		FileCount:   m.FileCount(),
		TestCount:   m.TestCount(),
		Duration:    elapsed.Round(time.Millisecond).String(),
		Runner:      cfg.Runner.Command,
	}
	if err := meta.Save(artifactDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing map metadata: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Coverage map built: %d files, %d tests (%s)\n",
		m.FileCount(), m.TestCount(), elapsed.Round(time.Millisecond))
	fmt.Printf("Artifacts written to %s\n", artifactDir)
}
