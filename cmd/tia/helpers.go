package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tia/internal/config"
	"tia/internal/logging"
	"tia/internal/repostate"
)

// ImpactedTestsFile is the well-known file the host pipeline reads to
// learn which tests to run. Written only for a RUN_IMPACTED decision;
// its absence means "run everything".
const ImpactedTestsFile = "impacted-tests.txt"

// newLogger builds a logger from the config, with --verbose overriding
// the configured level.
func newLogger(cfg *config.Config) *logging.Logger {
	level := logging.ParseLevel(cfg.Logging.Level)
	if verboseFlag {
		level = logging.DebugLevel
	}
	format := logging.HumanFormat
	if cfg.Logging.Format == string(logging.JSONFormat) {
		format = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{Format: format, Level: level})
}

// mustGetRepoRoot returns the repository root or exits on error.
func mustGetRepoRoot() string {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error determining working directory: %v\n", err)
		os.Exit(1)
	}
	root, err := repostate.GetRepoRoot(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return root
}

// mustLoadConfig loads the engine config or exits on error.
func mustLoadConfig(repoRoot string) *config.Config {
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// newContext returns a context cancelled on SIGINT/SIGTERM so test
// subprocesses are torn down with the engine.
func newContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}
