// Package runner executes the selected test set, either the impacted
// subset grouped by package or the full suite, streaming the
// toolchain's pass/fail output for the host CI to parse.
package runner

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tia/internal/config"
	"tia/internal/errors"
	"tia/internal/logging"
)

// Runner executes tests through the configured toolchain.
type Runner struct {
	repoRoot string
	cfg      config.RunnerConfig
	logger   *logging.Logger
	stdout   io.Writer
}

// Result summarizes one test execution.
type Result struct {
	PackagesRun int
	Failed      []string
	DurationMs  int64
	ExitCode    int
}

// New creates a runner. Fails fast when the toolchain binary is not on
// PATH so the failure surfaces before any selection decision is acted on.
func New(repoRoot string, cfg config.RunnerConfig, logger *logging.Logger, stdout io.Writer) (*Runner, error) {
	if _, err := exec.LookPath(cfg.Command); err != nil {
		return nil, errors.New(errors.ToolchainUnavailable, "Test runner not found on PATH", err).
			WithDetails(map[string]interface{}{"command": cfg.Command})
	}

	return &Runner{
		repoRoot: repoRoot,
		cfg:      cfg,
		logger:   logger,
		stdout:   stdout,
	}, nil
}

// RunFull executes the entire suite in a single toolchain invocation.
// The toolchain's exit code is preserved in the result; a non-zero exit
// returns a TestFailed error alongside it.
func (r *Runner) RunFull(ctx context.Context) (*Result, error) {
	args := append([]string{}, r.cfg.Args...)
	args = append(args, "-count=1", "./...")

	start := time.Now()
	cmd := exec.CommandContext(ctx, r.cfg.Command, args...)
	cmd.Dir = r.repoRoot
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stdout
	err := cmd.Run()

	result := &Result{
		PackagesRun: 1,
		DurationMs:  time.Since(start).Milliseconds(),
	}

	if err != nil {
		result.ExitCode = exitCode(err)
		result.Failed = []string{"./..."}
		return result, errors.New(errors.TestFailed, "Full test suite failed", err).
			WithDetails(map[string]interface{}{"exitCode": result.ExitCode})
	}

	return result, nil
}

// RunImpacted executes exactly the given test identifiers, grouped per
// package and run on a bounded worker pool. Every group runs even when
// an earlier one fails; failures accumulate and surface once at the end
// with the highest exit code seen.
func (r *Runner) RunImpacted(ctx context.Context, tests []string) (*Result, error) {
	groups := groupByPackage(tests)

	pkgs := make([]string, 0, len(groups))
	for pkg := range groups {
		pkgs = append(pkgs, pkg)
	}
	sort.Strings(pkgs)

	var mu sync.Mutex
	var failed []string
	maxExit := 0

	g, gctx := errgroup.WithContext(ctx)
	workers := r.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)

	start := time.Now()
	for _, pkg := range pkgs {
		g.Go(func() error {
			output, err := r.runPackage(gctx, pkg, groups[pkg])

			mu.Lock()
			defer mu.Unlock()
			// Whole blocks at a time so parallel groups don't interleave
			_, _ = r.stdout.Write(output)
			if err != nil {
				failed = append(failed, pkg)
				if code := exitCode(err); code > maxExit {
					maxExit = code
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(failed)
	result := &Result{
		PackagesRun: len(pkgs),
		Failed:      failed,
		DurationMs:  time.Since(start).Milliseconds(),
		ExitCode:    maxExit,
	}

	if len(failed) > 0 {
		return result, errors.New(errors.TestFailed, "Impacted tests failed", nil).
			WithDetails(map[string]interface{}{
				"packages": failed,
				"exitCode": maxExit,
			})
	}

	r.logger.Info("Impacted tests passed", map[string]interface{}{
		"tests":    len(tests),
		"packages": len(pkgs),
	})
	return result, nil
}

func (r *Runner) runPackage(ctx context.Context, pkg string, names []string) ([]byte, error) {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = regexp.QuoteMeta(name)
	}

	pkgArg := "./" + pkg
	if pkg == "" {
		pkgArg = "."
	}

	args := append([]string{}, r.cfg.Args...)
	args = append(args,
		"-run", "^("+strings.Join(quoted, "|")+")$",
		"-count=1",
		pkgArg,
	)

	runCtx := ctx
	if r.cfg.PerTestTimeMs > 0 {
		var cancel context.CancelFunc
		timeout := time.Duration(r.cfg.PerTestTimeMs) * time.Millisecond * time.Duration(len(names))
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, r.cfg.Command, args...)
	cmd.Dir = r.repoRoot

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), err
}

// groupByPackage splits "<pkg>:<TestName>" identifiers into per-package
// name lists. Identifiers without a package separator fall into the
// root package.
func groupByPackage(tests []string) map[string][]string {
	groups := make(map[string][]string)
	for _, id := range tests {
		pkg, name := "", id
		if i := strings.LastIndex(id, ":"); i >= 0 {
			pkg, name = id[:i], id[i+1:]
		}
		if name == "" {
			continue
		}
		groups[pkg] = append(groups[pkg], name)
	}
	for pkg := range groups {
		sort.Strings(groups[pkg])
	}
	return groups
}

func exitCode(err error) int {
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return 1
}
