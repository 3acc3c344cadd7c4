package coverage

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"

	"tia/internal/config"
	"tia/internal/errors"
	"tia/internal/logging"
)

// Recorder executes discovered tests under coverage instrumentation and
// normalizes the toolchain's raw profiles into traces.
type Recorder struct {
	repoRoot   string
	scratchDir string
	runner     config.RunnerConfig
	modulePath string
	logger     *logging.Logger
}

// NewRecorder creates a recorder writing raw profiles under scratchDir.
// Fails fast when the toolchain binary is not on PATH: a recorder that
// cannot start produces no partial map.
func NewRecorder(repoRoot, scratchDir string, runner config.RunnerConfig, logger *logging.Logger) (*Recorder, error) {
	if _, err := exec.LookPath(runner.Command); err != nil {
		return nil, errors.New(errors.ToolchainUnavailable, "Test runner not found on PATH", err).
			WithDetails(map[string]interface{}{"command": runner.Command})
	}

	modulePath, err := ModulePath(repoRoot)
	if err != nil {
		return nil, errors.New(errors.ToolchainUnavailable, "Cannot determine module path", err)
	}

	if err := os.MkdirAll(scratchDir, 0755); err != nil {
		return nil, err
	}

	return &Recorder{
		repoRoot:   repoRoot,
		scratchDir: scratchDir,
		runner:     runner,
		modulePath: modulePath,
		logger:     logger,
	}, nil
}

// Record runs every test under line coverage and returns one trace per
// test. Tests run in parallel on a bounded pool; trace accumulation is
// commutative so completion order doesn't matter. A toolchain-level
// failure (compile error, runner missing) aborts the whole run.
func (r *Recorder) Record(ctx context.Context, tests []TestCase) ([]Trace, error) {
	var mu sync.Mutex
	traces := make([]Trace, 0, len(tests))

	g, gctx := errgroup.WithContext(ctx)
	workers := r.runner.Workers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)

	for _, tc := range tests {
		g.Go(func() error {
			trace, err := r.recordOne(gctx, tc)
			if err != nil {
				return err
			}
			mu.Lock()
			traces = append(traces, *trace)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return traces, nil
}

func (r *Recorder) recordOne(ctx context.Context, tc TestCase) (*Trace, error) {
	profilePath := filepath.Join(r.scratchDir, safeID(tc.ID)+".cov")

	pkgArg := "./" + tc.Package
	if tc.Package == "" {
		pkgArg = "."
	}
	args := append([]string{}, r.runner.Args...)
	args = append(args,
		"-run", "^"+tc.Name+"$",
		"-coverprofile", profilePath,
		"-count=1",
		pkgArg,
	)

	runCtx := ctx
	if r.runner.PerTestTimeMs > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(r.runner.PerTestTimeMs)*time.Millisecond)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(runCtx, r.runner.Command, args...)
	cmd.Dir = r.repoRoot
	output, runErr := cmd.CombinedOutput()
	elapsed := time.Since(start)

	if _, statErr := os.Stat(profilePath); statErr != nil {
		// No profile at all means the run never got to the test: compile
		// error or runner breakage. A partial map built past this point
		// would silently skip tests later, so abort the whole analysis.
		return nil, errors.New(errors.ToolchainUnavailable, "Test run produced no coverage profile", runErr).
			WithDetails(map[string]interface{}{
				"test":   tc.ID,
				"output": truncate(string(output), 2000),
			})
	}

	if runErr != nil {
		// The test itself failed but coverage was still recorded; the
		// trace is valid for mapping purposes
		r.logger.Warn("Test failed during coverage recording", map[string]interface{}{
			"test": tc.ID,
		})
	}

	hits, err := ParseProfile(profilePath, r.modulePath)
	if err != nil {
		return nil, fmt.Errorf("parsing profile for %s: %w", tc.ID, err)
	}

	if err := r.archiveProfile(profilePath); err != nil {
		// Archival is best-effort; the trace already carries the data
		r.logger.Warn("Failed to archive raw profile", map[string]interface{}{
			"test":  tc.ID,
			"error": err.Error(),
		})
	}

	r.logger.Debug("Recorded coverage trace", map[string]interface{}{
		"test":     tc.ID,
		"lines":    len(hits),
		"duration": elapsed.String(),
	})

	return &Trace{
		TestID:     tc.ID,
		Hits:       hits,
		DurationMs: elapsed.Milliseconds(),
	}, nil
}

// archiveProfile compresses the raw profile to <name>.cov.zst and removes
// the uncompressed original.
func (r *Recorder) archiveProfile(profilePath string) error {
	in, err := os.Open(profilePath)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(profilePath + ".zst")
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	enc, err := zstd.NewWriter(out)
	if err != nil {
		return err
	}
	if _, err := io.Copy(enc, in); err != nil {
		_ = enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	return os.Remove(profilePath)
}

func safeID(id string) string {
	return strings.NewReplacer("/", "__", ":", ".").Replace(id)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
