// Package coverage runs the test suite under line-coverage instrumentation
// and normalizes the toolchain's raw output into per-test coverage traces.
package coverage

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/mod/modfile"

	"tia/internal/paths"
)

// LineHit is one (file, line) pair executed during a test run
type LineHit struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// Trace records which source lines one test executed. Ephemeral: traces
// are discarded after being folded into the coverage map.
type Trace struct {
	TestID     string    `json:"testId"`
	Hits       []LineHit `json:"hits"`
	DurationMs int64     `json:"durationMs"`
}

// ModulePath reads the module path from go.mod at the repo root. Coverage
// profiles qualify file names with the import path; the module path prefix
// is stripped to recover repo-relative keys.
func ModulePath(repoRoot string) (string, error) {
	data, err := os.ReadFile(paths.Join(repoRoot, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("reading go.mod: %w", err)
	}
	mp := modfile.ModulePath(data)
	if mp == "" {
		return "", fmt.Errorf("no module path in go.mod")
	}
	return mp, nil
}

// ParseProfile parses a Go cover profile into line hits for one test.
// Only blocks with a non-zero execution count contribute. File names are
// normalized to repo-relative paths by stripping the module path prefix.
func ParseProfile(path string, modulePath string) ([]LineHit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var hits []LineHit
	seen := make(map[LineHit]struct{})

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "mode:") {
			continue
		}

		block, ok := parseProfileLine(line)
		if !ok {
			continue
		}
		if block.count == 0 {
			continue
		}

		file := strings.TrimPrefix(block.file, modulePath+"/")
		for ln := block.startLine; ln <= block.endLine; ln++ {
			hit := LineHit{File: paths.Normalize(file), Line: ln}
			if _, dup := seen[hit]; dup {
				continue
			}
			seen[hit] = struct{}{}
			hits = append(hits, hit)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return hits, nil
}

type profileBlock struct {
	file      string
	startLine int
	endLine   int
	count     int
}

// parseProfileLine parses "file.go:start.col,end.col numStmts count".
func parseProfileLine(line string) (profileBlock, bool) {
	colon := strings.LastIndex(line, ":")
	if colon < 0 {
		return profileBlock{}, false
	}
	file := line[:colon]
	rest := line[colon+1:]

	fields := strings.Fields(rest)
	if len(fields) != 3 {
		return profileBlock{}, false
	}

	span := strings.Split(fields[0], ",")
	if len(span) != 2 {
		return profileBlock{}, false
	}

	start := strings.Split(span[0], ".")
	end := strings.Split(span[1], ".")
	if len(start) != 2 || len(end) != 2 {
		return profileBlock{}, false
	}

	startLine, err1 := strconv.Atoi(start[0])
	endLine, err2 := strconv.Atoi(end[0])
	count, err3 := strconv.Atoi(fields[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return profileBlock{}, false
	}

	return profileBlock{
		file:      file,
		startLine: startLine,
		endLine:   endLine,
		count:     count,
	}, true
}
