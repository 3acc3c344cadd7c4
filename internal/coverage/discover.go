package coverage

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"tia/internal/paths"
)

// TestCase identifies one discoverable test in the repository.
type TestCase struct {
	// ID is "<package-dir>:<function>", e.g. "internal/paths:TestNormalize"
	ID string `json:"id"`
	// Name is the test function name
	Name string `json:"name"`
	// Package is the repo-relative package directory
	Package string `json:"package"`
	// File is the repo-relative test file
	File string `json:"file"`
}

// TestCaseID builds a test identifier from package dir and function name.
func TestCaseID(pkg, name string) string {
	return pkg + ":" + name
}

// DiscoverTests walks the repository for *_test.go files and extracts the
// test functions they declare. The result is sorted by ID so discovery is
// deterministic.
func DiscoverTests(repoRoot string) ([]TestCase, error) {
	var tests []TestCase

	err := filepath.Walk(repoRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Unreadable entries don't invalidate discovery
		}
		if info.IsDir() {
			name := info.Name()
			if path != repoRoot && (strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules" || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, "_test.go") {
			return nil
		}

		source, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		rel, err := paths.Canonicalize(path, repoRoot)
		if err != nil {
			return nil
		}
		pkg := filepath.ToSlash(filepath.Dir(rel))
		if pkg == "." {
			pkg = ""
		}

		for _, name := range extractTestNames(source) {
			tests = append(tests, TestCase{
				ID:      TestCaseID(pkg, name),
				Name:    name,
				Package: pkg,
				File:    rel,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(tests, func(i, j int) bool { return tests[i].ID < tests[j].ID })
	return tests, nil
}

// isTestName reports whether a function name is a runnable test.
// Benchmarks and fuzz targets are excluded: they don't run under plain
// `go test` and would bloat the map with identifiers `run` never executes.
func isTestName(name string) bool {
	if !strings.HasPrefix(name, "Test") {
		return false
	}
	if name == "Test" {
		return true
	}
	r := name[len("Test")]
	return r < 'a' || r > 'z'
}
