// Package covermap builds and persists the mapping from source file to
// the set of tests that execute code in that file.
package covermap

import (
	"sort"

	"tia/internal/coverage"
	"tia/internal/errors"
)

// CoverageMap maps normalized repo-relative file paths to the set of test
// identifiers known to execute lines in that file.
type CoverageMap struct {
	files map[string]map[string]struct{}
}

// New returns an empty coverage map.
func New() *CoverageMap {
	return &CoverageMap{files: make(map[string]map[string]struct{})}
}

// Build folds per-test traces into a coverage map. Pure set union:
// the result is identical regardless of trace order. Zero traces is a
// build failure, distinguishable from "analysis not run": an empty map
// would later read as "nothing is covered" and trigger silent skips.
func Build(traces []coverage.Trace) (*CoverageMap, error) {
	if len(traces) == 0 {
		return nil, errors.New(errors.NoTraces, "Coverage run produced zero traces", nil)
	}

	m := New()
	for _, tr := range traces {
		m.AddTrace(tr)
	}
	return m, nil
}

// AddTrace unions one trace into the map.
func (m *CoverageMap) AddTrace(tr coverage.Trace) {
	for _, hit := range tr.Hits {
		set, ok := m.files[hit.File]
		if !ok {
			set = make(map[string]struct{})
			m.files[hit.File] = set
		}
		set[tr.TestID] = struct{}{}
	}
}

// Add records that testID covers file. Used by the store when loading.
func (m *CoverageMap) Add(file, testID string) {
	set, ok := m.files[file]
	if !ok {
		set = make(map[string]struct{})
		m.files[file] = set
	}
	set[testID] = struct{}{}
}

// Tests returns the sorted test identifiers covering a file, and whether
// the file is mapped at all.
func (m *CoverageMap) Tests(file string) ([]string, bool) {
	set, ok := m.files[file]
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, true
}

// Contains reports whether the file has any recorded coverage.
func (m *CoverageMap) Contains(file string) bool {
	_, ok := m.files[file]
	return ok
}

// Files returns the sorted mapped file paths.
func (m *CoverageMap) Files() []string {
	out := make([]string, 0, len(m.files))
	for f := range m.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// AllTests returns the sorted union of every test identifier in the map.
func (m *CoverageMap) AllTests() []string {
	set := make(map[string]struct{})
	for _, tests := range m.files {
		for id := range tests {
			set[id] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// FileCount returns the number of mapped files.
func (m *CoverageMap) FileCount() int {
	return len(m.files)
}

// TestCount returns the number of distinct tests in the map.
func (m *CoverageMap) TestCount() int {
	return len(m.AllTests())
}

// Equal reports whether two maps contain the same file→test-set mapping.
func (m *CoverageMap) Equal(other *CoverageMap) bool {
	if len(m.files) != len(other.files) {
		return false
	}
	for file, set := range m.files {
		oset, ok := other.files[file]
		if !ok || len(set) != len(oset) {
			return false
		}
		for id := range set {
			if _, ok := oset[id]; !ok {
				return false
			}
		}
	}
	return true
}
