package impact

import (
	"testing"

	"tia/internal/config"
	"tia/internal/covermap"
	"tia/internal/gitdiff"
)

func testMap() *covermap.CoverageMap {
	m := covermap.New()
	m.Add("pkg/foo.go", "pkg:TestFoo")
	m.Add("pkg/foo.go", "pkg:TestFooEdge")
	m.Add("pkg/bar.go", "pkg:TestBar")
	return m
}

func changeSet(changes ...gitdiff.Change) *gitdiff.ChangeSet {
	return &gitdiff.ChangeSet{BaseRef: "main", MergeBase: "abc", Changes: changes}
}

func TestAnalyzeMappedFile(t *testing.T) {
	cs := changeSet(gitdiff.Change{Path: "pkg/foo.go", Kind: gitdiff.Modified})

	result := Analyze(cs, testMap(), config.DefaultStructuralPatterns)

	if result.Escalated {
		t.Fatalf("unexpected escalation: %s", result.EscalationReason)
	}
	want := []string{"pkg:TestFoo", "pkg:TestFooEdge"}
	if len(result.Tests) != 2 || result.Tests[0] != want[0] || result.Tests[1] != want[1] {
		t.Errorf("Tests = %v, want %v", result.Tests, want)
	}
}

func TestAnalyzeEmptyChangeSet(t *testing.T) {
	result := Analyze(changeSet(), testMap(), config.DefaultStructuralPatterns)

	if result.Escalated || len(result.Tests) != 0 {
		t.Errorf("empty change set must produce an empty, non-escalated result: %+v", result)
	}
}

func TestAnalyzeStructuralFile(t *testing.T) {
	cs := changeSet(
		gitdiff.Change{Path: "go.mod", Kind: gitdiff.Modified},
		gitdiff.Change{Path: "pkg/foo.go", Kind: gitdiff.Modified},
	)

	result := Analyze(cs, testMap(), config.DefaultStructuralPatterns)

	if !result.Escalated {
		t.Fatal("structural change must escalate")
	}
	if len(result.StructuralFiles) != 1 || result.StructuralFiles[0] != "go.mod" {
		t.Errorf("StructuralFiles = %v", result.StructuralFiles)
	}
}

func TestAnalyzeUnmappedFile(t *testing.T) {
	cs := changeSet(gitdiff.Change{Path: "pkg/new_file.go", Kind: gitdiff.Added})

	result := Analyze(cs, testMap(), config.DefaultStructuralPatterns)

	if !result.Escalated {
		t.Fatal("unmapped file must escalate")
	}
	if len(result.UnmappedFiles) != 1 || result.UnmappedFiles[0] != "pkg/new_file.go" {
		t.Errorf("UnmappedFiles = %v", result.UnmappedFiles)
	}
}

func TestAnalyzeDeletedFiles(t *testing.T) {
	// Deleted files contribute nothing and do not escalate on their own
	cs := changeSet(
		gitdiff.Change{Path: "pkg/gone.go", Kind: gitdiff.Deleted},
		gitdiff.Change{Path: "pkg/foo.go", Kind: gitdiff.Deleted},
	)

	result := Analyze(cs, testMap(), config.DefaultStructuralPatterns)

	if result.Escalated {
		t.Errorf("deletion-only change set must not escalate: %+v", result)
	}
	if len(result.Tests) != 0 {
		t.Errorf("deleted files must contribute no tests, got %v", result.Tests)
	}
}

func TestAnalyzeRenameEscalates(t *testing.T) {
	// Rename decomposes into deleted old path plus unmapped new path
	cs := changeSet(
		gitdiff.Change{Path: "pkg/foo.go", Kind: gitdiff.Deleted},
		gitdiff.Change{Path: "pkg/foo_renamed.go", OldPath: "pkg/foo.go", Kind: gitdiff.Renamed},
	)

	result := Analyze(cs, testMap(), config.DefaultStructuralPatterns)

	if !result.Escalated {
		t.Error("renamed file with no coverage under its new path must escalate")
	}
}

func TestAnalyzeSupersetOfMappedUnion(t *testing.T) {
	cs := changeSet(
		gitdiff.Change{Path: "pkg/foo.go", Kind: gitdiff.Modified},
		gitdiff.Change{Path: "pkg/bar.go", Kind: gitdiff.Modified},
	)

	result := Analyze(cs, testMap(), config.DefaultStructuralPatterns)

	want := map[string]bool{"pkg:TestFoo": true, "pkg:TestFooEdge": true, "pkg:TestBar": true}
	for id := range want {
		found := false
		for _, got := range result.Tests {
			if got == id {
				found = true
			}
		}
		if !found {
			t.Errorf("result missing %s from mapped union", id)
		}
	}
}

func TestMatchesStructural(t *testing.T) {
	patterns := config.DefaultStructuralPatterns

	tests := []struct {
		path string
		want bool
	}{
		{"go.mod", true},
		{"go.sum", true},
		{"Makefile", true},
		{"build/rules.mk", true},
		{"testdata/fixture.json", true},
		{"pkg/testdata/golden.txt", true},
		{".github/workflows/ci.yml", true},
		{"Jenkinsfile", true},
		{"pkg/foo.go", false},
		{"docs/go.mode", false},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			if got := MatchesStructural(tc.path, patterns); got != tc.want {
				t.Errorf("MatchesStructural(%q) = %v, want %v", tc.path, got, tc.want)
			}
		})
	}
}

func TestMatchesStructuralCustomPattern(t *testing.T) {
	patterns := []string{"proto/*.proto", "migrations/"}

	if !MatchesStructural("proto/api.proto", patterns) {
		t.Error("glob path pattern should match")
	}
	if MatchesStructural("other/api.proto", patterns) {
		t.Error("glob path pattern should not match other directories")
	}
	if !MatchesStructural("migrations/001_init.sql", patterns) {
		t.Error("directory pattern should match")
	}
}
