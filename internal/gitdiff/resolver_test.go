package gitdiff

import (
	"testing"

	"tia/internal/logging"
	"tia/internal/testutil"
)

func newTestLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{
		Format: logging.HumanFormat,
		Level:  logging.ErrorLevel,
	})
}

func TestResolveModifiedAndAdded(t *testing.T) {
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("pkg/foo.go", "package pkg\n")
	repo.Commit("initial")
	repo.Git("checkout", "-q", "-b", "feature")
	repo.WriteFile("pkg/foo.go", "package pkg\n\nvar x = 1\n")
	repo.WriteFile("pkg/bar.go", "package pkg\n")
	repo.Commit("change foo, add bar")

	r, err := NewResolver(repo.Root, newTestLogger())
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}

	cs, err := r.Resolve("main")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	kinds := map[string]ChangeKind{}
	for _, c := range cs.Changes {
		kinds[c.Path] = c.Kind
	}
	if kinds["pkg/foo.go"] != Modified {
		t.Errorf("pkg/foo.go: got %q, want modified", kinds["pkg/foo.go"])
	}
	if kinds["pkg/bar.go"] != Added {
		t.Errorf("pkg/bar.go: got %q, want added", kinds["pkg/bar.go"])
	}
}

func TestResolveDeleted(t *testing.T) {
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("pkg/foo.go", "package pkg\n")
	repo.WriteFile("pkg/old.go", "package pkg\n")
	repo.Commit("initial")
	repo.Git("checkout", "-q", "-b", "feature")
	repo.Remove("pkg/old.go")
	repo.Commit("remove old")

	r, err := NewResolver(repo.Root, newTestLogger())
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}

	cs, err := r.Resolve("main")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	found := false
	for _, c := range cs.Changes {
		if c.Path == "pkg/old.go" && c.Kind == Deleted {
			found = true
		}
	}
	if !found {
		t.Errorf("deleted file should be in change set: %+v", cs.Changes)
	}
}

func TestResolveIncludesUntracked(t *testing.T) {
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("pkg/foo.go", "package pkg\n")
	repo.Commit("initial")
	repo.Git("checkout", "-q", "-b", "feature")
	repo.WriteFile("pkg/new_file.go", "package pkg\n")

	r, err := NewResolver(repo.Root, newTestLogger())
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}

	cs, err := r.Resolve("main")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	found := false
	for _, c := range cs.Changes {
		if c.Path == "pkg/new_file.go" && c.Kind == Added {
			found = true
		}
	}
	if !found {
		t.Errorf("untracked file should appear as added: %+v", cs.Changes)
	}
}

func TestResolveEmptyBaseRef(t *testing.T) {
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("pkg/foo.go", "package pkg\n")
	repo.Commit("initial")

	r, err := NewResolver(repo.Root, newTestLogger())
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}

	if _, err := r.Resolve(""); err == nil {
		t.Error("empty base ref should be an error")
	}
}

func TestResolveNoChanges(t *testing.T) {
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("pkg/foo.go", "package pkg\n")
	repo.Commit("initial")
	repo.Git("checkout", "-q", "-b", "feature")

	r, err := NewResolver(repo.Root, newTestLogger())
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}

	cs, err := r.Resolve("main")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !cs.IsEmpty() {
		t.Errorf("expected empty change set, got %+v", cs.Changes)
	}
}

func TestNewResolverOutsideRepo(t *testing.T) {
	if _, err := NewResolver(t.TempDir(), newTestLogger()); err == nil {
		t.Error("resolver outside a git repo should fail")
	}
}

func TestParseNameStatusRename(t *testing.T) {
	lines := []string{
		"R100\tpkg/old.go\tpkg/new.go",
		"M\tpkg/foo.go",
	}

	changes := parseNameStatus(lines)

	if len(changes) != 3 {
		t.Fatalf("expected rename to decompose into delete+add, got %+v", changes)
	}
	if changes[0].Path != "pkg/old.go" || changes[0].Kind != Deleted {
		t.Errorf("rename old path: got %+v", changes[0])
	}
	if changes[1].Path != "pkg/new.go" || changes[1].Kind != Renamed || changes[1].OldPath != "pkg/old.go" {
		t.Errorf("rename new path: got %+v", changes[1])
	}
}
