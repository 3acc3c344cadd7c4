package repostate

import (
	"testing"

	"tia/internal/testutil"
)

func TestComputeCleanRepo(t *testing.T) {
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("pkg/foo.go", "package pkg\n")
	head := repo.Commit("initial")

	rs, err := Compute(repo.Root)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if rs.HeadCommit != head {
		t.Errorf("HeadCommit: got %s, want %s", rs.HeadCommit, head)
	}
	if rs.Dirty {
		t.Error("clean repo should not be dirty")
	}
	if rs.StagedDiffHash != EmptyHash {
		t.Errorf("clean repo staged hash: got %s", rs.StagedDiffHash)
	}
	if rs.RepoStateID == "" {
		t.Error("RepoStateID should be set")
	}
}

func TestComputeDirtyRepo(t *testing.T) {
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("pkg/foo.go", "package pkg\n")
	repo.Commit("initial")

	clean, err := Compute(repo.Root)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	repo.WriteFile("pkg/foo.go", "package pkg\n\nvar x = 1\n")

	dirty, err := Compute(repo.Root)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if !dirty.Dirty {
		t.Error("modified repo should be dirty")
	}
	if dirty.RepoStateID == clean.RepoStateID {
		t.Error("RepoStateID should change when working tree changes")
	}
	if dirty.HeadCommit != clean.HeadCommit {
		t.Error("HeadCommit should not change for working tree edits")
	}
}

func TestComputeUntrackedAffectsState(t *testing.T) {
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("pkg/foo.go", "package pkg\n")
	repo.Commit("initial")

	before, err := Compute(repo.Root)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	repo.WriteFile("pkg/new_file.go", "package pkg\n")

	after, err := Compute(repo.Root)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if !after.Dirty {
		t.Error("untracked file should mark repo dirty")
	}
	if after.RepoStateID == before.RepoStateID {
		t.Error("untracked file should change RepoStateID")
	}
}

func TestIsGitRepository(t *testing.T) {
	repo := testutil.NewGitRepo(t)
	if !IsGitRepository(repo.Root) {
		t.Error("initialized repo should be detected")
	}

	if IsGitRepository(t.TempDir()) {
		t.Error("plain directory should not be a git repository")
	}
}

func TestGetRepoRoot(t *testing.T) {
	repo := testutil.NewGitRepo(t)
	repo.WriteFile("pkg/foo.go", "package pkg\n")
	repo.Commit("initial")

	root, err := GetRepoRoot(repo.Root)
	if err != nil {
		t.Fatalf("GetRepoRoot failed: %v", err)
	}
	if root == "" {
		t.Error("expected non-empty root")
	}
}
