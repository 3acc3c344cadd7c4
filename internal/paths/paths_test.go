package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	tmpDir := t.TempDir()

	subDir := filepath.Join(tmpDir, "pkg")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(subDir, "foo.go")
	if err := os.WriteFile(file, []byte("package pkg\n"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := Canonicalize(file, tmpDir)
	if err != nil {
		t.Fatalf("Canonicalize failed: %v", err)
	}
	if got != "pkg/foo.go" {
		t.Errorf("got %q, want %q", got, "pkg/foo.go")
	}
}

func TestCanonicalizeMissingFile(t *testing.T) {
	tmpDir := t.TempDir()

	// A deleted file still needs a canonical path for change-set entries
	got, err := Canonicalize(filepath.Join(tmpDir, "gone", "deleted.go"), tmpDir)
	if err != nil {
		t.Fatalf("Canonicalize failed: %v", err)
	}
	if got != "gone/deleted.go" {
		t.Errorf("got %q, want %q", got, "gone/deleted.go")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"pkg/foo.go", "pkg/foo.go"},
		{"./pkg/foo.go", "pkg/foo.go"},
		{`pkg\foo.go`, "pkg/foo.go"},
	}

	for _, tc := range tests {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsWithinRepo(t *testing.T) {
	tmpDir := t.TempDir()

	if !IsWithinRepo(filepath.Join(tmpDir, "pkg", "foo.go"), tmpDir) {
		t.Error("path inside repo should be within repo")
	}
	if IsWithinRepo(filepath.Join(tmpDir, "..", "outside.go"), tmpDir) {
		t.Error("path outside repo should not be within repo")
	}
}

func TestJoin(t *testing.T) {
	got := Join("/repo", "pkg/foo.go")
	want := filepath.Join("/repo", "pkg", "foo.go")
	if got != want {
		t.Errorf("Join = %q, want %q", got, want)
	}
}
