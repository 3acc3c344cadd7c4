package covermap

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMetaRoundTrip(t *testing.T) {
	dir := t.TempDir()

	meta := &Meta{
		CreatedAt:   time.Now().UTC(),
		CommitHash:  "abc123",
		RepoStateID: "deadbeef",
		FileCount:   10,
		TestCount:   4,
		Runner:      "go test",
	}
	if err := meta.Save(dir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadMeta(dir)
	if err != nil {
		t.Fatalf("LoadMeta failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected metadata, got nil")
	}
	if loaded.CommitHash != "abc123" || loaded.FileCount != 10 {
		t.Errorf("loaded meta = %+v", loaded)
	}
}

func TestLoadMetaMissing(t *testing.T) {
	meta, err := LoadMeta(t.TempDir())
	if err != nil {
		t.Fatalf("missing metadata should not be an error: %v", err)
	}
	if meta != nil {
		t.Error("missing metadata should load as nil")
	}
}

func TestLoadMetaVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	content := `{"version": 99, "commitHash": "abc"}`
	if err := os.WriteFile(filepath.Join(dir, metaFile), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	meta, err := LoadMeta(dir)
	if err != nil {
		t.Fatalf("version mismatch should not be an error: %v", err)
	}
	if meta != nil {
		t.Error("version mismatch should read as absent")
	}
}

func TestCheckFreshness(t *testing.T) {
	maxAge := 72 * time.Hour

	t.Run("nil meta", func(t *testing.T) {
		var meta *Meta
		f := meta.CheckFreshness("abc", maxAge)
		if f.Fresh {
			t.Error("nil metadata must not be fresh")
		}
	})

	t.Run("fresh", func(t *testing.T) {
		meta := &Meta{CreatedAt: time.Now(), CommitHash: "abc"}
		f := meta.CheckFreshness("abc", maxAge)
		if !f.Fresh {
			t.Errorf("expected fresh, got reason %q", f.Reason)
		}
	})

	t.Run("base diverged", func(t *testing.T) {
		meta := &Meta{CreatedAt: time.Now(), CommitHash: "abc"}
		f := meta.CheckFreshness("def", maxAge)
		if f.Fresh || !f.BaseDiverged {
			t.Errorf("expected base divergence, got %+v", f)
		}
	})

	t.Run("too old", func(t *testing.T) {
		meta := &Meta{CreatedAt: time.Now().Add(-100 * time.Hour), CommitHash: "abc"}
		f := meta.CheckFreshness("abc", maxAge)
		if f.Fresh || !f.AgeExceeded {
			t.Errorf("expected age exceeded, got %+v", f)
		}
	})

	t.Run("zero max age disables check", func(t *testing.T) {
		meta := &Meta{CreatedAt: time.Now().Add(-1000 * time.Hour), CommitHash: "abc"}
		f := meta.CheckFreshness("abc", 0)
		if !f.Fresh {
			t.Errorf("max age 0 should disable age check, got %+v", f)
		}
	})
}

func TestHumanDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{5 * time.Minute, "5 minutes"},
		{time.Hour, "1 hour"},
		{49 * time.Hour, "2 days"},
	}
	for _, tc := range tests {
		if got := humanDuration(tc.d); got != tc.want {
			t.Errorf("humanDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
