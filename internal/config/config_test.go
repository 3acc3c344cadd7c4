package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("Version: got %d, want 1", cfg.Version)
	}
	if cfg.ArtifactDir != DefaultArtifactDir {
		t.Errorf("ArtifactDir: got %q", cfg.ArtifactDir)
	}
	if cfg.Runner.Command != "go" {
		t.Errorf("Runner.Command: got %q", cfg.Runner.Command)
	}
	if cfg.Runner.Workers <= 0 {
		t.Error("Runner.Workers should default to a positive count")
	}
	if cfg.Staleness.MaxAgeHours <= 0 {
		t.Error("Staleness.MaxAgeHours should have a positive default")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.RepoRoot != tmpDir {
		t.Errorf("RepoRoot: got %q, want %q", cfg.RepoRoot, tmpDir)
	}
	if cfg.Runner.Command != "go" {
		t.Errorf("missing config should yield defaults, got command %q", cfg.Runner.Command)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, DefaultArtifactDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	content := `{
  "version": 1,
  "runner": {"command": "gotestsum", "workers": 2},
  "staleness": {"maxAgeHours": 24}
}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Runner.Command != "gotestsum" {
		t.Errorf("Runner.Command: got %q", cfg.Runner.Command)
	}
	if cfg.Runner.Workers != 2 {
		t.Errorf("Runner.Workers: got %d", cfg.Runner.Workers)
	}
	if cfg.Staleness.MaxAgeHours != 24 {
		t.Errorf("Staleness.MaxAgeHours: got %d", cfg.Staleness.MaxAgeHours)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.RepoRoot = tmpDir
	cfg.Runner.Workers = 3
	if err := cfg.Save(tmpDir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadConfig(tmpDir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Runner.Workers != 3 {
		t.Errorf("Workers: got %d, want 3", loaded.Runner.Workers)
	}
}

func TestLoadPolicyMissing(t *testing.T) {
	p, err := LoadPolicy(t.TempDir())
	if err != nil {
		t.Fatalf("LoadPolicy failed: %v", err)
	}
	if p.AlwaysFull {
		t.Error("default policy should not force full runs")
	}
	// Built-in structural patterns always present
	found := false
	for _, pat := range p.StructuralPatterns {
		if pat == "go.mod" {
			found = true
		}
	}
	if !found {
		t.Error("default structural patterns should include go.mod")
	}
}

func TestLoadPolicyTOML(t *testing.T) {
	tmpDir := t.TempDir()
	content := `version = 1
always_full = true
structural_patterns = ["proto/", "schema.sql"]
`
	if err := os.WriteFile(filepath.Join(tmpDir, PolicyFileTOML), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPolicy(tmpDir)
	if err != nil {
		t.Fatalf("LoadPolicy failed: %v", err)
	}
	if !p.AlwaysFull {
		t.Error("always_full should be set")
	}
	if p.StructuralPatterns[0] != "proto/" {
		t.Errorf("declared patterns should come first: %v", p.StructuralPatterns[:2])
	}
}

func TestLoadPolicyYAML(t *testing.T) {
	tmpDir := t.TempDir()
	content := "version: 1\nstructural_patterns:\n  - fixtures/\n"
	if err := os.WriteFile(filepath.Join(tmpDir, PolicyFileYAML), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPolicy(tmpDir)
	if err != nil {
		t.Fatalf("LoadPolicy failed: %v", err)
	}
	if p.StructuralPatterns[0] != "fixtures/" {
		t.Errorf("got patterns %v", p.StructuralPatterns[:1])
	}
}

func TestLoadPolicyMalformed(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, PolicyFileTOML), []byte("always_full = maybe"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadPolicy(tmpDir); err == nil {
		t.Error("malformed policy file should be an error, not silently ignored")
	}
}
