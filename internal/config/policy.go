package config

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	// PolicyFileTOML is the preferred repo-level policy declaration file
	PolicyFileTOML = "tia.toml"
	// PolicyFileYAML is the alternative policy declaration file
	PolicyFileYAML = "tia.yml"
)

// Policy is the repo-level selection policy declared at the repository root.
// It covers what the coverage model cannot: files whose changes have blast
// radius beyond the lines they touch.
type Policy struct {
	Version int `toml:"version" yaml:"version"`

	// AlwaysFull disables selective runs entirely for this repository
	AlwaysFull bool `toml:"always_full" yaml:"always_full"`

	// StructuralPatterns are path patterns that escalate to a full-suite
	// run when any matching file changes. Merged with built-in defaults.
	StructuralPatterns []string `toml:"structural_patterns" yaml:"structural_patterns"`
}

// DefaultStructuralPatterns are build descriptors and shared fixtures whose
// changes always escalate to a full run.
var DefaultStructuralPatterns = []string{
	"go.mod",
	"go.sum",
	"Makefile",
	"Dockerfile",
	"*.mk",
	"testdata/",
	".github/workflows/",
	".gitlab-ci.yml",
	"Jenkinsfile",
}

// LoadPolicy loads the repo policy from tia.toml or tia.yml at the repo
// root. A missing file yields the default policy; a malformed file is an
// error since silently ignoring an opt-out would under-escalate.
func LoadPolicy(repoRoot string) (*Policy, error) {
	tomlPath := filepath.Join(repoRoot, PolicyFileTOML)
	if data, err := os.ReadFile(tomlPath); err == nil {
		var p Policy
		if err := toml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", PolicyFileTOML, err)
		}
		return normalizePolicy(&p), nil
	}

	yamlPath := filepath.Join(repoRoot, PolicyFileYAML)
	if data, err := os.ReadFile(yamlPath); err == nil {
		var p Policy
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", PolicyFileYAML, err)
		}
		return normalizePolicy(&p), nil
	}

	return normalizePolicy(&Policy{}), nil
}

func normalizePolicy(p *Policy) *Policy {
	if p.Version < 1 {
		p.Version = 1
	}
	p.StructuralPatterns = append(p.StructuralPatterns, DefaultStructuralPatterns...)
	return p
}
