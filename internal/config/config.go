package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// DefaultArtifactDir is the workspace-relative directory holding the
// coverage map, raw traces, and reports.
const DefaultArtifactDir = ".tia-coverage"

// Config represents the complete engine configuration
type Config struct {
	Version  int    `json:"version" mapstructure:"version"`
	RepoRoot string `json:"repoRoot" mapstructure:"repoRoot"`

	ArtifactDir string        `json:"artifactDir" mapstructure:"artifactDir"`
	Runner      RunnerConfig  `json:"runner" mapstructure:"runner"`
	Staleness   StaleConfig   `json:"staleness" mapstructure:"staleness"`
	Logging     LoggingConfig `json:"logging" mapstructure:"logging"`
}

// RunnerConfig contains test toolchain configuration
type RunnerConfig struct {
	Command       string   `json:"command" mapstructure:"command"`
	Args          []string `json:"args" mapstructure:"args"`
	Workers       int      `json:"workers" mapstructure:"workers"`
	PerTestTimeMs int      `json:"perTestTimeMs" mapstructure:"perTestTimeMs"`
}

// StaleConfig contains coverage-map staleness thresholds
type StaleConfig struct {
	MaxAgeHours int `json:"maxAgeHours" mapstructure:"maxAgeHours"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:     1,
		RepoRoot:    ".",
		ArtifactDir: DefaultArtifactDir,
		Runner: RunnerConfig{
			Command:       "go",
			Args:          []string{"test"},
			Workers:       runtime.NumCPU(),
			PerTestTimeMs: 600000,
		},
		Staleness: StaleConfig{
			MaxAgeHours: 72,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from <repoRoot>/.tia-coverage/config.json.
// Missing config file yields the defaults.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("version", def.Version)
	v.SetDefault("repoRoot", def.RepoRoot)
	v.SetDefault("artifactDir", def.ArtifactDir)
	v.SetDefault("runner.command", def.Runner.Command)
	v.SetDefault("runner.args", def.Runner.Args)
	v.SetDefault("runner.workers", def.Runner.Workers)
	v.SetDefault("runner.perTestTimeMs", def.Runner.PerTestTimeMs)
	v.SetDefault("staleness.maxAgeHours", def.Staleness.MaxAgeHours)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.level", def.Logging.Level)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, DefaultArtifactDir))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			cfg := DefaultConfig()
			cfg.RepoRoot = repoRoot
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.RepoRoot == "." || cfg.RepoRoot == "" {
		cfg.RepoRoot = repoRoot
	}
	if cfg.Runner.Workers <= 0 {
		cfg.Runner.Workers = runtime.NumCPU()
	}

	return &cfg, nil
}

// Save writes the configuration to <repoRoot>/.tia-coverage/config.json
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, c.ArtifactDirName())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// ArtifactDirName returns the configured artifact directory name,
// defaulting when unset.
func (c *Config) ArtifactDirName() string {
	if c.ArtifactDir == "" {
		return DefaultArtifactDir
	}
	return c.ArtifactDir
}

// ArtifactPath returns the absolute artifact directory for the repo.
func (c *Config) ArtifactPath() string {
	return filepath.Join(c.RepoRoot, c.ArtifactDirName())
}
