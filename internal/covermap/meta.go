package covermap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// MetaVersion is the current version of the metadata format.
	MetaVersion = 1

	// metaFile is the filename for the coverage-map metadata sidecar.
	metaFile = "map-meta.json"
)

// Meta describes the provenance of a persisted coverage map.
type Meta struct {
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"createdAt"`
	CommitHash  string    `json:"commitHash"`
	RepoStateID string    `json:"repoStateId"`
	FileCount   int       `json:"fileCount"`
	TestCount   int       `json:"testCount"`
	Duration    string    `json:"duration"`
	Runner      string    `json:"runner"`
}

// Freshness describes whether a coverage map can still be trusted for
// selection against a given comparison base.
type Freshness struct {
	Fresh        bool
	Reason       string
	MappedCommit string
	CurrentBase  string
	AgeExceeded  bool
	BaseDiverged bool
}

// LoadMeta loads coverage-map metadata from the artifact directory.
// Returns nil without error if no metadata file exists; a version
// mismatch also reads as absent.
func LoadMeta(artifactDir string) (*Meta, error) {
	path := filepath.Join(artifactDir, metaFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading map metadata: %w", err)
	}

	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing map metadata: %w", err)
	}

	if meta.Version != MetaVersion {
		return nil, nil
	}

	return &meta, nil
}

// Save writes coverage-map metadata to the artifact directory.
func (m *Meta) Save(artifactDir string) error {
	if err := os.MkdirAll(artifactDir, 0755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}

	m.Version = MetaVersion

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling map metadata: %w", err)
	}

	path := filepath.Join(artifactDir, metaFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing map metadata: %w", err)
	}

	return nil
}

// CheckFreshness determines whether the map built at m.CommitHash is
// still usable for a change set computed against currentBase.
func (m *Meta) CheckFreshness(currentBase string, maxAge time.Duration) Freshness {
	if m == nil {
		return Freshness{
			Fresh:  false,
			Reason: "no coverage map metadata found",
		}
	}

	result := Freshness{
		MappedCommit: m.CommitHash,
		CurrentBase:  currentBase,
	}

	if currentBase != "" && m.CommitHash != currentBase {
		result.Fresh = false
		result.BaseDiverged = true
		result.Reason = "coverage map built against a different base revision"
		return result
	}

	if maxAge > 0 {
		age := time.Since(m.CreatedAt)
		if age > maxAge {
			result.Fresh = false
			result.AgeExceeded = true
			result.Reason = fmt.Sprintf("coverage map is %s old", humanDuration(age))
			return result
		}
	}

	result.Fresh = true
	return result
}

// humanDuration formats a duration in human-readable form.
func humanDuration(d time.Duration) string {
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
