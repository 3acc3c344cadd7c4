package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tia/internal/covermap"
	"tia/internal/version"
)

var (
	statusFormat     string
	statusBaseBranch string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show coverage map and artifact status",
	Long:  "Display the state of the persisted coverage map, its freshness, and the artifact layout",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "human", "Output format (json, human)")
	statusCmd.Flags().StringVar(&statusBaseBranch, "base-branch", "",
		"Check freshness against this base branch's merge-base")
	rootCmd.AddCommand(statusCmd)
}

// statusResponseCLI is the JSON shape of engine status.
type statusResponseCLI struct {
	Version     string `json:"version"`
	ArtifactDir string `json:"artifactDir"`
	MapExists   bool   `json:"mapExists"`

	Meta      *covermap.Meta      `json:"meta,omitempty"`
	Freshness *covermap.Freshness `json:"freshness,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) {
	repoRoot := mustGetRepoRoot()
	cfg := mustLoadConfig(repoRoot)
	logger := newLogger(cfg)

	artifactDir := cfg.ArtifactPath()
	resp := &statusResponseCLI{
		Version:     version.Info(),
		ArtifactDir: artifactDir,
		MapExists:   covermap.Exists(artifactDir),
	}

	if resp.MapExists {
		meta, err := covermap.LoadMeta(artifactDir)
		if err != nil {
			logger.Warn("Coverage map metadata unreadable", map[string]interface{}{
				"error": err.Error(),
			})
		}
		resp.Meta = meta

		mergeBase := ""
		if statusBaseBranch != "" {
			if cs, err := resolveChangeSet(repoRoot, statusBaseBranch, logger); err == nil {
				mergeBase = cs.MergeBase
			}
		}
		maxAge := time.Duration(cfg.Staleness.MaxAgeHours) * time.Hour
		freshness := meta.CheckFreshness(mergeBase, maxAge)
		resp.Freshness = &freshness
	}

	if OutputFormat(statusFormat) == FormatJSON {
		output, err := formatJSON(resp)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(output)
		return
	}

	fmt.Print(formatStatusHuman(resp))
}

func formatStatusHuman(resp *statusResponseCLI) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("tia v%s\n", resp.Version))
	b.WriteString(fmt.Sprintf("Artifact dir: %s\n", resp.ArtifactDir))

	if !resp.MapExists {
		b.WriteString("Coverage map: absent (run 'tia analyze')\n")
		return b.String()
	}

	b.WriteString("Coverage map: present\n")
	if resp.Meta != nil {
		b.WriteString(fmt.Sprintf("  Built at:   %s\n", resp.Meta.CreatedAt.Format(time.RFC3339)))
		b.WriteString(fmt.Sprintf("  Commit:     %s\n", resp.Meta.CommitHash))
		b.WriteString(fmt.Sprintf("  Files:      %d\n", resp.Meta.FileCount))
		b.WriteString(fmt.Sprintf("  Tests:      %d\n", resp.Meta.TestCount))
	}
	if resp.Freshness != nil {
		if resp.Freshness.Fresh {
			b.WriteString("  Freshness:  fresh\n")
		} else {
			b.WriteString(fmt.Sprintf("  Freshness:  stale (%s)\n", resp.Freshness.Reason))
		}
	}

	return b.String()
}
