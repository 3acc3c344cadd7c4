package main

import (
	"tia/internal/version"

	"github.com/spf13/cobra"
)

var (
	// verboseFlag is the CLI --verbose flag value
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "tia",
	Short: "TIA - Test Impact Analysis engine",
	Long: `TIA maps line coverage to tests, intersects that map with the files
changed on a branch, and selects the subset of tests a differential build
actually needs to run. Any condition it cannot decide safely escalates to
the full suite.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("tia version {{.Version}}\n")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false,
		"Enable debug logging")
}
