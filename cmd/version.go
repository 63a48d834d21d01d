package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// getVersionInfo is provided by the main package
var getVersionInfo func() (version, commit, date string, dirty bool)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), versionString())
	},
}

func versionString() string {
	if getVersionInfo == nil {
		return "sdg-cache version dev (commit: unknown, built: unknown, unknown)"
	}
	version, commit, date, isDirty := getVersionInfo()
	status := "clean"
	if isDirty {
		status = "dirty"
	}
	return fmt.Sprintf("sdg-cache version %s (commit: %s, built: %s, %s)", version, commit, date, status)
}

// SetVersionInfo sets the version information function
func SetVersionInfo(fn func() (string, string, string, bool)) {
	getVersionInfo = fn
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
