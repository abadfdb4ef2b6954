// Package app provides the entry point for the apixy CLI.
package app

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/apixy/apixy/internal/versions"
)

var rootCmd = &cobra.Command{
	Use:               "apixy",
	DisableAutoGenTag: true,
	Short:             "Fetch, project and merge data from heterogeneous sources",
	Long: `apixy fetches structured data from HTTP APIs, MongoDB collections and SQL
databases, applies a JMESPath projection to each result, caches it, and
combines the outputs with a configurable merge strategy.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			slog.Error("Error displaying help", "error", err)
		}
	},
}

// NewRootCmd creates a new root command for the apixy CLI.
func NewRootCmd() *cobra.Command {
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		info := versions.GetVersionInfo()
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			slog.Error("Error retrieving format flag", "error", err)
			return
		}

		if format == "json" {
			output, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				slog.Error("Error formatting version info as JSON", "error", err)
				return
			}
			fmt.Println(string(output))
		} else {
			fmt.Printf("apixy %s (commit %s, built %s, %s)\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion)
		}
	},
}

func init() {
	versionCmd.Flags().String("format", "text", "Output format (text or json)")
}
