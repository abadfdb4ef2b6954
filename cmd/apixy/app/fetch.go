package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/apixy/apixy/internal/app"
	"github.com/apixy/apixy/internal/config"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch all project sources and print the merged result",
	Long: `Fetch loads the project configuration, fetches every data source
concurrently through the cache, merges the successful results with the
project's merge strategy and prints the merged document as JSON on stdout.

Sources that fail are logged and skipped; use --strict to fail instead.`,
	RunE: runFetch,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the project configuration without fetching",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfigFromFlags(cmd)
		if err != nil {
			return err
		}

		// Building exercises every construction-time check: projection
		// compilation, timeouts, variant field constraints, strategy lookup.
		_, cleanup, err := app.NewBuilder().BuildProject(cfg)
		if err != nil {
			return err
		}
		defer func() {
			_ = cleanup()
		}()

		fmt.Printf("configuration is valid: project %q with %d source(s)\n",
			cfg.Project.Name, len(cfg.Project.Sources))
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{fetchCmd, validateCmd} {
		cmd.Flags().String("config", "apixy.yaml", "Path to the project configuration file")
	}
	fetchCmd.Flags().Bool("strict", false, "Fail when any source fetch fails")
}

func loadConfigFromFlags(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.LoadConfig(config.WithConfigPath(path))
}

func runFetch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	strict, err := cmd.Flags().GetBool("strict")
	if err != nil {
		return err
	}

	proj, cleanup, err := app.NewBuilder().BuildProject(cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = cleanup()
	}()

	result, err := proj.FetchData(cmd.Context())
	if err != nil {
		return err
	}

	for _, sourceErr := range result.Errors {
		slog.Error("Source fetch failed", "source", sourceErr.Source, "error", sourceErr.Err)
	}
	if strict && len(result.Errors) > 0 {
		return fmt.Errorf("%d of %d sources failed", len(result.Errors), len(cfg.Project.Sources))
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result.Data)
}
