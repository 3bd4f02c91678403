// ABOUTME: Root command for the shelf CLI
// ABOUTME: Handles global flags and configuration

package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shelfhq/shelf/internal/config"
)

var (
	apiURL     string
	jsonOutput bool
	configDir  string
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "shelf",
	Short: "CLI for the Shelf e-book marketplace",
	Long: `shelf is a command-line client for the Shelf e-book marketplace.

It keeps you signed in between runs, lets you browse and buy books with
points, and manages your library, reviews and reading progress.

Environment Variables:
  SHELF_API_URL           Backend API URL (default: http://127.0.0.1:8000)
  SHELF_CONFIG_DIR        Where credentials and debug.log are kept
  SHELF_CREDENTIAL_STORE  file, redis or memory (default: file)
  SHELF_REDIS_ADDR        Redis address for the redis credential store
  LOG_LEVEL               debug, info, warn, error (default: warn)`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API URL (overrides SHELF_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Config directory (overrides SHELF_CONFIG_DIR)")
}

// GetAPIURL returns the API URL from flag, env, or default (in priority order)
func GetAPIURL() string {
	if apiURL != "" {
		return strings.TrimRight(apiURL, "/")
	}
	if envURL := os.Getenv("SHELF_API_URL"); envURL != "" {
		return strings.TrimRight(envURL, "/")
	}
	return config.DefaultAPIURL
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}
