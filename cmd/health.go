// ABOUTME: Health command for the shelf CLI
// ABOUTME: Checks backend connectivity

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shelfhq/shelf/internal/client"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check backend connectivity",
	Long:  `Check connectivity to the Shelf backend and print its greeting.`,
	Run:   run(func(ctx context.Context, w io.Writer, _ []string) int { return runHealth(ctx, w) }),
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

// runHealth executes the health check and returns exit code
func runHealth(ctx context.Context, w io.Writer) int {
	url := GetAPIURL()
	c := client.New(url)

	resp, err := c.Ping(ctx)
	if err != nil {
		return fail(w, err)
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatHealthJSON(url, resp))
	} else {
		fmt.Fprintln(w, formatHealthHuman(url, resp))
	}
	return exitOK
}

// formatHealthHuman formats health response for human readability
func formatHealthHuman(url string, resp *client.HealthResponse) string {
	return fmt.Sprintf(`Backend:  %s
Status:   reachable
Message:  %s`, url, resp.Message)
}

// formatHealthJSON formats health response as JSON
func formatHealthJSON(url string, resp *client.HealthResponse) string {
	return formatJSON(map[string]interface{}{
		"backend": url,
		"status":  "reachable",
		"message": resp.Message,
	})
}
