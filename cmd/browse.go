// ABOUTME: Browse command: interactive catalog browser
// ABOUTME: Logs go to debug.log while the TUI owns the terminal

package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shelfhq/shelf/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse and buy books interactively",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
		defer cancel()

		if exitCode := runBrowse(ctx, cmd.OutOrStdout()); exitCode != exitOK {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(ctx context.Context, w io.Writer) int {
	rt, err := openRuntime(ctx, true)
	if err != nil {
		return fail(w, err)
	}
	defer rt.Close()

	if err := tui.Run(rt.client, rt.session); err != nil {
		return fail(w, err)
	}
	return exitOK
}
