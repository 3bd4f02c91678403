// ABOUTME: Version command with an ASCII banner
// ABOUTME: Version is set at build time with -ldflags

package cmd

import (
	"fmt"
	"io"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

// Version is overridden with -ldflags "-X github.com/shelfhq/shelf/cmd.Version=..."
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runVersion(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(w io.Writer) {
	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(map[string]string{"version": Version}))
		return
	}
	fmt.Fprintln(w, figure.NewFigure("shelf", "cybermedium", true).String())
	fmt.Fprintf(w, "shelf %s\n", Version)
}
