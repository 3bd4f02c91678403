// ABOUTME: Entry point for the shelf CLI
// ABOUTME: Command-line client for the Shelf e-book marketplace

package main

import (
	"fmt"
	"os"

	"github.com/shelfhq/shelf/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
