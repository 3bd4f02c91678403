// ABOUTME: Library commands: list owned books, check ownership, remove entries
// ABOUTME: check exits 0 when owned and 1 when not, for use in scripts

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shelfhq/shelf/internal/client"
	"github.com/shelfhq/shelf/internal/tui/styles"
)

var (
	librarySkip  int
	libraryLimit int
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage the books you own",
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your books",
	Args:  cobra.NoArgs,
	Run:   run(func(ctx context.Context, w io.Writer, _ []string) int { return runLibraryList(ctx, w) }),
}

var libraryCheckCmd = &cobra.Command{
	Use:   "check BOOK_ID",
	Short: "Check whether you own a book",
	Long: `Check whether a book is in your library.

Exit codes:
  0 - Owned
  1 - Not owned
  2 - Error`,
	Args: cobra.ExactArgs(1),
	Run:  run(runLibraryCheck),
}

var libraryRemoveCmd = &cobra.Command{
	Use:   "remove BOOK_ID",
	Short: "Remove a book from your library",
	Args:  cobra.ExactArgs(1),
	Run:   run(runLibraryRemove),
}

func init() {
	libraryListCmd.Flags().IntVar(&librarySkip, "skip", 0, "Number of books to skip")
	libraryListCmd.Flags().IntVar(&libraryLimit, "limit", 20, "Number of books to show")

	libraryCmd.AddCommand(libraryListCmd, libraryCheckCmd, libraryRemoveCmd)
	rootCmd.AddCommand(libraryCmd)
}

func runLibraryList(ctx context.Context, w io.Writer) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		lib, err := rt.client.Library(ctx, librarySkip, libraryLimit)
		if err != nil {
			return fail(w, err)
		}
		return emit(w, lib, func() string { return formatLibraryHuman(lib) })
	})
}

func formatLibraryHuman(lib *client.Library) string {
	if len(lib.Books) == 0 {
		return "Your library is empty"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-12s  %-36s  %-24s  %10s  %s\n", "ID", "TITLE", "AUTHOR", "PAID", "STATUS")
	for _, b := range lib.Books {
		fmt.Fprintf(&sb, "%-12s  %-36s  %-24s  %10s  %s\n",
			truncate(b.BookID, 12), truncate(b.Title, 36), truncate(b.Author, 24),
			formatNumber(b.PricePaid), styles.ReadingBadge(b.Status))
	}
	fmt.Fprintf(&sb, "\n%d of %d book(s)", len(lib.Books), lib.Total)
	return sb.String()
}

func runLibraryCheck(ctx context.Context, w io.Writer, args []string) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		own, err := rt.client.CheckOwnership(ctx, args[0])
		if err != nil {
			return fail(w, err)
		}
		emit(w, own, func() string {
			if own.Owned {
				return "✓ You own " + own.BookID
			}
			return "✗ You do not own " + own.BookID
		})
		if !own.Owned {
			return exitNo
		}
		return exitOK
	})
}

func runLibraryRemove(ctx context.Context, w io.Writer, args []string) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		msg, err := rt.client.RemoveFromLibrary(ctx, args[0])
		if err != nil {
			return fail(w, err)
		}
		return emit(w, msg, func() string { return msg.Message })
	})
}
