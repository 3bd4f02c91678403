// ABOUTME: Reading commands: record progress, list in-progress and finished books
// ABOUTME: Also marks books completed and shows reading statistics

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
	progressPage    int
	progressPercent float64
	progressStatus  string
	readingSkip     int
	readingLimit    int
)

const progressBarWidth = 20

var readingCmd = &cobra.Command{
	Use:   "reading",
	Short: "Track reading progress",
}

var readingProgressCmd = &cobra.Command{
	Use:   "progress BOOK_ID",
	Short: "Record how far you have read",
	Args:  cobra.ExactArgs(1),
	Run:   run(runReadingProgress),
}

var readingInProgressCmd = &cobra.Command{
	Use:   "in-progress",
	Short: "List books you are reading",
	Args:  cobra.NoArgs,
	Run: run(func(ctx context.Context, w io.Writer, _ []string) int {
		return runReadingList(ctx, w, false)
	}),
}

var readingCompletedCmd = &cobra.Command{
	Use:   "completed",
	Short: "List books you finished",
	Args:  cobra.NoArgs,
	Run: run(func(ctx context.Context, w io.Writer, _ []string) int {
		return runReadingList(ctx, w, true)
	}),
}

var readingCompleteCmd = &cobra.Command{
	Use:   "complete BOOK_ID",
	Short: "Mark a book as finished",
	Args:  cobra.ExactArgs(1),
	Run:   run(runReadingComplete),
}

var readingStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show reading statistics",
	Args:  cobra.NoArgs,
	Run:   run(func(ctx context.Context, w io.Writer, _ []string) int { return runReadingStats(ctx, w) }),
}

func init() {
	readingProgressCmd.Flags().IntVar(&progressPage, "page", 0, "Current page")
	readingProgressCmd.Flags().Float64Var(&progressPercent, "percent", 0, "Progress percentage (0-100)")
	readingProgressCmd.Flags().StringVar(&progressStatus, "status", client.StatusReading, "Reading status")
	for _, c := range []*cobra.Command{readingInProgressCmd, readingCompletedCmd} {
		c.Flags().IntVar(&readingSkip, "skip", 0, "Number of books to skip")
		c.Flags().IntVar(&readingLimit, "limit", 20, "Number of books to show")
	}

	readingCmd.AddCommand(readingProgressCmd, readingInProgressCmd, readingCompletedCmd, readingCompleteCmd, readingStatsCmd)
	rootCmd.AddCommand(readingCmd)
}

func runReadingProgress(ctx context.Context, w io.Writer, args []string) int {
	p := client.Progress{Page: progressPage, ProgressPercentage: progressPercent, Status: progressStatus}
	return withRuntime(ctx, w, func(rt *runtime) int {
		doc, err := rt.client.UpdateReadingProgress(ctx, args[0], p)
		if err != nil {
			return fail(w, err)
		}
		return emit(w, doc, func() string {
			return fmt.Sprintf("Page %d  %s %.0f%%", p.Page, styles.ProgressBar(p.ProgressPercentage, progressBarWidth), p.ProgressPercentage)
		})
	})
}

func runReadingList(ctx context.Context, w io.Writer, completed bool) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		var (
			list *client.ReadingList
			err  error
		)
		if completed {
			list, err = rt.client.ReadingCompleted(ctx, readingSkip, readingLimit)
		} else {
			list, err = rt.client.ReadingInProgress(ctx, readingSkip, readingLimit)
		}
		if err != nil {
			return fail(w, err)
		}
		return emit(w, list, func() string { return formatReadingHuman(list) })
	})
}

func formatReadingHuman(list *client.ReadingList) string {
	if len(list.Books) == 0 {
		return "Nothing here yet"
	}
	var sb strings.Builder
	for _, b := range list.Books {
		fmt.Fprintf(&sb, "%-36s  %s %5.1f%%  p.%-5d %s\n",
			truncate(b.Title, 36), styles.ProgressBar(b.ProgressPercentage, progressBarWidth),
			b.ProgressPercentage, b.Page, styles.ReadingBadge(b.Status))
	}
	fmt.Fprintf(&sb, "\n%d of %d book(s)", len(list.Books), list.Total)
	return sb.String()
}

func runReadingComplete(ctx context.Context, w io.Writer, args []string) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		doc, err := rt.client.MarkCompleted(ctx, args[0])
		if err != nil {
			return fail(w, err)
		}
		return emit(w, doc, func() string {
			if msg := doc.String("message"); msg != "" {
				return msg
			}
			return "Marked " + args[0] + " as completed"
		})
	})
}

func runReadingStats(ctx context.Context, w io.Writer) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		doc, err := rt.client.ReadingStats(ctx)
		if err != nil {
			return fail(w, err)
		}
		return emit(w, doc, func() string { return formatDocument(doc) })
	})
}
