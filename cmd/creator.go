// ABOUTME: Creator commands: dashboard stats, sales history, own books, follow and unfollow
// ABOUTME: Sales history renders a small bar chart in human output

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
	salesMonths  int
	creatorSkip  int
	creatorLimit int
)

var creatorCmd = &cobra.Command{
	Use:   "creator",
	Short: "Creator dashboard and follows",
}

var creatorStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show creator totals",
	Args:  cobra.NoArgs,
	Run:   run(func(ctx context.Context, w io.Writer, _ []string) int { return runCreatorStats(ctx, w) }),
}

var creatorSalesCmd = &cobra.Command{
	Use:   "sales",
	Short: "Show monthly sales",
	Args:  cobra.NoArgs,
	Run:   run(func(ctx context.Context, w io.Writer, _ []string) int { return runCreatorSales(ctx, w) }),
}

var creatorBooksCmd = &cobra.Command{
	Use:   "books",
	Short: "List books you published",
	Args:  cobra.NoArgs,
	Run:   run(func(ctx context.Context, w io.Writer, _ []string) int { return runCreatorBooks(ctx, w) }),
}

var creatorFollowCmd = &cobra.Command{
	Use:   "follow USERNAME",
	Short: "Follow a creator",
	Args:  cobra.ExactArgs(1),
	Run: run(func(ctx context.Context, w io.Writer, args []string) int {
		return runFollow(ctx, w, args[0], true)
	}),
}

var creatorUnfollowCmd = &cobra.Command{
	Use:   "unfollow USERNAME",
	Short: "Stop following a creator",
	Args:  cobra.ExactArgs(1),
	Run: run(func(ctx context.Context, w io.Writer, args []string) int {
		return runFollow(ctx, w, args[0], false)
	}),
}

func init() {
	creatorSalesCmd.Flags().IntVar(&salesMonths, "months", 6, "Number of months")
	creatorBooksCmd.Flags().IntVar(&creatorSkip, "skip", 0, "Number of books to skip")
	creatorBooksCmd.Flags().IntVar(&creatorLimit, "limit", 20, "Number of books to show")

	creatorCmd.AddCommand(creatorStatsCmd, creatorSalesCmd, creatorBooksCmd, creatorFollowCmd, creatorUnfollowCmd)
	rootCmd.AddCommand(creatorCmd)
}

func runCreatorStats(ctx context.Context, w io.Writer) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		stats, err := rt.client.CreatorStats(ctx)
		if err != nil {
			return fail(w, err)
		}
		return emit(w, stats, func() string {
			return fmt.Sprintf(`Books:      %s
Sales:      %s
Revenue:    %s
Readers:    %s
Followers:  %s
Likes:      %s`,
				formatNumber(stats.TotalBooks), formatNumber(stats.TotalSales), formatPoints(stats.TotalRevenue),
				formatNumber(stats.TotalReaders), formatNumber(stats.TotalFollowers), formatNumber(stats.TotalLikes))
		})
	})
}

func runCreatorSales(ctx context.Context, w io.Writer) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		points, err := rt.client.SalesHistory(ctx, salesMonths)
		if err != nil {
			return fail(w, err)
		}
		return emit(w, points, func() string { return formatSalesHuman(points) })
	})
}

func formatSalesHuman(points []client.SalesDataPoint) string {
	if len(points) == 0 {
		return "No sales yet"
	}
	peak := 0
	values := make([]int, len(points))
	for i, p := range points {
		values[i] = p.Value
		if p.Value > peak {
			peak = p.Value
		}
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Trend    %s\n\n", styles.Sparkline(values))
	for _, p := range points {
		pct := 0.0
		if peak > 0 {
			pct = float64(p.Value) / float64(peak) * 100
		}
		fmt.Fprintf(&sb, "%-8s %s %s\n", p.Month, styles.ProgressBar(pct, 30), formatNumber(p.Value))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func runCreatorBooks(ctx context.Context, w io.Writer) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		books, err := rt.client.CreatorBooks(ctx, creatorSkip, creatorLimit)
		if err != nil {
			return fail(w, err)
		}
		return emit(w, books, func() string {
			if len(books) == 0 {
				return "You have not published any books"
			}
			var sb strings.Builder
			fmt.Fprintf(&sb, "%-12s  %-36s  %10s  %8s  %8s  %s\n", "ID", "TITLE", "PRICE", "READERS", "COMMENTS", "VISIBILITY")
			for _, b := range books {
				visibility := styles.Badge("PRIVATE", styles.LevelNeutral)
				if b.IsPublic {
					visibility = styles.Badge("PUBLIC", styles.LevelOK)
				}
				fmt.Fprintf(&sb, "%-12s  %-36s  %10s  %8d  %8d  %s\n",
					truncate(b.ID, 12), truncate(b.Title, 36), formatNumber(b.Price), b.TotalReaders, b.TotalComments, visibility)
			}
			return strings.TrimRight(sb.String(), "\n")
		})
	})
}

func runFollow(ctx context.Context, w io.Writer, creator string, follow bool) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		var (
			msg *client.Message
			err error
		)
		if follow {
			msg, err = rt.client.Follow(ctx, creator)
		} else {
			msg, err = rt.client.Unfollow(ctx, creator)
		}
		if err != nil {
			return fail(w, err)
		}
		return emit(w, msg, func() string { return msg.Message })
	})
}
