// ABOUTME: Overview command: one screen summarizing the account
// ABOUTME: Fetches profile, stats, reading stats and library concurrently

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shelfhq/shelf/internal/client"
	"github.com/shelfhq/shelf/internal/tui/styles"
)

const overviewLibraryLimit = 5

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Summarize your account",
	Long: `Show your profile, points, reading statistics and recent library in one view.

Exit codes:
  0 - Overview shown
  1 - Not logged in
  2 - Error`,
	Args: cobra.NoArgs,
	Run:  run(func(ctx context.Context, w io.Writer, _ []string) int { return runOverview(ctx, w) }),
}

func init() {
	rootCmd.AddCommand(overviewCmd)
}

// overview is everything the command fetches
type overview struct {
	User         client.UserProfile `json:"user"`
	UserStats    client.Document    `json:"user_stats"`
	ReadingStats client.Document    `json:"reading_stats"`
	Library      *client.Library    `json:"library"`
}

func runOverview(ctx context.Context, w io.Writer) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		if !rt.session.IsAuthenticated(ctx) {
			fmt.Fprintln(w, "Not logged in")
			return exitNo
		}
		ov, err := fetchOverview(ctx, rt)
		if err != nil {
			return fail(w, err)
		}
		return emit(w, ov, func() string { return formatOverviewHuman(ov) })
	})
}

// fetchOverview runs the four requests in parallel. The first failure
// cancels the rest.
func fetchOverview(ctx context.Context, rt *runtime) (*overview, error) {
	var ov overview
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		user, ok := rt.session.SyncUserData(gctx)
		if !ok {
			return fmt.Errorf("could not refresh profile")
		}
		ov.User = user
		return nil
	})
	g.Go(func() error {
		stats, err := rt.client.UserStats(gctx)
		ov.UserStats = stats
		return err
	})
	g.Go(func() error {
		stats, err := rt.client.ReadingStats(gctx)
		ov.ReadingStats = stats
		return err
	})
	g.Go(func() error {
		lib, err := rt.client.Library(gctx, 0, overviewLibraryLimit)
		ov.Library = lib
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &ov, nil
}

func formatOverviewHuman(ov *overview) string {
	var sb strings.Builder

	sb.WriteString(styles.Title.Render(ov.User.Username()))
	sb.WriteString("\n")
	if points, ok := ov.User.Points(); ok {
		sb.WriteString("Points: " + styles.Points.Render(formatPoints(points)) + "\n")
	}

	if len(ov.UserStats) > 0 {
		sb.WriteString("\n" + styles.Subtitle.Render("Account") + "\n")
		sb.WriteString(formatDocument(ov.UserStats) + "\n")
	}
	if len(ov.ReadingStats) > 0 {
		sb.WriteString("\n" + styles.Subtitle.Render("Reading") + "\n")
		sb.WriteString(formatDocument(ov.ReadingStats) + "\n")
	}

	sb.WriteString("\n" + styles.Subtitle.Render("Library") + "\n")
	if ov.Library == nil || len(ov.Library.Books) == 0 {
		sb.WriteString("Your library is empty")
	} else {
		for _, b := range ov.Library.Books {
			fmt.Fprintf(&sb, "  %s  %s\n", truncate(b.Title, 40), styles.ReadingBadge(b.Status))
		}
		if ov.Library.Total > len(ov.Library.Books) {
			fmt.Fprintf(&sb, "  and %d more", ov.Library.Total-len(ov.Library.Books))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
