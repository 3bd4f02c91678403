// ABOUTME: Review commands: list, add, edit, delete and list your own reviews
// ABOUTME: Ratings and text are validated by the client before any request

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
	reviewRating int
	reviewText   string
	reviewsSkip  int
	reviewsLimit int
)

var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "Read and write book reviews",
}

var reviewsListCmd = &cobra.Command{
	Use:   "list BOOK_ID",
	Short: "List reviews of a book",
	Args:  cobra.ExactArgs(1),
	Run:   run(runReviewsList),
}

var reviewsAddCmd = &cobra.Command{
	Use:   "add BOOK_ID",
	Short: "Review a book",
	Args:  cobra.ExactArgs(1),
	Run:   run(runReviewAdd),
}

var reviewsEditCmd = &cobra.Command{
	Use:   "edit BOOK_ID REVIEW_ID",
	Short: "Change the rating or text of your review",
	Args:  cobra.ExactArgs(2),
}

var reviewsDeleteCmd = &cobra.Command{
	Use:   "delete BOOK_ID REVIEW_ID",
	Short: "Delete your review",
	Args:  cobra.ExactArgs(2),
	Run:   run(runReviewDelete),
}

var reviewsMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List reviews you wrote",
	Args:  cobra.NoArgs,
	Run:   run(func(ctx context.Context, w io.Writer, _ []string) int { return runReviewsMine(ctx, w) }),
}

func init() {
	reviewsEditCmd.Run = run(func(ctx context.Context, w io.Writer, args []string) int {
		var upd client.ReviewUpdate
		if reviewsEditCmd.Flags().Changed("rating") {
			upd.Rating = &reviewRating
		}
		if reviewsEditCmd.Flags().Changed("text") {
			upd.ReviewText = &reviewText
		}
		return runReviewEdit(ctx, w, args, upd)
	})
	for _, c := range []*cobra.Command{reviewsAddCmd, reviewsEditCmd} {
		c.Flags().IntVar(&reviewRating, "rating", 0, "Rating from 1 to 5")
		c.Flags().StringVar(&reviewText, "text", "", "Review text (10-2000 characters)")
	}
	_ = reviewsAddCmd.MarkFlagRequired("rating")
	_ = reviewsAddCmd.MarkFlagRequired("text")
	for _, c := range []*cobra.Command{reviewsListCmd, reviewsMineCmd} {
		c.Flags().IntVar(&reviewsSkip, "skip", 0, "Number of reviews to skip")
		c.Flags().IntVar(&reviewsLimit, "limit", 10, "Number of reviews to show")
	}

	reviewsCmd.AddCommand(reviewsListCmd, reviewsAddCmd, reviewsEditCmd, reviewsDeleteCmd, reviewsMineCmd)
	rootCmd.AddCommand(reviewsCmd)
}

func runReviewsList(ctx context.Context, w io.Writer, args []string) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		reviews, err := rt.client.BookReviews(ctx, args[0], reviewsSkip, reviewsLimit)
		if err != nil {
			return fail(w, err)
		}
		return emit(w, reviews, func() string { return formatBookReviewsHuman(reviews) })
	})
}

func formatBookReviewsHuman(r *client.BookReviews) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s  %s %.1f (%d review(s))\n", r.BookTitle, styles.Stars(r.AverageRating), r.AverageRating, r.TotalReviews)
	if len(r.Reviews) == 0 {
		sb.WriteString("\nNo reviews yet")
		return sb.String()
	}
	for _, rev := range r.Reviews {
		sb.WriteString("\n")
		sb.WriteString(formatReviewHuman(&rev))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatReviewHuman(rev *client.Review) string {
	owner := ""
	if rev.IsOwner {
		owner = " (you)"
	}
	return fmt.Sprintf("%s %s%s  %s\n  %s\n  id: %s",
		styles.Stars(float64(rev.Rating)), rev.Username, owner, rev.CreatedAt, rev.ReviewText, rev.ReviewID)
}

func runReviewAdd(ctx context.Context, w io.Writer, args []string) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		rev, err := rt.client.CreateReview(ctx, args[0], reviewRating, reviewText)
		if err != nil {
			return fail(w, err)
		}
		return emit(w, rev, func() string { return "Review posted\n\n" + formatReviewHuman(rev) })
	})
}

func runReviewEdit(ctx context.Context, w io.Writer, args []string, upd client.ReviewUpdate) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		rev, err := rt.client.UpdateReview(ctx, args[0], args[1], upd)
		if err != nil {
			return fail(w, err)
		}
		return emit(w, rev, func() string { return "Review updated\n\n" + formatReviewHuman(rev) })
	})
}

func runReviewDelete(ctx context.Context, w io.Writer, args []string) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		msg, err := rt.client.DeleteReview(ctx, args[0], args[1])
		if err != nil {
			return fail(w, err)
		}
		return emit(w, msg, func() string { return msg.Message })
	})
}

func runReviewsMine(ctx context.Context, w io.Writer) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		mine, err := rt.client.UserReviews(ctx, reviewsSkip, reviewsLimit)
		if err != nil {
			return fail(w, err)
		}
		return emit(w, mine, func() string {
			if len(mine.Reviews) == 0 {
				return "You have not reviewed any books"
			}
			var sb strings.Builder
			for i := range mine.Reviews {
				ur := &mine.Reviews[i]
				fmt.Fprintf(&sb, "%s (%s)\n%s\n\n", ur.BookTitle, ur.BookID, formatReviewHuman(&ur.Review))
			}
			fmt.Fprintf(&sb, "%d of %d review(s)", len(mine.Reviews), mine.Total)
			return sb.String()
		})
	})
}
