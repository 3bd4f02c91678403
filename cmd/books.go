// ABOUTME: Catalog commands: list, show, search, categories, stats, download, delete and buy
// ABOUTME: Purchases merge the remaining balance into the session's cached profile

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shelfhq/shelf/internal/client"
	"github.com/shelfhq/shelf/internal/tui/prompt"
)

var (
	booksCategory  string
	booksSearch    string
	booksSortBy    string
	booksOrder     string
	booksSkip      int
	booksLimit     int
	downloadOutput string
	deleteYes      bool
	recommendCat   string
	recommendLimit int
)

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "Browse the book catalog",
}

var booksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List books",
	Args:  cobra.NoArgs,
	Run:   run(func(ctx context.Context, w io.Writer, _ []string) int { return runBooksList(ctx, w) }),
}

var booksShowCmd = &cobra.Command{
	Use:   "show BOOK_ID",
	Short: "Show one book",
	Args:  cobra.ExactArgs(1),
	Run:   run(runBooksShow),
}

var booksSearchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search titles and authors",
	Args:  cobra.MinimumNArgs(1),
	Run:   run(runBooksSearch),
}

var booksCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List categories",
	Args:  cobra.NoArgs,
	Run:   run(func(ctx context.Context, w io.Writer, _ []string) int { return runCategories(ctx, w) }),
}

var booksByCategoryCmd = &cobra.Command{
	Use:   "by-category CATEGORY",
	Short: "List books in one category",
	Args:  cobra.ExactArgs(1),
	Run:   run(runBooksByCategory),
}

var booksStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog statistics",
	Args:  cobra.NoArgs,
	Run:   run(func(ctx context.Context, w io.Writer, _ []string) int { return runBookStats(ctx, w) }),
}

var booksDownloadCmd = &cobra.Command{
	Use:   "download BOOK_ID",
	Short: "Download a book you own",
	Args:  cobra.ExactArgs(1),
	Run:   run(runBookDownload),
}

var booksDeleteCmd = &cobra.Command{
	Use:   "delete BOOK_ID",
	Short: "Delete a book (admin only)",
	Args:  cobra.ExactArgs(1),
	Run:   run(runBookDelete),
}

var buyCmd = &cobra.Command{
	Use:   "buy BOOK_ID",
	Short: "Buy a book with points",
	Args:  cobra.ExactArgs(1),
	Run:   run(runBuy),
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Show recommended books",
	Args:  cobra.NoArgs,
	Run:   run(func(ctx context.Context, w io.Writer, _ []string) int { return runRecommend(ctx, w) }),
}

func init() {
	booksListCmd.Flags().StringVar(&booksCategory, "category", "", "Only books in this category")
	booksListCmd.Flags().StringVar(&booksSearch, "search", "", "Match title or author")
	booksListCmd.Flags().StringVar(&booksSortBy, "sort-by", "", "Sort field (title, price, rating, created_at)")
	booksListCmd.Flags().StringVar(&booksOrder, "order", "", "Sort order: asc or desc")
	for _, c := range []*cobra.Command{booksListCmd, booksSearchCmd, booksByCategoryCmd} {
		c.Flags().IntVar(&booksSkip, "skip", 0, "Number of books to skip")
		c.Flags().IntVar(&booksLimit, "limit", 20, "Number of books to show")
	}
	booksDownloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", ".", "Directory or file to write the book to")
	booksDeleteCmd.Flags().BoolVar(&deleteYes, "yes", false, "Do not ask for confirmation")
	recommendCmd.Flags().StringVar(&recommendCat, "category", "", "Recommend from this category instead of your history")
	recommendCmd.Flags().IntVar(&recommendLimit, "limit", 10, "Number of books")

	booksCmd.AddCommand(booksListCmd, booksShowCmd, booksSearchCmd, booksCategoriesCmd,
		booksByCategoryCmd, booksStatsCmd, booksDownloadCmd, booksDeleteCmd)
	rootCmd.AddCommand(booksCmd, buyCmd, recommendCmd)
}

// sortOrder maps asc/desc to the backend's 1/-1
func sortOrder(order string) (int, error) {
	switch strings.ToLower(order) {
	case "":
		return 0, nil
	case "asc":
		return 1, nil
	case "desc":
		return -1, nil
	default:
		return 0, fmt.Errorf("--order must be asc or desc, got %q", order)
	}
}

func runBooksList(ctx context.Context, w io.Writer) int {
	order, err := sortOrder(booksOrder)
	if err != nil {
		return fail(w, err)
	}
	q := client.BookQuery{Category: booksCategory, Search: booksSearch, SortBy: booksSortBy, SortOrder: order}
	return withRuntime(ctx, w, func(rt *runtime) int {
		books, err := rt.client.ListBooks(ctx, booksSkip, booksLimit, q)
		if err != nil {
			return fail(w, err)
		}
		return emit(w, books, func() string { return formatBooksHuman(books) })
	})
}

func runBooksSearch(ctx context.Context, w io.Writer, args []string) int {
	query := strings.Join(args, " ")
	return withRuntime(ctx, w, func(rt *runtime) int {
		books, err := rt.client.SearchBooks(ctx, query, booksSkip, booksLimit)
		if err != nil {
			return fail(w, err)
		}
		return emit(w, books, func() string { return formatBooksHuman(books) })
	})
}

func runBooksByCategory(ctx context.Context, w io.Writer, args []string) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		books, err := rt.client.BooksByCategory(ctx, args[0], booksSkip, booksLimit)
		if err != nil {
			return fail(w, err)
		}
		return emit(w, books, func() string { return formatBooksHuman(books) })
	})
}

func runBooksShow(ctx context.Context, w io.Writer, args []string) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		book, err := rt.client.Book(ctx, args[0])
		if err != nil {
			return fail(w, err)
		}
		return emit(w, book, func() string { return formatBookHuman(book) })
	})
}

func runCategories(ctx context.Context, w io.Writer) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		cats, err := rt.client.Categories(ctx)
		if err != nil {
			return fail(w, err)
		}
		return emit(w, cats, func() string {
			if len(cats) == 0 {
				return "No categories"
			}
			return strings.Join(cats, "\n")
		})
	})
}

func runBookStats(ctx context.Context, w io.Writer) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		counts, err := rt.client.CategoryStats(ctx)
		if err != nil {
			return fail(w, err)
		}
		storage, err := rt.client.StorageStats(ctx)
		if err != nil {
			return fail(w, err)
		}
		out := map[string]interface{}{"categories": counts, "storage": storage}
		return emit(w, out, func() string { return formatStatsHuman(counts, storage) })
	})
}

func formatStatsHuman(counts map[string]int, storage client.Document) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("Books per category\n")
	for _, name := range names {
		fmt.Fprintf(&sb, "  %-20s %s\n", name, formatNumber(counts[name]))
	}
	sb.WriteString("\nStorage\n")
	for _, line := range strings.Split(formatDocument(storage), "\n") {
		sb.WriteString("  " + line + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func runBookDownload(ctx context.Context, w io.Writer, args []string) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		dl, err := rt.client.DownloadBook(ctx, args[0])
		if err != nil {
			return fail(w, err)
		}
		path := downloadPath(downloadOutput, dl.Filename)
		if err := os.WriteFile(path, dl.Data, 0644); err != nil {
			return fail(w, fmt.Errorf("write %s: %w", path, err))
		}
		out := map[string]interface{}{"path": path, "bytes": len(dl.Data)}
		return emit(w, out, func() string {
			return fmt.Sprintf("Saved %s (%s bytes)", path, formatNumber(len(dl.Data)))
		})
	})
}

// downloadPath writes into output when it is a directory, else to output itself
func downloadPath(output, filename string) string {
	if output == "" {
		output = "."
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, filename)
	}
	return output
}

func runBookDelete(ctx context.Context, w io.Writer, args []string) int {
	if !deleteYes {
		if !interactive() {
			return fail(w, errors.New("refusing to delete without --yes when not running in a terminal"))
		}
		ok, err := prompt.Confirm(fmt.Sprintf("Delete book %s? This cannot be undone.", args[0]))
		if err != nil {
			return fail(w, err)
		}
		if !ok {
			fmt.Fprintln(w, "Cancelled")
			return exitNo
		}
	}
	return withRuntime(ctx, w, func(rt *runtime) int {
		msg, err := rt.client.DeleteBook(ctx, args[0])
		if err != nil {
			return fail(w, err)
		}
		return emit(w, msg, func() string { return msg.Message })
	})
}

// runBuy purchases a book and merges the remaining balance into the session
func runBuy(ctx context.Context, w io.Writer, args []string) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		loadProfile(ctx, rt)
		res, err := rt.client.PurchaseBook(ctx, args[0])
		if err != nil {
			return fail(w, err)
		}
		balance := applyBalance(rt, res.RemainingPoints)
		return emit(w, res, func() string {
			return fmt.Sprintf("%s\nPaid:      %s\nRemaining: %s",
				res.Message, formatPoints(res.PricePaid), balance)
		})
	})
}

func runRecommend(ctx context.Context, w io.Writer) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		var (
			books []client.Book
			err   error
		)
		if recommendCat != "" {
			books, err = rt.client.CategoryRecommendations(ctx, recommendCat, recommendLimit)
		} else {
			books, err = rt.client.PersonalizedRecommendations(ctx, recommendLimit)
		}
		if err != nil {
			return fail(w, err)
		}
		return emit(w, books, func() string { return formatBooksHuman(books) })
	})
}

func formatBooksHuman(books []client.Book) string {
	if len(books) == 0 {
		return "No books found"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-12s  %-36s  %-24s  %-14s  %10s  %6s\n", "ID", "TITLE", "AUTHOR", "CATEGORY", "PRICE", "RATING")
	for _, b := range books {
		fmt.Fprintf(&sb, "%-12s  %-36s  %-24s  %-14s  %10s  %6.1f\n",
			truncate(b.ID, 12), truncate(b.Title, 36), truncate(b.Author, 24), truncate(b.Category, 14),
			formatNumber(b.Price), b.Rating)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatBookHuman(b *client.Book) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\nby %s\n\n", b.Title, b.Author)
	fmt.Fprintf(&sb, "ID:        %s\n", b.ID)
	fmt.Fprintf(&sb, "Category:  %s\n", b.Category)
	fmt.Fprintf(&sb, "Price:     %s\n", formatPoints(b.Price))
	fmt.Fprintf(&sb, "Rating:    %.1f\n", b.Rating)
	if b.CreatedAt != "" {
		fmt.Fprintf(&sb, "Added:     %s\n", b.CreatedAt)
	}
	if b.Description != "" {
		fmt.Fprintf(&sb, "\n%s\n", b.Description)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// truncate shortens s to n runes, marking the cut with an ellipsis
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
