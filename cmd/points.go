// ABOUTME: Points commands: add points, TrueMoney top-up and payment history
// ABOUTME: New balances are merged into the cached profile via the session store

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shelfhq/shelf/internal/client"
	"github.com/shelfhq/shelf/internal/session"
)

var (
	topupVoucher  string
	topupPhone    string
	paymentsLimit int
	paymentsSkip  int
)

var pointsCmd = &cobra.Command{
	Use:   "points",
	Short: "Manage your points balance",
}

var pointsAddCmd = &cobra.Command{
	Use:   "add AMOUNT",
	Short: "Add points to your balance",
	Args:  cobra.ExactArgs(1),
	Run:   run(runPointsAdd),
}

var topupCmd = &cobra.Command{
	Use:   "topup",
	Short: "Buy points",
}

var topupTrueMoneyCmd = &cobra.Command{
	Use:   "truemoney",
	Short: "Redeem a TrueMoney voucher for points",
	Args:  cobra.NoArgs,
	Run: run(func(ctx context.Context, w io.Writer, _ []string) int {
		return runTopUpTrueMoney(ctx, w, topupVoucher, topupPhone)
	}),
}

var paymentsCmd = &cobra.Command{
	Use:   "payments",
	Short: "Show payment history",
	Args:  cobra.NoArgs,
	Run:   run(func(ctx context.Context, w io.Writer, _ []string) int { return runPayments(ctx, w) }),
}

func init() {
	topupTrueMoneyCmd.Flags().StringVar(&topupVoucher, "voucher", "", "TrueMoney voucher code or link")
	topupTrueMoneyCmd.Flags().StringVar(&topupPhone, "phone", "", "Phone number the voucher was sent to (0XXXXXXXXX or +66XXXXXXXXX)")
	_ = topupTrueMoneyCmd.MarkFlagRequired("voucher")
	_ = topupTrueMoneyCmd.MarkFlagRequired("phone")

	paymentsCmd.Flags().IntVar(&paymentsLimit, "limit", 50, "Number of payments to show")
	paymentsCmd.Flags().IntVar(&paymentsSkip, "skip", 0, "Number of payments to skip")

	pointsCmd.AddCommand(pointsAddCmd)
	topupCmd.AddCommand(topupTrueMoneyCmd)
	rootCmd.AddCommand(pointsCmd, topupCmd, paymentsCmd)
}

// loadProfile syncs the cached profile before a balance-changing call so
// the new balance has a profile to land in
func loadProfile(ctx context.Context, rt *runtime) {
	if _, ok := rt.session.SyncUserData(ctx); !ok {
		log.Debug().Msg("no profile loaded; balance will not be cached")
	}
}

// applyBalance merges a balance reported by the backend into the session and
// renders the cached result. Without a cached profile the backend figure is
// shown on its own.
func applyBalance(rt *runtime, points int) string {
	if err := rt.session.UpdatePoints(points); err != nil {
		if !errors.Is(err, session.ErrNoProfile) {
			log.Warn().Err(err).Msg("could not update cached balance")
		}
		return formatPoints(points)
	}
	user := rt.session.User()
	balance, ok := user.Points()
	if !ok {
		return formatPoints(points)
	}
	if name := user.Username(); name != "" {
		return formatPoints(balance) + " for " + name
	}
	return formatPoints(balance)
}

// runPointsAdd adds points and records the new balance
func runPointsAdd(ctx context.Context, w io.Writer, args []string) int {
	amount, err := strconv.Atoi(args[0])
	if err != nil {
		return fail(w, fmt.Errorf("amount must be a whole number, got %q", args[0]))
	}
	return withRuntime(ctx, w, func(rt *runtime) int {
		loadProfile(ctx, rt)
		resp, err := rt.client.AddPoints(ctx, amount)
		if err != nil {
			return fail(w, err)
		}
		balance := applyBalance(rt, resp.Points)
		return emit(w, resp, func() string {
			return fmt.Sprintf("Added %s\nBalance: %s", formatPoints(resp.PointsAdded), balance)
		})
	})
}

// runTopUpTrueMoney redeems a voucher and records the new balance
func runTopUpTrueMoney(ctx context.Context, w io.Writer, voucher, phone string) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		loadProfile(ctx, rt)
		res, err := rt.client.TrueMoneyPayment(ctx, voucher, phone)
		if err != nil {
			return fail(w, err)
		}
		balance := applyBalance(rt, res.Points)
		return emit(w, res, func() string {
			return fmt.Sprintf("%s\nTransaction: %s\nAdded:       %s\nBalance:     %s",
				res.Message, res.TransactionID, formatPoints(res.PointsAdded), balance)
		})
	})
}

// runPayments lists payment history
func runPayments(ctx context.Context, w io.Writer) int {
	return withRuntime(ctx, w, func(rt *runtime) int {
		hist, err := rt.client.PaymentHistory(ctx, paymentsLimit, paymentsSkip)
		if err != nil {
			return fail(w, err)
		}
		return emit(w, hist, func() string { return formatPaymentsHuman(hist) })
	})
}

func formatPaymentsHuman(hist *client.PaymentHistory) string {
	if len(hist.Payments) == 0 {
		return "No payments yet"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-20s  %-10s  %-10s  %12s  %-9s\n", "DATE", "TYPE", "METHOD", "POINTS", "STATUS")
	for _, p := range hist.Payments {
		fmt.Fprintf(&sb, "%-20s  %-10s  %-10s  %12s  %-9s\n",
			p.CreatedAt, p.Type, p.Method, formatNumber(p.Points), p.Status)
	}
	fmt.Fprintf(&sb, "\n%d of %d payment(s)", len(hist.Payments), hist.Total)
	return sb.String()
}
