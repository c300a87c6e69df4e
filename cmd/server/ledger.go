package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/aristath/papertrader/internal/domain"
)

// ledgerCmd groups manual inspection and orders against one strategy's
// ledger. The top-level buy command is the scheduled buy phase.
func ledgerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect a strategy's ledger or place manual orders",
	}
	cmd.AddCommand(ledgerStatusCmd(a), ledgerOrderCmd(a, domain.TradeTypeBuy), ledgerOrderCmd(a, domain.TradeTypeSell), ledgerHistoryCmd(a))
	return cmd
}

func ledgerStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <strategy-id>",
		Short: "Show cash, holdings and return of a strategy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, container, _, err := a.setup(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer container.Close()

			st, err := container.Coordinator.Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", st.Name, st.ID)
			fmt.Fprintf(out, "  Seed:   %s KRW\n", humanize.Comma(st.Seed))
			fmt.Fprintf(out, "  Cash:   %s KRW\n", humanize.Comma(st.Cash))
			fmt.Fprintf(out, "  Assets: %s KRW (%+.2f%%)\n", humanize.Comma(st.TotalAssets), st.ReturnPct)
			for _, h := range st.Holdings {
				fmt.Fprintf(out, "  %-8s %-16s %6d x %10s  now %10s  %+.2f%%\n",
					h.Ticker, h.Name, h.Shares, humanize.Commaf(h.AvgPrice), humanize.Comma(h.Price), h.ChangePct)
			}
			return nil
		},
	}
}

func ledgerOrderCmd(a *app, side domain.TradeType) *cobra.Command {
	verb := "buy"
	if side == domain.TradeTypeSell {
		verb = "sell"
	}
	return &cobra.Command{
		Use:   verb + " <strategy-id> <ticker> <shares>",
		Short: fmt.Sprintf("Manually %s shares at the live quote", verb),
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			shares, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil || shares <= 0 {
				return fmt.Errorf("%w: shares must be a positive integer, got %q", domain.ErrInvalidOrder, args[2])
			}

			_, container, _, err := a.setup(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer container.Close()

			place := container.Coordinator.ManualBuy
			if side == domain.TradeTypeSell {
				place = container.Coordinator.ManualSell
			}
			trade, err := place(cmd.Context(), args[0], args[1], shares)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatTrade(trade))
			return nil
		},
	}
}

func ledgerHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <strategy-id>",
		Short: "List a strategy's trades, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, container, _, err := a.setup(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer container.Close()

			trades, err := container.Coordinator.History(args[0], limit)
			if err != nil {
				return err
			}
			if len(trades) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no trades")
				return nil
			}
			for _, t := range trades {
				fmt.Fprintln(cmd.OutOrStdout(), formatTrade(t))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of trades to show (0 for all)")
	return cmd
}

func formatTrade(t domain.Trade) string {
	line := fmt.Sprintf("%s %-4s %-8s %-16s %6d @ %10s = %12s",
		t.Date.Format("2006-01-02 15:04"), t.Type, t.Ticker, t.Name, t.Shares, humanize.Comma(t.Price), humanize.Comma(t.Amount))
	if t.Profit != nil && t.ProfitRate != nil {
		line += fmt.Sprintf("  %+.0f (%+.2f%%)", *t.Profit, *t.ProfitRate)
	}
	if t.Reason != "" {
		line += "  " + t.Reason
	}
	return line
}
