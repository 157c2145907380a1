// internal/cli/trade.go
package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/tradedesk/internal/app"
	"github.com/rovshanmuradov/tradedesk/internal/domain"
	"github.com/rovshanmuradov/tradedesk/internal/ui/component"
	"github.com/rovshanmuradov/tradedesk/internal/ui/style"
)

func newPortfolioCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio",
		Short: "Show holdings and account value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(ctx context.Context, rt *app.Runtime) error {
				if err := ensureSynced(ctx, rt); err != nil {
					return err
				}
				snap := rt.Sync.Snapshot()
				out := cmd.OutOrStdout()

				table := component.NewTable().
					AddColumn("Symbol", 0, lipgloss.Left).
					AddColumn("Shares", 0, lipgloss.Right).
					AddColumn("Avg Cost", 0, lipgloss.Right).
					AddColumn("Price", 0, lipgloss.Right).
					AddColumn("Value", 0, lipgloss.Right).
					AddColumn("Gain", 0, lipgloss.Right).
					SetShowBorder(false).
					SetEmptyText("No holdings yet.")

				var rows [][]string
				for _, h := range snap.Portfolio.Holdings() {
					rows = append(rows, []string{
						h.Symbol,
						strconv.FormatInt(h.Shares, 10),
						domain.FormatUSD(h.AverageCost),
						domain.FormatUSD(h.CurrentPrice),
						domain.FormatUSD(h.MarketValue()),
						domain.FormatPercent(h.GainPercent()),
					})
				}
				table.SetRows(rows)
				fmt.Fprintln(out, table.View())

				v := snap.Valuation()
				fmt.Fprintln(out)
				fmt.Fprintf(out, "Cash:        %s\n", domain.FormatUSD(v.Cash))
				fmt.Fprintf(out, "Stocks:      %s\n", domain.FormatUSD(v.Stocks))
				fmt.Fprintf(out, "Total:       %s\n", domain.FormatUSD(v.Total))
				fmt.Fprintf(out, "Unrealized:  %s\n", domain.FormatUSD(v.Gain))
				return nil
			})
		},
	}
}

func newQuoteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "quote SYMBOL",
		Short: "Look up the current price of a stock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(ctx context.Context, rt *app.Runtime) error {
				q, err := rt.Sync.Quote(ctx, args[0])
				if err != nil {
					return err
				}
				if q.Name != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %s\n", q.Symbol, q.Name, domain.FormatUSD(q.Price))
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", q.Symbol, domain.FormatUSD(q.Price))
				}
				return nil
			})
		},
	}
}

func newTradeCmd(opts *rootOptions, side domain.Side) *cobra.Command {
	var dryRun bool

	verb := side.Lower()
	cmd := &cobra.Command{
		Use:   verb + " SYMBOL QUANTITY",
		Short: fmt.Sprintf("Place a market %s order", verb),
		Long: fmt.Sprintf(`Place a market %s order for QUANTITY whole shares of SYMBOL.
With --dry-run only the estimated amount at the current quote is shown.`, verb),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := parseQuantity(args[1])
			if err != nil {
				return err
			}
			req := domain.TradeRequest{Symbol: args[0], Quantity: qty, Side: side}

			return opts.withSession(cmd, func(ctx context.Context, rt *app.Runtime) error {
				out := cmd.OutOrStdout()
				if dryRun {
					est, err := rt.Sync.Estimate(ctx, req)
					if err != nil {
						return err
					}
					printEstimate(out, est)
					return nil
				}

				res, err := rt.Sync.SubmitTrade(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %d %s. Cash balance: %s\n", pastTense(side), res.AppliedQuantity,
					domain.CanonicalSymbol(req.Symbol), domain.FormatUSD(rt.Sync.Profile().CashBalance))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the estimate without placing the order")
	cmd.SetFlagErrorFunc(quantityFlagError)
	return cmd
}

// quantityFlagError reports a negative quantity such as "-3", which the
// flag parser reads as an unknown shorthand flag, as an invalid quantity.
func quantityFlagError(cmd *cobra.Command, err error) error {
	msg := err.Error()
	if !strings.HasPrefix(msg, "unknown shorthand flag") {
		return err
	}
	i := strings.LastIndex(msg, " in ")
	if i < 0 {
		return err
	}
	if _, perr := strconv.ParseFloat(msg[i+len(" in "):], 64); perr != nil {
		return err
	}
	return errInvalidQuantity()
}

func newMarketCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "market",
		Short: "Show the market snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.open(false)
			if err != nil {
				return err
			}
			defer rt.Close()

			ticks, err := rt.Sync.Market(cmd.Context())
			if err != nil {
				return err
			}

			table := component.NewTable().
				AddColumn("Symbol", 0, lipgloss.Left).
				AddColumn("Price", 0, lipgloss.Right).
				SetShowBorder(false).
				SetEmptyText("No market data.")
			rows := make([][]string, 0, len(ticks))
			for _, t := range ticks {
				rows = append(rows, []string{t.Symbol, domain.FormatUSD(t.Price)})
			}
			table.SetRows(rows)
			fmt.Fprintln(cmd.OutOrStdout(), table.View())
			return nil
		},
	}
}

func newTrendingCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "trending",
		Short: "Show today's top gainers and losers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.open(false)
			if err != nil {
				return err
			}
			defer rt.Close()

			movers, err := rt.Sync.Trending(cmd.Context())
			if err != nil {
				return err
			}

			table := component.NewTable().
				AddColumn("Symbol", 0, lipgloss.Left).
				AddColumn("Price", 0, lipgloss.Right).
				AddColumn("Change", 0, lipgloss.Right).
				SetShowBorder(false).
				SetEmptyText("No movers yet.")
			rows := make([][]string, 0, len(movers))
			for _, m := range movers {
				rows = append(rows, []string{m.Symbol, domain.FormatUSD(m.Price), domain.FormatPercent(m.ChangePercent)})
			}
			table.SetRows(rows)
			palette := style.DefaultPalette()
			for i, m := range movers {
				table.SetRowForeground(i, palette.GainColor(m.ChangePercent))
			}
			fmt.Fprintln(cmd.OutOrStdout(), table.View())
			return nil
		},
	}
}

func parseQuantity(s string) (int64, error) {
	qty, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || qty <= 0 {
		return 0, errInvalidQuantity()
	}
	return qty, nil
}

func errInvalidQuantity() error {
	return domain.NewValidationError("quantity", "quantity must be a positive whole number")
}

func pastTense(side domain.Side) string {
	if side == domain.SideSell {
		return "Sold"
	}
	return "Bought"
}

func printEstimate(out io.Writer, est domain.TradeEstimate) {
	label := "Estimated cost"
	if est.Request.Side == domain.SideSell {
		label = "Estimated proceeds"
	}
	fmt.Fprintf(out, "%s at %s\n", est.Request, domain.FormatUSD(est.Price))
	fmt.Fprintf(out, "%s: %s\n", label, domain.FormatUSD(est.Amount))
	fmt.Fprintf(out, "Cash after: %s\n", domain.FormatUSD(est.CashAfter))
	if !est.Feasible {
		if est.Request.Side == domain.SideSell {
			fmt.Fprintln(out, "Warning: you hold fewer shares than this order sells.")
		} else {
			fmt.Fprintln(out, "Warning: cash balance does not cover this order.")
		}
	}
}
