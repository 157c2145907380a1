// internal/cli/history.go
package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/tradedesk/internal/app"
	"github.com/rovshanmuradov/tradedesk/internal/domain"
	"github.com/rovshanmuradov/tradedesk/internal/export"
	"github.com/rovshanmuradov/tradedesk/internal/ui/component"
	"github.com/rovshanmuradov/tradedesk/internal/ui/style"
)

const dateLayout = "2006-01-02"

type historyOptions struct {
	symbol string
	side   string
	since  string
	until  string
	export bool
	format string
	daily  string
	output string
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	ho := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show executed orders",
		Long: `Show executed orders, newest first.
Example: tradedesk history --symbol AAPL --since 2026-01-01 --export --format csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := ho.filter()
			if err != nil {
				return err
			}
			return opts.withSession(cmd, func(ctx context.Context, rt *app.Runtime) error {
				txs, err := rt.Sync.History(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()

				if ho.daily != "" {
					date, err := parseDate("daily", ho.daily)
					if err != nil {
						return err
					}
					path, err := rt.Exporter.ExportDailyReport(txs, date, ho.output)
					if err != nil {
						return err
					}
					if path == "" {
						fmt.Fprintf(out, "No orders on %s.\n", date.Format(dateLayout))
						return nil
					}
					fmt.Fprintf(out, "Daily report written to %s\n", path)
					return nil
				}

				if ho.export {
					path, err := rt.Exporter.Export(txs, filter)
					if errors.Is(err, export.ErrNothingToExport) {
						fmt.Fprintln(out, "No orders match the filters.")
						return nil
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "History written to %s\n", path)
					return nil
				}

				printHistory(cmd, export.Filter(txs, filter))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&ho.symbol, "symbol", "", "Only orders for this symbol")
	cmd.Flags().StringVar(&ho.side, "side", "", "Only buy or sell orders")
	cmd.Flags().StringVar(&ho.since, "since", "", "First day to include (YYYY-MM-DD)")
	cmd.Flags().StringVar(&ho.until, "until", "", "Last day to include (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&ho.export, "export", false, "Write the matching orders to a file")
	cmd.Flags().StringVar(&ho.format, "format", string(export.FormatCSV), "Export format: csv or json")
	cmd.Flags().StringVar(&ho.daily, "daily", "", "Write a JSON report for one day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&ho.output, "output", ".", "Directory for exported files")
	return cmd
}

func (ho *historyOptions) filter() (export.Options, error) {
	format, err := export.ParseFormat(ho.format)
	if err != nil {
		return export.Options{}, err
	}
	filter := export.Options{
		Format:       format,
		SymbolFilter: ho.symbol,
		OutputDir:    ho.output,
	}
	if ho.side != "" {
		if filter.SideFilter, err = domain.ParseSide(ho.side); err != nil {
			return export.Options{}, err
		}
	}
	if ho.since != "" {
		if filter.StartTime, err = parseDate("since", ho.since); err != nil {
			return export.Options{}, err
		}
	}
	if ho.until != "" {
		until, err := parseDate("until", ho.until)
		if err != nil {
			return export.Options{}, err
		}
		filter.EndTime = until.AddDate(0, 0, 1)
	}
	return filter, nil
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, domain.NewValidationError(field, fmt.Sprintf("invalid %s date %q, use YYYY-MM-DD", field, s))
	}
	return t, nil
}

// printHistory renders txs newest first.
func printHistory(cmd *cobra.Command, txs []domain.Transaction) {
	table := component.NewTable().
		AddColumn("Time", 0, lipgloss.Left).
		AddColumn("Side", 0, lipgloss.Left).
		AddColumn("Symbol", 0, lipgloss.Left).
		AddColumn("Qty", 0, lipgloss.Right).
		AddColumn("Price", 0, lipgloss.Right).
		AddColumn("Amount", 0, lipgloss.Right).
		SetShowBorder(false).
		SetEmptyText("No orders yet.")

	rows := make([][]string, 0, len(txs))
	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]
		rows = append(rows, []string{
			tx.Timestamp.Local().Format("2006-01-02 15:04:05"),
			string(tx.Side),
			tx.Symbol,
			strconv.FormatInt(tx.Quantity, 10),
			domain.FormatUSD(tx.Price),
			domain.FormatUSD(tx.Amount()),
		})
	}
	table.SetRows(rows)
	palette := style.DefaultPalette()
	for i, row := range rows {
		table.SetRowForeground(i, palette.SideColor(row[1]))
	}
	fmt.Fprintln(cmd.OutOrStdout(), table.View())
}
