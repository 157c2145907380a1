// internal/cli/root.go

// Package cli implements the tradedesk command line.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/tradedesk/internal/app"
	"github.com/rovshanmuradov/tradedesk/internal/domain"
	"github.com/rovshanmuradov/tradedesk/internal/ui"
)

type rootOptions struct {
	configPath string
	debug      bool
	apiURL     string
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "tradedesk",
		Short: "tradedesk - paper trading terminal",
		Long: `tradedesk keeps a local view of your trading account in sync with the
trading server: sign in, check quotes, buy and sell shares, and review history.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newLoginCmd(opts))
	rootCmd.AddCommand(newLogoutCmd(opts))
	rootCmd.AddCommand(newRegisterCmd(opts))
	rootCmd.AddCommand(newProfileCmd(opts))
	rootCmd.AddCommand(newPortfolioCmd(opts))
	rootCmd.AddCommand(newQuoteCmd(opts))
	rootCmd.AddCommand(newTradeCmd(opts, domain.SideBuy))
	rootCmd.AddCommand(newTradeCmd(opts, domain.SideSell))
	rootCmd.AddCommand(newMarketCmd(opts))
	rootCmd.AddCommand(newTrendingCmd(opts))
	rootCmd.AddCommand(newHistoryCmd(opts))
	rootCmd.AddCommand(newDashboardCmd(opts))

	// Global flags
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "Trading server address (overrides config)")

	return rootCmd
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", ui.DescribeError(err))
		return 1
	}
	return 0
}

// open builds a runtime. Logs stay in memory unless --debug is set, so
// regular command output is not interleaved with log lines.
func (o *rootOptions) open(buffered bool) (*app.Runtime, error) {
	return app.New(app.Options{
		ConfigPath: o.configPath,
		Debug:      o.debug,
		Buffered:   buffered || !o.debug,
		APIURL:     o.apiURL,
	})
}

// withSession runs fn with a runtime whose persisted session has been
// restored and synchronized.
func (o *rootOptions) withSession(cmd *cobra.Command, fn func(ctx context.Context, rt *app.Runtime) error) error {
	rt, err := o.open(false)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	if !rt.Restore(ctx) {
		if rt.Sync.Stats().Invalidations > 0 {
			return domain.ErrSessionInvalid
		}
		return domain.ErrNotAuthenticated
	}
	return fn(ctx, rt)
}

// ensureSynced retries the sync once when the restored session has no
// profile yet or its last sync failed, and returns that error.
func ensureSynced(ctx context.Context, rt *app.Runtime) error {
	if !rt.Sync.Profile().IsZero() && rt.Sync.LastSyncError() == nil {
		return nil
	}
	return rt.Sync.Refresh(ctx)
}
