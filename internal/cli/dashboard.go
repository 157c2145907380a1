// internal/cli/dashboard.go
package cli

import (
	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/tradedesk/internal/domain"
	"github.com/rovshanmuradov/tradedesk/internal/ui"
	"github.com/rovshanmuradov/tradedesk/internal/ui/component"
)

func newDashboardCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Open the interactive trading dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The dashboard owns the terminal, so logs always go to the buffer.
			rt, err := opts.open(true)
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

			var logs component.LogSource
			if rt.LogBuffer != nil {
				logs = rt.LogBuffer
			}
			return ui.Run(ctx, rt.Sync, logs, rt.Logger)
		},
	}
}
