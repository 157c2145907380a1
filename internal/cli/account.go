// internal/cli/account.go
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/tradedesk/internal/app"
	"github.com/rovshanmuradov/tradedesk/internal/domain"
	"github.com/rovshanmuradov/tradedesk/internal/trading"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Long: `Sign in with a username or email. The password is prompted for when
--password is not given. The session is kept until logout or expiry.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ask := newPrompter(cmd)
			var err error
			if username == "" {
				if username, err = ask.Ask("Username or email:"); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = ask.Secret("Password:"); err != nil {
					return err
				}
			}

			rt, err := opts.open(false)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			profile, err := rt.Sync.Login(ctx, username, password)
			if err != nil {
				return err
			}

			waitCtx, cancel := context.WithTimeout(ctx, rt.Config.RequestTimeout)
			defer cancel()
			_ = rt.Sync.WaitIdle(waitCtx)
			if synced := rt.Sync.Profile(); !synced.IsZero() {
				profile = synced
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s. Cash balance: %s\n",
				profile.Username, domain.FormatUSD(profile.CashBalance))
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "user", "u", "", "Username or email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted if empty)")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.open(false)
			if err != nil {
				return err
			}
			defer rt.Close()

			if rt.Tokens.Restore() == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				return nil
			}
			rt.Sync.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var in trading.RegisterInput

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new trading account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ask := newPrompter(cmd)
			var err error
			if in.Password == "" {
				if in.Password, err = ask.Secret("Password:"); err != nil {
					return err
				}
			}
			if in.Confirmation == "" {
				if in.Confirmation, err = ask.Secret("Confirm password:"); err != nil {
					return err
				}
			}

			rt, err := opts.open(false)
			if err != nil {
				return err
			}
			defer rt.Close()

			profile, err := rt.Sync.Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account created for %s. Run `tradedesk login -u %s` to sign in.\n",
				profile.Username, profile.Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.FullNames, "name", "", "Full name")
	cmd.Flags().StringVar(&in.Username, "username", "", "Username")
	cmd.Flags().StringVar(&in.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password (prompted if empty)")
	cmd.Flags().StringVar(&in.Confirmation, "confirm", "", "Password confirmation (prompted if empty)")
	return cmd
}

func newProfileCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(ctx context.Context, rt *app.Runtime) error {
				if err := ensureSynced(ctx, rt); err != nil {
					return err
				}
				p := rt.Sync.Profile()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Name:      %s\n", p.DisplayName)
				fmt.Fprintf(out, "Username:  %s\n", p.Username)
				fmt.Fprintf(out, "Email:     %s\n", p.Email)
				fmt.Fprintf(out, "Cash:      %s\n", domain.FormatUSD(p.CashBalance))
				return nil
			})
		},
	}
}
