package cmd

import (
	"context"
	"fmt"

	"github.com/pilab-dev/homefin-auth/internal/app"
	"github.com/pilab-dev/homefin-auth/services"
	"github.com/spf13/cobra"
)

func newLockoutCmd(opts *rootOptions) *cobra.Command {
	lockoutCmd := &cobra.Command{
		Use:   "lockout",
		Short: "Inspect or clear failed sign-in lockouts",
	}

	var ip string
	statusCmd := &cobra.Command{
		Use:   "status <identity>",
		Short: "Show the consecutive failure count and lock state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withServices(cmd.Context(), func(ctx context.Context, _ *app.Stores, svc *app.Services) error {
				state, err := svc.Lockout.State(ctx, services.NormalizeIdentity(args[0]), ip)
				if err != nil {
					return err
				}
				return printYAML(cmd.OutOrStdout(), state)
			})
		},
	}
	statusCmd.Flags().StringVar(&ip, "ip", "", "also evaluate the per-IP threshold for this address")

	clearCmd := &cobra.Command{
		Use:   "clear <identity>",
		Short: "Forget recorded attempts so the identity can sign in again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withServices(cmd.Context(), func(ctx context.Context, _ *app.Stores, svc *app.Services) error {
				n, err := svc.Lockout.Clear(ctx, services.NormalizeIdentity(args[0]))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d attempts for %s\n", n, args[0])
				return nil
			})
		},
	}

	lockoutCmd.AddCommand(statusCmd, clearCmd)
	return lockoutCmd
}
