package cmd

import (
	"context"
	"fmt"

	"github.com/pilab-dev/homefin-auth/internal/app"
	"github.com/spf13/cobra"
)

func newMFACmd(opts *rootOptions) *cobra.Command {
	mfaCmd := &cobra.Command{
		Use:   "mfa",
		Short: "Inspect or reset a user's second factor",
	}

	statusCmd := &cobra.Command{
		Use:   "status <user-id>",
		Short: "Show whether MFA is enabled and how many backup codes remain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withServices(cmd.Context(), func(ctx context.Context, _ *app.Stores, svc *app.Services) error {
				status, err := svc.TwoFactor.Status(ctx, args[0])
				if err != nil {
					return err
				}
				return printYAML(cmd.OutOrStdout(), status)
			})
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset <user-id>",
		Short: "Delete the user's authenticator and backup codes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withServices(cmd.Context(), func(ctx context.Context, _ *app.Stores, svc *app.Services) error {
				if err := svc.TwoFactor.Reset(ctx, args[0]); err != nil {
					return fmt.Errorf("failed to reset MFA for %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "MFA reset for %s\n", args[0])
				return nil
			})
		},
	}

	mfaCmd.AddCommand(statusCmd, resetCmd)
	return mfaCmd
}
