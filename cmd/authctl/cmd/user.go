package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pilab-dev/homefin-auth/domain"
	"github.com/pilab-dev/homefin-auth/internal/app"
	"github.com/pilab-dev/homefin-auth/services"
	"github.com/spf13/cobra"
)

const minPasswordLength = 8

func newUserCmd(opts *rootOptions) *cobra.Command {
	userCmd := &cobra.Command{
		Use:     "user",
		Short:   "Manage users",
		Aliases: []string{"users"},
	}

	var email, password string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user with a password",
		RunE: func(cmd *cobra.Command, args []string) error {
			email = services.NormalizeIdentity(email)
			if email == "" || !strings.Contains(email, "@") {
				return errors.New("a valid email is required via --email")
			}
			if len(password) < minPasswordLength {
				return fmt.Errorf("password must be at least %d characters", minPasswordLength)
			}

			return opts.withServices(cmd.Context(), func(ctx context.Context, stores *app.Stores, svc *app.Services) error {
				hash, err := svc.Hasher.Hash(password)
				if err != nil {
					return err
				}
				user := &domain.User{
					ID:           uuid.NewString(),
					Email:        email,
					PasswordHash: hash,
					Status:       domain.UserStatusActive,
					CreatedAt:    time.Now().UTC(),
				}
				if err := stores.Users.CreateUser(ctx, user); err != nil {
					return fmt.Errorf("failed to create user: %w", err)
				}
				return printYAML(cmd.OutOrStdout(), map[string]string{"id": user.ID, "email": user.Email})
			})
		},
	}
	addCmd.Flags().StringVar(&email, "email", "", "email address used to sign in")
	addCmd.Flags().StringVar(&password, "password", "", "initial password")

	userCmd.AddCommand(addCmd)
	return userCmd
}
