package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/pilab-dev/homefin-auth/internal/auth/totp"
	"github.com/spf13/cobra"
)

func newTOTPCmd() *cobra.Command {
	totpCmd := &cobra.Command{
		Use:   "totp",
		Short: "TOTP development helpers",
	}

	var (
		secret string
		at     int64
	)
	codeCmd := &cobra.Command{
		Use:   "code",
		Short: "Print the current code for a base32 secret",
		// No stores needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("--secret is required")
			}
			now := time.Now()
			if at > 0 {
				now = time.Unix(at, 0)
			}
			code, err := totp.GenerateCode(secret, now)
			if err != nil {
				return fmt.Errorf("failed to generate code: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), code)
			return nil
		},
	}
	codeCmd.Flags().StringVar(&secret, "secret", "", "base32 TOTP secret")
	codeCmd.Flags().Int64Var(&at, "at", 0, "unix time to generate the code for (default now)")

	totpCmd.AddCommand(codeCmd)
	return totpCmd
}
