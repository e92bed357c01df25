package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/pilab-dev/homefin-auth/config"
	"github.com/pilab-dev/homefin-auth/internal/app"
	"github.com/pilab-dev/homefin-auth/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const appName = "authctl"

type rootOptions struct {
	cfgFile  string
	logLevel string
	cfg      *config.ServerConfig
}

// NewRootCmd builds the authctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           appName,
		Short:         "authctl administers HomeFin sign-in: users, MFA devices and lockouts",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := log.Setup(opts.logLevel, true); err != nil {
				return err
			}
			cfg, err := config.LoadConfig(opts.cfgFile)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "",
		"config file (default is /etc/homefin-auth/config.yaml, $HOME/.homefin-auth/config.yaml or ./config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		newUserCmd(opts),
		newMFACmd(opts),
		newLockoutCmd(opts),
		newTOTPCmd(),
	)
	return root
}

// withServices opens the configured stores for the duration of fn.
func (o *rootOptions) withServices(ctx context.Context, fn func(ctx context.Context, stores *app.Stores, svc *app.Services) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	stores, err := app.OpenStores(ctx, o.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = stores.Close(ctx) }()
	return fn(ctx, stores, app.NewServices(o.cfg, stores, nil))
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return enc.Close()
}
