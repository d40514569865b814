package main

import (
	"fmt"
	"os"

	"github.com/gdrocha-io/togglr-backend/internal/config"
	"github.com/gdrocha-io/togglr-backend/internal/service"
	"github.com/gdrocha-io/togglr-backend/pkg/logger"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "togglr",
		Short:        "Togglr feature flag backend",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default ./config.yaml or ./config/config.yaml)")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		logger.InitLogger(cfg.Server.Environment)
		return cfg, nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := load()
				if err != nil {
					return err
				}
				defer logger.Sync()
				return run(cmd.Context(), cfg)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := load()
				if err != nil {
					return err
				}
				defer logger.Sync()
				return migrate(cfg.Database)
			},
		},
		&cobra.Command{
			Use:   "hash-secret <secret>",
			Short: "Print the bcrypt hash of a user password or client secret for the config file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				hash, err := service.HashSecret(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), hash)
				return nil
			},
		},
	)
	return cmd
}
