package app

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/foundry-core/foundry/internal/daemon"
)

func init() { //nolint:gochecknoinits
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable dev mode")

	rootCmd.AddCommand(startCmd)
}

var (
	devMode bool //nolint:gochecknoglobals

	startCmd = &cobra.Command{ //nolint:gochecknoglobals
		Use:   "start",
		Short: "Start the Foundry web service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if devMode {
				cfg.DevMode = true
			}

			log.Info().
				Str("auth", cfg.Auth.Service).
				Str("access", cfg.Access.Service).
				Str("database", cfg.Database.Service).
				Str("sessions", cfg.Webserver.Session.Storage).
				Int("port", cfg.Webserver.Port).
				Msg("starting")

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			d, err := daemon.New(ctx, &cfg)
			if err != nil {
				return err
			}

			return d.Start()
		},
	}
)
