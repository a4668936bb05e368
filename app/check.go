package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foundry-core/foundry/internal/config"
)

func init() { //nolint:gochecknoinits
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Print the configuration as JSON")

	rootCmd.AddCommand(checkCmd)
}

var (
	checkJSON bool //nolint:gochecknoglobals

	checkCmd = &cobra.Command{ //nolint:gochecknoglobals
		Use:   "check",
		Short: "Validate the configuration and print it with defaults applied",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.ReadConfig(configPath())
			if err != nil {
				return err
			}

			dump := config.DumpConfig
			if checkJSON {
				dump = config.DumpConfigJSON
			}

			out, err := dump(&cfg)
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), out)

			return err
		},
	}
)
