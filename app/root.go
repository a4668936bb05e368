// Package app implements the main application commands.
package app

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/foundry-core/foundry/internal/config"
	"github.com/foundry-core/foundry/internal/logger"
)

const (
	envPrefix     = "FOUNDRY"
	configPathKey = "config_path"
)

var rootCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "foundry",
	Short: "Foundry serves pluggable authentication and role based access",
	Long: `Foundry authenticates users against a memory, LDAP or Crowd directory,
optionally through OpenID Connect single sign-on, and grants roles to groups.
Roles and settings are kept in memory, a SQL database or MongoDB.`,
	Args:         cobra.OnlyValidArgs,
	SilenceUsage: true,
}

func init() { //nolint:gochecknoinits
	rootCmd.PersistentFlags().String("config", "./etc/", "directory holding main.toml")

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	_ = viper.BindPFlag(configPathKey, rootCmd.PersistentFlags().Lookup("config"))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// configPath is the config directory from --config or FOUNDRY_CONFIG_PATH.
func configPath() string {
	p := viper.GetString(configPathKey)
	if p != "" && !strings.HasSuffix(p, "/") {
		p += "/"
	}

	return p
}

// loadConfig reads the configuration and sets up the global logger.
func loadConfig() (config.Config, error) {
	cfg, err := config.ReadConfig(configPath())
	if err != nil {
		return cfg, err
	}

	logger.Defaults(&cfg.Log, cfg.Title)

	return cfg, logger.Init(cfg.Log)
}
