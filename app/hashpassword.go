package app

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foundry-core/foundry/internal/auth"
	"github.com/foundry-core/foundry/internal/config"
)

// ErrEmptyPassword is returned when no password was given.
var ErrEmptyPassword = errors.New("password can not be empty")

func init() { //nolint:gochecknoinits
	rootCmd.AddCommand(hashPasswordCmd)
}

var hashPasswordCmd = &cobra.Command{ //nolint:gochecknoglobals
	Use:   "hash-password [password]",
	Short: "Hash a password with the configured algorithm",
	Long: `Hash a password with the configured algorithm and key.
The password is read from the first argument or, when missing, from stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.ReadConfig(configPath())
		if err != nil {
			return err
		}

		password, err := readPassword(cmd, args)
		if err != nil {
			return err
		}

		hashed, err := hashPassword(cfg.Auth, password)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), hashed)

		return err
	},
}

func readPassword(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", ErrEmptyPassword
	}

	return strings.TrimRight(line, "\r\n"), nil
}

func hashPassword(cfg config.Auth, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	h, err := auth.NewHasher(cfg.HashAlgorithm, cfg.HashKey, cfg.HashRounds)
	if err != nil {
		return "", err
	}

	return h.Hash(password)
}
