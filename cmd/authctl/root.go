package main

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the operator CLI.
func NewRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "authctl",
		Short: "Operator tooling for the malina-auth service",
		Long: `authctl hashes and checks passwords with the service's scrypt parameters,
generates signing secrets, validates configuration and applies the users schema.`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if configFile != "" {
				return os.Setenv("CONFIG_PATH", configFile)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (overrides CONFIG_PATH)")

	cmd.AddCommand(NewHashPasswordCmd())
	cmd.AddCommand(NewVerifyPasswordCmd())
	cmd.AddCommand(NewGenSecretCmd())
	cmd.AddCommand(NewCheckConfigCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// readPassword returns the flag value, or the first line of stdin when the flag is empty.
func readPassword(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is required (use --password or stdin)")
	}
	return password, nil
}
