package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
)

const minSecretBytes = 32

// NewGenSecretCmd creates the gen-secret subcommand.
func NewGenSecretCmd() *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "gen-secret",
		Short: "Generate a random refresh token signing secret",
		Long: `Prints a base64url secret suitable for AUTH_REFRESH_SIGNING_SECRET.
Every running instance must share the same value.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := generateSecret(size)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), secret)
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "bytes", 48, "number of random bytes")
	return cmd
}

func generateSecret(size int) (string, error) {
	if size < minSecretBytes {
		return "", fmt.Errorf("secret must be at least %d bytes, got %d", minSecretBytes, size)
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
