package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yanqian/malina-auth/internal/domain/auth"
)

var errPasswordMismatch = errors.New("password does not match")

// NewHashPasswordCmd creates the hash-password subcommand.
func NewHashPasswordCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print the scrypt record for a password",
		Long: `Hashes a password with the same scrypt parameters the service uses and prints
the salt:key record, ready to be stored in users.password_hash.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plaintext, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			record, err := newHasher().Hash(cmd.Context(), plaintext)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), record)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password to hash (read from stdin when empty)")
	return cmd
}

// NewVerifyPasswordCmd creates the verify-password subcommand.
func NewVerifyPasswordCmd() *cobra.Command {
	var (
		password string
		record   string
	)
	cmd := &cobra.Command{
		Use:   "verify-password",
		Short: "Check a password against a stored scrypt record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			plaintext, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			ok, err := newHasher().Verify(cmd.Context(), plaintext, record)
			if err != nil {
				return err
			}
			if !ok {
				return errPasswordMismatch
			}
			fmt.Fprintln(cmd.OutOrStdout(), "password matches")
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password to check (read from stdin when empty)")
	cmd.Flags().StringVar(&record, "hash", "", "stored salt:key record")
	_ = cmd.MarkFlagRequired("hash")
	return cmd
}

func newHasher() auth.PasswordHasher {
	return auth.NewScryptHasher(auth.NewHashPool(1, nil))
}
