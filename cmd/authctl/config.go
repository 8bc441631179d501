package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/yanqian/malina-auth/internal/infra/config"
	"github.com/yanqian/malina-auth/internal/infra/userrepo"
)

// NewCheckConfigCmd creates the check-config subcommand.
func NewCheckConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Load and validate the service configuration",
		Long: `Loads the configuration file and environment overrides exactly like the
service does and reports the effective auth settings. Secrets are never printed.
Exits with code 0 on success, non-zero on failure.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "http address:      %s\n", cfg.HTTP.Address)
			fmt.Fprintf(cmd.OutOrStdout(), "token issuer:      %s\n", cfg.Auth.TokenIssuer)
			fmt.Fprintf(cmd.OutOrStdout(), "token audience:    %s\n", cfg.Auth.TokenAudience)
			fmt.Fprintf(cmd.OutOrStdout(), "access token ttl:  %s\n", cfg.Auth.AccessTokenTTL)
			fmt.Fprintf(cmd.OutOrStdout(), "refresh token ttl: %s\n", cfg.Auth.RefreshTokenTTL)
			fmt.Fprintf(cmd.OutOrStdout(), "credential store:  %s\n", storeKind(cfg))
			fmt.Fprintf(cmd.OutOrStdout(), "google sign-in:    %t\n", cfg.Google.ClientID != "")
			fmt.Fprintln(cmd.OutOrStdout(), "configuration ok")
			return nil
		},
	}
}

func storeKind(cfg *config.Config) string {
	if cfg.Postgres.DSN == "" {
		return "memory"
	}
	return "postgres"
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the users table in the configured Postgres database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Postgres.DSN == "" {
				return errors.New("postgres.dsn is not configured")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()
			if err := userrepo.NewPostgresRepository(pool).Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "users schema is up to date")
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall timeout")
	return cmd
}
