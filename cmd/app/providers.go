package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/malina-auth/internal/domain/auth"
	"github.com/yanqian/malina-auth/internal/infra/config"
	"github.com/yanqian/malina-auth/internal/infra/throttle"
	"github.com/yanqian/malina-auth/internal/infra/userrepo"
	httpiface "github.com/yanqian/malina-auth/internal/interface/http"
	"github.com/yanqian/malina-auth/pkg/metrics"
	"github.com/yanqian/malina-auth/pkg/util"
)

func provideAuthConfig(cfg *config.Config) (auth.Config, error) {
	authCfg := auth.Config{
		AccessTokenTTL:       cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL:      cfg.Auth.RefreshTokenTTL,
		RefreshSigningSecret: cfg.Auth.RefreshSigningSecret,
		TokenIssuer:          cfg.Auth.TokenIssuer,
		TokenAudience:        cfg.Auth.TokenAudience,
		Google: auth.GoogleConfig{
			ClientID:             cfg.Google.ClientID,
			ClientSecret:         cfg.Google.ClientSecret,
			RedirectURL:          cfg.Google.RedirectURL,
			PostLoginRedirectURL: cfg.Google.PostLoginRedirectURL,
		},
	}
	if err := authCfg.Validate(); err != nil {
		return auth.Config{}, err
	}
	return authCfg, nil
}

func provideGoogleConfig(cfg auth.Config) auth.GoogleConfig {
	return cfg.Google
}

func provideClock() util.Clock {
	return util.NowUTC
}

// provideKeyManager generates the process signing key. Startup fails if it cannot.
func provideKeyManager(logger *slog.Logger) (*auth.KeyManager, error) {
	keys := auth.NewKeyManager()
	if err := keys.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize signing keys: %w", err)
	}
	fingerprint, err := keys.Fingerprint()
	if err != nil {
		return nil, err
	}
	logger.Info("access token signing key generated", "algorithm", "ES256", "fingerprint", fingerprint)
	return keys, nil
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideHashPool(cfg *config.Config, m *metrics.AuthMetrics) *auth.HashPool {
	return auth.NewHashPool(cfg.Auth.HashWorkers, m)
}

func provideHasher(pool *auth.HashPool) auth.PasswordHasher {
	return auth.NewScryptHasher(pool)
}

func provideSessionTransport(cfg *config.Config) *httpiface.SessionTransport {
	return httpiface.NewSessionTransport(cfg.Auth.Cookie)
}

// provideCredentialStore uses Postgres when a DSN is configured and the in-memory
// store otherwise. A configured but unreachable database stops startup.
func provideCredentialStore(cfg *config.Config, logger *slog.Logger) (auth.CredentialStore, func(), error) {
	dsn := strings.TrimSpace(cfg.Postgres.DSN)
	if dsn == "" {
		logger.Warn("postgres dsn not set, identities are kept in memory")
		return userrepo.NewMemoryRepository(), func() {}, nil
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Postgres.MinConns
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	repo := userrepo.NewPostgresRepository(pool)
	if cfg.Postgres.Migrate {
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("users schema migrated")
	}
	logger.Info("postgres credential store enabled")
	return repo, pool.Close, nil
}

// provideLoginThrottle prefers Valkey so every instance shares failure counters,
// and falls back to process memory when Valkey is unavailable.
func provideLoginThrottle(cfg *config.Config, clock util.Clock, logger *slog.Logger) (auth.LoginThrottle, func(), error) {
	if !cfg.Auth.Throttle.Enabled {
		logger.Info("login throttle disabled")
		return auth.NoopThrottle{}, func() {}, nil
	}
	throttleCfg := auth.ThrottleConfig{
		MaxFailures: cfg.Auth.Throttle.MaxFailures,
		Window:      cfg.Auth.Throttle.Window,
	}
	if cfg.Valkey.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory throttle", "error", err)
			return throttle.NewMemoryThrottle(throttleCfg, clock), func() {}, nil
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory throttle", "error", err)
			return throttle.NewMemoryThrottle(throttleCfg, clock), func() {}, nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory throttle", "error", err)
			client.Close()
			return throttle.NewMemoryThrottle(throttleCfg, clock), func() {}, nil
		}
		logger.Info("valkey login throttle enabled", "addr", cfg.Valkey.Addr)
		return throttle.NewValkeyThrottle(client, cfg.Valkey.Prefix, throttleCfg), client.Close, nil
	}
	return throttle.NewMemoryThrottle(throttleCfg, clock), func() {}, nil
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Valkey.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Valkey.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Valkey.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}
