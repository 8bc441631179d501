package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Google   GoogleConfig   `yaml:"google"`
	Postgres PostgresConfig `yaml:"postgres"`
	Valkey   ValkeyConfig   `yaml:"valkey"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
	CORSOrigins  []string        `yaml:"corsOrigins"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// AuthConfig holds token, hashing and session cookie settings. The token fields have no
// defaults: a deployment must set every one of them.
type AuthConfig struct {
	AccessTokenTTL       time.Duration  `yaml:"accessTokenTtl"`
	RefreshTokenTTL      time.Duration  `yaml:"refreshTokenTtl"`
	RefreshSigningSecret string         `yaml:"refreshSigningSecret"`
	TokenIssuer          string         `yaml:"tokenIssuer"`
	TokenAudience        string         `yaml:"tokenAudience"`
	HashWorkers          int            `yaml:"hashWorkers"`
	Throttle             ThrottleConfig `yaml:"throttle"`
	Cookie               CookieConfig   `yaml:"cookie"`
}

// ThrottleConfig limits failed password logins per email.
type ThrottleConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures int           `yaml:"maxFailures"`
	Window      time.Duration `yaml:"window"`
}

// CookieConfig shapes the session cookies.
type CookieConfig struct {
	Secure bool   `yaml:"secure"`
	Domain string `yaml:"domain"`
}

// GoogleConfig configures Google sign-in. Leaving the client id empty disables it.
type GoogleConfig struct {
	ClientID             string `yaml:"clientId"`
	ClientSecret         string `yaml:"clientSecret"`
	RedirectURL          string `yaml:"redirectUrl"`
	PostLoginRedirectURL string `yaml:"postLoginRedirectUrl"`
}

// PostgresConfig contains DSN and pooling settings. An empty DSN selects the memory store.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
	Migrate  bool   `yaml:"migrate"`
}

// ValkeyConfig contains connection information for the login throttle.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_CORS_ORIGINS"); v != "" {
		cfg.HTTP.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}

	// Token lifetimes are security settings: a typo must stop the process rather than
	// fall back to a file value.
	if v := os.Getenv("AUTH_ACCESS_TOKEN_TTL"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse AUTH_ACCESS_TOKEN_TTL: %w", err)
		}
		cfg.Auth.AccessTokenTTL = parsed
	}
	if v := os.Getenv("AUTH_REFRESH_TOKEN_TTL"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse AUTH_REFRESH_TOKEN_TTL: %w", err)
		}
		cfg.Auth.RefreshTokenTTL = parsed
	}
	if v := os.Getenv("AUTH_REFRESH_SIGNING_SECRET"); v != "" {
		cfg.Auth.RefreshSigningSecret = v
	}
	if v := os.Getenv("AUTH_TOKEN_ISSUER"); v != "" {
		cfg.Auth.TokenIssuer = v
	}
	if v := os.Getenv("AUTH_TOKEN_AUDIENCE"); v != "" {
		cfg.Auth.TokenAudience = v
	}
	if v := os.Getenv("AUTH_HASH_WORKERS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Auth.HashWorkers = parsed
		}
	}
	if v := os.Getenv("AUTH_THROTTLE_ENABLED"); v != "" {
		cfg.Auth.Throttle.Enabled = parseBool(v)
	}
	if v := os.Getenv("AUTH_THROTTLE_MAX_FAILURES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Auth.Throttle.MaxFailures = parsed
		}
	}
	if v := os.Getenv("AUTH_THROTTLE_WINDOW"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Auth.Throttle.Window = parsed
		}
	}
	if v := os.Getenv("AUTH_COOKIE_SECURE"); v != "" {
		cfg.Auth.Cookie.Secure = parseBool(v)
	}
	if v := os.Getenv("AUTH_COOKIE_DOMAIN"); v != "" {
		cfg.Auth.Cookie.Domain = v
	}

	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		cfg.Google.ClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		cfg.Google.ClientSecret = v
	}
	if v := os.Getenv("GOOGLE_REDIRECT_URL"); v != "" {
		cfg.Google.RedirectURL = v
	}
	if v := os.Getenv("GOOGLE_POST_LOGIN_REDIRECT_URL"); v != "" {
		cfg.Google.PostLoginRedirectURL = v
	}

	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MinConns = int32(parsed)
		}
	}
	if v := os.Getenv("POSTGRES_MIGRATE"); v != "" {
		cfg.Postgres.Migrate = parseBool(v)
	}
	if v := os.Getenv("VALKEY_ENABLED"); v != "" {
		cfg.Valkey.Enabled = parseBool(v)
	}
	if v := os.Getenv("VALKEY_ADDR"); v != "" {
		cfg.Valkey.Addr = v
	}
	return nil
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Auth: AuthConfig{
			HashWorkers: 0,
			Throttle: ThrottleConfig{
				Enabled:     true,
				MaxFailures: 5,
				Window:      15 * time.Minute,
			},
		},
		Postgres: PostgresConfig{
			MaxConns: 4,
		},
		Valkey: ValkeyConfig{
			Prefix: "malina-auth:login",
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return errors.New("auth.accessTokenTtl is required")
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		return errors.New("auth.refreshTokenTtl is required")
	}
	if c.Auth.AccessTokenTTL >= c.Auth.RefreshTokenTTL {
		return errors.New("auth.accessTokenTtl must be shorter than auth.refreshTokenTtl")
	}
	if strings.TrimSpace(c.Auth.RefreshSigningSecret) == "" {
		return errors.New("auth.refreshSigningSecret is required")
	}
	if strings.TrimSpace(c.Auth.TokenIssuer) == "" {
		return errors.New("auth.tokenIssuer is required")
	}
	if strings.TrimSpace(c.Auth.TokenAudience) == "" {
		return errors.New("auth.tokenAudience is required")
	}
	if c.Auth.HashWorkers < 0 {
		return errors.New("auth.hashWorkers cannot be negative")
	}
	if c.Auth.Throttle.Enabled {
		if c.Auth.Throttle.MaxFailures <= 0 {
			return errors.New("auth.throttle.maxFailures must be positive")
		}
		if c.Auth.Throttle.Window <= 0 {
			return errors.New("auth.throttle.window must be positive")
		}
	}
	if c.Google.ClientID != "" && (c.Google.ClientSecret == "" || c.Google.RedirectURL == "") {
		return errors.New("google.clientSecret and google.redirectUrl are required when google.clientId is set")
	}
	if c.Valkey.Enabled && strings.TrimSpace(c.Valkey.Addr) == "" {
		return errors.New("valkey.addr cannot be empty when valkey is enabled")
	}
	return nil
}
