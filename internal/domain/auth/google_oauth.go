package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	apperrors "github.com/yanqian/malina-auth/pkg/errors"
)

const (
	googleProviderName = "google"
	googleIssuerURL    = "https://accounts.google.com"
)

type googleClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
}

// googleVerifierCache holds the ID token verifier built from Google's discovery
// document. A failed discovery is not cached so the next callback retries it.
type googleVerifierCache struct {
	mu       sync.Mutex
	verifier *oidc.IDTokenVerifier
	discover func(ctx context.Context) (*oidc.Provider, error)
}

func discoverGoogle(ctx context.Context) (*oidc.Provider, error) {
	return oidc.NewProvider(ctx, googleIssuerURL)
}

func (s *service) googleIDTokenVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	cache := &s.google
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.verifier != nil {
		return cache.verifier, nil
	}
	discover := cache.discover
	if discover == nil {
		discover = discoverGoogle
	}
	provider, err := discover(ctx)
	if err != nil {
		return nil, err
	}
	cache.verifier = provider.Verifier(&oidc.Config{ClientID: s.cfg.Google.ClientID})
	return cache.verifier, nil
}

func (s *service) GoogleAuthURL(_ context.Context, state, codeChallenge string) (string, error) {
	cfg, err := s.googleOAuthConfig()
	if err != nil {
		return "", err
	}
	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("prompt", "select_account"),
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	}
	return cfg.AuthCodeURL(state, opts...), nil
}

// GoogleCallback exchanges the authorization code, verifies the returned ID token and
// signs the profile in through the OAuth strategy.
func (s *service) GoogleCallback(ctx context.Context, code, codeVerifier string) (LoginResponse, error) {
	cfg, err := s.googleOAuthConfig()
	if err != nil {
		return LoginResponse{}, err
	}
	if strings.TrimSpace(code) == "" || strings.TrimSpace(codeVerifier) == "" {
		return LoginResponse{}, apperrors.Wrap(CodeInvalidInput, "missing oauth code or verifier", nil)
	}
	token, err := cfg.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", codeVerifier))
	if err != nil {
		return LoginResponse{}, apperrors.Wrap(CodeOAuthExchange, "failed to exchange oauth code", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return LoginResponse{}, apperrors.Wrap(CodeOAuthExchange, "missing id_token in oauth response", nil)
	}
	claims, err := s.verifyGoogleIDToken(ctx, rawIDToken)
	if err != nil {
		return LoginResponse{}, err
	}
	return s.OAuthLogin(ctx, OAuthProfile{
		Provider:      googleProviderName,
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		GivenName:     claims.GivenName,
	})
}

func (s *service) googleOAuthConfig() (*oauth2.Config, error) {
	googleCfg := s.cfg.Google
	if !googleCfg.Enabled() {
		return nil, apperrors.Wrap(CodeNotConfigured, "google oauth is not configured", nil)
	}
	return &oauth2.Config{
		ClientID:     googleCfg.ClientID,
		ClientSecret: googleCfg.ClientSecret,
		RedirectURL:  googleCfg.RedirectURL,
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		Endpoint:     google.Endpoint,
	}, nil
}

func (s *service) verifyGoogleIDToken(ctx context.Context, rawToken string) (googleClaims, error) {
	verifier, err := s.googleIDTokenVerifier(ctx)
	if err != nil {
		return googleClaims{}, apperrors.Wrap(CodeOAuthExchange, "failed to initialize oidc provider", err)
	}
	idToken, err := verifier.Verify(ctx, rawToken)
	if err != nil {
		return googleClaims{}, apperrors.Wrap(ReasonInvalidSignature.String(), "failed to verify id token", err)
	}
	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return googleClaims{}, apperrors.Wrap(ReasonMalformedToken.String(), "failed to parse id token claims", err)
	}
	if claims.Email == "" || claims.Subject == "" {
		return googleClaims{}, apperrors.Wrap(ReasonMalformedToken.String(), "id token is missing subject or email", nil)
	}
	return claims, nil
}

// CodeChallengeFromVerifier computes the PKCE code challenge for a verifier.
func CodeChallengeFromVerifier(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// NewOAuthState returns a state, code verifier, and code challenge for PKCE.
func NewOAuthState() (state string, codeVerifier string, codeChallenge string, err error) {
	state, err = randomString(32)
	if err != nil {
		return "", "", "", err
	}
	codeVerifier, err = randomString(32)
	if err != nil {
		return "", "", "", err
	}
	codeChallenge = CodeChallengeFromVerifier(codeVerifier)
	return state, codeVerifier, codeChallenge, nil
}
