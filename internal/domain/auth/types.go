package auth

import (
	"errors"
	"strings"
	"time"
)

// Config drives authentication behavior.
type Config struct {
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	RefreshSigningSecret string
	TokenIssuer          string
	TokenAudience        string
	Google               GoogleConfig
}

// Validate rejects configurations that would mint unusable or unsafe tokens.
func (c Config) Validate() error {
	// Token timestamps have one second resolution.
	if c.AccessTokenTTL < time.Second {
		return errors.New("access token ttl must be at least 1s")
	}
	if c.RefreshTokenTTL < time.Second {
		return errors.New("refresh token ttl must be at least 1s")
	}
	if c.AccessTokenTTL >= c.RefreshTokenTTL {
		return errors.New("access token ttl must be shorter than refresh token ttl")
	}
	if strings.TrimSpace(c.RefreshSigningSecret) == "" {
		return errors.New("refresh signing secret is required")
	}
	if strings.TrimSpace(c.TokenIssuer) == "" {
		return errors.New("token issuer is required")
	}
	if strings.TrimSpace(c.TokenAudience) == "" {
		return errors.New("token audience is required")
	}
	return nil
}

// GoogleConfig holds OAuth settings for Google sign-in.
type GoogleConfig struct {
	ClientID             string
	ClientSecret         string
	RedirectURL          string
	PostLoginRedirectURL string
}

// Enabled reports whether enough is configured to run the Google flow.
func (g GoogleConfig) Enabled() bool {
	return strings.TrimSpace(g.ClientID) != "" &&
		strings.TrimSpace(g.ClientSecret) != "" &&
		strings.TrimSpace(g.RedirectURL) != ""
}

// Identity is the authenticated subject as persisted by the CredentialStore.
type Identity struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	VerifiedEmail bool      `json:"verifiedEmail"`
	VerifiedPhone bool      `json:"verifiedPhone"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// View strips the password hash.
func (i Identity) View() IdentityView {
	return IdentityView{
		ID:            i.ID,
		Username:      i.Username,
		Email:         i.Email,
		VerifiedEmail: i.VerifiedEmail,
		VerifiedPhone: i.VerifiedPhone,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}
}

// IdentityView is the outward shape of an Identity.
type IdentityView struct {
	ID            string
	Username      string
	Email         string
	VerifiedEmail bool
	VerifiedPhone bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewIdentity carries the fields needed to create an Identity.
type NewIdentity struct {
	Username      string
	Email         string
	PasswordHash  string
	VerifiedEmail bool
	VerifiedPhone bool
}

// IdentityUpdate is a partial update; nil fields are left untouched.
type IdentityUpdate struct {
	Username      *string
	Email         *string
	PasswordHash  *string
	VerifiedEmail *bool
	VerifiedPhone *bool
}

// TokenClaims are the fields carried inside access and refresh tokens.
type TokenClaims struct {
	Subject   string
	Username  string
	Email     string
	Issuer    string
	Audience  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Token is a signed token string and its absolute expiry.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// TokenPair is what a successful login hands to the session transport.
type TokenPair struct {
	Access  Token
	Refresh Token
}

// RegisterRequest captures the registration payload.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest captures login details.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest captures a password change for the signed-in identity.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// RefreshRequest encapsulates refresh token payload.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LoginResponse is the result of every flow that ends with a fresh token pair.
type LoginResponse struct {
	Tokens TokenPair
	User   IdentityView
}

// OAuthProfile is a third-party profile already verified by its identity provider.
type OAuthProfile struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	GivenName     string
}
