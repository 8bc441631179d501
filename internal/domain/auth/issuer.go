package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yanqian/malina-auth/pkg/util"
)

type jwtClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TokenIssuer mints ES256 access tokens and HS256 refresh tokens.
type TokenIssuer struct {
	cfg  Config
	keys *KeyManager
	now  util.Clock
}

// NewTokenIssuer builds an issuer. A nil clock means util.NowUTC.
func NewTokenIssuer(cfg Config, keys *KeyManager, clock util.Clock) *TokenIssuer {
	return &TokenIssuer{cfg: cfg, keys: keys, now: clock.OrDefault()}
}

// IssueAccessToken signs a short-lived token with the process private key.
func (i *TokenIssuer) IssueAccessToken(identity IdentityView) (Token, error) {
	key, err := i.keys.PrivateKey()
	if err != nil {
		return Token{}, err
	}
	return i.sign(identity, i.cfg.AccessTokenTTL, jwt.SigningMethodES256, key)
}

// IssueRefreshToken signs a long-lived token with the shared refresh secret.
func (i *TokenIssuer) IssueRefreshToken(identity IdentityView) (Token, error) {
	return i.sign(identity, i.cfg.RefreshTokenTTL, jwt.SigningMethodHS256, []byte(i.cfg.RefreshSigningSecret))
}

// IssuePair mints both tokens against the same clock reading.
func (i *TokenIssuer) IssuePair(identity IdentityView) (TokenPair, error) {
	now := i.now()
	pinned := &TokenIssuer{cfg: i.cfg, keys: i.keys, now: func() time.Time { return now }}
	access, err := pinned.IssueAccessToken(identity)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := pinned.IssueRefreshToken(identity)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func (i *TokenIssuer) sign(identity IdentityView, ttl time.Duration, method jwt.SigningMethod, key any) (Token, error) {
	now := i.now()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			Issuer:    i.cfg.TokenIssuer,
			Audience:  jwt.ClaimStrings{i.cfg.TokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username: identity.Username,
		Email:    identity.Email,
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		return Token{}, fmt.Errorf("sign %s token: %w", method.Alg(), err)
	}
	return Token{Value: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}
