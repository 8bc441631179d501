package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yanqian/malina-auth/pkg/util"
)

// TokenVerifier proves a token was minted by this service and is still valid.
// It never looks identities up.
type TokenVerifier struct {
	cfg  Config
	keys *KeyManager
	now  util.Clock
}

// NewTokenVerifier builds a verifier. A nil clock means util.NowUTC.
func NewTokenVerifier(cfg Config, keys *KeyManager, clock util.Clock) *TokenVerifier {
	return &TokenVerifier{cfg: cfg, keys: keys, now: clock.OrDefault()}
}

// VerifyAccess checks an ES256 access token. The error is non-nil only when the
// signing keys are not initialized.
func (v *TokenVerifier) VerifyAccess(token string) (AuthOutcome, error) {
	pub, err := v.keys.PublicKey()
	if err != nil {
		return AuthOutcome{}, err
	}
	return v.verify(token, jwt.SigningMethodES256, pub), nil
}

// VerifyRefresh checks an HS256 refresh token.
func (v *TokenVerifier) VerifyRefresh(token string) (AuthOutcome, error) {
	return v.verify(token, jwt.SigningMethodHS256, []byte(v.cfg.RefreshSigningSecret)), nil
}

func (v *TokenVerifier) verify(raw string, method jwt.SigningMethod, key any) AuthOutcome {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Failed(ReasonMalformedToken)
	}
	claims := &jwtClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != method.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return key, nil
	},
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(v.cfg.TokenIssuer),
		jwt.WithAudience(v.cfg.TokenAudience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) && corruptSignatureSegment(raw) {
			return Failed(ReasonInvalidSignature)
		}
		return Failed(classifyTokenError(err))
	}
	if claims.Subject == "" || claims.IssuedAt == nil {
		return Failed(ReasonMalformedToken)
	}
	return Verified(TokenClaims{
		Subject:   claims.Subject,
		Username:  claims.Username,
		Email:     claims.Email,
		Issuer:    claims.Issuer,
		Audience:  v.cfg.TokenAudience,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	})
}

// classifyTokenError orders failures: signature, then expiry, then everything else.
// The parser checks the signature before it looks at any claim.
func classifyTokenError(err error) FailureReason {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ReasonMalformedToken
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ReasonInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpiredToken
	default:
		return ReasonMalformedToken
	}
}

// corruptSignatureSegment reports a token whose header and claims decode to JSON but
// whose signature segment is not canonical base64url. Strict decoding rejects stray
// bits in the last character, which lenient decoding would silently drop.
func corruptSignatureSegment(raw string) bool {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return false
	}
	for _, segment := range parts[:2] {
		data, err := base64.RawURLEncoding.Strict().DecodeString(segment)
		if err != nil || !json.Valid(data) {
			return false
		}
	}
	_, err := base64.RawURLEncoding.Strict().DecodeString(parts[2])
	return err != nil
}
