package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	maxUsernameAttempts = 5
	derivedUsernameMax  = 24
)

// OAuthDelegateAuthenticator signs in a profile that an external identity provider has
// already verified. Unknown emails get an identity created on the spot; such identities
// carry an unusable password hash because this path never handles passwords.
type OAuthDelegateAuthenticator struct {
	store  CredentialStore
	hasher PasswordHasher
}

// NewOAuthDelegateAuthenticator builds the OAuth strategy.
func NewOAuthDelegateAuthenticator(store CredentialStore, hasher PasswordHasher) *OAuthDelegateAuthenticator {
	return &OAuthDelegateAuthenticator{store: store, hasher: hasher}
}

func (a *OAuthDelegateAuthenticator) Name() string { return StrategyOAuth }

func (a *OAuthDelegateAuthenticator) Authenticate(ctx context.Context, cred Credential) (AuthOutcome, error) {
	oc, ok := cred.(OAuthCredential)
	if !ok {
		return AuthOutcome{}, ErrUnsupportedCredential
	}
	profile := oc.Profile
	email, err := normalizeEmail(profile.Email)
	if err != nil || !profile.EmailVerified {
		return Failed(ReasonBadCredentials), nil
	}

	identity, found, err := a.store.FindByEmail(ctx, email)
	if err != nil {
		return AuthOutcome{}, fmt.Errorf("find identity by email: %w", err)
	}
	if found {
		return Authenticated(identity.View()), nil
	}

	placeholder, err := a.placeholderHash(ctx)
	if err != nil {
		return AuthOutcome{}, err
	}
	base := usernameFromProfile(profile)
	username := base
	for attempt := 1; ; attempt++ {
		created, err := a.store.Create(ctx, NewIdentity{
			Username:      username,
			Email:         email,
			PasswordHash:  placeholder,
			VerifiedEmail: true,
		})
		switch {
		case err == nil:
			return Authenticated(created.View()), nil
		case errors.Is(err, ErrEmailExists):
			// A concurrent sign-in created the identity first.
			winner, found, findErr := a.store.FindByEmail(ctx, email)
			if findErr != nil {
				return AuthOutcome{}, fmt.Errorf("find identity by email: %w", findErr)
			}
			if !found {
				return AuthOutcome{}, fmt.Errorf("create identity: %w", err)
			}
			return Authenticated(winner.View()), nil
		case errors.Is(err, ErrUsernameExists) && attempt < maxUsernameAttempts:
			suffix, suffixErr := randomHex(2)
			if suffixErr != nil {
				return AuthOutcome{}, suffixErr
			}
			username = base + "-" + suffix
		default:
			return AuthOutcome{}, fmt.Errorf("create identity: %w", err)
		}
	}
}

func (a *OAuthDelegateAuthenticator) placeholderHash(ctx context.Context) (string, error) {
	secret, err := randomString(32)
	if err != nil {
		return "", fmt.Errorf("generate placeholder secret: %w", err)
	}
	hash, err := a.hasher.Hash(ctx, secret)
	if err != nil {
		return "", fmt.Errorf("hash placeholder secret: %w", err)
	}
	return hash, nil
}

func usernameFromProfile(profile OAuthProfile) string {
	candidates := []string{profile.GivenName, profile.Name, strings.Split(profile.Email, "@")[0]}
	for _, candidate := range candidates {
		var b strings.Builder
		for _, r := range strings.ToLower(strings.TrimSpace(candidate)) {
			if b.Len() >= derivedUsernameMax {
				break
			}
			switch {
			case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
				b.WriteRune(r)
			case r == '.' || r == '_' || r == '-':
				b.WriteRune(r)
			case unicode.IsSpace(r):
				b.WriteRune('.')
			}
		}
		name := strings.Trim(b.String(), ".-_")
		if len(name) >= minUsernameLen {
			return name
		}
	}
	return "user"
}

func randomString(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func randomHex(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
