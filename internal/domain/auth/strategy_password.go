package auth

import (
	"context"
	"fmt"
)

// PasswordAuthenticator checks an email and password against the CredentialStore.
type PasswordAuthenticator struct {
	store  CredentialStore
	hasher PasswordHasher
}

// NewPasswordAuthenticator builds the password strategy.
func NewPasswordAuthenticator(store CredentialStore, hasher PasswordHasher) *PasswordAuthenticator {
	return &PasswordAuthenticator{store: store, hasher: hasher}
}

func (a *PasswordAuthenticator) Name() string { return StrategyPassword }

func (a *PasswordAuthenticator) Authenticate(ctx context.Context, cred Credential) (AuthOutcome, error) {
	pc, ok := cred.(PasswordCredential)
	if !ok {
		return AuthOutcome{}, ErrUnsupportedCredential
	}
	email, err := normalizeEmail(pc.Email)
	if err != nil || pc.Password == "" {
		return Failed(ReasonBadCredentials), nil
	}
	identity, found, err := a.store.FindByEmail(ctx, email)
	if err != nil {
		return AuthOutcome{}, fmt.Errorf("find identity by email: %w", err)
	}
	if !found {
		return Failed(ReasonNotFound), nil
	}
	match, err := a.hasher.Verify(ctx, pc.Password, identity.PasswordHash)
	if err != nil {
		return AuthOutcome{}, fmt.Errorf("verify password for %s: %w", identity.ID, err)
	}
	if !match {
		return Failed(ReasonBadCredentials), nil
	}
	return Authenticated(identity.View()), nil
}
