package auth

import (
	"context"
	"fmt"
)

// BearerAuthenticator verifies a token and resolves its subject to a live identity,
// so deleting an account invalidates its unexpired tokens.
type BearerAuthenticator struct {
	name   string
	verify func(string) (AuthOutcome, error)
	store  CredentialStore
}

// NewBearerAccessAuthenticator authenticates ES256 access tokens.
func NewBearerAccessAuthenticator(verifier *TokenVerifier, store CredentialStore) *BearerAuthenticator {
	return &BearerAuthenticator{name: StrategyBearerAccess, verify: verifier.VerifyAccess, store: store}
}

// NewBearerRefreshAuthenticator authenticates HS256 refresh tokens.
func NewBearerRefreshAuthenticator(verifier *TokenVerifier, store CredentialStore) *BearerAuthenticator {
	return &BearerAuthenticator{name: StrategyBearerRefresh, verify: verifier.VerifyRefresh, store: store}
}

func (a *BearerAuthenticator) Name() string { return a.name }

func (a *BearerAuthenticator) Authenticate(ctx context.Context, cred Credential) (AuthOutcome, error) {
	bc, ok := cred.(BearerCredential)
	if !ok {
		return AuthOutcome{}, ErrUnsupportedCredential
	}
	outcome, err := a.verify(bc.Token)
	if err != nil {
		return AuthOutcome{}, err
	}
	if !outcome.OK() {
		return outcome, nil
	}
	identity, found, err := a.store.FindByID(ctx, outcome.Subject())
	if err != nil {
		return AuthOutcome{}, fmt.Errorf("find identity by id: %w", err)
	}
	if !found {
		return Failed(ReasonNotFound), nil
	}
	return outcome.withIdentity(identity), nil
}
