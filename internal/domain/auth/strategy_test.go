package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/malina-auth/pkg/util"
)

func TestPasswordAuthenticator(t *testing.T) {
	ctx := context.Background()
	hasher := newTestHasher()
	store := newFakeStore()
	stored := store.put(t, hasher, "malina@example.com", "malina", "correct-password")
	strategy := NewPasswordAuthenticator(store, hasher)

	t.Run("matching password", func(t *testing.T) {
		outcome, err := strategy.Authenticate(ctx, PasswordCredential{Email: "malina@example.com", Password: "correct-password"})
		require.NoError(t, err)
		require.True(t, outcome.OK())
		assert.Equal(t, stored.ID, outcome.Identity.ID)
	})

	t.Run("unknown email", func(t *testing.T) {
		outcome, err := strategy.Authenticate(ctx, PasswordCredential{Email: "nobody@example.com", Password: "correct-password"})
		require.NoError(t, err)
		assert.Equal(t, ReasonNotFound, outcome.Reason())
	})

	t.Run("wrong password", func(t *testing.T) {
		outcome, err := strategy.Authenticate(ctx, PasswordCredential{Email: "malina@example.com", Password: "wrong-password"})
		require.NoError(t, err)
		assert.Equal(t, ReasonBadCredentials, outcome.Reason())
	})

	t.Run("unusable input", func(t *testing.T) {
		outcome, err := strategy.Authenticate(ctx, PasswordCredential{Email: "not an email", Password: "x"})
		require.NoError(t, err)
		assert.Equal(t, ReasonBadCredentials, outcome.Reason())
	})

	t.Run("corrupt stored hash is an error", func(t *testing.T) {
		broken := newFakeStore()
		_, err := broken.Create(ctx, NewIdentity{Username: "broken", Email: "broken@example.com", PasswordHash: "garbage"})
		require.NoError(t, err)
		_, err = NewPasswordAuthenticator(broken, hasher).
			Authenticate(ctx, PasswordCredential{Email: "broken@example.com", Password: "whatever"})
		require.ErrorIs(t, err, ErrMalformedHash)
	})

	t.Run("store failure is an error", func(t *testing.T) {
		failing := newFakeStore()
		failing.failWith = errors.New("connection refused")
		outcome, err := NewPasswordAuthenticator(failing, hasher).
			Authenticate(ctx, PasswordCredential{Email: "malina@example.com", Password: "correct-password"})
		require.Error(t, err)
		assert.False(t, outcome.OK())
		assert.False(t, outcome.IsFailure())
	})

	t.Run("foreign credential", func(t *testing.T) {
		_, err := strategy.Authenticate(ctx, BearerCredential{Token: "x"})
		require.ErrorIs(t, err, ErrUnsupportedCredential)
	})
}

func TestBearerAuthenticator(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	stored := store.put(t, newTestHasher(), "malina@example.com", "malina", "correct-password")
	clock := newFakeClock()
	issuer, verifier := newTokenPair(t, testConfig(), newInitializedKeys(t), clock)
	pair, err := issuer.IssuePair(stored.View())
	require.NoError(t, err)

	access := NewBearerAccessAuthenticator(verifier, store)
	refresh := NewBearerRefreshAuthenticator(verifier, store)
	assert.Equal(t, StrategyBearerAccess, access.Name())
	assert.Equal(t, StrategyBearerRefresh, refresh.Name())

	outcome, err := access.Authenticate(ctx, BearerCredential{Token: pair.Access.Value})
	require.NoError(t, err)
	require.True(t, outcome.OK())
	assert.Equal(t, stored.ID, outcome.Identity.ID)
	assert.Equal(t, stored.ID, outcome.Claims.Subject)

	outcome, err = refresh.Authenticate(ctx, BearerCredential{Token: pair.Access.Value})
	require.NoError(t, err)
	assert.Equal(t, ReasonInvalidSignature, outcome.Reason())

	_, err = store.Delete(ctx, stored.ID)
	require.NoError(t, err)
	outcome, err = refresh.Authenticate(ctx, BearerCredential{Token: pair.Refresh.Value})
	require.NoError(t, err)
	assert.Equal(t, ReasonNotFound, outcome.Reason())

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = access.Authenticate(cctx, BearerCredential{Token: pair.Access.Value})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBearerAuthenticator_UninitializedKeys(t *testing.T) {
	store := newFakeStore()
	verifier := NewTokenVerifier(testConfig(), NewKeyManager(), util.NowUTC)
	_, err := NewBearerAccessAuthenticator(verifier, store).
		Authenticate(context.Background(), BearerCredential{Token: "a.b.c"})
	require.ErrorIs(t, err, ErrUninitializedKey)
}

func TestOAuthDelegateAuthenticator(t *testing.T) {
	ctx := context.Background()
	hasher := newTestHasher()

	t.Run("creates a verified identity on first sign-in", func(t *testing.T) {
		store := newFakeStore()
		strategy := NewOAuthDelegateAuthenticator(store, hasher)
		profile := OAuthProfile{Provider: "google", Subject: "g-1", Email: "New.User@Example.com", EmailVerified: true, GivenName: "Malina Berry"}

		outcome, err := strategy.Authenticate(ctx, OAuthCredential{Profile: profile})
		require.NoError(t, err)
		require.True(t, outcome.OK())
		assert.Equal(t, "new.user@example.com", outcome.Identity.Email)
		assert.Equal(t, "malina.berry", outcome.Identity.Username)
		assert.True(t, outcome.Identity.VerifiedEmail)

		again, err := strategy.Authenticate(ctx, OAuthCredential{Profile: profile})
		require.NoError(t, err)
		assert.Equal(t, outcome.Identity.ID, again.Identity.ID)
	})

	t.Run("placeholder password never matches", func(t *testing.T) {
		store := newFakeStore()
		_, err := NewOAuthDelegateAuthenticator(store, hasher).Authenticate(ctx, OAuthCredential{Profile: OAuthProfile{
			Email: "oauth@example.com", EmailVerified: true, Name: "Oauth",
		}})
		require.NoError(t, err)
		identity, found, err := store.FindByEmail(ctx, "oauth@example.com")
		require.NoError(t, err)
		require.True(t, found)
		ok, err := hasher.Verify(ctx, "", identity.PasswordHash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("username collision gets a suffix", func(t *testing.T) {
		store := newFakeStore()
		store.put(t, hasher, "first@example.com", "malina", "password-one")
		outcome, err := NewOAuthDelegateAuthenticator(store, hasher).Authenticate(ctx, OAuthCredential{Profile: OAuthProfile{
			Email: "second@example.com", EmailVerified: true, GivenName: "Malina",
		}})
		require.NoError(t, err)
		require.True(t, outcome.OK())
		assert.True(t, strings.HasPrefix(outcome.Identity.Username, "malina-"), outcome.Identity.Username)
	})

	t.Run("unverified email is rejected", func(t *testing.T) {
		outcome, err := NewOAuthDelegateAuthenticator(newFakeStore(), hasher).Authenticate(ctx, OAuthCredential{Profile: OAuthProfile{
			Email: "someone@example.com", EmailVerified: false,
		}})
		require.NoError(t, err)
		assert.Equal(t, ReasonBadCredentials, outcome.Reason())
	})
}

func TestUsernameFromProfile(t *testing.T) {
	cases := []struct {
		name    string
		profile OAuthProfile
		want    string
	}{
		{"given name", OAuthProfile{GivenName: "Anna Maria", Email: "x@example.com"}, "anna.maria"},
		{"falls back to name", OAuthProfile{Name: "Bob_Builder", Email: "x@example.com"}, "bob_builder"},
		{"falls back to email", OAuthProfile{GivenName: "Ж", Email: "carol.d@example.com"}, "carol.d"},
		{"too short everywhere", OAuthProfile{GivenName: "A", Email: "b@example.com"}, "user"},
		{"truncated", OAuthProfile{GivenName: strings.Repeat("a", 40)}, strings.Repeat("a", 24)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, usernameFromProfile(tc.profile))
		})
	}
}
