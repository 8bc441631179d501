package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/malina-auth/pkg/errors"
	"github.com/yanqian/malina-auth/pkg/util"
)

type serviceFixture struct {
	svc      Service
	store    *fakeStore
	clock    *fakeClock
	recorder *recordingRecorder
	throttle *countingThrottle
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	cfg := testConfig()
	store := newFakeStore()
	clock := newFakeClock()
	keys := newInitializedKeys(t)
	recorder := &recordingRecorder{}
	throttle := newCountingThrottle(3)
	svc := NewService(
		cfg,
		store,
		newTestHasher(),
		NewTokenIssuer(cfg, keys, util.Clock(clock.Now)),
		NewTokenVerifier(cfg, keys, util.Clock(clock.Now)),
		throttle,
		recorder,
		newTestLogger(),
	)
	return serviceFixture{svc: svc, store: store, clock: clock, recorder: recorder, throttle: throttle}
}

func TestService_RegisterLoginAndRefresh(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	registered, err := f.svc.Register(ctx, RegisterRequest{
		Email:    "User@Example.com",
		Username: "CodeStar",
		Password: "pass12345",
	})
	require.NoError(t, err)
	require.Equal(t, "user@example.com", registered.User.Email)
	require.Equal(t, "codestar", registered.User.Username)
	require.NotEmpty(t, registered.User.ID)
	require.NotEmpty(t, registered.Tokens.Access.Value)
	require.NotEmpty(t, registered.Tokens.Refresh.Value)

	resp, err := f.svc.Login(ctx, LoginRequest{Email: "user@example.com", Password: "pass12345"})
	require.NoError(t, err)
	require.Equal(t, registered.User.ID, resp.User.ID)
	require.Equal(t, f.clock.Now().Add(15*time.Minute), resp.Tokens.Access.ExpiresAt)

	view, err := f.svc.Authenticate(ctx, resp.Tokens.Access.Value)
	require.NoError(t, err)
	require.Equal(t, registered.User.ID, view.ID)

	f.clock.Advance(16 * time.Minute)
	_, err = f.svc.Authenticate(ctx, resp.Tokens.Access.Value)
	require.Equal(t, ReasonExpiredToken.String(), apperrors.CodeOf(err))

	refreshed, err := f.svc.Refresh(ctx, resp.Tokens.Refresh.Value)
	require.NoError(t, err)
	require.NotEqual(t, resp.Tokens.Refresh.Value, refreshed.Tokens.Refresh.Value)
	require.Equal(t, "codestar", refreshed.User.Username)

	view, err = f.svc.Authenticate(ctx, refreshed.Tokens.Access.Value)
	require.NoError(t, err)
	require.Equal(t, registered.User.ID, view.ID)
}

func TestService_RegisterValidationAndConflicts(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterRequest{Email: "user@example.com", Username: "nick_one", Password: "pass12345"})
	require.NoError(t, err)

	cases := []struct {
		name string
		req  RegisterRequest
		code string
	}{
		{"duplicate email", RegisterRequest{Email: "USER@example.com", Username: "nick_two", Password: "pass12345"}, CodeConflict},
		{"duplicate username", RegisterRequest{Email: "other@example.com", Username: "Nick_One", Password: "pass12345"}, CodeConflict},
		{"bad email", RegisterRequest{Email: "nope", Username: "nick_three", Password: "pass12345"}, CodeInvalidInput},
		{"short username", RegisterRequest{Email: "a@example.com", Username: "ab", Password: "pass12345"}, CodeInvalidInput},
		{"bad username chars", RegisterRequest{Email: "a@example.com", Username: "bad name!", Password: "pass12345"}, CodeInvalidInput},
		{"short password", RegisterRequest{Email: "a@example.com", Username: "nick_four", Password: "short"}, CodeInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(ctx, tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.code, apperrors.CodeOf(err))
		})
	}

	var appErr *apperrors.AppError
	_, err = f.svc.Register(ctx, RegisterRequest{Email: "user@example.com", Username: "fresh", Password: "pass12345"})
	require.True(t, errors.As(err, &appErr))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestService_LoginFailures(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, RegisterRequest{Email: "user@example.com", Username: "someone", Password: "pass12345"})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, LoginRequest{Email: "user@example.com", Password: "wrong-pass"})
	assert.Equal(t, ReasonBadCredentials.String(), apperrors.CodeOf(err))

	_, err = f.svc.Login(ctx, LoginRequest{Email: "ghost@example.com", Password: "pass12345"})
	assert.Equal(t, ReasonNotFound.String(), apperrors.CodeOf(err))

	_, err = f.svc.Login(ctx, LoginRequest{Email: "user@example.com", Password: ""})
	assert.Equal(t, CodeInvalidInput, apperrors.CodeOf(err))

	assert.Contains(t, f.recorder.outcomes, recordedOutcome{strategy: StrategyPassword, reason: "bad_credentials"})
	assert.Contains(t, f.recorder.outcomes, recordedOutcome{strategy: StrategyPassword, reason: "not_found"})
}

func TestService_LoginThrottle(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, RegisterRequest{Email: "user@example.com", Username: "someone", Password: "pass12345"})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, LoginRequest{Email: "user@example.com", Password: "wrong-pass"})
	require.Error(t, err)
	_, err = f.svc.Login(ctx, LoginRequest{Email: "user@example.com", Password: "pass12345"})
	require.NoError(t, err)
	assert.Zero(t, f.throttle.failures["user@example.com"], "success resets the counter")

	for i := 0; i < 3; i++ {
		_, err = f.svc.Login(ctx, LoginRequest{Email: "user@example.com", Password: "wrong-pass"})
		require.Equal(t, ReasonBadCredentials.String(), apperrors.CodeOf(err))
	}
	_, err = f.svc.Login(ctx, LoginRequest{Email: "user@example.com", Password: "pass12345"})
	assert.Equal(t, CodeTooManyAttempts, apperrors.CodeOf(err))
}

func TestService_DeletedIdentityInvalidatesTokens(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	resp, err := f.svc.Register(ctx, RegisterRequest{Email: "user@example.com", Username: "someone", Password: "pass12345"})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteAccount(ctx, resp.User.ID))

	_, err = f.svc.Authenticate(ctx, resp.Tokens.Access.Value)
	assert.Equal(t, ReasonNotFound.String(), apperrors.CodeOf(err))
	_, err = f.svc.Refresh(ctx, resp.Tokens.Refresh.Value)
	assert.Equal(t, ReasonNotFound.String(), apperrors.CodeOf(err))
	err = f.svc.DeleteAccount(ctx, resp.User.ID)
	assert.Equal(t, ReasonNotFound.String(), apperrors.CodeOf(err))
}

func TestService_RefreshRejectsAccessToken(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	resp, err := f.svc.Register(ctx, RegisterRequest{Email: "user@example.com", Username: "someone", Password: "pass12345"})
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, resp.Tokens.Access.Value)
	assert.Equal(t, ReasonInvalidSignature.String(), apperrors.CodeOf(err))
	_, err = f.svc.Refresh(ctx, "")
	assert.Equal(t, ReasonMalformedToken.String(), apperrors.CodeOf(err))
}

func TestService_ChangePassword(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	resp, err := f.svc.Register(ctx, RegisterRequest{Email: "user@example.com", Username: "someone", Password: "pass12345"})
	require.NoError(t, err)

	err = f.svc.ChangePassword(ctx, resp.User.ID, ChangePasswordRequest{CurrentPassword: "nope-nope", NewPassword: "brand-new-pass"})
	assert.Equal(t, ReasonBadCredentials.String(), apperrors.CodeOf(err))

	require.NoError(t, f.svc.ChangePassword(ctx, resp.User.ID, ChangePasswordRequest{CurrentPassword: "pass12345", NewPassword: "brand-new-pass"}))

	_, err = f.svc.Login(ctx, LoginRequest{Email: "user@example.com", Password: "pass12345"})
	assert.Equal(t, ReasonBadCredentials.String(), apperrors.CodeOf(err))
	_, err = f.svc.Login(ctx, LoginRequest{Email: "user@example.com", Password: "brand-new-pass"})
	require.NoError(t, err)

	profile, err := f.svc.Profile(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "someone", profile.Username)
}

func TestService_InfrastructureErrors(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	resp, err := f.svc.Register(ctx, RegisterRequest{Email: "user@example.com", Username: "someone", Password: "pass12345"})
	require.NoError(t, err)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.svc.Login(cctx, LoginRequest{Email: "user@example.com", Password: "pass12345"})
	assert.Equal(t, CodeStoreTimeout, apperrors.CodeOf(err))
	assert.ErrorIs(t, err, context.Canceled)

	f.store.failWith = errors.New("connection reset")
	_, err = f.svc.Authenticate(ctx, resp.Tokens.Access.Value)
	assert.Equal(t, CodeAuthError, apperrors.CodeOf(err))
	assert.Contains(t, f.recorder.outcomes, recordedOutcome{strategy: StrategyBearerAccess, reason: "error"})
}

func TestService_UninitializedKeys(t *testing.T) {
	cfg := testConfig()
	keys := NewKeyManager()
	svc := NewService(cfg, newFakeStore(), newTestHasher(),
		NewTokenIssuer(cfg, keys, nil), NewTokenVerifier(cfg, keys, nil), nil, nil, newTestLogger())

	_, err := svc.Register(context.Background(), RegisterRequest{Email: "user@example.com", Username: "someone", Password: "pass12345"})
	assert.Equal(t, CodeKeysUninitialized, apperrors.CodeOf(err))
	_, err = svc.Authenticate(context.Background(), "a.b.c")
	assert.Equal(t, CodeKeysUninitialized, apperrors.CodeOf(err))
}

func TestService_OAuthLogin(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	resp, err := f.svc.OAuthLogin(ctx, OAuthProfile{Provider: "google", Subject: "1", Email: "g@example.com", EmailVerified: true, GivenName: "Gina"})
	require.NoError(t, err)
	assert.Equal(t, "gina", resp.User.Username)
	assert.True(t, resp.User.VerifiedEmail)

	_, err = f.svc.OAuthLogin(ctx, OAuthProfile{Email: "h@example.com"})
	assert.Equal(t, ReasonBadCredentials.String(), apperrors.CodeOf(err))

	_, err = f.svc.GoogleAuthURL(ctx, "state", "challenge")
	assert.Equal(t, CodeNotConfigured, apperrors.CodeOf(err))
}

func TestNewOAuthState(t *testing.T) {
	state, verifier, challenge, err := NewOAuthState()
	require.NoError(t, err)
	assert.NotEmpty(t, state)
	assert.NotEqual(t, state, verifier)
	assert.Equal(t, CodeChallengeFromVerifier(verifier), challenge)
}
