package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	apperrors "github.com/yanqian/malina-auth/pkg/errors"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 30
	minPasswordLen = 8
	maxPasswordLen = 256
)

// Service exposes authentication workflows to the transport layer. Failed
// authentication is returned as an AppError whose code is the FailureReason name.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (LoginResponse, error)
	Login(ctx context.Context, req LoginRequest) (LoginResponse, error)
	Authenticate(ctx context.Context, accessToken string) (IdentityView, error)
	Refresh(ctx context.Context, refreshToken string) (LoginResponse, error)
	OAuthLogin(ctx context.Context, profile OAuthProfile) (LoginResponse, error)
	GoogleAuthURL(ctx context.Context, state, codeChallenge string) (string, error)
	GoogleCallback(ctx context.Context, code, codeVerifier string) (LoginResponse, error)
	Profile(ctx context.Context, id string) (IdentityView, error)
	ChangePassword(ctx context.Context, id string, req ChangePasswordRequest) error
	DeleteAccount(ctx context.Context, id string) error
}

type service struct {
	cfg      Config
	store    CredentialStore
	hasher   PasswordHasher
	issuer   *TokenIssuer
	throttle LoginThrottle
	recorder OutcomeRecorder
	logger   *slog.Logger
	google   googleVerifierCache

	password *PasswordAuthenticator
	access   *BearerAuthenticator
	refresh  *BearerAuthenticator
	oauth    *OAuthDelegateAuthenticator
}

// NewService constructs a Service instance. throttle and recorder may be nil.
func NewService(
	cfg Config,
	store CredentialStore,
	hasher PasswordHasher,
	issuer *TokenIssuer,
	verifier *TokenVerifier,
	throttle LoginThrottle,
	recorder OutcomeRecorder,
	logger *slog.Logger,
) Service {
	if throttle == nil {
		throttle = NoopThrottle{}
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &service{
		cfg:      cfg,
		store:    store,
		hasher:   hasher,
		issuer:   issuer,
		throttle: throttle,
		recorder: recorder,
		logger:   logger.With("component", "auth.service"),
		password: NewPasswordAuthenticator(store, hasher),
		access:   NewBearerAccessAuthenticator(verifier, store),
		refresh:  NewBearerRefreshAuthenticator(verifier, store),
		oauth:    NewOAuthDelegateAuthenticator(store, hasher),
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (LoginResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return LoginResponse{}, apperrors.Wrap(CodeInvalidInput, "invalid email address", err)
	}
	username, err := normalizeUsername(req.Username)
	if err != nil {
		return LoginResponse{}, apperrors.Wrap(CodeInvalidInput, err.Error(), nil)
	}
	if err := validatePassword(req.Password); err != nil {
		return LoginResponse{}, apperrors.Wrap(CodeInvalidInput, err.Error(), nil)
	}

	_, exists, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return LoginResponse{}, s.infraError(err, "failed to check email")
	}
	if exists {
		return LoginResponse{}, apperrors.Wrap(CodeConflict, "email already registered", ErrEmailExists)
	}
	_, exists, err = s.store.FindByUsername(ctx, username)
	if err != nil {
		return LoginResponse{}, s.infraError(err, "failed to check username")
	}
	if exists {
		return LoginResponse{}, apperrors.Wrap(CodeConflict, "username already taken", ErrUsernameExists)
	}

	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return LoginResponse{}, s.infraError(err, "failed to hash password")
	}
	identity, err := s.store.Create(ctx, NewIdentity{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return LoginResponse{}, apperrors.Wrap(CodeConflict, conflictMessage(err), err)
		}
		return LoginResponse{}, s.infraError(err, "failed to create identity")
	}
	s.logger.Info("identity registered", "identity_id", identity.ID)
	return s.issue(identity.View())
}

func (s *service) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return LoginResponse{}, apperrors.Wrap(CodeInvalidInput, "invalid email address", err)
	}
	if strings.TrimSpace(req.Password) == "" {
		return LoginResponse{}, apperrors.Wrap(CodeInvalidInput, "password cannot be empty", nil)
	}

	wait, err := s.throttle.Check(ctx, email)
	if err != nil {
		s.logger.Warn("login throttle unavailable", "error", err)
	}
	if wait > 0 {
		s.recorder.RecordOutcome(StrategyPassword, CodeTooManyAttempts)
		return LoginResponse{}, apperrors.Wrap(CodeTooManyAttempts,
			fmt.Sprintf("too many failed attempts, retry in %s", wait.Round(time.Second)), nil)
	}

	outcome, err := s.run(ctx, s.password, PasswordCredential{Email: email, Password: req.Password})
	if err != nil {
		if outcome.IsFailure() {
			if terr := s.throttle.RecordFailure(ctx, email); terr != nil {
				s.logger.Warn("failed to record login failure", "error", terr)
			}
		}
		return LoginResponse{}, err
	}
	if terr := s.throttle.Reset(ctx, email); terr != nil {
		s.logger.Warn("failed to reset login throttle", "error", terr)
	}
	return s.issue(outcome.Identity)
}

func (s *service) Authenticate(ctx context.Context, accessToken string) (IdentityView, error) {
	outcome, err := s.run(ctx, s.access, BearerCredential{Token: accessToken})
	if err != nil {
		return IdentityView{}, err
	}
	return outcome.Identity, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (LoginResponse, error) {
	outcome, err := s.run(ctx, s.refresh, BearerCredential{Token: refreshToken})
	if err != nil {
		return LoginResponse{}, err
	}
	return s.issue(outcome.Identity)
}

func (s *service) OAuthLogin(ctx context.Context, profile OAuthProfile) (LoginResponse, error) {
	outcome, err := s.run(ctx, s.oauth, OAuthCredential{Profile: profile})
	if err != nil {
		return LoginResponse{}, err
	}
	return s.issue(outcome.Identity)
}

func (s *service) Profile(ctx context.Context, id string) (IdentityView, error) {
	identity, found, err := s.store.FindByID(ctx, id)
	if err != nil {
		return IdentityView{}, s.infraError(err, "failed to load profile")
	}
	if !found {
		return IdentityView{}, apperrors.Wrap(ReasonNotFound.String(), "identity not found", nil)
	}
	return identity.View(), nil
}

func (s *service) ChangePassword(ctx context.Context, id string, req ChangePasswordRequest) error {
	if err := validatePassword(req.NewPassword); err != nil {
		return apperrors.Wrap(CodeInvalidInput, err.Error(), nil)
	}
	identity, found, err := s.store.FindByID(ctx, id)
	if err != nil {
		return s.infraError(err, "failed to load identity")
	}
	if !found {
		return apperrors.Wrap(ReasonNotFound.String(), "identity not found", nil)
	}
	match, err := s.hasher.Verify(ctx, req.CurrentPassword, identity.PasswordHash)
	if err != nil {
		return s.infraError(err, "failed to verify password")
	}
	if !match {
		return apperrors.Wrap(ReasonBadCredentials.String(), failureMessage(ReasonBadCredentials), nil)
	}
	hash, err := s.hasher.Hash(ctx, req.NewPassword)
	if err != nil {
		return s.infraError(err, "failed to hash password")
	}
	if _, found, err = s.store.Update(ctx, id, IdentityUpdate{PasswordHash: &hash}); err != nil {
		return s.infraError(err, "failed to update password")
	}
	if !found {
		return apperrors.Wrap(ReasonNotFound.String(), "identity not found", nil)
	}
	s.logger.Info("password changed", "identity_id", id)
	return nil
}

func (s *service) DeleteAccount(ctx context.Context, id string) error {
	found, err := s.store.Delete(ctx, id)
	if err != nil {
		return s.infraError(err, "failed to delete identity")
	}
	if !found {
		return apperrors.Wrap(ReasonNotFound.String(), "identity not found", nil)
	}
	s.logger.Info("identity deleted", "identity_id", id)
	return nil
}

// run executes one strategy and turns its result into the Service error contract.
// On a Failed outcome the outcome is returned alongside the error.
func (s *service) run(ctx context.Context, a Authenticator, cred Credential) (AuthOutcome, error) {
	outcome, err := a.Authenticate(ctx, cred)
	if err != nil {
		s.recorder.RecordOutcome(a.Name(), "error")
		return AuthOutcome{}, s.infraError(err, "authentication failed")
	}
	s.recorder.RecordOutcome(a.Name(), outcome.Reason().String())
	if !outcome.OK() {
		reason := outcome.Reason()
		s.logger.Info("authentication failed", "strategy", a.Name(), "reason", reason.String())
		return outcome, apperrors.Wrap(reason.String(), failureMessage(reason), nil)
	}
	return outcome, nil
}

func (s *service) issue(view IdentityView) (LoginResponse, error) {
	pair, err := s.issuer.IssuePair(view)
	if err != nil {
		return LoginResponse{}, s.infraError(err, "failed to issue tokens")
	}
	return LoginResponse{Tokens: pair, User: view}, nil
}

func (s *service) infraError(err error, message string) error {
	switch {
	case errors.Is(err, ErrUninitializedKey):
		s.logger.Error("signing keys used before initialization", "error", err)
		return apperrors.Wrap(CodeKeysUninitialized, message, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperrors.Wrap(CodeStoreTimeout, message, err)
	default:
		s.logger.Error(message, "error", err)
		return apperrors.Wrap(CodeAuthError, message, err)
	}
}

func failureMessage(reason FailureReason) string {
	switch reason {
	case ReasonNotFound:
		return "identity not found"
	case ReasonBadCredentials:
		return "invalid credentials"
	case ReasonExpiredToken:
		return "token expired"
	case ReasonInvalidSignature:
		return "token signature invalid"
	default:
		return "token malformed"
	}
}

func conflictMessage(err error) string {
	if errors.Is(err, ErrUsernameExists) {
		return "username already taken"
	}
	return "email already registered"
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(strings.ToLower(raw))
	if email == "" {
		return "", errors.New("email cannot be empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return "", err
	}
	if addr.Address != email {
		return "", errors.New("email must be a bare address")
	}
	return email, nil
}

func normalizeUsername(raw string) (string, error) {
	username := strings.ToLower(strings.TrimSpace(raw))
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return "", fmt.Errorf("username must be %d to %d characters", minUsernameLen, maxUsernameLen)
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
		default:
			return "", errors.New("username may contain only letters, digits, '.', '_' and '-'")
		}
	}
	return username, nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return fmt.Errorf("password cannot exceed %d characters", maxPasswordLen)
	}
	return nil
}
