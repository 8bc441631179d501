package auth

import "errors"

var (
	// ErrConflict matches any uniqueness violation reported by a CredentialStore.
	ErrConflict = errors.New("identity already exists")
	// ErrEmailExists indicates a duplicate email address.
	ErrEmailExists = conflictError("email already exists")
	// ErrUsernameExists indicates a duplicate username.
	ErrUsernameExists = conflictError("username already exists")

	// ErrUninitializedKey means tokens were issued or verified before KeyManager.Initialize.
	ErrUninitializedKey = errors.New("signing keys are not initialized")
	// ErrMalformedHash means a stored password record cannot be split into salt and key.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrEmptyPassword is returned when hashing an empty password.
	ErrEmptyPassword = errors.New("password cannot be empty")
	// ErrUnsupportedCredential is returned when a strategy receives another strategy's credential.
	ErrUnsupportedCredential = errors.New("credential not supported by this authenticator")
)

// Error codes carried by pkg/errors.AppError values returned from Service.
const (
	CodeInvalidInput      = "invalid_input"
	CodeConflict          = "conflict"
	CodeTooManyAttempts   = "too_many_attempts"
	CodeAuthError         = "auth_error"
	CodeStoreTimeout      = "store_timeout"
	CodeNotConfigured     = "auth_not_configured"
	CodeOAuthExchange     = "oauth_exchange_failed"
	CodeKeysUninitialized = "keys_uninitialized"
)

type conflict struct{ msg string }

func conflictError(msg string) error { return &conflict{msg: msg} }

func (c *conflict) Error() string { return c.msg }

func (c *conflict) Is(target error) bool { return target == ErrConflict }
