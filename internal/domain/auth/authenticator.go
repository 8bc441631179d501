package auth

import "context"

// Strategy names, used in logs and metrics.
const (
	StrategyPassword      = "password"
	StrategyBearerAccess  = "bearer_access"
	StrategyBearerRefresh = "bearer_refresh"
	StrategyOAuth         = "oauth"
)

// Credential is something a caller presents to an Authenticator.
type Credential interface {
	credential()
}

// PasswordCredential is an email and plaintext password.
type PasswordCredential struct {
	Email    string
	Password string
}

// BearerCredential is a raw token taken from the session transport.
type BearerCredential struct {
	Token string
}

// OAuthCredential wraps a profile already verified by an external identity provider.
type OAuthCredential struct {
	Profile OAuthProfile
}

func (PasswordCredential) credential() {}
func (BearerCredential) credential()   {}
func (OAuthCredential) credential()    {}

// Authenticator turns a credential into an AuthOutcome. Credential problems are
// reported as Failed outcomes; the error return is for infrastructure failures
// (store errors, cancellation, uninitialized keys, corrupt stored hashes).
type Authenticator interface {
	Name() string
	Authenticate(ctx context.Context, cred Credential) (AuthOutcome, error)
}
