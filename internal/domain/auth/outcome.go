package auth

// FailureReason explains why an authentication attempt failed.
type FailureReason int

const (
	ReasonNone FailureReason = iota
	ReasonNotFound
	ReasonBadCredentials
	ReasonExpiredToken
	ReasonInvalidSignature
	ReasonMalformedToken
)

// String returns the reason in the form used for error codes, logs and metrics.
func (r FailureReason) String() string {
	switch r {
	case ReasonNone:
		return "ok"
	case ReasonNotFound:
		return "not_found"
	case ReasonBadCredentials:
		return "bad_credentials"
	case ReasonExpiredToken:
		return "expired_token"
	case ReasonInvalidSignature:
		return "invalid_signature"
	case ReasonMalformedToken:
		return "malformed_token"
	default:
		return "unknown"
	}
}

// AuthOutcome is the tagged result of an authentication attempt: either Authenticated
// or Failed with a reason. Token verification fills Claims; strategies that resolve an
// identity fill Identity. The zero value is neither: it is what accompanies an error.
type AuthOutcome struct {
	authenticated bool
	reason        FailureReason
	Claims        TokenClaims
	Identity      IdentityView
}

// Authenticated builds a successful outcome for a resolved identity.
func Authenticated(identity IdentityView) AuthOutcome {
	return AuthOutcome{authenticated: true, Identity: identity}
}

// Verified builds a successful outcome for a token whose claims checked out.
func Verified(claims TokenClaims) AuthOutcome {
	return AuthOutcome{authenticated: true, Claims: claims}
}

// Failed builds a failed outcome. ReasonNone is not a failure and is coerced to
// ReasonMalformedToken so a Failed outcome can never read as success.
func Failed(reason FailureReason) AuthOutcome {
	if reason == ReasonNone {
		reason = ReasonMalformedToken
	}
	return AuthOutcome{reason: reason}
}

// OK reports whether the attempt succeeded.
func (o AuthOutcome) OK() bool { return o.authenticated }

// IsFailure reports whether this is a Failed outcome, as opposed to a success or the
// zero value returned next to an error.
func (o AuthOutcome) IsFailure() bool { return !o.authenticated && o.reason != ReasonNone }

// Reason returns the failure reason, or ReasonNone otherwise.
func (o AuthOutcome) Reason() FailureReason { return o.reason }

// Subject is the identity id proven by a verified token.
func (o AuthOutcome) Subject() string { return o.Claims.Subject }

func (o AuthOutcome) withIdentity(identity Identity) AuthOutcome {
	o.Identity = identity.View()
	return o
}
