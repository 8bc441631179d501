package auth

import "context"

// CredentialStore abstracts identity persistence. Lookups report absence with a false
// flag; errors are reserved for store failures, including context cancellation.
// Create and Update must enforce unique email and unique username and report
// violations with errors matching ErrConflict.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (Identity, bool, error)
	FindByUsername(ctx context.Context, username string) (Identity, bool, error)
	FindByID(ctx context.Context, id string) (Identity, bool, error)
	Create(ctx context.Context, fields NewIdentity) (Identity, error)
	Update(ctx context.Context, id string, fields IdentityUpdate) (Identity, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}
