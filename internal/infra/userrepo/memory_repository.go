package userrepo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/malina-auth/internal/domain/auth"
)

// MemoryRepository provides an in-memory identity store for tests/dev.
type MemoryRepository struct {
	mu            sync.RWMutex
	identities    map[string]auth.Identity
	emailIndex    map[string]string
	usernameIndex map[string]string
}

// NewMemoryRepository constructs a new in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		identities:    make(map[string]auth.Identity),
		emailIndex:    make(map[string]string),
		usernameIndex: make(map[string]string),
	}
}

// Create stores the identity record.
func (r *MemoryRepository) Create(ctx context.Context, fields auth.NewIdentity) (auth.Identity, error) {
	if err := ctx.Err(); err != nil {
		return auth.Identity{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.emailIndex[fields.Email]; exists {
		return auth.Identity{}, auth.ErrEmailExists
	}
	if _, exists := r.usernameIndex[fields.Username]; exists {
		return auth.Identity{}, auth.ErrUsernameExists
	}
	now := time.Now().UTC()
	identity := auth.Identity{
		ID:            uuid.NewString(),
		Username:      fields.Username,
		Email:         fields.Email,
		PasswordHash:  fields.PasswordHash,
		VerifiedEmail: fields.VerifiedEmail,
		VerifiedPhone: fields.VerifiedPhone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.identities[identity.ID] = identity
	r.emailIndex[identity.Email] = identity.ID
	r.usernameIndex[identity.Username] = identity.ID
	return identity, nil
}

// FindByEmail returns an identity by email.
func (r *MemoryRepository) FindByEmail(ctx context.Context, email string) (auth.Identity, bool, error) {
	return r.lookup(ctx, r.emailIndex, email)
}

// FindByUsername returns an identity by username.
func (r *MemoryRepository) FindByUsername(ctx context.Context, username string) (auth.Identity, bool, error) {
	return r.lookup(ctx, r.usernameIndex, username)
}

// FindByID fetches by ID.
func (r *MemoryRepository) FindByID(ctx context.Context, id string) (auth.Identity, bool, error) {
	if err := ctx.Err(); err != nil {
		return auth.Identity{}, false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	identity, ok := r.identities[id]
	return identity, ok, nil
}

func (r *MemoryRepository) lookup(ctx context.Context, index map[string]string, key string) (auth.Identity, bool, error) {
	if err := ctx.Err(); err != nil {
		return auth.Identity{}, false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := index[key]
	if !ok {
		return auth.Identity{}, false, nil
	}
	return r.identities[id], true, nil
}

// Update applies the non-nil fields of the update.
func (r *MemoryRepository) Update(ctx context.Context, id string, fields auth.IdentityUpdate) (auth.Identity, bool, error) {
	if err := ctx.Err(); err != nil {
		return auth.Identity{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	identity, ok := r.identities[id]
	if !ok {
		return auth.Identity{}, false, nil
	}
	if fields.Email != nil && *fields.Email != identity.Email {
		if _, exists := r.emailIndex[*fields.Email]; exists {
			return auth.Identity{}, false, auth.ErrEmailExists
		}
	}
	if fields.Username != nil && *fields.Username != identity.Username {
		if _, exists := r.usernameIndex[*fields.Username]; exists {
			return auth.Identity{}, false, auth.ErrUsernameExists
		}
	}
	if fields.Email != nil {
		delete(r.emailIndex, identity.Email)
		identity.Email = *fields.Email
		r.emailIndex[identity.Email] = id
	}
	if fields.Username != nil {
		delete(r.usernameIndex, identity.Username)
		identity.Username = *fields.Username
		r.usernameIndex[identity.Username] = id
	}
	if fields.PasswordHash != nil {
		identity.PasswordHash = *fields.PasswordHash
	}
	if fields.VerifiedEmail != nil {
		identity.VerifiedEmail = *fields.VerifiedEmail
	}
	if fields.VerifiedPhone != nil {
		identity.VerifiedPhone = *fields.VerifiedPhone
	}
	identity.UpdatedAt = time.Now().UTC()
	r.identities[id] = identity
	return identity, true, nil
}

// Delete removes the identity and reports whether it existed.
func (r *MemoryRepository) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	identity, ok := r.identities[id]
	if !ok {
		return false, nil
	}
	delete(r.identities, id)
	delete(r.emailIndex, identity.Email)
	delete(r.usernameIndex, identity.Username)
	return true, nil
}

var _ auth.CredentialStore = (*MemoryRepository)(nil)
