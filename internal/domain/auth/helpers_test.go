package auth

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

func testConfig() Config {
	return Config{
		AccessTokenTTL:       15 * time.Minute,
		RefreshTokenTTL:      7 * 24 * time.Hour,
		RefreshSigningSecret: "test-refresh-secret",
		TokenIssuer:          "malina-corp",
		TokenAudience:        "malina-corp-users",
	}
}

// testScryptParams keeps the record shape of the defaults with a far cheaper cost.
func testScryptParams() ScryptParams {
	return ScryptParams{N: 1 << 10, R: 8, P: 1, SaltLen: 16, KeyLen: 64}
}

func newTestHasher() *ScryptHasher {
	return NewScryptHasherWithParams(testScryptParams(), NewHashPool(4, nil))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newInitializedKeys(t *testing.T) *KeyManager {
	t.Helper()
	keys := NewKeyManager()
	require.NoError(t, keys.Initialize())
	return keys
}

// fakeStore is an in-package CredentialStore; infra/userrepo has the real ones.
type fakeStore struct {
	mu         sync.Mutex
	identities map[string]Identity
	seq        int
	failWith   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{identities: make(map[string]Identity)}
}

func (s *fakeStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.failWith
}

func (s *fakeStore) FindByEmail(ctx context.Context, email string) (Identity, bool, error) {
	return s.find(ctx, func(i Identity) bool { return i.Email == email })
}

func (s *fakeStore) FindByUsername(ctx context.Context, username string) (Identity, bool, error) {
	return s.find(ctx, func(i Identity) bool { return i.Username == username })
}

func (s *fakeStore) FindByID(ctx context.Context, id string) (Identity, bool, error) {
	return s.find(ctx, func(i Identity) bool { return i.ID == id })
}

func (s *fakeStore) find(ctx context.Context, match func(Identity) bool) (Identity, bool, error) {
	if err := s.check(ctx); err != nil {
		return Identity{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, identity := range s.identities {
		if match(identity) {
			return identity, true, nil
		}
	}
	return Identity{}, false, nil
}

func (s *fakeStore) Create(ctx context.Context, fields NewIdentity) (Identity, error) {
	if err := s.check(ctx); err != nil {
		return Identity{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.identities {
		if existing.Email == fields.Email {
			return Identity{}, ErrEmailExists
		}
		if existing.Username == fields.Username {
			return Identity{}, ErrUsernameExists
		}
	}
	s.seq++
	now := time.Now().UTC()
	identity := Identity{
		ID:            "id-" + strconv.Itoa(s.seq),
		Username:      fields.Username,
		Email:         fields.Email,
		PasswordHash:  fields.PasswordHash,
		VerifiedEmail: fields.VerifiedEmail,
		VerifiedPhone: fields.VerifiedPhone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.identities[identity.ID] = identity
	return identity, nil
}

func (s *fakeStore) Update(ctx context.Context, id string, fields IdentityUpdate) (Identity, bool, error) {
	if err := s.check(ctx); err != nil {
		return Identity{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.identities[id]
	if !ok {
		return Identity{}, false, nil
	}
	if fields.PasswordHash != nil {
		identity.PasswordHash = *fields.PasswordHash
	}
	if fields.Username != nil {
		identity.Username = *fields.Username
	}
	if fields.Email != nil {
		identity.Email = *fields.Email
	}
	if fields.VerifiedEmail != nil {
		identity.VerifiedEmail = *fields.VerifiedEmail
	}
	if fields.VerifiedPhone != nil {
		identity.VerifiedPhone = *fields.VerifiedPhone
	}
	identity.UpdatedAt = time.Now().UTC()
	s.identities[id] = identity
	return identity, true, nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) (bool, error) {
	if err := s.check(ctx); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.identities[id]; !ok {
		return false, nil
	}
	delete(s.identities, id)
	return true, nil
}

func (s *fakeStore) put(t *testing.T, hasher PasswordHasher, email, username, password string) Identity {
	t.Helper()
	hash, err := hasher.Hash(context.Background(), password)
	require.NoError(t, err)
	identity, err := s.Create(context.Background(), NewIdentity{Username: username, Email: email, PasswordHash: hash})
	require.NoError(t, err)
	return identity
}

type recordedOutcome struct{ strategy, reason string }

type recordingRecorder struct {
	mu       sync.Mutex
	outcomes []recordedOutcome
}

func (r *recordingRecorder) RecordOutcome(strategy, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, recordedOutcome{strategy: strategy, reason: reason})
}

type countingThrottle struct {
	mu       sync.Mutex
	failures map[string]int
	limit    int
}

func newCountingThrottle(limit int) *countingThrottle {
	return &countingThrottle{failures: make(map[string]int), limit: limit}
}

func (c *countingThrottle) Check(_ context.Context, key string) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures[key] >= c.limit {
		return time.Minute, nil
	}
	return 0, nil
}

func (c *countingThrottle) RecordFailure(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[key]++
	return nil
}

func (c *countingThrottle) Reset(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.failures, key)
	return nil
}
