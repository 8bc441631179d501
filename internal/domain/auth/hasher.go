package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// hashDelimiter separates salt and key; it is not part of the base64 alphabet.
const hashDelimiter = ":"

// maxDerivedKeyLen caps the key length read back from a stored record.
const maxDerivedKeyLen = 1024

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash returns a self-describing salted record for plaintext.
	Hash(ctx context.Context, plaintext string) (string, error)

	// Verify reports whether plaintext matches record. It fails with ErrMalformedHash
	// when record cannot be split into salt and key.
	Verify(ctx context.Context, plaintext, record string) (bool, error)
}

// ScryptParams are the scrypt work factors and sizes.
type ScryptParams struct {
	N       int
	R       int
	P       int
	SaltLen int
	KeyLen  int
}

// DefaultScryptParams returns N=2^14, r=8, p=1 with a 16 byte salt and a 64 byte key.
func DefaultScryptParams() ScryptParams {
	return ScryptParams{N: 1 << 14, R: 8, P: 1, SaltLen: 16, KeyLen: 64}
}

// ScryptHasher implements PasswordHasher with scrypt, running every derivation on a HashPool.
type ScryptHasher struct {
	params ScryptParams
	pool   *HashPool
}

// NewScryptHasher creates a hasher with the default parameters.
func NewScryptHasher(pool *HashPool) *ScryptHasher {
	return NewScryptHasherWithParams(DefaultScryptParams(), pool)
}

// NewScryptHasherWithParams creates a hasher with explicit parameters. A nil pool gets
// a pool sized to the CPU count.
func NewScryptHasherWithParams(params ScryptParams, pool *HashPool) *ScryptHasher {
	if pool == nil {
		pool = NewHashPool(0, nil)
	}
	return &ScryptHasher{params: params, pool: pool}
}

// Hash derives a key from plaintext with a fresh random salt.
func (h *ScryptHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key, err := h.derive(ctx, plaintext, salt, h.params.KeyLen)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(salt) + hashDelimiter + base64.StdEncoding.EncodeToString(key), nil
}

// Verify re-derives the key with the record's salt and compares in constant time.
func (h *ScryptHasher) Verify(ctx context.Context, plaintext, record string) (bool, error) {
	salt, expected, err := splitRecord(record)
	if err != nil {
		return false, err
	}
	computed, err := h.derive(ctx, plaintext, salt, len(expected))
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

func (h *ScryptHasher) derive(ctx context.Context, plaintext string, salt []byte, keyLen int) ([]byte, error) {
	var key []byte
	err := h.pool.Do(ctx, func() error {
		var deriveErr error
		key, deriveErr = scrypt.Key([]byte(plaintext), salt, h.params.N, h.params.R, h.params.P, keyLen)
		return deriveErr
	})
	if err != nil {
		return nil, fmt.Errorf("derive password key: %w", err)
	}
	return key, nil
}

func splitRecord(record string) (salt, key []byte, err error) {
	saltPart, keyPart, ok := strings.Cut(record, hashDelimiter)
	if !ok || saltPart == "" || keyPart == "" || strings.Contains(keyPart, hashDelimiter) {
		return nil, nil, ErrMalformedHash
	}
	salt, err = base64.StdEncoding.DecodeString(saltPart)
	if err != nil || len(salt) == 0 {
		return nil, nil, ErrMalformedHash
	}
	key, err = base64.StdEncoding.DecodeString(keyPart)
	if err != nil || len(key) == 0 || len(key) > maxDerivedKeyLen {
		return nil, nil, ErrMalformedHash
	}
	return salt, key, nil
}
