package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
)

// KeyManager owns the process-wide P-256 signing key used for access tokens.
// The key is generated once and never leaves memory; a restart invalidates every
// access token signed before it.
type KeyManager struct {
	once    sync.Once
	initErr error
	private atomic.Pointer[ecdsa.PrivateKey]
}

// NewKeyManager returns an uninitialized KeyManager.
func NewKeyManager() *KeyManager {
	return &KeyManager{}
}

// Initialize generates the key pair. Only the first call does any work; later calls
// return the first call's result.
func (m *KeyManager) Initialize() error {
	m.once.Do(func() {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			m.initErr = fmt.Errorf("generate signing key: %w", err)
			return
		}
		m.private.Store(key)
	})
	return m.initErr
}

// PrivateKey returns the signing key, or ErrUninitializedKey before Initialize completes.
func (m *KeyManager) PrivateKey() (*ecdsa.PrivateKey, error) {
	key := m.private.Load()
	if key == nil {
		return nil, ErrUninitializedKey
	}
	return key, nil
}

// PublicKey returns the verification key, or ErrUninitializedKey before Initialize completes.
func (m *KeyManager) PublicKey() (*ecdsa.PublicKey, error) {
	key, err := m.PrivateKey()
	if err != nil {
		return nil, err
	}
	return &key.PublicKey, nil
}

// Fingerprint is a hex SHA-256 of the DER public key, safe to log.
func (m *KeyManager) Fingerprint() (string, error) {
	pub, err := m.PublicKey()
	if err != nil {
		return "", err
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:]), nil
}
