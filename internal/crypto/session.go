package crypto

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/awnumar/memguard"
)

var (
	ErrNoActiveSession = errors.New("crypto: no active signing session")
	ErrSessionExpired  = errors.New("crypto: signing session expired")
)

// Session holds a private key sealed at rest in a memguard Enclave, opened
// only for the duration of a single Sign call. It generalizes the
// teacher's order-signing SessionManager to arbitrary message signing: a
// Session signs whatever digest the certificate/node layer hands it,
// rather than one hard-coded struct shape.
type Session struct {
	mu        sync.RWMutex
	enclave   *memguard.Enclave
	scheme    Scheme
	publicKey []byte
	expiresAt time.Time
	ttl       time.Duration
	nowFunc   func() time.Time
}

// NewSession creates a Session with the given default TTL. No key is
// active until Activate is called.
func NewSession(ttl time.Duration) *Session {
	return &Session{ttl: ttl, nowFunc: time.Now}
}

// Activate seals privateKey into the enclave and starts a fresh TTL
// window. The caller must zero their own copy of privateKey after this
// returns. publicKey determines the scheme via SchemeOf.
func (s *Session) Activate(publicKey, privateKey []byte) error {
	scheme := SchemeOf(publicKey)
	if scheme == SchemeUnknown {
		return fmt.Errorf("%w: length=%d", ErrCryptoSchemaUnknown, len(publicKey))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.enclave = memguard.NewEnclave(privateKey)
	s.scheme = scheme
	s.publicKey = append([]byte(nil), publicKey...)
	s.expiresAt = s.nowFunc().Add(s.ttl)
	return nil
}

// Sign opens the enclave momentarily and signs message, enforcing that the
// session is active and unexpired. The returned signature is produced by
// the scheme appropriate to the activated public key.
func (s *Session) Sign(message []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.enclave == nil {
		return nil, ErrNoActiveSession
	}
	if s.nowFunc().After(s.expiresAt) {
		s.destroyLocked()
		return nil, ErrSessionExpired
	}

	buf, err := s.enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("crypto: open enclave: %w", err)
	}
	priv := append([]byte(nil), buf.Bytes()...)
	buf.Destroy()

	var kp *KeyPair
	switch s.scheme {
	case SchemeEd25519:
		kp = &KeyPair{Scheme: SchemeEd25519, PublicKey: s.publicKey, privateKey: priv}
	case SchemeEthereum:
		kp, err = NewEthereumKeyPair(priv)
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrCryptoSchemaUnknown
	}

	return kp.Sign(message)
}

// PublicKey returns the public key of the currently activated identity, or
// nil if no session is active. Satisfies the Signer interface.
func (s *Session) PublicKey() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.publicKey...)
}

// Active reports whether a key is currently sealed and unexpired.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enclave != nil && !s.nowFunc().After(s.expiresAt)
}

// TTLRemaining reports how long the active session has left, or 0 if no
// session is active.
func (s *Session) TTLRemaining() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.enclave == nil {
		return 0
	}
	remaining := s.expiresAt.Sub(s.nowFunc())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Destroy zeroes and releases the sealed key, resetting session state.
func (s *Session) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyLocked()
}

func (s *Session) destroyLocked() {
	s.enclave = nil
	s.publicKey = nil
	s.scheme = SchemeUnknown
}
