// Package signer adds a cumulative signature-count budget on top of
// internal/crypto.Session: the same sealed-enclave, TTL-gated key custody
// the teacher's order-signing SessionManager used, generalized once at
// the crypto layer and specialized again here with the one feature that
// generalization dropped — a cap on how many signatures a session may
// produce before it must be re-activated.
package signer

import (
	"errors"
	"sync"
	"time"

	"github.com/odingraph/odingraph/internal/crypto"
)

var (
	ErrNoActiveSession = errors.New("no active session")
	ErrSessionExpired  = errors.New("session expired")
	ErrSignatureLimit  = errors.New("session signature limit exceeded")
)

// SessionManager wraps a crypto.Session with a cumulative signature-count
// limit, the daemon-facing counterpart to the teacher's per-session USDC
// value cap. It implements crypto.Signer, so it can be handed to
// signing.Sign alongside any other identity.
type SessionManager struct {
	mu            sync.Mutex
	session       *crypto.Session
	maxSignatures int
	used          int
}

// NewSessionManager creates a manager with the given default TTL.
// No session is active until Activate is called.
func NewSessionManager(ttl time.Duration) *SessionManager {
	return &SessionManager{session: crypto.NewSession(ttl)}
}

// Activate seals keyBytes into the underlying session and resets the
// signature counter against maxSignatures (0 means unlimited). The caller
// MUST zero their copy of keyBytes after calling this. keyBytes must be a
// 64-byte Ed25519 private key (seed||public, the standard library's
// convention) or a 32-byte secp256k1 scalar; any other length is rejected.
func (sm *SessionManager) Activate(keyBytes []byte, maxSignatures int) error {
	publicKey, err := publicKeyFromPrivate(keyBytes)
	if err != nil {
		return err
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if err := sm.session.Activate(publicKey, keyBytes); err != nil {
		return err
	}
	sm.maxSignatures = maxSignatures
	sm.used = 0
	return nil
}

// PublicKey returns the active session's public key, or nil if no session
// is active. Implements crypto.Signer.
func (sm *SessionManager) PublicKey() []byte {
	return sm.session.PublicKey()
}

// Sign produces a detached signature over message, enforcing the
// cumulative signature-count limit on top of the underlying session's own
// active/TTL checks. Implements crypto.Signer.
func (sm *SessionManager) Sign(message []byte) ([]byte, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.session.Active() {
		if sm.session.PublicKey() == nil {
			return nil, ErrNoActiveSession
		}
		return nil, ErrSessionExpired
	}
	if sm.maxSignatures > 0 && sm.used >= sm.maxSignatures {
		return nil, ErrSignatureLimit
	}

	sig, err := sm.session.Sign(message)
	if err != nil {
		if err == crypto.ErrNoActiveSession {
			return nil, ErrNoActiveSession
		}
		if err == crypto.ErrSessionExpired {
			return nil, ErrSessionExpired
		}
		return nil, err
	}

	sm.used++
	return sig, nil
}

// Status returns a read-only snapshot of the current session state.
func (sm *SessionManager) Status() (active bool, ttlRemaining int64, maxSignatures, used int, publicKey []byte) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.session.Active() {
		return false, 0, 0, 0, nil
	}
	return true, int64(sm.session.TTLRemaining().Seconds()), sm.maxSignatures, sm.used, sm.session.PublicKey()
}

// Destroy tears down the underlying session and resets the counters.
func (sm *SessionManager) Destroy() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.session.Destroy()
	sm.used = 0
	sm.maxSignatures = 0
}

// publicKeyFromPrivate derives the public key from raw private key bytes,
// discriminating scheme by length: 64 bytes is an Ed25519 seed||public
// private key, 32 bytes is a secp256k1 scalar.
func publicKeyFromPrivate(keyBytes []byte) ([]byte, error) {
	switch len(keyBytes) {
	case 64:
		return crypto.NewEd25519KeyPair(append([]byte(nil), keyBytes...)).PublicKey, nil
	case 32:
		kp, err := crypto.NewEthereumKeyPair(keyBytes)
		if err != nil {
			return nil, err
		}
		return kp.PublicKey, nil
	default:
		return nil, crypto.ErrCryptoSchemaUnknown
	}
}
