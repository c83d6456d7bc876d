// Package signing implements the multi-signature threshold state machine
// shared by the certificate and node layers: UNSIGNED → PARTIAL → SIGNED,
// with each successive signature chained over the previous signer's
// public key, signature, and index so that reordering or substituting an
// earlier signature invalidates everything signed after it.
package signing

import (
	"errors"
	"fmt"

	"github.com/odingraph/odingraph/internal/crypto"
	"github.com/odingraph/odingraph/internal/hashing"
)

var (
	ErrAlreadySigned      = errors.New("signing: certificate is already fully signed")
	ErrIneligibleSigner   = errors.New("signing: key is not among the eligible signers")
	ErrDuplicateSignature = errors.New("signing: key has already contributed a signature")
	ErrThresholdExceeded  = errors.New("signing: signature bundle would exceed the declared threshold")
)

// State is a position in the UNSIGNED/PARTIAL/SIGNED state machine.
type State uint8

const (
	Unsigned State = iota
	Partial
	Signed
)

func (s State) String() string {
	switch s {
	case Unsigned:
		return "UNSIGNED"
	case Partial:
		return "PARTIAL"
	case Signed:
		return "SIGNED"
	default:
		return "UNKNOWN"
	}
}

// IndexedSignature is one (index, publicKey, signature) tuple from a
// signature bundle. Index identifies the signer's position within
// EligibleSigners, not the order in which signatures were appended.
type IndexedSignature struct {
	Index     uint8
	PublicKey []byte
	Signature []byte
}

// Signable is the surface the signing state machine needs from a
// certificate or node: its content hash, the ordered set of public keys
// permitted to sign it, the declared threshold, and a way to read/append
// the current signature bundle.
type Signable interface {
	Hash() [32]byte
	EligibleSigners() [][]byte
	Threshold() int
	Signatures() []IndexedSignature
	AppendSignature(sig IndexedSignature)
}

// EffectiveThreshold normalizes an unset/zero threshold to 1, per the
// invariant that multiSigThreshold unset is equivalent to single-signer.
func EffectiveThreshold(declared int) int {
	if declared <= 0 {
		return 1
	}
	return declared
}

// CurrentState derives the signing state from the number of signatures
// already collected versus the effective threshold.
func CurrentState(s Signable) State {
	n := len(s.Signatures())
	if n == 0 {
		return Unsigned
	}
	if n >= EffectiveThreshold(s.Threshold()) {
		return Signed
	}
	return Partial
}

// CurrentMessage folds the signature chain to produce the digest the next
// signature must be computed over: msg_0 = Hash(); msg_i =
// H(msg_{i-1}, pk_{i-1}, sig_{i-1}, idx_{i-1}).
func CurrentMessage(s Signable) []byte {
	h := s.Hash()
	msg := h[:]
	for _, sig := range s.Signatures() {
		msg = hashing.Bytes(msg, sig.PublicKey, sig.Signature, sig.Index)
	}
	return msg
}

// EnforceSigningKey fails if publicKey is not among s's eligible signers,
// returning its index within that list.
func EnforceSigningKey(s Signable, publicKey []byte) (int, error) {
	for i, k := range s.EligibleSigners() {
		if string(k) == string(publicKey) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %x", ErrIneligibleSigner, publicKey)
}

// Sign advances s's state machine by one signature from signer. It fails
// if s is already SIGNED, if signer's key is ineligible, if that key has
// already signed, or if accepting the signature would exceed the declared
// threshold.
func Sign(s Signable, signer crypto.Signer) error {
	if CurrentState(s) == Signed {
		return ErrAlreadySigned
	}

	idx, err := EnforceSigningKey(s, signer.PublicKey())
	if err != nil {
		return err
	}
	for _, sig := range s.Signatures() {
		if int(sig.Index) == idx {
			return fmt.Errorf("%w: index %d", ErrDuplicateSignature, idx)
		}
	}
	if len(s.Signatures())+1 > EffectiveThreshold(s.Threshold()) {
		return ErrThresholdExceeded
	}

	msg := CurrentMessage(s)
	sig, err := signer.Sign(msg)
	if err != nil {
		return fmt.Errorf("signing: sign: %w", err)
	}

	s.AppendSignature(IndexedSignature{Index: uint8(idx), PublicKey: signer.PublicKey(), Signature: sig})
	return nil
}

// Verify cryptographically checks every signature in the bundle against
// its chained message. It returns true only if every signature verifies
// and, when requireComplete is set, the bundle has reached the declared
// threshold.
func Verify(s Signable, requireComplete bool) (bool, error) {
	if requireComplete && CurrentState(s) != Signed {
		return false, nil
	}

	h := s.Hash()
	msg := h[:]
	for _, sig := range s.Signatures() {
		ok, err := crypto.Verify(sig.PublicKey, msg, sig.Signature)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		msg = hashing.Bytes(msg, sig.PublicKey, sig.Signature, sig.Index)
	}
	return true, nil
}
