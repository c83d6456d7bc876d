package signing

import (
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/odingraph/odingraph/internal/crypto"
)

type fakeSignable struct {
	hash      [32]byte
	eligible  [][]byte
	threshold int
	sigs      []IndexedSignature
}

func (f *fakeSignable) Hash() [32]byte                   { return f.hash }
func (f *fakeSignable) EligibleSigners() [][]byte        { return f.eligible }
func (f *fakeSignable) Threshold() int                   { return f.threshold }
func (f *fakeSignable) Signatures() []IndexedSignature    { return f.sigs }
func (f *fakeSignable) AppendSignature(s IndexedSignature) { f.sigs = append(f.sigs, s) }

func genKeyPair(t *testing.T) *crypto.KeyPair {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return crypto.NewEd25519KeyPair(priv)
}

func TestSingleSignerThresholdUnset(t *testing.T) {
	kp := genKeyPair(t)
	s := &fakeSignable{hash: [32]byte{1}, eligible: [][]byte{kp.PublicKey}}

	if CurrentState(s) != Unsigned {
		t.Fatalf("expected Unsigned before any signature")
	}
	if err := Sign(s, kp); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if CurrentState(s) != Signed {
		t.Fatalf("expected Signed after single signature with unset threshold")
	}
	ok, err := Verify(s, true)
	if err != nil || !ok {
		t.Fatalf("Verify = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestThresholdTwoOfThree(t *testing.T) {
	kp0, kp1, kp2 := genKeyPair(t), genKeyPair(t), genKeyPair(t)
	s := &fakeSignable{
		hash:      [32]byte{2},
		eligible:  [][]byte{kp0.PublicKey, kp1.PublicKey, kp2.PublicKey},
		threshold: 2,
	}

	if err := Sign(s, kp0); err != nil {
		t.Fatalf("first sign: %v", err)
	}
	if CurrentState(s) != Partial {
		t.Fatalf("expected Partial after 1 of 2")
	}
	if err := Sign(s, kp2); err != nil {
		t.Fatalf("second sign: %v", err)
	}
	if CurrentState(s) != Signed {
		t.Fatalf("expected Signed after reaching threshold")
	}
	if len(s.Signatures()) != 2 {
		t.Fatalf("expected 2 signatures, got %d", len(s.Signatures()))
	}
	ok, err := Verify(s, true)
	if err != nil || !ok {
		t.Fatalf("Verify = (%v, %v), want (true, nil)", ok, err)
	}

	if err := Sign(s, kp1); !errors.Is(err, ErrAlreadySigned) {
		t.Fatalf("expected ErrAlreadySigned once threshold met, got %v", err)
	}
}

func TestIneligibleSignerRejected(t *testing.T) {
	kp0 := genKeyPair(t)
	outsider := genKeyPair(t)
	s := &fakeSignable{hash: [32]byte{3}, eligible: [][]byte{kp0.PublicKey}}

	if err := Sign(s, outsider); !errors.Is(err, ErrIneligibleSigner) {
		t.Fatalf("expected ErrIneligibleSigner, got %v", err)
	}
}

func TestDuplicateSignerRejected(t *testing.T) {
	kp0, kp1 := genKeyPair(t), genKeyPair(t)
	s := &fakeSignable{hash: [32]byte{4}, eligible: [][]byte{kp0.PublicKey, kp1.PublicKey}, threshold: 2}

	if err := Sign(s, kp0); err != nil {
		t.Fatalf("first sign: %v", err)
	}
	if err := Sign(s, kp0); !errors.Is(err, ErrDuplicateSignature) {
		t.Fatalf("expected ErrDuplicateSignature, got %v", err)
	}
}

func TestTamperedSignatureFailsVerify(t *testing.T) {
	kp := genKeyPair(t)
	s := &fakeSignable{hash: [32]byte{5}, eligible: [][]byte{kp.PublicKey}}
	if err := Sign(s, kp); err != nil {
		t.Fatalf("Sign: %v", err)
	}

	s.sigs[0].Signature[0] ^= 0xFF
	ok, err := Verify(s, true)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected Verify to fail on tampered signature")
	}
}
