package cert

import (
	"crypto/ed25519"
	"testing"

	"github.com/odingraph/odingraph/internal/crypto"
	"github.com/odingraph/odingraph/internal/signing"
)

func genKey(t *testing.T) *crypto.KeyPair {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return crypto.NewEd25519KeyPair(priv)
}

func buildRootCert(t *testing.T, owner *crypto.KeyPair, targets [][]byte, threshold uint8) *Cert {
	t.Helper()
	c := NewAuthCert()
	c.SetOwner(owner.PublicKey)
	c.SetTargetPublicKeys(targets)
	c.SetConfig(0)
	c.SetLockedConfig(0)
	c.SetCreationTime(1000)
	c.SetExpireTime(100000)
	c.SetTargetType(nil)
	c.SetMaxChainLength(4)
	if threshold > 0 {
		c.SetMultiSigThreshold(threshold)
	}
	c.SetTargetMaxExpireTime(100000)
	return c
}

func TestSingleSignerRoundTrip(t *testing.T) {
	owner := genKey(t)
	c := buildRootCert(t, owner, [][]byte{owner.PublicKey}, 0)

	if err := c.Sign(owner); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if c.SignState() != signing.Signed {
		t.Fatalf("expected Signed after single signature")
	}

	image := c.Export(false, true)
	decoded, err := Decode(image)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ok, err := decoded.Verify(true)
	if err != nil || !ok {
		t.Fatalf("Verify after round trip = (%v, %v), want (true, nil)", ok, err)
	}

	now := int64(5000) * 1000
	if ok, msg := decoded.Validate(0, &now); !ok {
		t.Fatalf("Validate failed: %s", msg)
	}
}

func TestMultiSigThresholdTwoOfThree(t *testing.T) {
	owner := genKey(t)
	k0, k1, k2 := genKey(t), genKey(t), genKey(t)
	c := buildRootCert(t, owner, [][]byte{k0.PublicKey, k1.PublicKey, k2.PublicKey}, 2)

	if ok, msg := c.Validate(2, nil); !ok {
		t.Fatalf("Validate(2, ..) before signing should pass mid-signing checks: %s", msg)
	}

	if err := c.Sign(k0); err != nil {
		t.Fatalf("sign k0: %v", err)
	}
	if ok, _ := c.Validate(1, nil); ok {
		t.Fatalf("Validate(1, ..) should fail with only 1 of 2 signatures")
	}
	if err := c.Sign(k2); err != nil {
		t.Fatalf("sign k2: %v", err)
	}

	sigs := c.Signatures()
	if len(sigs) != 2 {
		t.Fatalf("expected 2 signatures, got %d", len(sigs))
	}
	ok, err := c.Verify(true)
	if err != nil || !ok {
		t.Fatalf("Verify = (%v, %v), want (true, nil)", ok, err)
	}
	if valid, msg := c.Validate(1, nil); !valid {
		t.Fatalf("Validate(1, ..) after reaching threshold should pass: %s", msg)
	}
}

func TestValidateRejectsExplicitThresholdOfOne(t *testing.T) {
	owner := genKey(t)
	c := buildRootCert(t, owner, [][]byte{owner.PublicKey}, 1)
	if err := c.Sign(owner); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if ok, msg := c.Validate(0, nil); ok {
		t.Fatalf("expected multiSigThreshold=1 to be rejected by Validate, got ok with msg %q", msg)
	}
}

// TestEmbeddedCertConstraintsAndAcceptance builds a two-level chain: an
// AuthCert ("root") signed by its owner, embedded inside a DataCert
// ("outer") signed by the delegate the root's targetPublicKeys name. The
// outer cert is the operative artifact (what would be attached to a
// node); the root is reached by walking outer's embedded cert.
func TestEmbeddedCertConstraintsAndAcceptance(t *testing.T) {
	owner := genKey(t)
	delegate := genKey(t)

	root := buildRootCert(t, owner, [][]byte{delegate.PublicKey}, 0)

	outer := NewDataCert()
	outer.SetTargetPublicKeys([][]byte{delegate.PublicKey})
	outer.SetConfig(0)
	outer.SetLockedConfig(0)
	outer.SetCreationTime(1000)
	outer.SetExpireTime(50000)
	outer.SetTargetType(nil)
	outer.SetMaxChainLength(0)
	outer.SetTargetMaxExpireTime(50000)

	root.SetTargetType(outer.Tag().Prefix()[:])
	outer.SetTargetType(root.Tag().Prefix()[:])

	root.SetConstraintsFor(outer)
	if err := root.Sign(owner); err != nil {
		t.Fatalf("sign root: %v", err)
	}

	outer.SetEmbeddedCert(root)
	if err := outer.Sign(delegate); err != nil {
		t.Fatalf("sign outer: %v", err)
	}

	reloaded, err := Decode(outer.Export(false, true))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	decodedRoot, err := reloaded.EmbeddedCert()
	if err != nil {
		t.Fatalf("decode embedded: %v", err)
	}
	if !decodedRoot.ConstraintsMatch(reloaded) {
		t.Fatalf("embedded cert constraints did not reproduce after round trip")
	}

	if ok, msg := reloaded.Validate(1, nil); !ok {
		t.Fatalf("deep validate failed: %s", msg)
	}

	eligible := reloaded.EligibleSigners()
	if len(eligible) != 1 || string(eligible[0]) != string(delegate.PublicKey) {
		t.Fatalf("outer cert's eligible signers should come from the root's targetPublicKeys")
	}
}

func TestFriendCertPairingIsSymmetric(t *testing.T) {
	ownerA, ownerB := genKey(t), genKey(t)

	a := NewFriendCert()
	a.SetOwner(ownerA.PublicKey)
	a.SetSalt([]byte("salt-a"))
	a.SetFriendLevel(1)
	a.SetLicenseMaxExpireTime(90000)
	a.SetTargetPublicKeys([][]byte{ownerA.PublicKey})
	a.SetCreationTime(1000)
	a.SetExpireTime(90000)

	b := NewFriendCert()
	b.SetOwner(ownerB.PublicKey)
	b.SetSalt([]byte("salt-b"))
	b.SetFriendLevel(1)
	b.SetLicenseMaxExpireTime(90000)
	b.SetTargetPublicKeys([][]byte{ownerB.PublicKey})
	b.SetCreationTime(1000)
	b.SetExpireTime(90000)

	constraints := PairConstraints(a, b)
	if PairConstraints(b, a) != constraints {
		t.Fatalf("PairConstraints is not symmetric under argument order")
	}

	a.SetConstraints(constraints)
	b.SetConstraints(constraints)
	if !VerifyFriendPair(a, b) {
		t.Fatalf("expected valid friend pair")
	}

	b.SetFriendLevel(2)
	if VerifyFriendPair(a, b) {
		t.Fatalf("mutating b's friendLevel should invalidate the pairing")
	}
}

func TestIneligibleSignerCannotSignCert(t *testing.T) {
	owner := genKey(t)
	outsider := genKey(t)
	c := buildRootCert(t, owner, [][]byte{owner.PublicKey}, 0)
	if err := c.Sign(outsider); err == nil {
		t.Fatalf("expected ineligible signer to be rejected")
	}
}
