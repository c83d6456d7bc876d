package query

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/odingraph/odingraph/internal/cert"
	"github.com/odingraph/odingraph/internal/crypto"
	"github.com/odingraph/odingraph/internal/destroy"
	"github.com/odingraph/odingraph/internal/node"
	"github.com/odingraph/odingraph/internal/store"
)

func genKey(t *testing.T) *crypto.KeyPair {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return crypto.NewEd25519KeyPair(priv)
}

func putNode(t *testing.T, driver store.Driver, n *node.Node) [32]byte {
	t.Helper()
	id1 := n.ID1()
	rec := store.Record{ID1: id1, ParentID: n.ParentID(), Image: n.Export(false, true)}
	if err := driver.Put(context.Background(), nodeTable, rec); err != nil {
		t.Fatalf("put node: %v", err)
	}
	return id1
}

func baseDataNode(owner *crypto.KeyPair, parentID [32]byte) *node.Node {
	n := node.NewDataNode()
	n.SetOwner(owner.PublicKey)
	n.SetParentID(parentID)
	n.SetCreationTime(1000)
	n.SetExpireTime(0)
	n.SetConfig(0)
	n.SetNetwork("main")
	return n
}

func collectEmitted(t *testing.T, p *Processor, q Query) []*node.Node {
	t.Helper()
	var out []*node.Node
	err := p.Fetch(context.Background(), q, func(r Reply) error {
		out = append(out, r.Nodes...)
		return nil
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	return out
}

func idSet(nodes []*node.Node) map[[32]byte]bool {
	s := make(map[[32]byte]bool, len(nodes))
	for _, n := range nodes {
		s[n.ID1()] = true
	}
	return s
}

// Scenario 3: license distance window gates a chain A<-B<-C<-D.
func TestLicenseDistanceGatesChain(t *testing.T) {
	owner := genKey(t)
	target := genKey(t)
	driver := store.NewMemDriver()

	a := baseDataNode(owner, [32]byte{})
	aID := putNode(t, driver, a)

	b := baseDataNode(owner, aID)
	b.SetIsPrivate(true)
	bID := putNode(t, driver, b)

	c := baseDataNode(owner, bID)
	c.SetIsPrivate(true)
	cID := putNode(t, driver, c)

	d := baseDataNode(owner, cID)
	d.SetIsPrivate(true)
	d.SetLicenseMinDistance(2)
	d.SetLicenseMaxDistance(3)
	dID := putNode(t, driver, d)

	lic := node.NewLicenseNode()
	lic.SetOwner(owner.PublicKey)
	lic.SetParentID(aID)
	lic.SetRefID(aID)
	lic.SetCreationTime(500)
	lic.SetExpireTime(0)
	lic.SetConfig(0)
	lic.SetLicenseTargetPublicKey(target.PublicKey)
	lic.SetLicenseExtensions([]byte{1})
	putNode(t, driver, lic)

	p := NewProcessor(driver, NewDestroyIndex(nil))
	q := Query{
		ParentID:        [32]byte{},
		SourcePublicKey: target.PublicKey,
		TargetPublicKey: target.PublicKey,
		Depth:           10,
	}

	emitted := idSet(collectEmitted(t, p, q))
	for name, id := range map[string][32]byte{"A": aID, "B": bID, "C": cID, "D": dID} {
		if !emitted[id] {
			t.Fatalf("expected %s to be emitted with the license present", name)
		}
	}

	// Without the license, only the public prefix (A) remains visible.
	driver2 := store.NewMemDriver()
	putNode(t, driver2, a)
	putNode(t, driver2, b)
	putNode(t, driver2, c)
	putNode(t, driver2, d)
	p2 := NewProcessor(driver2, NewDestroyIndex(nil))
	emitted2 := idSet(collectEmitted(t, p2, q))
	if !emitted2[aID] {
		t.Fatalf("A should remain visible without a license")
	}
	if emitted2[bID] || emitted2[cID] || emitted2[dID] {
		t.Fatalf("B, C, D must not be visible once the license is removed")
	}
}

// A license sitting beside its target, under the target's own parent and
// naming it directly via RefID, is the common form and must be found even
// at the distance window's zero-value default.
func TestLicenseDirectSiblingGrantsAccess(t *testing.T) {
	owner := genKey(t)
	target := genKey(t)
	driver := store.NewMemDriver()

	p := baseDataNode(owner, [32]byte{})
	pID := putNode(t, driver, p)

	n := baseDataNode(owner, pID)
	n.SetIsPrivate(true)
	nID := putNode(t, driver, n)

	lic := node.NewLicenseNode()
	lic.SetOwner(owner.PublicKey)
	lic.SetParentID(pID)
	lic.SetRefID(nID)
	lic.SetCreationTime(500)
	lic.SetConfig(0)
	lic.SetLicenseTargetPublicKey(target.PublicKey)
	putNode(t, driver, lic)

	q := Query{ParentID: [32]byte{}, SourcePublicKey: target.PublicKey, TargetPublicKey: target.PublicKey, Depth: 10}
	proc := NewProcessor(driver, NewDestroyIndex(nil))
	if got := idSet(collectEmitted(t, proc, q)); !got[nID] {
		t.Fatalf("direct sibling license should grant visibility, got %v", got)
	}

	// Without the license, the private node must stay hidden.
	driver2 := store.NewMemDriver()
	putNode(t, driver2, p)
	putNode(t, driver2, n)
	proc2 := NewProcessor(driver2, NewDestroyIndex(nil))
	if got := idSet(collectEmitted(t, proc2, q)); got[nID] {
		t.Fatalf("node must stay hidden without the license")
	}
}

// A path-locked transitive license only grants access when the chain
// between the license's ancestor and the target matches the owner path
// its LicenseParentPathHash commits to.
func TestLicenseParentPathHashLocksToOriginalPath(t *testing.T) {
	owner := genKey(t)
	target := genKey(t)

	buildChain := func(driver store.Driver, lockHash [32]byte) (aID, dID [32]byte) {
		a := baseDataNode(owner, [32]byte{})
		aID = putNode(t, driver, a)

		// B stays public so reaching D never depends on B's own
		// visibility — only D needs the license, and only D's path
		// should matter to the lock.
		b := baseDataNode(owner, aID)
		bID := putNode(t, driver, b)

		d := baseDataNode(owner, bID)
		d.SetIsPrivate(true)
		dID = putNode(t, driver, d)

		lic := node.NewLicenseNode()
		lic.SetOwner(owner.PublicKey)
		lic.SetParentID(aID)
		lic.SetRefID(aID)
		lic.SetCreationTime(500)
		lic.SetConfig(0)
		lic.SetLicenseTargetPublicKey(target.PublicKey)
		lic.SetLicenseParentPathHash(lockHash)
		putNode(t, driver, lic)
		return aID, dID
	}

	q := Query{ParentID: [32]byte{}, SourcePublicKey: target.PublicKey, TargetPublicKey: target.PublicKey, Depth: 10}

	// A path hash that doesn't match the actual owner chain must reject
	// the license.
	wrongDriver := store.NewMemDriver()
	_, dID := buildChain(wrongDriver, pathHash([][]byte{[]byte("not-the-real-path")}))
	procWrong := NewProcessor(wrongDriver, NewDestroyIndex(nil))
	if got := idSet(collectEmitted(t, procWrong, q)); got[dID] {
		t.Fatalf("a mismatched parentPathHash must not grant access, got %v", got)
	}

	// The correctly computed path hash (owner of B, then owner of D) must
	// grant access.
	rightDriver := store.NewMemDriver()
	lockHash := pathHash([][]byte{owner.PublicKey, owner.PublicKey})
	_, dID = buildChain(rightDriver, lockHash)
	procRight := NewProcessor(rightDriver, NewDestroyIndex(nil))
	if got := idSet(collectEmitted(t, procRight, q)); !got[dID] {
		t.Fatalf("the correctly computed parentPathHash should grant access, got %v", got)
	}
}

// Scenario 4: restrictive-write mode across three distinct owners.
func TestRestrictiveWriteAcrossOwners(t *testing.T) {
	owner1, owner2, owner3 := genKey(t), genKey(t), genKey(t)
	driver := store.NewMemDriver()

	a := baseDataNode(owner1, [32]byte{})
	a.SetBeginsRestrictiveWriteMode(true)
	aID := putNode(t, driver, a)

	b := baseDataNode(owner2, aID)
	b.SetBeginsRestrictiveWriteMode(true)
	bID := putNode(t, driver, b)

	c := baseDataNode(owner3, bID)
	cID := putNode(t, driver, c)

	q := Query{ParentID: [32]byte{}, SourcePublicKey: owner1.PublicKey, TargetPublicKey: owner1.PublicKey, Depth: 10}

	p := NewProcessor(driver, NewDestroyIndex(nil))
	got := idSet(collectEmitted(t, p, q))
	if !got[aID] || got[bID] || got[cID] {
		t.Fatalf("with no writer licenses only A should be visible, got %v", got)
	}

	writer1 := node.NewLicenseNode()
	writer1.SetOwner(owner1.PublicKey)
	writer1.SetParentID(aID)
	writer1.SetRefID(aID)
	writer1.SetCreationTime(500)
	writer1.SetConfig(0)
	writer1.SetLicenseTargetPublicKey(owner2.PublicKey)
	writer1.SetRestrictiveModeWriter(true)
	putNode(t, driver, writer1)

	got = idSet(collectEmitted(t, p, q))
	if !got[aID] || !got[bID] || got[cID] {
		t.Fatalf("after the first writer license only A and B should be visible, got %v", got)
	}

	writer2 := node.NewLicenseNode()
	writer2.SetOwner(owner2.PublicKey)
	writer2.SetParentID(bID)
	writer2.SetRefID(bID)
	writer2.SetCreationTime(500)
	writer2.SetConfig(0)
	writer2.SetLicenseTargetPublicKey(owner3.PublicKey)
	writer2.SetRestrictiveModeWriter(true)
	putNode(t, driver, writer2)

	got = idSet(collectEmitted(t, p, q))
	if !got[aID] || !got[bID] || !got[cID] {
		t.Fatalf("after both writer licenses A, B and C should all be visible, got %v", got)
	}
}

// Scenario 6: a selfTotalDestruct request removes every destructible node
// an owner has stored, and is respected on the very next fetch.
func TestDestroySelfTotalHidesOwnersNodes(t *testing.T) {
	owner := genKey(t)
	driver := store.NewMemDriver()

	n := baseDataNode(owner, [32]byte{})
	nID := putNode(t, driver, n)

	q := Query{ParentID: [32]byte{}, SourcePublicKey: owner.PublicKey, TargetPublicKey: owner.PublicKey, Depth: 5}

	p := NewProcessor(driver, NewDestroyIndex(nil))
	if got := idSet(collectEmitted(t, p, q)); !got[nID] {
		t.Fatalf("node should be visible before any destroy request")
	}

	req := destroy.Request{
		Topic:      destroy.SelfTotalDestruct,
		RefID:      destroy.InnerHash(destroy.SelfTotalDestruct, owner.PublicKey),
		Difficulty: destroy.MinDifficultyTotalDestruction,
	}
	p2 := NewProcessor(driver, NewDestroyIndex([]destroy.Request{req}))
	if got := idSet(collectEmitted(t, p2, q)); got[nID] {
		t.Fatalf("node must be hidden once a selfTotalDestruct request matches its owner")
	}
}

// Depth limiting: a traversal bounded to depth 1 must not descend past the
// first level even though the store holds deeper nodes.
func TestDepthLimitsTraversal(t *testing.T) {
	owner := genKey(t)
	driver := store.NewMemDriver()

	a := baseDataNode(owner, [32]byte{})
	aID := putNode(t, driver, a)
	b := baseDataNode(owner, aID)
	bID := putNode(t, driver, b)
	c := baseDataNode(owner, bID)
	cID := putNode(t, driver, c)

	q := Query{ParentID: [32]byte{}, SourcePublicKey: owner.PublicKey, TargetPublicKey: owner.PublicKey, Depth: 1}
	p := NewProcessor(driver, NewDestroyIndex(nil))

	got := idSet(collectEmitted(t, p, q))
	if !got[aID] {
		t.Fatalf("level 0 node should be emitted within depth 1")
	}
	if got[bID] || got[cID] {
		t.Fatalf("nodes past the declared depth must not be emitted")
	}
}

// Friend-cert intermediary (scenario 5): a and b publish a paired friend
// cert, and applyFriendCerts bridges a's license to b through i.
func TestApplyFriendCertsBridgesLicenseThroughIntermediary(t *testing.T) {
	a, b, i := genKey(t), genKey(t), genKey(t)

	certA := cert.NewFriendCert()
	certA.SetOwner(a.PublicKey)
	certA.SetSalt([]byte("salt-a"))
	certA.SetFriendLevel(1)
	certA.SetLicenseMaxExpireTime(90000)

	certB := cert.NewFriendCert()
	certB.SetOwner(b.PublicKey)
	certB.SetSalt([]byte("salt-b"))
	certB.SetFriendLevel(1)
	certB.SetLicenseMaxExpireTime(90000)

	constraints := cert.PairConstraints(certA, certB)
	certA.SetConstraints(constraints)
	certB.SetConstraints(constraints)

	if err := certA.Sign(a); err != nil {
		t.Fatalf("sign certA: %v", err)
	}
	if err := certB.Sign(b); err != nil {
		t.Fatalf("sign certB: %v", err)
	}

	lic := node.NewLicenseNode()
	lic.SetOwner(a.PublicKey)
	lic.SetCreationTime(1000)
	lic.SetExpireTime(50000)
	lic.SetConfig(0)
	lic.SetLicenseTargetPublicKey(i.PublicKey)
	lic.SetLicenseFriendLevel(1)
	lic.SetLicenseExtensions([]byte{1})

	ext, err := ApplyFriendCerts(lic, certA, certB, i.PublicKey, 1)
	if err != nil {
		t.Fatalf("ApplyFriendCerts: %v", err)
	}
	if string(ext.Owner()) != string(i.PublicKey) {
		t.Fatalf("extension must be owned by the intermediary")
	}
	if string(ext.LicenseTargetPublicKey()) != string(b.PublicKey) {
		t.Fatalf("extension must target b")
	}
	if got := ext.LicenseExtensions(); len(got) != 1 || got[0] != 0 {
		t.Fatalf("extensions should be decremented to 0, got %v", got)
	}

	// A mismatched pair must be rejected.
	certB.SetFriendLevel(2)
	if _, err := ApplyFriendCerts(lic, certA, certB, i.PublicKey, 1); err == nil {
		t.Fatalf("expected an error once the pair is no longer validly constrained")
	}
}
