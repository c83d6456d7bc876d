package node

import (
	"fmt"

	"github.com/odingraph/odingraph/internal/cert"
	"github.com/odingraph/odingraph/internal/crypto"
	"github.com/odingraph/odingraph/internal/destroy"
	"github.com/odingraph/odingraph/internal/hashing"
	"github.com/odingraph/odingraph/internal/model"
	"github.com/odingraph/odingraph/internal/signing"
	"github.com/odingraph/odingraph/internal/typetag"
)

// Kind distinguishes the concrete node subtypes sharing the base field
// layout.
type Kind uint8

const (
	KindData Kind = iota
	KindLicense
	KindDestroySpecial
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "DataNode"
	case KindLicense:
		return "LicenseNode"
	case KindDestroySpecial:
		return "DestroySpecialNode"
	default:
		return "UnknownNode"
	}
}

// Distinct primary interface from the certificate registry (see
// internal/cert), so a misrouted image fails fast at decode rather than
// silently resolving to the wrong family.
var prefixes = map[Kind]typetag.Tag{
	KindData:           {PrimaryInterface: 2, SecondaryInterface: 1, ClassID: 1, ClassMajorVersion: 1},
	KindLicense:        {PrimaryInterface: 2, SecondaryInterface: 2, ClassID: 1, ClassMajorVersion: 1},
	KindDestroySpecial: {PrimaryInterface: 2, SecondaryInterface: 3, ClassID: 1, ClassMajorVersion: 1},
}

// Node is a content-addressed graph entity: a parent pointer, optional
// authorizing certificate, optional embedded child datamodel, and whatever
// fields its concrete Kind appends.
type Node struct {
	tag  typetag.Tag
	kind Kind
	m    *model.Model
}

func newNode(kind Kind, tag typetag.Tag, extra []model.FieldSpec) *Node {
	specs := append(baseSpecs(), extra...)
	return &Node{tag: tag, kind: kind, m: model.New(specs)}
}

// NewDataNode, NewLicenseNode and NewDestroySpecialNode construct an empty
// node of the given kind with a fresh type tag.
func NewDataNode() *Node    { return newNode(KindData, prefixes[KindData], nil) }
func NewLicenseNode() *Node { return newNode(KindLicense, prefixes[KindLicense], licenseSpecs()) }
func NewDestroySpecialNode() *Node {
	return newNode(KindDestroySpecial, prefixes[KindDestroySpecial], nil)
}

func (n *Node) Kind() Kind           { return n.kind }
func (n *Node) Tag() typetag.Tag     { return n.tag }

func mustSet(m *model.Model, name string, v any) {
	if err := m.Set(name, v); err != nil {
		panic(fmt.Sprintf("node: invalid field %q: %v", name, err))
	}
}

func getBytes32(m *model.Model, name string) [32]byte {
	v, _ := m.Get(name)
	b, _ := v.([32]byte)
	return b
}

// Field accessors. Setters panic on type/size mismatch — see the matching
// note in internal/cert/cert.go.

func (n *Node) ParentID() [32]byte         { return getBytes32(n.m, "parentId") }
func (n *Node) SetParentID(v [32]byte)     { mustSet(n.m, "parentId", v) }
func (n *Node) Owner() []byte              { return n.m.MustGetBytes("owner") }
func (n *Node) SetOwner(pk []byte)         { mustSet(n.m, "owner", pk) }
func (n *Node) RefID() [32]byte            { return getBytes32(n.m, "refId") }
func (n *Node) SetRefID(v [32]byte)        { mustSet(n.m, "refId", v) }
func (n *Node) Embedded() []byte           { return n.m.MustGetBytes("embedded") }
func (n *Node) SetEmbedded(v []byte)       { mustSet(n.m, "embedded", v) }
func (n *Node) CertImage() []byte          { return n.m.MustGetBytes("cert") }
func (n *Node) SetCertImage(v []byte)      { mustSet(n.m, "cert", v) }

func (n *Node) CreationTime() uint32 {
	v, _ := n.m.Get("creationTime")
	u, _ := v.(uint32)
	return u
}
func (n *Node) SetCreationTime(v uint32) { mustSet(n.m, "creationTime", v) }

func (n *Node) ExpireTime() uint32 {
	v, _ := n.m.Get("expireTime")
	u, _ := v.(uint32)
	return u
}
func (n *Node) SetExpireTime(v uint32) { mustSet(n.m, "expireTime", v) }

func (n *Node) Difficulty() uint32 {
	v, _ := n.m.Get("difficulty")
	u, _ := v.(uint32)
	return u
}
func (n *Node) SetDifficulty(v uint32) { mustSet(n.m, "difficulty", v) }

func (n *Node) ChildMinDifficulty() uint32 {
	v, _ := n.m.Get("childMinDifficulty")
	u, _ := v.(uint32)
	return u
}
func (n *Node) SetChildMinDifficulty(v uint32) { mustSet(n.m, "childMinDifficulty", v) }

func (n *Node) Region() string {
	v, _ := n.m.Get("region")
	s, _ := v.(string)
	return s
}
func (n *Node) SetRegion(v string) { mustSet(n.m, "region", v) }

func (n *Node) Jurisdiction() string {
	v, _ := n.m.Get("jurisdiction")
	s, _ := v.(string)
	return s
}
func (n *Node) SetJurisdiction(v string) { mustSet(n.m, "jurisdiction", v) }

func (n *Node) Network() string {
	v, _ := n.m.Get("network")
	s, _ := v.(string)
	return s
}
func (n *Node) SetNetwork(v string) { mustSet(n.m, "network", v) }

func (n *Node) LicenseMinDistance() uint16 {
	v, _ := n.m.Get("licenseMinDistance")
	u, _ := v.(uint16)
	return u
}
func (n *Node) SetLicenseMinDistance(v uint16) { mustSet(n.m, "licenseMinDistance", v) }

func (n *Node) LicenseMaxDistance() uint16 {
	v, _ := n.m.Get("licenseMaxDistance")
	u, _ := v.(uint16)
	return u
}
func (n *Node) SetLicenseMaxDistance(v uint16) { mustSet(n.m, "licenseMaxDistance", v) }

func (n *Node) Config() uint16 {
	v, _ := n.m.Get("config")
	u, _ := v.(uint16)
	return u
}
func (n *Node) SetConfig(v uint16) { mustSet(n.m, "config", v) }

func (n *Node) BlobHash() [32]byte     { return getBytes32(n.m, "blobHash") }
func (n *Node) SetBlobHash(v [32]byte) { mustSet(n.m, "blobHash", v) }
func (n *Node) Data() []byte           { return n.m.MustGetBytes("data") }
func (n *Node) SetData(v []byte)       { mustSet(n.m, "data", v) }
func (n *Node) ID2() [32]byte          { return getBytes32(n.m, "id2") }
func (n *Node) SetID2(v [32]byte)      { mustSet(n.m, "id2", v) }
func (n *Node) CopiedID1() [32]byte    { return getBytes32(n.m, "copiedId1") }
func (n *Node) SetCopiedID1(v [32]byte) { mustSet(n.m, "copiedId1", v) }
func (n *Node) CopiedParentID() [32]byte     { return getBytes32(n.m, "copiedParentId") }
func (n *Node) SetCopiedParentID(v [32]byte) { mustSet(n.m, "copiedParentId", v) }
func (n *Node) CopiedSignature() []byte      { return n.m.MustGetBytes("copiedSignature") }
func (n *Node) SetCopiedSignature(v []byte)  { mustSet(n.m, "copiedSignature", v) }

// Config bit accessors.
func (n *Node) IsSpecial() bool { return n.Config()&bitIsSpecial != 0 }
func (n *Node) SetIsSpecial(v bool) { n.setConfigBit(bitIsSpecial, v) }
func (n *Node) IsPrivate() bool { return n.Config()&bitIsPrivate != 0 }
func (n *Node) SetIsPrivate(v bool) { n.setConfigBit(bitIsPrivate, v) }
func (n *Node) DisallowRightsByAssociation() bool {
	return n.Config()&bitDisallowRightsByAssociation != 0
}
func (n *Node) SetDisallowRightsByAssociation(v bool) {
	n.setConfigBit(bitDisallowRightsByAssociation, v)
}
func (n *Node) BeginsRestrictiveWriteMode() bool {
	return n.Config()&bitBeginRestrictiveWriteMode != 0
}
func (n *Node) SetBeginsRestrictiveWriteMode(v bool) {
	n.setConfigBit(bitBeginRestrictiveWriteMode, v)
}
func (n *Node) EndsRestrictiveWriteMode() bool { return n.Config()&bitEndRestrictiveWriteMode != 0 }
func (n *Node) SetEndsRestrictiveWriteMode(v bool) {
	n.setConfigBit(bitEndRestrictiveWriteMode, v)
}
func (n *Node) Indestructible() bool     { return n.Config()&bitIndestructible != 0 }
func (n *Node) SetIndestructible(v bool) { n.setConfigBit(bitIndestructible, v) }

func (n *Node) setConfigBit(bit uint16, on bool) {
	cur := n.Config()
	if on {
		cur |= bit
	} else {
		cur &^= bit
	}
	mustSet(n.m, "config", cur)
}

func (n *Node) transientBits() uint16 {
	v, ok := n.m.Get("transientBits")
	if !ok {
		return 0
	}
	u, _ := v.(uint16)
	return u
}
func (n *Node) setTransientBit(bit uint16, on bool) {
	cur := n.transientBits()
	if on {
		cur |= bit
	} else {
		cur &^= bit
	}
	mustSet(n.m, "transientBits", cur)
}

// Online reports the runtime-only online flag; it travels on the wire
// inside a transient field, so it never affects id1 and never survives a
// store round trip unless preserveTransient is requested.
func (n *Node) Online() bool     { return n.transientBits()&bitOnline != 0 }
func (n *Node) SetOnline(v bool) { n.setTransientBit(bitOnline, v) }

// Cert decodes the certificate attached to n's cert slot, or nil if unset.
func (n *Node) Cert() (*cert.Cert, error) {
	raw := n.CertImage()
	if len(raw) == 0 {
		return nil, nil
	}
	return cert.Decode(raw)
}

// Hash implements signing.Signable via the Model layer's content hash.
func (n *Node) Hash() [32]byte { return n.m.Hash() }

// EligibleSigners implements signing.Signable: a node is signed by its own
// owner when it carries no authorizing cert, otherwise by one of the
// targetPublicKeys of the attached cert chain's root.
func (n *Node) EligibleSigners() [][]byte {
	c, err := n.Cert()
	if err != nil || c == nil {
		if owner := n.Owner(); len(owner) > 0 {
			return [][]byte{owner}
		}
		return nil
	}
	root, err := c.Root()
	if err != nil {
		return nil
	}
	return root.TargetPublicKeys()
}

// Threshold implements signing.Signable, deferring to the attached cert's
// declared threshold when present.
func (n *Node) Threshold() int {
	c, err := n.Cert()
	if err != nil || c == nil {
		return 0
	}
	return c.Threshold()
}

func (n *Node) Signatures() []signing.IndexedSignature {
	raw := n.m.MustGetBytes("signature")
	sigs, _ := decodeNodeSignatures(raw, n.EligibleSigners())
	return sigs
}

func (n *Node) AppendSignature(sig signing.IndexedSignature) {
	existing := n.Signatures()
	existing = append(existing, sig)
	mustSet(n.m, "signature", encodeNodeSignatures(existing))
}

// Sign advances n's signing state machine by one signature from signer.
func (n *Node) Sign(signer crypto.Signer) error { return signing.Sign(n, signer) }

// SignState reports n's current position in the signature state machine.
func (n *Node) SignState() signing.State { return signing.CurrentState(n) }

// Verify cryptographically checks every signature currently attached to n.
func (n *Node) Verify(requireComplete bool) (bool, error) { return signing.Verify(n, requireComplete) }

// ID1 is the node's content-addressed identity: H(hash(n), signature), per
// 3.Entities.
func (n *Node) ID1() [32]byte {
	h := n.Hash()
	return hashing.H(h[:], n.m.MustGetBytes("signature"))
}

// DestroyHashes returns the Achilles hashes n and its attached cert chain
// advertise, using n's own id1 to anchor the cert-hosted hashes.
func (n *Node) DestroyHashes() [][32]byte {
	id1 := n.ID1()
	owner := n.Owner()
	hashes := [][32]byte{destroy.SelfHash(owner), destroy.NodeHash(owner, id1)}
	c, err := n.Cert()
	if err == nil && c != nil {
		hashes = append(hashes, c.DestroyHashes(id1)...)
	}
	return hashes
}

// Export serializes n's type tag followed by its field records.
func (n *Node) Export(includeTransient, includeTransientNonHashable bool) []byte {
	tag := n.tag.Bytes()
	body := n.m.Export(includeTransient, includeTransientNonHashable)
	out := make([]byte, 0, len(tag)+len(body))
	out = append(out, tag[:]...)
	out = append(out, body...)
	return out
}

var registry = typetag.NewRegistry[*Node]()

func init() {
	registry.Register(prefixes[KindData].Prefix(), func(tag typetag.Tag, body []byte) (*Node, error) {
		n := newNode(KindData, tag, nil)
		return n, n.m.Load(body, true)
	})
	registry.Register(prefixes[KindLicense].Prefix(), func(tag typetag.Tag, body []byte) (*Node, error) {
		n := newNode(KindLicense, tag, licenseSpecs())
		return n, n.m.Load(body, true)
	})
	registry.Register(prefixes[KindDestroySpecial].Prefix(), func(tag typetag.Tag, body []byte) (*Node, error) {
		n := newNode(KindDestroySpecial, tag, nil)
		return n, n.m.Load(body, true)
	})
}

// Decode reads a type tag from image and dispatches to the registered
// decoder for its interface prefix.
func Decode(image []byte) (*Node, error) { return registry.Decode(image) }

func encodeNodeSignatures(sigs []signing.IndexedSignature) []byte {
	var out []byte
	for _, s := range sigs {
		out = append(out, s.Index)
		out = append(out, s.Signature...)
	}
	return out
}

func decodeNodeSignatures(raw []byte, eligible [][]byte) ([]signing.IndexedSignature, error) {
	var sigs []signing.IndexedSignature
	offset := 0
	for offset < len(raw) {
		idx := raw[offset]
		offset++
		if int(idx) >= len(eligible) {
			return nil, fmt.Errorf("node: signature references out-of-range key index %d", idx)
		}
		pk := eligible[idx]
		n, err := crypto.SignatureLength(pk)
		if err != nil {
			return nil, err
		}
		if offset+n > len(raw) {
			return nil, fmt.Errorf("node: truncated signature for index %d", idx)
		}
		sigs = append(sigs, signing.IndexedSignature{
			Index:     idx,
			PublicKey: pk,
			Signature: append([]byte(nil), raw[offset:offset+n]...),
		})
		offset += n
	}
	return sigs, nil
}
