package cert

import (
	"fmt"

	"github.com/odingraph/odingraph/internal/crypto"
	"github.com/odingraph/odingraph/internal/model"
	"github.com/odingraph/odingraph/internal/signing"
	"github.com/odingraph/odingraph/internal/typetag"
)

// Kind distinguishes the concrete certificate subtypes sharing the
// BaseCert field layout.
type Kind uint8

const (
	KindNode Kind = iota
	KindData
	KindAuth
	KindFriend
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "NodeCert"
	case KindData:
		return "DataCert"
	case KindAuth:
		return "AuthCert"
	case KindFriend:
		return "FriendCert"
	default:
		return "UnknownCert"
	}
}

// Interface prefixes registered in the package-level registry. The
// secondary interface byte distinguishes cert kinds under a shared
// primary interface (0x0001) identifying "certificate" as a datamodel
// family, mirroring the node registry's use of a distinct primary value.
var prefixes = map[Kind]typetag.Tag{
	KindNode:   {PrimaryInterface: 1, SecondaryInterface: 1, ClassID: 1, ClassMajorVersion: 1},
	KindData:   {PrimaryInterface: 1, SecondaryInterface: 2, ClassID: 1, ClassMajorVersion: 1},
	KindAuth:   {PrimaryInterface: 1, SecondaryInterface: 3, ClassID: 1, ClassMajorVersion: 1},
	KindFriend: {PrimaryInterface: 1, SecondaryInterface: 4, ClassID: 1, ClassMajorVersion: 1},
}

// Cert is a certificate of any subtype: the fields common to every
// subtype (owner, targetPublicKeys, constraints, signing/online state)
// plus whatever fields the concrete Kind appends.
type Cert struct {
	tag  typetag.Tag
	kind Kind
	m    *model.Model
}

func newCert(kind Kind, tag typetag.Tag, extra []model.FieldSpec) *Cert {
	specs := append(baseSpecs(), extra...)
	return &Cert{tag: tag, kind: kind, m: model.New(specs)}
}

// NewNodeCert, NewDataCert, NewAuthCert and NewFriendCert construct an
// empty certificate of the given kind with a fresh type tag.
func NewNodeCert() *Cert   { return newCert(KindNode, prefixes[KindNode], nil) }
func NewDataCert() *Cert   { return newCert(KindData, prefixes[KindData], nil) }
func NewAuthCert() *Cert   { return newCert(KindAuth, prefixes[KindAuth], nil) }
func NewFriendCert() *Cert { return newCert(KindFriend, prefixes[KindFriend], friendCertSpecs()) }

// Kind reports the certificate's concrete subtype.
func (c *Cert) Kind() Kind { return c.kind }

// Tag reports the certificate's 6-byte type tag.
func (c *Cert) Tag() typetag.Tag { return c.tag }

// Accepts reports whether c's interface prefix matches want's, the check
// isCertTypeAccepted performs when validating an embedded cert against
// the target type its embedder declares.
func (c *Cert) Accepts(want typetag.Tag) bool {
	return typetag.Accepts(want, c.tag)
}

func mustSet(m *model.Model, name string, v any) {
	if err := m.Set(name, v); err != nil {
		panic(fmt.Sprintf("cert: invalid field %q: %v", name, err))
	}
}

// Field accessors. Setters panic on type/size mismatch — callers build
// certs from already-validated domain values, so a panic here indicates a
// programming error, not routine invalid input (routine invalidity is
// reported by Validate, not by construction).

func (c *Cert) Owner() []byte            { return c.m.MustGetBytes("owner") }
func (c *Cert) SetOwner(pk []byte)       { mustSet(c.m, "owner", pk) }
func (c *Cert) Config() uint16           { v, _ := c.m.Get("config"); u, _ := v.(uint16); return u }
func (c *Cert) SetConfig(v uint16)       { mustSet(c.m, "config", v) }
func (c *Cert) LockedConfig() uint16 {
	v, _ := c.m.Get("lockedConfig")
	u, _ := v.(uint16)
	return u
}
func (c *Cert) SetLockedConfig(v uint16) { mustSet(c.m, "lockedConfig", v) }
func (c *Cert) CreationTime() uint32 {
	v, _ := c.m.Get("creationTime")
	u, _ := v.(uint32)
	return u
}
func (c *Cert) SetCreationTime(v uint32) { mustSet(c.m, "creationTime", v) }
func (c *Cert) ExpireTime() uint32 {
	v, _ := c.m.Get("expireTime")
	u, _ := v.(uint32)
	return u
}
func (c *Cert) SetExpireTime(v uint32) { mustSet(c.m, "expireTime", v) }
func (c *Cert) TargetType() []byte     { return c.m.MustGetBytes("targetType") }
func (c *Cert) SetTargetType(prefix []byte) { mustSet(c.m, "targetType", prefix) }
func (c *Cert) MaxChainLength() uint8 {
	v, _ := c.m.Get("maxChainLength")
	u, _ := v.(uint8)
	return u
}
func (c *Cert) SetMaxChainLength(v uint8) { mustSet(c.m, "maxChainLength", v) }
func (c *Cert) TargetMaxExpireTime() uint32 {
	v, _ := c.m.Get("targetMaxExpireTime")
	u, _ := v.(uint32)
	return u
}
func (c *Cert) SetTargetMaxExpireTime(v uint32) { mustSet(c.m, "targetMaxExpireTime", v) }

// RawMultiSigThreshold returns the declared field value, with 0 meaning
// unset ⟺ single-signer per the invariant in 3.Invariants.
func (c *Cert) RawMultiSigThreshold() uint8 {
	v, ok := c.m.Get("multiSigThreshold")
	if !ok {
		return 0
	}
	u, _ := v.(uint8)
	return u
}
func (c *Cert) SetMultiSigThreshold(v uint8) { mustSet(c.m, "multiSigThreshold", v) }

// Threshold implements signing.Signable.
func (c *Cert) Threshold() int { return int(c.RawMultiSigThreshold()) }

// TargetPublicKeys decodes the (len:u8, key:bytes)* sub-encoding into a
// slice of raw public keys.
func (c *Cert) TargetPublicKeys() [][]byte {
	raw := c.m.MustGetBytes("targetPublicKeys")
	keys, _ := decodeKeyList(raw)
	return keys
}

func (c *Cert) SetTargetPublicKeys(keys [][]byte) {
	mustSet(c.m, "targetPublicKeys", encodeKeyList(keys))
}

// EmbeddedCert decodes and returns the certificate embedded in c, or nil
// if c has no embedded cert (i.e. c is a root cert with Owner set).
func (c *Cert) EmbeddedCert() (*Cert, error) {
	raw := c.m.MustGetBytes("embeddedCert")
	if len(raw) == 0 {
		return nil, nil
	}
	return Decode(raw)
}

func (c *Cert) SetEmbeddedCert(child *Cert) {
	mustSet(c.m, "embeddedCert", child.Export(false, false))
}

func (c *Cert) Constraints() [32]byte {
	v, _ := c.m.Get("constraints")
	b, _ := v.([32]byte)
	return b
}
func (c *Cert) SetConstraints(h [32]byte) { mustSet(c.m, "constraints", h) }

// IsRoot reports whether c has Owner set directly rather than deriving
// its authority from an embedded cert. Per the invariant exactly one of
// {owner, cert embedded} holds.
func (c *Cert) IsRoot() bool {
	_, hasOwner := c.m.Get("owner")
	return hasOwner
}

// Root walks the embed chain down to the cert with Owner set — the
// chain's issuer. Per 3.Cert chain, the issuer is the owner of this cert.
func (c *Cert) Root() (*Cert, error) {
	cur := c
	for !cur.IsRoot() {
		next, err := cur.EmbeddedCert()
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, fmt.Errorf("cert: non-root cert has no embedded cert and no owner")
		}
		cur = next
	}
	return cur, nil
}

// Issuer returns the owner of the chain's root cert.
func (c *Cert) Issuer() ([]byte, error) {
	root, err := c.Root()
	if err != nil {
		return nil, err
	}
	return root.Owner(), nil
}

// ChainLength returns the number of embed levels between c and the root
// (0 if c is itself the root).
func (c *Cert) ChainLength() (int, error) {
	n := 0
	cur := c
	for !cur.IsRoot() {
		next, err := cur.EmbeddedCert()
		if err != nil {
			return 0, err
		}
		if next == nil {
			return 0, fmt.Errorf("cert: non-root cert has no embedded cert and no owner")
		}
		cur = next
		n++
	}
	return n, nil
}

// EligibleSigners implements signing.Signable: a root cert (owner set) is
// signed only by its own owner; any other cert in the chain is signed by
// one of the root's declared targetPublicKeys, per 3.Cert chain.
func (c *Cert) EligibleSigners() [][]byte {
	if c.IsRoot() {
		return [][]byte{c.Owner()}
	}
	root, err := c.Root()
	if err != nil {
		return nil
	}
	return root.TargetPublicKeys()
}

// Hash implements signing.Signable via the Model/Codec layer's hash()
// operation: only hashable, non-transient fields contribute.
func (c *Cert) Hash() [32]byte { return c.m.Hash() }

// Signatures decodes the signature field's (targetKeyIndex:u8,
// signatureBytes)* sub-encoding against the eligible signer list, whose
// key lengths determine each signature's length.
func (c *Cert) Signatures() []signing.IndexedSignature {
	raw := c.m.MustGetBytes("signature")
	sigs, _ := decodeSignatures(raw, c.EligibleSigners())
	return sigs
}

// AppendSignature implements signing.Signable.
func (c *Cert) AppendSignature(sig signing.IndexedSignature) {
	existing := c.Signatures()
	existing = append(existing, sig)
	mustSet(c.m, "signature", encodeSignatures(existing))
}

// Sign advances c's signing state machine by one signature from signer.
func (c *Cert) Sign(signer crypto.Signer) error { return signing.Sign(c, signer) }

// SignState reports c's current position in the UNSIGNED/PARTIAL/SIGNED
// state machine.
func (c *Cert) SignState() signing.State { return signing.CurrentState(c) }

// Verify cryptographically checks every signature currently attached to
// c. requireComplete additionally requires the threshold to be met.
func (c *Cert) Verify(requireComplete bool) (bool, error) { return signing.Verify(c, requireComplete) }

// Export serializes c's type tag followed by its field records.
func (c *Cert) Export(includeTransient, includeTransientNonHashable bool) []byte {
	tag := c.tag.Bytes()
	body := c.m.Export(includeTransient, includeTransientNonHashable)
	out := make([]byte, 0, len(tag)+len(body))
	out = append(out, tag[:]...)
	out = append(out, body...)
	return out
}

// registry dispatches Decode by interface prefix, populated at package
// init time for every registered Kind.
var registry = typetag.NewRegistry[*Cert]()

func init() {
	registry.Register(prefixes[KindNode].Prefix(), func(tag typetag.Tag, body []byte) (*Cert, error) {
		c := newCert(KindNode, tag, nil)
		return c, c.m.Load(body, true)
	})
	registry.Register(prefixes[KindData].Prefix(), func(tag typetag.Tag, body []byte) (*Cert, error) {
		c := newCert(KindData, tag, nil)
		return c, c.m.Load(body, true)
	})
	registry.Register(prefixes[KindAuth].Prefix(), func(tag typetag.Tag, body []byte) (*Cert, error) {
		c := newCert(KindAuth, tag, nil)
		return c, c.m.Load(body, true)
	})
	registry.Register(prefixes[KindFriend].Prefix(), func(tag typetag.Tag, body []byte) (*Cert, error) {
		c := newCert(KindFriend, tag, friendCertSpecs())
		return c, c.m.Load(body, true)
	})
}

// Decode reads a type tag from image and dispatches to the registered
// decoder for its interface prefix.
func Decode(image []byte) (*Cert, error) { return registry.Decode(image) }

// encodeKeyList encodes a (len:u8, key:bytes)* sequence.
func encodeKeyList(keys [][]byte) []byte {
	var out []byte
	for _, k := range keys {
		out = append(out, byte(len(k)))
		out = append(out, k...)
	}
	return out
}

func decodeKeyList(raw []byte) ([][]byte, error) {
	var keys [][]byte
	offset := 0
	for offset < len(raw) {
		n := int(raw[offset])
		offset++
		if offset+n > len(raw) {
			return nil, fmt.Errorf("cert: truncated targetPublicKeys list")
		}
		keys = append(keys, append([]byte(nil), raw[offset:offset+n]...))
		offset += n
	}
	return keys, nil
}

// encodeSignatures encodes a (targetKeyIndex:u8, signatureBytes)*
// sequence; signature length is implicit from the scheme of the public
// key the index refers to, so no explicit length prefix is stored.
func encodeSignatures(sigs []signing.IndexedSignature) []byte {
	var out []byte
	for _, s := range sigs {
		out = append(out, s.Index)
		out = append(out, s.Signature...)
	}
	return out
}

func decodeSignatures(raw []byte, eligible [][]byte) ([]signing.IndexedSignature, error) {
	var sigs []signing.IndexedSignature
	offset := 0
	for offset < len(raw) {
		idx := raw[offset]
		offset++
		if int(idx) >= len(eligible) {
			return nil, fmt.Errorf("cert: signature references out-of-range key index %d", idx)
		}
		pk := eligible[idx]
		n, err := crypto.SignatureLength(pk)
		if err != nil {
			return nil, err
		}
		if offset+n > len(raw) {
			return nil, fmt.Errorf("cert: truncated signature for index %d", idx)
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
