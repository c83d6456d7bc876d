package node

import "github.com/odingraph/odingraph/internal/model"

// Extra field indices the License subtype appends after FieldSubtypeBase.
const (
	fieldLicenseTargetPublicKey uint8 = iota
	fieldLicenseExtensions
	fieldLicenseFriendLevel
	fieldLicenseParentPathHash
	fieldLicenseBits
)

// License bit flags packed into the licenseBits field.
const (
	bitDisallowRetroLicensing uint16 = 1 << iota
	bitRestrictiveModeWriter
	bitRestrictiveModeManager
	bitDisallowParentLicensing
)

func licenseSpecs() []model.FieldSpec {
	return []model.FieldSpec{
		{Name: "licenseTargetPublicKey", Type: model.BYTES, Index: FieldSubtypeBase + fieldLicenseTargetPublicKey, MaxSize: 32},
		{Name: "licenseExtensions", Type: model.BYTES, Index: FieldSubtypeBase + fieldLicenseExtensions, MaxSize: 4096},
		{Name: "licenseFriendLevel", Type: model.UINT8, Index: FieldSubtypeBase + fieldLicenseFriendLevel},
		{Name: "licenseParentPathHash", Type: model.BYTE32, Index: FieldSubtypeBase + fieldLicenseParentPathHash},
		{Name: "licenseBits", Type: model.UINT16BE, Index: FieldSubtypeBase + fieldLicenseBits},
	}
}

// LicenseTargetPublicKey is the public key the license grants access to;
// an empty value means the license is not restricted to a specific key.
func (n *Node) LicenseTargetPublicKey() []byte { return n.m.MustGetBytes("licenseTargetPublicKey") }
func (n *Node) SetLicenseTargetPublicKey(pk []byte) {
	mustSet(n.m, "licenseTargetPublicKey", pk)
}

func (n *Node) LicenseExtensions() []byte { return n.m.MustGetBytes("licenseExtensions") }
func (n *Node) SetLicenseExtensions(v []byte) { mustSet(n.m, "licenseExtensions", v) }

func (n *Node) LicenseFriendLevel() uint8 {
	v, _ := n.m.Get("licenseFriendLevel")
	u, _ := v.(uint8)
	return u
}
func (n *Node) SetLicenseFriendLevel(v uint8) { mustSet(n.m, "licenseFriendLevel", v) }

// LicenseParentPathHash, when non-zero, locks a license to one ownership
// path: the hash of the owners of the nodes below the node refId points
// at, down to and including the licensed node, in root-to-leaf order.
func (n *Node) LicenseParentPathHash() [32]byte { return getBytes32(n.m, "licenseParentPathHash") }
func (n *Node) SetLicenseParentPathHash(v [32]byte) {
	mustSet(n.m, "licenseParentPathHash", v)
}

func (n *Node) licenseBits() uint16 {
	v, ok := n.m.Get("licenseBits")
	if !ok {
		return 0
	}
	u, _ := v.(uint16)
	return u
}
func (n *Node) setLicenseBit(bit uint16, on bool) {
	cur := n.licenseBits()
	if on {
		cur |= bit
	} else {
		cur &^= bit
	}
	mustSet(n.m, "licenseBits", cur)
}

func (n *Node) DisallowRetroLicensing() bool { return n.licenseBits()&bitDisallowRetroLicensing != 0 }
func (n *Node) SetDisallowRetroLicensing(v bool) {
	n.setLicenseBit(bitDisallowRetroLicensing, v)
}
func (n *Node) RestrictiveModeWriter() bool { return n.licenseBits()&bitRestrictiveModeWriter != 0 }
func (n *Node) SetRestrictiveModeWriter(v bool) {
	n.setLicenseBit(bitRestrictiveModeWriter, v)
}
func (n *Node) RestrictiveModeManager() bool { return n.licenseBits()&bitRestrictiveModeManager != 0 }
func (n *Node) SetRestrictiveModeManager(v bool) {
	n.setLicenseBit(bitRestrictiveModeManager, v)
}
func (n *Node) DisallowParentLicensing() bool {
	return n.licenseBits()&bitDisallowParentLicensing != 0
}
func (n *Node) SetDisallowParentLicensing(v bool) {
	n.setLicenseBit(bitDisallowParentLicensing, v)
}

// GrantsTo reports whether this license node grants access to publicKey:
// an empty LicenseTargetPublicKey grants to anyone, otherwise the key must
// match exactly.
func (n *Node) GrantsTo(publicKey []byte) bool {
	target := n.LicenseTargetPublicKey()
	if len(target) == 0 {
		return true
	}
	return string(target) == string(publicKey)
}
