// Package cert implements the certificate layer: the signing state
// machine, constraints hashing, online/dynamic status propagation, and
// destroy-hash computation shared by every certificate subtype (node
// certs, data certs, auth certs, friend certs). A Cert wraps a
// model.Model declaring the fields common to every subtype; concrete
// subtypes append their own fields at higher indices and register a
// decoder under their 4-byte interface prefix.
package cert

import "github.com/odingraph/odingraph/internal/model"

// Field indices shared by every certificate subtype. Subtype-specific
// fields start at FieldSubtypeBase.
const (
	FieldOwner              uint8 = 0
	FieldTargetPublicKeys   uint8 = 1
	FieldConfig             uint8 = 2
	FieldLockedConfig       uint8 = 3
	FieldCreationTime       uint8 = 4
	FieldExpireTime         uint8 = 5
	FieldEmbeddedCert       uint8 = 6
	FieldConstraints        uint8 = 7
	FieldTargetType         uint8 = 8
	FieldMaxChainLength     uint8 = 9
	FieldMultiSigThreshold  uint8 = 10
	FieldTargetMaxExpireTime uint8 = 11
	FieldSignature          uint8 = 12
	FieldOnlineBits         uint8 = 13

	FieldSubtypeBase uint8 = 14
)

// baseSpecs returns the FieldSpec declarations shared by every
// certificate subtype. Concrete subtypes append their own specs after
// this slice.
func baseSpecs() []model.FieldSpec {
	return []model.FieldSpec{
		{Name: "owner", Type: model.BYTES, Index: FieldOwner, MaxSize: 32},
		{Name: "targetPublicKeys", Type: model.BYTES, Index: FieldTargetPublicKeys, MaxSize: 4096},
		{Name: "config", Type: model.UINT16BE, Index: FieldConfig},
		{Name: "lockedConfig", Type: model.UINT16BE, Index: FieldLockedConfig},
		{Name: "creationTime", Type: model.UINT32BE, Index: FieldCreationTime},
		{Name: "expireTime", Type: model.UINT32BE, Index: FieldExpireTime},
		{Name: "embeddedCert", Type: model.BYTES, Index: FieldEmbeddedCert, MaxSize: 1 << 20},
		{Name: "constraints", Type: model.BYTE32, Index: FieldConstraints},
		{Name: "targetType", Type: model.BYTES, Index: FieldTargetType, MaxSize: 6},
		{Name: "maxChainLength", Type: model.UINT8, Index: FieldMaxChainLength},
		{Name: "multiSigThreshold", Type: model.UINT8, Index: FieldMultiSigThreshold},
		{Name: "targetMaxExpireTime", Type: model.UINT32BE, Index: FieldTargetMaxExpireTime},
		{Name: "signature", Type: model.BYTES, Index: FieldSignature, MaxSize: 8192, NonHashable: true},
		{Name: "onlineBits", Type: model.UINT16BE, Index: FieldOnlineBits, Transient: true},
	}
}

// Online status bits packed into the onlineBits field.
const (
	bitHasOnlineValidation uint16 = 1 << iota
	bitOnlineValidated
	bitHasOnlineCert
	bitOnlineCertOnline
	bitOnlineRevoked
)
