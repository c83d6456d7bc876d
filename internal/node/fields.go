// Package node implements the node layer: the content-addressed entity
// that carries a parent pointer, an optional embedded certificate
// authorizing it, an optional embedded child datamodel, and — for the
// License subtype — the fields the query processor's licensing rules
// consume. Signing, validation, constraints and destroy-hashes follow the
// same pattern as the certificate layer (internal/cert), reusing the
// shared internal/signing state machine.
package node

import "github.com/odingraph/odingraph/internal/model"

// Field indices common to every node, data or license alike.
const (
	FieldParentID            uint8 = 0
	FieldOwner               uint8 = 1
	FieldRefID               uint8 = 2
	FieldEmbedded            uint8 = 3
	FieldCert                uint8 = 4
	FieldCreationTime        uint8 = 5
	FieldExpireTime          uint8 = 6
	FieldDifficulty          uint8 = 7
	FieldChildMinDifficulty  uint8 = 8
	FieldRegion              uint8 = 9
	FieldJurisdiction        uint8 = 10
	FieldNetwork             uint8 = 11
	FieldLicenseMinDistance  uint8 = 12
	FieldLicenseMaxDistance  uint8 = 13
	FieldConfig              uint8 = 14
	FieldBlobHash            uint8 = 15
	FieldData                uint8 = 16
	FieldID2                 uint8 = 17
	FieldCopiedID1           uint8 = 18
	FieldCopiedParentID      uint8 = 19
	FieldCopiedSignature     uint8 = 20
	FieldSignature           uint8 = 21
	FieldTransientBits       uint8 = 22

	FieldSubtypeBase uint8 = 23
)

func baseSpecs() []model.FieldSpec {
	return []model.FieldSpec{
		{Name: "parentId", Type: model.BYTE32, Index: FieldParentID},
		{Name: "owner", Type: model.BYTES, Index: FieldOwner, MaxSize: 32},
		{Name: "refId", Type: model.BYTE32, Index: FieldRefID},
		{Name: "embedded", Type: model.BYTES, Index: FieldEmbedded, MaxSize: 1 << 20},
		{Name: "cert", Type: model.BYTES, Index: FieldCert, MaxSize: 1 << 20},
		{Name: "creationTime", Type: model.UINT32BE, Index: FieldCreationTime},
		{Name: "expireTime", Type: model.UINT32BE, Index: FieldExpireTime},
		{Name: "difficulty", Type: model.UINT24BE, Index: FieldDifficulty},
		{Name: "childMinDifficulty", Type: model.UINT24BE, Index: FieldChildMinDifficulty},
		{Name: "region", Type: model.STRING, Index: FieldRegion, MaxSize: 8},
		{Name: "jurisdiction", Type: model.STRING, Index: FieldJurisdiction, MaxSize: 8},
		{Name: "network", Type: model.STRING, Index: FieldNetwork, MaxSize: 16},
		{Name: "licenseMinDistance", Type: model.UINT16BE, Index: FieldLicenseMinDistance},
		{Name: "licenseMaxDistance", Type: model.UINT16BE, Index: FieldLicenseMaxDistance},
		{Name: "config", Type: model.UINT16BE, Index: FieldConfig},
		{Name: "blobHash", Type: model.BYTE32, Index: FieldBlobHash},
		{Name: "data", Type: model.BYTES, Index: FieldData, MaxSize: 1 << 16},
		{Name: "id2", Type: model.BYTE32, Index: FieldID2},
		{Name: "copiedId1", Type: model.BYTE32, Index: FieldCopiedID1},
		{Name: "copiedParentId", Type: model.BYTE32, Index: FieldCopiedParentID},
		{Name: "copiedSignature", Type: model.BYTES, Index: FieldCopiedSignature, MaxSize: 8192, NonHashable: true},
		{Name: "signature", Type: model.BYTES, Index: FieldSignature, MaxSize: 8192, NonHashable: true},
		{Name: "transientBits", Type: model.UINT16BE, Index: FieldTransientBits, Transient: true},
	}
}

// Config bits packed into the node's config field.
const (
	bitIsSpecial uint16 = 1 << iota
	bitIsPrivate
	bitDisallowRightsByAssociation
	bitBeginRestrictiveWriteMode
	bitEndRestrictiveWriteMode
	bitIndestructible
)

// Transient-bit flags packed into transientBits: runtime/storage metadata
// that must never affect id1.
const (
	bitOnline uint16 = 1 << iota
)
