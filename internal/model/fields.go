// Package model implements the typed field container and stable on-wire
// image shared by every node and certificate: declared fields with a
// fixed index, a wire encoding, an optional size cap, and flags marking a
// field transient (excluded from storage/hash) or non-hashable (present on
// the wire but excluded from the content hash, e.g. signatures).
package model

import "fmt"

// FieldType enumerates the wire encodings a Model field may declare.
type FieldType uint8

const (
	UINT8 FieldType = iota
	UINT16BE
	UINT16LE
	UINT24BE
	UINT32BE
	BYTE32
	BYTES
	STRING
)

func (t FieldType) String() string {
	switch t {
	case UINT8:
		return "UINT8"
	case UINT16BE:
		return "UINT16BE"
	case UINT16LE:
		return "UINT16LE"
	case UINT24BE:
		return "UINT24BE"
	case UINT32BE:
		return "UINT32BE"
	case BYTE32:
		return "BYTE32"
	case BYTES:
		return "BYTES"
	case STRING:
		return "STRING"
	default:
		return fmt.Sprintf("FieldType(%d)", uint8(t))
	}
}

// FieldSpec declares one field of a Model.
type FieldSpec struct {
	Name string
	Type FieldType
	// Index is the field's position on the wire. Export always emits
	// fields in ascending Index order; Load keys decoded records by Index.
	Index uint8
	// MaxSize caps BYTES/STRING payload length. Zero means unbounded.
	MaxSize int
	// Transient fields are excluded from both the wire image used for
	// storage round-tripping via Hash, and — unless explicitly requested —
	// from Export.
	Transient bool
	// NonHashable fields travel on the wire (e.g. signature bytes) but must
	// never affect the content hash. Zero value (false) means the field
	// participates in Hash, which is the common case.
	NonHashable bool
}

func fixedWidth(t FieldType) (int, bool) {
	switch t {
	case UINT8:
		return 1, true
	case UINT16BE, UINT16LE:
		return 2, true
	case UINT24BE:
		return 3, true
	case UINT32BE:
		return 4, true
	case BYTE32:
		return 32, true
	default:
		return 0, false
	}
}
