// Package hashing implements the deterministic structured hash used
// throughout odingraph to derive node and certificate content identifiers,
// constraints hashes, and destroy-hashes.
//
// The hash must be byte-stable across implementations: it determines id1,
// constraints, and destroy-hash matching. H hashes a heterogeneous sequence
// of arguments by tagging and length-prefixing each element, concatenating
// the encodings, and running keccak-256 over the result.
package hashing

import (
	"encoding/binary"
	"math"

	"github.com/ethereum/go-ethereum/crypto"
)

// Size is the length in bytes of every digest produced by H.
const Size = 32

// tag identifies the kind of an encoded element. Tags are part of the
// byte-stable wire contract: changing a tag value changes every existing
// hash.
type tag byte

const (
	tagBytes tag = iota
	tagString
	tagUint8
	tagUint16BE
	tagUint16LE
	tagUint24BE
	tagUint32BE
	tagBool
	tagUndefined
	tagList
)

// Undefined is passed as an argument to H to represent an absent/optional
// field. It encodes as its tag plus a zero length, never as a dereferenced
// value.
type Undefined struct{}

// Uint16LE wraps a uint16 so H encodes it little-endian (used for transient
// user-bits fields, per the data model's config-bit encoding).
type Uint16LE uint16

// Uint24 wraps a uint32 so H encodes only its low 24 bits, big-endian.
type Uint24 uint32

// List wraps a nested heterogeneous sequence. Nested sequences are hashed
// recursively to a 32-byte digest first, and that digest (not the raw
// encoding) is what gets embedded in the parent encoding.
type List []any

// H computes the 32-byte keccak-256 digest of the tagged, length-prefixed
// encoding of args. Supported element types: []byte, string, uint8, uint16,
// Uint16LE, Uint24, uint32, bool, nil/Undefined{}, List (nested sequence).
// Any other type is a programmer error and panics — H is only ever called
// with the data model's own declared field types.
func H(args ...any) [Size]byte {
	enc := encodeArgs(args)
	return [Size]byte(crypto.Keccak256Hash(enc))
}

// Bytes is a convenience wrapper returning the digest as a slice.
func Bytes(args ...any) []byte {
	d := H(args...)
	return d[:]
}

func encodeArgs(args []any) []byte {
	var out []byte
	for _, a := range args {
		out = append(out, encodeOne(a)...)
	}
	return out
}

func encodeOne(a any) []byte {
	switch v := a.(type) {
	case nil, Undefined:
		return lenPrefixed(tagUndefined, nil)
	case []byte:
		return lenPrefixed(tagBytes, v)
	case string:
		return lenPrefixed(tagString, []byte(v))
	case bool:
		b := byte(0)
		if v {
			b = 1
		}
		return lenPrefixed(tagBool, []byte{b})
	case uint8:
		return lenPrefixed(tagUint8, []byte{v})
	case uint16:
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, v)
		return lenPrefixed(tagUint16BE, buf)
	case Uint16LE:
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(v))
		return lenPrefixed(tagUint16LE, buf)
	case Uint24:
		buf := []byte{byte(v >> 16), byte(v >> 8), byte(v)}
		return lenPrefixed(tagUint24BE, buf)
	case uint32:
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, v)
		return lenPrefixed(tagUint32BE, buf)
	case int:
		if v < 0 || v > math.MaxUint32 {
			panic("hashing: int argument out of uint32 range")
		}
		return encodeOne(uint32(v))
	case List:
		digest := H(v...)
		return lenPrefixed(tagList, digest[:])
	default:
		panic("hashing: unsupported argument type in H()")
	}
}

// lenPrefixed emits tag ‖ bigEndianLen(payload) ‖ payload. The length
// prefix is 4 bytes big-endian, wide enough for any field this system
// declares (BYTES fields are size-capped well under 2^32).
func lenPrefixed(t tag, payload []byte) []byte {
	out := make([]byte, 0, 1+4+len(payload))
	out = append(out, byte(t))
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	out = append(out, lenBuf[:]...)
	out = append(out, payload...)
	return out
}
