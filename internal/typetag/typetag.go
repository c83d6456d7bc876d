// Package typetag implements the 6-byte interface tag that prefixes every
// node and certificate wire image, and the registry that maps a tag's
// 4-byte interface prefix to the decoder for that concrete type. This
// replaces the dynamic-dispatch class hierarchy of the original system
// with a lookup table populated once at startup, per the design notes:
// "replace dynamic dispatch with an interface-prefix lookup table mapping
// a 4-byte prefix to a decoder."
package typetag

import (
	"encoding/binary"
	"fmt"
)

// Size is the fixed length of a type tag.
const Size = 6

// Tag is the 6-byte header carried by every datamodel image:
// primaryInterface (2B BE) ‖ secondaryInterface (2B BE) ‖ classId (1B) ‖
// classMajorVersion (1B). Two tags are considered the same *interface* for
// acceptance purposes when their first four bytes (primary+secondary)
// match, regardless of classId/classMajorVersion.
type Tag struct {
	PrimaryInterface   uint16
	SecondaryInterface uint16
	ClassID            uint8
	ClassMajorVersion  uint8
}

// Bytes encodes the tag to its 6-byte wire form.
func (t Tag) Bytes() [Size]byte {
	var b [Size]byte
	binary.BigEndian.PutUint16(b[0:2], t.PrimaryInterface)
	binary.BigEndian.PutUint16(b[2:4], t.SecondaryInterface)
	b[4] = t.ClassID
	b[5] = t.ClassMajorVersion
	return b
}

// Prefix returns the 4-byte interface-match prefix used by
// isCertTypeAccepted-style checks.
func (t Tag) Prefix() [4]byte {
	full := t.Bytes()
	var p [4]byte
	copy(p[:], full[:4])
	return p
}

// Decode reads a Tag from the first 6 bytes of image.
func Decode(image []byte) (Tag, error) {
	if len(image) < Size {
		return Tag{}, fmt.Errorf("typetag: image too short: %d bytes", len(image))
	}
	return Tag{
		PrimaryInterface:   binary.BigEndian.Uint16(image[0:2]),
		SecondaryInterface: binary.BigEndian.Uint16(image[2:4]),
		ClassID:            image[4],
		ClassMajorVersion:  image[5],
	}, nil
}

// Accepts reports whether candidate's interface prefix matches want's —
// the 4-byte comparison used by isCertTypeAccepted-style checks, which
// ignore classId/classMajorVersion.
func Accepts(want, candidate Tag) bool {
	return want.Prefix() == candidate.Prefix()
}

// Decoder decodes the field records following a type tag into a concrete
// value of the registry's domain (a node or a certificate).
type Decoder[T any] func(tag Tag, body []byte) (T, error)

// Registry dispatches decoding by a type tag's 4-byte interface prefix.
// One Registry instance is built at process startup per domain (nodes,
// certificates) and never mutated afterward.
type Registry[T any] struct {
	decoders map[[4]byte]Decoder[T]
}

// NewRegistry creates an empty Registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{decoders: make(map[[4]byte]Decoder[T])}
}

// Register binds prefix to decoder. Registering the same prefix twice
// panics — it indicates two concrete types claiming the same interface,
// a startup-time programming error.
func (r *Registry[T]) Register(prefix [4]byte, decoder Decoder[T]) {
	if _, exists := r.decoders[prefix]; exists {
		panic(fmt.Sprintf("typetag: prefix %x already registered", prefix))
	}
	r.decoders[prefix] = decoder
}

// Decode reads the tag from image and dispatches to the registered
// decoder for its prefix.
func (r *Registry[T]) Decode(image []byte) (T, error) {
	var zero T
	tag, err := Decode(image)
	if err != nil {
		return zero, err
	}
	decoder, ok := r.decoders[tag.Prefix()]
	if !ok {
		return zero, fmt.Errorf("typetag: no decoder registered for prefix %x", tag.Prefix())
	}
	return decoder(tag, image[Size:])
}
