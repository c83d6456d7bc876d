package model

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/odingraph/odingraph/internal/hashing"
)

// Model is a declared set of fields plus the values currently loaded into
// it. The same FieldSpec slice is shared by every instance of a given
// datamodel (node, certificate, ...); Model only holds per-instance state.
type Model struct {
	specs   []FieldSpec
	byName  map[string]*FieldSpec
	byIndex map[uint8]*FieldSpec
	values  map[string]any
}

// New creates a Model bound to the given field declarations. specs must
// have unique Name and unique Index.
func New(specs []FieldSpec) *Model {
	m := &Model{
		specs:   specs,
		byName:  make(map[string]*FieldSpec, len(specs)),
		byIndex: make(map[uint8]*FieldSpec, len(specs)),
		values:  make(map[string]any),
	}
	for i := range specs {
		s := &specs[i]
		m.byName[s.Name] = s
		m.byIndex[s.Index] = s
	}
	return m
}

// Set validates and stores value under the named field. Value must match
// the field's Go representation: uint8 for UINT8, uint16 for
// UINT16BE/UINT16LE, uint32 for UINT24BE/UINT32BE, [32]byte for BYTE32,
// []byte for BYTES, string for STRING.
func (m *Model) Set(name string, value any) error {
	spec, ok := m.byName[name]
	if !ok {
		return &DecodeError{Field: name, Reason: "not declared on this model"}
	}
	if err := m.validate(spec, value); err != nil {
		return err
	}
	m.values[name] = value
	return nil
}

// Get returns the stored value for name, if any.
func (m *Model) Get(name string) (any, bool) {
	v, ok := m.values[name]
	return v, ok
}

// MustGetBytes returns the BYTES/BYTE32/STRING field's value as a byte
// slice, or nil if unset. Convenience used throughout cert/node code that
// treats several field types uniformly as raw bytes.
func (m *Model) MustGetBytes(name string) []byte {
	v, ok := m.values[name]
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case []byte:
		return t
	case [32]byte:
		return t[:]
	case string:
		return []byte(t)
	default:
		return nil
	}
}

func (m *Model) validate(spec *FieldSpec, value any) error {
	switch spec.Type {
	case UINT8:
		if _, ok := value.(uint8); !ok {
			return &DecodeError{Field: spec.Name, Reason: "expected uint8"}
		}
	case UINT16BE, UINT16LE:
		if _, ok := value.(uint16); !ok {
			return &DecodeError{Field: spec.Name, Reason: "expected uint16"}
		}
	case UINT24BE:
		v, ok := value.(uint32)
		if !ok {
			return &DecodeError{Field: spec.Name, Reason: "expected uint32 (UINT24BE)"}
		}
		if v > 0xFFFFFF {
			return &FieldSizeExceeded{Field: spec.Name, Size: 4, MaxSize: 3}
		}
	case UINT32BE:
		if _, ok := value.(uint32); !ok {
			return &DecodeError{Field: spec.Name, Reason: "expected uint32"}
		}
	case BYTE32:
		if _, ok := value.([32]byte); !ok {
			return &DecodeError{Field: spec.Name, Reason: "expected [32]byte"}
		}
	case BYTES:
		v, ok := value.([]byte)
		if !ok {
			return &DecodeError{Field: spec.Name, Reason: "expected []byte"}
		}
		if spec.MaxSize > 0 && len(v) > spec.MaxSize {
			return &FieldSizeExceeded{Field: spec.Name, Size: len(v), MaxSize: spec.MaxSize}
		}
	case STRING:
		v, ok := value.(string)
		if !ok {
			return &DecodeError{Field: spec.Name, Reason: "expected string"}
		}
		if spec.MaxSize > 0 && len(v) > spec.MaxSize {
			return &FieldSizeExceeded{Field: spec.Name, Size: len(v), MaxSize: spec.MaxSize}
		}
	default:
		return &DecodeError{Field: spec.Name, Reason: "unknown field type"}
	}
	return nil
}

// orderedSet fields currently populated, ascending by Index.
func (m *Model) populatedInOrder() []*FieldSpec {
	out := make([]*FieldSpec, 0, len(m.values))
	for name := range m.values {
		out = append(out, m.byName[name])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Export serializes populated fields in ascending Index order as
// (fieldIndex:u8, length:uvarint, payload) records. Transient fields are
// omitted unless includeTransient is true, except that a field which is
// both transient and non-hashable is also included when
// includeTransientNonHashable is true. Non-transient fields are always
// exported, whatever the flags.
func (m *Model) Export(includeTransient, includeTransientNonHashable bool) []byte {
	var out []byte
	for _, spec := range m.populatedInOrder() {
		if spec.Transient {
			if !(includeTransient || (spec.NonHashable && includeTransientNonHashable)) {
				continue
			}
		}
		payload := m.encodeField(spec)
		out = append(out, encodeRecord(spec.Index, payload)...)
	}
	return out
}

func encodeRecord(index uint8, payload []byte) []byte {
	lenBuf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(lenBuf, uint64(len(payload)))
	rec := make([]byte, 0, 1+n+len(payload))
	rec = append(rec, index)
	rec = append(rec, lenBuf[:n]...)
	rec = append(rec, payload...)
	return rec
}

func (m *Model) encodeField(spec *FieldSpec) []byte {
	v := m.values[spec.Name]
	switch spec.Type {
	case UINT8:
		return []byte{v.(uint8)}
	case UINT16BE:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, v.(uint16))
		return b
	case UINT16LE:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, v.(uint16))
		return b
	case UINT24BE:
		x := v.(uint32)
		return []byte{byte(x >> 16), byte(x >> 8), byte(x)}
	case UINT32BE:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, v.(uint32))
		return b
	case BYTE32:
		arr := v.([32]byte)
		return arr[:]
	case BYTES:
		return v.([]byte)
	case STRING:
		return []byte(v.(string))
	default:
		return nil
	}
}

// Load decodes image into m, replacing any previously set values.
// preserveTransient, when false, drops any transient field records found
// in the image rather than loading them — used when re-hydrating a node
// for storage where transient state (e.g. online status) must not survive
// a round trip started from another store.
func (m *Model) Load(image []byte, preserveTransient bool) error {
	m.values = make(map[string]any)
	offset := 0
	for offset < len(image) {
		if offset+1 > len(image) {
			return &DecodeError{Field: "<record>", Reason: "truncated field index"}
		}
		index := image[offset]
		offset++

		length, n := binary.Uvarint(image[offset:])
		if n <= 0 {
			return &DecodeError{Field: fmt.Sprintf("index:%d", index), Reason: "invalid length varint"}
		}
		offset += n

		if offset+int(length) > len(image) {
			return &DecodeError{Field: fmt.Sprintf("index:%d", index), Reason: "truncated payload"}
		}
		payload := image[offset : offset+int(length)]
		offset += int(length)

		spec, ok := m.byIndex[index]
		if !ok {
			return &UnknownField{Index: index}
		}
		if spec.Transient && !preserveTransient {
			continue
		}

		value, err := decodeField(spec, payload)
		if err != nil {
			return err
		}
		m.values[spec.Name] = value
	}
	return nil
}

func decodeField(spec *FieldSpec, payload []byte) (any, error) {
	if width, fixed := fixedWidth(spec.Type); fixed && len(payload) != width {
		return nil, &FieldSizeExceeded{Field: spec.Name, Size: len(payload), MaxSize: width}
	}
	if spec.MaxSize > 0 && (spec.Type == BYTES || spec.Type == STRING) && len(payload) > spec.MaxSize {
		return nil, &FieldSizeExceeded{Field: spec.Name, Size: len(payload), MaxSize: spec.MaxSize}
	}

	switch spec.Type {
	case UINT8:
		return payload[0], nil
	case UINT16BE:
		return binary.BigEndian.Uint16(payload), nil
	case UINT16LE:
		return binary.LittleEndian.Uint16(payload), nil
	case UINT24BE:
		return uint32(payload[0])<<16 | uint32(payload[1])<<8 | uint32(payload[2]), nil
	case UINT32BE:
		return binary.BigEndian.Uint32(payload), nil
	case BYTE32:
		var arr [32]byte
		copy(arr[:], payload)
		return arr, nil
	case BYTES:
		return append([]byte(nil), payload...), nil
	case STRING:
		return string(payload), nil
	default:
		return nil, &DecodeError{Field: spec.Name, Reason: "unknown field type"}
	}
}

// Hash hashes only fields where NonHashable is false and Transient is
// false, in ascending Index order, via hashing.H. Each field contributes
// its index (so reordering two fields of the same value never collides)
// followed by its value in the type H already understands; BYTE32 and
// UINT24BE values are translated to the hashing package's wrapper types.
func (m *Model) Hash() [32]byte {
	var args []any
	for _, spec := range m.populatedInOrder() {
		if spec.Transient || spec.NonHashable {
			continue
		}
		args = append(args, uint8(spec.Index), hashable(spec, m.values[spec.Name]))
	}
	return hashing.H(args...)
}

func hashable(spec *FieldSpec, v any) any {
	switch spec.Type {
	case UINT16LE:
		return hashing.Uint16LE(v.(uint16))
	case UINT24BE:
		return hashing.Uint24(v.(uint32))
	case BYTE32:
		arr := v.([32]byte)
		return arr[:]
	default:
		return v
	}
}
