package model

import (
	"bytes"
	"errors"
	"testing"
)

func testSpecs() []FieldSpec {
	return []FieldSpec{
		{Name: "kind", Type: UINT8, Index: 0},
		{Name: "parentId", Type: BYTE32, Index: 1},
		{Name: "difficulty", Type: UINT24BE, Index: 2},
		{Name: "config", Type: UINT16LE, Index: 3, Transient: true},
		{Name: "data", Type: BYTES, Index: 4, MaxSize: 16},
		{Name: "label", Type: STRING, Index: 5, MaxSize: 8},
		{Name: "signature", Type: BYTES, Index: 6, NonHashable: true},
	}
}

func sampleModel(t *testing.T) *Model {
	t.Helper()
	m := New(testSpecs())
	mustSet(t, m, "kind", uint8(3))
	mustSet(t, m, "parentId", [32]byte{1, 2, 3})
	mustSet(t, m, "difficulty", uint32(1024))
	mustSet(t, m, "config", uint16(7))
	mustSet(t, m, "data", []byte("payload"))
	mustSet(t, m, "label", "node")
	mustSet(t, m, "signature", []byte("sig-bytes"))
	return m
}

func mustSet(t *testing.T, m *Model, name string, v any) {
	t.Helper()
	if err := m.Set(name, v); err != nil {
		t.Fatalf("Set(%s): %v", name, err)
	}
}

func TestRoundTripWithTransient(t *testing.T) {
	original := sampleModel(t)
	image := original.Export(true, true)

	decoded := New(testSpecs())
	if err := decoded.Load(image, true); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if decoded.Hash() != original.Hash() {
		t.Fatalf("hash mismatch after round trip")
	}
	got, _ := decoded.Get("label")
	if got != "node" {
		t.Fatalf("label = %v, want node", got)
	}
}

func TestLoadDropsTransientWhenNotPreserved(t *testing.T) {
	original := sampleModel(t)
	image := original.Export(true, true)

	decoded := New(testSpecs())
	if err := decoded.Load(image, false); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := decoded.Get("config"); ok {
		t.Fatalf("transient field survived Load(preserveTransient=false)")
	}
}

func TestExportOmitsTransientByDefault(t *testing.T) {
	m := sampleModel(t)
	image := m.Export(false, false)

	decoded := New(testSpecs())
	if err := decoded.Load(image, true); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := decoded.Get("config"); ok {
		t.Fatalf("transient field present in non-transient export")
	}
	if _, ok := decoded.Get("signature"); !ok {
		t.Fatalf("non-transient signature field missing from export")
	}
}

func TestHashExcludesTransientAndNonHashableFields(t *testing.T) {
	base := sampleModel(t)
	baseHash := base.Hash()

	mutated := sampleModel(t)
	mustSet(t, mutated, "config", uint16(999))
	mustSet(t, mutated, "signature", []byte("a-totally-different-signature"))

	if mutated.Hash() != baseHash {
		t.Fatalf("changing transient/non-hashable fields must not change Hash()")
	}

	mustSet(t, mutated, "difficulty", uint32(2048))
	if mutated.Hash() == baseHash {
		t.Fatalf("changing a hashable field must change Hash()")
	}
}

func TestFieldsAreEmittedInAscendingIndexOrder(t *testing.T) {
	m := New(testSpecs())
	mustSet(t, m, "label", "z")
	mustSet(t, m, "kind", uint8(1))
	mustSet(t, m, "data", []byte("x"))

	image := m.Export(false, false)
	var indices []byte
	offset := 0
	for offset < len(image) {
		indices = append(indices, image[offset])
		offset++
		length, n := readUvarint(image[offset:])
		offset += n + int(length)
	}
	if !bytes.Equal(indices, []byte{0, 4, 5}) {
		t.Fatalf("field emission order = %v, want [0 4 5]", indices)
	}
}

func readUvarint(b []byte) (uint64, int) {
	var x uint64
	var s uint
	for i, c := range b {
		if c < 0x80 {
			return x | uint64(c)<<s, i + 1
		}
		x |= uint64(c&0x7f) << s
		s += 7
	}
	return 0, 0
}

func TestSetRejectsUnknownField(t *testing.T) {
	m := New(testSpecs())
	err := m.Set("nonexistent", uint8(1))
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeError, got %v (%T)", err, err)
	}
}

func TestSetRejectsOversizedBytes(t *testing.T) {
	m := New(testSpecs())
	err := m.Set("data", bytes.Repeat([]byte{0x41}, 17))
	var sizeErr *FieldSizeExceeded
	if !errors.As(err, &sizeErr) {
		t.Fatalf("expected *FieldSizeExceeded, got %v (%T)", err, err)
	}
}

func TestLoadRejectsUnknownFieldIndex(t *testing.T) {
	m := New(testSpecs())
	image := encodeRecord(250, []byte{1})

	err := m.Load(image, true)
	var unknown *UnknownField
	if !errors.As(err, &unknown) {
		t.Fatalf("expected *UnknownField, got %v (%T)", err, err)
	}
}

func TestLoadRejectsTruncatedPayload(t *testing.T) {
	m := New(testSpecs())
	image := []byte{0, 5, 1, 2}

	err := m.Load(image, true)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeError for truncated payload, got %v (%T)", err, err)
	}
}

func TestUint24BERejectsOutOfRange(t *testing.T) {
	m := New(testSpecs())
	err := m.Set("difficulty", uint32(1<<24))
	var sizeErr *FieldSizeExceeded
	if !errors.As(err, &sizeErr) {
		t.Fatalf("expected *FieldSizeExceeded for UINT24BE overflow, got %v (%T)", err, err)
	}
}
