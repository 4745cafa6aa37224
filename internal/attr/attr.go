/*
Copyright 2026 CK11Core Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package attr implements the Attribute Blob: the ordered, serialized
// container of PKCS#11 (Cryptoki v2.40) object attributes, and the
// add/remove/find/match primitives that the Sanitizer, Object Builder, and
// Policy Engine build on.
//
// Per spec.md's design notes, attributes are kept as a typed, ordered slice
// rather than a raw tagged byte buffer — the wire format of spec.md §6.1 is
// reconstructed at Encode/Decode, not carried as the in-memory layout.
package attr

import (
	"fmt"
)

// ID is a 32-bit Cryptoki attribute identifier (CKA_*). The top bit marks an
// "array-valued" (template-valued) attribute, per spec.md §3.
type ID uint32

// IsIndirect reports whether id names a template-valued attribute (its
// value is itself an encoded Blob), e.g. WRAP_TEMPLATE.
func (id ID) IsIndirect() bool {
	return id&indirectBit != 0
}

const indirectBit ID = 0x80000000

// Kind classifies how an Attribute's value bytes should be interpreted.
// Kind follows from the attribute's ID; it is not stored on the wire.
type Kind int

const (
	// KindBool attributes carry exactly one byte (0 or 1).
	KindBool Kind = iota
	// KindU32 attributes carry four little-endian bytes.
	KindU32
	// KindBytes attributes carry opaque variable-length bytes.
	KindBytes
	// KindTemplate attributes carry a nested, encoded Blob.
	KindTemplate
)

// Attribute is the (ID, value bytes) pair described in spec.md §3.
type Attribute struct {
	ID    ID
	Value []byte
}

// Blob is an ordered sequence of Attributes. Insertion order is preserved
// but carries no semantic meaning beyond "most recent entry for a
// multi-valued enumeration helper wins last" (spec.md §3). Builder and
// Policy Engine code assumes at most one Attribute per ID; the Sanitizer is
// what enforces that invariant on client input.
type Blob struct {
	entries []Attribute
}

// New returns an empty Blob.
func New() Blob {
	return Blob{}
}

// Len returns the number of attribute entries.
func (b *Blob) Len() int { return len(b.entries) }

// Size returns the total encoded size in bytes, including the header (see
// Encode), matching spec.md §4.1's size(blob) operation.
func (b *Blob) Size() int {
	return HeaderSize + b.valueBytesTotal()
}

func (b *Blob) valueBytesTotal() int {
	total := 0
	for _, e := range b.entries {
		total += entryHeaderSize + len(e.Value)
	}
	return total
}

// Add appends a new entry at the tail, growing the backing slice. Per
// spec.md §4.1 this only fails with DeviceMemory; a plain Go slice append
// cannot practically run out of memory short of a real allocator failure, so
// Add returns no error and the ckerr.DeviceMemory case is surfaced by the
// Object Builder if a allocation-limited arena is later plugged in here.
func (b *Blob) Add(id ID, value []byte) {
	cp := make([]byte, len(value))
	copy(cp, value)
	b.entries = append(b.entries, Attribute{ID: id, Value: cp})
}

// Remove deletes the first entry with the given ID. Returns false if no
// entry matched (ckerr.NotFound at the caller).
func (b *Blob) Remove(id ID) bool {
	for i, e := range b.entries {
		if e.ID == id {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveEmpty removes the first entry with the given ID only if its value
// is zero-length. Builders use this to drop placeholder slots (e.g. a
// zero-size SUBJECT) before adding a filled value, per spec.md §4.1.
func (b *Blob) RemoveEmpty(id ID) bool {
	for i, e := range b.entries {
		if e.ID == id && len(e.Value) == 0 {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveAll removes up to max occurrences of id, in insertion order.
// Returns the number removed; zero means ckerr.NotFound at the caller.
func (b *Blob) RemoveAll(id ID, max int) int {
	removed := 0
	for removed < max {
		if !b.Remove(id) {
			break
		}
		removed++
	}
	return removed
}

// Find returns a borrowed view of the value bytes of the first entry with
// the given ID, and whether it was found.
func (b *Blob) Find(id ID) ([]byte, bool) {
	for _, e := range b.entries {
		if e.ID == id {
			return e.Value, true
		}
	}
	return nil, false
}

// FindAll returns every entry matching id, in insertion order. The slice is
// a fresh copy of the matching headers; callers may iterate it repeatedly
// (spec.md §4.1 calls this a "restartable enumeration").
func (b *Blob) FindAll(id ID) []Attribute {
	var out []Attribute
	for _, e := range b.entries {
		if e.ID == id {
			out = append(out, e)
		}
	}
	return out
}

// All returns every entry in insertion order. Callers must not mutate the
// returned slice's backing Value bytes.
func (b *Blob) All() []Attribute {
	return b.entries
}

// GetU32 returns the little-endian uint32 value of the first entry with the
// given ID. Returns an error if the entry is absent or is not exactly 4
// bytes (spec.md §4.1: "GENERAL_ERROR if the found value size is not
// exactly 4").
func (b *Blob) GetU32(id ID) (uint32, error) {
	v, ok := b.Find(id)
	if !ok {
		return 0, errNotFound(id)
	}
	if len(v) != 4 {
		return 0, fmt.Errorf("attribute %#x: expected 4-byte value, got %d", uint32(id), len(v))
	}
	return uint32(v[0]) | uint32(v[1])<<8 | uint32(v[2])<<16 | uint32(v[3])<<24, nil
}

// GetBool returns the boolean value of the first entry with the given ID,
// defaulting to false when absent. Per spec.md §4.1, the Policy Engine never
// relies on "absent" being distinguishable from "false" through this call.
func (b *Blob) GetBool(id ID) bool {
	v, ok := b.Find(id)
	if !ok || len(v) == 0 {
		return false
	}
	return v[0] != 0
}

// PutU32 appends a 4-byte little-endian attribute.
func (b *Blob) PutU32(id ID, v uint32) {
	b.Add(id, []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

// PutBool appends a 1-byte boolean attribute.
func (b *Blob) PutBool(id ID, v bool) {
	if v {
		b.Add(id, []byte{1})
	} else {
		b.Add(id, []byte{0})
	}
}

// MatchReference reports whether every attribute in ref appears in b with
// identical bytes (spec.md §4.1 match_reference). An empty ref matches
// anything, including an empty b.
func MatchReference(ref, candidate *Blob) bool {
	for _, want := range ref.entries {
		got, ok := candidate.Find(want.ID)
		if !ok || !bytesEqual(got, want.Value) {
			return false
		}
	}
	return true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// notFoundError is a minimal sentinel-carrying error so attr stays free of
// the ckerr import cycle; callers translate it via IsNotFound.
type notFoundError struct{ id ID }

func (e *notFoundError) Error() string { return fmt.Sprintf("attribute %#x not found", uint32(e.id)) }

func errNotFound(id ID) error { return &notFoundError{id: id} }

// IsNotFound reports whether err is the "attribute absent" sentinel
// produced by GetU32 and the wire decoder.
func IsNotFound(err error) bool {
	_, ok := err.(*notFoundError)
	return ok
}
