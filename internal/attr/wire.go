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

package attr

import (
	"encoding/binary"
	"fmt"
)

// Wire layout constants from spec.md §6.1: a template header is
// {u32 attrs_size, u32 attrs_count} followed by attrs_count entries, each
// {u32 id, u32 size, u8 value[size]}.
const (
	HeaderSize      = 8
	entryHeaderSize = 8

	// maxEntrySize guards against a corrupt/hostile size field causing an
	// unbounded allocation while decoding; spec.md's "no allocation
	// retained" boundary test requires failing before any large alloc.
	maxEntrySize = 16 << 20 // 16 MiB
)

// Encode serializes b into the spec.md §6.1 wire format.
func Encode(b *Blob) []byte {
	out := make([]byte, HeaderSize, b.Size())
	valueBytes := b.valueBytesTotal()
	binary.LittleEndian.PutUint32(out[0:4], uint32(valueBytes))
	binary.LittleEndian.PutUint32(out[4:8], uint32(b.Len()))
	for _, e := range b.entries {
		var hdr [entryHeaderSize]byte
		binary.LittleEndian.PutUint32(hdr[0:4], uint32(e.ID))
		binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(e.Value)))
		out = append(out, hdr[:]...)
		out = append(out, e.Value...)
	}
	return out
}

// Decode parses raw wire bytes into a Blob, per spec.md §6.1. It rejects a
// template whose declared attrs_size does not match the actual payload
// length before retaining any entry allocation, matching the boundary test
// "Template with attrs_size > actual payload ⇒ error, no allocation
// retained."
func Decode(raw []byte) (Blob, error) {
	if len(raw) < HeaderSize {
		return Blob{}, fmt.Errorf("attr: truncated header: got %d bytes, want at least %d", len(raw), HeaderSize)
	}
	attrsSize := binary.LittleEndian.Uint32(raw[0:4])
	attrsCount := binary.LittleEndian.Uint32(raw[4:8])

	payload := raw[HeaderSize:]
	if uint64(attrsSize) != uint64(len(payload)) {
		return Blob{}, fmt.Errorf("attr: declared attrs_size %d does not match payload length %d", attrsSize, len(payload))
	}

	b := Blob{}
	if attrsCount > 0 {
		b.entries = make([]Attribute, 0, attrsCount)
	}
	off := 0
	for i := uint32(0); i < attrsCount; i++ {
		if off+entryHeaderSize > len(payload) {
			return Blob{}, fmt.Errorf("attr: entry %d: truncated entry header", i)
		}
		id := ID(binary.LittleEndian.Uint32(payload[off : off+4]))
		size := binary.LittleEndian.Uint32(payload[off+4 : off+8])
		off += entryHeaderSize

		if size > maxEntrySize {
			return Blob{}, fmt.Errorf("attr: entry %d: value size %d exceeds maximum %d", i, size, maxEntrySize)
		}
		if off+int(size) > len(payload) {
			return Blob{}, fmt.Errorf("attr: entry %d: declared size %d overruns payload", i, size)
		}
		value := make([]byte, size)
		copy(value, payload[off:off+int(size)])
		off += int(size)

		b.entries = append(b.entries, Attribute{ID: id, Value: value})
	}

	if off != len(payload) {
		return Blob{}, fmt.Errorf("attr: %d trailing bytes after %d declared entries", len(payload)-off, attrsCount)
	}

	return b, nil
}
