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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFind(t *testing.T) {
	b := New()
	b.Add(Label, []byte("my-key"))
	v, ok := b.Find(Label)
	require.True(t, ok)
	assert.Equal(t, []byte("my-key"), v)
}

func TestFindMissing(t *testing.T) {
	b := New()
	_, ok := b.Find(Label)
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	b := New()
	b.Add(Label, []byte("x"))
	assert.True(t, b.Remove(Label))
	_, ok := b.Find(Label)
	assert.False(t, ok)
	assert.False(t, b.Remove(Label))
}

func TestRemoveEmpty(t *testing.T) {
	b := New()
	b.Add(Subject, nil)
	assert.True(t, b.RemoveEmpty(Subject))

	b2 := New()
	b2.Add(Subject, []byte{1})
	assert.False(t, b2.RemoveEmpty(Subject))
}

func TestRemoveAll(t *testing.T) {
	b := New()
	b.Add(WrapTemplate&^indirectBit, []byte{1})
	b.Add(WrapTemplate&^indirectBit, []byte{2})
	b.Add(WrapTemplate&^indirectBit, []byte{3})
	n := b.RemoveAll(WrapTemplate&^indirectBit, 2)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, len(b.FindAll(WrapTemplate&^indirectBit)))
}

func TestRemoveAllNotFound(t *testing.T) {
	b := New()
	assert.Equal(t, 0, b.RemoveAll(Label, 5))
}

func TestFindAllPreservesOrder(t *testing.T) {
	b := New()
	b.Add(Label, []byte("a"))
	b.Add(Label, []byte("b"))
	got := b.FindAll(Label)
	require.Len(t, got, 2)
	assert.Equal(t, []byte("a"), got[0].Value)
	assert.Equal(t, []byte("b"), got[1].Value)
}

func TestGetU32RoundTrip(t *testing.T) {
	b := New()
	b.PutU32(ModulusBits, 2048)
	got, err := b.GetU32(ModulusBits)
	require.NoError(t, err)
	assert.Equal(t, uint32(2048), got)
}

func TestGetU32WrongSize(t *testing.T) {
	b := New()
	b.Add(ModulusBits, []byte{1, 2, 3})
	_, err := b.GetU32(ModulusBits)
	assert.Error(t, err)
}

func TestGetU32Missing(t *testing.T) {
	b := New()
	_, err := b.GetU32(ModulusBits)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestGetBoolDefaultsFalse(t *testing.T) {
	b := New()
	assert.False(t, b.GetBool(Sensitive))
}

func TestPutBoolGetBool(t *testing.T) {
	b := New()
	b.PutBool(Sensitive, true)
	assert.True(t, b.GetBool(Sensitive))
	b.PutBool(Private, false)
	assert.False(t, b.GetBool(Private))
}

func TestMatchReferenceEmptyMatchesAnything(t *testing.T) {
	ref := New()
	candidate := New()
	candidate.Add(Label, []byte("x"))
	assert.True(t, MatchReference(&ref, &candidate))
}

func TestMatchReferenceSelf(t *testing.T) {
	b := New()
	b.Add(Label, []byte("x"))
	b.PutU32(KeyType, uint32(KeyTypeAES))
	assert.True(t, MatchReference(&b, &b))
}

func TestMatchReferenceMismatch(t *testing.T) {
	ref := New()
	ref.Add(Label, []byte("x"))
	candidate := New()
	candidate.Add(Label, []byte("y"))
	assert.False(t, MatchReference(&ref, &candidate))
}

func TestMatchReferenceMissingAttribute(t *testing.T) {
	ref := New()
	ref.Add(Label, []byte("x"))
	candidate := New()
	assert.False(t, MatchReference(&ref, &candidate))
}

func TestSizeMatchesEncodedLength(t *testing.T) {
	b := New()
	b.Add(Label, []byte("abc"))
	b.PutU32(KeyType, uint32(KeyTypeAES))
	encoded := Encode(&b)
	assert.Equal(t, b.Size(), len(encoded))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	b := New()
	b.Add(Class, []byte{byte(ClassSecretKey), 0, 0, 0})
	b.PutU32(KeyType, uint32(KeyTypeAES))
	b.PutBool(Sensitive, true)
	b.Add(Value, []byte{0xDE, 0xAD, 0xBE, 0xEF})

	raw := Encode(&b)
	decoded, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, b.Len(), decoded.Len())

	for _, e := range b.All() {
		got, ok := decoded.Find(e.ID)
		require.True(t, ok)
		assert.Equal(t, e.Value, got)
	}
}

func TestDecodeIdempotentOnSanitizedBlob(t *testing.T) {
	b := New()
	b.PutU32(KeyType, uint32(KeyTypeAES))
	raw1 := Encode(&b)
	decoded, err := Decode(raw1)
	require.NoError(t, err)
	raw2 := Encode(&decoded)
	assert.Equal(t, raw1, raw2)
}

func TestDecodeRejectsTruncatedHeader(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestDecodeRejectsSizeMismatch(t *testing.T) {
	b := New()
	b.Add(Label, []byte("abc"))
	raw := Encode(&b)

	// Corrupt attrs_size to claim more bytes than are actually present.
	raw[0] = 0xFF
	_, err := Decode(raw)
	assert.Error(t, err)
}

func TestDecodeRejectsOverrunEntry(t *testing.T) {
	b := New()
	b.Add(Label, []byte("abc"))
	raw := Encode(&b)

	// Inflate the declared entry size beyond the available payload while
	// leaving attrs_size's consistency check satisfied only by coincidence;
	// the entry-level bound must still catch the overrun.
	raw[8+4] = 0xFF
	raw[8+5] = 0xFF
	_, err := Decode(raw)
	assert.Error(t, err)
}

func TestDecodeRejectsExcessiveEntrySize(t *testing.T) {
	b := New()
	b.Add(Label, []byte("abc"))
	raw := Encode(&b)
	raw[0] = 0xFF
	raw[1] = 0xFF
	raw[2] = 0xFF
	raw[3] = 0x7F
	raw[8+4] = 0xFF
	raw[8+5] = 0xFF
	raw[8+6] = 0xFF
	raw[8+7] = 0x7F
	_, err := Decode(raw)
	assert.Error(t, err)
}

func TestIsIndirect(t *testing.T) {
	assert.True(t, WrapTemplate.IsIndirect())
	assert.False(t, Label.IsIndirect())
}

func TestKeyTypeClassification(t *testing.T) {
	assert.True(t, KeyTypeAES.IsSymmetric())
	assert.False(t, KeyTypeAES.IsAsymmetric())
	assert.True(t, KeyTypeRSA.IsAsymmetric())
	assert.False(t, KeyTypeRSA.IsSymmetric())
}

func TestIsBoolProp(t *testing.T) {
	assert.True(t, IsBoolProp(Sensitive))
	assert.False(t, IsBoolProp(Label))
}

func TestNestedTemplateRoundTrip(t *testing.T) {
	inner := New()
	inner.PutBool(Encrypt, true)
	innerRaw := Encode(&inner)

	outer := New()
	outer.Add(WrapTemplate, innerRaw)

	raw := Encode(&outer)
	decoded, err := Decode(raw)
	require.NoError(t, err)

	nestedRaw, ok := decoded.Find(WrapTemplate)
	require.True(t, ok)
	nested, err := Decode(nestedRaw)
	require.NoError(t, err)
	assert.True(t, nested.GetBool(Encrypt))
}
