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

package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptoklabs/ck11core/internal/attr"
	"github.com/cryptoklabs/ck11core/internal/ckerr"
)

func TestPutGetRoundTrip(t *testing.T) {
	s := New()
	b := attr.New()
	b.PutU32(attr.Class, uint32(attr.ClassData))
	b.Add(attr.Label, []byte("hello"))

	require.NoError(t, s.Put(context.Background(), 1, attr.ClassData, b))

	got, err := s.Get(context.Background(), 1)
	require.NoError(t, err)
	v, ok := got.Find(attr.Label)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), v)
}

func TestGetMissingHandleFails(t *testing.T) {
	s := New()
	_, err := s.Get(context.Background(), 42)
	assert.Equal(t, ckerr.ObjectHandleInvalid, ckerr.Code(err))
}

func TestDeleteRemovesObject(t *testing.T) {
	s := New()
	require.NoError(t, s.Put(context.Background(), 1, attr.ClassData, attr.New()))
	require.NoError(t, s.Delete(context.Background(), 1))

	_, err := s.Get(context.Background(), 1)
	assert.Equal(t, ckerr.ObjectHandleInvalid, ckerr.Code(err))
}

func TestDeleteMissingHandleFails(t *testing.T) {
	s := New()
	err := s.Delete(context.Background(), 99)
	assert.Equal(t, ckerr.ObjectHandleInvalid, ckerr.Code(err))
}

func TestFindMatchesByReferenceTemplate(t *testing.T) {
	s := New()

	secret := attr.New()
	secret.PutU32(attr.Class, uint32(attr.ClassSecretKey))
	secret.PutU32(attr.KeyType, uint32(attr.KeyTypeAES))
	require.NoError(t, s.Put(context.Background(), 1, attr.ClassSecretKey, secret))

	data := attr.New()
	data.PutU32(attr.Class, uint32(attr.ClassData))
	require.NoError(t, s.Put(context.Background(), 2, attr.ClassData, data))

	ref := attr.New()
	ref.PutU32(attr.Class, uint32(attr.ClassSecretKey))

	handles, err := s.Find(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, handles)
}

func TestFindEmptyReferenceMatchesAll(t *testing.T) {
	s := New()
	require.NoError(t, s.Put(context.Background(), 1, attr.ClassData, attr.New()))
	require.NoError(t, s.Put(context.Background(), 2, attr.ClassData, attr.New()))

	handles, err := s.Find(context.Background(), attr.New())
	require.NoError(t, err)
	assert.Len(t, handles, 2)
}
