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

package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptoklabs/ck11core/internal/attr"
	"github.com/cryptoklabs/ck11core/internal/ckerr"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFromClient(client, "", 0)
}

func TestPutGetRoundTrip(t *testing.T) {
	s := setupStore(t)
	b := attr.New()
	b.Add(attr.Label, []byte("cached"))

	require.NoError(t, s.Put(context.Background(), 7, attr.ClassData, b))

	got, err := s.Get(context.Background(), 7)
	require.NoError(t, err)
	v, ok := got.Find(attr.Label)
	require.True(t, ok)
	assert.Equal(t, []byte("cached"), v)
}

func TestGetMissReturnsObjectHandleInvalid(t *testing.T) {
	s := setupStore(t)
	_, err := s.Get(context.Background(), 404)
	assert.Equal(t, ckerr.ObjectHandleInvalid, ckerr.Code(err))
}

func TestDeleteRemovesCachedObject(t *testing.T) {
	s := setupStore(t)
	require.NoError(t, s.Put(context.Background(), 1, attr.ClassData, attr.New()))
	require.NoError(t, s.Delete(context.Background(), 1))

	_, err := s.Get(context.Background(), 1)
	assert.Equal(t, ckerr.ObjectHandleInvalid, ckerr.Code(err))
}

func TestDeleteMissingKeyFails(t *testing.T) {
	s := setupStore(t)
	err := s.Delete(context.Background(), 999)
	assert.Equal(t, ckerr.ObjectHandleInvalid, ckerr.Code(err))
}

func TestFindIsNotSupportedByTheHotCache(t *testing.T) {
	s := setupStore(t)
	_, err := s.Find(context.Background(), attr.New())
	assert.Equal(t, ckerr.FunctionNotSupported, ckerr.Code(err))
}
