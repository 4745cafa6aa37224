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

package primitive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptoklabs/ck11core/internal/mechanism"
)

// fakeKeyWrapper "wraps" a DEK by XOR-ing it with a fixed pad, standing in
// for a remote KMS in tests.
type fakeKeyWrapper struct {
	pad [dekSize]byte
}

func (f *fakeKeyWrapper) WrapDEK(ctx context.Context) ([]byte, []byte, error) {
	dek := make([]byte, dekSize)
	for i := range dek {
		dek[i] = byte(i)
	}
	wrapped := make([]byte, dekSize)
	for i := range wrapped {
		wrapped[i] = dek[i] ^ f.pad[i]
	}
	return dek, wrapped, nil
}

func (f *fakeKeyWrapper) UnwrapDEK(ctx context.Context, wrapped []byte) ([]byte, error) {
	dek := make([]byte, len(wrapped))
	for i := range dek {
		dek[i] = wrapped[i] ^ f.pad[i]
	}
	return dek, nil
}

func (f *fakeKeyWrapper) Close() error { return nil }

func TestKMSEngineEncryptDecryptRoundTrip(t *testing.T) {
	eng := NewKMSEngine(&fakeKeyWrapper{})

	plaintext := []byte("token object material")
	ciphertext, err := eng.Encrypt(context.Background(), mechanism.AESGCM, nil, nil, plaintext)
	require.NoError(t, err)
	assert.NotContains(t, string(ciphertext), string(plaintext))

	decrypted, err := eng.Decrypt(context.Background(), mechanism.AESGCM, nil, nil, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestKMSEngineDelegatesUnrelatedMechanismsToLocal(t *testing.T) {
	eng := NewKMSEngine(&fakeKeyWrapper{})

	sum, err := eng.Digest(context.Background(), mechanism.SHA256, []byte("abc"))
	require.NoError(t, err)
	assert.Len(t, sum, 32)
}

func TestPackUnpackEnvelopeRoundTrip(t *testing.T) {
	wrapped := []byte("wrapped-dek-bytes")
	sealed := []byte("nonce-and-ciphertext")

	env := packEnvelope(wrapped, sealed)
	gotWrapped, gotSealed, err := unpackEnvelope(env)
	require.NoError(t, err)
	assert.Equal(t, wrapped, gotWrapped)
	assert.Equal(t, sealed, gotSealed)
}

func TestUnpackEnvelopeRejectsTruncatedData(t *testing.T) {
	_, _, err := unpackEnvelope([]byte{0, 0})
	assert.Error(t, err)

	_, _, err = unpackEnvelope([]byte{0, 0, 0, 10})
	assert.Error(t, err)
}
