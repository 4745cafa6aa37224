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
	"crypto/rand"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptoklabs/ck11core/internal/attr"
	"github.com/cryptoklabs/ck11core/internal/mechanism"
)

func TestGenerateSymmetricReturnsRequestedLength(t *testing.T) {
	eng := NewLocal()
	key, err := eng.GenerateSymmetric(context.Background(), attr.KeyTypeAES, 256)
	require.NoError(t, err)
	assert.Len(t, key, 32)
}

func TestAESGCMEncryptDecryptRoundTrip(t *testing.T) {
	eng := NewLocal()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	plaintext := []byte("cryptoki token data")
	ciphertext, err := eng.Encrypt(context.Background(), mechanism.AESGCM, key, nil, plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := eng.Decrypt(context.Background(), mechanism.AESGCM, key, nil, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestAESCBCPadEncryptDecryptRoundTrip(t *testing.T) {
	eng := NewLocal()
	key := make([]byte, 16)
	iv := make([]byte, 16)
	_, err := rand.Read(key)
	require.NoError(t, err)
	_, err = rand.Read(iv)
	require.NoError(t, err)

	plaintext := []byte("not a multiple of 16 bytes!!")
	ciphertext, err := eng.Encrypt(context.Background(), mechanism.AESCBCPad, key, iv, plaintext)
	require.NoError(t, err)

	decrypted, err := eng.Decrypt(context.Background(), mechanism.AESCBCPad, key, iv, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestAESECBEncryptDecryptRoundTrip(t *testing.T) {
	eng := NewLocal()
	key := make([]byte, 16)
	_, err := rand.Read(key)
	require.NoError(t, err)

	plaintext := make([]byte, 32) // two full blocks, no padding needed
	_, err = rand.Read(plaintext)
	require.NoError(t, err)

	ciphertext, err := eng.Encrypt(context.Background(), mechanism.AESECB, key, nil, plaintext)
	require.NoError(t, err)

	decrypted, err := eng.Decrypt(context.Background(), mechanism.AESECB, key, nil, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestHMACSignVerifyRoundTrip(t *testing.T) {
	eng := NewLocal()
	key := []byte("hmac-test-key")
	data := []byte("message to authenticate")

	sig, err := eng.Sign(context.Background(), mechanism.SHA256HMAC, key, data)
	require.NoError(t, err)

	err = eng.Verify(context.Background(), mechanism.SHA256HMAC, key, data, sig)
	assert.NoError(t, err)

	err = eng.Verify(context.Background(), mechanism.SHA256HMAC, key, []byte("tampered"), sig)
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestAESMACSignVerifyRoundTrip(t *testing.T) {
	eng := NewLocal()
	key := make([]byte, 16)
	_, err := rand.Read(key)
	require.NoError(t, err)
	data := []byte("message under a CBC-MAC")

	sig, err := eng.Sign(context.Background(), mechanism.AESMAC, key, data)
	require.NoError(t, err)

	err = eng.Verify(context.Background(), mechanism.AESMAC, key, data, sig)
	assert.NoError(t, err)
}

func TestDigestKnownVectors(t *testing.T) {
	eng := NewLocal()
	sum, err := eng.Digest(context.Background(), mechanism.SHA256, []byte("abc"))
	require.NoError(t, err)
	assert.Len(t, sum, 32)

	sum, err = eng.Digest(context.Background(), mechanism.SHA1, []byte("abc"))
	require.NoError(t, err)
	assert.Len(t, sum, 20)
}

func TestRSAGenerateEncryptDecryptRoundTrip(t *testing.T) {
	eng := NewLocal()
	pub, priv, err := eng.GenerateAsymmetric(context.Background(), attr.KeyTypeRSA, KeyParams{ModulusBits: 2048})
	require.NoError(t, err)
	require.NotEmpty(t, pub)
	require.NotEmpty(t, priv)

	plaintext := []byte("wrap me")
	ciphertext, err := eng.Encrypt(context.Background(), mechanism.RSAPKCSOAEP, pub, nil, plaintext)
	require.NoError(t, err)

	decrypted, err := eng.Decrypt(context.Background(), mechanism.RSAPKCSOAEP, priv, nil, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestRSASignVerifyRoundTrip(t *testing.T) {
	eng := NewLocal()
	pub, priv, err := eng.GenerateAsymmetric(context.Background(), attr.KeyTypeRSA, KeyParams{ModulusBits: 2048})
	require.NoError(t, err)

	data := []byte("sign this")
	sig, err := eng.Sign(context.Background(), mechanism.RSAPKCSPSS, priv, data)
	require.NoError(t, err)

	err = eng.Verify(context.Background(), mechanism.RSAPKCSPSS, pub, data, sig)
	assert.NoError(t, err)
}

func TestECDSAGenerateSignVerifyRoundTrip(t *testing.T) {
	eng := NewLocal()
	pub, priv, err := eng.GenerateAsymmetric(context.Background(), attr.KeyTypeEC, KeyParams{})
	require.NoError(t, err)

	data := []byte("sign this with EC")
	sig, err := eng.Sign(context.Background(), mechanism.ECDSA, priv, data)
	require.NoError(t, err)

	err = eng.Verify(context.Background(), mechanism.ECDSA, pub, data, sig)
	assert.NoError(t, err)
}

func TestECDH1DeriveProducesSharedSecret(t *testing.T) {
	eng := NewLocal()
	pubA, privA, err := eng.GenerateAsymmetric(context.Background(), attr.KeyTypeEC, KeyParams{})
	require.NoError(t, err)
	pubB, privB, err := eng.GenerateAsymmetric(context.Background(), attr.KeyTypeEC, KeyParams{})
	require.NoError(t, err)

	secretA, err := eng.Derive(context.Background(), mechanism.ECDH1Derive, privA, pubB)
	require.NoError(t, err)
	secretB, err := eng.Derive(context.Background(), mechanism.ECDH1Derive, privB, pubA)
	require.NoError(t, err)
	assert.Equal(t, secretA, secretB)
}

func TestUnsupportedMechanismReturnsSentinel(t *testing.T) {
	eng := NewLocal()
	_, err := eng.Encrypt(context.Background(), mechanism.AESKeyWrap, nil, nil, nil)
	assert.True(t, errors.Is(err, ErrMechanismNotSupported))

	_, err = eng.Derive(context.Background(), mechanism.DHPKCSDerive, nil, nil)
	assert.True(t, errors.Is(err, ErrMechanismNotSupported))
}
