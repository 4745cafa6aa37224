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
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/md5"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"fmt"
	"hash"
	"io"

	"github.com/cryptoklabs/ck11core/internal/mechanism"
)

var cryptoSHA256 = crypto.SHA256

// aesGCMEncrypt seals plaintext under key using the nonce carried in params.
// A zero-length params asks for a fresh random nonce, prepended to the
// returned ciphertext; a 12-byte params is used as-is with no prefix, for
// callers that manage their own nonce bookkeeping.
func aesGCMEncrypt(key, params, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("primitive: building GCM: %w", err)
	}
	if len(params) == gcm.NonceSize() {
		return gcm.Seal(nil, params, plaintext, nil), nil
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("primitive: generating nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func aesGCMDecrypt(key, params, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("primitive: building GCM: %w", err)
	}
	if len(params) == gcm.NonceSize() {
		return gcm.Open(nil, params, ciphertext, nil)
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("primitive: ciphertext shorter than nonce")
	}
	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func aesCBCEncrypt(key, iv, plaintext []byte, pad bool) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("primitive: CBC requires a %d-byte IV", aes.BlockSize)
	}
	padded := plaintext
	if pad {
		padded = pkcs7Pad(plaintext, aes.BlockSize)
	} else if len(plaintext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("primitive: plaintext is not a multiple of the block size")
	}
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

func aesCBCDecrypt(key, iv, ciphertext []byte, pad bool) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("primitive: CBC requires a %d-byte IV", aes.BlockSize)
	}
	if len(ciphertext)%aes.BlockSize != 0 || len(ciphertext) == 0 {
		return nil, fmt.Errorf("primitive: ciphertext is not a positive multiple of the block size")
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	if pad {
		return pkcs7Unpad(out)
	}
	return out, nil
}

func aesECBEncrypt(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(plaintext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("primitive: ECB plaintext is not a multiple of the block size")
	}
	out := make([]byte, len(plaintext))
	for i := 0; i < len(plaintext); i += aes.BlockSize {
		block.Encrypt(out[i:i+aes.BlockSize], plaintext[i:i+aes.BlockSize])
	}
	return out, nil
}

func aesECBDecrypt(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(ciphertext)%aes.BlockSize != 0 || len(ciphertext) == 0 {
		return nil, fmt.Errorf("primitive: ECB ciphertext is not a positive multiple of the block size")
	}
	out := make([]byte, len(ciphertext))
	for i := 0; i < len(ciphertext); i += aes.BlockSize {
		block.Decrypt(out[i:i+aes.BlockSize], ciphertext[i:i+aes.BlockSize])
	}
	return out, nil
}

// aesCBCMAC computes a CBC-MAC over data, zero-IV, returning the last
// ciphertext block. data is PKCS#7-padded to a block multiple here; the
// catalog marks CKM_AES_MAC as not one-shot-only, but this
// reference engine only ever sees it invoked with the whole message.
func aesCBCMAC(key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	padded := pkcs7Pad(data, aes.BlockSize)
	iv := make([]byte, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out[len(out)-aes.BlockSize:], nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("primitive: cannot unpad empty data")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, fmt.Errorf("primitive: invalid PKCS#7 padding")
	}
	return data[:len(data)-padLen], nil
}

func hmacHash(mech MechanismID) (func() hash.Hash, error) {
	switch mech {
	case mechanism.MD5HMAC:
		return md5.New, nil
	case mechanism.SHA1HMAC:
		return sha1.New, nil
	case mechanism.SHA256HMAC:
		return sha256.New, nil
	case mechanism.SHA384HMAC:
		return sha512.New384, nil
	case mechanism.SHA512HMAC:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrMechanismNotSupported, mech)
	}
}

func parseRSAPublicKey(key []byte) (*rsa.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing RSA public key: %v", ErrInvalidKey, err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: key is not an RSA public key", ErrInvalidKey)
	}
	return rsaPub, nil
}

func parseRSAPrivateKey(key []byte) (*rsa.PrivateKey, error) {
	priv, err := x509.ParsePKCS1PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing RSA private key: %v", ErrInvalidKey, err)
	}
	return priv, nil
}

func parseECPublicKey(key []byte) (*ecdsa.PublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing EC public key: %v", ErrInvalidKey, err)
	}
	ecPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: key is not an EC public key", ErrInvalidKey)
	}
	return ecPub, nil
}

func parseECPrivateKey(key []byte) (*ecdsa.PrivateKey, error) {
	priv, err := x509.ParseECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing EC private key: %v", ErrInvalidKey, err)
	}
	return priv, nil
}
