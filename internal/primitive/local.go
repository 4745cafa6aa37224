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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"fmt"
	"io"

	"github.com/cryptoklabs/ck11core/internal/attr"
	"github.com/cryptoklabs/ck11core/internal/mechanism"
)

// Local is the reference Engine implementation: every operation runs with
// Go's standard crypto primitives, in-process, no network round trip. It is
// the default for single-node deployments and the fallback a KMS-backed
// Engine delegates to for mechanisms the remote service doesn't cover.
type Local struct{}

// NewLocal returns a ready-to-use Local engine.
func NewLocal() *Local { return &Local{} }

func (Local) GenerateSymmetric(ctx context.Context, keyType KeyType, bits int) ([]byte, error) {
	key := make([]byte, bits/8)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("primitive: generating symmetric key: %w", err)
	}
	return key, nil
}

func (Local) GenerateAsymmetric(ctx context.Context, keyType KeyType, params KeyParams) (pub, priv []byte, err error) {
	switch keyType {
	case attr.KeyTypeRSA:
		bits := params.ModulusBits
		if bits == 0 {
			bits = 2048
		}
		key, err := rsa.GenerateKey(rand.Reader, bits)
		if err != nil {
			return nil, nil, fmt.Errorf("primitive: generating RSA key: %w", err)
		}
		pubBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		if err != nil {
			return nil, nil, fmt.Errorf("primitive: marshaling RSA public key: %w", err)
		}
		return pubBytes, x509.MarshalPKCS1PrivateKey(key), nil

	case attr.KeyTypeEC:
		curve, err := ecCurveFromParams(params.ECParams)
		if err != nil {
			return nil, nil, err
		}
		key, err := ecdsa.GenerateKey(curve, rand.Reader)
		if err != nil {
			return nil, nil, fmt.Errorf("primitive: generating EC key: %w", err)
		}
		pubBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
		if err != nil {
			return nil, nil, fmt.Errorf("primitive: marshaling EC public key: %w", err)
		}
		privBytes, err := x509.MarshalECPrivateKey(key)
		if err != nil {
			return nil, nil, fmt.Errorf("primitive: marshaling EC private key: %w", err)
		}
		return pubBytes, privBytes, nil

	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrMechanismNotSupported, keyType)
	}
}

// ecCurveFromParams maps the raw EC_PARAMS bytes to a named curve by
// comparing them with the DER-encoded P-384 and P-521 OIDs; any other value,
// including an empty one or the P-256 OID, selects P-256.
func ecCurveFromParams(params []byte) (elliptic.Curve, error) {
	switch string(params) {
	case "\x06\x05\x2b\x81\x04\x00\x22": // secp384r1
		return elliptic.P384(), nil
	case "\x06\x05\x2b\x81\x04\x00\x23": // secp521r1
		return elliptic.P521(), nil
	default: // unspecified or P-256 OID
		return elliptic.P256(), nil
	}
}

func (l Local) Encrypt(ctx context.Context, mech MechanismID, key []byte, params, plaintext []byte) ([]byte, error) {
	switch mech {
	case mechanism.AESGCM:
		return aesGCMEncrypt(key, params, plaintext)
	case mechanism.AESCBC, mechanism.AESCBCPad:
		return aesCBCEncrypt(key, params, plaintext, mech == mechanism.AESCBCPad)
	case mechanism.AESECB:
		return aesECBEncrypt(key, plaintext)
	case mechanism.RSAPKCS:
		pub, err := parseRSAPublicKey(key)
		if err != nil {
			return nil, err
		}
		return rsa.EncryptPKCS1v15(rand.Reader, pub, plaintext)
	case mechanism.RSAPKCSOAEP:
		pub, err := parseRSAPublicKey(key)
		if err != nil {
			return nil, err
		}
		return rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plaintext, nil)
	default:
		return nil, fmt.Errorf("%w: %v", ErrMechanismNotSupported, mech)
	}
}

func (l Local) Decrypt(ctx context.Context, mech MechanismID, key []byte, params, ciphertext []byte) ([]byte, error) {
	switch mech {
	case mechanism.AESGCM:
		return aesGCMDecrypt(key, params, ciphertext)
	case mechanism.AESCBC, mechanism.AESCBCPad:
		return aesCBCDecrypt(key, params, ciphertext, mech == mechanism.AESCBCPad)
	case mechanism.AESECB:
		return aesECBDecrypt(key, ciphertext)
	case mechanism.RSAPKCS:
		priv, err := parseRSAPrivateKey(key)
		if err != nil {
			return nil, err
		}
		return rsa.DecryptPKCS1v15(rand.Reader, priv, ciphertext)
	case mechanism.RSAPKCSOAEP:
		priv, err := parseRSAPrivateKey(key)
		if err != nil {
			return nil, err
		}
		return rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, ciphertext, nil)
	default:
		return nil, fmt.Errorf("%w: %v", ErrMechanismNotSupported, mech)
	}
}

func (l Local) Sign(ctx context.Context, mech MechanismID, key []byte, data []byte) ([]byte, error) {
	switch mech {
	case mechanism.AESMAC:
		return aesCBCMAC(key, data)
	case mechanism.MD5HMAC, mechanism.SHA1HMAC, mechanism.SHA256HMAC, mechanism.SHA384HMAC, mechanism.SHA512HMAC:
		h, err := hmacHash(mech)
		if err != nil {
			return nil, err
		}
		mac := hmac.New(h, key)
		mac.Write(data)
		return mac.Sum(nil), nil
	case mechanism.RSAPKCS:
		priv, err := parseRSAPrivateKey(key)
		if err != nil {
			return nil, err
		}
		digest := sha256.Sum256(data)
		return rsa.SignPKCS1v15(rand.Reader, priv, cryptoSHA256, digest[:])
	case mechanism.RSAPKCSPSS, mechanism.SHA256RSAPKCSPSS:
		priv, err := parseRSAPrivateKey(key)
		if err != nil {
			return nil, err
		}
		digest := sha256.Sum256(data)
		return rsa.SignPSS(rand.Reader, priv, cryptoSHA256, digest[:], nil)
	case mechanism.ECDSA, mechanism.ECDSASHA256:
		priv, err := parseECPrivateKey(key)
		if err != nil {
			return nil, err
		}
		digest := sha256.Sum256(data)
		return ecdsa.SignASN1(rand.Reader, priv, digest[:])
	default:
		return nil, fmt.Errorf("%w: %v", ErrMechanismNotSupported, mech)
	}
}

func (l Local) Verify(ctx context.Context, mech MechanismID, key []byte, data, sig []byte) error {
	switch mech {
	case mechanism.AESMAC:
		expected, err := aesCBCMAC(key, data)
		if err != nil {
			return err
		}
		if !hmac.Equal(expected, sig) {
			return ErrVerificationFailed
		}
		return nil
	case mechanism.MD5HMAC, mechanism.SHA1HMAC, mechanism.SHA256HMAC, mechanism.SHA384HMAC, mechanism.SHA512HMAC:
		h, err := hmacHash(mech)
		if err != nil {
			return err
		}
		mac := hmac.New(h, key)
		mac.Write(data)
		if !hmac.Equal(mac.Sum(nil), sig) {
			return ErrVerificationFailed
		}
		return nil
	case mechanism.RSAPKCS:
		pub, err := parseRSAPublicKey(key)
		if err != nil {
			return err
		}
		digest := sha256.Sum256(data)
		if err := rsa.VerifyPKCS1v15(pub, cryptoSHA256, digest[:], sig); err != nil {
			return ErrVerificationFailed
		}
		return nil
	case mechanism.RSAPKCSPSS, mechanism.SHA256RSAPKCSPSS:
		pub, err := parseRSAPublicKey(key)
		if err != nil {
			return err
		}
		digest := sha256.Sum256(data)
		if err := rsa.VerifyPSS(pub, cryptoSHA256, digest[:], sig, nil); err != nil {
			return ErrVerificationFailed
		}
		return nil
	case mechanism.ECDSA, mechanism.ECDSASHA256:
		pub, err := parseECPublicKey(key)
		if err != nil {
			return err
		}
		digest := sha256.Sum256(data)
		if !ecdsa.VerifyASN1(pub, digest[:], sig) {
			return ErrVerificationFailed
		}
		return nil
	default:
		return fmt.Errorf("%w: %v", ErrMechanismNotSupported, mech)
	}
}

func (l Local) Digest(ctx context.Context, mech MechanismID, data []byte) ([]byte, error) {
	switch mech {
	case mechanism.SHA1:
		sum := sha1.Sum(data)
		return sum[:], nil
	case mechanism.SHA256:
		sum := sha256.Sum256(data)
		return sum[:], nil
	case mechanism.SHA384:
		sum := sha512.Sum384(data)
		return sum[:], nil
	case mechanism.SHA512:
		sum := sha512.Sum512(data)
		return sum[:], nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrMechanismNotSupported, mech)
	}
}

func (l Local) Derive(ctx context.Context, mech MechanismID, key []byte, params []byte) ([]byte, error) {
	switch mech {
	case mechanism.ECDH1Derive, mechanism.ECDH1CofactorDerive:
		priv, err := parseECPrivateKey(key)
		if err != nil {
			return nil, err
		}
		peerPub, err := parseECPublicKey(params)
		if err != nil {
			return nil, err
		}
		eciesPriv, err := priv.ECDH()
		if err != nil {
			return nil, fmt.Errorf("primitive: converting EC private key: %w", err)
		}
		eciesPub, err := peerPub.ECDH()
		if err != nil {
			return nil, fmt.Errorf("primitive: converting peer EC public key: %w", err)
		}
		shared, err := eciesPriv.ECDH(eciesPub)
		if err != nil {
			return nil, fmt.Errorf("primitive: computing shared secret: %w", err)
		}
		return shared, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrMechanismNotSupported, mech)
	}
}

var _ Engine = Local{}
