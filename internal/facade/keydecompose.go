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

package facade

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/cryptoklabs/ck11core/internal/attr"
)

// The Primitive Engine returns asymmetric key material DER-encoded (PKIX for
// public keys, PKCS#1 for RSA private keys, SEC1 for EC private keys) and
// takes the same DER back verbatim on every later Sign/Verify/Encrypt/
// Decrypt/Derive call — it never reconstructs a key from individual
// components. The populate* helpers below do two things to each generated
// half's template: they decompose the DER into the standard
// CKA_MODULUS/CKA_PUBLIC_EXPONENT/CKA_EC_POINT/... components the PKCS#11
// object model exposes, and they also cache the DER itself under CKA_VALUE
// so later operations against this object can hand the engine back exactly
// what it produced, rather than re-deriving it (which for RSA would lose
// nothing but for EC would require re-deducing the curve from EC_PARAMS).
// object.Build only copies attributes already present in a template, so
// this must run before Build sees either template.

func populateRSAPublic(tmpl *attr.Blob, pubDER []byte) error {
	pub, err := x509.ParsePKIXPublicKey(pubDER)
	if err != nil {
		return fmt.Errorf("facade: parsing generated RSA public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("facade: generated public key is not RSA")
	}
	tmpl.RemoveEmpty(attr.Modulus)
	tmpl.Add(attr.Modulus, rsaPub.N.Bytes())
	tmpl.RemoveEmpty(attr.PublicExponent)
	tmpl.Add(attr.PublicExponent, big.NewInt(int64(rsaPub.E)).Bytes())
	tmpl.RemoveEmpty(attr.Value)
	tmpl.Add(attr.Value, pubDER)
	return nil
}

func populateRSAPrivate(tmpl *attr.Blob, privDER []byte) error {
	priv, err := x509.ParsePKCS1PrivateKey(privDER)
	if err != nil {
		return fmt.Errorf("facade: parsing generated RSA private key: %w", err)
	}
	tmpl.RemoveEmpty(attr.Modulus)
	tmpl.Add(attr.Modulus, priv.N.Bytes())
	tmpl.RemoveEmpty(attr.PublicExponent)
	tmpl.Add(attr.PublicExponent, big.NewInt(int64(priv.E)).Bytes())
	tmpl.RemoveEmpty(attr.PrivateExponent)
	tmpl.Add(attr.PrivateExponent, priv.D.Bytes())
	if len(priv.Primes) >= 2 {
		tmpl.RemoveEmpty(attr.Prime1)
		tmpl.Add(attr.Prime1, priv.Primes[0].Bytes())
		tmpl.RemoveEmpty(attr.Prime2)
		tmpl.Add(attr.Prime2, priv.Primes[1].Bytes())
	}
	tmpl.RemoveEmpty(attr.Value)
	tmpl.Add(attr.Value, privDER)
	return nil
}

func populateECPublic(tmpl *attr.Blob, pubDER []byte) error {
	pub, err := x509.ParsePKIXPublicKey(pubDER)
	if err != nil {
		return fmt.Errorf("facade: parsing generated EC public key: %w", err)
	}
	ecPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return fmt.Errorf("facade: generated public key is not EC")
	}
	// CKA_EC_POINT is the DER OCTET STRING wrapping the uncompressed point.
	point := elliptic.Marshal(ecPub.Curve, ecPub.X, ecPub.Y) //nolint:staticcheck // matches the wire format CKA_EC_POINT requires
	encoded, err := asn1.Marshal(point)
	if err != nil {
		return fmt.Errorf("facade: encoding EC point: %w", err)
	}
	tmpl.RemoveEmpty(attr.ECPoint)
	tmpl.Add(attr.ECPoint, encoded)
	tmpl.RemoveEmpty(attr.Value)
	tmpl.Add(attr.Value, pubDER)
	return nil
}

func populateECPrivate(tmpl *attr.Blob, privDER []byte) error {
	if _, err := x509.ParseECPrivateKey(privDER); err != nil {
		return fmt.Errorf("facade: parsing generated EC private key: %w", err)
	}
	tmpl.RemoveEmpty(attr.Value)
	tmpl.Add(attr.Value, privDER)
	return nil
}
