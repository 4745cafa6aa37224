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

// Package primitive is the Primitive Engine: the collaborator that performs
// the actual cryptographic work behind Encrypt/Decrypt/Sign/Verify/Digest/
// Derive/Generate* once the Policy Engine has cleared an operation, per
// SPEC_FULL.md §4.8.
package primitive

import (
	"context"
	"errors"

	"github.com/cryptoklabs/ck11core/internal/attr"
	"github.com/cryptoklabs/ck11core/internal/mechanism"
)

// MechanismID is the engine-facing alias of mechanism.ID, kept distinct so
// Engine implementations don't need to import the mechanism package's
// descriptor/catalog machinery, only the identifier space.
type MechanismID = mechanism.ID

// KeyType is the engine-facing alias of attr.KeyType.
type KeyType = attr.KeyType

// KeyParams carries the generation parameters an asymmetric key-pair
// mechanism needs beyond the key type itself (RSA modulus bits, EC curve
// OID, DH/DSA domain parameters).
type KeyParams struct {
	ModulusBits int
	ECParams    []byte
	DHPrime     []byte
	DHBase      []byte
}

// Errors common to Engine implementations.
var (
	ErrMechanismNotSupported = errors.New("primitive: mechanism not supported by this engine")
	ErrInvalidKey            = errors.New("primitive: invalid key material")
	ErrVerificationFailed    = errors.New("primitive: signature verification failed")
)

// Engine is the Primitive Engine interface of SPEC_FULL.md §4.8. Its
// internal behavior is not part of the specified core; this repository
// names it and provides reference implementations.
type Engine interface {
	GenerateSymmetric(ctx context.Context, keyType KeyType, bits int) ([]byte, error)
	GenerateAsymmetric(ctx context.Context, keyType KeyType, params KeyParams) (pub, priv []byte, err error)
	Encrypt(ctx context.Context, mech MechanismID, key []byte, params, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, mech MechanismID, key []byte, params, ciphertext []byte) ([]byte, error)
	Sign(ctx context.Context, mech MechanismID, key []byte, data []byte) ([]byte, error)
	Verify(ctx context.Context, mech MechanismID, key []byte, data, sig []byte) error
	Digest(ctx context.Context, mech MechanismID, data []byte) ([]byte, error)
	Derive(ctx context.Context, mech MechanismID, key []byte, params []byte) ([]byte, error)
}
