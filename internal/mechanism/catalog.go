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

// Package mechanism implements the static Mechanism Catalog: per-mechanism
// allowed-function bitsets, one-shot-only and token-supported flags, and
// key-size bounds, per spec.md §4.4.
package mechanism

import (
	"sort"

	"github.com/cryptoklabs/ck11core/internal/attr"
)

// ID is a Cryptoki CKM_* mechanism identifier.
type ID uint32

const (
	AESKeyGen           ID = 0x00001080
	AESECB              ID = 0x00001081
	AESCBC              ID = 0x00001082
	AESCBCPad           ID = 0x00001085
	AESGCM              ID = 0x00001087
	AESMAC              ID = 0x00001083
	AESKeyWrap          ID = 0x00002109

	GenericSecretKeyGen ID = 0x00000350

	MD5HMAC    ID = 0x00000211
	SHA1HMAC   ID = 0x00000221
	SHA256HMAC ID = 0x00000251
	SHA384HMAC ID = 0x00000261
	SHA512HMAC ID = 0x00000271

	SHA1   ID = 0x00000220
	SHA256 ID = 0x00000250
	SHA384 ID = 0x00000260
	SHA512 ID = 0x00000270

	RSAPKCSKeyPairGen ID = 0x00000000
	RSAPKCS           ID = 0x00000001
	RSAPKCSOAEP       ID = 0x00000009
	RSAPKCSPSS        ID = 0x0000000D
	SHA256RSAPKCSPSS  ID = 0x00000043

	ECKeyPairGen       ID = 0x00001040
	ECDSA              ID = 0x00001041
	ECDSASHA256        ID = 0x00001044
	ECDH1Derive        ID = 0x00001050
	ECDH1CofactorDerive ID = 0x00001051

	DHPKCSKeyPairGen ID = 0x00000020
	DHPKCSDerive     ID = 0x00000021
)

// descriptor is the catalog row for a single mechanism.
type descriptor struct {
	allowed        Function
	tokenSupported Function
	oneShotOnly    bool
	keyType        attr.KeyType
	minKeySize     int // bits for asymmetric, bytes for symmetric
	maxKeySize     int
}

// catalog is the static table from spec.md §4.4. Symmetric bounds are in
// bytes (matching VALUE_LEN); asymmetric bounds are in bits (matching
// MODULUS_BITS / curve order size via EC_PARAMS, where 0 means "unbounded,
// checked via EC_PARAMS instead").
var catalog = map[ID]descriptor{
	AESKeyGen: {
		allowed: FuncGenerate, tokenSupported: FuncGenerate,
		keyType: attr.KeyTypeAES, minKeySize: 16, maxKeySize: 32,
	},
	AESECB: {
		allowed: FuncEncrypt | FuncDecrypt | FuncWrap | FuncUnwrap,
		tokenSupported: FuncEncrypt | FuncDecrypt,
		keyType: attr.KeyTypeAES,
	},
	AESCBC: {
		allowed: FuncEncrypt | FuncDecrypt | FuncWrap | FuncUnwrap,
		tokenSupported: FuncEncrypt | FuncDecrypt,
		keyType: attr.KeyTypeAES,
	},
	AESCBCPad: {
		allowed: FuncEncrypt | FuncDecrypt,
		tokenSupported: FuncEncrypt | FuncDecrypt,
		keyType: attr.KeyTypeAES,
	},
	AESGCM: {
		allowed: FuncEncrypt | FuncDecrypt,
		tokenSupported: FuncEncrypt | FuncDecrypt,
		keyType: attr.KeyTypeAES,
	},
	AESMAC: {
		allowed: FuncSign | FuncVerify, tokenSupported: FuncSign | FuncVerify,
		oneShotOnly: false, keyType: attr.KeyTypeAES,
	},
	AESKeyWrap: {
		allowed: FuncWrap | FuncUnwrap, tokenSupported: 0, // advertised, not wired
		keyType: attr.KeyTypeAES,
	},
	GenericSecretKeyGen: {
		allowed: FuncGenerate, tokenSupported: FuncGenerate,
		keyType: attr.KeyTypeGenericSecret, minKeySize: 1, maxKeySize: 128,
	},
	MD5HMAC: {
		allowed: FuncSign | FuncVerify, tokenSupported: FuncSign | FuncVerify,
		keyType: attr.KeyTypeMD5HMAC,
	},
	SHA1HMAC: {
		allowed: FuncSign | FuncVerify, tokenSupported: FuncSign | FuncVerify,
		keyType: attr.KeyTypeSHA1HMAC,
	},
	SHA256HMAC: {
		allowed: FuncSign | FuncVerify, tokenSupported: FuncSign | FuncVerify,
		keyType: attr.KeyTypeSHA256HMAC,
	},
	SHA384HMAC: {
		allowed: FuncSign | FuncVerify, tokenSupported: FuncSign | FuncVerify,
		keyType: attr.KeyTypeSHA384HMAC,
	},
	SHA512HMAC: {
		allowed: FuncSign | FuncVerify, tokenSupported: FuncSign | FuncVerify,
		keyType: attr.KeyTypeSHA512HMAC,
	},
	SHA1: {
		allowed: FuncDigest, tokenSupported: FuncDigest, oneShotOnly: false,
	},
	SHA256: {
		allowed: FuncDigest, tokenSupported: FuncDigest, oneShotOnly: false,
	},
	SHA384: {
		allowed: FuncDigest, tokenSupported: FuncDigest, oneShotOnly: false,
	},
	SHA512: {
		allowed: FuncDigest, tokenSupported: FuncDigest, oneShotOnly: false,
	},
	RSAPKCSKeyPairGen: {
		allowed: FuncGenerateKeyPair, tokenSupported: FuncGenerateKeyPair,
		keyType: attr.KeyTypeRSA, minKeySize: 2048, maxKeySize: 4096,
	},
	RSAPKCS: {
		allowed: FuncEncrypt | FuncDecrypt | FuncSign | FuncVerify | FuncWrap | FuncUnwrap,
		tokenSupported: FuncEncrypt | FuncDecrypt | FuncSign | FuncVerify,
		oneShotOnly: true, keyType: attr.KeyTypeRSA,
	},
	RSAPKCSOAEP: {
		allowed: FuncEncrypt | FuncDecrypt | FuncWrap | FuncUnwrap,
		tokenSupported: FuncEncrypt | FuncDecrypt,
		oneShotOnly: true, keyType: attr.KeyTypeRSA,
	},
	RSAPKCSPSS: {
		allowed: FuncSign | FuncVerify, tokenSupported: FuncSign | FuncVerify,
		oneShotOnly: true, keyType: attr.KeyTypeRSA,
	},
	SHA256RSAPKCSPSS: {
		allowed: FuncSign | FuncVerify, tokenSupported: FuncSign | FuncVerify,
		keyType: attr.KeyTypeRSA,
	},
	ECKeyPairGen: {
		allowed: FuncGenerateKeyPair, tokenSupported: FuncGenerateKeyPair,
		keyType: attr.KeyTypeEC,
	},
	ECDSA: {
		allowed: FuncSign | FuncVerify, tokenSupported: FuncSign | FuncVerify,
		oneShotOnly: true, keyType: attr.KeyTypeEC,
	},
	ECDSASHA256: {
		allowed: FuncSign | FuncVerify, tokenSupported: FuncSign | FuncVerify,
		keyType: attr.KeyTypeEC,
	},
	ECDH1Derive: {
		allowed: FuncDerive, tokenSupported: FuncDerive, keyType: attr.KeyTypeEC,
	},
	ECDH1CofactorDerive: {
		allowed: FuncDerive, tokenSupported: 0, keyType: attr.KeyTypeEC, // advertised, not wired
	},
	DHPKCSKeyPairGen: {
		allowed: FuncGenerateKeyPair, tokenSupported: 0, keyType: attr.KeyTypeDH,
	},
	DHPKCSDerive: {
		allowed: FuncDerive, tokenSupported: 0, keyType: attr.KeyTypeDH,
	},
}

// IsValid reports whether id names a mechanism in the catalog.
func IsValid(id ID) bool {
	_, ok := catalog[id]
	return ok
}

// AllowedFunctions returns the bitset of functions this mechanism may ever
// be invoked under.
func AllowedFunctions(id ID) Function {
	return catalog[id].allowed
}

// TokenSupportedFunctions returns the subset of AllowedFunctions this
// implementation actually exposes; zero means advertised-only.
func TokenSupportedFunctions(id ID) Function {
	return catalog[id].tokenSupported
}

// OneShotOnly reports whether id cannot be used across UPDATE steps.
func OneShotOnly(id ID) bool {
	return catalog[id].oneShotOnly
}

// KeyType returns the key type this mechanism's GENERATE/GENERATE_KEY_PAIR
// produces, or operates on for non-generation mechanisms.
func KeyType(id ID) attr.KeyType {
	return catalog[id].keyType
}

// KeySizeBounds returns the inclusive [min, max] key-size bounds for id,
// per spec.md §4.4. Units follow catalog convention: bytes for symmetric
// key types, bits for asymmetric ones.
func KeySizeBounds(id ID) (min, max int) {
	d := catalog[id]
	return d.minKeySize, d.maxKeySize
}

// EnumerateSupported returns every mechanism with a non-zero
// TokenSupportedFunctions bitset, sorted by numeric ID for stable output.
func EnumerateSupported() []ID {
	var out []ID
	for id, d := range catalog {
		if d.tokenSupported != 0 {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
