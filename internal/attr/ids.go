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

// Cryptoki v2.40 attribute identifiers relevant to this core, per spec.md
// §3. Values match the published CKA_* assignments so wire captures remain
// interoperable with a real PKCS#11 client library.
const (
	Class   ID = 0x00000000
	Token   ID = 0x00000001
	Private ID = 0x00000002
	Label   ID = 0x00000003
	Trusted ID = 0x00000086

	Value    ID = 0x00000011
	ValueLen ID = 0x00000161

	KeyType ID = 0x00000100
	ID_     ID = 0x00000102 // CKA_ID; named ID_ to avoid clashing with the attr.ID type.
	Subject ID = 0x00000101

	Sensitive          ID = 0x00000103
	Encrypt            ID = 0x00000104
	Decrypt            ID = 0x00000105
	Wrap               ID = 0x00000106
	Unwrap             ID = 0x00000107
	Sign               ID = 0x00000108
	SignRecover        ID = 0x00000109
	Verify             ID = 0x0000010A
	VerifyRecover      ID = 0x0000010B
	Derive             ID = 0x0000010C
	StartDate          ID = 0x00000110
	EndDate            ID = 0x00000111
	Modulus            ID = 0x00000120
	ModulusBits        ID = 0x00000121
	PublicExponent     ID = 0x00000122
	PrivateExponent    ID = 0x00000123
	Prime1             ID = 0x00000124
	Prime2             ID = 0x00000125
	Extractable        ID = 0x00000162
	Local              ID = 0x00000163
	NeverExtractable   ID = 0x00000164
	AlwaysSensitive    ID = 0x00000165
	KeyGenMechanism    ID = 0x00000166
	Modifiable         ID = 0x00000170
	Copyable           ID = 0x00000171
	ECParams           ID = 0x00000180
	ECPoint            ID = 0x00000181
	AlwaysAuthenticate ID = 0x00000202
	WrapWithTrusted    ID = 0x00000210
	Destroyable        ID = 0x00000172

	// AllowedMechanisms is a vendor-extension attribute carrying a
	// concatenation of little-endian u32 mechanism ids a key may be used
	// under, consulted by check_parent_attrs_against_processing.
	AllowedMechanisms ID = 0x00000600

	// Template-valued (indirect) attributes. The indirect bit is part of the
	// numeric value so ID.IsIndirect works directly on these constants.
	WrapTemplate   ID = 0x00000211 | indirectBit
	UnwrapTemplate ID = 0x00000212 | indirectBit
	DeriveTemplate ID = 0x00000213 | indirectBit
)

// ObjectClass is the CKO_* value carried by the Class attribute.
type ObjectClass uint32

const (
	ClassData      ObjectClass = 0x00000000
	ClassSecretKey ObjectClass = 0x00000004
	ClassPublicKey ObjectClass = 0x00000002
	ClassPrivateKey ObjectClass = 0x00000003
)

func (c ObjectClass) String() string {
	switch c {
	case ClassData:
		return "CKO_DATA"
	case ClassSecretKey:
		return "CKO_SECRET_KEY"
	case ClassPublicKey:
		return "CKO_PUBLIC_KEY"
	case ClassPrivateKey:
		return "CKO_PRIVATE_KEY"
	default:
		return "CKO_UNKNOWN"
	}
}

// KeyType is the CKK_* value carried by the KeyType attribute.
type KeyType uint32

const (
	KeyTypeRSA           KeyType = 0x00000000
	KeyTypeDSA           KeyType = 0x00000001
	KeyTypeDH            KeyType = 0x00000002
	KeyTypeEC            KeyType = 0x00000003
	KeyTypeGenericSecret KeyType = 0x00000010
	KeyTypeAES           KeyType = 0x0000001F
	KeyTypeMD5HMAC       KeyType = 0x00000027
	KeyTypeSHA1HMAC      KeyType = 0x00000028
	KeyTypeSHA224HMAC    KeyType = 0x0000002E
	KeyTypeSHA256HMAC    KeyType = 0x0000002B
	KeyTypeSHA384HMAC    KeyType = 0x0000002C
	KeyTypeSHA512HMAC    KeyType = 0x0000002D
)

func (k KeyType) String() string {
	switch k {
	case KeyTypeRSA:
		return "CKK_RSA"
	case KeyTypeDSA:
		return "CKK_DSA"
	case KeyTypeDH:
		return "CKK_DH"
	case KeyTypeEC:
		return "CKK_EC"
	case KeyTypeGenericSecret:
		return "CKK_GENERIC_SECRET"
	case KeyTypeAES:
		return "CKK_AES"
	case KeyTypeMD5HMAC:
		return "CKK_MD5_HMAC"
	case KeyTypeSHA1HMAC:
		return "CKK_SHA_1_HMAC"
	case KeyTypeSHA224HMAC:
		return "CKK_SHA224_HMAC"
	case KeyTypeSHA256HMAC:
		return "CKK_SHA256_HMAC"
	case KeyTypeSHA384HMAC:
		return "CKK_SHA384_HMAC"
	case KeyTypeSHA512HMAC:
		return "CKK_SHA512_HMAC"
	default:
		return "CKK_UNKNOWN"
	}
}

// IsSymmetric reports whether k belongs under CKO_SECRET_KEY.
func (k KeyType) IsSymmetric() bool {
	switch k {
	case KeyTypeGenericSecret, KeyTypeAES, KeyTypeMD5HMAC, KeyTypeSHA1HMAC,
		KeyTypeSHA224HMAC, KeyTypeSHA256HMAC, KeyTypeSHA384HMAC, KeyTypeSHA512HMAC:
		return true
	default:
		return false
	}
}

// IsAsymmetric reports whether k belongs under CKO_PUBLIC_KEY/CKO_PRIVATE_KEY.
func (k KeyType) IsAsymmetric() bool {
	switch k {
	case KeyTypeRSA, KeyTypeDSA, KeyTypeDH, KeyTypeEC:
		return true
	default:
		return false
	}
}

// BoolProps lists the 22 named boolean properties from spec.md §3, in a
// stable order used by the Sanitizer's collapsing pass and by tests.
var BoolProps = []ID{
	Token, Private, Trusted, Sensitive, Encrypt, Decrypt, Wrap, Unwrap,
	Sign, SignRecover, Verify, VerifyRecover, Derive, Extractable, Local,
	NeverExtractable, AlwaysSensitive, Modifiable, Copyable, Destroyable,
	AlwaysAuthenticate, WrapWithTrusted,
}

// IsBoolProp reports whether id is one of the 22 boolean properties.
func IsBoolProp(id ID) bool {
	for _, p := range BoolProps {
		if p == id {
			return true
		}
	}
	return false
}
