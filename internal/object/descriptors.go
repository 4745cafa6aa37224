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

package object

import "github.com/cryptoklabs/ck11core/internal/attr"

// boolDefaults is the universal boolean-property default table from
// spec.md §4.3 step 5: MODIFIABLE, COPYABLE, DESTROYABLE default true, the
// 16 others listed here default false. Represented as a static table, keyed by id, so
// the builder never hard-codes per-attribute branching at call sites.
var boolDefaults = map[attr.ID]bool{
	attr.Token:              false,
	attr.Private:            false,
	attr.Trusted:            false,
	attr.Sensitive:          false,
	attr.Encrypt:            false,
	attr.Decrypt:            false,
	attr.Wrap:               false,
	attr.Unwrap:             false,
	attr.Sign:               false,
	attr.SignRecover:        false,
	attr.Verify:             false,
	attr.VerifyRecover:      false,
	attr.Derive:             false,
	attr.Extractable:        false,
	attr.Modifiable:         true,
	attr.Copyable:           true,
	attr.Destroyable:        true,
	attr.AlwaysAuthenticate: false,
	attr.WrapWithTrusted:    false,
	// LOCAL, NEVER_EXTRACTABLE, ALWAYS_SENSITIVE are derived, not defaulted.
}

// mandatoryAttrs, keyed by classKey, lists attributes that must be present in the
// sanitized template (beyond CLASS/KEY_TYPE, which the Sanitizer already
// requires to be internally consistent) for class/key_type combination,
// per spec.md §4.3 steps 2a-2d.
type classKey struct {
	class   attr.ObjectClass
	keyType attr.KeyType // zero value ("any") used for DATA/SECRET_KEY rows
}

var mandatoryAttrs = map[classKey][]attr.ID{
	{class: attr.ClassPublicKey}:                      {attr.Subject},
	{class: attr.ClassPublicKey, keyType: attr.KeyTypeRSA}: {attr.ModulusBits},
	{class: attr.ClassPublicKey, keyType: attr.KeyTypeEC}:  {attr.ECParams},
	{class: attr.ClassPrivateKey}:                     {attr.Subject},
	{class: attr.ClassPrivateKey, keyType: attr.KeyTypeEC}: {attr.ECParams},
}

// mandatoryForClass returns the attributes mandatory for every object of
// class, regardless of key type (e.g. SUBJECT for PUBLIC_KEY/PRIVATE_KEY).
func mandatoryForClass(class attr.ObjectClass) []attr.ID {
	return mandatoryAttrs[classKey{class: class}]
}

// mandatoryForClassKeyType returns the additional attributes mandatory for
// the specific (class, key_type) pair (e.g. MODULUS_BITS for RSA public
// keys, EC_PARAMS for EC keys of either class).
func mandatoryForClassKeyType(class attr.ObjectClass, keyType attr.KeyType) []attr.ID {
	return mandatoryAttrs[classKey{class: class, keyType: keyType}]
}
