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

// Package object implements the Object Builder: from a sanitized
// attribute template (and optional parent object), constructs a complete
// Cryptoki object of a given class/key_type by applying defaults,
// mandatory/optional attribute sets, and the derived LOCAL,
// ALWAYS_SENSITIVE, and NEVER_EXTRACTABLE attributes, per spec.md §4.3.
//
// Build is transactional: on any failure the returned Blob is the zero
// value and no partial object is retained, matching spec.md §7's
// propagation policy for the Object Builder.
package object

import (
	"github.com/cryptoklabs/ck11core/internal/attr"
	"github.com/cryptoklabs/ck11core/internal/ckerr"
	"github.com/cryptoklabs/ck11core/internal/mechanism"
)

// Build constructs a complete object blob from a sanitized template. parent
// is non-nil for CreationCopy and CreationDerive. fn drives the LOCAL
// derivation and the ALWAYS_SENSITIVE/NEVER_EXTRACTABLE formula.
func Build(template *attr.Blob, parent *attr.Blob, fn mechanism.CreationFunction) (attr.Blob, error) {
	class, err := classOf(template)
	if err != nil {
		return attr.Blob{}, err
	}

	keyType, hasKeyType := keyTypeOf(template)
	if isKeyClass(class) && !hasKeyType {
		return attr.Blob{}, ckerr.New("Build", ckerr.TemplateIncomplete)
	}

	for _, id := range mandatoryForClass(class) {
		if _, ok := template.Find(id); !ok {
			return attr.Blob{}, ckerr.New("Build", ckerr.TemplateIncomplete)
		}
	}
	for _, id := range mandatoryForClassKeyType(class, keyType) {
		if _, ok := template.Find(id); !ok {
			return attr.Blob{}, ckerr.New("Build", ckerr.TemplateIncomplete)
		}
	}

	out := attr.New()
	out.PutU32(attr.Class, uint32(class))
	if hasKeyType {
		out.PutU32(attr.KeyType, uint32(keyType))
	}

	copyOptional(template, &out, optionalAttrsFor(class, keyType))

	applyBoolDefaults(template, &out)

	local := deriveLocal(fn, parent)
	out.PutBool(attr.Local, local)

	if isKeyClass(class) {
		alwaysSensitive, neverExtractable := deriveSensitivityInvariants(fn, &out, parent)
		out.PutBool(attr.AlwaysSensitive, alwaysSensitive)
		out.PutBool(attr.NeverExtractable, neverExtractable)
	}

	return out, nil
}

func classOf(template *attr.Blob) (attr.ObjectClass, error) {
	v, err := template.GetU32(attr.Class)
	if err != nil {
		return 0, ckerr.New("Build", ckerr.TemplateIncomplete)
	}
	return attr.ObjectClass(v), nil
}

func keyTypeOf(template *attr.Blob) (attr.KeyType, bool) {
	v, err := template.GetU32(attr.KeyType)
	if err != nil {
		return 0, false
	}
	return attr.KeyType(v), true
}

func isKeyClass(class attr.ObjectClass) bool {
	switch class {
	case attr.ClassSecretKey, attr.ClassPublicKey, attr.ClassPrivateKey:
		return true
	default:
		return false
	}
}

// optionalAttrsFor returns every non-boolean, non-CLASS/KEY_TYPE attribute
// id this (class, key_type) pair is allowed to carry, per spec.md §4.3
// steps 2a-2d. Anything else present in the template is simply dropped by
// the builder (the Sanitizer has already rejected unknown ids; an
// unsupported-but-known attribute for this class/type is not copied
// forward, matching "copy optional ... attributes" being an allow-list).
func optionalAttrsFor(class attr.ObjectClass, keyType attr.KeyType) []attr.ID {
	switch class {
	case attr.ClassData:
		return []attr.ID{attr.Value, attr.Label, attr.ID_}
	case attr.ClassSecretKey:
		return []attr.ID{attr.Value, attr.ValueLen, attr.Label, attr.ID_, attr.AllowedMechanisms,
			attr.WrapTemplate, attr.UnwrapTemplate, attr.DeriveTemplate}
	case attr.ClassPublicKey:
		// CKA_VALUE has no standard meaning for an RSA/EC public key, but
		// the Object Builder still allows it through here: it's how the
		// Façade caches the Primitive Engine's own DER-encoded public key
		// bytes alongside the decomposed Cryptoki components, so Sign/
		// Encrypt/Derive can hand the engine back exactly what it produced
		// at generation time instead of re-deriving it from components.
		base := []attr.ID{attr.Subject, attr.Label, attr.ID_, attr.AllowedMechanisms, attr.WrapTemplate, attr.Value}
		switch keyType {
		case attr.KeyTypeRSA:
			return append(base, attr.ModulusBits, attr.Modulus, attr.PublicExponent)
		case attr.KeyTypeEC:
			return append(base, attr.ECParams, attr.ECPoint)
		default:
			return base
		}
	case attr.ClassPrivateKey:
		base := []attr.ID{attr.Subject, attr.Label, attr.ID_, attr.AllowedMechanisms, attr.UnwrapTemplate, attr.Value}
		switch keyType {
		case attr.KeyTypeRSA:
			return append(base, attr.Modulus, attr.PublicExponent, attr.PrivateExponent, attr.Prime1, attr.Prime2)
		case attr.KeyTypeEC:
			return append(base, attr.ECParams)
		default:
			return base
		}
	default:
		return nil
	}
}

func copyOptional(template, out *attr.Blob, ids []attr.ID) {
	for _, id := range ids {
		if v, ok := template.Find(id); ok {
			out.Add(id, v)
		}
	}
}

func applyBoolDefaults(template, out *attr.Blob) {
	for _, id := range attr.BoolProps {
		if _, defaulted := boolDefaults[id]; !defaulted {
			continue // LOCAL, NEVER_EXTRACTABLE, ALWAYS_SENSITIVE are derived by Build
		}
		if v, ok := template.Find(id); ok {
			out.Add(id, v)
			continue
		}
		out.PutBool(id, boolDefaults[id])
	}
}

// deriveLocal implements spec.md §3's LOCAL invariant and §4.3 step 3.
func deriveLocal(fn mechanism.CreationFunction, parent *attr.Blob) bool {
	switch fn {
	case mechanism.CreationGenerate, mechanism.CreationGenerateKeyPair:
		return true
	case mechanism.CreationCopy:
		return parent != nil && parent.GetBool(attr.Local)
	default: // CreationImport, CreationDerive
		return false
	}
}

// deriveSensitivityInvariants implements spec.md §3's ALWAYS_SENSITIVE and
// NEVER_EXTRACTABLE formulas. For CreationImport there is no parent and no
// GENERATE-style formula is specified; this core applies the same
// self-referential formula GENERATE uses (ALWAYS_SENSITIVE = SENSITIVE,
// NEVER_EXTRACTABLE = ¬EXTRACTABLE) since an imported key's sensitivity
// history starts at import, matching the monotonicity invariant's base
// case.
func deriveSensitivityInvariants(fn mechanism.CreationFunction, out *attr.Blob, parent *attr.Blob) (alwaysSensitive, neverExtractable bool) {
	sensitive := out.GetBool(attr.Sensitive)
	extractable := out.GetBool(attr.Extractable)

	switch fn {
	case mechanism.CreationCopy, mechanism.CreationDerive:
		if parent == nil {
			return sensitive, !extractable
		}
		return parent.GetBool(attr.AlwaysSensitive) && sensitive,
			parent.GetBool(attr.NeverExtractable) && !extractable
	default: // CreationGenerate, CreationGenerateKeyPair, CreationImport
		return sensitive, !extractable
	}
}
