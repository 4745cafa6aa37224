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

// Package sanitize normalizes a client-supplied attribute template into a
// canonical Blob: class/key_type deduplicated, boolean properties collapsed
// to one entry each, indirect templates recursively sanitized, and every
// other attribute validated against the Cryptoki attribute catalog.
package sanitize

import (
	"bytes"

	"github.com/cryptoklabs/ck11core/internal/attr"
	"github.com/cryptoklabs/ck11core/internal/ckerr"
)

// Sanitize implements spec.md §4.2's two-pass algorithm over raw wire bytes.
func Sanitize(raw []byte) (attr.Blob, error) {
	decoded, err := attr.Decode(raw)
	if err != nil {
		return attr.Blob{}, ckerr.Wrap("Sanitize", ckerr.TemplateInconsistent, err)
	}
	return SanitizeBlob(&decoded)
}

// SanitizeBlob runs the same algorithm directly on an already-decoded Blob,
// used both by Sanitize and for recursing into nested (indirect) templates.
func SanitizeBlob(in *attr.Blob) (attr.Blob, error) {
	out := attr.New()

	class, hasClass, err := extractClass(in)
	if err != nil {
		return attr.Blob{}, err
	}
	keyType, hasKeyType, err := extractKeyType(in)
	if err != nil {
		return attr.Blob{}, err
	}
	if hasClass {
		out.PutU32(attr.Class, uint32(class))
	}
	if hasKeyType {
		out.PutU32(attr.KeyType, uint32(keyType))
	}

	seenBool := make(map[attr.ID][]byte)
	for _, e := range in.All() {
		switch {
		case e.ID == attr.Class || e.ID == attr.KeyType:
			continue // handled by pass A above

		case attr.IsBoolProp(e.ID):
			prior, seen := seenBool[e.ID]
			if seen {
				if !bytes.Equal(prior, e.Value) {
					return attr.Blob{}, ckerr.New("Sanitize", ckerr.TemplateInconsistent)
				}
				continue
			}
			seenBool[e.ID] = e.Value
			out.Add(e.ID, normalizeBool(e.Value))

		case isIndirect(e.ID):
			if hasClass && class != attr.ClassSecretKey && class != attr.ClassPublicKey && class != attr.ClassPrivateKey {
				return attr.Blob{}, ckerr.New("Sanitize", ckerr.TemplateInconsistent)
			}
			nestedIn, derr := attr.Decode(e.Value)
			if derr != nil {
				return attr.Blob{}, ckerr.Wrap("Sanitize", ckerr.TemplateInconsistent, derr)
			}
			nestedOut, serr := SanitizeBlob(&nestedIn)
			if serr != nil {
				return attr.Blob{}, serr
			}
			out.Add(e.ID, attr.Encode(&nestedOut))

		default:
			if !known(e.ID) {
				return attr.Blob{}, ckerr.New("Sanitize", ckerr.AttributeTypeInvalid)
			}
			if !validShape(e.ID, e.Value) {
				return attr.Blob{}, ckerr.New("Sanitize", ckerr.TemplateInconsistent)
			}
			out.Add(e.ID, e.Value)
		}
	}

	if hasClass {
		if !validClass(class) {
			return attr.Blob{}, ckerr.New("Sanitize", ckerr.TemplateInconsistent)
		}
		if hasKeyType {
			if err := checkClassKeyTypeConsistency(class, keyType); err != nil {
				return attr.Blob{}, err
			}
		}
	}

	return out, nil
}

// extractClass implements pass A's CLASS extraction: at most one distinct
// value may appear across all CLASS entries in the input.
func extractClass(in *attr.Blob) (attr.ObjectClass, bool, error) {
	entries := in.FindAll(attr.Class)
	if len(entries) == 0 {
		return 0, false, nil
	}
	first := entries[0].Value
	for _, e := range entries[1:] {
		if !bytes.Equal(first, e.Value) {
			return 0, false, ckerr.New("Sanitize", ckerr.TemplateInconsistent)
		}
	}
	if len(first) != 4 {
		return 0, false, ckerr.New("Sanitize", ckerr.AttributeValueInvalid)
	}
	return attr.ObjectClass(le32(first)), true, nil
}

func extractKeyType(in *attr.Blob) (attr.KeyType, bool, error) {
	entries := in.FindAll(attr.KeyType)
	if len(entries) == 0 {
		return 0, false, nil
	}
	first := entries[0].Value
	for _, e := range entries[1:] {
		if !bytes.Equal(first, e.Value) {
			return 0, false, ckerr.New("Sanitize", ckerr.TemplateInconsistent)
		}
	}
	if len(first) != 4 {
		return 0, false, ckerr.New("Sanitize", ckerr.AttributeValueInvalid)
	}
	return attr.KeyType(le32(first)), true, nil
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func normalizeBool(v []byte) []byte {
	if len(v) > 0 && v[0] != 0 {
		return []byte{1}
	}
	return []byte{0}
}

// validClass reports whether class belongs to the accepted set from
// spec.md §3; other classes (certificates, OTP, HW features, ...) are
// rejected at the Sanitizer.
func validClass(class attr.ObjectClass) bool {
	switch class {
	case attr.ClassData, attr.ClassSecretKey, attr.ClassPublicKey, attr.ClassPrivateKey:
		return true
	default:
		return false
	}
}

// checkClassKeyTypeConsistency enforces spec.md §4.2 step 3: DATA admits
// any key_type (ignored); SECRET_KEY requires a symmetric key_type;
// PUBLIC_KEY/PRIVATE_KEY require an asymmetric one.
func checkClassKeyTypeConsistency(class attr.ObjectClass, keyType attr.KeyType) error {
	switch class {
	case attr.ClassData:
		return nil
	case attr.ClassSecretKey:
		if !keyType.IsSymmetric() {
			return ckerr.New("Sanitize", ckerr.TemplateInconsistent)
		}
	case attr.ClassPublicKey, attr.ClassPrivateKey:
		if !keyType.IsAsymmetric() {
			return ckerr.New("Sanitize", ckerr.TemplateInconsistent)
		}
	default:
		return ckerr.New("Sanitize", ckerr.TemplateInconsistent)
	}
	return nil
}
