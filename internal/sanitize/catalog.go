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

package sanitize

import "github.com/cryptoklabs/ck11core/internal/attr"

// sizeClass classifies the allowed value-size shape for a non-boolean,
// non-indirect Cryptoki attribute, per spec.md §4.2's "known Cryptoki
// attribute of an allowed value-size class for that id".
type sizeClass int

const (
	sizeU32 sizeClass = iota
	sizeBytes
)

type catalogEntry struct {
	size sizeClass
}

// catalog enumerates every non-boolean, non-indirect, non-class/key_type
// attribute this core recognizes, and the shape its value must take. An id
// absent from this map, attr.BoolProps, and the indirect set is unrecognized
// and yields ATTRIBUTE_TYPE_INVALID.
var catalog = map[attr.ID]catalogEntry{
	attr.Label:           {sizeBytes},
	attr.Subject:         {sizeBytes},
	attr.ID_:             {sizeBytes},
	attr.Value:           {sizeBytes},
	attr.ValueLen:        {sizeU32},
	attr.StartDate:       {sizeBytes},
	attr.EndDate:         {sizeBytes},
	attr.Modulus:         {sizeBytes},
	attr.ModulusBits:     {sizeU32},
	attr.PublicExponent:  {sizeBytes},
	attr.PrivateExponent: {sizeBytes},
	attr.Prime1:          {sizeBytes},
	attr.Prime2:          {sizeBytes},
	attr.ECParams:        {sizeBytes},
	attr.ECPoint:         {sizeBytes},
	attr.KeyGenMechanism:  {sizeU32},
	attr.AllowedMechanisms: {sizeBytes},
}

// validShape reports whether value's length is permitted for id's size
// class.
func validShape(id attr.ID, value []byte) bool {
	entry, ok := catalog[id]
	if !ok {
		return false
	}
	if entry.size == sizeU32 {
		return len(value) == 4
	}
	return true
}

// known reports whether id is a recognized Cryptoki attribute identifier of
// any kind (boolean property, indirect template, class/key_type, or
// catalog-listed scalar/bytes attribute).
func known(id attr.ID) bool {
	if id == attr.Class || id == attr.KeyType {
		return true
	}
	if attr.IsBoolProp(id) {
		return true
	}
	if isIndirect(id) {
		return true
	}
	_, ok := catalog[id]
	return ok
}

var indirectIDs = map[attr.ID]bool{
	attr.WrapTemplate:   true,
	attr.UnwrapTemplate: true,
	attr.DeriveTemplate: true,
}

func isIndirect(id attr.ID) bool {
	return indirectIDs[id]
}
