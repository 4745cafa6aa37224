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

package policy

import (
	"crypto/rand"

	"github.com/cryptoklabs/ck11core/internal/attr"
	"github.com/cryptoklabs/ck11core/internal/ckerr"
	"github.com/cryptoklabs/ck11core/internal/mechanism"
)

// CheckMechanismAgainstProcessing implements spec.md §4.5's
// check_mechanism_against_processing.
func CheckMechanismAgainstProcessing(mech mechanism.ID, proc Processing, step mechanism.Step) ckerr.CKR {
	switch step {
	case mechanism.StepInit:
		if mechanism.AllowedFunctions(mech)&proc.Function == 0 {
			return ckerr.KeyFunctionNotPermitted
		}
		return ckerr.OK

	case mechanism.StepOneShot, mechanism.StepUpdate:
		if proc.AlwaysAuthenticate && !proc.ReauthenticatedSinceInit {
			return ckerr.UserNotLoggedIn
		}
		if proc.Updated && mechanism.OneShotOnly(mech) {
			return ckerr.KeyFunctionNotPermitted
		}
		return ckerr.OK

	case mechanism.StepFinal:
		if proc.AlwaysAuthenticate && !proc.ReauthenticatedSinceInit {
			return ckerr.UserNotLoggedIn
		}
		return ckerr.OK

	default:
		return ckerr.GeneralError
	}
}

// CheckCreatedAttrsAgainstToken implements spec.md §4.5's
// check_created_attrs_against_token.
func CheckCreatedAttrsAgainstToken(session Session, attrs *attr.Blob) ckerr.CKR {
	sensitive := attrs.GetBool(attr.Sensitive)
	alwaysSensitive := attrs.GetBool(attr.AlwaysSensitive)
	extractable := attrs.GetBool(attr.Extractable)
	neverExtractable := attrs.GetBool(attr.NeverExtractable)
	if alwaysSensitive && !sensitive {
		return ckerr.GeneralError
	}
	if neverExtractable && extractable {
		return ckerr.GeneralError
	}

	if attrs.GetBool(attr.Trusted) && session.LoggedIn != UserSO {
		return ckerr.KeyFunctionNotPermitted
	}
	if attrs.GetBool(attr.Token) && !session.ReadWrite {
		return ckerr.SessionReadOnly
	}
	return ckerr.OK
}

// CheckAccessAttrsAgainstToken implements spec.md §4.5's
// check_access_attrs_against_token.
func CheckAccessAttrsAgainstToken(session Session, attrs *attr.Blob) ckerr.CKR {
	class, err := attrs.GetU32(attr.Class)
	isPrivateClass := err == nil && attr.ObjectClass(class) == attr.ClassPrivateKey
	if (isPrivateClass || attrs.GetBool(attr.Private)) && session.LoggedIn == UserPublic {
		return ckerr.KeyFunctionNotPermitted
	}
	return ckerr.OK
}

// creationFunctionRequiresNonLocal mirrors spec.md §4.5's list of
// mechanisms (by the creation path they drive) that require LOCAL=false.
func creationFunctionRequiresNonLocal(fn mechanism.CreationFunction) bool {
	switch fn {
	case mechanism.CreationImport, mechanism.CreationDerive:
		return true
	default:
		return false
	}
}

func creationFunctionRequiresLocal(fn mechanism.CreationFunction) bool {
	switch fn {
	case mechanism.CreationGenerate, mechanism.CreationGenerateKeyPair:
		return true
	default:
		return false
	}
}

// CheckCreatedAttrsAgainstProcessing implements spec.md §4.5's
// check_created_attrs_against_processing.
func CheckCreatedAttrsAgainstProcessing(mech mechanism.ID, fn mechanism.CreationFunction, attrs *attr.Blob) ckerr.CKR {
	local := attrs.GetBool(attr.Local)

	if creationFunctionRequiresNonLocal(fn) && local {
		return ckerr.GeneralError
	}
	if creationFunctionRequiresLocal(fn) && !local {
		return ckerr.GeneralError
	}

	if keyType, err := attrs.GetU32(attr.KeyType); err == nil {
		kt := attr.KeyType(keyType)
		switch mech {
		case mechanism.AESKeyGen:
			if kt != attr.KeyTypeAES {
				return ckerr.KeyTypeInconsistent
			}
		case mechanism.ECKeyPairGen:
			if kt != attr.KeyTypeEC {
				return ckerr.KeyTypeInconsistent
			}
		case mechanism.RSAPKCSKeyPairGen:
			if kt != attr.KeyTypeRSA {
				return ckerr.KeyTypeInconsistent
			}
		case mechanism.GenericSecretKeyGen:
			if kt != attr.KeyTypeGenericSecret {
				return ckerr.KeyTypeInconsistent
			}
		}
	}

	if isDeriveMechanism(mech) {
		class, err := attrs.GetU32(attr.Class)
		if err != nil || attr.ObjectClass(class) != attr.ClassSecretKey {
			return ckerr.TemplateInconsistent
		}
	}

	return ckerr.OK
}

func isDeriveMechanism(mech mechanism.ID) bool {
	return mechanism.AllowedFunctions(mech)&mechanism.FuncDerive != 0
}

// CheckCreatedAttrs implements spec.md §4.5's check_created_attrs, validating
// key sizes against the Mechanism Catalog's bounds and, for a
// GENERATE_KEY_PAIR, that both halves share KEY_TYPE.
func CheckCreatedAttrs(genMech mechanism.ID, k1 *attr.Blob, k2 *attr.Blob) ckerr.CKR {
	if k2 != nil {
		kt1, err1 := k1.GetU32(attr.KeyType)
		kt2, err2 := k2.GetU32(attr.KeyType)
		if err1 != nil || err2 != nil || kt1 != kt2 {
			return ckerr.KeyTypeInconsistent
		}
	}

	for _, k := range []*attr.Blob{k1, k2} {
		if k == nil {
			continue
		}
		if code := checkKeySize(genMech, k); code != ckerr.OK {
			return code
		}
	}
	return ckerr.OK
}

func checkKeySize(genMech mechanism.ID, k *attr.Blob) ckerr.CKR {
	keyTypeRaw, err := k.GetU32(attr.KeyType)
	if err != nil {
		return ckerr.OK
	}
	keyType := attr.KeyType(keyTypeRaw)

	switch {
	case keyType.IsSymmetric():
		length, err := k.GetU32(attr.ValueLen)
		if err != nil {
			return ckerr.OK // no size to check yet (e.g. IMPORT supplies VALUE directly)
		}
		min, max := mechanism.KeySizeBounds(genMech)
		if max == 0 || int(length) < min || int(length) > max {
			return ckerr.KeySizeRange
		}
	case keyType == attr.KeyTypeRSA || keyType == attr.KeyTypeDSA || keyType == attr.KeyTypeDH:
		bits, err := k.GetU32(attr.ModulusBits)
		if err != nil {
			return ckerr.OK
		}
		min, max := mechanism.KeySizeBounds(genMech)
		if max == 0 || int(bits) < min || int(bits) > max {
			return ckerr.KeySizeRange
		}
	case keyType == attr.KeyTypeEC:
		// Bound by EC_PARAMS, not a scalar size; no check here.
	}
	return ckerr.OK
}

// functionToParentAttr maps a Cryptoki function to the boolean capability
// its parent key must carry, per spec.md §4.5's
// check_parent_attrs_against_processing.
var functionToParentAttr = map[mechanism.Function]attr.ID{
	mechanism.FuncEncrypt: attr.Encrypt,
	mechanism.FuncDecrypt: attr.Decrypt,
	mechanism.FuncSign:    attr.Sign,
	mechanism.FuncVerify:  attr.Verify,
	mechanism.FuncWrap:    attr.Wrap,
	mechanism.FuncUnwrap:  attr.Unwrap,
	mechanism.FuncDerive:  attr.Derive,
}

// CheckParentAttrsAgainstProcessing implements spec.md §4.5's
// check_parent_attrs_against_processing.
func CheckParentAttrsAgainstProcessing(mech mechanism.ID, fn mechanism.Function, parent *attr.Blob) ckerr.CKR {
	if requiredAttr, ok := functionToParentAttr[fn]; ok {
		if !parent.GetBool(requiredAttr) {
			return ckerr.KeyFunctionNotPermitted
		}
	}

	if code := checkMechanismFamily(mech, parent); code != ckerr.OK {
		return code
	}

	if allowed, ok := parent.Find(attr.AllowedMechanisms); ok {
		if !mechanismListContains(allowed, mech) {
			return ckerr.KeyFunctionNotPermitted
		}
	}

	return ckerr.OK
}

func checkMechanismFamily(mech mechanism.ID, parent *attr.Blob) ckerr.CKR {
	class, classErr := parent.GetU32(attr.Class)
	keyTypeRaw, ktErr := parent.GetU32(attr.KeyType)
	if classErr != nil || ktErr != nil {
		return ckerr.GeneralError
	}
	keyType := attr.KeyType(keyTypeRaw)

	switch mech {
	case mechanism.AESECB, mechanism.AESCBC, mechanism.AESCBCPad, mechanism.AESGCM, mechanism.AESMAC, mechanism.AESKeyWrap:
		if attr.ObjectClass(class) != attr.ClassSecretKey || keyType != attr.KeyTypeAES {
			return ckerr.KeyFunctionNotPermitted
		}
	case mechanism.MD5HMAC, mechanism.SHA1HMAC, mechanism.SHA256HMAC, mechanism.SHA384HMAC, mechanism.SHA512HMAC:
		if attr.ObjectClass(class) != attr.ClassSecretKey {
			return ckerr.KeyFunctionNotPermitted
		}
		if keyType != mechanism.KeyType(mech) && keyType != attr.KeyTypeGenericSecret {
			return ckerr.KeyFunctionNotPermitted
		}
	case mechanism.ECDSA, mechanism.ECDSASHA256, mechanism.ECDH1Derive, mechanism.ECDH1CofactorDerive:
		if keyType != attr.KeyTypeEC {
			return ckerr.KeyFunctionNotPermitted
		}
	case mechanism.RSAPKCS, mechanism.RSAPKCSOAEP, mechanism.RSAPKCSPSS, mechanism.SHA256RSAPKCSPSS:
		if keyType != attr.KeyTypeRSA {
			return ckerr.KeyFunctionNotPermitted
		}
	}
	return ckerr.OK
}

func mechanismListContains(packed []byte, mech mechanism.ID) bool {
	for i := 0; i+4 <= len(packed); i += 4 {
		v := uint32(packed[i]) | uint32(packed[i+1])<<8 | uint32(packed[i+2])<<16 | uint32(packed[i+3])<<24
		if mechanism.ID(v) == mech {
			return true
		}
	}
	return false
}

// AddMissingAttributeID implements spec.md §4.5's add_missing_attribute_id,
// used by GENERATE_KEY_PAIR to keep a public/private pair's CKA_ID in sync.
func AddMissingAttributeID(k1, k2 *attr.Blob) error {
	id1, ok1 := k1.Find(attr.ID_)
	id2, ok2 := k2.Find(attr.ID_)

	switch {
	case ok1 && !ok2:
		k2.Add(attr.ID_, id1)
	case ok2 && !ok1:
		k1.Add(attr.ID_, id2)
	case !ok1 && !ok2:
		fresh := make([]byte, 16)
		if _, err := rand.Read(fresh); err != nil {
			return err
		}
		k1.Add(attr.ID_, fresh)
		k2.Add(attr.ID_, fresh)
	}
	return nil
}
