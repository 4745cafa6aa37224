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

package mechanism

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(AESGCM))
	assert.False(t, IsValid(ID(0xFFFFFFFF)))
}

func TestAESKeyGenBounds(t *testing.T) {
	min, max := KeySizeBounds(AESKeyGen)
	assert.Equal(t, 16, min)
	assert.Equal(t, 32, max)
}

func TestOneShotOnly(t *testing.T) {
	assert.True(t, OneShotOnly(RSAPKCS))
	assert.False(t, OneShotOnly(AESCBC))
}

func TestTokenSupportedIsSubsetOfAllowed(t *testing.T) {
	// Universal invariant from spec.md §8: for every token-supported
	// mechanism, allowed_functions ⊇ token_supported_functions.
	for id := range catalog {
		allowed := AllowedFunctions(id)
		supported := TokenSupportedFunctions(id)
		assert.Equal(t, supported, allowed&supported, "mechanism %#x: token-supported functions must be a subset of allowed", uint32(id))
	}
}

func TestAdvertisedOnlyMechanismHasZeroTokenSupport(t *testing.T) {
	assert.Equal(t, Function(0), TokenSupportedFunctions(AESKeyWrap))
	assert.NotEqual(t, Function(0), AllowedFunctions(AESKeyWrap))
}

func TestEnumerateSupportedExcludesAdvertisedOnly(t *testing.T) {
	supported := EnumerateSupported()
	for _, id := range supported {
		assert.NotEqual(t, Function(0), TokenSupportedFunctions(id))
	}

	found := false
	for _, id := range supported {
		if id == AESGCM {
			found = true
		}
	}
	assert.True(t, found)
}

func TestEnumerateSupportedIsSorted(t *testing.T) {
	supported := EnumerateSupported()
	for i := 1; i < len(supported); i++ {
		assert.Less(t, supported[i-1], supported[i])
	}
}

func TestFunctionStringNames(t *testing.T) {
	assert.Equal(t, "ENCRYPT", FuncEncrypt.String())
	assert.Equal(t, "GENERATE_KEY_PAIR", FuncGenerateKeyPair.String())
}
