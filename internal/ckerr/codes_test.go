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

package ckerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringKnownCode(t *testing.T) {
	assert.Equal(t, "CKR_KEY_SIZE_RANGE", KeySizeRange.String())
}

func TestStringUnknownCode(t *testing.T) {
	assert.Equal(t, "CKR_0xDEADBEEF", CKR(0xDEADBEEF).String())
}

func TestErrorMessageWithoutCause(t *testing.T) {
	e := New("GenerateKey", KeySizeRange)
	assert.Contains(t, e.Error(), "GenerateKey")
	assert.Contains(t, e.Error(), "CKR_KEY_SIZE_RANGE")
}

func TestErrorMessageWithCause(t *testing.T) {
	cause := errors.New("boom")
	e := Wrap("Encrypt", GeneralError, cause)
	assert.Contains(t, e.Error(), "boom")
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := Wrap("Encrypt", GeneralError, cause)
	assert.Equal(t, cause, errors.Unwrap(e))
}

func TestIsMatchesByCodeOnly(t *testing.T) {
	err := Wrap("Sign", MechanismInvalid, errors.New("x"))
	assert.True(t, errors.Is(err, New("", MechanismInvalid)))
	assert.False(t, errors.Is(err, New("", KeySizeRange)))
}

func TestCodeExtractsFromWrappedError(t *testing.T) {
	err := New("Foo", SessionReadOnly)
	assert.Equal(t, SessionReadOnly, Code(err))
}

func TestCodeNilIsOK(t *testing.T) {
	assert.Equal(t, OK, Code(nil))
}

func TestCodeNonCKErrorIsGeneralError(t *testing.T) {
	assert.Equal(t, GeneralError, Code(errors.New("plain")))
}

func TestTranslateNotFoundReplacesSentinel(t *testing.T) {
	assert.Equal(t, AttributeTypeInvalid, TranslateNotFound(NotFound, AttributeTypeInvalid))
}

func TestTranslateNotFoundPassesThroughOtherCodes(t *testing.T) {
	assert.Equal(t, KeySizeRange, TranslateNotFound(KeySizeRange, AttributeTypeInvalid))
}
