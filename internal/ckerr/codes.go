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

// Package ckerr defines the Cryptoki (PKCS#11 v2.40) CKR_* status codes this
// service returns to clients, plus two internal sentinels that never cross
// the façade boundary.
package ckerr

import (
	"errors"
	"fmt"
)

// CKR is a Cryptoki return code, transported as an unsigned 32-bit value.
type CKR uint32

// Required mappings from spec.md §6.3. Internal sentinels (NotFound,
// NotImplemented) have the high bit set and are translated before they
// reach a client; see TranslateNotFound.
const (
	OK                        CKR = 0x00000000
	GeneralError              CKR = 0x00000005
	DeviceMemory              CKR = 0x00000031
	DeviceError               CKR = 0x00000030
	AttributeReadOnly         CKR = 0x00000010
	AttributeTypeInvalid      CKR = 0x00000012
	AttributeValueInvalid     CKR = 0x00000013
	TemplateIncomplete        CKR = 0x000000D0
	TemplateInconsistent      CKR = 0x000000D1
	KeyFunctionNotPermitted   CKR = 0x00000068
	KeySizeRange              CKR = 0x00000062
	KeyTypeInconsistent       CKR = 0x00000063
	MechanismInvalid          CKR = 0x00000070
	MechanismParamInvalid     CKR = 0x00000071
	ObjectHandleInvalid       CKR = 0x00000082
	SessionReadOnly           CKR = 0x000000B5
	SessionHandleInvalid      CKR = 0x000000B3
	UserNotLoggedIn           CKR = 0x00000101
	ActionProhibited          CKR = 0x0000001B
	BufferTooSmall            CKR = 0x00000150
	FunctionFailed            CKR = 0x00000006
	ArgumentsBad              CKR = 0x00000007
	CryptokiNotInitialized    CKR = 0x00000190
	DomainParamsInvalid       CKR = 0x00000130
	WrappedKeyInvalid         CKR = 0x00000110
	EncryptedDataInvalid      CKR = 0x00000040
	SignatureInvalid          CKR = 0x000000C0
	FunctionNotSupported      CKR = 0x00000054

	// NotFound is an internal sentinel: "first match for this AttrId is
	// absent". It must be translated by the façade before leaving the core.
	NotFound CKR = 0x80000000
	// NotImplemented is an internal sentinel for mechanisms recognized by
	// the catalog but not wired to a Primitive Engine implementation.
	NotImplemented CKR = 0x80000001
)

var names = map[CKR]string{
	OK:                      "CKR_OK",
	GeneralError:            "CKR_GENERAL_ERROR",
	DeviceMemory:            "CKR_DEVICE_MEMORY",
	DeviceError:             "CKR_DEVICE_ERROR",
	AttributeReadOnly:       "CKR_ATTRIBUTE_READ_ONLY",
	AttributeTypeInvalid:    "CKR_ATTRIBUTE_TYPE_INVALID",
	AttributeValueInvalid:   "CKR_ATTRIBUTE_VALUE_INVALID",
	TemplateIncomplete:      "CKR_TEMPLATE_INCOMPLETE",
	TemplateInconsistent:    "CKR_TEMPLATE_INCONSISTENT",
	KeyFunctionNotPermitted: "CKR_KEY_FUNCTION_NOT_PERMITTED",
	KeySizeRange:            "CKR_KEY_SIZE_RANGE",
	KeyTypeInconsistent:     "CKR_KEY_TYPE_INCONSISTENT",
	MechanismInvalid:        "CKR_MECHANISM_INVALID",
	MechanismParamInvalid:   "CKR_MECHANISM_PARAM_INVALID",
	ObjectHandleInvalid:     "CKR_OBJECT_HANDLE_INVALID",
	SessionReadOnly:         "CKR_SESSION_READ_ONLY",
	SessionHandleInvalid:    "CKR_SESSION_HANDLE_INVALID",
	UserNotLoggedIn:         "CKR_USER_NOT_LOGGED_IN",
	ActionProhibited:        "CKR_ACTION_PROHIBITED",
	BufferTooSmall:          "CKR_BUFFER_TOO_SMALL",
	FunctionFailed:          "CKR_FUNCTION_FAILED",
	ArgumentsBad:            "CKR_ARGUMENTS_BAD",
	CryptokiNotInitialized:  "CKR_CRYPTOKI_NOT_INITIALIZED",
	DomainParamsInvalid:     "CKR_DOMAIN_PARAMS_INVALID",
	WrappedKeyInvalid:       "CKR_WRAPPED_KEY_INVALID",
	EncryptedDataInvalid:    "CKR_ENCRYPTED_DATA_INVALID",
	SignatureInvalid:        "CKR_SIGNATURE_INVALID",
	FunctionNotSupported:    "CKR_FUNCTION_NOT_SUPPORTED",
	NotFound:                "CK11_NOT_FOUND",
	NotImplemented:          "CK11_NOT_IMPLEMENTED",
}

// String renders the symbolic CKR_* name, falling back to the numeric value.
func (c CKR) String() string {
	if n, ok := names[c]; ok {
		return n
	}
	return fmt.Sprintf("CKR_0x%08X", uint32(c))
}

// Error wraps a CKR with the operation that produced it and, optionally, the
// underlying cause. It implements error and errors.Unwrap so callers can
// match both the Cryptoki code and the root cause.
type Error struct {
	Code CKR
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Code, so
// errors.Is(err, ckerr.New("", ckerr.KeySizeRange)) works regardless of Op/Err.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// New constructs an *Error for op with the given code and no wrapped cause.
func New(op string, code CKR) *Error {
	return &Error{Code: code, Op: op}
}

// Wrap constructs an *Error for op with the given code, wrapping cause.
func Wrap(op string, code CKR, cause error) *Error {
	return &Error{Code: code, Op: op, Err: cause}
}

// Code extracts the CKR from err, returning OK if err is nil and
// GeneralError if err is not a *Error.
func Code(err error) CKR {
	if err == nil {
		return OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return GeneralError
}

// TranslateNotFound maps the internal NotFound sentinel to replacement, per
// spec.md §7's "NotFound must be translated before leaving the core" rule.
// Any other code passes through unchanged.
func TranslateNotFound(code CKR, replacement CKR) CKR {
	if code == NotFound {
		return replacement
	}
	return code
}
