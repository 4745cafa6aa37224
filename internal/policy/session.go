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

// Package policy implements the Policy Engine: per-step checks deciding
// whether a given (mechanism, function, object) triple is permitted, per
// spec.md §4.5. Every check is a pure, total function over its inputs —
// no check mutates a Session, Processing, or attr.Blob argument.
package policy

import "github.com/cryptoklabs/ck11core/internal/mechanism"

// UserType mirrors the Cryptoki CKU_* login roles this core distinguishes.
type UserType int

const (
	UserPublic UserType = iota
	UserNormal
	UserSO
)

// Session is the minimal read-only view of session state the Policy Engine
// needs. The session package's richer Session type satisfies this via a
// projection, keeping policy free of any import on session.
type Session struct {
	ReadWrite bool
	LoggedIn  UserType
}

// Processing tracks the state of one in-progress multi-part crypto
// operation (ENCRYPT/DECRYPT/SIGN/VERIFY/DIGEST/WRAP/UNWRAP/DERIVE),
// per spec.md §4.5's check_mechanism_against_processing.
type Processing struct {
	Mechanism          mechanism.ID
	Function           mechanism.Function
	AlwaysAuthenticate bool
	Updated            bool
	ReauthenticatedSinceInit bool
}
