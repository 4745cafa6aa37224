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

// Package session implements the Session & Auth Layer: it maps an
// authenticated connection to a Cryptoki session, tracks its login/
// read-write state, and keeps the single active Processing per
// (session, function) pair that the Policy Engine's
// check_mechanism_against_processing consults.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/cryptoklabs/ck11core/internal/mechanism"
	"github.com/cryptoklabs/ck11core/internal/policy"
)

// Common errors returned by Store implementations.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionExpired   = errors.New("session expired")
	ErrInvalidHandle    = errors.New("invalid session handle")
	ErrNoActiveProcess  = errors.New("no active processing for function")
)

// Session is one logged-in Cryptoki session, per SPEC_FULL.md §4.6.
type Session struct {
	Handle     uint64
	UserType   policy.UserType
	ReadWrite  bool
	OpenedAt   time.Time
	LastLogin  time.Time
	ExpiresAt  time.Time

	// Processing tracks the single active multi-part operation per
	// function; keyed by mechanism.Function so ENCRYPT and SIGN can be
	// interleaved on the same session but not two ENCRYPTs at once.
	Processing map[mechanism.Function]*policy.Processing
}

// ToPolicySession projects Session down to the minimal read-only view the
// Policy Engine's checks take.
func (s *Session) ToPolicySession() policy.Session {
	return policy.Session{ReadWrite: s.ReadWrite, LoggedIn: s.UserType}
}

// IsExpired reports whether the session has passed its ExpiresAt, if set.
func (s *Session) IsExpired() bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(s.ExpiresAt)
}

// LoginRequest carries a verified JWT's claims into session creation, per
// SPEC_FULL.md §4.6.
type LoginRequest struct {
	UserType policy.UserType
	ReadWrite bool
	TTL       time.Duration
}

// Store is the Session & Auth Layer's session bookkeeping interface. It is
// intentionally narrower than an ObjectStore: sessions are ephemeral,
// handle-keyed, and never searched by attribute content.
type Store interface {
	// Open creates a new session from a verified login and returns its
	// handle.
	Open(ctx context.Context, req LoginRequest) (*Session, error)

	// Get retrieves a session by handle.
	Get(ctx context.Context, handle uint64) (*Session, error)

	// Reauthenticate records that the session has re-presented valid
	// credentials, satisfying ALWAYS_AUTHENTICATE for every Processing
	// already active on the session at the time of this call.
	Reauthenticate(ctx context.Context, handle uint64) error

	// BeginProcessing records the start of a multi-part operation for fn.
	// A Processing already active for this (session, fn) pair is replaced;
	// that case is not reported as an error.
	BeginProcessing(ctx context.Context, handle uint64, fn mechanism.Function, proc policy.Processing) error

	// GetProcessing returns the active Processing for fn, if any.
	GetProcessing(ctx context.Context, handle uint64, fn mechanism.Function) (*policy.Processing, error)

	// MarkUpdated flips the active Processing's Updated flag.
	MarkUpdated(ctx context.Context, handle uint64, fn mechanism.Function) error

	// EndProcessing clears the active Processing for fn (FINAL step).
	EndProcessing(ctx context.Context, handle uint64, fn mechanism.Function) error

	// Close logs out a session and releases its resources.
	Close(ctx context.Context, handle uint64) error
}
