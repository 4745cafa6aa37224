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

// Package logctx provides structured logging context management. It allows
// storing and extracting common logging fields from context.Context, so the
// facade and policy packages can log consistently without threading loggers
// through every call.
package logctx

import (
	"context"

	"github.com/go-logr/logr"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// Context keys for common logging fields.
const (
	// ContextKeySessionID identifies the Cryptoki session.
	ContextKeySessionID contextKey = "session_id"

	// ContextKeyRequestID identifies the individual command invocation.
	ContextKeyRequestID contextKey = "request_id"

	// ContextKeyUserType identifies the logged-in user type (public/user/so).
	ContextKeyUserType contextKey = "user_type"

	// ContextKeyMechanism identifies the mechanism in play for the current call.
	ContextKeyMechanism contextKey = "mechanism"

	// ContextKeyFunction identifies the Cryptoki function (ENCRYPT, SIGN, ...).
	ContextKeyFunction contextKey = "function"

	// ContextKeyObjectHandle identifies the object handle under operation.
	ContextKeyObjectHandle contextKey = "object_handle"
)

var allContextKeys = []contextKey{
	ContextKeySessionID,
	ContextKeyRequestID,
	ContextKeyUserType,
	ContextKeyMechanism,
	ContextKeyFunction,
	ContextKeyObjectHandle,
}

// WithSessionID returns a new context with the session ID set.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, sessionID)
}

// WithRequestID returns a new context with the request ID set.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// WithUserType returns a new context with the logged-in user type set.
func WithUserType(ctx context.Context, userType string) context.Context {
	return context.WithValue(ctx, ContextKeyUserType, userType)
}

// WithMechanism returns a new context with the mechanism name set.
func WithMechanism(ctx context.Context, mechanism string) context.Context {
	return context.WithValue(ctx, ContextKeyMechanism, mechanism)
}

// WithFunction returns a new context with the Cryptoki function name set.
func WithFunction(ctx context.Context, function string) context.Context {
	return context.WithValue(ctx, ContextKeyFunction, function)
}

// WithObjectHandle returns a new context with the object handle set.
func WithObjectHandle(ctx context.Context, handle string) context.Context {
	return context.WithValue(ctx, ContextKeyObjectHandle, handle)
}

// LogrValues extracts context values and returns them as key-value pairs
// suitable for use with logr.Logger.WithValues(). Only non-empty values are
// included.
func LogrValues(ctx context.Context) []interface{} {
	var values []interface{}
	for _, key := range allContextKeys {
		if v := ctx.Value(key); v != nil {
			if s, ok := v.(string); ok && s != "" {
				values = append(values, string(key), s)
			}
		}
	}
	return values
}

// LoggerWithContext returns a logger enriched with all context values.
func LoggerWithContext(log logr.Logger, ctx context.Context) logr.Logger {
	values := LogrValues(ctx)
	if len(values) == 0 {
		return log
	}
	return log.WithValues(values...)
}

// SessionID extracts the session ID from the context.
func SessionID(ctx context.Context) string { return getString(ctx, ContextKeySessionID) }

// RequestID extracts the request ID from the context.
func RequestID(ctx context.Context) string { return getString(ctx, ContextKeyRequestID) }

// UserType extracts the logged-in user type from the context.
func UserType(ctx context.Context) string { return getString(ctx, ContextKeyUserType) }

func getString(ctx context.Context, key contextKey) string {
	if v := ctx.Value(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
