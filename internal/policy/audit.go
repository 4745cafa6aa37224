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
	"context"
	"log/slog"

	"github.com/cryptoklabs/ck11core/internal/ckerr"
)

// DecisionEntry is one structured audit record for a Policy Engine verdict,
// logged whether the verdict allows or denies the call.
type DecisionEntry struct {
	Decision  string // "allow" or "deny"
	Check     string // which check produced the verdict, e.g. "CheckParentAttrsAgainstProcessing"
	Code      ckerr.CKR
	Session   uint64
	Object    uint64
	Mechanism string
	Message   string
}

// AuditLogger emits structured log entries for Policy Engine decisions.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates an AuditLogger backed by the given slog.Logger
// (cmd/tokend passes one built with pkg/logging.SlogFromLogr).
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// Log emits one DecisionEntry. Denials log at warn level; allows at info,
// so an operator can filter a deployment's audit stream down to denials
// alone without losing the allow-path record entirely.
func (a *AuditLogger) Log(entry DecisionEntry) {
	level := slog.LevelInfo
	if entry.Decision == "deny" {
		level = slog.LevelWarn
	}
	a.logger.Log(context.Background(), level, "policy.decision",
		"decision", entry.Decision,
		"check", entry.Check,
		"code", entry.Code,
		"session", entry.Session,
		"object", entry.Object,
		"mechanism", entry.Mechanism,
		"message", entry.Message,
	)
}

// LogCheck is a convenience wrapper that derives Decision from code, for
// call sites that only have a ckerr.CKR verdict in hand rather than a
// pre-built DecisionEntry.
func (a *AuditLogger) LogCheck(check string, code ckerr.CKR, session, object uint64, mechanism, message string) {
	decision := "allow"
	if code != ckerr.OK {
		decision = "deny"
	}
	a.Log(DecisionEntry{
		Decision:  decision,
		Check:     check,
		Code:      code,
		Session:   session,
		Object:    object,
		Mechanism: mechanism,
		Message:   message,
	})
}
