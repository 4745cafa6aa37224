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

// Package facade implements the Session-facing Façade of spec.md §2
// component 6: the transport frame codec (binary.go) plus Server, which
// composes the Sanitizer, Object Builder, and Policy Engine in spec.md
// §4.5's mandated check ordering for every entry point a session can drive.
package facade

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cryptoklabs/ck11core/internal/attr"
	"github.com/cryptoklabs/ck11core/internal/ckerr"
	"github.com/cryptoklabs/ck11core/internal/mechanism"
	"github.com/cryptoklabs/ck11core/internal/object"
	"github.com/cryptoklabs/ck11core/internal/policy"
	"github.com/cryptoklabs/ck11core/internal/primitive"
	"github.com/cryptoklabs/ck11core/internal/sanitize"
	"github.com/cryptoklabs/ck11core/internal/session"
	"github.com/cryptoklabs/ck11core/pkg/metrics"
)

// ObjectStore is the Object Store collaborator's shape. store/memory,
// store/postgres, and store/redis each satisfy it independently; Server
// takes it as an interface rather than importing any one backend.
type ObjectStore interface {
	Put(ctx context.Context, handle uint64, class attr.ObjectClass, blob attr.Blob) error
	Get(ctx context.Context, handle uint64) (attr.Blob, error)
	Delete(ctx context.Context, handle uint64) error
	Find(ctx context.Context, ref attr.Blob) ([]uint64, error)
}

// Server composes the Sanitizer, Object Builder, and Policy Engine for
// every session-facing operation, per spec.md §4.5's mandated check
// ordering table. It holds no mutex of its own: the Session Store and
// Object Store collaborators are each responsible for their own
// concurrency, and Server never holds a lock across a call to either.
type Server struct {
	Objects  ObjectStore
	Sessions session.Store
	Engine   primitive.Engine
	Policy   *policy.Engine
	Audit    *policy.AuditLogger
	// Metrics is consulted if non-nil; metrics.NoOpMetrics{} satisfies it
	// for callers that want the field always set rather than guarded.
	Metrics metrics.Recorder
}

// NewServer wires the façade's collaborators. audit and metrics may be nil.
func NewServer(objects ObjectStore, sessions session.Store, engine primitive.Engine, pol *policy.Engine, audit *policy.AuditLogger) *Server {
	return &Server{Objects: objects, Sessions: sessions, Engine: engine, Policy: pol, Audit: audit}
}

func (s *Server) recordOperation(mech mechanism.ID, fn mechanism.Function, start time.Time, success bool) {
	if s.Metrics == nil {
		return
	}
	s.Metrics.RecordOperation(metrics.OperationMetrics{
		Mechanism:       mechLabel(mech),
		Function:        fn.String(),
		DurationSeconds: time.Since(start).Seconds(),
		Success:         success,
	})
}

// newHandle allocates a random object handle, grounded on the same
// crypto/rand pattern internal/session uses for session handles.
func newHandle() uint64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

func mechLabel(mech mechanism.ID) string {
	return fmt.Sprintf("0x%08X", uint32(mech))
}

func (s *Server) logDecision(check string, code ckerr.CKR, sessionHandle, objectHandle uint64, mech mechanism.ID, message string) {
	if s.Audit == nil {
		return
	}
	s.Audit.LogCheck(check, code, sessionHandle, objectHandle, mechLabel(mech), message)
}

// CreateObject implements spec.md §4.5's CREATE row: Sanitize, then
// build_object(template, nil, Import), then the Policy Engine's
// created-attrs checks, then Object Store.Put.
func (s *Server) CreateObject(ctx context.Context, sessionHandle uint64, rawTemplate []byte) (uint64, error) {
	sess, err := s.Sessions.Get(ctx, sessionHandle)
	if err != nil {
		return 0, err
	}

	sanitized, err := sanitize.Sanitize(rawTemplate)
	if err != nil {
		return 0, err
	}

	built, err := object.Build(&sanitized, nil, mechanism.CreationImport)
	if err != nil {
		return 0, err
	}

	if code := s.Policy.CheckCreate(sess.ToPolicySession(), 0, mechanism.CreationImport, &built, nil); code != ckerr.OK {
		s.logDecision("CheckCreate", code, sessionHandle, 0, 0, "")
		return 0, ckerr.New("facade.CreateObject", code)
	}

	handle := newHandle()
	class, _ := built.GetU32(attr.Class)
	if err := s.Objects.Put(ctx, handle, attr.ObjectClass(class), built); err != nil {
		return 0, err
	}
	s.logDecision("CheckCreate", ckerr.OK, sessionHandle, handle, 0, "")
	return handle, nil
}

// GenerateKey implements spec.md §4.5's GENERATE row: the mechanism is
// checked against the session's processing state, the Primitive Engine
// produces the key bytes, then build_object/CheckCreate run exactly as for
// an imported object. attr.ValueLen on the sanitized template is read in
// bytes (the Cryptoki convention); Engine.GenerateSymmetric takes bits.
func (s *Server) GenerateKey(ctx context.Context, sessionHandle uint64, mech mechanism.ID, rawTemplate []byte) (uint64, error) {
	sess, err := s.Sessions.Get(ctx, sessionHandle)
	if err != nil {
		return 0, err
	}

	proc := policy.Processing{Mechanism: mech, Function: mechanism.FuncGenerate}
	if code := policy.CheckMechanismAgainstProcessing(mech, proc, mechanism.StepInit); code != ckerr.OK {
		s.logDecision("CheckMechanismAgainstProcessing", code, sessionHandle, 0, mech, "")
		return 0, ckerr.New("facade.GenerateKey", code)
	}

	sanitized, err := sanitize.Sanitize(rawTemplate)
	if err != nil {
		return 0, err
	}

	keyTypeRaw, err := sanitized.GetU32(attr.KeyType)
	if err != nil {
		return 0, ckerr.New("facade.GenerateKey", ckerr.TemplateIncomplete)
	}
	valueLen, err := sanitized.GetU32(attr.ValueLen)
	if err != nil {
		return 0, ckerr.New("facade.GenerateKey", ckerr.TemplateIncomplete)
	}

	start := time.Now()
	keyBytes, err := s.Engine.GenerateSymmetric(ctx, attr.KeyType(keyTypeRaw), int(valueLen)*8)
	s.recordOperation(mech, mechanism.FuncGenerate, start, err == nil)
	if err != nil {
		return 0, err
	}
	sanitized.RemoveEmpty(attr.Value)
	sanitized.Add(attr.Value, keyBytes)

	built, err := object.Build(&sanitized, nil, mechanism.CreationGenerate)
	if err != nil {
		return 0, err
	}

	if code := s.Policy.CheckCreate(sess.ToPolicySession(), mech, mechanism.CreationGenerate, &built, nil); code != ckerr.OK {
		s.logDecision("CheckCreate", code, sessionHandle, 0, mech, "")
		return 0, ckerr.New("facade.GenerateKey", code)
	}

	handle := newHandle()
	class, _ := built.GetU32(attr.Class)
	if err := s.Objects.Put(ctx, handle, attr.ObjectClass(class), built); err != nil {
		return 0, err
	}
	s.logDecision("CheckCreate", ckerr.OK, sessionHandle, handle, mech, "")
	return handle, nil
}

// GenerateKeyPair implements spec.md §4.5's GENERATE_PAIR row: the
// Primitive Engine produces both halves, each half's DER is decomposed into
// its Cryptoki attribute components, the two built objects are synced via
// add_missing_attribute_id, then the Policy Engine clears both together
// before either is persisted.
func (s *Server) GenerateKeyPair(ctx context.Context, sessionHandle uint64, mech mechanism.ID, rawPublicTemplate, rawPrivateTemplate []byte, params primitive.KeyParams) (pubHandle, privHandle uint64, err error) {
	sess, err := s.Sessions.Get(ctx, sessionHandle)
	if err != nil {
		return 0, 0, err
	}

	proc := policy.Processing{Mechanism: mech, Function: mechanism.FuncGenerateKeyPair}
	if code := policy.CheckMechanismAgainstProcessing(mech, proc, mechanism.StepInit); code != ckerr.OK {
		s.logDecision("CheckMechanismAgainstProcessing", code, sessionHandle, 0, mech, "")
		return 0, 0, ckerr.New("facade.GenerateKeyPair", code)
	}

	pubTemplate, err := sanitize.Sanitize(rawPublicTemplate)
	if err != nil {
		return 0, 0, err
	}
	privTemplate, err := sanitize.Sanitize(rawPrivateTemplate)
	if err != nil {
		return 0, 0, err
	}

	keyTypeRaw, err := pubTemplate.GetU32(attr.KeyType)
	if err != nil {
		return 0, 0, ckerr.New("facade.GenerateKeyPair", ckerr.TemplateIncomplete)
	}
	keyType := attr.KeyType(keyTypeRaw)
	if keyType != attr.KeyTypeRSA && keyType != attr.KeyTypeEC {
		return 0, 0, ckerr.New("facade.GenerateKeyPair", ckerr.TemplateInconsistent)
	}

	start := time.Now()
	pubDER, privDER, err := s.Engine.GenerateAsymmetric(ctx, keyType, params)
	s.recordOperation(mech, mechanism.FuncGenerateKeyPair, start, err == nil)
	if err != nil {
		return 0, 0, err
	}

	switch keyType {
	case attr.KeyTypeRSA:
		if err := populateRSAPublic(&pubTemplate, pubDER); err != nil {
			return 0, 0, err
		}
		if err := populateRSAPrivate(&privTemplate, privDER); err != nil {
			return 0, 0, err
		}
	case attr.KeyTypeEC:
		if err := populateECPublic(&pubTemplate, pubDER); err != nil {
			return 0, 0, err
		}
		if err := populateECPrivate(&privTemplate, privDER); err != nil {
			return 0, 0, err
		}
	}

	pubBuilt, err := object.Build(&pubTemplate, nil, mechanism.CreationGenerateKeyPair)
	if err != nil {
		return 0, 0, err
	}
	privBuilt, err := object.Build(&privTemplate, nil, mechanism.CreationGenerateKeyPair)
	if err != nil {
		return 0, 0, err
	}

	if err := policy.AddMissingAttributeID(&pubBuilt, &privBuilt); err != nil {
		return 0, 0, err
	}

	if code := s.Policy.CheckCreate(sess.ToPolicySession(), mech, mechanism.CreationGenerateKeyPair, &pubBuilt, &privBuilt); code != ckerr.OK {
		s.logDecision("CheckCreate", code, sessionHandle, 0, mech, "")
		return 0, 0, ckerr.New("facade.GenerateKeyPair", code)
	}

	pubHandle = newHandle()
	privHandle = newHandle()
	pubClass, _ := pubBuilt.GetU32(attr.Class)
	privClass, _ := privBuilt.GetU32(attr.Class)
	if err := s.Objects.Put(ctx, pubHandle, attr.ObjectClass(pubClass), pubBuilt); err != nil {
		return 0, 0, err
	}
	if err := s.Objects.Put(ctx, privHandle, attr.ObjectClass(privClass), privBuilt); err != nil {
		return 0, 0, err
	}
	s.logDecision("CheckCreate", ckerr.OK, sessionHandle, privHandle, mech, "")
	return pubHandle, privHandle, nil
}

// Derive implements spec.md §4.5's DERIVE row: check_parent_attrs_against_
// processing and the mechanism/processing check run against the base key
// first, then the Primitive Engine derives, then build_object/CheckCreate
// run against the derived key with the base key as parent.
func (s *Server) Derive(ctx context.Context, sessionHandle uint64, mech mechanism.ID, baseHandle uint64, rawTemplate, params []byte) (uint64, error) {
	sess, err := s.Sessions.Get(ctx, sessionHandle)
	if err != nil {
		return 0, err
	}

	base, err := s.Objects.Get(ctx, baseHandle)
	if err != nil {
		return 0, err
	}

	proc := policy.Processing{Mechanism: mech, Function: mechanism.FuncDerive}
	if code := s.Policy.CheckParent(mech, mechanism.FuncDerive, mechanism.StepInit, proc, &base); code != ckerr.OK {
		s.logDecision("CheckParent", code, sessionHandle, baseHandle, mech, "")
		return 0, ckerr.New("facade.Derive", code)
	}

	if err := s.Policy.EvalExperimentalRule(mechLabel(mech), &base, nil); err != nil {
		return 0, err
	}

	baseKey, ok := base.Find(attr.Value)
	if !ok {
		return 0, ckerr.New("facade.Derive", ckerr.ObjectHandleInvalid)
	}

	start := time.Now()
	derived, err := s.Engine.Derive(ctx, mech, baseKey, params)
	s.recordOperation(mech, mechanism.FuncDerive, start, err == nil)
	if err != nil {
		return 0, err
	}

	sanitized, err := sanitize.Sanitize(rawTemplate)
	if err != nil {
		return 0, err
	}
	sanitized.RemoveEmpty(attr.Value)
	sanitized.Add(attr.Value, derived)

	built, err := object.Build(&sanitized, &base, mechanism.CreationDerive)
	if err != nil {
		return 0, err
	}

	if code := s.Policy.CheckCreate(sess.ToPolicySession(), mech, mechanism.CreationDerive, &built, nil); code != ckerr.OK {
		s.logDecision("CheckCreate", code, sessionHandle, 0, mech, "")
		return 0, ckerr.New("facade.Derive", code)
	}

	handle := newHandle()
	class, _ := built.GetU32(attr.Class)
	if err := s.Objects.Put(ctx, handle, attr.ObjectClass(class), built); err != nil {
		return 0, err
	}
	s.logDecision("CheckCreate", ckerr.OK, sessionHandle, handle, mech, "")
	return handle, nil
}

// BeginOperation implements spec.md §4.5's ENCRYPT/DECRYPT/SIGN/VERIFY/WRAP/
// UNWRAP-INIT row: check_parent_attrs_against_processing against the key
// object, then check_mechanism_against_processing for the INIT step, then
// the resulting Processing is recorded on the session so subsequent
// UPDATE/FINAL calls can be checked against it.
func (s *Server) BeginOperation(ctx context.Context, sessionHandle uint64, fn mechanism.Function, mech mechanism.ID, keyHandle uint64) error {
	if _, err := s.Sessions.Get(ctx, sessionHandle); err != nil {
		return err
	}

	key, err := s.Objects.Get(ctx, keyHandle)
	if err != nil {
		return err
	}

	proc := policy.Processing{
		Mechanism:          mech,
		Function:           fn,
		AlwaysAuthenticate: key.GetBool(attr.AlwaysAuthenticate),
	}
	if code := s.Policy.CheckParent(mech, fn, mechanism.StepInit, proc, &key); code != ckerr.OK {
		s.logDecision("CheckParent", code, sessionHandle, keyHandle, mech, "")
		return ckerr.New("facade.BeginOperation", code)
	}

	if err := s.Sessions.BeginProcessing(ctx, sessionHandle, fn, proc); err != nil {
		return err
	}
	s.logDecision("CheckParent", ckerr.OK, sessionHandle, keyHandle, mech, "")
	return nil
}
