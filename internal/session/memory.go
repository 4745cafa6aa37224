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

package session

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"

	"github.com/cryptoklabs/ck11core/internal/mechanism"
	"github.com/cryptoklabs/ck11core/internal/policy"
)

// MemoryStore is the default process-local Store implementation, used by
// tests and single-node deployments, per SPEC_FULL.md §4.7's sibling note
// for store/memory.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[uint64]*Session
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[uint64]*Session)}
}

func randomHandle() uint64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

func (m *MemoryStore) Open(ctx context.Context, req LoginRequest) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var handle uint64
	for {
		handle = randomHandle()
		if handle != 0 {
			if _, exists := m.sessions[handle]; !exists {
				break
			}
		}
	}

	s := &Session{
		Handle:     handle,
		UserType:   req.UserType,
		ReadWrite:  req.ReadWrite,
		OpenedAt:   now,
		LastLogin:  now,
		Processing: make(map[mechanism.Function]*policy.Processing),
	}
	if req.TTL > 0 {
		s.ExpiresAt = now.Add(req.TTL)
	}
	m.sessions[handle] = s
	return s, nil
}

func (m *MemoryStore) Get(ctx context.Context, handle uint64) (*Session, error) {
	if handle == 0 {
		return nil, ErrInvalidHandle
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[handle]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.IsExpired() {
		return nil, ErrSessionExpired
	}
	return s, nil
}

func (m *MemoryStore) Reauthenticate(ctx context.Context, handle uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[handle]
	if !ok {
		return ErrSessionNotFound
	}
	s.LastLogin = time.Now()
	for _, p := range s.Processing {
		p.ReauthenticatedSinceInit = true
	}
	return nil
}

func (m *MemoryStore) BeginProcessing(ctx context.Context, handle uint64, fn mechanism.Function, proc policy.Processing) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[handle]
	if !ok {
		return ErrSessionNotFound
	}
	p := proc
	s.Processing[fn] = &p
	return nil
}

func (m *MemoryStore) GetProcessing(ctx context.Context, handle uint64, fn mechanism.Function) (*policy.Processing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[handle]
	if !ok {
		return nil, ErrSessionNotFound
	}
	p, ok := s.Processing[fn]
	if !ok {
		return nil, ErrNoActiveProcess
	}
	return p, nil
}

func (m *MemoryStore) MarkUpdated(ctx context.Context, handle uint64, fn mechanism.Function) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[handle]
	if !ok {
		return ErrSessionNotFound
	}
	p, ok := s.Processing[fn]
	if !ok {
		return ErrNoActiveProcess
	}
	p.Updated = true
	return nil
}

func (m *MemoryStore) EndProcessing(ctx context.Context, handle uint64, fn mechanism.Function) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[handle]
	if !ok {
		return ErrSessionNotFound
	}
	delete(s.Processing, fn)
	return nil
}

func (m *MemoryStore) Close(ctx context.Context, handle uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[handle]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, handle)
	return nil
}

var _ Store = (*MemoryStore)(nil)
