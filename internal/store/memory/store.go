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

// Package memory is the default process-local ObjectStore, used by tests
// and single-node deployments per SPEC_FULL.md §4.7.
package memory

import (
	"context"
	"sync"

	"github.com/cryptoklabs/ck11core/internal/attr"
	"github.com/cryptoklabs/ck11core/internal/ckerr"
)

type entry struct {
	class attr.ObjectClass
	blob  attr.Blob
}

// Store is a mutex-guarded map keyed by object handle.
type Store struct {
	mu      sync.RWMutex
	objects map[uint64]entry
}

// New returns an empty Store.
func New() *Store {
	return &Store{objects: make(map[uint64]entry)}
}

func (s *Store) Put(ctx context.Context, handle uint64, class attr.ObjectClass, blob attr.Blob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[handle] = entry{class: class, blob: blob}
	return nil
}

func (s *Store) Get(ctx context.Context, handle uint64) (attr.Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.objects[handle]
	if !ok {
		return attr.Blob{}, ckerr.New("store.Get", ckerr.ObjectHandleInvalid)
	}
	return e.blob, nil
}

func (s *Store) Delete(ctx context.Context, handle uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[handle]; !ok {
		return ckerr.New("store.Delete", ckerr.ObjectHandleInvalid)
	}
	delete(s.objects, handle)
	return nil
}

// Find returns every handle whose stored blob contains all attributes in ref
// (PKCS#11 C_FindObjectsInit template matching: an empty ref matches every
// object).
func (s *Store) Find(ctx context.Context, ref attr.Blob) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []uint64
	for handle, e := range s.objects {
		blob := e.blob
		if attr.MatchReference(&ref, &blob) {
			out = append(out, handle)
		}
	}
	return out, nil
}
