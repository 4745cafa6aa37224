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

// Package redis is the store/redis ObjectStore: a Redis-backed object store
// keyed by handle, per SPEC_FULL.md §4.7.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cryptoklabs/ck11core/internal/attr"
	"github.com/cryptoklabs/ck11core/internal/ckerr"
)

const defaultKeyPrefix = "ck11:object:"

// Config holds connection settings for the Redis hot cache.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	// TTL is how long a cached object survives without being touched again.
	// Zero disables expiry.
	TTL time.Duration
}

// Store keeps attribute blobs by handle in Redis. A handle that is not in
// Redis is reported as CKR_OBJECT_HANDLE_INVALID; no other store is consulted.
type Store struct {
	client    *goredis.Client
	keyPrefix string
	ttl       time.Duration
	ownsClient bool
}

// New creates a Store that owns its client, verified with a PING.
func New(cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: connecting: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Store{client: client, keyPrefix: prefix, ttl: cfg.TTL, ownsClient: true}, nil
}

// NewFromClient wraps an already-constructed client; the caller retains
// ownership and Close is a no-op.
func NewFromClient(client *goredis.Client, keyPrefix string, ttl time.Duration) *Store {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &Store{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

// Close releases the client if this Store created it.
func (s *Store) Close() error {
	if s.ownsClient {
		return s.client.Close()
	}
	return nil
}

// Ping verifies the client can still reach Redis, for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) key(handle uint64) string {
	return fmt.Sprintf("%s%d", s.keyPrefix, handle)
}

func (s *Store) Put(ctx context.Context, handle uint64, class attr.ObjectClass, blob attr.Blob) error {
	encoded := attr.Encode(&blob)
	if err := s.client.Set(ctx, s.key(handle), encoded, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: put object %d: %w", handle, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, handle uint64) (attr.Blob, error) {
	raw, err := s.client.Get(ctx, s.key(handle)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return attr.Blob{}, ckerr.New("store.Get", ckerr.ObjectHandleInvalid)
		}
		return attr.Blob{}, fmt.Errorf("redis: get object %d: %w", handle, err)
	}
	blob, err := attr.Decode(raw)
	if err != nil {
		return attr.Blob{}, fmt.Errorf("redis: decode object %d: %w", handle, err)
	}
	return blob, nil
}

func (s *Store) Delete(ctx context.Context, handle uint64) error {
	n, err := s.client.Del(ctx, s.key(handle)).Result()
	if err != nil {
		return fmt.Errorf("redis: delete object %d: %w", handle, err)
	}
	if n == 0 {
		return ckerr.New("store.Delete", ckerr.ObjectHandleInvalid)
	}
	return nil
}

// Find is not supported and returns CKR_FUNCTION_NOT_SUPPORTED: the store
// only serves point lookups by handle and does not scan by attribute
// template.
func (s *Store) Find(ctx context.Context, ref attr.Blob) ([]uint64, error) {
	return nil, ckerr.New("store.Find", ckerr.FunctionNotSupported)
}
