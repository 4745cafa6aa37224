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
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cryptoklabs/ck11core/internal/mechanism"
	"github.com/cryptoklabs/ck11core/internal/policy"
)

const sessionKeyPrefix = "ck11:session:"

// RedisConfig configures the Redis-backed session hot cache from
// SPEC_FULL.md §4.7's store/redis.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// ParseRedisURL parses a redis://[:password@]host:port[/db] URL into a
// RedisConfig.
func ParseRedisURL(url string) (RedisConfig, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return RedisConfig{}, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return RedisConfig{Addr: opts.Addr, Password: opts.Password, DB: opts.DB}, nil
}

// RedisStore implements Store against Redis, so session state survives a
// façade process restart and can be shared across façade replicas serving
// the same token.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore dials cfg and verifies connectivity before returning.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: client, keyPrefix: cfg.KeyPrefix}, nil
}

// NewRedisStoreFromClient wraps an already-constructed client.
func NewRedisStoreFromClient(client *redis.Client, keyPrefix string) *RedisStore {
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (r *RedisStore) key(handle uint64) string {
	return fmt.Sprintf("%s%s%d", r.keyPrefix, sessionKeyPrefix, handle)
}

// record is the JSON-serializable projection of Session stored in Redis;
// Processing keys are strings since JSON object keys must be strings.
type record struct {
	Handle     uint64                          `json:"handle"`
	UserType   policy.UserType                 `json:"user_type"`
	ReadWrite  bool                            `json:"read_write"`
	OpenedAt   time.Time                       `json:"opened_at"`
	LastLogin  time.Time                       `json:"last_login"`
	ExpiresAt  time.Time                       `json:"expires_at"`
	Processing map[mechanism.Function]policy.Processing `json:"processing"`
}

func toRecord(s *Session) record {
	proc := make(map[mechanism.Function]policy.Processing, len(s.Processing))
	for fn, p := range s.Processing {
		proc[fn] = *p
	}
	return record{
		Handle: s.Handle, UserType: s.UserType, ReadWrite: s.ReadWrite,
		OpenedAt: s.OpenedAt, LastLogin: s.LastLogin, ExpiresAt: s.ExpiresAt,
		Processing: proc,
	}
}

func fromRecord(rec record) *Session {
	proc := make(map[mechanism.Function]*policy.Processing, len(rec.Processing))
	for fn, p := range rec.Processing {
		pp := p
		proc[fn] = &pp
	}
	return &Session{
		Handle: rec.Handle, UserType: rec.UserType, ReadWrite: rec.ReadWrite,
		OpenedAt: rec.OpenedAt, LastLogin: rec.LastLogin, ExpiresAt: rec.ExpiresAt,
		Processing: proc,
	}
}

func (r *RedisStore) load(ctx context.Context, handle uint64) (*Session, time.Duration, error) {
	data, err := r.client.Get(ctx, r.key(handle)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, 0, ErrSessionNotFound
		}
		return nil, 0, fmt.Errorf("failed to get session: %w", err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	ttl, err := r.client.TTL(ctx, r.key(handle)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read session TTL: %w", err)
	}
	return fromRecord(rec), ttl, nil
}

func (r *RedisStore) save(ctx context.Context, s *Session, ttl time.Duration) error {
	data, err := json.Marshal(toRecord(s))
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, r.key(s.Handle), data, ttl).Err()
}

func randomRedisHandle() uint64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

func (r *RedisStore) Open(ctx context.Context, req LoginRequest) (*Session, error) {
	now := time.Now()
	handle := randomRedisHandle()
	s := &Session{
		Handle: handle, UserType: req.UserType, ReadWrite: req.ReadWrite,
		OpenedAt: now, LastLogin: now,
		Processing: make(map[mechanism.Function]*policy.Processing),
	}
	var ttl time.Duration
	if req.TTL > 0 {
		s.ExpiresAt = now.Add(req.TTL)
		ttl = req.TTL
	}
	if err := r.save(ctx, s, ttl); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *RedisStore) Get(ctx context.Context, handle uint64) (*Session, error) {
	if handle == 0 {
		return nil, ErrInvalidHandle
	}
	s, _, err := r.load(ctx, handle)
	if err != nil {
		return nil, err
	}
	if s.IsExpired() {
		return nil, ErrSessionExpired
	}
	return s, nil
}

func (r *RedisStore) Reauthenticate(ctx context.Context, handle uint64) error {
	s, ttl, err := r.load(ctx, handle)
	if err != nil {
		return err
	}
	s.LastLogin = time.Now()
	for _, p := range s.Processing {
		p.ReauthenticatedSinceInit = true
	}
	return r.save(ctx, s, ttl)
}

func (r *RedisStore) BeginProcessing(ctx context.Context, handle uint64, fn mechanism.Function, proc policy.Processing) error {
	s, ttl, err := r.load(ctx, handle)
	if err != nil {
		return err
	}
	p := proc
	s.Processing[fn] = &p
	return r.save(ctx, s, ttl)
}

func (r *RedisStore) GetProcessing(ctx context.Context, handle uint64, fn mechanism.Function) (*policy.Processing, error) {
	s, _, err := r.load(ctx, handle)
	if err != nil {
		return nil, err
	}
	p, ok := s.Processing[fn]
	if !ok {
		return nil, ErrNoActiveProcess
	}
	return p, nil
}

func (r *RedisStore) MarkUpdated(ctx context.Context, handle uint64, fn mechanism.Function) error {
	s, ttl, err := r.load(ctx, handle)
	if err != nil {
		return err
	}
	p, ok := s.Processing[fn]
	if !ok {
		return ErrNoActiveProcess
	}
	p.Updated = true
	return r.save(ctx, s, ttl)
}

func (r *RedisStore) EndProcessing(ctx context.Context, handle uint64, fn mechanism.Function) error {
	s, ttl, err := r.load(ctx, handle)
	if err != nil {
		return err
	}
	delete(s.Processing, fn)
	return r.save(ctx, s, ttl)
}

func (r *RedisStore) Close(ctx context.Context, handle uint64) error {
	n, err := r.client.Del(ctx, r.key(handle)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
