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

package primitive

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/cryptoklabs/ck11core/internal/ckerr"
)

// BreakerSettings configures the circuit breaker placed in front of a
// remote-KMS-backed Engine. The defaults trip after five consecutive
// failures and probe again a minute later, per SPEC_FULL.md §4.8: a
// degraded external HSM/KMS must fail fast instead of blocking the
// façade calls waiting on it.
type BreakerSettings struct {
	Name        string
	MaxFailures uint32
	OpenTimeout time.Duration
}

// DefaultBreakerSettings returns the settings tokend wires in front of a
// remote Engine by default.
func DefaultBreakerSettings(name string) BreakerSettings {
	return BreakerSettings{Name: name, MaxFailures: 5, OpenTimeout: time.Minute}
}

// keyPair is the two-value return of GenerateAsymmetric, boxed so it fits
// gobreaker's single-type-parameter CircuitBreaker.
type keyPair struct {
	pub, priv []byte
}

// BreakingEngine wraps an Engine with a gobreaker circuit breaker: once
// MaxFailures consecutive calls fail, the breaker opens and every call
// returns CKR_DEVICE_ERROR immediately until OpenTimeout elapses, instead of
// letting a wedged remote HSM/KMS hang the caller.
type BreakingEngine struct {
	next Engine

	bytesCB   *gobreaker.CircuitBreaker[[]byte]
	keyPairCB *gobreaker.CircuitBreaker[keyPair]
	voidCB    *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakingEngine wraps next with a circuit breaker configured by
// settings. Three internal CircuitBreaker instances are needed to match Go's
// generics to Engine's differing return shapes; each keeps its own state and
// counts, but all are configured identically, so under normal traffic a
// remote engine's overall health tends to open or close them together.
func NewBreakingEngine(next Engine, settings BreakerSettings) *BreakingEngine {
	st := gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
	}
	return &BreakingEngine{
		next:      next,
		bytesCB:   gobreaker.NewCircuitBreaker[[]byte](st),
		keyPairCB: gobreaker.NewCircuitBreaker[keyPair](st),
		voidCB:    gobreaker.NewCircuitBreaker[struct{}](st),
	}
}

// tripErr translates a breaker-open rejection into CKR_DEVICE_ERROR; any
// other error (including one returned by next itself) passes through
// unchanged.
func tripErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ckerr.New(op, ckerr.DeviceError)
	}
	return err
}

func (e *BreakingEngine) GenerateSymmetric(ctx context.Context, keyType KeyType, bits int) ([]byte, error) {
	out, err := e.bytesCB.Execute(func() ([]byte, error) {
		return e.next.GenerateSymmetric(ctx, keyType, bits)
	})
	return out, tripErr("primitive.GenerateSymmetric", err)
}

func (e *BreakingEngine) GenerateAsymmetric(ctx context.Context, keyType KeyType, params KeyParams) ([]byte, []byte, error) {
	out, err := e.keyPairCB.Execute(func() (keyPair, error) {
		pub, priv, err := e.next.GenerateAsymmetric(ctx, keyType, params)
		return keyPair{pub: pub, priv: priv}, err
	})
	return out.pub, out.priv, tripErr("primitive.GenerateAsymmetric", err)
}

func (e *BreakingEngine) Encrypt(ctx context.Context, mech MechanismID, key, params, plaintext []byte) ([]byte, error) {
	out, err := e.bytesCB.Execute(func() ([]byte, error) {
		return e.next.Encrypt(ctx, mech, key, params, plaintext)
	})
	return out, tripErr("primitive.Encrypt", err)
}

func (e *BreakingEngine) Decrypt(ctx context.Context, mech MechanismID, key, params, ciphertext []byte) ([]byte, error) {
	out, err := e.bytesCB.Execute(func() ([]byte, error) {
		return e.next.Decrypt(ctx, mech, key, params, ciphertext)
	})
	return out, tripErr("primitive.Decrypt", err)
}

func (e *BreakingEngine) Sign(ctx context.Context, mech MechanismID, key, data []byte) ([]byte, error) {
	out, err := e.bytesCB.Execute(func() ([]byte, error) {
		return e.next.Sign(ctx, mech, key, data)
	})
	return out, tripErr("primitive.Sign", err)
}

func (e *BreakingEngine) Verify(ctx context.Context, mech MechanismID, key, data, sig []byte) error {
	_, err := e.voidCB.Execute(func() (struct{}, error) {
		return struct{}{}, e.next.Verify(ctx, mech, key, data, sig)
	})
	return tripErr("primitive.Verify", err)
}

func (e *BreakingEngine) Digest(ctx context.Context, mech MechanismID, data []byte) ([]byte, error) {
	out, err := e.bytesCB.Execute(func() ([]byte, error) {
		return e.next.Digest(ctx, mech, data)
	})
	return out, tripErr("primitive.Digest", err)
}

func (e *BreakingEngine) Derive(ctx context.Context, mech MechanismID, key, params []byte) ([]byte, error) {
	out, err := e.bytesCB.Execute(func() ([]byte, error) {
		return e.next.Derive(ctx, mech, key, params)
	})
	return out, tripErr("primitive.Derive", err)
}

var _ Engine = (*BreakingEngine)(nil)
