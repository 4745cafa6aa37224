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
	"fmt"
)

// RemoteKind identifies a remote Engine backend.
type RemoteKind string

const (
	RemoteAWSKMS   RemoteKind = "aws-kms"
	RemoteAzureKMS RemoteKind = "azure-keyvault"
	RemoteGCPKMS   RemoteKind = "gcp-kms"
	RemoteVault    RemoteKind = "vault"
)

// RemoteConfig selects and configures one remote Engine backend. Exactly
// one of the embedded configs is read, chosen by Kind.
type RemoteConfig struct {
	Kind  RemoteKind
	AWS   AWSConfig
	Azure AzureConfig
	GCP   GCPConfig
	Vault VaultConfig
}

// NewRemoteEngine builds the KMS-backed Engine named by cfg.Kind, wrapped
// in a circuit breaker so a degraded backend fails fast per
// SPEC_FULL.md §4.8.
func NewRemoteEngine(ctx context.Context, cfg RemoteConfig) (Engine, error) {
	var (
		kms *KMSEngine
		err error
	)
	switch cfg.Kind {
	case RemoteAWSKMS:
		kms, err = NewAWSKMSEngine(ctx, cfg.AWS)
	case RemoteAzureKMS:
		kms, err = NewAzureKeyVaultEngine(ctx, cfg.Azure)
	case RemoteGCPKMS:
		kms, err = NewGCPKMSEngine(ctx, cfg.GCP)
	case RemoteVault:
		kms, err = NewVaultTransitEngine(cfg.Vault)
	default:
		return nil, fmt.Errorf("primitive: unknown remote engine kind %q", cfg.Kind)
	}
	if err != nil {
		return nil, err
	}
	return NewBreakingEngine(kms, DefaultBreakerSettings(string(cfg.Kind))), nil
}
