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
	"crypto/rand"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azkeys"
)

// azkeysClient abstracts the Azure Key Vault key operations a keyWrapper
// needs, for testing.
type azkeysClient interface {
	WrapKey(ctx context.Context, keyName, keyVersion string, parameters azkeys.KeyOperationParameters, options *azkeys.WrapKeyOptions) (azkeys.WrapKeyResponse, error)
	UnwrapKey(ctx context.Context, keyName, keyVersion string, parameters azkeys.KeyOperationParameters, options *azkeys.UnwrapKeyOptions) (azkeys.UnwrapKeyResponse, error)
}

const azureWrapAlgorithm = azkeys.EncryptionAlgorithmRSAOAEP256

// AzureConfig configures an Azure Key Vault key wrapper.
type AzureConfig struct {
	VaultURL     string
	KeyName      string
	KeyVersion   string
	TenantID     string
	ClientID     string
	ClientSecret string
}

type azureKeyWrapper struct {
	client     azkeysClient
	keyName    string
	keyVersion string
}

// NewAzureKeyVaultEngine builds a KMSEngine backed by Azure Key Vault: a
// locally generated AES-256 DEK is wrapped with the vault's RSA-OAEP-256
// key operation.
func NewAzureKeyVaultEngine(ctx context.Context, cfg AzureConfig) (*KMSEngine, error) {
	if cfg.VaultURL == "" {
		return nil, fmt.Errorf("azure-keyvault: vault URL is required")
	}
	if cfg.KeyName == "" {
		return nil, fmt.Errorf("azure-keyvault: key name is required")
	}

	cred, err := azureCredential(cfg)
	if err != nil {
		return nil, fmt.Errorf("azure-keyvault: credential: %w", err)
	}
	client, err := azkeys.NewClient(cfg.VaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("azure-keyvault: client: %w", err)
	}

	return NewKMSEngine(&azureKeyWrapper{client: client, keyName: cfg.KeyName, keyVersion: cfg.KeyVersion}), nil
}

func azureCredential(cfg AzureConfig) (azcore.TokenCredential, error) {
	if cfg.TenantID != "" && cfg.ClientID != "" && cfg.ClientSecret != "" {
		return azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, nil)
	}
	return azidentity.NewDefaultAzureCredential(nil)
}

func (w *azureKeyWrapper) WrapDEK(ctx context.Context) (dek, wrapped []byte, err error) {
	dek = make([]byte, dekSize)
	if _, err := io.ReadFull(rand.Reader, dek); err != nil {
		return nil, nil, fmt.Errorf("azure-keyvault: generating DEK: %w", err)
	}
	algo := azureWrapAlgorithm
	resp, err := w.client.WrapKey(ctx, w.keyName, w.keyVersion, azkeys.KeyOperationParameters{
		Algorithm: &algo,
		Value:     dek,
	}, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("azure-keyvault: WrapKey: %w", err)
	}
	return dek, resp.Result, nil
}

func (w *azureKeyWrapper) UnwrapDEK(ctx context.Context, wrapped []byte) ([]byte, error) {
	algo := azureWrapAlgorithm
	resp, err := w.client.UnwrapKey(ctx, w.keyName, w.keyVersion, azkeys.KeyOperationParameters{
		Algorithm: &algo,
		Value:     wrapped,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("azure-keyvault: UnwrapKey: %w", err)
	}
	return resp.Result, nil
}

func (w *azureKeyWrapper) Close() error { return nil }
