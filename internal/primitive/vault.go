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
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	vaultDefaultMountPath = "transit"
	vaultClientTimeout    = 30 * time.Second
	vaultTokenHeader      = "X-Vault-Token"
)

// vaultTransitClient abstracts the Vault Transit HTTP calls a keyWrapper
// needs, for testing.
type vaultTransitClient interface {
	GenerateDataKey(ctx context.Context, keyName string) (plaintext []byte, ciphertext string, err error)
	Decrypt(ctx context.Context, keyName, ciphertext string) ([]byte, error)
}

// VaultConfig configures a HashiCorp Vault Transit key wrapper.
type VaultConfig struct {
	Addr      string
	Token     string
	KeyName   string
	MountPath string
}

type vaultHTTPClient struct {
	httpClient *http.Client
	addr       string
	token      string
	mountPath  string
}

type vaultKeyWrapper struct {
	client  vaultTransitClient
	keyName string
}

// NewVaultTransitEngine builds a KMSEngine backed by HashiCorp Vault
// Transit: the transit engine generates and wraps the DEK itself via its
// datakey endpoint.
func NewVaultTransitEngine(cfg VaultConfig) (*KMSEngine, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("vault: address is required")
	}
	if cfg.KeyName == "" {
		return nil, fmt.Errorf("vault: key name is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("vault: token is required")
	}
	mountPath := cfg.MountPath
	if mountPath == "" {
		mountPath = vaultDefaultMountPath
	}

	client := &vaultHTTPClient{
		httpClient: &http.Client{Timeout: vaultClientTimeout},
		addr:       cfg.Addr,
		token:      cfg.Token,
		mountPath:  mountPath,
	}
	return NewKMSEngine(&vaultKeyWrapper{client: client, keyName: cfg.KeyName}), nil
}

func (w *vaultKeyWrapper) WrapDEK(ctx context.Context) (dek, wrapped []byte, err error) {
	plaintext, ciphertext, err := w.client.GenerateDataKey(ctx, w.keyName)
	if err != nil {
		return nil, nil, fmt.Errorf("vault: GenerateDataKey: %w", err)
	}
	return plaintext, []byte(ciphertext), nil
}

func (w *vaultKeyWrapper) UnwrapDEK(ctx context.Context, wrapped []byte) ([]byte, error) {
	dek, err := w.client.Decrypt(ctx, w.keyName, string(wrapped))
	if err != nil {
		return nil, fmt.Errorf("vault: Decrypt: %w", err)
	}
	return dek, nil
}

func (w *vaultKeyWrapper) Close() error { return nil }

func (c *vaultHTTPClient) GenerateDataKey(ctx context.Context, keyName string) ([]byte, string, error) {
	url := fmt.Sprintf("%s/v1/%s/datakey/plaintext/%s", c.addr, c.mountPath, keyName)
	body, err := c.do(ctx, http.MethodPost, url, []byte(`{"bits":256}`))
	if err != nil {
		return nil, "", err
	}

	var resp struct {
		Data struct {
			Plaintext  string `json:"plaintext"`
			Ciphertext string `json:"ciphertext"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", fmt.Errorf("vault: invalid datakey response: %w", err)
	}
	plaintext, err := base64.StdEncoding.DecodeString(resp.Data.Plaintext)
	if err != nil {
		return nil, "", fmt.Errorf("vault: invalid base64 plaintext: %w", err)
	}
	return plaintext, resp.Data.Ciphertext, nil
}

func (c *vaultHTTPClient) Decrypt(ctx context.Context, keyName, ciphertext string) ([]byte, error) {
	url := fmt.Sprintf("%s/v1/%s/decrypt/%s", c.addr, c.mountPath, keyName)
	reqBody, err := json.Marshal(map[string]string{"ciphertext": ciphertext})
	if err != nil {
		return nil, fmt.Errorf("vault: marshaling decrypt request: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, url, reqBody)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data struct {
			Plaintext string `json:"plaintext"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("vault: invalid decrypt response: %w", err)
	}
	plaintext, err := base64.StdEncoding.DecodeString(resp.Data.Plaintext)
	if err != nil {
		return nil, fmt.Errorf("vault: invalid base64 plaintext: %w", err)
	}
	return plaintext, nil
}

func (c *vaultHTTPClient) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("vault: building request: %w", err)
	}
	req.Header.Set(vaultTokenHeader, c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vault: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("vault: reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("vault: HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
