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

	kms "cloud.google.com/go/kms/apiv1"
	"cloud.google.com/go/kms/apiv1/kmspb"
	"google.golang.org/api/option"
)

// gcpKMSClient abstracts the GCP Cloud KMS calls a keyWrapper needs, for
// testing.
type gcpKMSClient interface {
	Encrypt(ctx context.Context, req *kmspb.EncryptRequest) (*kmspb.EncryptResponse, error)
	Decrypt(ctx context.Context, req *kmspb.DecryptRequest) (*kmspb.DecryptResponse, error)
	Close() error
}

// gcpKMSClientWrapper adapts the real *kms.KeyManagementClient (whose
// methods take variadic gax.CallOption) to gcpKMSClient's fixed signature.
type gcpKMSClientWrapper struct {
	client *kms.KeyManagementClient
}

func (w *gcpKMSClientWrapper) Encrypt(ctx context.Context, req *kmspb.EncryptRequest) (*kmspb.EncryptResponse, error) {
	return w.client.Encrypt(ctx, req)
}

func (w *gcpKMSClientWrapper) Decrypt(ctx context.Context, req *kmspb.DecryptRequest) (*kmspb.DecryptResponse, error) {
	return w.client.Decrypt(ctx, req)
}

func (w *gcpKMSClientWrapper) Close() error { return w.client.Close() }

// GCPConfig configures a GCP Cloud KMS key wrapper.
type GCPConfig struct {
	KeyName         string // projects/*/locations/*/keyRings/*/cryptoKeys/*
	CredentialsJSON string
}

type gcpKeyWrapper struct {
	client gcpKMSClient
	keyID  string
}

// NewGCPKMSEngine builds a KMSEngine backed by GCP Cloud KMS: a locally
// generated AES-256 DEK is wrapped via the key ring's Encrypt RPC.
func NewGCPKMSEngine(ctx context.Context, cfg GCPConfig) (*KMSEngine, error) {
	if cfg.KeyName == "" {
		return nil, fmt.Errorf("gcp-kms: key name is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}
	client, err := kms.NewKeyManagementClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcp-kms: client: %w", err)
	}

	return NewKMSEngine(&gcpKeyWrapper{client: &gcpKMSClientWrapper{client: client}, keyID: cfg.KeyName}), nil
}

func (w *gcpKeyWrapper) WrapDEK(ctx context.Context) (dek, wrapped []byte, err error) {
	dek = make([]byte, dekSize)
	if _, err := io.ReadFull(rand.Reader, dek); err != nil {
		return nil, nil, fmt.Errorf("gcp-kms: generating DEK: %w", err)
	}
	resp, err := w.client.Encrypt(ctx, &kmspb.EncryptRequest{
		Name:      w.keyID,
		Plaintext: dek,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("gcp-kms: Encrypt: %w", err)
	}
	return dek, resp.Ciphertext, nil
}

func (w *gcpKeyWrapper) UnwrapDEK(ctx context.Context, wrapped []byte) ([]byte, error) {
	resp, err := w.client.Decrypt(ctx, &kmspb.DecryptRequest{
		Name:       w.keyID,
		Ciphertext: wrapped,
	})
	if err != nil {
		return nil, fmt.Errorf("gcp-kms: Decrypt: %w", err)
	}
	return resp.Plaintext, nil
}

func (w *gcpKeyWrapper) Close() error { return w.client.Close() }
