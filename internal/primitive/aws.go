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

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
)

// awsKMSClient abstracts the AWS KMS calls a keyWrapper needs, for testing.
type awsKMSClient interface {
	GenerateDataKey(ctx context.Context, params *kms.GenerateDataKeyInput, optFns ...func(*kms.Options)) (*kms.GenerateDataKeyOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// AWSConfig configures an AWS KMS key wrapper.
type AWSConfig struct {
	KeyID           string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

type awsKeyWrapper struct {
	client awsKMSClient
	keyID  string
}

// NewAWSKMSEngine builds a KMSEngine backed by AWS KMS: GenerateDataKey
// mints and wraps data keys for Encrypt, Decrypt unwraps them.
func NewAWSKMSEngine(ctx context.Context, cfg AWSConfig) (*KMSEngine, error) {
	if cfg.KeyID == "" {
		return nil, fmt.Errorf("aws-kms: key ID is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("aws-kms: region is required")
	}

	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws-kms: loading AWS config: %w", err)
	}

	return NewKMSEngine(&awsKeyWrapper{client: kms.NewFromConfig(awsCfg), keyID: cfg.KeyID}), nil
}

func (w *awsKeyWrapper) WrapDEK(ctx context.Context) (dek, wrapped []byte, err error) {
	resp, err := w.client.GenerateDataKey(ctx, &kms.GenerateDataKeyInput{
		KeyId:   aws.String(w.keyID),
		KeySpec: types.DataKeySpecAes256,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("aws-kms: GenerateDataKey: %w", err)
	}
	return resp.Plaintext, resp.CiphertextBlob, nil
}

func (w *awsKeyWrapper) UnwrapDEK(ctx context.Context, wrapped []byte) ([]byte, error) {
	resp, err := w.client.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob: wrapped,
		KeyId:          aws.String(w.keyID),
	})
	if err != nil {
		return nil, fmt.Errorf("aws-kms: Decrypt: %w", err)
	}
	return resp.Plaintext, nil
}

func (w *awsKeyWrapper) Close() error { return nil }
