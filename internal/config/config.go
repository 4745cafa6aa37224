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

// Package config provides configuration management for the tokend service.
package config

import (
	"crypto/tls"
	"fmt"
	"time"
)

// Options holds all configuration options for tokend.
type Options struct {
	// TransportAddr is the address the command transport (facade.Frame
	// stream) listens on.
	TransportAddr string

	// AdminAddr is the address the JSON admin surface (/healthz, /readyz,
	// /v1/mechanisms) binds to. /metrics is served on a separate address.
	AdminAddr string

	// SecureAdmin indicates if the admin surface should be served via HTTPS.
	SecureAdmin bool

	// EnableHTTP2 enables HTTP/2 for the admin server.
	EnableHTTP2 bool

	// AdminCertPath is the directory that contains the admin server certificate.
	AdminCertPath string
	// AdminCertName is the name of the admin server certificate file.
	AdminCertName string
	// AdminCertKey is the name of the admin server key file.
	AdminCertKey string

	// PostgresConn is the connection string for the store/postgres object
	// store.
	PostgresConn string

	// RedisAddr is the address of the store/redis hot cache. Empty disables
	// the cache tier.
	RedisAddr string

	// JWTSigningKey verifies login request tokens (golang-jwt/v5, HS256).
	JWTSigningKey []byte

	// SessionTTL bounds how long a logged-in session survives without
	// re-authentication.
	SessionTTL time.Duration
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		TransportAddr: ":7411",
		AdminAddr:     "0",
		SecureAdmin:   true,
		EnableHTTP2:   false,
		AdminCertName: "tls.crt",
		AdminCertKey:  "tls.key",
		SessionTTL:    time.Hour,
	}
}

// Validate checks if the Options are usable to start the service.
func (o *Options) Validate() error {
	if o.PostgresConn == "" {
		return fmt.Errorf("postgres connection string is required")
	}
	if o.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	return nil
}

// TLSConfig holds TLS-related configuration.
type TLSConfig struct {
	// CertDir is the directory containing certificates.
	CertDir string

	// CertName is the certificate filename.
	CertName string

	// KeyName is the key filename.
	KeyName string
}

// IsConfigured returns true if the TLS config has a cert directory specified.
func (t *TLSConfig) IsConfigured() bool {
	return len(t.CertDir) > 0
}

// GetAdminTLSConfig returns TLS configuration for the admin surface.
func (o *Options) GetAdminTLSConfig() TLSConfig {
	return TLSConfig{
		CertDir:  o.AdminCertPath,
		CertName: o.AdminCertName,
		KeyName:  o.AdminCertKey,
	}
}

// DisableHTTP2TLSConfig returns a TLS config modifier that disables HTTP/2.
// This is recommended due to HTTP/2 vulnerabilities (CVE-2023-44487, CVE-2023-39325).
func DisableHTTP2TLSConfig() func(*tls.Config) {
	return func(c *tls.Config) {
		c.NextProtos = []string{"http/1.1"}
	}
}

// BuildTLSOptions returns TLS options based on the configuration.
func (o *Options) BuildTLSOptions() []func(*tls.Config) {
	var tlsOpts []func(*tls.Config)
	if !o.EnableHTTP2 {
		tlsOpts = append(tlsOpts, DisableHTTP2TLSConfig())
	}
	return tlsOpts
}
