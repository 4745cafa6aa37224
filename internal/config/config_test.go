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

package config

import (
	"crypto/tls"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, ":7411", opts.TransportAddr)
	assert.Equal(t, "0", opts.AdminAddr)
	assert.True(t, opts.SecureAdmin)
	assert.False(t, opts.EnableHTTP2)
	assert.Equal(t, time.Hour, opts.SessionTTL)
}

func TestValidateRequiresPostgresConn(t *testing.T) {
	opts := DefaultOptions()
	assert.Error(t, opts.Validate())

	opts.PostgresConn = "postgres://localhost/ck11"
	assert.NoError(t, opts.Validate())
}

func TestValidateRejectsNonPositiveSessionTTL(t *testing.T) {
	opts := DefaultOptions()
	opts.PostgresConn = "postgres://localhost/ck11"
	opts.SessionTTL = 0
	assert.Error(t, opts.Validate())
}

func TestTLSConfigIsConfigured(t *testing.T) {
	assert.True(t, (&TLSConfig{CertDir: "/path/to/certs"}).IsConfigured())
	assert.False(t, (&TLSConfig{}).IsConfigured())
}

func TestGetAdminTLSConfig(t *testing.T) {
	opts := Options{AdminCertPath: "/admin/certs", AdminCertName: "admin.crt", AdminCertKey: "admin.key"}
	cfg := opts.GetAdminTLSConfig()

	assert.Equal(t, opts.AdminCertPath, cfg.CertDir)
	assert.Equal(t, opts.AdminCertName, cfg.CertName)
	assert.Equal(t, opts.AdminCertKey, cfg.KeyName)
}

func TestDisableHTTP2TLSConfig(t *testing.T) {
	cfg := &tls.Config{}
	DisableHTTP2TLSConfig()(cfg)
	assert.Equal(t, []string{"http/1.1"}, cfg.NextProtos)
}

func TestBuildTLSOptions(t *testing.T) {
	withHTTP2 := Options{EnableHTTP2: true}
	assert.Empty(t, withHTTP2.BuildTLSOptions())

	withoutHTTP2 := Options{EnableHTTP2: false}
	opts := withoutHTTP2.BuildTLSOptions()
	assert.Len(t, opts, 1)

	cfg := &tls.Config{}
	opts[0](cfg)
	assert.Equal(t, []string{"http/1.1"}, cfg.NextProtos)
}
