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

package facade

import (
	"fmt"
	"time"

	pkgpolicy "github.com/cryptoklabs/ck11core/pkg/policy"

	"github.com/cryptoklabs/ck11core/internal/session"
)

// JWTVerifier implements TokenVerifier against pkg/policy's HS256 login
// token, per SPEC_FULL.md §4.6 and §6.4. An OpLogin body is one flag byte
// (bit 0: read-write) followed by the raw JWT bytes.
type JWTVerifier struct {
	Key        []byte
	SessionTTL time.Duration
}

// VerifyLogin parses body's flag byte and JWT, returning the LoginRequest
// the Session & Auth Layer uses to open a session.
func (v JWTVerifier) VerifyLogin(body []byte) (session.LoginRequest, error) {
	if len(body) < 1 {
		return session.LoginRequest{}, fmt.Errorf("facade: empty login body")
	}
	readWrite := body[0]&0x01 != 0
	token := body[1:]

	claims, err := pkgpolicy.VerifyLoginToken(string(token), v.Key)
	if err != nil {
		return session.LoginRequest{}, err
	}

	ttl := v.SessionTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return session.LoginRequest{
		UserType:  claims.ParseRole(),
		ReadWrite: readWrite,
		TTL:       ttl,
	}, nil
}
