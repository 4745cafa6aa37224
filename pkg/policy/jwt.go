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

// Package policy verifies the login JWT that establishes a Cryptoki
// session, per SPEC_FULL.md §4.6 and §6.4.
package policy

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	cpolicy "github.com/cryptoklabs/ck11core/internal/policy"
)

// Claims is the login token's payload: a role claim resolving to a
// cpolicy.UserType, on top of the registered JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// ParseRole maps the token's role claim to a UserType, defaulting to
// UserPublic for an empty or unrecognized role.
func (c Claims) ParseRole() cpolicy.UserType {
	switch strings.ToLower(c.Role) {
	case "so":
		return cpolicy.UserSO
	case "user":
		return cpolicy.UserNormal
	default:
		return cpolicy.UserPublic
	}
}

// VerifyLoginToken verifies token's HMAC (HS256, HS384 or HS512) signature
// against key and returns
// its claims. The "Bearer " prefix, if present, is stripped first.
func VerifyLoginToken(token string, key []byte) (*Claims, error) {
	token = strings.TrimPrefix(token, "Bearer ")
	token = strings.TrimPrefix(token, "bearer ")

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing login token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("login token is not valid")
	}
	return claims, nil
}

// IssueLoginToken mints an HS256 login token for role, expiring after ttl.
// Used by tests and by operator tooling that provisions SO/user credentials.
func IssueLoginToken(key []byte, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}
