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
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptoklabs/ck11core/internal/attr"
	"github.com/cryptoklabs/ck11core/internal/ckerr"
	"github.com/cryptoklabs/ck11core/internal/policy"
	"github.com/cryptoklabs/ck11core/internal/primitive"
	"github.com/cryptoklabs/ck11core/internal/session"
	"github.com/cryptoklabs/ck11core/internal/store/memory"
	pkgpolicy "github.com/cryptoklabs/ck11core/pkg/policy"
)

// stubVerifier grants whatever LoginRequest it was constructed with,
// regardless of the frame body, so dispatch tests don't need a real JWT.
type stubVerifier struct {
	req session.LoginRequest
	err error
}

func (v stubVerifier) VerifyLogin(_ []byte) (session.LoginRequest, error) {
	return v.req, v.err
}

func newTestListener(t *testing.T, verifier TokenVerifier) (*Listener, *Server) {
	t.Helper()
	srv := NewServer(memory.New(), session.NewMemoryStore(), primitive.NewLocal(), &policy.Engine{}, nil)
	ln, err := NewListener("127.0.0.1:0", srv, verifier, logr.Discard())
	require.NoError(t, err)
	go func() { _ = ln.Serve(context.Background()) }()
	t.Cleanup(func() { _ = ln.Close() })
	return ln, srv
}

func dialAndRoundTrip(t *testing.T, addr net.Addr, req *Frame) *Frame {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr.String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(req.Encode())
	require.NoError(t, err)

	header := make([]byte, FrameHeaderSize)
	_, err = io.ReadFull(conn, header)
	require.NoError(t, err)
	h, err := DecodeHeader(header)
	require.NoError(t, err)

	body := make([]byte, h.BodyLen)
	if h.BodyLen > 0 {
		_, err = io.ReadFull(conn, body)
		require.NoError(t, err)
	}
	return &Frame{Header: *h, Body: body}
}

func TestListenerLoginGrantsSessionHandle(t *testing.T) {
	ln, _ := newTestListener(t, stubVerifier{req: session.LoginRequest{UserType: policy.UserNormal, ReadWrite: true}})

	req := NewRequestFrame(OpLogin, 0, []byte{0x01})
	resp := dialAndRoundTrip(t, ln.Addr(), req)

	assert.False(t, resp.Header.Flags.IsError())
	require.Len(t, resp.Body, 8)
	handle := binary.BigEndian.Uint64(resp.Body)
	assert.NotZero(t, handle)
	assert.Equal(t, handle, resp.Header.Session)
}

func TestListenerLoginRejectsBadToken(t *testing.T) {
	ln, _ := newTestListener(t, stubVerifier{err: assertErr{}})

	req := NewRequestFrame(OpLogin, 0, []byte{0x00})
	resp := dialAndRoundTrip(t, ln.Addr(), req)

	assert.True(t, resp.Header.Flags.IsError())
	require.Len(t, resp.Body, 4)
	assert.Equal(t, ckerr.UserNotLoggedIn, ckerr.CKR(binary.BigEndian.Uint32(resp.Body)))
}

type assertErr struct{}

func (assertErr) Error() string { return "bad token" }

func TestListenerCreateObjectRoundTrip(t *testing.T) {
	ln, srv := newTestListener(t, stubVerifier{req: session.LoginRequest{UserType: policy.UserNormal, ReadWrite: true}})

	loginResp := dialAndRoundTrip(t, ln.Addr(), NewRequestFrame(OpLogin, 0, []byte{0x01}))
	sessionHandle := binary.BigEndian.Uint64(loginResp.Body)

	tmpl := attr.New()
	tmpl.PutU32(attr.Class, uint32(attr.ClassData))
	tmpl.Add(attr.Value, []byte("hello"))
	raw := attr.Encode(&tmpl)

	req := NewRequestFrame(OpCreateObject, sessionHandle, raw)
	resp := dialAndRoundTrip(t, ln.Addr(), req)

	require.False(t, resp.Header.Flags.IsError())
	require.Len(t, resp.Body, 8)
	handle := binary.BigEndian.Uint64(resp.Body)

	stored, err := srv.Objects.Get(context.Background(), handle)
	require.NoError(t, err)
	value, ok := stored.Find(attr.Value)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), value)
}

func TestListenerUnknownOpcodeReturnsFunctionNotSupported(t *testing.T) {
	ln, _ := newTestListener(t, stubVerifier{})
	req := NewRequestFrame(Opcode(0xBEEF), 0, nil)
	resp := dialAndRoundTrip(t, ln.Addr(), req)

	assert.True(t, resp.Header.Flags.IsError())
	assert.Equal(t, ckerr.FunctionNotSupported, ckerr.CKR(binary.BigEndian.Uint32(resp.Body)))
}

func TestJWTVerifierRoundTrip(t *testing.T) {
	key := []byte("test-signing-key")
	token, err := pkgpolicy.IssueLoginToken(key, "user", time.Minute)
	require.NoError(t, err)

	verifier := JWTVerifier{Key: key, SessionTTL: time.Minute}
	body := append([]byte{0x01}, []byte(token)...)

	req, err := verifier.VerifyLogin(body)
	require.NoError(t, err)
	assert.Equal(t, policy.UserNormal, req.UserType)
	assert.True(t, req.ReadWrite)
}

func TestJWTVerifierRejectsBadSignature(t *testing.T) {
	good, err := pkgpolicy.IssueLoginToken([]byte("right-key"), "user", time.Minute)
	require.NoError(t, err)

	verifier := JWTVerifier{Key: []byte("wrong-key")}
	body := append([]byte{0x00}, []byte(good)...)

	_, err = verifier.VerifyLogin(body)
	assert.Error(t, err)
}
