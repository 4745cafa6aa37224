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
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/cryptoklabs/ck11core/internal/ckerr"
	"github.com/cryptoklabs/ck11core/internal/mechanism"
	"github.com/cryptoklabs/ck11core/internal/primitive"
	"github.com/cryptoklabs/ck11core/internal/session"
	"github.com/cryptoklabs/ck11core/pkg/logctx"
)

// TokenVerifier verifies a login token's bytes and returns the login
// request it grants. pkg/policy.VerifyLoginToken plus Claims.ParseRole
// satisfies this for the JWT login surface; Listener takes it as an
// interface so tests can swap in a stub.
type TokenVerifier interface {
	VerifyLogin(token []byte) (session.LoginRequest, error)
}

// Listener accepts command-transport connections (spec.md §4.9's Frame
// stream) and dispatches each decoded Frame into Server, the same
// collaborator the admin HTTP surface's mechanism catalog sits beside.
type Listener struct {
	ln       net.Listener
	srv      *Server
	verifier TokenVerifier
	log      logr.Logger
}

// NewListener binds addr and wires it to srv. verifier handles OpLogin;
// every other opcode requires a session handle already minted by a prior
// login on the same connection's lifetime (or a previous one — handles are
// transport-agnostic).
func NewListener(addr string, srv *Server, verifier TokenVerifier, log logr.Logger) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("facade: listening on %s: %w", addr, err)
	}
	return &Listener{ln: ln, srv: srv, verifier: verifier, log: log}, nil
}

// Addr returns the bound address, useful when addr was ":0" for tests.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Close stops accepting new connections.
func (l *Listener) Close() error { return l.ln.Close() }

// Serve accepts connections until ctx is done or the listener is closed.
// Each connection is handled on its own goroutine; frames on one connection
// are processed sequentially, matching a Cryptoki session's single-threaded
// calling convention.
func (l *Listener) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = l.ln.Close()
	}()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("facade: accept: %w", err)
		}
		go l.handleConn(ctx, conn)
	}
}

func (l *Listener) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()

	for {
		req, err := readFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				l.log.V(1).Info("facade: frame read error", "remote", remote, "error", err.Error())
			}
			return
		}

		reqCtx := logctx.WithRequestID(ctx, uuid.NewString())
		resp := l.dispatch(reqCtx, req)
		if _, err := conn.Write(resp.Encode()); err != nil {
			l.log.V(1).Info("facade: frame write error", "remote", remote, "error", err.Error())
			return
		}
	}
}

// readFrame reads exactly one frame off r: the fixed header first, then
// BodyLen bytes of body, so the connection never needs to be buffered ahead
// of what DecodeFrame is given.
func readFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, FrameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	h, err := DecodeHeader(header)
	if err != nil {
		return nil, err
	}
	body := make([]byte, h.BodyLen)
	if h.BodyLen > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, err
		}
	}
	return &Frame{Header: *h, Body: body}, nil
}

// dispatch routes req to the Server method for its opcode and builds the
// matching response frame. Errors never panic the connection: any failure
// becomes an error-flagged response frame carrying the CKR code as its body.
func (l *Listener) dispatch(ctx context.Context, req *Frame) *Frame {
	switch req.Header.Opcode {
	case OpLogin:
		return l.dispatchLogin(ctx, req)
	case OpCreateObject:
		return l.dispatchCreateObject(ctx, req)
	case OpGenerateKey:
		return l.dispatchGenerateKey(ctx, req)
	case OpGenerateKeyPair:
		return l.dispatchGenerateKeyPair(ctx, req)
	case OpDeriveKey:
		return l.dispatchDerive(ctx, req)
	case OpEncryptInit, OpDecryptInit, OpSignInit, OpVerifyInit, OpDigestInit:
		return l.dispatchBeginOperation(ctx, req)
	default:
		return errorFrame(req, ckerr.FunctionNotSupported)
	}
}

func errorFrame(req *Frame, code ckerr.CKR) *Frame {
	body := make([]byte, 4)
	binary.BigEndian.PutUint32(body, uint32(code))
	return NewResponseFrame(req, true, body)
}

func codeOf(err error) ckerr.CKR {
	if err == nil {
		return ckerr.OK
	}
	return ckerr.Code(err)
}

func (l *Listener) dispatchLogin(ctx context.Context, req *Frame) *Frame {
	loginReq, err := l.verifier.VerifyLogin(req.Body)
	if err != nil {
		return errorFrame(req, ckerr.UserNotLoggedIn)
	}

	sess, err := l.srv.Sessions.Open(ctx, loginReq)
	if err != nil {
		return errorFrame(req, codeOf(err))
	}

	body := make([]byte, 8)
	binary.BigEndian.PutUint64(body, sess.Handle)
	resp := NewResponseFrame(req, false, body)
	resp.Header.Session = sess.Handle
	return resp
}

func (l *Listener) dispatchCreateObject(ctx context.Context, req *Frame) *Frame {
	handle, err := l.srv.CreateObject(ctx, req.Header.Session, req.Body)
	if err != nil {
		return errorFrame(req, codeOf(err))
	}
	return NewResponseFrame(req, false, handleBody(handle))
}

// dispatchGenerateKey and the multi-field opcodes below split Body into
// length-prefixed segments: a 4-byte mechanism ID followed by one or more
// 4-byte-length-prefixed byte strings, in the same big-endian style as
// FrameHeader itself.
func (l *Listener) dispatchGenerateKey(ctx context.Context, req *Frame) *Frame {
	mech, segs, err := decodeMechAndSegments(req.Body, 1)
	if err != nil {
		return errorFrame(req, ckerr.TemplateIncomplete)
	}
	handle, err := l.srv.GenerateKey(ctx, req.Header.Session, mech, segs[0])
	if err != nil {
		return errorFrame(req, codeOf(err))
	}
	return NewResponseFrame(req, false, handleBody(handle))
}

func (l *Listener) dispatchGenerateKeyPair(ctx context.Context, req *Frame) *Frame {
	mech, segs, err := decodeMechAndSegments(req.Body, 3)
	if err != nil {
		return errorFrame(req, ckerr.TemplateIncomplete)
	}
	params, err := decodeKeyParams(segs[2])
	if err != nil {
		return errorFrame(req, ckerr.TemplateInconsistent)
	}
	pubHandle, privHandle, err := l.srv.GenerateKeyPair(ctx, req.Header.Session, mech, segs[0], segs[1], params)
	if err != nil {
		return errorFrame(req, codeOf(err))
	}
	body := make([]byte, 16)
	binary.BigEndian.PutUint64(body[0:8], pubHandle)
	binary.BigEndian.PutUint64(body[8:16], privHandle)
	return NewResponseFrame(req, false, body)
}

func (l *Listener) dispatchDerive(ctx context.Context, req *Frame) *Frame {
	mech, segs, err := decodeMechAndSegments(req.Body, 3)
	if err != nil {
		return errorFrame(req, ckerr.TemplateIncomplete)
	}
	if len(segs[0]) != 8 {
		return errorFrame(req, ckerr.TemplateIncomplete)
	}
	baseHandle := binary.BigEndian.Uint64(segs[0])
	handle, err := l.srv.Derive(ctx, req.Header.Session, mech, baseHandle, segs[1], segs[2])
	if err != nil {
		return errorFrame(req, codeOf(err))
	}
	return NewResponseFrame(req, false, handleBody(handle))
}

var initOpcodeFunctions = map[Opcode]mechanism.Function{
	OpEncryptInit: mechanism.FuncEncrypt,
	OpDecryptInit: mechanism.FuncDecrypt,
	OpSignInit:    mechanism.FuncSign,
	OpVerifyInit:  mechanism.FuncVerify,
	OpDigestInit:  mechanism.FuncDigest,
}

func (l *Listener) dispatchBeginOperation(ctx context.Context, req *Frame) *Frame {
	mech, segs, err := decodeMechAndSegments(req.Body, 1)
	if err != nil || len(segs[0]) != 8 {
		return errorFrame(req, ckerr.TemplateIncomplete)
	}
	fn := initOpcodeFunctions[req.Header.Opcode]
	keyHandle := binary.BigEndian.Uint64(segs[0])
	if err := l.srv.BeginOperation(ctx, req.Header.Session, fn, mech, keyHandle); err != nil {
		return errorFrame(req, codeOf(err))
	}
	return NewResponseFrame(req, false, nil)
}

func handleBody(handle uint64) []byte {
	body := make([]byte, 8)
	binary.BigEndian.PutUint64(body, handle)
	return body
}

// decodeMechAndSegments reads a 4-byte mechanism ID followed by want
// length-prefixed segments from body.
func decodeMechAndSegments(body []byte, want int) (mechanism.ID, [][]byte, error) {
	if len(body) < 4 {
		return 0, nil, fmt.Errorf("facade: body too short for mechanism ID")
	}
	mech := mechanism.ID(binary.BigEndian.Uint32(body[:4]))
	rest := body[4:]

	segs := make([][]byte, 0, want)
	for i := 0; i < want; i++ {
		if len(rest) < 4 {
			return 0, nil, fmt.Errorf("facade: body truncated at segment %d", i)
		}
		segLen := binary.BigEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint32(len(rest)) < segLen {
			return 0, nil, fmt.Errorf("facade: body truncated in segment %d data", i)
		}
		segs = append(segs, rest[:segLen])
		rest = rest[segLen:]
	}
	return mech, segs, nil
}

// decodeKeyParams parses the fixed-layout GenerateKeyPair parameter segment:
// 4-byte ModulusBits, then three length-prefixed byte strings (ECParams,
// DHPrime, DHBase). Only the field(s) relevant to the mechanism in play need
// be non-empty.
func decodeKeyParams(raw []byte) (primitive.KeyParams, error) {
	if len(raw) < 4 {
		return primitive.KeyParams{}, fmt.Errorf("facade: key params too short")
	}
	modulusBits := int(binary.BigEndian.Uint32(raw[:4]))
	rest := raw[4:]

	fields := make([][]byte, 0, 3)
	for i := 0; i < 3; i++ {
		if len(rest) < 4 {
			return primitive.KeyParams{}, fmt.Errorf("facade: key params truncated at field %d", i)
		}
		n := binary.BigEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint32(len(rest)) < n {
			return primitive.KeyParams{}, fmt.Errorf("facade: key params truncated in field %d data", i)
		}
		fields = append(fields, rest[:n])
		rest = rest[n:]
	}
	return primitive.KeyParams{
		ModulusBits: modulusBits,
		ECParams:    fields[0],
		DHPrime:     fields[1],
		DHBase:      fields[2],
	}, nil
}

// TODO: enforce a read deadline on unauthenticated connections (SetReadDeadline
// before the first OpLogin frame) so a client that never logs in can't hold a
// goroutine open indefinitely.
