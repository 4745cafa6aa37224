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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	req := NewRequestFrame(OpEncrypt, 42, []byte("payload"))
	encoded := req.Encode()
	assert.Len(t, encoded, FrameHeaderSize+len("payload"))

	decoded, err := DecodeFrame(encoded)
	require.NoError(t, err)
	assert.Equal(t, OpEncrypt, decoded.Header.Opcode)
	assert.Equal(t, uint64(42), decoded.Header.Session)
	assert.Equal(t, []byte("payload"), decoded.Body)
}

func TestResponseFrameMirrorsRequest(t *testing.T) {
	req := NewRequestFrame(OpSign, 7, nil)
	resp := NewResponseFrame(req, false, []byte("ok"))

	assert.True(t, resp.Header.Flags.IsResponse())
	assert.False(t, resp.Header.Flags.IsError())
	assert.Equal(t, OpSign, resp.Header.Opcode)
	assert.Equal(t, uint64(7), resp.Header.Session)
}

func TestErrorResponseFrameSetsErrorFlag(t *testing.T) {
	req := NewRequestFrame(OpDecrypt, 1, nil)
	resp := NewResponseFrame(req, true, nil)
	assert.True(t, resp.Header.Flags.IsError())
}

func TestDecodeHeaderRejectsBadMagic(t *testing.T) {
	buf := make([]byte, FrameHeaderSize)
	copy(buf, "XXXX")
	_, err := DecodeHeader(buf)
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestDecodeHeaderRejectsShortBuffer(t *testing.T) {
	_, err := DecodeHeader(make([]byte, 4))
	assert.ErrorIs(t, err, ErrInvalidHeaderSize)
}

func TestDecodeFrameRejectsTruncatedBody(t *testing.T) {
	req := NewRequestFrame(OpDigest, 0, []byte("abcdef"))
	encoded := req.Encode()
	truncated := encoded[:len(encoded)-2]

	_, err := DecodeFrame(truncated)
	assert.ErrorIs(t, err, ErrBodyOverflow)
}

func TestDecodeHeaderRejectsWrongVersion(t *testing.T) {
	req := NewRequestFrame(OpLogin, 0, nil)
	encoded := req.Encode()
	encoded[4] = 9 // corrupt version byte

	_, err := DecodeHeader(encoded)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}
