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
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// FrameMagic is the magic bytes at the start of every command-transport
	// frame, per SPEC_FULL.md §4.9.
	FrameMagic = "CK11"
	// FrameVersion is the current transport protocol version.
	FrameVersion = 1
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 24
)

// Frame header errors.
var (
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported frame protocol version")
	ErrInvalidHeaderSize  = errors.New("invalid header size")
	ErrBodyOverflow       = errors.New("body length exceeds frame size")
)

// FrameFlags represents the flags byte in frame headers.
type FrameFlags uint8

const (
	// FlagResponse marks a frame as a response rather than a request.
	FlagResponse FrameFlags = 1 << iota
	// FlagError marks a response frame as carrying an error status.
	FlagError
)

// IsResponse returns true if the response flag is set.
func (f FrameFlags) IsResponse() bool { return f&FlagResponse != 0 }

// IsError returns true if the error flag is set.
func (f FrameFlags) IsError() bool { return f&FlagError != 0 }

// Opcode identifies a command or response on the transport.
type Opcode uint16

const (
	OpLogin             Opcode = 0x0001
	OpMechanismList     Opcode = 0x0010
	OpCreateObject      Opcode = 0x0020
	OpGenerateKey       Opcode = 0x0021
	OpGenerateKeyPair   Opcode = 0x0022
	OpDestroyObject     Opcode = 0x0023
	OpFindObjects       Opcode = 0x0024
	OpEncryptInit       Opcode = 0x0030
	OpEncrypt           Opcode = 0x0031
	OpDecryptInit       Opcode = 0x0032
	OpDecrypt           Opcode = 0x0033
	OpSignInit          Opcode = 0x0034
	OpSign              Opcode = 0x0035
	OpVerifyInit        Opcode = 0x0036
	OpVerify            Opcode = 0x0037
	OpDigestInit        Opcode = 0x0038
	OpDigest            Opcode = 0x0039
	OpDeriveKey         Opcode = 0x003A
)

// FrameHeader is the 24-byte header preceding every request/response body.
type FrameHeader struct {
	Magic    [4]byte
	Version  uint8
	Flags    FrameFlags
	Opcode   Opcode
	Reserved uint32
	BodyLen  uint32
	Session  uint64
}

// Validate checks magic and version.
func (h *FrameHeader) Validate() error {
	if string(h.Magic[:]) != FrameMagic {
		return ErrInvalidMagic
	}
	if h.Version != FrameVersion {
		return fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, h.Version, FrameVersion)
	}
	return nil
}

// Encode serializes the header to bytes, big-endian throughout per
// SPEC_FULL.md §4.9.
func (h *FrameHeader) Encode() []byte {
	buf := make([]byte, FrameHeaderSize)
	copy(buf[0:4], h.Magic[:])
	buf[4] = h.Version
	buf[5] = byte(h.Flags)
	binary.BigEndian.PutUint16(buf[6:8], uint16(h.Opcode))
	binary.BigEndian.PutUint32(buf[8:12], h.Reserved)
	binary.BigEndian.PutUint32(buf[12:16], h.BodyLen)
	binary.BigEndian.PutUint64(buf[16:24], h.Session)
	return buf
}

// DecodeHeader parses bytes into a FrameHeader.
func DecodeHeader(data []byte) (*FrameHeader, error) {
	if len(data) < FrameHeaderSize {
		return nil, ErrInvalidHeaderSize
	}

	h := &FrameHeader{
		Version:  data[4],
		Flags:    FrameFlags(data[5]),
		Opcode:   Opcode(binary.BigEndian.Uint16(data[6:8])),
		Reserved: binary.BigEndian.Uint32(data[8:12]),
		BodyLen:  binary.BigEndian.Uint32(data[12:16]),
		Session:  binary.BigEndian.Uint64(data[16:24]),
	}
	copy(h.Magic[:], data[0:4])

	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

// Frame is a complete command-transport frame: header plus body (either a
// JSON admin-surface payload or an attribute-template wire body, depending
// on Opcode).
type Frame struct {
	Header FrameHeader
	Body   []byte
}

// Encode serializes a Frame to bytes, recomputing BodyLen from Body.
func (f *Frame) Encode() []byte {
	f.Header.BodyLen = uint32(len(f.Body))

	buf := make([]byte, FrameHeaderSize+len(f.Body))
	copy(buf[0:FrameHeaderSize], f.Header.Encode())
	copy(buf[FrameHeaderSize:], f.Body)
	return buf
}

// DecodeFrame parses bytes into a Frame.
func DecodeFrame(data []byte) (*Frame, error) {
	header, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}

	expectedSize := FrameHeaderSize + int(header.BodyLen)
	if len(data) < expectedSize {
		return nil, ErrBodyOverflow
	}

	body := make([]byte, header.BodyLen)
	copy(body, data[FrameHeaderSize:expectedSize])

	return &Frame{Header: *header, Body: body}, nil
}

// NewRequestFrame builds a request frame for opcode against session,
// carrying body verbatim (an attribute-template wire encoding or a JSON
// admin payload, depending on opcode).
func NewRequestFrame(opcode Opcode, session uint64, body []byte) *Frame {
	return &Frame{
		Header: FrameHeader{
			Magic:   [4]byte{'C', 'K', '1', '1'},
			Version: FrameVersion,
			Opcode:  opcode,
			Session: session,
		},
		Body: body,
	}
}

// NewResponseFrame builds a response frame mirroring req's opcode and
// session, optionally flagged as an error.
func NewResponseFrame(req *Frame, isErr bool, body []byte) *Frame {
	flags := FlagResponse
	if isErr {
		flags |= FlagError
	}
	return &Frame{
		Header: FrameHeader{
			Magic:   [4]byte{'C', 'K', '1', '1'},
			Version: FrameVersion,
			Flags:   flags,
			Opcode:  req.Header.Opcode,
			Session: req.Header.Session,
		},
		Body: body,
	}
}
