// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pn532

import (
	"errors"
	"fmt"
)

// Transport errors - potentially retryable
var (
	ErrTransportTimeout = errors.New("transport timeout")
	ErrTransportWrite   = errors.New("transport write failed")
	ErrTransportRead    = errors.New("transport read failed")
	ErrNoACK            = errors.New("no ACK received")
	ErrNACKReceived     = errors.New("NACK received")
	ErrFrameCorrupted   = errors.New("frame corrupted")
)

// Device and tag errors - generally not retryable
var (
	ErrInvalidResponse = errors.New("invalid response format")
	ErrNoTargetListed  = errors.New("no target listed")
	ErrTagNAK          = errors.New("tag answered with NAK")
	ErrInvalidPage     = errors.New("page out of range")
)

// TransportError wraps transport-level errors with additional context
type TransportError struct {
	Err       error  // Underlying error
	Op        string // Operation that failed
	Port      string // Port or device identifier
	Retryable bool   // Whether the error is retryable
}

// NewTransportError creates a transport error, retryable unless the cause
// is a framing problem the PN532 will repeat.
func NewTransportError(op, port string, err error) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Retryable: errors.Is(err, ErrTransportTimeout) || errors.Is(err, ErrNoACK) || errors.Is(err, ErrFrameCorrupted) || errors.Is(err, ErrNACKReceived),
	}
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying the command may succeed.
func (e *TransportError) Temporary() bool {
	return e.Retryable
}

// PN532Error wraps a non-zero status byte returned by the PN532.
type PN532Error struct {
	Command   string
	Context   string
	ErrorCode byte
}

// NewPN532Error creates a PN532 status error
func NewPN532Error(errorCode byte, command, context string) *PN532Error {
	return &PN532Error{
		ErrorCode: errorCode & 0x3F,
		Command:   command,
		Context:   context,
	}
}

func (e *PN532Error) Error() string {
	base := fmt.Sprintf("%s error 0x%02X (%s)", e.Command, e.ErrorCode, pn532ErrorCodeMeaning(e.ErrorCode))
	if e.Context != "" {
		base += ": " + e.Context
	}
	return base
}

// Temporary reports whether the status is an RF error worth retrying.
func (e *PN532Error) Temporary() bool {
	switch e.ErrorCode {
	case 0x01, 0x02, 0x03, 0x04, 0x0A, 0x0B:
		return true
	default:
		return false
	}
}

// IsTimeoutError returns true if the error is timeout-related
func (e *PN532Error) IsTimeoutError() bool {
	return e.ErrorCode == 0x01
}

// pn532ErrorCodeMeaning returns a human-readable meaning for PN532 error codes
// Error codes are from the PN532 User Manual section 7.1
func pn532ErrorCodeMeaning(code byte) string {
	meanings := map[byte]string{
		0x00: "success",
		0x01: "timeout",
		0x02: "CRC error",
		0x03: "parity error",
		0x04: "erroneous bit count during anti-collision",
		0x05: "framing error during mifare operation",
		0x06: "abnormal bit collision",
		0x07: "communication buffer size insufficient",
		0x09: "RF buffer overflow",
		0x0A: "RF field not activated in time",
		0x0B: "RF protocol error",
		0x0D: "overheating",
		0x0E: "internal buffer overflow",
		0x10: "invalid parameter",
		0x13: "dataformat does not match",
		0x14: "authentication error",
		0x23: "UID check byte is wrong",
		0x26: "operation not allowed",
		0x27: "wrong context for command",
		0x29: "target released by initiator",
		0x2A: "card ID mismatch",
		0x2B: "card disappeared",
		0x2D: "over-current event",
	}
	if m, ok := meanings[code]; ok {
		return m
	}
	return "unknown error"
}
