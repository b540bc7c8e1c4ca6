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

package ntag213

import (
	"errors"
	"fmt"
)

// Read errors - the page source could not deliver a window
var (
	ErrReadFailed = errors.New("page read failed")
	ErrNoTag      = errors.New("no tag present")
)

// Format errors - the tag content does not match the supported layout
var (
	ErrUnknownTLV        = errors.New("unknown TLV tag")
	ErrUnsupportedRecord = errors.New("unsupported NDEF record")
	ErrNonPrintable      = errors.New("non-printable byte in text")
	ErrNoTerminator      = errors.New("TLV area ended without terminator")
	ErrNoNDEF            = errors.New("no NDEF message TLV found")
)

// ErrInvalidPageRange is returned by DumpPages for out of range requests.
var ErrInvalidPageRange = errors.New("invalid page range")

// ReadError wraps a failed page read with the page it was issued for.
type ReadError struct {
	Err       error  // Underlying error from the page source
	Op        string // Stage that issued the read
	Page      int    // Page index passed to ReadPage
	Retryable bool   // Whether the page source reported a transient failure
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: %v (page %d): %v", e.Op, ErrReadFailed, e.Page, e.Err)
}

func (e *ReadError) Unwrap() []error {
	return []error{ErrReadFailed, e.Err}
}

// newReadError builds a ReadError, inheriting retryability from a wrapped ReadError.
func newReadError(op string, page int, err error) *ReadError {
	re := &ReadError{Op: op, Page: page, Err: err}
	var inner *ReadError
	if errors.As(err, &inner) {
		re.Retryable = inner.Retryable
	}
	var rt interface{ Temporary() bool }
	if errors.As(err, &rt) && rt.Temporary() {
		re.Retryable = true
	}
	return re
}

// FormatError reports a TLV or record layout the decoder does not accept.
type FormatError struct {
	Err    error
	Detail string
	Offset int // Byte address (TLV errors) or window offset (record errors)
}

func (e *FormatError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v at offset %d", e.Err, e.Offset)
	}
	return fmt.Sprintf("%v at offset %d: %s", e.Err, e.Offset, e.Detail)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is a page read failure that may
// succeed when attempted again
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var re *ReadError
	if errors.As(err, &re) {
		return re.Retryable
	}

	var rt interface{ Temporary() bool }
	if errors.As(err, &rt) {
		return rt.Temporary()
	}
	return false
}

// IsReadError returns true if err contains a page read failure
func IsReadError(err error) bool {
	var re *ReadError
	return errors.As(err, &re)
}
