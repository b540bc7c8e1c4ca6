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

package frame

import (
	"bytes"
	"fmt"
)

// Build returns a normal information frame carrying cmd and args from
// the host to the PN532.
func Build(cmd byte, args []byte) ([]byte, error) {
	dataLen := 2 + len(args) // TFI + command + args
	if dataLen > MaxDataLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrDataTooLarge, dataLen)
	}

	frm := make([]byte, 0, 3+2+dataLen+2)
	frm = append(frm, Preamble, StartCode1, StartCode2)
	frm = append(frm, byte(dataLen), ^byte(dataLen)+1)
	frm = append(frm, HostToPn532, cmd)
	frm = append(frm, args...)

	checksum := Checksum(frm[5:])
	frm = append(frm, ^checksum+1, Postamble)
	return frm, nil
}

// IsAck reports whether buf starts with an ACK frame, skipping any leading
// preamble noise.
func IsAck(buf []byte) bool {
	return bytes.Contains(buf, AckFrame[1:5])
}

// Parse extracts the response carried by the first frame in buf. The
// returned data starts at the response code (command + 1); the TFI is
// stripped. consumed is the number of bytes of buf the frame occupied.
//
// ErrIncomplete means more bytes are needed; any other error means the
// frame is unusable and the host should NACK it.
func Parse(buf []byte) (data []byte, consumed int, err error) {
	start := bytes.Index(buf, []byte{StartCode1, StartCode2})
	if start < 0 {
		return nil, 0, ErrIncomplete
	}

	off := start + 2
	if len(buf) < off+2 {
		return nil, 0, ErrIncomplete
	}

	length, lcs := buf[off], buf[off+1]
	switch {
	case length == 0x00 && lcs == 0xFF:
		return nil, off + 3, ErrUnexpectedAck
	case length == 0xFF && lcs == 0xFF:
		return nil, off + 2, ErrExtendedFrameUsed
	case length+lcs != 0:
		return nil, off + 2, ErrLengthChecksum
	case length == 0:
		return nil, off + 2, fmt.Errorf("%w: zero length", ErrUnexpectedTFI)
	}

	bodyStart := off + 2
	dcsPos := bodyStart + int(length)
	if len(buf) <= dcsPos {
		return nil, 0, ErrIncomplete
	}

	body := buf[bodyStart:dcsPos]
	consumed = min(len(buf), dcsPos+2) // include postamble when present
	if Checksum(body)+buf[dcsPos] != 0 {
		return nil, consumed, ErrChecksumMismatch
	}

	switch body[0] {
	case Pn532ToHost:
		data = make([]byte, len(body)-1)
		copy(data, body[1:])
		return data, consumed, nil
	case ErrorTFI:
		return nil, consumed, ErrApplicationError
	default:
		return nil, consumed, fmt.Errorf("%w: 0x%02X", ErrUnexpectedTFI, body[0])
	}
}
