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
	"context"
	"errors"
	"fmt"
	"strings"
)

// TLV tag constants per NFC Forum Type 2 Tag specification
const (
	TLVTypeLockControl = 0x01 // Lock Control TLV - skipped
	TLVTypeNDEF        = 0x03 // NDEF Message TLV - decoded
	TLVTypeTerminator  = 0xFE // Terminator TLV - end of data area
)

// tlvHeaderSize is the tag byte plus the one byte length field.
const tlvHeaderSize = 2

// scanner walks the TLV area one block at a time. A scanner is built for
// a single read and thrown away afterwards.
type scanner struct {
	src     PageSource
	errs    []error
	text    strings.Builder
	policy  TextPolicy
	endAddr int
	sawNDEF bool
}

// scan walks TLV blocks from the byte address start. At the top of every
// iteration cursor points at an unread tag byte, and every block that does
// not stop the scan advances it by at least tlvHeaderSize.
func (s *scanner) scan(ctx context.Context, start int) Result {
	cursor := start
	for {
		if cursor >= s.endAddr {
			Debugf("cursor %d reached end of user memory", cursor)
			return s.finish(&FormatError{Err: ErrNoTerminator, Offset: cursor})
		}

		page := cursor / PageSize
		if err := ctx.Err(); err != nil {
			return s.finish(newReadError("scan", page, err))
		}

		Debugf("reading TLV block at byte %d (page %d)", cursor, page)
		//nolint:gosec // page is bounded by endAddr, which is at most 180
		window, err := s.src.ReadPage(ctx, uint8(page))
		if err != nil {
			Debugf("reading page %d failed: %v", page, err)
			return s.finish(newReadError("scan", page, err))
		}

		blockStart := cursor % PageSize
		tag := window[blockStart]
		blockLen := tlvHeaderSize + int(window[blockStart+1])

		switch tag {
		case TLVTypeLockControl:
			Debugln("Lock Control TLV found; skipping", blockLen, "bytes")
			cursor += blockLen

		case TLVTypeNDEF:
			Debugln("NDEF Message TLV found; decoding record")
			s.sawNDEF = true
			text, recErr := decodeRecord(ctx, extractor{src: s.src, policy: s.policy},
				window, blockStart+tlvHeaderSize, page)
			s.text.WriteString(text)
			if recErr != nil {
				s.errs = append(s.errs, fmt.Errorf("NDEF TLV at byte %d: %w", cursor, recErr))
			}
			cursor += blockLen

		case TLVTypeTerminator:
			Debugln("Terminator TLV found")
			return s.finish(nil)

		default:
			Debugf("unknown TLV tag 0x%02X at byte %d; stopping", tag, cursor)
			return s.finish(&FormatError{
				Err:    ErrUnknownTLV,
				Offset: cursor,
				Detail: fmt.Sprintf("tag 0x%02X", tag),
			})
		}
	}
}

// finish classifies the scan. stop is the reason the loop ended, nil when
// a terminator was reached.
func (s *scanner) finish(stop error) Result {
	errs := s.errs
	if stop != nil {
		errs = append(errs, stop)
	}
	res := Result{Text: s.text.String(), Err: errors.Join(errs...)}

	switch {
	case IsReadError(res.Err):
		res.Outcome = OutcomePartial
	case !s.sawNDEF && (stop == nil || errors.Is(stop, ErrNoTerminator)):
		res.Outcome = OutcomeNoNDEFData
		res.Err = errors.Join(ErrNoNDEF, res.Err)
	case res.Err != nil && res.Text != "":
		res.Outcome = OutcomePartial
	case res.Err != nil:
		res.Outcome = OutcomeFormatError
	default:
		res.Outcome = OutcomeSuccess
	}
	return res
}
