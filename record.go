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
	"fmt"
)

// The only record shape the decoder accepts: a single, short, NFC Forum
// well-known Text record.
const (
	RecordHeaderShortText = 0xD1 // MB=1 ME=1 CF=0 SR=1 IL=0 TNF=1
	RecordTypeLengthText  = 0x01
	RecordTypeText        = 'T'
)

// Field offsets relative to the start of the record.
const (
	recHeader     = 0
	recTypeLength = 1
	recPayloadLen = 2
	recType       = 3
	recLangLen    = 4
)

// textBounds validates the record starting at window offset v and returns
// the window-relative [start, end) range of its text. end may be past the
// window; the extractor follows it into later windows.
func textBounds(w *Window, v int) (start, end int, err error) {
	if v < 0 || v+recLangLen >= WindowDataSize {
		return 0, 0, &FormatError{
			Err:    ErrUnsupportedRecord,
			Offset: v,
			Detail: "record header crosses window",
		}
	}

	header, typeLen, typ := w[v+recHeader], w[v+recTypeLength], w[v+recType]
	if header != RecordHeaderShortText || typeLen != RecordTypeLengthText || typ != RecordTypeText {
		return 0, 0, &FormatError{
			Err:    ErrUnsupportedRecord,
			Offset: v,
			Detail: fmt.Sprintf("header 0x%02X, type length %d, type 0x%02X", header, typeLen, typ),
		}
	}

	// Payload length covers the language length byte, the language code
	// and the text.
	afterType := v + recLangLen
	langInfo := int(w[afterType]) + 1
	payloadLen := int(w[v+recPayloadLen])
	if langInfo > payloadLen {
		return 0, 0, &FormatError{
			Err:    ErrUnsupportedRecord,
			Offset: v,
			Detail: fmt.Sprintf("language info of %d bytes exceeds payload of %d", langInfo, payloadLen),
		}
	}

	return afterType + langInfo, afterType + payloadLen, nil
}

// decodeRecord decodes the text record whose first byte is at offset v of
// window w, read at page. It returns the text it decoded, which may be
// partial when err is non-nil.
func decodeRecord(ctx context.Context, ex extractor, w Window, v, page int) (string, error) {
	start, end, err := textBounds(&w, v)
	if err != nil {
		Debugf("unexpected NDEF record format; skipping: %v", err)
		return "", err
	}

	Debugf("text record content spans window bytes %d..%d from page %d", start, end, page)
	return ex.extract(ctx, w, start, end, page)
}
