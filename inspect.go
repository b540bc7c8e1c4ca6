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
	"strings"

	"github.com/hsanjuan/go-ndef"
)

// ReadUserMemory reads the whole TLV area, pages 4 to 39, one window at a
// time. On failure it returns the bytes read so far with the error.
func ReadUserMemory(ctx context.Context, src PageSource) ([]byte, error) {
	data := make([]byte, 0, userEndByte-userStartByte)
	for page := UserStartPage; page <= UserEndPage; page += PagesPerWindow {
		if err := ctx.Err(); err != nil {
			return data, newReadError("inspect", page, err)
		}
		w, err := src.ReadPage(ctx, uint8(page)) //nolint:gosec // page <= UserEndPage
		if err != nil {
			return data, newReadError("inspect", page, err)
		}
		data = append(data, w.Data()...)
	}
	return data, nil
}

// Inspect reads user memory and describes its TLV blocks, one per line,
// the way ReadMessage walks them. NDEF blocks are decoded with go-ndef so
// records the reader rejects are still described.
func Inspect(ctx context.Context, src PageSource) (string, error) {
	data, err := ReadUserMemory(ctx, src)
	return TLVDebugInfo(data, userStartByte), err
}

// TLVDebugInfo returns a human-readable description of the TLV blocks in
// data, whose first byte sits at byte address base.
func TLVDebugInfo(data []byte, base int) string {
	if len(data) == 0 {
		return "empty data\n"
	}

	var sb strings.Builder
	offset := 0
	for offset < len(data) {
		addr := base + offset
		tag := data[offset]
		if tag == TLVTypeTerminator {
			_, _ = fmt.Fprintf(&sb, "[%d] TERMINATOR\n", addr)
			return sb.String()
		}
		if tag != TLVTypeLockControl && tag != TLVTypeNDEF {
			_, _ = fmt.Fprintf(&sb, "[%d] UNKNOWN(0x%02X), scan stops\n", addr, tag)
			return sb.String()
		}
		if offset+1 >= len(data) {
			_, _ = fmt.Fprintf(&sb, "[%d] truncated TLV header\n", addr)
			return sb.String()
		}

		length := int(data[offset+1])
		value := data[offset+tlvHeaderSize : min(len(data), offset+tlvHeaderSize+length)]
		if tag == TLVTypeLockControl {
			_, _ = fmt.Fprintf(&sb, "[%d] LOCK_CONTROL len=%d\n", addr, length)
		} else {
			_, _ = fmt.Fprintf(&sb, "[%d] NDEF len=%d\n", addr, length)
			if len(value) < length {
				_, _ = fmt.Fprintf(&sb, "  truncated: %d of %d bytes read\n", len(value), length)
			} else {
				describeNDEF(&sb, value)
			}
		}
		offset += tlvHeaderSize + length
	}

	_, _ = fmt.Fprintf(&sb, "[%d] end of data without terminator\n", base+offset)
	return sb.String()
}

// describeNDEF writes one indented line per record of an NDEF message.
func describeNDEF(sb *strings.Builder, value []byte) {
	if len(value) > 0 {
		_, _ = fmt.Fprintf(sb, "  header 0x%02X", value[0])
		if value[0] == RecordHeaderShortText {
			sb.WriteString(" (single short record)\n")
		} else {
			sb.WriteString(" (not supported by the reader)\n")
		}
	}

	msg := &ndef.Message{}
	if _, err := msg.Unmarshal(value); err != nil {
		_, _ = fmt.Fprintf(sb, "  parse error: %v\n", err)
		return
	}

	for i, rec := range msg.Records {
		payload, err := rec.Payload()
		if err != nil {
			_, _ = fmt.Fprintf(sb, "  record %d: TNF=%d type=%q (payload error: %v)\n", i, rec.TNF(), rec.Type(), err)
			continue
		}
		raw := payload.Marshal()
		_, _ = fmt.Fprintf(sb, "  record %d: TNF=%d type=%q payload=%d bytes", i, rec.TNF(), rec.Type(), len(raw))
		if rec.TNF() == ndef.NFCForumWellKnownType && rec.Type() == "T" {
			if lang, text, ok := splitTextPayload(raw); ok {
				_, _ = fmt.Fprintf(sb, " lang=%q text=%q", lang, text)
			}
		}
		sb.WriteByte('\n')
	}
}

// splitTextPayload splits a Text record payload into language and text.
func splitTextPayload(raw []byte) (lang, text string, ok bool) {
	if len(raw) == 0 {
		return "", "", false
	}
	langLen := int(raw[0] & 0x3F)
	if 1+langLen > len(raw) {
		return "", "", false
	}
	return string(raw[1 : 1+langLen]), string(raw[1+langLen:]), true
}
