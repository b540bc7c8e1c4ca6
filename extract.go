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
)

// TextPolicy decides what happens to text bytes outside printable ASCII
type TextPolicy uint8

const (
	// TextPolicyPermissive drops non-printable bytes and keeps decoding.
	TextPolicyPermissive TextPolicy = iota
	// TextPolicyStrict stops the record at the first non-printable byte.
	TextPolicyStrict
)

func (p TextPolicy) String() string {
	switch p {
	case TextPolicyPermissive:
		return "permissive"
	case TextPolicyStrict:
		return "strict"
	default:
		return fmt.Sprintf("TextPolicy(%d)", uint8(p))
	}
}

// ParseTextPolicy parses "permissive" or "strict".
func ParseTextPolicy(s string) (TextPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "permissive":
		return TextPolicyPermissive, nil
	case "strict":
		return TextPolicyStrict, nil
	default:
		return 0, fmt.Errorf("unknown text policy %q", s)
	}
}

func isPrintable(b byte) bool {
	return b >= 0x20 && b <= 0x7E
}

// extractor collects record text that may run over several windows.
type extractor struct {
	src    PageSource
	policy TextPolicy
}

// extract appends the printable bytes of w[start:end] and follows end into
// later windows. Offsets are relative to w; each time the range runs past
// the window it is shifted down by one window and the next window, four
// pages on, is read.
func (e extractor) extract(ctx context.Context, w Window, start, end, page int) (string, error) {
	var sb strings.Builder
	for {
		for i := start; i < min(WindowDataSize, end); i++ {
			b := w[i]
			if isPrintable(b) {
				sb.WriteByte(b)
				continue
			}
			if e.policy == TextPolicyStrict {
				return sb.String(), &FormatError{
					Err:    ErrNonPrintable,
					Offset: i,
					Detail: fmt.Sprintf("byte 0x%02X on page %d", b, page+i/PageSize),
				}
			}
			Debugf("non-printable byte 0x%02X at window byte %d of page %d", b, i, page)
		}

		if end <= WindowDataSize {
			return sb.String(), nil
		}

		start = max(0, start-WindowDataSize)
		end -= WindowDataSize
		page += PagesPerWindow
		Debugf("text continues %d bytes past the window; reading page %d", end, page)

		if err := ctx.Err(); err != nil {
			return sb.String(), newReadError("extract", page, err)
		}
		next, err := e.src.ReadPage(ctx, uint8(page)) //nolint:gosec // at most 40 + 17 windows
		if err != nil {
			return sb.String(), newReadError("extract", page, err)
		}
		w = next
	}
}
