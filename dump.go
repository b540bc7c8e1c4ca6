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

// PageDump holds raw tag pages read by DumpPages.
type PageDump struct {
	Data  []byte // PageSize bytes per page, in page order
	Start uint8  // First page in Data
}

// Pages returns how many complete pages the dump holds.
func (d *PageDump) Pages() int {
	return len(d.Data) / PageSize
}

// Text renders printable ASCII bytes as is and every other byte as '.'.
func (d *PageDump) Text() string {
	var sb strings.Builder
	sb.Grow(len(d.Data))
	for _, b := range d.Data {
		if isPrintable(b) {
			sb.WriteByte(b)
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}

// String formats the dump as one line per page: hex bytes then text.
func (d *PageDump) String() string {
	var sb strings.Builder
	for i := 0; i+PageSize <= len(d.Data); i += PageSize {
		page := d.Data[i : i+PageSize]
		hexParts := make([]string, len(page))
		for j, b := range page {
			hexParts[j] = fmt.Sprintf("%02X", b)
		}
		text := (&PageDump{Data: page}).Text()
		_, _ = fmt.Fprintf(&sb, "Page %02d: %s  |%s|\n", int(d.Start)+i/PageSize, strings.Join(hexParts, " "), text)
	}
	return sb.String()
}

// DumpPages reads pages start..end inclusive one page at a time. Reading
// stops at the first failure; the dump then holds every page read before
// it and the error is returned alongside.
func DumpPages(ctx context.Context, src PageSource, start, end uint8) (*PageDump, error) {
	if start > MaxPage || end > MaxPage {
		return nil, fmt.Errorf("%w: pages must be between 0 and %d, got %d..%d",
			ErrInvalidPageRange, MaxPage, start, end)
	}
	if start > end {
		return nil, fmt.Errorf("%w: start page %d is after end page %d", ErrInvalidPageRange, start, end)
	}

	dump := &PageDump{Start: start, Data: make([]byte, 0, (int(end)-int(start)+1)*PageSize)}
	for page := int(start); page <= int(end); page++ {
		if err := ctx.Err(); err != nil {
			return dump, newReadError("dump", page, err)
		}

		w, err := src.ReadPage(ctx, uint8(page)) //nolint:gosec // page <= MaxPage
		if err != nil {
			Debugf("reading failed for page %d: %v", page, err)
			return dump, newReadError("dump", page, err)
		}

		data := w.Data()[:PageSize]
		Debugf("page %d: % X", page, data)
		dump.Data = append(dump.Data, data...)
	}
	return dump, nil
}

// DumpPagesIfPresent dumps pages start..end if sess reports and selects a
// tag, and ends the session afterwards.
func DumpPagesIfPresent(ctx context.Context, src PageSource, sess TagSession, start, end uint8) (*PageDump, error) {
	if !sess.IsTagPresent(ctx) || !sess.SelectTag(ctx) {
		return nil, ErrNoTag
	}

	dump, err := DumpPages(ctx, src, start, end)
	if endErr := sess.EndSession(ctx); endErr != nil {
		err = errors.Join(err, fmt.Errorf("end session: %w", endErr))
	}
	return dump, err
}
