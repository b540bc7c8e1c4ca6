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

import "context"

// NTAG213 memory layout
const (
	PageSize       = 4  // Bytes per page
	PagesPerWindow = 4  // Pages returned by one READ
	WindowDataSize = 16 // Logical data bytes in a window
	WindowSize     = 18 // Data bytes plus the two trailing CRC bytes

	MaxPage        = 44 // Last addressable page (PACK)
	UserStartPage  = 4  // First page after the Capability Container
	UserEndPage    = 39 // Last page of user memory
	userStartByte  = UserStartPage * PageSize
	userEndByte    = (UserEndPage + 1) * PageSize
	checksumLength = WindowSize - WindowDataSize
)

// Window is one READ transfer: pages page..page+3 followed by a two byte
// checksum. The checksum is never interpreted as tag data.
type Window [WindowSize]byte

// Data returns the 16 logical bytes of the window.
func (w *Window) Data() []byte {
	return w[:WindowDataSize]
}

// PageSource reads a window of tag memory starting at the given page.
//
// Implementations block until the transfer completes or fails. Timeouts and
// retries are the page source's business; the decoder never retries.
type PageSource interface {
	ReadPage(ctx context.Context, page uint8) (Window, error)
}

// PageSourceFunc adapts a function to the PageSource interface.
type PageSourceFunc func(ctx context.Context, page uint8) (Window, error)

// ReadPage calls f(ctx, page).
func (f PageSourceFunc) ReadPage(ctx context.Context, page uint8) (Window, error) {
	return f(ctx, page)
}

// TagSession covers card presence, selection and release. It is only used
// by Reader.ReadMessageIfPresent.
type TagSession interface {
	// IsTagPresent reports whether a new tag entered the field
	IsTagPresent(ctx context.Context) bool

	// SelectTag completes anticollision and selects the tag
	SelectTag(ctx context.Context) bool

	// EndSession halts the tag and releases the reader
	EndSession(ctx context.Context) error
}
