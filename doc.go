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

// Package ntag213 reads the text message stored on an NTAG213 tag.
//
// The tag is accessed only through a PageSource, which returns 16 bytes of
// memory (four pages) plus two checksum bytes per read. A Reader walks the
// TLV blocks of the user area starting at page 4, skips Lock Control
// blocks, decodes every NDEF Message block holding a single short
// well-known Text record and stops at the Terminator block:
//
//	device, _ := pn532.New(transport)
//	reader, _ := ntag213.New(device)
//	res := reader.ReadMessageIfPresent(ctx, device)
//	if res.OK() {
//		fmt.Println(res.Text)
//	}
//
// Reads never panic on malformed tags. Result.Outcome says how the read
// ended and Result.Text always holds the text decoded so far.
package ntag213
