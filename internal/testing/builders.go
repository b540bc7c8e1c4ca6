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

package testing

// TextRecord builds a single short NFC Forum Text record (header 0xD1)
// with a UTF-8 status byte.
func TextRecord(text, language string) []byte {
	payloadLen := 1 + len(language) + len(text)
	record := make([]byte, 0, 4+payloadLen)
	record = append(record,
		0xD1,             // MB=1, ME=1, CF=0, SR=1, IL=0, TNF=1 (Well Known)
		0x01,             // Type Length
		byte(payloadLen), // Payload Length: status byte + language + text
		'T',              // Type
		byte(len(language)),
	)
	record = append(record, language...)
	return append(record, text...)
}

// TLV wraps value in a short-format TLV block.
func TLV(tag byte, value []byte) []byte {
	block := make([]byte, 0, 2+len(value))
	block = append(block, tag, byte(len(value)))
	return append(block, value...)
}

// Stream concatenates TLV blocks and raw bytes into one user memory image.
func Stream(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
