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

// PN532 command codes used by the NTAG213 adapter
const (
	CmdSAMConfiguration    = 0x14
	CmdInListPassiveTarget = 0x4A
	CmdInDataExchange      = 0x40
	CmdInRelease           = 0x52
	CmdInSelect            = 0x54
)

// TestNTAG213UID is a sample NTAG213 UID
var TestNTAG213UID = []byte{0x04, 0xAB, 0xCD, 0xEF, 0x12, 0x34, 0x56}

// BuildTagDetectionResponse creates an InListPassiveTarget response for one
// NTAG213 target, as returned by a transport (TFI stripped).
func BuildTagDetectionResponse(uid []byte) []byte {
	response := make([]byte, 0, 7+len(uid))
	// Response code, 1 target, target number, SENS_RES, SEL_RES, UID length
	response = append(response, CmdInListPassiveTarget+1, 0x01, 0x01, 0x00, 0x44, 0x00, byte(len(uid)))
	return append(response, uid...)
}

// BuildNoTagResponse creates an empty InListPassiveTarget response
func BuildNoTagResponse() []byte {
	return []byte{CmdInListPassiveTarget + 1, 0x00}
}

// BuildDataExchangeResponse creates a successful InDataExchange response
func BuildDataExchangeResponse(data []byte) []byte {
	response := make([]byte, 0, 2+len(data))
	response = append(response, CmdInDataExchange+1, 0x00)
	return append(response, data...)
}

// BuildStatusResponse creates a response carrying only a status byte, as
// returned by InSelect and InRelease.
func BuildStatusResponse(cmd, status byte) []byte {
	return []byte{cmd + 1, status}
}
