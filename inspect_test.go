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
	"testing"

	testutil "github.com/ZaparooProject/go-ntag213/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect_DefaultTag(t *testing.T) {
	t.Parallel()

	tag := testutil.NewVirtualNTAG213(nil)

	info, err := Inspect(context.Background(), tagSource(tag))
	require.NoError(t, err)

	assert.Contains(t, info, "[16] NDEF len=18\n")
	assert.Contains(t, info, "header 0xD1 (single short record)")
	assert.Contains(t, info, `type="T"`)
	assert.Contains(t, info, `text="Hello World"`)
	assert.Contains(t, info, "[36] TERMINATOR\n")
	assert.Equal(t, []uint8{4, 8, 12, 16, 20, 24, 28, 32, 36}, tag.Reads())
}

func TestInspect_ReadFailure(t *testing.T) {
	t.Parallel()

	tag := testutil.NewVirtualNTAG213(nil)
	tag.FailReadAt(8, errors.New("timeout"))

	info, err := Inspect(context.Background(), tagSource(tag))

	require.ErrorIs(t, err, ErrReadFailed)
	// Only page 4 to 7 were read: the NDEF block is cut short
	assert.Contains(t, info, "[16] NDEF len=18\n  truncated: 14 of 18 bytes read\n")
	assert.NotContains(t, info, "TERMINATOR")
}

func TestTLVDebugInfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		data     []byte
		contains []string
	}{
		{
			name:     "empty",
			data:     nil,
			contains: []string{"empty data"},
		},
		{
			name: "lock control then text",
			data: testutil.Stream(
				testutil.TLV(TLVTypeLockControl, []byte{0xA0, 0x0C, 0x34}),
				testutil.TLV(TLVTypeNDEF, testutil.TextRecord("Hi", "en")),
				[]byte{TLVTypeTerminator},
			),
			contains: []string{
				"[16] LOCK_CONTROL len=3\n",
				"[21] NDEF len=9\n",
				`text="Hi"`,
				"[32] TERMINATOR\n",
			},
		},
		{
			name:     "unknown tag",
			data:     []byte{0x99, 0x01, 0x00},
			contains: []string{"[16] UNKNOWN(0x99), scan stops\n"},
		},
		{
			name: "unsupported record header",
			data: testutil.Stream(
				// Long format Text record: 4 byte payload length
				testutil.TLV(TLVTypeNDEF, []byte{0xC1, 0x01, 0x00, 0x00, 0x00, 0x02, 'T', 0x00, 'x'}),
				[]byte{TLVTypeTerminator},
			),
			contains: []string{"header 0xC1 (not supported by the reader)", "[27] TERMINATOR\n"},
		},
		{
			name:     "no terminator",
			data:     testutil.TLV(TLVTypeLockControl, []byte{0x00, 0x00}),
			contains: []string{"[16] LOCK_CONTROL len=2\n", "[20] end of data without terminator\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			info := TLVDebugInfo(tt.data, 16)
			for _, want := range tt.contains {
				assert.Contains(t, info, want)
			}
		})
	}
}
