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

package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_GetFirmwareVersion(t *testing.T) {
	t.Parallel()

	frm, err := Build(0x02, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD4, 0x02, 0x2A, 0x00}, frm)
}

func TestBuild_TooLarge(t *testing.T) {
	t.Parallel()

	_, err := Build(0x40, make([]byte, 254))
	require.ErrorIs(t, err, ErrDataTooLarge)
}

func TestParse(t *testing.T) {
	t.Parallel()

	// Response to GetFirmwareVersion: D5 03 32 01 06 07
	fw := []byte{0x00, 0x00, 0xFF, 0x06, 0xFA, 0xD5, 0x03, 0x32, 0x01, 0x06, 0x07, 0xE8, 0x00}

	tests := []struct {
		wantErr  error
		name     string
		buf      []byte
		want     []byte
		consumed int
	}{
		{
			name:     "firmware version response",
			buf:      fw,
			want:     []byte{0x03, 0x32, 0x01, 0x06, 0x07},
			consumed: len(fw),
		},
		{
			name:     "leading noise is skipped",
			buf:      append([]byte{0x55, 0x55}, fw...),
			want:     []byte{0x03, 0x32, 0x01, 0x06, 0x07},
			consumed: len(fw) + 2,
		},
		{
			name:    "header only",
			buf:     fw[:5],
			wantErr: ErrIncomplete,
		},
		{
			name:    "body without checksum",
			buf:     fw[:11],
			wantErr: ErrIncomplete,
		},
		{
			name:    "no start code",
			buf:     []byte{0x01, 0x02, 0x03},
			wantErr: ErrIncomplete,
		},
		{
			name:    "bad length checksum",
			buf:     []byte{0x00, 0x00, 0xFF, 0x06, 0xFB, 0xD5, 0x03},
			wantErr: ErrLengthChecksum,
		},
		{
			name:    "bad data checksum",
			buf:     []byte{0x00, 0x00, 0xFF, 0x06, 0xFA, 0xD5, 0x03, 0x32, 0x01, 0x06, 0x07, 0xE9, 0x00},
			wantErr: ErrChecksumMismatch,
		},
		{
			name:    "ack where response expected",
			buf:     AckFrame,
			wantErr: ErrUnexpectedAck,
		},
		{
			name:    "application error frame",
			buf:     []byte{0x00, 0x00, 0xFF, 0x01, 0xFF, 0x7F, 0x81, 0x00},
			wantErr: ErrApplicationError,
		},
		{
			name:    "host frame echoed back",
			buf:     []byte{0x00, 0x00, 0xFF, 0x02, 0xFE, 0xD4, 0x02, 0x2A, 0x00},
			wantErr: ErrUnexpectedTFI,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, consumed, err := Parse(tt.buf)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, data)
			assert.Equal(t, tt.consumed, consumed)
		})
	}
}

func TestBuildParse_RoundTripThroughResponseTFI(t *testing.T) {
	t.Parallel()

	frm, err := Build(0x40, []byte{0x01, 0x30, 0x04})
	require.NoError(t, err)

	// Flip the TFI to a response and fix the data checksum accordingly.
	frm[5] = Pn532ToHost
	frm[len(frm)-2]--

	data, _, err := Parse(frm)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x40, 0x01, 0x30, 0x04}, data)
}

func TestIsAck(t *testing.T) {
	t.Parallel()

	assert.True(t, IsAck(AckFrame))
	assert.True(t, IsAck(append([]byte{0x00}, AckFrame...)))
	assert.False(t, IsAck(NackFrame))
	assert.False(t, IsAck([]byte{0x00, 0x00}))
}
