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

package pn532

import (
	"context"
	"errors"
	"fmt"
	"testing"

	ntag213 "github.com/ZaparooProject/go-ntag213"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransportError_Retryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "timeout", err: ErrTransportTimeout, want: true},
		{name: "no ACK", err: ErrNoACK, want: true},
		{name: "NACK", err: ErrNACKReceived, want: true},
		{name: "corrupted frame", err: ErrFrameCorrupted, want: true},
		{name: "wrapped timeout", err: fmt.Errorf("read: %w", ErrTransportTimeout), want: true},
		{name: "write failure", err: ErrTransportWrite, want: false},
		{name: "invalid response", err: ErrInvalidResponse, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := NewTransportError("SendCommand", "/dev/ttyUSB0", tt.err)
			assert.Equal(t, tt.want, err.Retryable)
			assert.Equal(t, tt.want, err.Temporary())
			assert.Equal(t, tt.want, ntag213.IsRetryable(fmt.Errorf("InDataExchange failed: %w", err)))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestTransportError_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "waitAck /dev/ttyUSB0: no ACK received",
		NewTransportError("waitAck", "/dev/ttyUSB0", ErrNoACK).Error())
	assert.Equal(t, "waitAck: no ACK received",
		NewTransportError("waitAck", "", ErrNoACK).Error())
}

func TestPN532Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		want      string
		code      byte
		temporary bool
		timeout   bool
	}{
		{
			name:      "timeout",
			code:      0x01,
			want:      "InDataExchange error 0x01 (timeout): READ page 4",
			temporary: true,
			timeout:   true,
		},
		{
			name:      "CRC error with NAD bit",
			code:      0x42,
			want:      "InDataExchange error 0x02 (CRC error): READ page 4",
			temporary: true,
		},
		{
			name: "card disappeared",
			code: 0x2B,
			want: "InDataExchange error 0x2B (card disappeared): READ page 4",
		},
		{
			name: "unknown code",
			code: 0x3E,
			want: "InDataExchange error 0x3E (unknown error): READ page 4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := NewPN532Error(tt.code, "InDataExchange", "READ page 4")
			assert.Equal(t, tt.want, err.Error())
			assert.Equal(t, tt.temporary, err.Temporary())
			assert.Equal(t, tt.timeout, err.IsTimeoutError())

			var pe *PN532Error
			require.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &pe))
		})
	}
}

func TestMockTransport(t *testing.T) {
	t.Parallel()

	mock := NewMockTransport()
	ctx := context.Background()

	res, err := mock.SendCommand(ctx, cmdInSelect, []byte{0x01})
	require.NoError(t, err)
	assert.Equal(t, []byte{cmdInSelect + 1, 0x00}, res)
	assert.Equal(t, []byte{0x01}, mock.LastArgs(cmdInSelect))

	mock.SetError(cmdInSelect, ErrTransportTimeout)
	_, err = mock.SendCommand(ctx, cmdInSelect, nil)
	require.ErrorIs(t, err, ErrTransportTimeout)

	mock.ClearError(cmdInSelect)
	_, err = mock.SendCommand(ctx, cmdInSelect, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, mock.CallCount(cmdInSelect))
}
