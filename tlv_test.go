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

func TestScan_TerminatorStopsReading(t *testing.T) {
	t.Parallel()

	// Everything after 0xFE is garbage that must never be read
	data := testutil.Stream(
		testutil.TLV(TLVTypeNDEF, testutil.TextRecord("Hello World", "en")),
		[]byte{TLVTypeTerminator},
	)
	for len(data) < testutil.UserMemorySize {
		data = append(data, 0x99)
	}

	r, tag := newTestReader(t, data)
	res := r.ReadMessage(context.Background())

	require.Equal(t, OutcomeSuccess, res.Outcome, res.String())
	require.NoError(t, res.Err)
	assert.Equal(t, "Hello World", res.Text)
	// Page 4 holds the header, page 8 the end of the text, page 9 the terminator
	assert.Equal(t, []uint8{4, 8, 9}, tag.Reads())
}

func TestScan_LockControlSkipped(t *testing.T) {
	t.Parallel()

	data := testutil.Stream(
		testutil.TLV(TLVTypeLockControl, []byte{0xA0, 0x0C, 0x34}),
		testutil.TLV(TLVTypeNDEF, testutil.TextRecord("Hi", "en")),
		[]byte{TLVTypeTerminator},
	)

	r, tag := newTestReader(t, data)
	res := r.ReadMessage(context.Background())

	require.Equal(t, OutcomeSuccess, res.Outcome, res.String())
	assert.Equal(t, "Hi", res.Text)
	// Lock control at byte 16, NDEF at byte 21, terminator at byte 34
	assert.Equal(t, []uint8{4, 5, 8}, tag.Reads())
}

func TestScan_UnknownTagHalts(t *testing.T) {
	t.Parallel()

	r, tag := newTestReader(t, []byte{0x99, 0x03, 0x03, 0x05})
	res := r.ReadMessage(context.Background())

	assert.Equal(t, OutcomeFormatError, res.Outcome)
	assert.Empty(t, res.Text)
	require.ErrorIs(t, res.Err, ErrUnknownTLV)

	var fe *FormatError
	require.ErrorAs(t, res.Err, &fe)
	assert.Equal(t, 16, fe.Offset)
	assert.Equal(t, 1, tag.ReadCount())
}

func TestScan_UnknownTagAfterTextIsPartial(t *testing.T) {
	t.Parallel()

	data := testutil.Stream(
		testutil.TLV(TLVTypeNDEF, testutil.TextRecord("Hi", "en")),
		[]byte{0x42, 0x00},
	)

	r, _ := newTestReader(t, data)
	res := r.ReadMessage(context.Background())

	assert.Equal(t, OutcomePartial, res.Outcome)
	assert.Equal(t, "Hi", res.Text)
	require.ErrorIs(t, res.Err, ErrUnknownTLV)
}

func TestScan_ReadFailureKeepsPriorText(t *testing.T) {
	t.Parallel()

	data := testutil.Stream(
		testutil.TLV(TLVTypeNDEF, testutil.TextRecord("Hi", "en")),
		testutil.TLV(TLVTypeNDEF, testutil.TextRecord("there", "en")),
		[]byte{TLVTypeTerminator},
	)

	r, tag := newTestReader(t, data)
	// The second TLV block starts at byte 27, page 6
	tag.FailReadAt(6, errors.New("timeout"))

	res := r.ReadMessage(context.Background())

	assert.Equal(t, OutcomePartial, res.Outcome)
	assert.Equal(t, "Hi", res.Text)
	require.ErrorIs(t, res.Err, ErrReadFailed)

	var re *ReadError
	require.ErrorAs(t, res.Err, &re)
	assert.Equal(t, 6, re.Page)
	assert.Equal(t, "scan", re.Op)
	assert.Equal(t, []uint8{4, 6}, tag.Reads())
}

func TestScan_ReadFailureBeforeAnyText(t *testing.T) {
	t.Parallel()

	r, tag := newTestReader(t, []byte{TLVTypeTerminator})
	tag.Present = false

	res := r.ReadMessage(context.Background())

	assert.Equal(t, OutcomePartial, res.Outcome)
	assert.Empty(t, res.Text)
	require.ErrorIs(t, res.Err, testutil.ErrTagNotPresent)
	assert.True(t, IsReadError(res.Err))
}

func TestScan_HeaderMismatchSkipsRecord(t *testing.T) {
	t.Parallel()

	bad := testutil.TextRecord("no", "en")
	bad[0] = 0x91 // MB=1 ME=0: first record of a multi-record message

	data := testutil.Stream(
		testutil.TLV(TLVTypeNDEF, bad),
		testutil.TLV(TLVTypeNDEF, testutil.TextRecord("Hi", "en")),
		[]byte{TLVTypeTerminator},
	)

	r, _ := newTestReader(t, data)
	res := r.ReadMessage(context.Background())

	assert.Equal(t, "Hi", res.Text)
	assert.Equal(t, OutcomePartial, res.Outcome)
	require.ErrorIs(t, res.Err, ErrUnsupportedRecord)
}

func TestScan_OnlyRecordRejectedIsFormatError(t *testing.T) {
	t.Parallel()

	uri := []byte{0xD1, 0x01, 0x05, 'U', 0x04, 'a', '.', 'b', 'c'}
	data := testutil.Stream(
		testutil.TLV(TLVTypeNDEF, uri),
		[]byte{TLVTypeTerminator},
	)

	r, _ := newTestReader(t, data)
	res := r.ReadMessage(context.Background())

	assert.Equal(t, OutcomeFormatError, res.Outcome)
	assert.Empty(t, res.Text)
	require.ErrorIs(t, res.Err, ErrUnsupportedRecord)
}

func TestScan_NoNDEFData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		data    []byte
		opts    []Option
	}{
		{
			name: "terminator only",
			data: []byte{TLVTypeTerminator},
		},
		{
			name: "lock control then terminator",
			data: testutil.Stream(
				testutil.TLV(TLVTypeLockControl, []byte{0xA0, 0x0C, 0x34}),
				[]byte{TLVTypeTerminator},
			),
		},
		{
			name: "user memory ends without terminator",
			data: testutil.Stream(
				testutil.TLV(TLVTypeLockControl, make([]byte, 10)),
				testutil.TLV(TLVTypeLockControl, make([]byte, 10)),
			),
			opts:    []Option{WithUserMemoryEnd(40)},
			wantErr: ErrNoTerminator,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, _ := newTestReader(t, tt.data, tt.opts...)
			res := r.ReadMessage(context.Background())

			assert.Equal(t, OutcomeNoNDEFData, res.Outcome)
			assert.Empty(t, res.Text)
			require.ErrorIs(t, res.Err, ErrNoNDEF)
			if tt.wantErr != nil {
				require.ErrorIs(t, res.Err, tt.wantErr)
			}
		})
	}
}

func TestScan_MissingTerminatorAfterTextIsPartial(t *testing.T) {
	t.Parallel()

	data := testutil.TLV(TLVTypeNDEF, testutil.TextRecord("Hi", "en"))

	// The NDEF block ends at byte 27; stop the scan right there
	r, _ := newTestReader(t, data, WithUserMemoryEnd(27))
	res := r.ReadMessage(context.Background())

	assert.Equal(t, OutcomePartial, res.Outcome)
	assert.Equal(t, "Hi", res.Text)
	require.ErrorIs(t, res.Err, ErrNoTerminator)
}

func TestScan_MultipleNDEFBlocksConcatenate(t *testing.T) {
	t.Parallel()

	data := testutil.Stream(
		testutil.TLV(TLVTypeNDEF, testutil.TextRecord("Hello ", "en")),
		testutil.TLV(TLVTypeLockControl, []byte{0x01, 0x02, 0x03}),
		testutil.TLV(TLVTypeNDEF, testutil.TextRecord("World", "de")),
		[]byte{TLVTypeTerminator},
	)

	r, _ := newTestReader(t, data)
	res := r.ReadMessage(context.Background())

	require.True(t, res.OK(), res.String())
	assert.Equal(t, "Hello World", res.Text)
}

func TestScan_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, tag := newTestReader(t, []byte{TLVTypeTerminator})
	res := r.ReadMessage(ctx)

	assert.Equal(t, OutcomePartial, res.Outcome)
	require.ErrorIs(t, res.Err, context.Canceled)
	assert.Zero(t, tag.ReadCount())
}
