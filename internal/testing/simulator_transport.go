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

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ZaparooProject/go-ntag213/internal/frame"
)

// More PN532 command codes answered by SimulatorTransport
const (
	CmdGetFirmwareVersion = 0x02
	CmdRFConfiguration    = 0x32
)

// NTAG21x READ command code
const ntagCmdRead = 0x30

// PN532 status codes
const (
	StatusOK            = 0x00
	StatusTimeout       = 0x01
	StatusWrongContext  = 0x27
	StatusCardDisappear = 0x2B
)

// SimulatorTransport answers PN532 commands from a VirtualNTAG213 placed on
// the reader. Responses travel through a real response frame so the frame
// codec is exercised as on the wire.
type SimulatorTransport struct {
	tag        *VirtualNTAG213
	errorMap   map[byte]error
	CommandLog []CommandLogEntry
	mu         sync.Mutex
	closed     bool
}

// CommandLogEntry records a command sent to the transport
type CommandLogEntry struct {
	Timestamp time.Time
	Args      []byte
	Cmd       byte
}

// NewSimulatorTransport creates a transport for a reader with tag in its
// field. tag may be nil for an empty field.
func NewSimulatorTransport(tag *VirtualNTAG213) *SimulatorTransport {
	return &SimulatorTransport{
		tag:      tag,
		errorMap: make(map[byte]error),
	}
}

// SetError makes every cmd fail with err at the transport level.
func (t *SimulatorTransport) SetError(cmd byte, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errorMap[cmd] = err
}

// SendCommand executes cmd against the simulated reader.
func (t *SimulatorTransport) SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	wire, err := t.Exchange(ctx, cmd, args)
	if err != nil {
		return nil, err
	}

	data, _, err := frame.Parse(wire)
	if err != nil {
		return nil, fmt.Errorf("simulator produced a bad frame: %w", err)
	}
	return data, nil
}

// Exchange executes cmd and returns the response as it appears on the wire,
// framed but without the leading ACK.
func (t *SimulatorTransport) Exchange(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, errors.New("transport closed")
	}

	t.CommandLog = append(t.CommandLog, CommandLogEntry{
		Cmd:       cmd,
		Args:      append([]byte(nil), args...),
		Timestamp: time.Now(),
	})

	if err, ok := t.errorMap[cmd]; ok {
		return nil, err
	}

	response, err := t.respond(ctx, cmd, args)
	if err != nil {
		return nil, err
	}
	return ResponseFrame(response), nil
}

func (t *SimulatorTransport) respond(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	switch cmd {
	case CmdSAMConfiguration, CmdRFConfiguration:
		return []byte{cmd + 1}, nil

	case CmdGetFirmwareVersion:
		// PN532, firmware 1.6, ISO14443A/B and ISO18092
		return []byte{cmd + 1, 0x32, 0x01, 0x06, 0x07}, nil

	case CmdInListPassiveTarget:
		if t.tag == nil || !t.tag.IsTagPresent(ctx) {
			return BuildNoTagResponse(), nil
		}
		return BuildTagDetectionResponse(t.tag.UID), nil

	case CmdInSelect:
		if t.tag == nil || !t.tag.SelectTag(ctx) {
			return BuildStatusResponse(cmd, StatusWrongContext), nil
		}
		return BuildStatusResponse(cmd, StatusOK), nil

	case CmdInRelease:
		if t.tag != nil {
			if err := t.tag.EndSession(ctx); err != nil {
				return BuildStatusResponse(cmd, StatusWrongContext), nil
			}
		}
		return BuildStatusResponse(cmd, StatusOK), nil

	case CmdInDataExchange:
		return t.dataExchange(ctx, args), nil

	default:
		return nil, fmt.Errorf("simulator: unsupported command 0x%02X", cmd)
	}
}

// dataExchange handles InDataExchange carrying an NTAG READ.
func (t *SimulatorTransport) dataExchange(ctx context.Context, args []byte) []byte {
	if len(args) != 3 || args[1] != ntagCmdRead {
		return BuildStatusResponse(CmdInDataExchange, StatusWrongContext)
	}
	if t.tag == nil || !t.tag.IsTagPresent(ctx) {
		return BuildStatusResponse(CmdInDataExchange, StatusCardDisappear)
	}

	window, err := t.tag.ReadWindow(ctx, args[2])
	if err != nil {
		return BuildStatusResponse(CmdInDataExchange, StatusTimeout)
	}
	// The PN532 checks and strips the CRC_A before returning data
	return BuildDataExchangeResponse(window[:windowDataLength])
}

// Close closes the transport
func (t *SimulatorTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// HasCommand checks if a specific command was sent
func (t *SimulatorTransport) HasCommand(cmd byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, entry := range t.CommandLog {
		if entry.Cmd == cmd {
			return true
		}
	}
	return false
}

// Commands returns the command codes sent so far, in order.
func (t *SimulatorTransport) Commands() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	cmds := make([]byte, len(t.CommandLog))
	for i, entry := range t.CommandLog {
		cmds[i] = entry.Cmd
	}
	return cmds
}

// ResponseFrame wraps data (response code first) in a PN532 to host normal
// information frame.
func ResponseFrame(data []byte) []byte {
	body := append([]byte{frame.Pn532ToHost}, data...)
	out := make([]byte, 0, len(body)+7)
	out = append(out, frame.Preamble, frame.StartCode1, frame.StartCode2)
	out = append(out, byte(len(body)), ^byte(len(body))+1)
	out = append(out, body...)
	return append(out, ^frame.Checksum(body)+1, frame.Postamble)
}
