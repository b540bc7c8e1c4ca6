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

// Package uart provides a PN532 transport over a serial port (HSU mode).
package uart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	ntag213 "github.com/ZaparooProject/go-ntag213"
	"github.com/ZaparooProject/go-ntag213/internal/frame"
	"github.com/ZaparooProject/go-ntag213/internal/syncutil"
	"github.com/ZaparooProject/go-ntag213/pn532"
	"go.bug.st/serial"
)

const (
	// DefaultResponseTimeout covers InListPassiveTarget with the default
	// passive activation retries.
	DefaultResponseTimeout = 1500 * time.Millisecond

	ackTimeout   = 100 * time.Millisecond
	maxNackTries = 3

	cmdInListPassiveTarget = 0x4A
)

// Transport implements pn532.Transport for UART communication.
type Transport struct {
	port            serial.Port
	portName        string
	mu              syncutil.Mutex
	responseTimeout time.Duration
}

// isWindows returns true if running on Windows
func isWindows() bool {
	return runtime.GOOS == "windows"
}

// getReadTimeout returns the per-read serial timeout for the platform
func getReadTimeout() time.Duration {
	if isWindows() {
		return 100 * time.Millisecond
	}
	return 50 * time.Millisecond
}

// New opens portName at 115200 8N1.
func New(portName string) (*Transport, error) {
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open UART port %s: %w", portName, err)
	}

	if err := port.SetReadTimeout(getReadTimeout()); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set UART read timeout: %w", err)
	}

	return NewWithPort(port, portName), nil
}

// NewWithPort creates a transport on an already opened port.
func NewWithPort(port serial.Port, portName string) *Transport {
	return &Transport{
		port:            port,
		portName:        portName,
		responseTimeout: DefaultResponseTimeout,
	}
}

// SetTimeout sets how long to wait for a response frame after the ACK
func (t *Transport) SetTimeout(timeout time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responseTimeout = timeout
}

// SendCommand sends a command to the PN532 and waits for its response.
func (t *Transport) SendCommand(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	frm, err := frame.Build(cmd, args)
	if err != nil {
		return nil, pn532.NewTransportError("sendFrame", t.portName, err)
	}

	if err := t.wakeUp(); err != nil {
		return nil, err
	}
	if err := t.write("sendFrame", frm); err != nil {
		return nil, err
	}
	ntag213.Debugf("UART TX: % X", frm)

	rest, err := t.waitAck(ctx)
	if err != nil {
		return nil, err
	}

	res, err := t.receiveFrame(ctx, rest)
	if err != nil {
		if cmd == cmdInListPassiveTarget && errors.Is(err, pn532.ErrTransportTimeout) {
			// Some firmware never answers InListPassiveTarget when the
			// field is empty
			return []byte{cmdInListPassiveTarget + 1, 0x00}, nil
		}
		return nil, err
	}
	ntag213.Debugf("UART RX: % X", res)

	if err := t.write("sendAck", frame.AckFrame); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the transport connection
func (t *Transport) Close() error {
	if t.port != nil {
		if err := t.port.Close(); err != nil {
			return fmt.Errorf("UART close failed: %w", err)
		}
	}
	return nil
}

// wakeUp wakes up the PN532 over UART
func (t *Transport) wakeUp() error {
	// Over UART, PN532 must be "woken up" by sending a 0x55
	// dummy byte followed by enough zeros
	return t.write("wakeUp", []byte{
		0x55, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	})
}

func (t *Transport) write(op string, data []byte) error {
	n, err := t.port.Write(data)
	if err != nil {
		return pn532.NewTransportError(op, t.portName, fmt.Errorf("%w: %w", pn532.ErrTransportWrite, err))
	}
	if n != len(data) {
		return pn532.NewTransportError(op, t.portName,
			fmt.Errorf("%w: wrote %d of %d bytes", pn532.ErrTransportWrite, n, len(data)))
	}
	return t.drainWithRetry(op)
}

// waitAck reads until an ACK frame arrives and returns whatever followed it
func (t *Transport) waitAck(ctx context.Context) ([]byte, error) {
	deadline := t.deadline(ctx, ackTimeout)
	buf := make([]byte, 0, 64)
	chunk := make([]byte, 64)

	for {
		if idx := bytes.Index(buf, frame.AckFrame[1:5]); idx >= 0 {
			return buf[idx+4:], nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, pn532.NewTransportError("waitAck", t.portName, pn532.ErrNoACK)
		}

		n, err := t.port.Read(chunk)
		if err != nil {
			return nil, pn532.NewTransportError("waitAck", t.portName, fmt.Errorf("%w: %w", pn532.ErrTransportRead, err))
		}
		buf = append(buf, chunk[:n]...)
	}
}

// receiveFrame reads a response frame, asking for a retransmission with a
// NACK when its checksums do not match.
func (t *Transport) receiveFrame(ctx context.Context, buf []byte) ([]byte, error) {
	for tries := 0; tries < maxNackTries; tries++ {
		data, err := t.readFrame(ctx, buf)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, frame.ErrChecksumMismatch) && !errors.Is(err, frame.ErrLengthChecksum) {
			return nil, err
		}

		ntag213.Debugf("UART frame corrupted (attempt %d): %v", tries+1, err)
		if err := t.write("sendNack", frame.NackFrame); err != nil {
			return nil, err
		}
		buf = nil
	}

	return nil, pn532.NewTransportError("receiveFrame", t.portName, pn532.ErrFrameCorrupted)
}

func (t *Transport) readFrame(ctx context.Context, buf []byte) ([]byte, error) {
	deadline := t.deadline(ctx, t.responseTimeout)
	chunk := make([]byte, 64)

	for {
		data, consumed, err := frame.Parse(buf)
		switch {
		case err == nil:
			return data, nil
		case errors.Is(err, frame.ErrUnexpectedAck):
			buf = buf[consumed:]
			continue
		case errors.Is(err, frame.ErrApplicationError):
			return nil, pn532.NewTransportError("receiveFrame", t.portName,
				fmt.Errorf("%w: %w", pn532.ErrInvalidResponse, err))
		case !errors.Is(err, frame.ErrIncomplete):
			return nil, fmt.Errorf("UART frame parse failed: %w", err)
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, pn532.NewTransportError("receiveFrame", t.portName, pn532.ErrTransportTimeout)
		}

		n, err := t.port.Read(chunk)
		if err != nil {
			return nil, pn532.NewTransportError("receiveFrame", t.portName, fmt.Errorf("%w: %w", pn532.ErrTransportRead, err))
		}
		buf = append(buf, chunk[:n]...)
	}
}

// deadline returns the earlier of now+d and the context deadline
func (*Transport) deadline(ctx context.Context, d time.Duration) time.Time {
	deadline := time.Now().Add(d)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		return dl
	}
	return deadline
}

// isInterruptedSystemCall checks if an error is caused by an interrupted system call
func isInterruptedSystemCall(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "interrupted system call") ||
		strings.Contains(errStr, "eintr")
}

// drainWithRetry performs port drain with retry logic for interrupted system calls
func (t *Transport) drainWithRetry(operation string) error {
	const maxRetries = 3
	baseDelay := 2 * time.Millisecond

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := t.port.Drain()
		if err == nil {
			return nil
		}

		if isInterruptedSystemCall(err) && attempt < maxRetries-1 {
			time.Sleep(baseDelay * time.Duration(1<<attempt)) // 2ms, 4ms
			continue
		}

		return fmt.Errorf("UART %s drain failed: %w", operation, err)
	}

	return fmt.Errorf("UART %s drain failed after %d retries", operation, maxRetries)
}

// Ensure Transport implements pn532.Transport
var _ pn532.Transport = (*Transport)(nil)
