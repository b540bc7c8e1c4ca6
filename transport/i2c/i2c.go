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

// Package i2c provides a PN532 transport over an I2C bus using periph.io.
package i2c

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ntag213 "github.com/ZaparooProject/go-ntag213"
	"github.com/ZaparooProject/go-ntag213/internal/frame"
	"github.com/ZaparooProject/go-ntag213/internal/syncutil"
	"github.com/ZaparooProject/go-ntag213/pn532"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// PN532 7-bit I2C address (datasheet says 0x48, which is the 8-bit write
	// address including the R/W bit; periph.io and the Linux kernel expect the
	// 7-bit form: 0x48 >> 1 = 0x24).
	pn532Addr = 0x24

	pn532Ready = 0x01

	// Max clock frequency (400 kHz).
	maxClockFreq = 400 * physic.KiloHertz

	// DefaultTimeout bounds the wait for a response frame
	DefaultTimeout = 1500 * time.Millisecond

	ackTimeout   = 100 * time.Millisecond
	maxNackTries = 3

	// Largest normal information frame: preamble, start code, LEN, LCS,
	// 255 data bytes, DCS and postamble
	maxFrameSize = 3 + 2 + frame.MaxDataLength + 2
)

var errNotReady = errors.New("PN532 not ready")

// Transport implements pn532.Transport for I2C communication
type Transport struct {
	dev     *i2c.Dev
	bus     i2c.BusCloser // Held so Close() can release the OS file descriptor
	busName string
	mu      syncutil.Mutex
	timeout time.Duration
}

// parseI2CPath extracts the bus path from "/dev/i2c-1:0x24" or "/dev/i2c-1".
func parseI2CPath(path string) string {
	bus, _, _ := strings.Cut(path, ":")
	return bus
}

// New opens the named I2C bus and addresses the PN532 on it.
func New(busName string) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(parseI2CPath(busName))
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}

	_ = bus.SetSpeed(maxClockFreq) // Ignore error, continue with default speed

	return NewWithBus(bus, busName), nil
}

// NewWithBus creates a transport on an already opened bus.
func NewWithBus(bus i2c.BusCloser, busName string) *Transport {
	return &Transport{
		dev:     &i2c.Dev{Addr: pn532Addr, Bus: bus},
		bus:     bus,
		busName: busName,
		timeout: DefaultTimeout,
	}
}

// SetTimeout sets how long to wait for a response frame after the ACK
func (t *Transport) SetTimeout(timeout time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
}

// sleepCtx performs a context-aware sleep. Returns ctx.Err() if context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
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
		return nil, pn532.NewTransportError("sendFrame", t.busName, err)
	}
	if err := t.write("sendFrame", frm); err != nil {
		return nil, err
	}
	ntag213.Debugf("I2C TX: % X", frm)

	if err := t.waitAck(ctx); err != nil {
		return nil, err
	}

	res, err := t.receiveFrame(ctx)
	if err != nil {
		return nil, err
	}
	ntag213.Debugf("I2C RX: % X", res)

	if err := t.write("sendAck", frame.AckFrame); err != nil {
		return nil, err
	}
	return res, nil
}

// Close releases the I2C bus.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bus != nil {
		if err := t.bus.Close(); err != nil {
			return fmt.Errorf("failed to close I2C bus: %w", err)
		}
		t.bus = nil
		t.dev = nil
	}
	return nil
}

func (t *Transport) write(op string, data []byte) error {
	if t.dev == nil {
		return pn532.NewTransportError(op, t.busName, fmt.Errorf("%w: bus closed", pn532.ErrTransportWrite))
	}
	if err := t.dev.Tx(data, nil); err != nil {
		return pn532.NewTransportError(op, t.busName, fmt.Errorf("%w: %w", pn532.ErrTransportWrite, err))
	}
	return nil
}

// readI2C reads from the PN532, stripping the status byte that the hardware
// prepends to every I2C read transaction (see datasheet section 6.2.4).
func (t *Transport) readI2C(buf []byte) error {
	tmp := make([]byte, 1+len(buf))
	if err := t.dev.Tx(nil, tmp); err != nil {
		return fmt.Errorf("%w: %w", pn532.ErrTransportRead, err)
	}
	if tmp[0] != pn532Ready {
		return errNotReady
	}
	copy(buf, tmp[1:])
	return nil
}

// waitReady polls the status byte until the PN532 has data or the
// deadline passes.
func (t *Transport) waitReady(ctx context.Context, deadline time.Time) error {
	status := make([]byte, 1)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.dev.Tx(nil, status); err != nil {
			return fmt.Errorf("I2C ready check failed: %w", err)
		}
		if status[0] == pn532Ready {
			return nil
		}
		if time.Now().After(deadline) {
			return errNotReady
		}
		if err := sleepCtx(ctx, time.Millisecond); err != nil {
			return err
		}
	}
}

// waitAck waits for an ACK frame from the PN532
func (t *Transport) waitAck(ctx context.Context) error {
	deadline := t.deadline(ctx, ackTimeout)

	if err := t.waitReady(ctx, deadline); err != nil {
		if errors.Is(err, errNotReady) {
			return pn532.NewTransportError("waitAck", t.busName, pn532.ErrNoACK)
		}
		return pn532.NewTransportError("waitAck", t.busName, err)
	}

	ack := make([]byte, len(frame.AckFrame))
	if err := t.readI2C(ack); err != nil {
		return pn532.NewTransportError("waitAck", t.busName, err)
	}
	if !bytes.Equal(ack, frame.AckFrame) {
		ntag213.Debugf("I2C expected ACK, got % X", ack)
		return pn532.NewTransportError("waitAck", t.busName, pn532.ErrNoACK)
	}
	return nil
}

// receiveFrame reads a response frame, asking for a retransmission with a
// NACK when its checksums do not match.
func (t *Transport) receiveFrame(ctx context.Context) ([]byte, error) {
	deadline := t.deadline(ctx, t.timeout)

	for tries := 0; tries < maxNackTries; tries++ {
		if err := t.waitReady(ctx, deadline); err != nil {
			if errors.Is(err, errNotReady) {
				return nil, pn532.NewTransportError("receiveFrame", t.busName, pn532.ErrTransportTimeout)
			}
			return nil, pn532.NewTransportError("receiveFrame", t.busName, err)
		}

		// Every read transaction restarts at the first byte of the output
		// buffer, so the whole frame is read at once.
		buf := make([]byte, maxFrameSize)
		if err := t.readI2C(buf); err != nil {
			return nil, pn532.NewTransportError("receiveFrame", t.busName, err)
		}

		data, _, err := frame.Parse(buf)
		switch {
		case err == nil:
			return data, nil
		case errors.Is(err, frame.ErrChecksumMismatch), errors.Is(err, frame.ErrLengthChecksum):
			ntag213.Debugf("I2C frame corrupted (attempt %d): %v", tries+1, err)
			if err := t.write("sendNack", frame.NackFrame); err != nil {
				return nil, err
			}
		case errors.Is(err, frame.ErrApplicationError):
			return nil, pn532.NewTransportError("receiveFrame", t.busName,
				fmt.Errorf("%w: %w", pn532.ErrInvalidResponse, err))
		default:
			return nil, pn532.NewTransportError("receiveFrame", t.busName,
				fmt.Errorf("%w: %w", pn532.ErrFrameCorrupted, err))
		}
	}

	return nil, pn532.NewTransportError("receiveFrame", t.busName, pn532.ErrFrameCorrupted)
}

// deadline returns the earlier of now+d and the context deadline
func (*Transport) deadline(ctx context.Context, d time.Duration) time.Time {
	deadline := time.Now().Add(d)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		return dl
	}
	return deadline
}

// Ensure Transport implements pn532.Transport
var _ pn532.Transport = (*Transport)(nil)
