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
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ZaparooProject/go-ntag213/internal/frame"
	"go.bug.st/serial"
)

var errWirePortClosed = errors.New("port is closed")

// WirePort is a serial.Port that speaks the PN532 UART protocol on top of a
// SimulatorTransport. Host frames written to it are acknowledged and
// answered with response frames queued for reading.
type WirePort struct {
	sim          *SimulatorTransport
	tx           []byte
	lastResponse []byte
	rx           bytes.Buffer
	readTimeout  time.Duration
	dropAcks     int
	corrupt      int
	acks         int
	nacks        int
	wakeUps      int
	mu           sync.Mutex
	closed       bool
}

// NewWirePort creates a port answering from sim.
func NewWirePort(sim *SimulatorTransport) *WirePort {
	return &WirePort{
		sim:         sim,
		readTimeout: time.Millisecond,
	}
}

// DropAcks makes the next n commands go unacknowledged and unanswered.
func (p *WirePort) DropAcks(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dropAcks = n
}

// CorruptResponses damages the data checksum of the next n response frames.
func (p *WirePort) CorruptResponses(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.corrupt = n
}

// AcksReceived returns how many ACK frames the host sent.
func (p *WirePort) AcksReceived() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acks
}

// NacksReceived returns how many NACK frames the host sent.
func (p *WirePort) NacksReceived() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nacks
}

// WakeUps returns how many wake-up preambles the host sent.
func (p *WirePort) WakeUps() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wakeUps
}

// Closed reports whether Close was called.
func (p *WirePort) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *WirePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, errWirePortClosed
	}
	if len(b) > 0 && b[0] == 0x55 {
		p.wakeUps++
	}
	p.tx = append(p.tx, b...)
	p.process()
	return len(b), nil
}

// process consumes every complete host frame buffered in tx.
func (p *WirePort) process() {
	for {
		idx := bytes.Index(p.tx, []byte{frame.StartCode1, frame.StartCode2})
		if idx < 0 || len(p.tx) < idx+4 {
			return
		}

		length, lcs := p.tx[idx+2], p.tx[idx+3]
		switch {
		case length == 0x00 && lcs == 0xFF:
			p.acks++
			p.tx = p.tx[min(len(p.tx), idx+5):]
			continue
		case length == 0xFF && lcs == 0x00:
			p.nacks++
			p.send(p.lastResponse)
			p.tx = p.tx[min(len(p.tx), idx+5):]
			continue
		}

		end := idx + 4 + int(length) + 1
		if len(p.tx) < end {
			return
		}
		body := p.tx[idx+4 : idx+4+int(length)]
		p.tx = p.tx[min(len(p.tx), end+1):]
		if len(body) < 2 || body[0] != frame.HostToPn532 {
			continue
		}
		p.answer(body[1], append([]byte(nil), body[2:]...))
	}
}

func (p *WirePort) answer(cmd byte, args []byte) {
	if p.dropAcks > 0 {
		p.dropAcks--
		return
	}
	p.rx.Write(frame.AckFrame)

	wire, err := p.sim.Exchange(context.Background(), cmd, args)
	if err != nil {
		// The PN532 stays silent until the host gives up
		return
	}
	p.lastResponse = wire
	p.send(wire)
}

// send queues a response frame, damaged if corruption is pending.
func (p *WirePort) send(wire []byte) {
	if p.corrupt > 0 && len(wire) >= 2 {
		p.corrupt--
		bad := append([]byte(nil), wire...)
		bad[len(bad)-2] ^= 0xFF
		p.rx.Write(bad)
		return
	}
	p.rx.Write(wire)
}

func (p *WirePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, errWirePortClosed
	}
	if p.rx.Len() > 0 {
		defer p.mu.Unlock()
		n, _ := p.rx.Read(b)
		return n, nil
	}
	timeout := p.readTimeout
	p.mu.Unlock()

	// Nothing pending: behave like a serial read timing out
	time.Sleep(timeout)
	return 0, nil
}

func (*WirePort) SetMode(_ *serial.Mode) error {
	return nil
}

func (*WirePort) Drain() error {
	return nil
}

func (p *WirePort) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rx.Reset()
	return nil
}

func (*WirePort) ResetOutputBuffer() error {
	return nil
}

func (*WirePort) SetDTR(_ bool) error {
	return nil
}

func (*WirePort) SetRTS(_ bool) error {
	return nil
}

func (*WirePort) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	return &serial.ModemStatusBits{}, nil
}

// SetReadTimeout is accepted but reads never block longer than a
// millisecond.
func (*WirePort) SetReadTimeout(_ time.Duration) error {
	return nil
}

func (p *WirePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (*WirePort) Break(_ time.Duration) error {
	return nil
}

var _ serial.Port = (*WirePort)(nil)
