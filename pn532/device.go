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

// Package pn532 drives an NXP PN532 NFC controller as an NTAG213 page
// source.
package pn532

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	ntag213 "github.com/ZaparooProject/go-ntag213"
	"github.com/ZaparooProject/go-ntag213/internal/frame"
	"github.com/ZaparooProject/go-ntag213/internal/syncutil"
)

// PN532 command codes
const (
	cmdGetFirmwareVersion  = 0x02
	cmdSamConfiguration    = 0x14
	cmdRFConfiguration     = 0x32
	cmdInDataExchange      = 0x40
	cmdInListPassiveTarget = 0x4A
	cmdInRelease           = 0x52
	cmdInSelect            = 0x54
)

const (
	// ntagRead is the NTAG21x READ command: four pages per call
	ntagRead = 0x30

	// baudRate106TypeA selects ISO/IEC 14443 Type A at 106 kbps
	baudRate106TypeA = 0x00

	// rfConfigMaxRetries is the RFConfiguration item for MxRtyATR,
	// MxRtyPSL and MxRtyPassiveActivation
	rfConfigMaxRetries = 0x05

	// DefaultPassiveActivationRetries bounds how long InListPassiveTarget
	// waits for a tag. Each retry is roughly 100ms, so 0x0A returns after
	// about one second with an empty field.
	DefaultPassiveActivationRetries byte = 0x0A
)

// Device drives an NTAG213 through a PN532 reader. It implements
// ntag213.PageSource and ntag213.TagSession.
//
// Every command holds the device lock, so several goroutines sharing one
// reader never interleave frames on the bus.
type Device struct {
	transport      Transport
	uid            []byte
	mu             syncutil.Mutex
	target         byte
	passiveRetries byte
}

var (
	_ ntag213.PageSource = (*Device)(nil)
	_ ntag213.TagSession = (*Device)(nil)
)

// Option is a functional option for configuring a Device
type Option func(*Device) error

// WithPassiveActivationRetries sets the PN532 retry count used while
// waiting for a tag (0xFF waits forever).
func WithPassiveActivationRetries(retries byte) Option {
	return func(d *Device) error {
		d.passiveRetries = retries
		return nil
	}
}

// New creates a Device over transport. Call Init before use.
func New(transport Transport, opts ...Option) (*Device, error) {
	if transport == nil {
		return nil, errors.New("transport cannot be nil")
	}

	d := &Device{
		transport:      transport,
		passiveRetries: DefaultPassiveActivationRetries,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Init configures the SAM for normal mode and sets the passive activation
// retry count.
func (d *Device) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Normal mode, 1 second virtual card timeout, IRQ pin used
	res, err := d.transport.SendCommand(ctx, cmdSamConfiguration, []byte{0x01, 0x14, 0x01})
	if err != nil {
		return fmt.Errorf("SAM configuration failed: %w", err)
	}
	if len(res) < 1 || res[0] != cmdSamConfiguration+1 {
		return fmt.Errorf("%w: SAM configuration response % X", ErrInvalidResponse, res)
	}

	res, err = d.transport.SendCommand(ctx, cmdRFConfiguration,
		[]byte{rfConfigMaxRetries, 0xFF, 0x01, d.passiveRetries})
	if err != nil {
		return fmt.Errorf("RF configuration failed: %w", err)
	}
	if len(res) < 1 || res[0] != cmdRFConfiguration+1 {
		return fmt.Errorf("%w: RF configuration response % X", ErrInvalidResponse, res)
	}

	ntag213.Debugf("PN532 initialized, passive activation retries 0x%02X", d.passiveRetries)
	return nil
}

// FirmwareVersion contains PN532 firmware version information
type FirmwareVersion struct {
	Version          string
	IC               byte
	SupportIso14443a bool
	SupportIso14443b bool
	SupportIso18092  bool
}

// GetFirmwareVersion returns the PN532 firmware version
func (d *Device) GetFirmwareVersion(ctx context.Context) (*FirmwareVersion, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	res, err := d.transport.SendCommand(ctx, cmdGetFirmwareVersion, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to send GetFirmwareVersion command: %w", err)
	}
	ntag213.Debugf("GetFirmwareVersion response: % X", res)

	if len(res) < 5 || res[0] != cmdGetFirmwareVersion+1 {
		return nil, fmt.Errorf("%w: firmware version response % X", ErrInvalidResponse, res)
	}
	return &FirmwareVersion{
		IC:               res[1],
		Version:          fmt.Sprintf("%d.%d", res[2], res[3]),
		SupportIso14443a: res[4]&0x01 == 0x01,
		SupportIso14443b: res[4]&0x02 == 0x02,
		SupportIso18092:  res[4]&0x04 == 0x04,
	}, nil
}

// IsTagPresent lists one Type A target. It returns false when the field is
// empty or the command fails.
func (d *Device) IsTagPresent(ctx context.Context) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	target, uid, err := d.listPassiveTarget(ctx)
	if err != nil {
		ntag213.Debugf("no tag present: %v", err)
		d.target, d.uid = 0, nil
		return false
	}

	d.target, d.uid = target, uid
	ntag213.Debugf("tag %s listed as target %d", hex.EncodeToString(uid), target)
	return true
}

// listPassiveTarget sends InListPassiveTarget for one 106 kbps Type A
// target and parses [0x4B, NbTg, Tg, SENS_RES(2), SEL_RES, NFCIDLength, NFCID...].
func (d *Device) listPassiveTarget(ctx context.Context) (target byte, uid []byte, err error) {
	res, err := d.transport.SendCommand(ctx, cmdInListPassiveTarget, []byte{0x01, baudRate106TypeA})
	if err != nil {
		return 0, nil, fmt.Errorf("InListPassiveTarget failed: %w", err)
	}
	if len(res) < 2 || res[0] != cmdInListPassiveTarget+1 {
		return 0, nil, fmt.Errorf("%w: InListPassiveTarget response % X", ErrInvalidResponse, res)
	}
	if res[1] == 0 {
		return 0, nil, ErrNoTargetListed
	}
	if len(res) < 7 {
		return 0, nil, fmt.Errorf("%w: target data truncated: % X", ErrInvalidResponse, res)
	}

	sak := res[5]
	uidLen := int(res[6])
	if len(res) < 7+uidLen {
		return 0, nil, fmt.Errorf("%w: UID truncated: % X", ErrInvalidResponse, res)
	}
	if sak != 0x00 {
		ntag213.Debugf("target SAK 0x%02X is not an NTAG21x", sak)
	}
	return res[2], append([]byte(nil), res[7:7+uidLen]...), nil
}

// SelectTag selects the target found by IsTagPresent.
func (d *Device) SelectTag(ctx context.Context) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.target == 0 {
		ntag213.Debugln("select requested without a listed target")
		return false
	}
	if err := d.statusCommand(ctx, cmdInSelect, "InSelect"); err != nil {
		ntag213.Debugf("selecting target %d failed: %v", d.target, err)
		return false
	}
	return true
}

// EndSession releases the target so the next IsTagPresent starts fresh.
func (d *Device) EndSession(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.target == 0 {
		return nil
	}
	err := d.statusCommand(ctx, cmdInRelease, "InRelease")
	d.target, d.uid = 0, nil
	return err
}

// statusCommand sends a command whose only argument is the target number
// and whose response is [cmd+1, status].
func (d *Device) statusCommand(ctx context.Context, cmd byte, name string) error {
	res, err := d.transport.SendCommand(ctx, cmd, []byte{d.target})
	if err != nil {
		return fmt.Errorf("%s command failed: %w", name, err)
	}
	if len(res) != 2 || res[0] != cmd+1 {
		return fmt.Errorf("%w: %s response % X", ErrInvalidResponse, name, res)
	}
	if res[1]&0x3F != 0x00 {
		return NewPN532Error(res[1], name, fmt.Sprintf("target %d", d.target))
	}
	return nil
}

// UID returns the UID of the current target, nil when none is listed.
func (d *Device) UID() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.uid...)
}

// ReadPage issues an NTAG READ for four pages starting at page. The PN532
// verifies and strips the CRC_A, so it is recomputed to fill the last two
// bytes of the window.
func (d *Device) ReadPage(ctx context.Context, page uint8) (ntag213.Window, error) {
	var w ntag213.Window
	if page > ntag213.MaxPage {
		return w, fmt.Errorf("%w: %d", ErrInvalidPage, page)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	target := d.target
	if target == 0 {
		target = 1
	}

	res, err := d.transport.SendCommand(ctx, cmdInDataExchange, []byte{target, ntagRead, page})
	if err != nil {
		return w, fmt.Errorf("InDataExchange failed: %w", err)
	}
	if len(res) < 2 || res[0] != cmdInDataExchange+1 {
		return w, fmt.Errorf("%w: InDataExchange response % X", ErrInvalidResponse, res)
	}
	if res[1]&0x3F != 0x00 {
		return w, NewPN532Error(res[1], "InDataExchange", fmt.Sprintf("READ page %d", page))
	}

	data := res[2:]
	if len(data) == 1 {
		return w, fmt.Errorf("%w: 0x%X reading page %d", ErrTagNAK, data[0], page)
	}
	if len(data) < ntag213.WindowDataSize {
		return w, fmt.Errorf("%w: READ returned %d bytes", ErrInvalidResponse, len(data))
	}

	copy(w[:], data[:ntag213.WindowDataSize])
	copy(w[ntag213.WindowDataSize:], frame.AppendCRCA(nil, data[:ntag213.WindowDataSize]))
	return w, nil
}

// Close closes the underlying transport
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}
