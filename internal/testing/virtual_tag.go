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

// Package testing provides simulated NTAG213 tags and PN532 transports for
// tests.
package testing

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/ZaparooProject/go-ntag213/internal/frame"
)

// NTAG213 geometry
const (
	NTAG213Pages     = 45
	PageSize         = 4
	UserStartPage    = 4
	UserEndPage      = 39
	UserMemorySize   = (UserEndPage - UserStartPage + 1) * PageSize
	windowPages      = 4
	windowDataLength = windowPages * PageSize
)

// Errors returned by VirtualNTAG213 reads
var (
	ErrTagNotPresent = errors.New("tag not present")
	ErrPageRange     = errors.New("page out of range")
)

// VirtualNTAG213 simulates the memory of an NTAG213 tag for testing. Reads
// behave like the READ command: four pages starting at the requested one,
// rolling over past the last page, followed by the CRC_A of the data.
type VirtualNTAG213 struct {
	failPages     map[uint8]error
	endErr        error
	UID           []byte
	reads         []uint8
	Memory        [NTAG213Pages][PageSize]byte
	failAfter     int
	sessionsEnded int
	mu            sync.Mutex
	Present       bool
	selectFails   bool
	selected      bool
}

// NewVirtualNTAG213 creates a virtual NTAG213 with a factory layout and the
// text "Hello World" stored as its NDEF message.
func NewVirtualNTAG213(uid []byte) *VirtualNTAG213 {
	if uid == nil {
		uid = TestNTAG213UID
	}

	tag := &VirtualNTAG213{
		UID:       uid,
		Present:   true,
		failPages: make(map[uint8]error),
		failAfter: -1,
	}
	tag.initMemory()

	// Ignore error since this is test setup with known good data
	_ = tag.SetNDEFText("Hello World", "en")

	return tag
}

// initMemory writes the UID, lock bytes and Capability Container.
func (v *VirtualNTAG213) initMemory() {
	uid := make([]byte, 7)
	copy(uid, v.UID)

	// Cascade tag 0x88 and check bytes per ISO/IEC 14443-3
	bcc0 := 0x88 ^ uid[0] ^ uid[1] ^ uid[2]
	bcc1 := uid[3] ^ uid[4] ^ uid[5] ^ uid[6]
	v.Memory[0] = [PageSize]byte{uid[0], uid[1], uid[2], bcc0}
	v.Memory[1] = [PageSize]byte{uid[3], uid[4], uid[5], uid[6]}
	v.Memory[2] = [PageSize]byte{bcc1, 0x48, 0x00, 0x00}
	// NDEF magic, version 1.0, 144 bytes of data area, read/write
	v.Memory[3] = [PageSize]byte{0xE1, 0x10, 0x12, 0x00}
	// Dynamic lock, CFG0, CFG1, PWD, PACK
	v.Memory[40] = [PageSize]byte{0x00, 0x00, 0x00, 0xBD}
	v.Memory[41] = [PageSize]byte{0x04, 0x00, 0x00, 0xFF}
	v.Memory[42] = [PageSize]byte{0x00, 0x05, 0x00, 0x00}
	v.Memory[43] = [PageSize]byte{0xFF, 0xFF, 0xFF, 0xFF}
}

// GetUIDString returns the UID as a hex string
func (v *VirtualNTAG213) GetUIDString() string {
	return hex.EncodeToString(v.UID)
}

// SetUserData writes data to user memory starting at page 4 and zeroes the
// rest of the user area.
func (v *VirtualNTAG213) SetUserData(data []byte) error {
	if len(data) > UserMemorySize {
		return fmt.Errorf("user data of %d bytes exceeds %d", len(data), UserMemorySize)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	for page := UserStartPage; page <= UserEndPage; page++ {
		v.Memory[page] = [PageSize]byte{}
	}
	for i, b := range data {
		v.Memory[UserStartPage+i/PageSize][i%PageSize] = b
	}
	return nil
}

// SetNDEFText stores a single short Text record followed by a terminator.
func (v *VirtualNTAG213) SetNDEFText(text, language string) error {
	stream := TLV(0x03, TextRecord(text, language))
	stream = append(stream, 0xFE)
	return v.SetUserData(stream)
}

// UserData returns a copy of the user memory area.
func (v *VirtualNTAG213) UserData() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()

	data := make([]byte, 0, UserMemorySize)
	for page := UserStartPage; page <= UserEndPage; page++ {
		data = append(data, v.Memory[page][:]...)
	}
	return data
}

// FailReadAt makes every read starting at page return err.
func (v *VirtualNTAG213) FailReadAt(page uint8, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failPages[page] = err
}

// FailAfterReads makes every read after the first n succeed-or-fail reads
// return an error. A negative n disables the limit.
func (v *VirtualNTAG213) FailAfterReads(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failAfter = n
}

// SetSelectFails makes SelectTag report failure, as after a collision.
func (v *VirtualNTAG213) SetSelectFails(fail bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selectFails = fail
}

// SetEndSessionError makes EndSession return err.
func (v *VirtualNTAG213) SetEndSessionError(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.endErr = err
}

// ReadWindow returns pages page..page+3 plus their CRC_A, like the READ
// command.
func (v *VirtualNTAG213) ReadWindow(ctx context.Context, page uint8) ([windowDataLength + 2]byte, error) {
	var window [windowDataLength + 2]byte

	if err := ctx.Err(); err != nil {
		return window, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	attempt := len(v.reads)
	v.reads = append(v.reads, page)

	if !v.Present {
		return window, ErrTagNotPresent
	}
	if v.failAfter >= 0 && attempt >= v.failAfter {
		return window, fmt.Errorf("injected failure after %d reads", v.failAfter)
	}
	if err, ok := v.failPages[page]; ok {
		return window, err
	}
	if int(page) >= NTAG213Pages {
		return window, fmt.Errorf("%w: %d", ErrPageRange, page)
	}

	for i := range windowPages {
		copy(window[i*PageSize:], v.Memory[(int(page)+i)%NTAG213Pages][:])
	}
	crc := frame.CRCA(window[:windowDataLength])
	window[windowDataLength] = byte(crc)
	window[windowDataLength+1] = byte(crc >> 8)

	return window, nil
}

// Reads returns the pages of every read attempt, in order.
func (v *VirtualNTAG213) Reads() []uint8 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]uint8(nil), v.reads...)
}

// ReadCount returns how many reads were attempted.
func (v *VirtualNTAG213) ReadCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.reads)
}

// IsTagPresent reports whether the tag is in the field.
func (v *VirtualNTAG213) IsTagPresent(_ context.Context) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.Present
}

// SelectTag selects the tag unless it is absent or selection was set to fail.
func (v *VirtualNTAG213) SelectTag(_ context.Context) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selected = v.Present && !v.selectFails
	return v.selected
}

// EndSession halts the tag.
func (v *VirtualNTAG213) EndSession(_ context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selected = false
	v.sessionsEnded++
	return v.endErr
}

// Selected reports whether the tag is currently selected.
func (v *VirtualNTAG213) Selected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selected
}

// SessionsEnded returns how many times EndSession was called.
func (v *VirtualNTAG213) SessionsEnded() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sessionsEnded
}
