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

// Package detection finds serial ports with a PN532 attached.
package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.bug.st/serial/enumerator"
)

// ErrNoDevicesFound indicates no PN532 devices were detected
var ErrNoDevicesFound = errors.New("no PN532 devices found")

// DefaultProbeTimeout bounds a single probe
const DefaultProbeTimeout = 2 * time.Second

// knownPN532 lists USB serial bridges common on PN532 boards
var knownPN532 = []string{
	"067B:2303", // Prolific PL2303
	"0403:6001", // FTDI FT232
	"10C4:EA60", // Silicon Labs CP210x
	"1A86:7523", // QinHeng CH340
}

// Port is a serial port candidate
type Port struct {
	Path         string
	VIDPID       string
	Product      string
	SerialNumber string
	IsUSB        bool
}

func (p Port) String() string {
	if p.VIDPID == "" {
		return p.Path
	}
	return fmt.Sprintf("%s (%s)", p.Path, p.VIDPID)
}

// LikelyPN532 reports whether the port's descriptors suggest a PN532 board.
func (p Port) LikelyPN532() bool {
	upperVIDPID := strings.ToUpper(p.VIDPID)
	for _, known := range knownPN532 {
		if upperVIDPID == known {
			return true
		}
	}

	lowerProduct := strings.ToLower(p.Product)
	for _, keyword := range []string{"pn532", "nfc", "rfid", "13.56"} {
		if strings.Contains(lowerProduct, keyword) {
			return true
		}
	}
	return false
}

// ProbeFunc returns true if a PN532 answers on path.
type ProbeFunc func(ctx context.Context, path string) bool

// Detector lists serial ports and probes them for a PN532.
type Detector struct {
	// List enumerates candidate ports. Defaults to ListSerialPorts.
	List func() ([]Port, error)
	// Probe verifies a port. Required.
	Probe ProbeFunc
	// Blocklist holds VID:PID pairs never probed.
	Blocklist []string
	// IgnorePaths holds port paths never probed.
	IgnorePaths []string
	// ProbeTimeout bounds each probe. Defaults to DefaultProbeTimeout.
	ProbeTimeout time.Duration
}

// ListSerialPorts returns the serial ports of the system with their USB
// descriptors.
func ListSerialPorts() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	ports := make([]Port, 0, len(details))
	for _, d := range details {
		port := Port{
			Path:         d.Name,
			Product:      d.Product,
			SerialNumber: d.SerialNumber,
			IsUSB:        d.IsUSB,
		}
		if d.IsUSB && d.VID != "" && d.PID != "" {
			port.VIDPID = strings.ToUpper(d.VID + ":" + d.PID)
		}
		ports = append(ports, port)
	}
	return ports, nil
}

// Detect probes candidate ports, likely PN532 boards first, and returns
// every port that answered.
func (d *Detector) Detect(ctx context.Context) ([]Port, error) {
	if d.Probe == nil {
		return nil, errors.New("detector has no probe")
	}

	list := d.List
	if list == nil {
		list = ListSerialPorts
	}
	ports, err := list()
	if err != nil {
		return nil, err
	}

	candidates := d.filter(ports)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].LikelyPN532() && !candidates[j].LikelyPN532()
	})

	timeout := d.ProbeTimeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	var found []Port
	for _, port := range candidates {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		if d.probe(ctx, port.Path, timeout) {
			found = append(found, port)
		}
	}

	if len(found) == 0 {
		return nil, ErrNoDevicesFound
	}
	return found, nil
}

func (d *Detector) probe(ctx context.Context, path string, timeout time.Duration) bool {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Probe(probeCtx, path)
}

// filter removes blocked and ignored ports
func (d *Detector) filter(ports []Port) []Port {
	var filtered []Port
	for _, port := range ports {
		if port.VIDPID != "" && IsBlocked(port.VIDPID, d.Blocklist) {
			continue
		}
		if IsPathIgnored(port.Path, d.IgnorePaths) {
			continue
		}
		filtered = append(filtered, port)
	}
	return filtered
}

// IsBlocked checks if a USB device is in the blocklist.
func IsBlocked(vidpid string, blocklist []string) bool {
	// Normalize to uppercase for comparison
	vidpid = strings.ToUpper(strings.TrimSpace(vidpid))

	for _, blocked := range blocklist {
		if vidpid == strings.ToUpper(strings.TrimSpace(blocked)) {
			return true
		}
	}
	return false
}

// IsPathIgnored reports whether path is in ignorePaths. Paths compare
// case-insensitively so COM ports match on Windows.
func IsPathIgnored(path string, ignorePaths []string) bool {
	for _, ignored := range ignorePaths {
		if strings.EqualFold(strings.TrimSpace(ignored), path) {
			return true
		}
	}
	return false
}
