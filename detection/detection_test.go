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

package detection

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPort_LikelyPN532(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		port Port
		want bool
	}{
		{name: "CH340", port: Port{VIDPID: "1a86:7523"}, want: true},
		{name: "FTDI", port: Port{VIDPID: "0403:6001"}, want: true},
		{name: "product keyword", port: Port{Product: "PN532 NFC HAT"}, want: true},
		{name: "unknown bridge", port: Port{VIDPID: "2341:0043", Product: "Arduino Uno"}, want: false},
		{name: "builtin", port: Port{Path: "/dev/ttyS0"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.port.LikelyPN532())
		})
	}
}

func TestIsBlocked(t *testing.T) {
	t.Parallel()

	blocklist := []string{" 1234:abcd "}
	assert.True(t, IsBlocked("1234:ABCD", blocklist))
	assert.False(t, IsBlocked("1234:ABCE", blocklist))
	assert.False(t, IsBlocked("1234:ABCD", nil))
}

func TestIsPathIgnored(t *testing.T) {
	t.Parallel()

	assert.True(t, IsPathIgnored("COM3", []string{"com3"}))
	assert.True(t, IsPathIgnored("/dev/ttyUSB0", []string{"/dev/ttyUSB0"}))
	assert.False(t, IsPathIgnored("/dev/ttyUSB1", []string{"/dev/ttyUSB0"}))
}

func TestDetector_Detect(t *testing.T) {
	t.Parallel()

	ports := []Port{
		{Path: "/dev/ttyS0"},
		{Path: "/dev/ttyUSB0", VIDPID: "1A86:7523", IsUSB: true},
		{Path: "/dev/ttyUSB1", VIDPID: "DEAD:BEEF", IsUSB: true},
		{Path: "/dev/ttyACM0", VIDPID: "2341:0043", IsUSB: true},
	}

	var (
		mu     sync.Mutex
		probed []string
	)
	d := &Detector{
		List:        func() ([]Port, error) { return ports, nil },
		Blocklist:   []string{"dead:beef"},
		IgnorePaths: []string{"/dev/ttyACM0"},
		Probe: func(ctx context.Context, path string) bool {
			mu.Lock()
			defer mu.Unlock()
			probed = append(probed, path)
			_, hasDeadline := ctx.Deadline()
			return hasDeadline && path != "/dev/ttyS0"
		},
	}

	found, err := d.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "/dev/ttyUSB0", found[0].Path)
	assert.Equal(t, "/dev/ttyUSB0 (1A86:7523)", found[0].String())

	// Likely boards are probed first, blocked and ignored ports never
	assert.Equal(t, []string{"/dev/ttyUSB0", "/dev/ttyS0"}, probed)
}

func TestDetector_NoDevices(t *testing.T) {
	t.Parallel()

	d := &Detector{
		List:  func() ([]Port, error) { return []Port{{Path: "/dev/ttyS0"}}, nil },
		Probe: func(context.Context, string) bool { return false },
	}

	_, err := d.Detect(context.Background())
	require.ErrorIs(t, err, ErrNoDevicesFound)
}

func TestDetector_Errors(t *testing.T) {
	t.Parallel()

	_, err := (&Detector{}).Detect(context.Background())
	require.Error(t, err)

	listErr := errors.New("enumeration failed")
	d := &Detector{
		List:  func() ([]Port, error) { return nil, listErr },
		Probe: func(context.Context, string) bool { return true },
	}
	_, err = d.Detect(context.Background())
	require.ErrorIs(t, err, listErr)
}

func TestDetector_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &Detector{
		List:  func() ([]Port, error) { return []Port{{Path: "/dev/ttyUSB0"}}, nil },
		Probe: func(context.Context, string) bool { return true },
	}
	_, err := d.Detect(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
