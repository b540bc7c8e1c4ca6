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

// Command readtag reads the text message stored on NTAG213 tags presented
// to a PN532 reader.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	ntag213 "github.com/ZaparooProject/go-ntag213"
	"github.com/ZaparooProject/go-ntag213/detection"
	"github.com/ZaparooProject/go-ntag213/pn532"
	"github.com/ZaparooProject/go-ntag213/polling"
	"github.com/ZaparooProject/go-ntag213/transport/i2c"
	"github.com/ZaparooProject/go-ntag213/transport/uart"
)

type config struct {
	devicePath string
	logDir     string
	policy     ntag213.TextPolicy
	interval   time.Duration
	debug      bool
	once       bool
	dump       bool
	inspect    bool
	retry      bool
}

// Package-level flag variables
var (
	flagDevicePath string
	flagLogDir     string
	flagPolicy     string
	flagInterval   time.Duration
	flagDebug      bool
	flagOnce       bool
	flagDump       bool
	flagInspect    bool
	flagRetry      bool
)

func init() {
	flag.StringVar(&flagDevicePath, "device", "", "Serial port or I2C bus of the PN532 (auto-detect serial ports if empty)")
	flag.StringVar(&flagLogDir, "log", "", "Directory for a session debug log")
	flag.StringVar(&flagPolicy, "policy", "permissive", "Handling of non-printable text bytes: permissive or strict")
	flag.DurationVar(&flagInterval, "interval", 250*time.Millisecond, "Delay between tag polls")
	flag.BoolVar(&flagDebug, "debug", false, "Enable debug output")
	flag.BoolVar(&flagOnce, "once", false, "Exit after the first tag is read")
	flag.BoolVar(&flagDump, "dump", false, "Dump all pages of the next tag and exit")
	flag.BoolVar(&flagInspect, "inspect", false, "Describe the TLV blocks of the next tag and exit")
	flag.BoolVar(&flagRetry, "retry", false, "Retry page reads that fail with transient errors")
}

func parseConfig() (*config, error) {
	policy, err := ntag213.ParseTextPolicy(flagPolicy)
	if err != nil {
		return nil, err
	}
	if flagInterval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %v", flagInterval)
	}

	cfg := &config{
		devicePath: flagDevicePath,
		logDir:     flagLogDir,
		policy:     policy,
		interval:   flagInterval,
		debug:      flagDebug,
		once:       flagOnce,
		dump:       flagDump,
		inspect:    flagInspect,
		retry:      flagRetry,
	}

	// Enable debug output if --debug flag is set
	if cfg.debug {
		ntag213.SetDebugEnabled(true)
	}

	return cfg, nil
}

// newTransport creates a transport for a device path: I2C buses by name,
// anything else as a serial port.
func newTransport(path string) (pn532.Transport, error) {
	if path == "" {
		return nil, errors.New("empty device path")
	}

	if strings.Contains(strings.ToLower(path), "i2c") {
		transport, err := i2c.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create I2C transport for %s: %w", path, err)
		}
		return transport, nil
	}

	transport, err := uart.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create UART transport for %s: %w", path, err)
	}
	return transport, nil
}

// probeUART reports whether a PN532 answers GetFirmwareVersion on path.
func probeUART(ctx context.Context, path string) bool {
	transport, err := uart.New(path)
	if err != nil {
		return false
	}
	defer func() { _ = transport.Close() }()

	device, err := pn532.New(transport)
	if err != nil {
		return false
	}
	version, err := device.GetFirmwareVersion(ctx)
	return err == nil && version.IC == 0x32
}

// resolveDevicePath returns the configured path, or the first serial port
// with a PN532 attached.
func resolveDevicePath(ctx context.Context, cfg *config, detector *detection.Detector, out io.Writer) (string, error) {
	if cfg.devicePath != "" {
		return cfg.devicePath, nil
	}
	if cfg.debug {
		_, _ = fmt.Fprintln(out, "Auto-detecting PN532 devices...")
	}

	ports, err := detector.Detect(ctx)
	if err != nil {
		return "", fmt.Errorf("auto-detection failed: %w", err)
	}
	_, _ = fmt.Fprintf(out, "Using PN532 on %s\n", ports[0])
	return ports[0].Path, nil
}

func connectToDevice(ctx context.Context, transport pn532.Transport, out io.Writer, cfg *config) (*pn532.Device, error) {
	device, err := pn532.New(transport)
	if err != nil {
		return nil, fmt.Errorf("failed to create PN532 device: %w", err)
	}
	if err := device.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize PN532: %w", err)
	}

	// Show firmware version if debug enabled
	if cfg.debug {
		if version, versionErr := device.GetFirmwareVersion(ctx); versionErr == nil {
			_, _ = fmt.Fprintf(out, "PN532 Firmware: %s\n", version.Version)
		}
	}
	return device, nil
}

func pageSource(device *pn532.Device, cfg *config) ntag213.PageSource {
	if cfg.retry {
		return ntag213.NewRetryingPageSource(device, ntag213.DefaultRetryConfig())
	}
	return device
}

func printResult(out io.Writer, uid []byte, res ntag213.Result) {
	if res.OK() {
		_, _ = fmt.Fprintf(out, "Tag %X: %q\n", uid, res.Text)
		return
	}
	_, _ = fmt.Fprintf(out, "Tag %X: %q (%s: %v)\n", uid, res.Text, res.Outcome, res.Err)
}

// runReadMode polls for tags and prints each new message until ctx is
// cancelled, or after the first tag with -once.
func runReadMode(ctx context.Context, device *pn532.Device, out io.Writer, cfg *config) error {
	reader, err := ntag213.New(pageSource(device, cfg), ntag213.WithTextPolicy(cfg.policy))
	if err != nil {
		return fmt.Errorf("failed to create reader: %w", err)
	}

	pollConfig := polling.DefaultConfig()
	pollConfig.PollInterval = cfg.interval
	session := polling.NewSession(reader, device, pollConfig)

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	printTag := func(tag *polling.Tag) error {
		printResult(out, tag.UID, tag.Result)
		if cfg.once {
			cancel()
		}
		return nil
	}
	session.OnCardDetected = printTag
	session.OnCardChanged = printTag
	session.OnCardRemoved = func() {
		_, _ = fmt.Fprintln(out, "Tag removed")
	}

	if !cfg.once {
		_, _ = fmt.Fprintln(out, "Waiting for tags. Press Ctrl+C to stop...")
	}

	err = session.Start(sessionCtx)
	if cfg.once && ctx.Err() == nil {
		return nil
	}
	return err
}

func runDumpMode(ctx context.Context, device *pn532.Device, out io.Writer, cfg *config) error {
	dump, err := ntag213.DumpPagesIfPresent(ctx, pageSource(device, cfg), device, 0, ntag213.MaxPage)
	if dump != nil {
		_, _ = fmt.Fprint(out, dump)
	}
	if err != nil {
		return fmt.Errorf("dump failed: %w", err)
	}
	return nil
}

func runInspectMode(ctx context.Context, device *pn532.Device, out io.Writer, cfg *config) (err error) {
	if !device.IsTagPresent(ctx) || !device.SelectTag(ctx) {
		return ntag213.ErrNoTag
	}
	defer func() {
		if endErr := device.EndSession(ctx); endErr != nil && err == nil {
			err = fmt.Errorf("end session: %w", endErr)
		}
	}()

	report, inspectErr := ntag213.Inspect(ctx, pageSource(device, cfg))
	_, _ = fmt.Fprintf(out, "Tag %X\n%s", device.UID(), report)
	if inspectErr != nil {
		return fmt.Errorf("inspect failed: %w", inspectErr)
	}
	return nil
}

func run(ctx context.Context, cfg *config, out io.Writer) error {
	if cfg.logDir != "" {
		path, err := ntag213.InitSessionLog(cfg.logDir)
		if err != nil {
			return fmt.Errorf("failed to open session log: %w", err)
		}
		defer func() { _ = ntag213.CloseSessionLog() }()
		_, _ = fmt.Fprintf(out, "Session log: %s\n", path)
	}

	path, err := resolveDevicePath(ctx, cfg, &detection.Detector{Probe: probeUART}, out)
	if err != nil {
		return err
	}
	transport, err := newTransport(path)
	if err != nil {
		return err
	}
	device, err := connectToDevice(ctx, transport, out, cfg)
	if err != nil {
		_ = transport.Close()
		return err
	}
	defer func() {
		if err := device.Close(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to close device: %v\n", err)
		}
	}()

	return runMode(ctx, device, out, cfg)
}

func runMode(ctx context.Context, device *pn532.Device, out io.Writer, cfg *config) error {
	switch {
	case cfg.dump:
		return runDumpMode(ctx, device, out, cfg)
	case cfg.inspect:
		return runInspectMode(ctx, device, out, cfg)
	default:
		return runReadMode(ctx, device, out, cfg)
	}
}

func main() {
	flag.Parse()
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	cfg, err := parseConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		_, _ = fmt.Print("\nShutting down gracefully...\n")
		cancel()
	}()

	if err := run(ctx, cfg, os.Stdout); err != nil {
		if errors.Is(err, context.Canceled) {
			// User requested shutdown, exit cleanly
			return 0
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
