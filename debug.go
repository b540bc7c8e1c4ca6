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
	"fmt"
	"os"
	"time"

	"github.com/ZaparooProject/go-ntag213/internal/syncutil"
	"github.com/rs/zerolog"
)

var (
	logMu syncutil.RWMutex

	// debugEnabled controls whether debug lines reach the logger.
	// The session log file, when open, receives them regardless.
	debugEnabled = false

	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}).
		With().Timestamp().Str("component", "ntag213").Logger()
)

func init() {
	if os.Getenv("NTAG213_DEBUG") != "" || os.Getenv("DEBUG") != "" {
		debugEnabled = true
	}
}

// Debugf logs a debug message.
// Always writes to session log file (if initialized) with timestamp.
// Only reaches the logger when debug mode is enabled.
func Debugf(format string, args ...any) {
	logDebug(fmt.Sprintf(format, args...))
}

// Debugln logs a debug message built like fmt.Sprintln, without the newline.
func Debugln(args ...any) {
	message := fmt.Sprintln(args...)
	logDebug(message[:len(message)-1])
}

func logDebug(message string) {
	logMu.RLock()
	defer logMu.RUnlock()

	if sessionLogWriter != nil {
		timestamp := time.Now().Format("15:04:05.000")
		_, _ = fmt.Fprintf(sessionLogWriter, "%s DEBUG: %s\n", timestamp, message)
	}

	if debugEnabled {
		logger.Debug().Msg(message)
	}
}

// SetDebugEnabled allows programmatic control of debug logging
func SetDebugEnabled(enabled bool) {
	logMu.Lock()
	defer logMu.Unlock()
	debugEnabled = enabled
}

// SetLogger replaces the logger debug messages are sent to.
func SetLogger(l zerolog.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	logger = l
}
