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
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cleanupSessionLog closes any session log a test left open.
func cleanupSessionLog(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		_ = CloseSessionLog()
	})
}

func TestInitSessionLog_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	cleanupSessionLog(t)

	path, err := InitSessionLog(dir)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "log file should exist")
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, path, GetSessionLogPath())

	matched, err := regexp.MatchString(`^ntag213_\d{8}_\d{6}\.log$`, filepath.Base(path))
	require.NoError(t, err)
	assert.True(t, matched, "unexpected log file name %s", path)
}

func TestInitSessionLog_WritesHeaderAndMessages(t *testing.T) {
	cleanupSessionLog(t)
	useDebugState(t, false, nil, zerolog.Nop())

	path, err := InitSessionLog(t.TempDir())
	require.NoError(t, err)

	Debugf("reading page %d", 4)
	require.NoError(t, CloseSessionLog())

	content, err := os.ReadFile(path) //nolint:gosec // path is from InitSessionLog
	require.NoError(t, err)

	text := string(content)
	assert.Contains(t, text, "=== NTAG213 Debug Session Log ===")
	assert.Contains(t, text, "Started:")
	assert.Contains(t, text, "PID:")
	assert.Contains(t, text, "Go Version:")
	assert.Contains(t, text, "DEBUG: reading page 4")
	assert.Contains(t, text, "=== Session ended ===")
}

func TestInitSessionLog_BadDirectory(t *testing.T) {
	cleanupSessionLog(t)

	_, err := InitSessionLog(filepath.Join(t.TempDir(), "missing", "dir"))
	require.Error(t, err)
	assert.Empty(t, GetSessionLogPath())
}

func TestCloseSessionLog(t *testing.T) {
	cleanupSessionLog(t)

	require.NoError(t, CloseSessionLog(), "closing without a log is a no-op")

	_, err := InitSessionLog(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, CloseSessionLog())
	assert.Empty(t, GetSessionLogPath())
}
