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

// Package polling watches a reader for tags arriving, changing and leaving.
package polling

import (
	"bytes"
	"context"
	"errors"
	"time"

	ntag213 "github.com/ZaparooProject/go-ntag213"
	"github.com/ZaparooProject/go-ntag213/internal/syncutil"
)

// Device is a tag session that also reports the UID of the selected tag.
// *pn532.Device satisfies it.
type Device interface {
	ntag213.TagSession
	UID() []byte
}

// Tag is a tag read during a polling cycle
type Tag struct {
	UID    []byte
	Result ntag213.Result
}

// CardState tracks the tag currently on the reader
type CardState struct {
	LastSeenTime time.Time
	LastUID      []byte
	LastText     string
	Present      bool
}

// Session polls a reader and reports tag events through its callbacks.
// Callbacks run on the polling goroutine.
type Session struct {
	OnCardDetected func(tag *Tag) error
	OnCardRemoved  func()
	OnCardChanged  func(tag *Tag) error
	reader         *ntag213.Reader
	device         Device
	config         *Config
	lastPoll       time.Time
	state          CardState
	mu             syncutil.Mutex
}

// NewSession creates a session reading tags on device with reader. A nil
// config uses DefaultConfig.
func NewSession(reader *ntag213.Reader, device Device, config *Config) *Session {
	if config == nil {
		config = DefaultConfig()
	}
	return &Session{
		reader: reader,
		device: device,
		config: config,
	}
}

// GetState returns a copy of the current card state
func (s *Session) GetState() CardState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start polls until ctx is cancelled and returns ctx.Err().
func (s *Session) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		s.poll(ctx, time.Now())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// poll runs one detection and read cycle.
func (s *Session) poll(ctx context.Context, now time.Time) {
	if !s.lastPoll.IsZero() && s.config.SleepRecovery.DetectSleep(now.Sub(s.lastPoll), s.config.PollInterval) {
		ntag213.Debugf("poll gap of %v, assuming host slept", now.Sub(s.lastPoll))
		s.handleCardRemoval()
	}
	s.lastPoll = now

	capture := &uidCapture{Device: s.device}
	res := s.reader.ReadMessageIfPresent(ctx, capture)
	if res.Outcome == ntag213.OutcomeNoTagPresent {
		s.mu.Lock()
		expired := s.state.Present && now.Sub(s.state.LastSeenTime) >= s.config.CardRemovalTimeout
		s.mu.Unlock()
		if expired {
			s.handleCardRemoval()
		}
		return
	}

	s.processPollingResult(&Tag{UID: capture.uid, Result: res}, now)
}

func (s *Session) processPollingResult(tag *Tag, now time.Time) {
	s.mu.Lock()
	wasPresent := s.state.Present
	changed := !bytes.Equal(s.state.LastUID, tag.UID) || s.state.LastText != tag.Result.Text
	s.state = CardState{
		Present:      true,
		LastUID:      tag.UID,
		LastText:     tag.Result.Text,
		LastSeenTime: now,
	}
	onDetected, onChanged := s.OnCardDetected, s.OnCardChanged
	s.mu.Unlock()

	var err error
	switch {
	case !wasPresent:
		if onDetected != nil {
			err = onDetected(tag)
		}
	case changed:
		if onChanged != nil {
			err = onChanged(tag)
		} else if onDetected != nil {
			err = onDetected(tag)
		}
	}
	s.handlePollingError(err)
}

func (s *Session) handleCardRemoval() {
	s.mu.Lock()
	wasPresent := s.state.Present
	s.state = CardState{}
	onRemoved := s.OnCardRemoved
	s.mu.Unlock()

	if wasPresent && onRemoved != nil {
		onRemoved()
	}
}

func (*Session) handlePollingError(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	ntag213.Debugf("tag callback failed: %v", err)
}

// uidCapture records the UID of the selected tag before the session ends.
type uidCapture struct {
	Device
	uid []byte
}

func (c *uidCapture) SelectTag(ctx context.Context) bool {
	if !c.Device.SelectTag(ctx) {
		return false
	}
	c.uid = c.Device.UID()
	return true
}
