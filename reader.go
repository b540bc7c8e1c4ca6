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
	"context"
	"errors"
	"fmt"
)

// Reader decodes the text message of an NTAG213 through a PageSource.
//
// A Reader keeps no state between reads. It does not serialize access to
// the tag: only one read may be in flight per physical reader.
type Reader struct {
	src       PageSource
	policy    TextPolicy
	startAddr int
	endAddr   int
}

// New creates a Reader over src.
func New(src PageSource, opts ...Option) (*Reader, error) {
	if src == nil {
		return nil, errors.New("page source cannot be nil")
	}

	r := &Reader{
		src:       src,
		policy:    TextPolicyPermissive,
		startAddr: userStartByte,
		endAddr:   userEndByte,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// TextPolicy returns the policy used for non-printable text bytes.
func (r *Reader) TextPolicy() TextPolicy {
	return r.policy
}

// ReadMessage scans the TLV area and decodes the text record. It never
// fails outright: the Result carries whatever was decoded and why the scan
// ended.
func (r *Reader) ReadMessage(ctx context.Context) Result {
	s := &scanner{
		src:     r.src,
		policy:  r.policy,
		endAddr: r.endAddr,
	}
	res := s.scan(ctx, r.startAddr)
	Debugf("read finished: %s", res)
	return res
}

// ReadMessageIfPresent reads the message only if sess reports a new tag and
// selects it. The session is ended after the scan whatever its outcome.
func (r *Reader) ReadMessageIfPresent(ctx context.Context, sess TagSession) Result {
	if !sess.IsTagPresent(ctx) || !sess.SelectTag(ctx) {
		return Result{Outcome: OutcomeNoTagPresent, Err: ErrNoTag}
	}

	res := r.ReadMessage(ctx)
	if err := sess.EndSession(ctx); err != nil {
		Debugf("ending tag session failed: %v", err)
		res.Err = errors.Join(res.Err, fmt.Errorf("end session: %w", err))
	}
	return res
}

// ReadText returns the decoded message as a plain string, empty when no
// tag data could be decoded. Use ReadMessage to tell the failure kinds apart.
func (r *Reader) ReadText(ctx context.Context) string {
	return r.ReadMessage(ctx).Text
}
