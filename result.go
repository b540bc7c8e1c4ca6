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

import "fmt"

// Outcome classifies how a read finished
type Outcome uint8

const (
	// OutcomeSuccess means the terminator was reached and every NDEF record decoded.
	OutcomeSuccess Outcome = iota
	// OutcomePartial means a read failed or a record was rejected after some
	// text was decoded. Text holds everything decoded so far.
	OutcomePartial
	// OutcomeNoTagPresent means no tag could be detected or selected.
	OutcomeNoTagPresent
	// OutcomeNoNDEFData means the TLV area held no NDEF Message block.
	OutcomeNoNDEFData
	// OutcomeFormatError means the TLV stream or record layout is unsupported
	// and nothing could be decoded.
	OutcomeFormatError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomePartial:
		return "partial"
	case OutcomeNoTagPresent:
		return "no tag present"
	case OutcomeNoNDEFData:
		return "no NDEF data"
	case OutcomeFormatError:
		return "format error"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// Result is the outcome of a message read. Text is always the best-effort
// decoded message, so callers that only want a string can ignore the rest.
type Result struct {
	Err     error
	Text    string
	Outcome Outcome
}

// OK returns true if the message was decoded completely.
func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// Error returns nil for a successful read, otherwise an error describing the
// outcome and its cause.
func (r Result) Error() error {
	if r.OK() {
		return r.Err
	}
	if r.Err == nil {
		return fmt.Errorf("ntag213: %s", r.Outcome)
	}
	return fmt.Errorf("ntag213: %s: %w", r.Outcome, r.Err)
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s %q (%v)", r.Outcome, r.Text, r.Err)
	}
	return fmt.Sprintf("%s %q", r.Outcome, r.Text)
}
