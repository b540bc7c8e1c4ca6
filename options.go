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

// Option is a functional option for configuring a Reader
type Option func(*Reader) error

// WithTextPolicy sets how non-printable bytes in the text are handled
func WithTextPolicy(policy TextPolicy) Option {
	return func(r *Reader) error {
		if policy != TextPolicyPermissive && policy != TextPolicyStrict {
			return fmt.Errorf("unknown text policy %d", policy)
		}
		r.policy = policy
		return nil
	}
}

// WithStartAddress sets the byte address of the first TLV block.
// The default is 16 (page 4, right after the Capability Container).
func WithStartAddress(addr int) Option {
	return func(r *Reader) error {
		if addr < 0 || addr >= r.endAddr {
			return fmt.Errorf("start address %d outside user memory", addr)
		}
		r.startAddr = addr
		return nil
	}
}

// WithUserMemoryEnd sets the first byte address past the TLV area. The scan
// stops there even if no terminator was found. The default is 160, the end
// of NTAG213 user memory.
func WithUserMemoryEnd(addr int) Option {
	return func(r *Reader) error {
		if addr <= r.startAddr || addr > (MaxPage+1)*PageSize {
			return fmt.Errorf("user memory end %d out of range", addr)
		}
		r.endAddr = addr
		return nil
	}
}
