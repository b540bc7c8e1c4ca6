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
	"testing"

	testutil "github.com/ZaparooProject/go-ntag213/internal/testing"
	"github.com/stretchr/testify/require"
)

// tagSource adapts a virtual tag to the PageSource interface.
func tagSource(tag *testutil.VirtualNTAG213) PageSource {
	return PageSourceFunc(func(ctx context.Context, page uint8) (Window, error) {
		w, err := tag.ReadWindow(ctx, page)
		return Window(w), err
	})
}

// newTestTag returns a virtual tag holding data in its user memory.
func newTestTag(t *testing.T, data []byte) *testutil.VirtualNTAG213 {
	t.Helper()

	tag := testutil.NewVirtualNTAG213(nil)
	require.NoError(t, tag.SetUserData(data))
	return tag
}

// newTestReader returns a Reader over a virtual tag holding data.
func newTestReader(t *testing.T, data []byte, opts ...Option) (*Reader, *testutil.VirtualNTAG213) {
	t.Helper()

	tag := newTestTag(t, data)
	r, err := New(tagSource(tag), opts...)
	require.NoError(t, err)
	return r, tag
}
