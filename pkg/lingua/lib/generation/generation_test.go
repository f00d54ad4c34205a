// Copyright 2026 The Lingua Authors
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

package generation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsResourceExhausted(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrResourceExhausted, true},
		{"wrapped sentinel", fmt.Errorf("running decoder: %w", ErrResourceExhausted), true},
		{"cuda message", errors.New("CUDA error: out of memory"), true},
		{"ort allocator message", errors.New("onnxruntime: Failed to allocate memory for requested buffer"), true},
		{"bad_alloc", errors.New("std::bad_alloc"), true},
		{"unrelated error", errors.New("no such file or directory"), false},
		{"wrapped unrelated", fmt.Errorf("running encoder: %w", errors.New("shape mismatch")), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsResourceExhausted(tt.err))
		})
	}
}
