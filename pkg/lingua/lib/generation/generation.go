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

// Package generation defines the model contract the translation driver
// consumes: a black-box function from a padded batch of token ids plus a
// target-language marker to a batch of generated token ids, which may fail
// with a recoverable resource-exhaustion signal.
package generation

import (
	"context"
	"errors"
	"strings"

	"github.com/lingua-ml/lingua/pkg/lingua/lib/batching"
)

// ErrResourceExhausted signals that the accelerator ran out of memory for
// the current batch size. The driver treats it as recoverable: it restarts
// the pass at a smaller batch size.
var ErrResourceExhausted = errors.New("accelerator memory exhausted")

// oomFragments are lowercase substrings of allocator failure messages seen
// from ONNX Runtime and CUDA. Backend errors carrying one of these are
// classified as resource exhaustion even when the backend does not wrap
// ErrResourceExhausted itself.
var oomFragments = []string{
	"out of memory",
	"failed to allocate",
	"bad_alloc",
	"cuda_error_out_of_memory",
}

// IsResourceExhausted reports whether err is a recoverable memory-exhaustion
// condition, either by error identity or by allocator message shape.
func IsResourceExhausted(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrResourceExhausted) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range oomFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

// Options holds the decoding parameters passed to every Generate call.
type Options struct {
	// MaxLength caps the number of generated tokens per sequence.
	MaxLength int

	// NumBeams is the beam count requested from the backend.
	NumBeams int

	// NumReturnSequences is the number of candidates returned per input.
	// The driver always requests 1.
	NumReturnSequences int

	// ForcedBOS is the target-language marker token forced as the first
	// generated token, or a negative value for none.
	ForcedBOS int64
}

// Generator runs one generation call over a padded batch. Implementations
// must return exactly one output sequence per input row, in input order,
// and surface accelerator memory exhaustion as an error matched by
// IsResourceExhausted.
type Generator interface {
	Generate(ctx context.Context, batch *batching.Batch, opts Options) ([][]int64, error)
}
