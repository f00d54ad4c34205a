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

// Package backends provides the low-level inference session abstraction the
// seq2seq model runs on. A Session handles tensor I/O without knowledge of
// model semantics; the encoder-decoder logic lives in the seq2seq package.
package backends

import "fmt"

// BackendType identifies a session backend implementation.
type BackendType string

const (
	// BackendONNX is the ONNX Runtime backend (requires the onnx build tag).
	BackendONNX BackendType = "onnx"
)

// Precision is the numeric precision the model runs at.
type Precision string

const (
	PrecisionFull Precision = "32"
	PrecisionFP16 Precision = "fp16"
	PrecisionBF16 Precision = "bf16"
)

// ParsePrecision validates a user-supplied precision string. An unsupported
// value is a configuration error, reported before any model is loaded.
func ParsePrecision(s string) (Precision, error) {
	switch Precision(s) {
	case PrecisionFull, PrecisionFP16, PrecisionBF16:
		return Precision(s), nil
	default:
		return "", fmt.Errorf("precision not supported: %q (supported values: 32, fp16, bf16)", s)
	}
}

// Session represents a low-level inference session that can run tensor
// computations.
type Session interface {
	// Run executes the session with the given named inputs and returns the
	// named outputs.
	Run(inputs []NamedTensor) ([]NamedTensor, error)

	// InputInfo returns metadata about expected inputs.
	InputInfo() []TensorInfo

	// Close releases resources associated with the session.
	Close() error
}

// NamedTensor associates a name with tensor data.
type NamedTensor struct {
	Name  string
	Shape []int64
	Data  interface{} // []float32, []int64, or []bool
}

// TensorInfo describes a tensor's metadata.
type TensorInfo struct {
	Name  string
	Shape []int64 // -1 for dynamic dimensions
}

// SessionFactory creates sessions from ONNX files on disk.
type SessionFactory interface {
	// CreateSession loads the model at path into a new session.
	CreateSession(path string, opts ...SessionOption) (Session, error)

	// Backend returns the backend type this factory produces sessions for.
	Backend() BackendType
}

// SessionOption configures session creation.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	precision Precision
}

// WithPrecision requests the given numeric precision from the backend.
func WithPrecision(p Precision) SessionOption {
	return func(c *sessionConfig) {
		c.precision = p
	}
}

func applyOptions(opts []SessionOption) sessionConfig {
	cfg := sessionConfig{precision: PrecisionFull}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// PrecisionOf resolves the precision requested by a set of session options.
// Model loading uses it to pick the matching exported graph file.
func PrecisionOf(opts ...SessionOption) Precision {
	return applyOptions(opts).precision
}
