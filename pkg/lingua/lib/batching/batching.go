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

// Package batching groups streamed records into fixed-size, rectangular
// batches. Records are consumed in order and never reordered, within or
// across batches.
package batching

import (
	"fmt"
	"io"

	"github.com/lingua-ml/lingua/pkg/lingua/lib/dataset"
)

// padMultiple aligns dynamically padded sequence lengths. Rounding up to a
// multiple of 8 keeps tensor shapes friendly to accelerator kernels.
const padMultiple = 8

// RecordSource is the stream the assembler drains. dataset.SentenceReader
// satisfies it.
type RecordSource interface {
	Next() (dataset.Record, error)
}

// Batch is an ordered group of records stacked into a rectangular shape.
// Row i of InputIDs and AttentionMask corresponds to the i-th record
// consumed from the source.
type Batch struct {
	InputIDs      [][]int64
	AttentionMask [][]int64
}

// Size returns the number of records in the batch.
func (b *Batch) Size() int {
	return len(b.InputIDs)
}

// Config holds assembler construction options.
type Config struct {
	// BatchSize is the maximum number of records per batch.
	BatchSize int

	// PadID is the token id used to fill short sequences.
	PadID int64

	// PadToMaxLength pads every batch to MaxLength instead of the batch's own
	// longest sequence. Required by backends with fixed-shape compilation.
	PadToMaxLength bool

	// MaxLength is the fixed padded length when PadToMaxLength is set.
	MaxLength int
}

// Assembler lazily produces batches from a record source. Like the source
// itself it is single-pass: once Next returns io.EOF it stays exhausted.
type Assembler struct {
	src RecordSource
	cfg Config
}

// NewAssembler wraps src. BatchSize must be at least 1, and PadToMaxLength
// requires a positive MaxLength.
func NewAssembler(src RecordSource, cfg Config) (*Assembler, error) {
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("batch size must be at least 1, got %d", cfg.BatchSize)
	}
	if cfg.PadToMaxLength && cfg.MaxLength < 1 {
		return nil, fmt.Errorf("pad-to-max-length requires a positive max length, got %d", cfg.MaxLength)
	}
	return &Assembler{src: src, cfg: cfg}, nil
}

// Next returns the next batch of up to BatchSize consecutive records, padded
// to a common length, or io.EOF once the source is drained. The last batch
// of a file may be shorter; an empty source yields zero batches.
func (a *Assembler) Next() (*Batch, error) {
	records := make([]dataset.Record, 0, a.cfg.BatchSize)
	for len(records) < a.cfg.BatchSize {
		rec, err := a.src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, io.EOF
	}
	return a.pad(records), nil
}

// pad stacks records into a rectangle. With dynamic padding the target
// length is the batch's longest sequence rounded up to a multiple of
// padMultiple; with fixed padding it is always MaxLength.
func (a *Assembler) pad(records []dataset.Record) *Batch {
	target := a.cfg.MaxLength
	if !a.cfg.PadToMaxLength {
		longest := 0
		for _, rec := range records {
			if len(rec.InputIDs) > longest {
				longest = len(rec.InputIDs)
			}
		}
		target = roundUp(longest, padMultiple)
	}

	batch := &Batch{
		InputIDs:      make([][]int64, len(records)),
		AttentionMask: make([][]int64, len(records)),
	}
	for i, rec := range records {
		seq := rec.InputIDs
		// A fixed target can be shorter than a record the codec failed to
		// truncate; cap rather than index past the row.
		if len(seq) > target {
			seq = seq[:target]
		}
		ids := make([]int64, target)
		mask := make([]int64, target)
		for j, id := range seq {
			ids[j] = id
			mask[j] = 1
		}
		for j := len(seq); j < target; j++ {
			ids[j] = a.cfg.PadID
		}
		batch.InputIDs[i] = ids
		batch.AttentionMask[i] = mask
	}
	return batch
}

// PadSequences pads variable-length sequences to their common maximum
// length. The collective layer uses it to make shapes uniform before a
// gather, and the driver reuses it for generated output.
func PadSequences(seqs [][]int64, padID int64) [][]int64 {
	longest := 0
	for _, seq := range seqs {
		if len(seq) > longest {
			longest = len(seq)
		}
	}
	out := make([][]int64, len(seqs))
	for i, seq := range seqs {
		padded := make([]int64, longest)
		copy(padded, seq)
		for j := len(seq); j < longest; j++ {
			padded[j] = padID
		}
		out[i] = padded
	}
	return out
}

func roundUp(n, multiple int) int {
	if n == 0 {
		return multiple
	}
	if rem := n % multiple; rem != 0 {
		return n + multiple - rem
	}
	return n
}
