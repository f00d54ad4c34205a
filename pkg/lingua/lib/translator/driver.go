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

// Package translator drives full translation passes over an input file,
// retrying the whole pass at a halved batch size whenever the accelerator
// runs out of memory.
package translator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/lingua-ml/lingua/pkg/lingua/lib/batching"
	"github.com/lingua-ml/lingua/pkg/lingua/lib/coordinator"
	"github.com/lingua-ml/lingua/pkg/lingua/lib/dataset"
	"github.com/lingua-ml/lingua/pkg/lingua/lib/generation"
	"github.com/lingua-ml/lingua/pkg/lingua/lib/metrics"
	"github.com/lingua-ml/lingua/pkg/lingua/lib/tokenizers"
)

// Config holds driver construction options.
type Config struct {
	// SentencesPath is the input file, one sentence per line.
	SentencesPath string

	// OutputPath is the output file, one translation per input line.
	// Parent directories are created if absent; the file is truncated at the
	// start of every attempt so a retried pass never appends to partial
	// output from a failed one.
	OutputPath string

	// StartingBatchSize is the first candidate batch size. It is halved on
	// every memory-exhaustion retry, with a floor of 1.
	StartingBatchSize int

	// MaxLength bounds both tokenized input length and generated length.
	MaxLength int

	// NumBeams is passed through to the generator.
	NumBeams int

	// ForcedBOS is the target-language marker token, or negative for none.
	ForcedBOS int64

	// PadToMaxLength pads every batch to MaxLength instead of dynamically.
	PadToMaxLength bool
}

func (c Config) validate() error {
	if c.SentencesPath == "" {
		return fmt.Errorf("sentences path is required")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if c.StartingBatchSize < 1 {
		return fmt.Errorf("starting batch size must be at least 1, got %d", c.StartingBatchSize)
	}
	if c.MaxLength < 1 {
		return fmt.Errorf("max length must be at least 1, got %d", c.MaxLength)
	}
	return nil
}

// attemptState is the driver's position in the retry state machine:
// Sizing -> Running -> Succeeded | Retrying | Fatal, with Retrying feeding
// back into Sizing at the halved batch size.
type attemptState int

const (
	stateSizing attemptState = iota
	stateRunning
	stateRetrying
	stateSucceeded
	stateFatal
)

// Driver owns one end-to-end translation run.
type Driver struct {
	cfg    Config
	codec  tokenizers.Codec
	gen    generation.Generator
	coord  coordinator.Coordinator
	logger *zap.Logger
}

// New validates cfg and builds a driver. A nil coordinator defaults to the
// single-process Local; a nil logger discards output.
func New(cfg Config, codec tokenizers.Codec, gen generation.Generator, coord coordinator.Coordinator, logger *zap.Logger) (*Driver, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if coord == nil {
		coord = coordinator.Local{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{cfg: cfg, codec: codec, gen: gen, coord: coord, logger: logger}, nil
}

// Run executes the adaptive pass. It returns nil after one full pass
// completes, a fatal error when batch size 1 still exhausts memory, and the
// underlying error unchanged for every non-recoverable failure.
func (d *Driver) Run(ctx context.Context) error {
	total, err := dataset.CountLines(d.cfg.SentencesPath)
	if err != nil {
		return err
	}
	d.logger.Info("translating",
		zap.Int("lines", total),
		zap.Int("starting_batch_size", d.cfg.StartingBatchSize))

	if d.coord.IsMain() {
		if dir := filepath.Dir(d.cfg.OutputPath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating output directory %s: %w", dir, err)
			}
		}
	}

	size := d.cfg.StartingBatchSize
	state := stateSizing
	var lastErr error

	for {
		switch state {
		case stateSizing:
			metrics.CurrentBatchSize.Set(float64(size))
			d.logger.Info("starting attempt", zap.Int("batch_size", size))
			state = stateRunning

		case stateRunning:
			err := d.runPass(ctx, size, total)
			switch {
			case err == nil:
				state = stateSucceeded
			case generation.IsResourceExhausted(err):
				lastErr = err
				if size <= 1 {
					state = stateFatal
				} else {
					state = stateRetrying
				}
			default:
				return err
			}

		case stateRetrying:
			metrics.MemoryRetries.Inc()
			// Abandon all collective state from the failed attempt; any
			// half-finished barrier must not leak into the next pass.
			d.coord.Reset()
			size /= 2
			if size < 1 {
				size = 1
			}
			d.logger.Warn("accelerator memory exhausted, halving batch size",
				zap.Int("batch_size", size),
				zap.Error(lastErr))
			state = stateSizing

		case stateSucceeded:
			d.logger.Info("translation done", zap.Int("lines", total))
			return nil

		case stateFatal:
			return fmt.Errorf("insufficient accelerator memory even at batch size 1: %w", lastErr)
		}
	}
}

// runPass runs one complete attempt at the given batch size, restarting from
// the first record. Output is truncated and rewritten from scratch.
func (d *Driver) runPass(ctx context.Context, batchSize, total int) error {
	reader, err := dataset.NewSentenceReader(d.cfg.SentencesPath, d.codec, d.cfg.MaxLength, d.logger)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	assembler, err := batching.NewAssembler(reader, batching.Config{
		BatchSize:      batchSize,
		PadID:          d.codec.PadID(),
		PadToMaxLength: d.cfg.PadToMaxLength,
		MaxLength:      d.cfg.MaxLength,
	})
	if err != nil {
		return err
	}

	var out *os.File
	var w *bufio.Writer
	if d.coord.IsMain() {
		out, err = os.OpenFile(d.cfg.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("opening output file %s: %w", d.cfg.OutputPath, err)
		}
		defer func() { _ = out.Close() }()
		w = bufio.NewWriter(out)
	}

	opts := generation.Options{
		MaxLength:          d.cfg.MaxLength,
		NumBeams:           d.cfg.NumBeams,
		NumReturnSequences: 1,
		ForcedBOS:          d.cfg.ForcedBOS,
	}

	progress := 0
	wroteAny := false
	for {
		batch, err := assembler.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		// Each worker generates over its contiguous shard; the gather
		// reassembles shard outputs in rank order, restoring input order.
		shard := d.coord.Shard(batch)
		var generated [][]int64
		if shard.Size() > 0 {
			generated, err = d.gen.Generate(ctx, shard, opts)
			if err != nil {
				return err
			}
		}

		gathered, err := d.coord.PadGather(ctx, generated, d.codec.PadID())
		if err != nil {
			return err
		}
		metrics.BatchesProcessed.Inc()

		if d.coord.IsMain() {
			for _, seq := range gathered {
				if wroteAny {
					if err := w.WriteByte('\n'); err != nil {
						return fmt.Errorf("writing %s: %w", d.cfg.OutputPath, err)
					}
				}
				if _, err := w.WriteString(d.codec.Decode(seq, true)); err != nil {
					return fmt.Errorf("writing %s: %w", d.cfg.OutputPath, err)
				}
				wroteAny = true
			}
			progress += len(gathered)
			metrics.LinesTranslated.Add(float64(len(gathered)))
			d.logger.Debug("progress",
				zap.Int("translated", progress),
				zap.Int("total", total))
		}
	}

	if w != nil {
		if err := w.Flush(); err != nil {
			return fmt.Errorf("writing %s: %w", d.cfg.OutputPath, err)
		}
	}
	return nil
}
