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

package seq2seq

import (
	"context"
	"fmt"

	"github.com/lingua-ml/lingua/pkg/lingua/lib/backends"
	"github.com/lingua-ml/lingua/pkg/lingua/lib/batching"
	"github.com/lingua-ml/lingua/pkg/lingua/lib/generation"
)

// Model runs batched generation over separate encoder and decoder sessions.
type Model struct {
	config  *ModelConfig
	encoder backends.Session
	decoder backends.Session
}

var _ generation.Generator = (*Model)(nil)

// LoadModel loads an encoder-decoder model using the given session factory.
// The precision option picks the exported graph variant; requesting one the
// model directory does not carry is an error.
func LoadModel(modelPath string, factory backends.SessionFactory, opts ...backends.SessionOption) (*Model, error) {
	precision := backends.PrecisionOf(opts...)
	config, err := LoadModelConfig(modelPath, precision)
	if err != nil {
		return nil, fmt.Errorf("loading model config: %w", err)
	}

	if config.EncoderPath == "" {
		return nil, fmt.Errorf("encoder ONNX file for precision %s not found in %s", precision, modelPath)
	}
	if config.DecoderPath == "" {
		return nil, fmt.Errorf("decoder ONNX file for precision %s not found in %s", precision, modelPath)
	}

	encoder, err := factory.CreateSession(config.EncoderPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating encoder session: %w", err)
	}
	decoder, err := factory.CreateSession(config.DecoderPath, opts...)
	if err != nil {
		_ = encoder.Close()
		return nil, fmt.Errorf("creating decoder session: %w", err)
	}

	return &Model{config: config, encoder: encoder, decoder: decoder}, nil
}

// Config returns the parsed model configuration.
func (m *Model) Config() *ModelConfig {
	return m.config
}

// Generate produces one output sequence per batch row, in row order. The
// decoder-start scaffold and the forced language marker are stripped from
// the returned sequences; EOS and any trailing padding are left for the
// codec to skip.
//
// TODO: beam search. Generation is greedy regardless of opts.NumBeams until
// the decoder loop learns to track multiple hypotheses.
func (m *Model) Generate(ctx context.Context, batch *batching.Batch, opts generation.Options) ([][]int64, error) {
	if batch.Size() == 0 {
		return nil, nil
	}

	hidden, hiddenShape, err := m.runEncoder(batch)
	if err != nil {
		return nil, fmt.Errorf("running encoder: %w", err)
	}

	maxLength := opts.MaxLength
	if maxLength <= 0 {
		maxLength = m.config.MaxLength
	}

	size := batch.Size()
	seqs := make([][]int64, size)
	for i := range seqs {
		seqs[i] = []int64{m.config.DecoderStartTokenID}
		if opts.ForcedBOS >= 0 {
			seqs[i] = append(seqs[i], opts.ForcedBOS)
		}
	}
	finished := make([]bool, size)

	for steps := len(seqs[0]); steps < maxLength; steps++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		logits, err := m.runDecoder(seqs, batch.AttentionMask, hidden, hiddenShape)
		if err != nil {
			return nil, fmt.Errorf("running decoder: %w", err)
		}

		done := true
		for i := range seqs {
			if finished[i] {
				seqs[i] = append(seqs[i], m.config.PadTokenID)
				continue
			}
			next := argmax(logits[i])
			seqs[i] = append(seqs[i], next)
			if next == m.config.EOSTokenID {
				finished[i] = true
			} else {
				done = false
			}
		}
		if done {
			break
		}
	}

	// Strip the generation scaffold: decoder start and forced language marker.
	scaffold := 1
	if opts.ForcedBOS >= 0 {
		scaffold = 2
	}
	out := make([][]int64, size)
	for i, seq := range seqs {
		out[i] = seq[scaffold:]
	}
	return out, nil
}

// runEncoder encodes the padded batch into hidden states of shape
// [batch, seq, hidden].
func (m *Model) runEncoder(batch *batching.Batch) ([]float32, []int64, error) {
	size := batch.Size()
	seqLen := len(batch.InputIDs[0])

	inputs := []backends.NamedTensor{
		{
			Name:  "input_ids",
			Shape: []int64{int64(size), int64(seqLen)},
			Data:  flatten(batch.InputIDs),
		},
		{
			Name:  "attention_mask",
			Shape: []int64{int64(size), int64(seqLen)},
			Data:  flatten(batch.AttentionMask),
		},
	}

	outputs, err := m.encoder.Run(inputs)
	if err != nil {
		return nil, nil, err
	}
	if len(outputs) == 0 {
		return nil, nil, fmt.Errorf("no encoder output")
	}

	hidden, ok := outputs[0].Data.([]float32)
	if !ok {
		return nil, nil, fmt.Errorf("encoder output is not float32")
	}
	if len(outputs[0].Shape) != 3 {
		return nil, nil, fmt.Errorf("unexpected encoder output shape: %v", outputs[0].Shape)
	}
	return hidden, outputs[0].Shape, nil
}

// runDecoder performs one decoding step over the full prefixes and returns
// the last-position logits per row.
func (m *Model) runDecoder(seqs [][]int64, encoderMask [][]int64, hidden []float32, hiddenShape []int64) ([][]float32, error) {
	size := len(seqs)
	curLen := len(seqs[0])

	inputNames := make(map[string]bool)
	for _, info := range m.decoder.InputInfo() {
		inputNames[info.Name] = true
	}

	idsName := "input_ids"
	if inputNames["decoder_input_ids"] {
		idsName = "decoder_input_ids"
	}
	inputs := []backends.NamedTensor{
		{
			Name:  idsName,
			Shape: []int64{int64(size), int64(curLen)},
			Data:  flatten(seqs),
		},
	}

	if inputNames["encoder_hidden_states"] || inputNames["encoder_outputs"] {
		name := "encoder_hidden_states"
		if inputNames["encoder_outputs"] {
			name = "encoder_outputs"
		}
		inputs = append(inputs, backends.NamedTensor{
			Name:  name,
			Shape: hiddenShape,
			Data:  hidden,
		})
	}

	if inputNames["encoder_attention_mask"] {
		inputs = append(inputs, backends.NamedTensor{
			Name:  "encoder_attention_mask",
			Shape: []int64{int64(size), int64(len(encoderMask[0]))},
			Data:  flatten(encoderMask),
		})
	}

	if inputNames["use_cache_branch"] {
		inputs = append(inputs, backends.NamedTensor{
			Name:  "use_cache_branch",
			Shape: []int64{1},
			Data:  []bool{false},
		})
	}

	outputs, err := m.decoder.Run(inputs)
	if err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("no decoder output")
	}

	logitsData, ok := outputs[0].Data.([]float32)
	if !ok {
		return nil, fmt.Errorf("logits tensor is not float32")
	}
	shape := outputs[0].Shape
	vocab := int(shape[len(shape)-1])

	logits := make([][]float32, size)
	for i := 0; i < size; i++ {
		last := i*curLen*vocab + (curLen-1)*vocab
		logits[i] = logitsData[last : last+vocab]
	}
	return logits, nil
}

// Close releases both sessions.
func (m *Model) Close() error {
	var errs []error
	if m.encoder != nil {
		if err := m.encoder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing encoder: %w", err))
		}
		m.encoder = nil
	}
	if m.decoder != nil {
		if err := m.decoder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing decoder: %w", err))
		}
		m.decoder = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing model: %v", errs)
	}
	return nil
}

func flatten(rows [][]int64) []int64 {
	if len(rows) == 0 {
		return nil
	}
	flat := make([]int64, 0, len(rows)*len(rows[0]))
	for _, row := range rows {
		flat = append(flat, row...)
	}
	return flat
}

func argmax(logits []float32) int64 {
	best := 0
	for i, v := range logits {
		if v > logits[best] {
			best = i
		}
	}
	return int64(best)
}
