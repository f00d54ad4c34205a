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

// Package seq2seq loads encoder-decoder translation models exported to ONNX
// and runs batched generation over them.
package seq2seq

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lingua-ml/lingua/pkg/lingua/lib/backends"
)

// ModelConfig holds parsed configuration for an encoder-decoder model,
// loaded from config.json and generation_config.json.
type ModelConfig struct {
	// Path to the model directory.
	ModelPath string

	// Paths to the encoder and decoder ONNX files, selected for Precision.
	EncoderPath string
	DecoderPath string

	// Precision the graph files were selected for.
	Precision backends.Precision

	// Token ids driving generation.
	VocabSize           int
	EOSTokenID          int64
	PadTokenID          int64
	DecoderStartTokenID int64

	// Defaults for generation parameters.
	MaxLength int
	NumBeams  int

	// LangCodeToID maps target-language codes (e.g. "en", "de") to the
	// marker token forced as the first generated token. Multilingual models
	// export it alongside config.json; bilingual models may omit it.
	LangCodeToID map[string]int64
}

// rawModelConfig mirrors the fields of config.json this package reads.
// Several token-id fields can be int, []int or null across model families.
type rawModelConfig struct {
	ModelType             string           `json:"model_type"`
	VocabSize             int              `json:"vocab_size"`
	EOSTokenID            any              `json:"eos_token_id"`
	PadTokenID            any              `json:"pad_token_id"`
	DecoderStartTokenID   int64            `json:"decoder_start_token_id"`
	MaxPositionEmbeddings int              `json:"max_position_embeddings"`
	MaxLength             int              `json:"max_length"`
	LangCodeToID          map[string]int64 `json:"lang_code_to_id"`
}

// rawGenerationConfig mirrors generation_config.json.
type rawGenerationConfig struct {
	MaxLength           int   `json:"max_length"`
	EOSTokenID          any   `json:"eos_token_id"`
	DecoderStartTokenID int64 `json:"decoder_start_token_id"`
	NumBeams            int   `json:"num_beams"`
}

// LoadModelConfig loads and parses configuration for a model directory,
// discovering the encoder and decoder ONNX files next to config.json. The
// precision selects the graph variant: fp16/bf16 look only for files with
// the matching suffix (e.g. encoder_model_fp16.onnx), with no fallback to
// the full-precision graph.
func LoadModelConfig(modelPath string, precision backends.Precision) (*ModelConfig, error) {
	encoderPath := findONNXFile(modelPath, precisionCandidates(precision,
		"encoder_model.onnx",
		"encoder.onnx",
	))
	decoderPath := findONNXFile(modelPath, precisionCandidates(precision,
		"decoder_model_merged.onnx",
		"decoder_with_past_model.onnx",
		"decoder_model.onnx",
		"decoder.onnx",
	))

	raw, err := loadRawModelConfig(modelPath)
	if err != nil {
		return nil, fmt.Errorf("loading model config: %w", err)
	}
	genCfg := loadGenerationConfig(modelPath)

	eosTokenID := tokenID(raw.EOSTokenID, 0)
	if genCfg != nil {
		eosTokenID = tokenID(genCfg.EOSTokenID, eosTokenID)
	}

	// pad_token_id can be null; EOS is the common fallback.
	padTokenID := tokenID(raw.PadTokenID, eosTokenID)

	decoderStart := raw.DecoderStartTokenID
	if genCfg != nil && genCfg.DecoderStartTokenID != 0 {
		decoderStart = genCfg.DecoderStartTokenID
	}
	if decoderStart == 0 {
		decoderStart = padTokenID // T5-style models start from pad
	}

	maxLength := firstNonZero(raw.MaxLength, raw.MaxPositionEmbeddings, 512)
	if genCfg != nil && genCfg.MaxLength > 0 {
		maxLength = genCfg.MaxLength
	}
	numBeams := 1
	if genCfg != nil && genCfg.NumBeams > 0 {
		numBeams = genCfg.NumBeams
	}

	return &ModelConfig{
		ModelPath:           modelPath,
		EncoderPath:         encoderPath,
		DecoderPath:         decoderPath,
		Precision:           precision,
		VocabSize:           raw.VocabSize,
		EOSTokenID:          eosTokenID,
		PadTokenID:          padTokenID,
		DecoderStartTokenID: decoderStart,
		MaxLength:           maxLength,
		NumBeams:            numBeams,
		LangCodeToID:        raw.LangCodeToID,
	}, nil
}

// LangTokenID resolves a target-language code to its marker token id.
func (c *ModelConfig) LangTokenID(lang string) (int64, error) {
	if id, ok := c.LangCodeToID[lang]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("target language %q not supported by model %s", lang, c.ModelPath)
}

func loadRawModelConfig(path string) (*rawModelConfig, error) {
	configPath := filepath.Join(path, "config.json")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config.json: %w", err)
	}

	var config rawModelConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config.json: %w", err)
	}
	return &config, nil
}

func loadGenerationConfig(path string) *rawGenerationConfig {
	configPath := filepath.Join(path, "generation_config.json")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil
	}

	var config rawGenerationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil
	}
	return &config
}

// tokenID normalizes a token-id JSON field that can be a number, a list of
// numbers, or null.
func tokenID(v any, fallback int64) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case []interface{}:
		if len(t) > 0 {
			if f, ok := t[0].(float64); ok {
				return int64(f)
			}
		}
	}
	return fallback
}

// precisionCandidates maps base ONNX filenames to the variant exported for
// the given precision: encoder_model.onnx becomes encoder_model_fp16.onnx
// for fp16. Full precision keeps the base names.
func precisionCandidates(precision backends.Precision, bases ...string) []string {
	if precision == "" || precision == backends.PrecisionFull {
		return bases
	}
	out := make([]string, len(bases))
	for i, base := range bases {
		out[i] = strings.TrimSuffix(base, ".onnx") + "_" + string(precision) + ".onnx"
	}
	return out
}

// findONNXFile returns the first of the candidate filenames present in dir,
// or "" when none exists.
func findONNXFile(dir string, candidates []string) string {
	for _, name := range candidates {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
