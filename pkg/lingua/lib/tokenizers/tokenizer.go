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

// Package tokenizers provides the text/token-id codec consumed by the
// translation pipeline.
//
// It wraps the go-huggingface tokenizer implementations (tokenizer.json) and
// SentencePiece models (tokenizer.model) behind a single Codec interface with
// truncation on encode and special-token stripping on decode. The package
// re-exports key upstream types so pipeline code does not need to import the
// upstream library directly.
package tokenizers

import (
	"fmt"
	"os"
	"path/filepath"

	esentencepiece "github.com/eliben/go-sentencepiece"
	"github.com/gomlx/go-huggingface/tokenizers"
	"github.com/gomlx/go-huggingface/tokenizers/api"
	"github.com/gomlx/go-huggingface/tokenizers/hftokenizer"
)

// Re-export the upstream tokenizer interface and config types.
type (
	// Tokenizer is the raw upstream tokenizer with Encode/Decode/SpecialTokenID.
	Tokenizer = tokenizers.Tokenizer

	// Config holds HuggingFace's tokenizer_config.json contents.
	Config = api.Config

	// SpecialToken is an enum of commonly used special tokens.
	SpecialToken = api.SpecialToken
)

// Re-export special token constants.
const (
	TokBeginningOfSentence = api.TokBeginningOfSentence
	TokEndOfSentence       = api.TokEndOfSentence
	TokUnknown             = api.TokUnknown
	TokPad                 = api.TokPad
)

// Codec is the text/token-id contract the pipeline consumes: encode with
// truncation and no padding, decode with special tokens skipped on request.
type Codec interface {
	// Encode tokenizes text, truncating to at most maxLength ids, and returns
	// an attention mask with one entry per kept id. The result is never padded.
	Encode(text string, maxLength int) (ids []int64, mask []int64)

	// Decode converts generated ids back to text. When skipSpecial is true,
	// padding/control tokens are stripped before decoding.
	Decode(ids []int64, skipSpecial bool) string

	// PadID returns the token id used to pad batches.
	PadID() int64
}

// LoadCodec loads a codec from a local model directory, auto-detecting the
// tokenizer type: tokenizer.json (HuggingFace Tokenizers format) is tried
// first, then tokenizer.model (SentencePiece).
func LoadCodec(modelPath string) (Codec, error) {
	var config *api.Config
	configPath := filepath.Join(modelPath, "tokenizer_config.json")
	if _, err := os.Stat(configPath); err == nil {
		config, err = api.ParseConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("parsing tokenizer config: %w", err)
		}
	}

	tokenizerJSONPath := filepath.Join(modelPath, "tokenizer.json")
	if _, err := os.Stat(tokenizerJSONPath); err == nil {
		tok, err := hftokenizer.NewFromFile(config, tokenizerJSONPath)
		if err != nil {
			return nil, fmt.Errorf("loading tokenizer.json: %w", err)
		}
		return NewCodec(tok), nil
	}

	spModelPath := filepath.Join(modelPath, "tokenizer.model")
	if _, err := os.Stat(spModelPath); err == nil {
		proc, err := esentencepiece.NewProcessorFromPath(spModelPath)
		if err != nil {
			return nil, fmt.Errorf("loading tokenizer.model: %w", err)
		}
		return NewCodec(&sentencepieceTokenizer{
			Processor: proc,
			Info:      proc.ModelInfo(),
		}), nil
	}

	return nil, fmt.Errorf("no tokenizer found in %s (expected tokenizer.json or tokenizer.model)", modelPath)
}

// NewCodec wraps a raw upstream tokenizer in the pipeline Codec contract.
func NewCodec(tok Tokenizer) Codec {
	c := &codec{tok: tok}
	// Cache the special token ids the decode path strips. Not every model
	// defines every special token; missing ones are simply not stripped.
	for _, special := range []SpecialToken{TokPad, TokBeginningOfSentence, TokEndOfSentence} {
		if id, err := tok.SpecialTokenID(special); err == nil {
			c.specialIDs = append(c.specialIDs, int64(id))
		}
	}
	if padID, err := tok.SpecialTokenID(TokPad); err == nil {
		c.padID = int64(padID)
	}
	return c
}

// codec adapts a raw Tokenizer to the Codec contract.
type codec struct {
	tok        Tokenizer
	padID      int64
	specialIDs []int64
}

var _ Codec = (*codec)(nil)

func (c *codec) Encode(text string, maxLength int) ([]int64, []int64) {
	tokens := c.tok.Encode(text)
	ids := Truncate(intToInt64(tokens), maxLength)
	mask := make([]int64, len(ids))
	for i := range mask {
		mask[i] = 1
	}
	return ids, mask
}

func (c *codec) Decode(ids []int64, skipSpecial bool) string {
	if skipSpecial {
		ids = c.stripSpecial(ids)
	}
	ints := make([]int, len(ids))
	for i, id := range ids {
		ints[i] = int(id)
	}
	return c.tok.Decode(ints)
}

func (c *codec) PadID() int64 {
	return c.padID
}

func (c *codec) stripSpecial(ids []int64) []int64 {
	kept := make([]int64, 0, len(ids))
	for _, id := range ids {
		special := false
		for _, s := range c.specialIDs {
			if id == s {
				special = true
				break
			}
		}
		if !special {
			kept = append(kept, id)
		}
	}
	return kept
}

// WithSourcePrefix wraps a codec so every encoded sequence starts with the
// given source-language marker token. Multilingual models (M2M100-style)
// expect the marker ahead of the content tokens; truncation still applies to
// the combined sequence.
func WithSourcePrefix(c Codec, markerID int64) Codec {
	return &prefixCodec{Codec: c, markerID: markerID}
}

type prefixCodec struct {
	Codec
	markerID int64
}

func (p *prefixCodec) Encode(text string, maxLength int) ([]int64, []int64) {
	inner := maxLength
	if inner > 0 {
		inner--
	}
	ids, _ := p.Codec.Encode(text, inner)
	out := append([]int64{p.markerID}, ids...)
	mask := make([]int64, len(out))
	for i := range mask {
		mask[i] = 1
	}
	return out, mask
}

// Truncate caps ids at maxLength. A maxLength of zero or less disables
// truncation.
func Truncate(ids []int64, maxLength int) []int64 {
	if maxLength > 0 && len(ids) > maxLength {
		return ids[:maxLength]
	}
	return ids
}

func intToInt64(ids []int) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

// sentencepieceTokenizer wraps esentencepiece.Processor to implement the
// upstream Tokenizer interface.
type sentencepieceTokenizer struct {
	*esentencepiece.Processor
	Info *esentencepiece.ModelInfo
}

var _ Tokenizer = (*sentencepieceTokenizer)(nil)

// Encode returns the text encoded into a sequence of token IDs.
func (t *sentencepieceTokenizer) Encode(text string) []int {
	tokens := t.Processor.Encode(text)
	result := make([]int, len(tokens))
	for i, tok := range tokens {
		result[i] = tok.ID
	}
	return result
}

// Decode returns the text from a sequence of token IDs.
func (t *sentencepieceTokenizer) Decode(ids []int) string {
	return t.Processor.Decode(ids)
}

// EncodeWithAnnotations returns the encoded text; no annotations are supported.
func (t *sentencepieceTokenizer) EncodeWithAnnotations(text string) api.AnnotatedEncoding {
	return api.AnnotatedEncoding{IDs: t.Encode(text)}
}

// With applies encode options; none are supported by the SentencePiece wrapper.
func (t *sentencepieceTokenizer) With(options api.EncodeOptions) error {
	return api.ErrNotImplemented
}

// Normalize returns its input unchanged: SentencePiece handles normalization internally.
func (t *sentencepieceTokenizer) Normalize(text string) string {
	return text
}

// VocabSize returns the total number of tokens in the vocabulary.
func (t *sentencepieceTokenizer) VocabSize() int {
	return t.Info.VocabularySize
}

// Config returns nil: SentencePiece models carry no HuggingFace tokenizer config.
func (t *sentencepieceTokenizer) Config() *api.Config {
	return nil
}

// SpecialTokenID returns the ID for the given special token, or an error if unknown.
func (t *sentencepieceTokenizer) SpecialTokenID(token api.SpecialToken) (int, error) {
	switch token {
	case api.TokUnknown:
		return t.Info.UnknownID, nil
	case api.TokPad:
		return t.Info.PadID, nil
	case api.TokBeginningOfSentence:
		return t.Info.BeginningOfSentenceID, nil
	case api.TokEndOfSentence:
		return t.Info.EndOfSentenceID, nil
	default:
		return 0, fmt.Errorf("unknown special token: %s (%d)", token, int(token))
	}
}
