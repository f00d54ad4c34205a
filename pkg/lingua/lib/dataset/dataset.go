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

// Package dataset provides streaming, single-pass readers over line-oriented
// text files. Files are never loaded into memory whole: records are
// materialized one line at a time as the caller pulls them, and an exhausted
// reader yields nothing more (re-iterating requires constructing a new one).
package dataset

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

// countBlockSize is the chunk size used by CountLines. Counting in fixed-size
// blocks bounds peak memory regardless of file size or line length.
const countBlockSize = 64 * 1024

// maxLineSize is the largest input line the readers accept.
const maxLineSize = 4 * 1024 * 1024

// CountLines returns the number of newline-terminated records in the file.
// The count is the number of '\n' bytes, so it is the same whether or not
// the file ends with a trailing newline.
func CountLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("counting lines in %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, countBlockSize)
	count := 0
	for {
		n, err := f.Read(buf)
		count += bytes.Count(buf[:n], []byte{'\n'})
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return 0, fmt.Errorf("counting lines in %s: %w", path, err)
		}
	}
}

// Record is one tokenized input sentence. Sequences are truncated to the
// reader's maximum length but never padded here; padding is deferred to the
// batch assembler because batch compositions differ.
type Record struct {
	InputIDs      []int64
	AttentionMask []int64
}

// Encoder is the text-to-token-id half of the codec the sentence reader
// consumes. Implementations truncate to maxLength and return a mask with one
// entry per kept token.
type Encoder interface {
	Encode(text string, maxLength int) (ids []int64, mask []int64)
}

// SentenceReader lazily tokenizes one file, one line per record.
type SentenceReader struct {
	file      *os.File
	scanner   *bufio.Scanner
	encoder   Encoder
	maxLength int
	line      int // 1-based index of the last record returned
	logger    *zap.Logger
}

// NewSentenceReader opens path for a single streaming pass.
func NewSentenceReader(path string, encoder Encoder, maxLength int, logger *zap.Logger) (*SentenceReader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening sentences file %s: %w", path, err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, countBlockSize), maxLineSize)
	return &SentenceReader{
		file:      f,
		scanner:   scanner,
		encoder:   encoder,
		maxLength: maxLength,
		logger:    logger,
	}, nil
}

// Next returns the next record, or io.EOF once the file is exhausted.
// Empty lines are not errors: they are logged with their 1-based line index
// and flow through the pipeline like any other record, so output positions
// stay aligned with input positions.
func (r *SentenceReader) Next() (Record, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return Record{}, fmt.Errorf("reading %s: %w", r.file.Name(), err)
		}
		return Record{}, io.EOF
	}
	r.line++

	text := strings.TrimSpace(r.scanner.Text())
	if text == "" {
		r.logger.Warn("empty sentence", zap.Int("line", r.line))
	}

	ids, mask := r.encoder.Encode(text, r.maxLength)
	return Record{InputIDs: ids, AttentionMask: mask}, nil
}

// Close releases the underlying file handle. Safe to call after a partial
// pass; callers should defer it as soon as the reader is constructed.
func (r *SentenceReader) Close() error {
	return r.file.Close()
}

// Pair is one aligned prediction/reference record produced by ParallelReader.
// References is a single-element list to match the shape scoring consumers
// expect for multi-reference corpora.
type Pair struct {
	Prediction string
	References []string
}

// ParallelReader streams aligned lines from a prediction file and a
// reference file in lockstep. Construction fails fast if the two files do
// not contain the same number of lines.
type ParallelReader struct {
	predFile *os.File
	refFile  *os.File
	predScan *bufio.Scanner
	refScan  *bufio.Scanner
	length   int
	line     int
	logger   *zap.Logger
}

// NewParallelReader validates that both files have identical line counts
// before any content is consumed, then opens them for a single pass.
func NewParallelReader(predPath, refPath string, logger *zap.Logger) (*ParallelReader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	predLines, err := CountLines(predPath)
	if err != nil {
		return nil, err
	}
	refLines, err := CountLines(refPath)
	if err != nil {
		return nil, err
	}
	if predLines != refLines {
		return nil, fmt.Errorf(
			"lines in %s and %s do not match: %d vs %d",
			predPath, refPath, predLines, refLines,
		)
	}

	predFile, err := os.Open(predPath)
	if err != nil {
		return nil, fmt.Errorf("opening predictions file %s: %w", predPath, err)
	}
	refFile, err := os.Open(refPath)
	if err != nil {
		_ = predFile.Close()
		return nil, fmt.Errorf("opening references file %s: %w", refPath, err)
	}

	predScan := bufio.NewScanner(predFile)
	predScan.Buffer(make([]byte, 0, countBlockSize), maxLineSize)
	refScan := bufio.NewScanner(refFile)
	refScan.Buffer(make([]byte, 0, countBlockSize), maxLineSize)

	return &ParallelReader{
		predFile: predFile,
		refFile:  refFile,
		predScan: predScan,
		refScan:  refScan,
		length:   predLines,
		logger:   logger,
	}, nil
}

// Len returns the total number of pairs, known up front from the line-count
// validation so consumers can size progress reporting without a second scan.
func (r *ParallelReader) Len() int {
	return r.length
}

// Next returns the next aligned pair, or io.EOF once either file is
// exhausted. Each side is trimmed independently; empty sides are logged and
// passed through.
func (r *ParallelReader) Next() (Pair, error) {
	predOK := r.predScan.Scan()
	refOK := r.refScan.Scan()
	if !predOK || !refOK {
		if err := r.predScan.Err(); err != nil {
			return Pair{}, fmt.Errorf("reading %s: %w", r.predFile.Name(), err)
		}
		if err := r.refScan.Err(); err != nil {
			return Pair{}, fmt.Errorf("reading %s: %w", r.refFile.Name(), err)
		}
		return Pair{}, io.EOF
	}
	r.line++

	pred := strings.TrimSpace(r.predScan.Text())
	ref := strings.TrimSpace(r.refScan.Text())
	if pred == "" {
		r.logger.Warn("empty prediction", zap.Int("line", r.line))
	}
	if ref == "" {
		r.logger.Warn("empty reference", zap.Int("line", r.line))
	}

	return Pair{Prediction: pred, References: []string{ref}}, nil
}

// Close releases both file handles.
func (r *ParallelReader) Close() error {
	predErr := r.predFile.Close()
	refErr := r.refFile.Close()
	if predErr != nil {
		return predErr
	}
	return refErr
}
