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

package dataset

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// wordEncoder assigns each whitespace-separated word a fake token id equal
// to its length, which is enough to observe truncation and ordering.
type wordEncoder struct{}

func (wordEncoder) Encode(text string, maxLength int) ([]int64, []int64) {
	words := strings.Fields(text)
	if len(words) > maxLength {
		words = words[:maxLength]
	}
	ids := make([]int64, len(words))
	mask := make([]int64, len(words))
	for i, w := range words {
		ids[i] = int64(len(w))
		mask[i] = 1
	}
	return ids, mask
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"empty file", "", 0},
		{"single line with newline", "hello\n", 1},
		{"single line without newline", "hello", 0},
		{"trailing newline", "a\nb\nc\n", 3},
		{"no trailing newline", "a\nb\nc", 2},
		{"blank lines counted", "\n\n\n", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "input.txt", tt.content)
			got, err := CountLines(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCountLines_LargeFile(t *testing.T) {
	// Spans several 64 KiB read blocks.
	line := strings.Repeat("x", 1000) + "\n"
	path := writeFile(t, "big.txt", strings.Repeat(line, 500))

	got, err := CountLines(path)
	require.NoError(t, err)
	assert.Equal(t, 500, got)
}

func TestCountLines_MissingFile(t *testing.T) {
	_, err := CountLines(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.txt")
}

func TestSentenceReader_OrderAndExhaustion(t *testing.T) {
	path := writeFile(t, "sents.txt", "one\ntwo words\nthree little words\n")

	r, err := NewSentenceReader(path, wordEncoder{}, 128, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	var lengths []int
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		lengths = append(lengths, len(rec.InputIDs))
	}
	assert.Equal(t, []int{1, 2, 3}, lengths)

	// Exhausted reader yields nothing more.
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestSentenceReader_Truncation(t *testing.T) {
	path := writeFile(t, "sents.txt", "a b c d e f g h\n")

	r, err := NewSentenceReader(path, wordEncoder{}, 3, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	rec, err := r.Next()
	require.NoError(t, err)
	assert.Len(t, rec.InputIDs, 3)
	assert.Len(t, rec.AttentionMask, 3)
}

func TestSentenceReader_EmptyLineWarnsAndContinues(t *testing.T) {
	path := writeFile(t, "sents.txt", "first\n\nthird\n")

	core, logs := observer.New(zapcore.WarnLevel)
	r, err := NewSentenceReader(path, wordEncoder{}, 128, zap.New(core))
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	count := 0
	for {
		_, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		count++
	}
	// The empty line still yields a record at its position.
	assert.Equal(t, 3, count)

	warnings := logs.FilterMessage("empty sentence").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, int64(2), warnings[0].ContextMap()["line"])
}

func TestSentenceReader_MissingFile(t *testing.T) {
	_, err := NewSentenceReader(filepath.Join(t.TempDir(), "gone.txt"), wordEncoder{}, 128, nil)
	require.Error(t, err)
}

func TestParallelReader_LengthMismatchFailsFast(t *testing.T) {
	pred := writeFile(t, "pred.txt", "a\nb\nc\n")
	ref := writeFile(t, "ref.txt", "1\n2\n3\n4\n5\n")

	_, err := NewParallelReader(pred, ref, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 vs 5")
}

func TestParallelReader_AlignedPairs(t *testing.T) {
	pred := writeFile(t, "pred.txt", "  hello \nworld\n")
	ref := writeFile(t, "ref.txt", "bonjour\n monde \n")

	r, err := NewParallelReader(pred, ref, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	assert.Equal(t, 2, r.Len())

	first, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, Pair{Prediction: "hello", References: []string{"bonjour"}}, first)

	second, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, Pair{Prediction: "world", References: []string{"monde"}}, second)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestParallelReader_EmptySidesWarn(t *testing.T) {
	pred := writeFile(t, "pred.txt", "\nb\n")
	ref := writeFile(t, "ref.txt", "x\n\n")

	core, logs := observer.New(zapcore.WarnLevel)
	r, err := NewParallelReader(pred, ref, zap.New(core))
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	for {
		if _, err := r.Next(); err == io.EOF {
			break
		}
	}

	assert.Len(t, logs.FilterMessage("empty prediction").All(), 1)
	assert.Len(t, logs.FilterMessage("empty reference").All(), 1)
}
