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

package tokenizers

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/gomlx/go-huggingface/tokenizers/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTokenizer maps each rune to its code point and back, with 0 as pad
// and 2 as end-of-sentence.
type fakeTokenizer struct{}

func (fakeTokenizer) Encode(text string) []int {
	ids := make([]int, 0, len(text))
	for _, r := range text {
		ids = append(ids, int(r))
	}
	return ids
}

func (fakeTokenizer) Decode(ids []int) string {
	var sb strings.Builder
	for _, id := range ids {
		sb.WriteRune(rune(id))
	}
	return sb.String()
}

func (fakeTokenizer) SpecialTokenID(token api.SpecialToken) (int, error) {
	switch token {
	case api.TokPad:
		return 0, nil
	case api.TokEndOfSentence:
		return 2, nil
	}
	return 0, fmt.Errorf("unknown special token: %s", token)
}

func (f fakeTokenizer) EncodeWithAnnotations(text string) api.AnnotatedEncoding {
	return api.AnnotatedEncoding{IDs: f.Encode(text)}
}

func (fakeTokenizer) With(options api.EncodeOptions) error {
	return api.ErrNotImplemented
}

func (fakeTokenizer) Normalize(text string) string {
	return text
}

func (fakeTokenizer) VocabSize() int {
	return 0
}

func (fakeTokenizer) Config() *api.Config {
	return nil
}

func TestCodec_EncodeTruncates(t *testing.T) {
	c := NewCodec(fakeTokenizer{})

	ids, mask := c.Encode("hello world", 5)
	assert.Len(t, ids, 5)
	assert.Equal(t, []int64{1, 1, 1, 1, 1}, mask)
}

func TestCodec_EncodeEmptyText(t *testing.T) {
	c := NewCodec(fakeTokenizer{})

	ids, mask := c.Encode("", 128)
	assert.Empty(t, ids)
	assert.Empty(t, mask)
}

func TestCodec_DecodeSkipsSpecial(t *testing.T) {
	c := NewCodec(fakeTokenizer{})

	ids := []int64{0, 0, int64('h'), int64('i'), 2}
	assert.Equal(t, "hi", c.Decode(ids, true))
}

func TestCodec_DecodeKeepsSpecialWhenAsked(t *testing.T) {
	c := NewCodec(fakeTokenizer{})

	ids := []int64{int64('h'), int64('i'), 2}
	decoded := c.Decode(ids, false)
	assert.Equal(t, 3, len([]rune(decoded)))
}

func TestCodec_PadID(t *testing.T) {
	c := NewCodec(fakeTokenizer{})
	assert.Equal(t, int64(0), c.PadID())
}

func TestWithSourcePrefix(t *testing.T) {
	c := WithSourcePrefix(NewCodec(fakeTokenizer{}), 777)

	ids, mask := c.Encode("ab", 128)
	assert.Equal(t, []int64{777, int64('a'), int64('b')}, ids)
	assert.Equal(t, []int64{1, 1, 1}, mask)
}

func TestWithSourcePrefix_TruncationIncludesMarker(t *testing.T) {
	c := WithSourcePrefix(NewCodec(fakeTokenizer{}), 777)

	ids, _ := c.Encode("abcdef", 4)
	require.Len(t, ids, 4)
	assert.Equal(t, int64(777), ids[0])
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		ids       []int64
		maxLength int
		want      int
	}{
		{[]int64{1, 2, 3}, 2, 2},
		{[]int64{1, 2, 3}, 3, 3},
		{[]int64{1, 2, 3}, 10, 3},
		{[]int64{1, 2, 3}, 0, 3},
		{nil, 2, 0},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.maxLength), func(t *testing.T) {
			got := Truncate(tt.ids, tt.maxLength)
			require.Len(t, got, tt.want)
		})
	}
}
