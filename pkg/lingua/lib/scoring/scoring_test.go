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

package scoring

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slicePairs struct {
	pairs [][2]string
	next  int
	err   error
}

func (s *slicePairs) Next() (string, []string, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	if s.next >= len(s.pairs) {
		return "", nil, io.EOF
	}
	p := s.pairs[s.next]
	s.next++
	return p[0], []string{p[1]}, nil
}

func TestScore_PerfectMatch(t *testing.T) {
	result, err := Score(&slicePairs{pairs: [][2]string{
		{"the cat sat", "the cat sat"},
		{"on the mat", "on the mat"},
	}})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Pairs)
	assert.Equal(t, 1.0, result.ExactMatch)
	assert.InDelta(t, 1.0, result.ChrF, 1e-9)
}

func TestScore_NoOverlap(t *testing.T) {
	result, err := Score(&slicePairs{pairs: [][2]string{
		{"aaaa", "zzzz"},
	}})
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.ExactMatch)
	assert.Equal(t, 0.0, result.ChrF)
}

func TestScore_PartialOverlapOrdering(t *testing.T) {
	better, err := Score(&slicePairs{pairs: [][2]string{
		{"the cat sat on the mat", "the cat sat on the mat today"},
	}})
	require.NoError(t, err)

	worse, err := Score(&slicePairs{pairs: [][2]string{
		{"a dog stood", "the cat sat on the mat today"},
	}})
	require.NoError(t, err)

	assert.Greater(t, better.ChrF, worse.ChrF)
	assert.Greater(t, better.ChrF, 0.5)
	assert.Less(t, worse.ChrF, 0.3)
}

func TestScore_EmptyCorpus(t *testing.T) {
	result, err := Score(&slicePairs{})
	require.NoError(t, err)
	assert.Equal(t, Result{}, result)
}

func TestScore_EmptyPrediction(t *testing.T) {
	result, err := Score(&slicePairs{pairs: [][2]string{
		{"", "something"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.ExactMatch)
	assert.Equal(t, 0.0, result.ChrF)
}

func TestScore_WhitespaceNormalized(t *testing.T) {
	result, err := Score(&slicePairs{pairs: [][2]string{
		{"the  cat", "the cat"},
	}})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, result.ChrF, 1e-9)
}

func TestScore_PropagatesSourceError(t *testing.T) {
	_, err := Score(&slicePairs{err: errors.New("read failed")})
	require.Error(t, err)
}
