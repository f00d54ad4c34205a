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

package batching

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingua-ml/lingua/pkg/lingua/lib/dataset"
)

// sliceSource replays a fixed set of records.
type sliceSource struct {
	records []dataset.Record
	next    int
}

func (s *sliceSource) Next() (dataset.Record, error) {
	if s.next >= len(s.records) {
		return dataset.Record{}, io.EOF
	}
	rec := s.records[s.next]
	s.next++
	return rec, nil
}

func recordsOfLengths(lengths ...int) []dataset.Record {
	records := make([]dataset.Record, len(lengths))
	for i, n := range lengths {
		ids := make([]int64, n)
		mask := make([]int64, n)
		for j := range ids {
			// Encode the record index so ordering is observable after padding.
			ids[j] = int64(i + 1)
			mask[j] = 1
		}
		records[i] = dataset.Record{InputIDs: ids, AttentionMask: mask}
	}
	return records
}

func drain(t *testing.T, a *Assembler) []*Batch {
	t.Helper()
	var batches []*Batch
	for {
		b, err := a.Next()
		if err == io.EOF {
			return batches
		}
		require.NoError(t, err)
		batches = append(batches, b)
	}
}

func TestAssembler_BatchSizes(t *testing.T) {
	tests := []struct {
		name      string
		records   int
		batchSize int
		wantSizes []int
	}{
		{"exact multiple", 6, 3, []int{3, 3}},
		{"short last batch", 7, 3, []int{3, 3, 1}},
		{"batch larger than file", 2, 128, []int{2}},
		{"batch of one", 3, 1, []int{1, 1, 1}},
		{"batch equal to file", 4, 4, []int{4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lengths := make([]int, tt.records)
			for i := range lengths {
				lengths[i] = 4
			}
			a, err := NewAssembler(&sliceSource{records: recordsOfLengths(lengths...)}, Config{
				BatchSize: tt.batchSize,
			})
			require.NoError(t, err)

			var sizes []int
			for _, b := range drain(t, a) {
				sizes = append(sizes, b.Size())
			}
			assert.Equal(t, tt.wantSizes, sizes)
		})
	}
}

func TestAssembler_EmptySourceYieldsZeroBatches(t *testing.T) {
	a, err := NewAssembler(&sliceSource{}, Config{BatchSize: 8})
	require.NoError(t, err)

	assert.Empty(t, drain(t, a))
}

func TestAssembler_PreservesOrder(t *testing.T) {
	a, err := NewAssembler(&sliceSource{records: recordsOfLengths(1, 2, 3, 4, 5)}, Config{
		BatchSize: 2,
	})
	require.NoError(t, err)

	var firstTokens []int64
	for _, b := range drain(t, a) {
		for _, row := range b.InputIDs {
			firstTokens = append(firstTokens, row[0])
		}
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, firstTokens)
}

func TestAssembler_DynamicPaddingRoundsUp(t *testing.T) {
	a, err := NewAssembler(&sliceSource{records: recordsOfLengths(3, 11)}, Config{
		BatchSize: 2,
		PadID:     99,
	})
	require.NoError(t, err)

	b, err := a.Next()
	require.NoError(t, err)

	// Longest sequence is 11, rounded up to 16.
	require.Len(t, b.InputIDs[0], 16)
	require.Len(t, b.AttentionMask[1], 16)

	// Padding positions carry the pad id and a zero mask.
	assert.Equal(t, int64(99), b.InputIDs[0][3])
	assert.Equal(t, int64(0), b.AttentionMask[0][3])
	assert.Equal(t, int64(1), b.AttentionMask[0][2])
}

func TestAssembler_FixedPadding(t *testing.T) {
	a, err := NewAssembler(&sliceSource{records: recordsOfLengths(2, 5)}, Config{
		BatchSize:      4,
		PadToMaxLength: true,
		MaxLength:      32,
	})
	require.NoError(t, err)

	b, err := a.Next()
	require.NoError(t, err)
	for i := range b.InputIDs {
		assert.Len(t, b.InputIDs[i], 32)
		assert.Len(t, b.AttentionMask[i], 32)
	}
}

func TestAssembler_FixedPaddingCapsOverlongRecords(t *testing.T) {
	a, err := NewAssembler(&sliceSource{records: recordsOfLengths(40)}, Config{
		BatchSize:      1,
		PadToMaxLength: true,
		MaxLength:      32,
	})
	require.NoError(t, err)

	b, err := a.Next()
	require.NoError(t, err)
	require.Len(t, b.InputIDs[0], 32)
	require.Len(t, b.AttentionMask[0], 32)
	assert.Equal(t, int64(1), b.InputIDs[0][31])
	assert.Equal(t, int64(1), b.AttentionMask[0][31])
}

func TestAssembler_ConfigValidation(t *testing.T) {
	_, err := NewAssembler(&sliceSource{}, Config{BatchSize: 0})
	require.Error(t, err)

	_, err = NewAssembler(&sliceSource{}, Config{BatchSize: 1, PadToMaxLength: true})
	require.Error(t, err)
}

func TestPadSequences(t *testing.T) {
	padded := PadSequences([][]int64{{1, 2, 3}, {4}, {}}, 0)

	assert.Equal(t, [][]int64{{1, 2, 3}, {4, 0, 0}, {0, 0, 0}}, padded)
}

func TestPadSequences_Empty(t *testing.T) {
	assert.Empty(t, PadSequences(nil, 0))
}
