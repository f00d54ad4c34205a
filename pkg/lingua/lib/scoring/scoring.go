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

// Package scoring computes corpus-level quality metrics over aligned
// prediction/reference pairs: exact-match rate and a character n-gram
// F-score (chrF-style, n up to 6, beta 2).
package scoring

import (
	"io"
	"strings"
)

const (
	maxNgramOrder = 6
	chrfBeta      = 2.0
)

// PairSource is the aligned stream the scorer drains. dataset.ParallelReader
// satisfies it via a thin adapter in the caller.
type PairSource interface {
	Next() (prediction string, references []string, err error)
}

// Result holds corpus-level scores.
type Result struct {
	Pairs      int
	ExactMatch float64 // fraction of predictions identical to their reference
	ChrF       float64 // character n-gram F-score in [0, 1]
}

// stats accumulates n-gram overlap counts per order across the corpus.
type stats struct {
	matches   [maxNgramOrder]int
	predTotal [maxNgramOrder]int
	refTotal  [maxNgramOrder]int
}

// Score drains src and computes corpus-level metrics. An empty corpus
// scores zero everywhere.
func Score(src PairSource) (Result, error) {
	var result Result
	var agg stats
	exact := 0

	for {
		pred, refs, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, err
		}
		result.Pairs++

		ref := ""
		if len(refs) > 0 {
			ref = refs[0]
		}
		if pred == ref {
			exact++
		}
		accumulate(&agg, pred, ref)
	}

	if result.Pairs == 0 {
		return result, nil
	}
	result.ExactMatch = float64(exact) / float64(result.Pairs)
	result.ChrF = agg.fScore()
	return result, nil
}

// accumulate adds one pair's n-gram overlap counts for every order.
// Whitespace runs are collapsed to single spaces before n-gram extraction.
func accumulate(agg *stats, pred, ref string) {
	predRunes := []rune(normalize(pred))
	refRunes := []rune(normalize(ref))

	for n := 1; n <= maxNgramOrder; n++ {
		predGrams := ngramCounts(predRunes, n)
		refGrams := ngramCounts(refRunes, n)

		for gram, count := range predGrams {
			agg.predTotal[n-1] += count
			if refCount, ok := refGrams[gram]; ok {
				agg.matches[n-1] += min(count, refCount)
			}
		}
		for _, count := range refGrams {
			agg.refTotal[n-1] += count
		}
	}
}

// fScore averages per-order precision and recall, then combines them with
// beta weighting recall over precision.
func (s *stats) fScore() float64 {
	var precision, recall float64
	orders := 0
	for n := 0; n < maxNgramOrder; n++ {
		if s.predTotal[n] == 0 && s.refTotal[n] == 0 {
			continue
		}
		orders++
		if s.predTotal[n] > 0 {
			precision += float64(s.matches[n]) / float64(s.predTotal[n])
		}
		if s.refTotal[n] > 0 {
			recall += float64(s.matches[n]) / float64(s.refTotal[n])
		}
	}
	if orders == 0 {
		return 0
	}
	precision /= float64(orders)
	recall /= float64(orders)
	if precision == 0 && recall == 0 {
		return 0
	}
	betaSq := chrfBeta * chrfBeta
	return (1 + betaSq) * precision * recall / (betaSq*precision + recall)
}

func ngramCounts(runes []rune, n int) map[string]int {
	if len(runes) < n {
		return nil
	}
	counts := make(map[string]int, len(runes)-n+1)
	for i := 0; i+n <= len(runes); i++ {
		counts[string(runes[i:i+n])]++
	}
	return counts
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
