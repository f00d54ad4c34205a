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

// Package metrics exposes Prometheus instrumentation for the translation
// driver. Counters are observability only; they never influence control flow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LinesTranslated counts decoded output lines written.
	LinesTranslated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lingua_lines_translated_total",
		Help: "Total translated lines written to the output file",
	})

	// BatchesProcessed counts completed generation calls.
	BatchesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lingua_batches_total",
		Help: "Total batches run through the model",
	})

	// MemoryRetries counts full-pass restarts triggered by accelerator
	// memory exhaustion.
	MemoryRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lingua_memory_retries_total",
		Help: "Total pass restarts caused by accelerator memory exhaustion",
	})

	// CurrentBatchSize reports the batch size of the attempt in progress.
	CurrentBatchSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lingua_batch_size",
		Help: "Batch size of the current translation attempt",
	})
)
