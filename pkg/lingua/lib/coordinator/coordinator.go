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

// Package coordinator provides the collective primitives the translation
// driver relies on: contiguous batch sharding across workers and a
// pad-then-gather barrier that reassembles per-worker results in rank order.
//
// The contract the driver depends on: shard assignment partitions a logical
// batch contiguously by rank, and PadGather concatenates contributions in
// the same rank order, so gathered output order always equals input order.
package coordinator

import (
	"context"
	"errors"
	"sync"

	"github.com/lingua-ml/lingua/pkg/lingua/lib/batching"
)

// ErrGatherAbandoned is returned to workers blocked in PadGather when the
// round they joined is torn down by Reset.
var ErrGatherAbandoned = errors.New("gather round abandoned by reset")

// Coordinator is the collective layer a single worker sees.
type Coordinator interface {
	// WorldSize returns the number of participating workers.
	WorldSize() int

	// Rank returns this worker's position in [0, WorldSize).
	Rank() int

	// IsMain reports whether this worker is the designated collecting
	// worker. Only the main worker writes output.
	IsMain() bool

	// Shard returns this worker's contiguous slice of the logical batch.
	Shard(batch *batching.Batch) *batching.Batch

	// PadGather pads variable-length sequences to a common length across all
	// workers, then gathers them in rank order. Every worker receives the
	// full gathered result. It blocks until all workers reach the barrier.
	PadGather(ctx context.Context, seqs [][]int64, padID int64) ([][]int64, error)

	// Reset clears any accumulated collective state. The driver calls it
	// between retry attempts so a half-finished barrier from an abandoned
	// pass cannot leak into the next one.
	Reset()
}

// Local is the single-process coordinator: world size one, identity shard,
// local pad.
type Local struct{}

var _ Coordinator = Local{}

func (Local) WorldSize() int { return 1 }
func (Local) Rank() int      { return 0 }
func (Local) IsMain() bool   { return true }

func (Local) Shard(batch *batching.Batch) *batching.Batch {
	return batch
}

func (Local) PadGather(_ context.Context, seqs [][]int64, padID int64) ([][]int64, error) {
	return batching.PadSequences(seqs, padID), nil
}

func (Local) Reset() {}

// group is the shared state behind an in-process worker group.
type group struct {
	mu      sync.Mutex
	world   int
	current *gatherRound
}

// gatherRound accumulates one barrier's contributions. result and err are
// written under the group mutex before done is closed.
type gatherRound struct {
	contributions map[int][][]int64
	result        [][]int64
	err           error
	done          chan struct{}
}

func newGatherRound() *gatherRound {
	return &gatherRound{
		contributions: make(map[int][][]int64),
		done:          make(chan struct{}),
	}
}

// Member is one rank of an in-process group.
type Member struct {
	group *group
	rank  int
}

var _ Coordinator = (*Member)(nil)

// NewGroup creates an in-process coordinator group of the given world size
// and returns one member per rank. Members are safe to drive from separate
// goroutines; each PadGather call blocks until every rank contributes.
func NewGroup(worldSize int) []*Member {
	g := &group{world: worldSize, current: newGatherRound()}
	members := make([]*Member, worldSize)
	for rank := range members {
		members[rank] = &Member{group: g, rank: rank}
	}
	return members
}

func (m *Member) WorldSize() int { return m.group.world }
func (m *Member) Rank() int      { return m.rank }
func (m *Member) IsMain() bool   { return m.rank == 0 }

// Shard returns this rank's contiguous slice of the batch. Ranks below
// size%world take one extra record, so every record lands on exactly one
// rank and concatenating shards in rank order restores the batch.
func (m *Member) Shard(batch *batching.Batch) *batching.Batch {
	start, end := shardBounds(batch.Size(), m.group.world, m.rank)
	return &batching.Batch{
		InputIDs:      batch.InputIDs[start:end],
		AttentionMask: batch.AttentionMask[start:end],
	}
}

// PadGather deposits this rank's sequences and blocks until the whole group
// has reached the barrier, then returns the rank-ordered concatenation
// padded to a common length.
func (m *Member) PadGather(ctx context.Context, seqs [][]int64, padID int64) ([][]int64, error) {
	g := m.group

	g.mu.Lock()
	round := g.current
	round.contributions[m.rank] = seqs
	if len(round.contributions) == g.world {
		var all [][]int64
		for rank := 0; rank < g.world; rank++ {
			all = append(all, round.contributions[rank]...)
		}
		round.result = batching.PadSequences(all, padID)
		g.current = newGatherRound()
		close(round.done)
	}
	g.mu.Unlock()

	select {
	case <-round.done:
		if round.err != nil {
			return nil, round.err
		}
		return round.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reset abandons the in-flight round, if any. Workers still blocked on the
// old round's barrier are released with ErrGatherAbandoned.
func (m *Member) Reset() {
	g := m.group
	g.mu.Lock()
	old := g.current
	g.current = newGatherRound()
	old.err = ErrGatherAbandoned
	close(old.done)
	g.mu.Unlock()
}

func shardBounds(size, world, rank int) (int, int) {
	base := size / world
	rem := size % world
	start := rank*base + min(rank, rem)
	length := base
	if rank < rem {
		length++
	}
	return start, start + length
}
