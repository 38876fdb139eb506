// Copyright 2024 The Erigon Authors
// (original work)
// Copyright 2026 The CasperLabs Authors
// (modifications)
// This file is part of BlockDAG.
//
// BlockDAG is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// BlockDAG is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with BlockDAG. If not, see <http://www.gnu.org/licenses/>.

package dag

import (
	"context"
	"fmt"
	"math"

	"github.com/casperlabs/blockdag/dag/dagerrors"
	"github.com/casperlabs/blockdag/dag/dagtypes"
	"github.com/casperlabs/blockdag/dag/kvindex"
)

// Representation is a read snapshot of the engine's in-memory state, taken
// under the mutex at construction time. Because Go maps cannot be mutated
// and read concurrently, the handful of methods below that touch the live
// maps (Children, Lookup, Contains, the live tail of TopoSort) briefly
// re-acquire Engine.mu; every other method operates on copied scalars and
// is lock-free. Maps throughout are keyed by the relevant
// BlockHash.Key()/Validator.Key() string, since Go map keys cannot be byte
// slices.
type Representation struct {
	engine *Engine

	latestMessages      map[string]dagtypes.BlockHash
	childMap            map[string]map[string]dagtypes.BlockHash
	dataLookup          map[string]*dagtypes.BlockMetadata
	topoSort            [][]dagtypes.BlockHash
	blockHashesByDeploy map[string]dagtypes.BlockHash
	invalidBlocks       map[string]*dagtypes.BlockMetadata
	sortOffset          int64
	checkpoints         []dagtypes.Checkpoint
}

// representationLocked builds a Representation from e.st. Callers must
// already hold e.mu.
func (e *Engine) representationLocked() *Representation {
	return &Representation{
		engine:              e,
		latestMessages:      e.st.latestMessages,
		childMap:            e.st.childMap,
		dataLookup:          e.st.dataLookup,
		topoSort:            e.st.topoSort,
		blockHashesByDeploy: e.st.blockHashesByDeploy,
		invalidBlocks:       e.st.invalidBlocks,
		sortOffset:          e.st.sortOffset,
		checkpoints:         e.st.checkpoints,
	}
}

// GetRepresentation returns a consistent snapshot of the current state.
func (e *Engine) GetRepresentation() *Representation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.representationLocked()
}

// blockNumberLocked resolves h's block number via the block-number index.
// It reads only the MDBX index, in its own read transaction, and does not
// need e.mu; Children, Lookup and Contains call it after releasing e.mu.
func (e *Engine) blockNumberLocked(h dagtypes.BlockHash) (int64, bool) {
	v, ok, err := e.index.Get(h)
	if err != nil || !ok {
		return 0, false
	}
	n, err := kvindex.DecodeBlockNumber(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func checkpointForBlockNumber(checkpoints []dagtypes.Checkpoint, n int64) (dagtypes.Checkpoint, bool) {
	for _, c := range checkpoints {
		if n >= c.Start && n < c.End {
			return c, true
		}
	}
	return dagtypes.Checkpoint{}, false
}

// Children returns h's known children, falling back to the checkpoint that
// covers h's block number if h is not in the live childMap.
func (r *Representation) Children(h dagtypes.BlockHash) (map[string]dagtypes.BlockHash, bool) {
	r.engine.mu.Lock()
	children, ok := r.childMap[h.Key()]
	checkpoints := r.checkpoints
	r.engine.mu.Unlock()
	if ok {
		return children, true
	}

	n, ok := r.engine.blockNumberLocked(h)
	if !ok {
		return nil, false
	}
	ckpt, ok := checkpointForBlockNumber(checkpoints, n)
	if !ok {
		return nil, false
	}
	info, err := r.engine.ckpts.Load(context.Background(), ckpt)
	if err != nil {
		return nil, false
	}
	children, ok = info.ChildMap[h.Key()]
	return children, ok
}

// Lookup returns h's BlockMetadata, falling back to checkpoints when cold.
func (r *Representation) Lookup(h dagtypes.BlockHash) (*dagtypes.BlockMetadata, bool) {
	r.engine.mu.Lock()
	m, ok := r.dataLookup[h.Key()]
	checkpoints := r.checkpoints
	r.engine.mu.Unlock()
	if ok {
		return m, true
	}

	n, ok := r.engine.blockNumberLocked(h)
	if !ok {
		return nil, false
	}
	ckpt, ok := checkpointForBlockNumber(checkpoints, n)
	if !ok {
		return nil, false
	}
	info, err := r.engine.ckpts.Load(context.Background(), ckpt)
	if err != nil {
		return nil, false
	}
	m, ok = info.DataLookup[h.Key()]
	return m, ok
}

// Contains reports whether h is a known block, live or checkpointed.
func (r *Representation) Contains(h dagtypes.BlockHash) bool {
	if len(h) != r.engine.cfg.HashLength {
		return false
	}
	r.engine.mu.Lock()
	_, ok := r.dataLookup[h.Key()]
	r.engine.mu.Unlock()
	if ok {
		return true
	}
	_, ok = r.engine.blockNumberLocked(h)
	return ok
}

// LookupByDeployID returns the block that carried deployID, memory only.
func (r *Representation) LookupByDeployID(deployID []byte) (dagtypes.BlockHash, bool) {
	h, ok := r.blockHashesByDeploy[string(deployID)]
	return h, ok
}

// TopoSort returns topo-sort rows for every block number >=
// startBlockNumber, concatenating checkpointed rows (if startBlockNumber
// predates sortOffset) with the live vector.
func (r *Representation) TopoSort(startBlockNumber int64) ([][]dagtypes.BlockHash, error) {
	if startBlockNumber >= r.sortOffset {
		idx := startBlockNumber - r.sortOffset
		if idx < 0 || idx > int64(len(r.topoSort)) {
			return nil, nil
		}
		return r.topoSort[idx:], nil
	}

	r.engine.mu.Lock()
	checkpoints := r.checkpoints
	r.engine.mu.Unlock()

	var out [][]dagtypes.BlockHash
	for _, c := range checkpoints {
		if c.Start >= r.sortOffset || c.End <= startBlockNumber {
			continue
		}
		info, err := r.engine.ckpts.Load(context.Background(), c)
		if err != nil {
			return nil, fmt.Errorf("dag: load checkpoint %s: %w", c.Path, err)
		}
		from := int64(0)
		if startBlockNumber > c.Start {
			from = startBlockNumber - c.Start
		}
		out = append(out, info.TopoSort[from:]...)
	}
	out = append(out, r.topoSort...)

	if int64(len(out)) > math.MaxInt32 {
		return nil, &dagerrors.TopoSortLengthIsTooBigError{Length: int64(len(out))}
	}
	return out, nil
}

// TopoSortTail returns the last n rows of the full topo sort, mirroring
// the source formula verbatim: TopoSort(max(0, sortOffset - (n -
// len(liveTopoSort)))).
func (r *Representation) TopoSortTail(n int64) ([][]dagtypes.BlockHash, error) {
	start := r.sortOffset - (n - int64(len(r.topoSort)))
	if start < 0 {
		start = 0
	}
	return r.TopoSort(start)
}

// Ordering is a total order over *BlockMetadata derived from topo-sort
// position, plus an index lookup by hash.
type Ordering struct {
	Compare func(a, b *dagtypes.BlockMetadata) int
	index   map[string]int
}

// Index returns h's position in the flattened ordering, if known.
func (o Ordering) Index(h dagtypes.BlockHash) (int, bool) {
	i, ok := o.index[h.Key()]
	return i, ok
}

// DeriveOrdering builds an Ordering over every block from startBlockNumber
// onward, positioned by its place in the flattened topo sort.
func (r *Representation) DeriveOrdering(startBlockNumber int64) (Ordering, error) {
	rows, err := r.TopoSort(startBlockNumber)
	if err != nil {
		return Ordering{}, err
	}
	index := make(map[string]int)
	pos := 0
	for _, row := range rows {
		for _, h := range row {
			index[h.Key()] = pos
			pos++
		}
	}
	return Ordering{
		index: index,
		Compare: func(a, b *dagtypes.BlockMetadata) int {
			ia, aok := index[a.BlockHash.Key()]
			ib, bok := index[b.BlockHash.Key()]
			switch {
			case !aok && !bok:
				return 0
			case !aok:
				return 1
			case !bok:
				return -1
			case ia < ib:
				return -1
			case ia > ib:
				return 1
			default:
				return 0
			}
		},
	}, nil
}

// LatestMessage returns v's latest message as a *BlockMetadata.
func (r *Representation) LatestMessage(v dagtypes.Validator) (*dagtypes.BlockMetadata, bool) {
	h, ok := r.latestMessages[v.Key()]
	if !ok {
		return nil, false
	}
	return r.Lookup(h)
}

// LatestMessageHash returns v's latest message hash.
func (r *Representation) LatestMessageHash(v dagtypes.Validator) (dagtypes.BlockHash, bool) {
	h, ok := r.latestMessages[v.Key()]
	return h, ok
}

// LatestMessageHashes returns a snapshot of every validator's latest
// message hash, keyed by Validator.Key().
func (r *Representation) LatestMessageHashes() map[string]dagtypes.BlockHash {
	out := make(map[string]dagtypes.BlockHash, len(r.latestMessages))
	for k, v := range r.latestMessages {
		out[k] = v
	}
	return out
}

// LatestMessages resolves every validator's latest message hash to its
// BlockMetadata, keyed by Validator.Key().
func (r *Representation) LatestMessages() map[string]*dagtypes.BlockMetadata {
	out := make(map[string]*dagtypes.BlockMetadata, len(r.latestMessages))
	for vk, h := range r.latestMessages {
		if m, ok := r.Lookup(h); ok {
			out[vk] = m
		}
	}
	return out
}

// InvalidBlocks returns a snapshot of the invalid-block set, keyed by
// BlockHash.Key().
func (r *Representation) InvalidBlocks() map[string]*dagtypes.BlockMetadata {
	r.engine.mu.Lock()
	defer r.engine.mu.Unlock()
	out := make(map[string]*dagtypes.BlockMetadata, len(r.invalidBlocks))
	for k, v := range r.invalidBlocks {
		out[k] = v
	}
	return out
}

