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

import "github.com/casperlabs/blockdag/dag/dagtypes"

// state is the engine's in-memory aggregate. Every field is mutated only by
// the write path, under Engine.mu; Representation snapshots hold direct
// references into it (see representation.go for why that's safe).
type state struct {
	latestMessages map[string]dagtypes.BlockHash // validator.Key() -> hash

	// childMap[p.Key()] holds every child of p seen so far; every key of
	// dataLookup is also a key here, possibly with an empty value set.
	childMap map[string]map[string]dagtypes.BlockHash

	dataLookup map[string]*dagtypes.BlockMetadata

	// topoSort[i] holds the hashes of blocks with BlockNum == sortOffset+i.
	topoSort [][]dagtypes.BlockHash

	blockHashesByDeploy map[string]dagtypes.BlockHash // deployID bytes -> hash

	equivocationsTracker map[dagtypes.EquivocationKey]*dagtypes.EquivocationRecord

	invalidBlocks map[string]*dagtypes.BlockMetadata

	sortOffset int64

	checkpoints []dagtypes.Checkpoint

	latestMessagesLogSize int64
}

func newState() *state {
	return &state{
		latestMessages:       make(map[string]dagtypes.BlockHash),
		childMap:             make(map[string]map[string]dagtypes.BlockHash),
		dataLookup:           make(map[string]*dagtypes.BlockMetadata),
		topoSort:             nil,
		blockHashesByDeploy:  make(map[string]dagtypes.BlockHash),
		equivocationsTracker: make(map[dagtypes.EquivocationKey]*dagtypes.EquivocationRecord),
		invalidBlocks:        make(map[string]*dagtypes.BlockMetadata),
	}
}

// ensureChild records that child is a child of parent, creating both map
// entries as needed.
func (s *state) ensureChild(parent, child dagtypes.BlockHash) {
	pk := parent.Key()
	if _, ok := s.childMap[pk]; !ok {
		s.childMap[pk] = make(map[string]dagtypes.BlockHash)
	}
	s.childMap[pk][child.Key()] = child
}

// appendToTopoSort is the pure update function for the live topo-sort
// vector: given the current slice, its offset, and a block's number and
// hash, it returns the slice with hash recorded in the right row, growing
// the slice with empty rows as needed. Kept standalone (no receiver) so it
// is directly unit-testable.
func appendToTopoSort(topoSort [][]dagtypes.BlockHash, sortOffset, blockNum int64, hash dagtypes.BlockHash) [][]dagtypes.BlockHash {
	row := blockNum - sortOffset
	for int64(len(topoSort)) <= row {
		topoSort = append(topoSort, nil)
	}
	topoSort[row] = append(topoSort[row], hash)
	return topoSort
}
