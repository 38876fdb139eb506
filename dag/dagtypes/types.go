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

// Package dagtypes holds the DAG store's wire/data-model types, split out
// from package dag so both dag and dag/checkpoint (which dag depends on)
// can share them without an import cycle.
package dagtypes

import "encoding/hex"

// BlockHash is a fixed-width opaque block identifier (length H, normally 32).
type BlockHash []byte

func (h BlockHash) String() string { return hex.EncodeToString(h) }

// Key returns a value usable as a Go map key.
func (h BlockHash) Key() string { return string(h) }

// Validator is a fixed-width opaque validator identifier (length V, normally 32).
type Validator []byte

func (v Validator) String() string { return hex.EncodeToString(v) }
func (v Validator) Key() string    { return string(v) }

// Justification is a validator's view of another validator's latest
// message at block-creation time.
type Justification struct {
	Validator Validator
	BlockHash BlockHash
}

// Bond is a validator's staked weight as recorded by a block.
type Bond struct {
	Validator Validator
	Stake     int64
}

// BlockMetadata is the durable, at-rest representation of a block: the
// pieces the DAG store needs, independent of the full block body (deploys,
// signatures, etc., which live elsewhere).
type BlockMetadata struct {
	BlockHash      BlockHash
	Parents        []BlockHash
	BlockNum       int64
	SeqNum         int32
	Sender         Validator
	Justifications []Justification
	Bonds          []Bond
	Invalid        bool
}

// Block is what a validated block looks like to Insert: a BlockMetadata
// plus the deploy identifiers it carries, which feed the deploy index but
// are not retained in BlockMetadata itself.
type Block struct {
	BlockHash        BlockHash
	Parents          []BlockHash
	BlockNum         int64
	SeqNum           int32
	Sender           Validator
	Justifications   []Justification
	Bonds            []Bond
	DeploySignatures [][]byte
}

// FromBlock builds the durable BlockMetadata for b, tagging it with whether
// it failed validation.
func FromBlock(b *Block, invalid bool) *BlockMetadata {
	return &BlockMetadata{
		BlockHash:      b.BlockHash,
		Parents:        b.Parents,
		BlockNum:       b.BlockNum,
		SeqNum:         b.SeqNum,
		Sender:         b.Sender,
		Justifications: b.Justifications,
		Bonds:          b.Bonds,
		Invalid:        invalid,
	}
}

// EquivocationKey identifies an EquivocationRecord by its update-in-place
// identity: the same equivocator reusing the same base sequence number.
type EquivocationKey struct {
	Equivocator string
	BaseSeqNum  int32
}

// EquivocationRecord is evidence that a validator produced two distinct
// blocks at the same sequence number.
type EquivocationRecord struct {
	Equivocator            Validator
	EquivocationBaseSeqNum int32
	DetectedBlockHashes    map[string]BlockHash // keyed by BlockHash.Key()
}

func (r *EquivocationRecord) Key() EquivocationKey {
	return EquivocationKey{Equivocator: r.Equivocator.Key(), BaseSeqNum: r.EquivocationBaseSeqNum}
}

// WithHash returns a copy of r with h added to DetectedBlockHashes.
func (r *EquivocationRecord) WithHash(h BlockHash) *EquivocationRecord {
	hashes := make(map[string]BlockHash, len(r.DetectedBlockHashes)+1)
	for k, v := range r.DetectedBlockHashes {
		hashes[k] = v
	}
	hashes[h.Key()] = h
	return &EquivocationRecord{
		Equivocator:            r.Equivocator,
		EquivocationBaseSeqNum: r.EquivocationBaseSeqNum,
		DetectedBlockHashes:    hashes,
	}
}

// Checkpoint is an immutable on-disk snapshot of historical block metadata
// covering a contiguous range [Start, End) of block numbers.
type Checkpoint struct {
	Start, End int64
	Path       string
}

// CheckpointedDagInfo is the deterministic reconstruction of a checkpoint's
// derived indices, cached by the checkpoint loader.
type CheckpointedDagInfo struct {
	ChildMap   map[string]map[string]BlockHash // parent.Key() -> child.Key() -> child
	DataLookup map[string]*BlockMetadata       // hash.Key() -> metadata
	TopoSort   [][]BlockHash                   // index i -> blocks at Start+i
	SortOffset int64                           // == Start
}
