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
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/casperlabs/blockdag/dag/applog"
	"github.com/casperlabs/blockdag/dag/dagerrors"
	"github.com/casperlabs/blockdag/dag/dagtypes"
	"github.com/casperlabs/blockdag/dag/kvindex"
)

// Insert validates and admits block into the DAG. On a duplicate
// BlockHash it is a no-op returning the current representation. Validation
// (hash length, sender shape) runs before any in-memory mutation, so a
// failed Insert leaves state byte-for-byte unchanged.
func (e *Engine) Insert(_ context.Context, block *dagtypes.Block, genesis *dagtypes.Block, invalid bool) (*Representation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := block.BlockHash.Key()
	if _, exists := e.st.dataLookup[key]; exists {
		e.logger.Warn("insert: duplicate block hash, ignoring", "hash", block.BlockHash.String())
		return e.representationLocked(), nil
	}

	if len(block.BlockHash) != e.cfg.HashLength {
		return nil, dagerrors.ErrBlockHashIsMalformed
	}

	senderLen := len(block.Sender)
	if senderLen != 0 && senderLen != e.cfg.ValidatorLength {
		return nil, &dagerrors.BlockSenderIsMalformedError{
			BlockHash:   block.BlockHash,
			SenderLen:   senderLen,
			WantEmptyOr: e.cfg.ValidatorLength,
		}
	}

	if err := e.maybeSquashLocked(); err != nil {
		return nil, err
	}

	metadata := dagtypes.FromBlock(block, invalid)

	if invalid {
		e.st.invalidBlocks[key] = metadata
	}
	e.st.dataLookup[key] = metadata
	if _, ok := e.st.childMap[key]; !ok {
		e.st.childMap[key] = make(map[string]dagtypes.BlockHash)
	}
	for _, p := range block.Parents {
		e.st.ensureChild(p, block.BlockHash)
	}
	e.st.topoSort = appendToTopoSort(e.st.topoSort, e.st.sortOffset, block.BlockNum, block.BlockHash)

	justified := make(map[string]struct{}, len(block.Justifications))
	for _, j := range block.Justifications {
		justified[j.Validator.Key()] = struct{}{}
	}
	pairs := make(map[string]dagtypes.BlockHash)
	for _, b := range block.Bonds {
		vk := b.Validator.Key()
		if _, ok := justified[vk]; !ok {
			pairs[vk] = genesis.BlockHash
		}
	}
	if senderLen == 0 {
		e.logger.Warn("insert: block has empty sender", "hash", block.BlockHash.String())
	} else {
		pairs[block.Sender.Key()] = block.BlockHash
	}
	for vk, h := range pairs {
		e.st.latestMessages[vk] = h
	}

	if err := e.index.Put(append([]byte(nil), block.BlockHash...), kvindex.EncodeBlockNumber(block.BlockNum)); err != nil {
		return nil, fmt.Errorf("dag: update block-number index: %w", err)
	}

	for _, deployID := range block.DeploySignatures {
		e.st.blockHashesByDeploy[string(deployID)] = block.BlockHash
	}

	if err := e.latestMessagesLog.Append(encodeLatestMessagePairs(pairs)); err != nil {
		return nil, err
	}
	e.st.latestMessagesLogSize += int64(len(pairs))

	if err := e.blockMetadataLog.Append(lengthPrefixed(dagtypes.EncodeBlockMetadata(metadata))); err != nil {
		return nil, err
	}

	if invalid {
		if err := e.invalidBlocksLog.Append(lengthPrefixed(dagtypes.EncodeBlockMetadata(metadata))); err != nil {
			return nil, err
		}
	}

	for _, deployID := range block.DeploySignatures {
		if err := e.deployLog.Append(encodeDeployRecord(deployID, block.BlockHash)); err != nil {
			return nil, err
		}
	}

	e.metrics.Inserts.Inc()
	e.metrics.LiveTopoSortRows.Set(float64(len(e.st.topoSort)))

	return e.representationLocked(), nil
}

// maybeSquashLocked rewrites the latest-messages log from the current
// in-memory map once its append count exceeds len(latestMessages) *
// LatestMessagesLogMaxSizeFactor. Must be called with e.mu held.
func (e *Engine) maybeSquashLocked() error {
	threshold := int64(len(e.st.latestMessages)) * e.cfg.LatestMessagesLogMaxSizeFactor
	if e.st.latestMessagesLogSize <= threshold {
		return nil
	}

	data := encodeLatestMessagePairs(e.st.latestMessages)
	newLog, err := applog.Rewrite(e.cfg.LatestMessagesLogPath, e.cfg.LatestMessagesCRCPath, data)
	if err != nil {
		return fmt.Errorf("dag: squash latest-messages log: %w", err)
	}
	if err := e.latestMessagesLog.Close(); err != nil {
		return fmt.Errorf("dag: close pre-squash latest-messages log: %w", err)
	}
	e.latestMessagesLog = newLog
	e.st.latestMessagesLogSize = 0
	e.metrics.Squashes.Inc()
	return nil
}

// encodeLatestMessagePairs serializes pairs (keyed by Validator.Key()) as a
// concatenation of fixed-width "validator || blockHash" records, in
// ascending key order so repeated encodes of the same map are
// byte-identical.
func encodeLatestMessagePairs(pairs map[string]dagtypes.BlockHash) []byte {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf []byte
	for _, k := range keys {
		buf = append(buf, []byte(k)...)
		buf = append(buf, pairs[k]...)
	}
	return buf
}

func lengthPrefixed(b []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	return append(lenBuf[:], b...)
}

func encodeDeployRecord(deployID []byte, hash dagtypes.BlockHash) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(deployID)))
	buf := append(lenBuf[:], deployID...)
	return append(buf, hash...)
}
