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

// Package forkchoice is a read-only, LMD-GHOST-flavored fork-choice walker
// over a dag.Representation. It does not implement the safety-oracle math
// of a full CBC Casper estimator; it only demonstrates how an external
// collaborator consumes the storage engine's read path: starting from a
// justified head, at every block it walks to the child subtree carrying
// the most latest-message-weighted stake, stopping when a block has no
// known children.
package forkchoice

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/casperlabs/blockdag/dag"
)

// Estimate walks rep's child map from head, greedily descending into
// whichever child subtree the validators in latestMessages collectively
// vote for with the most stake, and returns the tip it settles on.
//
// weights maps a child block's hash key to the stake-weighted vote it
// receives from every validator whose latest message descends through it;
// Estimate computes this bottom-up from latestMessages rather than
// requiring the caller to precompute it.
func Estimate(rep *dag.Representation, head dag.BlockHash, latestMessages map[string]dag.BlockHash) (dag.BlockHash, error) {
	if _, ok := rep.Lookup(head); !ok {
		return nil, fmt.Errorf("forkchoice: head %x not found", head)
	}

	votes, err := voteWeights(rep, latestMessages)
	if err != nil {
		return nil, err
	}

	current := head
	for {
		children, ok := rep.Children(current)
		if !ok || len(children) == 0 {
			return current, nil
		}

		var best dag.BlockHash
		bestWeight := new(uint256.Int)
		for _, child := range children {
			w, ok := votes[child.Key()]
			if !ok {
				continue
			}
			if best == nil || w.Cmp(bestWeight) > 0 {
				best = child
				bestWeight = w
			}
		}
		if best == nil {
			return current, nil
		}
		current = best
	}
}

// voteWeights accumulates, for every block reachable by walking a latest
// message up through its first-parent chain, the combined stake of every
// validator whose latest message passes through it. Each validator's stake
// is added to its latest message and to every block on that block's
// first-parent chain, up to and including the root; other parents are not
// followed.
func voteWeights(rep *dag.Representation, latestMessages map[string]dag.BlockHash) (map[string]*uint256.Int, error) {
	weights := make(map[string]*uint256.Int)
	for _, tip := range latestMessages {
		stake, err := tipStake(rep, tip)
		if err != nil {
			return nil, err
		}
		h := tip
		for {
			m, ok := rep.Lookup(h)
			if !ok {
				break
			}
			key := h.Key()
			if weights[key] == nil {
				weights[key] = new(uint256.Int)
			}
			weights[key].Add(weights[key], stake)
			if len(m.Parents) == 0 {
				break
			}
			h = m.Parents[0]
		}
	}
	return weights, nil
}

// tipStake returns the bonded stake, as of the block the validator's
// latest message points at, for the sender of that message. A block with
// no recorded sender (e.g. a genesis block) contributes zero.
func tipStake(rep *dag.Representation, tip dag.BlockHash) (*uint256.Int, error) {
	m, ok := rep.Lookup(tip)
	if !ok {
		return nil, fmt.Errorf("forkchoice: latest message %x not found", tip)
	}
	stake := new(uint256.Int)
	for _, b := range m.Bonds {
		if b.Validator.Key() == m.Sender.Key() {
			if b.Stake < 0 {
				return nil, fmt.Errorf("forkchoice: negative bond stake for validator %x", b.Validator)
			}
			stake.SetUint64(uint64(b.Stake))
			break
		}
	}
	return stake, nil
}
