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

// Package dag is the Block DAG storage engine: crash-consistent append-only
// logs, a checkpointed cold tier, and the atomic multi-log Insert operation.
package dag

import (
	"github.com/casperlabs/blockdag/dag/dagerrors"
	"github.com/casperlabs/blockdag/dag/dagtypes"
)

// Re-exported data-model types, so callers only ever import package dag.
type (
	BlockHash           = dagtypes.BlockHash
	Validator           = dagtypes.Validator
	Justification       = dagtypes.Justification
	Bond                = dagtypes.Bond
	BlockMetadata       = dagtypes.BlockMetadata
	Block               = dagtypes.Block
	EquivocationKey     = dagtypes.EquivocationKey
	EquivocationRecord  = dagtypes.EquivocationRecord
	Checkpoint          = dagtypes.Checkpoint
	CheckpointedDagInfo = dagtypes.CheckpointedDagInfo
)

var FromBlock = dagtypes.FromBlock

// Re-exported error taxonomy.
var (
	ErrLatestMessagesLogIsMalformed       = dagerrors.ErrLatestMessagesLogIsMalformed
	ErrLatestMessagesLogIsCorrupted       = dagerrors.ErrLatestMessagesLogIsCorrupted
	ErrDataLookupIsCorrupted              = dagerrors.ErrDataLookupIsCorrupted
	ErrBlockMetadataLogIsMalformed        = dagerrors.ErrBlockMetadataLogIsMalformed
	ErrEquivocationsTrackerLogIsMalformed = dagerrors.ErrEquivocationsTrackerLogIsMalformed
	ErrEquivocationsTrackerLogIsCorrupted = dagerrors.ErrEquivocationsTrackerLogIsCorrupted
	ErrInvalidBlocksIsCorrupted           = dagerrors.ErrInvalidBlocksIsCorrupted
	ErrInvalidBlocksLogIsMalformed        = dagerrors.ErrInvalidBlocksLogIsMalformed
	ErrBlockHashesByDeployLogIsCorrupted  = dagerrors.ErrBlockHashesByDeployLogIsCorrupted
	ErrBlockHashesByDeployLogIsMalformed  = dagerrors.ErrBlockHashesByDeployLogIsMalformed
	ErrTopoSortLengthIsTooBig             = dagerrors.ErrTopoSortLengthIsTooBig
	ErrBlockHashIsMalformed               = dagerrors.ErrBlockHashIsMalformed
)

type (
	CheckpointsDoNotStartFromZeroError = dagerrors.CheckpointsDoNotStartFromZeroError
	CheckpointsAreNotConsecutiveError  = dagerrors.CheckpointsAreNotConsecutiveError
	TopoSortLengthIsTooBigError        = dagerrors.TopoSortLengthIsTooBigError
	BlockSenderIsMalformedError        = dagerrors.BlockSenderIsMalformedError
)
