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

// Package dagerrors is the error taxonomy shared by package dag and
// package dag/checkpoint (kept separate from both to avoid an import
// cycle between them).
package dagerrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLatestMessagesLogIsMalformed is fatal at open: an intermediate
	// (non-tail) record in the latest-messages log didn't fit the fixed
	// V+H record width.
	ErrLatestMessagesLogIsMalformed = errors.New("dag: latest-messages log is malformed")
	// ErrLatestMessagesLogIsCorrupted is fatal at open: the CRC mismatch
	// couldn't be explained by dropping exactly the last record.
	ErrLatestMessagesLogIsCorrupted = errors.New("dag: latest-messages log is corrupted")

	// ErrDataLookupIsCorrupted is fatal at open: the block-metadata log's
	// CRC mismatch couldn't be explained by dropping exactly the last record.
	ErrDataLookupIsCorrupted = errors.New("dag: block-metadata log is corrupted")
	// ErrBlockMetadataLogIsMalformed is fatal at open: an intermediate
	// record's size prefix didn't fit the remaining bytes.
	ErrBlockMetadataLogIsMalformed = errors.New("dag: block-metadata log is malformed")

	// ErrEquivocationsTrackerLogIsMalformed is fatal at open.
	ErrEquivocationsTrackerLogIsMalformed = errors.New("dag: equivocations-tracker log is malformed")
	// ErrEquivocationsTrackerLogIsCorrupted is fatal at open.
	ErrEquivocationsTrackerLogIsCorrupted = errors.New("dag: equivocations-tracker log is corrupted")

	// ErrInvalidBlocksIsCorrupted is fatal at open.
	ErrInvalidBlocksIsCorrupted = errors.New("dag: invalid-blocks log is corrupted")
	// ErrInvalidBlocksLogIsMalformed is fatal at open.
	ErrInvalidBlocksLogIsMalformed = errors.New("dag: invalid-blocks log is malformed")

	// ErrBlockHashesByDeployLogIsCorrupted is fatal at open.
	ErrBlockHashesByDeployLogIsCorrupted = errors.New("dag: block-hashes-by-deploy log is corrupted")
	// ErrBlockHashesByDeployLogIsMalformed is fatal at open.
	ErrBlockHashesByDeployLogIsMalformed = errors.New("dag: block-hashes-by-deploy log is malformed")

	// ErrTopoSortLengthIsTooBig is returned when a requested topo-sort
	// slice would exceed the platform's int32 length limit.
	ErrTopoSortLengthIsTooBig = errors.New("dag: topo sort length is too big")

	// ErrBlockHashIsMalformed is returned by Insert when the block's hash
	// is not exactly H bytes.
	ErrBlockHashIsMalformed = errors.New("dag: block hash is malformed")
)

// CheckpointsDoNotStartFromZeroError is returned by Open when the earliest
// checkpoint's Start is not 0.
type CheckpointsDoNotStartFromZeroError struct {
	Paths []string
}

func (e *CheckpointsDoNotStartFromZeroError) Error() string {
	return fmt.Sprintf("dag: checkpoints do not start from zero: %s", strings.Join(e.Paths, ", "))
}

// CheckpointsAreNotConsecutiveError is returned by Open when two adjacent
// checkpoints leave a gap or overlap between End and the next Start.
type CheckpointsAreNotConsecutiveError struct {
	Paths []string
}

func (e *CheckpointsAreNotConsecutiveError) Error() string {
	return fmt.Sprintf("dag: checkpoints are not consecutive: %s", strings.Join(e.Paths, ", "))
}

// TopoSortLengthIsTooBigError carries the offending length.
type TopoSortLengthIsTooBigError struct {
	Length int64
}

func (e *TopoSortLengthIsTooBigError) Error() string {
	return fmt.Sprintf("dag: topo sort length %d is too big", e.Length)
}

func (e *TopoSortLengthIsTooBigError) Unwrap() error { return ErrTopoSortLengthIsTooBig }

// BlockSenderIsMalformedError carries the offending block hash for context.
type BlockSenderIsMalformedError struct {
	BlockHash   []byte
	SenderLen   int
	WantEmptyOr int
}

func (e *BlockSenderIsMalformedError) Error() string {
	return fmt.Sprintf("dag: block %x has malformed sender (len=%d, want 0 or %d)", e.BlockHash, e.SenderLen, e.WantEmptyOr)
}
