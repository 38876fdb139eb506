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

import "path/filepath"

// Config bundles every on-disk path and tuning knob the engine needs.
// DefaultConfig derives all of it from a single data directory, mirroring
// erigon-lib/common/datadir's layout-from-root pattern.
type Config struct {
	LatestMessagesLogPath string
	LatestMessagesCRCPath string

	BlockMetadataLogPath string
	BlockMetadataCRCPath string

	EquivocationsTrackerLogPath string
	EquivocationsTrackerCRCPath string

	InvalidBlocksLogPath string
	InvalidBlocksCRCPath string

	BlockHashesByDeployLogPath string
	BlockHashesByDeployCRCPath string

	CheckpointDir string
	IndexDir      string

	// LatestMessagesLogMaxSizeFactor triggers a squash once the number of
	// records appended since the last squash (after Open: the number of
	// records in the log) exceeds len(latestMessages) * factor.
	LatestMessagesLogMaxSizeFactor int64
	// CheckpointCacheSize bounds the checkpoint LRU.
	CheckpointCacheSize int

	IndexMapSize    int64
	IndexMaxDBs     uint64
	IndexMaxReaders uint64
	IndexNoTLS      bool

	// HashLength and ValidatorLength are H and V from the data model.
	HashLength      int
	ValidatorLength int
}

// DefaultConfig lays out the five logs, the checkpoint directory, and the
// index directory under dataDir, with the teacher's customary tuning
// defaults.
func DefaultConfig(dataDir string) Config {
	return Config{
		LatestMessagesLogPath: filepath.Join(dataDir, "latest-messages.log"),
		LatestMessagesCRCPath: filepath.Join(dataDir, "latest-messages.crc"),

		BlockMetadataLogPath: filepath.Join(dataDir, "block-metadata.log"),
		BlockMetadataCRCPath: filepath.Join(dataDir, "block-metadata.crc"),

		EquivocationsTrackerLogPath: filepath.Join(dataDir, "equivocations-tracker.log"),
		EquivocationsTrackerCRCPath: filepath.Join(dataDir, "equivocations-tracker.crc"),

		InvalidBlocksLogPath: filepath.Join(dataDir, "invalid-blocks.log"),
		InvalidBlocksCRCPath: filepath.Join(dataDir, "invalid-blocks.crc"),

		BlockHashesByDeployLogPath: filepath.Join(dataDir, "block-hashes-by-deploy.log"),
		BlockHashesByDeployCRCPath: filepath.Join(dataDir, "block-hashes-by-deploy.crc"),

		CheckpointDir: filepath.Join(dataDir, "checkpoints"),
		IndexDir:      filepath.Join(dataDir, "block-number-index"),

		LatestMessagesLogMaxSizeFactor: 10,
		CheckpointCacheSize:            16,

		IndexMapSize:    1 << 30,
		IndexMaxDBs:     4,
		IndexMaxReaders: 128,
		IndexNoTLS:      true,

		HashLength:      32,
		ValidatorLength: 32,
	}
}
