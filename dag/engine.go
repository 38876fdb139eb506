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
	"os"
	"path/filepath"
	"sync"

	log "github.com/erigontech/erigon-lib/log/v3"

	"github.com/casperlabs/blockdag/dag/applog"
	"github.com/casperlabs/blockdag/dag/checkpoint"
	"github.com/casperlabs/blockdag/dag/dagerrors"
	"github.com/casperlabs/blockdag/dag/dagmetrics"
	"github.com/casperlabs/blockdag/dag/dagtypes"
	"github.com/casperlabs/blockdag/dag/kvindex"
)

// Engine is the Block DAG storage engine: the five append logs, the
// block-number index, the checkpoint loader, and the in-memory state they
// all feed, guarded by a single mutex (§5's single-writer model).
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	logger log.Logger

	latestMessagesLog *applog.Log
	blockMetadataLog  *applog.Log
	equivocationsLog  *applog.Log
	invalidBlocksLog  *applog.Log
	deployLog         *applog.Log

	index *kvindex.Index
	ckpts *checkpoint.Loader

	metrics *dagmetrics.Metrics

	st *state
}

// Open replays all five logs, validates the checkpoint directory, opens the
// block-number index, and returns a ready-to-use Engine. Any corruption that
// can't be explained by a single dangling tail record is fatal.
func Open(cfg Config, logger log.Logger) (*Engine, error) {
	if logger == nil {
		logger = log.New()
	}

	for _, dir := range []string{
		filepath.Dir(cfg.LatestMessagesLogPath),
		cfg.CheckpointDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("dag: create %s: %w", dir, err)
		}
	}

	checkpoints, err := checkpoint.List(cfg.CheckpointDir, logger)
	if err != nil {
		return nil, err
	}
	var sortOffset int64
	if len(checkpoints) > 0 {
		sortOffset = checkpoints[len(checkpoints)-1].End
	}

	metrics := dagmetrics.New()

	ckptLoader, err := checkpoint.NewLoader(cfg.CheckpointCacheSize, cfg.HashLength, cfg.ValidatorLength, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("dag: create checkpoint loader: %w", err)
	}

	st := newState()
	st.sortOffset = sortOffset
	st.checkpoints = checkpoints

	latestMessagesLog, err := recoverAndOpen(cfg.LatestMessagesLogPath, cfg.LatestMessagesCRCPath,
		func() (*recoveredLog, error) {
			return recoverFixedWidth(cfg.LatestMessagesLogPath, cfg.LatestMessagesCRCPath,
				cfg.ValidatorLength+cfg.HashLength,
				dagerrors.ErrLatestMessagesLogIsCorrupted)
		}, logger, metrics)
	if err != nil {
		return nil, err
	}
	for _, rec := range latestMessagesLog.recovered.records {
		v := dagtypes.Validator(append([]byte(nil), rec[:cfg.ValidatorLength]...))
		h := dagtypes.BlockHash(append([]byte(nil), rec[cfg.ValidatorLength:]...))
		st.latestMessages[v.Key()] = h
	}
	st.latestMessagesLogSize = int64(len(latestMessagesLog.recovered.records))

	blockMetadataLog, err := recoverAndOpen(cfg.BlockMetadataLogPath, cfg.BlockMetadataCRCPath,
		func() (*recoveredLog, error) {
			return recoverLengthPrefixed(cfg.BlockMetadataLogPath, cfg.BlockMetadataCRCPath,
				dagerrors.ErrDataLookupIsCorrupted)
		}, logger, metrics)
	if err != nil {
		return nil, err
	}
	for _, rec := range blockMetadataLog.recovered.records {
		m, err := dagtypes.DecodeBlockMetadata(rec)
		if err != nil {
			return nil, fmt.Errorf("dag: decode block-metadata record: %w", err)
		}
		installBlockMetadata(st, m)
	}

	invalidBlocksLog, err := recoverAndOpen(cfg.InvalidBlocksLogPath, cfg.InvalidBlocksCRCPath,
		func() (*recoveredLog, error) {
			return recoverLengthPrefixed(cfg.InvalidBlocksLogPath, cfg.InvalidBlocksCRCPath,
				dagerrors.ErrInvalidBlocksIsCorrupted)
		}, logger, metrics)
	if err != nil {
		return nil, err
	}
	for _, rec := range invalidBlocksLog.recovered.records {
		m, err := dagtypes.DecodeBlockMetadata(rec)
		if err != nil {
			return nil, fmt.Errorf("dag: decode invalid-block record: %w", err)
		}
		st.invalidBlocks[m.BlockHash.Key()] = m
	}

	equivocationsLog, err := recoverAndOpen(cfg.EquivocationsTrackerLogPath, cfg.EquivocationsTrackerCRCPath,
		func() (*recoveredLog, error) {
			return recoverEquivocations(cfg.EquivocationsTrackerLogPath, cfg.EquivocationsTrackerCRCPath,
				cfg.ValidatorLength, cfg.HashLength)
		}, logger, metrics)
	if err != nil {
		return nil, err
	}
	for _, rec := range equivocationsLog.recovered.records {
		r, err := dagtypes.DecodeEquivocationRecord(rec, cfg.ValidatorLength, cfg.HashLength)
		if err != nil {
			return nil, fmt.Errorf("dag: decode equivocation record: %w", err)
		}
		// Last write wins on (equivocator, baseSeqNum): records replay in
		// file order, so a later record for the same key simply overwrites.
		st.equivocationsTracker[r.Key()] = r
	}

	deployLog, err := recoverAndOpen(cfg.BlockHashesByDeployLogPath, cfg.BlockHashesByDeployCRCPath,
		func() (*recoveredLog, error) {
			return recoverDeployIndex(cfg.BlockHashesByDeployLogPath, cfg.BlockHashesByDeployCRCPath, cfg.HashLength)
		}, logger, metrics)
	if err != nil {
		return nil, err
	}
	for k, v := range deployHashesDecode(deployLog.recovered.records, cfg.HashLength) {
		st.blockHashesByDeploy[k] = v
	}

	idx, err := kvindex.Open(cfg.IndexDir, kvindex.Config{
		MapSize:    cfg.IndexMapSize,
		MaxDBs:     cfg.IndexMaxDBs,
		MaxReaders: cfg.IndexMaxReaders,
		NoTLS:      cfg.IndexNoTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("dag: open block-number index: %w", err)
	}

	e := &Engine{
		cfg:               cfg,
		logger:            logger,
		latestMessagesLog: latestMessagesLog.log,
		blockMetadataLog:  blockMetadataLog.log,
		equivocationsLog:  equivocationsLog.log,
		invalidBlocksLog:  invalidBlocksLog.log,
		deployLog:         deployLog.log,
		index:             idx,
		ckpts:             ckptLoader,
		metrics:           metrics,
		st:                st,
	}
	return e, nil
}

// recoveryResult pairs a decoded recoveredLog with the live *applog.Log
// handle recovery leaves positioned for further appends.
type recoveryResult struct {
	recovered *recoveredLog
	log       *applog.Log
}

// recoverAndOpen runs recover (one of the recoverXxx functions), physically
// truncates the data file if recovery found a dangling tail, and opens the
// resulting prefix as an *applog.Log ready for further appends with its CRC
// sibling reconciled to match.
func recoverAndOpen(path, crcPath string, recover func() (*recoveredLog, error), logger log.Logger, metrics *dagmetrics.Metrics) (*recoveryResult, error) {
	rec, err := recover()
	if err != nil {
		return nil, err
	}
	if rec.truncated {
		logger.Warn("dropping dangling tail record on recovery", "path", path)
		metrics.CRCMismatchesRecovered.Inc()
		if err := truncateTo(path, rec.validLen); err != nil {
			return nil, fmt.Errorf("dag: truncate %s during recovery: %w", path, err)
		}
	}
	l, err := applog.Open(path, crcPath)
	if err != nil {
		return nil, err
	}
	if err := l.Reconcile(rec.validCRC); err != nil {
		return nil, fmt.Errorf("dag: reconcile crc for %s: %w", path, err)
	}
	return &recoveryResult{recovered: rec, log: l}, nil
}

// installBlockMetadata threads m into dataLookup, childMap, and topoSort --
// the same three mutations Insert performs, reused here for replay.
func installBlockMetadata(st *state, m *dagtypes.BlockMetadata) {
	key := m.BlockHash.Key()
	st.dataLookup[key] = m
	if _, ok := st.childMap[key]; !ok {
		st.childMap[key] = make(map[string]dagtypes.BlockHash)
	}
	for _, p := range m.Parents {
		st.ensureChild(p, m.BlockHash)
	}
	st.topoSort = appendToTopoSort(st.topoSort, st.sortOffset, m.BlockNum, m.BlockHash)
}

// Close closes every log handle and the block-number index without
// deleting any data.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var firstErr error
	for _, l := range []*applog.Log{e.latestMessagesLog, e.blockMetadataLog, e.equivocationsLog, e.invalidBlocksLog, e.deployLog} {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := e.index.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Clear truncates every log to empty, drops the block-number index, and
// zeroes all in-memory state. Checkpoints on disk are untouched.
func (e *Engine) Clear(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, l := range []*applog.Log{e.latestMessagesLog, e.blockMetadataLog, e.equivocationsLog, e.invalidBlocksLog, e.deployLog} {
		if err := l.Clear(); err != nil {
			return err
		}
	}
	if err := e.index.Drop(); err != nil {
		return err
	}

	e.st = newState()
	e.st.checkpoints = nil
	return nil
}

// Checkpoint is a documented no-op: this engine never rotates live state
// into a new checkpoint file automatically. Checkpoints are produced
// out-of-band (see dag/checkpoint.Write) and picked up on the next Open.
func (e *Engine) Checkpoint() error { return nil }
