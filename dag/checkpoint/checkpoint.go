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

// Package checkpoint lists, parses, and loads checkpoint files: immutable
// on-disk snapshots of historical block metadata covering a contiguous
// block-number range. Loaded snapshots are cached in a bounded LRU, the
// substitute this module uses in place of weak references (see
// SPEC_FULL.md §4.4): reconstruction from file bytes is
// idempotent, so eviction never loses information, only the cost of a
// reload.
package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	log "github.com/erigontech/erigon-lib/log/v3"

	"github.com/casperlabs/blockdag/dag/dagerrors"
	"github.com/casperlabs/blockdag/dag/dagmetrics"
	"github.com/casperlabs/blockdag/dag/dagtypes"
)

var nameRE = regexp.MustCompile(`^([0-9]+)-([0-9]+)$`)

// List reads dir, parses every "<start>-<end>" filename into a Checkpoint,
// ignores non-matching names with a warning, sorts by Start, and validates
// that the checkpoints are contiguous starting at zero.
func List(dir string, logger log.Logger) ([]dagtypes.Checkpoint, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]dagtypes.Checkpoint, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := nameRE.FindStringSubmatch(e.Name())
		if m == nil {
			logger.Warn("ignoring unrecognized file in checkpoints directory", "name", e.Name())
			continue
		}
		start, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			logger.Warn("ignoring checkpoint file with unparseable start", "name", e.Name(), "err", err)
			continue
		}
		end, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			logger.Warn("ignoring checkpoint file with unparseable end", "name", e.Name(), "err", err)
			continue
		}
		if start >= end {
			logger.Warn("ignoring checkpoint file with non-positive range", "name", e.Name())
			continue
		}
		out = append(out, dagtypes.Checkpoint{Start: start, End: end, Path: filepath.Join(dir, e.Name())})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })

	if len(out) == 0 {
		return out, nil
	}
	if out[0].Start != 0 {
		return nil, &dagerrors.CheckpointsDoNotStartFromZeroError{Paths: paths(out)}
	}
	for i := 1; i < len(out); i++ {
		if out[i-1].End != out[i].Start {
			return nil, &dagerrors.CheckpointsAreNotConsecutiveError{Paths: paths(out)}
		}
	}
	return out, nil
}

func paths(cs []dagtypes.Checkpoint) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Path
	}
	return out
}

// Loader loads and caches CheckpointedDagInfo snapshots.
type Loader struct {
	cache        *lru.Cache[string, *dagtypes.CheckpointedDagInfo]
	group        singleflight.Group
	hashLen      int
	validatorLen int
	logger       log.Logger
	metrics      *dagmetrics.Metrics
}

// NewLoader builds a Loader with an LRU cache of the given capacity.
// metrics may be nil, in which case cache hit/miss counts are simply not
// recorded.
func NewLoader(cacheSize, hashLen, validatorLen int, logger log.Logger, metrics *dagmetrics.Metrics) (*Loader, error) {
	c, err := lru.New[string, *dagtypes.CheckpointedDagInfo](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Loader{cache: c, hashLen: hashLen, validatorLen: validatorLen, logger: logger, metrics: metrics}, nil
}

// Load returns the CheckpointedDagInfo for ckpt, from cache if present,
// otherwise reconstructing it from disk. Concurrent Load calls for the same
// path are deduplicated via singleflight so only one goroutine touches disk.
func (l *Loader) Load(_ context.Context, ckpt dagtypes.Checkpoint) (*dagtypes.CheckpointedDagInfo, error) {
	if info, ok := l.cache.Get(ckpt.Path); ok {
		l.hit()
		return info, nil
	}
	v, err, _ := l.group.Do(ckpt.Path, func() (interface{}, error) {
		if info, ok := l.cache.Get(ckpt.Path); ok {
			l.hit()
			return info, nil
		}
		l.miss()
		info, err := l.loadFromDisk(ckpt)
		if err != nil {
			return nil, err
		}
		l.cache.Add(ckpt.Path, info)
		return info, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*dagtypes.CheckpointedDagInfo), nil
}

func (l *Loader) hit() {
	if l.metrics != nil {
		l.metrics.CheckpointCacheHits.Inc()
	}
}

func (l *Loader) miss() {
	if l.metrics != nil {
		l.metrics.CheckpointCacheMisses.Inc()
	}
}

// loadFromDisk parses ckpt's file (same bare "size:i32 || bytes[size]"
// framing as the block-metadata log, with no CRC sibling since checkpoints
// are written once and never appended to) and deterministically derives
// childMap and topoSort from the parent pointers it contains.
func (l *Loader) loadFromDisk(ckpt dagtypes.Checkpoint) (*dagtypes.CheckpointedDagInfo, error) {
	raw, err := os.ReadFile(ckpt.Path)
	if err != nil {
		return nil, err
	}

	info := &dagtypes.CheckpointedDagInfo{
		ChildMap:   make(map[string]map[string]dagtypes.BlockHash),
		DataLookup: make(map[string]*dagtypes.BlockMetadata),
		TopoSort:   make([][]dagtypes.BlockHash, ckpt.End-ckpt.Start),
		SortOffset: ckpt.Start,
	}

	off := 0
	for off < len(raw) {
		if off+4 > len(raw) {
			return nil, dagerrors.ErrBlockMetadataLogIsMalformed
		}
		size := int(be32(raw[off : off+4]))
		off += 4
		if off+size > len(raw) {
			return nil, dagerrors.ErrBlockMetadataLogIsMalformed
		}
		m, err := dagtypes.DecodeBlockMetadata(raw[off : off+size])
		if err != nil {
			return nil, err
		}
		off += size

		key := m.BlockHash.Key()
		info.DataLookup[key] = m
		if _, ok := info.ChildMap[key]; !ok {
			info.ChildMap[key] = make(map[string]dagtypes.BlockHash)
		}
		for _, p := range m.Parents {
			pk := p.Key()
			if _, ok := info.ChildMap[pk]; !ok {
				info.ChildMap[pk] = make(map[string]dagtypes.BlockHash)
			}
			info.ChildMap[pk][key] = m.BlockHash
		}

		row := m.BlockNum - ckpt.Start
		if row < 0 || row >= int64(len(info.TopoSort)) {
			return nil, dagerrors.ErrDataLookupIsCorrupted
		}
		info.TopoSort[row] = append(info.TopoSort[row], m.BlockHash)
	}

	return info, nil
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// Write serializes metadatas (in the order given, which should be
// topo-sort order) into a fresh checkpoint file at path using the same
// bare framing loadFromDisk expects. This is exposed for tests and for any
// future checkpoint-rotation tooling (documented as a no-op operation in
// this engine, see Engine.Checkpoint).
func Write(path string, metadatas []*dagtypes.BlockMetadata) error {
	var size int
	encoded := make([][]byte, len(metadatas))
	for i, m := range metadatas {
		encoded[i] = dagtypes.EncodeBlockMetadata(m)
		size += 4 + len(encoded[i])
	}
	buf := make([]byte, 0, size)
	for _, e := range encoded {
		var lenBuf [4]byte
		putBE32(lenBuf[:], uint32(len(e)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, e...)
	}
	return os.WriteFile(path, buf, 0o644)
}

func putBE32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
