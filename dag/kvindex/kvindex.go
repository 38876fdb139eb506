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

// Package kvindex is the block-hash -> block-number index: an ordered
// byte-buffer -> byte-buffer store with transactional Get/Put/Drop, backed
// by MDBX. Recovery of this index is entirely delegated to MDBX's own
// copy-on-write b-tree and dual meta-page commit protocol; the DAG engine
// never CRC-checks it directly.
package kvindex

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/erigontech/mdbx-go/mdbx"
)

// schemaVersionKey stores a single marker value so an incompatible future
// index layout fails fast on open instead of silently misreading keys,
// mirroring erigon-lib/kv/tables.go's DBSchemaVersion convention.
var schemaVersionKey = []byte("__blockdag_index_schema_version__")

const currentSchemaVersion uint32 = 1

const tableName = "block_number_by_hash"

// ErrSchemaVersionMismatch is returned by Open when an existing index
// directory was written by an incompatible schema version.
type ErrSchemaVersionMismatch struct {
	Found, Want uint32
}

func (e *ErrSchemaVersionMismatch) Error() string {
	return fmt.Sprintf("kvindex: schema version mismatch: found %d, want %d", e.Found, e.Want)
}

// Config holds the LMDB/MDBX-style environment tuning knobs named in the
// specification.
type Config struct {
	// MapSize is the maximum size, in bytes, the memory-mapped environment
	// may grow to.
	MapSize int64
	// MaxDBs is the maximum number of named sub-databases.
	MaxDBs uint64
	// MaxReaders is the maximum number of concurrent read transactions.
	MaxReaders uint64
	// NoTLS disables the LMDB-style thread-local-storage slot reservation
	// for read transactions, allowing readers to be used from goroutines
	// that migrate across OS threads. Kept for configuration-surface parity
	// with the originating LMDB deployment even though MDBX's own
	// transaction model no longer strictly requires it.
	NoTLS bool
}

// DefaultConfig returns reasonable defaults for a single-writer node.
func DefaultConfig() Config {
	return Config{
		MapSize:    1 << 30, // 1 GiB
		MaxDBs:     4,
		MaxReaders: 128,
		NoTLS:      true,
	}
}

// Index is the block-hash -> block-number key-value store.
type Index struct {
	dir string
	cfg Config
	env *mdbx.Env
	dbi mdbx.DBI
}

// Open creates (if absent) and opens the MDBX environment rooted at dir.
func Open(dir string, cfg Config) (*Index, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("kvindex: mkdir %s: %w", dir, err)
	}
	env, err := mdbx.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("kvindex: new env: %w", err)
	}
	if err := env.SetOption(mdbx.OptMaxDB, cfg.MaxDBs); err != nil {
		env.Close()
		return nil, fmt.Errorf("kvindex: set max dbs: %w", err)
	}
	if err := env.SetOption(mdbx.OptMaxReaders, cfg.MaxReaders); err != nil {
		env.Close()
		return nil, fmt.Errorf("kvindex: set max readers: %w", err)
	}
	if err := env.SetGeometry(-1, -1, int(cfg.MapSize), -1, -1, -1); err != nil {
		env.Close()
		return nil, fmt.Errorf("kvindex: set geometry: %w", err)
	}

	var flags uint
	if cfg.NoTLS {
		flags |= mdbx.NoTLS
	}
	if err := env.Open(dir, flags, 0o644); err != nil {
		env.Close()
		return nil, fmt.Errorf("kvindex: open %s: %w", dir, err)
	}

	idx := &Index{dir: dir, cfg: cfg, env: env}
	if err := idx.openTableAndCheckSchema(); err != nil {
		env.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) openTableAndCheckSchema() error {
	return idx.env.Update(func(txn *mdbx.Txn) error {
		dbi, err := txn.OpenDBI(tableName, mdbx.Create, nil, nil)
		if err != nil {
			return fmt.Errorf("kvindex: open table %s: %w", tableName, err)
		}
		idx.dbi = dbi

		existing, err := txn.Get(dbi, schemaVersionKey)
		if err != nil {
			if !mdbx.IsNotFound(err) {
				return fmt.Errorf("kvindex: read schema version: %w", err)
			}
			var buf [4]byte
			binary.BigEndian.PutUint32(buf[:], currentSchemaVersion)
			return txn.Put(dbi, schemaVersionKey, buf[:], 0)
		}
		if len(existing) != 4 {
			return &ErrSchemaVersionMismatch{Found: 0, Want: currentSchemaVersion}
		}
		found := binary.BigEndian.Uint32(existing)
		if found != currentSchemaVersion {
			return &ErrSchemaVersionMismatch{Found: found, Want: currentSchemaVersion}
		}
		return nil
	})
}

// Get fetches the value for key. ok is false if the key is absent.
func (idx *Index) Get(key []byte) (value []byte, ok bool, err error) {
	err = idx.env.View(func(txn *mdbx.Txn) error {
		v, getErr := txn.Get(idx.dbi, key)
		if getErr != nil {
			if mdbx.IsNotFound(getErr) {
				return nil
			}
			return getErr
		}
		value = append([]byte(nil), v...)
		ok = true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("kvindex: get: %w", err)
	}
	return value, ok, nil
}

// Put stores key -> value, overwriting any existing value.
func (idx *Index) Put(key, value []byte) error {
	err := idx.env.Update(func(txn *mdbx.Txn) error {
		return txn.Put(idx.dbi, key, value, 0)
	})
	if err != nil {
		return fmt.Errorf("kvindex: put: %w", err)
	}
	return nil
}

// Drop empties the table (but keeps the environment and table handle open),
// used by Engine.Clear.
func (idx *Index) Drop() error {
	err := idx.env.Update(func(txn *mdbx.Txn) error {
		return txn.Drop(idx.dbi, false)
	})
	if err != nil {
		return fmt.Errorf("kvindex: drop: %w", err)
	}
	return idx.openTableAndCheckSchema()
}

// Close releases the MDBX environment.
func (idx *Index) Close() error {
	idx.env.Close()
	return nil
}

// EncodeBlockNumber encodes a block number the same way across every
// writer/reader of this index: big-endian int64.
func EncodeBlockNumber(n int64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	return buf[:]
}

// DecodeBlockNumber is the inverse of EncodeBlockNumber.
func DecodeBlockNumber(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("kvindex: malformed block number value (len=%d)", len(b))
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}
