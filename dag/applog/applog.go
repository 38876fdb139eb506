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

// Package applog implements a bounded append-only byte stream paired with a
// sibling CRC file. The CRC file's atomic replacement is the commit point
// for every append: a crash between the data write and the CRC rename
// leaves the data file with an uncommitted tail that recovery (package dag)
// detects and truncates.
package applog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/casperlabs/blockdag/dag/crc"
)

// Log is an append-only file with a sibling "<path>.crc" file tracking the
// running CRC32 of everything appended so far.
type Log struct {
	path    string
	crcPath string
	f       *os.File
	acc     *crc.Accumulator
}

// Open opens (creating if absent) the log at path and records crcPath as
// its CRC sibling. The in-memory accumulator starts at zero; the digest on
// disk is neither read nor validated here — that is recovery's job
// (package dag), which reads the log and StoredCRC, decides whether to
// truncate, and then reseeds the accumulator via Reconcile.
func Open(path, crcPath string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("applog: open %s: %w", path, err)
	}
	l := &Log{path: path, crcPath: crcPath, f: f, acc: crc.New()}
	return l, nil
}

// Path returns the data file's path.
func (l *Log) Path() string { return l.path }

// CRCPath returns the sibling CRC file's path.
func (l *Log) CRCPath() string { return l.crcPath }

// SeedCRC resets the in-memory accumulator to value, used by recovery once
// it has decided the authoritative prefix of the log and computed its CRC.
func (l *Log) SeedCRC(value uint32) {
	l.acc = crc.FromDigest(value)
}

// Append writes b to the end of the log, flushes it to the OS, updates the
// running CRC, and atomically commits the new CRC to the sibling file. This
// is the sole commit point: Append either fully lands (data + CRC both on
// disk) or a subsequent recovery pass truncates the dangling data tail.
func (l *Log) Append(b []byte) error {
	if _, err := l.f.Write(b); err != nil {
		return fmt.Errorf("applog: write %s: %w", l.path, err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("applog: sync %s: %w", l.path, err)
	}
	l.acc.Update(b)
	return l.commitCRC()
}

// commitCRC writes the accumulator's current digest to a temp file in the
// same directory as crcPath and atomically renames it into place.
func (l *Log) commitCRC() error {
	digest := l.acc.Digest8()
	tmp := l.crcPath + ".tmp"
	if err := os.WriteFile(tmp, digest[:], 0o644); err != nil {
		return fmt.Errorf("applog: write temp crc %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, l.crcPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("applog: commit crc %s: %w", l.crcPath, err)
	}
	return nil
}

// Reconcile reseeds the accumulator to value and rewrites the CRC file to
// match, without touching the data file. Used by recovery once it has
// decided the authoritative length of an already-truncated log and needs
// the CRC sibling to agree with it.
func (l *Log) Reconcile(value uint32) error {
	l.SeedCRC(value)
	return l.commitCRC()
}

// StoredCRC reads the sibling CRC file. A missing, empty, or short (< 8
// byte) file is tolerated and reported as (0, nil) — the caller treats that
// as "no checksum recorded yet", matching a log that was just created. A
// digest whose high 4 bytes are non-zero (rejected by crc.Decode8) is also
// reported as (0, nil), not as an error.
func StoredCRC(crcPath string) (uint32, error) {
	b, err := os.ReadFile(crcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("applog: read crc %s: %w", crcPath, err)
	}
	if len(b) < 8 {
		return 0, nil
	}
	var arr [8]byte
	copy(arr[:], b[len(b)-8:])
	v, ok := crc.Decode8(arr)
	if !ok {
		return 0, nil
	}
	return v, nil
}

// Truncate shortens the underlying file to n bytes, seeks to its new end
// for further appends, and reseeds the CRC accumulator to match the retained prefix.
// Used by recovery to drop a single dangling tail record.
func (l *Log) Truncate(n int64, retainedCRC uint32) error {
	if err := l.f.Truncate(n); err != nil {
		return fmt.Errorf("applog: truncate %s to %d: %w", l.path, n, err)
	}
	if _, err := l.f.Seek(0, os.SEEK_END); err != nil {
		return fmt.Errorf("applog: seek %s: %w", l.path, err)
	}
	l.SeedCRC(retainedCRC)
	return l.commitCRC()
}

// Rewrite replaces the log's contents wholesale with data, via a temp file
// plus sibling CRC temp file, both atomically renamed into place, then
// reopens the log for further appends. Used by latest-messages squashing.
func Rewrite(path, crcPath string, data []byte) (*Log, error) {
	dir := filepath.Dir(path)
	tmpData, err := os.CreateTemp(dir, filepath.Base(path)+".squash-*")
	if err != nil {
		return nil, fmt.Errorf("applog: create temp data file: %w", err)
	}
	tmpDataPath := tmpData.Name()
	if _, err := tmpData.Write(data); err != nil {
		tmpData.Close()
		os.Remove(tmpDataPath)
		return nil, fmt.Errorf("applog: write temp data file: %w", err)
	}
	if err := tmpData.Sync(); err != nil {
		tmpData.Close()
		os.Remove(tmpDataPath)
		return nil, fmt.Errorf("applog: sync temp data file: %w", err)
	}
	if err := tmpData.Close(); err != nil {
		os.Remove(tmpDataPath)
		return nil, fmt.Errorf("applog: close temp data file: %w", err)
	}

	digest := crc.Of(data)
	var arr [8]byte
	acc := crc.FromDigest(digest)
	arr = acc.Digest8()
	tmpCRCPath := crcPath + ".squash.tmp"
	if err := os.WriteFile(tmpCRCPath, arr[:], 0o644); err != nil {
		os.Remove(tmpDataPath)
		return nil, fmt.Errorf("applog: write temp crc file: %w", err)
	}

	// Commit data first, then CRC: on crash between the two renames,
	// recovery sees an old-but-consistent (data, crc) pair or a
	// new-data/old-crc mismatch it can repair by tail truncation against the
	// *new* data, same as any other partial-append crash window.
	if err := os.Rename(tmpDataPath, path); err != nil {
		os.Remove(tmpDataPath)
		os.Remove(tmpCRCPath)
		return nil, fmt.Errorf("applog: commit squashed data file: %w", err)
	}
	if err := os.Rename(tmpCRCPath, crcPath); err != nil {
		os.Remove(tmpCRCPath)
		return nil, fmt.Errorf("applog: commit squashed crc file: %w", err)
	}

	l, err := Open(path, crcPath)
	if err != nil {
		return nil, err
	}
	l.SeedCRC(digest)
	return l, nil
}

// Close closes the underlying OS handle.
func (l *Log) Close() error {
	return l.f.Close()
}

// Clear truncates the log to empty and resets its CRC files/accumulator.
func (l *Log) Clear() error {
	if err := l.f.Truncate(0); err != nil {
		return fmt.Errorf("applog: clear %s: %w", l.path, err)
	}
	if _, err := l.f.Seek(0, os.SEEK_SET); err != nil {
		return fmt.Errorf("applog: seek %s: %w", l.path, err)
	}
	l.acc = crc.New()
	return l.commitCRC()
}
