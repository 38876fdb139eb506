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

// Package rafile wraps an *os.File opened for positioned reads and writes,
// the primitive recovery is built on: read fixed-width fields at an offset,
// and truncate a partially-written tail.
package rafile

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// File is a positioned read/write handle over a single on-disk file.
type File struct {
	f *os.File
}

// Open opens path for read/write, creating it if absent.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("rafile: open %s: %w", path, err)
	}
	return &File{f: f}, nil
}

// ReadFully reads exactly len(buf) bytes starting at off, failing with
// io.ErrUnexpectedEOF if the file is shorter than off+len(buf). Callers use
// this to detect a truncated/partial record at the tail of a log.
func (f *File) ReadFully(off int64, buf []byte) error {
	n, err := f.f.ReadAt(buf, off)
	if err != nil {
		if err == io.EOF && n == len(buf) {
			return nil
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return io.ErrUnexpectedEOF
		}
		return fmt.Errorf("rafile: read at %d: %w", off, err)
	}
	return nil
}

// ReadInt32 reads a big-endian int32 at off.
func (f *File) ReadInt32(off int64) (int32, error) {
	var buf [4]byte
	if err := f.ReadFully(off, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil
}

// ReadInt64 reads a big-endian int64 at off.
func (f *File) ReadInt64(off int64) (int64, error) {
	var buf [8]byte
	if err := f.ReadFully(off, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(buf[:])), nil
}

// Length returns the current file size.
func (f *File) Length() (int64, error) {
	fi, err := f.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("rafile: stat: %w", err)
	}
	return fi.Size(), nil
}

// SetLength truncates (or, in principle, extends) the file to exactly n
// bytes. Used during recovery to drop a partially-written tail record.
func (f *File) SetLength(n int64) error {
	if err := f.f.Truncate(n); err != nil {
		return fmt.Errorf("rafile: truncate to %d: %w", n, err)
	}
	return nil
}

// ReadAll reads the full current contents of the file.
func (f *File) ReadAll() ([]byte, error) {
	n, err := f.Length()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if err := f.ReadFully(0, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Close closes the underlying OS handle.
func (f *File) Close() error {
	return f.f.Close()
}
