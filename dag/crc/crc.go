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

// Package crc implements the incremental CRC32 accumulator shared by every
// append log in the DAG store. The accumulator's running value is IEEE
// CRC32, keyed to whatever bytes have been fed to it so far; it never reads
// the file itself.
package crc

import (
	"encoding/binary"
	"hash/crc32"
)

// Accumulator holds a running IEEE CRC32 value.
type Accumulator struct {
	value uint32
}

// New returns an accumulator seeded at zero, matching the CRC32 of an empty
// byte stream.
func New() *Accumulator {
	return &Accumulator{}
}

// FromDigest seeds an accumulator with a previously computed 32-bit value,
// used when resuming from a value read back out of a CRC file.
func FromDigest(value uint32) *Accumulator {
	return &Accumulator{value: value}
}

// Update folds b into the running checksum and returns the new value.
func (a *Accumulator) Update(b []byte) uint32 {
	a.value = crc32.Update(a.value, crc32.IEEETable, b)
	return a.value
}

// Value returns the current running checksum.
func (a *Accumulator) Value() uint32 {
	return a.value
}

// Digest8 returns the current checksum as an 8-byte big-endian value, the
// on-disk format of every *.crc sibling file (the top 4 bytes are always
// zero since CRC32 only occupies the low 32 bits).
func (a *Accumulator) Digest8() [8]byte {
	var out [8]byte
	binary.BigEndian.PutUint64(out[:], uint64(a.value))
	return out
}

// Of computes the CRC32 of buf in one shot, for verification paths that
// don't need to keep accumulating (e.g. checking a freshly read log).
func Of(buf []byte) uint32 {
	return crc32.ChecksumIEEE(buf)
}

// Decode8 reads a big-endian 8-byte CRC digest. Values that don't fit in 32
// bits (the high 4 bytes are non-zero) can never have been produced by this
// package and are reported via ok=false so callers can treat the sibling
// file as corrupt rather than silently truncating it.
func Decode8(b [8]byte) (value uint32, ok bool) {
	v := binary.BigEndian.Uint64(b[:])
	if v > uint64(^uint32(0)) {
		return 0, false
	}
	return uint32(v), true
}
