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

package dagtypes

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

func putUint32Prefixed(buf *bytes.Buffer, b []byte) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf.Write(lenBuf[:])
	buf.Write(b)
}

func readUint32Prefixed(r *bytes.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := r.Read(lenBuf[:]); err != nil {
		return nil, fmt.Errorf("codec: read length prefix: %w", err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	out := make([]byte, n)
	if n > 0 {
		if _, err := readFull(r, out); err != nil {
			return nil, fmt.Errorf("codec: read %d-byte field: %w", n, err)
		}
	}
	return out, nil
}

func readFull(r *bytes.Reader, out []byte) (int, error) {
	total := 0
	for total < len(out) {
		n, err := r.Read(out[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// EncodeBlockMetadata produces the total, deterministic byte encoding used
// by the block-metadata log and by checkpoint files.
//
// Layout (all integers big-endian):
//
//	blockHash       : uint32-prefixed
//	numParents:u32  | (parent: uint32-prefixed)*
//	blockNum        : int64
//	seqNum          : int32
//	sender          : uint32-prefixed
//	numJust:u32     | (justValidator: uint32-prefixed, justHash: uint32-prefixed)*
//	numBonds:u32    | (bondValidator: uint32-prefixed, stake: int64)*
//	invalid         : 1 byte, 0 or 1
func EncodeBlockMetadata(m *BlockMetadata) []byte {
	var buf bytes.Buffer
	putUint32Prefixed(&buf, m.BlockHash)

	var n32 [4]byte
	binary.BigEndian.PutUint32(n32[:], uint32(len(m.Parents)))
	buf.Write(n32[:])
	for _, p := range m.Parents {
		putUint32Prefixed(&buf, p)
	}

	var i64 [8]byte
	binary.BigEndian.PutUint64(i64[:], uint64(m.BlockNum))
	buf.Write(i64[:])

	var i32 [4]byte
	binary.BigEndian.PutUint32(i32[:], uint32(m.SeqNum))
	buf.Write(i32[:])

	putUint32Prefixed(&buf, m.Sender)

	binary.BigEndian.PutUint32(n32[:], uint32(len(m.Justifications)))
	buf.Write(n32[:])
	for _, j := range m.Justifications {
		putUint32Prefixed(&buf, j.Validator)
		putUint32Prefixed(&buf, j.BlockHash)
	}

	binary.BigEndian.PutUint32(n32[:], uint32(len(m.Bonds)))
	buf.Write(n32[:])
	for _, b := range m.Bonds {
		putUint32Prefixed(&buf, b.Validator)
		binary.BigEndian.PutUint64(i64[:], uint64(b.Stake))
		buf.Write(i64[:])
	}

	if m.Invalid {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

// DecodeBlockMetadata is the inverse of EncodeBlockMetadata.
func DecodeBlockMetadata(b []byte) (*BlockMetadata, error) {
	r := bytes.NewReader(b)
	m := &BlockMetadata{}

	hash, err := readUint32Prefixed(r)
	if err != nil {
		return nil, fmt.Errorf("codec: block hash: %w", err)
	}
	m.BlockHash = hash

	var n32 [4]byte
	if _, err := readFull(r, n32[:]); err != nil {
		return nil, fmt.Errorf("codec: parent count: %w", err)
	}
	numParents := binary.BigEndian.Uint32(n32[:])
	m.Parents = make([]BlockHash, numParents)
	for i := range m.Parents {
		p, err := readUint32Prefixed(r)
		if err != nil {
			return nil, fmt.Errorf("codec: parent %d: %w", i, err)
		}
		m.Parents[i] = p
	}

	var i64 [8]byte
	if _, err := readFull(r, i64[:]); err != nil {
		return nil, fmt.Errorf("codec: block num: %w", err)
	}
	m.BlockNum = int64(binary.BigEndian.Uint64(i64[:]))

	var i32 [4]byte
	if _, err := readFull(r, i32[:]); err != nil {
		return nil, fmt.Errorf("codec: seq num: %w", err)
	}
	m.SeqNum = int32(binary.BigEndian.Uint32(i32[:]))

	sender, err := readUint32Prefixed(r)
	if err != nil {
		return nil, fmt.Errorf("codec: sender: %w", err)
	}
	m.Sender = sender

	if _, err := readFull(r, n32[:]); err != nil {
		return nil, fmt.Errorf("codec: justification count: %w", err)
	}
	numJust := binary.BigEndian.Uint32(n32[:])
	m.Justifications = make([]Justification, numJust)
	for i := range m.Justifications {
		v, err := readUint32Prefixed(r)
		if err != nil {
			return nil, fmt.Errorf("codec: justification %d validator: %w", i, err)
		}
		h, err := readUint32Prefixed(r)
		if err != nil {
			return nil, fmt.Errorf("codec: justification %d hash: %w", i, err)
		}
		m.Justifications[i] = Justification{Validator: v, BlockHash: h}
	}

	if _, err := readFull(r, n32[:]); err != nil {
		return nil, fmt.Errorf("codec: bond count: %w", err)
	}
	numBonds := binary.BigEndian.Uint32(n32[:])
	m.Bonds = make([]Bond, numBonds)
	for i := range m.Bonds {
		v, err := readUint32Prefixed(r)
		if err != nil {
			return nil, fmt.Errorf("codec: bond %d validator: %w", i, err)
		}
		if _, err := readFull(r, i64[:]); err != nil {
			return nil, fmt.Errorf("codec: bond %d stake: %w", i, err)
		}
		m.Bonds[i] = Bond{Validator: v, Stake: int64(binary.BigEndian.Uint64(i64[:]))}
	}

	invalidByte, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("codec: invalid flag: %w", err)
	}
	m.Invalid = invalidByte != 0

	return m, nil
}

// EncodeEquivocationRecord serializes r as:
// equivocator || seqNum:i32 || count:i32 || hash*count
func EncodeEquivocationRecord(r *EquivocationRecord) []byte {
	var buf bytes.Buffer
	buf.Write(r.Equivocator)

	var i32 [4]byte
	binary.BigEndian.PutUint32(i32[:], uint32(r.EquivocationBaseSeqNum))
	buf.Write(i32[:])

	binary.BigEndian.PutUint32(i32[:], uint32(len(r.DetectedBlockHashes)))
	buf.Write(i32[:])
	for _, h := range sortedHashes(r.DetectedBlockHashes) {
		buf.Write(h)
	}
	return buf.Bytes()
}

// DecodeEquivocationRecord decodes the format produced by
// EncodeEquivocationRecord, given the fixed validator length V and hash
// length H (both required since the format carries no internal length
// prefixes for these fixed-width fields).
func DecodeEquivocationRecord(b []byte, validatorLen, hashLen int) (*EquivocationRecord, error) {
	want := validatorLen + 8
	if len(b) < want {
		return nil, fmt.Errorf("codec: equivocation record too short: have %d want at least %d", len(b), want)
	}
	equivocator := append([]byte(nil), b[:validatorLen]...)
	rest := b[validatorLen:]
	seqNum := int32(binary.BigEndian.Uint32(rest[0:4]))
	count := binary.BigEndian.Uint32(rest[4:8])
	rest = rest[8:]
	if len(rest) != int(count)*hashLen {
		return nil, fmt.Errorf("codec: equivocation record hash list length mismatch: have %d want %d", len(rest), int(count)*hashLen)
	}
	hashes := make(map[string]BlockHash, count)
	for i := 0; i < int(count); i++ {
		h := append([]byte(nil), rest[i*hashLen:(i+1)*hashLen]...)
		hashes[BlockHash(h).Key()] = h
	}
	return &EquivocationRecord{
		Equivocator:            equivocator,
		EquivocationBaseSeqNum: seqNum,
		DetectedBlockHashes:    hashes,
	}, nil
}

// sortedHashes returns the hashes of m in ascending byte order, so encoding
// is deterministic regardless of Go's randomized map iteration order.
func sortedHashes(m map[string]BlockHash) []BlockHash {
	out := make([]BlockHash, 0, len(m))
	for _, h := range m {
		out = append(out, h)
	}
	// insertion sort is fine: records carry at most a handful of hashes.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && bytes.Compare(out[j-1], out[j]) > 0; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
