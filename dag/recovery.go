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
	"encoding/binary"
	"fmt"

	"github.com/casperlabs/blockdag/dag/applog"
	"github.com/casperlabs/blockdag/dag/crc"
	"github.com/casperlabs/blockdag/dag/dagerrors"
	"github.com/casperlabs/blockdag/dag/dagtypes"
	"github.com/casperlabs/blockdag/dag/rafile"
)

// recoveredLog is the result of replaying one append log: the byte ranges
// of its individual records (always a prefix of the file, possibly missing
// a dangling final record dropped by recovery) plus the CRC the log should
// now report.
type recoveredLog struct {
	records   [][]byte
	validCRC  uint32
	validLen  int64
	truncated bool
}

// decideRecovery is the generic single-record tail-truncation decision
// shared by every log format. offsets holds the start of every record that
// parsed as syntactically complete, in order; fullLen is the byte offset
// right after the last such record (== len(raw) unless a dangling,
// unparseable tail remains).
//
// Two distinct crash windows are handled:
//   - a record's bytes never finished landing on disk: fullLen < len(raw),
//     the leftover bytes don't parse as a record at all, and the decodable
//     prefix is accepted unconditionally (a crash mid-append explains
//     exactly this).
//   - a record's bytes landed completely but its CRC commit never ran:
//     fullLen == len(raw) (everything parses), but CRC(raw) != stored;
//     dropping exactly the last parsed record and rechecking explains this.
//
// Anything else is corruption.
func decideRecovery(raw []byte, offsets []int, fullLen int, stored uint32, corrupted error) (validLen int64, validCRC uint32, truncated bool, err error) {
	if fullLen == len(raw) {
		full := crc.Of(raw)
		if full == stored {
			return int64(len(raw)), full, false, nil
		}
		if len(offsets) == 0 {
			return 0, 0, false, corrupted
		}
		lastStart := offsets[len(offsets)-1]
		withoutLast := crc.Of(raw[:lastStart])
		if withoutLast == stored {
			return int64(lastStart), withoutLast, true, nil
		}
		return 0, 0, false, corrupted
	}
	// Dangling unparseable tail: accept the decodable prefix as the new
	// truth regardless of what the stale stored CRC says.
	return int64(fullLen), crc.Of(raw[:fullLen]), true, nil
}

func sliceRecords(raw []byte, validLen int64) []byte {
	if raw == nil {
		return nil
	}
	return raw[:validLen]
}

// recoverFixedWidth replays a log whose every record is exactly width
// bytes (the latest-messages log, width = V+H).
func recoverFixedWidth(path, crcPath string, width int, corrupted error) (*recoveredLog, error) {
	raw, err := readAll(path)
	if err != nil {
		return nil, err
	}
	stored, err := applog.StoredCRC(crcPath)
	if err != nil {
		return nil, err
	}

	numFull := len(raw) / width
	offsets := make([]int, numFull)
	for i := 0; i < numFull; i++ {
		offsets[i] = i * width
	}
	fullLen := numFull * width

	validLen, validCRC, truncated, err := decideRecovery(raw, offsets, fullLen, stored, corrupted)
	if err != nil {
		return nil, err
	}
	kept := sliceRecords(raw, validLen)
	n := len(kept) / width
	records := make([][]byte, n)
	for i := 0; i < n; i++ {
		records[i] = kept[i*width : (i+1)*width]
	}
	return &recoveredLog{records: records, validCRC: validCRC, validLen: validLen, truncated: truncated}, nil
}

// recoverLengthPrefixed replays a log of `size:i32 || bytes[size]` records
// (block-metadata, invalid-blocks).
func recoverLengthPrefixed(path, crcPath string, corrupted error) (*recoveredLog, error) {
	raw, err := readAll(path)
	if err != nil {
		return nil, err
	}
	stored, err := applog.StoredCRC(crcPath)
	if err != nil {
		return nil, err
	}

	offsets, fullLen := scanLengthPrefixed(raw)
	validLen, validCRC, truncated, err := decideRecovery(raw, offsets, fullLen, stored, corrupted)
	if err != nil {
		return nil, err
	}
	kept := sliceRecords(raw, validLen)
	keptOffsets := offsets
	for len(keptOffsets) > 0 && int64(keptOffsets[len(keptOffsets)-1]) >= validLen {
		keptOffsets = keptOffsets[:len(keptOffsets)-1]
	}
	records := make([][]byte, len(keptOffsets))
	for i, start := range keptOffsets {
		size := int(binary.BigEndian.Uint32(kept[start : start+4]))
		records[i] = kept[start+4 : start+4+size]
	}
	return &recoveredLog{records: records, validCRC: validCRC, validLen: validLen, truncated: truncated}, nil
}

// scanLengthPrefixed walks raw as a sequence of `size:i32 || bytes[size]`
// records, returning the start offset of each complete record and the
// total length of bytes that parsed as complete records (a dangling
// partial record at the very end is excluded, not an error).
func scanLengthPrefixed(raw []byte) (offsets []int, fullLen int) {
	off := 0
	for off < len(raw) {
		if off+4 > len(raw) {
			break // dangling partial length prefix: not malformed, just a tail to drop
		}
		size := int(binary.BigEndian.Uint32(raw[off : off+4]))
		if off+4+size > len(raw) {
			break // dangling partial record body
		}
		offsets = append(offsets, off)
		off += 4 + size
	}
	return offsets, off
}

// recoverEquivocations replays `validator || seqNum:i32 || count:i32 ||
// hash*count` records and returns all of them in file order; the
// last-write-wins squash on (equivocator, baseSeqNum) happens in Open, when
// the records are installed into memory.
func recoverEquivocations(path, crcPath string, validatorLen, hashLen int) (*recoveredLog, error) {
	raw, err := readAll(path)
	if err != nil {
		return nil, err
	}
	stored, err := applog.StoredCRC(crcPath)
	if err != nil {
		return nil, err
	}

	offsets, fullLen := scanEquivocations(raw, validatorLen, hashLen)
	validLen, validCRC, truncated, err := decideRecovery(raw, offsets, fullLen, stored, dagerrors.ErrEquivocationsTrackerLogIsCorrupted)
	if err != nil {
		return nil, err
	}
	kept := sliceRecords(raw, validLen)
	keptOffsets := offsets
	for len(keptOffsets) > 0 && int64(keptOffsets[len(keptOffsets)-1]) >= validLen {
		keptOffsets = keptOffsets[:len(keptOffsets)-1]
	}
	records := make([][]byte, len(keptOffsets))
	for i, start := range keptOffsets {
		header := validatorLen + 8
		count := int(binary.BigEndian.Uint32(kept[start+validatorLen+4 : start+header]))
		recLen := header + count*hashLen
		records[i] = kept[start : start+recLen]
	}
	return &recoveredLog{records: records, validCRC: validCRC, validLen: validLen, truncated: truncated}, nil
}

func scanEquivocations(raw []byte, validatorLen, hashLen int) (offsets []int, fullLen int) {
	off := 0
	for off < len(raw) {
		header := validatorLen + 8
		if off+header > len(raw) {
			break
		}
		count := int(binary.BigEndian.Uint32(raw[off+validatorLen+4 : off+validatorLen+8]))
		recLen := header + count*hashLen
		if off+recLen > len(raw) {
			break
		}
		offsets = append(offsets, off)
		off += recLen
	}
	return offsets, off
}

// recoverDeployIndex replays `deploySize:i32 || deployId[deploySize] ||
// blockHash[H]` records.
func recoverDeployIndex(path, crcPath string, hashLen int) (*recoveredLog, error) {
	raw, err := readAll(path)
	if err != nil {
		return nil, err
	}
	stored, err := applog.StoredCRC(crcPath)
	if err != nil {
		return nil, err
	}

	offsets, fullLen := scanDeployIndex(raw, hashLen)
	validLen, validCRC, truncated, err := decideRecovery(raw, offsets, fullLen, stored, dagerrors.ErrBlockHashesByDeployLogIsCorrupted)
	if err != nil {
		return nil, err
	}
	kept := sliceRecords(raw, validLen)
	keptOffsets := offsets
	for len(keptOffsets) > 0 && int64(keptOffsets[len(keptOffsets)-1]) >= validLen {
		keptOffsets = keptOffsets[:len(keptOffsets)-1]
	}
	records := make([][]byte, len(keptOffsets))
	for i, start := range keptOffsets {
		deploySize := int(binary.BigEndian.Uint32(kept[start : start+4]))
		records[i] = kept[start : start+4+deploySize+hashLen]
	}
	return &recoveredLog{records: records, validCRC: validCRC, validLen: validLen, truncated: truncated}, nil
}

func scanDeployIndex(raw []byte, hashLen int) (offsets []int, fullLen int) {
	off := 0
	for off < len(raw) {
		if off+4 > len(raw) {
			break
		}
		deploySize := int(binary.BigEndian.Uint32(raw[off : off+4]))
		recLen := 4 + deploySize + hashLen
		if off+recLen > len(raw) {
			break
		}
		offsets = append(offsets, off)
		off += recLen
	}
	return offsets, off
}

// readAll reads a log file in full via the random-access file component,
// treating a missing file as empty (the log hasn't been created yet).
func readAll(path string) ([]byte, error) {
	f, err := rafile.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dag: open %s for recovery: %w", path, err)
	}
	defer f.Close()
	return f.ReadAll()
}

// truncateTo shortens the file at path to n bytes using the random-access
// file component's SetLength, the generic mechanism every log's recovery
// path uses to drop a dangling tail record.
func truncateTo(path string, n int64) error {
	f, err := rafile.Open(path)
	if err != nil {
		return fmt.Errorf("dag: reopen %s to truncate: %w", path, err)
	}
	defer f.Close()
	return f.SetLength(n)
}

func deployHashesDecode(records [][]byte, hashLen int) map[string]dagtypes.BlockHash {
	out := make(map[string]dagtypes.BlockHash, len(records))
	for _, rec := range records {
		deploySize := int(binary.BigEndian.Uint32(rec[0:4]))
		deployID := rec[4 : 4+deploySize]
		hash := dagtypes.BlockHash(append([]byte(nil), rec[4+deploySize:4+deploySize+hashLen]...))
		out[string(deployID)] = hash
	}
	return out
}
