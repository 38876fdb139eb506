package dagtypes_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/casperlabs/blockdag/dag/dagtypes"
)

func hash(b byte) dagtypes.BlockHash {
	h := make(dagtypes.BlockHash, 32)
	h[31] = b
	return h
}

func validator(b byte) dagtypes.Validator {
	v := make(dagtypes.Validator, 32)
	v[31] = b
	return v
}

func TestBlockMetadataRoundTrip(t *testing.T) {
	m := &dagtypes.BlockMetadata{
		BlockHash: hash(1),
		Parents:   []dagtypes.BlockHash{hash(2), hash(3)},
		BlockNum:  7,
		SeqNum:    3,
		Sender:    validator(9),
		Justifications: []dagtypes.Justification{
			{Validator: validator(1), BlockHash: hash(4)},
		},
		Bonds: []dagtypes.Bond{
			{Validator: validator(1), Stake: 100},
			{Validator: validator(2), Stake: 200},
		},
		Invalid: true,
	}
	encoded := dagtypes.EncodeBlockMetadata(m)
	decoded, err := dagtypes.DecodeBlockMetadata(encoded)
	require.NoError(t, err)
	require.Equal(t, m, decoded)

	// Deterministic: re-encoding the decoded value reproduces the same bytes.
	require.Equal(t, encoded, dagtypes.EncodeBlockMetadata(decoded))
}

func TestBlockMetadataRoundTripEmptyFields(t *testing.T) {
	m := &dagtypes.BlockMetadata{
		BlockHash: hash(1),
		BlockNum:  0,
		Sender:    nil,
	}
	encoded := dagtypes.EncodeBlockMetadata(m)
	decoded, err := dagtypes.DecodeBlockMetadata(encoded)
	require.NoError(t, err)
	require.Equal(t, dagtypes.BlockHash(nil).String(), decoded.Sender.String())
	require.Len(t, decoded.Parents, 0)
}

func TestEquivocationRecordRoundTrip(t *testing.T) {
	r := &dagtypes.EquivocationRecord{
		Equivocator:            validator(5),
		EquivocationBaseSeqNum: 12,
		DetectedBlockHashes: map[string]dagtypes.BlockHash{
			hash(1).Key(): hash(1),
			hash(2).Key(): hash(2),
		},
	}
	encoded := dagtypes.EncodeEquivocationRecord(r)
	decoded, err := dagtypes.DecodeEquivocationRecord(encoded, 32, 32)
	require.NoError(t, err)
	require.Equal(t, r.Equivocator, decoded.Equivocator)
	require.Equal(t, r.EquivocationBaseSeqNum, decoded.EquivocationBaseSeqNum)
	require.Equal(t, r.DetectedBlockHashes, decoded.DetectedBlockHashes)
}

func TestEquivocationRecordDecodeTooShort(t *testing.T) {
	_, err := dagtypes.DecodeEquivocationRecord([]byte{1, 2, 3}, 32, 32)
	require.Error(t, err)
}

func TestWithHashAddsWithoutMutatingOriginal(t *testing.T) {
	r := &dagtypes.EquivocationRecord{
		Equivocator:            validator(5),
		EquivocationBaseSeqNum: 1,
		DetectedBlockHashes:    map[string]dagtypes.BlockHash{hash(1).Key(): hash(1)},
	}
	r2 := r.WithHash(hash(2))
	require.Len(t, r.DetectedBlockHashes, 1)
	require.Len(t, r2.DetectedBlockHashes, 2)
	require.Equal(t, r.Key(), r2.Key())
}
