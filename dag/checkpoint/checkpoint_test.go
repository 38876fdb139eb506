package checkpoint_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	log "github.com/erigontech/erigon-lib/log/v3"

	"github.com/casperlabs/blockdag/dag/checkpoint"
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

func TestListSortsAndValidatesConsecutive(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0-10", "10-20", "20-30"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	got, err := checkpoint.List(dir, log.New())
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, int64(0), got[0].Start)
	require.Equal(t, int64(30), got[2].End)
}

func TestListIgnoresUnrecognizedNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0-10"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), nil, 0o644))
	got, err := checkpoint.List(dir, log.New())
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestListRejectsNonZeroStart(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "10-20"), nil, 0o644))
	_, err := checkpoint.List(dir, log.New())
	require.Error(t, err)
}

func TestListRejectsGap(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0-10"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20-30"), nil, 0o644))
	_, err := checkpoint.List(dir, log.New())
	require.Error(t, err)
}

func TestListMissingDirReturnsEmpty(t *testing.T) {
	got, err := checkpoint.List(filepath.Join(t.TempDir(), "does-not-exist"), log.New())
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestLoaderReconstructsChildMapAndTopoSort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "0-2")

	root := &dagtypes.BlockMetadata{BlockHash: hash(1), BlockNum: 0, Sender: validator(1)}
	child := &dagtypes.BlockMetadata{BlockHash: hash(2), Parents: []dagtypes.BlockHash{hash(1)}, BlockNum: 1, Sender: validator(2)}
	require.NoError(t, checkpoint.Write(path, []*dagtypes.BlockMetadata{root, child}))

	loader, err := checkpoint.NewLoader(4, 32, 32, log.New(), nil)
	require.NoError(t, err)

	info, err := loader.Load(context.Background(), dagtypes.Checkpoint{Start: 0, End: 2, Path: path})
	require.NoError(t, err)
	require.Len(t, info.DataLookup, 2)
	require.Contains(t, info.ChildMap[hash(1).Key()], hash(2).Key())
	require.Equal(t, []dagtypes.BlockHash{hash(1)}, info.TopoSort[0])
	require.Equal(t, []dagtypes.BlockHash{hash(2)}, info.TopoSort[1])
}

func TestLoaderCachesAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "0-1")
	m := &dagtypes.BlockMetadata{BlockHash: hash(1), BlockNum: 0, Sender: validator(1)}
	require.NoError(t, checkpoint.Write(path, []*dagtypes.BlockMetadata{m}))

	loader, err := checkpoint.NewLoader(4, 32, 32, log.New(), nil)
	require.NoError(t, err)
	ckpt := dagtypes.Checkpoint{Start: 0, End: 1, Path: path}

	first, err := loader.Load(context.Background(), ckpt)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	second, err := loader.Load(context.Background(), ckpt)
	require.NoError(t, err)
	require.Same(t, first, second)
}
