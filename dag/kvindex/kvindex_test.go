package kvindex_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/casperlabs/blockdag/dag/kvindex"
)

func TestPutGetRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "idx")
	idx, err := kvindex.Open(dir, kvindex.DefaultConfig())
	require.NoError(t, err)
	defer idx.Close()

	key := []byte("block-hash-aaaa")
	val := kvindex.EncodeBlockNumber(42)
	require.NoError(t, idx.Put(key, val))

	got, ok, err := idx.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	n, err := kvindex.DecodeBlockNumber(got)
	require.NoError(t, err)
	require.Equal(t, int64(42), n)
}

func TestGetMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "idx")
	idx, err := kvindex.Open(dir, kvindex.DefaultConfig())
	require.NoError(t, err)
	defer idx.Close()

	_, ok, err := idx.Get([]byte("nope"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDropClearsEntries(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "idx")
	idx, err := kvindex.Open(dir, kvindex.DefaultConfig())
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Put([]byte("k"), kvindex.EncodeBlockNumber(1)))
	require.NoError(t, idx.Drop())

	_, ok, err := idx.Get([]byte("k"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReopenPreservesData(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "idx")
	idx, err := kvindex.Open(dir, kvindex.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, idx.Put([]byte("k"), kvindex.EncodeBlockNumber(7)))
	require.NoError(t, idx.Close())

	idx2, err := kvindex.Open(dir, kvindex.DefaultConfig())
	require.NoError(t, err)
	defer idx2.Close()

	got, ok, err := idx2.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, ok)
	n, err := kvindex.DecodeBlockNumber(got)
	require.NoError(t, err)
	require.Equal(t, int64(7), n)
}
