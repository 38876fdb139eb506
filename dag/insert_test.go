package dag_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/casperlabs/blockdag/dag"
)

func TestInsertBasicInvariants(t *testing.T) {
	e, _ := openEngine(t)
	genesis := genesisBlock()
	insert(t, e, genesis, genesis)

	a := childBlock(hash(1), 1, validator(1), hash(0))
	insert(t, e, genesis, a)

	rep := e.GetRepresentation()
	m, ok := rep.Lookup(hash(1))
	require.True(t, ok)
	require.Equal(t, int64(1), m.BlockNum)

	children, ok := rep.Children(hash(0))
	require.True(t, ok)
	require.Contains(t, children, hash(1).Key())

	require.True(t, rep.Contains(hash(1)))
	require.False(t, rep.Contains(hash(99)))

	lm, ok := rep.LatestMessageHash(validator(1))
	require.True(t, ok)
	require.Equal(t, hash(1), lm)
}

func TestInsertDuplicateIsNoOp(t *testing.T) {
	e, _ := openEngine(t)
	genesis := genesisBlock()
	insert(t, e, genesis, genesis)

	a := childBlock(hash(1), 1, validator(1), hash(0))
	first, err := e.Insert(context.Background(), a, genesis, false)
	require.NoError(t, err)

	second, err := e.Insert(context.Background(), a, genesis, false)
	require.NoError(t, err)

	m1, _ := first.Lookup(hash(1))
	m2, _ := second.Lookup(hash(1))
	require.Equal(t, m1, m2)
}

func TestInsertRejectsMalformedHash(t *testing.T) {
	e, _ := openEngine(t)
	genesis := genesisBlock()
	insert(t, e, genesis, genesis)

	bad := &dag.Block{BlockHash: []byte{1, 2, 3}, BlockNum: 1}
	_, err := e.Insert(context.Background(), bad, genesis, false)
	require.ErrorIs(t, err, dag.ErrBlockHashIsMalformed)

	rep := e.GetRepresentation()
	_, ok := rep.Lookup(genesis.BlockHash)
	require.True(t, ok)
}

func TestInsertRejectsMalformedSender(t *testing.T) {
	e, _ := openEngine(t)
	genesis := genesisBlock()
	insert(t, e, genesis, genesis)

	bad := &dag.Block{BlockHash: hash(1), BlockNum: 1, Sender: make([]byte, 17), Parents: []dag.BlockHash{hash(0)}}
	_, err := e.Insert(context.Background(), bad, genesis, false)
	var senderErr *dag.BlockSenderIsMalformedError
	require.ErrorAs(t, err, &senderErr)

	rep := e.GetRepresentation()
	_, ok := rep.Lookup(hash(1))
	require.False(t, ok)
}

func TestInsertInvalidBlockTracked(t *testing.T) {
	e, _ := openEngine(t)
	genesis := genesisBlock()
	insert(t, e, genesis, genesis)

	bad := childBlock(hash(1), 1, validator(1), hash(0))
	rep, err := e.Insert(context.Background(), bad, genesis, true)
	require.NoError(t, err)

	invalid := rep.InvalidBlocks()
	require.Contains(t, invalid, hash(1).Key())
}
