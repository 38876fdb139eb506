package dag_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	log "github.com/erigontech/erigon-lib/log/v3"

	"github.com/casperlabs/blockdag/dag"
)

func hash(b byte) dag.BlockHash {
	h := make(dag.BlockHash, 32)
	h[31] = b
	return h
}

func validator(b byte) dag.Validator {
	v := make(dag.Validator, 32)
	v[31] = b
	return v
}

func openEngine(t *testing.T) (*dag.Engine, dag.Config) {
	t.Helper()
	cfg := dag.DefaultConfig(t.TempDir())
	e, err := dag.Open(cfg, log.New())
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e, cfg
}

func genesisBlock() *dag.Block {
	return &dag.Block{
		BlockHash: hash(0),
		BlockNum:  0,
		Sender:    nil,
		Bonds: []dag.Bond{
			{Validator: validator(1), Stake: 100},
			{Validator: validator(2), Stake: 100},
		},
	}
}

func childBlock(h dag.BlockHash, num int64, sender dag.Validator, parents ...dag.BlockHash) *dag.Block {
	return &dag.Block{
		BlockHash: h,
		Parents:   parents,
		BlockNum:  num,
		Sender:    sender,
		Bonds: []dag.Bond{
			{Validator: validator(1), Stake: 100},
			{Validator: validator(2), Stake: 100},
		},
	}
}

func insert(t *testing.T, e *dag.Engine, genesis, block *dag.Block) *dag.Representation {
	t.Helper()
	rep, err := e.Insert(context.Background(), block, genesis, false)
	require.NoError(t, err)
	return rep
}

