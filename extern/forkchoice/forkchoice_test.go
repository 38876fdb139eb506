package forkchoice_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	log "github.com/erigontech/erigon-lib/log/v3"

	"github.com/casperlabs/blockdag/dag"
	"github.com/casperlabs/blockdag/extern/forkchoice"
)

func testHash(b byte) dag.BlockHash {
	h := make(dag.BlockHash, 32)
	h[31] = b
	return h
}

func testValidator(b byte) dag.Validator {
	v := make(dag.Validator, 32)
	v[31] = b
	return v
}

func bonds() []dag.Bond {
	return []dag.Bond{
		{Validator: testValidator(1), Stake: 100},
		{Validator: testValidator(2), Stake: 10},
	}
}

func TestEstimateFollowsHeavierSubtree(t *testing.T) {
	cfg := dag.DefaultConfig(t.TempDir())
	e, err := dag.Open(cfg, log.New())
	require.NoError(t, err)
	defer e.Close()

	genesis := &dag.Block{BlockHash: testHash(0), BlockNum: 0, Bonds: bonds()}
	_, err = e.Insert(context.Background(), genesis, genesis, false)
	require.NoError(t, err)

	left := &dag.Block{BlockHash: testHash(1), Parents: []dag.BlockHash{testHash(0)}, BlockNum: 1, Sender: testValidator(2), Bonds: bonds()}
	_, err = e.Insert(context.Background(), left, genesis, false)
	require.NoError(t, err)

	right := &dag.Block{BlockHash: testHash(2), Parents: []dag.BlockHash{testHash(0)}, BlockNum: 1, Sender: testValidator(1), Bonds: bonds()}
	_, err = e.Insert(context.Background(), right, genesis, false)
	require.NoError(t, err)

	rep := e.GetRepresentation()
	tip, err := forkchoice.Estimate(rep, testHash(0), rep.LatestMessageHashes())
	require.NoError(t, err)
	require.Equal(t, testHash(2), tip)
}

func TestEstimateStopsAtLeaf(t *testing.T) {
	cfg := dag.DefaultConfig(t.TempDir())
	e, err := dag.Open(cfg, log.New())
	require.NoError(t, err)
	defer e.Close()

	genesis := &dag.Block{BlockHash: testHash(0), BlockNum: 0, Bonds: bonds()}
	_, err = e.Insert(context.Background(), genesis, genesis, false)
	require.NoError(t, err)

	rep := e.GetRepresentation()
	tip, err := forkchoice.Estimate(rep, testHash(0), rep.LatestMessageHashes())
	require.NoError(t, err)
	require.Equal(t, testHash(0), tip)
}
