package dag_test

import (
	"context"
	"os"
	"testing"

	"pgregory.net/rapid"

	log "github.com/erigontech/erigon-lib/log/v3"

	"github.com/casperlabs/blockdag/dag"
	"github.com/casperlabs/blockdag/dag/applog"
	"github.com/casperlabs/blockdag/dag/crc"
)

// genChain builds a random linear chain of n blocks on top of genesis, each
// signed by one of a small fixed validator set, satisfying
// parent-before-child by construction.
func genChain(rt *rapid.T, n int) []*dag.Block {
	validators := []dag.Validator{validator(1), validator(2), validator(3)}
	blocks := make([]*dag.Block, n)
	prev := hash(0)
	for i := 0; i < n; i++ {
		sender := validators[rapid.IntRange(0, len(validators)-1).Draw(rt, "senderIdx")]
		h := hash(byte(10 + i))
		blocks[i] = childBlock(h, int64(i+1), sender, prev)
		prev = h
	}
	return blocks
}

// Invariant 1: after inserting a parent-before-child sequence, every
// inserted block is in dataLookup with its own number and is listed in its
// parent's childMap entry, and the last block's sender has that block as
// its latest message. topoSort and the block-number index are not checked
// here.
func TestPropertyCrossLogConsistency(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cfg := dag.DefaultConfig(t.TempDir())
		e, err := dag.Open(cfg, log.New())
		if err != nil {
			rt.Fatal(err)
		}
		defer e.Close()

		genesis := genesisBlock()
		if _, err := e.Insert(context.Background(), genesis, genesis, false); err != nil {
			rt.Fatal(err)
		}

		n := rapid.IntRange(0, 12).Draw(rt, "n")
		blocks := genChain(rt, n)
		for _, b := range blocks {
			if _, err := e.Insert(context.Background(), b, genesis, false); err != nil {
				rt.Fatal(err)
			}
		}

		rep := e.GetRepresentation()
		for _, b := range blocks {
			m, ok := rep.Lookup(b.BlockHash)
			if !ok {
				rt.Fatalf("block %x missing from dataLookup", b.BlockHash)
			}
			if m.BlockNum != b.BlockNum {
				rt.Fatalf("block %x has wrong number: got %d want %d", b.BlockHash, m.BlockNum, b.BlockNum)
			}
			children, ok := rep.Children(b.Parents[0])
			if !ok {
				rt.Fatalf("parent %x has no child map entry", b.Parents[0])
			}
			found := false
			for _, c := range children {
				if c.Key() == b.BlockHash.Key() {
					found = true
				}
			}
			if !found {
				rt.Fatalf("child %x missing from parent %x's child map", b.BlockHash, b.Parents[0])
			}
		}
		if len(blocks) > 0 {
			last := blocks[len(blocks)-1]
			lm, ok := rep.LatestMessageHash(last.Sender)
			if !ok || lm.Key() != last.BlockHash.Key() {
				rt.Fatalf("latest message for %x not updated to %x", last.Sender, last.BlockHash)
			}
		}
	})
}

// Invariant 3: after every Insert, the latest-messages and block-metadata
// logs (the only logs these inserts write) each have a sibling CRC file
// matching CRC32 of the log's full current contents.
func TestPropertyCRCRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cfg := dag.DefaultConfig(t.TempDir())
		e, err := dag.Open(cfg, log.New())
		if err != nil {
			rt.Fatal(err)
		}
		defer e.Close()

		genesis := genesisBlock()
		if _, err := e.Insert(context.Background(), genesis, genesis, false); err != nil {
			rt.Fatal(err)
		}
		checkCRC(rt, cfg.LatestMessagesLogPath, cfg.LatestMessagesCRCPath)
		checkCRC(rt, cfg.BlockMetadataLogPath, cfg.BlockMetadataCRCPath)

		n := rapid.IntRange(0, 8).Draw(rt, "n")
		for _, b := range genChain(rt, n) {
			if _, err := e.Insert(context.Background(), b, genesis, false); err != nil {
				rt.Fatal(err)
			}
			checkCRC(rt, cfg.LatestMessagesLogPath, cfg.LatestMessagesCRCPath)
			checkCRC(rt, cfg.BlockMetadataLogPath, cfg.BlockMetadataCRCPath)
		}
	})
}

func checkCRC(rt *rapid.T, path, crcPath string) {
	rt.Helper()
	raw, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		rt.Fatal(err)
	}
	stored, err := applog.StoredCRC(crcPath)
	if err != nil {
		rt.Fatal(err)
	}
	if crc.Of(raw) != stored {
		rt.Fatalf("crc mismatch for %s: stored=%d computed=%d", path, stored, crc.Of(raw))
	}
}

// Invariant 4: squashing the latest-messages log never changes the
// in-memory latestMessages map itself -- only its on-disk encoding.
func TestPropertySquashPreservesLatestMessages(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cfg := dag.DefaultConfig(t.TempDir())
		cfg.LatestMessagesLogMaxSizeFactor = 1
		e, err := dag.Open(cfg, log.New())
		if err != nil {
			rt.Fatal(err)
		}
		defer e.Close()

		genesis := genesisBlock()
		if _, err := e.Insert(context.Background(), genesis, genesis, false); err != nil {
			rt.Fatal(err)
		}

		n := rapid.IntRange(1, 10).Draw(rt, "n")
		prev := hash(0)
		before := e.GetRepresentation().LatestMessageHashes()
		for i := 0; i < n; i++ {
			sender := validator(byte(1 + i%2))
			h := hash(byte(10 + i))
			blk := childBlock(h, int64(i+1), sender, prev)
			// Justify both bonded validators so Insert does not reset the
			// non-sender one to genesis; only the sender's entry may change.
			blk.Justifications = []dag.Justification{
				{Validator: validator(1), BlockHash: prev},
				{Validator: validator(2), BlockHash: prev},
			}

			rep, err := e.Insert(context.Background(), blk, genesis, false)
			if err != nil {
				rt.Fatal(err)
			}
			after := rep.LatestMessageHashes()
			for k, v := range before {
				if k == sender.Key() {
					continue
				}
				if after[k].Key() != v.Key() {
					rt.Fatalf("squash changed latest message for %x: %x -> %x", []byte(k), v, after[k])
				}
			}
			before = after
			prev = h
		}
	})
}

// Invariant 6: Insert is idempotent on a duplicate BlockHash.
func TestPropertyDuplicateInsertIsNoOp(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cfg := dag.DefaultConfig(t.TempDir())
		e, err := dag.Open(cfg, log.New())
		if err != nil {
			rt.Fatal(err)
		}
		defer e.Close()

		genesis := genesisBlock()
		if _, err := e.Insert(context.Background(), genesis, genesis, false); err != nil {
			rt.Fatal(err)
		}

		blk := childBlock(hash(1), 1, validator(1), hash(0))
		first, err := e.Insert(context.Background(), blk, genesis, false)
		if err != nil {
			rt.Fatal(err)
		}

		repeats := rapid.IntRange(1, 4).Draw(rt, "repeats")
		for i := 0; i < repeats; i++ {
			again, err := e.Insert(context.Background(), blk, genesis, false)
			if err != nil {
				rt.Fatal(err)
			}
			m1, _ := first.Lookup(hash(1))
			m2, _ := again.Lookup(hash(1))
			if m1.BlockNum != m2.BlockNum {
				rt.Fatalf("duplicate insert changed block metadata")
			}
		}
	})
}

// Invariant 2: recovery after losing any prefix of the final record (a
// partial write, or the whole record with its CRC commit lost) always
// leaves a valid state differing from the fully-committed one by at most
// that one record; recovery never fails and never loses an earlier record.
func TestPropertyRecoveryLosesAtMostOneRecord(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		dir := t.TempDir()
		cfg := dag.DefaultConfig(dir)
		e, err := dag.Open(cfg, log.New())
		if err != nil {
			rt.Fatal(err)
		}

		genesis := genesisBlock()
		if _, err := e.Insert(context.Background(), genesis, genesis, false); err != nil {
			rt.Fatal(err)
		}
		sizeBefore, err := fileSize(cfg.BlockMetadataLogPath)
		if err != nil {
			rt.Fatal(err)
		}
		crcBefore, err := os.ReadFile(cfg.BlockMetadataCRCPath)
		if err != nil {
			rt.Fatal(err)
		}

		last := childBlock(hash(1), 1, validator(1), hash(0))
		if _, err := e.Insert(context.Background(), last, genesis, false); err != nil {
			rt.Fatal(err)
		}
		sizeAfter, err := fileSize(cfg.BlockMetadataLogPath)
		if err != nil {
			rt.Fatal(err)
		}
		if err := e.Close(); err != nil {
			rt.Fatal(err)
		}

		lastRecordLen := sizeAfter - sizeBefore
		dropped := int64(rapid.IntRange(0, int(lastRecordLen)).Draw(rt, "dropped"))
		if dropped > 0 {
			if err := os.Truncate(cfg.BlockMetadataLogPath, sizeAfter-dropped); err != nil {
				rt.Fatal(err)
			}
		}
		if dropped == lastRecordLen {
			// The whole record is gone, so its CRC commit is lost too.
			if err := os.WriteFile(cfg.BlockMetadataCRCPath, crcBefore, 0o644); err != nil {
				rt.Fatal(err)
			}
		}

		e2, err := dag.Open(cfg, log.New())
		if err != nil {
			rt.Fatalf("reopen after losing %d of %d tail bytes failed: %v", dropped, lastRecordLen, err)
		}
		defer e2.Close()

		rep := e2.GetRepresentation()
		if _, ok := rep.Lookup(genesis.BlockHash); !ok {
			rt.Fatal("genesis lost on recovery")
		}
		_, lastPresent := rep.Lookup(last.BlockHash)
		if dropped == 0 && !lastPresent {
			rt.Fatal("last record dropped despite no truncation")
		}
	})
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
