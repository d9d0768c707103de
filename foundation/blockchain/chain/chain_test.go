package chain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/chain"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/difficulty"
	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
	"github.com/ardanlabs/ledger/foundation/blockchain/pos"
	"github.com/ardanlabs/ledger/foundation/blockchain/pow"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

var stakes = pos.StakeTable{"alice": 5, "bob": 3, "carol": 2}

func target(t *testing.T, zeros uint) difficulty.Target {
	tgt, err := difficulty.FromLeadingZeroBits(zeros)
	if err != nil {
		t.Fatalf("\t%s\tShould build a target: %s", failed, err)
	}
	return tgt
}

func trans(n int, prefix string) []database.Tx {
	txs := make([]database.Tx, n)
	for i := range txs {
		txs[i] = database.Tx(fmt.Sprintf("%s-tx%d", prefix, i))
	}
	return txs
}

func mineBlock(t *testing.T, prev database.PrevHash, tgt difficulty.Target, txs []database.Tx) database.Block {
	blk := database.NewBlock(database.PoW, prev, 1700000000, txs)

	blk, err := pow.MineBlock(context.Background(), blk, tgt)
	if err != nil {
		t.Fatalf("\t%s\tShould mine block: %s", failed, err)
	}
	return blk
}

func stakeBlock(t *testing.T, prev database.PrevHash, txs []database.Tx) database.Block {
	blk := database.NewBlock(database.PoS, prev, 1700000000, txs)

	h, err := pos.Produce(blk.Header, stakes)
	if err != nil {
		t.Fatalf("\t%s\tShould produce block: %s", failed, err)
	}
	blk.Header = h
	return blk
}

func powChain(t *testing.T, n int) *chain.Blockchain {
	bc := chain.New(chain.Config{})
	tgt := target(t, 8)

	for i := range n {
		blk := mineBlock(t, bc.NextPrevious(), tgt, trans(i+1, fmt.Sprint(i)))
		if err := bc.Append(blk); err != nil {
			t.Fatalf("\t%s\tShould append block %d: %s", failed, i, err)
		}
	}
	return bc
}

// =============================================================================

func Test_AppendPoW(t *testing.T) {
	t.Log("Given the need to build a proof of work chain.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen appending a genesis and one block.", testID)
		{
			bc := powChain(t, 2)

			if bc.Len() != 2 || !bc.IsValid() {
				t.Fatalf("\t%s\tTest %d:\tShould hold a valid chain of 2 blocks: %+v", failed, testID, bc.Validate())
			}
			t.Logf("\t%s\tTest %d:\tShould hold a valid chain of 2 blocks.", success, testID)

			genesis, _ := bc.Block(0)
			tip, _ := bc.Tip()
			if tip.Header.Previous != database.Prev(genesis.Hash()) {
				t.Fatalf("\t%s\tTest %d:\tShould link the tip to genesis.", failed, testID)
			}

			d, err := bc.TipDigest()
			if err != nil || d != tip.Hash() {
				t.Fatalf("\t%s\tTest %d:\tShould report the tip digest: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould link the tip to genesis.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen appending a block with an empty transaction list.", testID)
		{
			bc := powChain(t, 1)
			blk := mineBlock(t, bc.NextPrevious(), target(t, 8), nil)
			if err := bc.Append(blk); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the empty block: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould accept the empty block.", success, testID)
		}
	}
}

func Test_AppendRejects(t *testing.T) {
	tgt := target(t, 8)

	t.Log("Given the need to reject blocks that break the chain rules.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen an empty chain receives a linked block.", testID)
		{
			bc := chain.New(chain.Config{})
			blk := mineBlock(t, database.Prev(digest.Hash([]byte("x"))), tgt, trans(1, "a"))

			err := bc.Append(blk)
			if !errors.Is(err, chain.ErrInvalidPreviousHash) {
				t.Fatalf("\t%s\tTest %d:\tShould fail with invalid previous hash: %v", failed, testID, err)
			}

			var be *chain.BlockError
			if !errors.As(err, &be) || be.Index != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould identify block 0: %v", failed, testID, err)
			}
			if bc.Len() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the chain empty.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould fail with invalid previous hash.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a non-empty chain receives a second genesis.", testID)
		{
			bc := powChain(t, 1)
			blk := mineBlock(t, database.NoPrev, tgt, trans(1, "b"))

			if err := bc.Append(blk); !errors.Is(err, chain.ErrInvalidPreviousHash) {
				t.Fatalf("\t%s\tTest %d:\tShould fail with invalid previous hash: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould fail with invalid previous hash.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the merkle root does not match.", testID)
		{
			bc := powChain(t, 1)
			before := bc.Blocks()

			blk := mineBlock(t, bc.NextPrevious(), tgt, trans(2, "c"))
			blk.Trans[1] = database.Tx("forged")

			if err := bc.Append(blk); !errors.Is(err, chain.ErrInvalidMerkleRoot) {
				t.Fatalf("\t%s\tTest %d:\tShould fail with invalid merkle root: %v", failed, testID, err)
			}
			after := bc.Blocks()
			if len(after) != len(before) || after[0].Hash() != before[0].Hash() {
				t.Fatalf("\t%s\tTest %d:\tShould leave the chain unchanged.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould fail with invalid merkle root.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the proof of work is not solved.", testID)
		{
			bc := chain.New(chain.Config{})
			hard := target(t, 64)

			blk := database.NewBlock(database.PoW, database.NoPrev, 1, trans(1, "d"))
			blk.Header.Difficulty = hard
			for hard.Satisfied(blk.Hash()) {
				blk.Header.Nonce++
			}

			if err := bc.Append(blk); !errors.Is(err, chain.ErrDifficultyNotMet) {
				t.Fatalf("\t%s\tTest %d:\tShould fail with difficulty not met: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould fail with difficulty not met.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the block declares a target easier than the minimum.", testID)
		{
			bc := chain.New(chain.Config{MinTarget: target(t, 8)})
			blk := mineBlock(t, database.NoPrev, target(t, 2), trans(1, "e"))

			if err := bc.Append(blk); !errors.Is(err, chain.ErrDifficultyNotMet) {
				t.Fatalf("\t%s\tTest %d:\tShould fail with difficulty not met: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould fail with difficulty not met.", success, testID)

			ok := mineBlock(t, database.NoPrev, target(t, 10), trans(1, "f"))
			if err := bc.Append(ok); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept a harder target: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould accept a harder target.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the header carries an unknown consensus kind.", testID)
		{
			bc := chain.New(chain.Config{})
			blk := database.NewBlock(database.PoW, database.NoPrev, 1, trans(1, "g"))
			blk.Header.Kind = 7

			if err := bc.Append(blk); !errors.Is(err, chain.ErrUnknownConsensus) {
				t.Fatalf("\t%s\tTest %d:\tShould fail with unknown consensus: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould fail with unknown consensus.", success, testID)
		}
	}
}

func Test_AppendPoS(t *testing.T) {
	t.Log("Given the need to build a proof of stake chain.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen appending blocks from the selected validators.", testID)
		{
			bc := chain.New(chain.Config{Stakes: stakes})

			for i := range 5 {
				blk := stakeBlock(t, bc.NextPrevious(), trans(i+1, fmt.Sprint("s", i)))
				if err := bc.Append(blk); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould append block %d: %s", failed, testID, i, err)
				}
			}

			if !bc.IsValid() {
				t.Fatalf("\t%s\tTest %d:\tShould be valid: %+v", failed, testID, bc.Validate())
			}
			t.Logf("\t%s\tTest %d:\tShould be valid.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a block names the wrong validator.", testID)
		{
			bc := chain.New(chain.Config{Stakes: stakes})
			blk := stakeBlock(t, database.NoPrev, trans(1, "w"))

			for _, id := range stakes.IDs() {
				if id != blk.Header.Validator {
					blk.Header.Validator = id
					break
				}
			}

			if err := bc.Append(blk); !errors.Is(err, chain.ErrValidatorMismatch) {
				t.Fatalf("\t%s\tTest %d:\tShould fail with validator mismatch: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould fail with validator mismatch.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the chain has no stake table.", testID)
		{
			bc := chain.New(chain.Config{})
			blk := stakeBlock(t, database.NoPrev, trans(1, "x"))

			if err := bc.Append(blk); !errors.Is(err, pos.ErrEmptyStakeTable) {
				t.Fatalf("\t%s\tTest %d:\tShould fail with empty stake table: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould fail with empty stake table.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen mixing consensus kinds.", testID)
		{
			bc := chain.New(chain.Config{Stakes: stakes})

			if err := bc.Append(mineBlock(t, bc.NextPrevious(), target(t, 4), trans(1, "m0"))); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould append a pow block: %s", failed, testID, err)
			}
			if err := bc.Append(stakeBlock(t, bc.NextPrevious(), trans(1, "m1"))); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould append a pos block: %s", failed, testID, err)
			}
			if !bc.IsValid() {
				t.Fatalf("\t%s\tTest %d:\tShould be valid.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould verify each block by its own kind.", success, testID)
		}
	}
}

func Test_Validate(t *testing.T) {
	t.Log("Given the need to audit a whole chain.")
	{
		for testID, index := range []int{1, 2, 3} {
			t.Logf("\tTest %d:\tWhen the previous hash of block %d is tampered.", testID, index)
			{
				blocks := powChain(t, 4).Blocks()
				blocks[index].Header.Previous = database.Prev(digest.Hash([]byte("tamper")))

				bc := chain.FromBlocks(chain.Config{}, blocks)
				report := bc.Validate()

				if report.Valid || bc.IsValid() {
					t.Fatalf("\t%s\tTest %d:\tShould be invalid.", failed, testID)
				}
				if report.Index != index || !errors.Is(report.Err, chain.ErrInvalidPreviousHash) {
					t.Fatalf("\t%s\tTest %d:\tShould report block %d: %+v", failed, testID, index, report)
				}
				t.Logf("\t%s\tTest %d:\tShould report block %d.", success, testID, index)
			}
		}

		testID := 3
		t.Logf("\tTest %d:\tWhen a transaction in a stored block is changed.", testID)
		{
			blocks := powChain(t, 3).Blocks()
			blocks[1].Trans[0] = database.Tx("changed")

			report := chain.FromBlocks(chain.Config{}, blocks).Validate()
			if report.Valid || report.Index != 1 || !errors.Is(report.Err, chain.ErrInvalidMerkleRoot) {
				t.Fatalf("\t%s\tTest %d:\tShould report the merkle failure at block 1: %+v", failed, testID, report)
			}
			t.Logf("\t%s\tTest %d:\tShould report the merkle failure at block 1.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a stored header is rewritten and re-linked.", testID)
		{
			blocks := powChain(t, 3).Blocks()
			blocks[1].Header.TimeStamp++
			blocks[2].Header.Previous = database.Prev(blocks[1].Hash())

			report := chain.FromBlocks(chain.Config{}, blocks).Validate()
			if report.Valid || report.Index < 1 {
				t.Fatalf("\t%s\tTest %d:\tShould detect the rewrite: %+v", failed, testID, report)
			}
			t.Logf("\t%s\tTest %d:\tShould detect the rewrite at block %d.", success, testID, report.Index)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the chain is empty.", testID)
		{
			bc := chain.New(chain.Config{})
			if !bc.IsValid() {
				t.Fatalf("\t%s\tTest %d:\tShould be valid.", failed, testID)
			}
			if _, err := bc.Tip(); !errors.Is(err, chain.ErrEmptyChainQuery) {
				t.Fatalf("\t%s\tTest %d:\tShould fail the tip query: %v", failed, testID, err)
			}
			if _, err := bc.TipDigest(); !errors.Is(err, chain.ErrEmptyChainQuery) {
				t.Fatalf("\t%s\tTest %d:\tShould fail the tip digest query: %v", failed, testID, err)
			}
			if bc.NextPrevious() != database.NoPrev {
				t.Fatalf("\t%s\tTest %d:\tShould expect a genesis block next.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould fail tip queries.", success, testID)

			full := powChain(t, 1)
			if _, err := full.Block(5); !errors.Is(err, chain.ErrBlockNotFound) {
				t.Fatalf("\t%s\tTest %d:\tShould fail to find a missing block: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould fail to find a missing block.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a caller changes a returned block.", testID)
		{
			bc := powChain(t, 2)
			blk, _ := bc.Block(1)
			blk.Trans[0][0] ^= 0xff

			if !bc.IsValid() {
				t.Fatalf("\t%s\tTest %d:\tShould not share memory with the caller.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not share memory with the caller.", success, testID)
		}
	}
}
