package state

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/chain"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/merkle"
	"github.com/ardanlabs/ledger/foundation/blockchain/pos"
)

// Status describes the tip of the chain.
type Status struct {
	Height    int           `json:"height"`
	TipDigest digest.Digest `json:"tip_digest"`
	Consensus database.Kind `json:"consensus"`
	Mempool   int           `json:"mempool"`
}

// Proof is the evidence a transaction is committed by a block.
type Proof struct {
	Block      int                `json:"block"`
	Index      int                `json:"index"`
	Tx         database.Tx        `json:"tx"`
	Leaf       digest.Digest      `json:"leaf"`
	MerkleRoot digest.Digest      `json:"merkle_root"`
	Steps      []merkle.ProofStep `json:"steps"`
}

// =============================================================================

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	gen := s.genesis
	gen.Stakes = s.genesis.StakeTable()
	return gen
}

// RetrieveMempool returns a copy of the mempool.
func (s *State) RetrieveMempool() []database.Tx {
	return s.mempool.PickBest(-1)
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// RetrieveStatus returns the height and tip of the chain.
func (s *State) RetrieveStatus() Status {
	st := Status{
		Height:    s.chain.Len(),
		Consensus: s.kind,
		Mempool:   s.mempool.Count(),
	}

	if d, err := s.chain.TipDigest(); err == nil {
		st.TipDigest = d
	}

	return st
}

// RetrieveLatestBlock returns a copy of the current latest block.
func (s *State) RetrieveLatestBlock() (database.Block, error) {
	return s.chain.Tip()
}

// QueryBlocks returns every block in the chain.
func (s *State) QueryBlocks() []database.Block {
	return s.chain.Blocks()
}

// QueryBlocksByNumber returns the set of blocks based on block numbers. This
// function reads the blockchain from memory. Both from and to are inclusive.
func (s *State) QueryBlocksByNumber(from int, to int) ([]database.Block, error) {
	blocks := s.chain.Blocks()
	if len(blocks) == 0 {
		return nil, chain.ErrEmptyChainQuery
	}

	if to < 0 || to >= len(blocks) {
		to = len(blocks) - 1
	}

	if from < 0 || from > to {
		return nil, fmt.Errorf("invalid block range [%d,%d]", from, to)
	}

	return blocks[from : to+1], nil
}

// QueryProof builds the merkle inclusion proof for the transaction at the
// index of the specified block.
func (s *State) QueryProof(block int, index int) (Proof, error) {
	blk, err := s.chain.Block(block)
	if err != nil {
		return Proof{}, err
	}

	tree := blk.Tree()
	steps, err := tree.Proof(index)
	if err != nil {
		return Proof{}, err
	}

	p := Proof{
		Block:      block,
		Index:      index,
		Tx:         blk.Trans[index],
		Leaf:       blk.Trans[index].Hash(),
		MerkleRoot: blk.Header.MerkleRoot,
		Steps:      steps,
	}

	return p, nil
}

// Validate re-checks the whole chain from genesis.
func (s *State) Validate() chain.Report {
	return s.chain.Validate()
}

// SelectValidator returns the validator the stake table chooses for
// the specified seed.
func (s *State) SelectValidator(seed digest.Digest) (string, error) {
	return pos.SelectValidator(s.chain.Stakes(), seed)
}
