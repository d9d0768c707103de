package state

import (
	"context"
	"errors"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/pos"
	"github.com/ardanlabs/ledger/foundation/blockchain/pow"
)

// ErrNoTransactions is returned when a block is requested to be created
// and there are not enough transactions.
var ErrNoTransactions = errors.New("no transactions in mempool")

// =============================================================================

// ProduceNextBlock creates the next block from the mempool under the
// consensus rule in the genesis file and appends it to the chain.
func (s *State) ProduceNextBlock(ctx context.Context) (database.Block, error) {
	switch s.kind {
	case database.PoS:
		return s.StakeNewBlock()
	default:
		return s.MineNewBlock(ctx)
	}
}

// MineNewBlock attempts to create a new block with a proper hash that can become
// the next block in the chain.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: check mempool count")

	// Are there enough transactions in the pool.
	if s.mempool.Count() == 0 {
		return database.Block{}, ErrNoTransactions
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW")

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	trans := s.mempool.PickBest(int(s.genesis.TransPerBlock))
	block := s.newBlock(database.PoW, s.producer, trans)

	block, err := pow.MineBlock(ctx, block, s.target, pow.WithEvHandler(s.evHandler))
	if err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: update local state")

	if err := s.updateLocalState(block, trans); err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// StakeNewBlock creates a new block on behalf of the validator the stake
// table selects for the current tip.
func (s *State) StakeNewBlock() (database.Block, error) {
	s.evHandler("state: StakeNewBlock: STAKING: check mempool count")

	if s.mempool.Count() == 0 {
		return database.Block{}, ErrNoTransactions
	}

	validator, err := pos.SelectValidator(s.chain.Stakes(), pos.Seed(s.chain.NextPrevious()))
	if err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: StakeNewBlock: STAKING: selected validator[%s]", validator)

	trans := s.mempool.PickBest(int(s.genesis.TransPerBlock))
	block := s.newBlock(database.PoS, validator, trans)
	block.Header.Validator = validator

	s.evHandler("state: StakeNewBlock: STAKING: update local state")

	if err := s.updateLocalState(block, trans); err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// =============================================================================

// newBlock constructs the next block with a coinbase paying the beneficiary
// ahead of the transactions picked from the mempool.
func (s *State) newBlock(kind database.Kind, beneficiary string, trans []database.Tx) database.Block {
	now := s.now().UTC()

	all := make([]database.Tx, 0, len(trans)+1)
	if s.genesis.MiningReward > 0 && beneficiary != "" {
		all = append(all, database.Coinbase(beneficiary, s.genesis.MiningReward, uint32(now.Unix())).Encode())
	}
	all = append(all, trans...)

	return database.NewBlock(kind, s.chain.NextPrevious(), uint64(now.Unix()), all)
}

// updateLocalState appends the block to the chain and removes the
// transactions it committed from the mempool.
func (s *State) updateLocalState(block database.Block, trans []database.Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: updateLocalState: append to chain")

	if err := s.chain.Append(block); err != nil {
		return err
	}

	s.evHandler("state: updateLocalState: remove from mempool")

	for _, tx := range trans {
		s.mempool.Delete(tx)
	}

	s.evHandler("viewer: block[%d]: hash[%s]: kind[%s]: trans[%d]", s.chain.Len()-1, block.Hash(), block.Header.Kind, len(block.Trans))

	return nil
}
