// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"sync"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/chain"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/difficulty"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool/selector"
	"github.com/ardanlabs/ledger/foundation/blockchain/pos"
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of producing blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for block production.
type Worker interface {
	Shutdown()
	SignalStartProducing()
	SignalCancelProducing() (done func())
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Producer       string
	Genesis        genesis.Genesis
	SelectStrategy string
	Now            func() time.Time
	EvHandler      EventHandler
}

// State manages the blockchain.
type State struct {
	producer  string
	kind      database.Kind
	target    difficulty.Target
	evHandler EventHandler
	now       func() time.Time
	mu        sync.Mutex

	genesis genesis.Genesis
	mempool *mempool.Mempool
	chain   *chain.Blockchain

	Worker Worker
}

// New constructs a new blockchain for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	// Make sure the genesis values describe a usable chain.
	if err := cfg.Genesis.Validate(); err != nil {
		return nil, err
	}

	kind, err := cfg.Genesis.Kind()
	if err != nil {
		return nil, err
	}

	target, err := cfg.Genesis.Target()
	if err != nil {
		return nil, err
	}

	minTarget, err := cfg.Genesis.MinTarget()
	if err != nil {
		return nil, err
	}

	// Construct a mempool with the specified select strategy.
	strategy := cfg.SelectStrategy
	if strategy == "" {
		strategy = selector.StrategyFIFO
	}
	mempool, err := mempool.NewWithStrategy(strategy)
	if err != nil {
		return nil, err
	}

	// The chain holds every block in memory and enforces the rules.
	bc := chain.New(chain.Config{
		Stakes:    cfg.Genesis.StakeTable(),
		MinTarget: minTarget,
		EvHandler: ev,
	})

	// Create the State to provide support for managing the blockchain.
	state := State{
		producer:  cfg.Producer,
		kind:      kind,
		target:    target,
		evHandler: ev,
		now:       now,

		genesis: cfg.Genesis,
		mempool: mempool,
		chain:   bc,
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// Consensus returns the kind of block this node produces.
func (s *State) Consensus() database.Kind {
	return s.kind
}

// Stakes returns a copy of the stake table proof of stake blocks are
// verified against.
func (s *State) Stakes() pos.StakeTable {
	return s.chain.Stakes()
}
