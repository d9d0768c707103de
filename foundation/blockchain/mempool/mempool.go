// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool/selector"
)

// Mempool represents a cache of pending transactions keyed by the digest of
// the payload.
type Mempool struct {
	pool     map[digest.Digest]selector.Entry
	seq      uint64
	mu       sync.RWMutex
	selectFn selector.Func
}

// New constructs a new mempool using the default select strategy.
func New() (*Mempool, error) {
	return NewWithStrategy(selector.StrategyFIFO)
}

// NewWithStrategy constructs a new mempool with specified select strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:     make(map[digest.Digest]selector.Entry),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds a transaction to the mempool. A payload that is already
// pending keeps its original place in line. The number of pending
// transactions is returned along with whether the payload was new.
func (mp *Mempool) Upsert(tx database.Tx) (int, bool) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	key := tx.Hash()
	if _, exists := mp.pool[key]; exists {
		return len(mp.pool), false
	}

	mp.seq++
	mp.pool[key] = selector.Entry{
		Tx:  append(database.Tx(nil), tx...),
		Seq: mp.seq,
	}

	return len(mp.pool), true
}

// Delete removes a transaction from the mempool.
func (mp *Mempool) Delete(tx database.Tx) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, tx.Hash())
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[digest.Digest]selector.Entry)
}

// PickBest uses the configured select strategy to return the next set
// of transactions for the next block.
func (mp *Mempool) PickBest(howMany int) []database.Tx {
	var entries []selector.Entry
	mp.mu.RLock()
	{
		entries = make([]selector.Entry, 0, len(mp.pool))
		for _, entry := range mp.pool {
			entry.Tx = append(database.Tx(nil), entry.Tx...)
			entries = append(entries, entry)
		}
	}
	mp.mu.RUnlock()

	return mp.selectFn(entries, howMany)
}
