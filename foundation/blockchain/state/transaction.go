package state

import (
	"errors"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// ErrEmptyTx is returned when an empty payload is submitted.
var ErrEmptyTx = errors.New("transaction payload is empty")

// SubmitTransaction accepts a payload into the mempool and signals the
// worker to produce a block. A payload already pending is ignored.
func (s *State) SubmitTransaction(tx database.Tx) (bool, error) {
	if len(tx) == 0 {
		return false, ErrEmptyTx
	}

	n, added := s.mempool.Upsert(tx)
	if !added {
		s.evHandler("state: SubmitTransaction: tx[%s]: already pending", tx.Hash())
		return false, nil
	}

	s.evHandler("state: SubmitTransaction: tx[%s]: added: mempool[%d]", tx.Hash(), n)

	if s.Worker != nil {
		s.Worker.SignalStartProducing()
	}

	return true, nil
}
