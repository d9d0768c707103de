package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/state"
)

// producingOperations handles block production.
func (w *Worker) producingOperations() {
	w.evHandler("worker: producingOperations: G started")
	defer w.evHandler("worker: producingOperations: G completed")

	for {
		select {
		case <-w.startProducing:
			if !w.isShutdown() {
				w.runProducingOperation()
			}
		case <-w.shut:
			w.evHandler("worker: producingOperations: received shut signal")
			return
		}
	}
}

// runProducingOperation takes transactions from the mempool and appends a
// new block to the chain.
func (w *Worker) runProducingOperation() {
	w.evHandler("worker: runProducingOperation: PRODUCING: started")
	defer w.evHandler("worker: runProducingOperation: PRODUCING: completed")

	// Make sure there are transactions in the mempool.
	length := w.state.QueryMempoolLength()
	if length == 0 {
		w.evHandler("worker: runProducingOperation: PRODUCING: no transactions to produce: Txs[%d]", length)
		return
	}

	// After running an operation, check if a new operation should
	// be signaled again.
	defer func() {
		length := w.state.QueryMempoolLength()
		if length > 0 && !w.isShutdown() {
			w.evHandler("worker: runProducingOperation: PRODUCING: signal new operation: Txs[%d]", length)
			w.SignalStartProducing()
		}
	}()

	// If production is signalled to be cancelled, this G can't terminate
	// until it is told it can.
	var wait chan struct{}
	defer func() {
		if wait != nil {
			w.evHandler("worker: runProducingOperation: PRODUCING: termination signal: waiting")
			<-wait
			w.evHandler("worker: runProducingOperation: PRODUCING: termination signal: received")
		}
	}()

	// Drain the cancel channel before starting.
	select {
	case <-w.cancelProducing:
		w.evHandler("worker: runProducingOperation: PRODUCING: drained cancel channel")
	default:
	}

	// Create a context so production can be cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Can't return from this function until these G's are complete.
	var wg sync.WaitGroup
	wg.Add(2)

	// This G exists to cancel the operation.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		select {
		case wait = <-w.cancelProducing:
			w.evHandler("worker: runProducingOperation: PRODUCING: CANCEL: requested")
		case <-w.shut:
			w.evHandler("worker: runProducingOperation: PRODUCING: CANCEL: shutdown")
		case <-ctx.Done():
		}
	}()

	// This G is producing the block.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		t := time.Now()
		block, err := w.state.ProduceNextBlock(ctx)
		duration := time.Since(t)

		w.evHandler("worker: runProducingOperation: PRODUCING: duration[%v]", duration)

		if err != nil {
			switch {
			case errors.Is(err, state.ErrNoTransactions):
				w.evHandler("worker: runProducingOperation: PRODUCING: WARNING: no transactions in mempool")
			case ctx.Err() != nil:
				w.evHandler("worker: runProducingOperation: PRODUCING: CANCEL: complete")
			default:
				w.evHandler("worker: runProducingOperation: PRODUCING: ERROR: %s", err)
			}
			return
		}

		w.evHandler("worker: runProducingOperation: PRODUCING: block[%s]: trans[%d]", block.Hash(), len(block.Trans))
	}()

	// Wait for both G's to terminate.
	wg.Wait()
}
