// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"
	"sort"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyFIFO     = "fifo"
	StrategySmallest = "smallest"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyFIFO:     fifoSelect,
	StrategySmallest: smallestSelect,
}

// Entry is a pending transaction along with the order it arrived in.
type Entry struct {
	Tx  database.Tx
	Seq uint64
}

// Func defines a function that takes the pending transactions and selects
// howMany of them in an order based on the functions strategy. Receiving -1
// for howMany must return all the transactions in the strategies ordering.
type Func func(entries []Entry, howMany int) []database.Tx

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// fifoSelect returns transactions in the order they arrived.
func fifoSelect(entries []Entry, howMany int) []database.Tx {
	sort.Sort(bySeq(entries))
	return take(entries, howMany)
}

// smallestSelect returns the smallest payloads first so more transactions
// fit in a block. Payloads of equal size keep their arrival order.
func smallestSelect(entries []Entry, howMany int) []database.Tx {
	sort.Sort(bySeq(entries))
	sort.Stable(bySize(entries))
	return take(entries, howMany)
}

func take(entries []Entry, howMany int) []database.Tx {
	if howMany < 0 || howMany > len(entries) {
		howMany = len(entries)
	}

	txs := make([]database.Tx, howMany)
	for i := range howMany {
		txs[i] = entries[i].Tx
	}

	return txs
}

// =============================================================================

// bySeq provides sorting support by the arrival order.
type bySeq []Entry

// Len returns the number of transactions in the list.
func (bs bySeq) Len() int {
	return len(bs)
}

// Less helps to sort the list by arrival in ascending order.
func (bs bySeq) Less(i, j int) bool {
	return bs[i].Seq < bs[j].Seq
}

// Swap moves transactions in the order of arrival.
func (bs bySeq) Swap(i, j int) {
	bs[i], bs[j] = bs[j], bs[i]
}

// =============================================================================

// bySize provides sorting support by the payload size.
type bySize []Entry

// Len returns the number of transactions in the list.
func (bs bySize) Len() int {
	return len(bs)
}

// Less helps to sort the list by payload size in ascending order.
func (bs bySize) Less(i, j int) bool {
	return len(bs[i].Tx) < len(bs[j].Tx)
}

// Swap moves transactions in the order of the payload size.
func (bs bySize) Swap(i, j int) {
	bs[i], bs[j] = bs[j], bs[i]
}
