package mempool_test

import (
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool/selector"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestCRUD(t *testing.T) {
	type table struct {
		name     string
		strategy string
		txs      []string
		best     []string
	}

	tt := []table{
		{
			name:     "fifo",
			strategy: selector.StrategyFIFO,
			txs:      []string{"Tx-long-1", "Tx2", "Tx-long-1", "Tx3", "T4"},
			best:     []string{"Tx-long-1", "Tx2", "Tx3", "T4"},
		},
		{
			name:     "smallest",
			strategy: selector.StrategySmallest,
			txs:      []string{"Tx-long-1", "Tx2", "Tx-long-1", "Tx3", "T4"},
			best:     []string{"T4", "Tx2", "Tx3", "Tx-long-1"},
		},
	}

	t.Log("Given the need to validate mempool api.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a set of transaction with the %s strategy.", testID, tst.strategy)
			{
				f := func(t *testing.T) {
					mp, err := mempool.NewWithStrategy(tst.strategy)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to create a mempool: %s", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to create a mempool.", success, testID)

					for _, tx := range tst.txs {
						mp.Upsert(database.Tx(tx))
					}

					if mp.Count() != len(tst.best) {
						t.Fatalf("\t%s\tTest %d:\tShould de-duplicate payloads: got %d, exp %d.", failed, testID, mp.Count(), len(tst.best))
					}
					t.Logf("\t%s\tTest %d:\tShould de-duplicate payloads.", success, testID)

					best := mp.PickBest(-1)
					for i, tx := range best {
						if string(tx) != tst.best[i] {
							t.Fatalf("\t%s\tTest %d:\tShould pick %q at %d, got %q.", failed, testID, tst.best[i], i, tx)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould pick the transactions in order.", success, testID)

					if two := mp.PickBest(2); len(two) != 2 || string(two[0]) != tst.best[0] {
						t.Fatalf("\t%s\tTest %d:\tShould honour howMany.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould honour howMany.", success, testID)

					mp.Delete(database.Tx(tst.best[0]))
					if mp.Count() != len(tst.best)-1 {
						t.Fatalf("\t%s\tTest %d:\tShould delete the transaction.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould delete the transaction.", success, testID)

					mp.Truncate()
					if mp.Count() != 0 {
						t.Fatalf("\t%s\tTest %d:\tShould truncate the pool.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould truncate the pool.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}

		testID := len(tt)
		t.Logf("\tTest %d:\tWhen asking for an unknown strategy.", testID)
		{
			if _, err := mempool.NewWithStrategy("bogus"); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject the strategy.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the strategy.", success, testID)
		}
	}
}
