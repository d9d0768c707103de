package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/spf13/cobra"
)

var (
	demoBlocks    int
	demoConsensus string
	demoTrans     uint16
	demoGenesis   string
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Build a chain in memory and validate it",
	RunE: func(cmd *cobra.Command, args []string) error {
		gen := genesis.Genesis{
			Date:          time.Now().UTC(),
			ChainID:       1,
			Consensus:     demoConsensus,
			Bits:          "0x1f0fffff",
			TransPerBlock: demoTrans,
			MiningReward:  700,
			Stakes:        map[string]int64{"miner1": 60, "miner2": 30, "miner3": 10},
		}

		if demoGenesis != "" {
			var err error
			if gen, err = genesis.Load(demoGenesis); err != nil {
				return err
			}
		}

		ev, sync := evHandler()
		defer sync()

		st, err := state.New(state.Config{
			Producer:  "miner1",
			Genesis:   gen,
			EvHandler: ev,
		})
		if err != nil {
			return err
		}

		perBlock := int(gen.TransPerBlock)
		for i := range demoBlocks * perBlock {
			tx, err := database.NewTransaction("bill", "ed", uint64(i+1), uint32(time.Now().Unix()))
			if err != nil {
				return err
			}
			if _, err := st.SubmitTransaction(tx.Encode()); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		for {
			block, err := st.ProduceNextBlock(context.Background())
			if err != nil {
				if errors.Is(err, state.ErrNoTransactions) {
					break
				}
				return err
			}

			fmt.Fprintf(out, "block %s kind %s trans %d validator %q nonce %d\n",
				block.Hash(), block.Header.Kind, len(block.Trans), block.Header.Validator, block.Header.Nonce)
		}

		report := st.Validate()
		if !report.Valid {
			return fmt.Errorf("chain failed validation: %s", report.Reason)
		}

		fmt.Fprintf(out, "chain valid: blocks %d\n", report.Blocks)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.Flags().IntVarP(&demoBlocks, "blocks", "n", 5, "Number of blocks to build.")
	demoCmd.Flags().StringVar(&demoConsensus, "consensus", "pow", "Consensus rule, pow or pos.")
	demoCmd.Flags().Uint16Var(&demoTrans, "trans", 4, "Transactions per block.")
	demoCmd.Flags().StringVar(&demoGenesis, "genesis", "", "Genesis file to use instead of the built in values.")
}
