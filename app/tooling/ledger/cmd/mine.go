package cmd

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/difficulty"
	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
	"github.com/ardanlabs/ledger/foundation/blockchain/pow"
	"github.com/spf13/cobra"
)

var (
	mineBits    string
	mineZeros   uint
	minePrev    string
	mineTimeout time.Duration
)

var mineCmd = &cobra.Command{
	Use:   "mine [tx...]",
	Short: "Mine one proof of work block over the transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := difficulty.Parse(mineBits)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("zeros") {
			if target, err = difficulty.FromLeadingZeroBits(mineZeros); err != nil {
				return err
			}
		}

		prev := database.NoPrev
		if minePrev != "" {
			d, err := digest.FromHex(minePrev)
			if err != nil {
				return err
			}
			prev = database.Prev(d)
		}

		trans := make([]database.Tx, len(args))
		for i, arg := range args {
			trans[i] = database.Tx(arg)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if mineTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, mineTimeout)
			defer cancel()
		}

		ev, sync := evHandler()
		defer sync()

		block := database.NewBlock(database.PoW, prev, uint64(time.Now().UTC().Unix()), trans)

		start := time.Now()
		block, err = pow.MineBlock(ctx, block, target, pow.WithEvHandler(ev))
		if err != nil {
			return err
		}

		mined := struct {
			Hash     digest.Digest        `json:"hash"`
			Target   difficulty.Target    `json:"target"`
			Duration string               `json:"duration"`
			Header   database.BlockHeader `json:"header"`
			Trans    []database.Tx        `json:"trans"`
		}{
			Hash:     block.Hash(),
			Target:   target,
			Duration: time.Since(start).String(),
			Header:   block.Header,
			Trans:    block.Trans,
		}

		return printJSON(cmd.OutOrStdout(), mined)
	},
}

func init() {
	rootCmd.AddCommand(mineCmd)
	mineCmd.Flags().StringVar(&mineBits, "bits", "0x1f0fffff", "Compact target the block must meet.")
	mineCmd.Flags().UintVar(&mineZeros, "zeros", 0, "Leading zero bits the block hash must carry, overrides --bits.")
	mineCmd.Flags().StringVar(&minePrev, "prev", "", "Hash of the previous block, empty for a genesis block.")
	mineCmd.Flags().DurationVar(&mineTimeout, "timeout", 0, "Give up mining after this duration.")
}
