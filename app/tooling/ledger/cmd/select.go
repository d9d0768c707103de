package cmd

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
	"github.com/ardanlabs/ledger/foundation/blockchain/pos"
	"github.com/spf13/cobra"
)

var (
	selectStakes map[string]int64
	selectSeed   string
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Select the validator a seed chooses from a stake table",
	RunE: func(cmd *cobra.Command, args []string) error {
		seed := digest.Zero
		if selectSeed != "" {
			var err error
			if seed, err = digest.FromHex(selectSeed); err != nil {
				return err
			}
		}

		stakes := pos.StakeTable(selectStakes)

		validator, err := pos.SelectValidator(stakes, seed)
		if err != nil {
			return err
		}

		total, _ := stakes.Total()

		selected := struct {
			Seed      digest.Digest  `json:"seed"`
			Total     uint64         `json:"total"`
			Stakes    pos.StakeTable `json:"stakes"`
			Validator string         `json:"validator"`
		}{
			Seed:      seed,
			Total:     total,
			Stakes:    stakes,
			Validator: validator,
		}

		return printJSON(cmd.OutOrStdout(), selected)
	},
}

func init() {
	rootCmd.AddCommand(selectCmd)
	selectCmd.Flags().StringToInt64VarP(&selectStakes, "stake", "s", nil, "Validator weight as id=weight, repeatable.")
	selectCmd.Flags().StringVar(&selectSeed, "seed", "", "Hex encoded 32 byte seed, the zero digest when empty.")
}
