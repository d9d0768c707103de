package cmd

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/digest"
	"github.com/ardanlabs/ledger/foundation/blockchain/merkle"
	"github.com/spf13/cobra"
)

var (
	merkleHash  string
	merkleProof int
)

var merkleCmd = &cobra.Command{
	Use:   "merkle [tx...]",
	Short: "Compute the merkle root of a set of transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		hashFn, err := digest.Strategy(merkleHash)
		if err != nil {
			return err
		}

		trans := make([]database.Tx, len(args))
		for i, arg := range args {
			trans[i] = database.Tx(arg)
		}

		tree := merkle.NewTree(trans, merkle.WithHashStrategy[database.Tx](hashFn))
		out := cmd.OutOrStdout()

		if merkleProof < 0 {
			fmt.Fprintf(out, "hash:   %s\n", merkleHash)
			fmt.Fprintf(out, "leafs:  %d\n", len(trans))
			fmt.Fprintf(out, "root:   %s\n", tree.RootHex())
			return nil
		}

		steps, err := tree.Proof(merkleProof)
		if err != nil {
			return err
		}

		leaf := hashFn(trans[merkleProof].Bytes())
		if !merkle.VerifyProof(tree.MerkleRoot(), leaf, steps, hashFn) {
			return errors.New("proof does not verify against the root")
		}

		proof := struct {
			Hash  string             `json:"hash"`
			Root  digest.Digest      `json:"root"`
			Index int                `json:"index"`
			Leaf  digest.Digest      `json:"leaf"`
			Steps []merkle.ProofStep `json:"steps"`
		}{
			Hash:  merkleHash,
			Root:  tree.MerkleRoot(),
			Index: merkleProof,
			Leaf:  leaf,
			Steps: steps,
		}

		return printJSON(out, proof)
	},
}

func init() {
	rootCmd.AddCommand(merkleCmd)
	merkleCmd.Flags().StringVar(&merkleHash, "hash", digest.StrategySHA256d, "Hash strategy for the tree.")
	merkleCmd.Flags().IntVarP(&merkleProof, "proof", "p", -1, "Print the inclusion proof of the transaction at this index.")
}
