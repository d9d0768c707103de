// Package cmd contains the ledger command line tool.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ardanlabs/ledger/foundation/logger"
	"github.com/spf13/cobra"
)

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log ledger events to stderr.")
}

var rootCmd = &cobra.Command{
	Use:           "ledger",
	Short:         "Merkle ledger toolkit",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

// evHandler returns an event handler that logs when verbose output is
// requested and discards events otherwise.
func evHandler() (func(v string, args ...any), func()) {
	if !verbose {
		return func(v string, args ...any) {}, func() {}
	}

	log, err := logger.New("LEDGER", "stderr")
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR: constructing logger:", err)
		return func(v string, args ...any) {}, func() {}
	}

	return logger.EvHandler(log, "00000000-0000-0000-0000-000000000000"), func() { log.Sync() }
}

// printJSON writes the value as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
