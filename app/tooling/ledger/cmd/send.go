package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	sendURL    string
	sendFrom   string
	sendTo     string
	sendAmount uint64
	sendData   []byte
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a transaction to a running node",
	RunE: func(cmd *cobra.Command, args []string) error {
		var body any
		switch {
		case len(sendData) > 0:
			body = struct {
				Data string `json:"data"`
			}{
				Data: fmt.Sprintf("%#x", sendData),
			}
		default:
			body = struct {
				From   string `json:"from"`
				To     string `json:"to"`
				Amount uint64 `json:"amount"`
			}{
				From:   sendFrom,
				To:     sendTo,
				Amount: sendAmount,
			}
		}

		data, err := json.Marshal(body)
		if err != nil {
			return err
		}

		resp, err := http.Post(fmt.Sprintf("%s/v1/tx/submit", sendURL), "application/json", bytes.NewBuffer(data))
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("node returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(bytes.TrimSpace(msg)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&sendURL, "url", "u", "http://localhost:8080", "Url of the node.")
	sendCmd.Flags().StringVarP(&sendFrom, "from", "f", "", "Account sending the value.")
	sendCmd.Flags().StringVarP(&sendTo, "to", "t", "", "Account receiving the value.")
	sendCmd.Flags().Uint64VarP(&sendAmount, "amount", "a", 0, "Value to send.")
	sendCmd.Flags().BytesHexVarP(&sendData, "data", "d", nil, "Hex encoded payload to send instead of a transfer.")
}
