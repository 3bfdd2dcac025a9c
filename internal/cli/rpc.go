package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// rpcCmd calls any RPC method on a running node
var rpcCmd = &cobra.Command{
	Use:   "rpc <method> [json-params]",
	Short: "Call an RPC method on a running node",
	Long: `Call an RPC method on the node given by --rpc and print its result.
Parameters are a single JSON object, for example:

  offerd rpc offer_info '{"offer_id":"7"}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var params interface{}
		if len(args) == 2 {
			var obj map[string]interface{}
			if err := json.Unmarshal([]byte(args[1]), &obj); err != nil {
				return fmt.Errorf("failed to parse parameters: %w", err)
			}
			params = obj
		}

		var result map[string]interface{}
		if err := newClient().Call(cmd.Context(), args[0], params, &result); err != nil {
			return err
		}
		return printJSON(cmd, result)
	},
}

func init() {
	rootCmd.AddCommand(rpcCmd)
}
