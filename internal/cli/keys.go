package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/LeJamon/offerd/internal/crypto"
	"github.com/LeJamon/offerd/internal/types"
	"github.com/spf13/cobra"
)

// devKeyPrefix selects a deterministic key derived from a name. Such keys
// are for local networks only.
const devKeyPrefix = "dev:"

var keygenOut string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new signing key",
	Long: `Generate an ed25519 signing key. The hex seed is written to --out
with mode 0600, or printed when --out is empty.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kp, err := crypto.NewKeypair()
		if err != nil {
			return err
		}
		defer kp.Wipe()

		out := map[string]string{"address": kp.Address().String()}
		if keygenOut == "" {
			out["seed"] = kp.SeedHex()
		} else {
			if err := os.WriteFile(keygenOut, []byte(kp.SeedHex()+"\n"), 0o600); err != nil {
				return fmt.Errorf("write key: %w", err)
			}
			out["file"] = keygenOut
		}
		return printJSON(cmd, out)
	},
}

var addressCmd = &cobra.Command{
	Use:   "address <key>",
	Short: "Print the address of a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kp, err := loadKey(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]string{"address": kp.Address().String()})
	},
}

func init() {
	keygenCmd.Flags().StringVarP(&keygenOut, "out", "o", "", "file to write the seed to")
	rootCmd.AddCommand(keygenCmd, addressCmd)
}

// loadKey resolves a key reference: "dev:<name>" for a development key,
// otherwise a file holding a hex seed.
func loadKey(ref string) (*crypto.Keypair, error) {
	if name, ok := strings.CutPrefix(ref, devKeyPrefix); ok {
		if name == "" {
			return nil, fmt.Errorf("empty development key name")
		}
		return crypto.KeypairFromName(name), nil
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	kp, err := crypto.KeypairFromHex(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("key %s: %w", ref, err)
	}
	return kp, nil
}

// resolveAddress accepts an address or a key reference.
func resolveAddress(s string) (types.Address, error) {
	if addr, err := types.ParseAddress(s); err == nil {
		return addr, nil
	}
	kp, err := loadKey(s)
	if err != nil {
		return types.Address{}, fmt.Errorf("%q is neither an address nor a key: %w", s, err)
	}
	return kp.Address(), nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
