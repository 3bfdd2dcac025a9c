package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/LeJamon/offerd/internal/client"
	"github.com/LeJamon/offerd/internal/core/ledger/service"
	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/LeJamon/offerd/internal/core/tx/account"
	offertx "github.com/LeJamon/offerd/internal/core/tx/offer"
	"github.com/LeJamon/offerd/internal/core/tx/sle"
	"github.com/LeJamon/offerd/internal/types"
	"github.com/spf13/cobra"
)

var (
	// Submission flags
	keyRefs []string
	window  uint64
	timeout time.Duration

	// Command specific flags
	decimals    uint8
	wantAsset   string
	wantAmount  uint64
	wantNative  uint64
	filterMaker string
	filterAsset string
	balanceOf   string
	historySize int
)

func newClient() *client.Client {
	return client.New(endpoint, client.WithWindow(window))
}

// signersFromFlags loads every --key. At least one is required.
func signersFromFlags() ([]tx.Signer, error) {
	if len(keyRefs) == 0 {
		return nil, fmt.Errorf("at least one --key is required")
	}
	out := make([]tx.Signer, 0, len(keyRefs))
	for _, ref := range keyRefs {
		kp, err := loadKey(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, kp)
	}
	return out, nil
}

// submit signs ins with every --key, submits and prints the outcome.
func submit(cmd *cobra.Command, signers []tx.Signer, ins ...tx.Instruction) error {
	ctx := cmd.Context()
	if timeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	res, err := newClient().SubmitAndConfirm(ctx, signers, ins...)
	if err != nil {
		return err
	}
	return printJSON(cmd, res)
}

func parseAmount(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

func parseID(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid offer id %q", s)
	}
	return v, nil
}

// =============================================================================
// ACCOUNT COMMANDS
// =============================================================================

var fundCmd = &cobra.Command{
	Use:   "fund <account> <amount>",
	Short: "Credit native currency from the faucet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		to, err := resolveAddress(args[0])
		if err != nil {
			return err
		}
		amount, err := parseAmount(args[1])
		if err != nil {
			return err
		}
		signers, err := signersFromFlags()
		if err != nil {
			return err
		}
		return submit(cmd, signers, account.NewFundNative(to, amount))
	},
}

var assetCmd = &cobra.Command{
	Use:   "asset",
	Short: "Asset definition commands",
}

var assetCreateCmd = &cobra.Command{
	Use:   "create <asset-key>",
	Short: "Define an asset at the address of asset-key",
	Long: `Define a new asset. The first --key pays the deposit and becomes the
mint authority; the asset key itself also signs.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		assetKey, err := loadKey(args[0])
		if err != nil {
			return err
		}
		signers, err := signersFromFlags()
		if err != nil {
			return err
		}
		authority := signers[0].Address()
		ins := account.NewCreateAsset(assetKey.Address(), authority, authority, decimals)
		return submit(cmd, append(signers, assetKey), ins)
	},
}

var assetMintCmd = &cobra.Command{
	Use:   "mint <asset> <owner> <amount>",
	Short: "Mint units of an asset to an owner",
	Long: `Mint units to the owner's holding, creating the holding first when
needed. The first --key is the mint authority and pays any deposit.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		asset, err := resolveAddress(args[0])
		if err != nil {
			return err
		}
		owner, err := resolveAddress(args[1])
		if err != nil {
			return err
		}
		amount, err := parseAmount(args[2])
		if err != nil {
			return err
		}
		signers, err := signersFromFlags()
		if err != nil {
			return err
		}
		authority := signers[0].Address()
		hold := account.NewCreateHolding(authority, owner, asset)
		return submit(cmd, signers, hold, account.NewMintTo(asset, hold.Holding, authority, amount))
	},
}

var assetShowCmd = &cobra.Command{
	Use:   "show <asset>",
	Short: "Show an asset definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asset, err := resolveAddress(args[0])
		if err != nil {
			return err
		}
		info, err := newClient().Asset(cmd.Context(), asset)
		if err != nil {
			return err
		}
		return printJSON(cmd, info)
	},
}

var holdingCreateCmd = &cobra.Command{
	Use:   "holding <asset>",
	Short: "Create the first --key's holding of an asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asset, err := resolveAddress(args[0])
		if err != nil {
			return err
		}
		signers, err := signersFromFlags()
		if err != nil {
			return err
		}
		owner := signers[0].Address()
		return submit(cmd, signers, account.NewCreateHolding(owner, owner, asset))
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance <account>",
	Short: "Show a native balance, or an asset holding with --asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, err := resolveAddress(args[0])
		if err != nil {
			return err
		}
		c := newClient()
		if balanceOf == "" {
			info, err := c.Account(cmd.Context(), owner)
			if err != nil {
				return err
			}
			return printJSON(cmd, info)
		}
		asset, err := resolveAddress(balanceOf)
		if err != nil {
			return err
		}
		info, err := c.HoldingOf(cmd.Context(), owner, asset)
		if err != nil {
			return err
		}
		return printJSON(cmd, info)
	},
}

// =============================================================================
// OFFER COMMANDS
// =============================================================================

var offerCmd = &cobra.Command{
	Use:   "offer",
	Short: "Escrowed offer commands",
}

var offerMakeCmd = &cobra.Command{
	Use:   "make <id> <asset> <amount>",
	Short: "Escrow amount of asset for --want-asset/--want or --want-native",
	Long: `Open offer id. The first --key is the maker; its holding of asset
funds the vault. The terms are either --want units of --want-asset, or
--want-native units of native currency.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		asset, err := resolveAddress(args[1])
		if err != nil {
			return err
		}
		amount, err := parseAmount(args[2])
		if err != nil {
			return err
		}
		terms, err := termsFromFlags()
		if err != nil {
			return err
		}
		signers, err := signersFromFlags()
		if err != nil {
			return err
		}
		return submit(cmd, signers, offertx.NewMakeOffer(signers[0].Address(), asset, id, amount, terms))
	},
}

func termsFromFlags() (sle.PaymentTerms, error) {
	switch {
	case wantNative > 0 && wantAsset != "":
		return nil, fmt.Errorf("--want-native and --want-asset are exclusive")
	case wantNative > 0:
		return sle.NativeTerms{Quantity: wantNative}, nil
	case wantAsset != "" && wantAmount > 0:
		asset, err := resolveAddress(wantAsset)
		if err != nil {
			return nil, err
		}
		return sle.AssetTerms{AssetKind: asset, Quantity: wantAmount}, nil
	default:
		return nil, fmt.Errorf("terms require --want-native, or --want-asset with --want")
	}
}

var offerTakeCmd = &cobra.Command{
	Use:   "take <id>",
	Short: "Settle an offer as the first --key",
	Long: `Settle offer id. The offer is read from the node to pick the asset
or native settlement path. Missing holdings for the taker's proceeds and
the maker's payment are created in the same transaction.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		signers, err := signersFromFlags()
		if err != nil {
			return err
		}
		info, err := newClient().Offer(cmd.Context(), id)
		if err != nil {
			return err
		}
		ins, err := takeInstructions(signers[0].Address(), info.Offer)
		if err != nil {
			return err
		}
		return submit(cmd, signers, ins...)
	},
}

// takeInstructions settles o as taker, paying for any holdings the
// settlement needs.
func takeInstructions(taker types.Address, o *sle.Offer) ([]tx.Instruction, error) {
	ins := []tx.Instruction{account.NewCreateHolding(taker, taker, o.OfferedAssetKind)}
	switch terms := o.Terms.(type) {
	case sle.AssetTerms:
		ins = append(ins,
			account.NewCreateHolding(taker, o.Maker, terms.AssetKind),
			offertx.NewTakeOffer(taker, o.Maker, o.ID, o.OfferedAssetKind, terms.AssetKind),
		)
	case sle.NativeTerms:
		ins = append(ins, offertx.NewTakeOfferWithNative(taker, o.Maker, o.ID, o.OfferedAssetKind))
	default:
		return nil, fmt.Errorf("offer %d has unsupported terms %T", o.ID, o.Terms)
	}
	return ins, nil
}

var offerRefundCmd = &cobra.Command{
	Use:   "refund <id>",
	Short: "Cancel an offer and return the escrow to its maker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		signers, err := signersFromFlags()
		if err != nil {
			return err
		}
		info, err := newClient().Offer(cmd.Context(), id)
		if err != nil {
			return err
		}
		return submit(cmd, signers, offertx.NewRefundOffer(info.Offer.Maker, id, info.Offer.OfferedAssetKind))
	},
}

var offerShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an open offer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		info, err := newClient().Offer(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(cmd, info)
	},
}

var offerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List open offers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var filter service.OfferFilter
		if filterMaker != "" {
			maker, err := resolveAddress(filterMaker)
			if err != nil {
				return err
			}
			filter.Maker = &maker
		}
		if filterAsset != "" {
			asset, err := resolveAddress(filterAsset)
			if err != nil {
				return err
			}
			filter.OfferedAssetKind = &asset
		}
		offers, err := newClient().Offers(cmd.Context(), filter)
		if err != nil {
			return err
		}
		return printJSON(cmd, offers)
	},
}

// =============================================================================
// TRANSACTION COMMANDS
// =============================================================================

var txCmd = &cobra.Command{
	Use:   "tx <hash>",
	Short: "Show the journaled outcome of a transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := tx.ParseHash(args[0])
		if err != nil {
			return err
		}
		info, err := newClient().Tx(cmd.Context(), hash)
		if err != nil {
			return err
		}
		return printJSON(cmd, info)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent transactions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		txs, err := newClient().TxHistory(cmd.Context(), historySize)
		if err != nil {
			return err
		}
		return printJSON(cmd, txs)
	},
}

func init() {
	submitting := []*cobra.Command{
		fundCmd, assetCreateCmd, assetMintCmd, holdingCreateCmd,
		offerMakeCmd, offerTakeCmd, offerRefundCmd,
	}
	for _, c := range submitting {
		c.Flags().StringArrayVarP(&keyRefs, "key", "k", nil, "signing key: seed file or dev:<name> (repeatable)")
		c.Flags().Uint64Var(&window, "window", client.DefaultWindow, "sequences the transaction stays valid for")
		c.Flags().DurationVar(&timeout, "timeout", time.Minute, "give up after this long")
	}

	assetCreateCmd.Flags().Uint8Var(&decimals, "decimals", 0, "display decimals of the asset")
	offerMakeCmd.Flags().StringVar(&wantAsset, "want-asset", "", "asset the taker pays in")
	offerMakeCmd.Flags().Uint64Var(&wantAmount, "want", 0, "units of --want-asset the taker pays")
	offerMakeCmd.Flags().Uint64Var(&wantNative, "want-native", 0, "native units the taker pays")
	offerListCmd.Flags().StringVar(&filterMaker, "maker", "", "only offers by this maker")
	offerListCmd.Flags().StringVar(&filterAsset, "asset", "", "only offers of this asset")
	balanceCmd.Flags().StringVar(&balanceOf, "asset", "", "show the holding of this asset")
	historyCmd.Flags().IntVar(&historySize, "limit", 20, "number of transactions")

	assetCmd.AddCommand(assetCreateCmd, assetMintCmd, assetShowCmd)
	offerCmd.AddCommand(offerMakeCmd, offerTakeCmd, offerRefundCmd, offerShowCmd, offerListCmd)
	rootCmd.AddCommand(fundCmd, assetCmd, holdingCreateCmd, balanceCmd, offerCmd, txCmd, historyCmd)
}
