package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/service"
	"github.com/LeJamon/goEscrowd/internal/core/tx/escrow"
	"github.com/LeJamon/goEscrowd/internal/rpc"
	"github.com/LeJamon/goEscrowd/internal/types"
)

// pairFlags name an escrow by its natural key
type pairFlags struct {
	seller       string
	offerAsset   string
	requestAsset string
}

func (p *pairFlags) register(cmd *cobra.Command, withSeller bool) {
	if withSeller {
		cmd.Flags().StringVar(&p.seller, "seller", "", "seller account")
	}
	cmd.Flags().StringVar(&p.offerAsset, "offer-asset", "", "asset locked by the seller")
	cmd.Flags().StringVar(&p.requestAsset, "request-asset", "", "asset the seller asks for")
}

// parse resolves the pair. An empty seller defaults to fallback.
func (p *pairFlags) parse(fallback types.AccountID) (types.AccountID, types.AssetID, types.AssetID, error) {
	seller := fallback
	if p.seller != "" {
		id, err := types.ParseAccountID(p.seller)
		if err != nil {
			return types.AccountID{}, types.AssetID{}, types.AssetID{}, fmt.Errorf("--seller: %w", err)
		}
		seller = id
	}
	if seller.IsZero() {
		return types.AccountID{}, types.AssetID{}, types.AssetID{}, fmt.Errorf("--seller is required")
	}
	offer, err := types.ParseAssetID(p.offerAsset)
	if err != nil {
		return types.AccountID{}, types.AssetID{}, types.AssetID{}, fmt.Errorf("--offer-asset: %w", err)
	}
	request, err := types.ParseAssetID(p.requestAsset)
	if err != nil {
		return types.AccountID{}, types.AssetID{}, types.AssetID{}, fmt.Errorf("--request-asset: %w", err)
	}
	return seller, offer, request, nil
}

func newEscrowCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "escrow",
		Short: "Create, settle, cancel and inspect swap escrows",
	}
	cmd.AddCommand(
		newEscrowCreateCommand(opts),
		newEscrowAcceptCommand(opts),
		newEscrowCancelCommand(opts),
		newEscrowShowCommand(opts),
		newEscrowListCommand(opts),
		newEscrowDeriveCommand(),
	)
	return cmd
}

func newEscrowCreateCommand(opts *rootOptions) *cobra.Command {
	var (
		pair          pairFlags
		offerAmount   string
		requestAmount string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Lock an amount of one asset and ask for another in return",
		Long: `Lock --offer-amount of --offer-asset in a vault and ask --request-amount
of --request-asset in return. The signing account is the seller. Amounts
are decimal numbers in each asset's precision.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := opts.signer()
			if err != nil {
				return err
			}
			seller, offer, request, err := pair.parse(types.AccountID(kp.AccountID))
			if err != nil {
				return err
			}

			client := newRPCClient(opts)
			offerUnits, err := parseAssetAmount(cmd, client, offer, offerAmount)
			if err != nil {
				return fmt.Errorf("--offer-amount: %w", err)
			}
			requestUnits, err := parseAssetAmount(cmd, client, request, requestAmount)
			if err != nil {
				return fmt.Errorf("--request-amount: %w", err)
			}
			return client.submit(cmd, kp, escrow.NewEscrowCreate(seller, offer, request, offerUnits, requestUnits))
		},
	}
	pair.register(cmd, false)
	cmd.Flags().StringVar(&offerAmount, "offer-amount", "", "amount of the offer asset to lock")
	cmd.Flags().StringVar(&requestAmount, "request-amount", "", "amount of the request asset wanted")
	return cmd
}

func parseAssetAmount(cmd *cobra.Command, client *rpcClient, asset types.AssetID, value string) (uint64, error) {
	if value == "" {
		return 0, fmt.Errorf("amount is required")
	}
	decimals, err := client.assetDecimals(cmd.Context(), asset)
	if err != nil {
		return 0, err
	}
	return rpc.ParseAmount(value, decimals)
}

func newEscrowAcceptCommand(opts *rootOptions) *cobra.Command {
	var pair pairFlags

	cmd := &cobra.Command{
		Use:   "accept",
		Short: "Settle an open escrow as the buyer",
		Long: `Pay the requested amount to the seller and receive the locked amount. The
signing account is the buyer.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := opts.signer()
			if err != nil {
				return err
			}
			seller, offer, request, err := pair.parse(types.AccountID{})
			if err != nil {
				return err
			}
			buyer := types.AccountID(kp.AccountID)
			return newRPCClient(opts).submit(cmd, kp, escrow.NewEscrowAccept(buyer, seller, offer, request))
		},
	}
	pair.register(cmd, true)
	return cmd
}

func newEscrowCancelCommand(opts *rootOptions) *cobra.Command {
	var pair pairFlags

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel an open escrow and reclaim the locked amount",
		Long: `Cancel an open escrow. Only the seller may cancel; --seller defaults to the
signing account.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := opts.signer()
			if err != nil {
				return err
			}
			account := types.AccountID(kp.AccountID)
			seller, offer, request, err := pair.parse(account)
			if err != nil {
				return err
			}
			return newRPCClient(opts).submit(cmd, kp, escrow.NewEscrowCancel(account, seller, offer, request))
		},
	}
	pair.register(cmd, true)
	return cmd
}

func newEscrowShowCommand(opts *rootOptions) *cobra.Command {
	var pair pairFlags

	cmd := &cobra.Command{
		Use:   "show [escrow]",
		Short: "Show an escrow by address or natural key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]interface{}{}
			if len(args) == 1 {
				params["escrow"] = args[0]
			} else {
				params["seller"] = pair.seller
				params["offer_asset"] = pair.offerAsset
				params["request_asset"] = pair.requestAsset
			}
			return runQuery(cmd, opts, "escrow_info", params)
		},
	}
	pair.register(cmd, true)
	return cmd
}

func newEscrowListCommand(opts *rootOptions) *cobra.Command {
	var (
		pair          pairFlags
		buyer, status string
		limit, offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List escrows, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]interface{}{}
			for key, value := range map[string]string{
				"seller":        pair.seller,
				"buyer":         buyer,
				"offer_asset":   pair.offerAsset,
				"request_asset": pair.requestAsset,
				"status":        status,
			} {
				if value != "" {
					params[key] = value
				}
			}
			if limit > 0 {
				params["limit"] = limit
			}
			if offset > 0 {
				params["offset"] = offset
			}
			return runQuery(cmd, opts, "escrow_list", params)
		},
	}
	pair.register(cmd, true)
	cmd.Flags().StringVar(&buyer, "buyer", "", "buyer account")
	cmd.Flags().StringVar(&status, "status", "", "open or closed")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum escrows to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "escrows to skip")
	return cmd
}

// newEscrowDeriveCommand computes addresses locally; no daemon is needed
func newEscrowDeriveCommand() *cobra.Command {
	var pair pairFlags

	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Compute the escrow and vault addresses of a natural key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			seller, offer, request, err := pair.parse(types.AccountID{})
			if err != nil {
				return err
			}
			addr := service.DeriveEscrow(seller, offer, request)
			return printJSON(cmd, map[string]string{
				"escrow": addr.Escrow.String(),
				"vault":  addr.Vault.String(),
			})
		},
	}
	pair.register(cmd, true)
	return cmd
}
