package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/keylet"
	"github.com/LeJamon/goEscrowd/internal/core/tx/mint"
	"github.com/LeJamon/goEscrowd/internal/rpc"
	"github.com/LeJamon/goEscrowd/internal/types"
)

func newAssetCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset",
		Short: "Create, issue and inspect assets",
	}
	cmd.AddCommand(
		newAssetCreateCommand(opts),
		newAssetIssueCommand(opts),
		newAssetHoldingCommand(opts),
		&cobra.Command{
			Use:   "show <asset>",
			Short: "Show an asset definition",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runQuery(cmd, opts, "asset_info", map[string]interface{}{"asset": args[0]})
			},
		},
	)
	return cmd
}

func newAssetCreateCommand(opts *rootOptions) *cobra.Command {
	var decimals uint8

	cmd := &cobra.Command{
		Use:   "create <code>",
		Short: "Define an asset issued by the signing account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := opts.signer()
			if err != nil {
				return err
			}
			issuer := types.AccountID(kp.AccountID)
			fmt.Fprintf(cmd.ErrOrStderr(), "asset id: %s\n", keylet.AssetID(issuer, args[0]))
			return newRPCClient(opts).submit(cmd, kp, mint.NewAssetCreate(issuer, args[0], decimals))
		},
	}
	cmd.Flags().Uint8Var(&decimals, "decimals", 0, "decimal places of the asset")
	return cmd
}

func newAssetIssueCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "issue <asset> <destination> <amount>",
		Short: "Issue new units of an asset the signing account controls",
		Long: `Issue new units of an asset to a destination account. The amount is a
decimal number in the asset's own precision, for example 12.50.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := opts.signer()
			if err != nil {
				return err
			}
			assetID, err := types.ParseAssetID(args[0])
			if err != nil {
				return err
			}
			destination, err := types.ParseAccountID(args[1])
			if err != nil {
				return err
			}

			client := newRPCClient(opts)
			decimals, err := client.assetDecimals(cmd.Context(), assetID)
			if err != nil {
				return err
			}
			amount, err := rpc.ParseAmount(args[2], decimals)
			if err != nil {
				return err
			}

			issuer := types.AccountID(kp.AccountID)
			return client.submit(cmd, kp, mint.NewAssetIssue(issuer, assetID, destination, amount))
		},
	}
}

func newAssetHoldingCommand(opts *rootOptions) *cobra.Command {
	var create bool

	cmd := &cobra.Command{
		Use:   "holding <account> <asset>",
		Short: "Show an account's holding of an asset",
		Long: `Show an account's holding of an asset. With --create the signing account
opens an empty holding of the asset instead; <account> must then be the
signer.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !create {
				return runQuery(cmd, opts, "holding_info", map[string]interface{}{
					"account": args[0],
					"asset":   args[1],
				})
			}

			kp, err := opts.signer()
			if err != nil {
				return err
			}
			owner := types.AccountID(kp.AccountID)
			if owner.String() != args[0] {
				return fmt.Errorf("holding owner %s is not the signing account %s", args[0], owner)
			}
			assetID, err := types.ParseAssetID(args[1])
			if err != nil {
				return err
			}
			return newRPCClient(opts).submit(cmd, kp, mint.NewHoldingCreate(owner, assetID))
		},
	}
	cmd.Flags().BoolVar(&create, "create", false, "create the holding instead of showing it")
	return cmd
}
