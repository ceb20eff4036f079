package cli

import (
	"encoding/hex"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goEscrowd/internal/crypto"
	"github.com/LeJamon/goEscrowd/internal/types"
)

func newKeygenCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signing seed and show its account",
		Long: `Generate a random seed, derive the keypair for --key-type and print the
seed, public key and account address. With --seed the given seed is
derived instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.seed == "" {
				seed, err := crypto.GenerateSeed()
				if err != nil {
					return err
				}
				opts.seed = hex.EncodeToString(seed)
			}
			kp, err := opts.signer()
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{
				"seed":       opts.seed,
				"key_type":   kp.Type.String(),
				"public_key": kp.PublicKey,
				"account":    types.AccountID(kp.AccountID).String(),
			})
		},
	}
}

func newFundCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fund <account> <amount>",
		Short: "Credit native balance to an account (admin)",
		Long: `Credit native balance to an account, creating it when needed. The daemon
only accepts this from loopback clients.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := types.ParseAccountID(args[0]); err != nil {
				return err
			}
			if _, err := strconv.ParseUint(args[1], 10, 64); err != nil {
				return err
			}
			return runQuery(cmd, opts, "fund", map[string]interface{}{
				"account": args[0],
				"amount":  args[1],
			})
		},
	}
}

func newAccountCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account queries",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "info <account>",
		Short: "Show an account's balance, sequence and owner count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, "account_info", map[string]interface{}{"account": args[0]})
		},
	})

	var limit int
	txCmd := &cobra.Command{
		Use:   "tx <account>",
		Short: "List an account's indexed transactions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, "account_tx", map[string]interface{}{
				"account": args[0],
				"limit":   limit,
			})
		},
	}
	txCmd.Flags().IntVar(&limit, "limit", 0, "maximum transactions to return (0 for the server default)")
	cmd.AddCommand(txCmd)
	return cmd
}
