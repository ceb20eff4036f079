// Package cli implements the escrowd command line: the daemon itself and
// client commands that sign transactions locally and send them over
// JSON-RPC.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// DefaultRPCURL is the JSON-RPC endpoint client commands talk to
const DefaultRPCURL = "http://127.0.0.1:5005"

// SeedEnv names the environment variable read when --seed is not given
const SeedEnv = "ESCROWD_SEED"

// rootOptions holds the global flags
type rootOptions struct {
	configFile string
	rpcURL     string
	timeout    time.Duration
	seed       string
	keyType    string
}

// NewRootCommand builds the escrowd command tree
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "escrowd",
		Short: "goEscrowd - atomic token swap escrow ledger",
		Long: `escrowd runs a ledger of assets, holdings and swap escrows. A seller locks
an amount of one asset in a vault and names the asset and amount wanted in
return; any buyer meeting the terms settles the swap atomically, and the
seller may cancel and reclaim the locked amount until then.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "conf", "", "configuration file path (empty uses defaults and ESCROWD_ environment variables)")
	flags.StringVar(&opts.rpcURL, "rpc", DefaultRPCURL, "JSON-RPC endpoint of the daemon")
	flags.DurationVar(&opts.timeout, "timeout", 15*time.Second, "client request timeout")
	flags.StringVar(&opts.seed, "seed", "", "hex signing seed (default $"+SeedEnv+")")
	flags.StringVar(&opts.keyType, "key-type", "secp256k1", "signing key type: secp256k1 or ed25519")

	rootCmd.AddCommand(
		newServerCommand(opts),
		newConfigCommand(),
		newKeygenCommand(opts),
		newFundCommand(opts),
		newAccountCommand(opts),
		newAssetCommand(opts),
		newEscrowCommand(opts),
		newVersionCommand(),
	)
	return rootCmd
}

// Execute runs the command line. This is called by main.main().
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
