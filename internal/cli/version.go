package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is the escrowd release, overridden at build time with
// -ldflags "-X github.com/LeJamon/goEscrowd/internal/cli.Version=..."
var Version = "0.1.0-dev"

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version information for escrowd including the Go version.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "escrowd version %s\n", Version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
