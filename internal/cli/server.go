package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/LeJamon/goEscrowd/internal/config"
	"github.com/LeJamon/goEscrowd/internal/di"
)

const defaultShutdownTimeout = 10 * time.Second

func newServerCommand(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the escrowd daemon",
		Long: `Start the escrowd daemon which provides:
- HTTP JSON-RPC API on /
- WebSocket transaction stream on /ws
- Prometheus metrics on /metrics
- Health check on /health`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(opts.configFile)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
				if err := cfg.Server.Validate(); err != nil {
					return fmt.Errorf("invalid --listen: %w", err)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address, overriding server.listen")
	return cmd
}

// runServer builds every component from cfg and serves until ctx ends
func runServer(ctx context.Context, cfg *config.Config) error {
	container := di.New()
	provider := di.NewProvider(container, cfg)
	if err := provider.RegisterAll(); err != nil {
		return err
	}

	logger, err := provider.GetLogger()
	if err != nil {
		return err
	}
	server, err := provider.GetRPCServer()
	if err != nil {
		closeErr := container.Close(context.Background())
		return errors.Join(err, closeErr)
	}

	logger.WithFields(logrus.Fields{
		"listen":  cfg.Server.Listen,
		"storage": cfg.Storage.Backend,
		"index":   cfg.IndexEnabled(),
		"config":  cfg.GetConfigPath(),
	}).Info("escrowd starting")

	runErr := server.Run(ctx)

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	closeErr := container.Close(closeCtx)
	if closeErr != nil {
		logger.WithError(closeErr).Error("shutdown incomplete")
	} else {
		logger.Info("escrowd stopped")
	}
	return errors.Join(runErr, closeErr)
}

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "example <path>",
		Short: "Write an example configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.SaveExampleConfig(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Load and validate a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.LoadConfig(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", args[0])
			return nil
		},
	})
	return cmd
}
