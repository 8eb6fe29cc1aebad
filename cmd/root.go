// Package cmd provides the command-line interface for ferrocp.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ferrocp/pkg/config"
	"ferrocp/pkg/helper/log"
)

var (
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "ferrocp",
		Short: "ferrocp is a high-throughput adaptive file copy engine",
		Long:  `A tool for copying files and directories that adapts its strategy to the source/destination devices and observed throughput.`,
	}
)

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cfg = config.NewDefaultConfig()
	cfg.AddFlagsToCommand(rootCmd)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCopyCmd())
	rootCmd.AddCommand(newMoveCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newDeviceCmd())
	rootCmd.AddCommand(newServeCmd())
}

// setupCommand creates a logger and a context cancelled on SIGINT/SIGTERM.
func setupCommand(ctx context.Context) (log.Logger, context.Context, context.CancelFunc) {
	logger := log.NewBasicLogger(log.ParseLevel(cfg.LogLevel))
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
			logger.Info("received termination signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	return logger, ctx, cancel
}
