package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ferrocp/pkg/ferrocp"
)

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <source> <destination>",
		Short: "Compare source and destination contents without writing anything",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, args[0], args[1])
		},
	}
	cmd.Flags().StringSliceVar(&includeGlobs, "include", nil, "Glob patterns to include (repeatable)")
	cmd.Flags().StringSliceVar(&excludeGlobs, "exclude", nil, "Glob patterns to exclude (repeatable)")
	return cmd
}

func runVerify(cmd *cobra.Command, sourcePath, destPath string) error {
	logger, ctx, cancel := setupCommand(cmd.Context())
	defer cancel()

	engine, err := ferrocp.New(ferrocp.Options{
		DeviceCacheTTL:    cfg.Engine.DeviceCacheTTL,
		BufferPoolCeiling: cfg.Engine.BufferPoolCeiling,
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	stats, runErr := engine.Copy(ctx, ferrocp.CopyRequest{
		SourcePath:     sourcePath,
		DestPath:       destPath,
		Mode:           ferrocp.Verify,
		IncludeGlobs:   includeGlobs,
		ExcludeGlobs:   excludeGlobs,
		MaxConcurrency: cfg.Copy.MaxConcurrency,
	})
	if runErr != nil {
		return runErr
	}

	if stats.Errors > 0 {
		fmt.Printf("verification failed: %d mismatches out of %d files\n", stats.Errors, stats.FilesCopied+stats.Errors)
		return fmt.Errorf("%d files differ", stats.Errors)
	}
	fmt.Printf("verified %d files, all match\n", stats.FilesCopied)
	return nil
}
