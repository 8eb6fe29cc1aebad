package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ferrocp/pkg/ferrocp"
	"ferrocp/pkg/helper/log"
	"ferrocp/pkg/report"
)

func newCopyCmd() *cobra.Command {
	return newTransferCmd("copy", "Copy files from source to destination", ferrocp.Copy)
}

func newMoveCmd() *cobra.Command {
	return newTransferCmd("move", "Move files from source to destination", ferrocp.Move)
}

func newSyncCmd() *cobra.Command {
	cmd := newTransferCmd("sync", "Mirror source into destination", ferrocp.Sync)
	cmd.Flags().BoolVar(&deleteExtra, "delete-extra", false, "Remove destination entries absent from the source")
	return cmd
}

var (
	overwritePolicy string
	includeGlobs    []string
	excludeGlobs    []string
	compress        bool
	deleteExtra     bool
	jsonReport      string
)

func newTransferCmd(use, short string, mode ferrocp.Mode) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <source> <destination>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd, args[0], args[1], mode)
		},
	}
	cfg.AddCopyFlags(cmd)
	cmd.Flags().StringVar(&overwritePolicy, "overwrite", "if-newer", "Overwrite policy: never, if-newer, always")
	cmd.Flags().StringSliceVar(&includeGlobs, "include", nil, "Glob patterns to include (repeatable)")
	cmd.Flags().StringSliceVar(&excludeGlobs, "exclude", nil, "Glob patterns to exclude (repeatable)")
	cmd.Flags().BoolVar(&compress, "compress", false, "Hint that zero-copy should consider compression compatibility")
	cmd.Flags().StringVar(&jsonReport, "json-report", "", "Write a JSON report to this path after the operation completes")
	return cmd
}

func runTransfer(cmd *cobra.Command, sourcePath, destPath string, mode ferrocp.Mode) error {
	logger, ctx, cancel := setupCommand(cmd.Context())
	defer cancel()

	engine, err := ferrocp.New(ferrocp.Options{
		DeviceCacheTTL:    cfg.Engine.DeviceCacheTTL,
		BufferPoolCeiling: cfg.Engine.BufferPoolCeiling,
		StatePath:         cfg.Engine.StatePath,
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	req := ferrocp.CopyRequest{
		SourcePath:        sourcePath,
		DestPath:          destPath,
		Mode:              mode,
		PreserveMetadata:  cfg.Copy.PreserveMetadata,
		Compress:          compress,
		Overwrite:         parseOverwritePolicy(overwritePolicy),
		IncludeGlobs:      includeGlobs,
		ExcludeGlobs:      excludeGlobs,
		MaxConcurrency:    cfg.Copy.MaxConcurrency,
		FollowSymlinks:    cfg.Copy.FollowSymlinks,
		FailFast:          cfg.Copy.FailFast,
		DeleteExtra:       deleteExtra,
		PreserveHardlinks: cfg.Copy.PreserveHardlinks,
	}

	stats, runErr := engine.CopyWithProgress(ctx, req, progressSink(logger))

	if jsonReport != "" {
		if err := writeReport(engine, sourcePath, destPath, mode, stats, runErr); err != nil {
			logger.WithError(err).Warn("failed to write JSON report")
		}
	}

	if runErr != nil {
		return runErr
	}
	fmt.Printf("copied %d files, %d bytes, %d errors\n", stats.FilesCopied, stats.BytesCopied, stats.Errors)
	return nil
}

func progressSink(logger log.Logger) ferrocp.ProgressSink {
	return func(ev ferrocp.ProgressEvent) {
		if ev.FilesTotal > 0 {
			logger.Info(fmt.Sprintf("progress: %d/%d files, %d bytes", ev.FilesCompleted, ev.FilesTotal, ev.BytesCopied))
		}
	}
}

func writeReport(engine *ferrocp.Engine, sourcePath, destPath string, mode ferrocp.Mode, stats ferrocp.CopyStats, runErr error) error {
	src := engine.DeviceInfo(sourcePath)
	dst := engine.DeviceInfo(destPath)
	rep := report.Build(modeLabel(mode), sourcePath, destPath, src, dst, stats, runErr, version)

	data, err := rep.JSON()
	if err != nil {
		return err
	}
	return os.WriteFile(jsonReport, data, 0o644)
}

func parseOverwritePolicy(s string) ferrocp.OverwritePolicy {
	switch s {
	case "never":
		return ferrocp.Never
	case "always":
		return ferrocp.Always
	default:
		return ferrocp.IfNewer
	}
}

func modeLabel(mode ferrocp.Mode) string {
	switch mode {
	case ferrocp.Copy:
		return "copy"
	case ferrocp.Move:
		return "move"
	case ferrocp.Sync:
		return "sync"
	case ferrocp.Verify:
		return "verify"
	default:
		return "unknown"
	}
}
