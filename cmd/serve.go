package cmd

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"ferrocp/pkg/ferrocp"
	"ferrocp/pkg/helper/banner"
	"ferrocp/pkg/metrics"
	"ferrocp/pkg/schedule"
)

// newServeCmd creates the long-running server mode: a cron-driven
// recurring Sync (spec.md §13's supplemental feature) with an optional
// Prometheus exporter, grounded on freightliner's `cmd/serve.go`.
func newServeCmd() *cobra.Command {
	var noBanner bool

	cmd := &cobra.Command{
		Use:   "serve <source> <destination>",
		Short: "Run a recurring scheduled sync with an optional metrics exporter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, args[0], args[1], noBanner)
		},
	}

	cfg.AddCopyFlags(cmd)
	cfg.AddScheduleFlags(cmd)
	cfg.AddServeFlags(cmd)
	cmd.Flags().BoolVar(&noBanner, "no-banner", false, "Suppress the startup banner")
	return cmd
}

func runServe(cmd *cobra.Command, sourcePath, destPath string, noBanner bool) error {
	logger, ctx, cancel := setupCommand(cmd.Context())
	defer cancel()

	if !noBanner {
		banner.Version = version
		banner.GitCommit = gitCommit
		banner.BuildTime = buildTime
		banner.Print()
	}

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
		PreserveMetadata:  cfg.Copy.PreserveMetadata,
		MaxConcurrency:    cfg.Copy.MaxConcurrency,
		FollowSymlinks:    cfg.Copy.FollowSymlinks,
		FailFast:          cfg.Copy.FailFast,
		PreserveHardlinks: cfg.Copy.PreserveHardlinks,
		DeleteExtra:       true,
	}

	sched, err := schedule.NewScheduledSync(engine, req, cfg.Schedule.Cron, logger)
	if err != nil {
		return fmt.Errorf("build scheduled sync: %w", err)
	}

	var registry *metrics.Registry
	if cfg.Server.MetricsAddr != "" {
		registry = metrics.NewRegistry()
		sched.SetOnComplete(func(run schedule.Run) {
			status := "completed"
			if run.Status == schedule.RunFailed {
				status = "failed"
			}
			duration := run.EndTime.Sub(run.StartTime)
			registry.RecordOperation("sync", status, duration, run.Stats)
			micro, small := engine.Thresholds()
			registry.SetThresholds(micro, small)
		})

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry.GetRegistry(), promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		go func() {
			logger.WithField("addr", cfg.Server.MetricsAddr).Info("metrics exporter listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Error("metrics exporter failed", err)
			}
		}()
		go func() {
			<-ctx.Done()
			_ = srv.Close()
		}()
	}

	logger.WithField("cron", cfg.Schedule.Cron).Info("starting scheduled sync")
	sched.Start()
	defer sched.Stop()

	<-ctx.Done()
	logger.Info("serve: shutting down")
	fmt.Fprintln(os.Stdout, "shutdown complete")
	return nil
}
