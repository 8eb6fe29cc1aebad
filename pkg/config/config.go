// Package config holds ferrocp's tunable settings and the CLI flag/env/file
// layering used to populate them, grounded on freightliner's pkg/config.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// Config is ferrocp's top-level configuration.
type Config struct {
	LogLevel string

	Engine   EngineConfig
	Copy     CopyConfig
	Schedule ScheduleConfig
	Server   ServerConfig
}

// EngineConfig covers the core engine's tunables, spec.md §10.3's "engine's
// tunables (concurrency cap, thresholds seed values, buffer pool ceiling,
// TTLs)".
type EngineConfig struct {
	DeviceCacheTTL    time.Duration
	BufferPoolCeiling int64
	StatePath         string
}

// CopyConfig holds the default values for a CopyRequest built by the CLI.
type CopyConfig struct {
	MaxConcurrency    int
	PreserveMetadata  bool
	FollowSymlinks    bool
	FailFast          bool
	PreserveHardlinks bool
}

// ScheduleConfig configures the optional cron-driven recurring sync.
type ScheduleConfig struct {
	Enabled bool
	Cron    string
}

// ServerConfig configures the optional `serve` subcommand's Prometheus
// exporter, the CLI-owned collaborator named in spec.md §1/§11.
type ServerConfig struct {
	MetricsAddr string
}

// NewDefaultConfig returns a Config populated with ferrocp's defaults.
func NewDefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Engine: EngineConfig{
			DeviceCacheTTL:    5 * time.Minute,
			BufferPoolCeiling: 256 * 1024 * 1024,
			StatePath:         "",
		},
		Copy: CopyConfig{
			MaxConcurrency:    0,
			PreserveMetadata:  true,
			FollowSymlinks:    false,
			FailFast:          false,
			PreserveHardlinks: false,
		},
		Schedule: ScheduleConfig{
			Enabled: false,
			Cron:    "@hourly",
		},
		Server: ServerConfig{
			MetricsAddr: "",
		},
	}
}

// AddFlagsToCommand registers the global, persistent flags shared by every
// subcommand.
func (c *Config) AddFlagsToCommand(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error, fatal)")
	cmd.PersistentFlags().DurationVar(&c.Engine.DeviceCacheTTL, "device-cache-ttl", c.Engine.DeviceCacheTTL, "How long a device classification is trusted before re-probing")
	cmd.PersistentFlags().Int64Var(&c.Engine.BufferPoolCeiling, "buffer-pool-ceiling", c.Engine.BufferPoolCeiling, "Maximum resident memory for the buffer pool, in bytes")
	cmd.PersistentFlags().StringVar(&c.Engine.StatePath, "state-file", c.Engine.StatePath, "Path to the persisted autotuner threshold state file (empty disables persistence)")
}

// AddCopyFlags registers the flags shared by the copy/move/sync subcommands.
func (c *Config) AddCopyFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&c.Copy.MaxConcurrency, "max-concurrency", c.Copy.MaxConcurrency, "Maximum concurrent file dispatches (0 = auto-detect)")
	cmd.Flags().BoolVar(&c.Copy.PreserveMetadata, "preserve-metadata", c.Copy.PreserveMetadata, "Preserve modification time and permissions")
	cmd.Flags().BoolVar(&c.Copy.FollowSymlinks, "follow-symlinks", c.Copy.FollowSymlinks, "Follow symlinks instead of recreating them")
	cmd.Flags().BoolVar(&c.Copy.FailFast, "fail-fast", c.Copy.FailFast, "Abort the operation on the first file error")
	cmd.Flags().BoolVar(&c.Copy.PreserveHardlinks, "preserve-hardlinks", c.Copy.PreserveHardlinks, "Re-link hardlinked files at the destination instead of duplicating content")
}

// AddScheduleFlags registers the cron-schedule flags.
func (c *Config) AddScheduleFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&c.Schedule.Enabled, "schedule", c.Schedule.Enabled, "Run as a recurring scheduled sync instead of a one-shot operation")
	cmd.Flags().StringVar(&c.Schedule.Cron, "cron", c.Schedule.Cron, "Cron expression for the scheduled sync")
}

// AddServeFlags registers the flags for the long-running serve subcommand.
func (c *Config) AddServeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.Server.MetricsAddr, "metrics-addr", c.Server.MetricsAddr, "Address to serve Prometheus metrics on (empty disables the exporter)")
}

// ExpandHomeDir expands a leading ~ or ${HOME} in path.
func ExpandHomeDir(path string) string {
	if path == "" {
		return path
	}
	if strings.Contains(path, "${HOME}") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "${HOME}", home)
		}
	}
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	return path
}

func parseBoolEnv(value string) bool {
	return strings.ToLower(value) == "true" || value == "1"
}

func parseIntEnv(value string, fallback int) int {
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return fallback
}
