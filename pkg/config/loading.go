package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ferrocp/pkg/helper/errors"
)

// LoadFromFile builds a Config from defaults, then a YAML file (if
// configPath is non-empty), then environment variable overrides, so an
// environment variable wins over the same setting in the file.
func LoadFromFile(configPath string) (*Config, error) {
	cfg := NewDefaultConfig()

	if configPath != "" {
		expanded := ExpandHomeDir(configPath)
		if _, err := os.Stat(expanded); os.IsNotExist(err) {
			return nil, errors.NotFoundf("configuration file not found: %s", expanded)
		}

		data, err := os.ReadFile(expanded)
		if err != nil {
			return nil, errors.Wrap(err, "read configuration file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "parse configuration file")
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromEnv applies FERROCP_* environment variable overrides on top of
// whatever defaults/file values are already in cfg.
func loadFromEnv(cfg *Config) {
	if v, ok := os.LookupEnv("FERROCP_LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv("FERROCP_STATE_FILE"); ok {
		cfg.Engine.StatePath = v
	}
	if v, ok := os.LookupEnv("FERROCP_DEVICE_CACHE_TTL"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Engine.DeviceCacheTTL = d
		}
	}
	if v, ok := os.LookupEnv("FERROCP_BUFFER_POOL_CEILING"); ok {
		cfg.Engine.BufferPoolCeiling = int64(parseIntEnv(v, int(cfg.Engine.BufferPoolCeiling)))
	}
	if v, ok := os.LookupEnv("FERROCP_MAX_CONCURRENCY"); ok {
		cfg.Copy.MaxConcurrency = parseIntEnv(v, cfg.Copy.MaxConcurrency)
	}
	if v, ok := os.LookupEnv("FERROCP_PRESERVE_METADATA"); ok {
		cfg.Copy.PreserveMetadata = parseBoolEnv(v)
	}
	if v, ok := os.LookupEnv("FERROCP_SCHEDULE_CRON"); ok && v != "" {
		cfg.Schedule.Cron = v
	}
}

// SaveToFile writes cfg to filePath as YAML, creating parent directories as
// needed.
func (c *Config) SaveToFile(filePath string) error {
	expanded := ExpandHomeDir(filePath)
	if dir := dirOf(expanded); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create configuration directory")
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode configuration")
	}
	if err := os.WriteFile(expanded, data, 0o644); err != nil {
		return errors.Wrap(err, "write configuration file")
	}
	return nil
}

// Validate rejects configurations that would fail in confusing ways deeper
// in the engine or CLI layer.
func (c *Config) Validate() error {
	level := strings.ToLower(c.LogLevel)
	switch level {
	case "debug", "info", "warn", "error", "fatal":
	default:
		return errors.InvalidArgumentf("invalid log level: %s", c.LogLevel)
	}

	if c.Engine.BufferPoolCeiling <= 0 {
		return errors.InvalidArgumentf("buffer pool ceiling must be positive")
	}
	if c.Copy.MaxConcurrency < 0 {
		return errors.InvalidArgumentf("max concurrency must be non-negative")
	}
	if c.Schedule.Enabled && c.Schedule.Cron == "" {
		return errors.InvalidArgumentf("a cron expression is required when scheduling is enabled")
	}
	return nil
}

func dirOf(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx <= 0 {
		return ""
	}
	return path[:idx]
}
