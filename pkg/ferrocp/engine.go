// Package ferrocp is the public API surface described in spec.md §6: a
// narrow Engine type wrapping the internal device detector, buffer pool,
// selector, autotuner and walker so callers never reach into internal/*.
package ferrocp

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ferrocp/internal/bufpool"
	"ferrocp/internal/copyengine"
	"ferrocp/internal/device"
	"ferrocp/internal/perfhistory"
	"ferrocp/internal/stats"
	"ferrocp/internal/walker"
	"ferrocp/pkg/helper/errors"
	"ferrocp/pkg/helper/log"
	"ferrocp/pkg/resilience"
)

// defaultDeviceCacheTTL and defaultBufferPoolCeiling seed Engine's internal
// state when Options doesn't override them.
const (
	defaultDeviceCacheTTL      = 5 * time.Minute
	defaultBufferPoolCeiling   = 256 * 1024 * 1024
	defaultStatePersistPeriod  = 0 // disabled unless Options.StatePath is set
	defaultMaxConcurrentOps    = 4
)

// Options configures an Engine at construction time. All fields are
// optional; the zero value is a usable Engine with the defaults from
// spec.md §4.
type Options struct {
	// DeviceCacheTTL bounds how long a device classification is trusted
	// before re-probing. Zero uses the 5 minute default from spec.md §4.1.
	DeviceCacheTTL time.Duration
	// BufferPoolCeiling bounds the pool's total resident memory in bytes.
	// Zero uses a 256MiB default.
	BufferPoolCeiling int64
	// StatePath, if non-empty, persists the autotuner's thresholds across
	// Engine instances per spec.md §6's "Persisted state".
	StatePath string
	// MaxConcurrentOperations bounds how many top-level Copy/CopyWithProgress
	// calls this Engine runs at once, independent of a single operation's
	// internal per-file concurrency. Callers driving an Engine from a
	// server or scheduler rather than a single CLI invocation can end up
	// issuing several operations concurrently against the same Engine;
	// this keeps that fan-in bounded instead of stacking them unbounded
	// on top of each walker's own semaphore. Zero uses a default of 4.
	MaxConcurrentOperations int64
	// Logger receives the engine's operational log lines. A nil Logger
	// falls back to an info-level BasicLogger.
	Logger log.Logger
}

// Engine is the core adaptive copy engine, spec.md §6's
// `Engine.new() -> Engine`.
type Engine struct {
	devices    *device.Cache
	pool       *bufpool.Pool
	selState   *perfhistory.State
	dispatcher *walker.Dispatcher
	logger     log.Logger
	statePath  string
	bulkhead   *resilience.Bulkhead
}

// New constructs an Engine. If opts.StatePath names an existing persisted
// threshold file, it is loaded before the first copy.
func New(opts Options) (*Engine, error) {
	ttl := opts.DeviceCacheTTL
	if ttl <= 0 {
		ttl = defaultDeviceCacheTTL
	}
	ceiling := opts.BufferPoolCeiling
	if ceiling <= 0 {
		ceiling = defaultBufferPoolCeiling
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewBasicLogger(log.InfoLevel)
	}

	devices := device.NewCache(ttl)
	pool := bufpool.NewPool(ceiling)
	selState := perfhistory.NewState()

	if opts.StatePath != "" {
		if err := selState.LoadFromFile(opts.StatePath); err != nil {
			return nil, errors.Wrap(err, "load autotuner state")
		}
	}

	maxOps := opts.MaxConcurrentOperations
	if maxOps <= 0 {
		maxOps = defaultMaxConcurrentOps
	}
	bulkheadSettings := resilience.DefaultBulkheadSettings()
	bulkheadSettings.MaxConcurrent = maxOps

	return &Engine{
		devices:    devices,
		pool:       pool,
		selState:   selState,
		dispatcher: walker.NewDispatcher(devices, pool, selState, logger),
		logger:     logger,
		statePath:  opts.StatePath,
		bulkhead:   resilience.NewBulkhead("engine-operations", bulkheadSettings, logger),
	}, nil
}

// CopyRequest is spec.md §3's CopyRequest entity, the Engine's only input.
type CopyRequest struct {
	SourcePath        string
	DestPath          string
	Mode              Mode
	PreserveMetadata  bool
	Compress          bool
	Overwrite         OverwritePolicy
	IncludeGlobs      []string
	ExcludeGlobs      []string
	MaxConcurrency    int
	FollowSymlinks    bool
	FailFast          bool
	DeleteExtra       bool
	PreserveHardlinks bool
	CleanupOnCancel   bool
}

// Mode mirrors spec.md §6's operation modes (Copy/Move/Sync/Verify).
type Mode = walker.Mode

const (
	Copy   = walker.Copy
	Move   = walker.Move
	Sync   = walker.Sync
	Verify = walker.Verify
)

// OverwritePolicy mirrors spec.md §3's CopyRequest.overwrite.
type OverwritePolicy = copyengine.OverwritePolicy

const (
	Never   = copyengine.Never
	IfNewer = copyengine.IfNewer
	Always  = copyengine.Always
)

// CopyStats is spec.md §3's CopyStats entity, returned by Copy and
// CopyWithProgress.
type CopyStats = stats.CopyStats

// ProgressEvent is delivered to the sink passed to CopyWithProgress.
type ProgressEvent = stats.Event

// ProgressSink receives bounded-rate progress notifications, spec.md §4.8.
type ProgressSink = stats.Sink

// Copy runs req to completion with no progress reporting, spec.md §6's
// `Engine.copy(CopyRequest) -> CopyStats | Error`.
func (e *Engine) Copy(ctx context.Context, req CopyRequest) (CopyStats, error) {
	return e.CopyWithProgress(ctx, req, nil)
}

// CopyWithProgress runs req to completion, invoking sink as progress events
// become available, spec.md §6's
// `Engine.copy_with_progress(CopyRequest, sink) -> CopyStats | Error`. An
// operation id is attached to the engine's log lines so concurrent
// operations are distinguishable.
func (e *Engine) CopyWithProgress(ctx context.Context, req CopyRequest, sink ProgressSink) (CopyStats, error) {
	opID := uuid.New().String()
	opLogger := e.logger.WithField("operation_id", opID).WithField("mode", modeName(req.Mode))
	opLogger.Info("copy operation starting")

	var result CopyStats
	err := e.bulkhead.Execute(ctx, func() error {
		var runErr error
		result, runErr = e.dispatcher.Run(ctx, walker.Request{
			SourcePath:        req.SourcePath,
			DestPath:          req.DestPath,
			Mode:              req.Mode,
			PreserveMetadata:  req.PreserveMetadata,
			Compress:          req.Compress,
			Overwrite:         req.Overwrite,
			IncludeGlobs:      req.IncludeGlobs,
			ExcludeGlobs:      req.ExcludeGlobs,
			MaxConcurrency:    req.MaxConcurrency,
			FollowSymlinks:    req.FollowSymlinks,
			FailFast:          req.FailFast,
			DeleteExtra:       req.DeleteExtra,
			PreserveHardlinks: req.PreserveHardlinks,
			CleanupOnCancel:   req.CleanupOnCancel,
		}, sink)
		return runErr
	})

	if err != nil {
		opLogger.WithError(err).Error("copy operation failed", err)
		return result, err
	}

	if e.statePath != "" {
		if saveErr := e.selState.SaveToFile(e.statePath); saveErr != nil {
			opLogger.WithError(saveErr).Warn("failed to persist autotuner state")
		}
	}

	opLogger.Info("copy operation finished")
	return result, nil
}

// DeviceInfo returns path's classified DeviceProfile, spec.md §6's
// `device_info(path) -> DeviceProfile`.
func (e *Engine) DeviceInfo(path string) DeviceProfile {
	profile := e.devices.Classify(path)
	return DeviceProfile{
		Kind:                 profile.Kind.String(),
		FilesystemName:       profile.FilesystemName,
		OptimalBufferBytes:   profile.OptimalBufferBytes,
		TheoreticalReadMBPS:  profile.TheoreticalReadMBPS,
		TheoreticalWriteMBPS: profile.TheoreticalWriteMBPS,
		SupportsZeroCopy:     profile.SupportsZeroCopy,
		SupportsSparse:       profile.SupportsSparse,
	}
}

// DeviceProfile is the public, string-kinded view of internal/device's
// Profile, spec.md §3's DeviceProfile entity.
type DeviceProfile struct {
	Kind                 string
	FilesystemName       string
	OptimalBufferBytes   uint32
	TheoreticalReadMBPS  float64
	TheoreticalWriteMBPS float64
	SupportsZeroCopy     bool
	SupportsSparse       bool
}

// OperationStats reports how many top-level operations are currently
// running, queued or have been rejected by this Engine's concurrency
// bulkhead.
func (e *Engine) OperationStats() resilience.BulkheadStats {
	return e.bulkhead.Stats()
}

// Thresholds exposes the autotuner's current (micro, small) thresholds, for
// callers building a JSON report's performance_analysis section.
func (e *Engine) Thresholds() (micro, small uint64) {
	return e.selState.Thresholds()
}

func modeName(m Mode) string {
	switch m {
	case Copy:
		return "copy"
	case Move:
		return "move"
	case Sync:
		return "sync"
	case Verify:
		return "verify"
	default:
		return "unknown"
	}
}
