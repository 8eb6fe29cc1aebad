// Package walker implements the directory walker and per-file dispatcher
// described in spec §4.7: it enumerates the source tree, applies filters,
// creates destination directories, and dispatches file copies to the
// engines in internal/copyengine under a concurrency cap.
package walker

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"ferrocp/internal/bufpool"
	"ferrocp/internal/copyengine"
	"ferrocp/internal/device"
	"ferrocp/internal/perfhistory"
	"ferrocp/internal/selector"
	"ferrocp/internal/stats"
	"ferrocp/pkg/helper/errors"
	"ferrocp/pkg/helper/log"
	"ferrocp/pkg/helper/util"
	"ferrocp/pkg/resilience"
)

// Mode mirrors CopyRequest.mode from spec §3/§6.
type Mode int

const (
	Copy Mode = iota
	Move
	Sync
	Verify
)

// defaultMaxConcurrency is spec §4.7's default: min(CPU count, 8).
func defaultMaxConcurrency() int {
	n := runtime.NumCPU()
	if n > 8 {
		return 8
	}
	return n
}

// Request is spec §3's CopyRequest entity.
type Request struct {
	SourcePath        string
	DestPath          string
	Mode              Mode
	PreserveMetadata  bool
	Compress          bool
	Overwrite         copyengine.OverwritePolicy
	IncludeGlobs      []string
	ExcludeGlobs      []string
	MaxConcurrency    int
	FollowSymlinks    bool
	FailFast          bool
	DeleteExtra       bool
	PreserveHardlinks bool
	CleanupOnCancel   bool
}

// inodeKey identifies a file by (device, inode) for hardlink detection.
type inodeKey struct {
	dev uint64
	ino uint64
}

// Dispatcher holds the SelectorState shared by every operation it runs;
// each Run builds its own CopyStats accumulator. A Dispatcher is built once
// per engine instance and reused across CopyRequests so the autotuner's
// history persists between operations.
type Dispatcher struct {
	Devices  *device.Cache
	Pool     *bufpool.Pool
	SelState *perfhistory.State
	Logger   log.Logger

	// warnLimiter caps how often per-file warnings (failed source removal
	// after a move, failed symlink recreation, ...) actually reach the
	// log. A tree with thousands of permission-denied files would
	// otherwise drown the log in repeats of the same warning.
	warnLimiter *resilience.RateLimiter
}

// NewDispatcher wires together the device cache, buffer pool and selector
// state a Run call needs. Any of devices/pool/selState may be freshly
// constructed by the caller (pkg/ferrocp.Engine owns their lifetime).
func NewDispatcher(devices *device.Cache, pool *bufpool.Pool, selState *perfhistory.State, logger log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.NewBasicLogger(log.InfoLevel)
	}
	warnSettings := resilience.DefaultRateLimiterSettings()
	warnSettings.RequestsPerSecond = 20
	warnSettings.BurstSize = 20
	return &Dispatcher{
		Devices:     devices,
		Pool:        pool,
		SelState:    selState,
		Logger:      logger,
		warnLimiter: resilience.NewRateLimiter("walker-warnings", warnSettings, logger),
	}
}

// warnf logs a per-file warning unless the Dispatcher's warning rate
// limiter (20 per second, burst 20, shared by every Run of this
// Dispatcher) has no token left, so a failing subtree produces a bounded
// number of log lines instead of one per file.
func (d *Dispatcher) warnf(path, message string) {
	if !d.warnLimiter.Allow() {
		return
	}
	d.Logger.WithField("path", path).Warn(message)
}

// hardlinkTable tracks inode -> destination path for one Run, guarded by a
// mutex since file dispatch runs concurrently.
type hardlinkTable struct {
	mu    sync.Mutex
	links map[inodeKey]string
}

func (h *hardlinkTable) linkOrClaim(key inodeKey, dstPath string) (existing string, claimed bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.links == nil {
		h.links = make(map[inodeKey]string)
	}
	if existing, ok := h.links[key]; ok {
		return existing, false
	}
	h.links[key] = dstPath
	return "", true
}

// Run walks req.SourcePath, dispatches each file to the copy engines, and
// returns the operation's aggregated CopyStats. A non-nil error indicates a
// system-wide failure (missing source root, unwritable destination root);
// per-file failures are recorded in the returned CopyStats.Errors instead.
func (d *Dispatcher) Run(ctx context.Context, req Request, sink stats.Sink) (stats.CopyStats, error) {
	rootInfo, err := os.Stat(req.SourcePath)
	if err != nil {
		return stats.CopyStats{}, errors.NotFoundf("source root %s: %v", req.SourcePath, err)
	}

	srcProfile := d.Devices.Classify(req.SourcePath)
	dstProfile := d.Devices.Classify(req.DestPath)

	if rootInfo.IsDir() && req.Mode != Verify {
		if err := os.MkdirAll(req.DestPath, rootInfo.Mode().Perm()|0o700); err != nil {
			return stats.CopyStats{}, errors.IoFatalf("create destination root %s: %v", req.DestPath, err)
		}
	}

	agg := stats.New(0, 0, sink)
	filters := newFilterSet(req.IncludeGlobs, req.ExcludeGlobs)

	maxConcurrency := req.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency()
	}
	sem := semaphore.NewWeighted(int64(maxConcurrency))
	group := util.NewLimitedErrGroup(ctx, 0)

	var hardlinks hardlinkTable
	var aborted atomic.Bool

	walkErr := filepath.WalkDir(req.SourcePath, func(srcPath string, entry fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				agg.Record(stats.FileOutcome{Path: srcPath, Err: errors.NotFoundf("%s disappeared during walk: %v", srcPath, err)})
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if aborted.Load() {
			return filepath.SkipAll
		}

		rel, err := filepath.Rel(req.SourcePath, srcPath)
		if err != nil {
			return err
		}
		dstPath := filepath.Join(req.DestPath, rel)

		if entry.IsDir() {
			if rel == "." {
				return nil
			}
			if !filters.admit(filepath.ToSlash(rel)) {
				return fs.SkipDir
			}
			info, err := entry.Info()
			if err != nil {
				agg.Record(stats.FileOutcome{Path: srcPath, Err: errors.Wrap(err, "stat directory %s", srcPath)})
				return fs.SkipDir
			}
			if req.Mode != Verify {
				if err := os.MkdirAll(dstPath, info.Mode().Perm()|0o700); err != nil {
					agg.Record(stats.FileOutcome{Path: srcPath, Err: errors.IoFatalf("create directory %s: %v", dstPath, err)})
					if req.FailFast {
						aborted.Store(true)
					}
					return fs.SkipDir
				}
			}
			agg.RecordDirectory()
			return nil
		}

		if !filters.admit(filepath.ToSlash(rel)) {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			agg.Record(stats.FileOutcome{Path: srcPath, Err: errors.Wrap(err, "stat %s", srcPath)})
			return nil
		}

		if entry.Type()&fs.ModeSymlink != 0 && !req.FollowSymlinks {
			if err := recreateSymlink(srcPath, dstPath); err != nil {
				agg.Record(stats.FileOutcome{Path: srcPath, Err: err})
			} else {
				agg.Record(stats.FileOutcome{Path: srcPath})
			}
			return nil
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}

		group.Go(func() error {
			defer sem.Release(1)
			outcome := d.dispatchFile(ctx, req, srcPath, dstPath, info, srcProfile, dstProfile, &hardlinks)
			agg.Record(outcome)
			if outcome.Err != nil && req.FailFast {
				aborted.Store(true)
			}
			return nil
		})

		return nil
	})

	groupErr := group.Wait()

	if req.Mode == Sync && req.DeleteExtra && walkErr == nil {
		d.deleteExtraneous(req, filters, agg)
	}

	finalStats := agg.Snapshot()

	if walkErr != nil && walkErr != filepath.SkipAll && !errors.Is(walkErr, context.Canceled) {
		return finalStats, errors.Wrap(walkErr, "walk %s", req.SourcePath)
	}
	if ctx.Err() != nil {
		return finalStats, errors.Cancelledf("operation on %s cancelled: %v", req.SourcePath, ctx.Err())
	}
	if groupErr != nil {
		return finalStats, errors.Wrap(groupErr, "dispatch")
	}
	return finalStats, nil
}

// dispatchFile handles one regular file: hardlink short-circuit, mode
// dispatch (Verify has no engine involvement; Copy/Sync/Move route through
// the selector and copy engines), and Move's copy-then-delete-source.
func (d *Dispatcher) dispatchFile(ctx context.Context, req Request, srcPath, dstPath string, info os.FileInfo, srcProfile, dstProfile device.Profile, hardlinks *hardlinkTable) stats.FileOutcome {
	if req.PreserveHardlinks && info.Mode().IsRegular() {
		if key, ok := inodeOf(info); ok {
			if existing, claimed := hardlinks.linkOrClaim(key, dstPath); !claimed {
				if err := relinkHardlink(existing, dstPath); err != nil {
					return stats.FileOutcome{Path: srcPath, Err: err}
				}
				return stats.FileOutcome{Path: srcPath, BytesCopied: info.Size()}
			}
		}
	}

	if req.Mode == Verify {
		start := time.Now()
		err := verifyFile(srcPath, dstPath)
		return stats.FileOutcome{
			Path:       srcPath,
			DurationNs: uint64(time.Since(start).Nanoseconds()),
			Err:        err,
		}
	}

	choice := selector.Select(info.Size(), srcProfile, dstProfile, d.SelState, req.Compress, info.Mode().IsRegular())

	outcome := copyengine.Execute(ctx, copyengine.Request{
		SrcPath:          srcPath,
		DstPath:          dstPath,
		PreserveMetadata: req.PreserveMetadata,
		Compress:         req.Compress,
		Overwrite:        effectiveOverwrite(req),
	}, choice, d.Pool, srcProfile, dstProfile, d.Devices)

	d.SelState.Record(selector.ClassFor(info.Size(), d.SelState), outcome.BytesCopied, outcome.DurationNs)
	d.SelState.MaybeTune()

	if outcome.Err == nil && !outcome.Skipped && req.Mode == Move {
		if err := os.Remove(srcPath); err != nil {
			d.warnf(srcPath, "move: failed to remove source after copy")
		}
	}

	return stats.FileOutcome{
		Path:         srcPath,
		BytesCopied:  outcome.BytesCopied,
		DurationNs:   outcome.DurationNs,
		ChosenEngine: outcome.ChosenEngine,
		ZeroCopyUsed: outcome.ZeroCopyUsed,
		Skipped:      outcome.Skipped,
		Err:          outcome.Err,
	}
}

// effectiveOverwrite implements the open question decision recorded in
// SPEC_FULL.md §14/DESIGN.md: Sync mode always compares mtime/size
// (IfNewer) to guarantee the idempotence property in spec §8, unless the
// caller explicitly forces Always.
func effectiveOverwrite(req Request) copyengine.OverwritePolicy {
	if req.Mode == Sync && req.Overwrite != copyengine.Always {
		return copyengine.IfNewer
	}
	return req.Overwrite
}

func recreateSymlink(srcPath, dstPath string) error {
	target, err := os.Readlink(srcPath)
	if err != nil {
		return errors.Wrap(err, "readlink %s", srcPath)
	}
	_ = os.Remove(dstPath)
	if err := os.Symlink(target, dstPath); err != nil {
		return errors.IoFatalf("symlink %s -> %s: %v", dstPath, target, err)
	}
	return nil
}

func relinkHardlink(existingDst, dstPath string) error {
	if _, err := os.Stat(dstPath); err == nil {
		return nil
	}
	if err := os.Link(existingDst, dstPath); err != nil {
		return errors.IoFatalf("hardlink %s -> %s: %v", dstPath, existingDst, err)
	}
	return nil
}

// deleteExtraneous implements Sync's delete_extra option: walk the
// destination and remove entries that have no corresponding source path.
func (d *Dispatcher) deleteExtraneous(req Request, filters filterSet, agg *stats.Aggregator) {
	_ = filepath.WalkDir(req.DestPath, func(dstPath string, entry fs.DirEntry, err error) error {
		if err != nil || dstPath == req.DestPath {
			return nil
		}
		rel, err := filepath.Rel(req.DestPath, dstPath)
		if err != nil {
			return nil
		}
		if !filters.admit(filepath.ToSlash(rel)) {
			return nil
		}
		srcPath := filepath.Join(req.SourcePath, rel)
		if _, statErr := os.Lstat(srcPath); statErr == nil {
			return nil
		}

		if entry.IsDir() {
			if err := os.RemoveAll(dstPath); err != nil {
				agg.Record(stats.FileOutcome{Path: dstPath, Err: errors.IoFatalf("remove extraneous directory %s: %v", dstPath, err)})
			}
			return fs.SkipDir
		}
		if err := os.Remove(dstPath); err != nil {
			agg.Record(stats.FileOutcome{Path: dstPath, Err: errors.IoFatalf("remove extraneous file %s: %v", dstPath, err)})
		}
		return nil
	})
}
