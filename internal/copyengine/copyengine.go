// Package copyengine executes single-file copies under one of the four
// strategies chosen by the selector, per spec §4.4.
package copyengine

import (
	"context"
	"os"
	"time"

	"ferrocp/internal/bufpool"
	"ferrocp/internal/device"
	"ferrocp/internal/selector"
	"ferrocp/internal/zerocopy"
	"ferrocp/pkg/helper/errors"
	"ferrocp/pkg/helper/log"
)

// OverwritePolicy mirrors CopyRequest.overwrite from spec §3.
type OverwritePolicy int

const (
	Never OverwritePolicy = iota
	IfNewer
	Always
)

// Request is one file's copy instruction, a narrowed view of CopyRequest
// scoped to a single source/destination pair.
type Request struct {
	SrcPath          string
	DstPath          string
	PreserveMetadata bool
	Compress         bool
	Overwrite        OverwritePolicy
}

// Outcome is spec §3's FileOutcome entity.
type Outcome struct {
	BytesCopied  int64
	DurationNs   uint64
	ChosenEngine selector.Engine
	ZeroCopyUsed bool
	Skipped      bool
	Err          error
}

// retryBackoff is the backoff schedule per spec §4.4; its length is the
// retry count.
var retryBackoff = []time.Duration{50 * time.Millisecond, 200 * time.Millisecond, 500 * time.Millisecond}

// zeroCopyUnsupportedTTL bounds how long a destination profile stays
// marked supports_zero_copy=false after the kernel rejects the syscall,
// per spec §4.3.
const zeroCopyUnsupportedTTL = 5 * time.Minute

// Execute runs choice.Engine against req, borrowing a buffer from pool when
// the chosen engine needs one. It never returns a buffer to the pool itself
// for ZeroCopy or Micro (which don't acquire one); SmallSync and LargeAsync
// release their buffer, observing throughput, before returning. devices may
// be nil in tests that don't exercise the zero-copy fallback path.
func Execute(ctx context.Context, req Request, choice selector.Choice, pool *bufpool.Pool, srcProfile, dstProfile device.Profile, devices *device.Cache) Outcome {
	start := time.Now()

	skip, err := applyOverwritePolicy(req)
	if err != nil {
		return Outcome{ChosenEngine: choice.Engine, Err: err}
	}
	if skip {
		return Outcome{ChosenEngine: choice.Engine, Skipped: true}
	}

	var outcome Outcome
	switch choice.Engine {
	case selector.Micro:
		outcome = copyMicro(ctx, req)
	case selector.SmallSync:
		outcome = copySmallSync(ctx, req, choice, pool, srcProfile, dstProfile)
	case selector.LargeAsync:
		outcome = copyLargeAsync(ctx, req, choice, pool, srcProfile, dstProfile)
	case selector.ZeroCopy:
		outcome = copyZeroCopy(ctx, req)
		if errors.Is(outcome.Err, errors.ErrZeroCopyUnsupported) {
			// Caller's zero-copy preconditions said yes, but the kernel
			// disagreed; fall back to the buffered path per spec §4.3.
			if devices != nil {
				devices.MarkZeroCopyUnsupported(req.DstPath, zeroCopyUnsupportedTTL)
			}
			outcome = copyLargeAsync(ctx, req, selector.Choice{Engine: selector.LargeAsync}, pool, srcProfile, dstProfile)
		}
	default:
		outcome = Outcome{Err: errors.InvalidArgumentf("unknown engine %v", choice.Engine)}
	}

	outcome.ChosenEngine = choice.Engine
	if outcome.Err == nil && req.PreserveMetadata {
		if err := preserveMetadata(req.SrcPath, req.DstPath); err != nil {
			// Metadata failures are warned, not fatal, per spec §4.4.
			log.WithError(err).Warn("failed to preserve metadata", map[string]interface{}{"path": req.DstPath})
		}
	}
	outcome.DurationNs = uint64(time.Since(start).Nanoseconds())
	return outcome
}

// applyOverwritePolicy implements spec §4.4's overwrite semantics.
func applyOverwritePolicy(req Request) (skip bool, err error) {
	dstInfo, statErr := os.Stat(req.DstPath)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return false, nil
		}
		return false, errors.IoTransientf("stat destination %s: %v", req.DstPath, statErr)
	}

	switch req.Overwrite {
	case Never:
		return true, nil
	case IfNewer:
		srcInfo, err := os.Stat(req.SrcPath)
		if err != nil {
			return false, errors.NotFoundf("stat source %s: %v", req.SrcPath, err)
		}
		if !dstInfo.ModTime().Before(srcInfo.ModTime()) && dstInfo.Size() == srcInfo.Size() {
			return true, nil
		}
		return false, nil
	case Always:
		return false, nil
	default:
		return false, errors.InvalidArgumentf("unknown overwrite policy %v", req.Overwrite)
	}
}

// zeroCopyEligibleSize matches spec §4.3/§4.4's zerocopy_threshold.
func zeroCopyEligibleSize() int64 { return zerocopy.Threshold() }
