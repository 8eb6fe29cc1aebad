// Package selector maps a file's size and device profiles to an
// EngineChoice, per spec §4.5.
package selector

import (
	"ferrocp/internal/device"
	"ferrocp/internal/perfhistory"
	"ferrocp/internal/zerocopy"
)

// Engine is the tagged variant of copy strategies a file can be dispatched to.
type Engine int

const (
	Micro Engine = iota
	SmallSync
	LargeAsync
	ZeroCopy
)

func (e Engine) String() string {
	switch e {
	case Micro:
		return "micro"
	case SmallSync:
		return "small_sync"
	case LargeAsync:
		return "large_async"
	case ZeroCopy:
		return "zero_copy"
	default:
		return "unknown"
	}
}

// Choice is the selector's decision for one file: which engine to use, the
// buffer size to request, and a diagnostic reason string.
type Choice struct {
	Engine     Engine
	BufferSize uint32
	Reason     string
}

// Select implements spec §4.5's decision order: zero-copy first (when its
// preconditions hold and the file clears zerocopy_threshold), then micro,
// small-sync, large-async by ascending size threshold. Ties at a threshold
// boundary belong to the lower (≤) class.
func Select(fileSize int64, src, dst device.Profile, state *perfhistory.State, compress bool, srcIsRegular bool) Choice {
	state.IncrementSelections()
	microThreshold, smallThreshold := state.Thresholds()

	zeroCopyEligible := zerocopy.Preconditions(src, dst, compress, fileSize, srcIsRegular) &&
		fileSize >= zerocopy.Threshold()

	switch {
	case zeroCopyEligible:
		return Choice{Engine: ZeroCopy, BufferSize: 0, Reason: "zero-copy preconditions satisfied"}
	case fileSize <= int64(microThreshold):
		return Choice{Engine: Micro, BufferSize: uint32(fileSize), Reason: "size <= micro_threshold"}
	case fileSize <= int64(smallThreshold):
		return Choice{
			Engine:     SmallSync,
			BufferSize: reportedBufferSize(fileSize, dst),
			Reason:     "size <= small_threshold",
		}
	default:
		return Choice{
			Engine:     LargeAsync,
			BufferSize: reportedBufferSize(fileSize, dst),
			Reason:     "size > small_threshold",
		}
	}
}

// ClassFor maps a file size to the performance class used for throughput
// attribution (spec §4.5's "Selector ... records the performance class").
func ClassFor(fileSize int64, state *perfhistory.State) perfhistory.Class {
	micro, small := state.Thresholds()
	switch {
	case fileSize <= int64(micro):
		return perfhistory.Micro
	case fileSize <= int64(small):
		return perfhistory.Small
	default:
		return perfhistory.Large
	}
}

// reportedBufferSize implements spec §4.5: request
// min(next_pow2(file_size), dst_profile.optimal_buffer_bytes).
func reportedBufferSize(fileSize int64, dst device.Profile) uint32 {
	pow2 := nextPow2(fileSize)
	if pow2 > uint32(dst.OptimalBufferBytes) {
		return dst.OptimalBufferBytes
	}
	return pow2
}

func nextPow2(n int64) uint32 {
	if n <= 1 {
		return 1
	}
	k := uint32(1)
	for int64(k) < n {
		k <<= 1
	}
	return k
}
