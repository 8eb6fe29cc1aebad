// Package stats collects per-file copy outcomes into operation-wide
// statistics and, optionally, drives a bounded-rate progress sink, per
// spec §4.8.
package stats

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ferrocp/internal/selector"
)

// CopyStats aggregates one operation's outcomes, per spec §3.
type CopyStats struct {
	FilesCopied            uint64
	DirectoriesCreated     uint64
	BytesCopied            int64
	FilesSkipped           uint64
	Errors                 uint64
	DurationNs             uint64
	ZerocopyOperations     uint64
	ActualTransferRateMbps float64
}

// FileOutcome is the per-file result the dispatcher feeds into the
// aggregator.
type FileOutcome struct {
	Path         string
	BytesCopied  int64
	DurationNs   uint64
	ChosenEngine selector.Engine
	ZeroCopyUsed bool
	Skipped      bool
	Err          error
}

// Event is one progress notification delivered to a caller-supplied sink.
type Event struct {
	FilesCompleted uint64
	FilesTotal     uint64
	BytesCopied    int64
	BytesTotal     int64
	CurrentPath    string
}

// Sink receives progress events. The aggregator calls it synchronously
// from whichever goroutine completes a file, so slow sinks slow down that
// file's dispatch; callers that need async delivery should buffer
// internally.
type Sink func(Event)

// progressInterval and progressPercentStep implement spec §4.8's bounded
// emission rate: "every 100ms or every 1% completion, whichever is later".
const (
	progressInterval    = 100 * time.Millisecond
	progressPercentStep = 0.01
)

// Aggregator owns one operation's CopyStats accumulator, per spec §3's
// "Ownership" note. Dispatchers create one per CopyRequest.
type Aggregator struct {
	mu    sync.Mutex
	stats CopyStats
	start time.Time

	sink        Sink
	filesTotal  uint64
	bytesTotal  int64
	completed   uint64
	lastPercent float64
	limiter     *rate.Limiter
}

// New creates an Aggregator. filesTotal and bytesTotal seed the progress
// percentage denominator; a zero filesTotal disables the percent gate and
// falls back to interval-only emission (acceptable for the walker's first
// pass, which does not pre-count the tree).
func New(filesTotal uint64, bytesTotal int64, sink Sink) *Aggregator {
	return &Aggregator{
		start:      time.Now(),
		sink:       sink,
		filesTotal: filesTotal,
		bytesTotal: bytesTotal,
		limiter:    rate.NewLimiter(rate.Every(progressInterval), 1),
	}
}

// Record folds one file's outcome into the running totals and, if a sink
// is attached, considers emitting a progress event.
func (a *Aggregator) Record(o FileOutcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.completed++
	switch {
	case o.Err != nil:
		a.stats.Errors++
	case o.Skipped:
		a.stats.FilesSkipped++
	default:
		a.stats.FilesCopied++
		a.stats.BytesCopied += o.BytesCopied
		if o.ZeroCopyUsed {
			a.stats.ZerocopyOperations++
		}
	}

	a.maybeEmit(o.Path)
}

// RecordDirectory records the creation of one destination directory.
func (a *Aggregator) RecordDirectory() {
	a.mu.Lock()
	a.stats.DirectoriesCreated++
	a.mu.Unlock()
}

// maybeEmit gates progress emission on both the time interval and the
// completion-percent step, matching "whichever is later": an emission only
// fires once both the 100ms interval has elapsed AND completion has moved
// by at least 1% since the last emission. Caller holds a.mu.
func (a *Aggregator) maybeEmit(path string) {
	if a.sink == nil {
		return
	}

	final := a.filesTotal > 0 && a.completed == a.filesTotal
	if !a.limiter.Allow() && !final {
		return
	}

	percent := 0.0
	if a.filesTotal > 0 {
		percent = float64(a.completed) / float64(a.filesTotal)
		if percent-a.lastPercent < progressPercentStep && !final {
			return
		}
	}

	a.lastPercent = percent
	a.sink(Event{
		FilesCompleted: a.completed,
		FilesTotal:     a.filesTotal,
		BytesCopied:    a.stats.BytesCopied,
		BytesTotal:     a.bytesTotal,
		CurrentPath:    path,
	})
}

// Snapshot returns the current totals with DurationNs and
// ActualTransferRateMbps computed against the elapsed wall-clock time.
func (a *Aggregator) Snapshot() CopyStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	elapsed := time.Since(a.start)
	snap := a.stats
	snap.DurationNs = uint64(elapsed.Nanoseconds())
	if elapsed > 0 {
		snap.ActualTransferRateMbps = (float64(snap.BytesCopied) / (1024 * 1024)) / elapsed.Seconds()
	}
	return snap
}
