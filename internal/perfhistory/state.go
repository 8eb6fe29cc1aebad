package perfhistory

import (
	"sync"
	"time"
)

// Thresholds from spec §3's SelectorState invariants and §4.5.
const (
	minMicroThreshold      = 1024
	maxSmallThreshold      = 64 * 1024
	defaultMicroThreshold  = 4 * 1024
	defaultSmallThreshold  = 16 * 1024
	minSamplesForAdjust      = 100
	minAdjustIntervalSecs    = 60
	minPercentChangeApply    = 0.10
	predictedImprovementGate = 0.05
	recommendedSmallCap      = 32 * 1024
	rollbackWindowSize     = 3
	rollbackDropThreshold  = 0.05
	rollbackMinSamples     = 50
)

// thresholdSnapshot captures the pair of thresholds in effect after one
// adjustment, so a single-step rollback (spec §4.6 "Safety") never needs
// persisted storage beyond the in-memory rolling window.
type thresholdSnapshot struct {
	micro, small    uint64
	weightedBpsThen float64
	samplesThen     uint64
}

// State is the selector's mutable tuning state: current thresholds, the
// per-class performance history, and autotune bookkeeping. SelectorState
// and PerformanceHistory share a single writer lock; readers take a shared
// lock, per spec §5.
type State struct {
	mu sync.RWMutex

	MicroThreshold uint64
	SmallThreshold uint64

	histories map[Class]*History

	TotalSelections      uint64
	ThresholdAdjustments uint64

	lastAdjustment time.Time
	rollbackWindow []thresholdSnapshot
}

// NewState creates a State with the default thresholds from spec §4.4.
func NewState() *State {
	return &State{
		MicroThreshold: defaultMicroThreshold,
		SmallThreshold: defaultSmallThreshold,
		histories: map[Class]*History{
			Micro: {}, Small: {}, Large: {},
		},
	}
}

// Thresholds returns the current (micro, small) thresholds under a read lock.
func (s *State) Thresholds() (micro, small uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.MicroThreshold, s.SmallThreshold
}

// IncrementSelections records that the selector dispatched one more file,
// for SelectorState.total_selections.
func (s *State) IncrementSelections() {
	s.mu.Lock()
	s.TotalSelections++
	s.mu.Unlock()
}

// Record ingests one file's throughput sample into its class history.
func (s *State) Record(class Class, bytes int64, durationNs uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories[class].record(bytes, durationNs, time.Now())
}

// HistorySnapshot returns a copy of a class's history for read-only use
// (e.g. by reporting or metrics) without exposing the internal pointer.
func (s *State) HistorySnapshot(class Class) History {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.histories[class]
}

// MaybeTune evaluates the autotune trigger and, if conditions are met,
// recommends and applies new thresholds per spec §4.6. It returns true if
// an adjustment was applied.
func (s *State) MaybeTune() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.triggerConditionsMet() {
		return false
	}

	newMicro, newSmall, changed := recommend(s.MicroThreshold, s.SmallThreshold, s.histories)
	if !changed {
		return false
	}
	if newMicro > newSmall/2 {
		newMicro = newSmall / 2
	}

	if !s.passesApplyGate(newMicro, newSmall) {
		return false
	}

	if s.shouldRollback() {
		s.rollbackOneStep()
		return true
	}

	s.pushSnapshot()
	s.MicroThreshold = newMicro
	s.SmallThreshold = newSmall
	s.ThresholdAdjustments++
	s.lastAdjustment = time.Now()
	return true
}

func (s *State) triggerConditionsMet() bool {
	for _, h := range s.histories {
		if h.SampleCount < minSamplesForAdjust {
			return false
		}
	}
	if !s.lastAdjustment.IsZero() && time.Since(s.lastAdjustment) < minAdjustIntervalSecs*time.Second {
		return false
	}
	return true
}

// recommend implements spec §4.6's recommendation algorithm.
func recommend(micro, small uint64, histories map[Class]*History) (newMicro, newSmall uint64, changed bool) {
	tm := histories[Micro].AvgThroughputBps
	ts := histories[Small].AvgThroughputBps
	tl := histories[Large].AvgThroughputBps

	newMicro, newSmall = micro, small

	if ts == 0 || tl == 0 {
		return newMicro, newSmall, false
	}

	rMs := tm / ts
	rSl := ts / tl

	switch {
	case rMs > 1.25:
		candidate := min3(micro*3/2, small/2, 8*1024)
		if candidate != newMicro {
			newMicro, changed = candidate, true
		}
	case rMs < 0.80:
		candidate := maxU64(micro*2/3, minMicroThreshold)
		if candidate != newMicro {
			newMicro, changed = candidate, true
		}
	}

	switch {
	case rSl > 1.15:
		candidate := minU64(small*5/4, recommendedSmallCap)
		if candidate != newSmall {
			newSmall, changed = candidate, true
		}
	case rSl < 0.85:
		candidate := maxU64(small*4/5, 4*1024)
		if candidate != newSmall {
			newSmall, changed = candidate, true
		}
	}

	return newMicro, newSmall, changed
}

// passesApplyGate enforces spec §4.6's apply condition: at least a 10%
// relative change, and the predicted improvement (the weighted throughput
// if files migrate to the faster class in proportion to historical size
// distribution) must clear the 5% gate.
func (s *State) passesApplyGate(newMicro, newSmall uint64) bool {
	microChange := percentChange(s.MicroThreshold, newMicro)
	smallChange := percentChange(s.SmallThreshold, newSmall)
	maxChange := microChange
	if smallChange > maxChange {
		maxChange = smallChange
	}
	if maxChange < minPercentChangeApply {
		return false
	}

	return s.predictedImprovement(newMicro, newSmall) >= predictedImprovementGate
}

// predictedImprovement estimates the weighted class throughput under the
// proposed thresholds, weighting each class's avg_throughput_bps by its
// historical sample share, and compares it to the current weighting.
func (s *State) predictedImprovement(newMicro, newSmall uint64) float64 {
	current := s.weightedThroughput()
	proposed := s.weightedThroughputAtBoundary(newMicro, newSmall)

	if current == 0 {
		return 0
	}
	return (proposed - current) / current
}

func (s *State) weightedThroughput() float64 {
	return weightedAvg(s.histories)
}

// weightedThroughputAtBoundary approximates the post-adjustment weighted
// throughput by migrating sample share between neighboring classes toward
// whichever side has the higher avg_throughput_bps. The fraction migrated
// tracks how far the boundary actually moved (percentChange of the
// corresponding threshold, capped at 50%) rather than a flat constant, so a
// boundary that barely moves predicts almost no improvement and a boundary
// that moves by half predicts a correspondingly larger one.
func (s *State) weightedThroughputAtBoundary(newMicro, newSmall uint64) float64 {
	tm := s.histories[Micro].AvgThroughputBps
	ts := s.histories[Small].AvgThroughputBps
	tl := s.histories[Large].AvgThroughputBps
	nm := float64(s.histories[Micro].SampleCount)
	ns := float64(s.histories[Small].SampleCount)
	nl := float64(s.histories[Large].SampleCount)

	microShift := percentChange(s.MicroThreshold, newMicro)
	if microShift > 0.5 {
		microShift = 0.5
	}
	smallShift := percentChange(s.SmallThreshold, newSmall)
	if smallShift > 0.5 {
		smallShift = 0.5
	}

	if tm > ts {
		moved := ns * microShift
		ns -= moved
		nm += moved
	} else {
		moved := nm * microShift
		nm -= moved
		ns += moved
	}
	if ts > tl {
		moved := nl * smallShift
		nl -= moved
		ns += moved
	} else {
		moved := ns * smallShift
		ns -= moved
		nl += moved
	}

	total := nm + ns + nl
	if total == 0 {
		return 0
	}
	return (nm*tm + ns*ts + nl*tl) / total
}

func weightedAvg(histories map[Class]*History) float64 {
	var totalSamples float64
	var weighted float64
	for _, h := range histories {
		n := float64(h.SampleCount)
		totalSamples += n
		weighted += n * h.AvgThroughputBps
	}
	if totalSamples == 0 {
		return 0
	}
	return weighted / totalSamples
}

// shouldRollback implements the rollback check from spec §4.6: if the most
// recent adjustment was followed by an observed class-weighted throughput
// drop of more than 5% over at least 50 samples, revert to the prior
// thresholds instead of applying a new change.
func (s *State) shouldRollback() bool {
	if len(s.rollbackWindow) == 0 {
		return false
	}

	last := s.rollbackWindow[len(s.rollbackWindow)-1]
	var samplesNow uint64
	for _, h := range s.histories {
		samplesNow += h.SampleCount
	}
	if samplesNow < last.samplesThen || samplesNow-last.samplesThen < rollbackMinSamples {
		return false
	}

	current := s.weightedThroughput()
	if last.weightedBpsThen == 0 {
		return false
	}
	drop := (last.weightedBpsThen - current) / last.weightedBpsThen
	return drop > rollbackDropThreshold
}

func (s *State) rollbackOneStep() {
	if len(s.rollbackWindow) == 0 {
		return
	}
	prior := s.rollbackWindow[len(s.rollbackWindow)-1]
	s.rollbackWindow = s.rollbackWindow[:len(s.rollbackWindow)-1]
	s.MicroThreshold = prior.micro
	s.SmallThreshold = prior.small
	s.ThresholdAdjustments++
}

func (s *State) pushSnapshot() {
	var samples uint64
	for _, h := range s.histories {
		samples += h.SampleCount
	}
	s.rollbackWindow = append(s.rollbackWindow, thresholdSnapshot{
		micro:           s.MicroThreshold,
		small:           s.SmallThreshold,
		weightedBpsThen: s.weightedThroughput(),
		samplesThen:     samples,
	})
	if len(s.rollbackWindow) > rollbackWindowSize {
		s.rollbackWindow = s.rollbackWindow[len(s.rollbackWindow)-rollbackWindowSize:]
	}
}

func percentChange(old, new uint64) float64 {
	if old == 0 {
		return 0
	}
	diff := float64(new) - float64(old)
	if diff < 0 {
		diff = -diff
	}
	return diff / float64(old)
}

func min3(a, b, c uint64) uint64 { return minU64(minU64(a, b), c) }

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
