package perfhistory

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestNewStateDefaultsSatisfyInvariants(t *testing.T) {
	s := NewState()
	micro, small := s.Thresholds()

	if micro < minMicroThreshold || micro > small/2 {
		t.Errorf("micro threshold %d violates 1KiB <= micro <= small/2", micro)
	}
	if small > maxSmallThreshold {
		t.Errorf("small threshold %d exceeds 64KiB cap", small)
	}
}

func TestRecordAccumulatesCumulativeMean(t *testing.T) {
	s := NewState()

	s.Record(Micro, 1000, 1_000_000_000) // 1000 bytes/sec
	s.Record(Micro, 3000, 1_000_000_000) // 3000 bytes/sec

	h := s.HistorySnapshot(Micro)
	if h.SampleCount != 2 {
		t.Fatalf("SampleCount = %d, want 2", h.SampleCount)
	}
	want := (1000.0 + 3000.0) / 2
	if h.AvgThroughputBps != want {
		t.Errorf("AvgThroughputBps = %f, want %f", h.AvgThroughputBps, want)
	}
	if h.BestThroughputBps != 3000 {
		t.Errorf("BestThroughputBps = %f, want 3000", h.BestThroughputBps)
	}
}

func TestRecordClampsZeroDuration(t *testing.T) {
	s := NewState()
	s.Record(Small, 1000, 0)

	h := s.HistorySnapshot(Small)
	if h.SampleCount != 1 {
		t.Fatalf("expected one sample recorded even with zero duration")
	}
}

func TestMaybeTuneNoOpBelowMinSamples(t *testing.T) {
	s := NewState()
	s.Record(Micro, 1000, 1_000_000_000)
	s.Record(Small, 1000, 1_000_000_000)
	s.Record(Large, 1000, 1_000_000_000)

	if s.MaybeTune() {
		t.Error("MaybeTune() should not apply before min_samples_for_adjustment is reached")
	}
}

func TestMaybeTuneAppliesWhenMicroOutpacesSmall(t *testing.T) {
	s := NewState()

	for i := 0; i < minSamplesForAdjust; i++ {
		s.Record(Micro, 1_000_000_000, 1_000_000_000) // 1e9 Bps
		s.Record(Small, 500_000_000, 1_000_000_000)   // 0.5e9 Bps, ratio 2.0 > 1.25
		s.Record(Large, 400_000_000, 1_000_000_000)   // 0.4e9 Bps, ratio 1.25 > 1.15
	}

	applied := s.MaybeTune()
	microBefore, smallBefore := uint64(defaultMicroThreshold), uint64(defaultSmallThreshold)
	microAfter, smallAfter := s.Thresholds()

	if !applied {
		t.Fatal("expected MaybeTune to apply an adjustment")
	}
	if microAfter < microBefore {
		t.Errorf("expected micro threshold to grow, got %d from %d", microAfter, microBefore)
	}
	if smallAfter > maxSmallThreshold {
		t.Errorf("small threshold %d exceeds cap", smallAfter)
	}
	if microAfter > smallAfter/2 {
		t.Errorf("invariant violated: micro %d > small/2 %d", microAfter, smallAfter/2)
	}
}

func TestMaybeTuneStableOnStationaryHistory(t *testing.T) {
	s := NewState()

	for i := 0; i < minSamplesForAdjust; i++ {
		s.Record(Micro, 1_000_000_000, 1_000_000_000)
		s.Record(Small, 1_000_000_000, 1_000_000_000)
		s.Record(Large, 1_000_000_000, 1_000_000_000)
	}

	if s.MaybeTune() {
		t.Fatal("expected no adjustment when all classes have equal throughput")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "autotune.yaml")

	s := NewState()
	s.MicroThreshold = 6000
	s.SmallThreshold = 20000

	if err := s.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error: %v", err)
	}

	loaded := NewState()
	if err := loaded.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}

	micro, small := loaded.Thresholds()
	if micro != 6000 || small != 20000 {
		t.Errorf("loaded thresholds = (%d, %d), want (6000, 20000)", micro, small)
	}
}

func TestLoadFromFileMissingIsNotError(t *testing.T) {
	s := NewState()
	if err := s.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err != nil {
		t.Errorf("expected nil error for missing state file, got %v", err)
	}
}

func TestLoadFromFileRejectsIncompatibleVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "future.yaml")

	future := persistedState{FormatVersion: "2.0.0", MicroThreshold: 9999, SmallThreshold: 9999}
	data, err := yaml.Marshal(future)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s := NewState()
	if err := s.LoadFromFile(path); err == nil {
		t.Error("expected error loading an incompatible format_version")
	}
}
