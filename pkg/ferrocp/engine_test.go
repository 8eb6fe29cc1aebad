package ferrocp

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCopyEndToEnd(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := filepath.Join(t.TempDir(), "dst")
	if err := os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("hello world"), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}

	engine, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	stats, err := engine.Copy(context.Background(), CopyRequest{
		SourcePath: srcDir, DestPath: dstDir, Overwrite: Always,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.FilesCopied != 1 {
		t.Errorf("FilesCopied = %d, want 1", stats.FilesCopied)
	}

	got, err := os.ReadFile(filepath.Join(dstDir, "a.txt"))
	if err != nil {
		t.Fatalf("read destination file: %v", err)
	}
	if string(got) != "hello world" {
		t.Errorf("destination content = %q, want %q", got, "hello world")
	}
}

func TestCopyWithProgressDeliversEvents(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := filepath.Join(t.TempDir(), "dst")
	if err := os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("data"), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}

	engine, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var events []ProgressEvent
	_, err = engine.CopyWithProgress(context.Background(), CopyRequest{
		SourcePath: srcDir, DestPath: dstDir, Overwrite: Always,
	}, func(ev ProgressEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) == 0 {
		t.Error("expected at least one progress event for a completed copy")
	}
}

func TestCopyReturnsErrorForMissingSource(t *testing.T) {
	engine, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = engine.Copy(context.Background(), CopyRequest{
		SourcePath: filepath.Join(t.TempDir(), "missing"), DestPath: t.TempDir(),
	})
	if err == nil {
		t.Error("expected an error for a missing source root")
	}
}

func TestDeviceInfoClassifiesTempDir(t *testing.T) {
	engine, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	profile := engine.DeviceInfo(t.TempDir())
	if profile.Kind == "" {
		t.Error("expected a non-empty device kind")
	}
}

func TestThresholdsReportsDefaultBounds(t *testing.T) {
	engine, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	micro, small := engine.Thresholds()
	if micro == 0 || small == 0 {
		t.Errorf("micro=%d small=%d, want both non-zero", micro, small)
	}
	if micro > small {
		t.Errorf("micro threshold %d exceeds small threshold %d", micro, small)
	}
}

func TestOperationStatsReflectsBulkheadExecutions(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := filepath.Join(t.TempDir(), "dst")
	if err := os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}

	engine, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := engine.Copy(context.Background(), CopyRequest{SourcePath: srcDir, DestPath: dstDir, Overwrite: Always}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := engine.OperationStats()
	if stats.TotalExecutions != 1 {
		t.Errorf("TotalExecutions = %d, want 1", stats.TotalExecutions)
	}
}

func TestNewPersistsAndReloadsStateAcrossInstances(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.yaml")

	first, err := New(Options{StatePath: statePath})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srcDir := t.TempDir()
	dstDir := filepath.Join(t.TempDir(), "dst")
	if err := os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}
	if _, err := first.Copy(context.Background(), CopyRequest{SourcePath: srcDir, DestPath: dstDir, Overwrite: Always}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(statePath); err != nil {
		t.Fatalf("expected state file to be written: %v", err)
	}

	second, err := New(Options{StatePath: statePath})
	if err != nil {
		t.Fatalf("New with existing state file: %v", err)
	}
	firstMicro, firstSmall := first.Thresholds()
	secondMicro, secondSmall := second.Thresholds()
	if firstMicro != secondMicro || firstSmall != secondSmall {
		t.Errorf("reloaded thresholds (%d,%d) != original (%d,%d)", secondMicro, secondSmall, firstMicro, firstSmall)
	}
}
