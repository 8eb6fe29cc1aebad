package schedule

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ferrocp/pkg/ferrocp"
)

func newTestEngine(t *testing.T) *ferrocp.Engine {
	t.Helper()
	engine, err := ferrocp.New(ferrocp.Options{})
	if err != nil {
		t.Fatalf("ferrocp.New: %v", err)
	}
	return engine
}

func TestNewScheduledSyncRejectsInvalidCron(t *testing.T) {
	engine := newTestEngine(t)
	req := ferrocp.CopyRequest{SourcePath: t.TempDir(), DestPath: t.TempDir()}

	_, err := NewScheduledSync(engine, req, "not a cron expression", nil)
	if err == nil {
		t.Error("expected an error for an invalid cron spec")
	}
}

func TestNewScheduledSyncForcesSyncMode(t *testing.T) {
	engine := newTestEngine(t)
	req := ferrocp.CopyRequest{SourcePath: t.TempDir(), DestPath: t.TempDir(), Mode: ferrocp.Copy}

	sched, err := NewScheduledSync(engine, req, "@every 1h", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sched.req.Mode != ferrocp.Sync {
		t.Errorf("req.Mode = %v, want Sync (schedule always syncs)", sched.req.Mode)
	}
}

func TestFireRecordsCompletedRun(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := filepath.Join(t.TempDir(), "dst")
	if err := os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}

	engine := newTestEngine(t)
	req := ferrocp.CopyRequest{SourcePath: srcDir, DestPath: dstDir, Overwrite: ferrocp.Always}

	sched, err := NewScheduledSync(engine, req, "@every 1h", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sched.fire()

	history := sched.History()
	if len(history) != 1 {
		t.Fatalf("len(History()) = %d, want 1", len(history))
	}
	if history[0].Status != RunCompleted {
		t.Errorf("Status = %q, want %q", history[0].Status, RunCompleted)
	}
	if history[0].Stats.FilesCopied != 1 {
		t.Errorf("FilesCopied = %d, want 1", history[0].Stats.FilesCopied)
	}
}

func TestFireRecordsFailedRunForMissingSource(t *testing.T) {
	engine := newTestEngine(t)
	req := ferrocp.CopyRequest{SourcePath: filepath.Join(t.TempDir(), "missing"), DestPath: t.TempDir()}

	sched, err := NewScheduledSync(engine, req, "@every 1h", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sched.fire()

	history := sched.History()
	if len(history) != 1 {
		t.Fatalf("len(History()) = %d, want 1", len(history))
	}
	if history[0].Status != RunFailed {
		t.Errorf("Status = %q, want %q", history[0].Status, RunFailed)
	}
	if history[0].ErrorMsg == "" {
		t.Error("expected a non-empty ErrorMsg on failure")
	}
}

func TestSetOnCompleteInvokedAfterFiring(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := filepath.Join(t.TempDir(), "dst")
	if err := os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write source file: %v", err)
	}

	engine := newTestEngine(t)
	req := ferrocp.CopyRequest{SourcePath: srcDir, DestPath: dstDir, Overwrite: ferrocp.Always}

	sched, err := NewScheduledSync(engine, req, "@every 1h", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	received := make(chan Run, 1)
	sched.SetOnComplete(func(run Run) { received <- run })

	sched.fire()

	select {
	case run := <-received:
		if run.Status != RunCompleted {
			t.Errorf("callback run.Status = %q, want %q", run.Status, RunCompleted)
		}
	case <-time.After(time.Second):
		t.Fatal("onComplete callback was not invoked")
	}
}

func TestToJSONSerializesHistory(t *testing.T) {
	engine := newTestEngine(t)
	req := ferrocp.CopyRequest{SourcePath: filepath.Join(t.TempDir(), "missing"), DestPath: t.TempDir()}

	sched, err := NewScheduledSync(engine, req, "@every 1h", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sched.fire()

	data, err := sched.ToJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty JSON output")
	}
}
