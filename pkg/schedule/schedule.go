// Package schedule re-invokes a Sync operation on a cron schedule, for
// long-lived mirror jobs (spec.md §13's supplemental feature). It does not
// change core copy semantics: each firing is a plain Engine.Copy call.
package schedule

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"ferrocp/pkg/ferrocp"
	"ferrocp/pkg/helper/log"
)

// RunStatus is the lifecycle state of one scheduled run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run records the outcome of one firing of a ScheduledSync.
type Run struct {
	ID        string          `json:"id"`
	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time,omitempty"`
	Status    RunStatus       `json:"status"`
	Stats     ferrocp.CopyStats `json:"stats,omitempty"`
	ErrorMsg  string          `json:"error,omitempty"`
}

// ScheduledSync re-runs a Sync CopyRequest on a cron expression against one
// Engine, keeping a bounded history of past runs for inspection.
type ScheduledSync struct {
	engine  *ferrocp.Engine
	req     ferrocp.CopyRequest
	logger  log.Logger
	cron    *cron.Cron
	entryID cron.EntryID

	mu         sync.RWMutex
	runs       []Run
	maxHistory int
	onComplete func(Run)
}

// defaultMaxHistory bounds how many past Run records ScheduledSync keeps in
// memory before evicting the oldest.
const defaultMaxHistory = 100

// NewScheduledSync builds a ScheduledSync that fires req (forced to
// mode=Sync regardless of req.Mode) on spec. A non-nil logger receives an
// Info line when a firing starts and an Info (success) or Error (failure)
// line when it ends; a nil logger falls back to an info-level
// BasicLogger.
func NewScheduledSync(engine *ferrocp.Engine, req ferrocp.CopyRequest, spec string, logger log.Logger) (*ScheduledSync, error) {
	if logger == nil {
		logger = log.NewBasicLogger(log.InfoLevel)
	}
	req.Mode = ferrocp.Sync

	s := &ScheduledSync{
		engine:     engine,
		req:        req,
		logger:     logger,
		cron:       cron.New(),
		maxHistory: defaultMaxHistory,
	}

	id, err := s.cron.AddFunc(spec, s.fire)
	if err != nil {
		return nil, err
	}
	s.entryID = id
	return s, nil
}

// Start begins firing on the configured schedule. It returns immediately;
// firings happen on cron's own goroutine.
func (s *ScheduledSync) Start() {
	s.cron.Start()
}

// Stop halts future firings and waits for any in-flight run to finish.
func (s *ScheduledSync) Stop() {
	<-s.cron.Stop().Done()
}

// NextRun returns when the schedule will next fire.
func (s *ScheduledSync) NextRun() time.Time {
	return s.cron.Entry(s.entryID).Next
}

// SetOnComplete installs a callback invoked after every firing (success or
// failure), for an external collaborator such as a metrics exporter that
// wants to observe each run without polling History.
func (s *ScheduledSync) SetOnComplete(fn func(Run)) {
	s.mu.Lock()
	s.onComplete = fn
	s.mu.Unlock()
}

// History returns a copy of the recorded runs, most recent last.
func (s *ScheduledSync) History() []Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Run, len(s.runs))
	copy(out, s.runs)
	return out
}

func (s *ScheduledSync) fire() {
	run := Run{ID: uuid.New().String(), StartTime: time.Now(), Status: RunRunning}
	s.recordRun(run)

	logger := s.logger.WithField("run_id", run.ID)
	logger.Info("scheduled sync starting")

	stats, err := s.engine.Copy(context.Background(), s.req)
	run.EndTime = time.Now()
	if err != nil {
		run.Status = RunFailed
		run.ErrorMsg = err.Error()
		logger.WithError(err).Error("scheduled sync failed", err)
	} else {
		run.Status = RunCompleted
		run.Stats = stats
		logger.Info("scheduled sync finished")
	}
	s.recordRun(run)

	s.mu.RLock()
	onComplete := s.onComplete
	s.mu.RUnlock()
	if onComplete != nil {
		onComplete(run)
	}
}

func (s *ScheduledSync) recordRun(run Run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.runs) - 1; i >= 0; i-- {
		if s.runs[i].ID == run.ID {
			s.runs[i] = run
			return
		}
	}
	s.runs = append(s.runs, run)
	if len(s.runs) > s.maxHistory {
		s.runs = s.runs[len(s.runs)-s.maxHistory:]
	}
}

// ToJSON serializes the run history, for a CLI status subcommand.
func (s *ScheduledSync) ToJSON() ([]byte, error) {
	return json.Marshal(s.History())
}
