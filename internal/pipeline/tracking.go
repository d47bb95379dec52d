package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"go-sales-insights/internal/model"
	"go-sales-insights/internal/store"
)

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusPartial   = "partial" // some features failed
	RunStatusFailed    = "failed"
)

// RunTracker records stage timings of one pipeline run and persists them
// when the store is enabled.
type RunTracker struct {
	mu  sync.Mutex
	run model.RunMetrics
}

// NewRunTracker starts a run for a session and source file.
func NewRunTracker(sessionID, source string) *RunTracker {
	t := &RunTracker{run: model.RunMetrics{
		RunID:     uuid.New().String(),
		SessionID: sessionID,
		Source:    source,
		Status:    RunStatusRunning,
		StartTime: time.Now(),
	}}
	if store.Enabled() {
		if err := store.SaveRun(&t.run); err != nil {
			log.Error().Err(err).Str("run_id", t.run.RunID).Msg("failed to save run")
		}
	}
	return t
}

// RunID returns the run identifier.
func (t *RunTracker) RunID() string {
	return t.run.RunID
}

// StartStage begins timing a stage. The returned func ends it with the
// number of records processed and the stage error, if any.
func (t *RunTracker) StartStage(name string) func(records int64, err error) {
	start := time.Now()
	log.Debug().Str("run_id", t.run.RunID).Str("stage", name).Msg("stage started")

	return func(records int64, err error) {
		end := time.Now()
		s := model.StageMetrics{
			StageName:        name,
			StartTime:        start,
			EndTime:          end,
			Duration:         end.Sub(start),
			RecordsProcessed: records,
			Status:           "completed",
		}
		if err != nil {
			s.Status = "failed"
			s.Error = err.Error()
		}

		t.mu.Lock()
		t.run.Stages = append(t.run.Stages, s)
		t.mu.Unlock()

		ev := log.Info()
		if err != nil {
			ev = log.Warn().Err(err)
		}
		ev.Str("run_id", t.run.RunID).
			Str("stage", name).
			Str("status", s.Status).
			Int64("records", records).
			Int64("duration_ms", s.Duration.Milliseconds()).
			Msg("📊 stage finished")

		if store.Enabled() {
			if err := store.SaveStage(t.run.RunID, s); err != nil {
				log.Error().Err(err).Msg("failed to save stage")
			}
		}
	}
}

// SetRows records the normalisation counts.
func (t *RunTracker) SetRows(total, valid, dropped int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.run.TotalRows = int64(total)
	t.run.ValidRows = int64(valid)
	t.run.DroppedRows = int64(dropped)
}

// RecordError stores a run-level error message.
func (t *RunTracker) RecordError(err error) {
	if err == nil {
		return
	}
	t.mu.Lock()
	t.run.Errors = append(t.run.Errors, err.Error())
	t.mu.Unlock()
	if store.Enabled() {
		if e := store.SaveRunError(t.run.RunID, err); e != nil {
			log.Error().Err(e).Msg("failed to save run error")
		}
	}
}

// Finish closes the run with status and returns a snapshot.
func (t *RunTracker) Finish(status string) model.RunMetrics {
	t.mu.Lock()
	t.run.Status = status
	t.run.EndTime = time.Now()
	snapshot := t.run
	snapshot.Stages = append([]model.StageMetrics(nil), t.run.Stages...)
	snapshot.Errors = append([]string(nil), t.run.Errors...)
	t.mu.Unlock()

	if store.Enabled() {
		if err := store.UpdateRun(&snapshot); err != nil {
			log.Error().Err(err).Msg("failed to update run")
		}
	}
	log.Info().
		Str("run_id", snapshot.RunID).
		Str("status", status).
		Int64("duration_ms", snapshot.EndTime.Sub(snapshot.StartTime).Milliseconds()).
		Msg("🏁 run finished")
	return snapshot
}
