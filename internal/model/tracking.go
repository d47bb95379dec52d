package model

import "time"

// StageMetrics represents metrics for a specific pipeline stage
type StageMetrics struct {
	StageName        string        `json:"stage_name"`
	StartTime        time.Time     `json:"start_time"`
	EndTime          time.Time     `json:"end_time"`
	Duration         time.Duration `json:"duration"`
	RecordsProcessed int64         `json:"records_processed"`
	Status           string        `json:"status"` // "started", "completed", "failed", "skipped"
	Error            string        `json:"error,omitempty"`
}

// RunMetrics summarises one forward pass of the pipeline for a session
type RunMetrics struct {
	RunID       string         `json:"run_id"`
	SessionID   string         `json:"session_id"`
	Source      string         `json:"source"`
	Status      string         `json:"status"`
	StartTime   time.Time      `json:"start_time"`
	EndTime     time.Time      `json:"end_time"`
	TotalRows   int64          `json:"total_rows"`
	ValidRows   int64          `json:"valid_rows"`
	DroppedRows int64          `json:"dropped_rows"`
	Stages      []StageMetrics `json:"stages,omitempty"`
	Errors      []string       `json:"errors,omitempty"`
}
