package model

import "time"

// RetryConfig defines retry behavior for export writes
type RetryConfig struct {
	MaxAttempts       int           `json:"max_attempts"`
	InitialDelay      time.Duration `json:"initial_delay"`
	MaxDelay          time.Duration `json:"max_delay"`
	BackoffMultiplier float64       `json:"backoff_multiplier"`
	RetryableErrors   []string      `json:"retryable_errors"`
}

// DefaultExportRetry retries the transient failures SQLite and the file
// system report under concurrent writers.
var DefaultExportRetry = RetryConfig{
	MaxAttempts:       3,
	InitialDelay:      100 * time.Millisecond,
	MaxDelay:          2 * time.Second,
	BackoffMultiplier: 2.0,
	RetryableErrors:   []string{"database is locked", "database table is locked", "busy", "resource temporarily unavailable"},
}
