package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rotisserie/eris"

	"go-sales-insights/internal/model"
)

var db *sql.DB

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

// Initialize DB connection
func InitDB(dbPath string) error {
	var err error
	db, err = sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return eris.Wrapf(err, "failed to open database %s", dbPath)
	}
	// sqlite allows one writer; a single connection avoids "database is locked"
	db.SetMaxOpenConns(1)

	// Create tables if not exists
	schema := []string{`
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		session_id TEXT,
		source TEXT,
		status TEXT,
		total_rows INTEGER,
		valid_rows INTEGER,
		dropped_rows INTEGER,
		created_at DATETIME,
		updated_at DATETIME
	);`, `
	CREATE TABLE IF NOT EXISTS run_stages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		stage TEXT,
		status TEXT,
		start_time DATETIME,
		end_time DATETIME,
		duration_ms INTEGER,
		records_processed INTEGER,
		error_message TEXT
	);`, `
	CREATE TABLE IF NOT EXISTS run_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		error_message TEXT,
		created_at DATETIME
	);`, `
	CREATE TABLE IF NOT EXISTS exported_rows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT,
		table_name TEXT,
		row_index INTEGER,
		data TEXT,
		created_at DATETIME
	);`,
		`CREATE INDEX IF NOT EXISTS idx_run_stages_run ON run_stages(run_id);`,
		`CREATE INDEX IF NOT EXISTS idx_exported_rows_session ON exported_rows(session_id, table_name);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return eris.Wrap(err, "failed to create schema")
		}
	}
	return nil
}

// Enabled reports whether InitDB has been called.
func Enabled() bool {
	return db != nil
}

// Close closes the connection and disables the store.
func Close() error {
	if db == nil {
		return nil
	}
	err := db.Close()
	db = nil
	return err
}

// ------------------- Runs -------------------

// SaveRun stores a new processing run
func SaveRun(run *model.RunMetrics) error {
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO runs (id, session_id, source, status, total_rows, valid_rows, dropped_rows, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.SessionID, run.Source, run.Status, run.TotalRows, run.ValidRows, run.DroppedRows, now, now)
	return eris.Wrapf(err, "failed to save run %s", run.RunID)
}

// UpdateRun updates status and row counts of a run
func UpdateRun(run *model.RunMetrics) error {
	now := time.Now().UTC()
	_, err := db.Exec(`UPDATE runs SET status = ?, total_rows = ?, valid_rows = ?, dropped_rows = ?, updated_at = ? WHERE id = ?`,
		run.Status, run.TotalRows, run.ValidRows, run.DroppedRows, now, run.RunID)
	return eris.Wrapf(err, "failed to update run %s", run.RunID)
}

// SaveStage records one finished stage of a run
func SaveStage(runID string, s model.StageMetrics) error {
	_, err := db.Exec(`INSERT INTO run_stages (run_id, stage, status, start_time, end_time, duration_ms, records_processed, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, s.StageName, s.Status, s.StartTime.UTC(), s.EndTime.UTC(), s.Duration.Milliseconds(), s.RecordsProcessed, s.Error)
	return eris.Wrapf(err, "failed to save stage %s", s.StageName)
}

// SaveRunError records an error for a run
func SaveRunError(runID string, err error) error {
	if err == nil {
		return nil
	}
	now := time.Now().UTC()
	_, e := db.Exec(`INSERT INTO run_errors (run_id, error_message, created_at) VALUES (?, ?, ?)`,
		runID, err.Error(), now)
	return eris.Wrap(e, "failed to save run error")
}

// ListRuns returns the most recent runs without stage detail
func ListRuns(limit int) ([]model.RunMetrics, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`SELECT id, session_id, source, status, total_rows, valid_rows, dropped_rows, created_at, updated_at
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "failed to list runs")
	}
	defer rows.Close()

	runs := []model.RunMetrics{}
	for rows.Next() {
		var r model.RunMetrics
		if err := rows.Scan(&r.RunID, &r.SessionID, &r.Source, &r.Status, &r.TotalRows, &r.ValidRows, &r.DroppedRows, &r.StartTime, &r.EndTime); err != nil {
			return nil, eris.Wrap(err, "failed to scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "failed to iterate runs")
}

// GetRun fetches a run with its stages and errors
func GetRun(runID string) (*model.RunMetrics, error) {
	var r model.RunMetrics
	err := db.QueryRow(`SELECT id, session_id, source, status, total_rows, valid_rows, dropped_rows, created_at, updated_at
		FROM runs WHERE id = ?`, runID).
		Scan(&r.RunID, &r.SessionID, &r.Source, &r.Status, &r.TotalRows, &r.ValidRows, &r.DroppedRows, &r.StartTime, &r.EndTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "failed to get run %s", runID)
	}

	if r.Stages, err = getStages(runID); err != nil {
		return nil, err
	}
	if r.Errors, err = getRunErrors(runID); err != nil {
		return nil, err
	}
	return &r, nil
}

func getStages(runID string) ([]model.StageMetrics, error) {
	rows, err := db.Query(`SELECT stage, status, start_time, end_time, duration_ms, records_processed, error_message
		FROM run_stages WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "failed to get stages")
	}
	defer rows.Close()

	var stages []model.StageMetrics
	for rows.Next() {
		var s model.StageMetrics
		var durationMS int64
		var errMsg sql.NullString
		if err := rows.Scan(&s.StageName, &s.Status, &s.StartTime, &s.EndTime, &durationMS, &s.RecordsProcessed, &errMsg); err != nil {
			return nil, eris.Wrap(err, "failed to scan stage")
		}
		s.Duration = time.Duration(durationMS) * time.Millisecond
		s.Error = errMsg.String
		stages = append(stages, s)
	}
	return stages, eris.Wrap(rows.Err(), "failed to iterate stages")
}

func getRunErrors(runID string) ([]string, error) {
	rows, err := db.Query(`SELECT error_message FROM run_errors WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "failed to get run errors")
	}
	defer rows.Close()

	var msgs []string
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, eris.Wrap(err, "failed to scan run error")
		}
		msgs = append(msgs, msg)
	}
	return msgs, eris.Wrap(rows.Err(), "failed to iterate run errors")
}

// ------------------- Exports -------------------

// SaveExportRows replaces the stored copy of one derived table for a session.
func SaveExportRows(sessionID, table string, rows []map[string]interface{}) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, eris.Wrap(err, "failed to begin export")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM exported_rows WHERE session_id = ? AND table_name = ?`, sessionID, table); err != nil {
		return 0, eris.Wrap(err, "failed to clear previous export")
	}
	stmt, err := tx.Prepare(`INSERT INTO exported_rows (session_id, table_name, row_index, data, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "failed to prepare export insert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return 0, eris.Wrapf(err, "failed to encode row %d", i)
		}
		if _, err := stmt.Exec(sessionID, table, i, string(data), now); err != nil {
			return 0, eris.Wrapf(err, "failed to insert row %d", i)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "failed to commit export")
	}
	return len(rows), nil
}

// GetExportRows reads back an exported table in row order
func GetExportRows(sessionID, table string) ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT data FROM exported_rows WHERE session_id = ? AND table_name = ? ORDER BY row_index`, sessionID, table)
	if err != nil {
		return nil, eris.Wrap(err, "failed to query export rows")
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "failed to scan export row")
		}
		var row map[string]interface{}
		if err := json.Unmarshal([]byte(data), &row); err != nil {
			return nil, eris.Wrap(err, "failed to decode export row")
		}
		out = append(out, row)
	}
	return out, eris.Wrap(rows.Err(), "failed to iterate export rows")
}

// DeleteSessionExports removes every exported table of a session
func DeleteSessionExports(sessionID string) error {
	_, err := db.Exec(`DELETE FROM exported_rows WHERE session_id = ?`, sessionID)
	return eris.Wrap(err, "failed to delete exports")
}
