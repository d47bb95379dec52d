package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"go-sales-insights/internal/model"
	"go-sales-insights/internal/pipeline"
	"go-sales-insights/internal/store"
)

// FileExport is one written file with its download link
type FileExport struct {
	model.ExportResult
	DownloadURL string `json:"download_url,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
}

// requestedTables reads ?table=a,b or returns every table.
func requestedTables(r *http.Request) ([]string, error) {
	raw := r.URL.Query().Get("table")
	if raw == "" {
		return pipeline.ExportTables, nil
	}
	var names []string
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if !isExportTable(name) {
			return nil, &model.InvalidParamError{Param: "table", Reason: fmt.Sprintf("unknown table %q", name)}
		}
		names = append(names, name)
	}
	return names, nil
}

func isExportTable(name string) bool {
	for _, t := range pipeline.ExportTables {
		if t == name {
			return true
		}
	}
	return false
}

func requestedFormat(r *http.Request) (string, error) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	switch format {
	case "":
		return pipeline.FormatCSV, nil
	case pipeline.FormatCSV, pipeline.FormatJSON, pipeline.FormatXLSX:
		return format, nil
	}
	return "", &model.InvalidParamError{Param: "format", Reason: fmt.Sprintf("unsupported format %q", format)}
}

func buildTables(a *pipeline.Analysis, names []string) ([]*pipeline.Table, error) {
	tables := make([]*pipeline.Table, 0, len(names))
	for _, name := range names {
		t, err := pipeline.BuildTable(a, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// ExportTable streams one derived table
// @Summary Download a table
// @Description Canonical records or a derived table as CSV, JSON or XLSX
// @Tags export
// @Produce octet-stream
// @Param id path string true "Session ID"
// @Param table query string false "records, daily, monthly, profitability, anomalies or forecast" default(records)
// @Param format query string false "csv, json or xlsx" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse "Invalid table or format"
// @Failure 404 {object} ErrorResponse "Session not found"
// @Router /sessions/{id}/export [get]
func (h *Handler) ExportTable(w http.ResponseWriter, r *http.Request) {
	a, ok := h.analysis(w, r, "/export")
	if !ok {
		return
	}
	name := r.URL.Query().Get("table")
	if name == "" {
		name = pipeline.TableRecords
	}
	if !isExportTable(name) {
		writeError(w, &model.InvalidParamError{Param: "table", Reason: fmt.Sprintf("unknown table %q", name)})
		return
	}
	format, err := requestedFormat(r)
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := pipeline.BuildTable(a, name)
	if err != nil {
		writeError(w, err)
		return
	}

	// Buffer so a writer failure can still become an error response.
	var buf bytes.Buffer
	if err := pipeline.WriteTable(&buf, t, format); err != nil {
		writeError(w, err)
		return
	}
	fileName := name + "." + format
	w.Header().Set("Content-Type", h.Outputs.ContentType(fileName))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Warn().Err(err).Str("table", name).Msg("export download interrupted")
	}
}

// ExportFiles writes derived tables into the session's export directory
// @Summary Export tables to files
// @Tags export
// @Produce json
// @Param id path string true "Session ID"
// @Param table query string false "Comma separated tables, all when empty"
// @Param format query string false "csv, json or xlsx" default(csv)
// @Success 200 {array} FileExport
// @Failure 400 {object} ErrorResponse "Invalid table or format"
// @Failure 404 {object} ErrorResponse "Session not found"
// @Router /sessions/{id}/export/files [post]
func (h *Handler) ExportFiles(w http.ResponseWriter, r *http.Request) {
	a, ok := h.analysis(w, r, "/export/files")
	if !ok {
		return
	}
	id, _ := pathID(r.URL.Path, sessionsPrefix, "/export/files")
	names, err := requestedTables(r)
	if err != nil {
		writeError(w, err)
		return
	}
	format, err := requestedFormat(r)
	if err != nil {
		writeError(w, err)
		return
	}
	tables, err := buildTables(a, names)
	if err != nil {
		writeError(w, err)
		return
	}
	dir, err := h.Outputs.SessionDir(id)
	if err != nil {
		writeError(w, err)
		return
	}

	results := make([]FileExport, 0, len(tables))
	for _, t := range tables {
		fe := FileExport{ExportResult: pipeline.ExportToFile(r.Context(), t, format, dir)}
		if fe.Success {
			fe.DownloadURL = h.Outputs.DownloadURL(id, fe.Path)
			fe.SizeBytes, _ = h.Outputs.FileSize(fe.Path)
		}
		results = append(results, fe)
	}
	writeJSON(w, http.StatusOK, results)
}

// DownloadFile serves a previously exported file
// @Summary Download an exported file
// @Tags export
// @Produce octet-stream
// @Param id path string true "Session ID"
// @Param name path string true "File name"
// @Success 200 {file} file
// @Failure 404 {object} ErrorResponse "File not found"
// @Router /sessions/{id}/files/{name} [get]
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, sessionsPrefix)
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] != "files" || parts[2] == "" {
		writeMessage(w, http.StatusBadRequest, "Invalid path")
		return
	}
	id, name := parts[0], parts[2]
	if _, err := h.Sessions.Get(id); err != nil {
		writeError(w, err)
		return
	}
	path := h.Outputs.FilePath(id, name)
	if _, err := os.Stat(path); err != nil {
		writeMessage(w, http.StatusNotFound, "File not found")
		return
	}
	w.Header().Set("Content-Type", h.Outputs.ContentType(name))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

// ExportDatabase stores derived tables in SQLite
// @Summary Export tables to the database
// @Description Replaces the session's previous copy of each table
// @Tags export
// @Produce json
// @Param id path string true "Session ID"
// @Param table query string false "Comma separated tables, all when empty"
// @Success 200 {array} model.ExportResult
// @Failure 404 {object} ErrorResponse "Session not found"
// @Failure 503 {object} ErrorResponse "Database not configured"
// @Router /sessions/{id}/export/db [post]
func (h *Handler) ExportDatabase(w http.ResponseWriter, r *http.Request) {
	a, ok := h.analysis(w, r, "/export/db")
	if !ok {
		return
	}
	id, _ := pathID(r.URL.Path, sessionsPrefix, "/export/db")
	if !store.Enabled() {
		writeMessage(w, http.StatusServiceUnavailable, "Database is not configured")
		return
	}
	names, err := requestedTables(r)
	if err != nil {
		writeError(w, err)
		return
	}
	tables, err := buildTables(a, names)
	if err != nil {
		writeError(w, err)
		return
	}
	results := pipeline.ExportToDatabase(r.Context(), id, tables)

	status := http.StatusOK
	for _, res := range results {
		if !res.Success {
			status = http.StatusInternalServerError
			break
		}
	}
	writeJSON(w, status, results)
}

// GetExportedRows reads a table back from the database export
// @Summary Read an exported table
// @Tags export
// @Produce json
// @Param id path string true "Session ID"
// @Param table query string true "Table name"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse "Invalid table"
// @Failure 503 {object} ErrorResponse "Database not configured"
// @Router /sessions/{id}/export/db [get]
func (h *Handler) GetExportedRows(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r.URL.Path, sessionsPrefix, "/export/db")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Session ID is required")
		return
	}
	if !store.Enabled() {
		writeMessage(w, http.StatusServiceUnavailable, "Database is not configured")
		return
	}
	table := r.URL.Query().Get("table")
	if !isExportTable(table) {
		writeError(w, &model.InvalidParamError{Param: "table", Reason: fmt.Sprintf("unknown table %q", table)})
		return
	}
	rows, err := store.GetExportRows(id, table)
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []map[string]interface{}{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": id,
		"table":      table,
		"rows":       rows,
		"count":      len(rows),
	})
}

// cleanupExports removes files and database rows of a deleted session.
func (h *Handler) cleanupExports(id string) {
	if err := h.Outputs.RemoveSession(id); err != nil {
		log.Warn().Err(err).Str("session_id", id).Msg("failed to remove export files")
	}
	if store.Enabled() {
		if err := store.DeleteSessionExports(id); err != nil {
			log.Warn().Err(err).Str("session_id", id).Msg("failed to remove database exports")
		}
	}
}
