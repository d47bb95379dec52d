package handler

import (
	"net/http"
	"strconv"

	"go-sales-insights/internal/store"
)

// ListRuns retrieves recent processing runs
// @Summary List runs
// @Description Most recent pipeline runs, newest first
// @Tags runs
// @Produce json
// @Param limit query int false "Maximum number of runs" default(50)
// @Success 200 {array} model.RunMetrics
// @Failure 503 {object} ErrorResponse "Database not configured"
// @Router /runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if !store.Enabled() {
		writeMessage(w, http.StatusServiceUnavailable, "Database is not configured")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := store.ListRuns(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun retrieves one run with its stage timings and errors
// @Summary Get run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} model.RunMetrics
// @Failure 404 {object} ErrorResponse "Run not found"
// @Failure 503 {object} ErrorResponse "Database not configured"
// @Router /runs/{id} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r.URL.Path, "/api/v1/runs/", "")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Run ID is required")
		return
	}
	if !store.Enabled() {
		writeMessage(w, http.StatusServiceUnavailable, "Database is not configured")
		return
	}
	run, err := store.GetRun(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}
