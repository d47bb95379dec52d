package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go-sales-insights/internal/model"
	"go-sales-insights/internal/pipeline"
	"go-sales-insights/internal/session"
)

const sessionsPrefix = "/api/v1/sessions/"

// SessionResponse summarises a session for the client
type SessionResponse struct {
	ID        string                   `json:"id"`
	Source    string                   `json:"source"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
	Columns   []string                 `json:"columns"`
	Mapping   []model.Resolution       `json:"mapping"`
	Missing   []model.Field            `json:"missing"`
	Params    model.AnalysisParams     `json:"params"`
	Report    pipeline.NormalizeReport `json:"report"`
	Filters   FilterOptions            `json:"filter_options"`
	RunID     string                   `json:"run_id,omitempty"`
	Error     *ErrorResponse           `json:"error,omitempty"`
}

// FilterOptions are the choices offered by the date and category filters
type FilterOptions struct {
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
	Categories []string   `json:"categories"`
}

func newFilterOptions(records []model.CanonicalRecord) FilterOptions {
	opts := FilterOptions{Categories: pipeline.DistinctValues(records, model.FieldCategory)}
	if from, to, ok := pipeline.DateRange(records); ok {
		opts.From, opts.To = &from, &to
	}
	return opts
}

func newSessionResponse(s *session.State) SessionResponse {
	resp := SessionResponse{
		ID:        s.ID,
		Source:    s.Source(),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		Mapping:   s.ColumnMap.Resolutions(),
		Missing:   s.ColumnMap.Missing(model.RequiredFields),
		Params:    s.Params,
		Report:    s.Report,
		Filters:   newFilterOptions(s.Records),
	}
	if s.Table != nil {
		resp.Columns = s.Table.Columns
	}
	if s.Analysis != nil {
		resp.RunID = s.Analysis.RunID
	}
	if s.Err != nil {
		resp.Error = &ErrorResponse{Error: s.Err.Error()}
		var schemaErr *model.SchemaUnresolvedError
		var insufficient *model.InsufficientDataError
		switch {
		case errors.As(s.Err, &schemaErr):
			resp.Error.Kind = "schema_unresolved"
			resp.Error.Missing = schemaErr.Missing
		case errors.As(s.Err, &insufficient):
			resp.Error.Kind = "insufficient_data"
		default:
			resp.Error.Kind = "error"
		}
	}
	return resp
}

// readUpload parses the multipart "file" field into a RawTable.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (*model.RawTable, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		return nil, &model.InvalidParamError{Param: "file", Reason: "invalid multipart upload: " + err.Error()}
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, &model.InvalidParamError{Param: "file", Reason: "form field \"file\" is required"}
	}
	defer file.Close()

	table, err := pipeline.ReadTable(r.Context(), header.Filename, file)
	if err != nil {
		return nil, &model.InvalidParamError{Param: "file", Reason: err.Error()}
	}
	return table, nil
}

// CreateSession uploads a dataset and runs the pipeline on it
// @Summary Create a session
// @Description Upload a CSV, JSON or XLSX file. Columns are mapped automatically and every feature is computed.
// @Tags sessions
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Sales dataset"
// @Success 201 {object} SessionResponse "Session created"
// @Failure 400 {object} ErrorResponse "Invalid upload"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /sessions [post]
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	table, err := h.readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	s, err := h.Sessions.Create(r.Context(), table)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionResponse(s))
}

// GetSession retrieves the state of a session
// @Summary Get session
// @Description Column mapping, provenance, parameters and row counts of a session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SessionResponse
// @Failure 404 {object} ErrorResponse "Session not found"
// @Router /sessions/{id} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r.URL.Path, sessionsPrefix, "")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Session ID is required")
		return
	}
	s, err := h.Sessions.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s))
}

// UploadFile replaces the dataset of a session
// @Summary Replace session data
// @Description Upload a new file. Mapping, parameters and results are reset.
// @Tags sessions
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Session ID"
// @Param file formData file true "Sales dataset"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} ErrorResponse "Invalid upload"
// @Failure 404 {object} ErrorResponse "Session not found"
// @Router /sessions/{id}/upload [post]
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r.URL.Path, sessionsPrefix, "/upload")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Session ID is required")
		return
	}
	if _, err := h.Sessions.Get(id); err != nil {
		writeError(w, err)
		return
	}
	table, err := h.readUpload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	s, err := h.Sessions.Upload(r.Context(), id, table)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s))
}

// UpdateMapping applies manual column choices
// @Summary Override column mapping
// @Description Assign uploaded columns to canonical fields and reprocess
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param mapping body model.MappingRequest true "Overrides"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} ErrorResponse "Invalid mapping"
// @Failure 404 {object} ErrorResponse "Session not found"
// @Router /sessions/{id}/mapping [put]
func (h *Handler) UpdateMapping(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r.URL.Path, sessionsPrefix, "/mapping")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Session ID is required")
		return
	}
	var req model.MappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, err)
		return
	}
	s, err := h.Sessions.UpdateMapping(r.Context(), id, req.Overrides)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s))
}

// UpdateParams changes horizon, sensitivity, metric, currency or filters
// @Summary Update analysis parameters
// @Description Fields omitted from the body keep their current value
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param params body model.AnalysisParams true "Parameters"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 404 {object} ErrorResponse "Session not found"
// @Router /sessions/{id}/params [put]
func (h *Handler) UpdateParams(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r.URL.Path, sessionsPrefix, "/params")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Session ID is required")
		return
	}
	current, err := h.Sessions.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	params := current.Params
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	s, err := h.Sessions.UpdateParams(r.Context(), id, params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s))
}

// DeleteSession drops a session and its exports
// @Summary Delete session
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204 "Deleted"
// @Failure 404 {object} ErrorResponse "Session not found"
// @Router /sessions/{id} [delete]
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r.URL.Path, sessionsPrefix, "")
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Session ID is required")
		return
	}
	if !h.Sessions.Delete(id) {
		writeError(w, session.ErrNotFound)
		return
	}
	h.cleanupExports(id)
	w.WriteHeader(http.StatusNoContent)
}
