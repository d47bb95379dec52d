// Package handler exposes sessions, derived analytics and run history over
// HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"go-sales-insights/internal/model"
	"go-sales-insights/internal/pipeline"
	"go-sales-insights/internal/session"
	"go-sales-insights/internal/store"
	"go-sales-insights/pkg/utils"
)

// Handler holds the dependencies of every endpoint.
type Handler struct {
	Sessions       *session.Manager
	Outputs        *utils.OutputManager
	MaxUploadBytes int64
}

// New builds a Handler. maxUploadMB <= 0 means 32 MB.
func New(sessions *session.Manager, outputs *utils.OutputManager, maxUploadMB int64) *Handler {
	if maxUploadMB <= 0 {
		maxUploadMB = 32
	}
	return &Handler{Sessions: sessions, Outputs: outputs, MaxUploadBytes: maxUploadMB << 20}
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string        `json:"error"`
	Kind    string        `json:"kind,omitempty"`
	Missing []model.Field `json:"missing,omitempty"`
	Fields  []string      `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeError maps domain errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	var (
		schemaErr    *model.SchemaUnresolvedError
		insufficient *model.InsufficientDataError
		invalid      *model.InvalidParamError
		feature      *pipeline.FeatureError
		validation   validator.ValidationErrors
	)
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error(), Kind: "not_found"})
	case errors.As(err, &validation):
		fields := make([]string, len(validation))
		for i, fe := range validation {
			fields[i] = fe.Field() + " failed " + fe.Tag()
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation failed", Kind: "invalid_param", Fields: fields})
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "invalid_param"})
	case errors.As(err, &schemaErr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Kind: "schema_unresolved", Missing: schemaErr.Missing})
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Kind: "insufficient_data"})
	case errors.As(err, &feature):
		status := http.StatusUnprocessableEntity
		if feature.Kind == "timeout" {
			status = http.StatusGatewayTimeout
		} else if feature.Kind == "error" {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, ErrorResponse{Error: feature.Message, Kind: feature.Kind})
	default:
		log.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Kind: "error"})
	}
}

// pathID extracts the segment between prefix and suffix, e.g. the session
// id of /api/v1/sessions/{id}/forecast.
func pathID(path, prefix, suffix string) (string, bool) {
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) || len(path) < len(prefix)+len(suffix) {
		return "", false
	}
	id := path[len(prefix) : len(path)-len(suffix)]
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// Health reports liveness
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": h.Sessions.Len(),
		"database": store.Enabled(),
	})
}
