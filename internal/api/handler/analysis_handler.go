package handler

import (
	"net/http"

	"go-sales-insights/internal/model"
	"go-sales-insights/internal/pipeline"
)

// MetricsResponse holds the headline numbers and time series of a session
type MetricsResponse struct {
	RunID         string                   `json:"run_id"`
	Currency      string                   `json:"currency"`
	FilteredCount int                      `json:"filtered_count"`
	Totals        model.Totals             `json:"totals"`
	Daily         []model.TimeSeriesPoint  `json:"daily"`
	Monthly       []model.TimeSeriesPoint  `json:"monthly"`
	Quarterly     []model.TimeSeriesPoint  `json:"quarterly"`
	Report        pipeline.NormalizeReport `json:"report"`
}

// AnomaliesResponse is the labelled monthly revenue series
type AnomaliesResponse struct {
	Sensitivity int                  `json:"sensitivity"`
	Points      []model.AnomalyPoint `json:"points"`
}

// analysis loads the session's Analysis or writes the error that prevents it.
func (h *Handler) analysis(w http.ResponseWriter, r *http.Request, suffix string) (*pipeline.Analysis, bool) {
	id, ok := pathID(r.URL.Path, sessionsPrefix, suffix)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "Session ID is required")
		return nil, false
	}
	s, err := h.Sessions.Get(id)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	a, err := s.Result()
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return a, true
}

// GetMetrics retrieves key metrics and aggregated series
// @Summary Get key metrics
// @Description Totals, last-quarter revenue and daily, monthly and quarterly revenue
// @Tags analytics
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} MetricsResponse
// @Failure 404 {object} ErrorResponse "Session not found"
// @Failure 422 {object} ErrorResponse "Schema unresolved or no data"
// @Router /sessions/{id}/metrics [get]
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	a, ok := h.analysis(w, r, "/metrics")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, MetricsResponse{
		RunID:         a.RunID,
		Currency:      a.Params.Currency,
		FilteredCount: a.FilteredCount,
		Totals:        a.Totals,
		Daily:         a.Daily,
		Monthly:       a.Monthly,
		Quarterly:     a.Quarterly,
		Report:        a.Report,
	})
}

// GetForecast retrieves the revenue or profit forecast
// @Summary Get forecast
// @Description Daily prediction with an 80% interval and its monthly totals
// @Tags analytics
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} pipeline.ForecastResult
// @Failure 404 {object} ErrorResponse "Session not found"
// @Failure 422 {object} ErrorResponse "Insufficient data"
// @Failure 504 {object} ErrorResponse "Forecast timed out"
// @Router /sessions/{id}/forecast [get]
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	a, ok := h.analysis(w, r, "/forecast")
	if !ok {
		return
	}
	if a.ForecastError != nil {
		writeError(w, a.ForecastError)
		return
	}
	writeJSON(w, http.StatusOK, a.Forecast)
}

// GetProfitability retrieves the most and least profitable groups
// @Summary Get profitability ranking
// @Description Top and bottom groups by profit margin. applicable is false when the ranking dimension is not mapped.
// @Tags analytics
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} pipeline.ProfitabilityRanking
// @Failure 404 {object} ErrorResponse "Session not found"
// @Router /sessions/{id}/profitability [get]
func (h *Handler) GetProfitability(w http.ResponseWriter, r *http.Request) {
	a, ok := h.analysis(w, r, "/profitability")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.Profitability)
}

// GetAnomalies retrieves the monthly revenue anomaly labels
// @Summary Get anomalies
// @Tags analytics
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} AnomaliesResponse
// @Failure 404 {object} ErrorResponse "Session not found"
// @Failure 422 {object} ErrorResponse "Anomalies unavailable"
// @Router /sessions/{id}/anomalies [get]
func (h *Handler) GetAnomalies(w http.ResponseWriter, r *http.Request) {
	a, ok := h.analysis(w, r, "/anomalies")
	if !ok {
		return
	}
	if a.AnomalyError != nil {
		writeError(w, a.AnomalyError)
		return
	}
	points := a.Anomalies
	if points == nil {
		points = []model.AnomalyPoint{}
	}
	writeJSON(w, http.StatusOK, AnomaliesResponse{Sensitivity: a.Params.Sensitivity, Points: points})
}

// GetAnalysis retrieves every derived feature at once
// @Summary Get full analysis
// @Description Each feature that could not be computed carries its own error
// @Tags analytics
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} pipeline.Analysis
// @Failure 404 {object} ErrorResponse "Session not found"
// @Failure 422 {object} ErrorResponse "Schema unresolved or no data"
// @Router /sessions/{id}/analysis [get]
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	a, ok := h.analysis(w, r, "/analysis")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a)
}
