package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"go-sales-insights/internal/model"
)

// FeatureError explains why one derived feature is missing from an Analysis.
// It never aborts the other features.
type FeatureError struct {
	Feature string `json:"feature"`
	Kind    string `json:"kind"` // "insufficient_data", "timeout", "invalid_param", "error"
	Message string `json:"message"`
}

func (e *FeatureError) Error() string {
	return e.Feature + ": " + e.Message
}

func newFeatureError(feature string, err error) *FeatureError {
	fe := &FeatureError{Feature: feature, Kind: "error", Message: err.Error()}
	var insufficient *model.InsufficientDataError
	var invalid *model.InvalidParamError
	switch {
	case errors.As(err, &insufficient):
		fe.Kind = "insufficient_data"
	case errors.As(err, &invalid):
		fe.Kind = "invalid_param"
	case errors.Is(err, context.DeadlineExceeded):
		fe.Kind = "timeout"
	}
	return fe
}

// Analysis is everything derived from one canonical record set
type Analysis struct {
	RunID         string                  `json:"run_id"`
	Params        model.AnalysisParams    `json:"params"`
	Report        NormalizeReport         `json:"report"`
	FilteredCount int                     `json:"filtered_count"`
	Totals        model.Totals            `json:"totals"`
	Daily         []model.TimeSeriesPoint `json:"daily"`
	Monthly       []model.TimeSeriesPoint `json:"monthly"`
	Quarterly     []model.TimeSeriesPoint `json:"quarterly"`

	Forecast      *ForecastResult       `json:"forecast,omitempty"`
	ForecastError *FeatureError         `json:"forecast_error,omitempty"`
	Profitability *ProfitabilityRanking `json:"profitability,omitempty"`
	ProfitError   *FeatureError         `json:"profitability_error,omitempty"`
	Anomalies     []model.AnomalyPoint  `json:"anomalies,omitempty"`
	AnomalyError  *FeatureError         `json:"anomalies_error,omitempty"`

	// Records is the filtered canonical set, kept for export.
	Records []model.CanonicalRecord `json:"-"`
}

// Runner executes the forward pipeline synchronously.
type Runner struct {
	Forecaster      *Forecaster
	ForecastTimeout time.Duration // zero means no timeout
}

// NewRunner returns a Runner with the given forecaster, or the default
// additive model without a cache when nil.
func NewRunner(f *Forecaster, forecastTimeout time.Duration) *Runner {
	if f == nil {
		f = NewForecaster(nil, nil)
	}
	return &Runner{Forecaster: f, ForecastTimeout: forecastTimeout}
}

// ------------------- Pipeline Runner -------------------

// Run normalises table with cm and analyses the result. Schema and empty-set
// failures are returned as errors; feature failures land in the Analysis.
// The unfiltered records and the report are returned even when analysis
// fails after normalisation.
func (r *Runner) Run(ctx context.Context, sessionID string, table *model.RawTable, cm model.ColumnMap, params model.AnalysisParams) (*Analysis, []model.CanonicalRecord, NormalizeReport, error) {
	tracker := NewRunTracker(sessionID, table.Source)
	log.Info().Str("run_id", tracker.RunID()).Str("session_id", sessionID).Msg("🚀 starting pipeline")

	end := tracker.StartStage("normalize")
	records, report, err := Normalize(table, cm)
	end(int64(report.ValidRows), err)
	tracker.SetRows(report.TotalRows, report.ValidRows, report.DroppedRows)
	if err != nil {
		tracker.RecordError(err)
		tracker.Finish(RunStatusFailed)
		return nil, nil, report, err
	}

	a, err := r.analyze(ctx, tracker, records, params)
	if err != nil {
		return nil, records, report, err
	}
	a.Report = report
	return a, records, report, nil
}

// Analyze derives every feature from already-normalised records, used when
// only parameters or filters change.
func (r *Runner) Analyze(ctx context.Context, sessionID, source string, records []model.CanonicalRecord, report NormalizeReport, params model.AnalysisParams) (*Analysis, error) {
	tracker := NewRunTracker(sessionID, source)
	tracker.SetRows(report.TotalRows, report.ValidRows, report.DroppedRows)
	a, err := r.analyze(ctx, tracker, records, params)
	if err != nil {
		return nil, err
	}
	a.Report = report
	return a, nil
}

func (r *Runner) analyze(ctx context.Context, tracker *RunTracker, records []model.CanonicalRecord, params model.AnalysisParams) (*Analysis, error) {
	if err := params.Validate(); err != nil {
		tracker.RecordError(err)
		tracker.Finish(RunStatusFailed)
		return nil, err
	}

	end := tracker.StartStage("filter")
	filtered := ApplyFilters(records, params.Filters)
	var filterErr error
	if len(filtered) == 0 {
		filterErr = &model.InsufficientDataError{Operation: "filter", Need: 1, Got: 0}
	}
	end(int64(len(filtered)), filterErr)
	if filterErr != nil {
		tracker.RecordError(filterErr)
		tracker.Finish(RunStatusFailed)
		return nil, filterErr
	}

	a := &Analysis{RunID: tracker.RunID(), Params: params, FilteredCount: len(filtered), Records: filtered}

	end = tracker.StartStage("aggregate")
	a.Totals = Totals(filtered)
	a.Daily, _ = GroupByDate(filtered, model.GranularityDay)
	a.Monthly, _ = GroupByDate(filtered, model.GranularityMonth)
	a.Quarterly, _ = GroupByDate(filtered, model.GranularityQuarter)
	end(int64(len(filtered)), nil)

	// Each feature below fails on its own.
	end = tracker.StartStage("forecast")
	fctx, cancel := ctx, context.CancelFunc(func() {})
	if r.ForecastTimeout > 0 {
		fctx, cancel = context.WithTimeout(ctx, r.ForecastTimeout)
	}
	fc, err := r.Forecaster.ForecastRecords(fctx, filtered, params.ForecastMetric, params.ForecastHorizonMonths)
	cancel()
	if err != nil {
		a.ForecastError = newFeatureError("forecast", err)
		tracker.RecordError(a.ForecastError)
		end(0, err)
	} else {
		a.Forecast = fc
		end(int64(len(fc.Points)), nil)
	}

	end = tracker.StartStage("profitability")
	ranking := RankProfitability(filtered, params.RankBy, params.TopN)
	a.Profitability = &ranking
	if !ranking.Applicable {
		a.ProfitError = &FeatureError{Feature: "profitability", Kind: "not_applicable", Message: string(params.RankBy) + " is not mapped"}
	}
	end(int64(len(ranking.Top)+len(ranking.Bottom)), nil)

	end = tracker.StartStage("anomalies")
	anomalies, err := ClassifyAnomalies(a.Monthly, params.Sensitivity)
	if err != nil {
		a.AnomalyError = newFeatureError("anomalies", err)
		tracker.RecordError(a.AnomalyError)
	} else {
		a.Anomalies = anomalies
	}
	end(int64(len(anomalies)), err)

	status := RunStatusCompleted
	if a.ForecastError != nil || a.AnomalyError != nil {
		status = RunStatusPartial
	}
	tracker.Finish(status)
	return a, nil
}
