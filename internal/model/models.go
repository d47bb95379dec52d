package model

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Filters narrow the canonical record set before aggregation
type Filters struct {
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
	Categories []string   `json:"categories,omitempty"` // empty means all
}

// AnalysisParams are the user-chosen knobs of a session
type AnalysisParams struct {
	ForecastHorizonMonths int     `json:"forecastHorizonMonths" validate:"min=1,max=12"`
	ForecastMetric        Field   `json:"forecastMetric" validate:"oneof=Sales Profit"`
	Sensitivity           int     `json:"sensitivity" validate:"min=10,max=100"`
	TopN                  int     `json:"topN" validate:"min=1,max=50"`
	RankBy                Field   `json:"rankBy" validate:"oneof=Category Product"`
	Currency              string  `json:"currency" validate:"omitempty,iso4217"`
	Filters               Filters `json:"filters"`
}

// DefaultAnalysisParams mirrors the dashboard's slider defaults.
func DefaultAnalysisParams() AnalysisParams {
	return AnalysisParams{
		ForecastHorizonMonths: 3,
		ForecastMetric:        FieldSales,
		Sensitivity:           30,
		TopN:                  3,
		RankBy:                FieldCategory,
		Currency:              "USD",
	}
}

// Validate checks ranges and enumerations.
func (p AnalysisParams) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	if p.Filters.From != nil && p.Filters.To != nil && p.Filters.To.Before(*p.Filters.From) {
		return &InvalidParamError{Param: "filters", Reason: "to is before from"}
	}
	return nil
}

// InvalidParamError reports a parameter that passed field validation but is
// inconsistent with another.
type InvalidParamError struct {
	Param  string
	Reason string
}

func (e *InvalidParamError) Error() string {
	return e.Param + ": " + e.Reason
}

// MappingOverride is a manual field → column selection
type MappingOverride struct {
	Field  string `json:"field" validate:"required"`
	Column string `json:"column" validate:"required"`
}

// MappingRequest is the body of a remap call
type MappingRequest struct {
	Overrides []MappingOverride `json:"overrides" validate:"required,min=1,dive"`
}

// Validate checks the request shape.
func (r MappingRequest) Validate() error {
	return validate.Struct(r)
}
