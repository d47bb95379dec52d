package model

import (
	"fmt"
	"strings"
)

// SchemaUnresolvedError is returned when required fields have no column and
// no manual override. It blocks every downstream stage.
type SchemaUnresolvedError struct {
	Missing []Field `json:"missing"`
}

func (e *SchemaUnresolvedError) Error() string {
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = string(f)
	}
	return fmt.Sprintf("unresolved required fields: %s", strings.Join(names, ", "))
}

// InsufficientDataError is returned when an operation has fewer valid points
// than it needs.
type InsufficientDataError struct {
	Operation string `json:"operation"`
	Need      int    `json:"need"`
	Got       int    `json:"got"`
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: need %d, got %d", e.Operation, e.Need, e.Got)
}

// ParseError describes one rejected row. It is collected, never returned.
type ParseError struct {
	Row    int    `json:"row"`
	Field  Field  `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (e ParseError) Error() string {
	return fmt.Sprintf("row %d: %s %q: %s", e.Row, e.Field, e.Value, e.Reason)
}

// DegenerateAggregateError marks a group whose ratio has a zero denominator.
// Such groups are excluded from rankings and listed, never returned as errors.
type DegenerateAggregateError struct {
	GroupKey string `json:"group_key"`
	Reason   string `json:"reason"`
}

func (e DegenerateAggregateError) Error() string {
	return fmt.Sprintf("group %q: %s", e.GroupKey, e.Reason)
}
