package pipeline

import (
	"time"

	"go-sales-insights/internal/model"
	"go-sales-insights/pkg/utils"
)

// ApplyFilters keeps records inside the inclusive date range whose Category
// is one of the selected values. An empty selection keeps every category;
// a selection on an unmapped Category matches nothing. The input is never
// modified.
func ApplyFilters(records []model.CanonicalRecord, f model.Filters) []model.CanonicalRecord {
	if f.From == nil && f.To == nil && len(f.Categories) == 0 {
		return records
	}

	allowed := make(map[string]bool, len(f.Categories))
	for _, c := range f.Categories {
		allowed[c] = true
	}

	out := make([]model.CanonicalRecord, 0, len(records))
	for _, r := range records {
		if f.From != nil && r.OrderDate.Before(truncateDay(*f.From)) {
			continue
		}
		if f.To != nil && r.OrderDate.After(truncateDay(*f.To)) {
			continue
		}
		if len(allowed) > 0 {
			cat, ok := r.Dimension(model.FieldCategory)
			if !ok || !allowed[cat] {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// DateRange returns the earliest and latest order dates. ok is false for an
// empty input.
func DateRange(records []model.CanonicalRecord) (from, to time.Time, ok bool) {
	if len(records) == 0 {
		return from, to, false
	}
	from, to = records[0].OrderDate, records[0].OrderDate
	for _, r := range records[1:] {
		if r.OrderDate.Before(from) {
			from = r.OrderDate
		}
		if r.OrderDate.After(to) {
			to = r.OrderDate
		}
	}
	return from, to, true
}

// DistinctValues lists the sorted distinct values of a dimension, the
// options offered by the category filter.
func DistinctValues(records []model.CanonicalRecord, dim model.Field) []string {
	seen := make(map[string]bool)
	for _, r := range records {
		if v, ok := r.Dimension(dim); ok {
			seen[v] = true
		}
	}
	return utils.SortedKeys(seen)
}
