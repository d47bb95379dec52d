package schema

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/rs/zerolog/log"

	"go-sales-insights/internal/model"
)

// Rule controls how one canonical field is matched against column names.
type Rule struct {
	Keywords  []string `yaml:"keywords"`  // substring hints, most specific first
	Threshold float64  `yaml:"threshold"` // minimum fuzzy similarity ratio
}

// DefaultRules is the keyword table used when no config overrides it.
func DefaultRules() map[model.Field]Rule {
	return map[model.Field]Rule{
		model.FieldOrderDate: {Keywords: []string{"order date", "date"}, Threshold: 0.6},
		model.FieldSales:     {Keywords: []string{"sales", "revenue"}, Threshold: 0.6},
		model.FieldProfit:    {Keywords: []string{"profit", "margin"}, Threshold: 0.6},
		model.FieldProduct:   {Keywords: []string{"product", "item"}, Threshold: 0.4},
		model.FieldCategory:  {Keywords: []string{"category"}, Threshold: 0.5},
		model.FieldRegion:    {Keywords: []string{"region"}, Threshold: 0.5},
		model.FieldSegment:   {Keywords: []string{"segment"}, Threshold: 0.5},
	}
}

// Resolver guesses which uploaded column plays each canonical role.
type Resolver struct {
	rules  map[model.Field]Rule
	metric strutil.StringMetric
}

// NewResolver builds a resolver. Fields missing from rules fall back to
// DefaultRules.
func NewResolver(rules map[model.Field]Rule) *Resolver {
	merged := DefaultRules()
	for f, r := range rules {
		base := merged[f]
		if len(r.Keywords) > 0 {
			base.Keywords = r.Keywords
		}
		if r.Threshold > 0 {
			base.Threshold = r.Threshold
		}
		merged[f] = base
	}
	lev := metrics.NewLevenshtein()
	lev.CaseSensitive = false
	return &Resolver{rules: merged, metric: lev}
}

// ------------------- Resolution -------------------

// Resolve maps required and optional fields onto available columns. Keyword
// hits are resolved for every field before any fuzzy guess, so a fuzzy guess
// never steals a column another field names outright. Unresolved required
// fields are recorded as such; unresolved optional fields are omitted.
func (r *Resolver) Resolve(columns []string, required, optional []model.Field) model.ColumnMap {
	m := model.NewColumnMap()
	claimed := make(map[string]bool)

	fields := append(append([]model.Field{}, required...), optional...)

	// Pass 1: whole-name equality, then keyword substrings.
	for _, f := range fields {
		if col, ok := r.exactMatch(f, columns, claimed); ok {
			m.Set(f, col, model.ProvenanceExact, 1)
			claimed[col] = true
		}
	}

	// Pass 2: fuzzy similarity for whatever is left.
	for _, f := range fields {
		if _, ok := m.Lookup(f); ok {
			continue
		}
		col, score := r.fuzzyMatch(f, columns, claimed)
		if col != "" && score >= r.rules[f].Threshold {
			m.Set(f, col, model.ProvenanceFuzzy, score)
			claimed[col] = true
			log.Debug().Str("field", string(f)).Str("column", col).Float64("score", score).Msg("fuzzy column match")
			continue
		}
		if isRequired(f, required) {
			m.MarkUnresolved(f)
			log.Warn().Str("field", string(f)).Float64("best_score", score).Msg("required field unresolved")
		}
	}

	return m
}

// Override applies a manual user selection.
func (r *Resolver) Override(m *model.ColumnMap, columns []string, field model.Field, column string) error {
	if _, known := r.rules[field]; !known {
		return fmt.Errorf("unknown field: %s", field)
	}
	for _, c := range columns {
		if c == column {
			m.Set(field, column, model.ProvenanceManual, 1)
			return nil
		}
	}
	return fmt.Errorf("column %q not found for field %s", column, field)
}

// exactMatch looks for a column equal to the field name or a keyword, then
// for the first keyword contained in a column name. Keywords are tried in
// order, columns in upload order.
func (r *Resolver) exactMatch(f model.Field, columns []string, claimed map[string]bool) (string, bool) {
	names := candidateNames(f, r.rules[f].Keywords)
	for _, col := range columns {
		if claimed[col] {
			continue
		}
		folded := fold(col)
		for _, n := range names {
			if folded == fold(n) {
				return col, true
			}
		}
	}
	for _, kw := range r.rules[f].Keywords {
		kw = strings.ToLower(kw)
		for _, col := range columns {
			if claimed[col] {
				continue
			}
			if strings.Contains(strings.ToLower(col), kw) {
				return col, true
			}
		}
	}
	return "", false
}

// fuzzyMatch returns the unclaimed column most similar to the display name
// of f; ties keep the first. Keywords only take part in exactMatch.
func (r *Resolver) fuzzyMatch(f model.Field, columns []string, claimed map[string]bool) (string, float64) {
	name := displayName(f)
	best, bestScore := "", 0.0
	for _, col := range columns {
		if claimed[col] {
			continue
		}
		score := r.Similarity(col, name)
		if score > bestScore {
			best, bestScore = col, score
		}
	}
	return best, bestScore
}

// Similarity is the highest ratio between column and any of names, after
// folding case, spaces and punctuation.
func (r *Resolver) Similarity(column string, names ...string) float64 {
	c := fold(column)
	if c == "" {
		return 0
	}
	best := 0.0
	for _, n := range names {
		if s := strutil.Similarity(c, fold(n), r.metric); s > best {
			best = s
		}
	}
	return best
}

// ------------------- Helpers -------------------

// candidateNames is the spaced display name of f followed by its keywords.
func candidateNames(f model.Field, keywords []string) []string {
	return append([]string{displayName(f)}, keywords...)
}

// displayName turns "OrderDate" into "Order Date".
func displayName(f model.Field) string {
	var b strings.Builder
	for i, r := range string(f) {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// fold lowercases and drops everything but letters and digits.
func fold(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, s)
}

func isRequired(f model.Field, required []model.Field) bool {
	for _, r := range required {
		if r == f {
			return true
		}
	}
	return false
}
