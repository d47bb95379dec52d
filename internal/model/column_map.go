package model

import "sort"

// Provenance records how a field was resolved
type Provenance string

const (
	ProvenanceExact      Provenance = "exact"
	ProvenanceFuzzy      Provenance = "fuzzy"
	ProvenanceManual     Provenance = "manual"
	ProvenanceUnresolved Provenance = "unresolved"
)

// Resolution is the outcome for one canonical field.
type Resolution struct {
	Field      Field      `json:"field"`
	Column     string     `json:"column,omitempty"`
	Provenance Provenance `json:"provenance"`
	Score      float64    `json:"score,omitempty"`
}

// ColumnMap maps canonical fields to columns of one RawTable.
// The zero value is an empty map.
type ColumnMap struct {
	entries map[Field]Resolution
}

// NewColumnMap returns an empty ColumnMap.
func NewColumnMap() ColumnMap {
	return ColumnMap{entries: make(map[Field]Resolution)}
}

// Set records a resolved column. Callers are responsible for checking the
// column exists in the source table.
func (m *ColumnMap) Set(f Field, column string, prov Provenance, score float64) {
	if m.entries == nil {
		m.entries = make(map[Field]Resolution)
	}
	m.entries[f] = Resolution{Field: f, Column: column, Provenance: prov, Score: score}
}

// MarkUnresolved records that f could not be matched.
func (m *ColumnMap) MarkUnresolved(f Field) {
	if m.entries == nil {
		m.entries = make(map[Field]Resolution)
	}
	m.entries[f] = Resolution{Field: f, Provenance: ProvenanceUnresolved}
}

// Lookup returns the mapped column for f, if any.
func (m ColumnMap) Lookup(f Field) (string, bool) {
	r, ok := m.entries[f]
	if !ok || r.Provenance == ProvenanceUnresolved || r.Column == "" {
		return "", false
	}
	return r.Column, true
}

// Column returns the mapped column for f or a SchemaUnresolvedError.
func (m ColumnMap) Column(f Field) (string, error) {
	if c, ok := m.Lookup(f); ok {
		return c, nil
	}
	return "", &SchemaUnresolvedError{Missing: []Field{f}}
}

// Provenance returns how f was resolved; unknown fields are unresolved.
func (m ColumnMap) Provenance(f Field) Provenance {
	if r, ok := m.entries[f]; ok {
		return r.Provenance
	}
	return ProvenanceUnresolved
}

// Missing lists the fields of want that have no column.
func (m ColumnMap) Missing(want []Field) []Field {
	var missing []Field
	for _, f := range want {
		if _, ok := m.Lookup(f); !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

// RequireAll fails with SchemaUnresolvedError listing every unmapped field.
func (m ColumnMap) RequireAll(want []Field) error {
	if missing := m.Missing(want); len(missing) > 0 {
		return &SchemaUnresolvedError{Missing: missing}
	}
	return nil
}

// Resolutions returns all recorded entries ordered required-first.
func (m ColumnMap) Resolutions() []Resolution {
	order := make(map[Field]int)
	for i, f := range append(append([]Field{}, RequiredFields...), OptionalFields...) {
		order[f] = i
	}
	out := make([]Resolution, 0, len(m.entries))
	for _, r := range m.entries {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return order[out[i].Field] < order[out[j].Field] })
	return out
}

// Columns returns field → column for mapped fields only.
func (m ColumnMap) Columns() map[Field]string {
	out := make(map[Field]string)
	for f := range m.entries {
		if c, ok := m.Lookup(f); ok {
			out[f] = c
		}
	}
	return out
}

// Clone returns an independent copy.
func (m ColumnMap) Clone() ColumnMap {
	c := NewColumnMap()
	for f, r := range m.entries {
		c.entries[f] = r
	}
	return c
}
