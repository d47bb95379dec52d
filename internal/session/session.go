// Package session keeps the per-upload analysis state addressed by the API.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"go-sales-insights/internal/model"
	"go-sales-insights/internal/pipeline"
	"go-sales-insights/internal/schema"
)

// ErrNotFound is returned for an unknown session id.
var ErrNotFound = errors.New("session not found")

// State is one user's upload, mapping, parameters and derived results.
// A published State is never mutated; updates build a copy and swap it in.
type State struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	Table     *model.RawTable
	ColumnMap model.ColumnMap
	Params    model.AnalysisParams

	Records  []model.CanonicalRecord
	Report   pipeline.NormalizeReport
	Analysis *pipeline.Analysis

	// Err is the pipeline-level failure of the last run, such as an
	// unresolved schema. Analysis is nil while it is set.
	Err error
}

// Reset replaces the upload and invalidates everything derived from the
// previous one. Parameters go back to their defaults.
func (s *State) Reset(table *model.RawTable) {
	s.Table = table
	s.ColumnMap = model.NewColumnMap()
	s.Params = model.DefaultAnalysisParams()
	s.Records = nil
	s.Report = pipeline.NormalizeReport{}
	s.Analysis = nil
	s.Err = nil
	s.UpdatedAt = time.Now()
}

func (s *State) clone() *State {
	c := *s
	c.ColumnMap = s.ColumnMap.Clone()
	return &c
}

// Source returns the uploaded file name.
func (s *State) Source() string {
	if s.Table == nil {
		return ""
	}
	return s.Table.Source
}

// Result returns the analysis or the error that prevented it.
func (s *State) Result() (*pipeline.Analysis, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Analysis == nil {
		return nil, &model.InsufficientDataError{Operation: "analysis", Need: 1, Got: 0}
	}
	return s.Analysis, nil
}

// ------------------- Manager -------------------

// Manager owns all live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*State
	resolver *schema.Resolver
	runner   *pipeline.Runner
}

// NewManager returns an empty manager.
func NewManager(resolver *schema.Resolver, runner *pipeline.Runner) *Manager {
	return &Manager{
		sessions: make(map[string]*State),
		resolver: resolver,
		runner:   runner,
	}
}

// Create starts a session for an upload, resolves its columns and runs the
// pipeline. An unresolved schema is kept in State.Err, not returned.
func (m *Manager) Create(ctx context.Context, table *model.RawTable) (*State, error) {
	now := time.Now()
	s := &State{ID: uuid.New().String(), CreatedAt: now}
	s.Reset(table)
	s.ColumnMap = m.resolver.Resolve(table.Columns, model.RequiredFields, model.OptionalFields)
	if err := m.process(ctx, s); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	log.Info().Str("session_id", s.ID).Str("source", table.Source).Msg("session created")
	return s, nil
}

// Upload replaces the dataset of an existing session.
func (m *Manager) Upload(ctx context.Context, id string, table *model.RawTable) (*State, error) {
	return m.update(ctx, id, func(s *State) error {
		s.Reset(table)
		s.ColumnMap = m.resolver.Resolve(table.Columns, model.RequiredFields, model.OptionalFields)
		return nil
	})
}

// Get returns the current state of a session.
func (m *Manager) Get(id string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// UpdateMapping applies manual overrides and reprocesses.
func (m *Manager) UpdateMapping(ctx context.Context, id string, overrides []model.MappingOverride) (*State, error) {
	return m.update(ctx, id, func(s *State) error {
		for _, o := range overrides {
			f, ok := model.ParseField(o.Field)
			if !ok {
				return &model.InvalidParamError{Param: "field", Reason: "unknown field " + o.Field}
			}
			if err := m.resolver.Override(&s.ColumnMap, s.Table.Columns, f, o.Column); err != nil {
				return &model.InvalidParamError{Param: "column", Reason: err.Error()}
			}
		}
		return nil
	})
}

// UpdateParams validates and applies new parameters, reusing the
// normalised records when they exist.
func (m *Manager) UpdateParams(ctx context.Context, id string, params model.AnalysisParams) (*State, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return m.update(ctx, id, func(s *State) error {
		s.Params = params
		return nil
	})
}

// Delete drops a session. It reports whether it existed.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	return ok
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// update copies the session, applies change, reprocesses and publishes
// the copy. The published state is untouched when change fails.
func (m *Manager) update(ctx context.Context, id string, change func(*State) error) (*State, error) {
	current, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	next := current.clone()
	mappingBefore := current.ColumnMap.Columns()
	tableBefore := current.Table

	if err := change(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = time.Now()

	// Parameter-only changes skip normalisation.
	if next.Table == tableBefore && next.Records != nil && sameMapping(mappingBefore, next.ColumnMap.Columns()) {
		err = m.analyze(ctx, next)
	} else {
		err = m.process(ctx, next)
	}
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return nil, ErrNotFound
	}
	m.sessions[id] = next
	return next, nil
}

// process runs the full pipeline. Schema and data errors are recorded in
// the state; only invalid parameters are returned.
func (m *Manager) process(ctx context.Context, s *State) error {
	s.Records, s.Analysis, s.Err = nil, nil, nil
	a, records, report, err := m.runner.Run(ctx, s.ID, s.Table, s.ColumnMap, s.Params)
	s.Records, s.Report = records, report
	return m.settle(s, a, err)
}

func (m *Manager) analyze(ctx context.Context, s *State) error {
	a, err := m.runner.Analyze(ctx, s.ID, s.Source(), s.Records, s.Report, s.Params)
	return m.settle(s, a, err)
}

func (m *Manager) settle(s *State, a *pipeline.Analysis, err error) error {
	var invalid *model.InvalidParamError
	if errors.As(err, &invalid) {
		return err
	}
	if err != nil {
		log.Warn().Err(err).Str("session_id", s.ID).Msg("pipeline did not produce an analysis")
	}
	s.Analysis, s.Err = a, err
	return nil
}

func sameMapping(a, b map[model.Field]string) bool {
	if len(a) != len(b) {
		return false
	}
	for f, c := range a {
		if b[f] != c {
			return false
		}
	}
	return true
}
