// Package schema owns the cached existence state of the remote index schema.
package schema

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/indexsync/internal/domain"
	domschema "github.com/kailas-cloud/indexsync/internal/domain/schema"
	"github.com/kailas-cloud/indexsync/internal/logger"
	"github.com/kailas-cloud/indexsync/internal/translate"
)

// State is the cached knowledge about the remote schema.
type State int

const (
	// Unknown means the remote has not been asked yet.
	Unknown State = iota
	// Absent means the remote schema does not exist.
	Absent
	// Present means the remote schema exists.
	Present
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Present:
		return "present"
	default:
		return "unknown"
	}
}

// Manager memoizes the existence check and serializes creation.
// One Manager per index identity.
type Manager struct {
	repo            Repository
	fields          FieldSource
	name            string
	defaultAnalyzer string
	logger          *zap.Logger

	mu    sync.Mutex
	state State
}

// New creates a Manager for the index name.
func New(repo Repository, fields FieldSource, name, defaultAnalyzer string, l *zap.Logger) *Manager {
	if l == nil {
		l = zap.NewNop()
	}
	return &Manager{
		repo:            repo,
		fields:          fields,
		name:            name,
		defaultAnalyzer: defaultAnalyzer,
		logger:          l,
	}
}

// State returns the cached state without querying the remote.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Exists returns the cached state, querying the remote at most once.
// The lock is held across the query so concurrent callers wait for its result.
func (m *Manager) Exists(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exists(ctx)
}

func (m *Manager) exists(ctx context.Context) (bool, error) {
	if m.state != Unknown {
		return m.state == Present, nil
	}
	ok, err := m.repo.Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check schema %s: %w", m.name, err)
	}
	m.state = Absent
	if ok {
		m.state = Present
	}
	return ok, nil
}

// Ensure makes sure the remote schema exists. With force an existing schema
// is dropped and recreated from the current field declarations.
func (m *Manager) Ensure(ctx context.Context, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == Present && !force {
		return nil
	}

	log := logger.FromContextOr(ctx, m.logger).With(zap.String("index", m.name))

	// Re-check: the cache may be stale after an earlier failure or a forced drop elsewhere.
	m.state = Unknown
	ok, err := m.exists(ctx)
	if err != nil {
		return err
	}
	if ok && !force {
		return nil
	}

	s, err := m.build(ctx)
	if err != nil {
		return err
	}

	if ok {
		if err := m.repo.Drop(ctx); err != nil {
			m.state = Unknown
			return fmt.Errorf("drop schema %s: %w", m.name, err)
		}
		m.state = Absent
		log.Info("schema dropped for recreation")
	}

	if err := m.repo.Create(ctx, s); err != nil {
		m.state = Unknown
		return &domain.SchemaCreationError{Index: m.name, Err: err}
	}
	m.state = Present
	log.Info("schema created", zap.Int("fields", len(s.Fields())))
	return nil
}

// build translates every declared field into the remote schema.
// A field declared by several types must translate identically.
func (m *Manager) build(ctx context.Context) (domschema.Schema, error) {
	groups, err := m.fields.Fields(ctx)
	if err != nil {
		return domschema.Schema{}, fmt.Errorf("load field declarations: %w", err)
	}

	types := make([]string, 0, len(groups))
	for t := range groups {
		types = append(types, t)
	}
	slices.Sort(types)

	var fields []domschema.Field
	seen := make(map[string]domschema.Field)
	for _, t := range types {
		for _, d := range groups[t] {
			f, err := translate.TranslateField(d, m.defaultAnalyzer)
			if err != nil {
				return domschema.Schema{}, fmt.Errorf("type %q: %w", t, err)
			}
			if f.Name() == domschema.KeyFieldName || f.Name() == domschema.TypeFieldName {
				continue
			}
			if prev, dup := seen[f.Name()]; dup {
				if prev != f {
					return domschema.Schema{}, fmt.Errorf(
						"field %q declared differently by type %q: %w", d.Name(), t, domain.ErrInvalidSchema)
				}
				continue
			}
			seen[f.Name()] = f
			fields = append(fields, f)
		}
	}

	s, err := domschema.New(m.name, fields)
	if err != nil {
		return domschema.Schema{}, fmt.Errorf("%w: %w", domain.ErrInvalidSchema, err)
	}
	return s, nil
}
