// Package store is an in-memory relational record store. Records of every
// model declared in a schema are kept in per-model collections, relational
// fields are linked on both sides automatically, declared keys are indexed and
// raw batches from a remote source are ingested with deferred linking of
// records that have not been loaded yet.
//
// A Store is not safe for concurrent use.
package store

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/conduit-lang/relstore/internal/orm/hooks"
	"github.com/conduit-lang/relstore/internal/orm/schema"
	"github.com/conduit-lang/relstore/internal/orm/tracking"
)

// DefaultExemptModels are never reported as missing by LoadData
var DefaultExemptModels = []string{"pos.session", "pos.config"}

// recordKey identifies a record across models
type recordKey struct {
	model string
	id    any
}

// pendingLink is a relation waiting for its target to be loaded
type pendingLink struct {
	owner *Record
	field *schema.Field
}

// Store holds the records of every model of a schema
type Store struct {
	schema   *schema.Schema
	models   map[string]*Model
	raw      map[string]map[any]Values
	indexes  map[string][]string
	hooks    *hooks.Registry[*Record]
	logger   *zap.Logger
	observer tracking.Observer
	ids      IDGenerator
	exempt   map[string]bool
	pending  map[recordKey][]pendingLink
}

type config struct {
	indexes  map[string][]string
	hooks    *hooks.Registry[*Record]
	logger   *zap.Logger
	observer tracking.Observer
	ids      IDGenerator
	exempt   []string
}

// Option configures a Store
type Option func(*config)

// WithIndexes declares the indexed keys of each model. Every model is
// always indexed by id.
func WithIndexes(indexes map[string][]string) Option {
	return func(c *config) {
		for model, keys := range indexes {
			c.indexes[model] = append(c.indexes[model], keys...)
		}
	}
}

// WithHook registers a hook run on every record of model once it is populated
func WithHook(model string, fn func(*Record) error) Option {
	return func(c *config) {
		c.hooks.Register(model, &hooks.Hook[*Record]{Fn: fn})
	}
}

// WithLogger sets the logger used for load diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithObserver sets the observer notified of every write
func WithObserver(observer tracking.Observer) Option {
	return func(c *config) {
		c.observer = observer
	}
}

// WithIDGenerator replaces the default "<model>_<n>" id generator
func WithIDGenerator(ids IDGenerator) Option {
	return func(c *config) {
		c.ids = ids
	}
}

// WithExemptModels replaces the models that LoadData never reports as missing
func WithExemptModels(models ...string) Option {
	return func(c *config) {
		c.exempt = models
	}
}

// New processes defs and creates an empty store over the resulting schema
func New(defs schema.Definitions, opts ...Option) (*Store, error) {
	c := newConfig(opts)
	s, err := schema.ProcessWithLogger(defs, c.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to process schema: %w", err)
	}
	return newStore(s, c)
}

// NewFromSchema creates an empty store over an already processed schema
func NewFromSchema(s *schema.Schema, opts ...Option) (*Store, error) {
	return newStore(s, newConfig(opts))
}

func newConfig(opts []Option) *config {
	c := &config{
		indexes:  make(map[string][]string),
		hooks:    hooks.NewRegistry[*Record](),
		logger:   zap.NewNop(),
		observer: tracking.Nop(),
		ids:      NewCounterGenerator(),
		exempt:   DefaultExemptModels,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newStore(sch *schema.Schema, c *config) (*Store, error) {
	s := &Store{
		schema:   sch,
		models:   make(map[string]*Model),
		raw:      make(map[string]map[any]Values),
		indexes:  make(map[string][]string),
		hooks:    c.hooks,
		logger:   c.logger,
		observer: c.observer,
		ids:      c.ids,
		exempt:   make(map[string]bool, len(c.exempt)),
		pending:  make(map[recordKey][]pendingLink),
	}
	for _, model := range c.exempt {
		s.exempt[model] = true
	}

	for model := range c.indexes {
		if !sch.Exists(model) {
			return nil, fmt.Errorf("%w: index declared on %s", ErrUnknownModel, model)
		}
	}

	for _, name := range sch.Models() {
		keys := []string{"id"}
		for _, key := range c.indexes[name] {
			if key != "id" && !contains(keys, key) {
				keys = append(keys, key)
			}
		}
		s.indexes[name] = keys
		s.raw[name] = make(map[any]Values)
		s.models[name] = newModel(s, name, keys)
	}
	return s, nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// Schema returns the processed schema of the store
func (s *Store) Schema() *schema.Schema {
	return s.schema
}

// Models returns the façade of every model keyed by name
func (s *Store) Models() map[string]*Model {
	out := make(map[string]*Model, len(s.models))
	for name, m := range s.models {
		out[name] = m
	}
	return out
}

// ModelNames returns the names of all models in lexical order
func (s *Store) ModelNames() []string {
	names := make([]string, 0, len(s.models))
	for name := range s.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Model returns the façade of one model
func (s *Store) Model(name string) (*Model, error) {
	m, ok := s.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	return m, nil
}

// Read returns a record by model and id. Unknown models have no records.
func (s *Store) Read(model string, id any) *Record {
	m, ok := s.models[model]
	if !ok {
		return nil
	}
	return m.Read(id)
}

// ReadAll returns the records of a model in insertion order. Unknown models
// have no records.
func (s *Store) ReadAll(model string) []*Record {
	m, ok := s.models[model]
	if !ok {
		return nil
	}
	return m.ReadAll()
}

// RawData returns a copy of the raw snapshots loaded for model, keyed by id
func (s *Store) RawData(model string) map[any]Values {
	out := make(map[any]Values, len(s.raw[model]))
	for id, raw := range s.raw[model] {
		out[id] = cloneValues(raw)
	}
	return out
}

// Indexes returns the indexed keys of model, "id" first
func (s *Store) Indexes(model string) []string {
	keys := s.indexes[model]
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// PendingLinks returns the number of relations waiting for a record that has
// not been loaded yet.
func (s *Store) PendingLinks() int {
	n := 0
	for _, links := range s.pending {
		n += len(links)
	}
	return n
}

func (s *Store) observe(kind tracking.Kind, r *Record, field string, value any) {
	s.observer.Observe(tracking.Change{
		Kind:  kind,
		Model: r.model.name,
		ID:    r.id,
		Field: field,
		Value: value,
	})
}
