package store

import (
	"fmt"
	"slices"

	"github.com/conduit-lang/relstore/internal/orm/schema"
	"github.com/conduit-lang/relstore/internal/orm/tracking"
)

// EventKind names the batched notifications a model emits
type EventKind string

const (
	EventCreate EventKind = "create"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
)

// Event is passed to listeners. Records is set for create and update, ID
// for delete.
type Event struct {
	Kind    EventKind
	Model   string
	Records []*Record
	ID      any
}

// Listener receives model events
type Listener func(Event)

// Model is the per-model operation surface of a Store
type Model struct {
	name   string
	store  *Store
	fields []*schema.Field
	byName map[string]*schema.Field

	records map[any]*Record
	ordered []*Record // live records in insertion order, replaced on delete
	keys    []string
	indexes map[string]*index

	listeners map[EventKind][]Listener
}

func newModel(s *Store, name string, keys []string) *Model {
	fields := s.schema.Fields(name)
	m := &Model{
		name:      name,
		store:     s,
		fields:    fields,
		byName:    make(map[string]*schema.Field, len(fields)),
		records:   make(map[any]*Record),
		keys:      keys,
		indexes:   make(map[string]*index),
		listeners: make(map[EventKind][]Listener),
	}
	for _, f := range fields {
		m.byName[f.Name] = f
	}
	for _, key := range keys {
		if key == "id" {
			continue
		}
		f, ok := m.byName[key]
		m.indexes[key] = newIndex(key, ok && f.Type.IsX2Many())
	}
	return m
}

// Name returns the model name
func (m *Model) Name() string {
	return m.name
}

// Fields returns the fields of the model, including synthesized ones
func (m *Model) Fields() []*schema.Field {
	out := make([]*schema.Field, len(m.fields))
	copy(out, m.fields)
	return out
}

// Field returns a field of the model by name
func (m *Model) Field(name string) (*schema.Field, bool) {
	f, ok := m.byName[name]
	return f, ok
}

// Indexes returns the indexed keys of the model, "id" first
func (m *Model) Indexes() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *Model) newRecord(id any) *Record {
	r := &Record{
		model:      m,
		id:         id,
		live:       true,
		scalars:    make(map[string]any),
		refs:       make(map[string]*Record),
		sets:       make(map[string]*recordSet),
		containers: make(map[*recordSet]struct{}),
	}
	for _, f := range m.fields {
		if f.Type.IsX2Many() {
			r.sets[f.Name] = newRecordSet(r, f.Name)
		}
	}
	return r
}

func (m *Model) add(r *Record) {
	m.records[r.id] = r
	m.ordered = append(m.ordered, r)
	m.store.observe(tracking.RecordAdded, r, "", nil)
}

func (m *Model) remove(r *Record) {
	delete(m.records, r.id)
	m.ordered = slices.DeleteFunc(slices.Clone(m.ordered), func(item *Record) bool {
		return item == r
	})
	r.live = false
	m.store.observe(tracking.RecordRemoved, r, "", nil)
}

// owns reports whether r is a live record of this model
func (m *Model) owns(r *Record) bool {
	return r != nil && r.live && m.records[r.id] == r
}

func (m *Model) check(r *Record) error {
	if r == nil {
		return fmt.Errorf("%w: nil record", ErrNilTarget)
	}
	if r.model != m {
		return fmt.Errorf("%w: %s is not a %s record", ErrWrongModel, r, m.name)
	}
	if !m.owns(r) {
		return fmt.Errorf("%w: %s", ErrDeleted, r)
	}
	return nil
}

func (m *Model) setScalar(r *Record, name string, value any) {
	r.scalars[name] = value
	m.store.observe(tracking.FieldSet, r, name, value)
}

// orderedRecords returns the live records in insertion order. The returned
// slice is shared and must not be modified. Reads never write to the model,
// so concurrent readers are safe while no writer runs.
func (m *Model) orderedRecords() []*Record {
	return m.ordered
}

// AddEventListener subscribes fn to create, update or delete events
func (m *Model) AddEventListener(kind EventKind, fn Listener) error {
	switch kind {
	case EventCreate, EventUpdate, EventDelete:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, kind)
	}
	m.listeners[kind] = append(m.listeners[kind], fn)
	return nil
}

func (m *Model) trigger(kind EventKind, records []*Record, id any) {
	if kind != EventDelete && len(records) == 0 {
		return
	}
	for _, fn := range m.listeners[kind] {
		fn(Event{Kind: kind, Model: m.name, Records: records, ID: id})
	}
}
