package store

import (
	"fmt"

	"github.com/conduit-lang/relstore/internal/orm/validation"
)

type createOptions struct {
	ignoreRelations bool
	fromSerialized  bool
}

// create instantiates a record of m from values.
//
// The record is registered in the store and its scalar indexes before its
// fields are populated, so a record failing validation stays visible with no
// fields set. Relational index keys are registered as links are made.
func (m *Model) create(values Values, opts createOptions) (*Record, error) {
	s := m.store

	rawID, ok := values["id"]
	if !ok || rawID == nil {
		rawID = s.ids.NextID(m.name)
	}
	id, ok := NormalizeID(rawID)
	if !ok {
		return nil, fmt.Errorf("%w: %s id %v (%T)", ErrInvalidID, m.name, rawID, rawID)
	}
	if _, exists := m.records[id]; exists {
		return nil, fmt.Errorf("%w: %s(%v)", ErrDuplicateID, m.name, id)
	}

	r := m.newRecord(id)
	r.raw = s.raw[m.name][id]
	m.add(r)
	m.register(r, values)

	if errs := validation.CheckRequired(m.name, m.fields, values); errs != nil {
		return nil, fmt.Errorf("failed to create %s: %w", r, errs)
	}
	if err := m.populate(r, values, opts); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", r, err)
	}
	if err := s.hooks.Run(m.name, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (m *Model) populate(r *Record, values Values, opts createOptions) error {
	s := m.store
	for _, f := range m.fields {
		if f.Name == "id" {
			continue
		}
		value, present := values[f.Name]

		if !f.Type.IsRelational() {
			if present {
				m.setScalar(r, f.Name, value)
			}
			continue
		}

		if opts.ignoreRelations || !present {
			continue
		}
		comodel, ok := s.models[f.Relation]
		if !ok {
			continue
		}

		if opts.fromSerialized {
			s.linkSerialized(f, r, comodel, value)
			continue
		}
		if f.Type.IsX2Many() {
			if err := s.applyCommands(f, r, comodel, value); err != nil {
				return err
			}
			continue
		}
		if err := s.applyMany2One(f, r, comodel, value, false); err != nil {
			return err
		}
	}
	return nil
}

// Create creates a record and links its relational fields. x2many values
// are a Command or a []Command; many2one values are a *Record, Values, or an
// id that is looked up and created when missing.
func (m *Model) Create(values Values) (*Record, error) {
	return m.create(values, createOptions{})
}

// CreateMany creates one record per entry of valuesList, stopping at the
// first failure.
func (m *Model) CreateMany(valuesList []Values) ([]*Record, error) {
	result := make([]*Record, 0, len(valuesList))
	for _, values := range valuesList {
		r, err := m.Create(values)
		if err != nil {
			return result, err
		}
		result = append(result, r)
	}
	return result, nil
}

// Deserialize creates a record from a serialized payload: many2one values are
// ids and x2many values are lists of ids or [4, id] link tuples. Ids of
// records that do not exist are ignored.
func (m *Model) Deserialize(values Values) (*Record, error) {
	return m.create(values, createOptions{fromSerialized: true})
}
