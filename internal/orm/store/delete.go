package store

import (
	"github.com/conduit-lang/relstore/internal/orm/schema"
)

// Delete unlinks r from every relation, removes it from the indexes and the
// model, then fires a delete event with its id. Related records are kept.
func (m *Model) Delete(r *Record) error {
	if err := m.check(r); err != nil {
		return err
	}
	s := m.store

	for _, f := range m.fields {
		switch {
		case f.Type.IsX2Many():
			for _, target := range r.Members(f.Name) {
				if err := s.disconnect(f, r, target); err != nil {
					return err
				}
			}
		case f.Type == schema.FieldMany2One:
			if target := r.refs[f.Name]; target != nil {
				if err := s.disconnect(f, r, target); err != nil {
					return err
				}
			}
		}
	}

	// collections that still hold r, e.g. a former one2many parent
	for set := range r.containers {
		s.removeMember(set.owner, set.field, r)
	}

	m.unregister(r)
	m.remove(r)
	s.dropPending(r)
	m.trigger(EventDelete, nil, r.id)
	return nil
}

// DeleteMany deletes every record in order, stopping at the first failure
func (m *Model) DeleteMany(records []*Record) error {
	for _, r := range records {
		if err := m.Delete(r); err != nil {
			return err
		}
	}
	return nil
}
