package store

import (
	"fmt"
)

// Update applies values to r. x2many values are commands, many2one values
// follow Create except that an empty value unlinks the current target.
// Names that are not fields of the model are ignored. Indexed scalar keys
// present in values are re-indexed; relational keys follow the links.
func (m *Model) Update(r *Record, values Values) error {
	if err := m.check(r); err != nil {
		return err
	}
	s := m.store

	for _, f := range m.fields {
		if f.Name == "id" {
			continue
		}
		value, ok := values[f.Name]
		if !ok {
			continue
		}
		if !f.Type.IsRelational() {
			m.setScalar(r, f.Name, value)
			continue
		}
		comodel, ok := s.models[f.Relation]
		if !ok {
			continue
		}

		var err error
		if f.Type.IsX2Many() {
			err = s.applyCommands(f, r, comodel, value)
		} else {
			err = s.applyMany2One(f, r, comodel, value, true)
		}
		if err != nil {
			return fmt.Errorf("failed to update %s: %w", r, err)
		}
	}

	for _, key := range m.keys {
		if key == "id" || m.relationalKey(key) {
			continue
		}
		value, ok := values[key]
		if !ok {
			continue
		}
		m.unregisterKey(r, key)
		m.registerKey(r, key, value)
	}
	return nil
}
