package store

import (
	"github.com/conduit-lang/relstore/internal/orm/schema"
)

// Serialize returns the plain form of r: every field, many2one as the target
// id (nil when unset) and x2many as the list of member ids.
func (m *Model) Serialize(r *Record) Values {
	result := make(Values, len(m.fields)+1)
	result["id"] = r.id
	for _, f := range m.fields {
		result[f.Name] = m.serializeField(r, f)
	}
	return result
}

// SerializeExternal returns the payload form of r sent to the remote source.
// Hidden fields are omitted and x2many values are [4, id] link tuples.
func (m *Model) SerializeExternal(r *Record) Values {
	result := make(Values, len(m.fields)+1)
	result["id"] = r.id
	for _, f := range m.fields {
		if f.Hidden() {
			continue
		}
		if !f.Type.IsX2Many() {
			result[f.Name] = m.serializeField(r, f)
			continue
		}
		ids := r.MemberIDs(f.Name)
		tuples := make([]any, len(ids))
		for i, id := range ids {
			tuples[i] = []any{linkCommand, id}
		}
		result[f.Name] = tuples
	}
	return result
}

func (m *Model) serializeField(r *Record, f *schema.Field) any {
	switch {
	case f.Name == "id":
		return r.id
	case f.Type == schema.FieldMany2One:
		if target := r.refs[f.Name]; target != nil {
			return target.id
		}
		return nil
	case f.Type.IsX2Many():
		ids := r.MemberIDs(f.Name)
		if ids == nil {
			ids = []any{}
		}
		return ids
	default:
		return r.scalars[f.Name]
	}
}
