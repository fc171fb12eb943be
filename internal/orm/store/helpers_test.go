package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/relstore/internal/orm/schema"
)

func integer() *schema.Field {
	return &schema.Field{Type: schema.FieldScalar, Kind: schema.KindInteger}
}

func char() *schema.Field {
	return &schema.Field{Type: schema.FieldScalar, Kind: schema.KindChar}
}

// posDefs is a small point-of-sale schema exercising every relation type
func posDefs() schema.Definitions {
	return schema.Definitions{
		"Tag": {
			"id":   integer(),
			"name": char(),
		},
		"Item": {
			"id":      integer(),
			"name":    {Type: schema.FieldScalar, Kind: schema.KindChar, Required: true},
			"tag_ids": {Type: schema.FieldMany2Many, Relation: "Tag"},
		},
		"Partner": {
			"id":   integer(),
			"name": char(),
		},
		"Order": {
			"id":         integer(),
			"name":       char(),
			"partner_id": {Type: schema.FieldMany2One, Relation: "Partner"},
			"line_ids":   {Type: schema.FieldOne2Many, Relation: "Line", InverseName: "order_id"},
		},
		"Line": {
			"id":       integer(),
			"product":  char(),
			"barcode":  char(),
			"qty":      integer(),
			"order_id": {Type: schema.FieldMany2One, Relation: "Order"},
		},
	}
}

func newPosStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := New(posDefs(), opts...)
	require.NoError(t, err)
	return s
}

func model(t *testing.T, s *Store, name string) *Model {
	t.Helper()
	m, err := s.Model(name)
	require.NoError(t, err)
	return m
}

func mustCreate(t *testing.T, m *Model, values Values) *Record {
	t.Helper()
	r, err := m.Create(values)
	require.NoError(t, err)
	return r
}

// inverseName returns the name of the inverse of model.field
func inverseName(t *testing.T, s *Store, modelName, field string) string {
	t.Helper()
	f, ok := s.Schema().Field(modelName, field)
	require.True(t, ok, "no field %s.%s", modelName, field)
	inv, ok := s.Schema().Inverse(f)
	require.True(t, ok, "no inverse for %s", f)
	return inv.Name
}

// assertSymmetric checks that every link in the store is mirrored by its
// inverse field
func assertSymmetric(t *testing.T, s *Store) {
	t.Helper()
	for _, name := range s.ModelNames() {
		m := model(t, s, name)
		for r := range m.All() {
			for _, f := range m.Fields() {
				inv, ok := s.Schema().Inverse(f)
				if !ok {
					continue
				}
				switch f.Type {
				case schema.FieldMany2One:
					if target := r.Ref(f.Name); target != nil {
						assert.True(t, target.Contains(inv.Name, r), "%s.%s -> %s not mirrored", r, f.Name, target)
					}
				case schema.FieldOne2Many:
					for _, member := range r.Members(f.Name) {
						assert.Same(t, r, member.Ref(inv.Name), "%s.%s member %s not mirrored", r, f.Name, member)
					}
				case schema.FieldMany2Many:
					for _, member := range r.Members(f.Name) {
						assert.True(t, member.Contains(inv.Name, r), "%s.%s member %s not mirrored", r, f.Name, member)
					}
				}
			}
		}
	}
}

// assertNoReferenceTo checks that no live record points at r
func assertNoReferenceTo(t *testing.T, s *Store, r *Record) {
	t.Helper()
	for _, name := range s.ModelNames() {
		m := model(t, s, name)
		for other := range m.All() {
			for _, f := range m.Fields() {
				switch {
				case f.Type == schema.FieldMany2One:
					assert.NotSame(t, r, other.Ref(f.Name), "%s.%s still points at %s", other, f.Name, r)
				case f.Type.IsX2Many():
					assert.False(t, other.Contains(f.Name, r), "%s.%s still holds %s", other, f.Name, r)
				}
			}
		}
	}
}
