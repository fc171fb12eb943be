package schema

import (
	"sort"
)

// modelFields keeps the fields of one model in a stable order
type modelFields struct {
	fields []*Field
	byName map[string]*Field
}

func (m *modelFields) add(f *Field) {
	m.fields = append(m.fields, f)
	m.byName[f.Name] = f
}

// Schema is the processed form of a set of model definitions: every model's
// fields, including synthesized dummies, and the inverse of every relational
// field whose target model is declared.
type Schema struct {
	models  map[string]*modelFields
	inverse map[*Field]*Field
}

func newSchema(defs Definitions) *Schema {
	s := &Schema{
		models:  make(map[string]*modelFields, len(defs)),
		inverse: make(map[*Field]*Field),
	}
	for model, fields := range defs {
		mf := &modelFields{byName: make(map[string]*Field, len(fields))}
		for _, name := range sortedFieldNames(fields) {
			f := fields[name].clone()
			f.Name = name
			f.Model = model
			mf.add(f)
		}
		s.models[model] = mf
	}
	return s
}

func (s *Schema) pair(field, inverse *Field) {
	s.inverse[field] = inverse
	s.inverse[inverse] = field
}

// Models returns all model names in lexical order
func (s *Schema) Models() []string {
	names := make([]string, 0, len(s.models))
	for name := range s.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Exists checks if a model is declared
func (s *Schema) Exists(model string) bool {
	_, ok := s.models[model]
	return ok
}

// Fields returns the fields of a model: "id" first, declared fields by name,
// then synthesized fields in creation order. Unknown models have no fields.
func (s *Schema) Fields(model string) []*Field {
	m, ok := s.models[model]
	if !ok {
		return nil
	}
	out := make([]*Field, len(m.fields))
	copy(out, m.fields)
	return out
}

// Field returns the named field of a model
func (s *Schema) Field(model, name string) (*Field, bool) {
	m, ok := s.models[model]
	if !ok {
		return nil, false
	}
	f, ok := m.byName[name]
	return f, ok
}

// Inverse returns the field mirroring f on the related model
func (s *Schema) Inverse(f *Field) (*Field, bool) {
	inv, ok := s.inverse[f]
	return inv, ok
}

// Stats contains counts about a processed schema
type Stats struct {
	TotalModels        int
	TotalFields        int
	RelationalFields   int
	DummyFields        int
	UnpairedRelational int
}

// GetStats returns statistics about the schema
func (s *Schema) GetStats() *Stats {
	stats := &Stats{TotalModels: len(s.models)}
	for _, m := range s.models {
		for _, f := range m.fields {
			stats.TotalFields++
			if f.Dummy {
				stats.DummyFields++
			}
			if f.Type.IsRelational() {
				stats.RelationalFields++
				if _, ok := s.inverse[f]; !ok {
					stats.UnpairedRelational++
				}
			}
		}
	}
	return stats
}
