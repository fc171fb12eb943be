package schema

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// dummyNamer hands out names for synthesized inverse fields. Each processing
// run owns its own counter so independent schemas never share names.
type dummyNamer struct {
	next int
}

func (n *dummyNamer) name(model, suffix string) string {
	n.next++
	return fmt.Sprintf("__dummy_%s_%d_%s__", model, n.next, suffix)
}

// Process derives the inverse of every relational field in defs.
//
// many2many fields are paired with the field of the target model that shares
// their relation table, one2many fields with the many2one named by their
// inverse name, and many2one fields left unpaired once those are resolved get a
// synthesized one2many. Fields pointing to models absent from defs are left
// without an inverse. defs is never modified.
func Process(defs Definitions) (*Schema, error) {
	return ProcessWithLogger(defs, zap.NewNop())
}

// ProcessWithLogger is Process with debug logging of every synthesized field
func ProcessWithLogger(defs Definitions, logger *zap.Logger) (*Schema, error) {
	s := newSchema(defs)
	namer := &dummyNamer{}

	addDummy := func(comodel string, f *Field) {
		s.models[comodel].add(f)
		logger.Debug("synthesized inverse field",
			zap.String("model", comodel),
			zap.String("field", f.Name),
			zap.String("type", f.Type.String()),
		)
	}

	var many2ones []*Field
	for _, model := range s.Models() {
		for _, field := range s.Fields(model) {
			if !field.Type.IsRelational() {
				continue
			}
			if _, paired := s.inverse[field]; paired {
				continue
			}
			comodel, ok := s.models[field.Relation]
			if !ok {
				continue
			}

			switch field.Type {
			case FieldMany2Many:
				var candidates []*Field
				for _, f := range comodel.fields {
					if f.Type == FieldMany2Many &&
						f.Relation == model &&
						f.RelationTable == field.RelationTable &&
						f.Name != field.Name {
						candidates = append(candidates, f)
					}
				}
				if len(candidates) > 1 {
					return nil, fmt.Errorf("%w: %s has %d candidates", ErrAmbiguousInverse, field, len(candidates))
				}
				var inverse *Field
				if len(candidates) == 1 {
					inverse = candidates[0]
				} else {
					inverse = &Field{
						Name:          namer.name(model, "ids"),
						Model:         field.Relation,
						Type:          FieldMany2Many,
						Relation:      model,
						RelationTable: field.RelationTable,
						Dummy:         true,
					}
					addDummy(field.Relation, inverse)
				}
				s.pair(field, inverse)

			case FieldOne2Many:
				inverse := comodel.byName[field.InverseName]
				if field.InverseName == "" || inverse == nil || inverse.Relation != model || inverse.Type != FieldMany2One {
					inverse = &Field{
						Name:     namer.name(model, "id"),
						Model:    field.Relation,
						Type:     FieldMany2One,
						Relation: model,
						Dummy:    true,
					}
					addDummy(field.Relation, inverse)
				}
				s.pair(field, inverse)

			case FieldMany2One:
				many2ones = append(many2ones, field)
			}
		}
	}

	for _, field := range many2ones {
		if _, paired := s.inverse[field]; paired {
			continue
		}
		if _, ok := s.models[field.Relation]; !ok {
			continue
		}
		inverse := &Field{
			Name:        namer.name(field.Model, "ids"),
			Model:       field.Relation,
			Type:        FieldOne2Many,
			Relation:    field.Model,
			InverseName: field.Name,
			Dummy:       true,
		}
		addDummy(field.Relation, inverse)
		s.pair(field, inverse)
	}

	return s, nil
}

// sortedFieldNames returns the declared field names with "id" first and the
// rest in lexical order.
func sortedFieldNames(fields map[string]*Field) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		if name != "id" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := fields["id"]; ok {
		names = append([]string{"id"}, names...)
	}
	return names
}
