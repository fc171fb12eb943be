// Package schema provides field definitions for relstore models and derives the
// inverse of every relational field, synthesizing hidden dummy inverses where the
// declared schema has none.
package schema

import (
	"fmt"
	"strings"
)

// FieldType is the closed set of field shapes a model can declare
type FieldType int

const (
	FieldScalar FieldType = iota
	FieldMany2One
	FieldOne2Many
	FieldMany2Many
)

// String returns the string representation of the field type
func (t FieldType) String() string {
	switch t {
	case FieldScalar:
		return "scalar"
	case FieldMany2One:
		return "many2one"
	case FieldOne2Many:
		return "one2many"
	case FieldMany2Many:
		return "many2many"
	default:
		return "unknown"
	}
}

// IsRelational returns true for many2one, one2many and many2many fields
func (t FieldType) IsRelational() bool {
	return t == FieldMany2One || t == FieldOne2Many || t == FieldMany2Many
}

// IsX2Many returns true for one2many and many2many fields
func (t FieldType) IsX2Many() bool {
	return t == FieldOne2Many || t == FieldMany2Many
}

// ScalarKind represents the value kind of a scalar field
type ScalarKind int

const (
	KindChar ScalarKind = iota
	KindText
	KindHTML
	KindInteger
	KindFloat
	KindMonetary
	KindBoolean
	KindDate
	KindDatetime
	KindSelection
	KindBinary
	KindJSON
)

var scalarKindNames = map[ScalarKind]string{
	KindChar:      "char",
	KindText:      "text",
	KindHTML:      "html",
	KindInteger:   "integer",
	KindFloat:     "float",
	KindMonetary:  "monetary",
	KindBoolean:   "boolean",
	KindDate:      "date",
	KindDatetime:  "datetime",
	KindSelection: "selection",
	KindBinary:    "binary",
	KindJSON:      "json",
}

// String returns the string representation of the scalar kind
func (k ScalarKind) String() string {
	if name, ok := scalarKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseFieldType converts a declared type name into a field type and, for
// scalar fields, its kind.
func ParseFieldType(s string) (FieldType, ScalarKind, error) {
	switch s {
	case "many2one":
		return FieldMany2One, 0, nil
	case "one2many":
		return FieldOne2Many, 0, nil
	case "many2many":
		return FieldMany2Many, 0, nil
	}
	for kind, name := range scalarKindNames {
		if name == s {
			return FieldScalar, kind, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: %s", ErrUnknownFieldType, s)
}

// Field describes one field of a model.
//
// Relation is the target model of relational fields. RelationTable identifies
// the join of a many2many pair and InverseName names the many2one a one2many
// mirrors. Dummy marks fields synthesized while deriving inverses.
type Field struct {
	Name          string
	Model         string
	Type          FieldType
	Kind          ScalarKind
	Relation      string
	RelationTable string
	InverseName   string
	Required      bool
	Dummy         bool
}

// TypeName returns the declared type name, i.e. the relation type or the scalar kind
func (f *Field) TypeName() string {
	if f.Type == FieldScalar {
		return f.Kind.String()
	}
	return f.Type.String()
}

// Hidden returns true for fields that must not appear in external payloads
func (f *Field) Hidden() bool {
	return strings.HasPrefix(f.Name, "__") && strings.HasSuffix(f.Name, "__")
}

// String returns a short description such as "Item.tag_ids (many2many -> Tag)"
func (f *Field) String() string {
	if f.Type == FieldScalar {
		return fmt.Sprintf("%s.%s (%s)", f.Model, f.Name, f.Kind)
	}
	return fmt.Sprintf("%s.%s (%s -> %s)", f.Model, f.Name, f.Type, f.Relation)
}

func (f *Field) clone() *Field {
	c := *f
	return &c
}

// Definitions maps a model name to its declared fields keyed by field name.
type Definitions map[string]map[string]*Field
