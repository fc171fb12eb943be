package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fieldDecl is the on-disk shape of a field definition. JSON documents are
// accepted as well since they are valid YAML.
type fieldDecl struct {
	Name          string `yaml:"name"`
	Type          string `yaml:"type"`
	Relation      string `yaml:"relation"`
	RelationTable string `yaml:"relation_table"`
	InverseName   string `yaml:"inverse_name"`
	Required      bool   `yaml:"required"`
}

// Parse reads model definitions of the form
//
//	Item:
//	  name: {type: char, required: true}
//	  tag_ids: {type: many2many, relation: Tag, relation_table: item_tag_rel}
func Parse(data []byte) (Definitions, error) {
	var raw map[string]map[string]fieldDecl
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}

	defs := make(Definitions, len(raw))
	for model, fields := range raw {
		if model == "" {
			return nil, fmt.Errorf("%w: empty model name", ErrInvalidDefinition)
		}
		defs[model] = make(map[string]*Field, len(fields))
		for name, decl := range fields {
			if decl.Name != "" && decl.Name != name {
				return nil, fmt.Errorf("%w: %s.%s declares name %q", ErrInvalidDefinition, model, name, decl.Name)
			}
			typ, kind, err := ParseFieldType(decl.Type)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", model, name, err)
			}
			if typ.IsRelational() && decl.Relation == "" {
				return nil, fmt.Errorf("%w: %s.%s is %s without relation", ErrInvalidDefinition, model, name, typ)
			}
			defs[model][name] = &Field{
				Name:          name,
				Model:         model,
				Type:          typ,
				Kind:          kind,
				Relation:      decl.Relation,
				RelationTable: decl.RelationTable,
				InverseName:   decl.InverseName,
				Required:      decl.Required,
			}
		}
	}
	return defs, nil
}

// LoadFile reads model definitions from a YAML or JSON file
func LoadFile(path string) (Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file %s: %w", path, err)
	}
	defs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema file %s: %w", path, err)
	}
	return defs, nil
}
