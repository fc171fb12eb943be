package source

import "github.com/conduit-lang/relstore/internal/orm/schema"

func itemDefs() schema.Definitions {
	return schema.Definitions{
		"Tag": {
			"id":   {Type: schema.FieldScalar, Kind: schema.KindInteger},
			"name": {Type: schema.FieldScalar, Kind: schema.KindChar},
		},
		"Item": {
			"id":      {Type: schema.FieldScalar, Kind: schema.KindInteger},
			"name":    {Type: schema.FieldScalar, Kind: schema.KindChar},
			"tag_ids": {Type: schema.FieldMany2Many, Relation: "Tag"},
		},
	}
}
