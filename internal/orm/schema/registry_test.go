package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaAccessors(t *testing.T) {
	s, err := Process(Definitions{
		"Item": {
			"id":      scalar(KindInteger),
			"name":    {Type: FieldScalar, Kind: KindChar, Required: true},
			"tag_ids": {Type: FieldMany2Many, Relation: "Tag"},
		},
		"Tag": {
			"id": scalar(KindInteger),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Item", "Tag"}, s.Models())
	assert.True(t, s.Exists("Item"))
	assert.False(t, s.Exists("Order"))
	assert.Nil(t, s.Fields("Order"))

	name, ok := s.Field("Item", "name")
	require.True(t, ok)
	assert.True(t, name.Required)
	assert.Equal(t, "Item", name.Model)

	_, ok = s.Field("Item", "missing")
	assert.False(t, ok)
	_, ok = s.Field("Order", "name")
	assert.False(t, ok)

	// Fields returns a copy
	fields := s.Fields("Item")
	fields[0] = nil
	assert.NotNil(t, s.Fields("Item")[0])
}

func TestSchemaStats(t *testing.T) {
	s, err := Process(Definitions{
		"A": {
			"id":         scalar(KindInteger),
			"b_id":       {Type: FieldMany2One, Relation: "B"},
			"partner_id": {Type: FieldMany2One, Relation: "Partner"},
		},
		"B": {
			"id": scalar(KindInteger),
		},
	})
	require.NoError(t, err)

	stats := s.GetStats()
	assert.Equal(t, 2, stats.TotalModels)
	assert.Equal(t, 5, stats.TotalFields)
	assert.Equal(t, 3, stats.RelationalFields)
	assert.Equal(t, 1, stats.DummyFields)
	assert.Equal(t, 1, stats.UnpairedRelational)
}
