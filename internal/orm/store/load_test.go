package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/relstore/internal/orm/schema"
)

func abDefs() schema.Definitions {
	return schema.Definitions{
		"A": {
			"id":   integer(),
			"b_id": {Type: schema.FieldMany2One, Relation: "B"},
		},
		"B": {
			"id":   integer(),
			"name": char(),
		},
	}
}

func TestLoadDeferredLinking(t *testing.T) {
	s, err := New(abDefs())
	require.NoError(t, err)

	result, err := s.LoadData(RawData{"A": {{"id": 1, "b_id": 5}}})
	require.NoError(t, err)
	assert.Equal(t, map[string][]any{"B": {int64(5)}}, result.Missing)
	assert.Equal(t, 1, result.MissingCount())
	assert.Equal(t, 1, s.PendingLinks())

	a1 := s.Read("A", 1)
	require.NotNil(t, a1)
	assert.Nil(t, a1.Ref("b_id"))

	result, err = s.LoadData(RawData{"B": {{"id": 5, "name": "x"}}})
	require.NoError(t, err)
	assert.Empty(t, result.Missing)
	assert.Equal(t, 0, s.PendingLinks())

	b5 := s.Read("B", 5)
	require.NotNil(t, b5)
	assert.Same(t, b5, a1.Ref("b_id"))
	assert.True(t, b5.Contains(inverseName(t, s, "A", "b_id"), a1))
	assertSymmetric(t, s)
}

func TestLoadReloadSupersedesDeferredLink(t *testing.T) {
	s, err := New(abDefs())
	require.NoError(t, err)

	_, err = s.LoadData(RawData{"A": {{"id": 1, "b_id": 5}}})
	require.NoError(t, err)
	require.Equal(t, 1, s.PendingLinks())

	_, err = s.LoadData(RawData{"B": {{"id": 6, "name": "y"}}})
	require.NoError(t, err)
	result, err := s.LoadData(RawData{"A": {{"id": 1, "b_id": 6}}})
	require.NoError(t, err)
	assert.Empty(t, result.Missing)
	assert.Equal(t, 0, s.PendingLinks())

	_, err = s.LoadData(RawData{"B": {{"id": 5, "name": "x"}}})
	require.NoError(t, err)

	a1 := s.Read("A", 1)
	b5 := s.Read("B", 5)
	require.NotNil(t, a1)
	require.NotNil(t, b5)
	assert.Same(t, s.Read("B", 6), a1.Ref("b_id"))
	assert.Empty(t, b5.Members(inverseName(t, s, "A", "b_id")))
	assertSymmetric(t, s)

	t.Run("cleared value drops the deferred link", func(t *testing.T) {
		_, err := s.LoadData(RawData{"A": {{"id": 2, "b_id": 8}}})
		require.NoError(t, err)
		require.Equal(t, 1, s.PendingLinks())

		_, err = s.LoadData(RawData{"A": {{"id": 2, "b_id": false}}})
		require.NoError(t, err)
		assert.Equal(t, 0, s.PendingLinks())
	})
}

func TestLoadLinksWithinBatch(t *testing.T) {
	s := newPosStore(t)

	result, err := s.LoadData(RawData{
		"Order": {{"id": 1, "name": "S/001", "partner_id": 7, "line_ids": []any{1, 2}}},
		"Line": {
			{"id": 1, "product": "tea", "order_id": 1},
			{"id": 2, "product": "cake", "order_id": 1},
		},
		"Partner": {{"id": 7, "name": "acme"}},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Missing)
	assert.Len(t, result.Results["Line"], 2)

	order := s.Read("Order", 1)
	assert.Equal(t, []any{int64(1), int64(2)}, order.MemberIDs("line_ids"))
	assert.Equal(t, int64(7), order.Ref("partner_id").ID())
	assertSymmetric(t, s)
}

func TestLoadX2ManyMissing(t *testing.T) {
	s := newPosStore(t)

	result, err := s.LoadData(RawData{
		"Tag":  {{"id": 1}},
		"Item": {{"id": 1, "name": "shirt", "tag_ids": []any{1, 2, 3}}, {"id": 2, "name": "hat", "tag_ids": []any{3}}},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), int64(3)}, result.Missing["Tag"])
	assert.Equal(t, 3, s.PendingLinks())

	_, err = s.LoadData(RawData{"Tag": {{"id": 2}, {"id": 3}}})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, s.Read("Item", 1).MemberIDs("tag_ids"))
	assert.Equal(t, []any{int64(3)}, s.Read("Item", 2).MemberIDs("tag_ids"))
	assert.Equal(t, 0, s.PendingLinks())
	assertSymmetric(t, s)
}

func TestLoadEventsAreBatched(t *testing.T) {
	s := newPosStore(t)
	lines := model(t, s, "Line")

	var events []Event
	for _, kind := range []EventKind{EventCreate, EventUpdate} {
		require.NoError(t, lines.AddEventListener(kind, func(ev Event) {
			// links are in place when listeners run
			for _, r := range ev.Records {
				assert.NotNil(t, r.Ref("order_id"))
			}
			events = append(events, ev)
		}))
	}

	_, err := s.LoadData(RawData{
		"Order": {{"id": 1}},
		"Line":  {{"id": 1, "order_id": 1}, {"id": 2, "order_id": 1}},
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventCreate, events[0].Kind)
	assert.Len(t, events[0].Records, 2)

	events = nil
	_, err = s.LoadData(RawData{
		"Line": {{"id": 2, "order_id": 1, "qty": 4}, {"id": 3, "order_id": 1}},
	})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventCreate, events[0].Kind)
	assert.Equal(t, []any{int64(3)}, []any{events[0].Records[0].ID()})
	assert.Equal(t, EventUpdate, events[1].Kind)
	assert.Equal(t, int64(2), events[1].Records[0].ID())
}

func TestLoadRefreshesInPlace(t *testing.T) {
	s := newPosStore(t, WithIndexes(map[string][]string{"Line": {"barcode"}}))
	lines := model(t, s, "Line")

	_, err := s.LoadData(RawData{
		"Order": {{"id": 1}, {"id": 2}},
		"Line":  {{"id": 1, "product": "tea", "barcode": "A", "order_id": 1}},
	})
	require.NoError(t, err)
	line := s.Read("Line", 1)

	_, err = s.LoadData(RawData{
		"Line": {{"id": 1, "product": "green tea", "barcode": "B", "order_id": 2}},
	})
	require.NoError(t, err)

	assert.Same(t, line, s.Read("Line", 1))
	assert.Equal(t, "green tea", line.Get("product"))
	assert.Equal(t, "green tea", line.Raw()["product"])
	assert.Equal(t, int64(2), line.Ref("order_id").ID())
	assert.Empty(t, s.Read("Order", 1).Members("line_ids"))

	got, err := lines.ReadBy("barcode", "A")
	require.NoError(t, err)
	assert.Empty(t, got)
	one, err := lines.ReadOneBy("barcode", "B")
	require.NoError(t, err)
	assert.Same(t, line, one)

	_, err = s.LoadData(RawData{"Line": {{"id": 1, "order_id": false}}})
	require.NoError(t, err)
	assert.Nil(t, line.Ref("order_id"))
	assertSymmetric(t, s)
}

func TestLoadAllowlist(t *testing.T) {
	s := newPosStore(t)

	result, err := s.LoadData(RawData{
		"Tag":     {{"id": 1}},
		"Partner": {{"id": 1}},
	}, "Tag")
	require.NoError(t, err)
	assert.Contains(t, result.Results, "Tag")
	assert.NotContains(t, result.Results, "Partner")
	assert.Nil(t, s.Read("Partner", 1))
}

func TestLoadExemptModels(t *testing.T) {
	defs := abDefs()
	defs["pos.session"] = map[string]*schema.Field{"id": integer()}
	defs["A"]["session_id"] = &schema.Field{Type: schema.FieldMany2One, Relation: "pos.session"}

	t.Run("default", func(t *testing.T) {
		s, err := New(defs)
		require.NoError(t, err)
		result, err := s.LoadData(RawData{"A": {{"id": 1, "session_id": 3, "b_id": 4}}})
		require.NoError(t, err)
		assert.Equal(t, map[string][]any{"B": {int64(4)}}, result.Missing)
		assert.Equal(t, 1, s.PendingLinks())
	})

	t.Run("configured", func(t *testing.T) {
		s, err := New(defs, WithExemptModels("B"))
		require.NoError(t, err)
		result, err := s.LoadData(RawData{"A": {{"id": 1, "session_id": 3, "b_id": 4}}})
		require.NoError(t, err)
		assert.Equal(t, map[string][]any{"pos.session": {int64(3)}}, result.Missing)
	})
}

func TestLoadPendingOwnerDeleted(t *testing.T) {
	s, err := New(abDefs())
	require.NoError(t, err)

	_, err = s.LoadData(RawData{"A": {{"id": 1, "b_id": 5}, {"id": 2, "b_id": 5}}})
	require.NoError(t, err)
	assert.Equal(t, 2, s.PendingLinks())

	a1 := s.Read("A", 1)
	require.NoError(t, a1.Delete())
	assert.Equal(t, 1, s.PendingLinks())

	_, err = s.LoadData(RawData{"B": {{"id": 5}}})
	require.NoError(t, err)
	b5 := s.Read("B", 5)
	assert.Equal(t, []any{int64(2)}, b5.MemberIDs(inverseName(t, s, "A", "b_id")))
	assertSymmetric(t, s)
}

func TestLoadRawSnapshots(t *testing.T) {
	s := newPosStore(t)
	_, err := s.LoadData(RawData{"Tag": {{"id": 1, "name": "red"}}})
	require.NoError(t, err)

	raw := s.RawData("Tag")
	assert.Equal(t, Values{"id": 1, "name": "red"}, raw[int64(1)])

	// snapshots are copies
	raw[int64(1)]["name"] = "blue"
	assert.Equal(t, "red", s.RawData("Tag")[int64(1)]["name"])
	assert.Equal(t, "red", s.Read("Tag", 1).Raw()["name"])

	// a record created after its raw data was loaded gets the snapshot too
	require.NoError(t, s.Read("Tag", 1).Delete())
	again := mustCreate(t, model(t, s, "Tag"), Values{"id": 1})
	assert.Equal(t, "red", again.Raw()["name"])
}

func TestLoadErrors(t *testing.T) {
	s := newPosStore(t)

	_, err := s.LoadData(RawData{"Tag": {{"name": "no id"}}})
	require.ErrorIs(t, err, ErrInvalidID)

	_, err = s.LoadData(RawData{"Item": {{"id": 1}}})
	require.Error(t, err)
	assert.True(t, IsValidationFailed(err))

	result, err := s.LoadData(RawData{"Unknown": {{"id": 1}}})
	require.NoError(t, err)
	assert.Empty(t, result.Results)
}
