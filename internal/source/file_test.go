package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/relstore/internal/orm/store"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileSourceJSON(t *testing.T) {
	path := writeFile(t, "data.json", `{
		"Item": [{"id": 1, "name": "Pen"}, {"id": 2, "name": "Ink"}],
		"Tag": [{"id": "t1"}]
	}`)
	src := NewFileSource(path)

	raw, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, raw["Item"], 2)
	assert.Len(t, raw["Tag"], 1)

	records, err := src.Fetch(context.Background(), "Item", []any{int64(2), 7})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Ink", records[0]["name"])

	records, err = src.Fetch(context.Background(), "Tag", []any{"t1"})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFileSourceYAML(t *testing.T) {
	path := writeFile(t, "data.yaml", `
Item:
  - id: 1
    name: Pen
    tag_ids: [1, 2]
`)
	raw, err := NewFileSource(path).Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, raw["Item"], 1)
	assert.Equal(t, "Pen", raw["Item"][0]["name"])
	assert.Equal(t, []any{1, 2}, raw["Item"][0]["tag_ids"])
}

func TestFileSourceErrors(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.json")).Snapshot(context.Background())
	assert.Error(t, err)

	path := writeFile(t, "bad.json", `{"Item": 3}`)
	_, err = NewFileSource(path).Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrMalformedRecord)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewFileSource(path).Fetch(ctx, "Item", []any{1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseRawDataEmpty(t *testing.T) {
	raw, err := ParseRawData([]byte("null"), ".json")
	require.NoError(t, err)
	assert.Equal(t, store.RawData{}, raw)
}

func TestFileSourceFeedsStore(t *testing.T) {
	path := writeFile(t, "data.json", `{"Item": [{"id": 1, "name": "Pen"}]}`)
	raw, err := NewFileSource(path).Snapshot(context.Background())
	require.NoError(t, err)

	s, err := store.New(itemDefs())
	require.NoError(t, err)
	_, err = s.LoadData(raw)
	require.NoError(t, err)

	item := s.Read("Item", int64(1))
	require.NotNil(t, item)
	assert.Equal(t, "Pen", item.Get("name"))
}

func TestOpenUnknownKind(t *testing.T) {
	_, _, err := Open(context.Background(), Config{Kind: "ftp"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestOpenFile(t *testing.T) {
	path := writeFile(t, "data.json", `{}`)
	src, closer, err := Open(context.Background(), Config{Kind: "file", Path: path})
	require.NoError(t, err)
	assert.NoError(t, closer.Close())
	raw, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, raw)
}
