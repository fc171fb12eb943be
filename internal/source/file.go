package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/relstore/internal/orm/store"
)

// FileSource reads a document of the form {model: [records]} from disk. The
// file is read again on every call so edits are picked up. Files ending in
// .yml or .yaml are parsed as YAML, everything else as JSON.
type FileSource struct {
	path string
}

// NewFileSource creates a source over the file at path
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Snapshot returns every record of the file
func (f *FileSource) Snapshot(ctx context.Context) (store.RawData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file %s: %w", f.path, err)
	}
	raw, err := ParseRawData(data, filepath.Ext(f.path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse data file %s: %w", f.path, err)
	}
	return raw, nil
}

// Fetch returns the records of model whose id is in ids
func (f *FileSource) Fetch(ctx context.Context, model string, ids []any) ([]store.Values, error) {
	raw, err := f.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	want := wanted(ids)
	var result []store.Values
	for _, values := range raw[model] {
		if want[idKey(values["id"])] {
			result = append(result, values)
		}
	}
	return result, nil
}

// ParseRawData decodes a raw batch. ext selects YAML for ".yml" and ".yaml".
func ParseRawData(data []byte, ext string) (store.RawData, error) {
	var raw store.RawData
	switch strings.ToLower(ext) {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
	}
	if raw == nil {
		raw = store.RawData{}
	}
	return raw, nil
}
