// Package source reads raw record batches from the remote systems a store is
// materialized from. Sources only read; they never persist store state.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/conduit-lang/relstore/internal/orm/store"
)

var (
	// ErrUnknownKind is returned when a configuration names no known source kind
	ErrUnknownKind = errors.New("unknown source kind")

	// ErrMalformedRecord is returned when a stored payload is not a JSON object
	ErrMalformedRecord = errors.New("malformed record payload")
)

// Source fetches raw records of one model by id. Ids that the source does not
// know are left out of the result.
type Source interface {
	Fetch(ctx context.Context, model string, ids []any) ([]store.Values, error)
}

// Snapshotter is a Source able to return everything it holds at once
type Snapshotter interface {
	Source
	Snapshot(ctx context.Context) (store.RawData, error)
}

// Config selects and configures a source
type Config struct {
	Kind  string      `mapstructure:"kind"`
	Path  string      `mapstructure:"path"`
	Redis RedisConfig `mapstructure:"redis"`
	SQL   SQLConfig   `mapstructure:"sql"`
}

// Open builds the source described by cfg. The returned closer releases its
// connections.
func Open(ctx context.Context, cfg Config) (Snapshotter, io.Closer, error) {
	switch cfg.Kind {
	case "file":
		return NewFileSource(cfg.Path), io.NopCloser(nil), nil
	case "redis":
		src, err := NewRedisSource(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return src, src, nil
	case "sql":
		db, err := OpenSQL(ctx, cfg.SQL.Driver, cfg.SQL.DSN)
		if err != nil {
			return nil, nil, err
		}
		src, err := NewSQLSource(db, cfg.SQL)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return src, db, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

// idKey renders a record id the way sources store it
func idKey(id any) string {
	if normalized, ok := store.NormalizeID(id); ok {
		id = normalized
	}
	return fmt.Sprint(id)
}

func decodeRecord(data []byte) (store.Values, error) {
	var values store.Values
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if values == nil {
		return nil, fmt.Errorf("%w: null payload", ErrMalformedRecord)
	}
	return values, nil
}

// wanted returns the set of id keys requested by a Fetch
func wanted(ids []any) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[idKey(id)] = true
	}
	return set
}
