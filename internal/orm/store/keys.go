package store

import (
	"reflect"
)

// linkCommand is the code of the external "link" tuple, e.g. [4, id]
const linkCommand = 4

// linkedIDs extracts the ids referenced by an x2many value: a list of plain
// ids or [4, id] link tuples, or a single id. Invalid elements are dropped.
func linkedIDs(v any) []any {
	if v == nil {
		return nil
	}
	if id, ok := NormalizeID(v); ok {
		return []any{id}
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	ids := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		if id, ok := linkTupleID(elem); ok {
			ids = append(ids, id)
			continue
		}
		if id, ok := NormalizeID(elem); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// linkTupleID returns the id of a [4, id] tuple
func linkTupleID(v any) (any, bool) {
	tuple, ok := v.([]any)
	if !ok || len(tuple) != 2 {
		return nil, false
	}
	if code, ok := NormalizeID(tuple[0]); !ok || code != int64(linkCommand) {
		return nil, false
	}
	return NormalizeID(tuple[1])
}

// many2oneID extracts the id of a many2one value: a plain id or an
// [id, display_name] pair.
func many2oneID(v any) (any, bool) {
	if id, ok := NormalizeID(v); ok {
		return id, true
	}
	if pair, ok := v.([]any); ok && len(pair) == 2 {
		return NormalizeID(pair[0])
	}
	return nil, false
}

// keyValues returns the index keys a field value registers under. Records
// contribute their ids. Values that are neither ids nor lists of ids are not
// indexed.
func keyValues(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case *Record:
		return []any{val.id}
	case []*Record:
		ids := make([]any, 0, len(val))
		for _, r := range val {
			if r != nil {
				ids = append(ids, r.id)
			}
		}
		return ids
	}
	if id, ok := NormalizeID(v); ok {
		return []any{id}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil
	}
	ids := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		if id, ok := NormalizeID(rv.Index(i).Interface()); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// isEmptyRef reports whether a many2one value means "no record"
func isEmptyRef(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case bool:
		return !val
	case string:
		return val == ""
	case *Record:
		return val == nil
	}
	if id, ok := NormalizeID(v); ok {
		return id == int64(0)
	}
	return false
}

// cloneValues copies v and the slices and maps directly inside it
func cloneValues(v Values) Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = cloneValue(val)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case []any:
		c := make([]any, len(val))
		for i, item := range val {
			c[i] = cloneValue(item)
		}
		return c
	case map[string]any:
		return map[string]any(cloneValues(val))
	case Values:
		return cloneValues(val)
	default:
		return v
	}
}
