package store

import (
	"fmt"
)

// index maps key values to records. A multi index, declared over an x2many
// field, maps every element value to the ordered set of records holding it.
type index struct {
	key    string
	multi  bool
	single map[any]*Record
	many   map[any]*recordSet
}

func newIndex(key string, multi bool) *index {
	idx := &index{key: key, multi: multi}
	if multi {
		idx.many = make(map[any]*recordSet)
	} else {
		idx.single = make(map[any]*Record)
	}
	return idx
}

func (idx *index) put(value any, r *Record) {
	if !idx.multi {
		idx.single[value] = r
		return
	}
	set, ok := idx.many[value]
	if !ok {
		set = &recordSet{field: idx.key, members: make(map[*Record]struct{})}
		idx.many[value] = set
	}
	if !set.contains(r) {
		set.members[r] = struct{}{}
		set.items = append(set.items, r)
	}
}

func (idx *index) drop(value any, r *Record) {
	if !idx.multi {
		if idx.single[value] == r {
			delete(idx.single, value)
		}
		return
	}
	set, ok := idx.many[value]
	if !ok || !set.contains(r) {
		return
	}
	delete(set.members, r)
	for i, item := range set.items {
		if item == r {
			set.items = append(set.items[:i], set.items[i+1:]...)
			break
		}
	}
	if len(set.items) == 0 {
		delete(idx.many, value)
	}
}

func (idx *index) lookup(value any) []*Record {
	if !idx.multi {
		if r, ok := idx.single[value]; ok {
			return []*Record{r}
		}
		return []*Record{}
	}
	if set, ok := idx.many[value]; ok {
		return set.list()
	}
	return []*Record{}
}

// registerKey indexes r under the values of one key. Single indexes only
// accept a single id-like value.
func (m *Model) registerKey(r *Record, key string, value any) {
	idx, ok := m.indexes[key]
	if !ok {
		return
	}
	values := keyValues(value)
	if !idx.multi {
		if len(values) != 1 {
			return
		}
		if _, isScalar := NormalizeID(value); !isScalar {
			if _, isRecord := value.(*Record); !isRecord {
				return
			}
		}
	}
	for _, v := range values {
		idx.put(v, r)
		r.indexed = append(r.indexed, indexEntry{key: key, value: v})
	}
}

// register indexes r under every declared scalar key present in values.
// Relational keys follow the record's links, see reindex.
func (m *Model) register(r *Record, values Values) {
	for _, key := range m.keys {
		if key == "id" || m.relationalKey(key) {
			continue
		}
		if v, ok := values[key]; ok {
			m.registerKey(r, key, v)
		}
	}
}

// unregisterKey removes r from every entry it holds under key. An empty key
// removes r from all indexes.
func (m *Model) unregisterKey(r *Record, key string) {
	kept := r.indexed[:0]
	for _, entry := range r.indexed {
		if key != "" && entry.key != key {
			kept = append(kept, entry)
			continue
		}
		if idx, ok := m.indexes[entry.key]; ok {
			idx.drop(entry.value, r)
		}
	}
	r.indexed = kept
}

func (m *Model) unregister(r *Record) {
	m.unregisterKey(r, "")
}

// unregisterScalars removes r from the entries of every non-relational key
func (m *Model) unregisterScalars(r *Record) {
	for _, key := range m.keys {
		if key != "id" && !m.relationalKey(key) {
			m.unregisterKey(r, key)
		}
	}
}

func (m *Model) relationalKey(key string) bool {
	f, ok := m.byName[key]
	return ok && f.Type.IsRelational()
}

// reindex registers r again under field from its current links when field is
// an indexed relation
func (m *Model) reindex(r *Record, field string) {
	if _, ok := m.indexes[field]; !ok || !m.relationalKey(field) {
		return
	}
	m.unregisterKey(r, field)
	m.registerKey(r, field, m.currentKeyValue(r, field))
}

// currentKeyValue returns the value r currently holds for an index key
func (m *Model) currentKeyValue(r *Record, key string) any {
	f, ok := m.byName[key]
	if !ok || !f.Type.IsRelational() {
		return r.scalars[key]
	}
	if f.Type.IsX2Many() {
		return r.MemberIDs(key)
	}
	if target := r.refs[key]; target != nil {
		return target.id
	}
	return nil
}

func (m *Model) index(key string) (*index, error) {
	idx, ok := m.indexes[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownIndex, m.name, key)
	}
	return idx, nil
}
