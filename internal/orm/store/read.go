package store

import (
	"iter"
	"slices"
)

// Read returns the record with the given id, or nil
func (m *Model) Read(id any) *Record {
	key, ok := NormalizeID(id)
	if !ok {
		return nil
	}
	return m.records[key]
}

// ReadFirst returns the oldest live record, or nil
func (m *Model) ReadFirst() *Record {
	ordered := m.orderedRecords()
	if len(ordered) == 0 {
		return nil
	}
	return ordered[0]
}

// ReadAll returns every live record in insertion order
func (m *Model) ReadAll() []*Record {
	return slices.Clone(m.orderedRecords())
}

// ReadMany returns the records with the given ids. Missing ids yield nil
// entries at their position.
func (m *Model) ReadMany(ids []any) []*Record {
	result := make([]*Record, len(ids))
	for i, id := range ids {
		result[i] = m.Read(id)
	}
	return result
}

// ReadBy returns the records indexed under value for key. A single-valued
// key yields at most one record.
func (m *Model) ReadBy(key string, value any) ([]*Record, error) {
	if key == "id" {
		if r := m.Read(value); r != nil {
			return []*Record{r}, nil
		}
		return []*Record{}, nil
	}
	idx, err := m.index(key)
	if err != nil {
		return nil, err
	}
	v, ok := NormalizeID(value)
	if !ok {
		return []*Record{}, nil
	}
	return idx.lookup(v), nil
}

// ReadOneBy returns the first record indexed under value for key, or nil
func (m *Model) ReadOneBy(key string, value any) (*Record, error) {
	records, err := m.ReadBy(key, value)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[0], nil
}

// ReadAllBy returns the whole index for key, grouped by value
func (m *Model) ReadAllBy(key string) (map[any][]*Record, error) {
	result := make(map[any][]*Record)
	if key == "id" {
		for id, r := range m.records {
			result[id] = []*Record{r}
		}
		return result, nil
	}
	idx, err := m.index(key)
	if err != nil {
		return nil, err
	}
	if idx.multi {
		for v, set := range idx.many {
			result[v] = set.list()
		}
	} else {
		for v, r := range idx.single {
			result[v] = []*Record{r}
		}
	}
	return result, nil
}

// Get is an alias of Read
func (m *Model) Get(id any) *Record { return m.Read(id) }

// GetFirst is an alias of ReadFirst
func (m *Model) GetFirst() *Record { return m.ReadFirst() }

// GetBy is an alias of ReadBy
func (m *Model) GetBy(key string, value any) ([]*Record, error) { return m.ReadBy(key, value) }

// GetAll is an alias of ReadAll
func (m *Model) GetAll() []*Record { return m.ReadAll() }

// GetAllBy is an alias of ReadAllBy
func (m *Model) GetAllBy(key string) (map[any][]*Record, error) { return m.ReadAllBy(key) }

// Len returns the number of live records
func (m *Model) Len() int {
	return len(m.records)
}

// All iterates over the live records in insertion order. The model must not
// be modified during iteration.
func (m *Model) All() iter.Seq[*Record] {
	return func(yield func(*Record) bool) {
		for _, r := range m.orderedRecords() {
			if !yield(r) {
				return
			}
		}
	}
}

// ForEach calls fn on every live record in insertion order
func (m *Model) ForEach(fn func(*Record)) {
	for _, r := range m.ReadAll() {
		fn(r)
	}
}

// Filter returns the records for which fn returns true
func (m *Model) Filter(fn func(*Record) bool) []*Record {
	var result []*Record
	for r := range m.All() {
		if fn(r) {
			result = append(result, r)
		}
	}
	return result
}

// Find returns the first record for which fn returns true, or nil
func (m *Model) Find(fn func(*Record) bool) *Record {
	for r := range m.All() {
		if fn(r) {
			return r
		}
	}
	return nil
}

// Some returns true if fn holds for at least one record
func (m *Model) Some(fn func(*Record) bool) bool {
	return m.Find(fn) != nil
}

// Every returns true if fn holds for all records
func (m *Model) Every(fn func(*Record) bool) bool {
	for r := range m.All() {
		if !fn(r) {
			return false
		}
	}
	return true
}

// IndexOf returns the insertion position of r among the live records, or -1
func (m *Model) IndexOf(r *Record) int {
	return slices.Index(m.orderedRecords(), r)
}

// Sorted returns the live records ordered by cmp
func (m *Model) Sorted(cmp func(a, b *Record) int) []*Record {
	result := m.ReadAll()
	slices.SortStableFunc(result, cmp)
	return result
}

// Map applies fn to every record of m in insertion order
func Map[T any](m *Model, fn func(*Record) T) []T {
	result := make([]T, 0, m.Len())
	for r := range m.All() {
		result = append(result, fn(r))
	}
	return result
}

// FlatMap applies fn to every record of m and concatenates the results
func FlatMap[T any](m *Model, fn func(*Record) []T) []T {
	var result []T
	for r := range m.All() {
		result = append(result, fn(r)...)
	}
	return result
}
