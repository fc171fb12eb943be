package store

import (
	"fmt"
)

// Values maps field names to values. It is the input of create and update
// and the shape of raw and serialized records.
type Values map[string]any

// RawData maps a model name to a batch of raw records
type RawData map[string][]Values

// recordSet is an ordered x2many collection with a membership set
type recordSet struct {
	owner   *Record
	field   string
	items   []*Record
	members map[*Record]struct{}
}

func newRecordSet(owner *Record, field string) *recordSet {
	return &recordSet{
		owner:   owner,
		field:   field,
		members: make(map[*Record]struct{}),
	}
}

func (s *recordSet) contains(r *Record) bool {
	_, ok := s.members[r]
	return ok
}

func (s *recordSet) add(r *Record) bool {
	if s.contains(r) {
		return false
	}
	s.members[r] = struct{}{}
	s.items = append(s.items, r)
	r.containers[s] = struct{}{}
	return true
}

func (s *recordSet) remove(r *Record) bool {
	if !s.contains(r) {
		return false
	}
	delete(s.members, r)
	delete(r.containers, s)
	for i, item := range s.items {
		if item == r {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return true
}

func (s *recordSet) list() []*Record {
	out := make([]*Record, len(s.items))
	copy(out, s.items)
	return out
}

// indexEntry is one (key, value) pair a record is registered under
type indexEntry struct {
	key   string
	value any
}

// Record is an instance of a model. Scalar values, many2one targets and
// x2many collections are kept apart so that the relation engine can maintain
// both sides of every link.
type Record struct {
	model *Model
	id    any
	live  bool

	scalars map[string]any
	refs    map[string]*Record
	sets    map[string]*recordSet
	raw     Values

	// collections of other records this record is a member of
	containers map[*recordSet]struct{}
	indexed    []indexEntry
}

// ID returns the record id
func (r *Record) ID() any {
	return r.id
}

// Model returns the name of the record's model
func (r *Record) Model() string {
	return r.model.name
}

// Live returns false once the record has been deleted
func (r *Record) Live() bool {
	return r.live
}

// Get returns the value of a field: the scalar value, the many2one target
// (*Record, nil when unset) or a copy of the x2many collection ([]*Record).
func (r *Record) Get(name string) any {
	if name == "id" {
		return r.id
	}
	if set, ok := r.sets[name]; ok {
		return set.list()
	}
	if f, ok := r.model.byName[name]; ok && f.Type.IsRelational() {
		return r.refs[name]
	}
	return r.scalars[name]
}

// Scalar returns a scalar value and whether it was ever assigned
func (r *Record) Scalar(name string) (any, bool) {
	v, ok := r.scalars[name]
	return v, ok
}

// Ref returns the many2one target of a field, or nil
func (r *Record) Ref(name string) *Record {
	return r.refs[name]
}

// Members returns a copy of an x2many collection in link order
func (r *Record) Members(name string) []*Record {
	set, ok := r.sets[name]
	if !ok {
		return nil
	}
	return set.list()
}

// MemberIDs returns the ids of an x2many collection in link order
func (r *Record) MemberIDs(name string) []any {
	set, ok := r.sets[name]
	if !ok {
		return nil
	}
	ids := make([]any, len(set.items))
	for i, item := range set.items {
		ids[i] = item.id
	}
	return ids
}

// Contains reports whether target is in the x2many collection of a field
func (r *Record) Contains(name string, target *Record) bool {
	set, ok := r.sets[name]
	return ok && set.contains(target)
}

// Raw returns a copy of the snapshot the record was last loaded from
func (r *Record) Raw() Values {
	if r.raw == nil {
		return Values{}
	}
	return cloneValues(r.raw)
}

// Update applies values to the record
func (r *Record) Update(values Values) error {
	return r.model.Update(r, values)
}

// Delete removes the record from the store
func (r *Record) Delete() error {
	return r.model.Delete(r)
}

// Serialize returns the plain form of the record, or the external payload
// form when external is true.
func (r *Record) Serialize(external bool) Values {
	if external {
		return r.model.SerializeExternal(r)
	}
	return r.model.Serialize(r)
}

// String returns a short description such as "Item(1)"
func (r *Record) String() string {
	return fmt.Sprintf("%s(%v)", r.model.name, r.id)
}
