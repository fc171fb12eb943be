// Package tracking provides the notify-on-write substrate of the record store.
// Every mutation of a record or of a relation collection is reported to an
// Observer as a Change.
package tracking

import (
	"sync"
)

// Kind identifies what a Change did
type Kind int

const (
	RecordAdded Kind = iota
	RecordRemoved
	FieldSet
	MemberAdded
	MemberRemoved
)

// String returns the string representation of the change kind
func (k Kind) String() string {
	switch k {
	case RecordAdded:
		return "record_added"
	case RecordRemoved:
		return "record_removed"
	case FieldSet:
		return "field_set"
	case MemberAdded:
		return "member_added"
	case MemberRemoved:
		return "member_removed"
	default:
		return "unknown"
	}
}

// Change represents a single write.
//
// For FieldSet, Value is the new scalar value or the id of the new many2one
// target (nil when cleared). For MemberAdded and MemberRemoved, Value is the id
// of the record entering or leaving the collection named by Field.
type Change struct {
	Kind  Kind
	Model string
	ID    any
	Field string
	Value any
}

// Observer receives every write made by the store, synchronously and in order
type Observer interface {
	Observe(Change)
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(Change)

// Observe calls f(c)
func (f ObserverFunc) Observe(c Change) {
	f(c)
}

type nop struct{}

func (nop) Observe(Change) {}

// Nop returns an Observer that discards every change
func Nop() Observer {
	return nop{}
}

// Multi fans a change out to several observers in order
func Multi(observers ...Observer) Observer {
	return ObserverFunc(func(c Change) {
		for _, o := range observers {
			o.Observe(c)
		}
	})
}

// Recorder is an Observer that keeps every change it sees. It is safe for
// concurrent use.
type Recorder struct {
	mu      sync.RWMutex
	changes []Change
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Observe appends c to the recorded changes
func (r *Recorder) Observe(c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

// Changes returns a copy of all recorded changes
func (r *Recorder) Changes() []Change {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Change, len(r.changes))
	copy(result, r.changes)
	return result
}

// HasChanges returns true if any change was recorded
func (r *Recorder) HasChanges() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.changes) > 0
}

// Count returns the number of recorded changes of the given kind
func (r *Recorder) Count(kind Kind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, c := range r.changes {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// ChangedFields returns the fields written on one record, in first-write order
func (r *Recorder) ChangedFields(model string, id any) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var fields []string
	for _, c := range r.changes {
		if c.Model != model || c.ID != id || c.Field == "" || seen[c.Field] {
			continue
		}
		seen[c.Field] = true
		fields = append(fields, c.Field)
	}
	return fields
}

// Reset clears all recorded changes
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = nil
}
