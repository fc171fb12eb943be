package store

import (
	"fmt"

	"github.com/conduit-lang/relstore/internal/orm/schema"
	"github.com/conduit-lang/relstore/internal/orm/tracking"
)

func (s *Store) addMember(owner *Record, field string, target *Record) {
	set, ok := owner.sets[field]
	if !ok {
		return
	}
	if set.add(target) {
		s.observe(tracking.MemberAdded, owner, field, target.id)
		owner.model.reindex(owner, field)
	}
}

func (s *Store) removeMember(owner *Record, field string, target *Record) {
	set, ok := owner.sets[field]
	if !ok {
		return
	}
	if set.remove(target) {
		s.observe(tracking.MemberRemoved, owner, field, target.id)
		owner.model.reindex(owner, field)
	}
}

func (s *Store) setRef(owner *Record, field string, target *Record) {
	if target == nil {
		delete(owner.refs, field)
		s.observe(tracking.FieldSet, owner, field, nil)
	} else {
		owner.refs[field] = target
		s.observe(tracking.FieldSet, owner, field, target.id)
	}
	owner.model.reindex(owner, field)
}

// connect links target to owner through f and mirrors the link on the
// inverse field. Connecting twice is a no-op.
func (s *Store) connect(f *schema.Field, owner, target *Record) {
	inverse, hasInverse := s.schema.Inverse(f)

	switch f.Type {
	case schema.FieldMany2One:
		prev := owner.refs[f.Name]
		if prev == target {
			return
		}
		if hasInverse {
			s.addMember(target, inverse.Name, owner)
			if prev != nil {
				s.removeMember(prev, inverse.Name, owner)
			}
		}
		s.setRef(owner, f.Name, target)

	case schema.FieldOne2Many:
		// the previous parent of target keeps it in its collection
		if hasInverse && target.refs[inverse.Name] != owner {
			s.setRef(target, inverse.Name, owner)
		}
		s.addMember(owner, f.Name, target)

	case schema.FieldMany2Many:
		s.addMember(owner, f.Name, target)
		if hasInverse {
			s.addMember(target, inverse.Name, owner)
		}
	}
}

// disconnect removes the link between owner and target through f on both
// sides.
func (s *Store) disconnect(f *schema.Field, owner, target *Record) error {
	if target == nil {
		return fmt.Errorf("%w: %s.%s", ErrNilTarget, owner, f.Name)
	}
	inverse, hasInverse := s.schema.Inverse(f)

	switch f.Type {
	case schema.FieldMany2One:
		if owner.refs[f.Name] != target {
			return nil
		}
		s.setRef(owner, f.Name, nil)
		if hasInverse {
			s.removeMember(target, inverse.Name, owner)
		}

	case schema.FieldOne2Many:
		s.removeMember(owner, f.Name, target)
		if hasInverse && target.refs[inverse.Name] == owner {
			s.setRef(target, inverse.Name, nil)
		}

	case schema.FieldMany2Many:
		s.removeMember(owner, f.Name, target)
		if hasInverse {
			s.removeMember(target, inverse.Name, owner)
		}
	}
	return nil
}

func (s *Store) relationalField(owner *Record, name string) (*schema.Field, error) {
	f, ok := owner.model.byName[name]
	if !ok || !f.Type.IsRelational() {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, owner.model.name, name)
	}
	return f, nil
}

// Connect links target to owner through the relational field name, updating
// the inverse side as well.
func (s *Store) Connect(owner *Record, name string, target *Record) error {
	if owner == nil {
		return fmt.Errorf("%w: nil owner", ErrNilTarget)
	}
	f, err := s.relationalField(owner, name)
	if err != nil {
		return err
	}
	if target == nil {
		return fmt.Errorf("%w: connect %s.%s", ErrNilTarget, owner, name)
	}
	if target.model.name != f.Relation {
		return fmt.Errorf("%w: %s cannot be linked through %s", ErrWrongModel, target, f)
	}
	if !owner.live || !target.live {
		return ErrDeleted
	}
	s.connect(f, owner, target)
	return nil
}

// Disconnect removes the link between owner and target through the
// relational field name.
func (s *Store) Disconnect(owner *Record, name string, target *Record) error {
	if owner == nil {
		return fmt.Errorf("%w: nil owner", ErrNilTarget)
	}
	f, err := s.relationalField(owner, name)
	if err != nil {
		return err
	}
	return s.disconnect(f, owner, target)
}
