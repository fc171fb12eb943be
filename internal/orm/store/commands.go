package store

import (
	"fmt"

	"github.com/conduit-lang/relstore/internal/orm/schema"
)

// CommandKind is the operation of an x2many relation command
type CommandKind int

const (
	CommandCreate CommandKind = iota
	CommandLink
	CommandUnlink
	CommandClear
)

// String returns the string representation of the command kind
func (k CommandKind) String() string {
	switch k {
	case CommandCreate:
		return "create"
	case CommandLink:
		return "link"
	case CommandUnlink:
		return "unlink"
	case CommandClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Command is the value of an x2many field in create and update
type Command struct {
	Kind    CommandKind
	Values  []Values
	Records []*Record
}

// Create creates related records from values and links them
func Create(values ...Values) Command {
	return Command{Kind: CommandCreate, Values: values}
}

// Link links existing records. Records that are not live are skipped.
func Link(records ...*Record) Command {
	return Command{Kind: CommandLink, Records: records}
}

// Unlink removes records from the collection
func Unlink(records ...*Record) Command {
	return Command{Kind: CommandUnlink, Records: records}
}

// Clear removes every record from the collection
func Clear() Command {
	return Command{Kind: CommandClear}
}

func asCommands(v any) ([]Command, error) {
	switch cmd := v.(type) {
	case nil:
		return nil, nil
	case Command:
		return []Command{cmd}, nil
	case []Command:
		return cmd, nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrInvalidCommand, v)
	}
}

// applyCommands runs x2many commands against the collection f of owner
func (s *Store) applyCommands(f *schema.Field, owner *Record, comodel *Model, value any) error {
	cmds, err := asCommands(value)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", owner.model.name, f.Name, err)
	}

	for _, cmd := range cmds {
		switch cmd.Kind {
		case CommandCreate:
			for _, values := range cmd.Values {
				target, err := comodel.create(values, createOptions{})
				if err != nil {
					return err
				}
				s.connect(f, owner, target)
			}
		case CommandLink:
			for _, target := range cmd.Records {
				if comodel.owns(target) {
					s.connect(f, owner, target)
				}
			}
		case CommandUnlink:
			for _, target := range cmd.Records {
				if err := s.disconnect(f, owner, target); err != nil {
					return err
				}
			}
		case CommandClear:
			for _, target := range owner.Members(f.Name) {
				if err := s.disconnect(f, owner, target); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("%w: %s", ErrInvalidCommand, cmd.Kind)
		}
	}
	return nil
}

// applyMany2One resolves a many2one value and links it. On update an empty
// value disconnects the current target.
func (s *Store) applyMany2One(f *schema.Field, owner *Record, comodel *Model, value any, updating bool) error {
	if isEmptyRef(value) {
		if current := owner.refs[f.Name]; updating && current != nil {
			return s.disconnect(f, owner, current)
		}
		return nil
	}

	var target *Record
	switch v := value.(type) {
	case *Record:
		if !comodel.owns(v) {
			return nil
		}
		target = v
	case Values:
		found, err := comodel.findOrCreate(v)
		if err != nil {
			return err
		}
		target = found
	case map[string]any:
		found, err := comodel.findOrCreate(Values(v))
		if err != nil {
			return err
		}
		target = found
	default:
		id, ok := NormalizeID(value)
		if !ok {
			return fmt.Errorf("%w: %s.%s got %T", ErrInvalidID, owner.model.name, f.Name, value)
		}
		found, err := comodel.findOrCreate(Values{"id": id})
		if err != nil {
			return err
		}
		target = found
	}

	s.connect(f, owner, target)
	return nil
}

// findOrCreate returns the record matching the id in values, creating it
// from values when it does not exist.
func (m *Model) findOrCreate(values Values) (*Record, error) {
	if raw, ok := values["id"]; ok {
		if id, ok := NormalizeID(raw); ok {
			if existing, ok := m.records[id]; ok {
				return existing, nil
			}
		}
	}
	return m.create(values, createOptions{})
}

// linkSerialized connects the ids of a serialized relational value. Ids of
// records that do not exist are skipped.
func (s *Store) linkSerialized(f *schema.Field, owner *Record, comodel *Model, value any) {
	if f.Type.IsX2Many() {
		for _, id := range linkedIDs(value) {
			if target, ok := comodel.records[id]; ok {
				s.connect(f, owner, target)
			}
		}
		return
	}
	if id, ok := many2oneID(value); ok {
		if target, ok := comodel.records[id]; ok {
			s.connect(f, owner, target)
		}
	}
}
