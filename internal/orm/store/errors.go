package store

import (
	"errors"

	"github.com/conduit-lang/relstore/internal/orm/validation"
)

// Common store error types
var (
	// ErrUnknownModel is returned when a model is not declared in the schema
	ErrUnknownModel = errors.New("unknown model")

	// ErrUnknownField is returned when a relational field does not exist on a model
	ErrUnknownField = errors.New("unknown relational field")

	// ErrUnknownIndex is returned when reading by a key that was not declared as an index
	ErrUnknownIndex = errors.New("unable to get record by undeclared index")

	// ErrUnknownEvent is returned when subscribing to an event that does not exist
	ErrUnknownEvent = errors.New("event is not available")

	// ErrNilTarget is returned when disconnect is called without a record to remove
	ErrNilTarget = errors.New("record to disconnect is nil")

	// ErrInvalidID is returned when a value cannot be used as a record id
	ErrInvalidID = errors.New("invalid record id")

	// ErrDuplicateID is returned when creating a record whose id is already taken
	ErrDuplicateID = errors.New("record id already exists")

	// ErrInvalidCommand is returned when an x2many value is not a relation command
	ErrInvalidCommand = errors.New("invalid relation command")

	// ErrWrongModel is returned when a record is used with a model it does not belong to
	ErrWrongModel = errors.New("record belongs to another model")

	// ErrDeleted is returned when operating on a record that was deleted
	ErrDeleted = errors.New("record was deleted")
)

// IsValidationFailed returns true if a required field was missing
func IsValidationFailed(err error) bool {
	var valErr *validation.ValidationErrors
	return errors.As(err, &valErr)
}
