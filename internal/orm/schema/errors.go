package schema

import "errors"

var (
	// ErrAmbiguousInverse is returned when a many2many field has more than one candidate inverse
	ErrAmbiguousInverse = errors.New("many2many relation must have only one inverse")

	// ErrUnknownFieldType is returned when a definition names a type that does not exist
	ErrUnknownFieldType = errors.New("unknown field type")

	// ErrInvalidDefinition is returned when a definition file cannot be turned into fields
	ErrInvalidDefinition = errors.New("invalid model definition")
)
