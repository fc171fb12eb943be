// Package validation reports field-level validation failures raised while
// populating records.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrRequired matches any ValidationErrors that contains a missing required field
var ErrRequired = errors.New("required field missing")

// ValidationErrors contains multiple validation errors for a record
type ValidationErrors struct {
	Model  string              `json:"model,omitempty"`
	Fields map[string][]string `json:"fields"`

	required bool
}

// NewValidationErrors creates a new ValidationErrors instance for a model
func NewValidationErrors(model string) *ValidationErrors {
	return &ValidationErrors{
		Model:  model,
		Fields: make(map[string][]string),
	}
}

// Add adds a validation error for a specific field
func (ve *ValidationErrors) Add(field, message string) {
	if ve.Fields == nil {
		ve.Fields = make(map[string][]string)
	}
	ve.Fields[field] = append(ve.Fields[field], message)
}

// AddRequired records that a required field is absent
func (ve *ValidationErrors) AddRequired(field string) {
	ve.required = true
	ve.Add(field, fmt.Sprintf("field is required when creating '%s' record", ve.Model))
}

// AddFieldError adds a FieldError to the validation errors
func (ve *ValidationErrors) AddFieldError(err FieldError) {
	ve.Add(err.Field, err.Message)
}

// HasErrors returns true if there are any validation errors
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Fields) > 0
}

// Count returns the total number of validation errors across all fields
func (ve *ValidationErrors) Count() int {
	count := 0
	for _, messages := range ve.Fields {
		count += len(messages)
	}
	return count
}

// FieldNames returns the names of the failing fields in lexical order
func (ve *ValidationErrors) FieldNames() []string {
	names := make([]string, 0, len(ve.Fields))
	for name := range ve.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Error implements the error interface
func (ve *ValidationErrors) Error() string {
	if !ve.HasErrors() {
		return "validation failed"
	}

	var messages []string
	for _, field := range ve.FieldNames() {
		for _, msg := range ve.Fields[field] {
			messages = append(messages, fmt.Sprintf("  - %s: %s", field, msg))
		}
	}

	if len(messages) == 1 {
		return fmt.Sprintf("validation failed: %s", strings.TrimPrefix(messages[0], "  - "))
	}

	return fmt.Sprintf("validation failed:\n%s", strings.Join(messages, "\n"))
}

// Is reports whether target is ErrRequired and a required field is missing
func (ve *ValidationErrors) Is(target error) bool {
	return target == ErrRequired && ve.required
}

// MarshalJSON implements json.Marshaler for custom JSON serialization
func (ve *ValidationErrors) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Error  string              `json:"error"`
		Model  string              `json:"model,omitempty"`
		Fields map[string][]string `json:"fields"`
	}{
		Error:  "validation_failed",
		Model:  ve.Model,
		Fields: ve.Fields,
	})
}

// FieldError represents a validation error on a specific field
type FieldError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (fe FieldError) Error() string {
	return fmt.Sprintf("%s: %s", fe.Field, fe.Message)
}

// NewFieldError creates a new FieldError
func NewFieldError(field, message string) FieldError {
	return FieldError{
		Field:   field,
		Message: message,
	}
}
