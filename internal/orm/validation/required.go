package validation

import (
	"github.com/conduit-lang/relstore/internal/orm/schema"
)

// CheckRequired reports every required field of model that is absent from
// values. A key present with a nil value counts as provided. It returns nil
// when nothing is missing.
func CheckRequired(model string, fields []*schema.Field, values map[string]any) *ValidationErrors {
	var errs *ValidationErrors
	for _, f := range fields {
		if !f.Required || f.Name == "id" {
			continue
		}
		if _, ok := values[f.Name]; ok {
			continue
		}
		if errs == nil {
			errs = NewValidationErrors(model)
		}
		errs.AddRequired(f.Name)
	}
	return errs
}
