package validation

import (
	"errors"
	"testing"

	"github.com/conduit-lang/relstore/internal/orm/schema"
)

func TestCheckRequired(t *testing.T) {
	fields := []*schema.Field{
		{Name: "id", Required: true},
		{Name: "name", Required: true},
		{Name: "partner_id", Type: schema.FieldMany2One, Relation: "Partner", Required: true},
		{Name: "note"},
	}

	tests := []struct {
		name    string
		values  map[string]any
		missing []string
	}{
		{"all present", map[string]any{"name": "x", "partner_id": 1}, nil},
		{"nil counts as provided", map[string]any{"name": nil, "partner_id": nil}, nil},
		{"one missing", map[string]any{"name": "x"}, []string{"partner_id"}},
		{"all missing", map[string]any{}, []string{"name", "partner_id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := CheckRequired("Item", fields, tt.values)
			if tt.missing == nil {
				if errs != nil {
					t.Fatalf("expected no errors, got %v", errs)
				}
				return
			}
			if errs == nil {
				t.Fatal("expected errors")
			}
			if !errors.Is(errs, ErrRequired) {
				t.Error("expected ErrRequired")
			}
			got := errs.FieldNames()
			if len(got) != len(tt.missing) {
				t.Fatalf("expected %v, got %v", tt.missing, got)
			}
			for i := range got {
				if got[i] != tt.missing[i] {
					t.Errorf("expected %v, got %v", tt.missing, got)
				}
			}
		})
	}
}
