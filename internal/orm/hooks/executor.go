package hooks

import (
	"fmt"
)

// Run executes the hooks of model against record in order, stopping at the
// first failure.
func (r *Registry[T]) Run(model string, record T) error {
	for i, hook := range r.hooks[model] {
		if err := hook.Fn(record); err != nil {
			name := hook.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i+1)
			}
			return fmt.Errorf("hook %s on %s failed: %w", name, model, err)
		}
	}
	return nil
}
