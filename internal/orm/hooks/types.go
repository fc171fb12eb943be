// Package hooks manages per-model lifecycle hooks. A hook runs after a record
// is fully populated and lets a model derive extra state without a dedicated
// record type.
package hooks

// HookFunc represents a hook function that can be executed
type HookFunc[T any] func(record T) error

// Hook represents a registered post-populate hook
type Hook[T any] struct {
	Name string
	Fn   HookFunc[T]
}

// Registry manages all registered hooks, keyed by model name
type Registry[T any] struct {
	hooks map[string][]*Hook[T]
}

// NewRegistry creates a new hook registry
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		hooks: make(map[string][]*Hook[T]),
	}
}

// Register adds a hook for a model. Hooks run in registration order.
func (r *Registry[T]) Register(model string, hook *Hook[T]) {
	r.hooks[model] = append(r.hooks[model], hook)
}

// GetHooks returns all hooks for a given model
func (r *Registry[T]) GetHooks(model string) []*Hook[T] {
	return r.hooks[model]
}

// HasHooks returns true if there are any hooks registered for the given model
func (r *Registry[T]) HasHooks(model string) bool {
	return len(r.hooks[model]) > 0
}
