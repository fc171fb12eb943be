package hooks

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type order struct {
	lines int
	total float64
	seen  []string
}

func TestRegistry_RunInOrder(t *testing.T) {
	r := NewRegistry[*order]()
	r.Register("Order", &Hook[*order]{Name: "count", Fn: func(o *order) error {
		o.seen = append(o.seen, "count")
		o.lines = 2
		return nil
	}})
	r.Register("Order", &Hook[*order]{Name: "total", Fn: func(o *order) error {
		o.seen = append(o.seen, "total")
		o.total = float64(o.lines) * 1.5
		return nil
	}})

	o := &order{}
	require.NoError(t, r.Run("Order", o))
	assert.Equal(t, []string{"count", "total"}, o.seen)
	assert.Equal(t, 3.0, o.total)
}

func TestRegistry_NoHooks(t *testing.T) {
	r := NewRegistry[*order]()
	assert.False(t, r.HasHooks("Order"))
	assert.Empty(t, r.GetHooks("Order"))
	assert.NoError(t, r.Run("Order", &order{}))
}

func TestRegistry_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry[*order]()
	r.Register("Order", &Hook[*order]{Fn: func(*order) error { return boom }})
	r.Register("Order", &Hook[*order]{Name: "never", Fn: func(o *order) error {
		o.seen = append(o.seen, "never")
		return nil
	}})

	o := &order{}
	err := r.Run("Order", o)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "hook #1 on Order failed")
	assert.Empty(t, o.seen)
	assert.True(t, r.HasHooks("Order"))
	assert.Len(t, r.GetHooks("Order"), 2)
}

func TestRegistry_ModelsAreIndependent(t *testing.T) {
	r := NewRegistry[*order]()
	r.Register("Order", &Hook[*order]{Fn: func(o *order) error {
		o.lines++
		return nil
	}})

	o := &order{}
	require.NoError(t, r.Run("Line", o))
	assert.Equal(t, 0, o.lines)
}
