package loom

import "github.com/vango-dev/loom/internal/deep"

// Context broadcasts a value to the instances that read it. Subscribers are
// notified in no particular order.
type Context[T any] struct {
	initial T
	value   T
	subs    map[*Instance]map[string]struct{}
}

// NewContext creates a Context holding a snapshot of initial.
func NewContext[T any](initial T) *Context[T] {
	return &Context[T]{
		initial: cloneOf(initial),
		value:   initial,
		subs:    make(map[*Instance]map[string]struct{}),
	}
}

// Read subscribes c under key and returns the current value. The value is
// also written to c's slot under key, so State(c, ..., key) observes it.
func (x *Context[T]) Read(c *Instance, key string) T {
	if c.phase != PhaseDisconnected {
		keys, ok := x.subs[c]
		if !ok {
			keys = make(map[string]struct{})
			x.subs[c] = keys
			c.OnDisconnect(func() { delete(x.subs, c) })
		}
		keys[key] = struct{}{}
		s := c.slot(key)
		s.value = x.value
		s.init = true
	}
	return x.value
}

// Value returns the current value without subscribing.
func (x *Context[T]) Value() T { return x.value }

// Subscribers returns the number of subscribed instances.
func (x *Context[T]) Subscribers() int { return len(x.subs) }

// Update sets the value. If it differs from the current one by deep
// comparison, every subscriber's slots are written and each subscriber is
// re-rendered.
func (x *Context[T]) Update(v T) {
	x.UpdateFunc(func(T) T { return v })
}

// UpdateFunc computes the next value from the current one.
func (x *Context[T]) UpdateFunc(fn func(T) T) {
	next := fn(x.value)
	if deep.Equal(x.value, next) {
		return
	}
	x.value = next

	subs := make([]*Instance, 0, len(x.subs))
	for c := range x.subs {
		subs = append(subs, c)
	}
	for _, c := range subs {
		keys, ok := x.subs[c]
		if !ok || c.phase == PhaseDisconnected {
			continue
		}
		for k := range keys {
			s := c.slot(k)
			s.value = next
			s.init = true
		}
		c.Invalidate()
	}
}

// Reset restores the initial snapshot without notifying subscribers.
func (x *Context[T]) Reset() {
	if x == nil {
		return
	}
	x.value = cloneOf(x.initial)
}

func cloneOf[T any](v T) T {
	c, ok := deep.Clone(v).(T)
	if !ok {
		return v
	}
	return c
}
