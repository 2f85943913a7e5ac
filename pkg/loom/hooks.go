package loom

import "github.com/vango-dev/loom/internal/deep"

// Cleanup is returned by an effect and run before its next run and on
// teardown.
type Cleanup func()

// slot is one keyed unit of per-instance state. State, memo, ref and effect
// hooks share the slot map; reusing a key on one instance overwrites.
type slot struct {
	value any
	init  bool

	deps     []any // cloned snapshot
	hasDeps  bool
	memoized bool

	effect  func() Cleanup
	cleanup Cleanup
	queued  bool
}

func (c *Instance) slot(key string) *slot {
	if c.slots == nil {
		c.slots = make(map[string]*slot)
	}
	s, ok := c.slots[key]
	if !ok {
		s = &slot{}
		c.slots[key] = s
	}
	return s
}

// as asserts v to T, treating nil as T's zero value.
func as[T any](v any) (T, bool) {
	var zero T
	if v == nil {
		return zero, true
	}
	t, ok := v.(T)
	return t, ok
}

// Setter writes a state slot. It is safe to keep across renders.
type Setter[T any] struct {
	c   *Instance
	key string
}

// Set stores v and re-renders the instance if v differs from the current
// value by deep comparison.
func (s Setter[T]) Set(v T) {
	s.Update(func(T) T { return v })
}

// Update computes the next value from the current one.
func (s Setter[T]) Update(fn func(T) T) {
	c := s.c
	if c == nil || c.phase == PhaseDisconnected {
		return
	}
	sl := c.slot(s.key)
	cur, _ := as[T](sl.value)
	next := fn(cur)
	if sl.init && deep.Equal(cur, next) {
		return
	}
	sl.value = next
	sl.init = true
	c.Invalidate()
}

// Get returns the current value.
func (s Setter[T]) Get() T {
	if s.c == nil || s.c.slots == nil {
		var zero T
		return zero
	}
	v, _ := as[T](s.c.slots[s.key].valueOrNil())
	return v
}

func (s *slot) valueOrNil() any {
	if s == nil {
		return nil
	}
	return s.value
}

// State returns the value stored under key, seeding it with initial on first
// use, and a setter for it.
//
//	count, setCount := loom.State(c, 0, "count")
func State[T any](c *Instance, initial T, key string) (T, Setter[T]) {
	s := c.slot(key)
	v, ok := as[T](s.value)
	if !s.init || !ok {
		s.value = initial
		s.init = true
		v = initial
	}
	return v, Setter[T]{c: c, key: key}
}

// Effect queues fn to run after the current render commits when deps differ
// from the snapshot taken at its last run. A nil deps runs fn after every
// render. The snapshot is a structural clone, so mutating a dependency in
// place is detected.
//
// Effects queued by the first render run when the instance connects.
func Effect(c *Instance, fn func() Cleanup, deps []any, key string) {
	s := c.slot(key)
	s.effect = fn
	if deps != nil && s.hasDeps && deep.Equal(s.deps, deps) {
		return
	}
	s.deps = deep.CloneSlice(deps)
	s.hasDeps = deps != nil
	if !s.queued {
		s.queued = true
		c.pendingEffects = append(c.pendingEffects, s)
	}
}

// Memo returns the cached result of fn, recomputing it when deps change. A
// nil deps recomputes on every call.
func Memo[T any](c *Instance, fn func() T, deps []any, key string) T {
	s := c.slot(key)
	if s.memoized && deps != nil && s.hasDeps && deep.Equal(s.deps, deps) {
		if v, ok := as[T](s.value); ok {
			return v
		}
	}
	v := fn()
	s.value = v
	s.init = true
	s.memoized = true
	s.deps = deep.CloneSlice(deps)
	s.hasDeps = deps != nil
	return v
}

// Reducer is State with a dispatch function applying reduce to the current
// value.
func Reducer[S, A any](c *Instance, reduce func(S, A) S, initial S, key string) (S, func(A)) {
	v, set := State(c, initial, key)
	return v, func(action A) {
		set.Update(func(cur S) S { return reduce(cur, action) })
	}
}

// Box is a mutable cell. Writing Current never triggers a render.
type Box[T any] struct {
	Current T
}

// DeepEqual implements deep.Equaler; boxes compare by identity.
func (b *Box[T]) DeepEqual(other any) bool {
	o, ok := other.(*Box[T])
	return ok && o == b
}

// Ref returns the box stored under key, creating it with initial.
func Ref[T any](c *Instance, initial T, key string) *Box[T] {
	s := c.slot(key)
	if b, ok := s.value.(*Box[T]); ok && b != nil {
		return b
	}
	b := &Box[T]{Current: initial}
	s.value = b
	s.init = true
	return b
}

// Callback binds fn to c: the returned function does nothing once c is
// disconnected. It is not memoized.
func Callback(c *Instance, fn func()) func() {
	return func() {
		if c.phase == PhaseDisconnected {
			return
		}
		fn()
	}
}

// Handler is Callback for functions taking an argument, such as event
// handlers.
func Handler[T any](c *Instance, fn func(T)) func(T) {
	return func(v T) {
		if c.phase == PhaseDisconnected {
			return
		}
		fn(v)
	}
}
