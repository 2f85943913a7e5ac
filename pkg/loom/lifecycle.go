package loom

import "sort"

// ConnectedCallback marks the instance attached, runs the Mount hook and the
// effects queued by the first render, then connects the children. It is a
// no-op unless the instance is still uninitialized.
func (c *Instance) ConnectedCallback() {
	if c.phase != PhaseUninitialized {
		return
	}
	c.phase = PhaseAttached

	if m, ok := c.comp.(Mounter); ok {
		c.guard("L101", func() { m.Mount(c) })
	}
	if err := c.runEffects(); err != nil {
		c.log.Debug("mount effect failed", "error", err)
	}
	if c.kind == KindForeign {
		c.rt.mountForeign(c)
	}

	for _, child := range c.Children() {
		if c.phase != PhaseAttached {
			return
		}
		child.ConnectedCallback()
	}
}

// DisconnectedCallback tears the instance down. The order is fixed: the
// Cleanup hook, the WillUnmount hook, slot cleanups, OnDisconnect functions,
// the children, removal from the parent. Every edge is then cleared and the
// registry entry dropped. A second call is a no-op.
//
// Panics in user hooks are published on the error channel; teardown
// continues regardless.
func (c *Instance) DisconnectedCallback() {
	if c.phase == PhaseDisconnected {
		return
	}
	c.phase = PhaseDisconnected
	rt := c.rt

	if cl, ok := c.comp.(Cleaner); ok {
		c.guard("L103", func() { cl.Cleanup(c) })
	}
	if u, ok := c.comp.(Unmounter); ok {
		c.guard("L103", func() { u.WillUnmount(c) })
	}
	keys := make([]string, 0, len(c.slots))
	for k := range c.slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if cleanup := c.slots[k].cleanup; cleanup != nil {
			c.slots[k].cleanup = nil
			c.guard("L103", cleanup)
		}
	}
	for _, fn := range c.cleanups {
		c.guard("L103", fn)
	}

	for _, child := range c.Children() {
		child.DisconnectedCallback()
	}
	if parent := c.Parent(); parent != nil {
		parent.removeChild(c)
		rt.markForeign(parent, UpdateChildren)
	}

	if c.froot != nil {
		c.guard("L103", c.froot.Unmount)
	}
	for _, t := range c.timers {
		t.Stop()
	}
	c.sessions.reset()

	switch {
	case c.kind == KindPrimitive:
		rt.pool.put(c.node)
	case !c.external && c.node != nil:
		c.node.Remove()
	}

	delete(rt.instances, c.id)
	delete(rt.foreignPending, c)
	rt.metrics.instance(-1)
	c.log.Debug("instance disconnected")

	c.parent = 0
	c.children = nil
	c.props = nil
	c.base = nil
	c.value = nil
	c.slots = nil
	c.node = nil
	c.comp = nil
	c.tag = nil
	c.pendingEffects = nil
	c.awaitingReplace = nil
	c.cleanups = nil
	c.timers = nil
	c.foreign = nil
	c.froot = nil
}

// runEffects runs the effects queued by the last render, each after the
// cleanup of its previous run. The first failure is returned after every
// effect has had its turn.
func (c *Instance) runEffects() error {
	pending := c.pendingEffects
	c.pendingEffects = nil

	var first error
	for _, s := range pending {
		s.queued = false
		if c.phase == PhaseDisconnected {
			return first
		}
		if s.cleanup != nil {
			cleanup := s.cleanup
			s.cleanup = nil
			if err := c.guard("L101", cleanup); err != nil && first == nil {
				first = err
			}
		}
		if s.effect == nil {
			continue
		}
		effect := s.effect
		if err := c.guard("L101", func() { s.cleanup = effect() }); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// guard runs fn, converting a panic into a published RenderError.
func (c *Instance) guard(code string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = c.rt.renderError(c, code, recovered(r))
		}
	}()
	fn()
	return nil
}
