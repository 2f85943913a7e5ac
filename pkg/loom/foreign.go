package loom

import (
	"context"
	"fmt"
	"strings"

	lerr "github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/host"
	"github.com/vango-dev/loom/pkg/vnode"
)

// UpdateType is a foreign re-render channel. Pending channels are kept as a
// set so each is processed at most once per flush.
type UpdateType uint8

const (
	UpdateChildren UpdateType = 1 << iota // Live children changed structurally
	UpdateProps                           // Non-children props changed
)

// String returns the string representation of the UpdateType.
func (t UpdateType) String() string {
	var parts []string
	if t&UpdateChildren != 0 {
		parts = append(parts, "children")
	}
	if t&UpdateProps != 0 {
		parts = append(parts, "props")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ForeignRuntime is another component-tree runtime that can render into a
// host node.
type ForeignRuntime interface {
	NewRoot(container *host.Node) ForeignRoot
}

// ForeignRoot is one render root owned by a ForeignRuntime.
type ForeignRoot interface {
	Render(component any, props vnode.Props, children []ForeignChild) error
	Unmount()
}

// ForeignChild wraps a live child handed to a foreign root. Value carries a
// declared "value" prop so controlled inputs keep working.
type ForeignChild struct {
	Node     *host.Node
	Value    any
	HasValue bool
}

// ForeignComponent is a tag rendered by a foreign runtime. The live children
// of the description are materialized here and passed along as
// ForeignChild values.
type ForeignComponent struct {
	Name      string
	Runtime   ForeignRuntime
	Component any
}

// Foreign creates a ForeignComponent.
func Foreign(name string, rt ForeignRuntime, component any) *ForeignComponent {
	return &ForeignComponent{Name: name, Runtime: rt, Component: component}
}

// TagName implements vnode.Named.
func (f *ForeignComponent) TagName() string {
	if f == nil {
		return ""
	}
	return f.Name
}

func (rt *Runtime) newForeign(ctx context.Context, origin SessionOrigin, id SessionID, f *ForeignComponent, props vnode.Props) (*Instance, error) {
	if strings.TrimSpace(f.Name) == "" {
		return nil, lerr.New("L002").WithSuggestion("Give the foreign component a name")
	}
	if f.Runtime == nil {
		return nil, lerr.New("L005").WithDetail(f.Name + " has no foreign runtime")
	}
	if err := rt.define(f.Name, f); err != nil {
		return nil, err
	}

	c := rt.newInstance(KindForeign, f.Name, f)
	c.node = rt.doc.CreateElement(f.Name)
	c.foreign = f
	c.props = rt.withDefaults(nil, props)

	children, err := rt.Materialize(ctx, origin, id, c.props[vnode.PropChildren])
	if err != nil || (children == nil && !origin.IsCurrentSession(id)) {
		c.DisconnectedCallback()
		return nil, err
	}
	for _, child := range children {
		c.appendChild(child)
	}
	c.childrenInitialized = true
	rt.runAwaiting(children)
	return c, nil
}

// mountForeign creates the foreign root on first connect and renders into it.
func (rt *Runtime) mountForeign(c *Instance) {
	if c.froot != nil || c.foreign == nil {
		return
	}
	c.froot = c.foreign.Runtime.NewRoot(c.node)
	if c.froot == nil {
		rt.renderError(c, "L105", fmt.Errorf("%s: NewRoot returned nil", c.name))
		return
	}
	rt.renderForeign(c)
}

func (rt *Runtime) renderForeign(c *Instance) {
	children := make([]ForeignChild, 0, len(c.children))
	for _, child := range c.children {
		fc := ForeignChild{Node: child.node}
		if v, ok := child.props[vnode.PropValue]; ok {
			fc.Value = v
			fc.HasValue = true
		}
		children = append(children, fc)
	}
	props := c.Props()
	delete(props, vnode.PropChildren)
	delete(props, vnode.PropKey)
	delete(props, vnode.PropRef)

	var err error
	if perr := c.guard("L105", func() { err = c.froot.Render(c.foreign.Component, props, children) }); perr != nil {
		return
	}
	rt.metrics.foreignRender()
	if err != nil {
		rt.renderError(c, "L105", err)
	}
}

// markForeign records that c needs a foreign re-render on channel t. It is
// a no-op for other kinds.
func (rt *Runtime) markForeign(c *Instance, t UpdateType) {
	if c == nil || c.kind != KindForeign || c.phase == PhaseDisconnected || t == 0 {
		return
	}
	if _, ok := rt.foreignPending[c]; !ok {
		rt.foreignOrder = append(rt.foreignOrder, c)
	}
	rt.foreignPending[c] |= t
}

// scheduleForeign flushes pending foreign updates now in immediate mode, or
// in one microtask otherwise.
func (rt *Runtime) scheduleForeign() {
	if len(rt.foreignPending) == 0 {
		return
	}
	if rt.cfg.NoDefering {
		rt.flushForeign()
		return
	}
	if rt.foreignQueued {
		return
	}
	rt.foreignQueued = true
	rt.sched.Microtask(func() {
		rt.foreignQueued = false
		rt.flushForeign()
	})
}

// flushForeign renders every marked foreign instance once. Instances not yet
// connected are skipped; their first render picks up the change.
func (rt *Runtime) flushForeign() {
	order, pending := rt.foreignOrder, rt.foreignPending
	rt.foreignOrder = nil
	rt.foreignPending = make(map[*Instance]UpdateType)

	for _, c := range order {
		t, ok := pending[c]
		if !ok || c.phase != PhaseAttached || c.froot == nil {
			continue
		}
		if c.foreignUpdates == nil {
			c.foreignUpdates = make(map[UpdateType]int)
		}
		for _, ch := range []UpdateType{UpdateChildren, UpdateProps} {
			if t&ch != 0 {
				c.foreignUpdates[ch]++
			}
		}
		c.log.Debug("foreign re-render", "updates", t.String())
		rt.renderForeign(c)
	}
}

// ForeignUpdates returns how many times channel t has been processed for a
// foreign instance.
func (c *Instance) ForeignUpdates(t UpdateType) int {
	return c.foreignUpdates[t]
}
