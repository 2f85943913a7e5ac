package loom

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	lerr "github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/vnode"
)

// Materialize turns a description, primitive, child list or live instance
// into live instances. The results are not linked to a parent; that is the
// patch applier's job. Live instances pass through unchanged.
//
// A nil slice with a nil error means the session went stale mid-way.
func (rt *Runtime) Materialize(ctx context.Context, origin SessionOrigin, id SessionID, v any) ([]*Instance, error) {
	var out []*Instance
	for _, item := range vnode.Flatten(v) {
		insts, err := rt.materializeOne(ctx, origin, id, item)
		if err != nil {
			rt.discard(out)
			return nil, err
		}
		out = append(out, insts...)
		if !origin.IsCurrentSession(id) {
			rt.discard(out)
			return nil, nil
		}
	}
	return out, nil
}

func (rt *Runtime) materializeOne(ctx context.Context, origin SessionOrigin, id SessionID, v any) ([]*Instance, error) {
	switch d := v.(type) {
	case *Instance:
		return []*Instance{d}, nil
	case *vnode.VNode:
		inst, err := rt.materializeVNode(ctx, origin, id, d)
		if err != nil || inst == nil {
			return nil, err
		}
		return []*Instance{inst}, nil
	default:
		if vnode.IsPrimitive(v) {
			return []*Instance{rt.newPrimitive(v)}, nil
		}
		return nil, lerr.New("L004").WithDetail(fmt.Sprintf("child of type %T", v))
	}
}

func (rt *Runtime) newPrimitive(v any) *Instance {
	c := rt.newInstance(KindPrimitive, "#text", nil)
	c.value = v
	c.node = rt.pool.get(vnode.PrimitiveText(v))
	c.childrenInitialized = true
	return c
}

func (rt *Runtime) materializeVNode(ctx context.Context, origin SessionOrigin, id SessionID, vn *vnode.VNode) (*Instance, error) {
	vn, err := rt.resolveThunk(ctx, vn)
	if err != nil {
		return nil, err
	}
	if !origin.IsCurrentSession(id) {
		return nil, nil
	}

	ref := vn.Ref()
	if !validRef(ref) {
		return nil, lerr.New("L001").
			WithDetail(fmt.Sprintf("ref of type %T", ref)).
			WithSuggestion("Pass a vnode.RefFunc or a *vnode.RefObject")
	}

	var c *Instance
	switch tag := vn.Tag.(type) {
	case string:
		c, err = rt.newHost(ctx, origin, id, tag, vn.Props)
	case *ComponentType:
		c, err = rt.newComposite(ctx, tag, tag, vn.Props)
	case ComponentFunc:
		c, err = rt.newComposite(ctx, tag, &ComponentType{Name: tag.TagName(), New: func() Component { return tag }}, vn.Props)
	case *LazyComponent:
		c, err = rt.newLazy(tag, vn.Props)
	case *ForeignComponent:
		c, err = rt.newForeign(ctx, origin, id, tag, vn.Props)
	default:
		if vnode.IsFragment(vn.Tag) {
			return nil, lerr.New("L004").WithDetail("fragment description in a single-node position")
		}
		return nil, lerr.New("L005").WithDetail(fmt.Sprintf("tag of type %T", vn.Tag))
	}
	if err != nil || c == nil {
		return nil, err
	}

	if err := vnode.Bind(ref, c); err != nil && !errors.Is(err, vnode.ErrRefAssigned) {
		c.DisconnectedCallback()
		return nil, lerr.New("L001").Wrap(err)
	}
	return c, nil
}

// resolveThunk replaces a thunk tag with the tag it returns.
func (rt *Runtime) resolveThunk(ctx context.Context, vn *vnode.VNode) (*vnode.VNode, error) {
	thunk, ok := vn.Tag.(vnode.Thunk)
	if !ok {
		return vn, nil
	}
	tag, err := thunk(ctx)
	if err != nil {
		return nil, lerr.New("L006").Wrap(err)
	}
	if _, again := tag.(vnode.Thunk); again {
		return nil, lerr.New("L006").WithDetail("thunk returned another thunk")
	}
	return &vnode.VNode{ID: vn.ID, Tag: tag, Props: vn.Props}, nil
}

func validRef(ref any) bool {
	switch r := ref.(type) {
	case nil, vnode.RefFunc, func(any):
		return true
	case *vnode.RefObject:
		return r != nil
	default:
		return false
	}
}

func (rt *Runtime) newHost(ctx context.Context, origin SessionOrigin, id SessionID, tag string, props vnode.Props) (*Instance, error) {
	if strings.TrimSpace(tag) == "" {
		return nil, lerr.New("L005").WithDetail("empty tag name")
	}
	name := strings.ToLower(tag)
	c := rt.newInstance(KindHost, name, name)
	c.node = rt.doc.CreateElement(name)
	c.props = rt.withDefaults(rt.defaults[name], props)
	for _, k := range sortedKeys(c.props) {
		if isAttr(k) {
			c.node.SetAttr(k, c.props[k])
		}
	}

	children, err := rt.Materialize(ctx, origin, id, c.props[vnode.PropChildren])
	if err != nil || (children == nil && !origin.IsCurrentSession(id)) {
		c.DisconnectedCallback()
		return nil, err
	}
	for _, child := range children {
		c.appendChild(child)
		c.node.AppendChild(child.node)
	}
	c.childrenInitialized = true
	rt.runAwaiting(children)
	return c, nil
}

func (rt *Runtime) newComposite(ctx context.Context, tag any, t *ComponentType, props vnode.Props) (*Instance, error) {
	if strings.TrimSpace(t.Name) == "" {
		return nil, lerr.New("L002").WithSuggestion("Set ComponentType.Name or use a named function")
	}
	if t.New == nil {
		return nil, lerr.New("L005").WithDetail(t.Name + " has no constructor")
	}
	if _, isFunc := tag.(ComponentFunc); isFunc {
		if err := rt.define(t.Name, tag); err != nil {
			return nil, err
		}
	} else if err := rt.Register(t); err != nil {
		return nil, err
	}

	c := rt.newInstance(KindComposite, t.Name, tag)
	c.node = rt.doc.CreateElement(t.Name)
	c.comp = t.New()
	c.props = rt.withDefaults(t.DefaultProps, props)
	if err := c.initialize(); err != nil {
		c.DisconnectedCallback()
		return nil, err
	}

	if async, ok := c.comp.(AsyncStateInitializer); ok {
		future := async.InitStateAsync(c)
		rt.suspend(c, func(done func(error)) {
			future.Then(func(state map[string]any, err error) {
				if err == nil {
					c.seed(state)
				}
				done(err)
			})
		})
		return c, nil
	}

	if err := rt.firstRender(ctx, c); err != nil {
		c.DisconnectedCallback()
		return nil, err
	}
	return c, nil
}

// initialize runs InitProps then InitState, once, before the first render.
func (c *Instance) initialize() error {
	if pi, ok := c.comp.(PropsInitializer); ok {
		if p := pi.InitProps(c, c.Props()); p != nil {
			c.base = c.props
			c.props = p
		}
	}
	if si, ok := c.comp.(StateInitializer); ok {
		state, err := si.InitState(c)
		if err != nil {
			return c.rt.renderError(c, "L100", err)
		}
		c.seed(state)
	}
	return nil
}

// seed stores initial state under the given slot keys.
func (c *Instance) seed(state map[string]any) {
	for k, v := range state {
		s := c.slot(k)
		s.value = v
		s.init = true
	}
}

// firstRender renders a composite and materializes its subtree.
func (rt *Runtime) firstRender(ctx context.Context, c *Instance) error {
	id, sctx := c.sessions.Start(ctx)
	defer c.sessions.Complete(id)

	desc, err := c.render()
	if err != nil {
		return err
	}
	children, err := rt.Materialize(sctx, c, id, desc)
	if err != nil {
		return err
	}
	for _, child := range children {
		c.appendChild(child)
		c.node.AppendChild(child.node)
	}
	c.childrenInitialized = true
	rt.runAwaiting(children)
	return nil
}

// discard tears down instances that were materialized but never linked.
func (rt *Runtime) discard(insts []*Instance) {
	for _, c := range insts {
		if c.parent == 0 {
			c.DisconnectedCallback()
		}
	}
}

func (rt *Runtime) withDefaults(defaults, props vnode.Props) vnode.Props {
	out := make(vnode.Props, len(defaults)+len(props))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range props {
		out[k] = v
	}
	return out
}

// isAttr reports whether a prop is written to the host element.
func isAttr(key string) bool {
	switch key {
	case vnode.PropChildren, vnode.PropKey, vnode.PropRef:
		return false
	}
	return true
}

func isFunc(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
}
