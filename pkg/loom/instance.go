package loom

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vango-dev/loom/pkg/host"
	"github.com/vango-dev/loom/pkg/sched"
	"github.com/vango-dev/loom/pkg/vnode"
)

// Kind is the closed set of live instance variants, fixed at construction.
type Kind uint8

const (
	KindHost      Kind = iota + 1 // Native element
	KindComposite                 // Component rendering its own subtree
	KindForeign                   // Wrapper around a foreign runtime root
	KindPrimitive                 // Text, number or boolean content
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindHost:
		return "host"
	case KindComposite:
		return "composite"
	case KindForeign:
		return "foreign"
	case KindPrimitive:
		return "primitive"
	default:
		return "unknown"
	}
}

// Phase is the lifecycle state of an instance.
type Phase uint8

const (
	PhaseUninitialized Phase = iota // Being built
	PhaseAttached                   // Connected
	PhaseDisconnected               // Torn down, terminal
)

// String returns the string representation of the Phase.
func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseAttached:
		return "attached"
	case PhaseDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Instance is a materialized node. The parent edge is stored as an
// identifier resolved through the runtime registry; the child list is owned
// by the instance. Teardown clears every edge.
type Instance struct {
	id   uint64
	rt   *Runtime
	kind Kind
	name string
	tag  any
	node *host.Node
	log  *slog.Logger

	props    vnode.Props
	base     vnode.Props // description props before InitProps, when it ran
	value    any // primitive content
	slots    map[string]*slot
	children []*Instance
	parent   uint64

	phase               Phase
	childrenInitialized bool
	external            bool
	rootID              uuid.UUID

	sessions        SessionTracker
	comp            Component
	pendingEffects  []*slot
	awaitingReplace func()
	renderQueued    bool
	rendering       bool
	dirty           bool
	cleanups        []func()
	timers          []*sched.Timer

	foreign        *ForeignComponent
	froot          ForeignRoot
	foreignUpdates map[UpdateType]int

	renders            int
	propsNotifications int
}

func (rt *Runtime) newInstance(kind Kind, name string, tag any) *Instance {
	rt.nextID++
	c := &Instance{
		id:   rt.nextID,
		rt:   rt,
		kind: kind,
		name: name,
		tag:  tag,
	}
	c.log = rt.log.With("instance", c.id, "name", name)
	rt.instances[c.id] = c
	rt.metrics.instance(1)
	return c
}

// ID returns the registry identifier.
func (c *Instance) ID() uint64 { return c.id }

// Kind returns the instance variant.
func (c *Instance) Kind() Kind { return c.kind }

// Name returns the tag or component name.
func (c *Instance) Name() string { return c.name }

// Phase returns the lifecycle phase.
func (c *Instance) Phase() Phase { return c.phase }

// Runtime returns the owning runtime.
func (c *Instance) Runtime() *Runtime { return c.rt }

// Node returns the backing host node. It is nil after teardown.
func (c *Instance) Node() *host.Node { return c.node }

// Component returns the component of a composite instance.
func (c *Instance) Component() Component { return c.comp }

// Value returns the content of a primitive instance.
func (c *Instance) Value() any { return c.value }

// ChildrenInitialized reports whether child diffing is allowed yet.
func (c *Instance) ChildrenInitialized() bool { return c.childrenInitialized }

// RenderCount returns how many times Render has run.
func (c *Instance) RenderCount() int { return c.renders }

// PropsNotifications returns how many prop-change notifications the
// instance has received.
func (c *Instance) PropsNotifications() int { return c.propsNotifications }

// Sessions exposes the instance's session tracker.
func (c *Instance) Sessions() *SessionTracker { return &c.sessions }

// IsCurrentSession implements SessionOrigin.
func (c *Instance) IsCurrentSession(id SessionID) bool {
	return c.phase != PhaseDisconnected && c.sessions.IsCurrent(id)
}

// Props returns a copy of the current props.
func (c *Instance) Props() vnode.Props {
	out := make(vnode.Props, len(c.props))
	for k, v := range c.props {
		out[k] = v
	}
	return out
}

// diffBase returns the props a new description is compared against.
func (c *Instance) diffBase() vnode.Props {
	if c.base != nil {
		return c.base
	}
	return c.props
}

// refreshProp stores a callable that compared equal by code pointer, so a
// closure over newer state reaches the live instance without a patch.
func (c *Instance) refreshProp(key string, v any) {
	c.props[key] = v
	if c.base != nil {
		c.base[key] = v
	}
	if c.kind == KindHost && c.node != nil && isAttr(key) {
		c.node.ReplaceAttr(key, v)
	}
}

// Prop returns a single prop.
func (c *Instance) Prop(key string) any {
	return c.props[key]
}

// Parent returns the parent instance through the registry.
func (c *Instance) Parent() *Instance {
	if c.parent == 0 || c.rt == nil {
		return nil
	}
	return c.rt.instances[c.parent]
}

// Children returns a copy of the child list.
func (c *Instance) Children() []*Instance {
	out := make([]*Instance, len(c.children))
	copy(out, c.children)
	return out
}

// DeepEqual implements deep.Equaler; instances compare by identity.
func (c *Instance) DeepEqual(other any) bool {
	o, ok := other.(*Instance)
	return ok && o == c
}

// DeepClone implements deep.Cloner; instances are never copied.
func (c *Instance) DeepClone() any { return c }

func (c *Instance) String() string {
	return fmt.Sprintf("%s<%s#%d>", c.kind, c.name, c.id)
}

// Text returns the text content of the instance's host subtree.
func (c *Instance) Text() string {
	if c.node == nil {
		return ""
	}
	return c.node.TextContent()
}

// HTML serializes the instance's host subtree.
func (c *Instance) HTML() string {
	if c.node == nil {
		return ""
	}
	return host.RenderString(c.node)
}

// OnDisconnect registers fn to run during teardown, after slot cleanups.
func (c *Instance) OnDisconnect(fn func()) {
	if c.phase == PhaseDisconnected {
		fn()
		return
	}
	c.cleanups = append(c.cleanups, fn)
}

func (c *Instance) indexOf(child *Instance) int {
	for i, ch := range c.children {
		if ch == child {
			return i
		}
	}
	return -1
}

func (c *Instance) appendChild(child *Instance) {
	child.parent = c.id
	c.children = append(c.children, child)
}

func (c *Instance) removeChild(child *Instance) bool {
	i := c.indexOf(child)
	if i < 0 {
		return false
	}
	c.children = append(c.children[:i], c.children[i+1:]...)
	return true
}

// replaceChild swaps old for repl at old's position.
func (c *Instance) replaceChild(old *Instance, repl []*Instance) {
	i := c.indexOf(old)
	if i < 0 {
		for _, r := range repl {
			c.appendChild(r)
		}
		return
	}
	for _, r := range repl {
		r.parent = c.id
	}
	tail := append([]*Instance(nil), c.children[i+1:]...)
	c.children = append(append(c.children[:i], repl...), tail...)
}

// setPrimitive mutates primitive content in place.
func (c *Instance) setPrimitive(v any) {
	c.value = v
	if c.node != nil {
		c.node.SetText(vnode.PrimitiveText(v))
	}
}

// Rerender re-runs Render and reconciles the result against the live
// children. Calls made while rendering mark the instance dirty instead; the
// pass then repeats, up to a fixed limit.
func (c *Instance) Rerender(ctx context.Context) error {
	switch {
	case c.phase == PhaseDisconnected:
		return nil
	case c.kind == KindForeign:
		c.rt.markForeign(c, UpdateProps)
		c.rt.flushForeign()
		return nil
	case c.kind != KindComposite || c.comp == nil:
		return nil
	case c.rendering:
		c.dirty = true
		return nil
	}

	for pass := 0; ; pass++ {
		if pass >= maxRenderPasses {
			err := c.rt.renderError(c, "L102", fmt.Errorf("%d consecutive passes", pass))
			return err
		}
		c.dirty = false
		if err := c.renderPass(ctx); err != nil {
			return err
		}
		if !c.dirty || c.phase == PhaseDisconnected {
			return nil
		}
	}
}

// maxRenderPasses bounds self-invalidation while rendering.
const maxRenderPasses = 25

func (c *Instance) renderPass(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	id, sctx := c.sessions.Start(ctx)
	defer c.sessions.Complete(id)

	sctx, span := c.rt.tracer.Start(sctx, "loom.render")
	defer span.End()

	desc, err := c.render()
	if err != nil {
		recordSpanError(span, err)
		return err
	}
	if !c.childrenInitialized {
		return nil
	}

	patches, err := c.rt.diffChildren(sctx, c, id, c, vnode.Flatten(desc))
	if err != nil {
		recordSpanError(span, err)
		return err
	}
	if err := c.rt.Apply(sctx, c, id, patches); err != nil {
		recordSpanError(span, err)
		return err
	}
	if c.phase == PhaseAttached && c.IsCurrentSession(id) {
		return c.runEffects()
	}
	return nil
}

// render calls the component's Render, converting panics into a published
// RenderError.
func (c *Instance) render() (desc any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = c.rt.renderError(c, "L100", recovered(r))
		}
	}()
	c.rendering = true
	defer func() { c.rendering = false }()

	c.renders++
	c.rt.metrics.render()
	return c.comp.Render(c), nil
}

// Invalidate schedules a re-render. In immediate mode the re-render runs
// before Invalidate returns; otherwise one microtask is queued no matter how
// often Invalidate is called before it runs.
func (c *Instance) Invalidate() {
	if c.phase == PhaseDisconnected || c.kind != KindComposite || !c.childrenInitialized {
		return
	}
	if c.rendering {
		c.dirty = true
		return
	}
	if c.rt.cfg.NoDefering {
		c.rt.rerender(c)
		return
	}
	if c.renderQueued {
		return
	}
	c.renderQueued = true
	c.rt.sched.Microtask(func() {
		c.renderQueued = false
		c.rt.rerender(c)
	})
}

func (rt *Runtime) rerender(c *Instance) {
	if err := c.Rerender(context.Background()); err != nil {
		c.log.Debug("re-render failed", "error", err)
	}
}
