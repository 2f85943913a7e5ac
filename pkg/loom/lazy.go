package loom

import (
	"context"
	"strings"

	lerr "github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/vnode"
)

// ariaBusy marks a lazy component that is still loading.
const ariaBusy = "aria-busy"

func (rt *Runtime) newLazy(l *LazyComponent, props vnode.Props) (*Instance, error) {
	if strings.TrimSpace(l.Name) == "" {
		return nil, lerr.New("L002").WithSuggestion("Give the lazy component a name")
	}
	if l.Load == nil {
		return nil, lerr.New("L005").WithDetail(l.Name + " has no loader")
	}
	if err := rt.define(l.Name, l); err != nil {
		return nil, err
	}

	c := rt.newInstance(KindComposite, l.Name, l)
	c.node = rt.doc.CreateElement(l.Name)
	c.props = rt.withDefaults(nil, props)

	future := l.load()
	rt.suspend(c, func(done func(error)) {
		future.Then(func(t *ComponentType, err error) {
			if c.phase == PhaseDisconnected {
				return
			}
			if err == nil && (t == nil || t.New == nil) {
				err = lerr.New("L005").WithDetail(l.Name + " loaded no component")
			}
			if err != nil {
				done(err)
				return
			}
			c.comp = t.New()
			desc := c.props
			c.props = rt.withDefaults(t.DefaultProps, desc)
			if err := c.initialize(); err != nil {
				done(err)
				return
			}
			// Descriptions of a lazy tag carry no defaults.
			c.base = desc
			async, ok := c.comp.(AsyncStateInitializer)
			if !ok {
				done(nil)
				return
			}
			async.InitStateAsync(c).Then(func(state map[string]any, err error) {
				if err == nil {
					c.seed(state)
				}
				done(err)
			})
		})
	})
	return c, nil
}

// suspend renders a placeholder child for c and calls start, which must
// call done exactly once when c is ready to render.
func (rt *Runtime) suspend(c *Instance, start func(done func(error))) {
	placeholder := rt.newPrimitive("")
	c.appendChild(placeholder)
	c.childrenInitialized = false

	attach := func() {
		if c.node != nil && placeholder.node != nil && placeholder.phase != PhaseDisconnected {
			c.node.AppendChild(placeholder.node)
		}
	}
	if rt.cfg.NoDefering {
		attach()
	} else {
		c.timers = append(c.timers, rt.sched.After(rt.cfg.PlaceholderDeferTimeout, attach))
	}

	if !rt.cfg.NoPreloader {
		c.timers = append(c.timers, rt.sched.After(rt.cfg.PreloaderDeferTimeout, func() {
			if !c.childrenInitialized && c.node != nil {
				c.node.SetAttr(ariaBusy, "true")
			}
		}))
	}

	start(func(err error) { rt.resume(c, placeholder, err) })
}

func (rt *Runtime) resume(c *Instance, placeholder *Instance, err error) {
	if c.phase == PhaseDisconnected {
		return
	}
	if err != nil {
		rt.renderError(c, "L104", err)
		return
	}
	c.log.Debug("lazy component resolved")
	if _, ok := c.node.Attr(ariaBusy); ok {
		c.node.RemoveAttr(ariaBusy)
	}

	replace := func() {
		if c.phase == PhaseDisconnected {
			return
		}
		if err := rt.replacePlaceholder(c, placeholder); err != nil {
			c.log.Debug("lazy replace failed", "error", err)
		}
	}
	if c.parent != 0 || c.external {
		rt.afterLazy(replace)
		return
	}
	c.awaitingReplace = replace
}

// replacePlaceholder renders c for the first time and swaps the placeholder
// for the result.
func (rt *Runtime) replacePlaceholder(c *Instance, placeholder *Instance) error {
	id, ctx := c.sessions.Start(context.Background())
	defer c.sessions.Complete(id)

	desc, err := c.render()
	if err != nil {
		return err
	}
	patch := Patch{
		Type:   PatchReplace,
		Parent: c,
		Old:    placeholder,
		New:    vnode.Children(vnode.Flatten(desc)),
	}
	if err := rt.Apply(ctx, c, id, []Patch{patch}); err != nil {
		return err
	}
	c.childrenInitialized = true
	if c.phase == PhaseAttached {
		return c.runEffects()
	}
	return nil
}

func (rt *Runtime) afterLazy(fn func()) {
	if rt.cfg.NoDefering {
		fn()
		return
	}
	rt.sched.After(rt.cfg.LazyComponentDeferTimeout, fn)
}

// runAwaiting runs the deferred replaces of lazy instances that have just
// been inserted into a parent.
func (rt *Runtime) runAwaiting(insts []*Instance) {
	for _, c := range insts {
		if fn := c.awaitingReplace; fn != nil {
			c.awaitingReplace = nil
			rt.afterLazy(fn)
		}
	}
}
