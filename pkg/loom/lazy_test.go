package loom

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	lerr "github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/sched"
	"github.com/vango-dev/loom/pkg/vnode"
)

var loaded = Define("x-loaded", func(c *Instance) any {
	return h("p", nil, fmt.Sprint("hi ", c.Prop("who")))
})

func TestLazyImmediate(t *testing.T) {
	rt := newTestRuntime(t, ImmediateConfig())
	future := sched.NewFuture[*ComponentType](rt.Scheduler())
	loads := 0
	lazy := Lazy("x-lazy", func() *sched.Future[*ComponentType] {
		loads++
		return future
	})

	c := mountApp(t, rt, h(lazy, vnode.Props{"who": "lazy"}))
	if c.ChildrenInitialized() {
		t.Error("children are not initialized while loading")
	}
	if got := c.HTML(); got != "<x-lazy></x-lazy>" {
		t.Errorf("placeholder HTML = %s", got)
	}

	future.Resolve(loaded)
	rt.Scheduler().Flush()

	if got := c.HTML(); got != "<x-lazy><p>hi lazy</p></x-lazy>" {
		t.Errorf("HTML = %s", got)
	}
	if !c.ChildrenInitialized() {
		t.Error("children should be initialized after the replace")
	}

	second := mountApp(t, rt, h(lazy, vnode.Props{"who": "again"}))
	rt.Scheduler().Flush()
	if loads != 1 {
		t.Errorf("loader ran %d times, want 1", loads)
	}
	if got := second.Text(); got != "hi again" {
		t.Errorf("Text() = %q", got)
	}
}

func TestLazyDefaultsSurviveIdenticalRender(t *testing.T) {
	for _, m := range modes {
		t.Run(m.name, func(t *testing.T) {
			rt := newTestRuntime(t, m.cfg)
			future := sched.NewFuture[*ComponentType](rt.Scheduler())
			lazy := Lazy("x-toned", func() *sched.Future[*ComponentType] { return future })
			c := mountApp(t, rt, h(lazy, vnode.Props{"who": "x"}))

			future.Resolve(&ComponentType{
				Name:         "x-toned-impl",
				DefaultProps: vnode.Props{"tone": "warm"},
				New: func() Component {
					return ComponentFunc(func(c *Instance) any { return c.Prop("tone") })
				},
			})
			rt.Scheduler().Flush()
			rt.Scheduler().Advance(m.cfg.LazyComponentDeferTimeout)
			rt.Scheduler().Flush()
			if got := c.Text(); got != "warm" {
				t.Fatalf("Text() = %q after load, want warm", got)
			}

			if patches := rerender(t, rt, h(lazy, vnode.Props{"who": "x"})); len(patches) != 0 {
				t.Errorf("identical render produced %v", patches)
			}
			if got := c.Prop("tone"); got != "warm" {
				t.Errorf("Prop(tone) = %v, want warm", got)
			}
		})
	}
}

func TestLazyDeferredPreloader(t *testing.T) {
	tests := []struct {
		name        string
		noPreloader bool
		wantBusy    bool
	}{
		{"preloader", false, true},
		{"no preloader", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.NoPreloader = tt.noPreloader
			rt := newTestRuntime(t, cfg)
			s := rt.Scheduler()
			future := sched.NewFuture[*ComponentType](s)
			lazy := Lazy("x-slow", func() *sched.Future[*ComponentType] { return future })

			c := mountApp(t, rt, h(lazy, vnode.Props{"who": "slow"}))
			if c.Node().ChildCount() != 0 {
				t.Error("placeholder node should wait for PlaceholderDeferTimeout")
			}
			s.Advance(cfg.PlaceholderDeferTimeout)
			if c.Node().ChildCount() != 1 {
				t.Error("placeholder node should be attached")
			}

			s.Advance(cfg.PreloaderDeferTimeout)
			busy, ok := c.Node().Attr(ariaBusy)
			if ok != tt.wantBusy || (ok && busy != "true") {
				t.Errorf("aria-busy = %v, %v; want set=%v", busy, ok, tt.wantBusy)
			}

			future.Resolve(loaded)
			s.Flush()

			if _, ok := c.Node().Attr(ariaBusy); ok {
				t.Error("aria-busy should be cleared once resolved")
			}
			if got := c.HTML(); got != "<x-slow><p>hi slow</p></x-slow>" {
				t.Errorf("HTML = %s", got)
			}
		})
	}
}

func TestLazyAwaitsInsertion(t *testing.T) {
	rt := newTestRuntime(t, ImmediateConfig())
	lazy := Lazy("x-await", func() *sched.Future[*ComponentType] {
		return sched.Resolved(rt.Scheduler(), loaded)
	})

	root := rt.adopt(rt.Document().Body())
	id, ctx := root.Sessions().Start(context.Background())
	defer root.Sessions().Complete(id)

	insts, err := rt.Materialize(ctx, root, id, h(lazy, vnode.Props{"who": "later"}))
	if err != nil {
		t.Fatal(err)
	}
	c := insts[0]
	rt.Scheduler().Flush()

	if c.awaitingReplace == nil {
		t.Fatal("a resolved but uninserted lazy instance should await insertion")
	}
	if c.ChildrenInitialized() {
		t.Error("the replace must not run before insertion")
	}

	if err := rt.Apply(ctx, root, id, []Patch{{Type: PatchCreate, Parent: root, New: c}}); err != nil {
		t.Fatal(err)
	}
	if got := bodyHTML(rt); got != "<x-await><p>hi later</p></x-await>" {
		t.Errorf("HTML = %s", got)
	}
	if c.awaitingReplace != nil {
		t.Error("awaiting replace should be consumed")
	}
}

func TestLazyLoadFailure(t *testing.T) {
	rt := newTestRuntime(t, ImmediateConfig())
	var events []ErrorEvent
	rt.Errors(func(ev ErrorEvent) { events = append(events, ev) })

	future := sched.NewFuture[*ComponentType](rt.Scheduler())
	lazy := Lazy("x-missing", func() *sched.Future[*ComponentType] { return future })
	c := mountApp(t, rt, h(lazy, nil))

	future.Reject(errors.New("chunk not found"))
	rt.Scheduler().Flush()

	if len(events) != 1 || lerr.Code(events[0].Err) != "L104" || events[0].Component != c {
		t.Errorf("events = %v, want one L104 for the lazy instance", events)
	}
	if c.ChildrenInitialized() {
		t.Error("a failed lazy component keeps its placeholder")
	}
}

func TestLazyDisconnectedBeforeResolve(t *testing.T) {
	rt := newTestRuntime(t, ImmediateConfig())
	future := sched.NewFuture[*ComponentType](rt.Scheduler())
	lazy := Lazy("x-gone", func() *sched.Future[*ComponentType] { return future })
	c := mountApp(t, rt, h(lazy, nil))

	rt.Unmount(rt.Document().Body())
	future.Resolve(loaded)
	rt.Scheduler().Advance(time.Second)

	if c.Phase() != PhaseDisconnected || c.Component() != nil {
		t.Error("resolution after teardown must not revive the instance")
	}
}

// asyncComp seeds its state from a future.
type asyncComp struct {
	f *sched.Future[map[string]any]
}

func (a *asyncComp) InitStateAsync(c *Instance) *sched.Future[map[string]any] { return a.f }

func (a *asyncComp) Render(c *Instance) any {
	msg, _ := State(c, "", "msg")
	return h("em", nil, msg)
}

func TestAsyncStateInitializer(t *testing.T) {
	for _, m := range modes {
		t.Run(m.name, func(t *testing.T) {
			rt := newTestRuntime(t, m.cfg)
			future := sched.NewFuture[map[string]any](rt.Scheduler())
			comp := &ComponentType{
				Name: "x-async",
				New:  func() Component { return &asyncComp{f: future} },
			}
			c := mountApp(t, rt, h(comp, nil))
			if c.RenderCount() != 0 {
				t.Errorf("rendered %d times before state resolved", c.RenderCount())
			}

			future.Resolve(map[string]any{"msg": "ready"})
			rt.Scheduler().Advance(time.Second)

			if got := c.HTML(); got != "<x-async><em>ready</em></x-async>" {
				t.Errorf("HTML = %s", got)
			}
		})
	}
}
