package loom

import (
	"context"
	"errors"
	"testing"

	"github.com/vango-dev/loom/pkg/vnode"
)

func TestSessionTracker(t *testing.T) {
	var tr SessionTracker

	a, actx := tr.Start(context.Background())
	if !tr.IsCurrent(a) {
		t.Fatal("a fresh session should be current")
	}

	b, _ := tr.Start(context.Background())
	if tr.IsCurrent(a) || !tr.IsCurrent(b) {
		t.Error("only the newest session is current")
	}
	if !errors.Is(context.Cause(actx), ErrStaleSession) {
		t.Errorf("superseded context cause = %v, want ErrStaleSession", context.Cause(actx))
	}

	tr.Complete(a)
	if tr.Depth() != 2 {
		t.Errorf("completing a non-current session must not pop, Depth() = %d", tr.Depth())
	}

	tr.Complete(b)
	if tr.Depth() != 0 {
		t.Errorf("Depth() = %d, want 0", tr.Depth())
	}
	if tr.IsCurrent(a) {
		t.Error("supersession is permanent")
	}
}

func TestSessionNesting(t *testing.T) {
	var tr SessionTracker
	outer, _ := tr.Start(context.Background())
	inner, _ := tr.Start(context.Background())
	tr.Complete(inner)

	if tr.IsCurrent(outer) {
		t.Error("an outer session stays superseded after the inner one completes")
	}
	if inner <= outer {
		t.Errorf("ids should increase: %d then %d", outer, inner)
	}
}

func TestDiffDiscardsSupersededSession(t *testing.T) {
	for _, m := range modes {
		t.Run(m.name, func(t *testing.T) {
			rt := newTestRuntime(t, m.cfg)
			root := rt.adopt(rt.Document().Body())
			ctx := context.Background()

			idA, ctxA := root.Sessions().Start(ctx)
			var idB SessionID
			thunk := vnode.Thunk(func(context.Context) (any, error) {
				// Session B starts while A's diff is suspended.
				idB, _ = root.Sessions().Start(ctx)
				return "p", nil
			})

			patches, err := rt.DiffChildren(ctxA, root, idA, root, []any{h(thunk, nil, "a")})
			if err != nil {
				t.Fatal(err)
			}
			if len(patches) != 0 {
				t.Errorf("stale diff returned %v", patches)
			}
			if ctxA.Err() == nil {
				t.Error("A's context should be cancelled")
			}

			late := []Patch{{Type: PatchCreate, Parent: root, New: h("p", nil, "a")}}
			if err := rt.Apply(ctxA, root, idA, late); err != nil {
				t.Fatal(err)
			}
			rt.Scheduler().Flush()
			if len(root.Children()) != 0 || bodyHTML(rt) != "" {
				t.Fatalf("A's patches applied after B started: %s", bodyHTML(rt))
			}

			patches, err = rt.DiffChildren(ctx, root, idB, root, []any{h("p", nil, "b")})
			if err != nil {
				t.Fatal(err)
			}
			if err := rt.Apply(ctx, root, idB, patches); err != nil {
				t.Fatal(err)
			}
			rt.Scheduler().Flush()
			if got := bodyHTML(rt); got != "<p>b</p>" {
				t.Errorf("B's patches should apply, body = %s", got)
			}
		})
	}
}

func TestRerenderSupersedesEarlierPass(t *testing.T) {
	rt := newTestRuntime(t, ImmediateConfig())
	var self *Instance
	var nested bool
	comp := Define("x-nested", func(c *Instance) any {
		self = c
		n, _ := State(c, 0, "n")
		return h("b", nil, n)
	})
	c := mountApp(t, rt, h(comp, nil))
	if c != self {
		t.Fatal("unexpected instance")
	}

	// A render pass whose description resolves only after a newer pass on
	// the same instance has started and committed.
	id, ctx := c.Sessions().Start(context.Background())
	thunk := vnode.Thunk(func(context.Context) (any, error) {
		if !nested {
			nested = true
			_, set := State(c, 0, "n")
			set.Set(7)
		}
		return "i", nil
	})
	patches, err := rt.DiffChildren(ctx, c, id, c, []any{h(thunk, nil)})
	if err != nil {
		t.Fatal(err)
	}
	c.Sessions().Complete(id)

	if len(patches) != 0 {
		t.Errorf("superseded pass produced %v", patches)
	}
	if got := c.HTML(); got != "<x-nested><b>7</b></x-nested>" {
		t.Errorf("HTML = %s, want the newer pass's output", got)
	}
}
