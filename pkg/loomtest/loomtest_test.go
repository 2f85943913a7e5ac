package loomtest_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/loom/pkg/loom"
	"github.com/vango-dev/loom/pkg/loomtest"
	"github.com/vango-dev/loom/pkg/vnode"
)

func counter(set *loom.Setter[int]) *loom.ComponentType {
	return loom.Define("x-counter", func(c *loom.Instance) any {
		n, s := loom.State(c, 0, "n")
		*set = s
		return vnode.Construct("b", vnode.Props{"class": "count"}, fmt.Sprint(n))
	})
}

func TestHarness(t *testing.T) {
	loomtest.EachMode(t, func(t *testing.T, h *loomtest.Harness) {
		var set loom.Setter[int]
		c := h.Mount(counter(&set), nil)

		loomtest.ExpectHTML(t, c, `<x-counter><b class="count">0</b></x-counter>`)
		loomtest.ExpectElement(t, h.Root(), "x-counter")
		loomtest.ExpectAttribute(t, c, "class", "count")
		loomtest.ExpectRenders(t, c, 1)

		set.Set(5)
		h.Flush()
		loomtest.ExpectContains(t, c, ">5<")
		loomtest.ExpectNotContains(t, c, ">0<")
		loomtest.ExpectRenders(t, c, 2)

		if len(h.Commits()) == 0 {
			t.Error("commits should be recorded")
		}
		h.ExpectNoErrors()
	})
}

func TestHarnessRender(t *testing.T) {
	h := loomtest.New(t, loomtest.WithConfig(loom.ImmediateConfig()))
	h.Mount("ul", vnode.Props{vnode.PropChildren: []any{vnode.Construct("li", nil, "a")}})

	patches := h.Render(vnode.Construct("ul", nil,
		vnode.Construct("li", nil, "a"),
		vnode.Construct("li", nil, "b"),
	))
	if len(patches) != 1 || patches[0].Type != loom.PatchCreate {
		t.Errorf("patches = %v, want one CREATE", patches)
	}
	if got := h.HTML(); got != "<ul><li>a</li><li>b</li></ul>" {
		t.Errorf("HTML() = %s", got)
	}
	loomtest.ExpectHTML(t, h.Root(), h.HTML())
}

func TestHarnessCollectsErrors(t *testing.T) {
	broken := loom.Define("x-broken", func(c *loom.Instance) any {
		panic(errors.New("no data"))
	})

	h := loomtest.New(t, loomtest.WithRegistry(prometheus.NewRegistry()))
	if _, err := h.Runtime().Mount(context.Background(), h.Body(), broken, nil); err == nil {
		t.Fatal("Mount should return the render error")
	}
	if len(h.Errors()) != 1 {
		t.Errorf("Errors() = %d, want 1", len(h.Errors()))
	}
}
