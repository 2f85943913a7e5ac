package loom

import (
	"context"
	"errors"
	"testing"

	lerr "github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/host"
	"github.com/vango-dev/loom/pkg/vnode"
)

// fakeForeign is a ForeignRuntime that records what it is asked to render.
type fakeForeign struct {
	roots []*fakeRoot
	fail  error
}

func (f *fakeForeign) NewRoot(container *host.Node) ForeignRoot {
	r := &fakeRoot{container: container, fail: f.fail}
	f.roots = append(f.roots, r)
	return r
}

type fakeRoot struct {
	container *host.Node
	fail      error

	renders   int
	component any
	props     vnode.Props
	children  []ForeignChild
	unmounted bool
}

func (r *fakeRoot) Render(component any, props vnode.Props, children []ForeignChild) error {
	r.renders++
	r.component = component
	r.props = props
	r.children = children
	return r.fail
}

func (r *fakeRoot) Unmount() { r.unmounted = true }

func TestForeignAdapter(t *testing.T) {
	for _, m := range modes {
		t.Run(m.name, func(t *testing.T) {
			fr := &fakeForeign{}
			widget := Foreign("x-widget", fr, "Widget")
			tree := func(title, text string) any {
				return h(widget, vnode.Props{"title": title},
					h("input", vnode.Props{"value": "v"}),
					text,
				)
			}

			rt := newTestRuntime(t, m.cfg)
			c := mountApp(t, rt, tree("a", "one"))

			if len(fr.roots) != 1 {
				t.Fatalf("roots = %d, want one created on mount", len(fr.roots))
			}
			root := fr.roots[0]
			if root.container != c.Node() || root.renders != 1 || root.component != "Widget" {
				t.Fatalf("first render: %+v", root)
			}
			if root.props["title"] != "a" {
				t.Errorf("props = %v", root.props)
			}
			if _, ok := root.props[vnode.PropChildren]; ok {
				t.Error("children are passed separately")
			}
			if len(root.children) != 2 {
				t.Fatalf("children = %d, want 2", len(root.children))
			}
			if !root.children[0].HasValue || root.children[0].Value != "v" {
				t.Errorf("declared value should be preserved: %+v", root.children[0])
			}
			if root.children[1].HasValue || root.children[1].Node.Text() != "one" {
				t.Errorf("text child = %+v", root.children[1])
			}

			rerender(t, rt, tree("b", "two"))
			if root.renders != 2 {
				t.Errorf("renders = %d, want 2 (both channels deduplicated into one)", root.renders)
			}
			if c.ForeignUpdates(UpdateProps) != 1 || c.ForeignUpdates(UpdateChildren) != 1 {
				t.Errorf("updates: props=%d children=%d", c.ForeignUpdates(UpdateProps), c.ForeignUpdates(UpdateChildren))
			}
			if root.props["title"] != "b" || root.children[1].Node.Text() != "two" {
				t.Errorf("second render saw stale data: %v", root.props)
			}

			if patches := rerender(t, rt, tree("b", "two")); len(patches) != 0 || root.renders != 2 {
				t.Errorf("unchanged tree: patches=%v renders=%d", patches, root.renders)
			}

			rerender(t, rt, h(widget, vnode.Props{"title": "b"}, h("input", vnode.Props{"value": "v"})))
			if root.renders != 3 || len(root.children) != 1 {
				t.Errorf("child removal: renders=%d children=%d", root.renders, len(root.children))
			}

			rt.Unmount(rt.Document().Body())
			rt.Scheduler().Flush()
			if !root.unmounted {
				t.Error("teardown should unmount the foreign root")
			}
		})
	}
}

func TestForeignRenderError(t *testing.T) {
	rt := newTestRuntime(t, ImmediateConfig())
	var events []ErrorEvent
	rt.Errors(func(ev ErrorEvent) { events = append(events, ev) })

	fr := &fakeForeign{fail: errors.New("foreign crash")}
	mountApp(t, rt, h(Foreign("x-crash", fr, nil), nil))

	if len(events) != 1 || lerr.Code(events[0].Err) != "L105" {
		t.Errorf("events = %v, want one L105", events)
	}
}

func TestForeignRequiresRuntime(t *testing.T) {
	rt := newTestRuntime(t, ImmediateConfig())
	_, err := rt.Mount(context.Background(), rt.Document().Body(), Foreign("x-orphan", nil, nil), nil)
	if lerr.Code(err) != "L005" {
		t.Errorf("err = %v, want L005", err)
	}
}

func TestUpdateTypeString(t *testing.T) {
	tests := []struct {
		t    UpdateType
		want string
	}{
		{0, "none"},
		{UpdateChildren, "children"},
		{UpdateProps, "props"},
		{UpdateChildren | UpdateProps, "children|props"},
	}
	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.t, got, tt.want)
		}
	}
}
