package loom

import (
	"testing"

	"github.com/vango-dev/loom/pkg/vnode"
)

func themed(theme *Context[string]) *ComponentType {
	return &ComponentType{
		Name: "x-themed",
		New: func() Component {
			return ComponentFunc(func(c *Instance) any {
				return h("span", nil, theme.Read(c, "theme"))
			})
		},
	}
}

func TestContextBroadcast(t *testing.T) {
	for _, m := range modes {
		t.Run(m.name, func(t *testing.T) {
			theme := NewContext("light")
			reader := themed(theme)

			rt := newTestRuntime(t, m.cfg)
			app := mountApp(t, rt, h("div", nil, h(reader, nil), h(reader, nil)))
			a, b := app.Children()[0], app.Children()[1]

			if theme.Subscribers() != 2 {
				t.Fatalf("Subscribers() = %d, want 2", theme.Subscribers())
			}

			theme.Update("dark")
			rt.Scheduler().Flush()
			if got := app.Text(); got != "darkdark" {
				t.Errorf("Text() = %q, want darkdark", got)
			}
			if a.RenderCount() != 2 || b.RenderCount() != 2 {
				t.Errorf("render counts = %d, %d, want 2 each", a.RenderCount(), b.RenderCount())
			}

			theme.Update("dark")
			rt.Scheduler().Flush()
			if a.RenderCount() != 2 {
				t.Errorf("equal update should not re-render, got %d renders", a.RenderCount())
			}

			rerender(t, rt, h("div", nil, h(reader, nil)))
			if theme.Subscribers() != 1 {
				t.Errorf("Subscribers() after removal = %d, want 1", theme.Subscribers())
			}

			theme.Update("blue")
			rt.Scheduler().Flush()
			if got := app.Text(); got != "blue" {
				t.Errorf("Text() = %q, want blue", got)
			}
		})
	}
}

func TestContextSlotSharing(t *testing.T) {
	count := NewContext(1)
	var seen int
	comp := &ComponentType{
		Name: "x-shared",
		New: func() Component {
			return ComponentFunc(func(c *Instance) any {
				count.Read(c, "n")
				v, _ := State(c, 0, "n")
				seen = v
				return nil
			})
		},
	}

	rt := newTestRuntime(t, ImmediateConfig())
	mountApp(t, rt, h(comp, nil))
	if seen != 1 {
		t.Errorf("slot value = %d, want the context value 1", seen)
	}
	count.Update(5)
	rt.Scheduler().Flush()
	if seen != 5 {
		t.Errorf("slot value after Update = %d, want 5", seen)
	}
}

func TestContextReset(t *testing.T) {
	initial := vnode.Props{"a": 1}
	x := NewContext(initial)
	initial["a"] = 99

	x.UpdateFunc(func(p vnode.Props) vnode.Props { return vnode.Props{"a": 2} })
	if x.Value()["a"] != 2 {
		t.Fatalf("Value() = %v", x.Value())
	}
	x.Reset()
	if x.Value()["a"] != 1 {
		t.Errorf("Reset should restore the snapshot taken at creation, got %v", x.Value())
	}

	var nilCtx *Context[int]
	nilCtx.Reset()
}
