package loom

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/vango-dev/loom/pkg/host"
	"github.com/vango-dev/loom/pkg/vnode"
)

type mode struct {
	name string
	cfg  Config
}

// modes covers both scheduling behaviours.
var modes = []mode{
	{"immediate", ImmediateConfig()},
	{"deferred", DefaultConfig()},
}

func newTestRuntime(t *testing.T, cfg Config) *Runtime {
	t.Helper()
	return New(Options{
		Config: cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

// mountApp mounts app into the document body and settles the scheduler.
func mountApp(t *testing.T, rt *Runtime, app any) *Instance {
	t.Helper()
	insts, err := rt.Mount(context.Background(), rt.Document().Body(), app, nil)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	rt.Scheduler().Flush()
	if len(insts) != 1 {
		t.Fatalf("Mount returned %d instances, want 1", len(insts))
	}
	return insts[0]
}

// rerender reconciles the body against next and settles the scheduler.
func rerender(t *testing.T, rt *Runtime, next any) []Patch {
	t.Helper()
	patches, err := rt.Render(context.Background(), rt.Document().Body(), next)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	rt.Scheduler().Flush()
	return patches
}

func bodyHTML(rt *Runtime) string {
	var b strings.Builder
	host.NewRenderer(host.RenderConfig{}).RenderChildren(&b, rt.Document().Body())
	return b.String()
}

func h(tag any, props vnode.Props, children ...any) any {
	return vnode.Construct(tag, props, children...)
}

// label renders its "text" prop in a span.
var label = &ComponentType{
	Name: "x-label",
	New: func() Component {
		return ComponentFunc(func(c *Instance) any {
			return h("span", nil, fmt.Sprint(c.Prop("text")))
		})
	},
}
