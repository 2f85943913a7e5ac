package loom

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
)

func benchRuntime(cfg Config) *Runtime {
	return New(Options{
		Config: cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func list(n int, suffix string) any {
	items := make([]any, n)
	for i := range items {
		items[i] = h("li", nil, fmt.Sprintf("item %d%s", i, suffix))
	}
	return h("ul", nil, items...)
}

func BenchmarkMount(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("%d items", n), func(b *testing.B) {
			tree := list(n, "")
			for i := 0; i < b.N; i++ {
				rt := benchRuntime(ImmediateConfig())
				if _, err := rt.Mount(context.Background(), rt.Document().Body(), tree, nil); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRender(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("%d items unchanged", n), func(b *testing.B) {
			rt := benchRuntime(ImmediateConfig())
			tree := list(n, "")
			rt.Mount(context.Background(), rt.Document().Body(), tree, nil)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				rt.Render(context.Background(), rt.Document().Body(), tree)
			}
		})

		b.Run(fmt.Sprintf("%d items text change", n), func(b *testing.B) {
			rt := benchRuntime(ImmediateConfig())
			trees := []any{list(n, ""), list(n, "!")}
			rt.Mount(context.Background(), rt.Document().Body(), trees[0], nil)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				rt.Render(context.Background(), rt.Document().Body(), trees[(i+1)%2])
			}
		})
	}
}

func BenchmarkDeferredFlush(b *testing.B) {
	rt := benchRuntime(DefaultConfig())
	trees := []any{list(100, ""), list(100, "!")}
	rt.Mount(context.Background(), rt.Document().Body(), trees[0], nil)
	rt.Scheduler().Flush()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rt.Render(context.Background(), rt.Document().Body(), trees[(i+1)%2])
		rt.Scheduler().Flush()
	}
}
