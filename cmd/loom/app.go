package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/loom/internal/config"
	"github.com/vango-dev/loom/internal/fixture"
	"github.com/vango-dev/loom/pkg/host"
	"github.com/vango-dev/loom/pkg/loom"
	"github.com/vango-dev/loom/pkg/vnode"
)

// app is one runtime configured from loom.yaml and the global flags.
type app struct {
	cfg *config.Config
	log *slog.Logger
	reg *prometheus.Registry
	rt  *loom.Runtime

	// running is set once the scheduler is driven by Run; settling is
	// then left to it.
	running bool
}

func newApp(flags *globalFlags, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(flags.dir)
	if err != nil {
		return nil, err
	}
	if flags.immediate {
		cfg.NoDefering = true
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	level, _ := cfg.Level()
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	reg := prometheus.NewRegistry()
	rt := loom.New(loom.Options{
		Config:  cfg.Runtime(),
		Logger:  logger,
		Metrics: loom.NewMetrics(reg),
	})
	return &app{cfg: cfg, log: logger, reg: reg, rt: rt}, nil
}

// define registers the fixture's element defaults.
func (a *app) define(f *fixture.Fixture) error {
	for _, tag := range f.Tags() {
		if err := a.rt.DefineElement(tag, f.Defaults[tag]); err != nil {
			return err
		}
	}
	return nil
}

// mount defines and mounts f into the body and settles the scheduler.
func (a *app) mount(ctx context.Context, f *fixture.Fixture) error {
	if err := a.define(f); err != nil {
		return err
	}
	if _, err := a.rt.Mount(ctx, a.body(), f.Tree, nil); err != nil {
		return err
	}
	a.settle()
	return nil
}

// rerender reconciles the body against f and settles the scheduler. The
// patches are described before they are applied, since applying tears down
// the instances they reference.
func (a *app) rerender(ctx context.Context, f *fixture.Fixture) ([]string, error) {
	if err := a.define(f); err != nil {
		return nil, err
	}
	root, ok := a.rt.Root(a.body())
	if !ok {
		return nil, a.mount(ctx, f)
	}

	id, sctx := root.Sessions().Start(ctx)
	defer root.Sessions().Complete(id)

	patches, err := a.rt.DiffChildren(sctx, root, id, root, vnode.Flatten(f.Tree))
	if err != nil {
		return nil, err
	}
	lines := make([]string, len(patches))
	for i, p := range patches {
		lines[i] = p.String()
	}
	err = a.rt.Apply(sctx, root, id, patches)
	a.settle()
	return lines, err
}

// settle runs queued work and deferred connects on the manual clock.
func (a *app) settle() {
	if !a.running {
		a.rt.Scheduler().Advance(a.cfg.DeferTimeout)
	}
}

func (a *app) body() *host.Node { return a.rt.Document().Body() }

func (a *app) html(pretty bool) string {
	var b strings.Builder
	host.NewRenderer(host.RenderConfig{Pretty: pretty}).RenderChildren(&b, a.body())
	return b.String()
}
