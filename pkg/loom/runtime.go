package loom

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	lerr "github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/host"
	"github.com/vango-dev/loom/pkg/sched"
	"github.com/vango-dev/loom/pkg/vnode"
)

// Options configures a Runtime. Zero fields get defaults.
type Options struct {
	// Config is the scheduling record.
	Config Config

	// Scheduler runs deferred work. Default: a manual sched.New().
	Scheduler *sched.Scheduler

	// Document is the host tree. Default: host.NewDocument().
	Document *host.Document

	// Logger receives runtime logs. Default: slog.Default() with component=loom.
	Logger *slog.Logger

	// Metrics receives runtime metrics. Default: unregistered collectors.
	Metrics *Metrics

	// Tracer records render, diff and apply spans. Default: the global
	// OpenTelemetry tracer provider.
	Tracer trace.Tracer
}

// Runtime owns the instance registry, the primitive pool and the scheduling
// configuration for one or more render roots. It is not safe for concurrent
// use: drive it from the scheduler goroutine.
type Runtime struct {
	id      uuid.UUID
	cfg     Config
	sched   *sched.Scheduler
	doc     *host.Document
	log     *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer

	nextID    uint64
	instances map[uint64]*Instance
	pool      *pool
	defaults  map[string]vnode.Props
	roots     map[*host.Node]*Instance
	rootOrder []*host.Node

	errSubs map[uint64]func(ErrorEvent)
	errSeq  uint64

	commitSubs map[uint64]func(CommitRecord)
	commitSeq  uint64
	commits    uint64

	foreignPending map[*Instance]UpdateType
	foreignOrder   []*Instance
	foreignQueued  bool
}

// New creates a Runtime.
func New(opts Options) *Runtime {
	rt := &Runtime{
		id:             uuid.New(),
		cfg:            opts.Config,
		sched:          opts.Scheduler,
		doc:            opts.Document,
		log:            opts.Logger,
		metrics:        opts.Metrics,
		tracer:         opts.Tracer,
		instances:      make(map[uint64]*Instance),
		defaults:       make(map[string]vnode.Props),
		roots:          make(map[*host.Node]*Instance),
		errSubs:        make(map[uint64]func(ErrorEvent)),
		commitSubs:     make(map[uint64]func(CommitRecord)),
		foreignPending: make(map[*Instance]UpdateType),
	}
	if rt.sched == nil {
		rt.sched = sched.New()
	}
	if rt.doc == nil {
		rt.doc = host.NewDocument()
	}
	if rt.log == nil {
		rt.log = slog.Default().With("component", "loom")
	}
	if rt.metrics == nil {
		rt.metrics = NewMetrics(nil)
	}
	if rt.tracer == nil {
		rt.tracer = otel.Tracer(tracerName)
	}
	rt.pool = newPool(rt.doc, rt.metrics)
	rt.log = rt.log.With("runtime", rt.id.String())
	return rt
}

// ID returns the runtime's unique identifier.
func (rt *Runtime) ID() uuid.UUID { return rt.id }

// Config returns the scheduling record.
func (rt *Runtime) Config() Config { return rt.cfg }

// Scheduler returns the scheduler deferred work runs on.
func (rt *Runtime) Scheduler() *sched.Scheduler { return rt.sched }

// Document returns the host tree.
func (rt *Runtime) Document() *host.Document { return rt.doc }

// Logger returns the runtime logger.
func (rt *Runtime) Logger() *slog.Logger { return rt.log }

// Lookup returns a live instance by identifier.
func (rt *Runtime) Lookup(id uint64) (*Instance, bool) {
	c, ok := rt.instances[id]
	return c, ok
}

// Len returns the number of live instances, including mount containers.
func (rt *Runtime) Len() int { return len(rt.instances) }

// Pooled returns the number of idle primitive nodes.
func (rt *Runtime) Pooled() int { return rt.pool.len() }

// Register records a component type under its name. Registering the same
// type again is a no-op; a different type under the same name is a
// construction error.
func (rt *Runtime) Register(t *ComponentType) error {
	if t == nil || strings.TrimSpace(t.Name) == "" {
		return lerr.New("L002").WithSuggestion("Set ComponentType.Name")
	}
	return rt.define(t.Name, t)
}

// DefineElement records static default props for a host tag. Defining a tag
// again with equal defaults is a no-op.
func (rt *Runtime) DefineElement(tag string, defaults vnode.Props) error {
	if strings.TrimSpace(tag) == "" {
		return lerr.New("L002").WithDetail("empty element tag")
	}
	if err := rt.define(tag, defaults); err != nil {
		return err
	}
	rt.defaults[strings.ToLower(tag)] = defaults
	return nil
}

func (rt *Runtime) define(name string, def any) error {
	if err := rt.doc.Define(name, def); err != nil {
		if err == host.ErrDefinitionConflict {
			return lerr.New("L003").WithDetail(name).Wrap(err)
		}
		return lerr.New("L002").WithDetail(name).Wrap(err)
	}
	return nil
}

// Mount materializes app under container and returns the new top-level
// instances. The container is adopted as an attached host instance; mounting
// into the same container again appends.
func (rt *Runtime) Mount(ctx context.Context, container *host.Node, app any, props vnode.Props) ([]*Instance, error) {
	root := rt.adopt(container)
	desc := app
	switch app.(type) {
	case string, *ComponentType, ComponentFunc, *LazyComponent, *ForeignComponent, vnode.Thunk:
		desc = vnode.New(app, props)
	}

	before := len(root.children)
	id, sctx := root.sessions.Start(ctx)
	defer root.sessions.Complete(id)

	patches := []Patch{{Type: PatchCreate, Parent: root, New: desc}}
	if err := rt.Apply(sctx, root, id, patches); err != nil {
		return nil, err
	}
	return append([]*Instance(nil), root.children[before:]...), nil
}

// Render reconciles the children of a mounted container against next and
// returns the patches that were applied.
func (rt *Runtime) Render(ctx context.Context, container *host.Node, next any) ([]Patch, error) {
	root := rt.adopt(container)
	id, sctx := root.sessions.Start(ctx)
	defer root.sessions.Complete(id)

	patches, err := rt.DiffChildren(sctx, root, id, root, vnode.Flatten(next))
	if err != nil {
		return nil, err
	}
	if err := rt.Apply(sctx, root, id, patches); err != nil {
		return patches, err
	}
	return patches, nil
}

// Unmount tears down everything mounted into container. The container
// itself is left in place.
func (rt *Runtime) Unmount(container *host.Node) {
	root, ok := rt.roots[container]
	if !ok {
		return
	}
	delete(rt.roots, container)
	for i, n := range rt.rootOrder {
		if n == container {
			rt.rootOrder = append(rt.rootOrder[:i], rt.rootOrder[i+1:]...)
			break
		}
	}
	root.DisconnectedCallback()
}

// Root returns the container instance for a mounted host node.
func (rt *Runtime) Root(container *host.Node) (*Instance, bool) {
	root, ok := rt.roots[container]
	return root, ok
}

// Roots returns the container instances in mount order.
func (rt *Runtime) Roots() []*Instance {
	out := make([]*Instance, 0, len(rt.rootOrder))
	for _, n := range rt.rootOrder {
		out = append(out, rt.roots[n])
	}
	return out
}

func (rt *Runtime) adopt(container *host.Node) *Instance {
	if root, ok := rt.roots[container]; ok {
		return root
	}
	root := rt.newInstance(KindHost, container.Tag(), container.Tag())
	root.node = container
	root.external = true
	root.phase = PhaseAttached
	root.childrenInitialized = true
	root.rootID = uuid.New()
	root.props = vnode.Props{}
	rt.roots[container] = root
	rt.rootOrder = append(rt.rootOrder, container)
	return root
}

// RootID returns the identifier of the render root containing c.
func (rt *Runtime) RootID(c *Instance) uuid.UUID {
	for p := c; p != nil; p = p.Parent() {
		if p.external {
			return p.rootID
		}
	}
	return uuid.Nil
}
