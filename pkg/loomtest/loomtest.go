package loomtest

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/loom/pkg/host"
	"github.com/vango-dev/loom/pkg/loom"
	"github.com/vango-dev/loom/pkg/vnode"
)

// Harness drives a Runtime for tests.
type Harness struct {
	t   testing.TB
	rt  *loom.Runtime
	ctx context.Context

	errors  []loom.ErrorEvent
	commits []loom.CommitRecord
}

type options struct {
	config   loom.Config
	logger   *slog.Logger
	registry prometheus.Registerer
}

// Option configures a Harness.
type Option func(*options)

// WithConfig sets the runtime scheduling configuration. The default is
// loom.DefaultConfig().
func WithConfig(cfg loom.Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithLogger sets the runtime logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegistry registers the runtime metrics with reg.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(o *options) { o.registry = reg }
}

// New creates a Harness. Everything mounted is torn down when the test ends.
func New(t testing.TB, opts ...Option) *Harness {
	o := options{
		config: loom.DefaultConfig(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}

	h := &Harness{
		t:   t,
		ctx: context.Background(),
		rt: loom.New(loom.Options{
			Config:  o.config,
			Logger:  o.logger,
			Metrics: loom.NewMetrics(o.registry),
		}),
	}
	h.rt.Errors(func(ev loom.ErrorEvent) { h.errors = append(h.errors, ev) })
	h.rt.OnCommit(func(rec loom.CommitRecord) { h.commits = append(h.commits, rec) })
	t.Cleanup(func() {
		h.rt.Unmount(h.Body())
		h.rt.Scheduler().Flush()
	})
	return h
}

// Mode names a scheduling configuration.
type Mode struct {
	Name   string
	Config loom.Config
}

// Modes lists the immediate and deferred configurations.
func Modes() []Mode {
	return []Mode{
		{"immediate", loom.ImmediateConfig()},
		{"deferred", loom.DefaultConfig()},
	}
}

// EachMode runs fn as a subtest once per scheduling mode.
func EachMode(t *testing.T, fn func(t *testing.T, h *Harness), opts ...Option) {
	t.Helper()
	for _, m := range Modes() {
		t.Run(m.Name, func(t *testing.T) {
			fn(t, New(t, append([]Option{WithConfig(m.Config)}, opts...)...))
		})
	}
}

// Runtime returns the runtime under test.
func (h *Harness) Runtime() *loom.Runtime { return h.rt }

// Body returns the document body, the default mount container.
func (h *Harness) Body() *host.Node { return h.rt.Document().Body() }

// Mount mounts app into the body and settles the scheduler. The test fails
// unless exactly one top-level instance is created.
func (h *Harness) Mount(app any, props vnode.Props) *loom.Instance {
	h.t.Helper()
	insts, err := h.rt.Mount(h.ctx, h.Body(), app, props)
	if err != nil {
		h.t.Fatalf("loomtest: Mount: %v", err)
	}
	h.Flush()
	if len(insts) != 1 {
		h.t.Fatalf("loomtest: Mount created %d instances, want 1", len(insts))
	}
	return insts[0]
}

// Render reconciles the body against next, settles the scheduler and
// returns the applied patches.
func (h *Harness) Render(next any) []loom.Patch {
	h.t.Helper()
	patches, err := h.rt.Render(h.ctx, h.Body(), next)
	if err != nil {
		h.t.Fatalf("loomtest: Render: %v", err)
	}
	h.Flush()
	return patches
}

// Flush runs every ready task.
func (h *Harness) Flush() int { return h.rt.Scheduler().Flush() }

// Advance moves the scheduler clock forward by d.
func (h *Harness) Advance(d time.Duration) int { return h.rt.Scheduler().Advance(d) }

// Root returns the body's root instance.
func (h *Harness) Root() *loom.Instance {
	root, _ := h.rt.Root(h.Body())
	return root
}

// HTML serializes the children of the body.
func (h *Harness) HTML() string {
	var b strings.Builder
	host.NewRenderer(host.RenderConfig{}).RenderChildren(&b, h.Body())
	return b.String()
}

// Errors returns the error events published so far.
func (h *Harness) Errors() []loom.ErrorEvent { return h.errors }

// Commits returns the commit records emitted so far.
func (h *Harness) Commits() []loom.CommitRecord { return h.commits }

// ExpectNoErrors fails the test if any error was published.
func (h *Harness) ExpectNoErrors() {
	h.t.Helper()
	for _, ev := range h.errors {
		h.t.Errorf("unexpected render error: %v", ev.Err)
	}
}

// html renders the host subtree of c, or the children of a mount root.
func html(c *loom.Instance) string {
	if c == nil || c.Node() == nil {
		return ""
	}
	if c.Node().Type() == host.ElementNode && c.Node().Tag() == "body" {
		var b strings.Builder
		host.NewRenderer(host.RenderConfig{}).RenderChildren(&b, c.Node())
		return b.String()
	}
	return c.HTML()
}

// ExpectHTML asserts that c serializes to exactly want.
func ExpectHTML(t testing.TB, c *loom.Instance, want string) {
	t.Helper()
	if got := html(c); got != want {
		t.Errorf("HTML mismatch\n got: %s\nwant: %s", truncate(got, 500), want)
	}
}

// ExpectContains asserts that the HTML of c contains expected.
func ExpectContains(t testing.TB, c *loom.Instance, expected string) {
	t.Helper()
	if got := html(c); !strings.Contains(got, expected) {
		t.Errorf("expected rendered output to contain %q, got:\n%s", expected, truncate(got, 500))
	}
}

// ExpectNotContains asserts that the HTML of c does not contain unexpected.
func ExpectNotContains(t testing.TB, c *loom.Instance, unexpected string) {
	t.Helper()
	if got := html(c); strings.Contains(got, unexpected) {
		t.Errorf("expected rendered output to NOT contain %q, got:\n%s", unexpected, truncate(got, 500))
	}
}

// ExpectElement asserts that the HTML of c contains a tag.
func ExpectElement(t testing.TB, c *loom.Instance, tag string) {
	t.Helper()
	if got := html(c); !strings.Contains(got, "<"+tag) {
		t.Errorf("expected rendered output to contain <%s> element, got:\n%s", tag, truncate(got, 500))
	}
}

// ExpectAttribute asserts that the HTML of c contains attr="value".
func ExpectAttribute(t testing.TB, c *loom.Instance, attr, value string) {
	t.Helper()
	needle := attr + `="` + value + `"`
	if got := html(c); !strings.Contains(got, needle) {
		t.Errorf("expected attribute %s=%q not found, got:\n%s", attr, value, truncate(got, 500))
	}
}

// ExpectRenders asserts how many render passes c has completed.
func ExpectRenders(t testing.TB, c *loom.Instance, want int) {
	t.Helper()
	if got := c.RenderCount(); got != want {
		t.Errorf("%s rendered %d times, want %d", c, got, want)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
