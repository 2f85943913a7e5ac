package loom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors a Runtime reports to.
//
// Collected series:
//   - loom_renders_total: component render passes
//   - loom_patches_total: applied patches by type
//   - loom_stale_discards_total: diff or apply calls dropped for a stale session
//   - loom_commits_total: patch batches committed
//   - loom_commit_duration_seconds: time spent applying a batch
//   - loom_pool_hits_total / loom_pool_misses_total: primitive node reuse
//   - loom_errors_total: published render errors by code
//   - loom_instances: live instances in the registry
//   - loom_foreign_renders_total: foreign root renders
type Metrics struct {
	renders        prometheus.Counter
	patches        *prometheus.CounterVec
	staleDiscards  prometheus.Counter
	commits        prometheus.Counter
	commitDuration prometheus.Histogram
	poolHits       prometheus.Counter
	poolMisses     prometheus.Counter
	errors         *prometheus.CounterVec
	instances      prometheus.Gauge
	foreignRenders prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	const ns = "loom"

	return &Metrics{
		renders: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "renders_total",
			Help:      "Total number of component render passes",
		}),
		patches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "patches_total",
			Help:      "Total number of applied patches by type",
		}, []string{"type"}),
		staleDiscards: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "stale_discards_total",
			Help:      "Diff and apply calls discarded because their session was superseded",
		}),
		commits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "commits_total",
			Help:      "Total number of committed patch batches",
		}),
		commitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "commit_duration_seconds",
			Help:      "Time spent applying a patch batch",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		poolHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "pool_hits_total",
			Help:      "Primitive nodes reused from the pool",
		}),
		poolMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "pool_misses_total",
			Help:      "Primitive nodes freshly allocated",
		}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "errors_total",
			Help:      "Published render errors by code",
		}, []string{"code"}),
		instances: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "instances",
			Help:      "Live instances in the registry",
		}),
		foreignRenders: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "foreign_renders_total",
			Help:      "Renders of foreign runtime roots",
		}),
	}
}

func (m *Metrics) render() {
	if m != nil {
		m.renders.Inc()
	}
}

func (m *Metrics) patch(t PatchType) {
	if m != nil {
		m.patches.WithLabelValues(t.String()).Inc()
	}
}

func (m *Metrics) stale() {
	if m != nil {
		m.staleDiscards.Inc()
	}
}

func (m *Metrics) commit(d time.Duration) {
	if m != nil {
		m.commits.Inc()
		m.commitDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) pool(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.poolHits.Inc()
	} else {
		m.poolMisses.Inc()
	}
}

func (m *Metrics) renderError(code string) {
	if m != nil {
		if code == "" {
			code = "unknown"
		}
		m.errors.WithLabelValues(code).Inc()
	}
}

func (m *Metrics) instance(delta float64) {
	if m != nil {
		m.instances.Add(delta)
	}
}

func (m *Metrics) foreignRender() {
	if m != nil {
		m.foreignRenders.Inc()
	}
}
