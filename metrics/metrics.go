// Package metrics holds six advisory gauges/counters: active and total
// instance counts for each of the Proto, Runtime, and Loaded phases, plus
// load/unload counters. None of these influence control flow; they exist
// purely for operational visibility.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Set is one sandbox's view of the shared metric vectors, already bound to
// its registerer. Building it registers the underlying collectors the
// first time they're needed for a given registerer and reuses them
// afterward, so many sandboxes sharing one registerer don't double-register.
type Set struct {
	active  *prometheus.GaugeVec
	total   *prometheus.CounterVec
	loads   prometheus.Counter
	unloads prometheus.Counter
}

const namespace = "hlwasm"

// New builds (or retrieves, if already registered on reg) the metric set.
// AlreadyRegisteredError is treated as success: re-registering the same
// collector against the same registerer happens whenever multiple
// sandboxes share a registerer, and client_golang's error tells us it's the
// same collector back, not a name collision. Any other registration error
// (e.g. a name collision with an unrelated collector) is returned so a
// misconfigured registerer fails sandbox construction instead of silently
// running with partial metrics.
func New(reg prometheus.Registerer) (*Set, error) {
	s := &Set{
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sandboxes_active",
			Help:      "Number of sandboxes currently in each phase.",
		}, []string{"phase"}),
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sandboxes_total",
			Help:      "Total sandboxes that have ever entered each phase.",
		}, []string{"phase"}),
		loads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "module_loads_total",
			Help:      "Total successful module/component loads.",
		}),
		unloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "module_unloads_total",
			Help:      "Total module unloads (including recovery from poisoning).",
		}),
	}
	cs := []prometheus.Collector{s.active, s.total, s.loads, s.unloads}
	for i, c := range cs {
		got, err := registerOrReuse(reg, c)
		if err != nil {
			return nil, err
		}
		cs[i] = got
	}
	s.active, s.total = cs[0].(*prometheus.GaugeVec), cs[1].(*prometheus.CounterVec)
	s.loads, s.unloads = cs[2].(prometheus.Counter), cs[3].(prometheus.Counter)
	return s, nil
}

func registerOrReuse(reg prometheus.Registerer, c prometheus.Collector) (prometheus.Collector, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if ok := asAlreadyRegistered(err, &already); ok {
			return already.ExistingCollector, nil
		}
		return nil, err
	}
	return c, nil
}

func asAlreadyRegistered(err error, target *prometheus.AlreadyRegisteredError) bool {
	if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
		*target = are
		return true
	}
	return false
}

// Phase names used as the "phase" label value.
const (
	PhaseProto   = "proto"
	PhaseRuntime = "runtime"
	PhaseLoaded  = "loaded"
)

// Enter records a sandbox entering phase: increments both the active gauge
// and the total counter.
func (s *Set) Enter(phase string) {
	s.active.WithLabelValues(phase).Inc()
	s.total.WithLabelValues(phase).Inc()
}

// Leave records a sandbox leaving phase (transitioning onward or dropped).
func (s *Set) Leave(phase string) {
	s.active.WithLabelValues(phase).Dec()
}

// Load increments the module-load counter.
func (s *Set) Load() {
	s.loads.Inc()
}

// Unload increments the module-unload counter.
func (s *Set) Unload() {
	s.unloads.Inc()
}
