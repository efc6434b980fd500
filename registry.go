package iammetrics

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/MrEthical07/iammetrics/metrics/defs"
)

// Registry owns one instance of every catalog metric and the registerer they
// were registered with. All methods are safe for concurrent use.
//
// Each metric is a Prometheus vec: a concurrent map from label vector to an
// atomically updated accumulator. Series are never evicted; cardinality is
// bounded by realms × clients × providers × error kinds.
type Registry struct {
	cfg        Config
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
	logger     *zap.Logger

	counters   [defs.Count]*prometheus.CounterVec
	gauges     [defs.Count]*prometheus.GaugeVec
	histograms [defs.Count]*prometheus.HistogramVec
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	r, err := New().WithLogger(zap.L()).Build()
	if err != nil {
		panic(fmt.Sprintf("iammetrics: default registry: %v", err))
	}
	return r
})

// Default returns the process-wide Registry, constructing it on first call.
// It registers the catalog with prometheus.DefaultRegisterer. A registration
// conflict panics on every call: two metrics sharing a name make exposition
// ambiguous, so the process must not start with them.
func Default() *Registry {
	return defaultRegistry()
}

func newRegistry(cfg Config, reg prometheus.Registerer, gatherer prometheus.Gatherer, logger *zap.Logger) (*Registry, error) {
	r := &Registry{
		cfg:        cfg,
		registerer: reg,
		gatherer:   gatherer,
		logger:     logger,
	}

	registered := make([]prometheus.Collector, 0, defs.Count)
	for _, def := range defs.Catalog {
		c := r.build(def)
		if err := reg.Register(c); err != nil {
			for _, prev := range registered {
				reg.Unregister(prev)
			}
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				return nil, fmt.Errorf("%w: %s: %w", ErrDuplicateMetric, def.Name, err)
			}
			return nil, fmt.Errorf("%w: %s: %w", ErrRegistration, def.Name, err)
		}
		registered = append(registered, c)
	}

	if err := r.registerRuntime(); err != nil {
		for _, prev := range registered {
			reg.Unregister(prev)
		}
		return nil, err
	}

	return r, nil
}

func (r *Registry) build(def defs.Definition) prometheus.Collector {
	switch def.Kind {
	case defs.KindCounter:
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: def.Name,
			Help: def.Help,
		}, def.Labels)
		r.counters[def.ID] = vec
		return vec
	case defs.KindGauge:
		vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: def.Name,
			Help: def.Help,
		}, def.Labels)
		r.gauges[def.ID] = vec
		return vec
	default:
		vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    def.Name,
			Help:    def.Help,
			Buckets: def.Buckets,
		}, def.Labels)
		r.histograms[def.ID] = vec
		return vec
	}
}

// registerRuntime adds the Go and process collectors. prometheus.DefaultRegisterer
// ships with both, so an already-registered runtime collector is not an error.
func (r *Registry) registerRuntime() error {
	var runtime []prometheus.Collector
	if r.cfg.Runtime.GoCollector {
		runtime = append(runtime, collectors.NewGoCollector())
	}
	if r.cfg.Runtime.ProcessCollector {
		runtime = append(runtime, collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	for _, c := range runtime {
		if err := r.registerer.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return fmt.Errorf("%w: runtime collector: %w", ErrRegistration, err)
		}
	}
	return nil
}

// CounterVec returns the counter registered for id, or nil when id is not a counter.
func (r *Registry) CounterVec(id defs.MetricID) *prometheus.CounterVec {
	if r == nil || int(id) >= defs.Count {
		return nil
	}
	return r.counters[id]
}

// GaugeVec returns the gauge registered for id, or nil when id is not a gauge.
func (r *Registry) GaugeVec(id defs.MetricID) *prometheus.GaugeVec {
	if r == nil || int(id) >= defs.Count {
		return nil
	}
	return r.gauges[id]
}

// HistogramVec returns the histogram registered for id, or nil when id is not a histogram.
func (r *Registry) HistogramVec(id defs.MetricID) *prometheus.HistogramVec {
	if r == nil || int(id) >= defs.Count {
		return nil
	}
	return r.histograms[id]
}

// Gatherer returns the gatherer Export snapshots.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.gatherer
}

// Config returns the configuration the Registry was built with.
func (r *Registry) Config() Config {
	return r.cfg
}

// Logger returns the Registry's logger.
func (r *Registry) Logger() *zap.Logger {
	return r.logger
}
